// backend-go/cmd/replenish/main.go
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/cache"
	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/forecast"
	"github.com/andresuchdata/demandcast/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/demandcast/backend-go/internal/scheduler"
	"github.com/andresuchdata/demandcast/backend-go/internal/service"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func openDB(c *cli.Context) (*postgres.DB, error) {
	return postgres.OpenURL("pgx", c.String("db-url"))
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "replenish",
		Usage: "Run demand forecasts and order recommendations from the command line",
		Commands: []*cli.Command{
			{
				Name:  "forecast",
				Usage: "Run one forecast generation pass and wait for it to finish",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:  "category",
						Usage: "Only forecast items in this category",
					},
					&cli.StringFlag{
						Name:  "location",
						Usage: "Only forecast this location",
					},
					&cli.Float64Flag{
						Name:  "growth-override",
						Usage: "Annual growth rate override (-0.5 to 0.5)",
					},
				},
				Action: runForecast,
			},
			{
				Name:  "recommend",
				Usage: "Generate order recommendations for one order month",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:  "month",
						Usage: "Order month formatted as YYYY-MM (default: current month)",
					},
				},
				Action: runRecommend,
			},
			{
				Name:  "status",
				Usage: "Show a forecast run's status",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.Int64Flag{
						Name:     "run-id",
						Usage:    "Forecast run to inspect",
						Required: true,
					},
				},
				Action: runStatus,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runForecast(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	demandRepo := postgres.NewDemandRepository(db)
	forecastRepo := postgres.NewForecastRepository(db)
	forecaster := forecast.NewForecaster(demandRepo)

	sched := scheduler.New(forecastRepo, demandRepo, forecaster, 1, 0)
	sched.Start()

	filter := domain.ForecastFilter{
		Category:   c.String("category"),
		LocationID: c.String("location"),
	}
	var override *float64
	if c.IsSet("growth-override") {
		v := c.Float64("growth-override")
		if v < -0.5 || v > 0.5 {
			return fmt.Errorf("growth-override %v out of range [-0.5, 0.5]", v)
		}
		override = &v
	}

	runID, _, _, err := sched.Enqueue(c.Context, filter, override)
	if err != nil {
		return fmt.Errorf("failed to queue forecast run: %w", err)
	}
	fmt.Printf("run %d queued\n", runID)

	for {
		time.Sleep(2 * time.Second)
		run, err := forecastRepo.GetRun(c.Context, runID)
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run %d disappeared", runID)
		}
		fmt.Printf("run %d: %s (%d/%d processed, %d failed)\n",
			runID, run.Status, run.ProcessedItems, run.TotalItems, run.FailedItems)
		if run.Terminal() {
			break
		}
	}

	return sched.Stop(c.Context)
}

func runRecommend(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	month := time.Now().UTC()
	if raw := c.String("month"); raw != "" {
		month, err = time.Parse("2006-01", raw)
		if err != nil {
			return fmt.Errorf("invalid month %q, expected YYYY-MM: %w", raw, err)
		}
	}

	svc := service.NewRecommendationService(
		postgres.NewReplenishRepository(db),
		cache.NewNoopRecommendationCache(),
	)

	summary, err := svc.Generate(c.Context, month)
	if err != nil {
		return fmt.Errorf("failed to generate recommendations: %w", err)
	}

	fmt.Printf("month %s: %d pairs (%d must-order, %d should-order, %d optional, %d skip, %d locked)\n",
		summary.Month.Format("2006-01"), summary.Total(),
		summary.MustOrder, summary.ShouldOrder, summary.Optional, summary.Skip, summary.Locked)

	return nil
}

func runStatus(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	forecastRepo := postgres.NewForecastRepository(db)
	run, err := forecastRepo.GetRun(c.Context, c.Int64("run-id"))
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %d not found", c.Int64("run-id"))
	}

	payload, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(payload))

	return nil
}
