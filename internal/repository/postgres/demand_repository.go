// backend-go/internal/repository/postgres/demand_repository.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/forecast"
	"github.com/andresuchdata/demandcast/backend-go/internal/scheduler"
	"github.com/jmoiron/sqlx"
)

type demandRepository struct {
	db *DB
}

// NewDemandRepository returns the demand-history store backing the forecaster
// and the run scheduler.
func NewDemandRepository(db *DB) *demandRepository {
	return &demandRepository{db: db}
}

func (r *demandRepository) DemandHistory(ctx context.Context, itemID, locationID string, months int) ([]domain.MonthlyDemandRecord, error) {
	query := `
		SELECT item_id, location_id, month, raw_units, stockout_days, corrected_demand
		FROM monthly_demand
		WHERE item_id = $1 AND location_id = $2
		  AND month >= (date_trunc('month', NOW()) - ($3 || ' months')::interval)
		ORDER BY month ASC
	`

	var records []domain.MonthlyDemandRecord
	if err := sqlx.SelectContext(ctx, r.db, &records, query, itemID, locationID, months); err != nil {
		return nil, fmt.Errorf("failed to get demand history: %w", err)
	}

	return records, nil
}

func (r *demandRepository) SeasonalFactors(ctx context.Context, itemID, locationID string) ([]domain.SeasonalFactor, error) {
	query := `
		SELECT item_id, location_id, month_of_year, factor, pattern, confidence, significant
		FROM seasonal_factors
		WHERE item_id = $1 AND location_id = $2
		ORDER BY month_of_year ASC
	`

	var factors []domain.SeasonalFactor
	if err := sqlx.SelectContext(ctx, r.db, &factors, query, itemID, locationID); err != nil {
		return nil, fmt.Errorf("failed to get seasonal factors: %w", err)
	}

	return factors, nil
}

func (r *demandRepository) SaveSeasonalFactors(ctx context.Context, factors []domain.SeasonalFactor) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO seasonal_factors (
				item_id, location_id, month_of_year, factor, pattern, confidence, significant
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (item_id, location_id, month_of_year)
			DO UPDATE SET
				factor = EXCLUDED.factor,
				pattern = EXCLUDED.pattern,
				confidence = EXCLUDED.confidence,
				significant = EXCLUDED.significant
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, f := range factors {
			if _, err := stmt.ExecContext(ctx, f.ItemID, f.LocationID, f.MonthOfYear, f.Factor, f.Pattern, f.Confidence, f.Significant); err != nil {
				return fmt.Errorf("failed to upsert seasonal factor: %w", err)
			}
		}

		return nil
	})
}

func (r *demandRepository) CategoryMonthlyTotals(ctx context.Context, category, locationID string, months int) ([]float64, error) {
	query := `
		SELECT COALESCE(SUM(md.corrected_demand), 0) AS total
		FROM monthly_demand md
		JOIN items i ON i.id = md.item_id
		WHERE i.category = $1 AND md.location_id = $2
		  AND md.month >= (date_trunc('month', NOW()) - ($3 || ' months')::interval)
		GROUP BY md.month
		ORDER BY md.month ASC
	`

	var totals []float64
	if err := sqlx.SelectContext(ctx, r.db, &totals, query, category, locationID, months); err != nil {
		return nil, fmt.Errorf("failed to get category totals: %w", err)
	}

	return totals, nil
}

func (r *demandRepository) CategoryAverageDemand(ctx context.Context, category, locationID string) (float64, error) {
	query := `
		SELECT COALESCE(AVG(md.corrected_demand), 0)
		FROM monthly_demand md
		JOIN items i ON i.id = md.item_id
		WHERE i.category = $1 AND md.location_id = $2
		  AND md.month >= (date_trunc('month', NOW()) - interval '12 months')
	`

	var avg float64
	if err := r.db.GetContext(ctx, &avg, query, category, locationID); err != nil {
		return 0, fmt.Errorf("failed to get category average: %w", err)
	}

	return avg, nil
}

func (r *demandRepository) ShortWindowAverage(ctx context.Context, itemID, locationID string) (*float64, error) {
	// Recency-weighted 3-month average; NULL when the item has no history.
	query := `
		SELECT SUM(corrected_demand * w) / NULLIF(SUM(w), 0)
		FROM (
			SELECT corrected_demand,
			       POWER(0.75, ROW_NUMBER() OVER (ORDER BY month DESC) - 1) AS w
			FROM monthly_demand
			WHERE item_id = $1 AND location_id = $2
			ORDER BY month DESC
			LIMIT 3
		) recent
	`

	var avg sql.NullFloat64
	if err := r.db.GetContext(ctx, &avg, query, itemID, locationID); err != nil {
		return nil, fmt.Errorf("failed to get short window average: %w", err)
	}
	if !avg.Valid {
		return nil, nil
	}

	return &avg.Float64, nil
}

func (r *demandRepository) SimilarItems(ctx context.Context, item domain.Item, locationID string, month time.Month, limit int) ([]forecast.SimilarItemStats, error) {
	if limit <= 0 {
		limit = 5
	}

	query := `
		SELECT
			i.id AS item_id,
			COALESCE(stats.medium_avg, 0) AS medium_window_avg,
			COALESCE(sf.factor, 1.0) AS seasonal_factor,
			COALESCE(risk.risk_score, 0) AS stockout_risk
		FROM items i
		LEFT JOIN LATERAL (
			SELECT AVG(md.corrected_demand) AS medium_avg
			FROM monthly_demand md
			WHERE md.item_id = i.id AND md.location_id = $1
			  AND md.month >= (date_trunc('month', NOW()) - interval '6 months')
		) stats ON true
		LEFT JOIN seasonal_factors sf
			ON sf.item_id = i.id AND sf.location_id = $1 AND sf.month_of_year = $2
		LEFT JOIN LATERAL (
			-- One row per candidate even when it carries both risk types.
			SELECT MAX(so.risk_score) AS risk_score
			FROM stockout_summaries so
			WHERE so.item_id = i.id AND so.location_id = $1
			  AND so.risk_type IN ('chronic', 'seasonal')
		) risk ON true
		WHERE i.category = $3
		  AND i.revenue_tier = $4
		  AND i.lifecycle = 'active'
		  AND i.id <> $5
		ORDER BY stats.medium_avg DESC NULLS LAST
		LIMIT $6
	`

	var rows []forecast.SimilarItemStats
	err := sqlx.SelectContext(ctx, r.db, &rows, query,
		locationID, int(month), item.Category, item.RevenueTier, item.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get similar items: %w", err)
	}

	return rows, nil
}

func (r *demandRepository) PendingUnits(ctx context.Context, itemID, locationID string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM pending_orders
		WHERE item_id = $1 AND location_id = $2 AND status = 'open'
	`

	var units float64
	if err := r.db.GetContext(ctx, &units, query, itemID, locationID); err != nil {
		return 0, fmt.Errorf("failed to get pending units: %w", err)
	}

	return units, nil
}

// LatestCatalogSalesMonth anchors every forecast to one shared horizon: the
// latest month with any recorded sales catalog-wide, not per-item.
func (r *demandRepository) LatestCatalogSalesMonth(ctx context.Context) (time.Time, error) {
	query := `
		SELECT month
		FROM monthly_demand
		WHERE raw_units > 0
		ORDER BY month DESC
		LIMIT 1
	`

	var month time.Time
	if err := r.db.GetContext(ctx, &month, query); err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest catalog sales month: %w", err)
	}

	return month, nil
}

func (r *demandRepository) ForecastPairs(ctx context.Context, filter domain.ForecastFilter) ([]scheduler.Pair, error) {
	query := `
		SELECT DISTINCT
			i.id, i.sku, i.name, i.category, i.revenue_tier, i.volatility_tier,
			i.unit_cost, i.lifecycle, i.growth_status, i.created_at, i.updated_at,
			md.location_id
		FROM items i
		JOIN monthly_demand md ON md.item_id = i.id
		WHERE i.lifecycle <> 'discontinued'
	`
	args := []interface{}{}

	if len(filter.ItemIDs) > 0 {
		query += " AND i.id IN (?)"
		args = append(args, filter.ItemIDs)
	}
	if filter.Category != "" {
		query += " AND i.category = ?"
		args = append(args, filter.Category)
	}
	if filter.RevenueTier != "" {
		query += " AND i.revenue_tier = ?"
		args = append(args, filter.RevenueTier)
	}
	if filter.LocationID != "" {
		query += " AND md.location_id = ?"
		args = append(args, filter.LocationID)
	}
	query += " ORDER BY i.id, md.location_id"

	query, flatArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build forecast pair query: %w", err)
	}
	query = r.db.Rebind(query)

	rows, err := r.db.QueryxContext(ctx, query, flatArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list forecast pairs: %w", err)
	}
	defer rows.Close()

	var pairs []scheduler.Pair
	for rows.Next() {
		var item domain.Item
		var locationID string
		if err := rows.Scan(
			&item.ID, &item.SKU, &item.Name, &item.Category, &item.RevenueTier, &item.VolatilityTier,
			&item.UnitCost, &item.Lifecycle, &item.GrowthStatus, &item.CreatedAt, &item.UpdatedAt,
			&locationID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan forecast pair: %w", err)
		}
		pairs = append(pairs, scheduler.Pair{Item: item, LocationID: locationID})
	}

	return pairs, rows.Err()
}
