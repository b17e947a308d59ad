// backend-go/internal/repository/postgres/forecast_repository.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
)

type forecastRepository struct {
	db *DB
}

// NewForecastRepository returns the run/detail store used by the scheduler
// and the forecast service.
func NewForecastRepository(db *DB) *forecastRepository {
	return &forecastRepository{db: db}
}

func (r *forecastRepository) CreateRun(ctx context.Context, run *domain.ForecastRun) error {
	filterJSON, err := json.Marshal(run.Filter)
	if err != nil {
		return fmt.Errorf("failed to encode run filter: %w", err)
	}

	query := `
		INSERT INTO forecast_runs (status, filter, growth_override, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`

	if err := r.db.QueryRowContext(ctx, query, run.Status, string(filterJSON), run.GrowthOverride).
		Scan(&run.ID, &run.CreatedAt); err != nil {
		return fmt.Errorf("failed to create forecast run: %w", err)
	}
	run.FilterJSON = string(filterJSON)

	return nil
}

func (r *forecastRepository) GetRun(ctx context.Context, id int64) (*domain.ForecastRun, error) {
	query := `
		SELECT id, status, filter, growth_override, total_items, processed_items,
		       failed_items, COALESCE(error_message, '') AS error_message,
		       started_at, completed_at, created_at
		FROM forecast_runs
		WHERE id = $1
	`

	var run domain.ForecastRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get forecast run: %w", err)
	}
	if run.FilterJSON != "" {
		if err := json.Unmarshal([]byte(run.FilterJSON), &run.Filter); err != nil {
			return nil, fmt.Errorf("failed to decode run filter: %w", err)
		}
	}

	return &run, nil
}

func (r *forecastRepository) UpdateRun(ctx context.Context, run *domain.ForecastRun) error {
	query := `
		UPDATE forecast_runs
		SET status = $2,
		    total_items = $3,
		    error_message = NULLIF($4, ''),
		    started_at = $5,
		    completed_at = $6
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query,
		run.ID, run.Status, run.TotalItems, run.ErrorMessage, run.StartedAt, run.CompletedAt); err != nil {
		return fmt.Errorf("failed to update forecast run: %w", err)
	}

	return nil
}

// AddProgress increments counters server-side so concurrent status reads only
// ever see them grow.
func (r *forecastRepository) AddProgress(ctx context.Context, runID int64, processed, failed int) error {
	query := `
		UPDATE forecast_runs
		SET processed_items = processed_items + $2,
		    failed_items = failed_items + $3
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, runID, processed, failed); err != nil {
		return fmt.Errorf("failed to update run progress: %w", err)
	}

	return nil
}

func (r *forecastRepository) SaveDetails(ctx context.Context, details []domain.ForecastDetail) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO forecast_details (
				run_id, item_id, location_id, points, method, confidence,
				growth_rate, growth_source, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, d := range details {
			pointsJSON, err := json.Marshal(d.Points)
			if err != nil {
				return fmt.Errorf("failed to encode forecast points: %w", err)
			}
			if _, err := stmt.ExecContext(ctx,
				d.RunID, d.ItemID, d.LocationID, string(pointsJSON), d.Method,
				d.Confidence, d.GrowthRate, d.GrowthSource); err != nil {
				return fmt.Errorf("failed to insert forecast detail: %w", err)
			}
		}

		return nil
	})
}

func (r *forecastRepository) ListRuns(ctx context.Context, limit int) ([]domain.ForecastRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, status, filter, growth_override, total_items, processed_items,
		       failed_items, COALESCE(error_message, '') AS error_message,
		       started_at, completed_at, created_at
		FROM forecast_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	var runs []domain.ForecastRun
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list forecast runs: %w", err)
	}
	for i := range runs {
		if runs[i].FilterJSON == "" {
			continue
		}
		if err := json.Unmarshal([]byte(runs[i].FilterJSON), &runs[i].Filter); err != nil {
			return nil, fmt.Errorf("failed to decode run filter: %w", err)
		}
	}

	return runs, nil
}

func (r *forecastRepository) GetDetails(ctx context.Context, runID int64, itemIDs []string) ([]domain.ForecastDetail, error) {
	query := `
		SELECT run_id, item_id, location_id, points, method, confidence,
		       growth_rate, growth_source, created_at
		FROM forecast_details
		WHERE run_id = ?
	`
	args := []interface{}{runID}
	if len(itemIDs) > 0 {
		query += " AND item_id IN (?)"
		args = append(args, itemIDs)
	}
	query += " ORDER BY item_id, location_id"

	query, flatArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build detail query: %w", err)
	}
	query = r.db.Rebind(query)

	var details []domain.ForecastDetail
	if err := r.db.SelectContext(ctx, &details, query, flatArgs...); err != nil {
		return nil, fmt.Errorf("failed to get forecast details: %w", err)
	}
	for i := range details {
		if err := json.Unmarshal([]byte(details[i].PointsJSON), &details[i].Points); err != nil {
			return nil, fmt.Errorf("failed to decode forecast points: %w", err)
		}
	}

	return details, nil
}

// LatestCompletedRunID returns 0 when no run has completed yet.
func (r *forecastRepository) LatestCompletedRunID(ctx context.Context) (int64, error) {
	query := `
		SELECT COALESCE(MAX(id), 0)
		FROM forecast_runs
		WHERE status = $1
	`

	var id int64
	if err := r.db.GetContext(ctx, &id, query, domain.RunStatusCompleted); err != nil {
		return 0, fmt.Errorf("failed to get latest completed run: %w", err)
	}

	return id, nil
}
