// backend-go/internal/repository/postgres/replenish_repository.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/replenish"
)

type replenishRepository struct {
	db *DB
}

// NewReplenishRepository returns the recommendation store backing both the
// batched and per-pair generation paths.
func NewReplenishRepository(db *DB) *replenishRepository {
	return &replenishRepository{db: db}
}

type itemPositionRow struct {
	domain.Item
	LocationID string  `db:"location_id"`
	OnHand     float64 `db:"on_hand"`
}

const itemPositionColumns = `
	i.id, i.sku, i.name, i.category, i.revenue_tier, i.volatility_tier,
	i.unit_cost, i.lifecycle, i.growth_status, i.created_at, i.updated_at,
	sp.location_id, sp.on_hand
`

func (r *replenishRepository) ItemPositions(ctx context.Context) ([]replenish.ItemPosition, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM stock_positions sp
		JOIN items i ON i.id = sp.item_id
		WHERE i.lifecycle != $1
		ORDER BY i.id, sp.location_id
	`, itemPositionColumns)

	var rows []itemPositionRow
	if err := r.db.SelectContext(ctx, &rows, query, domain.LifecycleDiscontinued); err != nil {
		return nil, fmt.Errorf("failed to get item positions: %w", err)
	}

	positions := make([]replenish.ItemPosition, 0, len(rows))
	for _, row := range rows {
		positions = append(positions, replenish.ItemPosition{
			Item:       row.Item,
			LocationID: row.LocationID,
			OnHand:     row.OnHand,
		})
	}

	return positions, nil
}

func (r *replenishRepository) ItemPositionFor(ctx context.Context, itemID, locationID string) (replenish.ItemPosition, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM stock_positions sp
		JOIN items i ON i.id = sp.item_id
		WHERE sp.item_id = $1 AND sp.location_id = $2
	`, itemPositionColumns)

	var row itemPositionRow
	if err := r.db.GetContext(ctx, &row, query, itemID, locationID); err != nil {
		return replenish.ItemPosition{}, fmt.Errorf("failed to get item position: %w", err)
	}

	return replenish.ItemPosition{Item: row.Item, LocationID: row.LocationID, OnHand: row.OnHand}, nil
}

func (r *replenishRepository) OpenOrders(ctx context.Context) (map[replenish.PairKey][]domain.PendingOrder, error) {
	query := `
		SELECT id, item_id, location_id, supplier_id, quantity, order_date,
		       expected_arrival, date_confirmed, lead_time_days, status
		FROM pending_orders
		WHERE status = 'open'
		ORDER BY item_id, location_id, order_date
	`

	var orders []domain.PendingOrder
	if err := r.db.SelectContext(ctx, &orders, query); err != nil {
		return nil, fmt.Errorf("failed to get open orders: %w", err)
	}

	grouped := make(map[replenish.PairKey][]domain.PendingOrder)
	for _, o := range orders {
		key := replenish.PairKey{ItemID: o.ItemID, LocationID: o.LocationID}
		grouped[key] = append(grouped[key], o)
	}

	return grouped, nil
}

func (r *replenishRepository) OpenOrdersFor(ctx context.Context, itemID, locationID string) ([]domain.PendingOrder, error) {
	query := `
		SELECT id, item_id, location_id, supplier_id, quantity, order_date,
		       expected_arrival, date_confirmed, lead_time_days, status
		FROM pending_orders
		WHERE status = 'open' AND item_id = $1 AND location_id = $2
		ORDER BY order_date
	`

	var orders []domain.PendingOrder
	if err := r.db.SelectContext(ctx, &orders, query, itemID, locationID); err != nil {
		return nil, fmt.Errorf("failed to get open orders: %w", err)
	}

	return orders, nil
}

type pairLeadTimeRow struct {
	ItemID string `db:"item_id"`
	domain.SupplierLeadTime
}

// LeadTimes resolves each pair's preferred supplier to its aggregated
// lead-time profile. Pairs without a profile fall through to zero values,
// which the classifier treats as a 0-day lead time.
func (r *replenishRepository) LeadTimes(ctx context.Context) (map[replenish.PairKey]domain.SupplierLeadTime, error) {
	query := `
		SELECT s.item_id, lt.supplier_id, lt.location_id, lt.p95_lead_time_days,
		       lt.reliability, lt.variability
		FROM item_suppliers s
		JOIN supplier_lead_times lt
		  ON lt.supplier_id = s.supplier_id AND lt.location_id = s.location_id
		WHERE s.preferred = true
	`

	var rows []pairLeadTimeRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get lead times: %w", err)
	}

	leadTimes := make(map[replenish.PairKey]domain.SupplierLeadTime, len(rows))
	for _, row := range rows {
		key := replenish.PairKey{ItemID: row.ItemID, LocationID: row.LocationID}
		leadTimes[key] = row.SupplierLeadTime
	}

	return leadTimes, nil
}

func (r *replenishRepository) LeadTimeFor(ctx context.Context, itemID, locationID string) (domain.SupplierLeadTime, error) {
	query := `
		SELECT lt.supplier_id, lt.location_id, lt.p95_lead_time_days,
		       lt.reliability, lt.variability
		FROM item_suppliers s
		JOIN supplier_lead_times lt
		  ON lt.supplier_id = s.supplier_id AND lt.location_id = s.location_id
		WHERE s.preferred = true AND s.item_id = $1 AND s.location_id = $2
	`

	var lt domain.SupplierLeadTime
	if err := r.db.GetContext(ctx, &lt, query, itemID, locationID); err != nil {
		if err == sql.ErrNoRows {
			return domain.SupplierLeadTime{}, nil
		}
		return domain.SupplierLeadTime{}, fmt.Errorf("failed to get lead time: %w", err)
	}

	return lt, nil
}

func (r *replenishRepository) StockoutSummaries(ctx context.Context) (map[replenish.PairKey]domain.StockoutSummary, error) {
	query := `
		SELECT item_id, location_id, risk_type, risk_score, frequency, confidence
		FROM stockout_summaries
	`

	var rows []domain.StockoutSummary
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get stockout summaries: %w", err)
	}

	summaries := make(map[replenish.PairKey]domain.StockoutSummary, len(rows))
	for _, row := range rows {
		summaries[replenish.PairKey{ItemID: row.ItemID, LocationID: row.LocationID}] = row
	}

	return summaries, nil
}

func (r *replenishRepository) StockoutSummaryFor(ctx context.Context, itemID, locationID string) (domain.StockoutSummary, error) {
	query := `
		SELECT item_id, location_id, risk_type, risk_score, frequency, confidence
		FROM stockout_summaries
		WHERE item_id = $1 AND location_id = $2
	`

	var summary domain.StockoutSummary
	if err := r.db.GetContext(ctx, &summary, query, itemID, locationID); err != nil {
		if err == sql.ErrNoRows {
			return domain.StockoutSummary{}, nil
		}
		return domain.StockoutSummary{}, fmt.Errorf("failed to get stockout summary: %w", err)
	}

	return summary, nil
}

type demandStatsRow struct {
	ItemID      string  `db:"item_id"`
	LocationID  string  `db:"location_id"`
	DailyDemand float64 `db:"daily_demand"`
	Variability float64 `db:"variability"`
}

// demandStatsQuery derives the decision-time demand rate. Daily demand comes
// from the first month of the latest completed forecast when one exists,
// otherwise from the trailing three months of corrected actuals. Variability
// is the coefficient of variation over the trailing twelve months.
const demandStatsQuery = `
	WITH latest_run AS (
		SELECT MAX(id) AS id FROM forecast_runs WHERE status = 'completed'
	),
	forecast_daily AS (
		SELECT fd.item_id, fd.location_id,
		       (fd.points->0->>'quantity')::double precision / 30.0 AS daily_demand
		FROM forecast_details fd, latest_run
		WHERE fd.run_id = latest_run.id
	),
	trailing AS (
		SELECT item_id, location_id,
		       AVG(corrected_demand) / 30.0 AS daily_demand
		FROM monthly_demand
		WHERE month >= date_trunc('month', NOW()) - INTERVAL '3 months'
		GROUP BY item_id, location_id
	),
	variability AS (
		SELECT item_id, location_id,
		       CASE WHEN AVG(corrected_demand) > 0
		            THEN COALESCE(STDDEV_SAMP(corrected_demand), 0) / AVG(corrected_demand)
		            ELSE 0 END AS variability
		FROM monthly_demand
		WHERE month >= date_trunc('month', NOW()) - INTERVAL '12 months'
		GROUP BY item_id, location_id
	)
	SELECT v.item_id, v.location_id,
	       COALESCE(f.daily_demand, t.daily_demand, 0) AS daily_demand,
	       v.variability
	FROM variability v
	LEFT JOIN forecast_daily f ON f.item_id = v.item_id AND f.location_id = v.location_id
	LEFT JOIN trailing t ON t.item_id = v.item_id AND t.location_id = v.location_id
`

func (r *replenishRepository) DemandStats(ctx context.Context) (map[replenish.PairKey]replenish.DemandStats, error) {
	var rows []demandStatsRow
	if err := r.db.SelectContext(ctx, &rows, demandStatsQuery); err != nil {
		return nil, fmt.Errorf("failed to get demand stats: %w", err)
	}

	stats := make(map[replenish.PairKey]replenish.DemandStats, len(rows))
	for _, row := range rows {
		stats[replenish.PairKey{ItemID: row.ItemID, LocationID: row.LocationID}] = replenish.DemandStats{
			DailyDemand: row.DailyDemand,
			Variability: row.Variability,
		}
	}

	return stats, nil
}

func (r *replenishRepository) DemandStatsFor(ctx context.Context, itemID, locationID string) (replenish.DemandStats, error) {
	query := `
		SELECT item_id, location_id, daily_demand, variability
		FROM (` + demandStatsQuery + `) stats
		WHERE item_id = $1 AND location_id = $2
	`

	var row demandStatsRow
	if err := r.db.GetContext(ctx, &row, query, itemID, locationID); err != nil {
		if err == sql.ErrNoRows {
			return replenish.DemandStats{}, nil
		}
		return replenish.DemandStats{}, fmt.Errorf("failed to get demand stats: %w", err)
	}

	return replenish.DemandStats{DailyDemand: row.DailyDemand, Variability: row.Variability}, nil
}

func (r *replenishRepository) SeasonalFactorSets(ctx context.Context) (map[replenish.PairKey][]domain.SeasonalFactor, error) {
	query := `
		SELECT item_id, location_id, month_of_year, factor, pattern, confidence, significant
		FROM seasonal_factors
		ORDER BY item_id, location_id, month_of_year
	`

	var rows []domain.SeasonalFactor
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get seasonal factors: %w", err)
	}

	sets := make(map[replenish.PairKey][]domain.SeasonalFactor)
	for _, row := range rows {
		key := replenish.PairKey{ItemID: row.ItemID, LocationID: row.LocationID}
		sets[key] = append(sets[key], row)
	}

	return sets, nil
}

func (r *replenishRepository) SeasonalFactorsFor(ctx context.Context, itemID, locationID string) ([]domain.SeasonalFactor, error) {
	query := `
		SELECT item_id, location_id, month_of_year, factor, pattern, confidence, significant
		FROM seasonal_factors
		WHERE item_id = $1 AND location_id = $2
		ORDER BY month_of_year
	`

	var rows []domain.SeasonalFactor
	if err := r.db.SelectContext(ctx, &rows, query, itemID, locationID); err != nil {
		return nil, fmt.Errorf("failed to get seasonal factors: %w", err)
	}

	return rows, nil
}

func (r *replenishRepository) LockedPairs(ctx context.Context, month time.Time) (map[replenish.PairKey]bool, error) {
	query := `
		SELECT item_id, location_id
		FROM order_recommendations
		WHERE order_month = $1 AND locked = true
	`

	rows, err := r.db.QueryxContext(ctx, query, month)
	if err != nil {
		return nil, fmt.Errorf("failed to get locked pairs: %w", err)
	}
	defer rows.Close()

	locked := make(map[replenish.PairKey]bool)
	for rows.Next() {
		var key replenish.PairKey
		if err := rows.Scan(&key.ItemID, &key.LocationID); err != nil {
			return nil, fmt.Errorf("failed to scan locked pair: %w", err)
		}
		locked[key] = true
	}

	return locked, rows.Err()
}

// UpsertRecommendations writes one row per pair for the order month. The
// locked guard on the conflict branch is a second line of defense behind the
// generator's locked-pair skip, covering rows locked mid-run.
func (r *replenishRepository) UpsertRecommendations(ctx context.Context, recs []domain.OrderRecommendation) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO order_recommendations (
				item_id, location_id, order_month, urgency, suggested_quantity,
				safety_stock, coverage_days, effective_pending, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
			ON CONFLICT (item_id, location_id, order_month) DO UPDATE SET
				urgency = EXCLUDED.urgency,
				suggested_quantity = EXCLUDED.suggested_quantity,
				safety_stock = EXCLUDED.safety_stock,
				coverage_days = EXCLUDED.coverage_days,
				effective_pending = EXCLUDED.effective_pending,
				updated_at = NOW()
			WHERE order_recommendations.locked = false
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, rec := range recs {
			if _, err := stmt.ExecContext(ctx,
				rec.ItemID, rec.LocationID, rec.OrderMonth, rec.Urgency,
				rec.SuggestedQuantity, rec.SafetyStock, rec.CoverageDays,
				rec.EffectivePending); err != nil {
				return fmt.Errorf("failed to upsert recommendation: %w", err)
			}
		}

		return nil
	})
}

func (r *replenishRepository) List(ctx context.Context, filter domain.RecommendationFilter) ([]domain.OrderRecommendation, error) {
	query := `
		SELECT id, item_id, location_id, order_month, urgency, suggested_quantity,
		       confirmed_quantity, safety_stock, coverage_days, effective_pending,
		       locked, created_at, updated_at
		FROM order_recommendations
		WHERE order_month = $1
	`
	args := []interface{}{filter.Month}
	if filter.LocationID != "" {
		args = append(args, filter.LocationID)
		query += fmt.Sprintf(" AND location_id = $%d", len(args))
	}
	if filter.Urgency != "" {
		args = append(args, filter.Urgency)
		query += fmt.Sprintf(" AND urgency = $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 100
	}
	args = append(args, pageSize, (page-1)*pageSize)
	query += fmt.Sprintf(" ORDER BY urgency DESC, item_id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var recs []domain.OrderRecommendation
	if err := r.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}

	return recs, nil
}

func (r *replenishRepository) Summary(ctx context.Context, month time.Time) (domain.RecommendationSummary, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE urgency = $2) AS must_order,
			COUNT(*) FILTER (WHERE urgency = $3) AS should_order,
			COUNT(*) FILTER (WHERE urgency = $4) AS optional,
			COUNT(*) FILTER (WHERE urgency = $5) AS skip,
			COUNT(*) FILTER (WHERE locked = true) AS locked
		FROM order_recommendations
		WHERE order_month = $1
	`

	summary := domain.RecommendationSummary{Month: month}
	if err := r.db.QueryRowContext(ctx, query, month,
		domain.UrgencyMustOrder, domain.UrgencyShouldOrder, domain.UrgencyOptional, domain.UrgencySkip).
		Scan(&summary.MustOrder, &summary.ShouldOrder, &summary.Optional, &summary.Skip, &summary.Locked); err != nil {
		return summary, fmt.Errorf("failed to get recommendation summary: %w", err)
	}

	return summary, nil
}

// UpdateReview records a planner's confirmed quantity and lock flag for one
// recommendation row.
func (r *replenishRepository) UpdateReview(ctx context.Context, id int64, confirmedQuantity *float64, locked bool) (*domain.OrderRecommendation, error) {
	query := `
		UPDATE order_recommendations
		SET confirmed_quantity = $2,
		    locked = $3,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, item_id, location_id, order_month, urgency, suggested_quantity,
		          confirmed_quantity, safety_stock, coverage_days, effective_pending,
		          locked, created_at, updated_at
	`

	var rec domain.OrderRecommendation
	if err := r.db.GetContext(ctx, &rec, query, id, confirmedQuantity, locked); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update recommendation: %w", err)
	}

	return &rec, nil
}
