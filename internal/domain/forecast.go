// backend-go/internal/domain/forecast.go
package domain

import "time"

// Run statuses for a forecast generation request. Completed, failed and
// cancelled are terminal.
const (
	RunStatusPending   = "pending"
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// Growth-rate provenance tags, kept on ForecastDetail for audit.
const (
	GrowthSourceManual        = "manual"
	GrowthSourceTrend         = "trend"
	GrowthSourceTrendSeasonal = "trend-seasonal"
	GrowthSourceCategoryTrend = "category-trend"
	GrowthSourceGrowthStatus  = "growth-status"
	GrowthSourceDefault       = "default"
)

// ForecastFilter narrows which items a run covers. Empty fields match all.
type ForecastFilter struct {
	ItemIDs     []string `json:"item_ids"`
	Category    string   `json:"category"`
	RevenueTier string   `json:"revenue_tier"`
	LocationID  string   `json:"location_id"`
}

// ForecastRun is one row per generation request, mutated only by the worker.
type ForecastRun struct {
	ID             int64          `json:"id" db:"id"`
	Status         string         `json:"status" db:"status"`
	Filter         ForecastFilter `json:"filter" db:"-"`
	FilterJSON     string         `json:"-" db:"filter"`
	GrowthOverride *float64       `json:"growth_override,omitempty" db:"growth_override"`
	TotalItems     int            `json:"total_items" db:"total_items"`
	ProcessedItems int            `json:"processed_items" db:"processed_items"`
	FailedItems    int            `json:"failed_items" db:"failed_items"`
	ErrorMessage   string         `json:"error_message,omitempty" db:"error_message"`
	StartedAt      *time.Time     `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// Terminal reports whether the run can no longer change.
func (r *ForecastRun) Terminal() bool {
	switch r.Status {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// ForecastPoint is one month of a forecast: quantity and revenue.
type ForecastPoint struct {
	Month    time.Time `json:"month"`
	Quantity float64   `json:"quantity"`
	Revenue  float64   `json:"revenue"`
}

// ForecastDetail is one row per (run, item, location), write-once per run.
// Points holds 12 consecutive calendar months starting the month after the
// latest month with any recorded sales catalog-wide.
type ForecastDetail struct {
	RunID        int64           `json:"run_id" db:"run_id"`
	ItemID       string          `json:"item_id" db:"item_id"`
	LocationID   string          `json:"location_id" db:"location_id"`
	Points       []ForecastPoint `json:"points" db:"-"`
	PointsJSON   string          `json:"-" db:"points"`
	Method       string          `json:"method" db:"method"`
	Confidence   float64         `json:"confidence" db:"confidence"`
	GrowthRate   float64         `json:"growth_rate" db:"growth_rate"`
	GrowthSource string          `json:"growth_source" db:"growth_source"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
