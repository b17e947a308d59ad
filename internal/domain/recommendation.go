// backend-go/internal/domain/recommendation.go
package domain

import "time"

// Urgency tiers ordered from lowest to highest.
const (
	UrgencySkip        = "skip"
	UrgencyOptional    = "optional"
	UrgencyShouldOrder = "should-order"
	UrgencyMustOrder   = "must-order"
)

// OrderRecommendation is one row per (item, location, order month). Rows are
// upserted on every run for that month; a locked row is never overwritten.
type OrderRecommendation struct {
	ID                int64     `json:"id" db:"id"`
	ItemID            string    `json:"item_id" db:"item_id"`
	LocationID        string    `json:"location_id" db:"location_id"`
	OrderMonth        time.Time `json:"order_month" db:"order_month"`
	Urgency           string    `json:"urgency" db:"urgency"`
	SuggestedQuantity float64   `json:"suggested_quantity" db:"suggested_quantity"`
	ConfirmedQuantity *float64  `json:"confirmed_quantity,omitempty" db:"confirmed_quantity"`
	SafetyStock       float64   `json:"safety_stock" db:"safety_stock"`
	CoverageDays      float64   `json:"coverage_days" db:"coverage_days"`
	EffectivePending  float64   `json:"effective_pending" db:"effective_pending"`
	Locked            bool      `json:"locked" db:"locked"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// RecommendationFilter narrows recommendation listing queries.
type RecommendationFilter struct {
	Month      time.Time `json:"month"`
	LocationID string    `json:"location_id"`
	Urgency    string    `json:"urgency"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
}

// RecommendationSummary reports counts by urgency tier for one order month.
type RecommendationSummary struct {
	Month       time.Time `json:"month"`
	MustOrder   int       `json:"must_order"`
	ShouldOrder int       `json:"should_order"`
	Optional    int       `json:"optional"`
	Skip        int       `json:"skip"`
	Locked      int       `json:"locked"`
	Failed      int       `json:"failed"`
}

// Total returns the number of item/location pairs the summary covers.
func (s RecommendationSummary) Total() int {
	return s.MustOrder + s.ShouldOrder + s.Optional + s.Skip
}
