// backend-go/internal/domain/models.go
package domain

import "time"

// Revenue tiers classify items by value importance, A being the highest.
const (
	RevenueTierA = "A"
	RevenueTierB = "B"
	RevenueTierC = "C"
)

// Volatility tiers classify items by demand stability, X being the most stable.
const (
	VolatilityTierX = "X"
	VolatilityTierY = "Y"
	VolatilityTierZ = "Z"
)

// Lifecycle statuses for an item.
const (
	LifecycleActive       = "active"
	LifecyclePhaseOut     = "phase-out"
	LifecycleDiscontinued = "discontinued"
)

// Growth statuses flagged upstream.
const (
	GrowthStatusViral     = "viral"
	GrowthStatusDeclining = "declining"
	GrowthStatusNormal    = "normal"
)

// Item is the master record for a SKU. Read-only to this engine.
type Item struct {
	ID             string    `json:"id" db:"id"`
	SKU            string    `json:"sku" db:"sku"`
	Name           string    `json:"name" db:"name"`
	Category       string    `json:"category" db:"category"`
	RevenueTier    string    `json:"revenue_tier" db:"revenue_tier"`
	VolatilityTier string    `json:"volatility_tier" db:"volatility_tier"`
	UnitCost       float64   `json:"unit_cost" db:"unit_cost"`
	Lifecycle      string    `json:"lifecycle" db:"lifecycle"`
	GrowthStatus   string    `json:"growth_status" db:"growth_status"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// MonthlyDemandRecord is one row per (item, location, calendar month).
// CorrectedDemand is already adjusted upstream for demand lost to stockouts.
type MonthlyDemandRecord struct {
	ItemID          string    `json:"item_id" db:"item_id"`
	LocationID      string    `json:"location_id" db:"location_id"`
	Month           time.Time `json:"month" db:"month"`
	RawUnits        float64   `json:"raw_units" db:"raw_units"`
	StockoutDays    int       `json:"stockout_days" db:"stockout_days"`
	CorrectedDemand float64   `json:"corrected_demand" db:"corrected_demand"`
}

// SeasonalFactor is one of exactly 12 rows per (item, location), keyed by
// month-of-year 1-12. Factor is a non-negative multiplier near 1.0.
type SeasonalFactor struct {
	ItemID      string  `json:"item_id" db:"item_id"`
	LocationID  string  `json:"location_id" db:"location_id"`
	MonthOfYear int     `json:"month_of_year" db:"month_of_year"`
	Factor      float64 `json:"factor" db:"factor"`
	Pattern     string  `json:"pattern" db:"pattern"`
	Confidence  float64 `json:"confidence" db:"confidence"`
	Significant bool    `json:"significant" db:"significant"`
}

// PendingOrder is an open supplier order. Consumed, never mutated, here.
type PendingOrder struct {
	ID              int64      `json:"id" db:"id"`
	ItemID          string     `json:"item_id" db:"item_id"`
	LocationID      string     `json:"location_id" db:"location_id"`
	SupplierID      string     `json:"supplier_id" db:"supplier_id"`
	Quantity        float64    `json:"quantity" db:"quantity"`
	OrderDate       time.Time  `json:"order_date" db:"order_date"`
	ExpectedArrival *time.Time `json:"expected_arrival" db:"expected_arrival"`
	DateConfirmed   bool       `json:"date_confirmed" db:"date_confirmed"`
	LeadTimeDays    float64    `json:"lead_time_days" db:"lead_time_days"`
	Status          string     `json:"status" db:"status"`
}

// SupplierLeadTime aggregates lead-time behavior per (supplier, destination).
type SupplierLeadTime struct {
	SupplierID      string  `json:"supplier_id" db:"supplier_id"`
	LocationID      string  `json:"location_id" db:"location_id"`
	P95LeadTimeDays float64 `json:"p95_lead_time_days" db:"p95_lead_time_days"`
	Reliability     float64 `json:"reliability" db:"reliability"`
	Variability     float64 `json:"variability" db:"variability"`
}

// StockoutSummary is the upstream stockout pattern aggregate per item/location.
type StockoutSummary struct {
	ItemID     string  `json:"item_id" db:"item_id"`
	LocationID string  `json:"location_id" db:"location_id"`
	RiskType   string  `json:"risk_type" db:"risk_type"`
	RiskScore  float64 `json:"risk_score" db:"risk_score"`
	Frequency  float64 `json:"frequency" db:"frequency"`
	Confidence float64 `json:"confidence" db:"confidence"`
}

// StockPosition is the current on-hand stock for an item at a location.
type StockPosition struct {
	ItemID     string  `json:"item_id" db:"item_id"`
	LocationID string  `json:"location_id" db:"location_id"`
	OnHand     float64 `json:"on_hand" db:"on_hand"`
}
