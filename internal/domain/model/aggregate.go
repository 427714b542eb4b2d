package model

import "github.com/shopspring/decimal"

// AggregateBucket is one group of an aggregation pass.
type AggregateBucket struct {
	Key        string          `json:"key"`
	Quantity   decimal.Decimal `json:"quantity"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// TimeBreakdown groups events by calendar period, most recent first.
type TimeBreakdown struct {
	Daily   []AggregateBucket `json:"daily"`
	Monthly []AggregateBucket `json:"monthly"`
	Yearly  []AggregateBucket `json:"yearly"`
}

// Trends holds percentage changes between adjacent windows.
type Trends struct {
	Retirements24h float64 `json:"retirements24h"`
	Retirements7d  float64 `json:"retirements7d"`
	Retirements30d float64 `json:"retirements30d"`
	Volume24h      float64 `json:"volume24h"`
	Volume7d       float64 `json:"volume7d"`
}

// PricePoint is one day of a synthesized price history.
type PricePoint struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// DerivedMetrics are cross-cutting scores. Every float score lies in [0, 100].
type DerivedMetrics struct {
	UtilizationRate  float64         `json:"utilizationRate"`
	LiquidityScore   float64         `json:"liquidityScore"`
	PriceStability   float64         `json:"priceStability"`
	MarketCap        decimal.Decimal `json:"marketCap"`
	AverageTradeSize decimal.Decimal `json:"averageTradeSize"`
	ActivityScore    float64         `json:"activityScore"`
}

// DataQualityWarning reports a non-fatal inconsistency found while composing
// a result.
type DataQualityWarning struct {
	Code      string          `json:"code"`
	ProjectID string          `json:"projectId"`
	Message   string          `json:"message"`
	Expected  decimal.Decimal `json:"expected"`
	Actual    decimal.Decimal `json:"actual"`
}

// Warning codes.
const (
	WarnTotalMismatch     = "total_mismatch"
	WarnRetiredExceedsAll = "retired_exceeds_total"
	WarnDegradedInput     = "degraded_input"
	WarnPercentageDrift   = "percentage_drift"
)
