package service

import (
	"math"

	"github.com/shopspring/decimal"

	"irecStatApp/internal/domain/model"
)

// DeriveMetrics computes cross-cutting scores for a project from its
// aggregated result. Every float score is clamped to [0, 100], including for
// adversarial input such as a zero total or a retired amount above the
// total.
func DeriveMetrics(project model.ProjectRecord, result model.AnalyticsResult) model.DerivedMetrics {
	total := project.TotalQuantity()
	retired := project.RetiredQuantity()
	available := project.AvailableQuantity()
	price := project.UnitPrice()
	totals := result.Totals

	return model.DerivedMetrics{
		UtilizationRate:  UtilizationRate(retired, total),
		LiquidityScore:   LiquidityScore(available, total, totals.TransferVolume),
		PriceStability:   PriceStability(result.PriceHistory),
		MarketCap:        total.Mul(price),
		AverageTradeSize: averageTradeSize(totals),
		ActivityScore:    ActivityScore(totals.RetirementCount+totals.TransferCount, totals.RetiredInEvents.Add(totals.TransferVolume)),
	}
}

// UtilizationRate is retired / total * 100. A zero total yields 0.
func UtilizationRate(retired, total decimal.Decimal) float64 {
	if !total.IsPositive() {
		return 0
	}
	return clampScore(retired.Mul(decimal.NewFromInt(100)).DivRound(total, 8).InexactFloat64())
}

// LiquidityScore gives up to 50 points for the available share of supply
// and up to 50 for log-scaled transfer volume.
func LiquidityScore(available, total, volume decimal.Decimal) float64 {
	var ratio float64
	if total.IsPositive() {
		ratio = clampUnit(available.DivRound(total, 8).InexactFloat64())
	}
	return clampScore(ratio*50 + logTerm(volume, 10, 50))
}

// ActivityScore gives up to 60 points for event count and up to 40 for
// log-scaled volume.
func ActivityScore(count int, volume decimal.Decimal) float64 {
	countTerm := math.Min(60, math.Max(0, float64(count)))
	return clampScore(countTerm + logTerm(volume, 6, 40))
}

// PriceStability is 100 minus five times the coefficient of variation of
// the price history, in percent. Fewer than two points score 0.
func PriceStability(history []model.PricePoint) float64 {
	if len(history) < 2 {
		return 0
	}
	var sum float64
	for _, p := range history {
		sum += p.Price.InexactFloat64()
	}
	mean := sum / float64(len(history))
	if mean <= 0 {
		return 0
	}
	var variance float64
	for _, p := range history {
		d := p.Price.InexactFloat64() - mean
		variance += d * d
	}
	variance /= float64(len(history))
	cv := math.Sqrt(variance) / mean
	return clampScore(100 - cv*500)
}

func averageTradeSize(t model.AnalyticsTotals) decimal.Decimal {
	switch {
	case t.TransferCount > 0:
		return t.TransferVolume.DivRound(decimal.NewFromInt(int64(t.TransferCount)), 4)
	case t.RetirementCount > 0:
		return t.RetiredInEvents.DivRound(decimal.NewFromInt(int64(t.RetirementCount)), 4)
	default:
		return decimal.Zero
	}
}

func logTerm(v decimal.Decimal, factor, limit float64) float64 {
	if !v.IsPositive() {
		return 0
	}
	return math.Min(limit, math.Log10(1+v.InexactFloat64())*factor)
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(100, math.Max(0, v))
}
