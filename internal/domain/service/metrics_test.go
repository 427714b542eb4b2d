package service

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"irecStatApp/internal/domain/model"
)

func assertScore(t *testing.T, v float64) {
	t.Helper()
	assert.False(t, math.IsNaN(v))
	assert.GreaterOrEqual(t, v, 0.0)
	assert.LessOrEqual(t, v, 100.0)
}

func TestUtilizationRate(t *testing.T) {
	assert.InDelta(t, 25.0, UtilizationRate(decimal.NewFromInt(250000), decimal.NewFromInt(1000000)), 1e-9)
	assert.Zero(t, UtilizationRate(decimal.NewFromInt(5), decimal.Zero))
	assert.Equal(t, 100.0, UtilizationRate(decimal.NewFromInt(200), decimal.NewFromInt(100)))
}

func TestDeriveMetrics_Sample(t *testing.T) {
	s := newTestSynthesizer()
	p := sampleProject()
	retirements := s.Synthesize(p, SynthesisOptions{})
	transfers := s.Synthesize(p, SynthesisOptions{Kind: model.EventTransfer})

	result := model.AnalyticsResult{
		Totals: model.AnalyticsTotals{
			RetiredInEvents: SumEvents(retirements),
			TransferVolume:  SumEvents(transfers),
			RetirementCount: len(retirements),
			TransferCount:   len(transfers),
		},
		PriceHistory: s.SynthesizePriceHistory(p, 30, fixedNow),
	}
	m := DeriveMetrics(p, result)

	assert.InDelta(t, 25.0, m.UtilizationRate, 1e-9)
	for _, v := range []float64{m.LiquidityScore, m.PriceStability, m.ActivityScore} {
		assertScore(t, v)
	}
	assert.True(t, m.MarketCap.Equal(decimal.NewFromInt(1850000)))
	assert.True(t, m.AverageTradeSize.IsPositive())
}

func TestDeriveMetrics_AdversarialInputs(t *testing.T) {
	projects := []model.ProjectRecord{
		{ID: "zero", TotalSupply: "0", Retired: "10", CurrentSupply: "5"},
		{ID: "garbage", TotalSupply: "abc", Retired: "-1", CurrentSupply: "x"},
		{ID: "over", TotalSupply: "100", Retired: "500", CurrentSupply: "900", Pricing: model.Pricing{CurrentPrice: "2"}},
	}
	huge := model.AnalyticsResult{Totals: model.AnalyticsTotals{
		TransferVolume:  decimal.RequireFromString("1e30"),
		RetiredInEvents: decimal.RequireFromString("1e30"),
		TransferCount:   1_000_000,
	}}
	for _, p := range projects {
		for _, r := range []model.AnalyticsResult{{}, huge} {
			m := DeriveMetrics(p, r)
			for _, v := range []float64{m.UtilizationRate, m.LiquidityScore, m.PriceStability, m.ActivityScore} {
				assertScore(t, v)
			}
		}
	}
	assert.Zero(t, DeriveMetrics(projects[0], model.AnalyticsResult{}).UtilizationRate)
	assert.Equal(t, 100.0, DeriveMetrics(projects[2], model.AnalyticsResult{}).UtilizationRate)
}

func TestPriceStability(t *testing.T) {
	flat := []model.PricePoint{
		{Date: "2026-01-01", Price: decimal.NewFromInt(2)},
		{Date: "2026-01-02", Price: decimal.NewFromInt(2)},
	}
	assert.Equal(t, 100.0, PriceStability(flat))
	assert.Zero(t, PriceStability(flat[:1]))

	wild := []model.PricePoint{
		{Price: decimal.NewFromFloat(0.01)},
		{Price: decimal.NewFromInt(100)},
	}
	assert.Zero(t, PriceStability(wild))
}

func TestAverageTradeSize(t *testing.T) {
	m := DeriveMetrics(sampleProject(), model.AnalyticsResult{Totals: model.AnalyticsTotals{
		TransferVolume: decimal.NewFromInt(100),
		TransferCount:  4,
	}})
	assert.True(t, m.AverageTradeSize.Equal(decimal.NewFromInt(25)))

	m = DeriveMetrics(sampleProject(), model.AnalyticsResult{})
	assert.True(t, m.AverageTradeSize.IsZero())
}
