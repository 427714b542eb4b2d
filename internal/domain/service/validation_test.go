package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irecStatApp/internal/domain/model"
)

func TestValidateProject(t *testing.T) {
	assert.Empty(t, ValidateProject(sampleProject()))

	p := sampleProject()
	p.Retired = "lots"
	warnings := ValidateProject(p)
	require.Len(t, warnings, 1)
	assert.Equal(t, model.WarnDegradedInput, warnings[0].Code)

	p = sampleProject()
	p.Retired = "2000000"
	warnings = ValidateProject(p)
	require.Len(t, warnings, 1)
	assert.Equal(t, model.WarnRetiredExceedsAll, warnings[0].Code)
}

func TestValidateTotals(t *testing.T) {
	events := newTestSynthesizer().Synthesize(sampleProject(), SynthesisOptions{})
	assert.Empty(t, ValidateTotals("p", model.EventRetirement, events, decimal.NewFromInt(250000), DefaultTolerance))

	warnings := ValidateTotals("p", model.EventRetirement, events, decimal.NewFromInt(250001), DefaultTolerance)
	require.Len(t, warnings, 1)
	assert.Equal(t, model.WarnTotalMismatch, warnings[0].Code)
	assert.True(t, warnings[0].Actual.Equal(decimal.NewFromInt(250000)))
}

func TestValidateBreakdown(t *testing.T) {
	good := []model.AggregateBucket{
		{Key: "a", Quantity: decimal.NewFromInt(1), Percentage: 33.3333},
		{Key: "b", Quantity: decimal.NewFromInt(2), Percentage: 66.6667},
	}
	assert.Empty(t, ValidateBreakdown("p", "paymentMethod", good, 0.1))

	bad := []model.AggregateBucket{{Key: "a", Quantity: decimal.NewFromInt(1), Percentage: 90}}
	warnings := ValidateBreakdown("p", "paymentMethod", bad, 0.1)
	require.Len(t, warnings, 1)
	assert.Equal(t, model.WarnPercentageDrift, warnings[0].Code)

	assert.Empty(t, ValidateBreakdown("p", "x", nil, 0.1))
}
