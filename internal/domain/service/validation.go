package service

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"irecStatApp/internal/domain/model"
)

// DefaultTolerance is the allowed absolute gap between a reconstructed total
// and its source.
var DefaultTolerance = decimal.NewFromFloat(0.000001)

// ValidateProject flags degraded numeric fields and a retired amount larger
// than the total supply.
func ValidateProject(project model.ProjectRecord) []model.DataQualityWarning {
	var warnings []model.DataQualityWarning
	fields := []struct{ name, value string }{
		{"totalSupply", project.TotalSupply},
		{"currentSupply", project.CurrentSupply},
		{"retired", project.Retired},
		{"pricing.currentPrice", project.Pricing.CurrentPrice},
	}
	for _, f := range fields {
		if model.IsDegraded(f.value) {
			warnings = append(warnings, model.DataQualityWarning{
				Code:      model.WarnDegradedInput,
				ProjectID: project.ID,
				Message:   fmt.Sprintf("%s %q read as zero", f.name, f.value),
				Expected:  decimal.Zero,
				Actual:    decimal.Zero,
			})
		}
	}

	total, retired := project.TotalQuantity(), project.RetiredQuantity()
	if retired.GreaterThan(total) {
		warnings = append(warnings, model.DataQualityWarning{
			Code:      model.WarnRetiredExceedsAll,
			ProjectID: project.ID,
			Message:   "retired amount exceeds total supply",
			Expected:  total,
			Actual:    retired,
		})
	}
	return warnings
}

// ValidateTotals compares the sum of events against the expected source
// total and reports a mismatch beyond tolerance.
func ValidateTotals(projectID string, kind model.EventKind, events []model.ItemizedEvent, expected, tolerance decimal.Decimal) []model.DataQualityWarning {
	actual := SumEvents(events)
	if actual.Sub(expected).Abs().LessThanOrEqual(tolerance) {
		return nil
	}
	return []model.DataQualityWarning{{
		Code:      model.WarnTotalMismatch,
		ProjectID: projectID,
		Message:   fmt.Sprintf("%s events sum to %s, expected %s", kind, actual, expected),
		Expected:  expected,
		Actual:    actual,
	}}
}

// ValidateBreakdown checks that a non-empty breakdown covering the whole
// event set sums to 100 percent within tolerance.
func ValidateBreakdown(projectID, dimension string, buckets []model.AggregateBucket, tolerance float64) []model.DataQualityWarning {
	if len(buckets) == 0 {
		return nil
	}
	quantity := decimal.Zero
	for _, b := range buckets {
		quantity = quantity.Add(b.Quantity)
	}
	if !quantity.IsPositive() {
		return nil
	}
	sum := PercentageSum(buckets)
	if math.Abs(sum-100) <= tolerance {
		return nil
	}
	return []model.DataQualityWarning{{
		Code:      model.WarnPercentageDrift,
		ProjectID: projectID,
		Message:   fmt.Sprintf("%s percentages sum to %.4f", dimension, sum),
		Expected:  decimal.NewFromInt(100),
		Actual:    decimal.NewFromFloat(sum),
	}}
}
