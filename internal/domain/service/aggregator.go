package service

import (
	"sort"
	"time"

	"github.com/axiomhq/hyperloglog"
	"github.com/shopspring/decimal"

	"irecStatApp/internal/domain/model"
)

// KeyFunc extracts a grouping key from an event.
type KeyFunc func(model.ItemizedEvent) string

// Stock key functions.
var (
	ByPaymentMethod       KeyFunc = func(e model.ItemizedEvent) string { return string(e.PaymentMethod) }
	ByStatus              KeyFunc = func(e model.ItemizedEvent) string { return string(e.Status) }
	ByParticipantCategory KeyFunc = func(e model.ItemizedEvent) string { return string(e.Participant.Category) }
	ByParticipant         KeyFunc = func(e model.ItemizedEvent) string { return e.Participant.Address }
	ByProject             KeyFunc = func(e model.ItemizedEvent) string { return e.ProjectID }
	ByCountry             KeyFunc = func(e model.ItemizedEvent) string { return unknownIfEmpty(e.Country) }
	ByTechnology          KeyFunc = func(e model.ItemizedEvent) string { return unknownIfEmpty(e.Technology) }
	ByVintage             KeyFunc = func(e model.ItemizedEvent) string { return unknownIfEmpty(e.Vintage) }
	ByMethodology         KeyFunc = func(e model.ItemizedEvent) string { return unknownIfEmpty(e.Methodology) }
)

// ByDay, ByMonth and ByYear bucket events by their UTC calendar period.
var (
	ByDay   KeyFunc = func(e model.ItemizedEvent) string { return e.Timestamp.UTC().Format("2006-01-02") }
	ByMonth KeyFunc = func(e model.ItemizedEvent) string { return e.Timestamp.UTC().Format("2006-01") }
	ByYear  KeyFunc = func(e model.ItemizedEvent) string { return e.Timestamp.UTC().Format("2006") }
)

func eventQuantity(e model.ItemizedEvent) decimal.Decimal { return e.Quantity }

// GroupBy groups items by key and accumulates quantity and count. Buckets are
// returned in first-seen order, each with its share of the grand total as a
// percentage. A zero grand total leaves every percentage at zero.
func GroupBy[T any](items []T, key func(T) string, qty func(T) decimal.Decimal) []model.AggregateBucket {
	index := make(map[string]int)
	buckets := make([]model.AggregateBucket, 0)
	total := decimal.Zero

	for _, item := range items {
		k := key(item)
		q := qty(item)
		total = total.Add(q)
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, model.AggregateBucket{Key: k, Quantity: decimal.Zero})
		}
		buckets[i].Quantity = buckets[i].Quantity.Add(q)
		buckets[i].Count++
	}

	applyPercentages(buckets, total)
	return buckets
}

func applyPercentages(buckets []model.AggregateBucket, total decimal.Decimal) {
	if !total.IsPositive() {
		return
	}
	hundred := decimal.NewFromInt(100)
	for i := range buckets {
		buckets[i].Percentage = buckets[i].Quantity.Mul(hundred).DivRound(total, 8).InexactFloat64()
	}
}

// AggregateByDimension groups events by keyFn.
func AggregateByDimension(events []model.ItemizedEvent, keyFn KeyFunc) map[string]model.AggregateBucket {
	buckets := GroupBy(events, keyFn, eventQuantity)
	out := make(map[string]model.AggregateBucket, len(buckets))
	for _, b := range buckets {
		out[b.Key] = b
	}
	return out
}

// Breakdown groups events by keyFn and orders the buckets by quantity,
// largest first, then by key. The order does not depend on input order.
func Breakdown(events []model.ItemizedEvent, keyFn KeyFunc) []model.AggregateBucket {
	buckets := GroupBy(events, keyFn, eventQuantity)
	sortByQuantity(buckets)
	return buckets
}

func sortByQuantity(buckets []model.AggregateBucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		if c := buckets[i].Quantity.Cmp(buckets[j].Quantity); c != 0 {
			return c > 0
		}
		return buckets[i].Key < buckets[j].Key
	})
}

// TopN returns the n largest buckets by quantity. Ties keep first-seen order.
func TopN(events []model.ItemizedEvent, keyFn KeyFunc, n int) []model.AggregateBucket {
	if n <= 0 {
		return []model.AggregateBucket{}
	}
	buckets := GroupBy(events, keyFn, eventQuantity)
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Quantity.GreaterThan(buckets[j].Quantity)
	})
	if len(buckets) > n {
		buckets = buckets[:n]
	}
	return buckets
}

// AggregateByTime groups events by UTC day, month and year. Each series is
// ordered most recent first.
func AggregateByTime(events []model.ItemizedEvent) model.TimeBreakdown {
	return model.TimeBreakdown{
		Daily:   byRecency(GroupBy(events, ByDay, eventQuantity)),
		Monthly: byRecency(GroupBy(events, ByMonth, eventQuantity)),
		Yearly:  byRecency(GroupBy(events, ByYear, eventQuantity)),
	}
}

// byRecency sorts period keys descending; ISO period strings sort
// lexicographically.
func byRecency(buckets []model.AggregateBucket) []model.AggregateBucket {
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Key > buckets[j].Key })
	return buckets
}

// Trend is the percentage change from previous to recent. A zero previous
// value yields 0 rather than an infinite or undefined change.
func Trend(recent, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (recent - previous) / previous * 100
}

// TrendDecimal is Trend over decimal quantities.
func TrendDecimal(recent, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		return 0
	}
	return recent.Sub(previous).Mul(decimal.NewFromInt(100)).DivRound(previous, 8).InexactFloat64()
}

// WindowSum is the quantity and count of events within a half-open window.
type WindowSum struct {
	Quantity decimal.Decimal
	Count    int
}

// SumWindow totals events with from < timestamp <= to.
func SumWindow(events []model.ItemizedEvent, from, to time.Time) WindowSum {
	sum := WindowSum{Quantity: decimal.Zero}
	for _, e := range events {
		if e.Timestamp.After(from) && !e.Timestamp.After(to) {
			sum.Quantity = sum.Quantity.Add(e.Quantity)
			sum.Count++
		}
	}
	return sum
}

// WindowComparison compares the window ending at now with the window before
// it.
type WindowComparison struct {
	Recent   WindowSum
	Previous WindowSum
	Trend    float64
}

// CompareWindows compares (now-window, now] with (now-2*window, now-window].
func CompareWindows(events []model.ItemizedEvent, now time.Time, window time.Duration) WindowComparison {
	recent := SumWindow(events, now.Add(-window), now)
	previous := SumWindow(events, now.Add(-2*window), now.Add(-window))
	return WindowComparison{
		Recent:   recent,
		Previous: previous,
		Trend:    TrendDecimal(recent.Quantity, previous.Quantity),
	}
}

// UniqueParticipants estimates the number of distinct addresses taking part
// in events, counting both sides of transfers.
func UniqueParticipants(events []model.ItemizedEvent) uint64 {
	if len(events) == 0 {
		return 0
	}
	sketch := hyperloglog.New16()
	for _, e := range events {
		sketch.Insert([]byte(e.Participant.Address))
		if e.Kind == model.EventTransfer && e.Beneficiary.Address != "" {
			sketch.Insert([]byte(e.Beneficiary.Address))
		}
	}
	return sketch.Estimate()
}

// SumEvents totals event quantities.
func SumEvents(events []model.ItemizedEvent) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range events {
		sum = sum.Add(e.Quantity)
	}
	return sum
}

// FilterEvents returns the events for which keep is true.
func FilterEvents(events []model.ItemizedEvent, keep func(model.ItemizedEvent) bool) []model.ItemizedEvent {
	out := make([]model.ItemizedEvent, 0, len(events))
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// LatestTimestamp returns the newest event time, or the zero time.
func LatestTimestamp(events []model.ItemizedEvent) time.Time {
	var latest time.Time
	for _, e := range events {
		if e.Timestamp.After(latest) {
			latest = e.Timestamp
		}
	}
	return latest
}

// PercentageSum adds up bucket percentages.
func PercentageSum(buckets []model.AggregateBucket) float64 {
	var sum float64
	for _, b := range buckets {
		sum += b.Percentage
	}
	return sum
}

func unknownIfEmpty(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
