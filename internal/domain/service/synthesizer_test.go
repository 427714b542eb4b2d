package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irecStatApp/internal/domain/model"
	"irecStatApp/pkg/seed"
)

var fixedNow = time.Date(2026, 3, 10, 14, 37, 12, 0, time.UTC)

func newTestSynthesizer() *Synthesizer {
	return NewSynthesizer(DefaultSynthesisConfig(), func() time.Time { return fixedNow })
}

func sampleProject() model.ProjectRecord {
	return model.ProjectRecord{
		ID:            "IREC-BR-0042",
		Name:          "Serra Azul Wind",
		TotalSupply:   "1000000",
		CurrentSupply: "600000",
		Retired:       "250000",
		Vintage:       "2023",
		Methodology:   "I-REC Standard",
		Registry:      "Evident",
		Country:       "br",
		Technology:    "wind",
		Pricing:       model.Pricing{CurrentPrice: "1.85", Currency: "USD"},
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	s := newTestSynthesizer()
	p := sampleProject()

	first, err := json.Marshal(s.Synthesize(p, SynthesisOptions{}))
	require.NoError(t, err)
	second, err := json.Marshal(newTestSynthesizer().Synthesize(p, SynthesisOptions{}))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestSynthesize_SumEqualsRetired(t *testing.T) {
	s := newTestSynthesizer()
	p := sampleProject()

	events := s.Synthesize(p, SynthesisOptions{})
	require.NotEmpty(t, events)
	assert.True(t, SumEvents(events).Equal(decimal.NewFromInt(250000)), "sum %s", SumEvents(events))
	assert.LessOrEqual(t, len(events), DefaultEventCount(p.ID, decimal.NewFromInt(250000)))

	ids := make(map[string]bool)
	for _, e := range events {
		assert.Equal(t, model.EventRetirement, e.Kind)
		assert.True(t, e.Quantity.IsPositive())
		assert.False(t, ids[e.ID], "duplicate id %s", e.ID)
		ids[e.ID] = true
		assert.True(t, strings.HasPrefix(e.ID, p.ID+"-ret-"))
		require.Len(t, e.Serials, 1)
		assert.True(t, strings.HasPrefix(e.Serials[0], "IREC-BR-2023-"))
		assert.True(t, e.UnitPrice.Equal(decimal.RequireFromString("1.85")))
	}
}

func TestSynthesize_TransfersCoverCirculatingSupply(t *testing.T) {
	s := newTestSynthesizer()
	events := s.Synthesize(sampleProject(), SynthesisOptions{Kind: model.EventTransfer, Count: 20})
	require.NotEmpty(t, events)
	assert.True(t, SumEvents(events).Equal(decimal.NewFromInt(400000)))
	for _, e := range events {
		assert.Equal(t, model.EventTransfer, e.Kind)
		assert.Empty(t, e.Serials)
		assert.NotEmpty(t, e.Beneficiary.Address)
	}
}

func TestSynthesize_DegenerateTotals(t *testing.T) {
	s := newTestSynthesizer()
	for _, retired := range []string{"0", "", "abc", "-5", "0.4"} {
		p := sampleProject()
		p.Retired = retired
		events := s.Synthesize(p, SynthesisOptions{})
		assert.NotNil(t, events, "retired %q", retired)
		assert.Empty(t, events, "retired %q", retired)
	}
}

func TestSynthesize_CountCappedToUnits(t *testing.T) {
	p := sampleProject()
	p.Retired = "3"
	events := newTestSynthesizer().Synthesize(p, SynthesisOptions{Count: 10})
	assert.LessOrEqual(t, len(events), 3)
	assert.True(t, SumEvents(events).Equal(decimal.NewFromInt(3)))
}

func TestSynthesize_NewestFirstWithinLookback(t *testing.T) {
	s := newTestSynthesizer()
	anchor := fixedNow.Truncate(time.Hour)
	events := s.Synthesize(sampleProject(), SynthesisOptions{Count: 40, LookbackDays: 30})

	for i, e := range events {
		assert.False(t, e.Timestamp.After(anchor))
		assert.True(t, e.Timestamp.After(anchor.AddDate(0, 0, -31)))
		if i > 0 {
			assert.False(t, e.Timestamp.After(events[i-1].Timestamp), "event %d newer than %d", i, i-1)
		}
	}
}

func TestSynthesize_AnchorOverride(t *testing.T) {
	s := newTestSynthesizer()
	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	events := s.Synthesize(sampleProject(), SynthesisOptions{Anchor: anchor, LookbackDays: 7})
	for _, e := range events {
		assert.False(t, e.Timestamp.After(anchor))
		assert.True(t, e.Timestamp.After(anchor.AddDate(0, 0, -8)))
	}
}

func TestSynthesize_EnumerationsFromFixedSets(t *testing.T) {
	events := newTestSynthesizer().Synthesize(sampleProject(), SynthesisOptions{Count: 80})
	methods := map[model.PaymentMethod]bool{}
	for _, m := range model.PaymentMethods() {
		methods[m] = true
	}
	for _, e := range events {
		assert.True(t, methods[e.PaymentMethod], "method %q", e.PaymentMethod)
		assert.Contains(t, []model.EventStatus{model.StatusConfirmed, model.StatusPending, model.StatusFailed}, e.Status)
		assert.Contains(t, []model.ParticipantCategory{model.CategoryIndividual, model.CategoryCorporation, model.CategoryInstitution}, e.Participant.Category)
		assert.Len(t, e.Participant.Address, 42)
		assert.Len(t, e.Fee.TxHash, 66)
		assert.GreaterOrEqual(t, e.Fee.GasUsed, uint64(45000))
		assert.LessOrEqual(t, e.Fee.GasUsed, uint64(180000))
		assert.NotEmpty(t, e.Reason)
	}
}

func TestDefaultEventCount_HighHashIDsStayInTier(t *testing.T) {
	high := 0
	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("IREC-%d", i)
		if seed.Hash(id) >= 1<<31 {
			high++
		}
		n := DefaultEventCount(id, decimal.NewFromInt(500))
		require.GreaterOrEqual(t, n, 5, "id %s", id)
		require.LessOrEqual(t, n, 10, "id %s", id)

		events := newTestSynthesizer().Synthesize(model.ProjectRecord{ID: id, Retired: "500"}, SynthesisOptions{})
		require.NotEmpty(t, events, "id %s", id)
		require.True(t, SumEvents(events).Equal(decimal.NewFromInt(500)), "id %s", id)
	}
	assert.Positive(t, high)
}

func TestDefaultEventCount_Tiers(t *testing.T) {
	cases := []struct {
		total    int64
		min, max int
	}{
		{500, 5, 10},
		{50_000, 15, 30},
		{500_000, 30, 50},
		{5_000_000, 50, 80},
	}
	for _, tc := range cases {
		n := DefaultEventCount("p-1", decimal.NewFromInt(tc.total))
		assert.GreaterOrEqual(t, n, tc.min, "total %d", tc.total)
		assert.LessOrEqual(t, n, tc.max, "total %d", tc.total)
	}
	assert.Zero(t, DefaultEventCount("p-1", decimal.Zero))
}

func TestSynthesizePriceHistory(t *testing.T) {
	s := newTestSynthesizer()
	p := sampleProject()

	points := s.SynthesizePriceHistory(p, 30, time.Time{})
	require.Len(t, points, 30)
	assert.Equal(t, "2026-03-10", points[29].Date)
	assert.Equal(t, "2026-02-09", points[0].Date)
	assert.True(t, points[29].Price.Equal(decimal.RequireFromString("1.85")))
	for _, pt := range points {
		assert.True(t, pt.Price.IsPositive())
	}
	assert.Equal(t, points, s.SynthesizePriceHistory(p, 30, time.Time{}))

	p.Pricing.CurrentPrice = ""
	assert.Nil(t, s.SynthesizePriceHistory(p, 30, time.Time{}))
}
