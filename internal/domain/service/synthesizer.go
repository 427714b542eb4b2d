package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"irecStatApp/internal/domain/model"
	"irecStatApp/pkg/seed"
)

// PaymentWeight is one entry of the weighted payment-method enumeration.
type PaymentWeight struct {
	Method model.PaymentMethod
	Weight float64
}

// StatusWeight is one entry of the weighted status enumeration.
type StatusWeight struct {
	Status model.EventStatus
	Weight float64
}

// SynthesisConfig holds the tunable realism constants of the synthesizer.
type SynthesisConfig struct {
	LookbackDays int
	// IndividualShare is the fraction of participants that are individuals.
	IndividualShare float64
	// CorporateShare is the fraction of non-individuals that are corporations;
	// the rest are institutions.
	CorporateShare  float64
	PaymentWeights  []PaymentWeight
	StatusWeights   []StatusWeight
	PriceVolatility float64
}

// DefaultSynthesisConfig returns the dashboard's stock constants.
func DefaultSynthesisConfig() SynthesisConfig {
	return SynthesisConfig{
		LookbackDays:    365,
		IndividualShare: 0.7,
		CorporateShare:  0.66,
		PaymentWeights: []PaymentWeight{
			{Method: model.PaymentCard, Weight: 45},
			{Method: model.PaymentCrypto, Weight: 30},
			{Method: model.PaymentBankTransfer, Weight: 20},
			{Method: model.PaymentOther, Weight: 5},
		},
		StatusWeights: []StatusWeight{
			{Status: model.StatusConfirmed, Weight: 92},
			{Status: model.StatusPending, Weight: 6},
			{Status: model.StatusFailed, Weight: 2},
		},
		PriceVolatility: 0.06,
	}
}

func (c SynthesisConfig) normalized() SynthesisConfig {
	def := DefaultSynthesisConfig()
	if c.LookbackDays <= 0 {
		c.LookbackDays = def.LookbackDays
	}
	c.IndividualShare = clampUnit(c.IndividualShare)
	c.CorporateShare = clampUnit(c.CorporateShare)
	if len(c.PaymentWeights) == 0 {
		c.PaymentWeights = def.PaymentWeights
	}
	if len(c.StatusWeights) == 0 {
		c.StatusWeights = def.StatusWeights
	}
	if c.PriceVolatility <= 0 {
		c.PriceVolatility = def.PriceVolatility
	}
	return c
}

// SynthesisOptions tune a single Synthesize call. Zero values select the
// defaults.
type SynthesisOptions struct {
	Kind         model.EventKind
	Count        int
	LookbackDays int
	// Total overrides the source quantity taken from the project.
	Total *decimal.Decimal
	// Anchor overrides the reference time that timestamps count back from.
	Anchor time.Time
}

// Synthesizer produces itemized events from coarse project records. It holds
// no mutable state and is safe for concurrent use.
type Synthesizer struct {
	cfg SynthesisConfig
	now func() time.Time
}

// NewSynthesizer creates a Synthesizer. now may be nil, in which case
// time.Now is used.
func NewSynthesizer(cfg SynthesisConfig, now func() time.Time) *Synthesizer {
	if now == nil {
		now = time.Now
	}
	return &Synthesizer{cfg: cfg.normalized(), now: now}
}

// Config returns the effective configuration.
func (s *Synthesizer) Config() SynthesisConfig {
	return s.cfg
}

// Anchor returns the reference time used when SynthesisOptions.Anchor is
// zero: the current hour, so repeated calls within an hour agree.
func (s *Synthesizer) Anchor() time.Time {
	return s.now().UTC().Truncate(time.Hour)
}

// Synthesize returns the itemized events of project, newest first.
//
// Quantities come from Distribute seeded by the project id, so their sum
// equals the source total (retired amount for retirements, circulating
// supply for transfers) exactly. Every other attribute of item i is drawn
// from a stream seeded by Hash(project.ID + i). Zero-quantity shares are
// dropped; IDs keep their index so they stay stable.
//
// An unparsable, negative or zero source total yields an empty slice.
func (s *Synthesizer) Synthesize(project model.ProjectRecord, opts SynthesisOptions) []model.ItemizedEvent {
	kind := opts.Kind
	if kind == "" {
		kind = model.EventRetirement
	}

	total := s.sourceTotal(project, kind, opts.Total)
	if !total.IsPositive() {
		return []model.ItemizedEvent{}
	}

	count := opts.Count
	if count <= 0 {
		count = DefaultEventCount(project.ID, total)
	}
	if units := total.IntPart(); total.LessThan(decimal.NewFromInt(int64(count))) {
		count = int(units)
	}

	lookback := opts.LookbackDays
	if lookback <= 0 {
		lookback = s.cfg.LookbackDays
	}
	anchor := opts.Anchor
	if anchor.IsZero() {
		anchor = s.Anchor()
	}
	anchor = anchor.UTC()

	salt := kindSalt(kind)
	shares := Distribute(total, count, int64(seed.Hash(project.ID+salt)))
	price := project.UnitPrice()

	events := make([]model.ItemizedEvent, 0, len(shares))
	serialCursor := decimal.Zero
	for i, qty := range shares {
		if !qty.IsPositive() {
			continue
		}
		stream := seed.NewStream(int64(seed.HashParts(project.ID, salt, strconv.Itoa(i))))
		ev := s.buildEvent(project, kind, i, qty, price, stream, anchor, lookback)
		if kind == model.EventRetirement {
			ev.Serials = []string{serialRange(project, serialCursor.Add(decimal.NewFromInt(1)), serialCursor.Add(qty))}
		}
		serialCursor = serialCursor.Add(qty)
		events = append(events, ev)
	}

	sort.SliceStable(events, func(a, b int) bool {
		if !events[a].Timestamp.Equal(events[b].Timestamp) {
			return events[a].Timestamp.After(events[b].Timestamp)
		}
		return events[a].Index < events[b].Index
	})
	return events
}

func (s *Synthesizer) sourceTotal(project model.ProjectRecord, kind model.EventKind, override *decimal.Decimal) decimal.Decimal {
	var total decimal.Decimal
	switch {
	case override != nil:
		total = *override
	case kind == model.EventTransfer:
		total = project.CirculatingQuantity()
	default:
		total = project.RetiredQuantity()
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total.Floor()
}

func (s *Synthesizer) buildEvent(
	project model.ProjectRecord,
	kind model.EventKind,
	index int,
	qty, price decimal.Decimal,
	stream *seed.Stream,
	anchor time.Time,
	lookbackDays int,
) model.ItemizedEvent {
	category := s.pickCategory(stream.Float())

	window := time.Duration(lookbackDays) * 24 * time.Hour
	offset := time.Duration(stream.Float() * float64(window))
	ts := anchor.Add(-offset).Truncate(time.Second)

	method := s.pickPayment(stream.Float())
	status := s.pickStatus(stream.Float())

	participant := model.Participant{
		Address:  "0x" + stream.Hex(20),
		Name:     pick(participantNames[category], stream),
		Category: category,
	}

	var beneficiary model.Participant
	var reason string
	if kind == model.EventTransfer {
		counterCategory := s.pickCategory(stream.Float())
		beneficiary = model.Participant{
			Address:  "0x" + stream.Hex(20),
			Name:     pick(participantNames[counterCategory], stream),
			Category: counterCategory,
		}
		reason = pick(transferPurposes, stream)
	} else {
		beneficiary = model.Participant{
			Address:  participant.Address,
			Name:     pick(beneficiaryNames[category], stream),
			Category: category,
		}
		reason = pick(retirementReasons[category], stream)
	}

	gasUsed := uint64(stream.Range(45000, 180000))
	gasPrice := decimal.NewFromFloat(5 + stream.Float()*60).Round(2)
	fee := decimal.NewFromInt(int64(gasUsed)).Mul(gasPrice).Shift(-9)

	return model.ItemizedEvent{
		ID:            fmt.Sprintf("%s-%s-%04d", project.ID, kindPrefix(kind), index),
		Kind:          kind,
		ProjectID:     project.ID,
		Index:         index,
		Quantity:      qty,
		CO2e:          qty,
		UnitPrice:     price,
		Participant:   participant,
		Beneficiary:   beneficiary,
		Timestamp:     ts,
		PaymentMethod: method,
		Status:        status,
		Reason:        reason,
		Fee: model.FeeInfo{
			TxHash:      "0x" + stream.Hex(32),
			BlockNumber: blockAt(ts),
			GasUsed:     gasUsed,
			GasPrice:    gasPrice,
			Fee:         fee,
		},
		Country:     project.Country,
		Technology:  project.Technology,
		Methodology: project.Methodology,
		Vintage:     project.Vintage,
	}
}

func (s *Synthesizer) pickCategory(f float64) model.ParticipantCategory {
	if f < s.cfg.IndividualShare {
		return model.CategoryIndividual
	}
	rest := 1 - s.cfg.IndividualShare
	if rest <= 0 || (f-s.cfg.IndividualShare)/rest < s.cfg.CorporateShare {
		return model.CategoryCorporation
	}
	return model.CategoryInstitution
}

func (s *Synthesizer) pickPayment(f float64) model.PaymentMethod {
	weights := make([]float64, len(s.cfg.PaymentWeights))
	for i, w := range s.cfg.PaymentWeights {
		weights[i] = w.Weight
	}
	return s.cfg.PaymentWeights[seed.PickWeighted(f, weights)].Method
}

func (s *Synthesizer) pickStatus(f float64) model.EventStatus {
	weights := make([]float64, len(s.cfg.StatusWeights))
	for i, w := range s.cfg.StatusWeights {
		weights[i] = w.Weight
	}
	return s.cfg.StatusWeights[seed.PickWeighted(f, weights)].Status
}

// DefaultEventCount sizes a synthesized batch from the source total. Larger
// projects get more records; a jitter from the project hash keeps projects
// of the same tier from all having the same count.
func DefaultEventCount(projectID string, total decimal.Decimal) int {
	if !total.IsPositive() {
		return 0
	}
	// Reduce in uint32 so the jitter stays non-negative where int is 32 bits.
	h := seed.Hash(projectID)
	jitter := func(span uint32) int { return int(h % span) }
	switch {
	case total.LessThan(decimal.NewFromInt(1_000)):
		return 5 + jitter(6)
	case total.LessThan(decimal.NewFromInt(100_000)):
		return 15 + jitter(16)
	case total.LessThan(decimal.NewFromInt(1_000_000)):
		return 30 + jitter(21)
	default:
		return 50 + jitter(31)
	}
}

// SynthesizePriceHistory returns days daily prices ending at anchor's date,
// oldest first. The last point is the project's current price; earlier
// points walk backwards with mean reversion towards it. A project without a
// price yields nil.
func (s *Synthesizer) SynthesizePriceHistory(project model.ProjectRecord, days int, anchor time.Time) []model.PricePoint {
	base, _ := project.UnitPrice().Float64()
	if base <= 0 || days <= 0 {
		return nil
	}
	if anchor.IsZero() {
		anchor = s.Anchor()
	}
	day := anchor.UTC().Truncate(24 * time.Hour)

	stream := seed.NewStreamFromKey(project.ID + ":price")
	prices := make([]float64, days)
	prices[days-1] = base
	for i := days - 2; i >= 0; i-- {
		prev := prices[i+1]
		p := prev*(1+(stream.Float()-0.5)*s.cfg.PriceVolatility) + (base-prev)*0.1
		prices[i] = math.Max(p, base*0.01)
	}

	points := make([]model.PricePoint, days)
	for i, p := range prices {
		points[i] = model.PricePoint{
			Date:  day.AddDate(0, 0, i-(days-1)).Format("2006-01-02"),
			Price: decimal.NewFromFloat(p).Round(4),
		}
	}
	points[days-1].Price = project.UnitPrice()
	return points
}

func kindSalt(kind model.EventKind) string {
	if kind == model.EventTransfer {
		return ":transfer"
	}
	return ""
}

func kindPrefix(kind model.EventKind) string {
	if kind == model.EventTransfer {
		return "tx"
	}
	return "ret"
}

func serialRange(project model.ProjectRecord, start, end decimal.Decimal) string {
	country := strings.ToUpper(strings.TrimSpace(project.Country))
	if country == "" {
		country = "XX"
	}
	return fmt.Sprintf("IREC-%s-%s-%s-%s", country, project.VintageLabel(), start.String(), end.String())
}

// blockAt maps a timestamp onto a plausible block height (12s blocks).
func blockAt(ts time.Time) uint64 {
	const genesis = 1_600_000_000
	secs := ts.Unix() - genesis
	if secs < 0 {
		return 0
	}
	return uint64(secs / 12)
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
