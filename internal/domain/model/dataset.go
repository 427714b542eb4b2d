package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DatasetKind names a cacheable dataset. Each kind has its own TTL and a
// fixed payload type.
type DatasetKind string

const (
	DatasetCertificates   DatasetKind = "certificates"
	DatasetSupply         DatasetKind = "supply"
	DatasetPaymentMethods DatasetKind = "payment-methods"
	DatasetTokenization   DatasetKind = "tokenization"
	DatasetRealTimeStats  DatasetKind = "real-time-stats"
	DatasetAnalytics      DatasetKind = "analytics"
)

// DatasetKinds returns every known dataset kind.
func DatasetKinds() []DatasetKind {
	return []DatasetKind{
		DatasetCertificates,
		DatasetSupply,
		DatasetPaymentMethods,
		DatasetTokenization,
		DatasetRealTimeStats,
		DatasetAnalytics,
	}
}

// Valid reports whether k is a known kind.
func (k DatasetKind) Valid() bool {
	for _, known := range DatasetKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Dataset is implemented by every cacheable payload.
type Dataset interface {
	DatasetKind() DatasetKind
}

// NewDataset returns a pointer to an empty payload of the given kind, for
// decoding.
func NewDataset(kind DatasetKind) (Dataset, error) {
	switch kind {
	case DatasetCertificates:
		return &CertificateList{}, nil
	case DatasetSupply:
		return &SupplyOverview{}, nil
	case DatasetPaymentMethods:
		return &PaymentMethodBreakdown{}, nil
	case DatasetTokenization:
		return &TokenizationMetrics{}, nil
	case DatasetRealTimeStats:
		return &RealTimeStats{}, nil
	case DatasetAnalytics:
		return &AnalyticsResult{}, nil
	default:
		return nil, fmt.Errorf("unknown dataset kind %q", kind)
	}
}

// CertificateList holds the retirement certificates of one project, newest
// first.
type CertificateList struct {
	ProjectID    string          `json:"projectId"`
	Certificates []ItemizedEvent `json:"certificates"`
	Total        decimal.Decimal `json:"total"`
	GeneratedAt  time.Time       `json:"generatedAt"`
}

func (*CertificateList) DatasetKind() DatasetKind { return DatasetCertificates }

// SupplyOverview rolls up the whole portfolio.
type SupplyOverview struct {
	Projects        int               `json:"projects"`
	TotalSupply     decimal.Decimal   `json:"totalSupply"`
	Retired         decimal.Decimal   `json:"retired"`
	Available       decimal.Decimal   `json:"available"`
	UtilizationRate float64           `json:"utilizationRate"`
	ByCountry       []AggregateBucket `json:"byCountry"`
	ByTechnology    []AggregateBucket `json:"byTechnology"`
	ByVintage       []AggregateBucket `json:"byVintage"`
	ByMethodology   []AggregateBucket `json:"byMethodology"`
	GeneratedAt     time.Time         `json:"generatedAt"`
}

func (*SupplyOverview) DatasetKind() DatasetKind { return DatasetSupply }

// PaymentMethodBreakdown is the payment mix of a project's retirements.
type PaymentMethodBreakdown struct {
	ProjectID   string            `json:"projectId"`
	Methods     []AggregateBucket `json:"methods"`
	Total       decimal.Decimal   `json:"total"`
	EventCount  int               `json:"eventCount"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

func (*PaymentMethodBreakdown) DatasetKind() DatasetKind { return DatasetPaymentMethods }

// TokenizationMetrics describes on-chain circulation of a project.
type TokenizationMetrics struct {
	ProjectID        string          `json:"projectId"`
	TokenizedSupply  decimal.Decimal `json:"tokenizedSupply"`
	TransferVolume   decimal.Decimal `json:"transferVolume"`
	TransferCount    int             `json:"transferCount"`
	EstimatedHolders uint64          `json:"estimatedHolders"`
	AverageTradeSize decimal.Decimal `json:"averageTradeSize"`
	MarketCap        decimal.Decimal `json:"marketCap"`
	LiquidityScore   float64         `json:"liquidityScore"`
	GeneratedAt      time.Time       `json:"generatedAt"`
}

func (*TokenizationMetrics) DatasetKind() DatasetKind { return DatasetTokenization }

// RealTimeStats compares the last 24 hours with the 24 hours before.
type RealTimeStats struct {
	ProjectID          string          `json:"projectId"`
	RetiredLast24h     decimal.Decimal `json:"retiredLast24h"`
	RetiredPrevious24h decimal.Decimal `json:"retiredPrevious24h"`
	Trend24h           float64         `json:"trend24h"`
	EventsLast24h      int             `json:"eventsLast24h"`
	EventsPerHour      float64         `json:"eventsPerHour"`
	LastEventAt        time.Time       `json:"lastEventAt"`
	GeneratedAt        time.Time       `json:"generatedAt"`
}

func (*RealTimeStats) DatasetKind() DatasetKind { return DatasetRealTimeStats }

// AnalyticsTotals are the headline figures of an AnalyticsResult.
type AnalyticsTotals struct {
	TotalSupply        decimal.Decimal `json:"totalSupply"`
	Retired            decimal.Decimal `json:"retired"`
	Available          decimal.Decimal `json:"available"`
	RetiredInEvents    decimal.Decimal `json:"retiredInEvents"`
	TransferVolume     decimal.Decimal `json:"transferVolume"`
	RetirementCount    int             `json:"retirementCount"`
	TransferCount      int             `json:"transferCount"`
	UniqueParticipants uint64          `json:"uniqueParticipants"`
}

// AnalyticsResult is the fully composed analytics of one project.
type AnalyticsResult struct {
	ProjectID             string               `json:"projectId"`
	GeneratedAt           time.Time            `json:"generatedAt"`
	Totals                AnalyticsTotals      `json:"totals"`
	Time                  TimeBreakdown        `json:"time"`
	PaymentMethods        []AggregateBucket    `json:"paymentMethods"`
	Statuses              []AggregateBucket    `json:"statuses"`
	ParticipantCategories []AggregateBucket    `json:"participantCategories"`
	TopRetirees           []AggregateBucket    `json:"topRetirees"`
	TopTraders            []AggregateBucket    `json:"topTraders"`
	Trends                Trends               `json:"trends"`
	Metrics               DerivedMetrics       `json:"metrics"`
	PriceHistory          []PricePoint         `json:"priceHistory"`
	Warnings              []DataQualityWarning `json:"warnings,omitempty"`
}

func (*AnalyticsResult) DatasetKind() DatasetKind { return DatasetAnalytics }

// CacheStats reports fresh entry counts per dataset kind.
type CacheStats struct {
	Backend string              `json:"backend"`
	Entries map[DatasetKind]int `json:"entries"`
	Total   int                 `json:"total"`
}
