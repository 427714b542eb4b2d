package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Pricing holds the market price of one unit of a project's certificates.
type Pricing struct {
	CurrentPrice string `json:"currentPrice"`
	Currency     string `json:"currency,omitempty"`
}

// ProjectRecord is a coarse certificate project as delivered by the fetch
// layer. Quantities stay string-encoded so large supplies never pass through
// float64; use the accessor methods to read them.
type ProjectRecord struct {
	ID            string  `json:"id"`
	Name          string  `json:"name,omitempty"`
	TotalSupply   string  `json:"totalSupply"`
	CurrentSupply string  `json:"currentSupply"`
	Retired       string  `json:"retired"`
	Vintage       string  `json:"vintage"`
	Methodology   string  `json:"methodology"`
	Registry      string  `json:"registry"`
	Country       string  `json:"country"`
	Technology    string  `json:"technology,omitempty"`
	Pricing       Pricing `json:"pricing"`
}

// TotalQuantity returns the parsed total supply.
func (p ProjectRecord) TotalQuantity() decimal.Decimal {
	return ParseQuantity(p.TotalSupply)
}

// RetiredQuantity returns the parsed retired amount.
func (p ProjectRecord) RetiredQuantity() decimal.Decimal {
	return ParseQuantity(p.Retired)
}

// AvailableQuantity returns the parsed currently available amount.
func (p ProjectRecord) AvailableQuantity() decimal.Decimal {
	return ParseQuantity(p.CurrentSupply)
}

// CirculatingQuantity is the supply that has left the issuer: total minus
// available, floored at zero.
func (p ProjectRecord) CirculatingQuantity() decimal.Decimal {
	c := p.TotalQuantity().Sub(p.AvailableQuantity())
	if c.IsNegative() {
		return decimal.Zero
	}
	return c
}

// UnitPrice returns the parsed current price.
func (p ProjectRecord) UnitPrice() decimal.Decimal {
	return ParseQuantity(p.Pricing.CurrentPrice)
}

// VintageLabel returns the vintage or "unknown".
func (p ProjectRecord) VintageLabel() string {
	return labelOrUnknown(p.Vintage)
}

// ParseQuantity parses a string-encoded decimal. Empty, unparsable and
// negative input all read as zero.
func ParseQuantity(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParseUnits parses a quantity and floors it to whole units.
func ParseUnits(s string) decimal.Decimal {
	return ParseQuantity(s).Floor()
}

// IsDegraded reports whether s is present but could not be read as a
// non-negative decimal.
func IsDegraded(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	d, err := decimal.NewFromString(s)
	return err != nil || d.IsNegative()
}

func labelOrUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
