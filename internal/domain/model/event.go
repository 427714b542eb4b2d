package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind distinguishes retirements from on-chain transfers.
type EventKind string

const (
	EventRetirement EventKind = "retirement"
	EventTransfer   EventKind = "transfer"
)

// ParticipantCategory classifies who is behind an address.
type ParticipantCategory string

const (
	CategoryIndividual  ParticipantCategory = "individual"
	CategoryCorporation ParticipantCategory = "corporation"
	CategoryInstitution ParticipantCategory = "institution"
)

// PaymentMethod tags how an event was paid for.
type PaymentMethod string

const (
	PaymentCard         PaymentMethod = "card"
	PaymentCrypto       PaymentMethod = "crypto"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentOther        PaymentMethod = "other"
)

// PaymentMethods lists the fixed payment enumeration in display order.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentCard, PaymentCrypto, PaymentBankTransfer, PaymentOther}
}

// EventStatus is the settlement state of an event.
type EventStatus string

const (
	StatusConfirmed EventStatus = "confirmed"
	StatusPending   EventStatus = "pending"
	StatusFailed    EventStatus = "failed"
)

// Participant describes one side of an event.
type Participant struct {
	Address  string              `json:"address"`
	Name     string              `json:"name"`
	Category ParticipantCategory `json:"category"`
}

// FeeInfo carries the on-chain settlement fields of an event.
type FeeInfo struct {
	TxHash      string          `json:"txHash"`
	BlockNumber uint64          `json:"blockNumber"`
	GasUsed     uint64          `json:"gasUsed"`
	GasPrice    decimal.Decimal `json:"gasPriceGwei"`
	Fee         decimal.Decimal `json:"fee"`
}

// ItemizedEvent is a single synthesized retirement or transfer. Its ID is
// derived from the project id and index, so re-synthesis yields the same IDs.
// Events are never mutated after creation.
type ItemizedEvent struct {
	ID            string          `json:"id"`
	Kind          EventKind       `json:"kind"`
	ProjectID     string          `json:"projectId"`
	Index         int             `json:"index"`
	Quantity      decimal.Decimal `json:"quantity"`
	CO2e          decimal.Decimal `json:"co2e"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Participant   Participant     `json:"participant"`
	Beneficiary   Participant     `json:"beneficiary"`
	Timestamp     time.Time       `json:"timestamp"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Status        EventStatus     `json:"status"`
	Reason        string          `json:"reason"`
	Serials       []string        `json:"serials,omitempty"`
	Fee           FeeInfo         `json:"fee"`

	// Denormalised project attributes so mixed-project event sets can be
	// grouped by category.
	Country     string `json:"country"`
	Technology  string `json:"technology"`
	Methodology string `json:"methodology"`
	Vintage     string `json:"vintage"`
}

// Value is quantity times unit price.
func (e ItemizedEvent) Value() decimal.Decimal {
	return e.Quantity.Mul(e.UnitPrice)
}
