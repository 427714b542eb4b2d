package dto

import (
	"strings"
	"time"

	"irecStatApp/internal/domain/model"
)

// ProjectDTO is a project update as it travels over the ingestion channel.
// Quantities stay string-encoded, exactly as the registry delivers them.
type ProjectDTO struct {
	UpdateID      string    `json:"updateId,omitempty"`
	ID            string    `json:"id"`
	Name          string    `json:"name,omitempty"`
	TotalSupply   string    `json:"totalSupply"`
	CurrentSupply string    `json:"currentSupply"`
	Retired       string    `json:"retired"`
	Vintage       string    `json:"vintage"`
	Methodology   string    `json:"methodology"`
	Registry      string    `json:"registry"`
	Country       string    `json:"country"`
	Technology    string    `json:"technology,omitempty"`
	CurrentPrice  string    `json:"currentPrice"`
	Currency      string    `json:"currency,omitempty"`
	ObservedAt    time.Time `json:"observedAt"`
}

// Key identifies an update for deduplication: the UpdateID, else the project
// id with its observation time. An update carrying neither has no key and is
// never treated as a redelivery.
func (d *ProjectDTO) Key() string {
	if d.UpdateID != "" {
		return d.UpdateID
	}
	if d.ObservedAt.IsZero() {
		return ""
	}
	return d.ID + "@" + d.ObservedAt.UTC().Format(time.RFC3339Nano)
}

// ToModel converts a ProjectDTO to a domain model.
func (d *ProjectDTO) ToModel() model.ProjectRecord {
	return model.ProjectRecord{
		ID:            strings.TrimSpace(d.ID),
		Name:          d.Name,
		TotalSupply:   d.TotalSupply,
		CurrentSupply: d.CurrentSupply,
		Retired:       d.Retired,
		Vintage:       d.Vintage,
		Methodology:   d.Methodology,
		Registry:      d.Registry,
		Country:       d.Country,
		Technology:    d.Technology,
		Pricing: model.Pricing{
			CurrentPrice: d.CurrentPrice,
			Currency:     d.Currency,
		},
	}
}

// FromModel creates a ProjectDTO from a domain model.
func FromModel(p model.ProjectRecord, observedAt time.Time) *ProjectDTO {
	return &ProjectDTO{
		ID:            p.ID,
		Name:          p.Name,
		TotalSupply:   p.TotalSupply,
		CurrentSupply: p.CurrentSupply,
		Retired:       p.Retired,
		Vintage:       p.Vintage,
		Methodology:   p.Methodology,
		Registry:      p.Registry,
		Country:       p.Country,
		Technology:    p.Technology,
		CurrentPrice:  p.Pricing.CurrentPrice,
		Currency:      p.Pricing.Currency,
		ObservedAt:    observedAt,
	}
}

func FromModels(projects []model.ProjectRecord, observedAt time.Time) []*ProjectDTO {
	dtos := make([]*ProjectDTO, len(projects))
	for i, p := range projects {
		dtos[i] = FromModel(p, observedAt)
	}
	return dtos
}
