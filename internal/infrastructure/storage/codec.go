// Package storage persists analytics snapshots and itemized events.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"irecStatApp/internal/domain/model"
)

// eventRow is the flattened form of an itemized event shared by the SQL
// backends. Payload carries the full event as JSON.
type eventRow struct {
	ID            string
	ProjectID     string
	Kind          string
	Quantity      string
	PaymentMethod string
	Status        string
	Participant   string
	Timestamp     time.Time
	Payload       string
}

func toEventRow(e model.ItemizedEvent) (eventRow, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return eventRow{}, fmt.Errorf("failed to marshal event %s: %w", e.ID, err)
	}
	return eventRow{
		ID:            e.ID,
		ProjectID:     e.ProjectID,
		Kind:          string(e.Kind),
		Quantity:      e.Quantity.String(),
		PaymentMethod: string(e.PaymentMethod),
		Status:        string(e.Status),
		Participant:   e.Participant.Address,
		Timestamp:     e.Timestamp.UTC(),
		Payload:       string(payload),
	}, nil
}

func decodeEvent(payload string) (model.ItemizedEvent, error) {
	var e model.ItemizedEvent
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return e, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return e, nil
}

func encodeSnapshot(r *model.AnalyticsResult) (string, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot %s: %w", r.ProjectID, err)
	}
	return string(payload), nil
}

func decodeSnapshot(payload string) (*model.AnalyticsResult, error) {
	var r model.AnalyticsResult
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &r, nil
}
