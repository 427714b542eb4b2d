// Package cache holds AnalyticsCache implementations backed by process
// memory and by Redis.
package cache

import (
	"errors"
	"fmt"
	"time"

	"irecStatApp/internal/domain/model"
)

var (
	// ErrCacheUnavailable wraps backend failures. Callers treat it as a miss.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrUnknownKind is returned for a dataset kind without a TTL.
	ErrUnknownKind = errors.New("unknown dataset kind")
)

// TTLs maps each dataset kind to its time-to-live.
type TTLs map[model.DatasetKind]time.Duration

// DefaultTTLs are short for fast-moving data and long for expensive rollups.
func DefaultTTLs() TTLs {
	return TTLs{
		model.DatasetCertificates:   5 * time.Minute,
		model.DatasetSupply:         10 * time.Minute,
		model.DatasetPaymentMethods: 10 * time.Minute,
		model.DatasetTokenization:   15 * time.Minute,
		model.DatasetRealTimeStats:  30 * time.Second,
		model.DatasetAnalytics:      15 * time.Minute,
	}
}

// For returns the TTL of kind.
func (t TTLs) For(kind model.DatasetKind) (time.Duration, error) {
	ttl, ok := t[kind]
	if !ok || ttl <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return ttl, nil
}

// withDefaults fills kinds missing from t with the default TTL.
func (t TTLs) withDefaults() TTLs {
	out := DefaultTTLs()
	for k, v := range t {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

func kindsOrAll(kinds []model.DatasetKind) []model.DatasetKind {
	if len(kinds) == 0 {
		return model.DatasetKinds()
	}
	return kinds
}
