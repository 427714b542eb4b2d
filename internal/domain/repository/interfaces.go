// Package repository defines the storage interfaces used by domain services.
// Domain logic depends on these interfaces; infrastructure packages provide
// the implementations.
package repository

import (
	"context"
	"time"

	"irecStatApp/internal/domain/model"
)

// AnalyticsCache holds composed datasets keyed by (kind, key). Each kind has
// its own TTL. Entries are atomic: Get returns either a whole fresh value or
// a miss.
type AnalyticsCache interface {
	// Get returns the cached value and true, or false on a miss or expiry.
	Get(ctx context.Context, kind model.DatasetKind, key string) (model.Dataset, bool, error)

	// Set stores value under (kind, key), replacing any previous entry.
	Set(ctx context.Context, kind model.DatasetKind, key string, value model.Dataset) error

	// Clear drops every entry of the given kinds, or of all kinds when none
	// are given.
	Clear(ctx context.Context, kinds ...model.DatasetKind) error

	// Stats reports fresh entry counts per kind.
	Stats(ctx context.Context) (model.CacheStats, error)
}

// SnapshotPersistence stores composed analytics results for later audit.
type SnapshotPersistence interface {
	SaveSnapshot(ctx context.Context, result *model.AnalyticsResult) error

	// LatestSnapshot returns the newest snapshot of a project, or nil when
	// there is none.
	LatestSnapshot(ctx context.Context, projectID string) (*model.AnalyticsResult, error)
}

// EventPersistence stores synthesized itemized events.
type EventPersistence interface {
	SaveEvents(ctx context.Context, events []model.ItemizedEvent) error
	GetEventsSince(ctx context.Context, projectID string, since time.Time) ([]model.ItemizedEvent, error)
}

// AnalyticsPersistence is the durable store behind the analytics service.
type AnalyticsPersistence interface {
	SnapshotPersistence
	EventPersistence
	Close() error
}

// ProjectSource supplies the coarse project records analytics are derived
// from.
type ProjectSource interface {
	GetProject(ctx context.Context, id string) (model.ProjectRecord, error)
	ListProjects(ctx context.Context) ([]model.ProjectRecord, error)
}
