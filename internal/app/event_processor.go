package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"irecStatApp/internal/app/dto"
	"irecStatApp/internal/domain/model"
)

// ErrContextCancelled is returned when the context is cancelled during processing
var ErrContextCancelled = errors.New("context cancelled during processing")

// Update outcomes reported to the UpdateRecorder.
const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeUnchanged = "unchanged"
	OutcomeRejected  = "rejected"
)

// dedupLimit bounds the seen-set; it is reset once full.
const dedupLimit = 50000

// Processor defines the common interface for both standard and Kafka event processors
type Processor interface {
	Run(ctx context.Context) error
}

// ProjectWarmer recomputes the cached datasets of one project.
type ProjectWarmer interface {
	Warm(ctx context.Context, project model.ProjectRecord) (*model.RealTimeStats, error)
}

// StatsBroadcaster pushes real-time stats to dashboard clients.
type StatsBroadcaster interface {
	BroadcastRealTimeStats(stats *model.RealTimeStats)
}

// UpdateRecorder counts processed updates by outcome.
type UpdateRecorder interface {
	ProjectUpdate(outcome string)
}

type nopUpdateRecorder struct{}

func (nopUpdateRecorder) ProjectUpdate(string) {}

// EventProcessor applies project updates from a channel: it registers the
// project, warms its analytics and broadcasts the fresh real-time stats.
type EventProcessor struct {
	updates     <-chan *dto.ProjectDTO
	registry    *ProjectRegistry
	warmer      ProjectWarmer
	broadcaster StatsBroadcaster
	recorder    UpdateRecorder
	log         *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewEventProcessor(
	updates <-chan *dto.ProjectDTO,
	registry *ProjectRegistry,
	warmer ProjectWarmer,
	broadcaster StatsBroadcaster,
	recorder UpdateRecorder,
	log *slog.Logger,
) *EventProcessor {
	if recorder == nil {
		recorder = nopUpdateRecorder{}
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &EventProcessor{
		updates:     updates,
		registry:    registry,
		warmer:      warmer,
		broadcaster: broadcaster,
		recorder:    recorder,
		log:         log.With(slog.String("component", "event_processor")),
		seen:        make(map[string]struct{}),
	}
}

// Run consumes the update channel until ctx is done or the channel closes.
func (p *EventProcessor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-p.updates:
			if !ok {
				return nil
			}
			if _, err := p.Process(ctx, update); err != nil {
				if errors.Is(err, ErrContextCancelled) {
					p.log.Info("context cancelled, stopping event processor")
					return ctx.Err()
				}
				p.log.Warn("failed to process project update", slog.Any("error", err))
			}
		}
	}
}

// Process applies one update and returns its outcome.
func (p *EventProcessor) Process(ctx context.Context, update *dto.ProjectDTO) (string, error) {
	if ctx.Err() != nil {
		return "", ErrContextCancelled
	}
	if update == nil {
		return OutcomeRejected, nil
	}

	project := update.ToModel()
	if project.ID == "" {
		p.recorder.ProjectUpdate(OutcomeRejected)
		return OutcomeRejected, fmt.Errorf("project update %q has no id", update.UpdateID)
	}

	if key := update.Key(); key != "" && !p.markSeen(key) {
		p.recorder.ProjectUpdate(OutcomeDuplicate)
		return OutcomeDuplicate, nil
	}
	if !p.registry.Upsert(project) {
		p.recorder.ProjectUpdate(OutcomeUnchanged)
		return OutcomeUnchanged, nil
	}

	if ctx.Err() != nil {
		return "", ErrContextCancelled
	}
	stats, err := p.warmer.Warm(ctx, project)
	if err != nil {
		p.recorder.ProjectUpdate(OutcomeRejected)
		return OutcomeRejected, fmt.Errorf("warm project %s: %w", project.ID, err)
	}
	p.recorder.ProjectUpdate(OutcomeApplied)
	p.log.Debug("project update applied", slog.String("project_id", project.ID))

	if ctx.Err() != nil {
		return OutcomeApplied, ErrContextCancelled
	}
	if p.broadcaster != nil {
		p.broadcaster.BroadcastRealTimeStats(stats)
	}
	return OutcomeApplied, nil
}

// markSeen records key and reports whether it was new.
func (p *EventProcessor) markSeen(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.seen[key]; ok {
		return false
	}
	if len(p.seen) >= dedupLimit {
		p.seen = make(map[string]struct{})
		p.log.Debug("deduplication cache reset")
	}
	p.seen[key] = struct{}{}
	return true
}
