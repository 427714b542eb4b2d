package app

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"irecStatApp/internal/infrastructure/queue"
)

// KafkaEventProcessor feeds updates from a ProjectConsumer through an
// EventProcessor and commits each one once handled.
type KafkaEventProcessor struct {
	consumer  queue.ProjectConsumer
	processor *EventProcessor
	log       *slog.Logger
}

func NewKafkaEventProcessor(consumer queue.ProjectConsumer, processor *EventProcessor, log *slog.Logger) *KafkaEventProcessor {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &KafkaEventProcessor{
		consumer:  consumer,
		processor: processor,
		log:       log.With(slog.String("component", "kafka_processor")),
	}
}

// Run starts the Kafka event processor
func (p *KafkaEventProcessor) Run(ctx context.Context) error {
	updates, err := p.consumer.Subscribe(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return ctx.Err()
			}
			if update == nil {
				continue
			}

			if _, err := p.processor.Process(ctx, update); err != nil {
				if errors.Is(err, ErrContextCancelled) {
					return ctx.Err()
				}
				// Rejected updates are committed too, so they do not block the partition.
				p.log.Warn("failed to process project update", slog.Any("error", err))
			}

			if err := p.consumer.Commit(ctx, update); err != nil && ctx.Err() == nil {
				p.log.Error("failed to commit project update",
					slog.String("update_id", update.UpdateID), slog.Any("error", err))
			}
		}
	}
}
