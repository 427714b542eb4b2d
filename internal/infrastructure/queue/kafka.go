package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"irecStatApp/internal/app/dto"
)

// KafkaConfig holds Kafka connection configuration
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	BatchSize     int
	BatchTimeout  int // milliseconds
}

// ProjectProducer publishes project updates.
type ProjectProducer interface {
	PublishProject(ctx context.Context, project *dto.ProjectDTO) error
	PublishProjectBatch(ctx context.Context, projects []*dto.ProjectDTO) error
	Close() error
}

// ProjectConsumer delivers project updates and acknowledges them once
// processed.
type ProjectConsumer interface {
	Subscribe(ctx context.Context) (<-chan *dto.ProjectDTO, error)
	Commit(ctx context.Context, project *dto.ProjectDTO) error
	Close() error
}

// KafkaProducer implements ProjectProducer using Kafka
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer creates a new Kafka producer
func NewKafkaProducer(config KafkaConfig) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{}, // updates of one project stay on one partition, in order
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaProducer{writer: writer}
}

func projectMessage(project *dto.ProjectDTO) (kafka.Message, error) {
	data, err := json.Marshal(project)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal project %s: %w", project.ID, err)
	}
	return kafka.Message{
		Key:   []byte(project.ID),
		Value: data,
		Time:  time.Now(),
	}, nil
}

// PublishProject sends one project update to Kafka
func (p *KafkaProducer) PublishProject(ctx context.Context, project *dto.ProjectDTO) error {
	msg, err := projectMessage(project)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// PublishProjectBatch sends a batch of project updates to Kafka
func (p *KafkaProducer) PublishProjectBatch(ctx context.Context, projects []*dto.ProjectDTO) error {
	msgs := make([]kafka.Message, 0, len(projects))
	for _, project := range projects {
		msg, err := projectMessage(project)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Close closes the producer
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// KafkaConsumer implements ProjectConsumer using Kafka
type KafkaConsumer struct {
	reader        *kafka.Reader
	log           *slog.Logger
	pendingMsgs   map[string]kafka.Message // update key -> message
	pendingMsgsMu sync.Mutex
	batchSize     int
	batchTimeout  time.Duration
}

// NewKafkaConsumer creates a new Kafka consumer. Offsets are committed
// explicitly, either per update or in batches.
func NewKafkaConsumer(config KafkaConfig, log *slog.Logger) *KafkaConsumer {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.ConsumerGroup,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})

	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	batchTimeout := time.Duration(config.BatchTimeout) * time.Millisecond
	if batchTimeout <= 0 {
		batchTimeout = 3 * time.Second
	}

	return &KafkaConsumer{
		reader:       reader,
		log:          log.With(slog.String("component", "kafka_consumer"), slog.String("topic", config.Topic)),
		pendingMsgs:  make(map[string]kafka.Message),
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
	}
}

// Subscribe returns a channel of project updates from Kafka. The channel is
// closed when ctx is done or the reader fails.
func (c *KafkaConsumer) Subscribe(ctx context.Context) (<-chan *dto.ProjectDTO, error) {
	out := make(chan *dto.ProjectDTO, c.batchSize)

	go c.startBatchCommitter(ctx)

	go func() {
		defer close(out)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() == nil {
					c.log.Error("failed to fetch message", slog.Any("error", err))
				}
				return
			}

			var project dto.ProjectDTO
			if err := json.Unmarshal(msg.Value, &project); err != nil {
				c.log.Warn("dropping malformed project update",
					slog.Int64("offset", msg.Offset), slog.Any("error", err))
				// Commit bad messages so they do not block the partition.
				_ = c.reader.CommitMessages(ctx, msg)
				continue
			}
			if project.UpdateID == "" {
				project.UpdateID = fmt.Sprintf("%s-%d-%d", project.ID, msg.Partition, msg.Offset)
			}

			c.pendingMsgsMu.Lock()
			c.pendingMsgs[project.UpdateID] = msg
			pending := len(c.pendingMsgs)
			c.pendingMsgsMu.Unlock()
			if pending > c.batchSize*10 {
				c.log.Warn("large number of uncommitted messages",
					slog.Int("pending", pending), slog.Int("batch_size", c.batchSize))
			}

			select {
			case <-ctx.Done():
				return
			case out <- &project:
			}
		}
	}()

	return out, nil
}

func (c *KafkaConsumer) startBatchCommitter(ctx context.Context) {
	ticker := time.NewTicker(c.batchTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.commitAllPending(context.Background())
			return
		case <-ticker.C:
			c.commitAllPending(ctx)
		}
	}
}

func (c *KafkaConsumer) commitAllPending(ctx context.Context) {
	c.pendingMsgsMu.Lock()
	defer c.pendingMsgsMu.Unlock()

	if len(c.pendingMsgs) == 0 {
		return
	}
	msgs := make([]kafka.Message, 0, len(c.pendingMsgs))
	for _, msg := range c.pendingMsgs {
		msgs = append(msgs, msg)
	}
	if err := c.reader.CommitMessages(ctx, msgs...); err != nil {
		c.log.Error("failed to commit batch", slog.Int("messages", len(msgs)), slog.Any("error", err))
		return
	}
	c.log.Debug("committed batch", slog.Int("messages", len(msgs)))
	c.pendingMsgs = make(map[string]kafka.Message)
}

// Commit acknowledges that a project update has been processed
func (c *KafkaConsumer) Commit(ctx context.Context, project *dto.ProjectDTO) error {
	if project == nil || project.UpdateID == "" {
		return fmt.Errorf("cannot commit nil project update or update without id")
	}

	c.pendingMsgsMu.Lock()
	msg, exists := c.pendingMsgs[project.UpdateID]
	if !exists {
		c.pendingMsgsMu.Unlock()
		return fmt.Errorf("message for update %s not found in pending messages", project.UpdateID)
	}
	if len(c.pendingMsgs) >= c.batchSize {
		c.pendingMsgsMu.Unlock()
		c.commitAllPending(ctx)
		return nil
	}
	delete(c.pendingMsgs, project.UpdateID)
	c.pendingMsgsMu.Unlock()

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to commit message for update %s: %w", project.UpdateID, err)
	}
	return nil
}

// Close commits what is pending and closes the consumer
func (c *KafkaConsumer) Close() error {
	c.commitAllPending(context.Background())
	return c.reader.Close()
}
