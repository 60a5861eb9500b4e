package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/google/uuid"
)

// OutboxSource is the part of the outbox store the poller drains.
type OutboxSource interface {
	FetchUnpublished(ctx context.Context, limit int) ([]domain.OutboxRow, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

// Publisher sends one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// OutboxPoller polls the outbox and publishes events to Kafka.
type OutboxPoller struct {
	source    OutboxSource
	producer  Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewOutboxPoller creates a new outbox poller.
func NewOutboxPoller(source OutboxSource, producer Publisher, logger *slog.Logger) *OutboxPoller {
	return &OutboxPoller{
		source:    source,
		producer:  producer,
		logger:    logger,
		interval:  500 * time.Millisecond,
		batchSize: 100,
	}
}

// Start begins polling in a goroutine. Stops when ctx is cancelled.
func (p *OutboxPoller) Start(ctx context.Context) {
	p.logger.Info("outbox poller started", "interval", p.interval, "batch_size", p.batchSize)

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Info("outbox poller stopped")
				return
			case <-ticker.C:
				if _, err := p.PollOnce(ctx); err != nil {
					p.logger.Error("outbox poll error", "error", err)
				}
			}
		}
	}()
}

// PollOnce publishes one batch in sequence order and returns how many events
// were published. It stops at the first publish failure so later events of
// the same aggregate never overtake an earlier one.
func (p *OutboxPoller) PollOnce(ctx context.Context) (int, error) {
	events, err := p.source.FetchUnpublished(ctx, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	published := make([]int64, 0, len(events))
	var pubErr error
	for _, e := range events {
		msg, err := EncodeEnvelope(e.OutboxDraft)
		if err != nil {
			p.logger.Error("encode outbox event failed", "event_id", e.EventID, "error", err)
			pubErr = err
			break
		}

		key := e.PartitionKey
		if key == "" {
			key = e.AggregateID
		}
		if err := p.producer.Publish(ctx, string(e.EventType), []byte(key), msg); err != nil {
			p.logger.Error("kafka publish failed", "event_id", e.EventID, "error", err)
			pubErr = fmt.Errorf("publish %s: %w", e.EventID, err)
			break
		}
		published = append(published, e.SeqID)
	}

	if err := p.source.MarkPublished(ctx, published); err != nil {
		return 0, fmt.Errorf("mark published: %w", err)
	}

	p.logger.Debug("outbox poll complete", "published", len(published))
	return len(published), pubErr
}

// Envelope is the JSON message written to Kafka for each outbox event.
type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// EncodeEnvelope wraps an outbox event for publishing.
func EncodeEnvelope(d domain.OutboxDraft) ([]byte, error) {
	return json.Marshal(Envelope{
		EventID:       d.EventID,
		AggregateType: string(d.AggregateType),
		AggregateID:   d.AggregateID,
		EventType:     string(d.EventType),
		Payload:       d.Payload,
		OccurredAt:    d.OccurredAt,
	})
}

// DecodeEnvelope parses a message produced by EncodeEnvelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}
