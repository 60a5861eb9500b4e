package infra

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	rows   []domain.OutboxRow
	marked []int64
}

func (s *fakeSource) FetchUnpublished(_ context.Context, limit int) ([]domain.OutboxRow, error) {
	if len(s.rows) > limit {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}

func (s *fakeSource) MarkPublished(_ context.Context, ids []int64) error {
	s.marked = append(s.marked, ids...)
	return nil
}

type published struct {
	topic string
	key   string
	value []byte
}

type fakePublisher struct {
	sent   []published
	failAt int // 1-based; 0 never fails
}

func (p *fakePublisher) Publish(_ context.Context, topic string, key, value []byte) error {
	if p.failAt > 0 && len(p.sent)+1 == p.failAt {
		return errors.New("broker down")
	}
	p.sent = append(p.sent, published{topic: topic, key: string(key), value: value})
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func row(seq int64, evt domain.EventType, partition string) domain.OutboxRow {
	return domain.OutboxRow{
		SeqID: seq,
		OutboxDraft: domain.OutboxDraft{
			EventID:       uuid.New(),
			AggregateType: domain.AggregateGame,
			AggregateID:   "agg",
			EventType:     evt,
			PartitionKey:  partition,
			Payload:       json.RawMessage(`{"n":1}`),
			OccurredAt:    time.Now().UTC(),
		},
	}
}

func TestPollOnce_PublishesInOrder(t *testing.T) {
	src := &fakeSource{rows: []domain.OutboxRow{
		row(1, domain.EventTicketPurchased, "g1"),
		row(2, domain.EventGameCancelled, ""),
	}}
	pub := &fakePublisher{}
	p := NewOutboxPoller(src, pub, testLogger())

	n, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 2}, src.marked)

	require.Len(t, pub.sent, 2)
	assert.Equal(t, string(domain.EventTicketPurchased), pub.sent[0].topic)
	assert.Equal(t, "g1", pub.sent[0].key)
	assert.Equal(t, "agg", pub.sent[1].key, "falls back to aggregate id")

	env, err := DecodeEnvelope(pub.sent[1].value)
	require.NoError(t, err)
	assert.Equal(t, src.rows[1].EventID, env.EventID)
	assert.Equal(t, string(domain.EventGameCancelled), env.EventType)
	assert.JSONEq(t, `{"n":1}`, string(env.Payload))
}

func TestPollOnce_StopsAtFirstFailure(t *testing.T) {
	src := &fakeSource{rows: []domain.OutboxRow{
		row(1, domain.EventEntryPosted, ""),
		row(2, domain.EventEntryPosted, ""),
		row(3, domain.EventEntryPosted, ""),
	}}
	pub := &fakePublisher{failAt: 2}
	p := NewOutboxPoller(src, pub, testLogger())

	n, err := p.PollOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1}, src.marked)
}

func TestPollOnce_Empty(t *testing.T) {
	src := &fakeSource{}
	p := NewOutboxPoller(src, &fakePublisher{}, testLogger())

	n, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, src.marked)
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	_, err := DecodeEnvelope([]byte("{"))
	assert.Error(t, err)
}

func TestDisabledKafkaProducerIsNoop(t *testing.T) {
	p := NewKafkaProducer("", false, testLogger())
	assert.NoError(t, p.Publish(context.Background(), "t", nil, nil))
	assert.NoError(t, p.Close())
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092, ,b:9092"))
}

func TestDisabledKafkaConsumer(t *testing.T) {
	c := NewKafkaConsumer("localhost:9092", nil, "g", true, testLogger())
	assert.False(t, c.Enabled())
	_, err := c.ReadEnvelope(context.Background())
	assert.Error(t, err)
	assert.NoError(t, c.Close())
}
