package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/infra"
	"github.com/attaboy/lottery/internal/projection"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_ProjectsEntries(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	balances := projection.NewBalances(projection.NewInMemoryStore(), logger)
	h := &eventHandler{balances: balances, logger: logger}
	ctx := context.Background()

	userID := uuid.New()
	entry := &domain.LedgerEntry{
		ID: uuid.New(), UserID: userID, Type: domain.EntryGameCancel,
		Delta: 20, BalanceAfter: 100, IdempotencyKey: "game-cancel:x", CreatedAt: time.Now(),
	}
	raw, err := infra.EncodeEnvelope(domain.NewEntryPostedEvent(entry))
	require.NoError(t, err)
	env, err := infra.DecodeEnvelope(raw)
	require.NoError(t, err)

	require.NoError(t, h.handle(ctx, env))
	bal, ok := balances.Lookup(ctx, userID)
	require.True(t, ok)
	assert.Equal(t, int64(100), bal)
}

func TestHandle_OtherEventsDoNotTouchBalances(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h := &eventHandler{balances: projection.NewBalances(projection.NewInMemoryStore(), logger), logger: logger}

	for _, d := range []domain.OutboxDraft{
		domain.NewGameCancelledEvent(uuid.New(), 2, 1, 40, nil),
		domain.NewRefundSkippedEvent(uuid.New(), uuid.New(), 15),
	} {
		raw, err := infra.EncodeEnvelope(d)
		require.NoError(t, err)
		env, err := infra.DecodeEnvelope(raw)
		require.NoError(t, err)
		assert.NoError(t, h.handle(context.Background(), env))
	}

	bad := &infra.Envelope{EventType: string(domain.EventEntryPosted), Payload: json.RawMessage(`{"user_id":"nope"}`)}
	assert.Error(t, h.handle(context.Background(), bad))
}
