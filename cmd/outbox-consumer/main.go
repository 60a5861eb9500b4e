package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/infra"
	"github.com/attaboy/lottery/internal/projection"
)

// topics are the outbox event types this consumer follows.
var topics = []string{
	string(domain.EventEntryPosted),
	string(domain.EventGameCancelled),
	string(domain.EventRefundSkipped),
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("outbox consumer failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required: the consumer maintains the shared balance projection")
	}

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	consumer := infra.NewKafkaConsumer(cfg.KafkaBrokers, topics, "lottery-outbox-consumer", cfg.KafkaEnabled, logger)
	if !consumer.Enabled() {
		return fmt.Errorf("kafka is disabled; set KAFKA_ENABLED=true and KAFKA_BROKERS")
	}
	defer consumer.Close()

	h := &eventHandler{balances: projection.NewBalances(projection.NewRedisStore(rdb), logger), logger: logger}
	logger.Info("outbox-consumer starting", "topics", topics)

	for {
		env, err := consumer.ReadEnvelope(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				logger.Info("outbox-consumer shutting down")
				return nil
			}
			logger.Error("read event failed", "error", err)
			continue
		}
		if err := h.handle(ctx, env); err != nil {
			logger.Error("handle event failed", "event_id", env.EventID, "event_type", env.EventType, "error", err)
		}
	}
}

// eventHandler projects wallet entries and surfaces cancellation outcomes.
type eventHandler struct {
	balances *projection.Balances
	logger   *slog.Logger
}

func (h *eventHandler) handle(ctx context.Context, env *infra.Envelope) error {
	switch domain.EventType(env.EventType) {
	case domain.EventEntryPosted:
		return h.balances.ApplyEvent(ctx, env.EventType, env.Payload)
	case domain.EventGameCancelled:
		h.logger.Info("game cancelled", "game_id", env.AggregateID, "payload", string(env.Payload))
	case domain.EventRefundSkipped:
		h.logger.Warn("cancellation refund written off; operator follow-up needed",
			"game_id", env.AggregateID, "payload", string(env.Payload))
	default:
		h.logger.Debug("ignoring event", "event_type", env.EventType)
	}
	return nil
}
