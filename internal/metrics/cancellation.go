package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cancelTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_game_cancellations_total",
			Help: "Game cancellation runs by result",
		},
		[]string{"result"},
	)

	cancelDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lottery_game_cancellation_duration_ms",
			Help:    "Game cancellation run duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 12),
		},
		[]string{"result"},
	)

	adjustmentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_cancel_adjustments_total",
			Help: "Per-user cancellation adjustments by outcome",
		},
		[]string{"outcome"},
	)

	adjustedPoints = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_cancel_adjusted_points_total",
			Help: "Absolute points moved by cancellation adjustments, by direction",
		},
		[]string{"direction"},
	)

	refundSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lottery_cancel_refund_skipped_total",
			Help: "Cancellation adjustments skipped because the user no longer exists",
		},
	)

	reconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_reconcile_games_total",
			Help: "Games visited by the cancellation reconciler by result",
		},
		[]string{"result"},
	)
)

// Cancellation result labels.
const (
	ResultCancelled        = "cancelled"
	ResultAlreadyCancelled = "already_cancelled"
	ResultNotFound         = "not_found"
	ResultError            = "error"
)

// RecordCancellation records one CancelGame run.
func RecordCancellation(result string, started time.Time) {
	cancelTotal.WithLabelValues(result).Inc()
	cancelDuration.WithLabelValues(result).Observe(float64(time.Since(started).Milliseconds()))
}

// RecordAdjustment records one per-user adjustment. outcome is "applied"
// or "replayed" (already applied by an earlier run).
func RecordAdjustment(outcome string, delta int64) {
	adjustmentTotal.WithLabelValues(outcome).Inc()
	if outcome != "applied" {
		return
	}
	if delta >= 0 {
		adjustedPoints.WithLabelValues("refund").Add(float64(delta))
	} else {
		adjustedPoints.WithLabelValues("reversal").Add(float64(-delta))
	}
}

// RecordRefundSkipped counts an adjustment dropped for a missing user.
func RecordRefundSkipped() {
	refundSkipped.Inc()
	adjustmentTotal.WithLabelValues("skipped").Inc()
}

// RecordReconcile records the reconciler outcome for one stuck game.
func RecordReconcile(result string) {
	reconcileTotal.WithLabelValues(result).Inc()
}
