package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	purchaseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_ticket_purchases_total",
			Help: "Ticket purchase requests by result",
		},
		[]string{"result"},
	)

	purchaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lottery_ticket_purchase_duration_ms",
			Help:    "Ticket purchase duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"result"},
	)

	awardTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_prize_awards_total",
			Help: "Prize awards by prize type and result",
		},
		[]string{"type", "result"},
	)

	compensationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_compensations_total",
			Help: "Ledger compensations run after a failed store write, by kind and result",
		},
		[]string{"kind", "result"},
	)
)

// RecordPurchase records one PurchaseTicket call.
// result should be "success" or "fail".
func RecordPurchase(result string, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	purchaseTotal.WithLabelValues(res).Inc()
	purchaseDuration.WithLabelValues(res).Observe(float64(time.Since(started).Milliseconds()))
}

// RecordAward records one AwardPrize call.
func RecordAward(prizeType, result string) {
	res := result
	if res != "success" {
		res = "fail"
	}
	awardTotal.WithLabelValues(prizeType, res).Inc()
}

// RecordCompensation records a purchase or prize compensation attempt.
func RecordCompensation(kind string, err error) {
	res := "success"
	if err != nil {
		res = "fail"
	}
	compensationTotal.WithLabelValues(kind, res).Inc()
}
