package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BidsPlacedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tf_bids_placed_total",
			Help: "Total number of accepted bids",
		},
	)

	BidsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tf_bids_rejected_total",
			Help: "Total number of rejected bids by reason",
		},
		[]string{"reason"},
	)

	TicketsAwardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tf_tickets_awarded_total",
			Help: "Total number of awarded tickets",
		},
	)

	RefundsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tf_refunds_total",
			Help: "Total number of settled refunds",
		},
	)

	EventsFinalizedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tf_events_finalized_total",
			Help: "Total number of finalized auctions",
		},
	)

	SerializationRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tf_serialization_retries_total",
			Help: "Total ledger transaction retries after serialization conflicts",
		},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tf_db_tx_seconds",
			Help:    "Duration of ledger transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tf_outbox_lag_seconds",
			Help: "Lag of outbox publishing",
		},
	)
)
