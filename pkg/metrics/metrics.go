// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SettlementOutcomes counts purchases by type and final status.
	SettlementOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vtu_settlement_outcomes_total",
			Help: "Purchases settled, by transaction type and final status",
		},
		[]string{"tx_type", "status"},
	)

	// ProviderLatency observes outbound call duration per provider/endpoint.
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vtu_provider_call_duration_seconds",
			Help:    "Duration of outbound provider and gateway calls",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 15},
		},
		[]string{"service", "endpoint", "success"},
	)

	// FundingCredits counts wallet credits applied from gateway events.
	FundingCredits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vtu_funding_credits_total",
			Help: "Wallet credits applied from payment gateway events",
		},
		[]string{"gateway", "source"},
	)

	// DuplicateEvents counts gateway events ignored because they were already applied.
	DuplicateEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vtu_funding_duplicate_events_total",
			Help: "Gateway events ignored as already processed",
		},
		[]string{"gateway"},
	)

	// StuckPending is the number of debited purchases still pending after the stale threshold.
	StuckPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vtu_stuck_pending_purchases",
			Help: "Debited purchases pending longer than the reconcile threshold",
		},
	)

	// HTTPRequests counts API requests by route and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vtu_http_requests_total",
			Help: "HTTP requests by route, method and status code",
		},
		[]string{"route", "method", "status"},
	)
)
