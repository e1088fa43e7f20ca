/*
metrics.go - Prometheus counters

Exposed on /metrics via promhttp. Counters only; latency comes from
the request logger.
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rolloversProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "benefit_rollovers_processed_total",
		Help: "Benefits reset into a new period by rollover sweeps.",
	})

	subscriptionAdvances = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subscription_payments_recorded_total",
		Help: "Payment records emitted by renewal cursor advances.",
	})

	reconcileRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reminder_reconcile_runs_total",
		Help: "Full reminder reconciliation passes.",
	})
)
