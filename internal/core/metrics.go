package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "container_status_reconcile_total",
		Help: "Resource reconciliations by outcome",
	}, []string{"outcome"})

	reconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "container_status_reconcile_duration_seconds",
		Help:    "Duration of one resource reconciliation",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
	})

	statusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "container_status_changes_total",
		Help: "Persisted status changes by attachment kind (primary server or additional) and new status",
	}, []string{"primary_server", "status"})

	fetchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "container_status_fetch_failures_total",
		Help: "Attachments resolved to exited:unhealthy because containers could not be read",
	}, []string{"server", "reason"})

	proxyRestartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "container_status_proxy_restarts_total",
		Help: "Proxy restarts issued by the watchdog",
	}, []string{"server"})
)
