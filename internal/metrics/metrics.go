// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors the server updates.
type Metrics struct {
	RPCRequests    *prometheus.CounterVec
	RPCDuration    *prometheus.HistogramVec
	CacheFallbacks *prometheus.CounterVec
	OfflineWrites  *prometheus.CounterVec
	PendingOps     prometheus.Gauge
	SyncRuns       *prometheus.CounterVec
	SyncedOps      *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spendwise",
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spendwise",
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		CacheFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spendwise",
			Name:      "cache_fallbacks_total",
			Help:      "Reads served from the local cache because the remote store failed.",
		}, []string{"operation"}),
		OfflineWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spendwise",
			Name:      "offline_writes_total",
			Help:      "Writes accepted by the local cache and queued for replay.",
		}, []string{"kind", "operation"}),
		PendingOps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "spendwise",
			Name:      "pending_ops",
			Help:      "Queued writes waiting for replay against the remote store.",
		}),
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spendwise",
			Name:      "sync_runs_total",
			Help:      "Journal replays by result.",
		}, []string{"result"}),
		SyncedOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spendwise",
			Name:      "synced_ops_total",
			Help:      "Replayed journal ops by outcome.",
		}, []string{"outcome"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RPCRequests,
		m.RPCDuration,
		m.CacheFallbacks,
		m.OfflineWrites,
		m.PendingOps,
		m.SyncRuns,
		m.SyncedOps,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
