package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/sseqchart/pkg/errors"
	"github.com/matzehuels/sseqchart/pkg/observability"
)

const namespace = "sseqchart"

// Metrics exports chart, cache, store and WebSocket activity to Prometheus.
// It implements the observability hook interfaces; register it with
// [Metrics.Install].
type Metrics struct {
	registry *prometheus.Registry

	messagesHandled  *prometheus.CounterVec
	messagesRejected *prometheus.CounterVec
	handleDuration   prometheus.Histogram
	batchSize        prometheus.Histogram

	cacheOps *prometheus.CounterVec

	snapshotsSaved  *prometheus.CounterVec
	snapshotBytes   prometheus.Gauge
	snapshotLatency *prometheus.HistogramVec

	clients   prometheus.Gauge
	wsSent    prometheus.Counter
	wsSentLen prometheus.Counter
}

var (
	_ observability.ChartHooks = (*Metrics)(nil)
	_ observability.CacheHooks = (*Metrics)(nil)
	_ observability.StoreHooks = (*Metrics)(nil)
)

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messagesHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chart",
			Name:      "messages_handled_total",
			Help:      "Messages applied to the chart, by command",
		}, []string{"cmd"}),
		messagesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chart",
			Name:      "messages_rejected_total",
			Help:      "Messages rejected without changing the chart, by error code",
		}, []string{"code"}),
		handleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chart",
			Name:      "message_duration_seconds",
			Help:      "Time to apply one message",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chart",
			Name:      "batch_updates",
			Help:      "Updates per applied batch",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Cache lookups and writes, by key type and result",
		}, []string{"key_type", "result"}),
		snapshotsSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Snapshot saves and loads, by backend, operation and status",
		}, []string{"backend", "op", "status"}),
		snapshotBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "snapshot_bytes",
			Help:      "Size of the last saved snapshot",
		}),
		snapshotLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "duration_seconds",
			Help:      "Snapshot save and load latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "op"}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "clients",
			Help:      "Connected WebSocket clients",
		}),
		wsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_sent_total",
			Help:      "Messages written to WebSocket clients",
		}),
		wsSentLen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "bytes_sent_total",
			Help:      "Bytes written to WebSocket clients",
		}),
	}
	m.registry.MustRegister(
		m.messagesHandled, m.messagesRejected, m.handleDuration, m.batchSize,
		m.cacheOps,
		m.snapshotsSaved, m.snapshotBytes, m.snapshotLatency,
		m.clients, m.wsSent, m.wsSentLen,
		collectors.NewGoCollector(),
	)
	return m
}

// Install registers m as the global chart, cache and store hooks.
func (m *Metrics) Install() {
	observability.SetChartHooks(m)
	observability.SetCacheHooks(m)
	observability.SetStoreHooks(m)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) OnMessageHandled(_ context.Context, cmd string, d time.Duration) {
	m.messagesHandled.WithLabelValues(cmd).Inc()
	m.handleDuration.Observe(d.Seconds())
}

func (m *Metrics) OnMessageRejected(_ context.Context, _ string, err error) {
	code := string(errors.GetCode(err))
	if code == "" {
		code = "UNKNOWN"
	}
	m.messagesRejected.WithLabelValues(code).Inc()
}

func (m *Metrics) OnBatchApplied(_ context.Context, n int, _ time.Duration, err error) {
	if err == nil {
		m.batchSize.Observe(float64(n))
	}
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, _ int) {
	m.cacheOps.WithLabelValues(keyType, "set").Inc()
}

func (m *Metrics) OnSnapshotSaved(_ context.Context, backend string, size int, d time.Duration, err error) {
	m.snapshotsSaved.WithLabelValues(backend, "save", status(err)).Inc()
	m.snapshotLatency.WithLabelValues(backend, "save").Observe(d.Seconds())
	if err == nil {
		m.snapshotBytes.Set(float64(size))
	}
}

func (m *Metrics) OnSnapshotLoaded(_ context.Context, backend string, d time.Duration, err error) {
	m.snapshotsSaved.WithLabelValues(backend, "load", status(err)).Inc()
	m.snapshotLatency.WithLabelValues(backend, "load").Observe(d.Seconds())
}

func (m *Metrics) setClients(n int) {
	if m != nil {
		m.clients.Set(float64(n))
	}
}

func (m *Metrics) messageSent(size int) {
	if m != nil {
		m.wsSent.Inc()
		m.wsSentLen.Add(float64(size))
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
