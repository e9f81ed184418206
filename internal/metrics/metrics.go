// Package metrics owns the prometheus collectors. A nil *Recorder is valid and
// records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "takwira"

type Recorder struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	storeOps      *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	changes       prometheus.Counter
	feedClients   prometheus.Gauge
	sessions      prometheus.Gauge
}

// NewRecorder builds a Recorder on its own registry, including the Go and
// process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{LabelMethod, LabelRoute, LabelStatus}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{LabelMethod, LabelRoute}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Players table operations by result.",
		}, []string{LabelOp, LabelResult}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Players table operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{LabelOp}),
		changes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_change_notifications_total",
			Help:      "Change notifications delivered to subscribers.",
		}),
		feedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_clients",
			Help:      "Open websocket change-feed connections.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "board_sessions",
			Help:      "Live board sessions.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequests, r.httpDuration,
		r.storeOps, r.storeDuration,
		r.changes, r.feedClients, r.sessions,
	)
	return r
}

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (r *Recorder) RecordStoreOp(op string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	result := resultOK
	if err != nil {
		result = resultError
	}
	r.storeOps.WithLabelValues(op, result).Inc()
	r.storeDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (r *Recorder) RecordChange() {
	if r == nil {
		return
	}
	r.changes.Inc()
}

func (r *Recorder) FeedClientOpened() {
	if r == nil {
		return
	}
	r.feedClients.Inc()
}

func (r *Recorder) FeedClientClosed() {
	if r == nil {
		return
	}
	r.feedClients.Dec()
}

// SetSessions reports the number of live board sessions.
func (r *Recorder) SetSessions(n int) {
	if r == nil {
		return
	}
	r.sessions.Set(float64(n))
}
