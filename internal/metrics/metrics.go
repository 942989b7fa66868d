package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ingest counts what happens to inbound device messages and their events.
type Ingest struct {
	messages       *prometheus.CounterVec
	events         *prometheus.CounterVec
	insertDuration prometheus.Histogram
}

// NewIngest registers the ingest instruments on reg (the default registerer
// when nil).
func NewIngest(reg prometheus.Registerer) *Ingest {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Ingest{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "punchbridge_ingest_messages_total",
			Help: "Inbound MQTT messages by outcome (processed, or the reason they were ignored).",
		}, []string{"outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "punchbridge_ingest_events_total",
			Help: "Punch events by outcome (persisted, rejected, failed).",
		}, []string{"outcome"}),
		insertDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "punchbridge_store_insert_duration_seconds",
			Help:    "Latency of a single punch insert, including time queued for the writer.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
	reg.MustRegister(m.messages, m.events, m.insertDuration)
	return m
}

func (m *Ingest) RecordMessage(outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(strings.TrimSpace(outcome)).Inc()
}

func (m *Ingest) RecordEvent(outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(strings.TrimSpace(outcome)).Inc()
}

func (m *Ingest) ObserveInsert(d time.Duration) {
	if m == nil {
		return
	}
	m.insertDuration.Observe(d.Seconds())
}

// HTTP counts query API requests.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTP(reg prometheus.Registerer) *HTTP {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &HTTP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "punchbridge_http_requests_total",
			Help: "Query API requests by route and status code.",
		}, []string{"route", "status_code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "punchbridge_http_request_duration_seconds",
			Help:    "Query API latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *HTTP) Observe(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if strings.TrimSpace(route) == "" {
		route = "unknown"
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route).Observe(d.Seconds())
}
