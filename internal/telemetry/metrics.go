// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jedsmith2004/folio/internal/router"
	"github.com/jedsmith2004/folio/internal/stream"
)

// =============================================================================
// METRICS
// =============================================================================

// Metrics groups the gateway's collectors. All methods are safe for
// concurrent use and tolerate a nil receiver.
type Metrics struct {
	gatherer prometheus.Gatherer

	// UpstreamAttempts counts upstream calls by model and outcome.
	UpstreamAttempts *prometheus.CounterVec

	// UpstreamLatency tracks time to first byte per model.
	UpstreamLatency *prometheus.HistogramVec

	// StreamDeltas counts content deltas relayed to clients.
	StreamDeltas prometheus.Counter

	// StreamMalformed counts upstream frames that failed to decode.
	StreamMalformed prometheus.Counter

	// Requests counts /api/ask responses by status code.
	Requests *prometheus.CounterVec

	// RequestDuration tracks full request time including the relay.
	RequestDuration prometheus.Histogram
}

// NewMetrics registers the collectors with reg. A nil reg registers with
// the Prometheus default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: gatherer,
		UpstreamAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_upstream_attempts_total",
				Help: "Upstream completion attempts by model and outcome",
			},
			[]string{"model", "outcome"},
		),
		UpstreamLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "folio_upstream_latency_seconds",
				Help:    "Time until the upstream accepted or rejected a request",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"model"},
		),
		StreamDeltas: factory.NewCounter(prometheus.CounterOpts{
			Name: "folio_stream_deltas_total",
			Help: "Content deltas relayed to clients",
		}),
		StreamMalformed: factory.NewCounter(prometheus.CounterOpts{
			Name: "folio_stream_malformed_total",
			Help: "Upstream frames skipped because they could not be decoded",
		}),
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_requests_total",
				Help: "Gateway responses by HTTP status",
			},
			[]string{"status"},
		),
		RequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "folio_request_duration_seconds",
			Help:    "End-to-end /api/ask duration",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
}

// ObserveAttempt records one orchestrator attempt. It matches the
// router.Orchestrator attempt hook signature.
func (m *Metrics) ObserveAttempt(a router.Attempt) {
	if m == nil {
		return
	}
	m.UpstreamAttempts.WithLabelValues(a.Model, a.Outcome.String()).Inc()
	m.UpstreamLatency.WithLabelValues(a.Model).Observe(a.Duration.Seconds())
}

// ObserveRelay records the frame counts of one finished relay.
func (m *Metrics) ObserveRelay(s stream.Stats) {
	if m == nil {
		return
	}
	m.StreamDeltas.Add(float64(s.Deltas))
	m.StreamMalformed.Add(float64(s.Malformed))
}

// ObserveRequest records one gateway response.
func (m *Metrics) ObserveRequest(status int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(strconv.Itoa(status)).Inc()
	m.RequestDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
