// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics owns the Prometheus instruments of the auth pipeline.

Instruments are registered with promauto against an injected registerer so
tests can use a private [prometheus.Registry] and the server can expose the
same registry on /metrics.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lumina"

// Metrics groups every instrument the pipeline updates.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	edgeRejections  *prometheus.CounterVec
	stageDenials    *prometheus.CounterVec
	oauthCallbacks  *prometheus.CounterVec
	sessionsIssued  prometheus.Counter
	storeFailures   *prometheus.CounterVec
}

// New registers all instruments with registerer.
func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests completed by the handler wrapper.",
		}, []string{"route", "method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Wall time from route resolution to response.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),

		edgeRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edge_rejections_total",
			Help:      "Requests rejected by the edge gate before any store access.",
		}, []string{"reason"}),

		stageDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_denials_total",
			Help:      "Requests stopped by a wrapper stage.",
		}, []string{"stage", "code"}),

		oauthCallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_callbacks_total",
			Help:      "OAuth callbacks by provider and outcome.",
		}, []string{"provider", "outcome"}),

		sessionsIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_issued_total",
			Help:      "Sessions created by password or OAuth login.",
		}),

		storeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failures_total",
			Help:      "Session or rate-limit store calls that failed closed.",
		}, []string{"store"}),
	}
}

// Handler exposes gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveRequest records one completed request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// EdgeRejected records a request stopped at the edge gate.
func (m *Metrics) EdgeRejected(reason string) {
	if m == nil {
		return
	}
	m.edgeRejections.WithLabelValues(reason).Inc()
}

// StageDenied records a request stopped by a wrapper stage.
func (m *Metrics) StageDenied(stage, code string) {
	if m == nil {
		return
	}
	m.stageDenials.WithLabelValues(stage, code).Inc()
}

// OAuthCallback records the outcome of an OAuth callback.
func (m *Metrics) OAuthCallback(provider, outcome string) {
	if m == nil {
		return
	}
	m.oauthCallbacks.WithLabelValues(provider, outcome).Inc()
}

// SessionIssued records a newly created session.
func (m *Metrics) SessionIssued() {
	if m == nil {
		return
	}
	m.sessionsIssued.Inc()
}

// StoreFailed records a store call that failed closed.
func (m *Metrics) StoreFailed(store string) {
	if m == nil {
		return
	}
	m.storeFailures.WithLabelValues(store).Inc()
}
