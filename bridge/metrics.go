// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for outbound calls.
const (
	outcomeOK             = "ok"
	outcomeTransportError = "transport_error"
	outcomeClosed         = "closed"
)

// Outcome labels for inbound requests.
const (
	outcomeApplicationError = "application_error"
	outcomeUnknownType      = "unknown_type"
	outcomeMalformed        = "malformed"
	outcomePanic            = "panic"
	outcomeRejected         = "rejected"
)

// Metrics holds the Prometheus collectors a Bridge updates. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	pendingCalls    *prometheus.GaugeVec
	outboundCalls   *prometheus.CounterVec
	inboundRequests *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
	protocolErrors  *prometheus.CounterVec
}

// NewMetrics creates the bridge collectors and registers them with
// registerer. Every series carries a "bridge" label holding
// Config.Name, so host and engine bridges can share a registry.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		pendingCalls: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "corebridge",
			Name:      "pending_calls",
			Help:      "Outbound calls awaiting a response.",
		}, []string{"bridge"}),
		outboundCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corebridge",
			Name:      "outbound_calls_total",
			Help:      "Outbound calls by final outcome.",
		}, []string{"bridge", "outcome"}),
		inboundRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corebridge",
			Name:      "inbound_requests_total",
			Help:      "Inbound requests by discriminator and outcome.",
		}, []string{"bridge", "request_type", "outcome"}),
		handlerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "corebridge",
			Name:      "handler_duration_seconds",
			Help:      "Time spent in inbound request handlers.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"bridge", "request_type"}),
		protocolErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corebridge",
			Name:      "protocol_errors_total",
			Help:      "Protocol violations observed on the channel.",
		}, []string{"bridge", "reason"}),
	}
}

func (m *Metrics) setPending(bridgeName string, count int) {
	if m == nil {
		return
	}
	m.pendingCalls.WithLabelValues(bridgeName).Set(float64(count))
}

func (m *Metrics) outbound(bridgeName, outcome string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.outboundCalls.WithLabelValues(bridgeName, outcome).Add(float64(count))
}

func (m *Metrics) inbound(bridgeName string, requestType int32, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	typeLabel := strconv.FormatInt(int64(requestType), 10)
	m.inboundRequests.WithLabelValues(bridgeName, typeLabel, outcome).Inc()
	if elapsed > 0 {
		m.handlerDuration.WithLabelValues(bridgeName, typeLabel).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) protocolError(bridgeName, reason string) {
	if m == nil {
		return
	}
	m.protocolErrors.WithLabelValues(bridgeName, reason).Inc()
}
