// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/nautilus/internal/hook"
)

// Compile-time interface check.
var _ hook.Observer = (*Metrics)(nil)

// Metrics records hook outcomes.
type Metrics struct {
	HooksTotal   *prometheus.CounterVec
	HookDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers hook metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HooksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nautilus_hooks_total",
				Help: "Total number of hook runs by category and status",
			},
			[]string{"category", "status"},
		),
		HookDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nautilus_hook_duration_seconds",
				Help:    "Hook execution time by category",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"category"},
		),
	}

	reg.MustRegister(m.HooksTotal)
	reg.MustRegister(m.HookDuration)

	return m
}

// ObserveHook records one hook outcome. Skipped hooks are counted but not
// timed.
func (m *Metrics) ObserveHook(d hook.Descriptor, rec hook.Record) {
	m.HooksTotal.WithLabelValues(d.Category, rec.Status.String()).Inc()
	if rec.Status != hook.StatusSkipped {
		m.HookDuration.WithLabelValues(d.Category).Observe(rec.Duration.Seconds())
	}
}
