// Package metrics provides Prometheus metrics for databank builds
package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Commit outcomes used as the status label.
const (
	StatusCommitted = "committed"
	StatusDiscarded = "discarded"
	StatusFailed    = "failed"
)

// Metrics holds the build metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	SessionsTotal        *prometheus.CounterVec
	RowsLoadedTotal      *prometheus.CounterVec
	GenerationsReclaimed *prometheus.CounterVec
	UnresolvedLinksTotal *prometheus.CounterVec
	CommitDuration       *prometheus.HistogramVec
}

// New creates the metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prs_sessions_total",
				Help: "Databank build sessions by outcome",
			},
			[]string{"databank", "status"},
		),
		RowsLoadedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prs_rows_loaded_total",
				Help: "Attribute rows bulk loaded into durable tables",
			},
			[]string{"databank", "kind"},
		),
		GenerationsReclaimed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prs_generations_reclaimed_total",
				Help: "Stale generations deleted after a commit",
			},
			[]string{"databank"},
		),
		UnresolvedLinksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prs_unresolved_links_total",
				Help: "Cross-links recorded as strings because the target databank had no generation",
			},
			[]string{"databank", "target"},
		),
		CommitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prs_commit_duration_seconds",
				Help:    "Duration of bulk load and reclamation",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
			[]string{"databank"},
		),
	}
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordSession counts a finished session
func (m *Metrics) RecordSession(databank, status string) {
	if m == nil {
		return
	}
	m.SessionsTotal.WithLabelValues(databank, status).Inc()
}

// RecordRows counts rows loaded for one kind
func (m *Metrics) RecordRows(databank, kind string, rows int) {
	if m == nil {
		return
	}
	m.RowsLoadedTotal.WithLabelValues(databank, kind).Add(float64(rows))
}

// RecordReclaimed counts reclaimed generations
func (m *Metrics) RecordReclaimed(databank string, n int) {
	if m == nil {
		return
	}
	m.GenerationsReclaimed.WithLabelValues(databank).Add(float64(n))
}

// RecordUnresolvedLink counts a link that degraded to a string
func (m *Metrics) RecordUnresolvedLink(databank, target string) {
	if m == nil {
		return
	}
	m.UnresolvedLinksTotal.WithLabelValues(databank, target).Inc()
}

// ObserveCommit records the duration of a commit in seconds
func (m *Metrics) ObserveCommit(databank string, seconds float64) {
	if m == nil {
		return
	}
	m.CommitDuration.WithLabelValues(databank).Observe(seconds)
}

// WriteText writes every metric in the Prometheus text exposition format
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
