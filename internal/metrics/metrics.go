// =============================================================================
// Tenant Invoicer - Run Metrics
// =============================================================================
//
// Counters and gauges for one invoicing run, kept in a private registry and
// written out as a Prometheus textfile (node_exporter textfile collector
// format) when the run ends.
//
// =============================================================================

package metrics

import (
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
)

const namespace = "invoicer"

// Metrics bundles the run metrics.
type Metrics struct {
	registry *prometheus.Registry

	InvoicesTotal   prometheus.Counter
	SuppressedTotal prometheus.Counter
	RejectedRows    *prometheus.CounterVec
	IssuesTotal     *prometheus.CounterVec
	FailedTotal     prometheus.Counter
	AmountDue       prometheus.Gauge
	RunDuration     prometheus.Histogram
	LastRun         prometheus.Gauge
}

// New constructs the metrics and registers them on a fresh registry. property
// is attached to every series as a constant label.
func New(property string) *Metrics {
	labels := prometheus.Labels{"property": property}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		InvoicesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "invoices_generated_total",
			Help:        "Invoices written in the run",
			ConstLabels: labels,
		}),
		SuppressedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "invoices_suppressed_total",
			Help:        "Lots with nothing due",
			ConstLabels: labels,
		}),
		RejectedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rejected_rows_total",
			Help:        "Input rows rejected during ingestion, by source",
			ConstLabels: labels,
		}, []string{"source"}),
		IssuesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "billing_issues_total",
			Help:        "Billing issues by severity and rule",
			ConstLabels: labels,
		}, []string{"severity", "rule"}),
		FailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "render_failures_total",
			Help:        "Invoices that could not be rendered",
			ConstLabels: labels,
		}),
		AmountDue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "amount_due",
			Help:        "Sum of the amounts due over the generated invoices",
			ConstLabels: labels,
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "run_duration_seconds",
			Help:        "Run duration in seconds",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_run_timestamp_seconds",
			Help:        "Unix time the run finished",
			ConstLabels: labels,
		}),
	}
	m.registry.MustRegister(
		m.InvoicesTotal,
		m.SuppressedTotal,
		m.RejectedRows,
		m.IssuesTotal,
		m.FailedTotal,
		m.AmountDue,
		m.RunDuration,
		m.LastRun,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the gatherer, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Finish records the run duration and completion time.
func (m *Metrics) Finish(started, finished time.Time) {
	m.RunDuration.Observe(finished.Sub(started).Seconds())
	m.LastRun.Set(float64(finished.Unix()))
}

// WriteTextfile writes every registered metric to path. The file is written
// to a temporary name first and renamed, so a collector never reads a
// partial file.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(filepath.Clean(path), m.registry); err != nil {
		return ierr.WithError(err).
			WithHintf("Could not write metrics to %s", path).
			Mark(ierr.ErrSystem)
	}
	return nil
}
