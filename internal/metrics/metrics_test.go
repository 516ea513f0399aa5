package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value returns the first sample of the named family.
func value(t *testing.T, m *Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		require.NotEmpty(t, mf.GetMetric())
		metric := mf.GetMetric()[0]
		if c := metric.GetCounter(); c != nil {
			return c.GetValue()
		}
		return metric.GetGauge().GetValue()
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestCountersAccumulate(t *testing.T) {
	m := New("PG")
	m.InvoicesTotal.Add(3)
	m.SuppressedTotal.Inc()
	m.RejectedRows.WithLabelValues("water").Add(2)
	m.IssuesTotal.WithLabelValues("warning", "no_water_reading").Inc()
	m.AmountDue.Set(1234.5)

	assert.Equal(t, 3.0, value(t, m, "invoicer_invoices_generated_total"))
	assert.Equal(t, 1.0, value(t, m, "invoicer_invoices_suppressed_total"))
	assert.Equal(t, 2.0, value(t, m, "invoicer_rejected_rows_total"))
	assert.Equal(t, 1234.5, value(t, m, "invoicer_amount_due"))
}

func TestWriteTextfile(t *testing.T) {
	m := New("PG")
	m.InvoicesTotal.Add(2)
	m.Finish(time.Unix(1000, 0), time.Unix(1003, 0))

	path := filepath.Join(t.TempDir(), "invoicer.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `invoicer_invoices_generated_total{property="PG"} 2`)
	assert.Contains(t, text, `invoicer_last_run_timestamp_seconds{property="PG"} 1003`)
	assert.True(t, strings.Contains(text, "invoicer_run_duration_seconds_count"))
}

func TestWriteTextfileBadDirectory(t *testing.T) {
	m := New("PG")
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "invoicer.prom"))
	assert.Error(t, err)
}

func TestSeparateRunsDoNotShareState(t *testing.T) {
	a, b := New("PG"), New("PG")
	a.InvoicesTotal.Inc()
	assert.Equal(t, 0.0, value(t, b, "invoicer_invoices_generated_total"))
}
