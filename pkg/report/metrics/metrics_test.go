package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stackvity/sales-report/pkg/report"
	"github.com/stackvity/sales-report/pkg/report/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ report.MetricsRecorder = (*metrics.Registry)(nil)

func TestRegistry_Counters(t *testing.T) {
	r := metrics.NewRegistry()
	r.LineAccepted()
	r.LineAccepted()
	r.LineRejected(string(report.RejectValidation))
	r.LineRejected(string(report.RejectValidation))
	r.LineRejected(string(report.RejectFormat))
	r.FileCompleted(string(report.StatusSuccess), 20*time.Millisecond)
	r.FileCompleted(string(report.StatusFailed), time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.LinesAccepted))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.LinesRejected.WithLabelValues("validation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.LinesRejected.WithLabelValues("format")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Files.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Files.WithLabelValues("failed")))

	count, err := testutil.GatherAndCount(r.Gatherer(), "sales_report_file_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegistry_GatherAndCompare(t *testing.T) {
	r := metrics.NewRegistry()
	r.LineRejected("unknown_product")

	expected := `
# HELP sales_report_lines_rejected_total Order lines rejected, by reason.
# TYPE sales_report_lines_rejected_total counter
sales_report_lines_rejected_total{reason="unknown_product"} 1
`
	err := testutil.GatherAndCompare(r.Gatherer(), strings.NewReader(expected), "sales_report_lines_rejected_total")
	assert.NoError(t, err)
}

func TestRegistry_WriteTextfile(t *testing.T) {
	r := metrics.NewRegistry()
	r.LineAccepted()

	path := filepath.Join(t.TempDir(), "sales_report.prom")
	require.NoError(t, r.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "sales_report_lines_accepted_total 1")
}

func TestRegistry_WriteTextfileBadDir(t *testing.T) {
	r := metrics.NewRegistry()
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "out.prom"))
	assert.Error(t, err)
}
