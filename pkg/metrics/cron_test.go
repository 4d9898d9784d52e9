package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsSplitsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "trade-auto-complete"

	m.ObserveRun(job, time.Now().Add(-250*time.Millisecond), nil)
	m.ObserveRun(job, time.Now(), errors.New("db down"))
	m.ObserveRun(job, time.Now(), nil)

	if got := writeMetric(t, m.runs.WithLabelValues(job, outcomeSuccess)).GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := writeMetric(t, m.runs.WithLabelValues(job, outcomeFailure)).GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
	if got := writeMetric(t, m.lastSuccess.WithLabelValues(job)).GetGauge().GetValue(); got < float64(time.Now().Add(-time.Minute).Unix()) {
		t.Fatalf("last success timestamp not set: %v", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "moda_cron_job_duration_seconds" {
			if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 3 {
				t.Fatalf("expected 3 duration samples, got %d", count)
			}
			return
		}
	}
	t.Fatal("duration histogram not exported")
}

func TestCronJobMetricsLockSkips(t *testing.T) {
	m := NewCronJobMetrics(prometheus.NewRegistry())
	m.IncLockSkipped()
	m.IncLockSkipped()
	if got := writeMetric(t, m.lockSkips).GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 skips, got %v", got)
	}
}

func TestCronJobMetricsLabelsBlankJobUnknown(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCronJobMetrics(reg).ObserveRun("", time.Now(), nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "moda_cron_job_runs_total", "job", "unknown"); err != nil {
		t.Fatalf("fetch runs: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 1 run for unknown job, got %v", got)
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("outbox-retention", time.Now(), nil)
	m.IncLockSkipped()
	NewCronJobMetrics(nil).ObserveRun("outbox-retention", time.Now(), errors.New("x"))
}

func writeMetric(t *testing.T, metric prometheus.Metric) *dto.Metric {
	t.Helper()
	var out dto.Metric
	if err := metric.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return &out
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return metric.GetCounter().GetValue(), nil
				}
			}
		}
		return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
	}
	return 0, fmt.Errorf("metric %q not found", name)
}
