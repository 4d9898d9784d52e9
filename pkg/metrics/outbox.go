package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for moda_outbox_events_total.
const (
	OutboxPublished    = "published"
	OutboxRetried      = "retried"
	OutboxDeadLettered = "dead_lettered"
)

// OutboxMetrics instruments the outbox publisher. Nil-safe like CronJobMetrics.
type OutboxMetrics struct {
	events  *prometheus.CounterVec
	publish *prometheus.HistogramVec
	batch   prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer, broker string) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	labels := prometheus.Labels{"broker": broker}
	m := &OutboxMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "moda_outbox_events_total",
			Help:        "Outbox rows handled by the publisher, by topic and outcome.",
			ConstLabels: labels,
		}, []string{"topic", "outcome"}),
		publish: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "moda_outbox_publish_duration_seconds",
			Help:        "Broker publish latency per topic.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"topic"}),
		batch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "moda_outbox_batch_rows",
			Help:        "Rows claimed per publisher batch.",
			ConstLabels: labels,
			Buckets:     []float64{0, 1, 5, 10, 25, 50, 100},
		}),
	}
	reg.MustRegister(m.events, m.publish, m.batch)
	return m
}

func (m *OutboxMetrics) ObserveBatch(rows int) {
	if m == nil || m.batch == nil {
		return
	}
	m.batch.Observe(float64(rows))
}

func (m *OutboxMetrics) ObservePublish(topic string, started time.Time) {
	if m == nil || m.publish == nil {
		return
	}
	m.publish.WithLabelValues(topicLabel(topic)).Observe(time.Since(started).Seconds())
}

func (m *OutboxMetrics) IncEvent(topic, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(topicLabel(topic), outcome).Inc()
}

// undecodable rows never resolve a topic
func topicLabel(topic string) string {
	if topic == "" {
		return "none"
	}
	return topic
}
