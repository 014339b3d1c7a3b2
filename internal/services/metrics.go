package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "cv_ranker"

// Metrics records pipeline counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	extractions     *prometheus.CounterVec
	summaries       *prometheus.CounterVec
	retries         *prometheus.CounterVec
	embeddings      *prometheus.CounterVec
	rankings        *prometheus.CounterVec
	rankingDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "extractions_total",
			Help:      "Documents processed by the text extractor, by outcome.",
		}, []string{"status"}),
		summaries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "summaries_total",
			Help:      "Candidate summaries produced, by outcome.",
		}, []string{"status"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "provider_retries_total",
			Help:      "Retries of external AI calls after transient errors.",
		}, []string{"op"}),
		embeddings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "embedding_batches_total",
			Help:      "Embedding batch calls, by outcome.",
		}, []string{"status"}),
		rankings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rankings_total",
			Help:      "Ranking requests, by outcome.",
		}, []string{"status"}),
		rankingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "ranking_duration_seconds",
			Help:      "Wall time of a full ranking request.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
	}
}

func (m *Metrics) ExtractionDone(status string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(status).Inc()
}

func (m *Metrics) SummaryDone(status string) {
	if m == nil {
		return
	}
	m.summaries.WithLabelValues(status).Inc()
}

func (m *Metrics) RetryAttempted(op string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(op).Inc()
}

func (m *Metrics) EmbeddingDone(status string) {
	if m == nil {
		return
	}
	m.embeddings.WithLabelValues(status).Inc()
}

func (m *Metrics) RankingDone(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.rankings.WithLabelValues(status).Inc()
	m.rankingDuration.Observe(elapsed.Seconds())
}
