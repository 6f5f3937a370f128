package rag

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts index runs and answers. A nil *Metrics records nothing.
type Metrics struct {
	indexOps   *prometheus.CounterVec
	answers    *prometheus.CounterVec
	embedBatch prometheus.Histogram
}

// NewMetrics builds unregistered collectors. Register them with Collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		indexOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rag_index_operations_total",
				Help: "Index and remove runs by outcome",
			},
			[]string{"op", "result"},
		),
		answers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rag_answers_total",
				Help: "Question answering calls by outcome",
			},
			[]string{"result"},
		),
		embedBatch: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rag_embed_batch_seconds",
				Help:    "Duration of one embedding batch",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// Collectors lists everything to register.
func (m *Metrics) Collectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	return []prometheus.Collector{m.indexOps, m.answers, m.embedBatch}
}

func (m *Metrics) index(op string, err error) {
	if m == nil {
		return
	}
	m.indexOps.WithLabelValues(op, outcome(err)).Inc()
}

func (m *Metrics) answer(result string) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(result).Inc()
}

func (m *Metrics) batch(seconds float64) {
	if m == nil {
		return
	}
	m.embedBatch.Observe(seconds)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
