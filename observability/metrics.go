package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QueryBuckets covers in-process scans from sub-millisecond to a few
// seconds.
var QueryBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// Metrics holds the collectors for indexing and querying. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// DocumentsTotal counts indexed documents by result (saved or skipped).
	DocumentsTotal *prometheus.CounterVec

	// EmbeddingsTotal counts calls made to the embedding producer.
	EmbeddingsTotal prometheus.Counter

	// QueriesTotal counts similarity queries by algorithm and status.
	QueriesTotal *prometheus.CounterVec

	// QueryDuration records similarity query latency in seconds.
	QueryDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		DocumentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediavec_documents_total",
				Help: "Documents processed by the indexer",
			},
			[]string{"result"},
		),
		EmbeddingsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mediavec_embeddings_total",
				Help: "Embedding requests issued",
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediavec_queries_total",
				Help: "Similarity queries",
			},
			[]string{"algorithm", "status"},
		),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mediavec_query_duration_seconds",
				Help:    "Similarity query duration",
				Buckets: QueryBuckets,
			},
			[]string{"algorithm"},
		),
	}
	for _, c := range []prometheus.Collector{m.DocumentsTotal, m.EmbeddingsTotal, m.QueriesTotal, m.QueryDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveQuery records one query that started at start.
func (m *Metrics) ObserveQuery(algorithm string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.QueriesTotal.WithLabelValues(algorithm, status).Inc()
	m.QueryDuration.WithLabelValues(algorithm).Observe(time.Since(start).Seconds())
}

// AddDocuments records the outcome of an indexing batch.
func (m *Metrics) AddDocuments(saved, skipped int) {
	if m == nil {
		return
	}
	m.DocumentsTotal.WithLabelValues("saved").Add(float64(saved))
	m.DocumentsTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// AddEmbeddings records n embedding requests.
func (m *Metrics) AddEmbeddings(n int) {
	if m == nil {
		return
	}
	m.EmbeddingsTotal.Add(float64(n))
}
