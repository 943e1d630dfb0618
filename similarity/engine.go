package similarity

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/viant/mediavec/internal/topk"
	"github.com/viant/mediavec/observability"
	"github.com/viant/mediavec/vector"
)

// DefaultMaxN caps the number of results a single query may request.
const DefaultMaxN = 100

// Corpus is the iteration surface the engine needs from a document store.
type Corpus interface {
	// ScanWithEmbedding streams embedded documents one at a time.
	ScanWithEmbedding(ctx context.Context, fn func(*vector.Document) error) error
	// ListWithEmbedding returns every embedded document.
	ListWithEmbedding(ctx context.Context) ([]*vector.Document, error)
}

// Result pairs a document with its cosine similarity to the query.
type Result struct {
	Document *vector.Document
	Score    float32
}

// Engine runs similarity queries against a Corpus.
type Engine struct {
	corpus  Corpus
	maxN    int
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxN sets the upper bound n is clamped to.
func WithMaxN(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxN = n
		}
	}
}

// WithLogger sets the logger used for per-query debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics records query counts and latency.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine over corpus.
func New(corpus Corpus, opts ...Option) *Engine {
	e := &Engine{corpus: corpus, maxN: DefaultMaxN, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) prepare(query *vector.Document, n int) ([]float32, int, error) {
	if query == nil || len(query.Embedding) == 0 {
		return nil, 0, errors.Wrap(vector.ErrInvalidQuery, "query has no embedding")
	}
	if n < 1 {
		return nil, 0, errors.Wrapf(vector.ErrInvalidQuery, "n must be positive, got %d", n)
	}
	if n > e.maxN {
		n = e.maxN
	}
	return query.Embedding, n, nil
}

// TopN returns up to n documents most similar to query, by descending score,
// in a single pass over the corpus holding at most n candidates. The order
// of candidates with equal scores is unspecified.
func (e *Engine) TopN(ctx context.Context, query *vector.Document, n int) ([]Result, error) {
	q, n, err := e.prepare(query, n)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	best := topk.New[*vector.Document](n)
	scanned, mismatched, unscored := 0, 0, 0
	err = e.corpus.ScanWithEmbedding(ctx, func(d *vector.Document) error {
		scanned++
		if len(d.Embedding) != len(q) {
			mismatched++
			return nil
		}
		score := vector.CosineSimilarity(q, d.Embedding)
		if !finite(score) {
			unscored++
			return nil
		}
		best.Offer(d, score)
		return nil
	})
	if err != nil {
		e.metrics.ObserveQuery("stream", start, err)
		return nil, err
	}
	items := best.Drain()
	out := make([]Result, len(items))
	for i, it := range items {
		out[i] = Result{Document: it.Value, Score: it.Score}
	}
	e.metrics.ObserveQuery("stream", start, nil)
	e.logger.Debug().Int("n", n).Int("scanned", scanned).Int("dim_mismatch", mismatched).Int("non_finite", unscored).
		Int("results", len(out)).Dur("took", time.Since(start)).Msg("top-n query")
	return out, nil
}

// TopNFull is the full-materialization variant of TopN: it loads every
// embedded document, scores and sorts all of them, and returns the first n.
// Candidates with equal scores keep storage order.
func (e *Engine) TopNFull(ctx context.Context, query *vector.Document, n int) ([]Result, error) {
	q, n, err := e.prepare(query, n)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	docs, err := e.corpus.ListWithEmbedding(ctx)
	if err != nil {
		e.metrics.ObserveQuery("full", start, err)
		return nil, err
	}
	scored := make([]Result, 0, len(docs))
	for _, d := range docs {
		if len(d.Embedding) != len(q) {
			continue
		}
		score := vector.CosineSimilarity(q, d.Embedding)
		if !finite(score) {
			continue
		}
		scored = append(scored, Result{Document: d, Score: score})
	}
	sort.SliceStable(scored, func(a, b int) bool { return scored[a].Score > scored[b].Score })
	if n > len(scored) {
		n = len(scored)
	}
	e.metrics.ObserveQuery("full", start, nil)
	return scored[:n], nil
}

// finite reports whether score can be ranked. NaN or infinite components in
// a stored embedding yield scores that would break heap and sort ordering.
func finite(score float32) bool {
	f := float64(score)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
