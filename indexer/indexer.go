package indexer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/viant/mediavec/observability"
	"github.com/viant/mediavec/similarity"
	"github.com/viant/mediavec/vector"
)

// DefaultBatchSize is the number of documents written per transaction.
const DefaultBatchSize = 64

// ErrUnknownDocument is returned by Similar when the seed id is not stored.
var ErrUnknownDocument = errors.New("indexer: unknown document")

// EmbedFunc converts free-form text into an embedding.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Record is one catalog entry as delivered by a Producer.
type Record struct {
	ID   string
	Name string
	Text string
}

// Producer supplies the current catalog.
type Producer interface {
	Records(ctx context.Context) ([]Record, error)
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc func(ctx context.Context) ([]Record, error)

// Records calls f.
func (f ProducerFunc) Records(ctx context.Context) ([]Record, error) { return f(ctx) }

// Store is the subset of the document store the indexer writes through.
type Store interface {
	Get(ctx context.Context, id string) (*vector.Document, error)
	Fingerprints(ctx context.Context) (map[string]string, error)
	UpsertMany(ctx context.Context, docs []*vector.Document) (int, error)
}

// Searcher runs similarity queries.
type Searcher interface {
	TopN(ctx context.Context, query *vector.Document, n int) ([]similarity.Result, error)
}

// Stats summarizes one Run.
type Stats struct {
	Seen     int
	Skipped  int
	Saved    int
	Embedded int
}

// Indexer embeds catalog records and keeps the store current.
type Indexer struct {
	store     Store
	searcher  Searcher
	embed     EmbedFunc
	batchSize int
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithBatchSize sets how many documents are written per transaction.
func WithBatchSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithLogger sets the logger for run summaries.
func WithLogger(logger zerolog.Logger) Option {
	return func(ix *Indexer) { ix.logger = logger }
}

// WithMetrics records saved, skipped and embedded counts.
func WithMetrics(m *observability.Metrics) Option {
	return func(ix *Indexer) { ix.metrics = m }
}

// New creates an Indexer.
func New(store Store, searcher Searcher, embed EmbedFunc, opts ...Option) (*Indexer, error) {
	if store == nil {
		return nil, errors.New("indexer: store is nil")
	}
	if searcher == nil {
		return nil, errors.New("indexer: searcher is nil")
	}
	if embed == nil {
		return nil, errors.New("indexer: EmbedFunc is nil")
	}
	ix := &Indexer{
		store:     store,
		searcher:  searcher,
		embed:     embed,
		batchSize: DefaultBatchSize,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Run pulls every record from p, embeds those whose text changed since the
// last run and writes them in batches. Failures are not retried; batches
// committed before the failure stay committed.
func (ix *Indexer) Run(ctx context.Context, p Producer) (Stats, error) {
	var stats Stats
	start := time.Now()
	records, err := p.Records(ctx)
	if err != nil {
		return stats, errors.Wrap(err, "failed to fetch records")
	}
	stored, err := ix.store.Fingerprints(ctx)
	if err != nil {
		return stats, err
	}

	pending := make([]*vector.Document, 0, ix.batchSize)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		n, err := ix.store.UpsertMany(ctx, pending)
		if err != nil {
			return err
		}
		stats.Saved += n
		stats.Skipped += len(pending) - n
		ix.metrics.AddDocuments(n, len(pending)-n)
		pending = pending[:0]
		return nil
	}

	for _, rec := range records {
		stats.Seen++
		fp := vector.Fingerprint(rec.Text)
		if prev, ok := stored[rec.ID]; ok && prev == fp {
			stats.Skipped++
			ix.metrics.AddDocuments(0, 1)
			continue
		}
		emb, err := ix.embed(ctx, rec.Text)
		if err != nil {
			return stats, errors.Wrapf(err, "failed to embed %s", rec.ID)
		}
		stats.Embedded++
		ix.metrics.AddEmbeddings(1)
		if emb == nil {
			emb = []float32{}
		}
		vector.Normalize(emb)
		stored[rec.ID] = fp
		pending = append(pending, &vector.Document{
			ID:          rec.ID,
			Name:        rec.Name,
			Text:        rec.Text,
			Fingerprint: fp,
			Embedding:   emb,
		})
		if len(pending) >= ix.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}
	ix.logger.Info().Int("seen", stats.Seen).Int("skipped", stats.Skipped).
		Int("saved", stats.Saved).Int("embedded", stats.Embedded).
		Dur("took", time.Since(start)).Msg("index run complete")
	return stats, nil
}

// QueryText embeds text and returns the n most similar documents.
func (ix *Indexer) QueryText(ctx context.Context, text string, n int) ([]similarity.Result, error) {
	emb, err := ix.embed(ctx, text)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed query")
	}
	ix.metrics.AddEmbeddings(1)
	vector.Normalize(emb)
	return ix.searcher.TopN(ctx, &vector.Document{Text: text, Embedding: emb}, n)
}

// Similar returns the n documents most similar to the stored document id,
// excluding that document.
func (ix *Indexer) Similar(ctx context.Context, id string, n int) ([]similarity.Result, error) {
	if n < 1 {
		return nil, errors.Wrapf(vector.ErrInvalidQuery, "n must be positive, got %d", n)
	}
	seed, err := ix.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if seed == nil {
		return nil, errors.Wrapf(ErrUnknownDocument, "id %q", id)
	}
	results, err := ix.searcher.TopN(ctx, seed, n+1)
	if err != nil {
		return nil, err
	}
	out := results[:0]
	for _, r := range results {
		if r.Document.ID != id {
			out = append(out, r)
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}
