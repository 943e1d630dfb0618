package indexer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/mediavec/engine"
	"github.com/viant/mediavec/observability"
	"github.com/viant/mediavec/similarity"
	"github.com/viant/mediavec/store"
	"github.com/viant/mediavec/vector"
)

// keywordEmbedder maps text onto a fixed vocabulary, one dimension per word.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls []string
	fail  string
}

var vocabulary = []string{"space", "war", "love", "comedy", "robot"}

func (e *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	e.mu.Unlock()
	if e.fail != "" && text == e.fail {
		return nil, errors.New("provider unavailable")
	}
	out := make([]float32, len(vocabulary))
	for _, w := range strings.Fields(strings.ToLower(text)) {
		for i, v := range vocabulary {
			if w == v {
				out[i]++
			}
		}
	}
	return out, nil
}

func (e *keywordEmbedder) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

type fixture struct {
	store    *store.Store
	embedder *keywordEmbedder
	indexer  *Indexer
	metrics  *observability.Metrics
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db, err := engine.Open(filepath.Join(t.TempDir(), "media.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st, err := store.New(db)
	require.NoError(t, err)
	require.NoError(t, st.Init(context.Background()))

	metrics, err := observability.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	emb := &keywordEmbedder{}
	opts = append([]Option{WithMetrics(metrics)}, opts...)
	ix, err := New(st, similarity.New(st), emb.Embed, opts...)
	require.NoError(t, err)
	return &fixture{store: st, embedder: emb, indexer: ix, metrics: metrics}
}

func catalog() []Record {
	return []Record{
		{ID: "m1", Name: "Star Battle", Text: "space war"},
		{ID: "m2", Name: "Robot Heart", Text: "robot love"},
		{ID: "m3", Name: "Laugh Track", Text: "comedy"},
		{ID: "m4", Name: "Orbit", Text: "space robot"},
	}
}

func staticProducer(records []Record) Producer {
	return ProducerFunc(func(ctx context.Context) ([]Record, error) { return records, nil })
}

func TestNew_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := New(nil, similarity.New(f.store), f.embedder.Embed)
	assert.Error(t, err)
	_, err = New(f.store, nil, f.embedder.Embed)
	assert.Error(t, err)
	_, err = New(f.store, similarity.New(f.store), nil)
	assert.Error(t, err)
}

func TestRun_EmbedsOnlyChangedRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithBatchSize(3))

	stats, err := f.indexer.Run(ctx, staticProducer(catalog()))
	require.NoError(t, err)
	assert.Equal(t, Stats{Seen: 4, Saved: 4, Embedded: 4}, stats)
	assert.Len(t, f.embedder.Calls(), 4)

	stored, err := f.store.Get(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, vector.Fingerprint("space war"), stored.Fingerprint)
	assert.InDelta(t, 1.0, vector.Dot(stored.Embedding, stored.Embedding), 1e-6)

	changed := catalog()
	changed[2].Text = "comedy love"
	stats, err = f.indexer.Run(ctx, staticProducer(changed))
	require.NoError(t, err)
	assert.Equal(t, Stats{Seen: 4, Skipped: 3, Saved: 1, Embedded: 1}, stats)
	calls := f.embedder.Calls()
	require.Len(t, calls, 5)
	assert.Equal(t, "comedy love", calls[4])

	assert.Equal(t, 8.0, testutil.ToFloat64(f.metrics.DocumentsTotal.WithLabelValues("saved"))+
		testutil.ToFloat64(f.metrics.DocumentsTotal.WithLabelValues("skipped")))
	assert.Equal(t, 5.0, testutil.ToFloat64(f.metrics.EmbeddingsTotal))
}

func TestRun_DuplicateIDsInOneRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	records := []Record{
		{ID: "m1", Name: "Star Battle", Text: "space war"},
		{ID: "m1", Name: "Star Battle", Text: "space war"},
	}
	stats, err := f.indexer.Run(ctx, staticProducer(records))
	require.NoError(t, err)
	assert.Equal(t, Stats{Seen: 2, Skipped: 1, Saved: 1, Embedded: 1}, stats)
}

func TestRun_EmbedFailureStopsWithoutRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithBatchSize(1))
	f.embedder.fail = "comedy"

	stats, err := f.indexer.Run(ctx, staticProducer(catalog()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m3")
	assert.Equal(t, 2, stats.Saved)
	assert.Len(t, f.embedder.Calls(), 3)

	n, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRun_ProducerFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("catalog down")
	_, err := f.indexer.Run(context.Background(), ProducerFunc(func(ctx context.Context) ([]Record, error) {
		return nil, boom
	}))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.embedder.Calls())
}

func TestRun_InvalidRecordRollsBackBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	records := append(catalog(), Record{ID: "", Name: "Nameless", Text: "war"})
	_, err := f.indexer.Run(ctx, staticProducer(records))
	assert.ErrorIs(t, err, vector.ErrInvalidDocument)

	n, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestQueryText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.indexer.Run(ctx, staticProducer(catalog()))
	require.NoError(t, err)

	results, err := f.indexer.QueryText(ctx, "robot", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	ids := []string{results[0].Document.ID, results[1].Document.ID}
	assert.ElementsMatch(t, []string{"m2", "m4"}, ids)
	assert.InDelta(t, 0.7071, results[0].Score, 1e-3)

	_, err = f.indexer.QueryText(ctx, "robot", 0)
	assert.ErrorIs(t, err, vector.ErrInvalidQuery)
}

func TestSimilar(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.indexer.Run(ctx, staticProducer(catalog()))
	require.NoError(t, err)

	results, err := f.indexer.Similar(ctx, "m4", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotEqual(t, "m4", r.Document.ID)
	}
	assert.ElementsMatch(t, []string{"m1", "m2"}, []string{results[0].Document.ID, results[1].Document.ID})

	all, err := f.indexer.Similar(ctx, "m4", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.indexer.Similar(ctx, "missing", 2)
	assert.ErrorIs(t, err, ErrUnknownDocument)

	_, err = f.indexer.Similar(ctx, "m4", 0)
	assert.ErrorIs(t, err, vector.ErrInvalidQuery)
}
