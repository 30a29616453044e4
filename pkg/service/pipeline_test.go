package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradingzbotem/sparks/pkg/domain"
	"github.com/tradingzbotem/sparks/pkg/feed"
	"github.com/tradingzbotem/sparks/pkg/llm"
	"github.com/tradingzbotem/sparks/pkg/repository"
)

type fakeCollector struct {
	result feed.Result
}

func (f *fakeCollector) Collect(context.Context) feed.Result { return f.result }

type fakeSynthesizer struct {
	errs  map[domain.Window]error
	calls []domain.Window
}

func (f *fakeSynthesizer) BuildBrief(_ context.Context, w domain.Window) (*domain.Brief, error) {
	f.calls = append(f.calls, w)
	if err, ok := f.errs[w]; ok {
		return nil, err
	}
	brief := domain.EmptyBrief(w, time.Now())
	return &brief, nil
}

type fakeEnricher struct {
	tags map[string]domain.Enrichment
	err  error
}

func (f *fakeEnricher) Enrich(_ context.Context, items []domain.NewsItem) (map[string]domain.Enrichment, error) {
	if f.err != nil {
		return nil, f.err
	}
	result := make(map[string]domain.Enrichment)
	for _, item := range items {
		if tag, ok := f.tags[item.URL]; ok {
			result[item.URL] = tag
		}
	}
	return result, nil
}

func TestPipeline_Ingest(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Now()

	collector := &fakeCollector{result: feed.Result{
		Candidates: []feed.Candidate{
			{Title: "Fed holds rates", Link: "https://a/1", Source: "reuters", Published: now},
			{Title: "FED HOLDS RATES", Link: "https://a/1", Source: "reuters-alt", Published: now.Add(-time.Minute)},
			{Title: "Oil slips", Link: "https://b/1", Source: "bloomberg", Published: now},
		},
		Scanned: 2,
		Feeds:   3,
	}}

	p := NewPipeline(store, store, collector, &fakeSynthesizer{}, &fakeEnricher{}, 0)
	res, err := p.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added, "duplicate collapsed before storage")
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 3, res.Feeds)

	// second run over identical input adds nothing
	res, err = p.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
}

func TestPipeline_EnrichPending(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	_, err := store.UpsertRawNews(ctx, []domain.NewsItem{
		{Title: "raw one", URL: "https://a/1", PublishedAt: now},
		{Title: "raw two", URL: "https://a/2", PublishedAt: now},
	})
	require.NoError(t, err)

	enricher := &fakeEnricher{tags: map[string]domain.Enrichment{
		"https://a/1": {Category: "macro", Impact: 4, Sentiment: domain.SentimentNeutral},
		"https://a/2": {Category: "equities", Impact: 2, Sentiment: domain.SentimentPositive},
	}}

	p := NewPipeline(store, store, &fakeCollector{}, &fakeSynthesizer{}, enricher, 20)
	res, err := p.EnrichPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Enriched)

	items, err := store.ListUnenriched(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, items, "everything tagged")
}

func TestPipeline_EnrichPending_NoCredential(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()

	_, err := store.UpsertRawNews(ctx, []domain.NewsItem{
		{Title: "raw", URL: "https://a/1", PublishedAt: time.Now()},
	})
	require.NoError(t, err)

	p := NewPipeline(store, store, &fakeCollector{}, &fakeSynthesizer{}, &fakeEnricher{err: llm.ErrNoCredential}, 20)
	res, err := p.EnrichPending(ctx)
	require.NoError(t, err, "missing credential skips the stage quietly")
	assert.Equal(t, 0, res.Enriched)
}

func TestPipeline_GenerateBriefs(t *testing.T) {
	store := repository.NewMemoryStore()
	synth := &fakeSynthesizer{}

	p := NewPipeline(store, store, &fakeCollector{}, synth, &fakeEnricher{}, 20)
	res, err := p.GenerateBriefs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Generated)
	assert.Equal(t, domain.Windows(), synth.calls, "windows processed in order, one at a time")

	for _, w := range domain.Windows() {
		brief, err := store.GetLatestBrief(context.Background(), w)
		require.NoError(t, err)
		assert.NotNil(t, brief)
	}
}

func TestPipeline_GenerateBriefs_WindowIsolation(t *testing.T) {
	store := repository.NewMemoryStore()
	synth := &fakeSynthesizer{errs: map[domain.Window]error{
		domain.Window48h: &llm.SynthesisError{Window: domain.Window48h, Err: fmt.Errorf("backend down")},
	}}

	p := NewPipeline(store, store, &fakeCollector{}, synth, &fakeEnricher{}, 20)
	res, err := p.GenerateBriefs(context.Background())
	require.NoError(t, err, "a window failure never fails the run")
	assert.Equal(t, 2, res.Generated)

	ctx := context.Background()
	for _, w := range []domain.Window{domain.Window24h, domain.Window72h} {
		brief, err := store.GetLatestBrief(ctx, w)
		require.NoError(t, err)
		assert.NotNil(t, brief, "window %s unaffected by the 48h failure", w)
	}
	brief, err := store.GetLatestBrief(ctx, domain.Window48h)
	require.NoError(t, err)
	assert.Nil(t, brief, "failed window keeps no partial brief")
}

func TestPipeline_GenerateBriefs_NoCredential(t *testing.T) {
	store := repository.NewMemoryStore()
	synth := &fakeSynthesizer{errs: map[domain.Window]error{
		domain.Window24h: llm.ErrNoCredential,
		domain.Window48h: llm.ErrNoCredential,
		domain.Window72h: llm.ErrNoCredential,
	}}

	p := NewPipeline(store, store, &fakeCollector{}, synth, &fakeEnricher{}, 20)
	res, err := p.GenerateBriefs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Generated)
	assert.Len(t, synth.calls, 3, "every window still attempted")
}

func TestPipeline_Run(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Now()

	collector := &fakeCollector{result: feed.Result{
		Candidates: []feed.Candidate{
			{Title: "Fed holds rates", Link: "https://a/1", Source: "reuters", Published: now},
		},
		Scanned: 1,
		Feeds:   1,
	}}
	enricher := &fakeEnricher{tags: map[string]domain.Enrichment{
		"https://a/1": {Category: "macro", Impact: 4, Sentiment: domain.SentimentNeutral},
	}}

	p := NewPipeline(store, store, collector, &fakeSynthesizer{}, enricher, 20)
	res := p.Run(context.Background())

	assert.True(t, res.OK)
	assert.True(t, res.Ingest.OK)
	assert.True(t, res.Enrich.OK)
	assert.True(t, res.Brief.OK)
	assert.Empty(t, res.Ingest.Error)
}

func TestPipeline_Run_StageCapture(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()

	_, err := store.UpsertRawNews(ctx, []domain.NewsItem{
		{Title: "raw", URL: "https://a/1", PublishedAt: time.Now()},
	})
	require.NoError(t, err)

	// enrich stage fails hard, the rest of the chain still runs
	enricher := &fakeEnricher{err: fmt.Errorf("backend exploded")}
	synth := &fakeSynthesizer{}

	p := NewPipeline(store, store, &fakeCollector{}, synth, enricher, 20)
	res := p.Run(ctx)

	assert.False(t, res.OK)
	assert.True(t, res.Ingest.OK)
	assert.False(t, res.Enrich.OK)
	assert.Contains(t, res.Enrich.Error, "backend exploded")
	assert.True(t, res.Brief.OK)
	assert.Len(t, synth.calls, 3, "brief stage ran despite the enrich failure")
}

func TestPipeline_SeedAndPurge(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()

	p := NewPipeline(store, store, &fakeCollector{}, &fakeSynthesizer{}, &fakeEnricher{}, 20)

	n, err := p.SeedDemo(ctx)
	require.NoError(t, err)
	assert.Positive(t, n)

	bulk, err := p.SeedBulk(ctx, 5, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, bulk)

	removed, err := p.PurgeSeedItems(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, n+bulk, removed)
}
