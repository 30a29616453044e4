package service

import (
	"context"
	"errors"

	"github.com/go-pkgz/lgr"

	"github.com/tradingzbotem/sparks/pkg/domain"
	"github.com/tradingzbotem/sparks/pkg/feed"
	"github.com/tradingzbotem/sparks/pkg/llm"
	"github.com/tradingzbotem/sparks/pkg/repository"
)

// Collector fans out over the configured feed sources
type Collector interface {
	Collect(ctx context.Context) feed.Result
}

// Synthesizer builds one brief per window
type Synthesizer interface {
	BuildBrief(ctx context.Context, window domain.Window) (*domain.Brief, error)
}

// Enricher tags raw headlines with metadata
type Enricher interface {
	Enrich(ctx context.Context, items []domain.NewsItem) (map[string]domain.Enrichment, error)
}

// Pipeline chains ingest, enrich and brief synthesis over the shared stores.
// Every stage is idempotent, so schedulers can retry the whole chain.
type Pipeline struct {
	news        repository.NewsStore
	briefs      repository.BriefStore
	collector   Collector
	synthesizer Synthesizer
	enricher    Enricher
	enrichBatch int
}

// NewPipeline wires the pipeline stages together
func NewPipeline(news repository.NewsStore, briefs repository.BriefStore,
	collector Collector, synthesizer Synthesizer, enricher Enricher, enrichBatch int) *Pipeline {
	if enrichBatch <= 0 {
		enrichBatch = 20
	}
	return &Pipeline{
		news:        news,
		briefs:      briefs,
		collector:   collector,
		synthesizer: synthesizer,
		enricher:    enricher,
		enrichBatch: enrichBatch,
	}
}

// IngestResult reports one ingestion run
type IngestResult struct {
	Added   int `json:"added"`
	Scanned int `json:"scanned"`
	Feeds   int `json:"feeds"`
}

// EnrichResult reports one enrichment run
type EnrichResult struct {
	Enriched int `json:"enriched"`
}

// BriefsResult reports one synthesis run across all windows
type BriefsResult struct {
	Generated int `json:"generated"`
}

// StageStatus captures one stage of the chained run
type StageStatus struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// RunResult is the outcome of the full ingest -> enrich -> synthesize chain.
// Stage failures are captured here instead of aborting the chain.
type RunResult struct {
	OK     bool        `json:"ok"`
	Ingest StageStatus `json:"ingest"`
	Enrich StageStatus `json:"enrich"`
	Brief  StageStatus `json:"brief"`
}

// Ingest collects all sources, dedups the run's candidates and upserts them.
// Source failures degrade the result set and never fail the run.
func (p *Pipeline) Ingest(ctx context.Context) (IngestResult, error) {
	collected := p.collector.Collect(ctx)
	deduped := feed.Dedup(collected.Candidates)

	added, err := p.news.UpsertRawNews(ctx, feed.ToNewsItems(deduped))
	if err != nil {
		return IngestResult{}, err
	}

	lgr.Printf("[INFO] ingest done: %d added, %d scanned of %d feeds", added, collected.Scanned, collected.Feeds)
	return IngestResult{Added: added, Scanned: collected.Scanned, Feeds: collected.Feeds}, nil
}

// EnrichPending tags the next batch of unenriched items. A missing credential
// skips the stage quietly.
func (p *Pipeline) EnrichPending(ctx context.Context) (EnrichResult, error) {
	items, err := p.news.ListUnenriched(ctx, p.enrichBatch)
	if err != nil {
		return EnrichResult{}, err
	}
	if len(items) == 0 {
		return EnrichResult{}, nil
	}

	enrichments, err := p.enricher.Enrich(ctx, items)
	if err != nil {
		if errors.Is(err, llm.ErrNoCredential) {
			lgr.Printf("[WARN] enrichment skipped, no credential configured")
			return EnrichResult{}, nil
		}
		return EnrichResult{}, err
	}

	enriched := 0
	for url, e := range enrichments {
		if err := p.news.UpdateEnrichment(ctx, url, e); err != nil {
			lgr.Printf("[WARN] failed to store enrichment for %s: %v", url, err)
			continue
		}
		enriched++
	}

	lgr.Printf("[INFO] enriched %d of %d items", enriched, len(items))
	return EnrichResult{Enriched: enriched}, nil
}

// GenerateBriefs synthesizes and stores a brief for each window in sequence.
// Windows are processed one at a time to bound load on the summarization
// backend, and a failure in one window never blocks the others.
func (p *Pipeline) GenerateBriefs(ctx context.Context) (BriefsResult, error) {
	generated := 0
	for _, window := range domain.Windows() {
		brief, err := p.synthesizer.BuildBrief(ctx, window)
		switch {
		case errors.Is(err, llm.ErrNoCredential):
			lgr.Printf("[WARN] %s brief skipped, no credential configured", window)
			continue
		case err != nil:
			lgr.Printf("[ERROR] %s brief failed: %v", window, err)
			continue
		}

		if err := p.briefs.UpsertBrief(ctx, *brief); err != nil {
			lgr.Printf("[ERROR] failed to store %s brief: %v", window, err)
			continue
		}
		generated++
	}

	lgr.Printf("[INFO] generated %d briefs", generated)
	return BriefsResult{Generated: generated}, nil
}

// Run executes the full chain with per-stage failure isolation
func (p *Pipeline) Run(ctx context.Context) RunResult {
	res := RunResult{
		Ingest: StageStatus{OK: true},
		Enrich: StageStatus{OK: true},
		Brief:  StageStatus{OK: true},
	}

	if _, err := p.Ingest(ctx); err != nil {
		lgr.Printf("[ERROR] ingest stage failed: %v", err)
		res.Ingest = StageStatus{Error: err.Error()}
	}
	if _, err := p.EnrichPending(ctx); err != nil {
		lgr.Printf("[ERROR] enrich stage failed: %v", err)
		res.Enrich = StageStatus{Error: err.Error()}
	}
	if _, err := p.GenerateBriefs(ctx); err != nil {
		lgr.Printf("[ERROR] brief stage failed: %v", err)
		res.Brief = StageStatus{Error: err.Error()}
	}

	res.OK = res.Ingest.OK && res.Enrich.OK && res.Brief.OK
	return res
}

// SeedDemo inserts the curated demo set
func (p *Pipeline) SeedDemo(ctx context.Context) (int, error) {
	return repository.SeedDemo(ctx, p.news)
}

// SeedBulk inserts count synthetic demo items spread over days
func (p *Pipeline) SeedBulk(ctx context.Context, count, days int) (int, error) {
	return repository.SeedBulk(ctx, p.news, count, days)
}

// PurgeSeedItems removes all demo rows
func (p *Pipeline) PurgeSeedItems(ctx context.Context) (int64, error) {
	return p.news.PurgeSeedItems(ctx)
}
