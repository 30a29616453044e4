package feed

import (
	"context"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"
)

// Source is one upstream feed to collect from
type Source struct {
	Name string
	URL  string
}

// Collector fetches all configured sources concurrently and flattens the
// surviving candidates into a single list
type Collector struct {
	parser  CandidateParser
	sources []Source
	timeout time.Duration
}

// CandidateParser parses a single feed into candidates
type CandidateParser interface {
	Parse(ctx context.Context, source, url string) ([]Candidate, error)
}

// Result is the outcome of one collection run. Scanned counts only the
// sources that responded; failed sources degrade the result, never fail it.
type Result struct {
	Candidates []Candidate
	Scanned    int
	Feeds      int
}

// NewCollector creates a collector over a static source list. Each source
// fetch is bounded by timeout independently of its siblings.
func NewCollector(parser CandidateParser, sources []Source, timeout time.Duration) *Collector {
	if timeout == 0 {
		timeout = 8 * time.Second
	}
	return &Collector{parser: parser, sources: sources, timeout: timeout}
}

// Collect fans out over all sources, waits for every fetch to finish or time
// out, and returns the flat candidate list. A source failure is logged and
// contributes zero items.
func (c *Collector) Collect(ctx context.Context) Result {
	var mu sync.Mutex
	res := Result{Feeds: len(c.sources)}

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range c.sources {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, c.timeout)
			defer cancel()

			candidates, err := c.parser.Parse(fetchCtx, src.Name, src.URL)
			if err != nil {
				lgr.Printf("[WARN] feed %s failed: %v", src.Name, err)
				return nil // sibling fetches keep going
			}

			mu.Lock()
			res.Candidates = append(res.Candidates, candidates...)
			res.Scanned++
			mu.Unlock()

			lgr.Printf("[DEBUG] feed %s returned %d candidates", src.Name, len(candidates))
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	lgr.Printf("[INFO] collected %d candidates from %d/%d feeds", len(res.Candidates), res.Scanned, res.Feeds)
	return res
}
