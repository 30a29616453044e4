package server

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/tradingzbotem/sparks/pkg/domain"
)

// newsHandler serves a windowed, filtered news read
func (s *Server) newsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := domain.ListRequest{
		Query:       q.Get("q"),
		Sentiment:   domain.Sentiment(q.Get("sentiment")),
		IncludeDemo: q.Get("include_demo") == "true",
	}
	if hours, err := strconv.Atoi(q.Get("hours")); err == nil {
		req.Hours = hours
	}
	if minImpact, err := strconv.Atoi(q.Get("min_impact")); err == nil {
		req.MinImpact = minImpact
	}
	if v := q.Get("categories"); v != "" {
		req.Categories = splitCSV(v)
	}
	if v := q.Get("watchlist"); v != "" {
		req.Watchlist = splitCSV(v)
	}

	resp, err := s.news.ListNews(r.Context(), req)
	if err != nil {
		log.Printf("[ERROR] failed to list news: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, resp)
}

// briefHandler serves the latest brief for a window through a short-TTL
// cache. A never-generated brief is a null payload, not an error.
func (s *Server) briefHandler(w http.ResponseWriter, r *http.Request) {
	window, ok := domain.ParseWindow(r.PathValue("window"))
	if !ok {
		renderError(w, r, fmt.Errorf("invalid window, expected 24h, 48h or 72h"), http.StatusBadRequest)
		return
	}

	if brief, ok := s.briefCache.get(window); ok {
		renderJSON(w, r, http.StatusOK, map[string]any{"brief": brief})
		return
	}

	brief, err := s.briefs.GetLatestBrief(r.Context(), window)
	if err != nil {
		log.Printf("[ERROR] failed to get brief: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	s.briefCache.set(window, brief)
	renderJSON(w, r, http.StatusOK, map[string]any{"brief": brief})
}

// ingestHandler triggers one ingestion run
func (s *Server) ingestHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.jobs.Ingest(r.Context())
	if err != nil {
		log.Printf("[ERROR] ingest job failed: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, res)
}

// enrichHandler triggers one enrichment run
func (s *Server) enrichHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.jobs.EnrichPending(r.Context())
	if err != nil {
		log.Printf("[ERROR] enrich job failed: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, res)
}

// briefsHandler triggers brief synthesis for all windows
func (s *Server) briefsHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.jobs.GenerateBriefs(r.Context())
	if err != nil {
		log.Printf("[ERROR] briefs job failed: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.briefCache.invalidate()
	renderJSON(w, r, http.StatusOK, map[string]any{"ok": true, "generated": res.Generated})
}

// pipelineHandler runs the full chain, stage failures are reported in the
// response instead of failing the request
func (s *Server) pipelineHandler(w http.ResponseWriter, r *http.Request) {
	res := s.jobs.Run(r.Context())
	s.briefCache.invalidate()
	renderJSON(w, r, http.StatusOK, res)
}

// seedDemoHandler inserts the curated demo set
func (s *Server) seedDemoHandler(w http.ResponseWriter, r *http.Request) {
	seeded, err := s.jobs.SeedDemo(r.Context())
	if err != nil {
		log.Printf("[ERROR] seed demo failed: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]int{"seeded": seeded})
}

// seedBulkHandler inserts synthetic demo rows spread over a historical window
func (s *Server) seedBulkHandler(w http.ResponseWriter, r *http.Request) {
	count, _ := strconv.Atoi(r.URL.Query().Get("count"))
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	seeded, err := s.jobs.SeedBulk(r.Context(), count, days)
	if err != nil {
		log.Printf("[ERROR] seed bulk failed: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]int{"seeded": seeded})
}

// purgeSeedHandler deletes all demo rows
func (s *Server) purgeSeedHandler(w http.ResponseWriter, r *http.Request) {
	removed, err := s.jobs.PurgeSeedItems(r.Context())
	if err != nil {
		log.Printf("[ERROR] purge seed failed: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]int64{"removed": removed})
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
