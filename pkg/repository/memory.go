package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tradingzbotem/sparks/pkg/domain"
)

// MemoryStore is an in-memory backend implementing both NewsStore and
// BriefStore behind a mutex. Used for tests and environments without a
// database; same upsert semantics as the SQLite backend.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	byKey  map[string]domain.NewsItem
	briefs map[domain.Window]domain.Brief
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		byKey:  make(map[string]domain.NewsItem),
		briefs: make(map[domain.Window]domain.Brief),
	}
}

// UpsertRawNews inserts or updates items by natural key, returns new-row count
func (s *MemoryStore) UpsertRawNews(_ context.Context, items []domain.NewsItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	now := time.Now()
	for _, item := range items {
		key := item.NaturalKey()
		if existing, ok := s.byKey[key]; ok {
			// enrichment fields survive re-ingestion
			existing.Title = item.Title
			existing.URL = item.URL
			existing.Source = item.Source
			existing.Summary = item.Summary
			existing.PublishedAt = item.PublishedAt
			existing.UpdatedAt = now
			s.byKey[key] = existing
			continue
		}
		item.ID = s.nextID
		s.nextID++
		item.CreatedAt = now
		item.UpdatedAt = now
		s.byKey[key] = item
		added++
	}
	return added, nil
}

// ListNews filters items the same way the SQLite backend does
func (s *MemoryStore) ListNews(_ context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hours := domain.NormalizeHours(req.Hours)
	now := time.Now()
	since := now.Add(-time.Duration(hours) * time.Hour)
	query := strings.ToLower(req.Query)

	matched := make([]domain.NewsItem, 0)
	for _, item := range s.byKey {
		if item.PublishedAt.Before(since) || item.PublishedAt.After(now) {
			continue
		}
		if item.IsDemo && !req.IncludeDemo {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(item.Title), query) &&
			!strings.Contains(strings.ToLower(item.Summary), query) {
			continue
		}
		if len(req.Categories) > 0 && !contains(req.Categories, item.Category) {
			continue
		}
		if req.MinImpact > 0 && item.Impact < req.MinImpact {
			continue
		}
		if req.Sentiment != "" && req.Sentiment != domain.SentimentAny && item.Sentiment != req.Sentiment {
			continue
		}
		if !req.Matches(item) {
			continue
		}
		matched = append(matched, item)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].PublishedAt.After(matched[j].PublishedAt) })
	if req.Limit > 0 && len(matched) > req.Limit {
		matched = matched[:req.Limit]
	}

	resp := domain.ListResponse{Items: matched}
	for _, item := range matched {
		if resp.UpdatedAt == nil || item.PublishedAt.After(*resp.UpdatedAt) {
			ts := item.PublishedAt
			resp.UpdatedAt = &ts
		}
	}
	return resp, nil
}

// ListUnenriched returns most recent items without enrichment metadata
func (s *MemoryStore) ListUnenriched(_ context.Context, limit int) ([]domain.NewsItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]domain.NewsItem, 0)
	for _, item := range s.byKey {
		if item.Category == "" && !item.IsDemo {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].PublishedAt.After(items[j].PublishedAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// UpdateEnrichment stores enrichment metadata for the item with the given URL
func (s *MemoryStore) UpdateEnrichment(_ context.Context, url string, e domain.Enrichment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, item := range s.byKey {
		if item.URL != url {
			continue
		}
		item.Category = e.Category
		item.Impact = e.Impact
		item.Sentiment = e.Sentiment
		item.Instruments = e.Instruments
		item.UpdatedAt = time.Now()
		s.byKey[key] = item
	}
	return nil
}

// PurgeSeedItems deletes all demo rows
func (s *MemoryStore) PurgeSeedItems(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, item := range s.byKey {
		if item.IsDemo {
			delete(s.byKey, key)
			removed++
		}
	}
	return removed, nil
}

// UpsertBrief replaces the latest brief for the brief's window
func (s *MemoryStore) UpsertBrief(_ context.Context, brief domain.Brief) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.briefs[brief.Window] = brief
	return nil
}

// GetLatestBrief returns the latest brief for the window or nil
func (s *MemoryStore) GetLatestBrief(_ context.Context, window domain.Window) (*domain.Brief, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	brief, ok := s.briefs[window]
	if !ok {
		return nil, nil
	}
	return &brief, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
