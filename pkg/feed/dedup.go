package feed

import (
	"sort"

	"github.com/tradingzbotem/sparks/pkg/domain"
)

// Dedup collapses duplicate candidates by natural key (normalized title plus
// raw link). Candidates are ordered by descending publish time first, so the
// most recent occurrence of a key wins. The pass is pure and only covers a
// single collection run; cross-run dedup is the store's upsert.
func Dedup(candidates []Candidate) []Candidate {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Published.After(sorted[j].Published)
	})

	seen := make(map[string]struct{}, len(sorted))
	result := make([]Candidate, 0, len(sorted))
	for _, c := range sorted {
		key := domain.NormalizeTitle(c.Title) + "|" + c.Link
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, c)
	}
	return result
}

// ToNewsItems converts deduped candidates to domain items for the store
func ToNewsItems(candidates []Candidate) []domain.NewsItem {
	items := make([]domain.NewsItem, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, domain.NewsItem{
			Title:       c.Title,
			URL:         c.Link,
			Source:      c.Source,
			Summary:     c.Summary,
			PublishedAt: c.Published,
		})
	}
	return items
}
