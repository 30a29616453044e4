package domain

import (
	"strings"
	"time"
)

// Sentiment is the stored sentiment label for a news item
type Sentiment string

// sentiment values, SentimentAny is only valid in filters
const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentAny      Sentiment = "any"
)

// NewsItem represents a single market-news headline
type NewsItem struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`

	// enrichment metadata, empty until the enrichment stage runs
	Category    string    `json:"category,omitempty"`
	Impact      int       `json:"impact,omitempty"` // ordinal 1-5, 0 means not enriched
	Sentiment   Sentiment `json:"sentiment,omitempty"`
	Instruments []string  `json:"instruments,omitempty"`

	IsDemo    bool      `json:"isDemo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Enrichment holds the metadata produced by the enrichment stage
type Enrichment struct {
	Category    string
	Impact      int
	Sentiment   Sentiment
	Instruments []string
}

// NaturalKey returns the dedup key for the item: normalized title plus raw URL.
// Two items with the same natural key are the same logical item.
func (n NewsItem) NaturalKey() string {
	return NormalizeTitle(n.Title) + "|" + n.URL
}

// NormalizeTitle lowercases a title and collapses internal whitespace
func NormalizeTitle(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ListRequest filters a windowed news read
type ListRequest struct {
	Hours       int // one of 24/48/72, anything else coerces to 72
	Query       string
	Categories  []string
	MinImpact   int
	Sentiment   Sentiment
	Watchlist   []string
	IncludeDemo bool
	Limit       int // 0 means no limit
}

// ListResponse is the result of a windowed news read. UpdatedAt is the max
// PublishedAt among returned items, nil when the set is empty.
type ListResponse struct {
	Items     []NewsItem `json:"items"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

// NormalizeHours coerces an hours value to a supported window size
func NormalizeHours(h int) int {
	switch h {
	case 24, 48, 72:
		return h
	default:
		return 72
	}
}

// Matches checks request filters that are not expressible in the storage
// layer query, currently the watchlist intersection
func (r ListRequest) Matches(item NewsItem) bool {
	if len(r.Watchlist) == 0 {
		return true
	}
	for _, w := range r.Watchlist {
		for _, inst := range item.Instruments {
			if strings.EqualFold(w, inst) {
				return true
			}
		}
	}
	return false
}
