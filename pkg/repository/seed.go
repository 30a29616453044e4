package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/tradingzbotem/sparks/pkg/domain"
)

// demoHeadlines is a curated set inserted by SeedDemo. Every row is marked
// is_demo so default reads never see it and PurgeSeedItems can drop the
// whole batch.
var demoHeadlines = []struct {
	title     string
	category  string
	impact    int
	sentiment domain.Sentiment
	tickers   []string
}{
	{"Fed leaves rates unchanged, signals two cuts this year", "macro", 5, domain.SentimentPositive, []string{"SPX", "US10Y"}},
	{"Tech megacaps lead broad market rally on AI capex optimism", "equities", 4, domain.SentimentPositive, []string{"NVDA", "MSFT"}},
	{"Oil slips as OPEC+ weighs output increase", "commodities", 3, domain.SentimentNegative, []string{"BRENT", "WTI"}},
	{"Euro steadies after ECB flags sticky services inflation", "fx", 3, domain.SentimentNeutral, []string{"EURUSD"}},
	{"Bitcoin holds above key support amid ETF inflows", "crypto", 3, domain.SentimentPositive, []string{"BTCUSD"}},
	{"Bond yields ease on softer-than-expected jobs data", "macro", 4, domain.SentimentNeutral, []string{"US2Y", "US10Y"}},
	{"Retail earnings beat estimates, consumer still resilient", "equities", 3, domain.SentimentPositive, []string{"WMT", "TGT"}},
	{"Gold hits record as central banks extend buying streak", "commodities", 4, domain.SentimentPositive, []string{"XAUUSD"}},
}

// SeedDemo inserts the curated demo set spread over the last three days.
// Idempotent: re-running refreshes timestamps without duplicating rows.
func SeedDemo(ctx context.Context, store NewsStore) (int, error) {
	now := time.Now().UTC()
	items := make([]domain.NewsItem, 0, len(demoHeadlines))
	for i, h := range demoHeadlines {
		items = append(items, domain.NewsItem{
			Title:       h.title,
			URL:         fmt.Sprintf("https://demo.sparks.local/news/%d", i+1),
			Source:      "demo",
			Summary:     "Seeded demo headline for empty environments.",
			PublishedAt: now.Add(-time.Duration(i*9) * time.Hour),
			Category:    h.category,
			Impact:      h.impact,
			Sentiment:   h.sentiment,
			Instruments: h.tickers,
			IsDemo:      true,
		})
	}

	if _, err := store.UpsertRawNews(ctx, items); err != nil {
		return 0, fmt.Errorf("seed demo: %w", err)
	}
	return len(items), nil
}

// SeedBulk generates count synthetic demo items spread evenly across the
// last days days
func SeedBulk(ctx context.Context, store NewsStore, count, days int) (int, error) {
	if count <= 0 {
		count = 50
	}
	if days <= 0 {
		days = 3
	}

	categories := []string{"macro", "equities", "fx", "commodities", "crypto"}
	sentiments := []domain.Sentiment{domain.SentimentPositive, domain.SentimentNegative, domain.SentimentNeutral}
	span := time.Duration(days) * 24 * time.Hour
	now := time.Now().UTC()

	items := make([]domain.NewsItem, 0, count)
	for i := 0; i < count; i++ {
		offset := span * time.Duration(i) / time.Duration(count)
		items = append(items, domain.NewsItem{
			Title:       fmt.Sprintf("Synthetic market update %d: sector rotation continues", i+1),
			URL:         fmt.Sprintf("https://demo.sparks.local/bulk/%d", i+1),
			Source:      "demo",
			Summary:     "Synthetic bulk-seeded headline.",
			PublishedAt: now.Add(-offset),
			Category:    categories[i%len(categories)],
			Impact:      1 + i%5,
			Sentiment:   sentiments[i%len(sentiments)],
			IsDemo:      true,
		})
	}

	if _, err := store.UpsertRawNews(ctx, items); err != nil {
		return 0, fmt.Errorf("seed bulk: %w", err)
	}
	return len(items), nil
}
