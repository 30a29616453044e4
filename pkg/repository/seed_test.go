package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradingzbotem/sparks/pkg/domain"
)

func TestSeedDemo(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	n, err := SeedDemo(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, len(demoHeadlines), n)

	resp, err := store.ListNews(ctx, domain.ListRequest{Hours: 72, IncludeDemo: true})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Items)
	for _, item := range resp.Items {
		assert.True(t, item.IsDemo)
		assert.Equal(t, "demo", item.Source)
		assert.NotEmpty(t, item.Category, "demo rows come pre-enriched")
	}

	// demo rows stay invisible without the explicit flag
	resp, err = store.ListNews(ctx, domain.ListRequest{Hours: 72})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
}

func TestSeedDemo_Idempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := SeedDemo(ctx, store)
	require.NoError(t, err)
	_, err = SeedDemo(ctx, store)
	require.NoError(t, err)

	resp, err := store.ListNews(ctx, domain.ListRequest{Hours: 72, IncludeDemo: true})
	require.NoError(t, err)
	assert.Len(t, resp.Items, len(demoHeadlines), "re-seeding does not duplicate rows")
}

func TestSeedBulk(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	n, err := SeedBulk(ctx, store, 30, 3)
	require.NoError(t, err)
	assert.Equal(t, 30, n)

	resp, err := store.ListNews(ctx, domain.ListRequest{Hours: 72, IncludeDemo: true})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 30)

	// items spread across the span, some fall outside the 24h window
	resp, err = store.ListNews(ctx, domain.ListRequest{Hours: 24, IncludeDemo: true})
	require.NoError(t, err)
	assert.Less(t, len(resp.Items), 30)
	assert.NotEmpty(t, resp.Items)
}

func TestSeedBulk_Defaults(t *testing.T) {
	store := NewMemoryStore()

	n, err := SeedBulk(context.Background(), store, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}

func TestSeedPurgeRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := SeedDemo(ctx, store)
	require.NoError(t, err)
	_, err = SeedBulk(ctx, store, 10, 2)
	require.NoError(t, err)

	removed, err := store.PurgeSeedItems(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, len(demoHeadlines)+10, removed)

	resp, err := store.ListNews(ctx, domain.ListRequest{Hours: 72, IncludeDemo: true})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
}
