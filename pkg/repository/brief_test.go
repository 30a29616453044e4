package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradingzbotem/sparks/pkg/domain"
)

func TestBriefRepository_UpsertAndGet(t *testing.T) {
	stores := setupTestStores(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	brief := domain.Brief{
		ID:          domain.NewBriefID(domain.Window24h, now),
		Window:      domain.Window24h,
		GeneratedAt: now,
		Bullets: domain.BriefBullets{
			What:  []string{"Fed held rates"},
			Why:   []string{"inflation cooling"},
			Watch: []string{"payrolls on friday"},
		},
		Extended:   "A quiet session overall.",
		Disclaimer: domain.Disclaimer,
	}
	require.NoError(t, stores.Brief.UpsertBrief(ctx, brief))

	got, err := stores.Brief.GetLatestBrief(ctx, domain.Window24h)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, brief.ID, got.ID)
	assert.Equal(t, domain.Window24h, got.Window)
	assert.Equal(t, brief.Bullets, got.Bullets)
	assert.Equal(t, brief.Extended, got.Extended)
	assert.Equal(t, domain.Disclaimer, got.Disclaimer)
	assert.WithinDuration(t, now, got.GeneratedAt, time.Second)
}

func TestBriefRepository_UpsertReplacesByWindow(t *testing.T) {
	stores := setupTestStores(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := domain.EmptyBrief(domain.Window48h, now.Add(-time.Hour))
	require.NoError(t, stores.Brief.UpsertBrief(ctx, first))

	second := domain.Brief{
		ID:          domain.NewBriefID(domain.Window48h, now),
		Window:      domain.Window48h,
		GeneratedAt: now,
		Bullets:     domain.BriefBullets{What: []string{"markets rallied"}, Why: []string{}, Watch: []string{}},
		Disclaimer:  domain.Disclaimer,
	}
	require.NoError(t, stores.Brief.UpsertBrief(ctx, second))

	got, err := stores.Brief.GetLatestBrief(ctx, domain.Window48h)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID, "newer brief replaced the older one")
	assert.Equal(t, []string{"markets rallied"}, got.Bullets.What)
}

func TestBriefRepository_GetMissing(t *testing.T) {
	stores := setupTestStores(t)

	got, err := stores.Brief.GetLatestBrief(context.Background(), domain.Window72h)
	require.NoError(t, err)
	assert.Nil(t, got, "no brief generated yet means nil, not an error")
}

func TestBriefRepository_WindowsIsolated(t *testing.T) {
	stores := setupTestStores(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, w := range domain.Windows() {
		require.NoError(t, stores.Brief.UpsertBrief(ctx, domain.EmptyBrief(w, now)))
	}

	for _, w := range domain.Windows() {
		got, err := stores.Brief.GetLatestBrief(ctx, w)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, w, got.Window)
	}
}

func TestBriefRepository_EmptyBulletsRoundTrip(t *testing.T) {
	stores := setupTestStores(t)
	ctx := context.Background()

	require.NoError(t, stores.Brief.UpsertBrief(ctx, domain.EmptyBrief(domain.Window24h, time.Now().UTC())))

	got, err := stores.Brief.GetLatestBrief(ctx, domain.Window24h)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotNil(t, got.Bullets.What)
	assert.NotNil(t, got.Bullets.Why)
	assert.NotNil(t, got.Bullets.Watch)
	assert.Empty(t, got.Bullets.What)
}
