package analysis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/reviewlens/internal/store"
	"github.com/law-makers/reviewlens/pkg/models"
)

func newTestRunner(st store.Store) *Runner {
	return NewRunner(st, 5, 10, time.Hour)
}

func TestRunner_UnknownProduct(t *testing.T) {
	st := store.NewMemoryStore()
	r := newTestRunner(st)

	_, err := r.Stage(context.Background(), 99, StageSentiment, false)
	assert.ErrorIs(t, err, store.ErrProductNotFound)

	assert.ErrorIs(t, r.RunAll(context.Background(), 99), store.ErrProductNotFound)
	assert.ErrorIs(t, r.Reanalyze(context.Background(), 99), store.ErrProductNotFound)
}

func TestRunner_UnknownStage(t *testing.T) {
	st := store.NewMemoryStore()
	productID := seedProduct(t, st, nil)

	_, err := newTestRunner(st).Stage(context.Background(), productID, "phrenology", false)
	assert.ErrorIs(t, err, ErrUnknownStage)
}

func TestRunner_StageCachesResult(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	productID := seedProduct(t, st, []models.Review{
		review("Excellent battery, love this phone", 5, true),
	})
	r := newTestRunner(st)

	first, err := r.Stage(ctx, productID, StageSentiment, false)
	require.NoError(t, err)

	// Changing the underlying reviews must not show through the cache.
	require.NoError(t, st.ReplaceReviews(ctx, productID, []models.Review{
		review("Terrible, broke immediately", 1, false),
	}))

	second, err := r.Stage(ctx, productID, StageSentiment, false)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}

func TestRunner_ForceBypassesCache(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	productID := seedProduct(t, st, []models.Review{
		review("Excellent battery, love this phone", 5, true),
	})
	r := newTestRunner(st)

	first, err := r.Stage(ctx, productID, StageSentiment, false)
	require.NoError(t, err)

	require.NoError(t, st.ReplaceReviews(ctx, productID, []models.Review{
		review("Terrible, broke immediately, waste of money", 1, false),
	}))

	forced, err := r.Stage(ctx, productID, StageSentiment, true)
	require.NoError(t, err)

	var a, b models.SentimentResult
	require.NoError(t, json.Unmarshal(first, &a))
	require.NoError(t, json.Unmarshal(forced, &b))
	assert.Equal(t, LabelPositive, a.OverallLabel)
	assert.Equal(t, LabelNegative, b.OverallLabel)

	// The forced run replaces the cached entry for subsequent reads.
	cached, err := r.Stage(ctx, productID, StageSentiment, false)
	require.NoError(t, err)
	assert.JSONEq(t, string(forced), string(cached))
}

func TestRunner_RunAllStampsLastAnalyzed(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	productID := seedProduct(t, st, []models.Review{
		review("Great battery and excellent screen for the price", 5, true),
		review("Poor delivery experience but the camera is fine", 3, true),
	})
	r := newTestRunner(st)

	require.NoError(t, r.RunAll(ctx, productID))

	product, err := st.GetProduct(ctx, productID)
	require.NoError(t, err)
	require.NotNil(t, product.LastAnalyzed)
	assert.WithinDuration(t, time.Now().UTC(), *product.LastAnalyzed, time.Minute)

	for _, stage := range StageOrder {
		entry, err := st.LatestCacheEntry(ctx, productID, stage)
		require.NoError(t, err)
		assert.NotNil(t, entry, "stage %s should be cached", stage)
	}
}

func TestRunner_RunAllHonoursCancellation(t *testing.T) {
	st := store.NewMemoryStore()
	productID := seedProduct(t, st, []models.Review{
		review("Decent product overall, no strong feelings", 3, true),
	})
	r := newTestRunner(st)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.RunAll(ctx, productID), context.Canceled)
}

func TestRunner_ReanalyzeDropsStaleCache(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	productID := seedProduct(t, st, []models.Review{
		review("Excellent battery, love this phone", 5, true),
	})
	r := newTestRunner(st)

	_, err := r.Stage(ctx, productID, StageSentiment, false)
	require.NoError(t, err)

	require.NoError(t, st.ReplaceReviews(ctx, productID, []models.Review{
		review("Terrible, broke immediately, waste of money", 1, false),
	}))
	require.NoError(t, r.Reanalyze(ctx, productID))

	payload, err := r.Stage(ctx, productID, StageSentiment, false)
	require.NoError(t, err)

	var res models.SentimentResult
	require.NoError(t, json.Unmarshal(payload, &res))
	assert.Equal(t, LabelNegative, res.OverallLabel)
}
