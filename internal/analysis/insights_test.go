package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/reviewlens/internal/store"
	"github.com/law-makers/reviewlens/pkg/models"
)

func TestInsights_UnknownProduct(t *testing.T) {
	st := store.NewMemoryStore()
	_, err := newTestStages(st).Insights(context.Background(), 42)
	assert.ErrorIs(t, err, store.ErrProductNotFound)
}

func TestInsights_EmptyProductDefaults(t *testing.T) {
	st := store.NewMemoryStore()
	productID := seedProduct(t, st, nil)

	res, err := newTestStages(st).Insights(context.Background(), productID)
	require.NoError(t, err)

	assert.Equal(t, 50.0, res.OverallScore)
	assert.Zero(t, res.TotalReviews)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}, res.RatingDistribution)
	assert.Empty(t, res.TopPositive)
	assert.Empty(t, res.CommonPraises)
}

func TestInsights_AggregatesAfterEarlierStages(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	productID := seedProduct(t, st, []models.Review{
		review("Amazing product, excellent battery and great camera overall", 5, true),
		review("Love the smooth display, wonderful purchase", 5, true),
		review("Terrible quality, broke within days, waste of money", 1, true),
	})

	stages := newTestStages(st)
	_, err := stages.Sentiment(ctx, productID)
	require.NoError(t, err)
	_, err = stages.FakeDetection(ctx, productID)
	require.NoError(t, err)

	res, err := stages.Insights(ctx, productID)
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalReviews)
	assert.Equal(t, 2, res.RatingDistribution[5])
	assert.Equal(t, 1, res.RatingDistribution[1])
	assert.InDelta(t, 3.67, res.AvgRating, 0.01)

	assert.Equal(t, 2, res.Sentiment.Positive)
	assert.Equal(t, 1, res.Sentiment.Negative)
	assert.Greater(t, res.OverallScore, 50.0)
	assert.LessOrEqual(t, res.OverallScore, 100.0)

	require.NotEmpty(t, res.TopPositive)
	assert.LessOrEqual(t, len(res.TopPositive), 5)
	require.Len(t, res.TopNegative, 1)
	assert.Equal(t, 1, res.TopNegative[0].Rating)

	assert.Equal(t, res.FakeReviewCount, 0)
}

func TestInsights_TopListsCappedAndSorted(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	var reviews []models.Review
	for i := 0; i < 7; i++ {
		reviews = append(reviews, review("Excellent product, amazing quality and great value here", 5, true))
	}
	productID := seedProduct(t, st, reviews)

	stages := newTestStages(st)
	_, err := stages.Sentiment(ctx, productID)
	require.NoError(t, err)

	res, err := stages.Insights(ctx, productID)
	require.NoError(t, err)
	assert.Len(t, res.TopPositive, 5)
	for i := 1; i < len(res.TopPositive); i++ {
		assert.GreaterOrEqual(t, res.TopPositive[i-1].SentimentScore, res.TopPositive[i].SentimentScore)
	}
}

func TestInsights_TruncatesRankedText(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	long := "Excellent product, amazing in every way. " + strings.Repeat("More detail follows here. ", 30)
	productID := seedProduct(t, st, []models.Review{review(long, 5, true)})

	stages := newTestStages(st)
	_, err := stages.Sentiment(ctx, productID)
	require.NoError(t, err)

	res, err := stages.Insights(ctx, productID)
	require.NoError(t, err)
	require.Len(t, res.TopPositive, 1)
	assert.LessOrEqual(t, len(res.TopPositive[0].Text), 303)
	assert.True(t, strings.HasSuffix(res.TopPositive[0].Text, "..."))
}

func TestInsights_PraiseTermsBoosted(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	// "excellent" appears once per review but carries the 3x boost, so it
	// outranks "keyboard" which appears twice as often.
	productID := seedProduct(t, st, []models.Review{
		review("excellent keyboard keyboard layout love typing", 5, true),
		review("excellent keyboard keyboard feel love typing", 5, true),
	})

	stages := newTestStages(st)
	_, err := stages.Sentiment(ctx, productID)
	require.NoError(t, err)

	res, err := stages.Insights(ctx, productID)
	require.NoError(t, err)
	require.NotEmpty(t, res.CommonPraises)
	assert.Equal(t, "excellent", res.CommonPraises[0])
}

func TestInsights_FakeCountsAfterDetection(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	productID := seedProduct(t, st, []models.Review{
		review("bad", 1, false),
		review("A fair and measured review of the battery and screen over several weeks of use", 4, true),
	})

	stages := newTestStages(st)
	_, err := stages.FakeDetection(ctx, productID)
	require.NoError(t, err)

	res, err := stages.Insights(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FakeReviewCount)
	assert.InDelta(t, 50.0, res.FakeReviewPercent, 0.01)
}

func TestCommonKeywords_Ordering(t *testing.T) {
	reviews := []models.Review{
		{Text: "battery battery battery screen screen camera"},
	}
	got := commonKeywords(reviews, map[string]bool{}, 10)
	assert.Equal(t, []string{"battery", "screen", "camera"}, got)
}
