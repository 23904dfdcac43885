package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/reviewlens/pkg/models"
)

func newProduct(t *testing.T, m *MemoryStore, url string) *models.Product {
	t.Helper()
	p := &models.Product{URL: url, Platform: "amazon"}
	require.NoError(t, m.CreateProduct(context.Background(), p))
	return p
}

func TestMemoryStore_ProductCRUD(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	p := newProduct(t, m, "https://www.amazon.in/dp/B0MEMSTORE")
	assert.NotZero(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := m.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.URL, got.URL)

	got.Name = "Renamed"
	require.NoError(t, m.UpdateProduct(ctx, got))
	again, err := m.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", again.Name)

	require.NoError(t, m.DeleteProduct(ctx, p.ID))
	_, err = m.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMemoryStore_GetProductByURL(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	p := newProduct(t, m, "https://www.flipkart.com/widget/p/itm123")

	got, err := m.GetProductByURL(ctx, p.URL)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = m.GetProductByURL(ctx, "https://www.flipkart.com/other/p/itm999")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMemoryStore_UpdateUnknownProduct(t *testing.T) {
	m := NewMemoryStore()
	err := m.UpdateProduct(context.Background(), &models.Product{ID: 404})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMemoryStore_ListProductsOrdered(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	a := newProduct(t, m, "https://www.amazon.in/dp/B0AAA")
	b := newProduct(t, m, "https://www.amazon.in/dp/B0BBB")

	all, err := m.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, b.ID, all[1].ID)
}

func TestMemoryStore_ReplaceReviews(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	p := newProduct(t, m, "https://www.amazon.in/dp/B0REVS")

	err := m.ReplaceReviews(ctx, p.ID, []models.Review{
		{Text: "first review", Rating: 5},
		{Text: "second review", Rating: 3},
	})
	require.NoError(t, err)

	reviews, err := m.ListReviews(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.NotZero(t, reviews[0].ID)
	assert.NotEqual(t, reviews[0].ID, reviews[1].ID)
	assert.Equal(t, p.ID, reviews[0].ProductID)

	// A replace drops the old set entirely.
	err = m.ReplaceReviews(ctx, p.ID, []models.Review{{Text: "only survivor", Rating: 4}})
	require.NoError(t, err)
	reviews, err = m.ListReviews(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "only survivor", reviews[0].Text)
}

func TestMemoryStore_ReplaceReviewsUnknownProduct(t *testing.T) {
	m := NewMemoryStore()
	err := m.ReplaceReviews(context.Background(), 404, nil)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMemoryStore_ReplaceReviewsClearsAspects(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	p := newProduct(t, m, "https://www.amazon.in/dp/B0ASPECTS")
	require.NoError(t, m.ReplaceReviews(ctx, p.ID, []models.Review{{Text: "battery is fine", Rating: 4}}))

	reviews, err := m.ListReviews(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, m.ReplaceAspects(ctx, p.ID, []models.AspectMention{
		{ReviewID: reviews[0].ID, AspectName: "battery", Sentiment: "positive"},
	}))

	// New reviews invalidate the derived mentions.
	require.NoError(t, m.ReplaceReviews(ctx, p.ID, []models.Review{{Text: "fresh set", Rating: 3}}))
	mentions, err := m.ListAspects(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, mentions)
}

func TestMemoryStore_UpdateReviewAnalysis(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	p := newProduct(t, m, "https://www.amazon.in/dp/B0ANALYSIS")
	require.NoError(t, m.ReplaceReviews(ctx, p.ID, []models.Review{{Text: "great stuff", Rating: 5}}))

	reviews, err := m.ListReviews(ctx, p.ID)
	require.NoError(t, err)
	now := time.Now().UTC()
	reviews[0].SentimentLabel = "positive"
	reviews[0].SentimentScore = 0.9
	reviews[0].SuspiciousScore = 10
	reviews[0].AnalyzedAt = &now
	require.NoError(t, m.UpdateReviewAnalysis(ctx, reviews))

	stored, err := m.ListReviews(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "positive", stored[0].SentimentLabel)
	assert.Equal(t, 0.9, stored[0].SentimentScore)
	assert.Equal(t, 10, stored[0].SuspiciousScore)
	assert.NotNil(t, stored[0].AnalyzedAt)
}

func TestMemoryStore_TopicsOrderedByNumber(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	p := newProduct(t, m, "https://www.amazon.in/dp/B0TOPICS")

	require.NoError(t, m.ReplaceTopics(ctx, p.ID, []models.Topic{
		{TopicNumber: 2, Label: "Camera Quality"},
		{TopicNumber: 1, Label: "Battery Performance"},
	}))

	topics, err := m.ListTopics(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "Battery Performance", topics[0].Label)
	assert.Equal(t, p.ID, topics[0].ProductID)
}

func TestMemoryStore_CacheNewestUnexpiredWins(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	p := newProduct(t, m, "https://www.amazon.in/dp/B0CACHE")

	base := time.Now()
	older := &models.CacheEntry{
		ProductID: p.ID, Stage: "sentiment", Result: []byte(`{"v":1}`),
		CreatedAt: base.Add(-time.Hour), ExpiresAt: base.Add(time.Hour),
	}
	newer := &models.CacheEntry{
		ProductID: p.ID, Stage: "sentiment", Result: []byte(`{"v":2}`),
		CreatedAt: base, ExpiresAt: base.Add(time.Hour),
	}
	require.NoError(t, m.AppendCacheEntry(ctx, older))
	require.NoError(t, m.AppendCacheEntry(ctx, newer))

	got, err := m.LatestCacheEntry(ctx, p.ID, "sentiment")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, `{"v":2}`, string(got.Result))
}

func TestMemoryStore_CacheExpiryAndStageIsolation(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	p := newProduct(t, m, "https://www.amazon.in/dp/B0EXPIRY")

	base := time.Now()
	expired := &models.CacheEntry{
		ProductID: p.ID, Stage: "topics", Result: []byte(`{}`),
		CreatedAt: base.Add(-2 * time.Hour), ExpiresAt: base.Add(-time.Hour),
	}
	require.NoError(t, m.AppendCacheEntry(ctx, expired))

	got, err := m.LatestCacheEntry(ctx, p.ID, "topics")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = m.LatestCacheEntry(ctx, p.ID, "sentiment")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore_DeleteCacheEntries(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	p := newProduct(t, m, "https://www.amazon.in/dp/B0PURGE")

	entry := &models.CacheEntry{
		ProductID: p.ID, Stage: "insights", Result: []byte(`{}`),
		CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, m.AppendCacheEntry(ctx, entry))
	require.NoError(t, m.DeleteCacheEntries(ctx, p.ID))

	got, err := m.LatestCacheEntry(ctx, p.ID, "insights")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore_DeleteProductCascades(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	p := newProduct(t, m, "https://www.amazon.in/dp/B0CASCADE")
	require.NoError(t, m.ReplaceReviews(ctx, p.ID, []models.Review{{Text: "soon gone", Rating: 2}}))
	require.NoError(t, m.ReplaceTopics(ctx, p.ID, []models.Topic{{TopicNumber: 1, Label: "Build Quality"}}))
	require.NoError(t, m.AppendCacheEntry(ctx, &models.CacheEntry{
		ProductID: p.ID, Stage: "sentiment", Result: []byte(`{}`),
		CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	}))

	require.NoError(t, m.DeleteProduct(ctx, p.ID))

	reviews, err := m.ListReviews(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)
	topics, err := m.ListTopics(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, topics)
	entry, err := m.LatestCacheEntry(ctx, p.ID, "sentiment")
	require.NoError(t, err)
	assert.Nil(t, entry)
}
