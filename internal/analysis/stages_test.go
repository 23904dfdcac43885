package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/law-makers/reviewlens/internal/store"
	"github.com/law-makers/reviewlens/pkg/models"
)

// seedProduct inserts a product with the given review texts and ratings.
func seedProduct(t *testing.T, st store.Store, reviews []models.Review) int64 {
	t.Helper()
	ctx := context.Background()

	p := &models.Product{URL: "https://www.amazon.in/dp/B0SEEDPROD", Platform: "amazon"}
	require.NoError(t, st.CreateProduct(ctx, p))
	require.NoError(t, st.ReplaceReviews(ctx, p.ID, reviews))
	return p.ID
}

func review(text string, rating int, verified bool) models.Review {
	return models.Review{
		Text:     text,
		Rating:   rating,
		Date:     time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		Verified: verified,
	}
}

func newTestStages(st store.Store) *Stages {
	return NewStages(st, GetClassifier(), 5, 10)
}
