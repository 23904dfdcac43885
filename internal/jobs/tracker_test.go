package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/reviewlens/internal/analysis"
	"github.com/law-makers/reviewlens/internal/platform"
	"github.com/law-makers/reviewlens/internal/scrape"
	"github.com/law-makers/reviewlens/internal/store"
	"github.com/law-makers/reviewlens/pkg/models"
)

const trackerTestURL = "https://www.amazon.in/dp/B0TRACKTEST"

// newTestTracker builds a single-worker tracker whose session is the
// given stub. Shutdown is registered on cleanup.
func newTestTracker(t *testing.T, session sessionFunc) (*Tracker, store.Store) {
	t.Helper()
	products := store.NewMemoryStore()
	runner := analysis.NewRunner(products, 5, 10, time.Hour)
	tracker := NewTracker(Config{Workers: 1, QueueSize: 4}, NewMemoryStore(), products, runner)
	if session != nil {
		tracker.session = session
	}
	t.Cleanup(tracker.Shutdown)
	return tracker, products
}

// awaitStatus polls until the job reaches a terminal state.
func awaitStatus(t *testing.T, tracker *Tracker, jobID string) *models.ScrapeJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := tracker.Status(context.Background(), jobID)
		require.NoError(t, err)
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return nil
}

func stubSession(res scrape.Result) sessionFunc {
	return func(_ context.Context, _ task, progress scrape.ProgressFunc) (scrape.Result, error) {
		if progress != nil {
			progress(len(res.Reviews), len(res.Reviews))
		}
		return res, nil
	}
}

func rawReview(text string, rating int) models.RawReview {
	return models.RawReview{
		Text:     text,
		Rating:   rating,
		Date:     time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		Verified: true,
	}
}

func TestTracker_CreateRejectsUnsupportedURL(t *testing.T) {
	tracker, _ := newTestTracker(t, stubSession(scrape.Result{}))
	_, err := tracker.Create(context.Background(), "https://www.ebay.com/itm/12345", 10)
	assert.ErrorIs(t, err, platform.ErrUnsupported)
}

func TestTracker_CompletesAndCommitsProduct(t *testing.T) {
	res := scrape.Result{
		Outcome:      scrape.OutcomeSuccess,
		ProductTitle: "Tracked Gadget",
		Reviews: []models.RawReview{
			rawReview("Excellent battery life and a great screen", 5),
			rawReview("Average delivery experience but decent product", 3),
		},
	}
	tracker, products := newTestTracker(t, stubSession(res))

	job, err := tracker.Create(context.Background(), trackerTestURL, 10)
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, job.Status)

	done := awaitStatus(t, tracker, job.JobID)
	assert.Equal(t, models.JobCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, 2, done.ReviewsScraped)
	assert.Equal(t, "Scraped 2 reviews", done.Message)
	require.NotNil(t, done.ProductID)
	require.NotNil(t, done.CompletedAt)

	product, err := products.GetProduct(context.Background(), *done.ProductID)
	require.NoError(t, err)
	assert.Equal(t, "Tracked Gadget", product.Name)
	assert.Equal(t, 2, product.TotalReviews)
	assert.InDelta(t, 4.0, product.AvgRating, 0.01)
	assert.NotNil(t, product.ScrapedAt)
	assert.NotNil(t, product.LastAnalyzed)

	reviews, err := products.ListReviews(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
}

func TestTracker_ReusesProductForSameURL(t *testing.T) {
	res := scrape.Result{
		Outcome: scrape.OutcomeSuccess,
		Reviews: []models.RawReview{rawReview("Still a good phone overall", 4)},
	}
	tracker, products := newTestTracker(t, stubSession(res))
	ctx := context.Background()

	first, err := tracker.Create(ctx, trackerTestURL, 10)
	require.NoError(t, err)
	firstDone := awaitStatus(t, tracker, first.JobID)

	second, err := tracker.Create(ctx, trackerTestURL, 10)
	require.NoError(t, err)
	secondDone := awaitStatus(t, tracker, second.JobID)

	require.NotNil(t, firstDone.ProductID)
	require.NotNil(t, secondDone.ProductID)
	assert.Equal(t, *firstDone.ProductID, *secondDone.ProductID)

	all, err := products.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTracker_BlockedWithoutReviewsFails(t *testing.T) {
	tracker, _ := newTestTracker(t, stubSession(scrape.Result{Outcome: scrape.OutcomeBlocked}))

	job, err := tracker.Create(context.Background(), trackerTestURL, 10)
	require.NoError(t, err)

	done := awaitStatus(t, tracker, job.JobID)
	assert.Equal(t, models.JobFailed, done.Status)
	assert.Contains(t, done.Error, "CAPTCHA")
	assert.Nil(t, done.ProductID)
}

func TestTracker_BlockedWithPartialReviewsCompletes(t *testing.T) {
	res := scrape.Result{
		Outcome: scrape.OutcomeBlocked,
		Reviews: []models.RawReview{rawReview("Managed to read this one before the wall", 4)},
	}
	tracker, _ := newTestTracker(t, stubSession(res))

	job, err := tracker.Create(context.Background(), trackerTestURL, 10)
	require.NoError(t, err)

	done := awaitStatus(t, tracker, job.JobID)
	assert.Equal(t, models.JobCompleted, done.Status)
	assert.Equal(t, "Scraped 1 reviews before being blocked", done.Message)
}

func TestTracker_CancelRunningJob(t *testing.T) {
	started := make(chan struct{})
	blocking := func(ctx context.Context, _ task, _ scrape.ProgressFunc) (scrape.Result, error) {
		close(started)
		<-ctx.Done()
		return scrape.Result{}, ctx.Err()
	}
	tracker, _ := newTestTracker(t, blocking)

	job, err := tracker.Create(context.Background(), trackerTestURL, 10)
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("session never started")
	}

	cancelled, err := tracker.Cancel(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CompletedAt)

	// The worker exits via context.Canceled and must not overwrite the
	// terminal state.
	time.Sleep(20 * time.Millisecond)
	final, err := tracker.Status(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCancelled, final.Status)
}

func TestTracker_CancelTerminalJobRejected(t *testing.T) {
	res := scrape.Result{
		Outcome: scrape.OutcomeSuccess,
		Reviews: []models.RawReview{rawReview("Done and dusted, nothing to cancel", 5)},
	}
	tracker, _ := newTestTracker(t, stubSession(res))

	job, err := tracker.Create(context.Background(), trackerTestURL, 10)
	require.NoError(t, err)
	awaitStatus(t, tracker, job.JobID)

	_, err = tracker.Cancel(context.Background(), job.JobID)
	assert.ErrorIs(t, err, ErrInvalidJobState)
}

func TestTracker_CancelUnknownJob(t *testing.T) {
	tracker, _ := newTestTracker(t, stubSession(scrape.Result{}))
	_, err := tracker.Cancel(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestTracker_SessionErrorFailsJob(t *testing.T) {
	failing := func(context.Context, task, scrape.ProgressFunc) (scrape.Result, error) {
		return scrape.Result{}, context.DeadlineExceeded
	}
	tracker, _ := newTestTracker(t, failing)

	job, err := tracker.Create(context.Background(), trackerTestURL, 10)
	require.NoError(t, err)

	done := awaitStatus(t, tracker, job.JobID)
	assert.Equal(t, models.JobFailed, done.Status)
	assert.NotEmpty(t, done.Error)
}

func TestOutcomeMessage(t *testing.T) {
	assert.Equal(t, "Scraped 7 reviews", outcomeMessage(scrape.OutcomeSuccess, 7))
	assert.Equal(t, "Scraped 3 reviews before being blocked", outcomeMessage(scrape.OutcomeBlocked, 3))
	assert.Equal(t, "Scraped 0 reviews before hitting limits", outcomeMessage(scrape.OutcomeLimit, 0))
}
