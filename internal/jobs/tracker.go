package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/reviewlens/internal/analysis"
	"github.com/law-makers/reviewlens/internal/fetch"
	"github.com/law-makers/reviewlens/internal/platform"
	"github.com/law-makers/reviewlens/internal/scrape"
	"github.com/law-makers/reviewlens/internal/store"
	"github.com/law-makers/reviewlens/pkg/models"
)

// ErrQueueFull is returned when the worker pool backlog is saturated.
var ErrQueueFull = errors.New("scrape queue full")

// Config sizes the tracker's worker pool and parametrizes the sessions
// it runs.
type Config struct {
	Workers   int
	QueueSize int
	Fetch     fetch.Config
	Scrape    scrape.Config
}

// DefaultConfig returns a four-worker pool with room for a short backlog.
func DefaultConfig() Config {
	return Config{
		Workers:   4,
		QueueSize: 64,
		Fetch:     fetch.DefaultConfig(),
		Scrape:    scrape.DefaultConfig(),
	}
}

type task struct {
	jobID      string
	productURL string
	plat       platform.Platform
	maxReviews int
}

// sessionFunc runs one scrape session. Swapped out in tests.
type sessionFunc func(ctx context.Context, t task, progress scrape.ProgressFunc) (scrape.Result, error)

// Tracker owns the scrape job lifecycle: it validates and registers jobs,
// feeds them to a bounded worker pool, and exposes snapshot status reads
// and cooperative cancellation.
type Tracker struct {
	cfg      Config
	registry Store
	products store.Store
	runner   *analysis.Runner
	session  sessionFunc

	tasks chan task
	wg    sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	baseCtx  context.Context
	stopBase context.CancelFunc
}

// NewTracker starts the worker pool immediately. Call Shutdown to drain it.
func NewTracker(cfg Config, registry Store, products store.Store, runner *analysis.Runner) *Tracker {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Tracker{
		cfg:      cfg,
		registry: registry,
		products: products,
		runner:   runner,
		tasks:    make(chan task, cfg.QueueSize),
		cancels:  make(map[string]context.CancelFunc),
		baseCtx:  ctx,
		stopBase: cancel,
	}
	t.session = t.runSession
	for i := 0; i < cfg.Workers; i++ {
		t.wg.Add(1)
		go t.worker()
	}
	log.Debug().Int("workers", cfg.Workers).Msg("Scrape worker pool started")
	return t
}

// Create validates the product URL, registers a pending job, and queues
// it for a worker. The job id is returned immediately; scraping happens
// in the background.
func (t *Tracker) Create(ctx context.Context, productURL string, maxReviews int) (*models.ScrapeJob, error) {
	plat, err := platform.Detect(productURL)
	if err != nil {
		return nil, err
	}
	if maxReviews <= 0 {
		maxReviews = t.cfg.Scrape.MaxReviews
	}

	job := &models.ScrapeJob{
		JobID:   uuid.NewString(),
		Status:  models.JobPending,
		Message: "Job queued",
	}
	if err := t.registry.Insert(ctx, job); err != nil {
		return nil, fmt.Errorf("register job: %w", err)
	}

	select {
	case t.tasks <- task{jobID: job.JobID, productURL: plat.Canonical(productURL), plat: plat, maxReviews: maxReviews}:
	default:
		_, _ = t.registry.Update(ctx, job.JobID, func(j *models.ScrapeJob) {
			j.Status = models.JobFailed
			j.Error = ErrQueueFull.Error()
		})
		return nil, ErrQueueFull
	}

	log.Info().
		Str("job_id", job.JobID).
		Str("platform", string(plat)).
		Int("max_reviews", maxReviews).
		Msg("Scrape job created")
	return job, nil
}

// Status returns a snapshot of the job.
func (t *Tracker) Status(ctx context.Context, jobID string) (*models.ScrapeJob, error) {
	return t.registry.Get(ctx, jobID)
}

// Cancel requests cooperative cancellation of a pending or running job.
// Cancelling a job that already reached a terminal state is rejected.
func (t *Tracker) Cancel(ctx context.Context, jobID string) (*models.ScrapeJob, error) {
	job, err := t.registry.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, fmt.Errorf("%w: job is %s", ErrInvalidJobState, job.Status)
	}

	job, err = t.registry.Update(ctx, jobID, func(j *models.ScrapeJob) {
		j.Status = models.JobCancelled
		j.Message = "Cancelled by user"
		now := time.Now().UTC()
		j.CompletedAt = &now
	})
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	cancel := t.cancels[jobID]
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	log.Info().Str("job_id", jobID).Msg("Scrape job cancelled")
	return job, nil
}

// Shutdown stops accepting work, cancels running sessions, and waits for
// the workers to drain.
func (t *Tracker) Shutdown() {
	t.stopBase()
	close(t.tasks)
	t.wg.Wait()
}

func (t *Tracker) worker() {
	defer t.wg.Done()
	for tk := range t.tasks {
		if t.baseCtx.Err() != nil {
			return
		}
		t.drive(tk)
	}
}

// drive runs one job end to end: pending to running, session, commit,
// initial analysis, terminal state.
func (t *Tracker) drive(tk task) {
	ctx, cancel := context.WithCancel(t.baseCtx)
	t.mu.Lock()
	t.cancels[tk.jobID] = cancel
	t.mu.Unlock()
	defer func() {
		cancel()
		t.mu.Lock()
		delete(t.cancels, tk.jobID)
		t.mu.Unlock()
	}()

	// A cancel that landed while the job sat in the queue wins; the
	// registry absorbs our transition and we check the snapshot.
	job, err := t.registry.Update(ctx, tk.jobID, func(j *models.ScrapeJob) {
		j.Status = models.JobRunning
		j.Message = "Scraping in progress"
		now := time.Now().UTC()
		j.StartedAt = &now
	})
	if err != nil || job.Status != models.JobRunning {
		return
	}

	progress := func(accumulated, target int) {
		_, _ = t.registry.Update(ctx, tk.jobID, func(j *models.ScrapeJob) {
			j.ReviewsScraped = accumulated
			if target > 0 {
				j.Progress = accumulated * 100 / target
			}
		})
	}

	res, err := t.session(ctx, tk, progress)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Cancel already stamped the terminal state.
			return
		}
		t.fail(tk.jobID, err.Error())
		return
	}

	if res.Outcome == scrape.OutcomeBlocked && len(res.Reviews) == 0 {
		t.fail(tk.jobID, "blocked by CAPTCHA before any reviews were collected")
		return
	}

	productID, err := t.commit(ctx, tk, res)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		t.fail(tk.jobID, fmt.Sprintf("persist results: %v", err))
		return
	}

	// Reviews are committed at this point; an analysis failure degrades
	// the job message but never rolls them back.
	message := outcomeMessage(res.Outcome, len(res.Reviews))
	if err := t.runner.RunAll(ctx, productID); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Warn().Str("job_id", tk.jobID).Err(err).Msg("Initial analysis failed")
		message += "; initial analysis failed"
	}

	_, _ = t.registry.Update(ctx, tk.jobID, func(j *models.ScrapeJob) {
		j.Status = models.JobCompleted
		j.ProductID = &productID
		j.ReviewsScraped = len(res.Reviews)
		j.Progress = 100
		j.Message = message
		now := time.Now().UTC()
		j.CompletedAt = &now
	})
	log.Info().
		Str("job_id", tk.jobID).
		Int64("product_id", productID).
		Int("reviews", len(res.Reviews)).
		Str("outcome", string(res.Outcome)).
		Msg("Scrape job completed")
}

// runSession is the production sessionFunc: fresh fetcher and identity
// pool per job so concurrent jobs never share cookie state.
func (t *Tracker) runSession(ctx context.Context, tk task, progress scrape.ProgressFunc) (scrape.Result, error) {
	fetcher := fetch.New(t.cfg.Fetch, fetch.NewIdentityPool(time.Now().UnixNano()))
	scrapeCfg := t.cfg.Scrape
	scrapeCfg.MaxReviews = tk.maxReviews
	session := scrape.NewSession(fetcher, tk.plat, scrapeCfg, progress)
	return session.Run(ctx, tk.productURL)
}

// commit upserts the product by canonical URL and atomically replaces its
// review set.
func (t *Tracker) commit(ctx context.Context, tk task, res scrape.Result) (int64, error) {
	now := time.Now().UTC()

	product, err := t.products.GetProductByURL(ctx, tk.productURL)
	switch {
	case errors.Is(err, store.ErrProductNotFound):
		product = &models.Product{
			URL:      tk.productURL,
			Platform: string(tk.plat),
		}
		if err := t.products.CreateProduct(ctx, product); err != nil {
			return 0, err
		}
	case err != nil:
		return 0, err
	}

	reviews := make([]models.Review, len(res.Reviews))
	var ratingSum int
	for i, raw := range res.Reviews {
		reviews[i] = models.Review{
			ProductID:    product.ID,
			Text:         raw.Text,
			Rating:       raw.Rating,
			Date:         raw.Date,
			ReviewerName: raw.ReviewerName,
			Verified:     raw.Verified,
			HelpfulCount: raw.HelpfulCount,
		}
		ratingSum += raw.Rating
	}
	if err := t.products.ReplaceReviews(ctx, product.ID, reviews); err != nil {
		return 0, err
	}

	if res.ProductTitle != "" {
		product.Name = res.ProductTitle
	}
	product.TotalReviews = len(reviews)
	if len(reviews) > 0 {
		product.AvgRating = float64(ratingSum) / float64(len(reviews))
	}
	product.ScrapedAt = &now
	if err := t.products.UpdateProduct(ctx, product); err != nil {
		return 0, err
	}
	return product.ID, nil
}

func (t *Tracker) fail(jobID, msg string) {
	_, _ = t.registry.Update(context.Background(), jobID, func(j *models.ScrapeJob) {
		j.Status = models.JobFailed
		j.Error = msg
		j.Message = "Scraping failed"
		now := time.Now().UTC()
		j.CompletedAt = &now
	})
	log.Warn().Str("job_id", jobID).Str("error", msg).Msg("Scrape job failed")
}

func outcomeMessage(outcome scrape.Outcome, reviews int) string {
	switch outcome {
	case scrape.OutcomeSuccess:
		return fmt.Sprintf("Scraped %d reviews", reviews)
	case scrape.OutcomeBlocked:
		return fmt.Sprintf("Scraped %d reviews before being blocked", reviews)
	default:
		return fmt.Sprintf("Scraped %d reviews before hitting limits", reviews)
	}
}
