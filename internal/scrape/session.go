// Package scrape drives multi-page review collection as an explicit
// state machine: every fetch outcome maps to a testable transition, and
// all three terminal states return whatever was accumulated so far.
package scrape

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/reviewlens/internal/fetch"
	"github.com/law-makers/reviewlens/internal/platform"
	"github.com/law-makers/reviewlens/pkg/models"
)

// Outcome is the terminal state of a scrape session.
type Outcome string

const (
	// OutcomeSuccess means the requested review count was reached.
	OutcomeSuccess Outcome = "finished_success"
	// OutcomeLimit means an empty/error budget or the page ceiling was hit.
	OutcomeLimit Outcome = "finished_limit"
	// OutcomeBlocked means a CAPTCHA forced an immediate stop.
	OutcomeBlocked Outcome = "finished_blocked"
)

// ProgressFunc receives (accumulated review count, target count) after
// every productive page.
type ProgressFunc func(accumulated, target int)

// Fetcher is the page-level dependency of a session.
type Fetcher interface {
	Fetch(ctx context.Context, url string) fetch.Result
	RotateIdentity()
	Cooldown(ctx context.Context) error
}

// Config bounds a session's appetite.
type Config struct {
	MaxReviews    int // requested maximum; reaching it is OutcomeSuccess
	MaxPages      int // hard page ceiling
	MaxEmptyPages int // consecutive pages yielding no new reviews
	MaxErrors     int // consecutive fetch errors of any kind
}

// DefaultConfig mirrors the limits observed to keep retail sites from
// escalating to permanent blocks.
func DefaultConfig() Config {
	return Config{
		MaxReviews:    200,
		MaxPages:      25,
		MaxEmptyPages: 3,
		MaxErrors:     5,
	}
}

// Result is what a finished session hands back. Partial results are
// success from the caller's point of view: Reviews is populated in every
// terminal state.
type Result struct {
	Outcome      Outcome
	Reviews      []models.RawReview
	ProductTitle string
	PagesFetched int
}

// Session scrapes the reviews of one product. Sessions are single-use.
type Session struct {
	fetcher  Fetcher
	platform platform.Platform
	cfg      Config
	progress ProgressFunc
}

// NewSession creates a session for one product on one platform.
// progress may be nil.
func NewSession(fetcher Fetcher, p platform.Platform, cfg Config, progress ProgressFunc) *Session {
	if cfg.MaxReviews <= 0 {
		cfg.MaxReviews = DefaultConfig().MaxReviews
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultConfig().MaxPages
	}
	if cfg.MaxEmptyPages <= 0 {
		cfg.MaxEmptyPages = DefaultConfig().MaxEmptyPages
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = DefaultConfig().MaxErrors
	}
	return &Session{
		fetcher:  fetcher,
		platform: p,
		cfg:      cfg,
		progress: progress,
	}
}

// Run drives pagination until a terminal condition holds. It returns an
// error only for context cancellation or an unbuildable reviews URL;
// blocking, empty pages and transport failures end the session with a
// terminal Outcome instead.
func (s *Session) Run(ctx context.Context, productURL string) (Result, error) {
	var (
		reviews          []models.RawReview
		seen             = make(map[string]struct{})
		title            string
		page             = 1
		consecutiveEmpty = 0
		consecutiveErrs  = 0
		pagesFetched     = 0
		fallbackTried    = false
	)

	result := func(outcome Outcome) Result {
		return Result{
			Outcome:      outcome,
			Reviews:      reviews,
			ProductTitle: title,
			PagesFetched: pagesFetched,
		}
	}

	log.Info().
		Str("url", productURL).
		Str("platform", string(s.platform)).
		Int("max_reviews", s.cfg.MaxReviews).
		Msg("Starting scrape session")

	for {
		// Cancellation is cooperative: checked at every iteration boundary.
		if err := ctx.Err(); err != nil {
			return result(OutcomeLimit), err
		}

		// Termination conditions, first true wins.
		switch {
		case len(reviews) >= s.cfg.MaxReviews:
			log.Info().Int("reviews", len(reviews)).Msg("Scrape reached requested maximum")
			return result(OutcomeSuccess), nil
		case consecutiveEmpty >= s.cfg.MaxEmptyPages:
			log.Info().Int("reviews", len(reviews)).Msg("Scrape stopped: consecutive empty pages")
			return result(OutcomeLimit), nil
		case consecutiveErrs >= s.cfg.MaxErrors:
			log.Info().Int("reviews", len(reviews)).Msg("Scrape stopped: error budget exhausted")
			return result(OutcomeLimit), nil
		case page > s.cfg.MaxPages:
			log.Info().Int("reviews", len(reviews)).Msg("Scrape stopped: page ceiling reached")
			return result(OutcomeLimit), nil
		}

		pageURL, err := s.platform.ReviewsURL(productURL, page)
		if err != nil {
			return result(OutcomeLimit), fmt.Errorf("build reviews url: %w", err)
		}

		res := s.fetcher.Fetch(ctx, pageURL)
		pagesFetched++

		switch res.Status {
		case fetch.StatusCaptcha:
			// Never retried: continuing would risk a permanent ban.
			log.Warn().Int("page", page).Msg("CAPTCHA detected, terminating session")
			return result(OutcomeBlocked), nil

		case fetch.StatusHardBlock:
			consecutiveErrs++
			log.Warn().
				Int("page", page).
				Int("consecutive_errors", consecutiveErrs).
				Msg("Hard block, rotating identity and cooling down")
			s.fetcher.RotateIdentity()
			if err := s.fetcher.Cooldown(ctx); err != nil {
				return result(OutcomeLimit), err
			}
			// Retry the same page index.
			continue

		case fetch.StatusSoftBlock, fetch.StatusNetworkError:
			consecutiveErrs++
			log.Debug().
				Int("page", page).
				Str("outcome", string(res.Status)).
				Int("consecutive_errors", consecutiveErrs).
				Msg("Fetch failed, advancing")
			page++
			continue
		}

		// Success: extract.
		if page == 1 && title == "" {
			title = s.platform.ExtractTitle(res.Doc)
		}
		extracted := s.platform.ExtractReviews(res.Doc)

		if len(extracted) == 0 && page == 1 && !fallbackTried && consecutiveErrs == 0 {
			fallbackTried = true
			extracted, title = s.tryFallback(ctx, productURL, title)
		}

		if len(extracted) == 0 {
			consecutiveEmpty++
			log.Debug().Int("page", page).Int("consecutive_empty", consecutiveEmpty).Msg("No reviews on page")
			page++
			continue
		}

		added := 0
		for _, r := range extracted {
			if len(reviews) >= s.cfg.MaxReviews {
				break
			}
			if _, dup := seen[r.Text]; dup {
				continue
			}
			seen[r.Text] = struct{}{}
			reviews = append(reviews, r)
			added++
		}

		consecutiveEmpty = 0
		consecutiveErrs = 0
		if s.progress != nil {
			s.progress(len(reviews), s.cfg.MaxReviews)
		}
		log.Debug().
			Int("page", page).
			Int("added", added).
			Int("total", len(reviews)).
			Msg("Page scraped")
		page++
	}
}

// tryFallback fetches the alternate, non-paginated product URL once when
// page 1 of the reviews listing came back empty.
func (s *Session) tryFallback(ctx context.Context, productURL, title string) ([]models.RawReview, string) {
	fallbackURL := s.platform.FallbackURL(productURL)
	if fallbackURL == "" {
		return nil, title
	}
	log.Debug().Str("url", fallbackURL).Msg("Trying fallback product URL")

	res := s.fetcher.Fetch(ctx, fallbackURL)
	if res.Status != fetch.StatusSuccess {
		return nil, title
	}
	if title == "" {
		title = s.platform.ExtractTitle(res.Doc)
	}
	return s.platform.ExtractReviews(res.Doc), title
}
