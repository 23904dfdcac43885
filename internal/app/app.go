// Package app provides application initialization and lifecycle
// management. An Application is created once at startup, shared by all
// CLI commands, and torn down through Close.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/reviewlens/internal/analysis"
	"github.com/law-makers/reviewlens/internal/config"
	"github.com/law-makers/reviewlens/internal/fetch"
	"github.com/law-makers/reviewlens/internal/jobs"
	"github.com/law-makers/reviewlens/internal/scrape"
	"github.com/law-makers/reviewlens/internal/store"
	"github.com/law-makers/reviewlens/internal/store/postgres"
)

// Application holds all wired dependencies.
type Application struct {
	Config  *config.Config
	Store   store.Store
	Runner  *analysis.Runner
	Tracker *jobs.Tracker

	pgPool *pgxpool.Pool
}

// New wires the application: logging, persistence, the analysis runner
// and the scrape job tracker. An empty DatabaseURL selects the in-memory
// store.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	initLogging(cfg)

	a := &Application{Config: cfg}

	if cfg.DatabaseURL != "" {
		st, pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.Store = st
		a.pgPool = pool
		log.Debug().Msg("Postgres store initialized")
	} else {
		a.Store = store.NewMemoryStore()
		log.Debug().Msg("In-memory store initialized")
	}

	a.Runner = analysis.NewRunner(a.Store, cfg.TopicCount, cfg.TopicWords, cfg.CacheTTL)

	a.Tracker = jobs.NewTracker(jobs.Config{
		Workers:   cfg.ScrapeWorkers,
		QueueSize: cfg.ScrapeWorkers * 16,
		Fetch:     a.FetchConfig(),
		Scrape:    a.ScrapeConfig(),
	}, jobs.NewMemoryStore(), a.Store, a.Runner)

	return a, nil
}

// FetchConfig maps the application config onto fetcher throttling.
func (a *Application) FetchConfig() fetch.Config {
	return fetch.Config{
		Timeout:       a.Config.HTTPTimeout,
		DelayMin:      a.Config.DelayMin,
		DelayMax:      a.Config.DelayMax,
		BlockCooldown: a.Config.BlockCooldown,
		RateLimitRPS:  a.Config.RateLimitRPS,
		RateBurst:     a.Config.RateLimitBurst,
	}
}

// ScrapeConfig maps the application config onto session budgets.
func (a *Application) ScrapeConfig() scrape.Config {
	return scrape.Config{
		MaxReviews:    a.Config.MaxReviews,
		MaxPages:      a.Config.MaxPages,
		MaxEmptyPages: a.Config.MaxEmptyPages,
		MaxErrors:     a.Config.MaxErrors,
	}
}

// Close drains the worker pool and releases the database pool.
func (a *Application) Close() {
	if a.Tracker != nil {
		a.Tracker.Shutdown()
	}
	if a.pgPool != nil {
		a.pgPool.Close()
	}
	log.Debug().Msg("Application closed")
}

// initLogging configures the global zerolog output and level.
func initLogging(cfg *config.Config) {
	level := zerolog.InfoLevel
	switch cfg.LogLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = zerolog.NewConsoleWriter()
	if cfg.JSONLog {
		w = os.Stderr
	}
	log.Logger = log.Output(w).With().Timestamp().Logger()
}
