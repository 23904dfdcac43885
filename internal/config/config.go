package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/spf13/cobra"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string `env:"REVIEWLENS_LOG_LEVEL"`
	JSONLog  bool   `env:"REVIEWLENS_JSON_LOG"`

	// HTTP server
	ListenAddr string `env:"REVIEWLENS_LISTEN_ADDR"`

	// Persistence. Empty means the in-memory store.
	DatabaseURL string `env:"REVIEWLENS_DATABASE_URL"`

	// Scraping
	HTTPTimeout    time.Duration `env:"REVIEWLENS_HTTP_TIMEOUT"`
	DelayMin       time.Duration `env:"REVIEWLENS_DELAY_MIN"`
	DelayMax       time.Duration `env:"REVIEWLENS_DELAY_MAX"`
	BlockCooldown  time.Duration `env:"REVIEWLENS_BLOCK_COOLDOWN"`
	RateLimitRPS   float64       `env:"REVIEWLENS_RATE_LIMIT_RPS"`
	RateLimitBurst int           `env:"REVIEWLENS_RATE_LIMIT_BURST"`
	MaxReviews     int           `env:"REVIEWLENS_MAX_REVIEWS"`
	MaxPages       int           `env:"REVIEWLENS_MAX_PAGES"`
	MaxEmptyPages  int           `env:"REVIEWLENS_MAX_EMPTY_PAGES"`
	MaxErrors      int           `env:"REVIEWLENS_MAX_ERRORS"`
	ScrapeWorkers  int           `env:"REVIEWLENS_SCRAPE_WORKERS"`

	// Analysis
	CacheTTL   time.Duration `env:"REVIEWLENS_CACHE_TTL"`
	TopicCount int           `env:"REVIEWLENS_TOPIC_COUNT"`
	TopicWords int           `env:"REVIEWLENS_TOPIC_WORDS"`
}

// Load builds a Config by combining defaults, environment variables, and
// CLI flags, in that order of precedence (flags win).
// Caller should pass the root *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{
		LogLevel:       DefaultLogLevel,
		JSONLog:        DefaultJSONLog,
		ListenAddr:     DefaultListenAddr,
		HTTPTimeout:    DefaultHTTPTimeout,
		DelayMin:       DefaultDelayMin,
		DelayMax:       DefaultDelayMax,
		BlockCooldown:  DefaultBlockCooldown,
		RateLimitRPS:   DefaultRateLimitRPS,
		RateLimitBurst: DefaultRateLimitBurst,
		MaxReviews:     DefaultMaxReviews,
		MaxPages:       DefaultMaxPages,
		MaxEmptyPages:  DefaultMaxEmptyPages,
		MaxErrors:      DefaultMaxErrors,
		ScrapeWorkers:  DefaultScrapeWorkers,
		CacheTTL:       DefaultCacheTTL,
		TopicCount:     DefaultTopicCount,
		TopicWords:     DefaultTopicWords,
	}

	// Override from environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	// Read CLI flags if provided
	if cmd != nil {
		if f := cmd.Flags().Lookup("listen"); f != nil && f.Changed {
			cfg.ListenAddr = f.Value.String()
		}
		if f := cmd.Flags().Lookup("database-url"); f != nil && f.Changed {
			cfg.DatabaseURL = f.Value.String()
		}
		if f := cmd.Flags().Lookup("timeout"); f != nil && f.Changed {
			if d, err := time.ParseDuration(f.Value.String()); err == nil {
				cfg.HTTPTimeout = d
			}
		}
		if f := cmd.Flags().Lookup("max-reviews"); f != nil && f.Changed {
			if n, err := strconv.Atoi(f.Value.String()); err == nil {
				cfg.MaxReviews = n
			}
		}
		if f := cmd.Flags().Lookup("json"); f != nil && f.Value.String() == "true" {
			cfg.JSONLog = true
		}
		if f := cmd.Flags().Lookup("verbose"); f != nil && f.Value.String() == "true" {
			cfg.LogLevel = "debug"
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// RegisterFlags attaches the shared configuration flags to the root command.
func RegisterFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.Bool("json", false, "Emit JSON logs")
	pf.String("listen", DefaultListenAddr, "HTTP listen address (serve command)")
	pf.String("database-url", "", "Postgres connection string (empty: in-memory store)")
	pf.String("timeout", "", "Per-request socket timeout (e.g. 15s)")
	pf.Int("max-reviews", DefaultMaxReviews, "Maximum reviews to scrape per product")
}
