package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel        = "info"
	DefaultJSONLog         = false
	DefaultListenAddr      = ":8000"
	DefaultHTTPTimeout     = 20 * time.Second
	DefaultDelayMin        = 2 * time.Second
	DefaultDelayMax        = 5 * time.Second
	DefaultBlockCooldown   = 10 * time.Second
	DefaultRateLimitRPS    = 0.5
	DefaultRateLimitBurst  = 1
	DefaultMaxReviews      = 200
	DefaultMaxPages        = 25
	DefaultMaxEmptyPages   = 3
	DefaultMaxErrors       = 5
	DefaultScrapeWorkers   = 4
	DefaultMaxScrapeWorker = 16
	DefaultCacheTTL        = 24 * time.Hour
	DefaultTopicCount      = 5
	DefaultTopicWords      = 10
)
