package config

import "fmt"

func validate(c *Config) error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	if c.DelayMin < 0 || c.DelayMax < c.DelayMin {
		return fmt.Errorf("scrape delay window must satisfy 0 <= min <= max")
	}
	if c.BlockCooldown < 0 {
		return fmt.Errorf("block cooldown must be >= 0")
	}
	if c.MaxReviews <= 0 {
		return fmt.Errorf("max reviews must be > 0")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be > 0")
	}
	if c.MaxEmptyPages <= 0 || c.MaxErrors <= 0 {
		return fmt.Errorf("empty-page and error budgets must be > 0")
	}
	if c.ScrapeWorkers <= 0 || c.ScrapeWorkers > DefaultMaxScrapeWorker {
		return fmt.Errorf("scrape workers must be between 1 and %d", DefaultMaxScrapeWorker)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be > 0")
	}
	if c.TopicCount <= 0 || c.TopicWords <= 1 {
		return fmt.Errorf("topic count must be > 0 and topic words > 1")
	}
	return nil
}
