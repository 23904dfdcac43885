package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/law-makers/reviewlens/internal/store"
	"github.com/law-makers/reviewlens/pkg/models"
)

// Cache stores serialized stage results with a TTL. Entries are
// append-only; Get returns the newest unexpired one, so a fresh Put
// shadows older entries without touching them.
type Cache struct {
	store store.Store
	ttl   time.Duration
}

// NewCache builds a cache over the given store. ttl <= 0 falls back to
// 24 hours.
func NewCache(st store.Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{store: st, ttl: ttl}
}

// Get returns the cached payload for (productID, stage), or nil when no
// unexpired entry exists.
func (c *Cache) Get(ctx context.Context, productID int64, stage string) ([]byte, error) {
	entry, err := c.store.LatestCacheEntry(ctx, productID, stage)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if entry == nil {
		return nil, nil
	}
	return entry.Result, nil
}

// Put appends a new cache entry expiring after the configured TTL.
func (c *Cache) Put(ctx context.Context, productID int64, stage string, payload []byte) error {
	now := time.Now().UTC()
	entry := &models.CacheEntry{
		ProductID: productID,
		Stage:     stage,
		Result:    payload,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	if err := c.store.AppendCacheEntry(ctx, entry); err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}

// Invalidate drops every cached entry for the product, all stages.
func (c *Cache) Invalidate(ctx context.Context, productID int64) error {
	if err := c.store.DeleteCacheEntries(ctx, productID); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
