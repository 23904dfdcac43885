package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/law-makers/reviewlens/pkg/models"
)

// MemoryStore is a mutex-guarded in-memory Store. It is the default for
// the CLI and for tests; all returned values are copies, so callers never
// observe a half-written record.
type MemoryStore struct {
	mu         sync.RWMutex
	products   map[int64]models.Product
	reviews    map[int64][]models.Review        // keyed by product id
	aspects    map[int64][]models.AspectMention // keyed by product id
	topics     map[int64][]models.Topic         // keyed by product id
	cache      map[int64][]models.CacheEntry    // keyed by product id
	nextID     int64
	nextRowID  int64
	nextCacheI int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[int64]models.Product),
		reviews:  make(map[int64][]models.Review),
		aspects:  make(map[int64][]models.AspectMention),
		topics:   make(map[int64][]models.Topic),
		cache:    make(map[int64][]models.CacheEntry),
	}
}

// CreateProduct inserts a product and assigns its id.
func (m *MemoryStore) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	m.products[p.ID] = *p
	return nil
}

// GetProduct retrieves a product by id.
func (m *MemoryStore) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

// GetProductByURL retrieves a product by its canonical URL.
func (m *MemoryStore) GetProductByURL(_ context.Context, url string) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.products {
		if p.URL == url {
			p := p
			return &p, nil
		}
	}
	return nil, ErrProductNotFound
}

// UpdateProduct overwrites an existing product row.
func (m *MemoryStore) UpdateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return ErrProductNotFound
	}
	m.products[p.ID] = *p
	return nil
}

// ListProducts returns all products ordered by id.
func (m *MemoryStore) ListProducts(_ context.Context) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteProduct removes a product and everything hanging off it.
func (m *MemoryStore) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return ErrProductNotFound
	}
	delete(m.products, id)
	delete(m.reviews, id)
	delete(m.aspects, id)
	delete(m.topics, id)
	delete(m.cache, id)
	return nil
}

// ReplaceReviews swaps the entire review set of a product under one lock
// section, assigning row ids to the new reviews.
func (m *MemoryStore) ReplaceReviews(_ context.Context, productID int64, reviews []models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[productID]; !ok {
		return ErrProductNotFound
	}
	stored := make([]models.Review, len(reviews))
	for i, r := range reviews {
		m.nextRowID++
		r.ID = m.nextRowID
		r.ProductID = productID
		stored[i] = r
	}
	m.reviews[productID] = stored
	delete(m.aspects, productID)
	return nil
}

// ListReviews returns copies of a product's reviews ordered by id.
func (m *MemoryStore) ListReviews(_ context.Context, productID int64) ([]models.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Review, len(m.reviews[productID]))
	copy(out, m.reviews[productID])
	return out, nil
}

// UpdateReviewAnalysis writes back the analysis fields of the given reviews.
func (m *MemoryStore) UpdateReviewAnalysis(_ context.Context, reviews []models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, upd := range reviews {
		rows := m.reviews[upd.ProductID]
		for i := range rows {
			if rows[i].ID == upd.ID {
				rows[i].SentimentLabel = upd.SentimentLabel
				rows[i].SentimentScore = upd.SentimentScore
				rows[i].IsSuspicious = upd.IsSuspicious
				rows[i].SuspiciousScore = upd.SuspiciousScore
				rows[i].AnalyzedAt = upd.AnalyzedAt
				break
			}
		}
	}
	return nil
}

// ReplaceAspects regenerates all aspect mentions for a product's reviews.
func (m *MemoryStore) ReplaceAspects(_ context.Context, productID int64, mentions []models.AspectMention) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]models.AspectMention, len(mentions))
	for i, a := range mentions {
		m.nextRowID++
		a.ID = m.nextRowID
		stored[i] = a
	}
	m.aspects[productID] = stored
	return nil
}

// ListAspects returns copies of a product's aspect mentions.
func (m *MemoryStore) ListAspects(_ context.Context, productID int64) ([]models.AspectMention, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.AspectMention, len(m.aspects[productID]))
	copy(out, m.aspects[productID])
	return out, nil
}

// ReplaceTopics regenerates all topics for a product.
func (m *MemoryStore) ReplaceTopics(_ context.Context, productID int64, topics []models.Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]models.Topic, len(topics))
	for i, t := range topics {
		m.nextRowID++
		t.ID = m.nextRowID
		t.ProductID = productID
		stored[i] = t
	}
	m.topics[productID] = stored
	return nil
}

// ListTopics returns copies of a product's topics ordered by topic number.
func (m *MemoryStore) ListTopics(_ context.Context, productID int64) ([]models.Topic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Topic, len(m.topics[productID]))
	copy(out, m.topics[productID])
	sort.Slice(out, func(i, j int) bool { return out[i].TopicNumber < out[j].TopicNumber })
	return out, nil
}

// AppendCacheEntry stores a new cache entry; entries are never updated in
// place.
func (m *MemoryStore) AppendCacheEntry(_ context.Context, entry *models.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextCacheI++
	entry.ID = m.nextCacheI
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.cache[entry.ProductID] = append(m.cache[entry.ProductID], *entry)
	return nil
}

// LatestCacheEntry returns the newest unexpired entry for (product, stage),
// or nil when none exists.
func (m *MemoryStore) LatestCacheEntry(_ context.Context, productID int64, stage string) (*models.CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	var newest *models.CacheEntry
	entries := m.cache[productID]
	for i := range entries {
		e := entries[i]
		if e.Stage != stage || now.After(e.ExpiresAt) {
			continue
		}
		if newest == nil || e.CreatedAt.After(newest.CreatedAt) {
			newest = &e
		}
	}
	if newest == nil {
		return nil, nil
	}
	out := *newest
	return &out, nil
}

// DeleteCacheEntries discards every cache entry of a product.
func (m *MemoryStore) DeleteCacheEntries(_ context.Context, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, productID)
	return nil
}
