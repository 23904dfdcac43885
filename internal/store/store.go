// Package store defines the persistence boundary of the module. The
// scraping and analysis core only ever sees this interface; swapping the
// in-memory implementation for Postgres is a wiring decision.
package store

import (
	"context"
	"errors"

	"github.com/law-makers/reviewlens/pkg/models"
)

// ErrProductNotFound is returned when a product id or URL resolves to nothing.
var ErrProductNotFound = errors.New("product not found")

// Store is the persistence contract consumed by the scraping and analysis
// core. Deletes cascade from Product to Review/AspectMention and from
// Product to Topic/CacheEntry. ReplaceReviews is atomic: either all new
// reviews replace the old set for a product, or none do.
type Store interface {
	// Products
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetProductByURL(ctx context.Context, url string) (*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	ListProducts(ctx context.Context) ([]models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	// Reviews
	ReplaceReviews(ctx context.Context, productID int64, reviews []models.Review) error
	ListReviews(ctx context.Context, productID int64) ([]models.Review, error)
	UpdateReviewAnalysis(ctx context.Context, reviews []models.Review) error

	// Derived rows, regenerated wholesale by their stages
	ReplaceAspects(ctx context.Context, productID int64, mentions []models.AspectMention) error
	ListAspects(ctx context.Context, productID int64) ([]models.AspectMention, error)
	ReplaceTopics(ctx context.Context, productID int64, topics []models.Topic) error
	ListTopics(ctx context.Context, productID int64) ([]models.Topic, error)

	// Analysis cache: append-only, newest unexpired entry wins
	AppendCacheEntry(ctx context.Context, entry *models.CacheEntry) error
	LatestCacheEntry(ctx context.Context, productID int64, stage string) (*models.CacheEntry, error)
	DeleteCacheEntries(ctx context.Context, productID int64) error
}
