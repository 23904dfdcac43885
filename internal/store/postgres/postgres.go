// Package postgres implements store.Store on PostgreSQL via pgx. Reviews,
// aspect mentions, topics and cache entries hang off products with
// ON DELETE CASCADE, so the cascading-delete contract lives in the schema
// rather than in application code.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/law-makers/reviewlens/internal/store"
	"github.com/law-makers/reviewlens/pkg/models"
)

// DB is the subset of pgxpool.Pool the store uses. pgxmock satisfies it,
// which is what the tests rely on.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL-backed implementation of store.Store.
type Store struct {
	db DB
}

// New wraps an existing pool or mock.
func New(db DB) *Store {
	return &Store{db: db}
}

// Connect opens a pgx pool against the given connection string and
// bootstraps the schema.
func Connect(ctx context.Context, databaseURL string) (*Store, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	s := New(pool)
	if err := s.Bootstrap(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	url           TEXT NOT NULL UNIQUE,
	platform      TEXT NOT NULL,
	total_reviews INTEGER NOT NULL DEFAULT 0,
	avg_rating    DOUBLE PRECISION NOT NULL DEFAULT 0,
	scraped_at    TIMESTAMPTZ,
	last_analyzed TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reviews (
	id               BIGSERIAL PRIMARY KEY,
	product_id       BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	review_text      TEXT NOT NULL,
	rating           INTEGER NOT NULL,
	review_date      TIMESTAMPTZ NOT NULL,
	reviewer_name    TEXT NOT NULL DEFAULT '',
	verified         BOOLEAN NOT NULL DEFAULT FALSE,
	helpful_count    INTEGER NOT NULL DEFAULT 0,
	sentiment_label  TEXT NOT NULL DEFAULT '',
	sentiment_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
	is_suspicious    BOOLEAN NOT NULL DEFAULT FALSE,
	suspicious_score INTEGER NOT NULL DEFAULT 0,
	analyzed_at      TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_reviews_product ON reviews(product_id);

CREATE TABLE IF NOT EXISTS aspect_mentions (
	id              BIGSERIAL PRIMARY KEY,
	review_id       BIGINT NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
	aspect_name     TEXT NOT NULL,
	sentiment       TEXT NOT NULL,
	sentiment_score DOUBLE PRECISION NOT NULL,
	sentence        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_aspect_mentions_review ON aspect_mentions(review_id);

CREATE TABLE IF NOT EXISTS topics (
	id           BIGSERIAL PRIMARY KEY,
	product_id   BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	topic_number INTEGER NOT NULL,
	keywords     JSONB NOT NULL,
	label        TEXT NOT NULL,
	review_count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_topics_product ON topics(product_id);

CREATE TABLE IF NOT EXISTS analysis_cache (
	id         BIGSERIAL PRIMARY KEY,
	product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	stage      TEXT NOT NULL,
	result     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_lookup ON analysis_cache(product_id, stage, created_at DESC);
`

// Bootstrap creates the schema when it does not exist yet.
func (s *Store) Bootstrap(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}
	return nil
}

// CreateProduct inserts a product and fills in its assigned id and
// creation timestamp.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (name, url, platform, total_reviews, avg_rating, scraped_at, last_analyzed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	err := s.db.QueryRow(ctx, query,
		p.Name, p.URL, p.Platform, p.TotalReviews, p.AvgRating, p.ScrapedAt, p.LastAnalyzed,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

const productColumns = `id, name, url, platform, total_reviews, avg_rating, scraped_at, last_analyzed, created_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.URL, &p.Platform, &p.TotalReviews,
		&p.AvgRating, &p.ScrapedAt, &p.LastAnalyzed, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrProductNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return &p, nil
}

// GetProduct retrieves a product by id.
func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return scanProduct(s.db.QueryRow(ctx, query, id))
}

// GetProductByURL retrieves a product by its canonical URL.
func (s *Store) GetProductByURL(ctx context.Context, url string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE url = $1`
	return scanProduct(s.db.QueryRow(ctx, query, url))
}

// UpdateProduct overwrites an existing product row.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, url = $2, platform = $3, total_reviews = $4,
		    avg_rating = $5, scraped_at = $6, last_analyzed = $7
		WHERE id = $8`
	ct, err := s.db.Exec(ctx, query,
		p.Name, p.URL, p.Platform, p.TotalReviews, p.AvgRating,
		p.ScrapedAt, p.LastAnalyzed, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrProductNotFound
	}
	return nil
}

// ListProducts returns all products ordered by id.
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.URL, &p.Platform, &p.TotalReviews,
			&p.AvgRating, &p.ScrapedAt, &p.LastAnalyzed, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return out, nil
}

// DeleteProduct removes a product; the schema cascades to reviews,
// mentions, topics and cache entries.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrProductNotFound
	}
	return nil
}

// ReplaceReviews swaps a product's review set inside one transaction.
// Deleting the old rows cascades away their aspect mentions.
func (s *Store) ReplaceReviews(ctx context.Context, productID int64, reviews []models.Review) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM reviews WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("delete old reviews: %w", err)
	}

	insert := `
		INSERT INTO reviews (product_id, review_text, rating, review_date, reviewer_name, verified, helpful_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	for i := range reviews {
		reviews[i].ProductID = productID
		err := tx.QueryRow(ctx, insert,
			productID, reviews[i].Text, reviews[i].Rating, reviews[i].Date,
			reviews[i].ReviewerName, reviews[i].Verified, reviews[i].HelpfulCount,
		).Scan(&reviews[i].ID)
		if err != nil {
			return fmt.Errorf("insert review: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListReviews returns a product's reviews ordered by id.
func (s *Store) ListReviews(ctx context.Context, productID int64) ([]models.Review, error) {
	query := `
		SELECT id, product_id, review_text, rating, review_date, reviewer_name,
		       verified, helpful_count, sentiment_label, sentiment_score,
		       is_suspicious, suspicious_score, analyzed_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY id`
	rows, err := s.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var out []models.Review
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(
			&r.ID, &r.ProductID, &r.Text, &r.Rating, &r.Date, &r.ReviewerName,
			&r.Verified, &r.HelpfulCount, &r.SentimentLabel, &r.SentimentScore,
			&r.IsSuspicious, &r.SuspiciousScore, &r.AnalyzedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return out, nil
}

// UpdateReviewAnalysis writes back the analysis fields of the given
// reviews inside one transaction.
func (s *Store) UpdateReviewAnalysis(ctx context.Context, reviews []models.Review) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE reviews
		SET sentiment_label = $1, sentiment_score = $2, is_suspicious = $3,
		    suspicious_score = $4, analyzed_at = $5
		WHERE id = $6`
	for _, r := range reviews {
		if _, err := tx.Exec(ctx, query,
			r.SentimentLabel, r.SentimentScore, r.IsSuspicious,
			r.SuspiciousScore, r.AnalyzedAt, r.ID,
		); err != nil {
			return fmt.Errorf("update review %d: %w", r.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ReplaceAspects regenerates all aspect mentions for a product's reviews.
func (s *Store) ReplaceAspects(ctx context.Context, productID int64, mentions []models.AspectMention) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	del := `
		DELETE FROM aspect_mentions
		WHERE review_id IN (SELECT id FROM reviews WHERE product_id = $1)`
	if _, err := tx.Exec(ctx, del, productID); err != nil {
		return fmt.Errorf("delete old aspect mentions: %w", err)
	}

	insert := `
		INSERT INTO aspect_mentions (review_id, aspect_name, sentiment, sentiment_score, sentence)
		VALUES ($1, $2, $3, $4, $5)`
	for _, m := range mentions {
		if _, err := tx.Exec(ctx, insert,
			m.ReviewID, m.AspectName, m.Sentiment, m.SentimentScore, m.Sentence,
		); err != nil {
			return fmt.Errorf("insert aspect mention: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListAspects returns a product's aspect mentions.
func (s *Store) ListAspects(ctx context.Context, productID int64) ([]models.AspectMention, error) {
	query := `
		SELECT am.id, am.review_id, am.aspect_name, am.sentiment, am.sentiment_score, am.sentence
		FROM aspect_mentions am
		JOIN reviews r ON r.id = am.review_id
		WHERE r.product_id = $1
		ORDER BY am.id`
	rows, err := s.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list aspect mentions: %w", err)
	}
	defer rows.Close()

	var out []models.AspectMention
	for rows.Next() {
		var m models.AspectMention
		if err := rows.Scan(
			&m.ID, &m.ReviewID, &m.AspectName, &m.Sentiment, &m.SentimentScore, &m.Sentence,
		); err != nil {
			return nil, fmt.Errorf("scan aspect mention row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aspect mention rows: %w", err)
	}
	return out, nil
}

// ReplaceTopics regenerates all topics for a product.
func (s *Store) ReplaceTopics(ctx context.Context, productID int64, topics []models.Topic) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM topics WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("delete old topics: %w", err)
	}

	insert := `
		INSERT INTO topics (product_id, topic_number, keywords, label, review_count)
		VALUES ($1, $2, $3, $4, $5)`
	for _, t := range topics {
		keywords, err := json.Marshal(t.Keywords)
		if err != nil {
			return fmt.Errorf("marshal topic keywords: %w", err)
		}
		if _, err := tx.Exec(ctx, insert,
			productID, t.TopicNumber, keywords, t.Label, t.ReviewCount,
		); err != nil {
			return fmt.Errorf("insert topic: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListTopics returns a product's topics ordered by topic number.
func (s *Store) ListTopics(ctx context.Context, productID int64) ([]models.Topic, error) {
	query := `
		SELECT id, product_id, topic_number, keywords, label, review_count
		FROM topics
		WHERE product_id = $1
		ORDER BY topic_number`
	rows, err := s.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	var out []models.Topic
	for rows.Next() {
		var (
			t        models.Topic
			keywords []byte
		)
		if err := rows.Scan(
			&t.ID, &t.ProductID, &t.TopicNumber, &keywords, &t.Label, &t.ReviewCount,
		); err != nil {
			return nil, fmt.Errorf("scan topic row: %w", err)
		}
		if err := json.Unmarshal(keywords, &t.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshal topic keywords: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topic rows: %w", err)
	}
	return out, nil
}

// AppendCacheEntry stores a new cache entry; rows are never updated in place.
func (s *Store) AppendCacheEntry(ctx context.Context, entry *models.CacheEntry) error {
	query := `
		INSERT INTO analysis_cache (product_id, stage, result, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := s.db.QueryRow(ctx, query,
		entry.ProductID, entry.Stage, entry.Result, entry.CreatedAt, entry.ExpiresAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert cache entry: %w", err)
	}
	return nil
}

// LatestCacheEntry returns the newest unexpired entry for (product, stage),
// or nil when none exists.
func (s *Store) LatestCacheEntry(ctx context.Context, productID int64, stage string) (*models.CacheEntry, error) {
	query := `
		SELECT id, product_id, stage, result, created_at, expires_at
		FROM analysis_cache
		WHERE product_id = $1 AND stage = $2 AND expires_at > now()
		ORDER BY created_at DESC
		LIMIT 1`
	var e models.CacheEntry
	err := s.db.QueryRow(ctx, query, productID, stage).Scan(
		&e.ID, &e.ProductID, &e.Stage, &e.Result, &e.CreatedAt, &e.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query cache entry: %w", err)
	}
	return &e, nil
}

// DeleteCacheEntries discards every cache entry of a product.
func (s *Store) DeleteCacheEntries(ctx context.Context, productID int64) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM analysis_cache WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("delete cache entries: %w", err)
	}
	return nil
}
