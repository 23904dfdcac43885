package models

import "time"

// RawReview is a single review as extracted from a page, before it is
// persisted. Uniqueness within one scrape run is defined by exact text
// equality.
type RawReview struct {
	Text         string    `json:"text"`
	Rating       int       `json:"rating"`
	Date         time.Time `json:"date"`
	ReviewerName string    `json:"reviewer_name"`
	Verified     bool      `json:"verified"`
	HelpfulCount int       `json:"helpful_count"`
}

// Product represents a scraped product. The canonical URL is the unique
// key: re-requesting the same URL reuses the existing product.
type Product struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name,omitempty"`
	URL          string     `json:"url"`
	Platform     string     `json:"platform"`
	TotalReviews int        `json:"total_reviews"`
	AvgRating    float64    `json:"avg_rating"`
	ScrapedAt    *time.Time `json:"scraped_at,omitempty"`
	LastAnalyzed *time.Time `json:"last_analyzed,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Review is a persisted review row. Sentiment fields stay empty until the
// sentiment stage has run; SuspiciousScore is always in [0,100] and
// IsSuspicious holds exactly when SuspiciousScore >= 50.
type Review struct {
	ID              int64      `json:"id"`
	ProductID       int64      `json:"product_id"`
	Text            string     `json:"text"`
	Rating          int        `json:"rating"`
	Date            time.Time  `json:"date"`
	ReviewerName    string     `json:"reviewer_name,omitempty"`
	Verified        bool       `json:"verified"`
	HelpfulCount    int        `json:"helpful_count"`
	SentimentLabel  string     `json:"sentiment_label,omitempty"`
	SentimentScore  float64    `json:"sentiment_score"`
	IsSuspicious    bool       `json:"is_suspicious"`
	SuspiciousScore int        `json:"suspicious_score"`
	AnalyzedAt      *time.Time `json:"analyzed_at,omitempty"`
}

// AspectMention records one sentence of a review that mentions an aspect,
// with its own sentiment. Mentions are regenerated wholesale on each
// aspect-stage run.
type AspectMention struct {
	ID             int64   `json:"id"`
	ReviewID       int64   `json:"review_id"`
	AspectName     string  `json:"aspect_name"`
	Sentiment      string  `json:"sentiment"`
	SentimentScore float64 `json:"sentiment_score"`
	Sentence       string  `json:"mentioned_sentence"`
}

// Topic is one discovered review topic for a product. Topics are
// regenerated wholesale on each topic-stage run.
type Topic struct {
	ID          int64    `json:"id"`
	ProductID   int64    `json:"product_id"`
	TopicNumber int      `json:"topic_number"`
	Keywords    []string `json:"keywords"`
	Label       string   `json:"label"`
	ReviewCount int      `json:"review_count"`
}

// CacheEntry is one cached analysis stage result. Entries are append-only:
// the newest unexpired entry per (product, stage) is authoritative.
type CacheEntry struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Stage     string    `json:"stage"`
	Result    []byte    `json:"result"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JobStatus is the lifecycle state of a scrape job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// ScrapeJob tracks one background scrape. Status moves exactly once from
// pending to running, then to one terminal state, and never reverses.
type ScrapeJob struct {
	JobID          string     `json:"job_id"`
	Status         JobStatus  `json:"status"`
	ProductID      *int64     `json:"product_id,omitempty"`
	Progress       int        `json:"progress"`
	ReviewsScraped int        `json:"reviews_scraped"`
	Message        string     `json:"message,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Error          string     `json:"error,omitempty"`
}
