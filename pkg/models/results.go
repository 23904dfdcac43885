package models

import "time"

// Stage result payloads returned by the analysis pipeline. All of these
// are JSON-serializable and are what the cache stores verbatim.

// SentimentDistribution counts reviews per sentiment label alongside
// percentages in [0,100].
type SentimentDistribution struct {
	Positive        int     `json:"positive"`
	Negative        int     `json:"negative"`
	Neutral         int     `json:"neutral"`
	PositivePercent float64 `json:"positive_percent"`
	NegativePercent float64 `json:"negative_percent"`
	NeutralPercent  float64 `json:"neutral_percent"`
}

// SentimentResult is the sentiment stage payload. OverallScore is
// normalized to [0,100]; >=60 is positive, <=40 negative.
type SentimentResult struct {
	ProductID    int64                 `json:"product_id"`
	OverallScore float64               `json:"overall_score"`
	OverallLabel string                `json:"overall_label"`
	Distribution SentimentDistribution `json:"distribution"`
	Mismatches   int                   `json:"rating_vs_sentiment_mismatch"`
	TotalReviews int                   `json:"total_reviews"`
	AnalyzedAt   time.Time             `json:"analyzed_at"`
}

// SuspiciousReview is one flagged review inside a FakeResult.
type SuspiciousReview struct {
	ReviewID        int64    `json:"review_id"`
	Text            string   `json:"text"`
	Rating          int      `json:"rating"`
	SuspiciousScore int      `json:"suspicious_score"`
	Verified        bool     `json:"verified_purchase"`
	Reasons         []string `json:"reasons"`
}

// DuplicateCluster groups reviews sharing a first-3/last-3 word signature.
type DuplicateCluster struct {
	Pattern   string   `json:"pattern"`
	Count     int      `json:"count"`
	ReviewIDs []int64  `json:"review_ids"`
	Samples   []string `json:"samples"`
}

// FakeResult is the fake-detection stage payload.
type FakeResult struct {
	ProductID         int64              `json:"product_id"`
	TotalReviews      int                `json:"total_reviews"`
	SuspiciousCount   int                `json:"suspicious_count"`
	SuspiciousPercent float64            `json:"suspicious_percent"`
	SuspiciousReviews []SuspiciousReview `json:"suspicious_reviews"`
	DuplicateClusters []DuplicateCluster `json:"duplicate_clusters"`
	AnalyzedAt        time.Time          `json:"analyzed_at"`
}

// AspectSummary aggregates all mentions of one aspect. AverageScore is
// normalized to [0,1]; >=0.6 positive, <=0.4 negative.
type AspectSummary struct {
	AspectName     string   `json:"aspect_name"`
	SentimentLabel string   `json:"sentiment_label"`
	AverageScore   float64  `json:"average_score"`
	PositiveCount  int      `json:"positive_count"`
	NegativeCount  int      `json:"negative_count"`
	NeutralCount   int      `json:"neutral_count"`
	TotalMentions  int      `json:"total_mentions"`
	SamplePositive []string `json:"sample_positive"`
	SampleNegative []string `json:"sample_negative"`
}

// AspectResult is the aspect stage payload, sorted by mention count
// descending.
type AspectResult struct {
	ProductID  int64           `json:"product_id"`
	Aspects    []AspectSummary `json:"aspects"`
	AnalyzedAt time.Time       `json:"analyzed_at"`
}

// TopicSummary is one discovered topic in a TopicResult.
type TopicSummary struct {
	TopicNumber int      `json:"topic_number"`
	Label       string   `json:"topic_label"`
	Keywords    []string `json:"keywords"`
	ReviewCount int      `json:"review_count"`
}

// TopicResult is the topic stage payload. Topics is empty when fewer
// than ten usable documents exist.
type TopicResult struct {
	ProductID  int64          `json:"product_id"`
	Topics     []TopicSummary `json:"topics"`
	AnalyzedAt time.Time      `json:"analyzed_at"`
}

// RankedReview is a top positive/negative review inside an InsightsResult.
type RankedReview struct {
	ReviewID       int64   `json:"id"`
	Text           string  `json:"text"`
	Rating         int     `json:"rating"`
	SentimentScore float64 `json:"sentiment_score"`
}

// InsightsResult is the insights stage payload. OverallScore weights the
// sentiment component 0.6 and the rating component 0.4.
type InsightsResult struct {
	ProductID          int64                 `json:"product_id"`
	OverallScore       float64               `json:"overall_score"`
	TotalReviews       int                   `json:"total_reviews"`
	AvgRating          float64               `json:"avg_rating"`
	RatingDistribution map[int]int           `json:"rating_distribution"`
	Sentiment          SentimentDistribution `json:"sentiment_distribution"`
	TopPositive        []RankedReview        `json:"top_positive_reviews"`
	TopNegative        []RankedReview        `json:"top_negative_reviews"`
	CommonPraises      []string              `json:"common_praises"`
	CommonComplaints   []string              `json:"common_complaints"`
	FakeReviewCount    int                   `json:"fake_review_count"`
	FakeReviewPercent  float64               `json:"fake_review_percent"`
	AnalyzedAt         time.Time             `json:"analyzed_at"`
}
