package analysis

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/reviewlens/pkg/models"
)

// genericPhrases are boilerplate fragments that real reviewers rarely
// lead with but review farms produce constantly.
var genericPhrases = []string{
	"good product", "nice product", "best product", "worst product",
	"highly recommend", "do not buy", "waste of money", "value for money",
	"must buy", "don't buy", "excellent", "terrible", "amazing", "horrible",
	"five stars", "one star", "5 stars", "1 star",
}

// spamPatterns match URLs, seller praise, and phone numbers. Any single
// match adds the spam weight once.
var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`http[s]?://`),
	regexp.MustCompile(`\b(seller|shop|store)\s+(is|was)\s+(great|best|good)\b`),
	regexp.MustCompile(`(\d{10}|\d{3}[-.\s]?\d{3}[-.\s]?\d{4})`),
}

// SuspicionScore computes the additive heuristic score in [0,100] for one
// review. Weights are tunable constants; the documented range and the
// >=50 threshold are contract.
func SuspicionScore(r models.Review) int {
	score := 0
	text := strings.ToLower(r.Text)
	wordCount := len(strings.Fields(text))
	extreme := r.Rating == 1 || r.Rating == 5

	// Short reviews with extreme ratings
	if wordCount < 10 && extreme {
		score += 30
	} else if wordCount < 20 && extreme {
		score += 15
	}

	if !r.Verified {
		score += 25
	}

	// Generic phrases, capped
	generic := 0
	for _, phrase := range genericPhrases {
		if strings.Contains(text, phrase) {
			generic++
		}
	}
	if generic*5 > 20 {
		score += 20
	} else {
		score += generic * 5
	}

	// Shouting and punctuation abuse
	if len(r.Text) > 0 {
		upper := 0
		for _, c := range r.Text {
			if unicode.IsUpper(c) {
				upper++
			}
		}
		if float64(upper)/float64(len(r.Text)) > 0.5 {
			score += 10
		}
	}
	if strings.Count(r.Text, "!") > 3 {
		score += 5
	}

	if wordCount < 5 {
		score += 10
	}
	if r.Rating == 5 && wordCount < 15 {
		score += 10
	}

	for _, re := range spamPatterns {
		if re.MatchString(text) {
			score += 10
			break
		}
	}

	if score > 100 {
		return 100
	}
	return score
}

// FakeDetection scores every review of a product, persists the suspicion
// fields, and reports flagged reviews plus duplicate clusters.
func (s *Stages) FakeDetection(ctx context.Context, productID int64) (*models.FakeResult, error) {
	reviews, err := s.store.ListReviews(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	now := time.Now().UTC()
	result := &models.FakeResult{
		ProductID:  productID,
		AnalyzedAt: now,
	}
	if len(reviews) == 0 {
		return result, nil
	}

	var flagged []models.SuspiciousReview
	for i := range reviews {
		score := SuspicionScore(reviews[i])
		reviews[i].SuspiciousScore = score
		reviews[i].IsSuspicious = score >= 50

		if reviews[i].IsSuspicious {
			flagged = append(flagged, models.SuspiciousReview{
				ReviewID:        reviews[i].ID,
				Text:            truncate(reviews[i].Text, 200),
				Rating:          reviews[i].Rating,
				SuspiciousScore: score,
				Verified:        reviews[i].Verified,
				Reasons:         suspicionReasons(reviews[i]),
			})
		}
	}

	if err := s.store.UpdateReviewAnalysis(ctx, reviews); err != nil {
		return nil, fmt.Errorf("persist suspicion scores: %w", err)
	}

	sort.SliceStable(flagged, func(i, j int) bool {
		return flagged[i].SuspiciousScore > flagged[j].SuspiciousScore
	})
	if len(flagged) > 10 {
		flagged = flagged[:10]
	}

	result.TotalReviews = len(reviews)
	result.SuspiciousCount = countSuspicious(reviews)
	result.SuspiciousPercent = round1(float64(result.SuspiciousCount) / float64(len(reviews)) * 100)
	result.SuspiciousReviews = flagged
	result.DuplicateClusters = duplicateClusters(reviews)

	log.Debug().
		Int64("product_id", productID).
		Int("suspicious", result.SuspiciousCount).
		Int("clusters", len(result.DuplicateClusters)).
		Msg("Fake-detection stage completed")

	return result, nil
}

func countSuspicious(reviews []models.Review) int {
	n := 0
	for _, r := range reviews {
		if r.IsSuspicious {
			n++
		}
	}
	return n
}

// suspicionReasons renders the triggered heuristics for human consumption.
func suspicionReasons(r models.Review) []string {
	var reasons []string
	text := strings.ToLower(r.Text)
	wordCount := len(strings.Fields(text))

	if !r.Verified {
		reasons = append(reasons, "Not a verified purchase")
	}
	if wordCount < 10 && (r.Rating == 1 || r.Rating == 5) {
		reasons = append(reasons, "Very short review with extreme rating")
	}
	generic := 0
	for _, phrase := range genericPhrases {
		if strings.Contains(text, phrase) {
			generic++
		}
	}
	if generic >= 2 {
		reasons = append(reasons, "Contains generic/common phrases")
	}
	if wordCount < 5 {
		reasons = append(reasons, "Extremely short review")
	}
	if spamPatterns[0].MatchString(text) {
		reasons = append(reasons, "Contains URLs")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "Multiple minor suspicious indicators")
	}
	return reasons
}

// duplicateClusters groups reviews by a first-3/last-3 word signature.
// Only meaningful once at least ten reviews exist; a group of two or more
// is a suspected template.
func duplicateClusters(reviews []models.Review) []models.DuplicateCluster {
	if len(reviews) < 10 {
		return nil
	}

	type member struct {
		id   int64
		text string
	}
	groups := make(map[string][]member)
	var order []string
	for _, r := range reviews {
		words := strings.Fields(strings.ToLower(r.Text))
		if len(words) < 5 {
			continue
		}
		key := strings.Join(words[:3], " ") + " ... " + strings.Join(words[len(words)-3:], " ")
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], member{id: r.ID, text: truncate(r.Text, 100)})
	}

	var clusters []models.DuplicateCluster
	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		c := models.DuplicateCluster{Pattern: key, Count: len(group)}
		for i, m := range group {
			if i >= 5 {
				break
			}
			c.ReviewIDs = append(c.ReviewIDs, m.id)
			c.Samples = append(c.Samples, m.text)
		}
		clusters = append(clusters, c)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Count > clusters[j].Count
	})
	if len(clusters) > 5 {
		clusters = clusters[:5]
	}
	return clusters
}
