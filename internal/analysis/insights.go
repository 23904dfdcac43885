package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/reviewlens/pkg/models"
)

// insightStopwords filter keyword extraction for praises/complaints.
// Broader than the topic list: auxiliaries and filler verbs included.
var insightStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "have": true,
	"has": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "must": true, "shall": true, "can": true, "need": true,
	"dare": true, "ought": true, "used": true, "to": true, "of": true,
	"in": true, "for": true, "on": true, "with": true, "at": true,
	"by": true, "from": true, "as": true, "into": true, "through": true,
	"during": true, "before": true, "after": true, "above": true,
	"below": true, "between": true, "under": true, "again": true,
	"further": true, "then": true, "once": true, "here": true,
	"there": true, "when": true, "where": true, "why": true, "how": true,
	"all": true, "each": true, "every": true, "both": true, "few": true,
	"more": true, "most": true, "other": true, "some": true, "such": true,
	"no": true, "nor": true, "not": true, "only": true, "own": true,
	"same": true, "so": true, "than": true, "too": true, "very": true,
	"just": true, "also": true, "and": true, "but": true, "or": true,
	"if": true, "because": true, "while": true, "although": true,
	"this": true, "that": true, "these": true, "those": true, "i": true,
	"me": true, "my": true, "we": true, "our": true, "you": true,
	"your": true, "he": true, "she": true, "it": true, "they": true,
	"them": true, "its": true, "product": true, "amazon": true,
	"flipkart": true, "buy": true, "bought": true, "one": true,
	"get": true, "got": true, "use": true, "using": true, "like": true,
	"really": true, "much": true, "even": true, "still": true,
	"well": true, "back": true, "time": true, "thing": true, "things": true,
}

// praiseTerms and complaintTerms get a 3x tally boost so sentiment-laden
// words surface above ordinary nouns.
var praiseTerms = map[string]bool{
	"excellent": true, "amazing": true, "awesome": true, "fantastic": true,
	"wonderful": true, "perfect": true, "great": true, "love": true,
	"best": true, "superb": true, "brilliant": true, "outstanding": true,
	"incredible": true, "smooth": true, "fast": true, "beautiful": true,
	"comfortable": true, "reliable": true, "durable": true,
}

var complaintTerms = map[string]bool{
	"terrible": true, "horrible": true, "awful": true, "poor": true,
	"bad": true, "worst": true, "disappointing": true, "broken": true,
	"defective": true, "cheap": true, "slow": true, "waste": true,
	"useless": true, "damaged": true, "fake": true, "faulty": true,
	"unreliable": true, "uncomfortable": true, "fragile": true,
}

// Insights aggregates the product's analyzed reviews into a single
// summary. It reads the sentiment and suspicion fields written by the
// earlier stages, so it must run last.
func (s *Stages) Insights(ctx context.Context, productID int64) (*models.InsightsResult, error) {
	if _, err := s.store.GetProduct(ctx, productID); err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	reviews, err := s.store.ListReviews(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	now := time.Now().UTC()
	result := &models.InsightsResult{
		ProductID:          productID,
		OverallScore:       50.0,
		RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		AnalyzedAt:         now,
	}
	if len(reviews) == 0 {
		return result, nil
	}

	var (
		ratingSum int
		analyzed  int
		dist      models.SentimentDistribution
		positives []models.Review
		negatives []models.Review
		fakeCount int
	)
	for _, r := range reviews {
		if r.Rating >= 1 && r.Rating <= 5 {
			result.RatingDistribution[r.Rating]++
		}
		ratingSum += r.Rating
		switch r.SentimentLabel {
		case LabelPositive:
			dist.Positive++
			analyzed++
			positives = append(positives, r)
		case LabelNegative:
			dist.Negative++
			analyzed++
			negatives = append(negatives, r)
		case LabelNeutral:
			dist.Neutral++
			analyzed++
		}
		if r.IsSuspicious {
			fakeCount++
		}
	}

	if analyzed > 0 {
		dist.PositivePercent = round1(float64(dist.Positive) / float64(analyzed) * 100)
		dist.NegativePercent = round1(float64(dist.Negative) / float64(analyzed) * 100)
		dist.NeutralPercent = round1(float64(dist.Neutral) / float64(analyzed) * 100)
	}
	result.Sentiment = dist

	avgRating := float64(ratingSum) / float64(len(reviews))
	ratingScore := avgRating / 5 * 100

	sentimentScore := 50.0
	if analyzed > 0 {
		positiveRatio := float64(dist.Positive) / float64(analyzed)
		negativeRatio := float64(dist.Negative) / float64(analyzed)
		sentimentScore = (positiveRatio - negativeRatio + 1) / 2 * 100
	}
	// Text sentiment outweighs stars: ratings are gamed more easily.
	result.OverallScore = round2(sentimentScore*0.6 + ratingScore*0.4)
	result.TotalReviews = len(reviews)
	result.AvgRating = round2(avgRating)

	// Best positives: strongest sentiment, then highest rating.
	sort.SliceStable(positives, func(i, j int) bool {
		if positives[i].SentimentScore != positives[j].SentimentScore {
			return positives[i].SentimentScore > positives[j].SentimentScore
		}
		return positives[i].Rating > positives[j].Rating
	})
	// Worst negatives: strongest sentiment, then lowest rating.
	sort.SliceStable(negatives, func(i, j int) bool {
		if negatives[i].SentimentScore != negatives[j].SentimentScore {
			return negatives[i].SentimentScore > negatives[j].SentimentScore
		}
		return negatives[i].Rating < negatives[j].Rating
	})
	result.TopPositive = rankReviews(positives, 5)
	result.TopNegative = rankReviews(negatives, 5)

	result.CommonPraises = commonKeywords(positives, praiseTerms, 10)
	result.CommonComplaints = commonKeywords(negatives, complaintTerms, 10)

	result.FakeReviewCount = fakeCount
	result.FakeReviewPercent = round1(float64(fakeCount) / float64(len(reviews)) * 100)

	log.Debug().
		Int64("product_id", productID).
		Float64("overall_score", result.OverallScore).
		Int("fake_count", fakeCount).
		Msg("Insights stage completed")

	return result, nil
}

func rankReviews(reviews []models.Review, n int) []models.RankedReview {
	var out []models.RankedReview
	for i, r := range reviews {
		if i >= n {
			break
		}
		out = append(out, models.RankedReview{
			ReviewID:       r.ID,
			Text:           truncate(r.Text, 300),
			Rating:         r.Rating,
			SentimentScore: r.SentimentScore,
		})
	}
	return out
}

// commonKeywords tallies meaningful words across reviews, tripling the
// weight of the target sentiment terms, and returns the top n.
func commonKeywords(reviews []models.Review, target map[string]bool, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, r := range reviews {
		for _, raw := range strings.Fields(strings.ToLower(r.Text)) {
			w := strings.Trim(raw, `.,!?";:()[]{}`)
			if len(w) <= 2 || insightStopwords[w] {
				continue
			}
			if _, seen := counts[w]; !seen {
				order = append(order, w)
			}
			if target[w] {
				counts[w] += 3
			} else {
				counts[w]++
			}
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return order[i] < order[j]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}
