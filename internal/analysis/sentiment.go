package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/reviewlens/pkg/models"
)

// Sentiment classifies every review of a product, writes the labels back
// onto the review rows, and aggregates an overall product score
// normalized to [0,100].
func (s *Stages) Sentiment(ctx context.Context, productID int64) (*models.SentimentResult, error) {
	reviews, err := s.store.ListReviews(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	now := time.Now().UTC()
	if len(reviews) == 0 {
		return &models.SentimentResult{
			ProductID:    productID,
			OverallScore: 50.0,
			OverallLabel: LabelNeutral,
			AnalyzedAt:   now,
		}, nil
	}

	texts := make([]string, len(reviews))
	for i, r := range reviews {
		texts[i] = r.Text
	}
	classified := s.classifier.ClassifyBatch(texts)

	var (
		positive, negative, neutral int
		mismatches                  int
		totalScore                  float64
	)
	for i := range reviews {
		label, score := classified[i].Label, classified[i].Score
		reviews[i].SentimentLabel = label
		reviews[i].SentimentScore = score
		reviews[i].AnalyzedAt = &now

		switch label {
		case LabelPositive:
			positive++
			totalScore += score
		case LabelNegative:
			negative++
			totalScore -= score
		default:
			neutral++
		}

		// Star rating contradicting the text is a signal in its own right.
		if (label == LabelPositive && reviews[i].Rating <= 2) ||
			(label == LabelNegative && reviews[i].Rating >= 4) {
			mismatches++
		}
	}

	if err := s.store.UpdateReviewAnalysis(ctx, reviews); err != nil {
		return nil, fmt.Errorf("persist sentiment: %w", err)
	}

	total := len(reviews)
	overall := clampPercent(((totalScore/float64(total))+1)/2*100)
	label := LabelNeutral
	switch {
	case overall >= 60:
		label = LabelPositive
	case overall <= 40:
		label = LabelNegative
	}

	log.Debug().
		Int64("product_id", productID).
		Float64("overall_score", overall).
		Int("mismatches", mismatches).
		Msg("Sentiment stage completed")

	return &models.SentimentResult{
		ProductID:    productID,
		OverallScore: round2(overall),
		OverallLabel: label,
		Distribution: models.SentimentDistribution{
			Positive:        positive,
			Negative:        negative,
			Neutral:         neutral,
			PositivePercent: round1(float64(positive) / float64(total) * 100),
			NegativePercent: round1(float64(negative) / float64(total) * 100),
			NeutralPercent:  round1(float64(neutral) / float64(total) * 100),
		},
		Mismatches:   mismatches,
		TotalReviews: total,
		AnalyzedAt:   now,
	}, nil
}
