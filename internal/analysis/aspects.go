package analysis

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/reviewlens/pkg/models"
)

// aspectKeywords maps each aspect category to the words that mark a
// sentence as being about it. The vocabulary is fixed; tune the lists,
// not the matching.
var aspectKeywords = map[string][]string{
	"quality": {
		"quality", "build", "material", "sturdy", "durable", "cheap", "solid",
		"construction", "craftsmanship", "well-made", "poorly-made", "flimsy",
	},
	"price": {
		"price", "cost", "expensive", "cheap", "worth", "value", "money",
		"affordable", "overpriced", "budget", "bargain", "deal",
	},
	"delivery": {
		"delivery", "shipping", "arrived", "package", "packaging", "damaged",
		"late", "early", "on-time", "delayed", "courier", "dispatch",
	},
	"battery": {
		"battery", "charge", "charging", "lasting", "backup", "drain",
		"drains", "power", "mah", "hours", "overnight",
	},
	"design": {
		"design", "look", "looks", "appearance", "color", "colour", "aesthetic",
		"sleek", "beautiful", "ugly", "style", "stylish", "compact", "slim",
	},
	"performance": {
		"performance", "speed", "fast", "slow", "lag", "smooth", "responsive",
		"quick", "snappy", "hangs", "freezes", "crash",
	},
	"camera": {
		"camera", "photo", "photos", "picture", "pictures", "selfie", "video",
		"lens", "zoom", "focus", "blur", "clarity",
	},
	"display": {
		"display", "screen", "resolution", "brightness", "visibility", "panel",
		"lcd", "amoled", "oled", "hd", "touch",
	},
	"sound": {
		"sound", "audio", "speaker", "volume", "bass", "music", "loud",
		"clear", "noise", "earphone", "headphone",
	},
	"customer_service": {
		"service", "support", "response", "help", "complaint", "warranty",
		"return", "refund", "replacement", "customer care",
	},
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

// splitSentences breaks review text on terminal punctuation, discarding
// fragments of ten characters or fewer.
func splitSentences(text string) []string {
	parts := sentenceSplitRe.Split(text, -1)
	var sentences []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) > 10 {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// aspectAccumulator aggregates per-aspect mention statistics.
type aspectAccumulator struct {
	positive, negative, neutral int
	totalScore                  float64
	count                       int
	samplePositive              []string
	sampleNegative              []string
}

// Aspects matches review sentences against the aspect vocabulary,
// sentiment-scores each mention independently, and regenerates all
// AspectMention rows for the product.
func (s *Stages) Aspects(ctx context.Context, productID int64) (*models.AspectResult, error) {
	reviews, err := s.store.ListReviews(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	now := time.Now().UTC()
	result := &models.AspectResult{ProductID: productID, AnalyzedAt: now}
	if len(reviews) == 0 {
		// Still clear stale rows from a previous run.
		if err := s.store.ReplaceAspects(ctx, productID, nil); err != nil {
			return nil, fmt.Errorf("clear aspects: %w", err)
		}
		return result, nil
	}

	var mentions []models.AspectMention
	acc := make(map[string]*aspectAccumulator)

	for _, review := range reviews {
		sentences := splitSentences(review.Text)
		for aspect, keywords := range aspectKeywords {
			for _, sentence := range sentences {
				if !containsKeyword(sentence, keywords) {
					continue
				}
				label, score := s.classifier.Classify(sentence)
				mentions = append(mentions, models.AspectMention{
					ReviewID:       review.ID,
					AspectName:     aspect,
					Sentiment:      label,
					SentimentScore: score,
					Sentence:       truncate(sentence, 500),
				})

				a := acc[aspect]
				if a == nil {
					a = &aspectAccumulator{}
					acc[aspect] = a
				}
				a.count++
				switch label {
				case LabelPositive:
					a.positive++
					a.totalScore += score
					if len(a.samplePositive) < 3 {
						a.samplePositive = append(a.samplePositive, truncate(sentence, 200))
					}
				case LabelNegative:
					a.negative++
					a.totalScore -= score
					if len(a.sampleNegative) < 3 {
						a.sampleNegative = append(a.sampleNegative, truncate(sentence, 200))
					}
				default:
					a.neutral++
				}
			}
		}
	}

	// Prior mentions are always fully regenerated, never patched.
	if err := s.store.ReplaceAspects(ctx, productID, mentions); err != nil {
		return nil, fmt.Errorf("replace aspects: %w", err)
	}

	for aspect, a := range acc {
		if a.count == 0 {
			continue
		}
		// Map the signed mention average from [-1,1] into [0,1].
		normalized := (a.totalScore/float64(a.count) + 1) / 2
		label := LabelNeutral
		switch {
		case normalized >= 0.6:
			label = LabelPositive
		case normalized <= 0.4:
			label = LabelNegative
		}
		result.Aspects = append(result.Aspects, models.AspectSummary{
			AspectName:     aspect,
			SentimentLabel: label,
			AverageScore:   round3(normalized),
			PositiveCount:  a.positive,
			NegativeCount:  a.negative,
			NeutralCount:   a.neutral,
			TotalMentions:  a.count,
			SamplePositive: a.samplePositive,
			SampleNegative: a.sampleNegative,
		})
	}

	sort.SliceStable(result.Aspects, func(i, j int) bool {
		if result.Aspects[i].TotalMentions != result.Aspects[j].TotalMentions {
			return result.Aspects[i].TotalMentions > result.Aspects[j].TotalMentions
		}
		return result.Aspects[i].AspectName < result.Aspects[j].AspectName
	})

	log.Debug().
		Int64("product_id", productID).
		Int("mentions", len(mentions)).
		Int("aspects", len(result.Aspects)).
		Msg("Aspect stage completed")

	return result, nil
}

func containsKeyword(sentence string, keywords []string) bool {
	lower := strings.ToLower(sentence)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
