// Package analysis implements the five-stage review analysis pipeline:
// sentiment, fake-detection, aspects, topics, insights. Stages are
// independent units but must run in that order because later stages read
// fields written by earlier ones.
package analysis

import (
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog/log"
)

// Sentiment labels shared by every stage.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// positiveLexicon and negativeLexicon drive the sentiment classifier.
// These are tunable constants, not laws of the domain; the classifier
// contract (label + confidence in [0,1]) is what stages depend on.
var positiveLexicon = []string{
	"good", "great", "excellent", "amazing", "awesome", "fantastic",
	"wonderful", "perfect", "love", "loved", "best", "superb", "brilliant",
	"outstanding", "incredible", "smooth", "fast", "beautiful", "comfortable",
	"reliable", "durable", "sturdy", "solid", "worth", "happy", "satisfied",
	"impressive", "nice", "crisp", "clear", "premium", "recommend",
	"recommended", "value", "lasts", "lasting",
}

var negativeLexicon = []string{
	"bad", "terrible", "horrible", "awful", "poor", "worst", "disappointing",
	"disappointed", "broken", "defective", "cheap", "slow", "waste",
	"useless", "damaged", "fake", "faulty", "unreliable", "uncomfortable",
	"fragile", "flimsy", "lag", "lags", "laggy", "drains", "drain", "hangs",
	"freezes", "crash", "crashes", "blur", "blurry", "overpriced", "refund",
	"return", "returned", "late", "delayed", "noise", "noisy", "ugly",
	"problem", "problems", "issue", "issues", "stopped", "dead",
}

// negators flip the polarity of the word that follows them.
var negators = map[string]bool{
	"not": true, "no": true, "never": true, "dont": true, "didnt": true,
	"doesnt": true, "isnt": true, "wasnt": true, "wont": true, "cant": true,
	"couldnt": true, "hardly": true, "barely": true,
}

// Classifier scores review text into {positive, negative, neutral} with a
// confidence in [0,1]. It is deterministic: the same text always yields
// the same result.
type Classifier struct {
	positive map[string]bool
	negative map[string]bool
}

var (
	classifierOnce sync.Once
	classifier     *Classifier
)

// GetClassifier returns the process-wide classifier, building it exactly
// once even under concurrent first use. First caller pays the
// initialization cost.
func GetClassifier() *Classifier {
	classifierOnce.Do(func() {
		classifier = newClassifier()
		log.Debug().
			Int("positive_terms", len(classifier.positive)).
			Int("negative_terms", len(classifier.negative)).
			Msg("Sentiment classifier initialized")
	})
	return classifier
}

func newClassifier() *Classifier {
	c := &Classifier{
		positive: make(map[string]bool, len(positiveLexicon)),
		negative: make(map[string]bool, len(negativeLexicon)),
	}
	for _, w := range positiveLexicon {
		c.positive[w] = true
	}
	for _, w := range negativeLexicon {
		c.negative[w] = true
	}
	return c
}

// Classify scores one text. Empty or near-empty input (<3 meaningful
// characters) is always neutral with confidence 0.5 and bypasses scoring.
func (c *Classifier) Classify(text string) (string, float64) {
	if len(strings.TrimSpace(text)) < 3 {
		return LabelNeutral, 0.5
	}

	// Transformer-era truncation limit kept for parity: very long tails
	// add noise, not signal.
	if len(text) > 512 {
		text = text[:512]
	}

	words := tokenizeWords(text)
	var pos, neg int
	negated := false
	for _, w := range words {
		if negators[w] {
			negated = true
			continue
		}
		switch {
		case c.positive[w]:
			if negated {
				neg++
			} else {
				pos++
			}
		case c.negative[w]:
			if negated {
				pos++
			} else {
				neg++
			}
		}
		negated = false
	}

	total := pos + neg
	if total == 0 {
		return LabelNeutral, 0.5
	}

	diff := pos - neg
	if diff < 0 {
		diff = -diff
	}
	// Confidence grows with the margin between polarities, bounded away
	// from 1 so a single strong word never reads as certainty.
	confidence := 0.5 + 0.45*float64(diff)/float64(total)

	switch {
	case pos > neg:
		return LabelPositive, confidence
	case neg > pos:
		return LabelNegative, confidence
	default:
		return LabelNeutral, 0.5
	}
}

// ClassifyBatch scores many texts. Kept as a separate entry point so the
// sentiment stage processes the whole review set in one pass.
func (c *Classifier) ClassifyBatch(texts []string) []ClassifiedText {
	out := make([]ClassifiedText, len(texts))
	for i, t := range texts {
		label, score := c.Classify(t)
		out[i] = ClassifiedText{Label: label, Score: score}
	}
	return out
}

// ClassifiedText is one batch classification result.
type ClassifiedText struct {
	Label string
	Score float64
}

// tokenizeWords lowercases and splits on non-letter runes, dropping
// apostrophes so "don't" matches the "dont" negator.
func tokenizeWords(text string) []string {
	text = strings.ToLower(strings.ReplaceAll(text, "'", ""))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}
