package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/reviewlens/pkg/models"
)

// topicStopwords are dropped before topic discovery. Marketplace names
// and purchase verbs are in here because they dominate every review
// corpus without distinguishing anything.
var topicStopwords = map[string]bool{
	"i": true, "me": true, "my": true, "myself": true, "we": true, "our": true,
	"ours": true, "ourselves": true, "you": true, "your": true, "yours": true,
	"yourself": true, "yourselves": true, "he": true, "him": true, "his": true,
	"himself": true, "she": true, "her": true, "hers": true, "herself": true,
	"it": true, "its": true, "itself": true, "they": true, "them": true,
	"their": true, "theirs": true, "themselves": true, "what": true,
	"which": true, "who": true, "whom": true, "this": true, "that": true,
	"these": true, "those": true, "am": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "having": true, "do": true,
	"does": true, "did": true, "doing": true, "a": true, "an": true,
	"the": true, "and": true, "but": true, "if": true, "or": true,
	"because": true, "as": true, "until": true, "while": true, "of": true,
	"at": true, "by": true, "for": true, "with": true, "about": true,
	"against": true, "between": true, "into": true, "through": true,
	"during": true, "before": true, "after": true, "above": true,
	"below": true, "to": true, "from": true, "up": true, "down": true,
	"in": true, "out": true, "on": true, "off": true, "over": true,
	"under": true, "again": true, "further": true, "then": true,
	"once": true, "here": true, "there": true, "when": true, "where": true,
	"why": true, "how": true, "all": true, "each": true, "few": true,
	"more": true, "most": true, "other": true, "some": true, "such": true,
	"no": true, "nor": true, "not": true, "only": true, "own": true,
	"same": true, "so": true, "than": true, "too": true, "very": true,
	"s": true, "t": true, "can": true, "will": true, "just": true,
	"don": true, "should": true, "now": true, "product": true,
	"amazon": true, "flipkart": true, "buy": true, "bought": true,
	"one": true, "get": true, "got": true, "use": true, "used": true,
	"using": true, "also": true, "really": true, "would": true,
	"could": true, "like": true, "much": true, "even": true, "still": true,
	"well": true, "back": true, "time": true,
}

// topicLabels maps leading keywords to readable topic names.
var topicLabels = map[string]string{
	"battery":     "Battery Performance",
	"charge":      "Charging Experience",
	"screen":      "Display Quality",
	"display":     "Display Quality",
	"camera":      "Camera Quality",
	"photo":       "Photography",
	"delivery":    "Shipping & Delivery",
	"shipping":    "Shipping & Delivery",
	"price":       "Value for Money",
	"money":       "Value for Money",
	"quality":     "Build Quality",
	"build":       "Build Quality",
	"sound":       "Audio Quality",
	"speaker":     "Speaker Performance",
	"performance": "Device Performance",
	"speed":       "Performance & Speed",
	"design":      "Design & Aesthetics",
	"color":       "Appearance",
	"service":     "Customer Service",
	"support":     "Customer Support",
}

// topicTokens lowercases, strips non-letters, and drops stopwords and
// words of two letters or fewer.
func topicTokens(text string) []string {
	mapped := strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		if r >= 'a' && r <= 'z' {
			return r
		}
		return ' '
	}, text)

	var tokens []string
	for _, w := range strings.Fields(mapped) {
		if len(w) > 2 && !topicStopwords[w] {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// discoveredTopic is one frequency-cluster before labeling.
type discoveredTopic struct {
	keywords []string
	docCount int
}

// discoverTopics clusters documents by a seed word and its co-occurring
// vocabulary. A seed must appear in at least three documents; each topic
// consumes its seed and top-five related words so topics stay distinct.
func discoverTopics(documents [][]string, numTopics, numWords int) []discoveredTopic {
	freq := make(map[string]int)
	docSets := make([]map[string]bool, len(documents))
	for i, doc := range documents {
		set := make(map[string]bool, len(doc))
		for _, w := range doc {
			freq[w]++
			set[w] = true
		}
		docSets[i] = set
	}

	// Frequency-ordered candidate seeds, ties broken alphabetically for
	// deterministic output.
	type wordCount struct {
		word  string
		count int
	}
	ordered := make([]wordCount, 0, len(freq))
	for w, c := range freq {
		ordered = append(ordered, wordCount{w, c})
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return ordered[i].word < ordered[j].word
	})
	if len(ordered) > 100 {
		ordered = ordered[:100]
	}

	used := make(map[string]bool)
	var topics []discoveredTopic

	for _, cand := range ordered {
		if len(topics) >= numTopics || used[cand.word] {
			continue
		}
		var docsWithWord []int
		for i, set := range docSets {
			if set[cand.word] {
				docsWithWord = append(docsWithWord, i)
			}
		}
		if len(docsWithWord) < 3 {
			continue
		}

		coOccur := make(map[string]int)
		for _, idx := range docsWithWord {
			for _, w := range documents[idx] {
				if w != cand.word && !used[w] {
					coOccur[w]++
				}
			}
		}
		related := make([]wordCount, 0, len(coOccur))
		for w, c := range coOccur {
			related = append(related, wordCount{w, c})
		}
		sort.SliceStable(related, func(i, j int) bool {
			if related[i].count != related[j].count {
				return related[i].count > related[j].count
			}
			return related[i].word < related[j].word
		})
		if len(related) > numWords-1 {
			related = related[:numWords-1]
		}

		keywords := []string{cand.word}
		used[cand.word] = true
		for i, r := range related {
			keywords = append(keywords, r.word)
			if i < 5 {
				used[r.word] = true
			}
		}
		topics = append(topics, discoveredTopic{keywords: keywords, docCount: len(docsWithWord)})
	}
	return topics
}

// labelTopic names a topic from its first three keywords, falling back to
// a capitalized keyword.
func labelTopic(keywords []string) string {
	for i, kw := range keywords {
		if i >= 3 {
			break
		}
		if label, ok := topicLabels[kw]; ok {
			return label
		}
	}
	return strings.ToUpper(keywords[0][:1]) + keywords[0][1:] + " Related"
}

// Topics discovers up to topicCount keyword clusters across a product's
// reviews and regenerates the stored Topic rows. Fewer than ten usable
// documents yields an empty result; the cluster set is too noisy below
// that.
func (s *Stages) Topics(ctx context.Context, productID int64) (*models.TopicResult, error) {
	reviews, err := s.store.ListReviews(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	result := &models.TopicResult{ProductID: productID, AnalyzedAt: time.Now().UTC()}

	var documents [][]string
	for _, r := range reviews {
		tokens := topicTokens(r.Text)
		if len(tokens) >= 3 {
			documents = append(documents, tokens)
		}
	}
	if len(documents) < 10 {
		if err := s.store.ReplaceTopics(ctx, productID, nil); err != nil {
			return nil, fmt.Errorf("clear topics: %w", err)
		}
		return result, nil
	}

	discovered := discoverTopics(documents, s.topicCount, s.topicWords)

	var rows []models.Topic
	for i, topic := range discovered {
		keywords := topic.keywords
		if len(keywords) > 10 {
			keywords = keywords[:10]
		}
		label := labelTopic(keywords)
		rows = append(rows, models.Topic{
			ProductID:   productID,
			TopicNumber: i + 1,
			Keywords:    keywords,
			Label:       label,
			ReviewCount: topic.docCount,
		})
		result.Topics = append(result.Topics, models.TopicSummary{
			TopicNumber: i + 1,
			Label:       label,
			Keywords:    keywords,
			ReviewCount: topic.docCount,
		})
	}

	if err := s.store.ReplaceTopics(ctx, productID, rows); err != nil {
		return nil, fmt.Errorf("replace topics: %w", err)
	}

	log.Debug().
		Int64("product_id", productID).
		Int("documents", len(documents)).
		Int("topics", len(result.Topics)).
		Msg("Topic stage completed")

	return result, nil
}
