package analysis

import (
	"math"

	"github.com/law-makers/reviewlens/internal/store"
)

// Stage names used as cache keys and HTTP path segments.
const (
	StageSentiment = "sentiment"
	StageFake      = "fake_detection"
	StageAspects   = "aspects"
	StageTopics    = "topics"
	StageInsights  = "insights"
)

// StageOrder is the required run order: later stages read fields written
// by earlier ones.
var StageOrder = []string{
	StageSentiment,
	StageFake,
	StageAspects,
	StageTopics,
	StageInsights,
}

// Stages bundles the five analysis stages around their shared
// dependencies. The classifier is passed in as a capability rather than
// reached for globally.
type Stages struct {
	store      store.Store
	classifier *Classifier
	topicCount int
	topicWords int
}

// NewStages wires the stages. topicCount/topicWords bound the topic stage.
func NewStages(st store.Store, classifier *Classifier, topicCount, topicWords int) *Stages {
	if topicCount <= 0 {
		topicCount = 5
	}
	if topicWords <= 1 {
		topicWords = 10
	}
	return &Stages{
		store:      st,
		classifier: classifier,
		topicCount: topicCount,
		topicWords: topicWords,
	}
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
