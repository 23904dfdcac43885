package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/reviewlens/internal/store"
)

// ErrUnknownStage is returned for a stage name outside StageOrder.
var ErrUnknownStage = errors.New("unknown analysis stage")

// Runner drives the analysis pipeline: single stages on demand with
// caching, or the full ordered run after a scrape.
type Runner struct {
	store  store.Store
	stages *Stages
	cache  *Cache
}

// NewRunner wires the pipeline over a store. cacheTTL <= 0 defaults to
// 24 hours.
func NewRunner(st store.Store, topicCount, topicWords int, cacheTTL time.Duration) *Runner {
	return &Runner{
		store:  st,
		stages: NewStages(st, GetClassifier(), topicCount, topicWords),
		cache:  NewCache(st, cacheTTL),
	}
}

// runStage executes one stage and serializes its result.
func (r *Runner) runStage(ctx context.Context, productID int64, stage string) (json.RawMessage, error) {
	var (
		result any
		err    error
	)
	switch stage {
	case StageSentiment:
		result, err = r.stages.Sentiment(ctx, productID)
	case StageFake:
		result, err = r.stages.FakeDetection(ctx, productID)
	case StageAspects:
		result, err = r.stages.Aspects(ctx, productID)
	case StageTopics:
		result, err = r.stages.Topics(ctx, productID)
	case StageInsights:
		result, err = r.stages.Insights(ctx, productID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal %s result: %w", stage, err)
	}
	return payload, nil
}

// Stage returns the result for one stage, from cache unless force is set
// or no unexpired entry exists. A fresh run is cached before returning.
func (r *Runner) Stage(ctx context.Context, productID int64, stage string, force bool) (json.RawMessage, error) {
	if _, err := r.store.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	if !force {
		cached, err := r.cache.Get(ctx, productID, stage)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			log.Debug().
				Int64("product_id", productID).
				Str("stage", stage).
				Msg("Serving analysis from cache")
			return cached, nil
		}
	}

	payload, err := r.runStage(ctx, productID, stage)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Put(ctx, productID, stage, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// RunAll executes every stage in order, caching each result. The first
// stage error halts the run; later stages read fields written by earlier
// ones, so continuing past a failure would report on stale data. On
// success the product's LastAnalyzed timestamp is stamped.
func (r *Runner) RunAll(ctx context.Context, productID int64) error {
	product, err := r.store.GetProduct(ctx, productID)
	if err != nil {
		return err
	}

	started := time.Now()
	for _, stage := range StageOrder {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := r.runStage(ctx, productID, stage)
		if err != nil {
			return fmt.Errorf("stage %s: %w", stage, err)
		}
		if err := r.cache.Put(ctx, productID, stage, payload); err != nil {
			return fmt.Errorf("stage %s: %w", stage, err)
		}
	}

	now := time.Now().UTC()
	product.LastAnalyzed = &now
	if err := r.store.UpdateProduct(ctx, product); err != nil {
		return fmt.Errorf("stamp last_analyzed: %w", err)
	}

	log.Info().
		Int64("product_id", productID).
		Dur("elapsed", time.Since(started)).
		Msg("Full analysis run completed")
	return nil
}

// Reanalyze invalidates every cached entry for the product and runs the
// full pipeline from scratch.
func (r *Runner) Reanalyze(ctx context.Context, productID int64) error {
	if _, err := r.store.GetProduct(ctx, productID); err != nil {
		return err
	}
	if err := r.cache.Invalidate(ctx, productID); err != nil {
		return err
	}
	return r.RunAll(ctx, productID)
}
