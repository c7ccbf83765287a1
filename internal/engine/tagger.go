package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/scrypster/tagloop/internal/extractor"
	"github.com/scrypster/tagloop/internal/llm"
	"github.com/scrypster/tagloop/internal/storage"
	"github.com/scrypster/tagloop/pkg/types"
)

// Config tunes one Tagger instance.
type Config struct {
	// BatchSize bounds how many untagged feedback items one run selects.
	BatchSize int

	// ConfidenceThreshold is the gate threshold (default: 0.80).
	ConfidenceThreshold float64

	// SimilarityFloor is passed to the hybrid matcher (default: 0.5).
	SimilarityFloor float64

	// MatchLimit caps ranked candidates per item.
	MatchLimit int
}

// DefaultConfig returns the standard tagging configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:           1000,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		SimilarityFloor:     storage.DefaultSimilarityFloor,
		MatchLimit:          storage.DefaultMatchLimit,
	}
}

// Tagger is the batch orchestrator. It owns no state beyond its injected
// collaborators, so a single instance is safe to reuse across runs, and the
// per-item pipeline is safe to lift into a worker pool: the entity upsert is
// the only cross-item serialization point and the storage layer already
// guarantees its atomicity.
type Tagger struct {
	store     storage.Store
	embedder  llm.EmbeddingGenerator
	extractor extractor.Extractor
	library   *Library
	cfg       Config
}

// NewTagger wires a Tagger from its collaborators.
func NewTagger(store storage.Store, embedder llm.EmbeddingGenerator, ext extractor.Extractor, cfg Config) *Tagger {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.ConfidenceThreshold <= 0 || cfg.ConfidenceThreshold > 1 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}

	return &Tagger{
		store:     store,
		embedder:  embedder,
		extractor: ext,
		library:   NewLibrary(store, embedder),
		cfg:       cfg,
	}
}

// RunBatch selects up to maxItems untagged feedback records and drives each
// through embed → match → gate → write. Items are processed independently:
// a failure is logged, recorded in the report, and never aborts the batch.
// Pass maxItems <= 0 to use the configured batch size.
//
// The returned error covers only batch selection itself; a report with
// per-item failures is still a completed run.
func (t *Tagger) RunBatch(ctx context.Context, maxItems int) (*BatchReport, error) {
	if maxItems < 1 {
		maxItems = t.cfg.BatchSize
	}

	batch, err := t.store.ListUntagged(ctx, maxItems)
	if err != nil {
		return nil, fmt.Errorf("select untagged batch: %w", err)
	}

	report := &BatchReport{}
	if len(batch) == 0 {
		log.Printf("no untagged feedback, nothing to do")
		return report, nil
	}

	log.Printf("selected %d untagged feedback items", len(batch))

	for i := range batch {
		fb := &batch[i]
		report.Processed++

		tagged, escalated, fail := t.processItem(ctx, fb)
		if tagged {
			report.Tagged++
		}
		if escalated {
			report.Escalated++
		}
		if fail != nil {
			log.Printf("%s", fail)
			report.Failures = append(report.Failures, *fail)
		}
	}

	log.Printf("batch complete: processed=%d tagged=%d escalated=%d failures=%d",
		report.Processed, report.Tagged, report.Escalated, len(report.Failures))

	return report, nil
}

// processItem runs the full pipeline for one feedback item. Every outcome is
// terminal for this run: the item ends tagged, or untagged with a recorded
// failure, and either way the next run's selection query sorts it out.
func (t *Tagger) processItem(ctx context.Context, fb *types.Feedback) (tagged, escalated bool, fail *ItemFailure) {
	// Lazy embedding backfill. Persist before matching so a later failure
	// still leaves the vector in place for the next run.
	if !fb.HasVector() {
		vector, err := t.embedder.Embed(ctx, fb.Text)
		if err != nil {
			return false, false, &ItemFailure{FeedbackID: fb.ID, Stage: "embed", Err: err}
		}
		if err := t.store.UpdateFeedbackVector(ctx, fb.ID, vector); err != nil {
			return false, false, &ItemFailure{FeedbackID: fb.ID, Stage: "embed", Err: err}
		}
		fb.Vector = vector
	}

	matches, err := t.store.MatchEntities(ctx, fb.ID, storage.MatchOptions{
		SimilarityFloor: t.cfg.SimilarityFloor,
		Limit:           t.cfg.MatchLimit,
	})
	if err != nil {
		return false, false, &ItemFailure{FeedbackID: fb.ID, Stage: "match", Err: err}
	}

	decision, best := Evaluate(matches, t.cfg.ConfidenceThreshold)
	if decision == DecisionDirectTag {
		if err := t.store.WriteTag(ctx, fb.ID, best.EntityID, best.MatchConfidence); err != nil {
			return false, false, &ItemFailure{FeedbackID: fb.ID, Stage: "tag", Err: err}
		}
		log.Printf("feedback %s tagged with entity %s (confidence %.2f)", fb.ID, best.EntityID, best.MatchConfidence)
		return true, false, nil
	}

	log.Printf("feedback %s below threshold (%d candidates), escalating", fb.ID, len(matches))
	return t.escalate(ctx, fb)
}

// escalate routes one feedback item through the external extractor, upserts
// every extracted entity into the library, and writes both the relation row
// and the precipitation audit row per entity.
func (t *Tagger) escalate(ctx context.Context, fb *types.Feedback) (tagged, escalated bool, fail *ItemFailure) {
	candidates, err := t.extractor.Extract(ctx, fb.Text)
	if err != nil {
		// A malformed payload means the agent answered; treat it as an empty
		// extraction. Anything else is a transport-level item failure.
		if !errors.Is(err, extractor.ErrMalformedResponse) {
			return false, true, &ItemFailure{FeedbackID: fb.ID, Stage: "extract", Err: err}
		}
		log.Printf("feedback %s: extractor payload malformed, treating as empty: %v", fb.ID, err)
		candidates = nil
	}

	if len(candidates) == 0 {
		// Terminal for this run; the item stays untagged and is selected
		// again next time. Recorded so the batch report accounts for it.
		return false, true, &ItemFailure{
			FeedbackID: fb.ID,
			Stage:      "extract",
			Err:        errors.New("extractor returned no entities"),
		}
	}

	tags := 0
	for _, cand := range candidates {
		entityID, err := t.library.Upsert(ctx, cand.TypeName, cand.Value, cand.Confidence)
		if err != nil {
			log.Printf("feedback %s: upsert %q/%q failed: %v", fb.ID, cand.TypeName, cand.Value, err)
			continue
		}

		if err := t.store.WriteTag(ctx, fb.ID, entityID, cand.Confidence); err != nil {
			// The upsert is not rolled back: the entity stays in the library
			// and the item will simply match it on the next run.
			log.Printf("feedback %s: tag write for entity %s failed: %v", fb.ID, entityID, err)
			continue
		}
		tags++

		if err := t.store.WritePrecipitation(ctx, fb.ID, entityID, cand.Confidence); err != nil {
			log.Printf("feedback %s: precipitation write for entity %s failed: %v", fb.ID, entityID, err)
		}
	}

	if tags == 0 {
		return false, true, &ItemFailure{
			FeedbackID: fb.ID,
			Stage:      "tag",
			Err:        fmt.Errorf("no tags written for %d extracted entities", len(candidates)),
		}
	}

	log.Printf("feedback %s re-tagged with %d extracted entities", fb.ID, tags)
	return true, true, nil
}
