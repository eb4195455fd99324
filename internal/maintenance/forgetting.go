package maintenance

import (
	"context"
	"math"

	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/memory"
	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
)

const retentionThreshold = 0.2

// retention computes R = exp(-t / (sigma * 10)) * sqrt(1 + r) per
// spec.md §4.6 "Forgetting", where t is days since last access, sigma is
// significance in (0,1], and r is replay_count.
func retention(daysSinceAccess, significance float64, replayCount int) float64 {
	if significance <= 0 {
		significance = 0.01
	}
	return math.Exp(-daysSinceAccess/(significance*10)) * math.Sqrt(1+float64(replayCount))
}

// forget applies the retention curve to every non-identity, non-portfolio
// memory. Identity rows live only in the relational store and portfolio
// holdings only in the relational/time-series stores, so neither is ever
// visited by this vector-store scan — satisfying "memories with the
// identity layer and portfolio holdings never decay" without a special case.
func (e *Engine) forget(ctx context.Context, userID string) (archived, decayed int, err error) {
	matches, scanErr := e.scanUser(ctx, userID)
	if scanErr != nil {
		return 0, 0, scanErr
	}

	now := e.now()
	for _, m := range matches {
		// "archived" marks an episodic row already summarized into a
		// semantic essence; "decayed" marks a semantic row whose confidence
		// has already been multiplied by its retention once. Both are
		// one-shot markers so a second back-to-back pass is a no-op
		// (spec §4.6 "all jobs idempotent") instead of re-archiving or
		// re-multiplying confidence every run.
		if metaBool(m.Metadata, "archived") || metaBool(m.Metadata, "decayed") {
			continue
		}

		layer := metaString(m.Metadata, "layer")
		lastAccessed := metaTime(m.Metadata, "last_accessed_at")
		if lastAccessed.IsZero() {
			lastAccessed = metaTime(m.Metadata, "created_at")
		}
		days := now.Sub(lastAccessed).Hours() / 24
		significance := metaFloat(m.Metadata, "importance")
		replayCount := metaInt(m.Metadata, "replay_count")

		r := retention(days, significance, replayCount)
		if r >= retentionThreshold {
			continue
		}

		switch layer {
		case string(memory.LayerEpisodic):
			if err := e.archiveEpisodic(ctx, m); err != nil {
				return archived, decayed, err
			}
			archived++
		case string(memory.LayerSemantic):
			md := cloneMeta(m.Metadata)
			md["confidence"] = metaFloat(md, "confidence") * r
			md["decayed"] = true
			if err := e.vector.UpdateMetadata(ctx, m.ID, md); err != nil {
				return archived, decayed, apperrors.StorageFailure("vector", err)
			}
			decayed++
		}
	}
	return archived, decayed, nil
}

// archiveEpisodic summarizes a low-retention episodic memory into a new
// semantic essence memory and marks the original archived via its routing
// metadata, rather than deleting it outright, so it remains retrievable as
// historical record (spec §4.6: "summarize into a semantic essence and
// archive the episodic row").
func (e *Engine) archiveEpisodic(ctx context.Context, m storage.VectorMatch) error {
	essenceID := "mem_essence_" + m.ID
	result, err := e.synth.Synthesize(ctx, "Summarize this memory into a single durable fact.", []string{m.ID}, []string{m.Document})
	if err != nil {
		return apperrors.DependencyUnavailable("llm", err)
	}

	essenceMeta := cloneMeta(m.Metadata)
	essenceMeta["layer"] = string(memory.LayerSemantic)
	essenceMeta["source_episodes"] = []string{m.ID}
	essenceMeta["confidence"] = metaFloat(m.Metadata, "confidence")

	embedding, err := e.embedder.Embed(ctx, result.Text)
	if err != nil {
		return apperrors.DependencyUnavailable("llm", err)
	}
	if err := e.vector.Upsert(ctx, essenceID, embedding, result.Text, essenceMeta); err != nil {
		return apperrors.StorageFailure("vector", err)
	}

	archivedMeta := cloneMeta(m.Metadata)
	archivedMeta["archived"] = true
	if err := e.vector.UpdateMetadata(ctx, m.ID, archivedMeta); err != nil {
		return apperrors.StorageFailure("vector", err)
	}
	return nil
}

func metaBool(md map[string]interface{}, key string) bool {
	v, _ := md[key].(bool)
	return v
}
