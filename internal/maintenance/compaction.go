package maintenance

import (
	"context"

	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/vector"
)

const compactionSimilarityThreshold = 0.95

// compact dedupes near-duplicates within a user: pairs with cosine
// similarity >= 0.95 and the same layer merge into the higher-importance
// one, accumulating access_count (spec.md §4.6 "Compaction").
func (e *Engine) compact(ctx context.Context, userID string) (int, error) {
	matches, err := e.scanUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	merged := 0
	removed := make(map[string]bool, len(matches))
	for i := 0; i < len(matches); i++ {
		if removed[matches[i].ID] {
			continue
		}
		for j := i + 1; j < len(matches); j++ {
			if removed[matches[j].ID] {
				continue
			}
			if !eligiblePair(matches[i], matches[j]) {
				continue
			}

			similarity := 1 - vector.CosineDistance(matches[i].Embedding, matches[j].Embedding)
			if similarity < compactionSimilarityThreshold {
				continue
			}

			keepIdx, dropIdx := i, j
			if metaFloat(matches[j].Metadata, "importance") > metaFloat(matches[i].Metadata, "importance") {
				keepIdx, dropIdx = j, i
			}
			keep, drop := matches[keepIdx], matches[dropIdx]

			md := cloneMeta(keep.Metadata)
			md["access_count"] = metaInt(keep.Metadata, "access_count") + metaInt(drop.Metadata, "access_count")
			if err := e.vector.UpdateMetadata(ctx, keep.ID, md); err != nil {
				return merged, apperrors.StorageFailure("vector", err)
			}
			if err := e.vector.Delete(ctx, drop.ID); err != nil {
				return merged, apperrors.StorageFailure("vector", err)
			}
			removed[drop.ID] = true
			merged++
		}
	}
	return merged, nil
}

func eligiblePair(a, b storage.VectorMatch) bool {
	if metaBool(a.Metadata, "archived") || metaBool(b.Metadata, "archived") {
		return false
	}
	if metaString(a.Metadata, "layer") != metaString(b.Metadata, "layer") {
		return false
	}
	return len(a.Embedding) > 0 && len(b.Embedding) > 0
}
