package maintenance

import (
	"context"
	"time"

	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/memory"
	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
)

const (
	promotionAccessCountThreshold = 3
	promotionMinAge               = 24 * time.Hour
)

// promote moves short-term memories with access_count >= 3 and age >= 24h
// into the semantic layer (spec.md §4.6 "Promotion").
func (e *Engine) promote(ctx context.Context, userID string) (int, error) {
	matches, err := e.scanUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	now := e.now()
	promoted := 0
	for _, m := range matches {
		if metaString(m.Metadata, "layer") != string(memory.LayerShortTerm) {
			continue
		}
		if metaInt(m.Metadata, "access_count") < promotionAccessCountThreshold {
			continue
		}
		created := metaTime(m.Metadata, "created_at")
		if created.IsZero() || now.Sub(created) < promotionMinAge {
			continue
		}

		md := cloneMeta(m.Metadata)
		md["layer"] = string(memory.LayerSemantic)
		if err := e.vector.UpdateMetadata(ctx, m.ID, md); err != nil {
			return promoted, apperrors.StorageFailure("vector", err)
		}
		promoted++
	}
	return promoted, nil
}
