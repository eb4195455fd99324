package maintenance

import (
	"context"

	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/memory"
	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
)

// reconcile re-applies the typed write for every memory whose stored_in_*
// flag indicates a typed row should exist (spec.md §4.6 "Reconciliation").
// Relational upserts are idempotent, so re-applying is a no-op for rows
// already present and a repair for any that were dropped by a failed
// best-effort write.
func (e *Engine) reconcile(ctx context.Context, userID string) (int, error) {
	matches, err := e.scanUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range matches {
		if metaBool(m.Metadata, memory.MetaStoredInEpisodic) {
			if payload, ok := m.Metadata["episodic_payload"].(memory.Episodic); ok {
				if err := e.relational.UpsertEpisodic(ctx, payload); err != nil {
					return applied, apperrors.StorageFailure("relational", err)
				}
				applied++
			}
		}
		if metaBool(m.Metadata, memory.MetaStoredInEmotional) {
			if payload, ok := m.Metadata["emotional_payload"].(memory.Emotional); ok {
				if err := e.relational.UpsertEmotional(ctx, payload); err != nil {
					return applied, apperrors.StorageFailure("relational", err)
				}
				applied++
			}
		}
		if metaBool(m.Metadata, memory.MetaStoredInProcedural) {
			if payload, ok := m.Metadata["procedural_payload"].(memory.Procedural); ok {
				if err := e.relational.UpsertProcedural(ctx, payload); err != nil {
					return applied, apperrors.StorageFailure("relational", err)
				}
				applied++
			}
		}
	}
	return applied, nil
}
