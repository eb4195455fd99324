package maintenance

import (
	"context"
	"sort"

	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
)

const (
	consolidationSignificanceThreshold = 0.6
	consolidationTopN                  = 10
)

// consolidate replays the user's highest-significance memories (importance
// >= 0.6, at most 10 per run, not restricted to the current day; increment
// replay_count) as a proxy for spec §4.6's "extracts patterns across the
// day" step. Pattern extraction itself is left to the narrative/profile
// projectors, which already summarize across memories; this job's
// observable contract is the replay_count increment used by the forgetting
// job's retention formula.
func (e *Engine) consolidate(ctx context.Context, userID string) (int, error) {
	matches, err := e.scanUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return metaFloat(matches[i].Metadata, "importance") > metaFloat(matches[j].Metadata, "importance")
	})

	replayed := 0
	for _, m := range matches {
		if metaFloat(m.Metadata, "importance") < consolidationSignificanceThreshold {
			continue
		}
		if replayed >= consolidationTopN {
			break
		}

		md := cloneMeta(m.Metadata)
		md["replay_count"] = metaInt(md, "replay_count") + 1
		if err := e.vector.UpdateMetadata(ctx, m.ID, md); err != nil {
			return replayed, apperrors.StorageFailure("vector", err)
		}
		replayed++
	}
	return replayed, nil
}

func cloneMeta(md map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
