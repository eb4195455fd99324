// Package graph implements the optional memory-relation adapter (spec §9
// design notes: SIMILAR_TO / LED_TO edges, bounded 2-hop neighbor queries).
// When not configured, retrieval scores graph_proximity as 0 uniformly.
package graph

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
)

// Store implements storage.GraphAdapter over a memory_edges table in the
// same PostgreSQL pool used by the relational adapter.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ storage.GraphAdapter = (*Store)(nil)

func (s *Store) AddEdge(ctx context.Context, e storage.GraphEdge) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_edges (src_id, dst_id, relation, weight, created_at)
		VALUES ($1,$2,$3,$4, now())
		ON CONFLICT (src_id, dst_id, relation) DO UPDATE SET weight = EXCLUDED.weight`,
		e.SrcID, e.DstID, string(e.Relation), e.Weight)
	if err != nil {
		return fmt.Errorf("add edge: %w", err)
	}
	return nil
}

// Neighbors performs a bounded breadth-first traversal up to depth hops,
// tracking visited ids to avoid cycles, and returns each reached memory id
// mapped to its hop distance.
func (s *Store) Neighbors(ctx context.Context, memoryID string, depth int) (map[string]int, error) {
	if depth <= 0 {
		depth = 2
	}
	visited := map[string]int{memoryID: 0}
	frontier := []string{memoryID}

	for hop := 1; hop <= depth; hop++ {
		if len(frontier) == 0 {
			break
		}
		rows, err := s.db.QueryContext(ctx, `
			SELECT dst_id FROM memory_edges WHERE src_id = ANY($1)
			UNION
			SELECT src_id FROM memory_edges WHERE dst_id = ANY($1)`,
			pqStrings(frontier))
		if err != nil {
			return nil, fmt.Errorf("neighbors hop %d: %w", hop, err)
		}

		var next []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan neighbor: %w", err)
			}
			if _, seen := visited[id]; seen {
				continue
			}
			visited[id] = hop
			next = append(next, id)
		}
		rows.Close()
		frontier = next
	}

	delete(visited, memoryID)
	return visited, nil
}

func (s *Store) Health(ctx context.Context) storage.Health {
	start := time.Now()
	err := s.db.PingContext(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return storage.Health{OK: false, LatencyMS: latency, Detail: err.Error()}
	}
	return storage.Health{OK: true, LatencyMS: latency}
}
