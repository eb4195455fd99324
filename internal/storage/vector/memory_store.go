// Package vector implements the vector adapter as an in-process
// cosine-similarity index. No vector database driver appears anywhere in the
// retrieved corpus, so this adapter is built fresh in the BaseStore idiom
// (mutex-guarded map, context-first methods, Health probe) rather than
// grounded on a specific teacher file.
package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
)

type record struct {
	id        string
	embedding []float32
	document  string
	metadata  map[string]interface{}
}

// Store is an in-memory implementation of storage.VectorAdapter. It is the
// default when no external vector database endpoint is configured, and the
// reference implementation the cosine-similarity scoring math is tested
// against.
type Store struct {
	mu   sync.RWMutex
	data map[string]record
}

// New creates an empty in-process vector store.
func New() *Store {
	return &Store{data: make(map[string]record)}
}

var _ storage.VectorAdapter = (*Store)(nil)

func (s *Store) Upsert(_ context.Context, id string, embedding []float32, document string, metadata map[string]interface{}) error {
	cp := make([]float32, len(embedding))
	copy(cp, embedding)
	metaCopy := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		metaCopy[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = record{id: id, embedding: cp, document: document, metadata: metaCopy}
	return nil
}

func (s *Store) UpdateMetadata(_ context.Context, id string, metadata map[string]interface{}) error {
	metaCopy := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		metaCopy[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.data[id]
	if !ok {
		return fmt.Errorf("vector: no record %q", id)
	}
	r.metadata = metaCopy
	s.data[id] = r
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *Store) Get(_ context.Context, ids []string) ([]storage.VectorMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.VectorMatch, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.data[id]; ok {
			out = append(out, toMatch(r, 0))
		}
	}
	return out, nil
}

func (s *Store) Query(_ context.Context, embedding []float32, filter storage.VectorFilter, topK int) ([]storage.VectorMatch, error) {
	s.mu.RLock()
	candidates := make([]record, 0, len(s.data))
	for _, r := range s.data {
		if matchesFilter(r, filter) {
			candidates = append(candidates, r)
		}
	}
	s.mu.RUnlock()

	scored := make([]storage.VectorMatch, 0, len(candidates))
	for _, r := range candidates {
		score := 0.0
		if len(embedding) > 0 {
			score = 1 - cosineDistance(embedding, r.embedding)
		}
		scored = append(scored, toMatch(r, score))
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (s *Store) Scan(_ context.Context, filter storage.VectorFilter, offset, limit int) ([]storage.VectorMatch, int, error) {
	s.mu.RLock()
	candidates := make([]record, 0, len(s.data))
	for _, r := range s.data {
		if matchesFilter(r, filter) {
			candidates = append(candidates, r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		ti := timestampOf(candidates[i])
		tj := timestampOf(candidates[j])
		return ti.After(tj)
	})

	total := len(candidates)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}

	out := make([]storage.VectorMatch, 0, end-offset)
	for _, r := range candidates[offset:end] {
		out = append(out, toMatch(r, 0))
	}
	return out, total, nil
}

func (s *Store) Health(_ context.Context) storage.Health {
	start := time.Now()
	s.mu.RLock()
	_ = len(s.data)
	s.mu.RUnlock()
	return storage.Health{OK: true, LatencyMS: time.Since(start).Milliseconds()}
}

func toMatch(r record, score float64) storage.VectorMatch {
	return storage.VectorMatch{ID: r.id, Score: score, Document: r.document, Metadata: r.metadata, Embedding: r.embedding}
}

func timestampOf(r record) time.Time {
	if v, ok := r.metadata["created_at"]; ok {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

func matchesFilter(r record, f storage.VectorFilter) bool {
	if f.UserID != "" {
		if v, _ := r.metadata["user_id"].(string); v != f.UserID {
			return false
		}
	}
	if f.Layer != "" {
		if v, _ := r.metadata["layer"].(string); v != f.Layer {
			return false
		}
	}
	if f.Type != "" {
		if v, _ := r.metadata["type"].(string); v != f.Type {
			return false
		}
	}
	if len(f.Tags) > 0 {
		tagSet := map[string]bool{}
		if raw, ok := r.metadata["tags"].([]string); ok {
			for _, t := range raw {
				tagSet[t] = true
			}
		}
		for _, want := range f.Tags {
			if !tagSet[want] {
				return false
			}
		}
	}
	ts := timestampOf(r)
	if f.Since != nil && ts.Before(*f.Since) {
		return false
	}
	if f.Until != nil && ts.After(*f.Until) {
		return false
	}
	return true
}

// CosineDistance is exported for the maintenance engine's compaction dedup
// check (spec §4.6: cosine similarity >= 0.95).
func CosineDistance(a, b []float32) float64 {
	return cosineDistance(a, b)
}

func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	similarity := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return 1 - similarity
}
