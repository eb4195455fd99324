package profile

import (
	"context"
	"sync"

	domainprofile "github.com/ankitaa186/agentic-memories-sub004/internal/domain/profile"
)

type Category = domainprofile.Category
type Field = domainprofile.Field

// Store persists per-user profile fields plus the contributing-memory audit
// trail (spec §4.5: "Audit is maintained by a separate table linking each
// field to the memory ids that contributed"). A relational adapter migration
// (profile_fields/profile_sources/profile_confidence_scores) already models
// this shape; this in-process Store backs tests and local runs the same way
// internal/storage/memstore backs the relational adapter.
type Store interface {
	UpsertField(ctx context.Context, f Field) error
	GetField(ctx context.Context, userID string, category Category, name string) (Field, bool, error)
	ListFields(ctx context.Context, userID string) ([]Field, error)
	DeleteField(ctx context.Context, userID string, category Category, name string) error
}

type fieldKey struct {
	userID, category, name string
}

// MemoryStore is an in-process implementation of Store.
type MemoryStore struct {
	mu     sync.Mutex
	fields map[fieldKey]Field
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{fields: make(map[fieldKey]Field)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) UpsertField(_ context.Context, f Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields[fieldKey{f.UserID, string(f.Category), f.Name}] = f
	return nil
}

func (s *MemoryStore) GetField(_ context.Context, userID string, category Category, name string) (Field, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fields[fieldKey{userID, string(category), name}]
	return f, ok, nil
}

func (s *MemoryStore) ListFields(_ context.Context, userID string) ([]Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Field
	for k, f := range s.fields {
		if k.userID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteField(_ context.Context, userID string, category Category, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fields, fieldKey{userID, string(category), name})
	return nil
}
