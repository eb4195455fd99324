package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process TTL cache used when no cache URL is
// configured, shaped after the teacher's infrastructure/cache.Cache
// (cleanup goroutine over a mutex-guarded map).
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string]entry
	lists    map[string][]string
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewMemoryStore starts a background cleanup loop removing expired entries.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		data:   make(map[string]entry),
		lists:  make(map[string][]string),
		stopCh: make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

var _ storage.CacheAdapter = (*MemoryStore)(nil)

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for k, e := range s.data {
				if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
					delete(s.data, k)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Close stops the cleanup loop.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(s.data, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) SetEx(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	s.data[key] = entry{value: value, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	delete(s.lists, key)
	return nil
}

func (s *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.data[key]
	var n int64
	if e.value != "" {
		var parsed int64
		for _, c := range e.value {
			if c < '0' || c > '9' {
				parsed = 0
				break
			}
			parsed = parsed*10 + int64(c-'0')
		}
		n = parsed
	}
	n++
	s.data[key] = entry{value: itoa(n), expiresAt: e.expiresAt}
	return n, nil
}

func (s *MemoryStore) ListPushBounded(_ context.Context, key, value string, maxLen int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append([]string{value}, s.lists[key]...)
	if maxLen > 0 && len(list) > maxLen {
		list = list[:maxLen]
	}
	s.lists[key] = list
	return nil
}

func (s *MemoryStore) ListRange(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lists[key]))
	copy(out, s.lists[key])
	return out, nil
}

func (s *MemoryStore) Health(_ context.Context) storage.Health {
	return storage.Health{OK: true}
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
