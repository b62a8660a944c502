package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/example/merch-storefront/internal/domain/checkout"
)

var ErrSessionNotFound = errors.New("session not found")

// Store persists checkout sessions between requests
type Store interface {
	Get(ctx context.Context, id string) (*checkout.Session, error)
	Save(ctx context.Context, s *checkout.Session) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	session   checkout.Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Entries expire after the TTL.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*checkout.Session, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || (m.ttl > 0 && !m.now().Before(entry.expiresAt)) {
		return nil, ErrSessionNotFound
	}
	return clone(&entry.session), nil
}

func (m *MemoryStore) Save(_ context.Context, s *checkout.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = memoryEntry{session: *clone(s), expiresAt: m.now().Add(m.ttl)}
	m.evictExpired()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// evictExpired must be called with the write lock held
func (m *MemoryStore) evictExpired() {
	if m.ttl <= 0 {
		return
	}
	t := m.now()
	for id, entry := range m.sessions {
		if !t.Before(entry.expiresAt) {
			delete(m.sessions, id)
		}
	}
}

func clone(s *checkout.Session) *checkout.Session {
	c := *s
	c.Cart.Items = s.Cart.Lines()
	if s.Result != nil {
		r := *s.Result
		c.Result = &r
	}
	return &c
}
