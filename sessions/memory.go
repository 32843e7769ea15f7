package sessions

import (
	"context"
	"sync"
	"time"

	"github/itish2003/ragchat/models"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps chat histories in process memory and expires idle sessions.
type MemoryStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewMemoryStore purges expired sessions every ttl/6, at least once a minute.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	cleanup := ttl / 6
	if cleanup > time.Minute || cleanup <= 0 {
		cleanup = time.Minute
	}
	return &MemoryStore{cache: cache.New(ttl, cleanup)}
}

func (s *MemoryStore) Messages(_ context.Context, sessionID string) ([]models.ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(sessionID), nil
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, turns ...models.ChatTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.load(sessionID), turns...)
	s.cache.Set(sessionID, history, cache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(sessionID)
	return nil
}

func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}

// load returns a private copy so callers never share the cached slice.
func (s *MemoryStore) load(sessionID string) []models.ChatTurn {
	x, found := s.cache.Get(sessionID)
	if !found {
		return []models.ChatTurn{}
	}
	stored := x.([]models.ChatTurn)
	out := make([]models.ChatTurn, len(stored))
	copy(out, stored)
	return out
}
