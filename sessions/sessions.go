// Package sessions stores per-browser chat histories.
package sessions

import (
	"context"
	"fmt"
	"time"

	"github/itish2003/ragchat/models"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Store is implemented by every session backend.
type Store interface {
	Messages(ctx context.Context, sessionID string) ([]models.ChatTurn, error)
	Append(ctx context.Context, sessionID string, turns ...models.ChatTurn) error
	Clear(ctx context.Context, sessionID string) error
	Close() error
}

// New opens the backend named by SESSION_BACKEND.
func New(ctx context.Context, backend, redisURL string, ttl time.Duration) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(ttl), nil
	case BackendRedis:
		store, err := NewRedisStore(ctx, redisURL, ttl)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", backend)
	}
}
