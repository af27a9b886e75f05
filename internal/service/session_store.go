package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lunasphere/account-service/internal/domain"
	"github.com/lunasphere/account-service/internal/utils"
	"github.com/lunasphere/account-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when a session handle is unknown or expired
var ErrSessionNotFound = errors.New("session not found")

// SessionStore manages server-side sessions. Only the session ID leaves the
// process; the browser carries it inside a sealed cookie.
type SessionStore interface {
	Establish(ctx context.Context, userID string, ttl time.Duration) (*domain.Session, error)
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Terminate(ctx context.Context, sessionID string) error
}

// redisSessionStore keeps sessions in Redis with a TTL
type redisSessionStore struct {
	redis *database.Redis
}

// NewSessionStore creates a Redis-backed session store
func NewSessionStore(redis *database.Redis) SessionStore {
	return &redisSessionStore{redis: redis}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// Establish creates a new session for the user
func (s *redisSessionStore) Establish(ctx context.Context, userID string, ttl time.Duration) (*domain.Session, error) {
	id, err := utils.NewSessionID()
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(ttl)
	if err := s.redis.Client.Set(ctx, sessionKey(id), userID, ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to establish session: %w", err)
	}

	return &domain.Session{ID: id, UserID: userID, ExpiresAt: expiresAt}, nil
}

// Get looks up a session by its handle
func (s *redisSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	key := sessionKey(sessionID)

	userID, err := s.redis.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	ttl, err := s.redis.Client.TTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session ttl: %w", err)
	}

	return &domain.Session{ID: sessionID, UserID: userID, ExpiresAt: time.Now().Add(ttl)}, nil
}

// Terminate removes a session. Terminating an unknown session is a no-op.
func (s *redisSessionStore) Terminate(ctx context.Context, sessionID string) error {
	if err := s.redis.Client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to terminate session: %w", err)
	}
	return nil
}
