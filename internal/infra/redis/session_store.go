package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-orchestrator/internal/app"
	"quiz-orchestrator/internal/domain"
)

// SessionStore keeps sessions in process and claims each session id in Redis,
// so two instances sharing a Redis cannot host the same id.
//
// Keys: quiz:session:{id} -> instance value, expiring after ttl unless
// refreshed by KeepAlive.
type SessionStore struct {
	client   redis.UniversalClient
	ttl      time.Duration
	instance string

	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client redis.UniversalClient, ttl time.Duration, instance string) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		instance: instance,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Create(ctx context.Context, id, hostConnID string, now time.Time) (*app.Session, error) {
	if _, ok := s.Get(id); ok {
		return nil, fmt.Errorf("create session %q: %w", id, domain.ErrSessionExists)
	}

	// The claim decides between concurrent creators, so the round-trip runs
	// without the lock.
	claimed, err := s.client.SetNX(ctx, s.key(id), s.instance, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("claim session %q: %w", id, err)
	}
	if !claimed {
		return nil, fmt.Errorf("create session %q: %w", id, domain.ErrSessionExists)
	}

	session := app.NewSession(id, hostConnID, now)
	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()
	return session, nil
}

func (s *SessionStore) Get(id string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *SessionStore) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return false
	}
	// best-effort: the claim expires on its own otherwise
	_ = s.client.Del(ctx, s.key(id)).Err()
	return true
}

func (s *SessionStore) Sessions() []*app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// KeepAlive extends the claim of every listed session in one pipeline.
func (s *SessionStore) KeepAlive(ctx context.Context, ids []string) error {
	if s.ttl <= 0 || len(ids) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Expire(ctx, s.key(id), s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *SessionStore) key(id string) string {
	return "quiz:session:" + id
}
