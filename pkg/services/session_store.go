package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"demand-copilot-api/pkg/gemini"
)

// DefaultSessionTTL is how long an idle conversation survives before
// the next message starts a fresh session.
const DefaultSessionTTL = 30 * time.Minute

// maxSessionTurns bounds the stored history. Older turns are dropped
// pairwise (user + model) so the history always starts with a user turn.
const maxSessionTurns = 20

// ChatSession is one user's running conversation.
type ChatSession struct {
	ID        string           `json:"id"`
	History   []gemini.Content `json:"history"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// SessionStore keeps per-user conversations between requests.
type SessionStore interface {
	// Get returns the user's session, or nil when there is none or it
	// has expired.
	Get(ctx context.Context, userID string) (*ChatSession, error)
	Save(ctx context.Context, userID string, session *ChatSession) error
	Delete(ctx context.Context, userID string) error
}

// MemorySessionStore is the in-process fallback used when no Redis is
// configured. Expired entries are evicted lazily on access. Get and
// Save exchange deep copies, never the stored pointer: concurrent
// requests for the same user (every anonymous client shares one key)
// must not alias the same history slice. The Redis store gets the same
// isolation from its JSON round trip.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*ChatSession
	ttl      time.Duration
	nowFn    func() time.Time
}

// cloneSession copies a session with a full-length history copy, so
// appends on the clone always reallocate instead of sharing backing
// arrays with the original.
func cloneSession(session *ChatSession) *ChatSession {
	if session == nil {
		return nil
	}
	copied := *session
	copied.History = append(make([]gemini.Content, 0, len(session.History)), session.History...)
	return &copied
}

// NewMemorySessionStore creates an in-memory store with the given TTL
// (DefaultSessionTTL when zero).
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{
		sessions: make(map[string]*ChatSession),
		ttl:      ttl,
		nowFn:    time.Now,
	}
}

func (m *MemorySessionStore) Get(_ context.Context, userID string) (*ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[userID]
	if !ok {
		return nil, nil
	}
	if m.nowFn().Sub(session.UpdatedAt) > m.ttl {
		delete(m.sessions, userID)
		return nil, nil
	}
	return cloneSession(session), nil
}

func (m *MemorySessionStore) Save(_ context.Context, userID string, session *ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := cloneSession(session)
	stored.UpdatedAt = m.nowFn()
	m.sessions[userID] = stored
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// RedisSessionStore keeps sessions in Redis so conversations survive
// process restarts and are shared across replicas. Expiry is delegated
// to the key TTL.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore wraps an existing Redis client.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(userID string) string {
	return "copilot:session:" + userID
}

func (r *RedisSessionStore) Get(ctx context.Context, userID string) (*ChatSession, error) {
	data, err := r.client.Get(ctx, sessionKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	var session ChatSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &session, nil
}

func (r *RedisSessionStore) Save(ctx context.Context, userID string, session *ChatSession) error {
	session.UpdatedAt = time.Now()
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(userID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// trimHistory drops the oldest turns pairwise once the history exceeds
// maxSessionTurns entries.
func trimHistory(history []gemini.Content) []gemini.Content {
	for len(history) > maxSessionTurns {
		history = history[2:]
	}
	return history
}
