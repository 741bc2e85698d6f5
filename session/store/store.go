// Package store persists the chat session collection as a single named
// record in a key-value medium.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"chat-aggregator/backend/pkg/cache"
	"chat-aggregator/backend/pkg/kv"
	"chat-aggregator/backend/pkg/logger"
	"chat-aggregator/backend/session/models"

	"github.com/google/uuid"
)

// SessionStore is the durable mapping of session identifier to session
// record. The whole collection lives in one record, so every write is a
// read-modify-write of that record and writes serialize on a single mutex;
// there is no partially written state observable by readers.
//
// Read failures (medium unavailable, corrupt record) degrade to an empty
// collection: chat history is not safety-critical and must never take the
// client down.
type SessionStore struct {
	kv    kv.Store
	key   string
	cache *cache.Cache
	log   *logger.Logger
	mu    sync.Mutex
}

// NewSessionStore creates a store over the given record medium. The cache
// holds the decoded collection between reads and may be nil.
func NewSessionStore(medium kv.Store, recordKey string, c *cache.Cache, log *logger.Logger) *SessionStore {
	return &SessionStore{
		kv:    medium,
		key:   recordKey,
		cache: c,
		log:   log,
	}
}

// Create allocates a fresh session with an empty transcript and persists it
func (s *SessionStore) Create(ctx context.Context, selection models.ModelSelection) (*models.ChatSession, error) {
	now := time.Now()
	sess := &models.ChatSession{
		ID:        uuid.NewString(),
		Name:      "Chat " + now.Format("2006-01-02 15:04:05"),
		Messages:  []models.Message{},
		Model:     selection,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    models.StatusActive,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load(ctx)
	sessions = append(sessions, sess.Clone())
	if err := s.save(ctx, sessions); err != nil {
		return nil, err
	}
	return sess, nil
}

// Upsert persists the given session, replacing any existing record with the
// same identifier, else appending
func (s *SessionStore) Upsert(ctx context.Context, sess *models.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load(ctx)
	replaced := false
	for i, existing := range sessions {
		if existing.ID == sess.ID {
			sessions[i] = sess.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		sessions = append(sessions, sess.Clone())
	}
	return s.save(ctx, sessions)
}

// Update loads the latest state of a session, applies fn and persists the
// result. It reports false when the identifier is unknown. This is the
// mutation path for transcript appends: fn always sees the newest persisted
// transcript, so completions landing after a session switch still append to
// the right session.
func (s *SessionStore) Update(ctx context.Context, id string, fn func(*models.ChatSession)) (*models.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load(ctx)
	for i, sess := range sessions {
		if sess.ID == id {
			fn(sessions[i])
			if err := s.save(ctx, sessions); err != nil {
				s.log.LogError(err, "failed to persist session update", "session_id", id)
			}
			return sessions[i].Clone(), true
		}
	}
	return nil, false
}

// List returns all persisted sessions. Storage failures yield an empty list.
func (s *SessionStore) List(ctx context.Context) []*models.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Get returns a single session by identifier
func (s *SessionStore) Get(ctx context.Context, id string) (*models.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.load(ctx) {
		if sess.ID == id {
			return sess, true
		}
	}
	return nil, false
}

// Delete removes a session record; deleting an absent identifier is a no-op
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load(ctx)
	filtered := sessions[:0]
	for _, sess := range sessions {
		if sess.ID != id {
			filtered = append(filtered, sess)
		}
	}
	if len(filtered) == len(sessions) {
		return nil
	}
	return s.save(ctx, filtered)
}

// SetArchived toggles a session between active and archived. Archiving never
// deletes data; toggling an absent identifier is a no-op.
func (s *SessionStore) SetArchived(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load(ctx)
	for _, sess := range sessions {
		if sess.ID == id {
			if sess.Status == models.StatusArchived {
				sess.Status = models.StatusActive
			} else {
				sess.Status = models.StatusArchived
			}
			return s.save(ctx, sessions)
		}
	}
	return nil
}

// load decodes the session collection, returning clones so callers never
// share state with the cache
func (s *SessionStore) load(ctx context.Context) []*models.ChatSession {
	if s.cache != nil {
		if cached, ok := s.cache.Get(s.key); ok {
			return cloneAll(cached.([]*models.ChatSession))
		}
	}

	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.log.LogError(err, "failed to read session record", "key", s.key)
		return nil
	}

	var sessions []*models.ChatSession
	if err := json.Unmarshal(raw, &sessions); err != nil {
		s.log.LogError(err, "corrupt session record, starting empty", "key", s.key)
		return nil
	}

	for _, sess := range sessions {
		normalize(sess)
	}

	if s.cache != nil {
		s.cache.Set(s.key, cloneAll(sessions))
	}
	return sessions
}

// save encodes and writes the whole collection, refreshing the cache
func (s *SessionStore) save(ctx context.Context, sessions []*models.ChatSession) error {
	raw, err := json.Marshal(sessions)
	if err != nil {
		s.log.LogError(err, "failed to encode session record", "key", s.key)
		return err
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		s.log.LogError(err, "failed to write session record", "key", s.key)
		return err
	}
	if s.cache != nil {
		s.cache.Set(s.key, cloneAll(sessions))
	}
	return nil
}

// normalize backfills fields missing from legacy records: sessions without a
// status are active, messages without a timestamp get the current time
func normalize(sess *models.ChatSession) {
	if sess.Status == "" {
		sess.Status = models.StatusActive
	}
	if sess.Messages == nil {
		sess.Messages = []models.Message{}
	}
	for i := range sess.Messages {
		if sess.Messages[i].CreatedAt.IsZero() {
			sess.Messages[i].CreatedAt = time.Now()
		}
	}
}

func cloneAll(sessions []*models.ChatSession) []*models.ChatSession {
	out := make([]*models.ChatSession, len(sessions))
	for i, sess := range sessions {
		out[i] = sess.Clone()
	}
	return out
}
