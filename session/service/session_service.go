// Package service owns session lifecycle: creating, renaming, archiving,
// clearing and deleting sessions, plus folding file attachments into
// transcripts.
package service

import (
	"context"

	"chat-aggregator/backend/pkg/config"
	"chat-aggregator/backend/pkg/errors"
	"chat-aggregator/backend/pkg/logger"
	"chat-aggregator/backend/session/models"
	"chat-aggregator/backend/session/query"
	"chat-aggregator/backend/session/store"
)

// SessionService wraps the store with lifecycle rules
type SessionService struct {
	store *store.SessionStore
	cfg   *config.Config
	log   *logger.Logger
}

// NewSessionService creates a session lifecycle service
func NewSessionService(sessions *store.SessionStore, cfg *config.Config, log *logger.Logger) *SessionService {
	return &SessionService{
		store: sessions,
		cfg:   cfg,
		log:   log,
	}
}

// ListOptions narrows and orders a session listing
type ListOptions struct {
	Query           string
	Sort            query.SortOrder
	IncludeArchived bool
}

// Create starts a new session. A zero selection falls back to the configured
// default provider.
func (s *SessionService) Create(ctx context.Context, selection models.ModelSelection) (*models.ChatSession, error) {
	if selection.IsZero() {
		selection = models.SingleSelection(s.cfg.Providers.Default)
	}
	return s.store.Create(ctx, selection)
}

// List returns sessions filtered and ordered per opts. Archived sessions are
// excluded unless asked for.
func (s *SessionService) List(ctx context.Context, opts ListOptions) []*models.ChatSession {
	sessions := s.store.List(ctx)

	if !opts.IncludeArchived {
		active := sessions[:0]
		for _, sess := range sessions {
			if sess.Status != models.StatusArchived {
				active = append(active, sess)
			}
		}
		sessions = active
	}

	sessions = query.Search(sessions, opts.Query)

	order := opts.Sort
	if order == "" {
		order = query.SortNewest
	}
	return query.SortedBy(sessions, order)
}

// Get returns one session by id
func (s *SessionService) Get(ctx context.Context, id string) (*models.ChatSession, error) {
	sess, ok := s.store.Get(ctx, id)
	if !ok {
		return nil, errors.NewNotFoundError("SESSION_NOT_FOUND", "no session with id "+id)
	}
	return sess, nil
}

// Rename sets a session's display name
func (s *SessionService) Rename(ctx context.Context, id, name string) (*models.ChatSession, error) {
	sess, ok := s.store.Update(ctx, id, func(cs *models.ChatSession) {
		cs.Name = name
	})
	if !ok {
		return nil, errors.NewNotFoundError("SESSION_NOT_FOUND", "no session with id "+id)
	}
	return sess, nil
}

// SetModel changes which providers the session routes turns to
func (s *SessionService) SetModel(ctx context.Context, id string, selection models.ModelSelection) (*models.ChatSession, error) {
	if selection.IsZero() {
		return nil, errors.NewBadRequestError("INVALID_SELECTION", "model selection must not be empty")
	}
	sess, ok := s.store.Update(ctx, id, func(cs *models.ChatSession) {
		cs.Model = selection
	})
	if !ok {
		return nil, errors.NewNotFoundError("SESSION_NOT_FOUND", "no session with id "+id)
	}
	return sess, nil
}

// ToggleArchive flips a session between active and archived
func (s *SessionService) ToggleArchive(ctx context.Context, id string) (*models.ChatSession, error) {
	if err := s.store.SetArchived(ctx, id); err != nil {
		return nil, err
	}
	sess, ok := s.store.Get(ctx, id)
	if !ok {
		return nil, errors.NewNotFoundError("SESSION_NOT_FOUND", "no session with id "+id)
	}
	return sess, nil
}

// ClearTranscript empties a session's message history. The session itself and
// its selection survive.
func (s *SessionService) ClearTranscript(ctx context.Context, id string) (*models.ChatSession, error) {
	sess, ok := s.store.Update(ctx, id, func(cs *models.ChatSession) {
		cs.Messages = nil
	})
	if !ok {
		return nil, errors.NewNotFoundError("SESSION_NOT_FOUND", "no session with id "+id)
	}
	return sess, nil
}

// Delete removes a session. When the deleted session was the caller's active
// one, a replacement comes back: the most recently updated survivor, or a
// fresh session when none remain.
func (s *SessionService) Delete(ctx context.Context, id string, wasActive bool) (*models.ChatSession, error) {
	if err := s.store.Delete(ctx, id); err != nil {
		return nil, err
	}
	if !wasActive {
		return nil, nil
	}

	survivors := query.SortedBy(s.store.List(ctx), query.SortNewest)
	for _, sess := range survivors {
		if sess.Status != models.StatusArchived {
			return sess, nil
		}
	}
	return s.Create(ctx, models.ModelSelection{})
}

// Attach validates a file attachment and folds it into the transcript as a
// system message. Validation failures leave the session untouched.
func (s *SessionService) Attach(ctx context.Context, id string, att models.FileAttachment) (*models.ChatSession, error) {
	if !s.mediaTypeAllowed(att.MediaType) {
		return nil, errors.NewUnsupportedMediaTypeError("UNSUPPORTED_MEDIA_TYPE",
			"media type not allowed: "+att.MediaType)
	}
	// The declared size is advisory; the measured content length is authoritative.
	if att.SizeBytes > s.cfg.Limits.MaxAttachmentSize ||
		int64(len(att.Content)) > s.cfg.Limits.MaxAttachmentSize {
		return nil, errors.NewPayloadTooLargeError("ATTACHMENT_TOO_LARGE",
			"attachment exceeds the maximum allowed size")
	}

	sess, ok := s.store.Update(ctx, id, func(cs *models.ChatSession) {
		cs.Append(att.AsSystemMessage())
	})
	if !ok {
		return nil, errors.NewNotFoundError("SESSION_NOT_FOUND", "no session with id "+id)
	}
	return sess, nil
}

func (s *SessionService) mediaTypeAllowed(mediaType string) bool {
	for _, allowed := range s.cfg.Limits.AllowedMediaTypes {
		if mediaType == allowed {
			return true
		}
	}
	return false
}
