// Package service orchestrates chat turns: routing one user utterance to its
// target providers, fanning the completion calls out concurrently and
// assembling the responses back into the session transcript.
package service

import (
	"context"

	"chat-aggregator/backend/ai"
	"chat-aggregator/backend/pkg/errors"
	"chat-aggregator/backend/pkg/logger"
	"chat-aggregator/backend/session/models"
	"chat-aggregator/backend/session/store"
)

// TurnService routes user turns to completion providers
type TurnService struct {
	store    *store.SessionStore
	registry *ai.Registry
	sink     EventSink
	log      *logger.Logger
}

// NewTurnService creates a turn orchestrator. sink may be nil.
func NewTurnService(sessions *store.SessionStore, registry *ai.Registry, sink EventSink, log *logger.Logger) *TurnService {
	if sink == nil {
		sink = noopSink{}
	}
	return &TurnService{
		store:    sessions,
		registry: registry,
		sink:     sink,
		log:      log,
	}
}

// TurnResult is everything one turn appended to the transcript: the user
// message first, then one assistant message per target provider in arrival
// order.
type TurnResult struct {
	SessionID string           `json:"session_id"`
	Messages  []models.Message `json:"messages"`
	Failed    []string         `json:"failed,omitempty"`
}

// completion is one provider's settled invocation
type completion struct {
	providerID string
	message    models.Message
	failed     bool
}

// Submit runs one full turn. Target resolution happens before any transcript
// mutation, so an unknown provider in the session's selection rejects the
// turn with no state change. Once the user message is accepted the turn
// always completes: per-provider failures become transcript content, never
// errors.
func (s *TurnService) Submit(ctx context.Context, sessionID, content string) (*TurnResult, error) {
	sess, ok := s.store.Get(ctx, sessionID)
	if !ok {
		return nil, errors.NewNotFoundError("SESSION_NOT_FOUND", "no session with id "+sessionID)
	}

	targets, err := s.resolveTargets(sess, content)
	if err != nil {
		return nil, err
	}

	// The user message is appended and persisted before any provider call
	// begins. The session id is captured here; completions are bound to it,
	// not to whatever session is current when they settle.
	var userMsg models.Message
	updated, ok := s.store.Update(ctx, sessionID, func(cs *models.ChatSession) {
		userMsg = AppendUser(cs, content)
	})
	if !ok {
		return nil, errors.NewNotFoundError("SESSION_NOT_FOUND", "no session with id "+sessionID)
	}

	result := &TurnResult{
		SessionID: sessionID,
		Messages:  []models.Message{userMsg},
	}

	s.sink.Publish(Event{
		Type:      EventUserMessage,
		SessionID: sessionID,
		Message:   &userMsg,
		Pending:   targets,
	})

	if len(targets) == 0 {
		s.sink.Publish(Event{Type: EventTurnComplete, SessionID: sessionID})
		return result, nil
	}

	transcript := snapshot(updated.Messages)

	// Fan out: one goroutine per target, no ordering between them. Each
	// invocation settles into exactly one message, success or notice.
	results := make(chan completion, len(targets))
	for _, id := range targets {
		go s.invoke(ctx, id, transcript, results)
	}

	pending := make(map[string]bool, len(targets))
	for _, id := range targets {
		pending[id] = true
	}

	appended := make([]models.Message, 0, len(targets))
	for range targets {
		c := <-results
		delete(pending, c.providerID)

		appended = append(appended, c.message)
		result.Messages = append(result.Messages, c.message)
		if c.failed {
			result.Failed = append(result.Failed, c.providerID)
		}

		msg := c.message
		s.sink.Publish(Event{
			Type:      EventAssistantMessage,
			SessionID: sessionID,
			Message:   &msg,
			Pending:   pendingList(targets, pending),
		})
	}

	// One persistence pass per turn, against the captured session id. The
	// transcript re-read inside Update may have moved on (another turn, a
	// clear); the responses append to whatever it is now.
	s.store.Update(ctx, sessionID, func(cs *models.ChatSession) {
		for _, msg := range appended {
			cs.Append(msg)
		}
	})

	s.sink.Publish(Event{Type: EventTurnComplete, SessionID: sessionID})
	return result, nil
}

// invoke runs one provider call and converts its outcome into a message
func (s *TurnService) invoke(ctx context.Context, providerID string, transcript []ai.Turn, results chan<- completion) {
	provider, ok := s.registry.Get(providerID)
	if !ok {
		// Targets are validated before fan-out; this is unreachable unless
		// the registry changes mid-turn.
		results <- completion{
			providerID: providerID,
			message:    models.NewProviderMessage(providerID, UnavailableNotice(providerID)),
			failed:     true,
		}
		return
	}

	text, err := provider.Complete(ctx, transcript)
	if err != nil {
		s.log.Warn("provider completion failed", "provider", providerID, "error", err.Error())
		results <- completion{
			providerID: providerID,
			message:    models.NewProviderMessage(providerID, UnavailableNotice(providerID)),
			failed:     true,
		}
		return
	}

	results <- completion{
		providerID: providerID,
		message:    models.NewProviderMessage(providerID, text),
	}
}

// resolveTargets decides the ordered provider set for one utterance.
// Explicit mentions fully override the session's selection.
func (s *TurnService) resolveTargets(sess *models.ChatSession, content string) ([]string, error) {
	if targets, mentioned := ParseMentions(content, s.registry.Has); mentioned {
		return targets, nil
	}

	sel := sess.Model
	switch sel.Kind() {
	case models.SelectionAll:
		return s.registry.IDs(), nil
	case models.SelectionSingle, models.SelectionList:
		ids := sel.Providers()
		for _, id := range ids {
			if !s.registry.Has(id) {
				return nil, errors.NewBadRequestError("UNKNOWN_PROVIDER", "unknown provider: "+id)
			}
		}
		return ids, nil
	}
	return nil, nil
}

// snapshot converts the transcript into provider turns, frozen at submit time
func snapshot(messages []models.Message) []ai.Turn {
	turns := make([]ai.Turn, len(messages))
	for i, msg := range messages {
		turns[i] = ai.Turn{Role: string(msg.Role), Content: msg.Content}
	}
	return turns
}

// pendingList preserves target order for the pending set
func pendingList(targets []string, pending map[string]bool) []string {
	var out []string
	for _, id := range targets {
		if pending[id] {
			out = append(out, id)
		}
	}
	return out
}
