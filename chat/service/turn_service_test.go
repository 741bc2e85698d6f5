package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"chat-aggregator/backend/ai"
	"chat-aggregator/backend/pkg/errors"
	"chat-aggregator/backend/pkg/kv"
	"chat-aggregator/backend/pkg/logger"
	"chat-aggregator/backend/session/models"
	"chat-aggregator/backend/session/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider settles after an optional delay or once released
type fakeProvider struct {
	id      string
	text    string
	err     error
	delay   time.Duration
	release chan struct{}
}

func (f *fakeProvider) ID() string { return f.id }

func (f *fakeProvider) Complete(ctx context.Context, turns []Turn) (string, error) {
	if f.release != nil {
		<-f.release
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// Turn aliases ai.Turn so the fake satisfies ai.Provider
type Turn = ai.Turn

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Publish(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) byType(eventType string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newTurnFixture(t *testing.T, providers ...ai.Provider) (*TurnService, *store.SessionStore, *recordingSink) {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", JSON: true, Output: io.Discard})
	sessions := store.NewSessionStore(kv.NewMemoryStore(), "chat_sessions", nil, log)
	sink := &recordingSink{}
	return NewTurnService(sessions, ai.NewRegistry(providers...), sink, log), sessions, sink
}

func providerOf(msg models.Message) string { return msg.Provider }

func TestSubmitFansOutToAllProviders(t *testing.T) {
	ctx := context.Background()
	svc, sessions, _ := newTurnFixture(t,
		&fakeProvider{id: "openai", text: "from openai", delay: 60 * time.Millisecond},
		&fakeProvider{id: "anthropic", text: "from anthropic", delay: 30 * time.Millisecond},
		&fakeProvider{id: "gemini", text: "from gemini"},
	)

	sess, err := sessions.Create(ctx, models.AllSelection())
	require.NoError(t, err)

	result, err := svc.Submit(ctx, sess.ID, "hello everyone")
	require.NoError(t, err)

	// one user message plus exactly one message per provider
	require.Len(t, result.Messages, 4)
	assert.Equal(t, models.RoleUser, result.Messages[0].Role)
	assert.Empty(t, result.Failed)

	// responses land in arrival order, fastest first
	assert.Equal(t, "gemini", providerOf(result.Messages[1]))
	assert.Equal(t, "anthropic", providerOf(result.Messages[2]))
	assert.Equal(t, "openai", providerOf(result.Messages[3]))

	got, ok := sessions.Get(ctx, sess.ID)
	require.True(t, ok)
	assert.Len(t, got.Messages, 4)
}

func TestSubmitFailureBecomesNotice(t *testing.T) {
	ctx := context.Background()
	svc, sessions, _ := newTurnFixture(t,
		&fakeProvider{id: "openai", text: "ok"},
		&fakeProvider{id: "anthropic", err: errors.NewBadGatewayError("BOOM", "vendor down")},
		&fakeProvider{id: "gemini", text: "ok"},
	)

	sess, err := sessions.Create(ctx, models.AllSelection())
	require.NoError(t, err)

	result, err := svc.Submit(ctx, sess.ID, "hello")
	require.NoError(t, err)

	require.Len(t, result.Messages, 4)
	assert.Equal(t, []string{"anthropic"}, result.Failed)

	var notice string
	for _, msg := range result.Messages[1:] {
		assert.Equal(t, models.RoleAssistant, msg.Role)
		if msg.Provider == "anthropic" {
			notice = msg.Content
		}
	}
	assert.Equal(t, "Note: ANTHROPIC is unavailable.", notice)
}

func TestSubmitMentionsOverrideSelection(t *testing.T) {
	ctx := context.Background()
	svc, sessions, _ := newTurnFixture(t,
		&fakeProvider{id: "openai", text: "ok"},
		&fakeProvider{id: "gemini", text: "ok"},
	)

	sess, err := sessions.Create(ctx, models.SingleSelection("openai"))
	require.NoError(t, err)

	result, err := svc.Submit(ctx, sess.ID, "what about you, @gemini?")
	require.NoError(t, err)

	require.Len(t, result.Messages, 2)
	assert.Equal(t, "gemini", providerOf(result.Messages[1]))
}

func TestSubmitUserMentionOnlyYieldsNoInvocations(t *testing.T) {
	ctx := context.Background()
	svc, sessions, _ := newTurnFixture(t, &fakeProvider{id: "openai", text: "ok"})

	sess, err := sessions.Create(ctx, models.SingleSelection("openai"))
	require.NoError(t, err)

	result, err := svc.Submit(ctx, sess.ID, "note to @user: remember this")
	require.NoError(t, err)

	// the utterance is recorded but no provider runs
	require.Len(t, result.Messages, 1)
	assert.Equal(t, models.RoleUser, result.Messages[0].Role)
}

func TestSubmitUnknownProviderRejectsWithoutMutation(t *testing.T) {
	ctx := context.Background()
	svc, sessions, _ := newTurnFixture(t, &fakeProvider{id: "openai", text: "ok"})

	sess, err := sessions.Create(ctx, models.ListSelection("openai", "mystery"))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, sess.ID, "hello")
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.StatusCode)
	assert.Equal(t, "UNKNOWN_PROVIDER", appErr.Code)

	got, ok := sessions.Get(ctx, sess.ID)
	require.True(t, ok)
	assert.Empty(t, got.Messages, "rejected turn must not touch the transcript")
}

func TestSubmitUnknownSession(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTurnFixture(t, &fakeProvider{id: "openai", text: "ok"})

	_, err := svc.Submit(ctx, "missing", "hello")
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.StatusCode)
}

func TestSubmitCompletionsBindToSubmittedSession(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	svc, sessions, _ := newTurnFixture(t, &fakeProvider{id: "openai", text: "late reply", release: release})

	first, err := sessions.Create(ctx, models.SingleSelection("openai"))
	require.NoError(t, err)
	second, err := sessions.Create(ctx, models.SingleSelection("openai"))
	require.NoError(t, err)

	done := make(chan *TurnResult, 1)
	go func() {
		result, err := svc.Submit(ctx, first.ID, "slow question")
		assert.NoError(t, err)
		done <- result
	}()

	// the client moves to another session while the call is in flight
	time.Sleep(20 * time.Millisecond)
	_, err = svc.Submit(ctx, second.ID, "@user just a note")
	require.NoError(t, err)

	close(release)
	result := <-done
	require.NotNil(t, result)
	assert.Equal(t, first.ID, result.SessionID)

	firstGot, _ := sessions.Get(ctx, first.ID)
	require.Len(t, firstGot.Messages, 2)
	assert.Equal(t, "late reply", firstGot.Messages[1].Content)

	secondGot, _ := sessions.Get(ctx, second.ID)
	assert.Len(t, secondGot.Messages, 1, "the other session must not receive the completion")
}

func TestSubmitConcurrentRenameSurvives(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	svc, sessions, _ := newTurnFixture(t, &fakeProvider{id: "openai", text: "reply", release: release})

	sess, err := sessions.Create(ctx, models.SingleSelection("openai"))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.Submit(ctx, sess.ID, "question")
		assert.NoError(t, err)
	}()

	time.Sleep(20 * time.Millisecond)
	_, ok := sessions.Update(ctx, sess.ID, func(cs *models.ChatSession) {
		cs.Name = "renamed mid-turn"
	})
	require.True(t, ok)

	close(release)
	<-done

	got, _ := sessions.Get(ctx, sess.ID)
	assert.Equal(t, "renamed mid-turn", got.Name)
	assert.Len(t, got.Messages, 2)
}

func TestSubmitUpdatedAtAdvancesAcrossTurns(t *testing.T) {
	ctx := context.Background()
	svc, sessions, _ := newTurnFixture(t, &fakeProvider{id: "openai", text: "ok"})

	sess, err := sessions.Create(ctx, models.SingleSelection("openai"))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, sess.ID, "first")
	require.NoError(t, err)
	afterFirst, _ := sessions.Get(ctx, sess.ID)

	_, err = svc.Submit(ctx, sess.ID, "second")
	require.NoError(t, err)
	afterSecond, _ := sessions.Get(ctx, sess.ID)

	assert.True(t, afterSecond.UpdatedAt.After(afterFirst.UpdatedAt))
}

func TestSubmitEmitsEvents(t *testing.T) {
	ctx := context.Background()
	svc, sessions, sink := newTurnFixture(t,
		&fakeProvider{id: "openai", text: "ok"},
		&fakeProvider{id: "gemini", text: "ok"},
	)

	sess, err := sessions.Create(ctx, models.AllSelection())
	require.NoError(t, err)

	_, err = svc.Submit(ctx, sess.ID, "hello")
	require.NoError(t, err)

	userEvents := sink.byType(EventUserMessage)
	require.Len(t, userEvents, 1)
	assert.ElementsMatch(t, []string{"openai", "gemini"}, userEvents[0].Pending)

	assistantEvents := sink.byType(EventAssistantMessage)
	require.Len(t, assistantEvents, 2)
	// the pending set drains as completions arrive
	assert.Len(t, assistantEvents[0].Pending, 1)
	assert.Empty(t, assistantEvents[1].Pending)

	require.Len(t, sink.byType(EventTurnComplete), 1)
}
