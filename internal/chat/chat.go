// Package chat implements the conversation engine.
//
// The engine owns the active session's message sequence, orchestrates
// send/regenerate flows against the generation client, applies optimistic
// in-memory updates, and writes through to the persistence gateway
// asynchronously (write-behind). At most one generation is in flight at a
// time across the whole application; Send and Regenerate are no-ops while
// the gate is held.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/parley0/parley/internal/i18n"
	"github.com/parley0/parley/internal/llm"
	"github.com/parley0/parley/internal/session"
)

// persistTimeout bounds each background durable write.
const persistTimeout = 10 * time.Second

// Generator is the generation client consumed by the engine.
// llm.Client implements it; tests substitute a stub.
type Generator interface {
	// Stream generates a response for text given the prior turns,
	// delivering cumulative text through onChunk. On error no final
	// value was produced.
	Stream(ctx context.Context, history []llm.Turn, text, systemInstruction string, onChunk llm.StreamFunc) (string, error)

	// DeriveTitle produces a short session title from the first user
	// message, written in the given language.
	DeriveTitle(ctx context.Context, firstMessage, language string) (string, error)
}

// ObserveFunc receives a snapshot of the streaming model message after
// each observable state change (pending, every chunk, final or failed).
type ObserveFunc func(msg session.Message)

// Config contains required parameters for the engine.
type Config struct {
	Generator Generator
	Sessions  *session.Store
	Gateway   session.Gateway
	Logger    *slog.Logger
	Settings  Settings

	// BackgroundCtx outlives individual requests; used for write-behind
	// persistence and title derivation. Nil means context.Background().
	BackgroundCtx context.Context //nolint:containedctx // app lifecycle context, not a request context

	// WG tracks background goroutines for graceful shutdown. Nil means
	// the engine manages its own.
	WG *sync.WaitGroup
}

func (cfg Config) validate() error {
	if cfg.Generator == nil {
		return errors.New("generator is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Gateway == nil {
		return errors.New("gateway is required")
	}
	return nil
}

// Engine is the conversation engine.
//
// All mutation of the message sequence happens under one mutex; the
// generating flag guards against re-entrant initiation, and every
// in-flight stream is tagged with its target session and message so a
// stale stream can never corrupt another session's state.
type Engine struct {
	generator Generator
	sessions  *session.Store
	gateway   session.Gateway
	logger    *slog.Logger
	settings  atomic.Pointer[Settings]

	bgCtx context.Context //nolint:containedctx // app lifecycle context
	wg    *sync.WaitGroup

	mu         sync.Mutex
	messages   []*session.Message
	generating bool

	// In-flight stream target; uuid.Nil when idle.
	streamSession uuid.UUID
	streamMessage uuid.UUID
	streamMsgTime time.Time
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bgCtx := cfg.BackgroundCtx
	if bgCtx == nil {
		bgCtx = context.Background()
	}
	wg := cfg.WG
	if wg == nil {
		wg = &sync.WaitGroup{}
	}

	e := &Engine{
		generator: cfg.Generator,
		sessions:  cfg.Sessions,
		gateway:   cfg.Gateway,
		logger:    logger,
		bgCtx:     bgCtx,
		wg:        wg,
	}
	settings := cfg.Settings.normalize()
	e.settings.Store(&settings)
	return e, nil
}

// Load populates the session store and the active session's messages.
func (e *Engine) Load(ctx context.Context) error {
	if err := e.sessions.Load(ctx); err != nil {
		return err
	}
	return e.ActivateSession(ctx, e.sessions.Active())
}

// Sessions exposes the session store for read paths (list, search).
func (e *Engine) Sessions() *session.Store {
	return e.sessions
}

// Messages returns a snapshot of the active session's message sequence.
func (e *Engine) Messages() []session.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]session.Message, len(e.messages))
	for i, m := range e.messages {
		out[i] = *m
	}
	return out
}

// Generating reports whether a generation is in flight.
func (e *Engine) Generating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generating
}

// ActiveSession returns the active session's ID.
func (e *Engine) ActiveSession() uuid.UUID {
	return e.sessions.Active()
}

// ActivateSession switches the active session and loads its messages.
// A stream still running for the previous session keeps persisting its
// result but its chunks no longer touch the in-memory sequence.
func (e *Engine) ActivateSession(ctx context.Context, id uuid.UUID) error {
	if err := e.sessions.SetActive(id); err != nil {
		return err
	}

	msgs, err := e.gateway.ListMessages(ctx, id)
	if err != nil {
		e.mu.Lock()
		e.messages = nil
		e.mu.Unlock()
		return err
	}

	e.mu.Lock()
	e.messages = msgs
	e.mu.Unlock()
	return nil
}

// NewSession creates a fresh session and makes it active.
func (e *Engine) NewSession(ctx context.Context) (*session.Session, error) {
	sess, err := e.sessions.Create(ctx)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.messages = nil
	e.mu.Unlock()
	return sess, nil
}

// DeleteSession removes a session. If it was active, the engine switches
// to the session store's replacement choice and loads its messages.
func (e *Engine) DeleteSession(ctx context.Context, id uuid.UUID) error {
	newActive, err := e.sessions.Delete(ctx, id)
	if err != nil {
		return err
	}
	return e.ActivateSession(ctx, newActive)
}

// Send runs one exchange: append the user's message, stream the model's
// response into a fresh model message, then persist and update session
// metadata. Returns false without side effects when a precondition fails
// (empty input, no active session, generation already in flight).
//
// Send blocks until the exchange completes; failures are recorded in the
// transcript, never returned.
func (e *Engine) Send(ctx context.Context, text string, observe ObserveFunc) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	e.mu.Lock()
	active := e.sessions.Active()
	if active == uuid.Nil || e.generating {
		e.mu.Unlock()
		return false
	}

	priorCount := len(e.messages)
	history := historyTurns(e.messages)

	userMsg := &session.Message{
		ID:        uuid.New(),
		SessionID: active,
		Role:      session.RoleUser,
		Content:   text,
		Timestamp: e.nextTimestampLocked(),
	}
	modelMsg := &session.Message{
		ID:        uuid.New(),
		SessionID: active,
		Role:      session.RoleModel,
		Content:   "",
		Timestamp: userMsg.Timestamp.Add(time.Nanosecond),
	}
	e.messages = append(e.messages, userMsg, modelMsg)

	e.generating = true
	e.streamSession = active
	e.streamMessage = modelMsg.ID
	e.streamMsgTime = modelMsg.Timestamp

	pending := *modelMsg
	e.mu.Unlock()

	e.persistAsync(*userMsg)
	e.notify(observe, pending)

	if priorCount == 0 && e.sessions.HasDefaultTitle(active) {
		e.deriveTitleAsync(active, text)
	}

	e.runStream(ctx, active, modelMsg.ID, history, text, observe)
	return true
}

// Regenerate re-runs generation for an existing model message, in place:
// the message keeps its ID and position, only content and error flag
// change. Used both for explicit regeneration and for retrying a failed
// exchange. Returns false when a precondition fails (no active session,
// generation in flight, unknown target, or the target is not a model
// message directly preceded by a user message).
func (e *Engine) Regenerate(ctx context.Context, targetID uuid.UUID, observe ObserveFunc) bool {
	e.mu.Lock()
	active := e.sessions.Active()
	if active == uuid.Nil || e.generating {
		e.mu.Unlock()
		return false
	}

	idx := -1
	for i, m := range e.messages {
		if m.ID == targetID {
			idx = i
			break
		}
	}
	if idx < 1 || e.messages[idx].Role != session.RoleModel || e.messages[idx-1].Role != session.RoleUser {
		e.mu.Unlock()
		return false
	}

	prompt := e.messages[idx-1].Content
	history := historyTurns(e.messages[:idx-1])
	firstExchange := idx-1 == 0

	target := e.messages[idx]
	target.Content = ""
	target.IsError = false

	e.generating = true
	e.streamSession = active
	e.streamMessage = target.ID
	e.streamMsgTime = target.Timestamp

	pending := *target
	e.mu.Unlock()

	e.notify(observe, pending)

	// Covers the case where the very first exchange originally failed
	// and the session still carries the placeholder title.
	if firstExchange && e.sessions.HasDefaultTitle(active) {
		e.deriveTitleAsync(active, prompt)
	}

	e.runStream(ctx, active, targetID, history, prompt, observe)
	return true
}

// runStream drives one generation into the message identified by
// (sid, mid) and releases the generation gate when done.
func (e *Engine) runStream(ctx context.Context, sid, mid uuid.UUID, history []llm.Turn, prompt string, observe ObserveFunc) {
	settings := e.Settings()

	final, err := e.generator.Stream(ctx, history, prompt, settings.SystemInstruction, func(cumulative string) {
		e.applyChunk(sid, mid, cumulative, observe)
	})

	if err != nil {
		e.logger.Warn("generation failed", "session_id", sid, "error", err)
		failed := e.completeMessage(sid, mid, i18n.T("chat.error_response"), true)
		e.persistAsync(failed)
		e.notify(observe, failed)
	} else {
		done := e.completeMessage(sid, mid, final, false)
		e.persistAsync(done)
		e.notify(observe, done)

		// Preview and recency update only on success.
		if err := e.sessions.Touch(e.bgCtx, sid, final, time.Now()); err != nil {
			e.logger.Warn("updating session metadata failed", "session_id", sid, "error", err)
		}
	}

	e.mu.Lock()
	e.generating = false
	e.streamSession = uuid.Nil
	e.streamMessage = uuid.Nil
	e.mu.Unlock()
}

// applyChunk replaces the stream target's content with the cumulative
// text. Chunks are dropped when the stream is stale: a different stream
// took over, or the target session is no longer the active view.
func (e *Engine) applyChunk(sid, mid uuid.UUID, cumulative string, observe ObserveFunc) {
	e.mu.Lock()
	if e.streamSession != sid || e.streamMessage != mid || e.sessions.Active() != sid {
		e.mu.Unlock()
		return
	}
	msg := e.findLocked(mid)
	if msg == nil {
		e.mu.Unlock()
		return
	}
	msg.Content = cumulative // replace, never append
	snapshot := *msg
	e.mu.Unlock()

	e.notify(observe, snapshot)
}

// completeMessage fixes the stream target's final state and returns the
// message to persist. When the target session is no longer the active
// view the durable record is synthesized from the stream tag so the
// result still reaches storage.
func (e *Engine) completeMessage(sid, mid uuid.UUID, content string, isError bool) session.Message {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sessions.Active() == sid {
		if msg := e.findLocked(mid); msg != nil {
			msg.Content = content
			msg.IsError = isError
			return *msg
		}
	}
	return session.Message{
		ID:        mid,
		SessionID: sid,
		Role:      session.RoleModel,
		Content:   content,
		Timestamp: e.streamMsgTime,
		IsError:   isError,
	}
}

// persistAsync enqueues a durable write. Failure is logged, never
// surfaced: the in-memory view stays authoritative.
func (e *Engine) persistAsync(m session.Message) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(e.bgCtx, persistTimeout)
		defer cancel()
		if err := e.gateway.SaveMessage(ctx, &m); err != nil {
			e.logger.Warn("persisting message failed",
				"message_id", m.ID, "session_id", m.SessionID, "error", err)
		}
	}()
}

// Wait blocks until all background writes and title derivations finish.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) notify(observe ObserveFunc, msg session.Message) {
	if observe != nil {
		observe(msg)
	}
}

// nextTimestampLocked returns a timestamp strictly after the last
// message's, keeping the sequence strictly ordered even when the clock
// resolution ties.
func (e *Engine) nextTimestampLocked() time.Time {
	ts := time.Now()
	if n := len(e.messages); n > 0 {
		if last := e.messages[n-1].Timestamp; !ts.After(last) {
			ts = last.Add(time.Nanosecond)
		}
	}
	return ts
}

func (e *Engine) findLocked(id uuid.UUID) *session.Message {
	for _, m := range e.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// historyTurns converts stored messages into provider turns. Failed and
// still-empty model messages carry no model output and are skipped.
func historyTurns(msgs []*session.Message) []llm.Turn {
	turns := make([]llm.Turn, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == session.RoleModel && (m.IsError || m.Content == "") {
			continue
		}
		turns = append(turns, llm.Turn{Role: m.Role, Text: m.Content})
	}
	return turns
}
