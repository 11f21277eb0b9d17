package shortcut

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/soundboard/internal/apperr"
)

// State of the assignment protocol.
type State string

const (
	StateIdle     State = "idle"
	StateAwaiting State = "awaiting"
)

// ErrSessionCancelled is returned by Wait for a session replaced by a newer
// one or cancelled explicitly.
var ErrSessionCancelled = errors.New("shortcut: assignment cancelled")

// Session is one pending "press a key for this sound" request.
type Session struct {
	ID        string
	Sound     string
	StartedAt time.Time

	cancel context.CancelCauseFunc
	done   chan struct{}
	result Result
	err    error
}

// Wait blocks until a key is captured and bound, the session is cancelled,
// or ctx is done.
func (s *Session) Wait(ctx context.Context) (Result, error) {
	select {
	case <-s.done:
		return s.result, s.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Done is closed once the session has finished.
func (s *Session) Done() <-chan struct{} { return s.done }

// Cancel abandons the session. Safe to call after it finished.
func (s *Session) Cancel() {
	s.cancel(ErrSessionCancelled)
}

// Outcome is the last finished session.
type Outcome struct {
	ID         string    `json:"id"`
	Sound      string    `json:"sound"`
	Key        string    `json:"key,omitempty"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// Status describes the assignment protocol.
type Status struct {
	State     State     `json:"state"`
	SessionID string    `json:"session_id,omitempty"`
	Sound     string    `json:"sound,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	Last      *Outcome  `json:"last,omitempty"`
}

// BeginAssign starts capturing a key for sound. Any session in progress is
// cancelled first. The session lives until ctx is done, a key is captured or
// it is cancelled.
func (m *Manager) BeginAssign(ctx context.Context, sound string) (*Session, error) {
	if sound == "" {
		return nil, apperr.ErrNoSoundSelected
	}
	if l, ok := m.capturer.(listening); ok && !l.Listening() {
		return nil, apperr.ErrNotListening
	}

	sctx, cancel := context.WithCancelCause(ctx)
	s := &Session{
		ID:        uuid.NewString(),
		Sound:     sound,
		StartedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	m.mu.Lock()
	prev := m.session
	m.session = s
	m.mu.Unlock()
	if prev != nil {
		prev.Cancel()
	}

	m.logger.Info("shortcut: awaiting key", slog.String("session", s.ID), slog.String("sound", sound))
	go m.run(sctx, s)
	return s, nil
}

func (m *Manager) run(ctx context.Context, s *Session) {
	key, err := m.capturer.Capture(ctx)
	if err == nil && ctx.Err() != nil {
		err = context.Cause(ctx)
	}
	if err == nil {
		s.result, err = m.Assign(s.Sound, key)
	} else if cause := context.Cause(ctx); cause != nil {
		err = cause
	}
	s.err = err
	s.cancel(nil)

	out := &Outcome{ID: s.ID, Sound: s.Sound, Key: s.result.Key, FinishedAt: time.Now()}
	if err != nil {
		out.Error = err.Error()
		m.logger.Info("shortcut: assignment ended",
			slog.String("session", s.ID),
			slog.String("sound", s.Sound),
			slog.String("error", err.Error()))
	}

	m.mu.Lock()
	if m.session == s {
		m.session = nil
	}
	m.last = out
	m.mu.Unlock()

	close(s.done)
}

// Status reports whether a session is awaiting a key.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{State: StateIdle, Last: m.last}
	if s := m.session; s != nil {
		st.State = StateAwaiting
		st.SessionID = s.ID
		st.Sound = s.Sound
		st.StartedAt = s.StartedAt
	}
	return st
}
