package hotkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrCaptureSuperseded is the cause of a capture cancelled by a newer one.
var ErrCaptureSuperseded = errors.New("hotkey: capture superseded")

// Handler receives a canonical key. A returned error is logged.
type Handler func(key string) error

// Listener fans events from one Source out to subscribers. A single
// Listener runs for the life of the process.
type Listener struct {
	source  Source
	logger  *slog.Logger
	running atomic.Bool

	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	held   map[string]struct{}

	captureMu     sync.Mutex
	captureSeq    uint64
	cancelCapture context.CancelCauseFunc
}

// NewListener creates a listener over source.
func NewListener(source Source, logger *slog.Logger) *Listener {
	return &Listener{
		source: source,
		logger: logger,
		subs:   make(map[uint64]*Subscription),
		held:   make(map[string]struct{}),
	}
}

// Run reads events until ctx is done.
func (l *Listener) Run(ctx context.Context) error {
	l.running.Store(true)
	defer l.running.Store(false)

	l.logger.Info("hotkey: listener started")
	err := l.source.Run(ctx, l.handle)
	if ctx.Err() != nil {
		l.logger.Info("hotkey: listener stopped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("hotkey: listener: %w", err)
	}
	return nil
}

// Listening reports whether Run is reading events.
func (l *Listener) Listening() bool {
	return l.running.Load()
}

// Subscription is a registered Handler.
type Subscription struct {
	id   uint64
	kind Kind
	fn   Handler
	l    *Listener
	once sync.Once
}

// Close unregisters the handler. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.l.mu.Lock()
		delete(s.l.subs, s.id)
		s.l.mu.Unlock()
	})
}

// Subscribe registers fn for events of the given kind.
func (l *Listener) Subscribe(kind Kind, fn Handler) *Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	s := &Subscription{id: l.nextID, kind: kind, fn: fn, l: l}
	l.subs[s.id] = s
	return s
}

func (l *Listener) subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

func (l *Listener) handle(ev Event) {
	key := Canonicalize(ev.Key)
	if key == "" {
		return
	}

	l.mu.Lock()
	switch ev.Kind {
	case Press:
		// Auto-repeat while held.
		if _, ok := l.held[key]; ok {
			l.mu.Unlock()
			return
		}
		l.held[key] = struct{}{}
	case Release:
		delete(l.held, key)
	}
	targets := make([]*Subscription, 0, len(l.subs))
	for _, s := range l.subs {
		if s.kind == ev.Kind {
			targets = append(targets, s)
		}
	}
	l.mu.Unlock()

	for _, s := range targets {
		l.deliver(s, ev.Kind, key)
	}
}

func (l *Listener) deliver(s *Subscription, kind Kind, key string) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("hotkey: handler panic",
				slog.String("key", key),
				slog.String("kind", kind.String()),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()
	if err := s.fn(key); err != nil {
		l.logger.Warn("hotkey: handler failed",
			slog.String("key", key),
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()))
	}
}

// Capture waits for the next released key and returns it. Starting a new
// capture cancels the active one with ErrCaptureSuperseded.
func (l *Listener) Capture(ctx context.Context) (string, error) {
	ctx, cancel := context.WithCancelCause(ctx)

	l.captureMu.Lock()
	if l.cancelCapture != nil {
		l.cancelCapture(ErrCaptureSuperseded)
	}
	l.captureSeq++
	seq := l.captureSeq
	l.cancelCapture = cancel
	l.captureMu.Unlock()

	defer func() {
		cancel(nil)
		l.captureMu.Lock()
		if l.captureSeq == seq {
			l.cancelCapture = nil
		}
		l.captureMu.Unlock()
	}()

	keys := make(chan string, 1)
	sub := l.Subscribe(Release, func(key string) error {
		select {
		case keys <- key:
		default:
		}
		return nil
	})
	defer sub.Close()

	select {
	case key := <-keys:
		l.logger.Info("hotkey: key captured", slog.String("key", key))
		return key, nil
	case <-ctx.Done():
		return "", context.Cause(ctx)
	}
}
