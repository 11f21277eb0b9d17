// Package playback plays sound files asynchronously through one configured
// backend and keeps the play counter up to date.
package playback

import (
	"errors"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/starford/soundboard/internal/apperr"
)

// Handle controls a single started playback.
type Handle interface {
	// Stop halts this playback. Safe to call more than once.
	Stop()
	// Done is closed when playback has finished or was stopped.
	Done() <-chan struct{}
}

// Backend starts playback on an output sink. Play must not block until the
// sound has finished.
type Backend interface {
	Play(path string) (Handle, error)
	// Stop halts the most recently started playback, if any.
	Stop()
	// SetVolume applies a level in [0, 1].
	SetVolume(level float64)
}

// Counter records invoked plays.
type Counter interface {
	IncrementPlays() (uint64, error)
}

// Engine is the playback entry point used by every caller.
type Engine struct {
	backend Backend
	counter Counter
	logger  *slog.Logger
	volume  level
}

// NewEngine creates an engine over backend. The counter is bumped once per
// Play call before playback starts.
func NewEngine(backend Backend, counter Counter, logger *slog.Logger) *Engine {
	e := &Engine{backend: backend, counter: counter, logger: logger}
	e.volume.Store(1)
	return e
}

// Play counts the play, persists the counter and starts playback of path
// without waiting for it to finish. A play is counted even if the backend
// then fails to start it.
func (e *Engine) Play(path string) (Handle, error) {
	if n, err := e.counter.IncrementPlays(); err != nil {
		e.logger.Warn("playback: persist play count failed",
			slog.Uint64("play_score", n),
			slog.String("error", err.Error()))
	}

	h, err := e.backend.Play(path)
	if err != nil {
		var pe *apperr.PlaybackError
		if !errors.As(err, &pe) {
			err = &apperr.PlaybackError{Path: path, Err: err}
		}
		e.logger.Warn("playback: play failed", slog.String("path", path), slog.String("error", err.Error()))
		return nil, err
	}
	e.logger.Debug("playback: started", slog.String("path", path))
	return h, nil
}

// Stop halts the most recent playback. It is a no-op when nothing plays.
func (e *Engine) Stop() {
	e.backend.Stop()
}

// SetVolume clamps level to [0, 1] and applies it.
func (e *Engine) SetVolume(level float64) float64 {
	level = ClampVolume(level)
	e.volume.Store(level)
	e.backend.SetVolume(level)
	return level
}

// Volume returns the current level.
func (e *Engine) Volume() float64 {
	return e.volume.Load()
}

// ClampVolume limits level to [0, 1]. NaN becomes 0.
func ClampVolume(level float64) float64 {
	switch {
	case math.IsNaN(level), level < 0:
		return 0
	case level > 1:
		return 1
	}
	return level
}

// level is a float64 readable from audio callbacks without locking.
type level struct {
	bits atomic.Uint64
}

func (l *level) Store(v float64) { l.bits.Store(math.Float64bits(v)) }

func (l *level) Load() float64 { return math.Float64frombits(l.bits.Load()) }
