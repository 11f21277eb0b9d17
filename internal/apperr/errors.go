// Package apperr defines the error taxonomy shared by the soundboard components.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnsupported     = errors.New("unsupported file type")
	ErrIO              = errors.New("i/o failure")
	ErrCorruptState    = errors.New("corrupt state file")
	ErrPlayback        = errors.New("playback failed")
	ErrAlreadyBound    = errors.New("key already bound")
	ErrNoBinding       = errors.New("no binding")
	ErrNoSoundSelected = errors.New("no sound selected")
	ErrInvalidName     = errors.New("invalid sound name")
	ErrNotListening    = errors.New("hotkey listener not running")
)

// IOError reports a directory or file operation that failed.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }

// CorruptStateError reports a state file that exists but cannot be parsed.
type CorruptStateError struct {
	Path string
	Err  error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt state file %s: %v", e.Path, e.Err)
}

func (e *CorruptStateError) Unwrap() []error { return []error{ErrCorruptState, e.Err} }

// PlaybackError reports a sound that could not be opened, decoded or started.
type PlaybackError struct {
	Path string
	Err  error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("play %s: %v", e.Path, e.Err)
}

func (e *PlaybackError) Unwrap() []error { return []error{ErrPlayback, e.Err} }

// AlreadyBoundError is returned when a key is already bound to another sound.
type AlreadyBoundError struct {
	Key   string
	Sound string
}

func (e *AlreadyBoundError) Error() string {
	return fmt.Sprintf("%s already assigned to %q", e.Key, e.Sound)
}

func (e *AlreadyBoundError) Unwrap() error { return ErrAlreadyBound }

// NoBindingError is returned when a sound or key has no shortcut.
// Exactly one of Key or Sound is set.
type NoBindingError struct {
	Key   string
	Sound string
}

func (e *NoBindingError) Error() string {
	if e.Sound != "" {
		return fmt.Sprintf("no shortcut assigned to %s", e.Sound)
	}
	return fmt.Sprintf("shortcut %s not found", e.Key)
}

func (e *NoBindingError) Unwrap() error { return ErrNoBinding }
