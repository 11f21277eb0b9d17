// Package shortcut owns the key → sound bindings: direct assignment, the
// capture-based assignment session, removal and lookup.
package shortcut

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/starford/soundboard/internal/apperr"
	"github.com/starford/soundboard/internal/hotkey"
	"github.com/starford/soundboard/internal/state"
)

// ErrEmptyKey is returned when a binding is requested for a blank key.
var ErrEmptyKey = errors.New("shortcut: empty key")

// Capturer waits for a single key.
type Capturer interface {
	Capture(ctx context.Context) (string, error)
}

// listening is implemented by capturers that only see keys while running.
type listening interface {
	Listening() bool
}

// Binding is one key → sound pair.
type Binding struct {
	Key   string `json:"key"`
	Sound string `json:"sound"`
}

// Result is the outcome of a successful assignment.
type Result struct {
	Sound string `json:"sound"`
	Key   string `json:"key"`
	// Previous is the key the sound was bound to before, if any.
	Previous string `json:"previous,omitempty"`
	// Unchanged is set when the key was already bound to the sound.
	Unchanged bool `json:"unchanged,omitempty"`
}

// Manager applies binding mutations to the state store.
type Manager struct {
	store    *state.Store
	root     string
	capturer Capturer
	logger   *slog.Logger

	mu      sync.Mutex
	session *Session
	last    *Outcome
}

// New creates a manager. root is the library root used to resolve bound
// filenames that are not in the catalog.
func New(store *state.Store, root string, capturer Capturer, logger *slog.Logger) *Manager {
	if err := Validate(store.Hotkeys()); err != nil {
		logger.Warn("shortcut: loaded bindings violate uniqueness", slog.String("error", err.Error()))
	}
	return &Manager{store: store, root: root, capturer: capturer, logger: logger}
}

// Validate reports a sound bound to more than one key.
func Validate(bindings map[string]string) error {
	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	owner := make(map[string]string, len(bindings))
	for _, k := range keys {
		s := bindings[k]
		if prev, ok := owner[s]; ok {
			return fmt.Errorf("shortcut: %q bound to both %s and %s", s, prev, k)
		}
		owner[s] = k
	}
	return nil
}

// Assign binds key to sound. A key bound to a different sound is rejected
// with *apperr.AlreadyBoundError. Any previous key of sound is released.
func (m *Manager) Assign(sound, key string) (Result, error) {
	key = hotkey.Canonicalize(key)
	if sound == "" {
		return Result{}, apperr.ErrNoSoundSelected
	}
	if key == "" {
		return Result{}, ErrEmptyKey
	}

	res := Result{Sound: sound, Key: key}
	err := m.store.Update(func(st *state.State) error {
		if cur, ok := st.Hotkeys[key]; ok {
			if cur == sound {
				res.Unchanged = true
				return state.ErrUnchanged
			}
			return &apperr.AlreadyBoundError{Key: key, Sound: cur}
		}

		next := make(map[string]string, len(st.Hotkeys)+1)
		for k, v := range st.Hotkeys {
			if v == sound {
				res.Previous = k
				continue
			}
			next[k] = v
		}
		next[key] = sound
		if err := Validate(next); err != nil {
			return err
		}
		st.Hotkeys = next
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if !res.Unchanged {
		m.logger.Info("shortcut: bound",
			slog.String("key", key),
			slog.String("sound", sound),
			slog.String("previous", res.Previous))
	}
	return res, nil
}

// Clear removes the binding of sound and returns the released key.
func (m *Manager) Clear(sound string) (string, error) {
	if sound == "" {
		return "", apperr.ErrNoSoundSelected
	}

	var key string
	err := m.store.Update(func(st *state.State) error {
		for k, v := range st.Hotkeys {
			if v == sound {
				key = k
				break
			}
		}
		if key == "" {
			return &apperr.NoBindingError{Sound: sound}
		}
		delete(st.Hotkeys, key)
		return nil
	})
	if err != nil {
		return "", err
	}
	m.logger.Info("shortcut: cleared", slog.String("key", key), slog.String("sound", sound))
	return key, nil
}

// Delete removes key and returns the sound it was bound to.
func (m *Manager) Delete(key string) (string, error) {
	key = hotkey.Canonicalize(key)
	if key == "" {
		return "", ErrEmptyKey
	}

	var sound string
	err := m.store.Update(func(st *state.State) error {
		s, ok := st.Hotkeys[key]
		if !ok {
			return &apperr.NoBindingError{Key: key}
		}
		sound = s
		delete(st.Hotkeys, key)
		return nil
	})
	if err != nil {
		return "", err
	}
	m.logger.Info("shortcut: deleted", slog.String("key", key), slog.String("sound", sound))
	return sound, nil
}

// Resolve returns the file path of the sound bound to key.
func (m *Manager) Resolve(key string) (string, bool) {
	var (
		path string
		ok   bool
	)
	m.store.Read(func(st *state.State) {
		var sound string
		sound, ok = st.Hotkeys[key]
		if !ok {
			return
		}
		if e, found := st.Sounds.Find(sound); found {
			path = e.Path()
			return
		}
		path = filepath.Join(m.root, sound)
	})
	return path, ok
}

// Bindings returns a copy of all bindings.
func (m *Manager) Bindings() map[string]string {
	return m.store.Hotkeys()
}

// List returns all bindings sorted by key.
func (m *Manager) List() []Binding {
	hk := m.store.Hotkeys()
	out := make([]Binding, 0, len(hk))
	for k, v := range hk {
		out = append(out, Binding{Key: k, Sound: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// KeyFor returns the key bound to sound.
func (m *Manager) KeyFor(sound string) (string, bool) {
	var (
		key string
		ok  bool
	)
	m.store.Read(func(st *state.State) {
		for k, v := range st.Hotkeys {
			if v == sound {
				key, ok = k, true
				return
			}
		}
	})
	return key, ok
}
