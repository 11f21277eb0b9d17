package state

import (
	"errors"
	"sync"

	"github.com/starford/soundboard/internal/models"
)

// ErrUnchanged may be returned by an Update callback to skip the write.
var ErrUnchanged = errors.New("state unchanged")

// Store is the single owner of the in-memory state and its file.
//
// Concurrency model: every mutation runs under mu. Update copies the
// mutated state, releases mu and only then writes to disk. Writes are
// serialized by saveMu and carry a version so a slow writer can never
// replace a newer snapshot on disk with an older one.
type Store struct {
	path string

	mu      sync.Mutex
	state   State
	version uint64

	saveMu  sync.Mutex
	written uint64
}

// Open loads the state file at path (creating it with defaults if absent).
func Open(path string) (*Store, error) {
	st, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, state: st}, nil
}

// Path returns the state file path.
func (s *Store) Path() string { return s.path }

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Read runs fn with the live state under the lock. fn must not retain or
// mutate anything it is given.
func (s *Store) Read(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// Update applies fn to the state under the lock and persists the result.
// If fn returns an error the state is expected to be untouched and nothing
// is written; ErrUnchanged is swallowed.
func (s *Store) Update(fn func(*State) error) error {
	s.mu.Lock()
	if err := fn(&s.state); err != nil {
		s.mu.Unlock()
		if errors.Is(err, ErrUnchanged) {
			return nil
		}
		return err
	}
	s.version++
	v := s.version
	snap := s.state.Clone()
	s.mu.Unlock()

	return s.persist(v, snap)
}

func (s *Store) persist(v uint64, snap State) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if v <= s.written {
		return nil
	}
	if err := Save(s.path, snap); err != nil {
		return err
	}
	s.written = v
	return nil
}

// IncrementPlays bumps the play counter and persists it. The in-memory
// counter is incremented even when the write fails.
func (s *Store) IncrementPlays() (uint64, error) {
	var n uint64
	err := s.Update(func(st *State) error {
		st.PlayScore++
		n = st.PlayScore
		return nil
	})
	return n, err
}

// SetCatalog replaces the catalog cache and persists it.
func (s *Store) SetCatalog(c models.Catalog) error {
	c = c.Clone()
	return s.Update(func(st *State) error {
		st.Sounds = c
		return nil
	})
}

// Catalog returns a copy of the catalog cache.
func (s *Store) Catalog() models.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Sounds.Clone()
}

// Hotkeys returns a copy of the bindings.
func (s *Store) Hotkeys() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone().Hotkeys
}

// PlayScore returns the play counter.
func (s *Store) PlayScore() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.PlayScore
}
