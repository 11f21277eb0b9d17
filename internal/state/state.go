// Package state owns the persisted soundboard state: hotkey bindings, the
// catalog cache and the play counter, stored together in one JSON file.
package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/starford/soundboard/internal/apperr"
	"github.com/starford/soundboard/internal/models"
)

// State is the durable aggregate written to the state file.
type State struct {
	Hotkeys   map[string]string `json:"hotkeys"`
	Sounds    models.Catalog    `json:"sounds"`
	PlayScore uint64            `json:"play_score"`
}

// Default returns the empty state used when no file exists.
func Default() State {
	return State{
		Hotkeys: map[string]string{},
		Sounds:  models.Catalog{},
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	hk := make(map[string]string, len(s.Hotkeys))
	for k, v := range s.Hotkeys {
		hk[k] = v
	}
	return State{
		Hotkeys:   hk,
		Sounds:    s.Sounds.Clone(),
		PlayScore: s.PlayScore,
	}
}

func (s *State) normalize() {
	if s.Hotkeys == nil {
		s.Hotkeys = map[string]string{}
	}
	if s.Sounds == nil {
		s.Sounds = models.Catalog{}
	}
}

// Load reads the state file at path. A missing file yields the default
// state, which is written to disk before returning. A file that exists but
// cannot be parsed is reported as *apperr.CorruptStateError and left alone.
func Load(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			st := Default()
			if err := Save(path, st); err != nil {
				return State{}, err
			}
			return st, nil
		}
		return State{}, &apperr.IOError{Op: "read", Path: path, Err: err}
	}

	var st State
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &st); err != nil {
			return State{}, &apperr.CorruptStateError{Path: path, Err: err}
		}
	}
	st.normalize()
	return st, nil
}

// Save overwrites the state file: tmp file → fsync → rename.
func Save(path string, st State) error {
	st.normalize()
	data, err := json.Marshal(st)
	if err != nil {
		return &apperr.IOError{Op: "encode", Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &apperr.IOError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".soundboard-state-*")
	if err != nil {
		return &apperr.IOError{Op: "create temp", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return &apperr.IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &apperr.IOError{Op: "fsync", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &apperr.IOError{Op: "close", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &apperr.IOError{Op: "rename", Path: path, Err: err}
	}
	success = true
	return nil
}
