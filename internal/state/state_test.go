package state

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/soundboard/internal/apperr"
	"github.com/starford/soundboard/internal/models"
)

func statePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.json")
}

func TestLoad_MissingFileCreatesDefault(t *testing.T) {
	path := statePath(t)

	st, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, st.Hotkeys)
	assert.NotNil(t, st.Hotkeys)
	assert.Empty(t, st.Sounds)
	assert.Zero(t, st.PlayScore)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hotkeys":{},"sounds":[],"play_score":0}`, string(data))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := statePath(t)
	want := State{
		Hotkeys: map[string]string{"a": "laugh.wav", "Key.f1": "boo.wav"},
		Sounds: models.Catalog{
			{Dir: "sound/memes", Files: []string{"boo.wav"}},
			{Dir: "sound", Files: []string{"laugh.wav", "applause.mp3"}},
		},
		PlayScore: 42,
	}
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoad_ReadsOriginalFormat(t *testing.T) {
	path := statePath(t)
	raw := `{"hotkeys": {"x": "boo.wav"}, "sounds": [["sound", "boo.wav"]], "play_score": 7}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	st, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"x": "boo.wav"}, st.Hotkeys)
	assert.Equal(t, models.Catalog{{Dir: "sound", Files: []string{"boo.wav"}}}, st.Sounds)
	assert.EqualValues(t, 7, st.PlayScore)
}

func TestLoad_MissingAndUnknownFieldsTolerated(t *testing.T) {
	path := statePath(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"play_score": 3, "theme": "dark"}`), 0o644))

	st, err := Load(path)
	require.NoError(t, err)
	assert.NotNil(t, st.Hotkeys)
	assert.NotNil(t, st.Sounds)
	assert.EqualValues(t, 3, st.PlayScore)
}

func TestLoad_EmptyCategoryRowSkipped(t *testing.T) {
	path := statePath(t)
	raw := `{"hotkeys": {"x": "boo.wav"}, "sounds": [[], ["sound", "boo.wav"]], "play_score": 2}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	st, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, models.Catalog{{Dir: "sound", Files: []string{"boo.wav"}}}, st.Sounds)
	assert.EqualValues(t, 2, st.PlayScore)
}

func TestLoad_CorruptFileSurfaced(t *testing.T) {
	path := statePath(t)
	original := []byte(`{"hotkeys": {"a": "laugh.wav"`)
	require.NoError(t, os.WriteFile(path, original, 0o644))

	_, err := Load(path)
	require.Error(t, err)
	var corrupt *apperr.CorruptStateError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, path, corrupt.Path)

	data, _ := os.ReadFile(path)
	assert.Equal(t, original, data, "corrupt file must not be overwritten")
}

func TestLoad_NegativeCounterIsCorrupt(t *testing.T) {
	path := statePath(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"play_score": -1}`), 0o644))

	_, err := Load(path)
	require.ErrorIs(t, err, apperr.ErrCorruptState)
}

func TestSave_FailsOnUnwritableDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := Save(filepath.Join(blocker, "config.json"), Default())
	require.ErrorIs(t, err, apperr.ErrIO)
}

func TestStore_UpdatePersists(t *testing.T) {
	path := statePath(t)
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Update(func(st *State) error {
		st.Hotkeys["a"] = "laugh.wav"
		return nil
	}))

	onDisk, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "laugh.wav"}, onDisk.Hotkeys)
}

func TestStore_UnchangedSkipsWrite(t *testing.T) {
	path := statePath(t)
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	require.NoError(t, s.Update(func(*State) error { return ErrUnchanged }))
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStore_ConcurrentIncrements(t *testing.T) {
	path := statePath(t)
	s, err := Open(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.IncrementPlays()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 50, s.PlayScore())
	onDisk, err := Load(path)
	require.NoError(t, err)
	assert.EqualValues(t, 50, onDisk.PlayScore, "newest snapshot must win on disk")
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s, err := Open(statePath(t))
	require.NoError(t, err)
	require.NoError(t, s.SetCatalog(models.Catalog{{Dir: "sound", Files: []string{"a.wav"}}}))

	snap := s.Snapshot()
	snap.Hotkeys["z"] = "a.wav"
	snap.Sounds[0].Files[0] = "changed.wav"

	assert.Empty(t, s.Hotkeys())
	assert.Equal(t, "a.wav", s.Catalog()[0].Files[0])
}
