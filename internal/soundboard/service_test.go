package soundboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/soundboard/internal/apperr"
	"github.com/starford/soundboard/internal/history"
	"github.com/starford/soundboard/internal/hotkey"
	"github.com/starford/soundboard/internal/playback"
	"github.com/starford/soundboard/internal/shortcut"
	"github.com/starford/soundboard/internal/sse"
	"github.com/starford/soundboard/internal/state"
	"github.com/starford/soundboard/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingBackend struct {
	mu     sync.Mutex
	played []string
	fail   map[string]error
}

func (b *recordingBackend) Play(path string) (playback.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.played = append(b.played, path)
	if err := b.fail[filepath.Base(path)]; err != nil {
		return nil, err
	}
	return playback.NewNoop(discardLogger()).Play(path)
}

func (b *recordingBackend) Stop() {}
func (b *recordingBackend) SetVolume(float64) {}

func (b *recordingBackend) got() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.played...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(e sse.Event) {
	p.mu.Lock()
	p.events = append(p.events, e.Type)
	p.mu.Unlock()
}

func (p *recordingPublisher) PublishLibraryEvent(kind, name string) {
	p.mu.Lock()
	if kind != "" {
		p.events = append(p.events, "sound."+kind+":"+name)
	}
	p.mu.Unlock()
}

func (p *recordingPublisher) has(event string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e == event {
			return true
		}
	}
	return false
}

type chanCapturer chan string

func (c chanCapturer) Capture(ctx context.Context) (string, error) {
	select {
	case k := <-c:
		return k, nil
	case <-ctx.Done():
		return "", context.Cause(ctx)
	}
}

type env struct {
	svc     *Service
	root    string
	store   *state.Store
	backend *recordingBackend
	events  *recordingPublisher
	history *history.DB
	keys    chanCapturer
}

func newEnv(t *testing.T, files ...string) *env {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "sound")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "memes"), 0o755))
	for _, f := range files {
		p := filepath.Join(root, f)
		require.NoError(t, os.WriteFile(p, []byte(strings.Repeat("x", 1024)), 0o644))
	}

	lib, err := storage.NewLibrary(root)
	require.NoError(t, err)
	store, err := state.Open(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	db, err := history.Open(filepath.Join(dir, "soundboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := discardLogger()
	backend := &recordingBackend{fail: map[string]error{}}
	keys := make(chanCapturer)
	events := &recordingPublisher{}

	svc := NewService(Deps{
		Library:   lib,
		Store:     store,
		Engine:    playback.NewEngine(backend, store, logger),
		Shortcuts: shortcut.New(store, root, keys, logger),
		History:   db,
		Events:    events,
		Logger:    logger,
	})
	_, err = svc.Rescan(context.Background())
	require.NoError(t, err)

	return &env{svc: svc, root: root, store: store, backend: backend, events: events, history: db, keys: keys}
}

func TestSounds_ListsSizeAndShortcut(t *testing.T) {
	e := newEnv(t, "laugh.wav", filepath.Join("memes", "boo.mp3"))
	ctx := context.Background()
	_, err := e.svc.Assign(ctx, "laugh.wav", "a")
	require.NoError(t, err)

	view, err := e.svc.Sounds(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, view.Total)
	assert.False(t, view.Empty)

	// Category folders come before loose root files.
	assert.Equal(t, "boo.mp3", view.Sounds[0].Name)
	assert.Equal(t, NoShortcut, view.Sounds[0].Shortcut)
	assert.Equal(t, "laugh.wav", view.Sounds[1].Name)
	assert.Equal(t, "a", view.Sounds[1].Shortcut)
	assert.EqualValues(t, 1024, view.Sounds[1].Size)
	assert.Equal(t, "0.00 Mb", view.Sounds[1].SizeLabel)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "1.50 Mb", FormatSize(3*512*1024))
	assert.Equal(t, "0.00 Mb", FormatSize(0))
}

func TestPlay_CountsRecordsAndPublishes(t *testing.T) {
	e := newEnv(t, "laugh.wav")
	ctx := context.Background()

	res, err := e.svc.Play(ctx, "laugh.wav", history.SourceAPI)
	require.NoError(t, err)
	assert.Equal(t, "laugh.wav", res.Sound)
	assert.EqualValues(t, 1, res.PlayScore)
	assert.Equal(t, []string{filepath.Join(e.root, "laugh.wav")}, e.backend.got())
	assert.True(t, e.events.has(sse.TypeSoundPlayed))

	onDisk, err := state.Load(e.store.Path())
	require.NoError(t, err)
	assert.EqualValues(t, 1, onDisk.PlayScore)

	recent, err := e.history.Recent(5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.True(t, recent[0].OK)
	assert.Equal(t, history.SourceAPI, recent[0].Source)
}

func TestPlay_UnknownSound(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Play(context.Background(), "nope.wav", history.SourceAPI)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, e.store.PlayScore())
}

func TestPlay_FailureCountedAndLogged(t *testing.T) {
	e := newEnv(t, "laugh.wav")
	e.backend.fail["laugh.wav"] = errors.New("decoder exploded")

	_, err := e.svc.Play(context.Background(), "laugh.wav", history.SourceMCP)
	require.ErrorIs(t, err, apperr.ErrPlayback)
	assert.EqualValues(t, 1, e.store.PlayScore())
	assert.True(t, e.events.has(sse.TypePlaybackFailed))

	counts, err := e.history.Counts()
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Failed)
}

func TestHotkeyDispatch_PlaysBoundSoundOnce(t *testing.T) {
	e := newEnv(t, "boo.wav")
	ctx := context.Background()
	_, err := e.svc.Assign(ctx, "boo.wav", "x")
	require.NoError(t, err)

	shortcuts := shortcut.New(e.store, e.root, e.keys, discardLogger())
	d := hotkey.NewDispatcher(shortcuts, e.svc.HotkeyPlayer(), discardLogger())
	require.NoError(t, d.HandleKey("x"))

	assert.Equal(t, []string{filepath.Join(e.root, "boo.wav")}, e.backend.got())
	recent, err := e.history.Recent(1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, history.SourceHotkey, recent[0].Source)
}

func TestImportAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.svc.Import(ctx, "applause.mp3", strings.NewReader("ID3 data"))
	require.NoError(t, err)
	assert.Equal(t, "applause.mp3", res.Entry.Name)
	_, ok := e.svc.Catalog(ctx).Find("applause.mp3")
	assert.True(t, ok)
	assert.True(t, e.events.has("sound.added:applause.mp3"))

	_, err = e.svc.Import(ctx, "notes.txt", strings.NewReader("x"))
	require.ErrorIs(t, err, apperr.ErrUnsupported)

	_, err = e.svc.Assign(ctx, "applause.mp3", "p")
	require.NoError(t, err)
	require.NoError(t, e.svc.DeleteSound(ctx, "applause.mp3"))
	_, ok = e.svc.Catalog(ctx).Find("applause.mp3")
	assert.False(t, ok)
	assert.True(t, e.events.has("sound.removed:applause.mp3"))
	assert.Equal(t, []shortcut.Binding{{Key: "p", Sound: "applause.mp3"}}, e.svc.Bindings(ctx), "binding survives file deletion")

	require.ErrorIs(t, e.svc.DeleteSound(ctx, "applause.mp3"), apperr.ErrNotFound)
}

func TestImportFile(t *testing.T) {
	e := newEnv(t)
	src := filepath.Join(t.TempDir(), "horn.wav")
	require.NoError(t, os.WriteFile(src, []byte("RIFF"), 0o644))

	res, err := e.svc.ImportFile(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.root, "horn.wav"), res.Entry.Path())
}

func TestEmptyLibrary(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.Remove(filepath.Join(e.root, "memes")))

	view, err := e.svc.Sounds(context.Background())
	require.NoError(t, err)
	assert.True(t, view.Empty)
	assert.Zero(t, view.Total)
}

func TestAssign_RequiresKnownSound(t *testing.T) {
	e := newEnv(t, "laugh.wav")
	ctx := context.Background()

	_, err := e.svc.Assign(ctx, "", "a")
	require.ErrorIs(t, err, apperr.ErrNoSoundSelected)
	_, err = e.svc.Assign(ctx, "ghost.wav", "a")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.svc.Assign(ctx, "laugh.wav", "a")
	require.NoError(t, err)
	assert.True(t, e.events.has(sse.TypeHotkeyBound))
}

func TestBeginAssign_PublishesOutcome(t *testing.T) {
	e := newEnv(t, "laugh.wav")
	ctx := context.Background()

	sess, err := e.svc.BeginAssign(ctx, "laugh.wav")
	require.NoError(t, err)
	assert.Equal(t, shortcut.StateAwaiting, e.svc.AssignStatus().State)

	e.keys <- "k"
	res, err := sess.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "k", res.Key)

	require.Eventually(t, func() bool { return e.events.has(sse.TypeAssignFinished) }, time.Second, 5*time.Millisecond)
	assert.True(t, e.events.has(sse.TypeAssignStarted))
	assert.True(t, e.events.has(sse.TypeHotkeyBound))
}

func TestClearAndDeleteHotkey(t *testing.T) {
	e := newEnv(t, "laugh.wav", "boo.wav")
	ctx := context.Background()
	_, err := e.svc.Assign(ctx, "laugh.wav", "a")
	require.NoError(t, err)
	_, err = e.svc.Assign(ctx, "boo.wav", "b")
	require.NoError(t, err)

	key, err := e.svc.ClearHotkey(ctx, "laugh.wav")
	require.NoError(t, err)
	assert.Equal(t, "a", key)
	_, err = e.svc.ClearHotkey(ctx, "laugh.wav")
	require.ErrorIs(t, err, apperr.ErrNoBinding)

	sound, err := e.svc.DeleteHotkey(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "boo.wav", sound)
	assert.Empty(t, e.svc.Bindings(ctx))
	assert.True(t, e.events.has(sse.TypeHotkeyRemoved))
}

func TestVolumeAndStats(t *testing.T) {
	e := newEnv(t, "laugh.wav", "boo.wav")
	ctx := context.Background()

	assert.InDelta(t, 0.3, e.svc.SetVolume(ctx, 0.3), 1e-9)
	assert.InDelta(t, 1.0, e.svc.SetVolume(ctx, 4), 1e-9)
	assert.InDelta(t, 1.0, e.svc.Volume(), 1e-9)

	for i := 0; i < 3; i++ {
		_, err := e.svc.Play(ctx, "boo.wav", history.SourceAPI)
		require.NoError(t, err)
	}
	_, err := e.svc.Play(ctx, "laugh.wav", history.SourceHotkey)
	require.NoError(t, err)

	st, err := e.svc.Stats(ctx, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 4, st.PlayScore)
	assert.Equal(t, 2, st.Sounds)
	require.NotNil(t, st.History)
	assert.Equal(t, 4, st.History.Total)
	require.NotEmpty(t, st.Top)
	assert.Equal(t, "boo.wav", st.Top[0].Sound)
	assert.Equal(t, 3, st.Top[0].Plays)
}
