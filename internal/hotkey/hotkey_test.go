package hotkey

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"a", "a"},
		{"'a'", "a"},
		{" 'A' ", "A"},
		{`"'"`, "'"},
		{"'", "'"},
		{"Key.f1", "Key.f1"},
		{"Key.F1", "Key.f1"},
		{"f1", "Key.f1"},
		{"Space", "Key.space"},
		{"page up", "Key.page_up"},
		{"<65>", "<65>"},
		{"<6a>", "Key.<6a>"},
		{"", ""},
		{"   ", ""},
		{"' '", "Key.space"},
		{`" "`, "Key.space"},
		{"'\t'", "Key.tab"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Canonicalize(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Canonicalize(got), "must be idempotent")
		})
	}
}

type recorder struct {
	mu   sync.Mutex
	keys []string
}

func (r *recorder) handle(key string) error {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()
	return nil
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

func startListener(t *testing.T) (*Listener, *ChanSource) {
	t.Helper()
	src := NewChanSource(16)
	l := NewListener(src, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return l, src
}

func TestListener_SuppressesAutoRepeat(t *testing.T) {
	l := NewListener(NewChanSource(0), discardLogger())
	rec := &recorder{}
	l.Subscribe(Press, rec.handle)

	l.handle(Event{Kind: Press, Key: "x"})
	l.handle(Event{Kind: Press, Key: "x"})
	l.handle(Event{Kind: Press, Key: "x"})
	l.handle(Event{Kind: Release, Key: "x"})
	l.handle(Event{Kind: Press, Key: "x"})

	assert.Equal(t, []string{"x", "x"}, rec.got())
}

func TestListener_RoutesByKind(t *testing.T) {
	l, src := startListener(t)
	presses, releases := &recorder{}, &recorder{}
	l.Subscribe(Press, presses.handle)
	l.Subscribe(Release, releases.handle)

	src.Tap("'a'")
	src.Tap("F2")

	require.Eventually(t, func() bool { return len(releases.got()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "Key.f2"}, presses.got())
	assert.Equal(t, []string{"a", "Key.f2"}, releases.got())
}

func TestListener_HandlerFailuresDoNotStopLoop(t *testing.T) {
	l, src := startListener(t)
	l.Subscribe(Press, func(string) error { panic("boom") })
	l.Subscribe(Press, func(string) error { return errors.New("nope") })
	rec := &recorder{}
	l.Subscribe(Release, rec.handle)

	src.Tap("a")
	src.Tap("b")

	require.Eventually(t, func() bool { return len(rec.got()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestSubscription_Close(t *testing.T) {
	l := NewListener(NewChanSource(0), discardLogger())
	rec := &recorder{}
	sub := l.Subscribe(Press, rec.handle)
	sub.Close()
	sub.Close()

	l.handle(Event{Kind: Press, Key: "a"})
	assert.Empty(t, rec.got())
	assert.Zero(t, l.subscribers())
}

func TestListener_CaptureReturnsReleasedKey(t *testing.T) {
	l, src := startListener(t)

	result := make(chan string, 1)
	go func() {
		key, err := l.Capture(context.Background())
		assert.NoError(t, err)
		result <- key
	}()
	require.Eventually(t, func() bool { return l.subscribers() == 1 }, time.Second, 5*time.Millisecond)

	src.Send(Press, "b")
	src.Send(Release, "b")

	select {
	case key := <-result:
		assert.Equal(t, "b", key)
	case <-time.After(time.Second):
		t.Fatal("capture did not return")
	}
	require.Eventually(t, func() bool { return l.subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestListener_CaptureCancelledByContext(t *testing.T) {
	l := NewListener(NewChanSource(0), discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Capture(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, l.subscribers())
}

func TestListener_NewCaptureSupersedesOld(t *testing.T) {
	l, src := startListener(t)

	first := make(chan error, 1)
	go func() {
		_, err := l.Capture(context.Background())
		first <- err
	}()
	require.Eventually(t, func() bool { return l.subscribers() == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan string, 1)
	go func() {
		key, err := l.Capture(context.Background())
		assert.NoError(t, err)
		second <- key
	}()

	select {
	case err := <-first:
		require.ErrorIs(t, err, ErrCaptureSuperseded)
	case <-time.After(time.Second):
		t.Fatal("first capture was not cancelled")
	}

	require.Eventually(t, func() bool { return l.subscribers() == 1 }, time.Second, 5*time.Millisecond)
	src.Tap("c")
	assert.Equal(t, "c", <-second)
}

type mapResolver map[string]string

func (m mapResolver) Resolve(key string) (string, bool) {
	p, ok := m[key]
	return p, ok
}

type playRecorder struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (p *playRecorder) Play(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
	return p.err
}

func (p *playRecorder) got() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.paths...)
}

func TestDispatcher_PlaysBoundKeyOncePerPress(t *testing.T) {
	l, src := startListener(t)
	player := &playRecorder{}
	d := NewDispatcher(mapResolver{"x": "sound/boo.wav"}, player, discardLogger())
	d.Attach(l)
	releases := &recorder{}
	l.Subscribe(Release, releases.handle)

	src.Send(Press, "x")
	src.Send(Press, "x")
	src.Send(Release, "x")
	src.Tap("y")

	require.Eventually(t, func() bool { return len(releases.got()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"sound/boo.wav"}, player.got())
}

func TestDispatcher_UnboundKeyIgnored(t *testing.T) {
	player := &playRecorder{}
	d := NewDispatcher(mapResolver{}, player, discardLogger())

	require.NoError(t, d.HandleKey("q"))
	assert.Empty(t, player.got())
}

func TestDispatcher_PlayErrorWrapped(t *testing.T) {
	cause := errors.New("device busy")
	d := NewDispatcher(mapResolver{"x": "sound/boo.wav"}, &playRecorder{err: cause}, discardLogger())

	err := d.HandleKey("x")
	require.ErrorIs(t, err, cause)
}
