package hotkey

import (
	"context"
	"errors"
	"fmt"

	hook "github.com/robotn/gohook"
)

// Kind is the direction of a key event.
type Kind int

const (
	Press Kind = iota + 1
	Release
)

func (k Kind) String() string {
	switch k {
	case Press:
		return "press"
	case Release:
		return "release"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is a single key transition.
type Event struct {
	Kind Kind
	Key  string
}

// Source produces raw key events until ctx is done. emit is called from a
// single goroutine.
type Source interface {
	Run(ctx context.Context, emit func(Event)) error
}

// GlobalSource reads system-wide key events through an OS keyboard hook.
type GlobalSource struct{}

func (GlobalSource) Run(ctx context.Context, emit func(Event)) error {
	events := hook.Start()
	defer hook.End()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return errors.New("hotkey: keyboard hook closed")
			}
			var kind Kind
			switch ev.Kind {
			case hook.KeyHold:
				kind = Press
			case hook.KeyUp:
				kind = Release
			default:
				continue
			}
			emit(Event{Kind: kind, Key: keyName(ev.Rawcode)})
		}
	}
}

func keyName(rawcode uint16) string {
	if name := hook.RawcodetoKeychar(rawcode); name != "" {
		return Canonicalize(name)
	}
	return fmt.Sprintf("<%d>", rawcode)
}

// ChanSource emits the events sent on its channel. It backs scripted input
// and tests.
type ChanSource struct {
	events chan Event
}

// NewChanSource creates a source with a buffer of size n.
func NewChanSource(n int) *ChanSource {
	return &ChanSource{events: make(chan Event, n)}
}

// Send queues an event.
func (s *ChanSource) Send(kind Kind, key string) {
	s.events <- Event{Kind: kind, Key: key}
}

// Tap queues a press followed by a release.
func (s *ChanSource) Tap(key string) {
	s.Send(Press, key)
	s.Send(Release, key)
}

func (s *ChanSource) Run(ctx context.Context, emit func(Event)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.events:
			emit(ev)
		}
	}
}
