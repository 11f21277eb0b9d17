// Package sse implements a Server-Sent Events broker pushing soundboard
// activity (plays, binding changes, library changes) to clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Event types published by the soundboard.
const (
	TypeSoundAdded     = "sound.added"
	TypeSoundRemoved   = "sound.removed"
	TypeCatalogUpdated = "catalog.updated"
	TypeSoundPlayed    = "sound.played"
	TypePlaybackFailed = "playback.failed"
	TypePlaybackStop   = "playback.stopped"
	TypeVolumeChanged  = "volume.changed"
	TypeHotkeyBound    = "hotkey.bound"
	TypeHotkeyRemoved  = "hotkey.removed"
	TypeAssignStarted  = "assign.started"
	TypeAssignFinished = "assign.finished"
)

// Library change kinds accepted by PublishLibraryEvent.
const (
	LibraryAdded   = "added"
	LibraryRemoved = "removed"
)

// DefaultPlayedWindow is how long repeat plays of one sound are folded into
// a single trailing sound.played event.
const DefaultPlayedWindow = 250 * time.Millisecond

// Played is the payload of sound.played. Repeats counts the plays folded
// into a trailing event; it is zero on the first play of a burst.
type Played struct {
	Name      string `json:"name"`
	Source    string `json:"source"`
	PlayScore uint64 `json:"play_score"`
	Repeats   int    `json:"repeats,omitempty"`
}

type libraryEventReq struct {
	kind string
	name string
}

// playBurst tracks repeat plays of one sound inside the played window.
type playBurst struct {
	last    Played
	repeats int
	until   time.Time
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop owns the clients, the catalog throttle and the played
// bursts. Public methods talk to it over channels.
type Broker struct {
	catalogMin   time.Duration
	playedWindow time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	libraryCh     chan libraryEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithPlayedWindow sets the sound.played coalescing window. Zero disables
// coalescing.
func WithPlayedWindow(d time.Duration) BrokerOption {
	return func(b *Broker) { b.playedWindow = d }
}

// NewBroker creates a new SSE broker. catalog.updated events are sent at
// most once per catalogThrottle; a change inside the window is announced
// when it ends.
func NewBroker(catalogThrottle time.Duration, opts ...BrokerOption) *Broker {
	if catalogThrottle <= 0 {
		catalogThrottle = 2 * time.Second
	}

	b := &Broker{
		catalogMin:    catalogThrottle,
		playedWindow:  DefaultPlayedWindow,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		libraryCh:     make(chan libraryEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	bursts := make(map[string]*playBurst)
	var (
		lastCatalog  time.Time
		catalogTimer <-chan time.Time
		playedTimer  <-chan time.Time
	)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than block the loop.
			}
		}
	}

	// played broadcasts the first play of a burst and counts the rest.
	played := func(event Event, p Played) {
		now := time.Now()
		if burst, ok := bursts[p.Name]; ok && now.Before(burst.until) {
			burst.last = p
			burst.repeats++
			return
		}
		broadcast(event)
		bursts[p.Name] = &playBurst{last: p, until: now.Add(b.playedWindow)}
		if playedTimer == nil {
			playedTimer = time.After(b.playedWindow)
		}
	}

	// flushPlayed emits one trailing event per expired burst that saw repeats.
	flushPlayed := func() {
		now := time.Now()
		var next time.Time
		for name, burst := range bursts {
			if now.Before(burst.until) {
				if next.IsZero() || burst.until.Before(next) {
					next = burst.until
				}
				continue
			}
			if burst.repeats > 0 {
				p := burst.last
				p.Repeats = burst.repeats
				broadcast(Event{Type: TypeSoundPlayed, Data: p})
			}
			delete(bursts, name)
		}
		if !next.IsZero() {
			playedTimer = time.After(next.Sub(now))
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			if p, ok := event.Data.(Played); ok && event.Type == TypeSoundPlayed && b.playedWindow > 0 {
				played(event, p)
				continue
			}
			broadcast(event)

		case <-playedTimer:
			playedTimer = nil
			flushPlayed()

		case req := <-b.libraryCh:
			data := map[string]string{"name": req.name}
			switch req.kind {
			case LibraryAdded:
				broadcast(Event{Type: TypeSoundAdded, Data: data})
			case LibraryRemoved:
				broadcast(Event{Type: TypeSoundRemoved, Data: data})
			}

			now := time.Now()
			if wait := b.catalogMin - now.Sub(lastCatalog); wait <= 0 {
				lastCatalog = now
				broadcast(Event{Type: TypeCatalogUpdated, Data: map[string]string{}})
			} else if catalogTimer == nil {
				catalogTimer = time.After(wait)
			}

		case <-catalogTimer:
			catalogTimer = nil
			lastCatalog = time.Now()
			broadcast(Event{Type: TypeCatalogUpdated, Data: map[string]string{}})

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishLibraryEvent publishes a sound file change and a throttled
// catalog.updated event. An empty kind only triggers catalog.updated.
func (b *Broker) PublishLibraryEvent(kind, name string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.libraryCh <- libraryEventReq{kind: kind, name: name}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
