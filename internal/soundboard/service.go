// Package soundboard coordinates the library, state, playback, shortcuts,
// history and event publication behind one service used by every surface.
package soundboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/starford/soundboard/internal/apperr"
	"github.com/starford/soundboard/internal/history"
	"github.com/starford/soundboard/internal/metrics"
	"github.com/starford/soundboard/internal/models"
	"github.com/starford/soundboard/internal/playback"
	"github.com/starford/soundboard/internal/shortcut"
	"github.com/starford/soundboard/internal/sse"
	"github.com/starford/soundboard/internal/state"
	"github.com/starford/soundboard/internal/storage"
)

// NoShortcut is displayed for sounds without a bound key.
const NoShortcut = "None"

// Publisher receives soundboard events. *sse.Broker implements it.
type Publisher interface {
	Publish(event sse.Event)
	PublishLibraryEvent(kind, name string)
}

// SoundItem is one sound as shown to users.
type SoundItem struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	SizeLabel string `json:"size_label"`
	Shortcut  string `json:"shortcut"`
}

// LibraryView is the full list response.
type LibraryView struct {
	Sounds []SoundItem `json:"sounds"`
	Total  int         `json:"total"`
	Empty  bool        `json:"empty"`
}

// PlayResult describes a started play.
type PlayResult struct {
	Sound     string `json:"sound"`
	Path      string `json:"path"`
	PlayScore uint64 `json:"play_score"`
}

// Stats summarises usage.
type Stats struct {
	PlayScore uint64               `json:"play_score"`
	Sounds    int                  `json:"sounds"`
	Bindings  int                  `json:"bindings"`
	Volume    float64              `json:"volume"`
	History   *history.Counts      `json:"history,omitempty"`
	Top       []history.SoundCount `json:"top,omitempty"`
	Recent    []history.Play       `json:"recent,omitempty"`
}

// Deps are the collaborators of a Service. History and Events are optional.
type Deps struct {
	Library   storage.Provider
	Store     *state.Store
	Engine    *playback.Engine
	Shortcuts *shortcut.Manager
	History   history.PlayLog
	Events    Publisher
	Logger    *slog.Logger
}

// Service is the soundboard use-case layer.
type Service struct {
	lib       storage.Provider
	store     *state.Store
	engine    *playback.Engine
	shortcuts *shortcut.Manager
	history   history.PlayLog
	events    Publisher
	logger    *slog.Logger

	scanMu sync.Mutex
}

// NewService creates a new soundboard service.
func NewService(d Deps) *Service {
	events := d.Events
	if events == nil {
		events = nopPublisher{}
	}
	return &Service{
		lib:       d.Library,
		store:     d.Store,
		engine:    d.Engine,
		shortcuts: d.Shortcuts,
		history:   d.History,
		events:    events,
		logger:    d.Logger,
	}
}

// Root returns the library root.
func (s *Service) Root() string { return s.lib.Root() }

// Rescan rebuilds the catalog from disk, stores it and announces the
// differences to the previous catalog.
func (s *Service) Rescan(_ context.Context) (models.Catalog, error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	start := time.Now()
	cat, err := s.lib.Scan()
	if err != nil {
		return nil, err
	}
	metrics.RecordScan(time.Since(start))

	prev := s.store.Catalog()
	if err := s.store.SetCatalog(cat); err != nil {
		return nil, err
	}
	metrics.SetCatalogSize(cat.Len())

	added, removed := diff(prev, cat)
	for _, n := range added {
		s.events.PublishLibraryEvent(sse.LibraryAdded, n)
		metrics.RecordSSEEvent(sse.TypeSoundAdded)
	}
	for _, n := range removed {
		s.events.PublishLibraryEvent(sse.LibraryRemoved, n)
		metrics.RecordSSEEvent(sse.TypeSoundRemoved)
	}
	if len(added) == 0 && len(removed) == 0 {
		s.events.PublishLibraryEvent("", "")
	}

	s.logger.Debug("soundboard: rescanned",
		slog.Int("sounds", cat.Len()),
		slog.Int("added", len(added)),
		slog.Int("removed", len(removed)))
	return cat, nil
}

func diff(prev, next models.Catalog) (added, removed []string) {
	before := make(map[string]struct{}, prev.Len())
	for _, e := range prev.Entries() {
		before[e.Path()] = struct{}{}
	}
	after := make(map[string]struct{}, next.Len())
	for _, e := range next.Entries() {
		p := e.Path()
		after[p] = struct{}{}
		if _, ok := before[p]; !ok {
			added = append(added, e.Name)
		}
	}
	for _, e := range prev.Entries() {
		if _, ok := after[e.Path()]; !ok {
			removed = append(removed, e.Name)
		}
	}
	return added, removed
}

// Catalog returns the cached catalog.
func (s *Service) Catalog(_ context.Context) models.Catalog {
	return s.store.Catalog()
}

// Sounds lists every catalog entry with its size and shortcut.
func (s *Service) Sounds(_ context.Context) (*LibraryView, error) {
	cat := s.store.Catalog()

	keyOf := make(map[string]string)
	for k, v := range s.shortcuts.Bindings() {
		keyOf[v] = k
	}

	items := make([]SoundItem, 0, cat.Len())
	for _, e := range cat.Entries() {
		size, err := s.lib.Size(e)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		key, ok := keyOf[e.Name]
		if !ok {
			key = NoShortcut
		}
		items = append(items, SoundItem{
			Name:      e.Name,
			Category:  e.Category,
			Path:      e.Path(),
			Size:      size,
			SizeLabel: FormatSize(size),
			Shortcut:  key,
		})
	}

	empty, err := s.lib.IsEmpty()
	if err != nil {
		return nil, err
	}
	return &LibraryView{Sounds: items, Total: len(items), Empty: empty}, nil
}

// FormatSize renders a byte count in megabytes, e.g. "1.25 Mb".
func FormatSize(n int64) string {
	return fmt.Sprintf("%.2f Mb", float64(n)/(1024*1024))
}

func (s *Service) find(name string) (models.SoundEntry, error) {
	e, ok := s.store.Catalog().Find(name)
	if !ok {
		return models.SoundEntry{}, fmt.Errorf("soundboard: sound %q: %w", name, apperr.ErrNotFound)
	}
	return e, nil
}

// Play starts the catalog sound called name.
func (s *Service) Play(ctx context.Context, name string, source history.Source) (*PlayResult, error) {
	e, err := s.find(name)
	if err != nil {
		return nil, err
	}
	return s.PlayPath(ctx, e.Path(), source)
}

// PlayPath starts the sound file at path and records the attempt.
func (s *Service) PlayPath(_ context.Context, path string, source history.Source) (*PlayResult, error) {
	name := filepath.Base(path)
	_, playErr := s.engine.Play(path)

	metrics.RecordPlay(string(source), playErr == nil)
	if s.history != nil {
		p := history.Play{Sound: name, Path: path, Source: source, OK: playErr == nil}
		if playErr != nil {
			p.Error = playErr.Error()
		}
		if err := s.history.Record(p); err != nil {
			s.logger.Warn("soundboard: record play failed", slog.String("error", err.Error()))
		}
	}

	if playErr != nil {
		s.publish(sse.TypePlaybackFailed, map[string]string{"name": name, "error": playErr.Error()})
		return nil, playErr
	}

	res := &PlayResult{Sound: name, Path: path, PlayScore: s.store.PlayScore()}
	s.publish(sse.TypeSoundPlayed, sse.Played{Name: name, Source: string(source), PlayScore: res.PlayScore})
	return res, nil
}

// Stop halts the most recent playback.
func (s *Service) Stop(_ context.Context) {
	s.engine.Stop()
	s.publish(sse.TypePlaybackStop, map[string]string{})
}

// SetVolume sets the output level and returns the clamped value.
func (s *Service) SetVolume(_ context.Context, level float64) float64 {
	v := s.engine.SetVolume(level)
	metrics.SetVolume(v)
	s.publish(sse.TypeVolumeChanged, map[string]float64{"volume": v})
	return v
}

// Volume returns the output level.
func (s *Service) Volume() float64 { return s.engine.Volume() }

// Import stores r as name in the library root and rescans.
func (s *Service) Import(ctx context.Context, name string, r io.Reader) (*storage.ImportResult, error) {
	res, err := s.lib.ImportReader(name, r)
	metrics.RecordImport(err == nil)
	if err != nil {
		return nil, err
	}
	if _, err := s.Rescan(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("soundboard: imported", slog.String("name", res.Entry.Name), slog.Int64("size", res.Size))
	return &res, nil
}

// ImportFile copies an external file into the library root and rescans.
func (s *Service) ImportFile(ctx context.Context, src string) (*storage.ImportResult, error) {
	res, err := s.lib.Import(src)
	metrics.RecordImport(err == nil)
	if err != nil {
		return nil, err
	}
	if _, err := s.Rescan(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("soundboard: imported", slog.String("name", res.Entry.Name), slog.String("source", src))
	return &res, nil
}

// DeleteSound removes the file of sound name and rescans. A binding to the
// sound is kept.
func (s *Service) DeleteSound(ctx context.Context, name string) error {
	e, err := s.find(name)
	if err != nil {
		return err
	}
	if err := s.lib.Delete(e); err != nil {
		return err
	}
	_, err = s.Rescan(ctx)
	return err
}

// Bindings lists all key bindings.
func (s *Service) Bindings(_ context.Context) []shortcut.Binding {
	return s.shortcuts.List()
}

// Assign binds key to sound directly.
func (s *Service) Assign(_ context.Context, sound, key string) (shortcut.Result, error) {
	if sound == "" {
		return shortcut.Result{}, apperr.ErrNoSoundSelected
	}
	if _, err := s.find(sound); err != nil {
		return shortcut.Result{}, err
	}
	res, err := s.shortcuts.Assign(sound, key)
	if err != nil {
		return shortcut.Result{}, err
	}
	s.bound(res)
	return res, nil
}

// BeginAssign starts a capture session binding the next released key to
// sound. The caller waits on the session.
func (s *Service) BeginAssign(ctx context.Context, sound string) (*shortcut.Session, error) {
	if sound == "" {
		return nil, apperr.ErrNoSoundSelected
	}
	if _, err := s.find(sound); err != nil {
		return nil, err
	}
	sess, err := s.shortcuts.BeginAssign(ctx, sound)
	if err != nil {
		return nil, err
	}
	s.publish(sse.TypeAssignStarted, map[string]string{"session": sess.ID, "sound": sound})

	go func() {
		<-sess.Done()
		res, err := sess.Wait(context.Background())
		data := map[string]string{"session": sess.ID, "sound": sound}
		if err != nil {
			data["error"] = err.Error()
		} else {
			data["key"] = res.Key
			s.bound(res)
		}
		s.publish(sse.TypeAssignFinished, data)
	}()
	return sess, nil
}

// AssignStatus reports the capture session state.
func (s *Service) AssignStatus() shortcut.Status {
	return s.shortcuts.Status()
}

func (s *Service) bound(res shortcut.Result) {
	metrics.SetHotkeyBindings(len(s.shortcuts.Bindings()))
	if res.Unchanged {
		return
	}
	s.publish(sse.TypeHotkeyBound, res)
}

// ClearHotkey removes the binding of sound and returns its key.
func (s *Service) ClearHotkey(_ context.Context, sound string) (string, error) {
	key, err := s.shortcuts.Clear(sound)
	if err != nil {
		return "", err
	}
	metrics.SetHotkeyBindings(len(s.shortcuts.Bindings()))
	s.publish(sse.TypeHotkeyRemoved, shortcut.Binding{Key: key, Sound: sound})
	return key, nil
}

// DeleteHotkey removes key and returns the sound it was bound to.
func (s *Service) DeleteHotkey(_ context.Context, key string) (string, error) {
	sound, err := s.shortcuts.Delete(key)
	if err != nil {
		return "", err
	}
	metrics.SetHotkeyBindings(len(s.shortcuts.Bindings()))
	s.publish(sse.TypeHotkeyRemoved, shortcut.Binding{Key: key, Sound: sound})
	return sound, nil
}

// Stats returns the play counter, library size and play history summary.
func (s *Service) Stats(_ context.Context, top int) (*Stats, error) {
	st := &Stats{
		PlayScore: s.store.PlayScore(),
		Sounds:    s.store.Catalog().Len(),
		Bindings:  len(s.shortcuts.Bindings()),
		Volume:    s.engine.Volume(),
	}
	if s.history == nil {
		return st, nil
	}

	counts, err := s.history.Counts()
	if err != nil {
		return nil, err
	}
	st.History = &counts
	if st.Top, err = s.history.TopSounds(top); err != nil {
		return nil, err
	}
	if st.Recent, err = s.history.Recent(top); err != nil {
		return nil, err
	}
	return st, nil
}

// HotkeyPlayer adapts the service for the hotkey dispatcher.
func (s *Service) HotkeyPlayer() HotkeyPlayer {
	return HotkeyPlayer{svc: s}
}

// HotkeyPlayer plays dispatched keys as hotkey-triggered plays.
type HotkeyPlayer struct {
	svc *Service
}

func (p HotkeyPlayer) Play(path string) error {
	_, err := p.svc.PlayPath(context.Background(), path, history.SourceHotkey)
	return err
}

func (s *Service) publish(eventType string, data any) {
	s.events.Publish(sse.Event{Type: eventType, Data: data})
	metrics.RecordSSEEvent(eventType)
}

type nopPublisher struct{}

func (nopPublisher) Publish(sse.Event) {}

func (nopPublisher) PublishLibraryEvent(string, string) {}
