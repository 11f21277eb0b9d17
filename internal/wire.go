package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/soundboard/internal/history"
	"github.com/starford/soundboard/internal/hotkey"
	"github.com/starford/soundboard/internal/playback"
	"github.com/starford/soundboard/internal/shortcut"
	"github.com/starford/soundboard/internal/soundboard"
	"github.com/starford/soundboard/internal/state"
	"github.com/starford/soundboard/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

// components is the wired engine shared by the HTTP and MCP entry points.
type components struct {
	library   *storage.Library
	store     *state.Store
	history   *history.DB
	backend   playback.Backend
	engine    *playback.Engine
	listener  *hotkey.Listener
	shortcuts *shortcut.Manager
	svc       *soundboard.Service
}

// newComponents opens the library, state file and play log, builds the audio
// backend and the shortcut manager. events may be nil.
func newComponents(cfg *Config, logger *slog.Logger, events soundboard.Publisher) (*components, error) {
	c := &components{}

	lib, err := storage.NewLibrary(cfg.Library.Path)
	if err != nil {
		return nil, fmt.Errorf("init library: %w", err)
	}
	c.library = lib

	store, err := state.Open(cfg.State.Path)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	c.store = store

	var playLog history.PlayLog
	if cfg.History.Enabled {
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("init history: %w", err)
		}
		c.history = db
		playLog = db
	}

	backend, err := playback.NewBackend(cfg.Playback.Backend, cfg.Playback.Device,
		cfg.Playback.Command, cfg.Playback.Args, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.backend = backend
	// A named output device must exist; resolve it before serving.
	if pa, ok := backend.(*playback.PortAudio); ok && cfg.Playback.Device != "" {
		if err := pa.Init(); err != nil {
			c.Close()
			return nil, err
		}
	}

	c.engine = playback.NewEngine(backend, store, logger)
	c.engine.SetVolume(cfg.Playback.Volume)

	c.listener = hotkey.NewListener(hotkey.GlobalSource{}, logger)
	c.shortcuts = shortcut.New(store, cfg.Library.Path, c.listener, logger)

	c.svc = soundboard.NewService(soundboard.Deps{
		Library:   lib,
		Store:     store,
		Engine:    c.engine,
		Shortcuts: c.shortcuts,
		History:   playLog,
		Events:    events,
		Logger:    logger,
	})
	return c, nil
}

// Close releases the audio backend and the play log.
func (c *components) Close() {
	if closer, ok := c.backend.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("playback: close backend failed", slog.String("error", err.Error()))
		}
	}
	if c.history != nil {
		_ = c.history.Close()
	}
}

// logLibrary reports the catalog size and hints at the library folder when
// it is empty.
func logLibrary(ctx context.Context, logger *slog.Logger, svc *soundboard.Service) {
	view, err := svc.Sounds(ctx)
	if err != nil {
		logger.Warn("library: list failed", slog.String("error", err.Error()))
		return
	}
	if view.Empty {
		logger.Info("library: no sounds yet, drop .wav, .mp3 or .m4a files into the sound folder",
			slog.String("path", svc.Root()))
		return
	}
	logger.Info("library: loaded", slog.Int("sounds", view.Total))
}
