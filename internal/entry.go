// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/soundboard/internal/api"
	"github.com/starford/soundboard/internal/hotkey"
	"github.com/starford/soundboard/internal/mcpserver"
	"github.com/starford/soundboard/internal/metrics"
	"github.com/starford/soundboard/internal/playback"
	"github.com/starford/soundboard/internal/soundboard"
	"github.com/starford/soundboard/internal/sse"
	"github.com/starford/soundboard/internal/state"
	"github.com/starford/soundboard/internal/storage"
	"github.com/starford/soundboard/internal/watcher"
)

// Run starts the soundboard engine: global hotkeys, library watcher and the
// HTTP API, until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.newLogger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.Bool("http_enabled", cfg.App.HTTP.Enabled),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("state_path", cfg.State.Path),
		slog.String("playback_backend", cfg.Playback.Backend),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := newComponents(cfg, logger, broker)
	if err != nil {
		return err
	}
	defer c.Close()

	// Initial scan.
	if _, err := c.svc.Rescan(ctx); err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}
	logLibrary(ctx, logger, c.svc)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	// Global hotkeys: pressed keys play their sound, released keys feed
	// assignment sessions.
	if cfg.Hotkeys.Enabled {
		dispatcher := hotkey.NewDispatcher(c.shortcuts, c.svc.HotkeyPlayer(), logger)
		sub := dispatcher.Attach(c.listener)
		defer sub.Close()

		g.Go(func() error {
			if err := c.listener.Run(gCtx); err != nil {
				logger.Error("hotkey listener stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Rescan on external library changes.
	if cfg.Watcher.Enabled {
		g.Go(func() error {
			if err := watcher.Watch(gCtx, cfg.Library.Path, cfg.Watcher.Debounce, c.svc, logger); err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	var httpServer *http.Server
	if cfg.App.HTTP.Enabled {
		apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		// Health check endpoints (unauthenticated).
		r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if _, err := os.Stat(cfg.Library.Path); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"library unavailable"}`))
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		r.Handle("/metrics", metrics.Handler())

		// Mount API routes under /api.
		r.Mount("/api", apiRouter)

		httpServer = &http.Server{
			Addr:              cfg.App.HTTP.Address(),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}
		cancel()

		if httpServer != nil {
			logger.Info("Shutting down server...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Soundboard stopped successfully")
	return nil
}

// RunMCP serves the soundboard tools over stdio. Global hotkeys stay with
// the engine process; the library watcher runs while the session is open.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.newLogger()
	slog.SetDefault(logger)

	c, err := newComponents(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	if _, err := c.svc.Rescan(ctx); err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}
	logLibrary(ctx, logger, c.svc)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.Watcher.Enabled {
		go func() {
			if err := watcher.Watch(ctx, cfg.Library.Path, cfg.Watcher.Debounce, c.svc, logger); err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(c.svc, app.version).ServeStdio()
}

// Scan rebuilds the catalog, stores it in the state file and writes it to w
// as JSON.
func Scan(w io.Writer, cfg *Config) error {
	cat, err := storage.Scan(cfg.Library.Path)
	if err != nil {
		return err
	}
	store, err := state.Open(cfg.State.Path)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if err := store.SetCatalog(cat); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cat)
}

// Import copies audio files into the library root and prints each stored
// path with its size.
func Import(ctx context.Context, w io.Writer, cfg *Config, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no files to import")
	}
	local := *cfg
	local.Playback.Backend = playback.BackendNoop
	local.Playback.Device = ""

	c, err := newComponents(&local, slog.Default(), nil)
	if err != nil {
		return err
	}
	defer c.Close()

	for _, p := range paths {
		res, err := c.svc.ImportFile(ctx, p)
		if err != nil {
			return err
		}
		status := "imported"
		if res.Unchanged {
			status = "unchanged"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", status, res.Entry.Path(), soundboard.FormatSize(res.Size))
	}
	return nil
}
