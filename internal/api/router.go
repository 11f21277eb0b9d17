package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/soundboard/internal/soundboard"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *soundboard.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Use(AuthMiddleware(authEnabled, token))

	// Library.
	r.Get("/sounds", h.ListSounds)
	r.Post("/sounds", h.ImportSound)
	r.Delete("/sounds/{name}", h.DeleteSound)
	r.Post("/sounds/{name}/play", h.PlaySound)
	r.Delete("/sounds/{name}/hotkey", h.ClearSoundHotkey)
	r.Post("/rescan", h.Rescan)

	// Playback.
	r.Post("/stop", h.Stop)
	r.Get("/volume", h.GetVolume)
	r.Put("/volume", h.SetVolume)

	// Hotkeys. Static paths are registered before {key}.
	r.Get("/hotkeys", h.ListHotkeys)
	r.Post("/hotkeys/assign", h.AssignHotkey)
	r.Get("/hotkeys/session", h.AssignStatus)
	r.Put("/hotkeys/{key}", h.BindHotkey)
	r.Delete("/hotkeys/{key}", h.DeleteHotkey)

	r.Get("/stats", h.Stats)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
