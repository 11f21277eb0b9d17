package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/soundboard/internal/history"
	"github.com/starford/soundboard/internal/soundboard"
)

const defaultStatsTop = 10

// Handler holds API route handlers.
type Handler struct {
	svc *soundboard.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *soundboard.Service) *Handler {
	return &Handler{svc: svc}
}

// urlParam returns a decoded route parameter. Keys such as "/" or "<65>"
// arrive percent-encoded.
func urlParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListSounds handles GET /api/sounds.
//
//	@Summary		List the sound library with sizes and shortcuts
//	@Tags			sounds
//	@Produce		json
//	@Success		200		{object}	LibraryView
//	@Security		BearerAuth
//	@Router			/sounds [get]
func (h *Handler) ListSounds(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Sounds(r.Context())
	if err != nil {
		writeError(w, "list sounds", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DeleteSound handles DELETE /api/sounds/{name}.
//
//	@Summary		Delete a sound file from the library
//	@Tags			sounds
//	@Param			name	path	string	true	"Sound file name"
//	@Success		204
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sounds/{name} [delete]
func (h *Handler) DeleteSound(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSound(r.Context(), urlParam(r, "name")); err != nil {
		writeError(w, "delete sound", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PlaySound handles POST /api/sounds/{name}/play.
//
//	@Summary		Play a sound from the library
//	@Tags			playback
//	@Produce		json
//	@Param			name	path		string	true	"Sound file name"
//	@Success		202		{object}	PlayResult
//	@Failure		404		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sounds/{name}/play [post]
func (h *Handler) PlaySound(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Play(r.Context(), urlParam(r, "name"), history.SourceAPI)
	if err != nil {
		writeError(w, "play sound", err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

// ClearSoundHotkey handles DELETE /api/sounds/{name}/hotkey.
//
//	@Summary		Remove the shortcut bound to a sound
//	@Tags			hotkeys
//	@Produce		json
//	@Param			name	path		string	true	"Sound file name"
//	@Success		200		{object}	RemovedBinding
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sounds/{name}/hotkey [delete]
func (h *Handler) ClearSoundHotkey(w http.ResponseWriter, r *http.Request) {
	sound := urlParam(r, "name")
	key, err := h.svc.ClearHotkey(r.Context(), sound)
	if err != nil {
		writeError(w, "clear hotkey", err)
		return
	}
	writeJSON(w, http.StatusOK, RemovedBinding{Key: key, Sound: sound})
}

// Stop handles POST /api/stop.
//
//	@Summary		Stop the most recent playback
//	@Tags			playback
//	@Success		204
//	@Security		BearerAuth
//	@Router			/stop [post]
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	h.svc.Stop(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// GetVolume handles GET /api/volume.
func (h *Handler) GetVolume(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, VolumeResponse{Volume: h.svc.Volume()})
}

// SetVolume handles PUT /api/volume. Values outside [0, 1] are clamped.
//
//	@Summary		Set the output level
//	@Tags			playback
//	@Accept			json
//	@Produce		json
//	@Param			body	body		VolumeRequest	true	"Level in [0, 1]"
//	@Success		200		{object}	VolumeResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/volume [put]
func (h *Handler) SetVolume(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<10)
	var req VolumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	if req.Volume == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("volume is required"))
		return
	}
	v := h.svc.SetVolume(r.Context(), *req.Volume)
	writeJSON(w, http.StatusOK, VolumeResponse{Volume: v})
}

// ListHotkeys handles GET /api/hotkeys.
//
//	@Summary		List key bindings sorted by key
//	@Tags			hotkeys
//	@Produce		json
//	@Success		200		{object}	BindingListResponse
//	@Security		BearerAuth
//	@Router			/hotkeys [get]
func (h *Handler) ListHotkeys(w http.ResponseWriter, r *http.Request) {
	items := h.svc.Bindings(r.Context())
	writeJSON(w, http.StatusOK, BindingListResponse{Hotkeys: items, Total: len(items)})
}

// BindHotkey handles PUT /api/hotkeys/{key}.
//
//	@Summary		Bind a key to a sound
//	@Tags			hotkeys
//	@Accept			json
//	@Produce		json
//	@Param			key		path		string		true	"Key name"
//	@Param			body	body		BindRequest	true	"Sound to bind"
//	@Success		200		{object}	AssignResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/hotkeys/{key} [put]
func (h *Handler) BindHotkey(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<10)
	var req BindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	res, err := h.svc.Assign(r.Context(), req.Sound, urlParam(r, "key"))
	if err != nil {
		writeError(w, "bind hotkey", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteHotkey handles DELETE /api/hotkeys/{key}.
//
//	@Summary		Remove a key binding
//	@Tags			hotkeys
//	@Produce		json
//	@Param			key	path		string	true	"Key name"
//	@Success		200	{object}	RemovedBinding
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/hotkeys/{key} [delete]
func (h *Handler) DeleteHotkey(w http.ResponseWriter, r *http.Request) {
	key := urlParam(r, "key")
	sound, err := h.svc.DeleteHotkey(r.Context(), key)
	if err != nil {
		writeError(w, "delete hotkey", err)
		return
	}
	writeJSON(w, http.StatusOK, RemovedBinding{Key: key, Sound: sound})
}

// AssignHotkey handles POST /api/hotkeys/assign. The request blocks until
// the next key is released; a client disconnect cancels the session.
//
//	@Summary		Bind the next pressed key to a sound
//	@Tags			hotkeys
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AssignRequest	true	"Sound to bind"
//	@Success		200		{object}	AssignResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/hotkeys/assign [post]
func (h *Handler) AssignHotkey(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<10)
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}

	ctx := r.Context()
	sess, err := h.svc.BeginAssign(ctx, req.Sound)
	if err != nil {
		writeError(w, "begin assign", err)
		return
	}
	res, err := sess.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			slog.Info("assign: client went away", slog.String("session", sess.ID))
			return
		}
		writeError(w, "assign hotkey", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AssignStatus handles GET /api/hotkeys/session.
//
//	@Summary		Report the capture session state
//	@Tags			hotkeys
//	@Produce		json
//	@Success		200	{object}	SessionStatus
//	@Security		BearerAuth
//	@Router			/hotkeys/session [get]
func (h *Handler) AssignStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.AssignStatus())
}

// Stats handles GET /api/stats.
//
//	@Summary		Play counter, library size and play history
//	@Tags			stats
//	@Produce		json
//	@Param			top	query		int	false	"Number of top and recent plays"
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top, _ := strconv.Atoi(r.URL.Query().Get("top"))
	if top <= 0 {
		top = defaultStatsTop
	}
	st, err := h.svc.Stats(r.Context(), top)
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Rescan handles POST /api/rescan.
//
//	@Summary		Rebuild the catalog from disk
//	@Tags			sounds
//	@Produce		json
//	@Success		200	{object}	RescanResponse
//	@Security		BearerAuth
//	@Router			/rescan [post]
func (h *Handler) Rescan(w http.ResponseWriter, r *http.Request) {
	cat, err := h.svc.Rescan(r.Context())
	if err != nil {
		writeError(w, "rescan", err)
		return
	}
	writeJSON(w, http.StatusOK, RescanResponse{Categories: len(cat), Sounds: cat.Len()})
}
