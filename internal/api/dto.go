package api

import (
	"github.com/starford/soundboard/internal/shortcut"
	"github.com/starford/soundboard/internal/soundboard"
	"github.com/starford/soundboard/internal/storage"
)

// VolumeRequest is the request body for setting the output level.
type VolumeRequest struct {
	Volume *float64 `json:"volume" example:"0.8" validate:"required"`
}

// VolumeResponse reports the output level.
type VolumeResponse struct {
	Volume float64 `json:"volume" example:"0.8" validate:"required"`
}

// AssignRequest is the request body for a capture-based assignment.
type AssignRequest struct {
	Sound string `json:"sound" example:"laugh.wav" validate:"required"`
}

// BindRequest is the request body for binding a key directly.
type BindRequest struct {
	Sound string `json:"sound" example:"laugh.wav" validate:"required"`
}

// BindingListResponse wraps the key bindings.
type BindingListResponse struct {
	Hotkeys []shortcut.Binding `json:"hotkeys" validate:"required"`
	Total   int                `json:"total" example:"3" validate:"required"`
}

// RemovedBinding describes a binding that was removed.
type RemovedBinding = shortcut.Binding

// AssignResult is the outcome of a binding request (aliased from the domain layer).
type AssignResult = shortcut.Result

// SessionStatus is the capture session state (aliased from the domain layer).
type SessionStatus = shortcut.Status

// LibraryView is the sound list response (aliased from the domain layer).
type LibraryView = soundboard.LibraryView

// PlayResult describes a started play (aliased from the domain layer).
type PlayResult = soundboard.PlayResult

// StatsResponse summarises usage (aliased from the domain layer).
type StatsResponse = soundboard.Stats

// ImportResponse describes an uploaded sound.
type ImportResponse = storage.ImportResult

// RescanResponse reports the catalog size after a rescan.
type RescanResponse struct {
	Categories int `json:"categories" example:"2" validate:"required"`
	Sounds     int `json:"sounds" example:"14" validate:"required"`
}
