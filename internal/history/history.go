package history

import "time"

// PlayLog defines the interface for play history operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type PlayLog interface {
	Record(p Play) error
	TopSounds(limit int) ([]SoundCount, error)
	Recent(limit int) ([]Play, error)
	Counts() (Counts, error)
	Close() error
}

// Verify *DB satisfies PlayLog at compile time.
var _ PlayLog = (*DB)(nil)

// Source names what triggered a play.
type Source string

const (
	SourceAPI    Source = "api"
	SourceHotkey Source = "hotkey"
	SourceMCP    Source = "mcp"
)

// Play is one attempted playback.
type Play struct {
	ID       int64     `json:"id"`
	Sound    string    `json:"sound"`
	Path     string    `json:"path"`
	Source   Source    `json:"source"`
	OK       bool      `json:"ok"`
	Error    string    `json:"error,omitempty"`
	PlayedAt time.Time `json:"played_at"`
}

// SoundCount is the number of plays of one sound.
type SoundCount struct {
	Sound string    `json:"sound"`
	Plays int       `json:"plays"`
	Last  time.Time `json:"last"`
}

// Counts aggregates the whole log.
type Counts struct {
	Total    int            `json:"total"`
	Failed   int            `json:"failed"`
	BySource map[Source]int `json:"by_source"`
}
