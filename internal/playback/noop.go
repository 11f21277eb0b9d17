package playback

import (
	"log/slog"
	"os"

	"github.com/starford/soundboard/internal/apperr"
)

// Noop accepts every existing file and produces no sound. Used on hosts
// without an audio device.
type Noop struct {
	logger *slog.Logger
}

// NewNoop creates a silent backend.
func NewNoop(logger *slog.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) Play(path string) (Handle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &apperr.PlaybackError{Path: path, Err: err}
	}
	n.logger.Info("playback: noop play", slog.String("path", path))
	return finished{}, nil
}

func (n *Noop) Stop() {}

func (n *Noop) SetVolume(float64) {}

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

type finished struct{}

func (finished) Stop() {}

func (finished) Done() <-chan struct{} { return closedCh }
