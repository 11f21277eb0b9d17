package playback

import (
	"fmt"
	"log/slog"
)

// Backend kinds accepted by NewBackend.
const (
	BackendPortAudio = "portaudio"
	BackendCommand   = "command"
	BackendNoop      = "noop"
)

// NewBackend builds the backend named by kind.
func NewBackend(kind, device, command string, args []string, logger *slog.Logger) (Backend, error) {
	switch kind {
	case "", BackendPortAudio:
		return NewPortAudio(device, logger), nil
	case BackendCommand:
		return NewCommand(command, args, logger), nil
	case BackendNoop:
		return NewNoop(logger), nil
	default:
		return nil, fmt.Errorf("playback: unknown backend %q", kind)
	}
}
