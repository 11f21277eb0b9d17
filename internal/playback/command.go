package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/starford/soundboard/internal/apperr"
)

// Command plays files by running an OS audio player per sound.
type Command struct {
	command string
	args    []string
	logger  *slog.Logger
	gain    level

	mu      sync.Mutex
	current *process
}

// NewCommand creates a backend running command with args followed by the
// file path. An empty command is replaced by the platform default player.
func NewCommand(command string, args []string, logger *slog.Logger) *Command {
	if command == "" {
		command, args = detectAudioCommand()
	}
	c := &Command{command: command, args: args, logger: logger}
	c.gain.Store(1)

	logger.Debug("playback: command player",
		slog.String("command", command),
		slog.Bool("available", command != ""),
		slog.String("platform", runtime.GOOS))
	return c
}

// Available reports whether a player command was found.
func (c *Command) Available() bool {
	return c.command != ""
}

// Play starts the player process and returns without waiting for it.
func (c *Command) Play(path string) (Handle, error) {
	if c.command == "" {
		return nil, &apperr.PlaybackError{Path: path, Err: errors.New("no audio player available")}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &apperr.PlaybackError{Path: path, Err: err}
	}

	cmd := exec.Command(c.command, c.buildArgs(path)...) //nolint:gosec // command comes from config or PATH lookup
	if err := cmd.Start(); err != nil {
		return nil, &apperr.PlaybackError{Path: path, Err: fmt.Errorf("start %s: %w", filepath.Base(c.command), err)}
	}

	p := &process{cmd: cmd, done: make(chan struct{})}
	c.mu.Lock()
	c.current = p
	c.mu.Unlock()

	go func() {
		err := cmd.Wait()
		if err != nil && !p.stopped.Load() {
			c.logger.Warn("playback: player exited with error", slog.String("path", path), slog.String("error", err.Error()))
		}
		close(p.done)

		c.mu.Lock()
		if c.current == p {
			c.current = nil
		}
		c.mu.Unlock()
	}()

	return p, nil
}

// Stop kills the most recently started player.
func (c *Command) Stop() {
	c.mu.Lock()
	p := c.current
	c.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// SetVolume stores the level for players started afterwards.
func (c *Command) SetVolume(l float64) {
	c.gain.Store(l)
}

// buildArgs returns a fresh slice so concurrent plays never share a backing
// array.
func (c *Command) buildArgs(path string) []string {
	name := strings.TrimSuffix(strings.ToLower(filepath.Base(c.command)), ".exe")
	if name == "powershell" {
		return []string{"-NoProfile", "-NonInteractive", "-c",
			fmt.Sprintf("(New-Object System.Media.SoundPlayer %s).PlaySync()", psQuote(path))}
	}

	args := make([]string, 0, len(c.args)+3)
	args = append(args, c.args...)
	args = append(args, volumeArgs(name, c.gain.Load())...)
	return append(args, path)
}

// psQuote renders s as a PowerShell single-quoted literal. PowerShell also
// accepts the typographic single quotes as delimiters, so those are doubled too.
func psQuote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'', '\u2018', '\u2019', '\u201a', '\u201b':
			b.WriteRune(r)
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}

func volumeArgs(player string, l float64) []string {
	switch player {
	case "afplay":
		return []string{"-v", fmt.Sprintf("%.2f", l)}
	case "paplay":
		return []string{fmt.Sprintf("--volume=%d", int(l*65536))}
	case "ffplay":
		return []string{"-volume", fmt.Sprintf("%d", int(l*100))}
	}
	return nil
}

// detectAudioCommand returns the platform player and its base arguments, or
// an empty command when none is installed.
func detectAudioCommand() (string, []string) {
	switch runtime.GOOS {
	case "darwin":
		if path, err := exec.LookPath("afplay"); err == nil {
			return path, nil
		}
	case "linux":
		if path, err := exec.LookPath("paplay"); err == nil {
			return path, nil
		}
		if path, err := exec.LookPath("aplay"); err == nil {
			return path, []string{"-q"}
		}
	case "windows":
		if path, err := exec.LookPath("powershell.exe"); err == nil {
			return path, nil
		}
	}
	return "", nil
}

type process struct {
	cmd     *exec.Cmd
	stopped atomic.Bool
	done    chan struct{}
}

func (p *process) Stop() {
	if p.stopped.Swap(true) {
		return
	}
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

func (p *process) Done() <-chan struct{} { return p.done }
