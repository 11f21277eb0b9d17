package playback

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/soundboard/internal/apperr"
)

func TestCommand_PlayAndStop(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	path := filepath.Join(t.TempDir(), "laugh.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))

	c := NewCommand("sh", []string{"-c", "sleep 5", "sh"}, discardLogger())
	require.True(t, c.Available())

	h, err := c.Play(path)
	require.NoError(t, err)

	start := time.Now()
	c.Stop()
	select {
	case <-h.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("player was not stopped")
	}
	assert.Less(t, time.Since(start), 3*time.Second)

	// Stopping again once nothing plays is a no-op.
	c.Stop()
}

func TestCommand_MissingFile(t *testing.T) {
	c := NewCommand("sh", nil, discardLogger())
	_, err := c.Play(filepath.Join(t.TempDir(), "nope.wav"))
	require.ErrorIs(t, err, apperr.ErrPlayback)
}

func TestCommand_BuildArgs(t *testing.T) {
	c := NewCommand("/usr/bin/afplay", nil, discardLogger())
	c.SetVolume(0.25)
	assert.Equal(t, []string{"-v", "0.25", "a.wav"}, c.buildArgs("a.wav"))

	c = NewCommand("/usr/bin/aplay", []string{"-q"}, discardLogger())
	args := c.buildArgs("a.wav")
	assert.Equal(t, []string{"-q", "a.wav"}, args)

	// Base args must not be aliased between calls.
	args[0] = "changed"
	assert.Equal(t, []string{"-q", "b.wav"}, c.buildArgs("b.wav"))
}

func TestCommand_BuildArgsPowerShellQuoting(t *testing.T) {
	c := NewCommand("powershell.exe", nil, discardLogger())

	tests := []struct {
		name string
		path string
		want string
	}{
		{"plain", `C:\s\laugh.wav`, `(New-Object System.Media.SoundPlayer 'C:\s\laugh.wav').PlaySync()`},
		{"apostrophe", `C:\s\it's.wav`, `(New-Object System.Media.SoundPlayer 'C:\s\it''s.wav').PlaySync()`},
		{
			"statement break",
			`C:\s\x');Start-Process calc;('.wav`,
			`(New-Object System.Media.SoundPlayer 'C:\s\x'');Start-Process calc;(''.wav').PlaySync()`,
		},
		{"typographic quote", "C:\\s\\it\u2019s.wav", "(New-Object System.Media.SoundPlayer 'C:\\s\\it\u2019\u2019s.wav').PlaySync()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := c.buildArgs(tt.path)
			require.Len(t, args, 4)
			assert.Equal(t, []string{"-NoProfile", "-NonInteractive", "-c"}, args[:3])
			assert.Equal(t, tt.want, args[3])
		})
	}
}
