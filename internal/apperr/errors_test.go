package apperr

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{&IOError{Op: "write", Path: "config.json", Err: os.ErrPermission}, ErrIO},
		{&CorruptStateError{Path: "config.json", Err: errors.New("bad json")}, ErrCorruptState},
		{&PlaybackError{Path: "sound/a.wav", Err: os.ErrNotExist}, ErrPlayback},
		{&AlreadyBoundError{Key: "a", Sound: "laugh.wav"}, ErrAlreadyBound},
		{&NoBindingError{Sound: "laugh.wav"}, ErrNoBinding},
	}
	for _, c := range cases {
		assert.ErrorIs(t, c.err, c.sentinel, c.err.Error())
	}
}

func TestIOErrorKeepsCause(t *testing.T) {
	err := &IOError{Op: "mkdir", Path: "sound", Err: os.ErrPermission}
	require.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, "mkdir sound: permission denied", err.Error())
}

func TestAlreadyBoundAs(t *testing.T) {
	var wrapped error = &AlreadyBoundError{Key: "a", Sound: "laugh.wav"}
	var target *AlreadyBoundError
	require.ErrorAs(t, wrapped, &target)
	assert.Equal(t, "a", target.Key)
	assert.Equal(t, "laugh.wav", target.Sound)
	assert.Equal(t, `a already assigned to "laugh.wav"`, wrapped.Error())
}

func TestNoBindingMessages(t *testing.T) {
	assert.Equal(t, "no shortcut assigned to boo.wav", (&NoBindingError{Sound: "boo.wav"}).Error())
	assert.Equal(t, "shortcut Key.f1 not found", (&NoBindingError{Key: "Key.f1"}).Error())
}
