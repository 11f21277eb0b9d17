package checksum

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamingMatchesSum(t *testing.T) {
	data := "RIFF....WAVEfmt "
	h := New()
	_, err := io.Copy(h, strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, Sum([]byte(data)), Hex(h))
	assert.Len(t, Hex(h), 64)
}
