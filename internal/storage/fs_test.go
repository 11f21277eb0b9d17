package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/soundboard/internal/apperr"
	"github.com/starford/soundboard/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func tempLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := NewLibrary(filepath.Join(t.TempDir(), "sound"))
	require.NoError(t, err)
	return lib
}

func TestScan_CreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "sound")

	cat, err := Scan(root)
	require.NoError(t, err)
	assert.Empty(t, cat)
	assert.NotNil(t, cat)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	empty, err := IsEmpty(root)
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestScan_CategoriesPerNonEmptyFolder(t *testing.T) {
	root := filepath.Join(t.TempDir(), "sound")
	writeFile(t, filepath.Join(root, "laugh.wav"), "a")
	writeFile(t, filepath.Join(root, "AIRHORN.MP3"), "b")
	writeFile(t, filepath.Join(root, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, "memes", "boo.m4a"), "c")
	writeFile(t, filepath.Join(root, "memes", "cover.png"), "ignored")
	writeFile(t, filepath.Join(root, "empty", "readme.md"), "no audio")
	writeFile(t, filepath.Join(root, "memes", "deeper", "hidden.wav"), "too deep")

	cat, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, cat, 2, "one category for memes, one for root")

	assert.Equal(t, filepath.Join(root, "memes"), cat[0].Dir)
	assert.Equal(t, []string{"boo.m4a"}, cat[0].Files)

	assert.Equal(t, root, cat[1].Dir, "root category comes last")
	assert.ElementsMatch(t, []string{"laugh.wav", "AIRHORN.MP3"}, cat[1].Files)
}

func TestScan_NoRootCategoryWithoutLooseFiles(t *testing.T) {
	root := filepath.Join(t.TempDir(), "sound")
	writeFile(t, filepath.Join(root, "a", "x.wav"), "x")
	writeFile(t, filepath.Join(root, "b", "y.wav"), "y")

	cat, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, cat, 2)
	for _, c := range cat {
		assert.NotEqual(t, root, c.Dir)
	}
}

func TestScan_DoesNotMutateFiles(t *testing.T) {
	root := filepath.Join(t.TempDir(), "sound")
	writeFile(t, filepath.Join(root, "a.wav"), "payload")

	_, err := Scan(root)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "a.wav"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestIsEmpty_WithEntries(t *testing.T) {
	lib := tempLibrary(t)
	writeFile(t, filepath.Join(lib.Root(), "readme.txt"), "x")

	empty, err := lib.IsEmpty()
	require.NoError(t, err)
	assert.False(t, empty, "any entry counts, audio or not")
}

func TestIsAudioFile(t *testing.T) {
	assert.True(t, IsAudioFile("a.wav"))
	assert.True(t, IsAudioFile("a.WaV"))
	assert.True(t, IsAudioFile("a.m4a"))
	assert.False(t, IsAudioFile("a.ogg"))
	assert.False(t, IsAudioFile("wav"))
}

func TestImport_CopiesIntoRoot(t *testing.T) {
	lib := tempLibrary(t)
	src := filepath.Join(t.TempDir(), "applause.wav")
	writeFile(t, src, "clap clap")

	res, err := lib.Import(src)
	require.NoError(t, err)
	assert.False(t, res.Unchanged)
	assert.Equal(t, models.SoundEntry{Category: lib.Root(), Name: "applause.wav"}, res.Entry)
	assert.EqualValues(t, len("clap clap"), res.Size)

	cat, err := lib.Scan()
	require.NoError(t, err)
	_, ok := cat.Find("applause.wav")
	assert.True(t, ok)

	_, err = os.Stat(src)
	assert.NoError(t, err, "source is copied, not moved")
}

func TestImport_IdenticalFileUnchanged(t *testing.T) {
	lib := tempLibrary(t)
	src := filepath.Join(t.TempDir(), "applause.wav")
	writeFile(t, src, "clap")

	_, err := lib.Import(src)
	require.NoError(t, err)
	res, err := lib.Import(src)
	require.NoError(t, err)
	assert.True(t, res.Unchanged)

	matches, _ := filepath.Glob(filepath.Join(lib.Root(), ".soundboard-tmp-*"))
	assert.Empty(t, matches, "leftover temp files")
}

func TestImport_OverwritesDifferentContent(t *testing.T) {
	lib := tempLibrary(t)
	writeFile(t, filepath.Join(lib.Root(), "boo.wav"), "old")

	res, err := lib.ImportReader("boo.wav", strings.NewReader("new"))
	require.NoError(t, err)
	assert.False(t, res.Unchanged)

	data, err := os.ReadFile(filepath.Join(lib.Root(), "boo.wav"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestImport_RejectsUnsupported(t *testing.T) {
	lib := tempLibrary(t)
	src := filepath.Join(t.TempDir(), "notes.txt")
	writeFile(t, src, "x")

	_, err := lib.Import(src)
	require.ErrorIs(t, err, apperr.ErrUnsupported)
}

func TestImportReader_RejectsTraversal(t *testing.T) {
	lib := tempLibrary(t)
	for _, name := range []string{"../evil.wav", "sub/evil.wav", "..wav"} {
		_, err := lib.ImportReader(name, strings.NewReader("x"))
		assert.Error(t, err, name)
	}
}

func TestDeleteAndSize(t *testing.T) {
	lib := tempLibrary(t)
	writeFile(t, filepath.Join(lib.Root(), "memes", "boo.wav"), "12345")
	entry := models.SoundEntry{Category: filepath.Join(lib.Root(), "memes"), Name: "boo.wav"}

	size, err := lib.Size(entry)
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)

	require.NoError(t, lib.Delete(entry))
	err = lib.Delete(entry)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = lib.Size(entry)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDelete_RejectsOutsideRoot(t *testing.T) {
	lib := tempLibrary(t)
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "victim.wav"), "x")

	err := lib.Delete(models.SoundEntry{Category: outside, Name: "victim.wav"})
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(outside, "victim.wav"))
	assert.NoError(t, statErr)
}

func TestNewLibrary_FileNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	writeFile(t, f, "x")
	_, err := NewLibrary(f)
	require.Error(t, err)
}
