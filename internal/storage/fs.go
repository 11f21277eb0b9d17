package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/soundboard/internal/apperr"
	"github.com/starford/soundboard/internal/checksum"
	"github.com/starford/soundboard/internal/models"
)

var audioExtensions = map[string]bool{
	".wav": true,
	".mp3": true,
	".m4a": true,
}

// IsAudioFile reports whether name has a recognized audio extension.
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// Scan builds the catalog for root, creating the directory if it is missing.
//
// Loose audio files in root form the root category; every immediate
// subdirectory with at least one audio file forms its own category. Deeper
// levels are not visited. Subfolder categories come first and the root
// category last.
func Scan(root string) (models.Catalog, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &apperr.IOError{Op: "create", Path: root, Err: err}
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, &apperr.IOError{Op: "read", Path: root, Err: err}
	}

	catalog := models.Catalog{}
	rootCat := models.Category{Dir: root}

	for _, e := range entries {
		p := filepath.Join(root, e.Name())
		info, err := os.Stat(p)
		if err != nil {
			// Dangling symlinks and races with deletes are skipped.
			continue
		}
		switch {
		case info.IsDir():
			files, err := audioFiles(p)
			if err != nil {
				return nil, err
			}
			if len(files) > 0 {
				catalog = append(catalog, models.Category{Dir: p, Files: files})
			}
		case info.Mode().IsRegular() && IsAudioFile(e.Name()):
			rootCat.Files = append(rootCat.Files, e.Name())
		}
	}

	if len(rootCat.Files) > 0 {
		catalog = append(catalog, rootCat)
	}
	return catalog, nil
}

func audioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &apperr.IOError{Op: "read", Path: dir, Err: err}
	}
	var files []string
	for _, e := range entries {
		if !IsAudioFile(e.Name()) {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, e.Name())
	}
	return files, nil
}

// IsEmpty reports whether root has zero entries. A missing root is empty.
func IsEmpty(root string) (bool, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, &apperr.IOError{Op: "read", Path: root, Err: err}
	}
	return len(entries) == 0, nil
}

// Library implements Provider backed by the local file system.
type Library struct {
	root string // as configured; catalog directories are derived from it
	abs  string // absolute root used for containment checks
}

// NewLibrary creates a library rooted at root, creating the directory if needed.
func NewLibrary(root string) (*Library, error) {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &apperr.IOError{Op: "create", Path: root, Err: err}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &apperr.IOError{Op: "stat", Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &Library{root: root, abs: abs}, nil
}

// Root returns the library root as configured.
func (l *Library) Root() string { return l.root }

// Scan rebuilds the catalog.
func (l *Library) Scan() (models.Catalog, error) { return Scan(l.root) }

// IsEmpty reports whether the root has zero entries.
func (l *Library) IsEmpty() (bool, error) { return IsEmpty(l.root) }

// entryPath resolves an entry and rejects anything outside the root
// or nested deeper than one category level.
func (l *Library) entryPath(e models.SoundEntry) (string, error) {
	if e.Name == "" || e.Name != filepath.Base(e.Name) || strings.Contains(e.Name, "..") {
		return "", fmt.Errorf("storage: %q: %w", e.Name, apperr.ErrInvalidName)
	}
	dir := e.Category
	if dir == "" {
		dir = l.root
	}
	abs, err := filepath.Abs(filepath.Join(dir, e.Name))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	parent := filepath.Dir(abs)
	if parent != l.abs && filepath.Dir(parent) != l.abs {
		return "", fmt.Errorf("storage: path escapes library root: %s: %w", e.Path(), apperr.ErrInvalidName)
	}
	return abs, nil
}

// Size returns the size of entry in bytes.
func (l *Library) Size(e models.SoundEntry) (int64, error) {
	p, err := l.entryPath(e)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("storage: %s: %w", e.Path(), apperr.ErrNotFound)
		}
		return 0, &apperr.IOError{Op: "stat", Path: e.Path(), Err: err}
	}
	return info.Size(), nil
}

// Import copies srcPath into the library root. An existing file with the
// same name is overwritten unless its content is identical.
func (l *Library) Import(srcPath string) (ImportResult, error) {
	name := filepath.Base(srcPath)
	if !IsAudioFile(name) {
		return ImportResult{}, fmt.Errorf("storage: import %s: %w", name, apperr.ErrUnsupported)
	}
	info, err := os.Stat(srcPath)
	if err != nil {
		return ImportResult{}, &apperr.IOError{Op: "stat", Path: srcPath, Err: err}
	}
	if !info.Mode().IsRegular() {
		return ImportResult{}, fmt.Errorf("storage: import %s: not a regular file", srcPath)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return ImportResult{}, &apperr.IOError{Op: "open", Path: srcPath, Err: err}
	}
	defer src.Close()

	return l.ImportReader(name, src)
}

// ImportReader writes r into the root under name: tmp file → fsync → rename.
func (l *Library) ImportReader(name string, r io.Reader) (ImportResult, error) {
	if !IsAudioFile(name) {
		return ImportResult{}, fmt.Errorf("storage: import %s: %w", name, apperr.ErrUnsupported)
	}
	entry := models.SoundEntry{Category: l.root, Name: name}
	dst, err := l.entryPath(entry)
	if err != nil {
		return ImportResult{}, err
	}

	tmp, err := os.CreateTemp(l.abs, ".soundboard-tmp-*")
	if err != nil {
		return ImportResult{}, &apperr.IOError{Op: "create temp", Path: l.root, Err: err}
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	h := checksum.New()
	written, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		return ImportResult{}, &apperr.IOError{Op: "write", Path: entry.Path(), Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return ImportResult{}, &apperr.IOError{Op: "fsync", Path: entry.Path(), Err: err}
	}
	if err := tmp.Close(); err != nil {
		return ImportResult{}, &apperr.IOError{Op: "close temp", Path: entry.Path(), Err: err}
	}

	if existing, err := os.ReadFile(dst); err == nil && checksum.Sum(existing) == checksum.Hex(h) {
		_ = os.Remove(tmpName)
		success = true
		return ImportResult{Entry: entry, Size: written, Unchanged: true}, nil
	}

	if err := os.Rename(tmpName, dst); err != nil {
		return ImportResult{}, &apperr.IOError{Op: "rename", Path: entry.Path(), Err: err}
	}
	success = true
	return ImportResult{Entry: entry, Size: written}, nil
}

// Delete removes the file behind entry.
func (l *Library) Delete(e models.SoundEntry) error {
	p, err := l.entryPath(e)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("storage: delete %s: %w", e.Path(), apperr.ErrNotFound)
		}
		return &apperr.IOError{Op: "delete", Path: e.Path(), Err: err}
	}
	return nil
}

var _ Provider = (*Library)(nil)
