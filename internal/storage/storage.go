// Package storage stages uploaded videos on disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultDir is where uploads land when no directory is configured.
const DefaultDir = "videos"

const timestampLayout = "20060102_150405"

// TimestampedName prefixes the base name of filename with now formatted as
// YYYYMMDD_HHMMSS and an underscore. Directory parts of the client-supplied
// name are dropped.
func TimestampedName(now time.Time, filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		base = "upload"
	}
	return now.Format(timestampLayout) + "_" + base
}

// Store writes uploads into a directory.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore creates dir if needed and returns a store writing into it.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create video directory: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the directory uploads are written to.
func (s *Store) Dir() string { return s.dir }

// maxCollisions bounds the numeric suffixes tried for one upload name.
const maxCollisions = 1000

// Save copies r into a new timestamped file and returns its name and full
// path. Uploads landing in the same second under the same client name get
// a numeric suffix (clip_1.mp4, clip_2.mp4, ...) instead of overwriting
// each other. A partially written file is removed on failure.
func (s *Store) Save(filename string, r io.Reader) (name, path string, err error) {
	if r == nil {
		return "", "", errors.New("nil reader")
	}
	f, name, path, err := s.create(TimestampedName(s.now(), filename))
	if err != nil {
		return "", "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", "", fmt.Errorf("close %s: %w", name, err)
	}
	return name, path, nil
}

// create exclusively opens base in the store directory, or the first free
// suffixed variant of it.
func (s *Store) create(base string) (*os.File, string, string, error) {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := range maxCollisions {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		path := filepath.Join(s.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) //nolint:gosec // G304: name is sanitized by TimestampedName
		if err == nil {
			return f, name, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", "", fmt.Errorf("create %s: %w", name, err)
		}
	}
	return nil, "", "", fmt.Errorf("create %s: %d names already taken", base, maxCollisions)
}

// Remove deletes a previously saved upload.
func (s *Store) Remove(name string) error {
	return os.Remove(filepath.Join(s.dir, filepath.Base(name)))
}
