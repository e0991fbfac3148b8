package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampedName(t *testing.T) {
	now := time.Date(2024, 3, 9, 7, 5, 3, 0, time.UTC)
	tests := []struct {
		in   string
		want string
	}{
		{in: "clip.mp4", want: "20240309_070503_clip.mp4"},
		{in: "../../etc/passwd", want: "20240309_070503_passwd"},
		{in: `C:\videos\ride.avi`, want: "20240309_070503_ride.avi"},
		{in: "", want: "20240309_070503_upload"},
		{in: "..", want: "20240309_070503_upload"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, TimestampedName(now, tt.in))
		})
	}
}

func TestStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "videos")
	s, err := NewStore(dir)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	name, path, err := s.Save("clip.mp4", strings.NewReader("frames"))
	require.NoError(t, err)
	assert.Equal(t, "20240102_030405_clip.mp4", name)
	assert.Equal(t, filepath.Join(dir, name), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "frames", string(data))

	require.NoError(t, s.Remove(name))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestStoreSaveCleansUpOnError(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = s.Save("clip.mp4", failingReader{})
	require.Error(t, err)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, _, err = s.Save("clip.mp4", nil)
	assert.Error(t, err)
}

func TestStoreSaveSameSecondKeepsBothUploads(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	name1, path1, err := s.Save("clip.mp4", strings.NewReader("first"))
	require.NoError(t, err)
	name2, path2, err := s.Save("clip.mp4", strings.NewReader("second"))
	require.NoError(t, err)
	name3, _, err := s.Save("clip.mp4", strings.NewReader("third"))
	require.NoError(t, err)

	assert.Equal(t, "20240102_030405_clip.mp4", name1)
	assert.Equal(t, "20240102_030405_clip_1.mp4", name2)
	assert.Equal(t, "20240102_030405_clip_2.mp4", name3)
	assert.NotEqual(t, path1, path2)

	data, err := os.ReadFile(path1)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
	data, err = os.ReadFile(path2)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
