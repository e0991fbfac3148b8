package utils

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResizeExact(t *testing.T) {
	src := filledRGBA(1280, 720, color.RGBA{50, 100, 150, 255})

	out, err := ResizeExact(src, 640, 640)
	require.NoError(t, err)
	assert.Equal(t, 640, out.Bounds().Dx())
	assert.Equal(t, 640, out.Bounds().Dy())
	assert.Equal(t, 1280, src.Bounds().Dx(), "source must not change")

	same, err := ResizeExact(src, 1280, 720)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), same.Bounds())

	_, err = ResizeExact(nil, 10, 10)
	var ipe *ImageProcessingError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, "resize", ipe.Operation)

	_, err = ResizeExact(src, 0, 10)
	assert.Error(t, err)
}

func TestNormalizeImageIntoBuffer(t *testing.T) {
	src := filledRGBA(3, 2, color.RGBA{255, 0, 51, 255})

	data, w, h, err := NormalizeImageIntoBuffer(src, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, w)
	assert.Equal(t, 2, h)
	require.Len(t, data, 18)

	plane := w * h
	for i := range plane {
		assert.InDelta(t, 1.0, data[i], 1e-6)
		assert.InDelta(t, 0.0, data[plane+i], 1e-6)
		assert.InDelta(t, 0.2, data[2*plane+i], 1e-6)
	}

	big := make([]float32, 100)
	reused, _, _, err := NormalizeImageIntoBuffer(src, big)
	require.NoError(t, err)
	assert.Len(t, reused, 18)
	assert.Same(t, &big[0], &reused[0], "buffer with enough capacity is reused")

	_, _, _, err = NormalizeImageIntoBuffer(nil, nil)
	assert.Error(t, err)
}

func TestImageProcessingErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := &ImageProcessingError{Operation: "decode", Err: base}
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "decode")
}

func TestListImagesAndLoad(t *testing.T) {
	dir := t.TempDir()
	img := filledRGBA(8, 6, color.RGBA{1, 2, 3, 255})

	require.NoError(t, SavePNG(filepath.Join(dir, "frame_0002.png"), img))
	require.NoError(t, SavePNG(filepath.Join(dir, "frame_0001.png"), img))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0o750))

	paths, err := ListImages(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "frame_0001.png", filepath.Base(paths[0]))
	assert.Equal(t, "frame_0002.png", filepath.Base(paths[1]))

	loaded, err := LoadImage(paths[0])
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), loaded.Bounds())

	_, err = LoadImage(filepath.Join(dir, "notes.txt"))
	assert.Error(t, err)
	_, err = LoadImage("")
	assert.Error(t, err)
	_, err = ListImages(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestIsSupportedImage(t *testing.T) {
	assert.True(t, IsSupportedImage("a.PNG"))
	assert.True(t, IsSupportedImage("a.jpeg"))
	assert.True(t, IsSupportedImage("a.bmp"))
	assert.False(t, IsSupportedImage("a.mp4"))
}
