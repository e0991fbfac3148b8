package video

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rgbFrames(w, h int, values ...byte) []byte {
	var out []byte
	for _, v := range values {
		out = append(out, bytes.Repeat([]byte{v, v / 2, 255 - v}, w*h)...)
	}
	return out
}

func TestRawSourceReadsFrames(t *testing.T) {
	ctx := context.Background()
	src, err := NewRawSource(bytes.NewReader(rgbFrames(4, 3, 10, 200)), 4, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(4, 3), src.Size())

	first, err := src.Next(ctx)
	require.NoError(t, err)
	rgba, ok := first.(*image.RGBA)
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 4, 3), rgba.Bounds())
	assert.Equal(t, []uint8{10, 5, 245, 255}, rgba.Pix[:4])

	second, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint8(200), second.(*image.RGBA).Pix[0])

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestRawSourceTruncatedFrame(t *testing.T) {
	data := rgbFrames(4, 3, 10)
	data = append(data, 1, 2, 3)
	src, err := NewRawSource(bytes.NewReader(data), 4, 3, nil)
	require.NoError(t, err)

	_, err = src.Next(context.Background())
	require.NoError(t, err)
	_, err = src.Next(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestRawSourceProducerFailureAtEOF(t *testing.T) {
	src, err := NewRawSource(bytes.NewReader(nil), 2, 2, nil)
	require.NoError(t, err)
	boom := errors.New("decoder exited 1")
	src.finish = func() error { return boom }

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRawSourceCancelled(t *testing.T) {
	src, err := NewRawSource(bytes.NewReader(rgbFrames(2, 2, 1)), 2, 2, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRawSourceCloseOnce(t *testing.T) {
	calls := 0
	src, err := NewRawSource(bytes.NewReader(nil), 2, 2, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	assert.Equal(t, 1, calls)
}

func TestNewRawSourceInvalidSize(t *testing.T) {
	_, err := NewRawSource(bytes.NewReader(nil), 0, 2, nil)
	assert.Error(t, err)
}
