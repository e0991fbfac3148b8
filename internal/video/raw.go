package video

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
)

// RawSource decodes a stream of packed rgb24 frames of a fixed size.
type RawSource struct {
	r      *bufio.Reader
	width  int
	height int
	buf    []byte

	// finish runs once the stream hits EOF, to surface a producer failure
	finish func() error

	closeOnce sync.Once
	closer    func() error
	closeErr  error
}

// NewRawSource reads width x height rgb24 frames from r. closer, if set,
// runs on Close.
func NewRawSource(r io.Reader, width, height int, closer func() error) (*RawSource, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	frameSize := width * height * 3
	return &RawSource{
		r:      bufio.NewReaderSize(r, frameSize),
		width:  width,
		height: height,
		buf:    make([]byte, frameSize),
		closer: closer,
	}, nil
}

// Size returns the frame dimensions.
func (s *RawSource) Size() image.Point { return image.Pt(s.width, s.height) }

// Next implements Source. A partial trailing frame is a read error.
func (s *RawSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, err := io.ReadFull(s.r, s.buf)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		if s.finish != nil {
			if ferr := s.finish(); ferr != nil {
				return nil, ferr
			}
		}
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("truncated frame: %w", err)
	default:
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	for i, j := 0, 0; i < len(s.buf); i, j = i+3, j+4 {
		img.Pix[j] = s.buf[i]
		img.Pix[j+1] = s.buf[i+1]
		img.Pix[j+2] = s.buf[i+2]
		img.Pix[j+3] = 0xff
	}
	return img, nil
}

// Close implements Source. It is safe to call more than once.
func (s *RawSource) Close() error {
	s.closeOnce.Do(func() {
		if s.closer != nil {
			s.closeErr = s.closer()
		}
	})
	return s.closeErr
}
