// Package video turns video files and frame directories into a stream of
// decoded frames.
package video

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
)

// Source yields decoded frames in order. Next returns io.EOF once the
// stream is exhausted; any other error means the stream is broken.
type Source interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// Opener opens a frame source for a path.
type Opener interface {
	Open(ctx context.Context, path string) (Source, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, path string) (Source, error)

// Open calls f(ctx, path).
func (f OpenerFunc) Open(ctx context.Context, path string) (Source, error) { return f(ctx, path) }

// DefaultOpener reads directories as image sequences and hands everything
// else to ffmpeg.
type DefaultOpener struct {
	FFmpeg FFmpegOpener
}

// Open implements Opener.
func (o DefaultOpener) Open(ctx context.Context, path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		src, err := OpenDir(path)
		if err != nil {
			return nil, err
		}
		slog.Debug("Opened frame directory", "path", path, "frames", src.Len())
		return src, nil
	}
	return o.FFmpeg.Open(ctx, path)
}
