package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/MeKo-Tech/platewatch/internal/video"
)

// FrameProcessor processes a single frame.
type FrameProcessor interface {
	ProcessFrame(ctx context.Context, frame image.Image) (*FrameResult, error)
}

// Aggregator runs a FrameProcessor over every frame of a video and collects
// the distinct readings.
type Aggregator struct {
	frames FrameProcessor
	opener video.Opener
	hook   FrameHook
}

// NewAggregator returns an aggregator reading videos through opener.
func NewAggregator(frames FrameProcessor, opener video.Opener) *Aggregator {
	return &Aggregator{frames: frames, opener: opener}
}

// WithFrameHook registers a hook called after every processed frame.
func (a *Aggregator) WithFrameHook(hook FrameHook) *Aggregator {
	a.hook = hook
	return a
}

// ProcessVideo reads path frame by frame until the end of the stream.
// Readings are deduplicated by exact string equality and returned sorted.
//
// Open failures return *SourceOpenError and decode failures *SourceReadError;
// in both cases no partial result is returned. The source is closed exactly
// once whatever the outcome.
func (a *Aggregator) ProcessVideo(ctx context.Context, path string) (*VideoResult, error) {
	if a == nil || a.frames == nil || a.opener == nil {
		return nil, errors.New("aggregator not initialized")
	}
	start := time.Now()

	src, err := a.opener.Open(ctx, path)
	if err != nil {
		return nil, &SourceOpenError{Path: path, Err: err}
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Warn("Failed to close video source", "path", path, "error", cerr)
		}
	}()

	res := &VideoResult{
		Source:    path,
		Counts:    make(map[string]int),
		FirstSeen: make(map[string]int),
	}
	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("video processing cancelled after %d frames: %w", idx, err)
		}
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nil, fmt.Errorf("video processing cancelled after %d frames: %w", idx, err)
			}
			return nil, &SourceReadError{Path: path, Frame: idx, Err: err}
		}

		fr, err := a.frames.ProcessFrame(ctx, frame)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", idx, err)
		}
		res.FramesProcessed++
		res.Failures += len(fr.Failures)
		seenInFrame := make(map[string]bool, len(fr.Readings))
		for _, r := range fr.Readings {
			if seenInFrame[r] {
				continue
			}
			seenInFrame[r] = true
			if _, ok := res.FirstSeen[r]; !ok {
				res.FirstSeen[r] = idx
			}
			res.Counts[r]++
		}
		if a.hook != nil {
			a.hook(FrameEvent{Index: idx, Result: fr, UniqueSoFar: len(res.Counts)})
		}
	}

	res.UniqueReadings = make([]string, 0, len(res.Counts))
	for r := range res.Counts {
		res.UniqueReadings = append(res.UniqueReadings, r)
	}
	sort.Strings(res.UniqueReadings)
	res.Processing.TotalNs = time.Since(start).Nanoseconds()

	slog.Info("Processed video",
		"path", path,
		"frames", res.FramesProcessed,
		"unique_readings", len(res.UniqueReadings),
		"recognition_failures", res.Failures,
		"duration", time.Since(start).Round(time.Millisecond))
	return res, nil
}
