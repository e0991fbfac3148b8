package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MeKo-Tech/platewatch/internal/testutil"
	"github.com/MeKo-Tech/platewatch/internal/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pathOpener serves a fresh three-frame source per path and fails for "bad".
type pathOpener struct {
	mu      sync.Mutex
	sources map[string]*testutil.FakeSource
}

func (o *pathOpener) Open(_ context.Context, path string) (video.Source, error) {
	if path == "bad.mp4" {
		return nil, errors.New("unreadable")
	}
	src := testutil.NewFakeSource(3, 64, 64)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sources == nil {
		o.sources = make(map[string]*testutil.FakeSource)
	}
	o.sources[path] = src
	return src, nil
}

type countingProgress struct {
	mu       sync.Mutex
	started  int
	progress []int
	errors   int
	complete bool
}

func (c *countingProgress) OnStart(total int) { c.started = total }
func (c *countingProgress) OnProgress(done, _ int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress = append(c.progress, done)
}
func (c *countingProgress) OnComplete() { c.complete = true }
func (c *countingProgress) OnError(int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors++
}

func TestProcessVideosKeepsInputOrder(t *testing.T) {
	p := newTestPipeline(t, testutil.NewFakeDetector(), testutil.NewFakeRecognizer())
	opener := &pathOpener{}
	progress := &countingProgress{}
	var handled []string

	paths := []string{"a.mp4", "bad.mp4", "c.mp4"}
	results, err := p.ProcessVideos(context.Background(), paths, opener, ParallelConfig{
		MaxWorkers:       2,
		ProgressCallback: progress,
		ErrorHandler:     func(_ int, path string, _ error) { handled = append(handled, path) },
	})

	require.Error(t, err)
	var openErr *SourceOpenError
	assert.ErrorAs(t, err, &openErr)
	require.Len(t, results, 3)
	assert.Equal(t, "a.mp4", results[0].Source)
	assert.Nil(t, results[1])
	assert.Equal(t, "c.mp4", results[2].Source)
	assert.Equal(t, []string{"bad.mp4"}, handled)

	assert.Equal(t, 3, progress.started)
	assert.Len(t, progress.progress, 3)
	assert.Equal(t, 1, progress.errors)
	assert.True(t, progress.complete)

	for path, src := range opener.sources {
		assert.Equal(t, 1, src.Closes(), path)
	}
}

func TestProcessVideosFrameHookPerVideo(t *testing.T) {
	p := newTestPipeline(t, testutil.NewFakeDetector(), testutil.NewFakeRecognizer())
	var mu sync.Mutex
	frames := make(map[string][]int)

	_, err := p.ProcessVideos(context.Background(), []string{"a.mp4", "b.mp4"}, &pathOpener{}, ParallelConfig{
		MaxWorkers: 2,
		FrameHook: func(path string) FrameHook {
			return func(ev FrameEvent) {
				mu.Lock()
				defer mu.Unlock()
				frames[path] = append(frames[path], ev.Index)
			}
		},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string][]int{"a.mp4": {0, 1, 2}, "b.mp4": {0, 1, 2}}, frames)
}

func TestProcessVideosValidation(t *testing.T) {
	p := newTestPipeline(t, testutil.NewFakeDetector(), testutil.NewFakeRecognizer())
	_, err := p.ProcessVideos(context.Background(), nil, &pathOpener{}, DefaultParallelConfig())
	assert.Error(t, err)

	var nilPipeline *Pipeline
	_, err = nilPipeline.ProcessVideos(context.Background(), []string{"a"}, &pathOpener{}, DefaultParallelConfig())
	assert.Error(t, err)
}

func TestCalculateParallelStats(t *testing.T) {
	results := []*VideoResult{{FramesProcessed: 10}, nil, {FramesProcessed: 30}}
	stats := CalculateParallelStats(results, 2*time.Second, 2)
	assert.Equal(t, 3, stats.TotalVideos)
	assert.Equal(t, 2, stats.ProcessedVideos)
	assert.Equal(t, 1, stats.FailedVideos)
	assert.Equal(t, 40, stats.TotalFrames)
	assert.InDelta(t, 20.0, stats.FramesPerSec, 1e-9)
}
