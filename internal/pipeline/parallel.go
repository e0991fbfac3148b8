package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/platewatch/internal/video"
)

// ParallelConfig holds configuration for processing several videos at once.
type ParallelConfig struct {
	MaxWorkers       int                      // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback         // Optional progress reporting
	ErrorHandler     func(int, string, error) // Optional per-video error handler
	// FrameHook, when set, returns the hook observing frames of one video.
	FrameHook func(path string) FrameHook
}

// DefaultParallelConfig returns sensible defaults for parallel processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

type videoJob struct {
	index int
	path  string
}

type videoResult struct {
	index  int
	result *VideoResult
	err    error
}

// ProcessVideos aggregates several videos with a worker pool. Results are
// returned in input order; a failed video leaves a nil entry and the first
// error is returned alongside the other results.
func (p *Pipeline) ProcessVideos(ctx context.Context, paths []string, opener video.Opener, config ParallelConfig) ([]*VideoResult, error) {
	if len(paths) == 0 {
		return nil, errors.New("no videos provided")
	}
	if p == nil || p.Detector == nil || p.Recognizer == nil {
		return nil, errors.New("pipeline not initialized")
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	workers := min(config.MaxWorkers, len(paths))

	if config.ProgressCallback != nil {
		config.ProgressCallback.OnStart(len(paths))
		defer config.ProgressCallback.OnComplete()
	}

	jobs := make(chan videoJob, len(paths))
	results := make(chan videoResult, len(paths))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					return
				}
				agg := p.NewAggregator(opener)
				if config.FrameHook != nil {
					agg.WithFrameHook(config.FrameHook(job.path))
				}
				res, err := agg.ProcessVideo(ctx, job.path)
				results <- videoResult{index: job.index, result: res, err: err}
			}
		}()
	}

	for i, path := range paths {
		jobs <- videoJob{index: i, path: path}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*VideoResult, len(paths))
	errs := make([]error, len(paths))
	done := 0
	for r := range results {
		ordered[r.index] = r.result
		errs[r.index] = r.err
		done++
		if config.ProgressCallback != nil {
			if r.err != nil {
				config.ProgressCallback.OnError(done, r.err)
			}
			config.ProgressCallback.OnProgress(done, len(paths))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var firstErr error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("video %s: %w", paths[i], err)
		}
		if config.ErrorHandler != nil {
			config.ErrorHandler(i, paths[i], err)
		}
	}
	return ordered, firstErr
}

// ParallelStats holds statistics about a multi-video run.
type ParallelStats struct {
	TotalVideos     int           `json:"total_videos"`
	ProcessedVideos int           `json:"processed_videos"`
	FailedVideos    int           `json:"failed_videos"`
	TotalFrames     int           `json:"total_frames"`
	WorkerCount     int           `json:"worker_count"`
	TotalDuration   time.Duration `json:"total_duration_ns"`
	FramesPerSec    float64       `json:"frames_per_sec"`
}

// CalculateParallelStats summarizes the results of ProcessVideos.
func CalculateParallelStats(results []*VideoResult, duration time.Duration, workerCount int) ParallelStats {
	stats := ParallelStats{TotalVideos: len(results), WorkerCount: workerCount, TotalDuration: duration}
	for _, r := range results {
		if r == nil {
			stats.FailedVideos++
			continue
		}
		stats.ProcessedVideos++
		stats.TotalFrames += r.FramesProcessed
	}
	if duration > 0 {
		stats.FramesPerSec = float64(stats.TotalFrames) / duration.Seconds()
	}
	return stats
}
