package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/MeKo-Tech/platewatch/internal/config"
	"github.com/MeKo-Tech/platewatch/internal/pipeline"
	"github.com/MeKo-Tech/platewatch/internal/utils"
	"github.com/spf13/cobra"
)

// videoCmd represents the video command.
var videoCmd = &cobra.Command{
	Use:   "video <path>...",
	Short: "Read the plates of helmet-violating riders in videos",
	Long: `Process one or more videos frame by frame and print the distinct plate
numbers of riders seen without a helmet.

A path may be a video file decoded with ffmpeg or a directory of frame
images read in name order.

Examples:
  platewatch video traffic.mp4
  platewatch video cam1.mp4 cam2.mp4 --format csv --output plates.csv
  platewatch video traffic.mp4 --frames-dir out/`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runVideoCommand,
}

func runVideoCommand(cmd *cobra.Command, args []string) error {
	cfg := *GetConfig()
	if err := applyPipelineFlags(cmd, &cfg); err != nil {
		return err
	}

	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	outputFile := cfg.Output.File
	if cmd.Flags().Changed("output") {
		outputFile, _ = cmd.Flags().GetString("output")
	}
	framesDir := cfg.Output.FramesDir
	if cmd.Flags().Changed("frames-dir") {
		framesDir, _ = cmd.Flags().GetString("frames-dir")
	}
	workers := cfg.Pipeline.Parallel.MaxWorkers
	if cmd.Flags().Changed("workers") {
		workers, _ = cmd.Flags().GetInt("workers")
	}
	if workers <= 0 {
		return fmt.Errorf("invalid worker count: %d (must be positive)", workers)
	}
	// reject unknown formats before any model is loaded
	if _, err := pipeline.FormatVideoResults(nil, format); err != nil {
		return err
	}

	pl, err := newPipeline(cfg.ToPipelineConfig())
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer func() { _ = pl.Close() }()

	var progress pipeline.ProgressCallback = pipeline.NewLogProgressCallback(nil, slog.LevelInfo)
	if bar, _ := cmd.Flags().GetBool("progress"); bar {
		progress = pipeline.MultiProgressCallback{
			progress,
			pipeline.NewConsoleProgressCallback(cmd.ErrOrStderr(), ""),
		}
	}
	parallel := pipeline.ParallelConfig{
		MaxWorkers:       workers,
		ProgressCallback: progress,
		ErrorHandler: func(_ int, path string, err error) {
			slog.Error("Video failed", "video", path, "error", err)
		},
	}
	if framesDir != "" {
		parallel.FrameHook = frameSaver(framesDir)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	results, runErr := pl.ProcessVideos(ctx, args, cfg.ToVideoOpener(), parallel)
	if results == nil {
		return runErr
	}
	stats := pipeline.CalculateParallelStats(results, time.Since(start), min(workers, len(args)))
	slog.Info("Finished videos",
		"processed", stats.ProcessedVideos,
		"failed", stats.FailedVideos,
		"frames", stats.TotalFrames,
		"frames_per_sec", stats.FramesPerSec)

	done := make([]*pipeline.VideoResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			done = append(done, r)
		}
	}
	if len(done) > 0 {
		out, err := pipeline.FormatVideoResults(done, format)
		if err != nil {
			return err
		}
		if err := writeOutput(cmd, out, outputFile); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

// frameSaver saves every frame that produced a reading as
// <dir>/<video>_frame_<index>.png.
func frameSaver(dir string) func(path string) pipeline.FrameHook {
	return func(path string) pipeline.FrameHook {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return func(ev pipeline.FrameEvent) {
			if ev.Result == nil || ev.Result.Image == nil || len(ev.Result.Readings) == 0 {
				return
			}
			name := filepath.Join(dir, fmt.Sprintf("%s_frame_%05d.png", base, ev.Index))
			if err := utils.SavePNG(name, ev.Result.Image); err != nil {
				slog.Warn("Failed to save frame", "file", name, "error", err)
			}
		}
	}
}

// writeOutput prints out, or writes it to file when one is named.
func writeOutput(cmd *cobra.Command, out, file string) error {
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	if file == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(file, []byte(out), 0o600); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	slog.Info("Results written", "file", file)
	return nil
}

func init() {
	rootCmd.AddCommand(videoCmd)
	addPipelineFlags(videoCmd)
	videoCmd.Flags().StringP("format", "f", pipeline.FormatText, "output format (text, json, csv, yaml)")
	videoCmd.Flags().StringP("output", "o", "", "write results to file instead of stdout")
	videoCmd.Flags().String("frames-dir", "", "save annotated frames that produced a reading to this directory")
	videoCmd.Flags().Bool("progress", false, "draw a progress bar on stderr")
	videoCmd.Flags().IntP("workers", "w", config.DefaultConfig().Pipeline.Parallel.MaxWorkers, "number of videos processed in parallel")
}
