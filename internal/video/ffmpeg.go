package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegOpener decodes video files by piping raw frames out of ffmpeg.
type FFmpegOpener struct {
	FFmpegPath  string // default: "ffmpeg" from PATH
	FFprobePath string // default: "ffprobe" from PATH
}

func lookPath(configured, name string) (string, error) {
	if configured == "" {
		configured = name
	}
	p, err := exec.LookPath(configured)
	if err != nil {
		return "", fmt.Errorf("unable to find '%s' in your path: %w", configured, err)
	}
	return p, nil
}

type streamInfo struct {
	Streams []struct {
		Width        int `json:"width"`
		Height       int `json:"height"`
		SideDataList []struct {
			Rotation float64 `json:"rotation"`
		} `json:"side_data_list"`
		Tags struct {
			Rotate string `json:"rotate"`
		} `json:"tags"`
	} `json:"streams"`
}

// parseStreamInfo extracts the displayed size of the first video stream from
// ffprobe JSON. ffmpeg applies the display rotation while decoding, so a
// stream rotated by a quarter turn yields frames with width and height
// swapped relative to the coded size.
func parseStreamInfo(out []byte) (int, int, error) {
	var p streamInfo
	if err := json.Unmarshal(out, &p); err != nil {
		return 0, 0, fmt.Errorf("unable to parse ffprobe output: %w", err)
	}
	if len(p.Streams) == 0 {
		return 0, 0, errors.New("no video stream found")
	}
	s := p.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return 0, 0, fmt.Errorf("invalid video size %dx%d", s.Width, s.Height)
	}

	rotation := 0
	for _, sd := range s.SideDataList {
		if sd.Rotation != 0 {
			rotation = int(math.Round(sd.Rotation))
			break
		}
	}
	if rotation == 0 && s.Tags.Rotate != "" {
		if r, err := strconv.Atoi(strings.TrimSpace(s.Tags.Rotate)); err == nil {
			rotation = r
		}
	}
	if ((rotation%360)+360)%180 == 90 {
		return s.Height, s.Width, nil
	}
	return s.Width, s.Height, nil
}

// FrameSize returns the frame size of the first video stream in path.
func (o FFmpegOpener) FrameSize(ctx context.Context, path string) (int, int, error) {
	ffprobe, err := lookPath(o.FFprobePath, "ffprobe")
	if err != nil {
		return 0, 0, err
	}
	cmd := exec.CommandContext(ctx, ffprobe, //nolint:gosec // G204: executable and path chosen by the operator
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:stream_side_data=rotation:stream_tags=rotate",
		"-of", "json",
		path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe execution failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return parseStreamInfo(out)
}

// Open implements Opener. The ffmpeg process is bound to ctx.
func (o FFmpegOpener) Open(ctx context.Context, path string) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("video not found: %w", err)
	}
	width, height, err := o.FrameSize(ctx, path)
	if err != nil {
		return nil, err
	}
	ffmpeg, err := lookPath(o.FFmpegPath, "ffmpeg")
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, ffmpeg, //nolint:gosec // G204: executable and path chosen by the operator
		"-v", "error",
		"-nostdin",
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	slog.Debug("Started ffmpeg decoder", "path", path, "width", width, "height", height, "pid", cmd.Process.Pid)

	waited := false
	wait := func() error {
		if waited {
			return nil
		}
		waited = true
		if err := cmd.Wait(); err != nil {
			return fmt.Errorf("ffmpeg execution failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
		}
		return nil
	}

	src, err := NewRawSource(stdout, width, height, func() error {
		if waited {
			return nil
		}
		// stopped early: the decoder is still running
		_ = cmd.Process.Kill()
		_ = wait()
		return nil
	})
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}
	src.finish = wait
	return src, nil
}
