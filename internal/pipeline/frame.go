package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/MeKo-Tech/platewatch/internal/utils"
)

// ProcessFrame detects riders and violation indicators in frame, reads the
// plate text of every qualifying rider and returns the readings together
// with an annotated copy of the frame. The input frame is never modified.
//
// A failing detector fails the frame. A failing recognition only drops the
// affected region, which is recorded in FrameResult.Failures.
func (p *Pipeline) ProcessFrame(ctx context.Context, frame image.Image) (*FrameResult, error) {
	if p == nil || p.Detector == nil || p.Recognizer == nil {
		return nil, errors.New("pipeline not initialized")
	}
	if frame == nil {
		return nil, errors.New("frame is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	annotated := utils.CloneRGBA(frame)
	b := annotated.Bounds()
	frameSize := image.Pt(b.Dx(), b.Dy())
	res := &FrameResult{Image: annotated, Width: frameSize.X, Height: frameSize.Y, Readings: []string{}}

	inSize := p.Detector.InputSize()
	input, err := utils.ResizeExact(frame, inSize.X, inSize.Y)
	if err != nil {
		return nil, fmt.Errorf("prepare detector input: %w", err)
	}

	t0 := time.Now()
	dets, err := p.Detector.Detect(input)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}
	res.Processing.DetectionNs = time.Since(t0).Nanoseconds()
	res.Detections = dets
	if len(dets) == 0 {
		res.Processing.TotalNs = time.Since(start).Nanoseconds()
		return res, nil
	}

	t1 := time.Now()
	for _, i := range p.trigger.Qualifying(dets) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rect := MapBox(dets[i].Box, inSize, frameSize)
		// crop from the untouched input so earlier annotations stay out of the region
		region, ok := ExtractRegion(frame, rect)
		if !ok {
			slog.Debug("Skipping empty region", "detection", i, "box", rect)
			continue
		}

		text, err := p.readText(region)
		if err != nil {
			failure := RecognitionFailure{Index: i, Box: rect, Err: err}
			slog.Warn("Recognition failed", "detection", i, "box", rect, "error", err)
			res.Failures = append(res.Failures, failure)
			continue
		}
		if text == "" {
			continue
		}
		res.Readings = append(res.Readings, text)
		if p.cfg.Annotate {
			AnnotateReading(annotated, rect, text)
		}
	}
	res.Processing.RecognitionNs = time.Since(t1).Nanoseconds()
	res.Processing.TotalNs = time.Since(start).Nanoseconds()

	slog.Debug("Processed frame",
		"detections", len(dets),
		"readings", len(res.Readings),
		"failures", len(res.Failures),
		"detection_ns", res.Processing.DetectionNs,
		"recognition_ns", res.Processing.RecognitionNs)
	return res, nil
}

// readText joins the recognized fragments without a separator and trims
// the result.
func (p *Pipeline) readText(region image.Image) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recognizer panic: %v", r)
		}
	}()
	frags, err := p.Recognizer.Recognize(region)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, f := range frags {
		sb.WriteString(f.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}
