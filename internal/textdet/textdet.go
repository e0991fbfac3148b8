// Package textdet finds text lines inside plate crops with a DB
// (differentiable binarization) segmentation model.
package textdet

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/MeKo-Tech/platewatch/internal/mempool"
	"github.com/MeKo-Tech/platewatch/internal/models"
	"github.com/MeKo-Tech/platewatch/internal/onnx"
	"github.com/MeKo-Tech/platewatch/internal/utils"
)

// Config holds configuration for the text line detector.
type Config struct {
	ModelPath    string         // Path to ONNX DB detection model
	Threshold    float64        // Probability map binarization threshold (default: 0.3)
	BoxThreshold float64        // Minimum mean region probability (default: 0.6)
	UnclipRatio  float64        // Region growth factor (default: 1.5)
	MinSize      int            // Smallest region side in map pixels (default: 3)
	MaxSideLen   int            // Longer input side is limited to this (default: 960)
	NumThreads   int            // Number of CPU threads (default: 0 for auto)
	GPU          onnx.GPUConfig // GPU acceleration configuration
}

// DefaultConfig returns a default detector configuration.
func DefaultConfig() Config {
	return Config{
		ModelPath:    models.GetTextDetectionModelPath(""),
		Threshold:    0.3,
		BoxThreshold: 0.6,
		UnclipRatio:  1.5,
		MinSize:      3,
		MaxSideLen:   960,
		GPU:          onnx.DefaultGPUConfig(),
	}
}

// UpdateModelPath resolves the model inside modelsDir.
func (c *Config) UpdateModelPath(modelsDir string) {
	c.ModelPath = models.GetTextDetectionModelPath(modelsDir)
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path cannot be empty")
	}
	if c.Threshold <= 0 || c.Threshold >= 1 {
		return fmt.Errorf("threshold must be in (0,1), got %f", c.Threshold)
	}
	if c.BoxThreshold < 0 || c.BoxThreshold > 1 {
		return fmt.Errorf("box threshold must be in [0,1], got %f", c.BoxThreshold)
	}
	if c.UnclipRatio < 0 {
		return fmt.Errorf("unclip ratio must be non-negative, got %f", c.UnclipRatio)
	}
	if c.MaxSideLen < 32 {
		return fmt.Errorf("max side length must be at least 32, got %d", c.MaxSideLen)
	}
	return nil
}

func (c Config) options() Options {
	return Options{
		Threshold:    float32(c.Threshold),
		BoxThreshold: c.BoxThreshold,
		UnclipRatio:  c.UnclipRatio,
		MinSize:      c.MinSize,
	}
}

// Detector finds text lines with a DB model. It is safe for concurrent use.
type Detector struct {
	config  Config
	session *onnx.Session
}

// NewDetector loads the model described by config.
func NewDetector(config Config) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("Initializing text detector",
		"model_path", config.ModelPath,
		"threshold", config.Threshold,
		"box_threshold", config.BoxThreshold,
		"unclip_ratio", config.UnclipRatio)

	session, err := onnx.NewSession(onnx.SessionConfig{
		ModelPath:  config.ModelPath,
		NumThreads: config.NumThreads,
		GPU:        config.GPU,
	})
	if err != nil {
		return nil, err
	}
	return &Detector{config: config, session: session}, nil
}

// inputSize scales w x h so the longer side is at most maxSide, then rounds
// both sides to a multiple of 32 as the DB backbone requires.
func inputSize(w, h, maxSide int) (int, int) {
	m := max(w, h)
	if maxSide <= 0 || m <= maxSide {
		m, maxSide = 1, 1
	}
	round := func(v int) int {
		return max(32, int(math.Round(float64(v)*float64(maxSide)/float64(m)/32))*32)
	}
	return round(w), round(h)
}

// DetectRegions returns the text lines in img, in image coordinates.
func (d *Detector) DetectRegions(img image.Image) ([]Region, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("input image is empty")
	}
	if d.session == nil {
		return nil, onnx.ErrSessionClosed
	}

	t0 := time.Now()
	rw, rh := inputSize(b.Dx(), b.Dy(), d.config.MaxSideLen)
	resized, err := utils.ResizeExact(img, rw, rh)
	if err != nil {
		return nil, fmt.Errorf("resize: %w", err)
	}
	buf := mempool.GetFloat32(3 * rw * rh)
	data, _, _, err := utils.NormalizeImageIntoBuffer(resized, buf)
	if err != nil {
		mempool.PutFloat32(buf)
		return nil, fmt.Errorf("normalize: %w", err)
	}
	defer mempool.PutFloat32(data)
	tensor, err := onnx.NewImageTensor(data, 3, rh, rw)
	if err != nil {
		return nil, err
	}

	t1 := time.Now()
	prob, shape, err := d.session.Run(tensor)
	if err != nil {
		return nil, err
	}
	if len(shape) != 4 || shape[1] != 1 {
		return nil, fmt.Errorf("expected [N,1,H,W] probability map, got %v", shape)
	}
	mapH, mapW := int(shape[2]), int(shape[3])
	if len(prob) < mapW*mapH {
		return nil, fmt.Errorf("probability map has %d values, shape %v", len(prob), shape)
	}

	t2 := time.Now()
	regions := scaleRegions(postProcess(prob[:mapW*mapH], mapW, mapH, d.config.options()), mapW, mapH, b)

	slog.Debug("Text detection completed",
		"regions", len(regions),
		"preprocess_ns", t1.Sub(t0).Nanoseconds(),
		"model_ns", t2.Sub(t1).Nanoseconds(),
		"postprocess_ns", time.Since(t2).Nanoseconds())
	return regions, nil
}

// Warmup runs forward passes on a blank plate-sized image.
func (d *Detector) Warmup(iterations int) error {
	blank := image.NewRGBA(image.Rect(0, 0, 160, 64))
	for i := range iterations {
		if _, err := d.DetectRegions(blank); err != nil {
			return fmt.Errorf("warmup iteration %d: %w", i+1, err)
		}
	}
	return nil
}

// GetModelInfo returns information about the loaded model.
func (d *Detector) GetModelInfo() map[string]interface{} {
	info := map[string]interface{}{
		"model_path":    d.config.ModelPath,
		"threshold":     d.config.Threshold,
		"box_threshold": d.config.BoxThreshold,
		"unclip_ratio":  d.config.UnclipRatio,
		"max_side_len":  d.config.MaxSideLen,
	}
	if d.session != nil {
		info["input_shape"] = d.session.InputShape()
		info["output_shape"] = d.session.OutputShape()
	}
	return info
}

// Close releases the ONNX session.
func (d *Detector) Close() error {
	if d.session == nil {
		return nil
	}
	return d.session.Close()
}
