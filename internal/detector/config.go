package detector

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/platewatch/internal/models"
	"github.com/MeKo-Tech/platewatch/internal/onnx"
)

// Output layouts understood by DecodeOutput.
const (
	LayoutAuto          = "auto"
	LayoutChannelsFirst = "channels_first" // [1, 4+nc, N], YOLOv8/v11 default export
	LayoutRows          = "rows"           // [1, N, 4+nc]
	LayoutEndToEnd      = "end2end"        // [1, N, 6]: x1, y1, x2, y2, score, class
)

// Config holds configuration for the object detector.
type Config struct {
	ModelPath        string         // Path to ONNX detection model
	InputWidth       int            // Model input width (default: 640)
	InputHeight      int            // Model input height (default: 640)
	ConfThreshold    float64        // Minimum class score kept (default: 0.25)
	NMSThreshold     float64        // IoU threshold for NMS (default: 0.45)
	ClassAgnosticNMS bool           // Suppress across classes
	MaxDetections    int            // Cap after NMS (default: 300, 0 = unlimited)
	OutputLayout     string         // One of the Layout constants (default: auto)
	NumThreads       int            // Number of CPU threads (default: 0 for auto)
	GPU              onnx.GPUConfig // GPU acceleration configuration
}

// DefaultConfig returns a default detector configuration.
func DefaultConfig() Config {
	return Config{
		ModelPath:     models.GetDetectionModelPath(""),
		InputWidth:    640,
		InputHeight:   640,
		ConfThreshold: 0.25,
		NMSThreshold:  0.45,
		MaxDetections: 300,
		OutputLayout:  LayoutAuto,
		GPU:           onnx.DefaultGPUConfig(),
	}
}

// UpdateModelPath resolves ModelPath inside modelsDir.
func (c *Config) UpdateModelPath(modelsDir string) {
	c.ModelPath = models.GetDetectionModelPath(modelsDir)
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path cannot be empty")
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return fmt.Errorf("invalid input size %dx%d", c.InputWidth, c.InputHeight)
	}
	if c.ConfThreshold < 0 || c.ConfThreshold > 1 {
		return fmt.Errorf("conf threshold must be in [0,1], got %f", c.ConfThreshold)
	}
	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("nms threshold must be in [0,1], got %f", c.NMSThreshold)
	}
	switch c.OutputLayout {
	case "", LayoutAuto, LayoutChannelsFirst, LayoutRows, LayoutEndToEnd:
	default:
		return fmt.Errorf("unknown output layout %q", c.OutputLayout)
	}
	return nil
}
