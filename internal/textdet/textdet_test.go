package textdet

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.InDelta(t, 0.3, cfg.Threshold, 1e-9)
	assert.Equal(t, 960, cfg.MaxSideLen)

	cfg.UpdateModelPath("/opt/models")
	assert.Equal(t, filepath.Join("/opt/models", "PP-OCRv5_mobile_det.onnx"), cfg.ModelPath)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "no model", mutate: func(c *Config) { c.ModelPath = "" }},
		{name: "zero threshold", mutate: func(c *Config) { c.Threshold = 0 }},
		{name: "box threshold above one", mutate: func(c *Config) { c.BoxThreshold = 1.2 }},
		{name: "negative unclip", mutate: func(c *Config) { c.UnclipRatio = -1 }},
		{name: "tiny side", mutate: func(c *Config) { c.MaxSideLen = 16 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestInputSize(t *testing.T) {
	tests := []struct {
		w, h, maxSide int
		wantW, wantH  int
	}{
		{w: 100, h: 40, maxSide: 960, wantW: 96, wantH: 32},
		{w: 10, h: 10, maxSide: 960, wantW: 32, wantH: 32},
		{w: 2000, h: 500, maxSide: 960, wantW: 960, wantH: 256},
		{w: 170, h: 90, maxSide: 0, wantW: 160, wantH: 96},
	}
	for _, tt := range tests {
		w, h := inputSize(tt.w, tt.h, tt.maxSide)
		assert.Equal(t, tt.wantW, w, "%dx%d", tt.w, tt.h)
		assert.Equal(t, tt.wantH, h, "%dx%d", tt.w, tt.h)
	}
}

func TestDetectRegionsRejectsBadInput(t *testing.T) {
	d := &Detector{config: DefaultConfig()}
	_, err := d.DetectRegions(nil)
	assert.Error(t, err)
	_, err = d.DetectRegions(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err)
	_, err = d.DetectRegions(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	assert.Error(t, err, "no session")
	assert.NoError(t, d.Close())
	assert.Equal(t, 960, d.GetModelInfo()["max_side_len"])
}

func TestNewDetectorMissingModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.onnx")
	_, err := NewDetector(cfg)
	assert.Error(t, err)
}
