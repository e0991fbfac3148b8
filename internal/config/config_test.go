package config

import (
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/platewatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 640, cfg.Pipeline.Detector.InputSize)
	assert.Equal(t, 0, cfg.Pipeline.Trigger.RiderClass)
	assert.Equal(t, 2, cfg.Pipeline.Trigger.ViolationClass)
	assert.True(t, cfg.Pipeline.Annotate)
	assert.Equal(t, "videos", cfg.Server.VideoDir)
	assert.Equal(t, "text", cfg.Output.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "chatty" }, wantErr: "invalid log level"},
		{name: "bad format", mutate: func(c *Config) { c.Output.Format = "xml" }, wantErr: "invalid output format"},
		{name: "yaml format", mutate: func(c *Config) { c.Output.Format = "yaml" }},
		{name: "conf threshold", mutate: func(c *Config) { c.Pipeline.Detector.ConfThreshold = 1.5 }, wantErr: "conf_threshold"},
		{name: "nms threshold", mutate: func(c *Config) { c.Pipeline.Detector.NMSThreshold = -0.1 }, wantErr: "nms_threshold"},
		{name: "min confidence", mutate: func(c *Config) { c.Pipeline.Recognizer.MinConfidence = 2 }, wantErr: "min_confidence"},
		{name: "text det threshold", mutate: func(c *Config) { c.Pipeline.Recognizer.DetThreshold = 1.2 }, wantErr: "det_threshold"},
		{name: "text det box threshold", mutate: func(c *Config) { c.Pipeline.Recognizer.DetBoxThreshold = -1 }, wantErr: "det_box_threshold"},
		{name: "unclip ratio", mutate: func(c *Config) { c.Pipeline.Recognizer.DetUnclipRatio = -0.5 }, wantErr: "det_unclip_ratio"},
		{name: "text det side", mutate: func(c *Config) { c.Pipeline.Recognizer.DetMaxSideLen = 8 }, wantErr: "det_max_side_len"},
		{name: "cls threshold", mutate: func(c *Config) { c.Pipeline.Recognizer.ClsThreshold = 3 }, wantErr: "cls_threshold"},
		{name: "input size", mutate: func(c *Config) { c.Pipeline.Detector.InputSize = 600 }, wantErr: "input size"},
		{name: "image height", mutate: func(c *Config) { c.Pipeline.Recognizer.ImageHeight = 0 }, wantErr: "image height"},
		{name: "negative class", mutate: func(c *Config) { c.Pipeline.Trigger.RiderClass = -1 }, wantErr: "trigger classes"},
		{name: "workers", mutate: func(c *Config) { c.Pipeline.Parallel.MaxWorkers = 0 }, wantErr: "max workers"},
		{name: "port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server port"},
		{name: "upload size", mutate: func(c *Config) { c.Server.MaxUploadMB = 0 }, wantErr: "upload size"},
		{name: "timeout", mutate: func(c *Config) { c.Server.TimeoutSec = -1 }, wantErr: "timeout"},
		{name: "memory limit", mutate: func(c *Config) { c.GPU.MemoryLimit = "lots" }, wantErr: "GPU memory limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseMemoryLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "auto", want: 0},
		{in: "512MB", want: 512 << 20},
		{in: "1.5gb", want: 3 << 29},
		{in: "64KB", want: 64 << 10},
		{in: "100B", want: 100},
		{in: "12", wantErr: true},
		{in: "xMB", wantErr: true},
		{in: "-1GB", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMemoryLimit(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToPipelineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelsDir = "/opt/models"
	cfg.Pipeline.Detector.InputSize = 960
	cfg.Pipeline.Detector.ConfThreshold = 0.4
	cfg.Pipeline.Recognizer.DictPath = "/etc/plates.txt"
	cfg.Pipeline.Recognizer.SplitLines = false
	cfg.Pipeline.Trigger.ViolationClass = 5
	cfg.Pipeline.Annotate = false
	cfg.GPU.Enabled = true
	cfg.GPU.Device = 1
	cfg.GPU.MemoryLimit = "2GB"

	pc := cfg.ToPipelineConfig()

	assert.Equal(t, "/opt/models", pc.ModelsDir)
	assert.Equal(t, filepath.Join("/opt/models", models.ObjectDetector), pc.Detector.ModelPath)
	assert.Equal(t, filepath.Join("/opt/models", models.PlateRecognizer), pc.Recognizer.ModelPath)
	assert.Equal(t, 960, pc.Detector.InputWidth)
	assert.Equal(t, 960, pc.Detector.InputHeight)
	assert.InDelta(t, 0.4, pc.Detector.ConfThreshold, 1e-9)
	assert.Equal(t, "/etc/plates.txt", pc.Recognizer.DictPath)
	assert.False(t, pc.Recognizer.SplitLines)
	assert.Equal(t, 5, pc.Trigger.ViolationClass)
	assert.False(t, pc.Annotate)
	assert.True(t, pc.Detector.GPU.UseGPU)
	assert.True(t, pc.Recognizer.GPU.UseGPU)
	assert.Equal(t, 1, pc.Recognizer.GPU.DeviceID)
	assert.Equal(t, uint64(2<<30), pc.Detector.GPU.GPUMemLimit)

	assert.True(t, pc.Recognizer.DetectText)
	assert.True(t, pc.Recognizer.UseAngleCls)
	assert.Equal(t, filepath.Join("/opt/models", models.TextDetector), pc.Recognizer.Detection.ModelPath)
	assert.Equal(t, filepath.Join("/opt/models", models.LineOrientation), pc.Recognizer.Orientation.ModelPath)
	assert.InDelta(t, 0.3, pc.Recognizer.Detection.Threshold, 1e-9)
	assert.InDelta(t, 1.5, pc.Recognizer.Detection.UnclipRatio, 1e-9)
	assert.True(t, pc.Recognizer.Detection.GPU.UseGPU)
	assert.Equal(t, 1, pc.Recognizer.Orientation.GPU.DeviceID)
}

func TestToPipelineConfig_ExplicitModelPathsWin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelsDir = "/opt/models"
	cfg.Pipeline.Detector.ModelPath = "/tmp/det.onnx"
	cfg.Pipeline.Recognizer.ModelPath = "/tmp/rec.onnx"
	cfg.Pipeline.Recognizer.DetModelPath = "/tmp/textdet.onnx"
	cfg.Pipeline.Recognizer.ClsModelPath = "/tmp/cls.onnx"
	cfg.Pipeline.Recognizer.UseAngleCls = false

	pc := cfg.ToPipelineConfig()
	assert.Equal(t, "/tmp/det.onnx", pc.Detector.ModelPath)
	assert.Equal(t, "/tmp/rec.onnx", pc.Recognizer.ModelPath)
	assert.Equal(t, "/tmp/textdet.onnx", pc.Recognizer.Detection.ModelPath)
	assert.Equal(t, "/tmp/cls.onnx", pc.Recognizer.Orientation.ModelPath)
	assert.False(t, pc.Recognizer.UseAngleCls)
}

func TestToServerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 9000
	cfg.Server.VideoDir = "/var/lib/platewatch"
	cfg.Server.RateLimitEnabled = true
	cfg.Server.RequestsPerMinute = 7
	cfg.Video.FFmpegPath = "/usr/local/bin/ffmpeg"

	sc := cfg.ToServerConfig()
	assert.Equal(t, 9000, sc.Port)
	assert.Equal(t, int64(500), sc.MaxUploadMB)
	assert.Equal(t, "/var/lib/platewatch", sc.VideoDir)
	assert.True(t, sc.KeepUploads)
	assert.True(t, sc.RateLimit.Enabled)
	assert.Equal(t, 7, sc.RateLimit.RequestsPerMinute)
	assert.Equal(t, "/usr/local/bin/ffmpeg", sc.FFmpeg.FFmpegPath)
	assert.Equal(t, cfg.ModelsDir, sc.PipelineConfig.ModelsDir)
}
