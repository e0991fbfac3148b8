package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/platewatch/internal/detector"
	"github.com/MeKo-Tech/platewatch/internal/models"
	"github.com/MeKo-Tech/platewatch/internal/pipeline"
	"github.com/MeKo-Tech/platewatch/internal/recognizer"
	"github.com/MeKo-Tech/platewatch/internal/server"
	"github.com/MeKo-Tech/platewatch/internal/storage"
	"github.com/MeKo-Tech/platewatch/internal/video"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{pipeline.FormatText, pipeline.FormatJSON, pipeline.FormatCSV, pipeline.FormatYAML}
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	det := detector.DefaultConfig()
	rec := recognizer.DefaultConfig()
	trig := pipeline.DefaultTriggerConfig()

	return Config{
		ModelsDir: models.DefaultModelsDir,
		LogLevel:  "info",
		Pipeline: PipelineConfig{
			Detector: DetectorConfig{
				InputSize:        det.InputWidth,
				ConfThreshold:    det.ConfThreshold,
				NMSThreshold:     det.NMSThreshold,
				ClassAgnosticNMS: det.ClassAgnosticNMS,
				NumThreads:       det.NumThreads,
			},
			Recognizer: RecognizerConfig{
				ImageHeight:      rec.ImageHeight,
				MaxWidth:         rec.MaxWidth,
				PadWidthMultiple: rec.PadWidthMultiple,
				MinConfidence:    rec.MinConfidence,
				SplitLines:       rec.SplitLines,
				NumThreads:       rec.NumThreads,
				UseTextDetection: rec.DetectText,
				DetThreshold:     rec.Detection.Threshold,
				DetBoxThreshold:  rec.Detection.BoxThreshold,
				DetUnclipRatio:   rec.Detection.UnclipRatio,
				DetMaxSideLen:    rec.Detection.MaxSideLen,
				UseAngleCls:      rec.UseAngleCls,
				ClsThreshold:     rec.Orientation.ConfidenceThreshold,
			},
			Trigger: TriggerConfig{
				RiderClass:     trig.RiderClass,
				ViolationClass: trig.ViolationClass,
			},
			Parallel: ParallelConfig{MaxWorkers: pipeline.DefaultParallelConfig().MaxWorkers},
			Annotate: true,
		},
		Output: OutputConfig{
			Format: pipeline.FormatText,
		},
		Server: ServerConfig{
			Host:              "localhost",
			Port:              8000,
			CORSOrigin:        "*",
			MaxUploadMB:       500,
			TimeoutSec:        600,
			ShutdownTimeout:   10,
			VideoDir:          storage.DefaultDir,
			KeepUploads:       true,
			RequestsPerMinute: 30,
			RequestsPerHour:   500,
			MaxRequestsPerDay: 2000,
			MaxDataPerDay:     10 * 1024 * 1024 * 1024,
		},
		GPU: GPUConfig{
			MemoryLimit: "auto",
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if err := validateThreshold(c.Pipeline.Detector.ConfThreshold, "detector.conf_threshold"); err != nil {
		return err
	}
	if err := validateThreshold(c.Pipeline.Detector.NMSThreshold, "detector.nms_threshold"); err != nil {
		return err
	}
	if err := validateThreshold(c.Pipeline.Recognizer.MinConfidence, "recognizer.min_confidence"); err != nil {
		return err
	}
	if err := validateThreshold(c.Pipeline.Recognizer.DetThreshold, "recognizer.det_threshold"); err != nil {
		return err
	}
	if err := validateThreshold(c.Pipeline.Recognizer.DetBoxThreshold, "recognizer.det_box_threshold"); err != nil {
		return err
	}
	if err := validateThreshold(c.Pipeline.Recognizer.ClsThreshold, "recognizer.cls_threshold"); err != nil {
		return err
	}
	if c.Pipeline.Recognizer.DetUnclipRatio < 0 {
		return fmt.Errorf("invalid recognizer det_unclip_ratio: %f (must be non-negative)", c.Pipeline.Recognizer.DetUnclipRatio)
	}
	if c.Pipeline.Recognizer.DetMaxSideLen < 32 {
		return fmt.Errorf("invalid recognizer det_max_side_len: %d (must be at least 32)", c.Pipeline.Recognizer.DetMaxSideLen)
	}

	if c.Pipeline.Detector.InputSize <= 0 || c.Pipeline.Detector.InputSize%32 != 0 {
		return fmt.Errorf("invalid detector input size: %d (must be a positive multiple of 32)", c.Pipeline.Detector.InputSize)
	}
	if c.Pipeline.Recognizer.ImageHeight <= 0 {
		return fmt.Errorf("invalid recognizer image height: %d (must be positive)", c.Pipeline.Recognizer.ImageHeight)
	}
	if c.Pipeline.Trigger.RiderClass < 0 || c.Pipeline.Trigger.ViolationClass < 0 {
		return fmt.Errorf("invalid trigger classes: rider=%d violation=%d (must be non-negative)",
			c.Pipeline.Trigger.RiderClass, c.Pipeline.Trigger.ViolationClass)
	}
	if c.Pipeline.Parallel.MaxWorkers <= 0 {
		return fmt.Errorf("invalid parallel max workers: %d (must be positive)", c.Pipeline.Parallel.MaxWorkers)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}

	if _, err := ParseMemoryLimit(c.GPU.MemoryLimit); err != nil {
		return fmt.Errorf("invalid GPU memory limit: %w", err)
	}
	return nil
}

// ToPipelineConfig converts the config to the pipeline configuration.
// Explicit model paths win over the models directory.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.UseModelsDir(c.ModelsDir)

	d := c.Pipeline.Detector
	cfg.Detector.InputWidth = d.InputSize
	cfg.Detector.InputHeight = d.InputSize
	cfg.Detector.ConfThreshold = d.ConfThreshold
	cfg.Detector.NMSThreshold = d.NMSThreshold
	cfg.Detector.ClassAgnosticNMS = d.ClassAgnosticNMS
	cfg.Detector.NumThreads = d.NumThreads
	if d.ModelPath != "" {
		cfg.Detector.ModelPath = d.ModelPath
	}

	r := c.Pipeline.Recognizer
	cfg.Recognizer.ImageHeight = r.ImageHeight
	cfg.Recognizer.MaxWidth = r.MaxWidth
	cfg.Recognizer.PadWidthMultiple = r.PadWidthMultiple
	cfg.Recognizer.MinConfidence = r.MinConfidence
	cfg.Recognizer.SplitLines = r.SplitLines
	cfg.Recognizer.NumThreads = r.NumThreads
	if r.ModelPath != "" {
		cfg.Recognizer.ModelPath = r.ModelPath
	}
	if r.DictPath != "" {
		cfg.Recognizer.DictPath = r.DictPath
	}
	cfg.Recognizer.DetectText = r.UseTextDetection
	cfg.Recognizer.Detection.Threshold = r.DetThreshold
	cfg.Recognizer.Detection.BoxThreshold = r.DetBoxThreshold
	cfg.Recognizer.Detection.UnclipRatio = r.DetUnclipRatio
	cfg.Recognizer.Detection.MaxSideLen = r.DetMaxSideLen
	cfg.Recognizer.Detection.NumThreads = r.NumThreads
	if r.DetModelPath != "" {
		cfg.Recognizer.Detection.ModelPath = r.DetModelPath
	}
	cfg.Recognizer.UseAngleCls = r.UseAngleCls
	cfg.Recognizer.Orientation.ConfidenceThreshold = r.ClsThreshold
	cfg.Recognizer.Orientation.NumThreads = r.NumThreads
	if r.ClsModelPath != "" {
		cfg.Recognizer.Orientation.ModelPath = r.ClsModelPath
	}

	cfg.Trigger = pipeline.TriggerConfig{
		RiderClass:     c.Pipeline.Trigger.RiderClass,
		ViolationClass: c.Pipeline.Trigger.ViolationClass,
	}
	cfg.Annotate = c.Pipeline.Annotate
	cfg.WarmupIterations = c.Pipeline.WarmupIterations
	cfg.Parallel.MaxWorkers = c.Pipeline.Parallel.MaxWorkers

	// Validate has already rejected malformed limits
	limit, _ := ParseMemoryLimit(c.GPU.MemoryLimit)
	cfg.Detector.GPU.UseGPU = c.GPU.Enabled
	cfg.Detector.GPU.DeviceID = c.GPU.Device
	cfg.Detector.GPU.GPUMemLimit = limit
	cfg.Recognizer.GPU.UseGPU = c.GPU.Enabled
	cfg.Recognizer.GPU.DeviceID = c.GPU.Device
	cfg.Recognizer.GPU.GPUMemLimit = limit
	cfg.Recognizer.Detection.GPU = cfg.Recognizer.GPU
	cfg.Recognizer.Orientation.GPU = cfg.Recognizer.GPU
	return cfg
}

// ToVideoOpener returns the opener used for video paths.
func (c *Config) ToVideoOpener() video.DefaultOpener {
	return video.DefaultOpener{FFmpeg: video.FFmpegOpener{
		FFmpegPath:  c.Video.FFmpegPath,
		FFprobePath: c.Video.FFprobePath,
	}}
}

// ToServerConfig converts the config to the HTTP server configuration.
func (c *Config) ToServerConfig() server.Config {
	opener := c.ToVideoOpener()
	return server.Config{
		Host:           c.Server.Host,
		Port:           c.Server.Port,
		CORSOrigin:     c.Server.CORSOrigin,
		MaxUploadMB:    int64(c.Server.MaxUploadMB),
		TimeoutSec:     c.Server.TimeoutSec,
		VideoDir:       c.Server.VideoDir,
		KeepUploads:    c.Server.KeepUploads,
		PipelineConfig: c.ToPipelineConfig(),
		FFmpeg:         opener.FFmpeg,
		RateLimit: server.RateLimitConfig{
			Enabled:           c.Server.RateLimitEnabled,
			RequestsPerMinute: c.Server.RequestsPerMinute,
			RequestsPerHour:   c.Server.RequestsPerHour,
			MaxRequestsPerDay: c.Server.MaxRequestsPerDay,
			MaxDataPerDay:     c.Server.MaxDataPerDay,
		},
	}
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

// ParseMemoryLimit converts limits like "512MB" or "1.5GB" to bytes.
// "" and "auto" mean no limit and return 0.
func ParseMemoryLimit(limit string) (uint64, error) {
	if limit == "" || strings.EqualFold(limit, "auto") {
		return 0, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(limit))
	units := []struct {
		suffix string
		scale  float64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}
	for _, u := range units {
		if !strings.HasSuffix(upper, u.suffix) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(upper, u.suffix)), 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid number in memory limit: %s", limit)
		}
		return uint64(n * u.scale), nil
	}
	return 0, fmt.Errorf("memory limit must end with one of: B, KB, MB, GB (got %s)", limit)
}
