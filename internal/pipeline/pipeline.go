package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/platewatch/internal/detector"
	"github.com/MeKo-Tech/platewatch/internal/models"
	"github.com/MeKo-Tech/platewatch/internal/recognizer"
	"github.com/MeKo-Tech/platewatch/internal/video"
)

// Config holds configuration for the plate reading pipeline and its components.
type Config struct {
	ModelsDir        string
	Detector         detector.Config
	Recognizer       recognizer.Config
	Trigger          TriggerConfig
	Annotate         bool // draw boxes and readings on FrameResult.Image
	WarmupIterations int  // forward passes per model before the first frame

	Parallel ParallelConfig
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		ModelsDir:  models.GetModelsDir(""),
		Detector:   detector.DefaultConfig(),
		Recognizer: recognizer.DefaultConfig(),
		Trigger:    DefaultTriggerConfig(),
		Annotate:   true,
		Parallel:   DefaultParallelConfig(),
	}
}

// UseModelsDir points every model path and the dictionary at dir.
func (c *Config) UseModelsDir(dir string) {
	if dir != "" {
		c.ModelsDir = dir
	}
	c.Detector.UpdateModelPath(c.ModelsDir)
	c.Recognizer.UpdateModelPath(c.ModelsDir)
}

// Validate reports the first missing model file or invalid component setting.
func (c Config) Validate() error {
	files := []struct{ what, path string }{
		{"detector model", c.Detector.ModelPath},
		{"recognizer model", c.Recognizer.ModelPath},
		{"dictionary", c.Recognizer.DictPath},
	}
	if c.Recognizer.DetectText {
		files = append(files, struct{ what, path string }{"text detection model", c.Recognizer.Detection.ModelPath})
	}
	if c.Recognizer.UseAngleCls {
		files = append(files, struct{ what, path string }{"angle classifier model", c.Recognizer.Orientation.ModelPath})
	}
	for _, f := range files {
		if f.path == "" {
			return fmt.Errorf("%s path is empty", f.what)
		}
		if _, err := os.Stat(f.path); err != nil {
			return fmt.Errorf("%s not found: %s", f.what, f.path)
		}
	}
	if err := c.Detector.Validate(); err != nil {
		return fmt.Errorf("detector config: %w", err)
	}
	if err := c.Recognizer.Validate(); err != nil {
		return fmt.Errorf("recognizer config: %w", err)
	}
	return nil
}

// Pipeline wires together the object detector and the text recognizer.
// It keeps no per-frame state and may be shared between goroutines when its
// components allow it.
type Pipeline struct {
	cfg        Config
	Detector   ObjectDetector
	Recognizer TextRecognizer
	trigger    Trigger
}

// New assembles a pipeline from ready components.
func New(cfg Config, det ObjectDetector, rec TextRecognizer) (*Pipeline, error) {
	if det == nil {
		return nil, errors.New("detector is nil")
	}
	if rec == nil {
		return nil, errors.New("recognizer is nil")
	}
	return &Pipeline{cfg: cfg, Detector: det, Recognizer: rec, trigger: NewTrigger(cfg.Trigger)}, nil
}

// Open loads both ONNX models named by cfg and optionally warms them up.
func Open(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	det, err := detector.NewDetector(cfg.Detector)
	if err != nil {
		return nil, fmt.Errorf("init detector: %w", err)
	}
	rec, err := recognizer.NewRecognizer(cfg.Recognizer)
	if err != nil {
		_ = det.Close()
		return nil, fmt.Errorf("init recognizer: %w", err)
	}

	if n := cfg.WarmupIterations; n > 0 {
		if err := det.Warmup(n); err != nil {
			err = fmt.Errorf("detector warmup failed: %w", err)
			return nil, errors.Join(err, det.Close(), rec.Close())
		}
		if err := rec.Warmup(n); err != nil {
			err = fmt.Errorf("recognizer warmup failed: %w", err)
			return nil, errors.Join(err, det.Close(), rec.Close())
		}
	}

	p, err := New(cfg, det, rec)
	if err != nil {
		return nil, err
	}
	slog.Info("Pipeline ready", "pipeline", p)
	return p, nil
}

// NewAggregator returns a video aggregator driven by this pipeline.
func (p *Pipeline) NewAggregator(opener video.Opener) *Aggregator {
	return NewAggregator(p, opener)
}

// Close releases both models. It is safe to call more than once.
func (p *Pipeline) Close() error {
	var errs []error
	if p.Recognizer != nil {
		errs = append(errs, p.Recognizer.Close())
		p.Recognizer = nil
	}
	if p.Detector != nil {
		errs = append(errs, p.Detector.Close())
		p.Detector = nil
	}
	return errors.Join(errs...)
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

type modelInfo interface {
	GetModelInfo() map[string]interface{}
}

// LogValue summarizes the trigger classes and loaded models for logging.
func (p *Pipeline) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("rider_class", p.cfg.Trigger.RiderClass),
		slog.Int("violation_class", p.cfg.Trigger.ViolationClass),
		slog.Bool("annotate", p.cfg.Annotate),
		slog.Int("max_workers", p.cfg.Parallel.MaxWorkers),
	}
	if d, ok := p.Detector.(modelInfo); ok {
		attrs = append(attrs, slog.Any("detector", d.GetModelInfo()))
	}
	if r, ok := p.Recognizer.(modelInfo); ok {
		attrs = append(attrs, slog.Any("recognizer", r.GetModelInfo()))
	}
	return slog.GroupValue(attrs...)
}
