package recognizer

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/MeKo-Tech/platewatch/internal/mempool"
	"github.com/MeKo-Tech/platewatch/internal/models"
	"github.com/MeKo-Tech/platewatch/internal/onnx"
	"github.com/MeKo-Tech/platewatch/internal/orientation"
	"github.com/MeKo-Tech/platewatch/internal/textdet"
	"github.com/MeKo-Tech/platewatch/internal/utils"
)

// Config holds configuration for the text recognizer.
type Config struct {
	ModelPath        string         // Path to ONNX recognition model
	DictPath         string         // Path to the character dictionary
	UseSpaceChar     bool           // Model has an extra trailing space class
	ImageHeight      int            // Input height (default: 48)
	MaxWidth         int            // Clamp resized width (default: 320)
	PadWidthMultiple int            // Pad width to a multiple (default: 8)
	MinConfidence    float64        // Drop fragments below this confidence
	SplitLines       bool           // Without text detection, recognize two-row plates row by row
	MultiLineAspect  float64        // height/width above which a crop has two rows (default: 0.5)
	NumThreads       int            // Number of CPU threads (default: 0 for auto)
	GPU              onnx.GPUConfig // GPU acceleration configuration
	Clean            CleanOptions   // Text normalization

	DetectText  bool               // Locate text lines with a DB model before reading them
	Detection   textdet.Config     // Text line detector
	UseAngleCls bool               // Turn upside-down lines upright before reading them
	Orientation orientation.Config // Line orientation classifier
}

// DefaultConfig returns a default recognizer configuration.
func DefaultConfig() Config {
	return Config{
		ModelPath:        models.GetRecognitionModelPath(""),
		DictPath:         models.GetDictionaryPath(""),
		UseSpaceChar:     true,
		ImageHeight:      48,
		MaxWidth:         320,
		PadWidthMultiple: 8,
		MinConfidence:    0,
		SplitLines:       true,
		MultiLineAspect:  0.5,
		GPU:              onnx.DefaultGPUConfig(),
		Clean:            DefaultCleanOptions(),
		DetectText:       true,
		Detection:        textdet.DefaultConfig(),
		UseAngleCls:      true,
		Orientation:      orientation.DefaultTextLineConfig(),
	}
}

// UpdateModelPath resolves every model and the dictionary inside modelsDir.
func (c *Config) UpdateModelPath(modelsDir string) {
	c.ModelPath = models.GetRecognitionModelPath(modelsDir)
	c.DictPath = models.GetDictionaryPath(modelsDir)
	c.Detection.UpdateModelPath(modelsDir)
	c.Orientation.UpdateModelPath(modelsDir)
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path cannot be empty")
	}
	if c.DictPath == "" {
		return errors.New("dictionary path cannot be empty")
	}
	if c.ImageHeight <= 0 {
		return fmt.Errorf("image height must be positive, got %d", c.ImageHeight)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be in [0,1], got %f", c.MinConfidence)
	}
	if c.DetectText {
		if err := c.Detection.Validate(); err != nil {
			return fmt.Errorf("text detection: %w", err)
		}
	}
	if c.UseAngleCls {
		if err := c.Orientation.Validate(); err != nil {
			return fmt.Errorf("angle classifier: %w", err)
		}
	}
	return nil
}

// Fragment is one piece of recognized text, in reading order.
type Fragment struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// regionFinder locates text lines inside a crop.
type regionFinder interface {
	DetectRegions(img image.Image) ([]textdet.Region, error)
	Close() error
}

// lineOrienter tells how far a text line is turned from upright.
type lineOrienter interface {
	Predict(img image.Image) (orientation.Result, error)
	Close() error
}

// Recognizer reads plate text: optionally locating text lines, turning them
// upright, then decoding each with a CTC recognition model.
// It is safe for concurrent use.
type Recognizer struct {
	config   Config
	session  *onnx.Session
	charset  *Charset
	regions  regionFinder
	orienter lineOrienter
}

// NewRecognizer loads the dictionary and model described by config.
func NewRecognizer(config Config) (*Recognizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	charset, err := LoadCharset(config.DictPath, config.UseSpaceChar)
	if err != nil {
		return nil, err
	}

	slog.Debug("Initializing recognizer",
		"model_path", config.ModelPath,
		"dict_path", config.DictPath,
		"charset_size", charset.Size(),
		"gpu_enabled", config.GPU.UseGPU)

	session, err := onnx.NewSession(onnx.SessionConfig{
		ModelPath:  config.ModelPath,
		NumThreads: config.NumThreads,
		GPU:        config.GPU,
	})
	if err != nil {
		return nil, err
	}
	if in := session.InputShape(); len(in) == 4 && in[2] > 0 && int(in[2]) != config.ImageHeight {
		slog.Debug("Using model input height", "configured", config.ImageHeight, "model", in[2])
		config.ImageHeight = int(in[2])
	}
	r := &Recognizer{config: config, session: session, charset: charset}

	if config.DetectText {
		det, err := textdet.NewDetector(config.Detection)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("init text detector: %w", err), r.Close())
		}
		r.regions = det
	}
	if config.UseAngleCls {
		cls, err := orientation.NewClassifier(config.Orientation)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("init angle classifier: %w", err), r.Close())
		}
		r.orienter = cls
	}
	return r, nil
}

// Recognize reads the text in a cropped region and returns one fragment per
// text line, top to bottom and left to right. Empty readings are dropped,
// so a region without text returns no fragments and no error.
func (r *Recognizer) Recognize(img image.Image) ([]Fragment, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	if img.Bounds().Empty() {
		return nil, errors.New("input image is empty")
	}

	lines, err := r.textLines(img)
	if err != nil {
		return nil, err
	}

	fragments := make([]Fragment, 0, len(lines))
	for i, line := range lines {
		f, err := r.recognizeLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		if strings.TrimSpace(f.Text) == "" || f.Confidence < r.config.MinConfidence {
			continue
		}
		fragments = append(fragments, f)
	}
	return fragments, nil
}

// textLines cuts img into upright text line images in reading order. With
// text detection each detected region is one line; without it a tall crop
// is split into two rows when line splitting is enabled.
func (r *Recognizer) textLines(img image.Image) ([]image.Image, error) {
	var lines []image.Image
	switch {
	case r.regions != nil:
		regions, err := r.regions.DetectRegions(img)
		if err != nil {
			return nil, fmt.Errorf("text detection: %w", err)
		}
		textdet.SortReadingOrder(regions)
		for _, reg := range regions {
			lines = append(lines, utils.CropImageRect(img, reg.Box))
		}
	case r.config.SplitLines:
		lines = SplitLines(img, r.config.MultiLineAspect)
	default:
		lines = []image.Image{img}
	}

	if r.orienter == nil {
		return lines, nil
	}
	for i, line := range lines {
		res, err := r.orienter.Predict(line)
		if err != nil {
			slog.Debug("Line orientation failed", "line", i, "error", err)
			continue
		}
		if res.Angle != 0 {
			slog.Debug("Turning text line upright", "line", i, "angle", res.Angle, "confidence", res.Confidence)
			lines[i] = orientation.Rotate(line, res.Angle)
		}
	}
	return lines, nil
}

func (r *Recognizer) recognizeLine(img image.Image) (Fragment, error) {
	t0 := time.Now()
	resized, err := ResizeForRecognition(img, r.config.ImageHeight, r.config.MaxWidth, r.config.PadWidthMultiple)
	if err != nil {
		return Fragment{}, fmt.Errorf("resize: %w", err)
	}
	tensor, buf, err := normalizeForRecognition(resized)
	if err != nil {
		return Fragment{}, fmt.Errorf("normalize: %w", err)
	}
	defer mempool.PutFloat32(buf)

	t1 := time.Now()
	data, shape, err := r.session.Run(tensor)
	if err != nil {
		return Fragment{}, err
	}

	t2 := time.Now()
	f, err := r.decode(data, shape)
	if err != nil {
		return Fragment{}, err
	}
	slog.Debug("Recognized line",
		"text", f.Text,
		"confidence", f.Confidence,
		"preprocess_ns", t1.Sub(t0).Nanoseconds(),
		"model_ns", t2.Sub(t1).Nanoseconds(),
		"decode_ns", time.Since(t2).Nanoseconds())
	return f, nil
}

// decode maps a CTC output to text. Class 0 is the blank.
func (r *Recognizer) decode(data []float32, shape []int64) (Fragment, error) {
	seqs := DecodeCTCGreedy(data, shape, 0, isClassesFirst(shape, r.charset.Size()+1))
	if len(seqs) == 0 {
		return Fragment{}, fmt.Errorf("cannot decode output of shape %v", shape)
	}
	seq := seqs[0]

	var sb strings.Builder
	for _, idx := range seq.Collapsed {
		sb.WriteString(r.charset.LookupToken(idx - 1))
	}
	return Fragment{
		Text:       PostProcessText(sb.String(), r.config.Clean),
		Confidence: SequenceConfidence(seq.CollapsedProb),
	}, nil
}

type warmer interface {
	Warmup(iterations int) error
}

// Warmup runs forward passes of every loaded model on blank images.
func (r *Recognizer) Warmup(iterations int) error {
	for _, stage := range []any{r.regions, r.orienter} {
		if w, ok := stage.(warmer); ok {
			if err := w.Warmup(iterations); err != nil {
				return err
			}
		}
	}
	blank := image.NewRGBA(image.Rect(0, 0, r.config.ImageHeight*4, r.config.ImageHeight))
	for i := range iterations {
		if _, err := r.recognizeLine(blank); err != nil {
			return fmt.Errorf("warmup iteration %d: %w", i+1, err)
		}
	}
	return nil
}

// GetConfig returns the recognizer configuration.
func (r *Recognizer) GetConfig() Config { return r.config }

// GetModelInfo returns information about the loaded model.
func (r *Recognizer) GetModelInfo() map[string]interface{} {
	info := map[string]interface{}{
		"model_path":   r.config.ModelPath,
		"dict_path":    r.config.DictPath,
		"image_height": r.config.ImageHeight,
		"charset_size": r.charset.Size(),
	}
	if r.session != nil {
		info["input_shape"] = r.session.InputShape()
		info["output_shape"] = r.session.OutputShape()
	}
	if m, ok := r.regions.(interface{ GetModelInfo() map[string]interface{} }); ok {
		info["text_detector"] = m.GetModelInfo()
	}
	if m, ok := r.orienter.(interface{ GetModelInfo() map[string]interface{} }); ok {
		info["angle_classifier"] = m.GetModelInfo()
	}
	return info
}

// Close releases the ONNX sessions.
func (r *Recognizer) Close() error {
	var errs []error
	if r.orienter != nil {
		errs = append(errs, r.orienter.Close())
	}
	if r.regions != nil {
		errs = append(errs, r.regions.Close())
	}
	if r.session != nil {
		errs = append(errs, r.session.Close())
	}
	return errors.Join(errs...)
}
