// Package orientation classifies whether a text line reads upright or
// upside down, and turns it upright.
package orientation

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/platewatch/internal/mempool"
	"github.com/MeKo-Tech/platewatch/internal/models"
	"github.com/MeKo-Tech/platewatch/internal/onnx"
	"github.com/MeKo-Tech/platewatch/internal/utils"
	"github.com/disintegration/imaging"
)

// Config controls text line orientation classification.
type Config struct {
	ModelPath           string
	ConfidenceThreshold float64 // below this the line is left as is
	ImageHeight         int     // model input height (default: 80)
	ImageWidth          int     // model input width (default: 160)
	NumThreads          int
	GPU                 onnx.GPUConfig
}

// DefaultTextLineConfig returns defaults for the lightweight text line
// orientation model.
func DefaultTextLineConfig() Config {
	return Config{
		ModelPath:           models.GetLineOrientationModelPath(""),
		ConfidenceThreshold: 0.9,
		ImageHeight:         80,
		ImageWidth:          160,
		GPU:                 onnx.DefaultGPUConfig(),
	}
}

// UpdateModelPath resolves the model inside modelsDir.
func (c *Config) UpdateModelPath(modelsDir string) {
	c.ModelPath = models.GetLineOrientationModelPath(modelsDir)
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path cannot be empty")
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be in [0,1], got %f", c.ConfidenceThreshold)
	}
	return nil
}

// Result is the predicted orientation of one text line.
type Result struct {
	Angle      int     // 0 or 180; four-way models may also yield 90 or 270
	Confidence float64 // probability of Angle
}

// Classifier predicts text line orientation with an ONNX model. It is safe
// for concurrent use.
type Classifier struct {
	cfg     Config
	session *onnx.Session
	inH     int
	inW     int
}

// NewClassifier loads the model described by cfg. Fixed input dimensions
// declared by the model take precedence over the configured size.
func NewClassifier(cfg Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	session, err := onnx.NewSession(onnx.SessionConfig{
		ModelPath:  cfg.ModelPath,
		NumThreads: cfg.NumThreads,
		GPU:        cfg.GPU,
	})
	if err != nil {
		return nil, err
	}

	c := &Classifier{cfg: cfg, session: session, inH: cfg.ImageHeight, inW: cfg.ImageWidth}
	if in := session.InputShape(); len(in) == 4 {
		if in[2] > 0 {
			c.inH = int(in[2])
		}
		if in[3] > 0 {
			c.inW = int(in[3])
		}
	}
	slog.Debug("Initialized line orientation classifier",
		"model_path", cfg.ModelPath,
		"input_height", c.inH,
		"input_width", c.inW)
	return c, nil
}

// Predict classifies img. Predictions below the confidence threshold come
// back as angle 0 with their confidence.
func (c *Classifier) Predict(img image.Image) (Result, error) {
	if img == nil {
		return Result{}, errors.New("nil image")
	}
	if c.session == nil {
		return Result{}, onnx.ErrSessionClosed
	}

	tensor, buf, err := c.prepare(img)
	if err != nil {
		return Result{}, err
	}
	defer mempool.PutFloat32(buf)

	out, shape, err := c.session.Run(tensor)
	if err != nil {
		return Result{}, err
	}
	if len(shape) != 2 || shape[0] < 1 || int(shape[1]) > len(out) {
		return Result{}, fmt.Errorf("unexpected output shape %v", shape)
	}
	res, err := fromScores(out[:shape[1]])
	if err != nil {
		return Result{}, err
	}
	if res.Confidence < c.cfg.ConfidenceThreshold {
		res.Angle = 0
	}
	return res, nil
}

// prepare resizes img to the model height keeping its aspect ratio, pads it
// on the right to the model width and scales pixels to [-1, 1].
func (c *Classifier) prepare(img image.Image) (onnx.Tensor, []float32, error) {
	b := img.Bounds()
	if b.Empty() {
		return onnx.Tensor{}, nil, errors.New("empty image")
	}
	w := int(math.Ceil(float64(c.inH) * float64(b.Dx()) / float64(b.Dy())))
	w = min(max(w, 1), c.inW)
	line := imaging.Resize(img, w, c.inH, imaging.Linear)
	padded := imaging.Paste(imaging.New(c.inW, c.inH, color.Black), line, image.Point{})

	buf := mempool.GetFloat32(3 * c.inW * c.inH)
	data, _, _, err := utils.NormalizeImageIntoBuffer(padded, buf)
	if err != nil {
		mempool.PutFloat32(buf)
		return onnx.Tensor{}, nil, err
	}
	for i, v := range data {
		data[i] = (v - 0.5) / 0.5
	}
	tensor, err := onnx.NewImageTensor(data, 3, c.inH, c.inW)
	if err != nil {
		mempool.PutFloat32(data)
		return onnx.Tensor{}, nil, err
	}
	return tensor, data, nil
}

// fromScores picks the most likely class. Two classes mean {0, 180}, four
// mean {0, 90, 180, 270}. Scores that are not already a probability
// distribution are passed through softmax.
func fromScores(scores []float32) (Result, error) {
	var angles []int
	switch len(scores) {
	case 2:
		angles = []int{0, 180}
	case 4:
		angles = []int{0, 90, 180, 270}
	default:
		return Result{}, fmt.Errorf("expected 2 or 4 classes, got %d", len(scores))
	}

	probs := make([]float64, len(scores))
	var sum float64
	isDist := true
	for i, s := range scores {
		probs[i] = float64(s)
		sum += probs[i]
		if s < 0 || s > 1 {
			isDist = false
		}
	}
	if !isDist || math.Abs(sum-1) > 1e-3 {
		probs = softmax(probs)
	}

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return Result{Angle: angles[best], Confidence: probs[best]}, nil
}

func softmax(logits []float64) []float64 {
	m := logits[0]
	for _, v := range logits[1:] {
		m = max(m, v)
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - m)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Rotate turns img by the angle a prediction reported so that the text
// reads upright. Unknown angles return img unchanged.
func Rotate(img image.Image, angle int) image.Image {
	switch angle {
	case 90:
		return imaging.Rotate90(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate270(img)
	default:
		return img
	}
}

// Warmup runs forward passes on a blank line.
func (c *Classifier) Warmup(iterations int) error {
	blank := image.NewRGBA(image.Rect(0, 0, c.inW, c.inH))
	for i := range iterations {
		if _, err := c.Predict(blank); err != nil {
			return fmt.Errorf("warmup iteration %d: %w", i+1, err)
		}
	}
	return nil
}

// GetModelInfo returns information about the loaded model.
func (c *Classifier) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"model_path":           c.cfg.ModelPath,
		"input_height":         c.inH,
		"input_width":          c.inW,
		"confidence_threshold": c.cfg.ConfidenceThreshold,
	}
}

// Close releases the ONNX session.
func (c *Classifier) Close() error {
	if c.session == nil {
		return nil
	}
	return c.session.Close()
}
