package detector

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/platewatch/internal/mempool"
	"github.com/MeKo-Tech/platewatch/internal/onnx"
	"github.com/MeKo-Tech/platewatch/internal/utils"
)

// Detector runs a YOLO-style object detection model with ONNX Runtime.
// It is safe for concurrent use.
type Detector struct {
	config  Config
	session *onnx.Session
}

// NewDetector loads the model described by config.
func NewDetector(config Config) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("Initializing detector",
		"model_path", config.ModelPath,
		"gpu_enabled", config.GPU.UseGPU,
		"conf_threshold", config.ConfThreshold,
		"nms_threshold", config.NMSThreshold)

	session, err := onnx.NewSession(onnx.SessionConfig{
		ModelPath:  config.ModelPath,
		NumThreads: config.NumThreads,
		GPU:        config.GPU,
	})
	if err != nil {
		return nil, err
	}

	// fixed model dimensions win over the configured ones
	if in := session.InputShape(); len(in) == 4 && in[2] > 0 && in[3] > 0 {
		h, w := int(in[2]), int(in[3])
		if h != config.InputHeight || w != config.InputWidth {
			slog.Warn("Model input size differs from configuration, using model size",
				"configured", fmt.Sprintf("%dx%d", config.InputWidth, config.InputHeight),
				"model", fmt.Sprintf("%dx%d", w, h))
			config.InputWidth, config.InputHeight = w, h
		}
	}

	slog.Debug("Detector initialized successfully")
	return &Detector{config: config, session: session}, nil
}

// InputSize returns the resolution detections are expressed in.
func (d *Detector) InputSize() image.Point {
	return image.Pt(d.config.InputWidth, d.config.InputHeight)
}

// Detect runs the model on img and returns detections in input pixel
// coordinates. img should already be at InputSize; other sizes are stretched.
func (d *Detector) Detect(img image.Image) ([]Detection, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	if d.session == nil {
		return nil, onnx.ErrSessionClosed
	}

	t0 := time.Now()
	tensor, buf, err := d.preprocess(img)
	if err != nil {
		return nil, err
	}
	defer mempool.PutFloat32(buf)
	preNs := time.Since(t0).Nanoseconds()

	t1 := time.Now()
	data, shape, err := d.session.Run(tensor)
	if err != nil {
		return nil, err
	}
	modelNs := time.Since(t1).Nanoseconds()

	t2 := time.Now()
	dets, err := DecodeOutput(data, shape, d.config)
	if err != nil {
		return nil, fmt.Errorf("decode detector output: %w", err)
	}

	slog.Debug("Object detection completed",
		"detections", len(dets),
		"preprocess_ns", preNs,
		"model_ns", modelNs,
		"postprocess_ns", time.Since(t2).Nanoseconds())
	return dets, nil
}

// preprocess stretches img to the input size and normalizes it into a
// pooled NCHW buffer that the caller must return to mempool.
func (d *Detector) preprocess(img image.Image) (onnx.Tensor, []float32, error) {
	w, h := d.config.InputWidth, d.config.InputHeight
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		resized, err := utils.ResizeExact(img, w, h)
		if err != nil {
			return onnx.Tensor{}, nil, err
		}
		img = resized
	}
	// NormalizeImageIntoBuffer may grow the buffer; the slice it returns is
	// the one backing the tensor and the one to hand back.
	buf := mempool.GetFloat32(3 * w * h)
	data, _, _, err := utils.NormalizeImageIntoBuffer(img, buf)
	if err != nil {
		mempool.PutFloat32(buf)
		return onnx.Tensor{}, nil, err
	}
	tensor, err := onnx.NewImageTensor(data, 3, h, w)
	if err != nil {
		mempool.PutFloat32(data)
		return onnx.Tensor{}, nil, err
	}
	return tensor, data, nil
}

// GetConfig returns the detector configuration.
func (d *Detector) GetConfig() Config { return d.config }

// GetModelInfo returns information about the loaded model.
func (d *Detector) GetModelInfo() map[string]interface{} {
	info := map[string]interface{}{
		"model_path":     d.config.ModelPath,
		"input_width":    d.config.InputWidth,
		"input_height":   d.config.InputHeight,
		"conf_threshold": d.config.ConfThreshold,
		"nms_threshold":  d.config.NMSThreshold,
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
