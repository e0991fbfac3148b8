package onnx

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/yalue/onnxruntime_go"
)

// SessionConfig describes how an inference session is created.
type SessionConfig struct {
	ModelPath  string
	NumThreads int // 0 lets onnxruntime decide
	GPU        GPUConfig
}

// Session wraps a model with exactly one input and one output tensor.
// Run may be called concurrently; Close waits for running inferences.
type Session struct {
	mu     sync.RWMutex
	sess   *onnxruntime_go.DynamicAdvancedSession
	input  onnxruntime_go.InputOutputInfo
	output onnxruntime_go.InputOutputInfo
}

// ErrSessionClosed is returned by Run after Close.
var ErrSessionClosed = errors.New("onnx session is closed")

// inspectModel reads and checks the model's input/output description.
func inspectModel(modelPath string) (onnxruntime_go.InputOutputInfo, onnxruntime_go.InputOutputInfo, error) {
	var none onnxruntime_go.InputOutputInfo
	inputs, outputs, err := onnxruntime_go.GetInputOutputInfo(modelPath)
	if err != nil {
		return none, none, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) != 1 {
		return none, none, fmt.Errorf("expected 1 input, got %d", len(inputs))
	}
	if len(outputs) != 1 {
		return none, none, fmt.Errorf("expected 1 output, got %d", len(outputs))
	}
	if len(inputs[0].Dimensions) != 4 {
		return none, none, fmt.Errorf("expected 4D input tensor, got %dD", len(inputs[0].Dimensions))
	}
	return inputs[0], outputs[0], nil
}

// NewSession initializes the runtime if needed and loads the model.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("model path cannot be empty")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s: %w", cfg.ModelPath, err)
	}
	if err := ValidateGPUConfig(cfg.GPU); err != nil {
		return nil, fmt.Errorf("invalid GPU config: %w", err)
	}
	if err := InitRuntime(cfg.GPU.UseGPU); err != nil {
		return nil, err
	}

	in, out, err := inspectModel(cfg.ModelPath)
	if err != nil {
		return nil, err
	}

	opts, err := onnxruntime_go.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		if err := opts.Destroy(); err != nil {
			slog.Warn("failed to destroy session options", "error", err)
		}
	}()

	if err := ConfigureSessionForGPU(opts, cfg.GPU); err != nil {
		return nil, fmt.Errorf("failed to configure GPU: %w", err)
	}
	if cfg.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	sess, err := onnxruntime_go.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{in.Name}, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	slog.Debug("onnx session created",
		"model", cfg.ModelPath,
		"input", in.Name, "input_shape", in.Dimensions,
		"output", out.Name, "output_shape", out.Dimensions,
		"gpu", cfg.GPU.UseGPU)

	return &Session{sess: sess, input: in, output: out}, nil
}

// Run feeds t to the model and returns a copy of the float32 output.
func (s *Session) Run(t Tensor) ([]float32, []int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sess == nil {
		return nil, nil, ErrSessionClosed
	}
	if err := checkShape(t.Shape, s.input.Dimensions); err != nil {
		return nil, nil, err
	}

	inputTensor, err := onnxruntime_go.NewTensor(onnxruntime_go.NewShape(t.Shape...), t.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer func() { _ = inputTensor.Destroy() }()

	outputs := []onnxruntime_go.Value{nil}
	if err := s.sess.Run([]onnxruntime_go.Value{inputTensor}, outputs); err != nil {
		return nil, nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		if outputs[0] != nil {
			_ = outputs[0].Destroy()
		}
	}()

	ft, ok := outputs[0].(*onnxruntime_go.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("expected float32 tensor, got %T", outputs[0])
	}
	data := append([]float32(nil), ft.GetData()...)
	shape := append([]int64(nil), ft.GetShape()...)
	return data, shape, nil
}

// InputShape returns the declared input dimensions (-1 for dynamic axes).
func (s *Session) InputShape() []int64 { return s.input.Dimensions }

// OutputShape returns the declared output dimensions.
func (s *Session) OutputShape() []int64 { return s.output.Dimensions }

// Close releases the underlying session. Calling Close twice is safe.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return nil
	}
	err := s.sess.Destroy()
	s.sess = nil
	return err
}
