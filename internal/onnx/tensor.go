package onnx

import (
	"errors"
	"fmt"
)

// Tensor is a row-major float32 input. Images use [1, C, H, W].
type Tensor struct {
	Data  []float32
	Shape []int64
}

// NewImageTensor wraps planar CHW pixel data as a batch of one.
func NewImageTensor(data []float32, c, h, w int) (Tensor, error) {
	if data == nil {
		return Tensor{}, errors.New("nil data")
	}
	if n := c * h * w; len(data) != n {
		return Tensor{}, fmt.Errorf("unexpected data length: got %d, want %d", len(data), n)
	}
	return Tensor{Data: data, Shape: []int64{1, int64(c), int64(h), int64(w)}}, nil
}

// checkShape rejects shapes the model cannot accept. Declared dimensions
// of -1 (dynamic axes) match any positive size.
func checkShape(shape, declared []int64) error {
	if len(declared) > 0 && len(shape) != len(declared) {
		return fmt.Errorf("input rank %d, model expects %d", len(shape), len(declared))
	}
	for i, v := range shape {
		if v <= 0 {
			return fmt.Errorf("input dimension %d must be > 0, got %d", i, v)
		}
		if i < len(declared) && declared[i] > 0 && declared[i] != v {
			return fmt.Errorf("input dimension %d is %d, model expects %d", i, v, declared[i])
		}
	}
	return nil
}
