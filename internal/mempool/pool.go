// Package mempool recycles the float32 tensor buffers that are allocated for
// every frame fed to the ONNX models.
package mempool

import (
	"sync"
)

// bucket granularity in elements
const step = 1024

var pools sync.Map // size class (int) -> *sync.Pool

// sizeClass rounds n up to the next multiple of step.
func sizeClass(n int) int {
	if n <= step {
		return step
	}
	return (n + step - 1) / step * step
}

func poolFor(cls int) *sync.Pool {
	p, _ := pools.LoadOrStore(cls, &sync.Pool{New: func() any {
		buf := make([]float32, cls)
		return &buf
	}})
	return p.(*sync.Pool) //nolint:forcetypeassert // only *sync.Pool values are stored
}

// GetFloat32 returns a buffer of length n. Its contents are unspecified.
// Return it with PutFloat32 once the tensor using it has been destroyed.
func GetFloat32(n int) []float32 {
	if n <= 0 {
		return nil
	}
	cls := sizeClass(n)
	bp, ok := poolFor(cls).Get().(*[]float32)
	if !ok || cap(*bp) < cls {
		return make([]float32, n, cls)
	}
	return (*bp)[:n]
}

// PutFloat32 hands a buffer back to its size class. Buffers whose capacity
// is not an exact class, such as ones not obtained from GetFloat32, are
// dropped. Passing nil is a no-op.
func PutFloat32(buf []float32) {
	c := cap(buf)
	if c == 0 || c != sizeClass(c) {
		return
	}
	buf = buf[:c]
	poolFor(c).Put(&buf)
}
