package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/yalue/onnxruntime_go"
)

// EnvLibraryPath overrides the ONNX Runtime shared library location.
const EnvLibraryPath = "PLATEWATCH_ONNXRUNTIME_LIB"

var initMu sync.Mutex

// libraryName returns the ONNX Runtime library filename for goos.
func libraryName(goos string) (string, error) {
	switch goos {
	case "linux":
		return "libonnxruntime.so", nil
	case "darwin":
		return "libonnxruntime.dylib", nil
	case "windows":
		return "onnxruntime.dll", nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", goos)
	}
}

// candidateLibraryPaths lists where the shared library is looked for, in
// order: the environment override, GPU builds when requested, system
// locations, then an onnxruntime/ directory under the project root.
func candidateLibraryPaths(useGPU bool, projectRoot, libName string) []string {
	var paths []string
	if env := os.Getenv(EnvLibraryPath); env != "" {
		paths = append(paths, env)
	}
	if useGPU {
		paths = append(paths, filepath.Join("/opt/onnxruntime/gpu/lib", libName))
	}
	paths = append(paths,
		filepath.Join("/usr/local/lib", libName),
		filepath.Join("/usr/lib", libName),
		filepath.Join("/opt/onnxruntime/cpu/lib", libName),
	)
	if projectRoot != "" {
		if useGPU {
			paths = append(paths, filepath.Join(projectRoot, "onnxruntime", "gpu", "lib", libName))
		}
		paths = append(paths, filepath.Join(projectRoot, "onnxruntime", "lib", libName))
	}
	return paths
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// SetONNXLibraryPath points onnxruntime_go at the first shared library found.
func SetONNXLibraryPath(useGPU bool) error {
	libName, err := libraryName(runtime.GOOS)
	if err != nil {
		return err
	}
	for _, p := range candidateLibraryPaths(useGPU, findProjectRoot(), libName) {
		if _, err := os.Stat(p); err == nil {
			onnxruntime_go.SetSharedLibraryPath(p)
			return nil
		}
	}
	return errors.New("ONNX Runtime library not found; set " + EnvLibraryPath)
}

// InitRuntime locates the shared library and initializes the ONNX Runtime
// environment once per process. Safe for concurrent use.
func InitRuntime(useGPU bool) error {
	initMu.Lock()
	defer initMu.Unlock()
	if onnxruntime_go.IsInitialized() {
		return nil
	}
	if err := SetONNXLibraryPath(useGPU); err != nil {
		return fmt.Errorf("failed to set ONNX Runtime library path: %w", err)
	}
	if err := onnxruntime_go.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}
	return nil
}
