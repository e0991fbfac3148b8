package onnx

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/yalue/onnxruntime_go"
)

// GPUConfig holds configuration for GPU acceleration using CUDA.
type GPUConfig struct {
	UseGPU              bool   // Enable GPU acceleration
	DeviceID            int    // CUDA device ID (default: 0)
	GPUMemLimit         uint64 // GPU memory limit in bytes (0 = unlimited)
	ArenaExtendStrategy string // "kNextPowerOfTwo" or "kSameAsRequested"
}

// DefaultGPUConfig returns a CPU-only configuration.
func DefaultGPUConfig() GPUConfig {
	return GPUConfig{
		UseGPU:              false,
		DeviceID:            0,
		GPUMemLimit:         0,
		ArenaExtendStrategy: "kNextPowerOfTwo",
	}
}

// ValidateGPUConfig checks if the GPU configuration is valid.
func ValidateGPUConfig(config GPUConfig) error {
	if !config.UseGPU {
		return nil
	}
	if config.DeviceID < 0 {
		return fmt.Errorf("device ID must be non-negative, got %d", config.DeviceID)
	}
	switch config.ArenaExtendStrategy {
	case "", "kNextPowerOfTwo", "kSameAsRequested":
	default:
		return fmt.Errorf("invalid arena extend strategy: %s (must be 'kNextPowerOfTwo' or "+
			"'kSameAsRequested')", config.ArenaExtendStrategy)
	}
	return nil
}

// cudaSettings renders the provider options map handed to onnxruntime.
func cudaSettings(gpu GPUConfig) map[string]string {
	settings := map[string]string{
		"device_id":                 strconv.Itoa(gpu.DeviceID),
		"do_copy_in_default_stream": "1",
	}
	if gpu.GPUMemLimit > 0 {
		settings["gpu_mem_limit"] = strconv.FormatUint(gpu.GPUMemLimit, 10)
	}
	if gpu.ArenaExtendStrategy != "" {
		settings["arena_extend_strategy"] = gpu.ArenaExtendStrategy
	}
	return settings
}

// ConfigureSessionForGPU appends the CUDA execution provider to the session
// options. It is a no-op when GPU use is disabled.
func ConfigureSessionForGPU(sessionOptions *onnxruntime_go.SessionOptions, gpu GPUConfig) error {
	if !gpu.UseGPU {
		return nil
	}

	cudaOpts, err := onnxruntime_go.NewCUDAProviderOptions()
	if err != nil {
		return fmt.Errorf("failed to create CUDA provider options (GPU may not be available): %w", err)
	}
	defer func() {
		if destroyErr := cudaOpts.Destroy(); destroyErr != nil {
			slog.Warn("failed to destroy CUDA provider options", "error", destroyErr)
		}
	}()

	if err := cudaOpts.Update(cudaSettings(gpu)); err != nil {
		return fmt.Errorf("failed to update CUDA provider options: %w", err)
	}
	if err := sessionOptions.AppendExecutionProviderCUDA(cudaOpts); err != nil {
		return fmt.Errorf("failed to append CUDA execution provider: %w", err)
	}
	return nil
}
