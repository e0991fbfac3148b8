package detector

import (
	"fmt"
	"image"
	"log/slog"
	"time"
)

// Warmup runs forward passes on a blank frame to reduce first-run latency.
func (d *Detector) Warmup(iterations int) error {
	if iterations <= 0 {
		return nil
	}
	blank := image.NewRGBA(image.Rect(0, 0, d.config.InputWidth, d.config.InputHeight))
	start := time.Now()
	for i := range iterations {
		if _, err := d.Detect(blank); err != nil {
			return fmt.Errorf("warmup iteration %d: %w", i+1, err)
		}
	}
	slog.Debug("Detector warmup completed", "iterations", iterations, "duration", time.Since(start))
	return nil
}
