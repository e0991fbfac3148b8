package pipeline

import "github.com/MeKo-Tech/platewatch/internal/detector"

// Detector class ids.
const (
	ClassRider     = 0
	ClassViolation = 2
)

// TriggerConfig names the classes the trigger works with.
type TriggerConfig struct {
	RiderClass     int `json:"rider_class" yaml:"rider_class"`
	ViolationClass int `json:"violation_class" yaml:"violation_class"`
}

// DefaultTriggerConfig returns the conventional class ids.
func DefaultTriggerConfig() TriggerConfig {
	return TriggerConfig{RiderClass: ClassRider, ViolationClass: ClassViolation}
}

// Trigger decides which detections get their text read. The condition is
// frame-wide: a rider qualifies whenever any violation indicator appears
// anywhere in the same frame, regardless of position or confidence.
type Trigger struct {
	cfg TriggerConfig
}

// NewTrigger returns a trigger for the given classes.
func NewTrigger(cfg TriggerConfig) Trigger { return Trigger{cfg: cfg} }

// ShouldExtract reports whether det qualifies given all detections of its frame.
func (t Trigger) ShouldExtract(det detector.Detection, all []detector.Detection) bool {
	return det.ClassID == t.cfg.RiderClass && t.hasViolation(all)
}

// Qualifying returns the indices of qualifying detections in detector order.
func (t Trigger) Qualifying(all []detector.Detection) []int {
	if !t.hasViolation(all) {
		return nil
	}
	var out []int
	for i, d := range all {
		if d.ClassID == t.cfg.RiderClass {
			out = append(out, i)
		}
	}
	return out
}

func (t Trigger) hasViolation(all []detector.Detection) bool {
	for _, d := range all {
		if d.ClassID == t.cfg.ViolationClass {
			return true
		}
	}
	return false
}
