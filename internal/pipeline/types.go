package pipeline

import (
	"image"

	"github.com/MeKo-Tech/platewatch/internal/detector"
	"github.com/MeKo-Tech/platewatch/internal/recognizer"
)

// ObjectDetector finds riders, plates and violation indicators in an image
// already sized to InputSize.
type ObjectDetector interface {
	Detect(img image.Image) ([]detector.Detection, error)
	InputSize() image.Point
	Close() error
}

// TextRecognizer reads the text fragments of a cropped region.
type TextRecognizer interface {
	Recognize(img image.Image) ([]recognizer.Fragment, error)
	Close() error
}

// FrameResult is the outcome of one processed frame.
type FrameResult struct {
	// Image is an annotated copy of the input frame.
	Image      *image.RGBA          `json:"-"`
	Width      int                  `json:"width"`
	Height     int                  `json:"height"`
	Readings   []string             `json:"readings"`
	Detections []detector.Detection `json:"detections"`
	Failures   []RecognitionFailure `json:"failures,omitempty"`
	Processing struct {
		DetectionNs   int64 `json:"detection_ns"`
		RecognitionNs int64 `json:"recognition_ns"`
		TotalNs       int64 `json:"total_ns"`
	} `json:"processing"`
}

// VideoResult is the aggregated outcome of a whole video.
type VideoResult struct {
	Source          string `json:"source" yaml:"source"`
	FramesProcessed int    `json:"frames_processed" yaml:"frames_processed"`
	// UniqueReadings holds every distinct reading, sorted.
	UniqueReadings []string `json:"plate_numbers" yaml:"plate_numbers"`
	// Counts is the number of frames each reading appeared in.
	Counts map[string]int `json:"counts" yaml:"counts"`
	// FirstSeen is the zero-based frame index of each reading's first sighting.
	FirstSeen  map[string]int `json:"first_seen" yaml:"first_seen"`
	Failures   int            `json:"recognition_failures" yaml:"recognition_failures"`
	Processing struct {
		TotalNs int64 `json:"total_ns" yaml:"total_ns"`
	} `json:"processing" yaml:"processing"`
}

// FrameEvent is passed to a FrameHook after each frame.
type FrameEvent struct {
	Index       int
	Result      *FrameResult
	UniqueSoFar int
}

// FrameHook observes processed frames.
type FrameHook func(FrameEvent)
