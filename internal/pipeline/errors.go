package pipeline

import (
	"fmt"
	"image"
)

// SourceOpenError reports a video that could not be opened.
type SourceOpenError struct {
	Path string
	Err  error
}

func (e *SourceOpenError) Error() string {
	return fmt.Sprintf("open video %s: %v", e.Path, e.Err)
}

func (e *SourceOpenError) Unwrap() error { return e.Err }

// SourceReadError reports a frame that could not be decoded. Frame is the
// zero-based index of the frame that failed.
type SourceReadError struct {
	Path  string
	Frame int
	Err   error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("read frame %d of %s: %v", e.Frame, e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// RecognitionFailure records a region whose text could not be read. It is
// recovered inside the frame and never aborts processing.
type RecognitionFailure struct {
	Index int             `json:"index"`
	Box   image.Rectangle `json:"box"`
	Err   error           `json:"-"`
}

func (f RecognitionFailure) Error() string {
	return fmt.Sprintf("recognition failed for detection %d at %v: %v", f.Index, f.Box, f.Err)
}

func (f RecognitionFailure) Unwrap() error { return f.Err }
