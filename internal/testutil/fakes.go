// Package testutil holds fakes and synthetic frames shared by tests.
package testutil

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"sync/atomic"

	"github.com/MeKo-Tech/platewatch/internal/detector"
	"github.com/MeKo-Tech/platewatch/internal/recognizer"
	"github.com/MeKo-Tech/platewatch/internal/video"
)

// Rider returns a class 0 detection covering the given detector-space box.
func Rider(x1, y1, x2, y2 float64) detector.Detection {
	return detector.Detection{ClassID: 0, Confidence: 0.9, Box: detector.Box{X1: x1, Y1: y1, X2: x2, Y2: y2}}
}

// Violation returns a class 2 detection at a fixed spot.
func Violation() detector.Detection {
	return detector.Detection{ClassID: 2, Confidence: 0.8, Box: detector.Box{X1: 10, Y1: 10, X2: 60, Y2: 60}}
}

// FakeDetector returns scripted detections. Frames[i] answers the i-th
// call; calls past the script answer nothing. Err, when set, fails every call.
type FakeDetector struct {
	Size   image.Point
	Frames [][]detector.Detection
	Err    error

	mu     sync.Mutex
	calls  int
	inputs []image.Point
	closed int
}

// NewFakeDetector scripts one detection list per call at 640x640.
func NewFakeDetector(frames ...[]detector.Detection) *FakeDetector {
	return &FakeDetector{Size: image.Pt(640, 640), Frames: frames}
}

func (d *FakeDetector) Detect(img image.Image) ([]detector.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	call := d.calls
	d.calls++
	d.inputs = append(d.inputs, img.Bounds().Size())
	if d.Err != nil {
		return nil, d.Err
	}
	if call >= len(d.Frames) {
		return nil, nil
	}
	return append([]detector.Detection(nil), d.Frames[call]...), nil
}

func (d *FakeDetector) InputSize() image.Point {
	if d.Size == (image.Point{}) {
		return image.Pt(640, 640)
	}
	return d.Size
}

func (d *FakeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

// Calls returns the number of Detect calls.
func (d *FakeDetector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Inputs returns the size of every image passed to Detect.
func (d *FakeDetector) Inputs() []image.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]image.Point(nil), d.inputs...)
}

// Reply is one scripted recognizer answer.
type Reply struct {
	Fragments []recognizer.Fragment
	Err       error
}

// Text is a reply made of the given fragments.
func Text(fragments ...string) Reply {
	r := Reply{}
	for _, f := range fragments {
		r.Fragments = append(r.Fragments, recognizer.Fragment{Text: f, Confidence: 0.99})
	}
	return r
}

// Fail is a reply that errors.
func Fail(msg string) Reply { return Reply{Err: errors.New(msg)} }

// FakeRecognizer answers calls from a script, in call order. Calls past
// the script return no fragments.
type FakeRecognizer struct {
	Replies []Reply

	mu      sync.Mutex
	calls   int
	regions []image.Rectangle
}

// NewFakeRecognizer scripts one reply per call.
func NewFakeRecognizer(replies ...Reply) *FakeRecognizer {
	return &FakeRecognizer{Replies: replies}
}

func (r *FakeRecognizer) Recognize(img image.Image) ([]recognizer.Fragment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	call := r.calls
	r.calls++
	r.regions = append(r.regions, img.Bounds())
	if call >= len(r.Replies) {
		return nil, nil
	}
	reply := r.Replies[call]
	return reply.Fragments, reply.Err
}

func (r *FakeRecognizer) Close() error { return nil }

// Calls returns the number of Recognize calls.
func (r *FakeRecognizer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Regions returns the bounds of every region passed to Recognize.
func (r *FakeRecognizer) Regions() []image.Rectangle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]image.Rectangle(nil), r.regions...)
}

// FakeSource yields Frames in order, then io.EOF.
type FakeSource struct {
	Frames []image.Image
	// FailAt is the 1-based read that returns Err instead of a frame; 0 never fails.
	FailAt int
	Err    error

	// OnNext runs before every read with the index about to be read.
	OnNext func(idx int)

	next   int
	closes atomic.Int32
}

// NewFakeSource returns a source yielding n gradient frames of the given size.
func NewFakeSource(n, width, height int) *FakeSource {
	s := &FakeSource{}
	for range n {
		s.Frames = append(s.Frames, GradientFrame(width, height))
	}
	return s
}

func (s *FakeSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := s.next
	if s.OnNext != nil {
		s.OnNext(idx)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if s.FailAt > 0 && idx == s.FailAt-1 {
		return nil, s.Err
	}
	if idx >= len(s.Frames) {
		return nil, io.EOF
	}
	s.next++
	return s.Frames[idx], nil
}

func (s *FakeSource) Close() error {
	s.closes.Add(1)
	return nil
}

// Closes returns how many times Close was called.
func (s *FakeSource) Closes() int { return int(s.closes.Load()) }

// Reads returns the number of frames handed out.
func (s *FakeSource) Reads() int { return s.next }

// FakeOpener hands out Source, or fails with Err.
type FakeOpener struct {
	Source video.Source
	Err    error
	Opened []string
}

func (o *FakeOpener) Open(_ context.Context, path string) (video.Source, error) {
	o.Opened = append(o.Opened, path)
	if o.Err != nil {
		return nil, o.Err
	}
	return o.Source, nil
}
