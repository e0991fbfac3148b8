package pipeline

import (
	"image"
	"testing"

	"github.com/MeKo-Tech/platewatch/internal/detector"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestMapBox(t *testing.T) {
	det := image.Pt(640, 640)
	tests := []struct {
		name  string
		box   detector.Box
		frame image.Point
		want  image.Rectangle
	}{
		{
			name:  "identity",
			box:   detector.Box{X1: 10, Y1: 20, X2: 110, Y2: 220},
			frame: image.Pt(640, 640),
			want:  image.Rect(10, 20, 110, 220),
		},
		{
			// 100 * 720/640 = 112.5 rounds down to even
			name:  "scales each axis",
			box:   detector.Box{X1: 100, Y1: 100, X2: 200, Y2: 200},
			frame: image.Pt(1280, 720),
			want:  image.Rect(200, 112, 400, 225),
		},
		{
			name:  "rounds half to even",
			box:   detector.Box{X1: 0.5, Y1: 1.5, X2: 2.5, Y2: 3.5},
			frame: image.Pt(640, 640),
			want:  image.Rect(0, 2, 2, 4),
		},
		{
			name:  "clamps negatives",
			box:   detector.Box{X1: -30, Y1: -5, X2: 50, Y2: 60},
			frame: image.Pt(640, 640),
			want:  image.Rect(0, 0, 50, 60),
		},
		{
			name:  "clamps past the far edge",
			box:   detector.Box{X1: 600, Y1: 600, X2: 700, Y2: 900},
			frame: image.Pt(640, 640),
			want:  image.Rect(600, 600, 640, 640),
		},
		{
			name:  "fully outside collapses",
			box:   detector.Box{X1: 700, Y1: 10, X2: 800, Y2: 50},
			frame: image.Pt(640, 640),
			want:  image.Rect(640, 10, 640, 50),
		},
		{
			name:  "reversed pair collapses",
			box:   detector.Box{X1: 300, Y1: 50, X2: 100, Y2: 150},
			frame: image.Pt(640, 640),
			want:  image.Rect(300, 50, 300, 150),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapBox(tt.box, det, tt.frame)
			assert.Equal(t, tt.want.Min, got.Min)
			assert.Equal(t, tt.want.Max, got.Max)
		})
	}
}

func TestMapBoxDegenerateSizes(t *testing.T) {
	box := detector.Box{X1: 1, Y1: 1, X2: 5, Y2: 5}
	assert.Equal(t, image.Rectangle{}, MapBox(box, image.Pt(0, 640), image.Pt(100, 100)))
	assert.Equal(t, image.Rectangle{}, MapBox(box, image.Pt(640, 640), image.Pt(0, 100)))
}

func TestMapBoxBoundsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	coord := gen.Float64Range(-2000, 2000)
	properties.Property("mapped boxes stay inside the frame", prop.ForAll(
		func(x1, y1, x2, y2 float64, w, h int) bool {
			r := MapBox(detector.Box{X1: x1, Y1: y1, X2: x2, Y2: y2}, image.Pt(640, 640), image.Pt(w, h))
			return r.Min.X >= 0 && r.Min.X <= r.Max.X && r.Max.X <= w &&
				r.Min.Y >= 0 && r.Min.Y <= r.Max.Y && r.Max.Y <= h
		},
		coord, coord, coord, coord,
		gen.IntRange(1, 4096), gen.IntRange(1, 4096),
	))

	properties.Property("boxes inside the detector input keep their order", prop.ForAll(
		func(a, b float64, w int) bool {
			lo, hi := min(a, b), max(a, b)
			r := MapBox(detector.Box{X1: lo, Y1: lo, X2: hi, Y2: hi}, image.Pt(640, 640), image.Pt(w, w))
			return r.Dx() >= 0 && r.Dy() >= 0
		},
		gen.Float64Range(0, 640), gen.Float64Range(0, 640), gen.IntRange(1, 4096),
	))

	properties.TestingRun(t)
}
