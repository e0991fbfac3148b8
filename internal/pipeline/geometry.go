package pipeline

import (
	"image"
	"math"

	"github.com/MeKo-Tech/platewatch/internal/detector"
)

// MapBox scales a box from detector input space to frame space. Each
// coordinate is rounded half to even and the result is clamped so that
// 0 <= x1 <= x2 <= W and 0 <= y1 <= y2 <= H.
func MapBox(box detector.Box, detectorSize, frameSize image.Point) image.Rectangle {
	if detectorSize.X <= 0 || detectorSize.Y <= 0 || frameSize.X <= 0 || frameSize.Y <= 0 {
		return image.Rectangle{}
	}
	sx := float64(frameSize.X) / float64(detectorSize.X)
	sy := float64(frameSize.Y) / float64(detectorSize.Y)

	x1 := scaleCoord(box.X1, sx, frameSize.X)
	y1 := scaleCoord(box.Y1, sy, frameSize.Y)
	x2 := scaleCoord(box.X2, sx, frameSize.X)
	y2 := scaleCoord(box.Y2, sy, frameSize.Y)
	// reversed pairs collapse to zero extent
	x2 = max(x2, x1)
	y2 = max(y2, y1)

	return image.Rectangle{Min: image.Point{X: x1, Y: y1}, Max: image.Point{X: x2, Y: y2}}
}

func scaleCoord(v, scale float64, limit int) int {
	r := math.RoundToEven(v * scale)
	switch {
	case math.IsNaN(r), r <= 0:
		return 0
	case r >= float64(limit):
		return limit
	}
	return int(r)
}
