package detector

import "math"

// Box is an axis-aligned box in detector input pixels.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width returns the box width, zero for reversed boxes.
func (b Box) Width() float64 { return math.Max(0, b.X2-b.X1) }

// Height returns the box height, zero for reversed boxes.
func (b Box) Height() float64 { return math.Max(0, b.Y2-b.Y1) }

// Area returns the box area.
func (b Box) Area() float64 { return b.Width() * b.Height() }

// IoU returns the intersection over union of a and b.
func IoU(a, b Box) float64 {
	ix := math.Min(a.X2, b.X2) - math.Max(a.X1, b.X1)
	iy := math.Min(a.Y2, b.Y2) - math.Max(a.Y1, b.Y1)
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := ix * iy
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Detection is one object instance reported by the model.
type Detection struct {
	ClassID    int     `json:"class_id"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}
