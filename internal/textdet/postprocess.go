package textdet

import (
	"image"
	"math"
)

// Point is a position in probability-map pixels.
type Point struct{ X, Y float64 }

// Region is one text line found in an image.
type Region struct {
	Box        image.Rectangle // axis-aligned, already expanded and clipped to the image
	Confidence float64         // mean probability inside the component
}

// Options controls DB post-processing of a probability map.
type Options struct {
	Threshold    float32 // pixel binarization threshold
	BoxThreshold float64 // minimum mean probability of a kept region
	UnclipRatio  float64 // outline growth, in units of area/perimeter
	MinSize      int     // components with a shorter side are dropped
}

// mapRegion is a region in probability-map coordinates, with edges on pixel
// boundaries.
type mapRegion struct {
	minX, minY, maxX, maxY float64
	conf                   float64
}

// postProcess turns a probability map into text regions:
// binarize, split into 4-connected components, score each component by its
// mean probability, and grow the kept outlines by the unclip distance.
func postProcess(prob []float32, w, h int, opts Options) []mapRegion {
	if w <= 0 || h <= 0 || len(prob) != w*h {
		return nil
	}
	comps, labels := connectedComponents(binarize(prob, opts.Threshold), prob, w, h)

	regions := make([]mapRegion, 0, len(comps))
	for i, c := range comps {
		if min(c.maxX-c.minX, c.maxY-c.minY)+1 < opts.MinSize {
			continue
		}
		conf := c.sum / float64(c.count)
		if conf < opts.BoxThreshold {
			continue
		}

		outline := traceContour(labels, w, h, i+1, c)
		if len(outline) < 3 {
			outline = c.corners()
		}
		d := unclipDistance(outline, opts.UnclipRatio)
		regions = append(regions, mapRegion{
			minX: math.Max(0, float64(c.minX)-d),
			minY: math.Max(0, float64(c.minY)-d),
			maxX: math.Min(float64(w), float64(c.maxX+1)+d),
			maxY: math.Min(float64(h), float64(c.maxY+1)+d),
			conf: conf,
		})
	}
	return regions
}

// unclipDistance is how far an outline is pushed outwards:
// area * ratio / perimeter, measured on the outline grown by half a pixel so
// that thin strokes do not collapse to zero area. Growing a polygon by d with
// round joins grows its bounding box by exactly d on every side.
func unclipDistance(outline []Point, ratio float64) float64 {
	if ratio <= 0 || len(outline) < 2 {
		return 0
	}
	area := math.Abs(polygonArea(outline))
	perimeter := polygonPerimeter(outline)
	// half-pixel border around the centerline polygon
	area += perimeter/2 + 1
	perimeter += 4
	return area * ratio / perimeter
}

// polygonArea is the signed shoelace area.
func polygonArea(pts []Point) float64 {
	var s float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		s += p.X*q.Y - q.X*p.Y
	}
	return s / 2
}

func polygonPerimeter(pts []Point) float64 {
	var s float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		s += math.Hypot(q.X-p.X, q.Y-p.Y)
	}
	return s
}

// scaleRegions maps map-space regions onto an image of bounds b. Boxes are
// rounded outwards and clipped to b.
func scaleRegions(regions []mapRegion, mapW, mapH int, b image.Rectangle) []Region {
	if mapW <= 0 || mapH <= 0 {
		return nil
	}
	sx := float64(b.Dx()) / float64(mapW)
	sy := float64(b.Dy()) / float64(mapH)
	out := make([]Region, 0, len(regions))
	for _, r := range regions {
		box := image.Rect(
			b.Min.X+int(math.Floor(r.minX*sx)),
			b.Min.Y+int(math.Floor(r.minY*sy)),
			b.Min.X+int(math.Ceil(r.maxX*sx)),
			b.Min.Y+int(math.Ceil(r.maxY*sy)),
		).Intersect(b)
		if box.Empty() {
			continue
		}
		out = append(out, Region{Box: box, Confidence: r.conf})
	}
	return out
}
