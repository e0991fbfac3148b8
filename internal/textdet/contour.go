package textdet

// Moore neighborhood, clockwise from east (image y grows downwards).
var (
	mooreDX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	mooreDY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

// traceContour follows the outer boundary of the component carrying label
// with Moore-neighbor tracing. Points are pixel centers; runs of collinear
// points collapse to their end points. The search for the start pixel is
// limited to the component's bounding box.
func traceContour(labels []int, w, h, label int, st compStats) []Point {
	if label <= 0 || len(labels) != w*h {
		return nil
	}
	is := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && labels[y*w+x] == label
	}

	// first pixel in raster order is always on the outer boundary
	sx, sy := -1, -1
	for y := st.minY; y <= st.maxY && sx < 0; y++ {
		for x := st.minX; x <= st.maxX; x++ {
			if is(x, y) {
				sx, sy = x, y
				break
			}
		}
	}
	if sx < 0 {
		return nil
	}

	pts := make([]Point, 0, 64)
	add := func(x, y int) {
		p := Point{X: float64(x), Y: float64(y)}
		if n := len(pts); n > 0 && pts[n-1] == p {
			return
		}
		if n := len(pts); n >= 2 {
			a, b := pts[n-2], pts[n-1]
			if (b.X-a.X)*(p.Y-b.Y)-(b.Y-a.Y)*(p.X-b.X) == 0 {
				pts = pts[:n-1]
			}
		}
		pts = append(pts, p)
	}
	add(sx, sy)

	// backtrack starts west of the start pixel, which is background
	cx, cy, bx, by := sx, sy, sx-1, sy
	for steps := 0; steps < 4*w*h+8; steps++ {
		start := (mooreIndex(bx-cx, by-cy) + 1) % 8
		found := false
		for k := range 8 {
			i := (start + k) % 8
			tx, ty := cx+mooreDX[i], cy+mooreDY[i]
			if is(tx, ty) {
				bx, by = cx, cy
				cx, cy = tx, ty
				found = true
				break
			}
			bx, by = tx, ty
		}
		if !found {
			break // isolated pixel
		}
		add(cx, cy)
		if cx == sx && cy == sy {
			break
		}
	}

	if n := len(pts); n >= 2 && pts[0] == pts[n-1] {
		pts = pts[:n-1]
	}
	return pts
}

func mooreIndex(dx, dy int) int {
	for i := range 8 {
		if mooreDX[i] == dx && mooreDY[i] == dy {
			return i
		}
	}
	return 0
}
