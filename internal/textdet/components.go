package textdet

// compStats summarizes one connected component of the binarized map.
type compStats struct {
	count                  int
	sum                    float64
	minX, minY, maxX, maxY int
}

// binarize marks probabilities at or above t.
func binarize(prob []float32, t float32) []bool {
	mask := make([]bool, len(prob))
	for i, p := range prob {
		mask[i] = p >= t
	}
	return mask
}

// connectedComponents labels the 4-connected components of mask, starting
// at 1, and collects per-component statistics over prob. labels[i] is 0 for
// background pixels.
func connectedComponents(mask []bool, prob []float32, w, h int) ([]compStats, []int) {
	labels := make([]int, w*h)
	var comps []compStats
	queue := make([]int, 0, 64)

	for start := range mask {
		if !mask[start] || labels[start] != 0 {
			continue
		}
		label := len(comps) + 1
		sx, sy := start%w, start/w
		st := compStats{minX: sx, minY: sy, maxX: sx, maxY: sy}

		labels[start] = label
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			ci := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			cx, cy := ci%w, ci/w
			st.add(prob[ci], cx, cy)

			for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				nx, ny := cx+d[0], cy+d[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				ni := ny*w + nx
				if mask[ni] && labels[ni] == 0 {
					labels[ni] = label
					queue = append(queue, ni)
				}
			}
		}
		comps = append(comps, st)
	}
	return comps, labels
}

func (st *compStats) add(p float32, x, y int) {
	st.count++
	st.sum += float64(p)
	st.minX = min(st.minX, x)
	st.minY = min(st.minY, y)
	st.maxX = max(st.maxX, x)
	st.maxY = max(st.maxY, y)
}

// corners is the pixel-center outline of the component's bounding box.
func (st compStats) corners() []Point {
	x0, y0 := float64(st.minX), float64(st.minY)
	x1, y1 := float64(st.maxX), float64(st.maxY)
	return []Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}
