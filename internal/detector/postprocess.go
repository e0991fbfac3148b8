package detector

import (
	"fmt"
)

// resolveLayout picks the output layout for shape [1, a, b].
// Auto treats the smaller axis as the attribute axis; a [1, N, 6] tensor
// with N > 6 is read as end-to-end output.
func resolveLayout(layout string, a, b int) string {
	if layout != "" && layout != LayoutAuto {
		return layout
	}
	switch {
	case a < b:
		return LayoutChannelsFirst
	case b == 6:
		return LayoutEndToEnd
	default:
		return LayoutRows
	}
}

// DecodeOutput turns a raw model output into thresholded, NMS-filtered
// detections in input pixel coordinates.
func DecodeOutput(data []float32, shape []int64, cfg Config) ([]Detection, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return nil, fmt.Errorf("unexpected output shape %v, want [1, A, B]", shape)
	}
	a, b := int(shape[1]), int(shape[2])
	if a <= 0 || b <= 0 || len(data) < a*b {
		return nil, fmt.Errorf("output data length %d does not match shape %v", len(data), shape)
	}

	var dets []Detection
	switch layout := resolveLayout(cfg.OutputLayout, a, b); layout {
	case LayoutChannelsFirst:
		dets = decodeCenterBoxes(a, b, func(attr, i int) float32 { return data[attr*b+i] }, cfg.ConfThreshold)
	case LayoutRows:
		dets = decodeCenterBoxes(b, a, func(attr, i int) float32 { return data[i*b+attr] }, cfg.ConfThreshold)
	case LayoutEndToEnd:
		if b < 6 {
			return nil, fmt.Errorf("end-to-end output needs 6 attributes, got %d", b)
		}
		dets = decodeEndToEnd(data, a, b, cfg.ConfThreshold)
	default:
		return nil, fmt.Errorf("unknown output layout %q", layout)
	}

	dets = NonMaxSuppression(dets, cfg.NMSThreshold, cfg.ClassAgnosticNMS)
	if cfg.MaxDetections > 0 && len(dets) > cfg.MaxDetections {
		dets = dets[:cfg.MaxDetections]
	}
	return dets, nil
}

// decodeCenterBoxes reads candidates of (cx, cy, w, h, score_0..score_nc-1).
// attrs is the number of attributes, n the number of candidates.
func decodeCenterBoxes(attrs, n int, at func(attr, i int) float32, conf float64) []Detection {
	if attrs < 5 {
		return nil
	}
	var dets []Detection
	for i := range n {
		best, bestScore := -1, float32(0)
		for c := 4; c < attrs; c++ {
			if s := at(c, i); best < 0 || s > bestScore {
				best, bestScore = c-4, s
			}
		}
		if float64(bestScore) < conf {
			continue
		}
		cx, cy := float64(at(0, i)), float64(at(1, i))
		w, h := float64(at(2, i)), float64(at(3, i))
		dets = append(dets, Detection{
			ClassID:    best,
			Confidence: float64(bestScore),
			Box:        Box{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2},
		})
	}
	return dets
}

func decodeEndToEnd(data []float32, n, stride int, conf float64) []Detection {
	var dets []Detection
	for i := range n {
		row := data[i*stride:]
		score := float64(row[4])
		if score < conf {
			continue
		}
		dets = append(dets, Detection{
			ClassID:    int(row[5]),
			Confidence: score,
			Box:        Box{X1: float64(row[0]), Y1: float64(row[1]), X2: float64(row[2]), Y2: float64(row[3])},
		})
	}
	return dets
}
