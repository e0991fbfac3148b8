package detector

import "sort"

// sortByConfidence orders detections by descending confidence. Ties keep
// their original order.
func sortByConfidence(dets []Detection) {
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Confidence > dets[j].Confidence
	})
}

// NonMaxSuppression performs greedy hard NMS. Unless classAgnostic is set,
// only detections of the same class suppress each other. The result is
// sorted by descending confidence; the input slice is not modified.
func NonMaxSuppression(dets []Detection, iouThreshold float64, classAgnostic bool) []Detection {
	if len(dets) == 0 {
		return nil
	}
	sorted := append([]Detection(nil), dets...)
	sortByConfidence(sorted)

	suppressed := make([]bool, len(sorted))
	kept := make([]Detection, 0, len(sorted))
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] {
				continue
			}
			if !classAgnostic && sorted[i].ClassID != sorted[j].ClassID {
				continue
			}
			if IoU(sorted[i].Box, sorted[j].Box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}
