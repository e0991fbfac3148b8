package recognizer

import (
	"math"
)

// DecodedSequence holds a greedy CTC decoding of one batch item.
type DecodedSequence struct {
	Collapsed     []int     // class indices after removing blanks and repeats
	CollapsedProb []float64 // probability of each collapsed index
}

// argmax returns the index of the largest value, -1 for an empty slice.
func argmax(v []float32) int {
	if len(v) == 0 {
		return -1
	}
	idx := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[idx] {
			idx = i
		}
	}
	return idx
}

// probOfIndex returns the probability of v[idx]. Rows that already sum to
// one are taken as probabilities; anything else goes through a stable softmax.
func probOfIndex(v []float32, idx int) float64 {
	if idx < 0 || idx >= len(v) {
		return 0
	}
	var sum float64
	maxV, minV := v[0], v[0]
	for _, x := range v {
		sum += float64(x)
		maxV = max(maxV, x)
		minV = min(minV, x)
	}
	if sum > 0.99 && sum < 1.01 && minV >= 0 && maxV <= 1 {
		return float64(v[idx])
	}
	var denom float64
	for _, x := range v {
		denom += math.Exp(float64(x - maxV))
	}
	if denom == 0 {
		return 0
	}
	return math.Exp(float64(v[idx]-maxV)) / denom
}

// CTCCollapse drops blanks and merges consecutive repeats. A blank between
// two equal indices keeps both.
func CTCCollapse(indices []int, probs []float64, blank int) ([]int, []float64) {
	outIdx := make([]int, 0, len(indices))
	outProb := make([]float64, 0, len(indices))
	prev := -1
	for i, idx := range indices {
		if idx == blank || idx == prev {
			prev = idx
			continue
		}
		outIdx = append(outIdx, idx)
		p := 0.0
		if i < len(probs) {
			p = probs[i]
		}
		outProb = append(outProb, p)
		prev = idx
	}
	return outIdx, outProb
}

// DecodeCTCGreedy decodes logits laid out as [N, T, C], or [N, C, T] when
// classesFirst is set.
func DecodeCTCGreedy(logits []float32, shape []int64, blank int, classesFirst bool) []DecodedSequence {
	if len(shape) != 3 {
		return nil
	}
	n := int(shape[0])
	tDim, cDim := int(shape[1]), int(shape[2])
	if classesFirst {
		tDim, cDim = cDim, tDim
	}
	if n <= 0 || tDim <= 0 || cDim <= 0 || len(logits) < n*tDim*cDim {
		return nil
	}

	out := make([]DecodedSequence, n)
	perBatch := tDim * cDim
	step := make([]float32, cDim)
	for b := range n {
		base := b * perBatch
		indices := make([]int, tDim)
		probs := make([]float64, tDim)
		for t := range tDim {
			if classesFirst {
				for k := range cDim {
					step[k] = logits[base+k*tDim+t]
				}
			} else {
				copy(step, logits[base+t*cDim:base+(t+1)*cDim])
			}
			idx := argmax(step)
			indices[t] = idx
			probs[t] = probOfIndex(step, idx)
		}
		coll, collProb := CTCCollapse(indices, probs, blank)
		out[b] = DecodedSequence{Collapsed: coll, CollapsedProb: collProb}
	}
	return out
}

// SequenceConfidence returns the mean of per-character probabilities; 0 if empty.
func SequenceConfidence(charProbs []float64) float64 {
	if len(charProbs) == 0 {
		return 0
	}
	var s float64
	for _, p := range charProbs {
		s += p
	}
	return s / float64(len(charProbs))
}

// isClassesFirst guesses whether a [N, A, B] output keeps classes on axis 1.
func isClassesFirst(shape []int64, numClasses int) bool {
	if len(shape) != 3 {
		return false
	}
	return int(shape[1]) == numClasses && int(shape[2]) != numClasses
}
