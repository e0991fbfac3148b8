package detector

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genDetection generates a random detection inside a 640x640 input.
func genDetection() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(0, 600),
		gen.Float64Range(0, 600),
		gen.Float64Range(1, 200),
		gen.Float64Range(1, 200),
		gen.Float64Range(0.01, 1.0),
		gen.IntRange(0, 2),
	).Map(func(vals []interface{}) Detection {
		x, _ := vals[0].(float64)
		y, _ := vals[1].(float64)
		w, _ := vals[2].(float64)
		h, _ := vals[3].(float64)
		conf, _ := vals[4].(float64)
		cls, _ := vals[5].(int)
		return Detection{ClassID: cls, Confidence: conf, Box: Box{X1: x, Y1: y, X2: x + w, Y2: y + h}}
	})
}

func TestNonMaxSuppression_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	dets := gen.SliceOfN(25, genDetection())

	properties.Property("output is sorted by confidence", prop.ForAll(
		func(in []Detection, iou float64) bool {
			kept := NonMaxSuppression(in, iou, false)
			for i := 1; i < len(kept); i++ {
				if kept[i].Confidence > kept[i-1].Confidence {
					return false
				}
			}
			return true
		},
		dets, gen.Float64Range(0.1, 0.9),
	))

	properties.Property("kept same-class pairs do not exceed the threshold", prop.ForAll(
		func(in []Detection, iou float64) bool {
			kept := NonMaxSuppression(in, iou, false)
			for i := range kept {
				for j := i + 1; j < len(kept); j++ {
					if kept[i].ClassID == kept[j].ClassID && IoU(kept[i].Box, kept[j].Box) > iou {
						return false
					}
				}
			}
			return true
		},
		dets, gen.Float64Range(0.1, 0.9),
	))

	properties.Property("never grows the input", prop.ForAll(
		func(in []Detection) bool {
			return len(NonMaxSuppression(in, 0.45, true)) <= len(in)
		},
		dets,
	))

	properties.TestingRun(t)
}
