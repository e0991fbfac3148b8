package recognizer

import (
	"image"

	"github.com/MeKo-Tech/platewatch/internal/utils"
)

// SplitLines cuts a two-row plate into its rows. A crop is treated as two
// rows when height/width exceeds aspect; the cut goes through the row of the
// middle band that differs least from the plate background. Single row crops
// come back unchanged as one element.
func SplitLines(img image.Image, aspect float64) []image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if aspect <= 0 || w == 0 || h < 8 || float64(h)/float64(w) <= aspect {
		return []image.Image{img}
	}

	// row ink: summed absolute deviation from the crop's mean luminance
	lum := make([]float64, w*h)
	var mean float64
	for y := range h {
		for x := range w {
			r, g, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			l := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bb)) / 257
			lum[y*w+x] = l
			mean += l
		}
	}
	mean /= float64(w * h)

	cut, best := h/2, -1.0
	for y := h / 3; y < h-h/3; y++ {
		var ink float64
		for x := range w {
			d := lum[y*w+x] - mean
			if d < 0 {
				d = -d
			}
			ink += d
		}
		if best < 0 || ink < best {
			cut, best = y, ink
		}
	}

	top := utils.CropImageRect(img, image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+cut))
	bottom := utils.CropImageRect(img, image.Rect(b.Min.X, b.Min.Y+cut, b.Max.X, b.Max.Y))
	return []image.Image{top, bottom}
}
