package pipeline

import (
	"image"

	"github.com/MeKo-Tech/platewatch/internal/utils"
)

// ExtractRegion copies rect out of frame. rect is relative to the frame's
// top-left corner. A region with zero width or height is reported as empty
// rather than as an error.
func ExtractRegion(frame image.Image, rect image.Rectangle) (image.Image, bool) {
	if frame == nil || rect.Dx() <= 0 || rect.Dy() <= 0 {
		return nil, false
	}
	abs := rect.Add(frame.Bounds().Min)
	crop := utils.CropImageRect(frame, abs)
	if crop.Bounds().Empty() {
		return nil, false
	}
	return crop, true
}
