package pipeline

import (
	"image"
	"image/color"

	"github.com/MeKo-Tech/platewatch/internal/utils"
)

// ReadingColor is used for reading boxes and labels.
var ReadingColor = color.RGBA{0, 255, 0, 255}

const readingBoxThickness = 2

// AnnotateReading outlines rect on dst and writes text 10 pixels above its
// top-left corner.
func AnnotateReading(dst *image.RGBA, rect image.Rectangle, text string) {
	if dst == nil {
		return
	}
	rect = rect.Add(dst.Bounds().Min)
	utils.DrawRect(dst, rect, ReadingColor, readingBoxThickness)
	utils.DrawLabel(dst, image.Pt(rect.Min.X, rect.Min.Y-10), text, ReadingColor)
}

// RenderDetections returns a copy of img with every detection outlined,
// mapped from detector space. Riders are green, other classes yellow.
func RenderDetections(img image.Image, res *FrameResult, detectorSize image.Point) *image.RGBA {
	dst := utils.CloneRGBA(img)
	if dst == nil || res == nil {
		return dst
	}
	frameSize := image.Pt(dst.Bounds().Dx(), dst.Bounds().Dy())
	for _, d := range res.Detections {
		col := color.RGBA{255, 255, 0, 255}
		if d.ClassID == ClassRider {
			col = ReadingColor
		}
		utils.DrawRect(dst, MapBox(d.Box, detectorSize, frameSize), col, 1)
	}
	return dst
}
