package utils

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// CloneRGBA copies img into a new RGBA buffer whose bounds start at (0,0).
func CloneRGBA(img image.Image) *image.RGBA {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// CropImageRect crops an image to the given rectangle. The result is an
// independent copy; an empty intersection yields a 0x0 image.
func CropImageRect(img image.Image, rect image.Rectangle) image.Image {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return imaging.New(0, 0, color.Transparent)
	}
	return imaging.Crop(img, rect)
}

// DrawRect outlines rect in dst with edges thickness pixels wide, drawn
// inside the rectangle and clipped to dst.
func DrawRect(dst *image.RGBA, rect image.Rectangle, col color.Color, thickness int) {
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	t := max(thickness, 1)
	src := image.NewUniform(col)
	edges := [...]image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+t),
		image.Rect(rect.Min.X, rect.Max.Y-t, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+t, rect.Max.Y),
		image.Rect(rect.Max.X-t, rect.Min.Y, rect.Max.X, rect.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(rect), src, image.Point{}, draw.Src)
	}
}

// DrawLabel writes text with its baseline at pt using a fixed 7x13 face.
// Glyphs falling outside dst are clipped.
func DrawLabel(dst *image.RGBA, pt image.Point, text string, col color.Color) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	// keep the label visible when the box touches the top edge
	if minY := dst.Bounds().Min.Y + face.Ascent; pt.Y < minY {
		pt.Y = minY
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(pt.X, pt.Y),
	}
	d.DrawString(text)
}
