package utils

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ResizeExact stretches img to width x height with bilinear filtering,
// ignoring the aspect ratio. The source image is left untouched.
func ResizeExact(img image.Image, width, height int) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("input image is nil")}
	}
	if width <= 0 || height <= 0 {
		return nil, &ImageProcessingError{Operation: "resize", Err: fmt.Errorf("invalid target size %dx%d", width, height)}
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return imaging.Clone(img), nil
	}
	return imaging.Resize(img, width, height, imaging.Linear), nil
}

// NormalizeImageIntoBuffer writes img as an NCHW RGB tensor with values in
// [0,1] into buf, growing it when too small. It returns the slice used and
// the image width and height.
func NormalizeImageIntoBuffer(img image.Image, buf []float32) ([]float32, int, int, error) {
	if img == nil {
		return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errors.New("input image is nil")}
	}

	nrgba := imaging.Clone(img)
	width := nrgba.Bounds().Dx()
	height := nrgba.Bounds().Dy()
	if width <= 0 || height <= 0 {
		return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errors.New("invalid image dimensions")}
	}
	plane := width * height
	needed := 3 * plane
	if cap(buf) < needed {
		buf = make([]float32, needed)
	}
	data := buf[:needed]
	for y := range height {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := range width {
			px := row[x*4:]
			idx := y*width + x
			data[idx] = float32(px[0]) / 255.0
			data[plane+idx] = float32(px[1]) / 255.0
			data[2*plane+idx] = float32(px[2]) / 255.0
		}
	}
	return data, width, height, nil
}
