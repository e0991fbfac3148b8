package recognizer

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/MeKo-Tech/platewatch/internal/mempool"
	"github.com/MeKo-Tech/platewatch/internal/onnx"
	"github.com/MeKo-Tech/platewatch/internal/utils"
	"github.com/disintegration/imaging"
)

// ResizeForRecognition scales a plate crop to targetHeight, keeping its
// aspect ratio up to maxWidth (0 means unbounded). With padToMultiple > 0 the
// line is extended on the right with black to a width the model accepts.
func ResizeForRecognition(img image.Image, targetHeight, maxWidth, padToMultiple int) (image.Image, error) {
	switch {
	case img == nil:
		return nil, errors.New("input image is nil")
	case targetHeight <= 0:
		return nil, fmt.Errorf("invalid targetHeight: %d", targetHeight)
	case img.Bounds().Empty():
		return nil, errors.New("input image is empty")
	}

	src := img.Bounds().Size()
	width := max(1, src.X*targetHeight/src.Y)
	if maxWidth > 0 {
		width = min(width, maxWidth)
	}
	line := imaging.Resize(img, width, targetHeight, imaging.Lanczos)

	if padToMultiple <= 0 || width%padToMultiple == 0 {
		return line, nil
	}
	padded := (width/padToMultiple + 1) * padToMultiple
	return imaging.Paste(imaging.New(padded, targetHeight, color.Black), line, image.Point{}), nil
}

// normalizeForRecognition converts img to an NCHW tensor scaled to [-1, 1].
// The returned buffer comes from mempool and must be handed back.
func normalizeForRecognition(img image.Image) (onnx.Tensor, []float32, error) {
	b := img.Bounds()
	buf := mempool.GetFloat32(3 * b.Dx() * b.Dy())
	data, w, h, err := utils.NormalizeImageIntoBuffer(img, buf)
	if err != nil {
		mempool.PutFloat32(buf)
		return onnx.Tensor{}, nil, err
	}
	for i, v := range data {
		data[i] = (v - 0.5) / 0.5
	}
	ten, err := onnx.NewImageTensor(data, 3, h, w)
	if err != nil {
		mempool.PutFloat32(data)
		return onnx.Tensor{}, nil, err
	}
	return ten, data, nil
}
