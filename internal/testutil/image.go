package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/platewatch/internal/utils"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PlateFrameConfig describes a synthetic street frame with one plate.
type PlateFrameConfig struct {
	Width, Height int
	Plate         image.Rectangle
	Text          string
	Background    color.Color
}

// DefaultPlateFrameConfig returns a 1280x720 frame with a plate near the centre.
func DefaultPlateFrameConfig() PlateFrameConfig {
	return PlateFrameConfig{
		Width:      1280,
		Height:     720,
		Plate:      image.Rect(560, 400, 720, 440),
		Text:       "XY42",
		Background: color.RGBA{90, 90, 90, 255},
	}
}

// GeneratePlateFrame renders a white plate carrying black text on a plain
// background, or on a gradient when Background is nil.
func GeneratePlateFrame(cfg PlateFrameConfig) *image.RGBA {
	var img *image.RGBA
	if cfg.Background != nil {
		img = CreateTestImage(cfg.Width, cfg.Height, cfg.Background)
	} else {
		img = GradientFrame(cfg.Width, cfg.Height)
	}
	draw.Draw(img, cfg.Plate, &image.Uniform{color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(cfg.Plate.Min.X+6, cfg.Plate.Min.Y+cfg.Plate.Dy()/2+5),
	}
	d.DrawString(cfg.Text)
	return img
}

// GradientFrame returns a frame whose pixels all differ from their
// neighbours, so accidental writes are easy to spot.
func GradientFrame(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetRGBA(x, y, color.RGBA{uint8(x), uint8(y), uint8(x + y), 255}) //nolint:gosec // G115: wraparound intended
		}
	}
	return img
}

// CreateTestImage creates a simple test image with the specified dimensions and color.
func CreateTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// CompareImages reports whether two images have equal bounds and a mean
// colour distance at most tolerance (0..1).
func CompareImages(img1, img2 image.Image, tolerance float64) bool {
	b := img1.Bounds()
	if b != img2.Bounds() {
		return false
	}
	if b.Empty() {
		return true
	}
	var total float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r1, g1, b1, a1 := img1.At(x, y).RGBA()
			r2, g2, b2, a2 := img2.At(x, y).RGBA()
			dr := float64(r1) - float64(r2)
			dg := float64(g1) - float64(g2)
			db := float64(b1) - float64(b2)
			da := float64(a1) - float64(a2)
			total += math.Sqrt(dr*dr + dg*dg + db*db + da*da)
		}
	}
	avg := total / float64(b.Dx()*b.Dy())
	return avg/math.Sqrt(4*65535*65535) <= tolerance
}

// WriteFrameDir saves frames as a numbered PNG sequence in a fresh
// temporary directory and returns it.
func WriteFrameDir(t *testing.T, frames ...image.Image) string {
	t.Helper()
	dir := t.TempDir()
	for i, f := range frames {
		path := filepath.Join(dir, fmt.Sprintf("frame_%05d.png", i))
		require.NoError(t, utils.SavePNG(path, f))
	}
	return dir
}
