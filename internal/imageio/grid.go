// Package imageio renders sampled image batches as PNG grids and animated
// GIFs of the sampling trajectory.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/born-ml/rectflow/internal/tensor"
)

// DefaultPadding is the gap in pixels between grid cells.
const DefaultPadding = 2

// ToUnit maps a model value in [-1, 1] to [0, 1], clamping outliers.
func ToUnit(v float64) float64 {
	return min(max(v*0.5+0.5, 0), 1)
}

// MakeGrid tiles a [B, C, H, W] batch into a single image with nrow images
// per row and padding pixels of black between and around cells. C must be
// 1 (grayscale) or 3 (RGB).
func MakeGrid(batch *tensor.Tensor, nrow, padding int) (image.Image, error) {
	shape := batch.Shape()
	if len(shape) != 4 {
		return nil, fmt.Errorf("grid: want [B, C, H, W], got %v", shape)
	}
	b, c, h, w := shape[0], shape[1], shape[2], shape[3]
	if c != 1 && c != 3 {
		return nil, fmt.Errorf("grid: want 1 or 3 channels, got %d", c)
	}
	if nrow <= 0 {
		nrow = 8
	}

	cols := min(nrow, b)
	rows := (b + cols - 1) / cols
	cellW, cellH := w+padding, h+padding
	bounds := image.Rect(0, 0, cols*cellW+padding, rows*cellH+padding)

	var img interface {
		image.Image
		Set(x, y int, c color.Color)
	}
	if c == 1 {
		img = image.NewGray(bounds)
	} else {
		rgba := image.NewRGBA(bounds)
		draw.Draw(rgba, bounds, image.NewUniform(color.Black), image.Point{}, draw.Src)
		img = rgba
	}

	plane := h * w
	for k := range b {
		x0 := (k%cols)*cellW + padding
		y0 := (k/cols)*cellH + padding
		row := batch.Row(k)
		for y := range h {
			for x := range w {
				i := y*w + x
				if c == 1 {
					img.Set(x0+x, y0+y, color.Gray{Y: toByte(row[i])})
					continue
				}
				img.Set(x0+x, y0+y, color.RGBA{
					R: toByte(row[i]),
					G: toByte(row[plane+i]),
					B: toByte(row[2*plane+i]),
					A: 0xff,
				})
			}
		}
	}
	return img, nil
}

func toByte(v float64) uint8 {
	return uint8(ToUnit(v) * 255)
}
