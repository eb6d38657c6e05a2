package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"io"
	"os"

	"github.com/born-ml/rectflow/internal/flow"
)

// FrameDelay is the GIF frame delay in 1/100 s (100 ms per frame).
const FrameDelay = 10

var grayPalette = func() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.Gray{Y: uint8(i)}
	}
	return p
}()

// EncodeGIF writes the trajectory as an animated GIF that loops forever,
// one grid frame per sampler state.
func EncodeGIF(w io.Writer, traj flow.Trajectory, nrow int) error {
	anim := &gif.GIF{LoopCount: 0}
	for i, state := range traj {
		frame, err := MakeGrid(state, nrow, DefaultPadding)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		anim.Image = append(anim.Image, paletted(frame))
		anim.Delay = append(anim.Delay, FrameDelay)
	}
	if err := gif.EncodeAll(w, anim); err != nil {
		return fmt.Errorf("encode gif: %w", err)
	}
	return nil
}

// EncodePNG writes the final trajectory state as a PNG grid.
func EncodePNG(w io.Writer, traj flow.Trajectory, nrow int) error {
	final := traj.Final()
	if final == nil {
		return fmt.Errorf("empty trajectory")
	}
	img, err := MakeGrid(final, nrow, DefaultPadding)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// SaveTrajectory writes <base>.gif with every state and <base>_last.png
// with the final state.
func SaveTrajectory(base string, traj flow.Trajectory, nrow int) error {
	if err := writeFile(base+".gif", func(w io.Writer) error { return EncodeGIF(w, traj, nrow) }); err != nil {
		return err
	}
	return writeFile(base+"_last.png", func(w io.Writer) error { return EncodePNG(w, traj, nrow) })
}

func writeFile(path string, encode func(io.Writer) error) error {
	//nolint:gosec // G304: output path is user supplied
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := encode(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

func paletted(img image.Image) *image.Paletted {
	b := img.Bounds()
	if gray, ok := img.(*image.Gray); ok {
		out := image.NewPaletted(b, grayPalette)
		copy(out.Pix, gray.Pix)
		return out
	}
	out := image.NewPaletted(b, palette.Plan9)
	draw.FloydSteinberg.Draw(out, b, img, image.Point{})
	return out
}
