package image

import (
	"image"
	"image/color"
	"io"

	"github.com/bodgit/bmp"
	"github.com/ericpauley/go-quantize/quantize"
)

// Options are the encoding parameters.
type Options struct {
	// BitCount is one of 1, 4, 8, 24 or 32; zero means 24
	BitCount uint16
}

func toQuad(c color.Color) bmp.Quad {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return bmp.Quad{B: rgba.B, G: rgba.G, R: rgba.R}
}

// Existing palettes are used as they are if they are small enough,
// otherwise a new one is quantized from the image
func choosePalette(m image.Image, bitCount uint16) color.Palette {
	max := 1 << bitCount

	var p color.Palette
	if pm, ok := m.(*image.Paletted); ok {
		p = pm.Palette
	} else if cp, ok := m.ColorModel().(color.Palette); ok {
		p = cp
	}

	if len(p) == 0 || len(p) > max {
		q := quantize.MedianCutQuantizer{}
		p = q.Quantize(make(color.Palette, 0, max), m)
	}

	return p
}

// Encode writes the Image m to w in BMP format. Rows are written bottom-up.
func Encode(w io.Writer, m image.Image, o *Options) error {
	bitCount := uint16(defaultBitCount)
	if o != nil && o.BitCount != 0 {
		bitCount = o.BitCount
	}

	b := m.Bounds()
	out, err := bmp.New(0, bitCount, uint32(b.Dx()), uint32(b.Dy()))
	if err != nil {
		return err
	}

	var cp color.Palette
	if bmp.HasPalette(bitCount) && !b.Empty() {
		cp = choosePalette(m, bitCount)
		palette := make(bmp.Palette, len(cp))
		for i, c := range cp {
			palette[i] = toQuad(c)
		}
		if err := out.SetPalette(palette); err != nil {
			return err
		}
	}

	h := b.Dy()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := m.At(x, y)
			if cp != nil {
				c = cp[cp.Index(c)]
			}
			q := toQuad(c)
			out.Set(x-b.Min.X, h-1-(y-b.Min.Y), q.Pixel())
		}
	}

	return bmp.Encode(w, out)
}
