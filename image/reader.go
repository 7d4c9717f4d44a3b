package image

import (
	"bytes"
	"image"
	"image/color"
	"io"
	"io/ioutil"

	"github.com/bodgit/bmp"
)

// image.Decode hands over a buffered reader so seeking is rarely possible
func readSeeker(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

func toPaletted(m *bmp.Image) *image.Paletted {
	w, h := m.Width(), m.Height()
	p := m.Palette.Colors()
	out := image.NewPaletted(image.Rect(0, 0, w, h), p)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.SetColorIndex(x, h-1-y, uint8(p.Index(m.At(x, y))))
		}
	}
	return out
}

func toRGBA(m *bmp.Image) *image.RGBA {
	w, h := m.Width(), m.Height()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := m.At(x, y)
			out.SetRGBA(x, h-1-y, color.RGBA{p.R, p.G, p.B, 0xff})
		}
	}
	return out
}

// Decode reads a BMP image from r and returns it as an image.Image.
func Decode(r io.Reader) (image.Image, error) {
	rs, err := readSeeker(r)
	if err != nil {
		return nil, err
	}

	m, err := bmp.Decode(rs)
	if err != nil {
		return nil, err
	}

	if m.Palette != nil {
		return toPaletted(m), nil
	}
	return toRGBA(m), nil
}

// DecodeConfig returns the color model and dimensions of a BMP image without
// decoding the entire image.
func DecodeConfig(r io.Reader) (image.Config, error) {
	m, err := bmp.DecodeConfig(r)
	if err != nil {
		return image.Config{}, err
	}

	var model color.Model = color.RGBAModel
	if m.Palette != nil {
		model = m.Palette.Colors()
	}

	return image.Config{
		ColorModel: model,
		Width:      m.Width(),
		Height:     m.Height(),
	}, nil
}
