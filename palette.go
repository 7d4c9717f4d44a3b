package bmp

import (
	"errors"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ErrFormat is returned when the pixel data references colors outside the
// palette.
var ErrFormat = errors.New("bmp: invalid palette index")

// Quad is a palette entry as stored on disk
type Quad struct {
	B, G, R, Reserved uint8
}

// Pixel returns the color of the entry
func (q Quad) Pixel() Pixel {
	return Pixel{q.B, q.G, q.R}
}

// Palette is the color table of a 1, 4 or 8-bit image
type Palette []Quad

// Grayscale returns a palette of 2^bitCount grays evenly spaced from black
// to white. It returns nil for bit counts that do not use a palette.
func Grayscale(bitCount uint16) Palette {
	if !HasPalette(bitCount) {
		return nil
	}
	n := 1 << bitCount
	p := make(Palette, n)
	for i := range p {
		v := uint8(i * 0xff / (n - 1))
		p[i] = Quad{v, v, v, 0}
	}
	return p
}

// Colors returns the palette as a color.Palette of opaque color.RGBA
func (p Palette) Colors() color.Palette {
	cp := make(color.Palette, len(p))
	for i, q := range p {
		cp[i] = color.RGBA{q.R, q.G, q.B, 0xff}
	}
	return cp
}

func upperNibble(b byte) byte {
	return b & 0xf0
}

func lowerNibble(b byte) byte {
	return b & 0x0f
}

// Maps pixels back to palette indices. Exact matches win, anything else
// is resolved to the closest entry in Lab space and remembered.
type paletteIndex struct {
	palette Palette
	lab     []colorful.Color
	cache   map[Pixel]uint8
}

func newPaletteIndex(p Palette) *paletteIndex {
	pi := &paletteIndex{
		palette: p,
		lab:     make([]colorful.Color, len(p)),
		cache:   make(map[Pixel]uint8, len(p)),
	}
	// Iterate backwards so duplicate entries resolve to the lowest index
	for i := len(p) - 1; i >= 0; i-- {
		pi.cache[p[i].Pixel()] = uint8(i)
		pi.lab[i] = toColorful(p[i].Pixel())
	}
	return pi
}

func toColorful(p Pixel) colorful.Color {
	return colorful.Color{
		R: float64(p.R) / 0xff,
		G: float64(p.G) / 0xff,
		B: float64(p.B) / 0xff,
	}
}

func (pi *paletteIndex) index(p Pixel) uint8 {
	if i, ok := pi.cache[p]; ok {
		return i
	}
	c := toColorful(p)
	var best uint8
	bestDist := -1.0
	for i, l := range pi.lab {
		if d := c.DistanceLab(l); bestDist < 0 || d < bestDist {
			best, bestDist = uint8(i), d
		}
	}
	pi.cache[p] = best
	return best
}

func decodeIndexedRow(dst []Pixel, src []byte, e encoding, palette Palette) error {
	for x := range dst {
		var i byte
		switch e {
		case indexed1:
			i = src[x>>3] >> (7 - uint(x&7)) & 0x01
		case indexed4:
			if x&1 == 0 {
				i = upperNibble(src[x>>1]) >> 4
			} else {
				i = lowerNibble(src[x>>1])
			}
		case indexed8:
			i = src[x]
		}
		if int(i) >= len(palette) {
			return ErrFormat
		}
		dst[x] = palette[i].Pixel()
	}
	return nil
}

// dst is assumed to be zeroed, unused trailing bits are left as zero
func encodeIndexedRow(dst []byte, src []Pixel, e encoding, pi *paletteIndex) {
	for x, p := range src {
		i := pi.index(p)
		switch e {
		case indexed1:
			dst[x>>3] |= i & 0x01 << (7 - uint(x&7))
		case indexed4:
			if x&1 == 0 {
				dst[x>>1] |= i & 0x0f << 4
			} else {
				dst[x>>1] |= i & 0x0f
			}
		case indexed8:
			dst[x] = i
		}
	}
}
