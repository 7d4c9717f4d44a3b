/*
Package bmp implements a decoder and encoder for uncompressed Windows BMP
images.

Five pixel formats are supported: 24-bit BGR triples, 32-bit BGR quads with
an unused fourth byte, and 1, 4 or 8-bit indices into a color palette.
Regardless of the stored format, pixels are held in memory as BGR triples
so an image can always be re-encoded in its original bit depth.

Rows are kept in the order they are stored in the file; for the usual
bottom-up bitmap that means the first row in the buffer is the bottom row
of the picture.
*/
package bmp

import (
	"fmt"
	"math"
)

// Pixel is a single color with no alpha channel. It implements color.Color.
type Pixel struct {
	B, G, R uint8
}

// RGBA implements the color.Color interface, all pixels are opaque.
func (p Pixel) RGBA() (r, g, b, a uint32) {
	r = uint32(p.R)
	r |= r << 8
	g = uint32(p.G)
	g |= g << 8
	b = uint32(p.B)
	b |= b << 8
	return r, g, b, 0xffff
}

// Image is an in-memory bitmap. The zero value is an empty image.
type Image struct {
	FileHeader FileHeader
	InfoHeader InfoHeader

	// Palette is only set for 1, 4 and 8-bit images
	Palette Palette

	// Pix holds Width*Height pixels in row-major order
	Pix []Pixel
}

// New creates an image of the given dimensions with every pixel set to the
// gray level mode. Images with a palette bit depth get a grayscale ramp
// palette.
func New(mode uint8, bitCount uint16, width, height uint32) (*Image, error) {
	e, ok := encodingFor(bitCount)
	if !ok {
		return nil, fmt.Errorf("%w: bit count %d", ErrUnsupported, bitCount)
	}

	size, ok := e.imageSize(width, height)
	if !ok {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrUnsupported, width, height)
	}

	offset := uint32(headerLen)
	if e.indexed() {
		offset += uint32(quadLen) << bitCount
	}
	if uint64(offset)+uint64(size) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrUnsupported, width, height)
	}

	m := &Image{
		InfoHeader: InfoHeader{
			Size:     InfoHeaderLen,
			Width:    width,
			Height:   height,
			Planes:   1,
			BitCount: bitCount,
		},
		Pix: make([]Pixel, int(width)*int(height)),
	}

	if e.indexed() {
		m.Palette = Grayscale(bitCount)
		m.InfoHeader.ColorsUsed = uint32(len(m.Palette))
	}

	m.InfoHeader.SizeImage = size
	m.FileHeader = FileHeader{
		Type:    magic,
		Size:    offset + m.InfoHeader.SizeImage,
		OffBits: offset,
	}

	p := Pixel{mode, mode, mode}
	for i := range m.Pix {
		m.Pix[i] = p
	}

	return m, nil
}

// SetPalette replaces the palette of a 1, 4 or 8-bit image and updates the
// headers to match. Any gap before the pixel data is dropped.
func (m *Image) SetPalette(p Palette) error {
	if !HasPalette(m.BitCount()) || len(p) == 0 || len(p) > 1<<m.BitCount() {
		return fmt.Errorf("%w: %d palette entries for %d bits per pixel", ErrUnsupported, len(p), m.BitCount())
	}
	m.Palette = append(Palette(nil), p...)
	m.InfoHeader.ColorsUsed = uint32(len(p))
	m.FileHeader.OffBits = uint32(headerLen + len(p)*quadLen)
	m.FileHeader.Size = m.FileHeader.OffBits + m.InfoHeader.SizeImage
	return nil
}

// Width returns the width of the image in pixels
func (m *Image) Width() int {
	return int(m.InfoHeader.Width)
}

// Height returns the height of the image in pixels
func (m *Image) Height() int {
	return int(m.InfoHeader.Height)
}

// BitCount returns the number of bits used to store each pixel
func (m *Image) BitCount() uint16 {
	return m.InfoHeader.BitCount
}

// Empty reports whether the image holds no bitmap
func (m *Image) Empty() bool {
	return m.InfoHeader.Size == 0
}

// At returns the pixel at column x of buffer row y
func (m *Image) At(x, y int) Pixel {
	return m.Pix[y*m.Width()+x]
}

// Set changes the pixel at column x of buffer row y
func (m *Image) Set(x, y int, p Pixel) {
	m.Pix[y*m.Width()+x] = p
}

// Clone returns a deep copy of the image; nothing is shared with m
func (m *Image) Clone() *Image {
	dup := new(Image)
	dup.Assign(m)
	return dup
}

// Assign replaces the contents of m with a deep copy of src, whatever m
// held before.
func (m *Image) Assign(src *Image) {
	if m == src {
		return
	}
	m.FileHeader = src.FileHeader
	m.InfoHeader = src.InfoHeader
	m.Pix = append([]Pixel(nil), src.Pix...)
	m.Palette = nil
	if src.Palette != nil {
		m.Palette = append(Palette(nil), src.Palette...)
	}
}

// Reset returns m to the empty state
func (m *Image) Reset() {
	*m = Image{}
}

// Stride returns the number of bytes each stored row occupies, including
// padding. It returns 0 for an unsupported bit count.
func (m *Image) Stride() int {
	e, ok := encodingFor(m.BitCount())
	if !ok {
		return 0
	}
	return e.stride(m.Width())
}

// Padding returns the number of padding bytes after each stored row
func (m *Image) Padding() int {
	e, ok := encodingFor(m.BitCount())
	if !ok {
		return 0
	}
	return e.padding(m.Width())
}
