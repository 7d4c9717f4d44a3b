package bmp

import "math"

// Largest number of pixels an image may hold
const maxPixels = math.MaxInt32

type encoding int

const (
	direct24 encoding = iota + 1
	direct32
	indexed1
	indexed4
	indexed8
)

func encodingFor(bitCount uint16) (encoding, bool) {
	switch bitCount {
	case 1:
		return indexed1, true
	case 4:
		return indexed4, true
	case 8:
		return indexed8, true
	case 24:
		return direct24, true
	case 32:
		return direct32, true
	}
	return 0, false
}

func (e encoding) bitCount() int {
	switch e {
	case indexed1:
		return 1
	case indexed4:
		return 4
	case indexed8:
		return 8
	case direct24:
		return 24
	case direct32:
		return 32
	}
	return 0
}

func (e encoding) indexed() bool {
	return e == indexed1 || e == indexed4 || e == indexed8
}

// Number of bytes holding the pixels of a row, excluding padding
func (e encoding) rowBytes(width int) int {
	return (width*e.bitCount() + 7) >> 3
}

// Number of zero bytes after each row to reach a 4 byte boundary
func (e encoding) padding(width int) int {
	return (4 - e.rowBytes(width)&3) & 3
}

func (e encoding) stride(width int) int {
	return e.rowBytes(width) + e.padding(width)
}

// Number of bytes of pixel data for an image of the given dimensions. It
// reports false if the image holds too many pixels or its pixel data does
// not fit in the 32-bit header fields.
func (e encoding) imageSize(width, height uint32) (uint32, bool) {
	if uint64(width)*uint64(height) > maxPixels {
		return 0, false
	}
	stride := (uint64(width)*uint64(e.bitCount()) + 31) >> 5 << 2
	if stride > math.MaxUint32 {
		return 0, false
	}
	size := stride * uint64(height)
	if size > math.MaxUint32 {
		return 0, false
	}
	return uint32(size), true
}

// HasPalette reports whether images of the given bit depth store palette
// indices rather than colors.
func HasPalette(bitCount uint16) bool {
	e, ok := encodingFor(bitCount)
	return ok && e.indexed()
}
