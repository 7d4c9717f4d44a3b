package bmp

func decodeDirectRow(dst []Pixel, src []byte, e encoding) {
	step := e.bitCount() >> 3
	for x := range dst {
		i := x * step
		dst[x] = Pixel{src[i+0], src[i+1], src[i+2]}
	}
}

// The reserved byte of a 32-bit pixel is always written as zero
func encodeDirectRow(dst []byte, src []Pixel, e encoding) {
	step := e.bitCount() >> 3
	for x, p := range src {
		i := x * step
		dst[i+0] = p.B
		dst[i+1] = p.G
		dst[i+2] = p.R
		if step == 4 {
			dst[i+3] = 0
		}
	}
}
