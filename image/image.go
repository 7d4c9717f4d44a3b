/*
Package image adapts the bmp package to the standard library image
interfaces.

Importing it registers the "bmp" format with image.Decode and
image.DecodeConfig. Decoded bitmaps are returned as *image.Paletted for 1,
4 and 8-bit files and *image.RGBA otherwise, with the usual bottom-up row
order turned so that (0, 0) is the top-left corner.

Encode converts any image.Image into a bitmap of the requested bit depth,
reducing the colors with a median cut quantizer when a palette is needed.
*/
package image

import "image"

const defaultBitCount = 24

func init() {
	image.RegisterFormat("bmp", "BM", Decode, DecodeConfig)
}
