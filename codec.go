package bmp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrBadMagic is returned when the file does not start with "BM"
	ErrBadMagic = errors.New("bmp: not a BMP file")
	// ErrUnsupported is returned for compressed bitmaps, bit depths the
	// codec cannot handle and inconsistent header values
	ErrUnsupported = errors.New("bmp: unsupported format")

	errEmpty    = errors.New("bmp: empty image")
	errPixelLen = errors.New("bmp: pixel buffer does not match dimensions")
)

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// Codec reads and writes bitmaps. The two codecs differ only in the bit
// depths they accept.
type Codec struct {
	name    string
	palette bool
}

var (
	// BasicCodec handles 24 and 32-bit images only
	BasicCodec = &Codec{name: "basic"}
	// PaletteCodec handles 1, 4 and 8-bit palette images as well as
	// everything BasicCodec does
	PaletteCodec = &Codec{name: "palette", palette: true}
)

func (c *Codec) String() string {
	return c.name
}

func (c *Codec) encoding(bitCount uint16) (encoding, error) {
	e, ok := encodingFor(bitCount)
	if !ok || (e.indexed() && !c.palette) {
		return 0, fmt.Errorf("%w: %d bits per pixel", ErrUnsupported, bitCount)
	}
	return e, nil
}

type decoder struct {
	r io.Reader
	c *Codec
	e encoding
	m Image
}

func (d *decoder) readHeaders() error {
	var tmp [headerLen]byte
	if err := readFull(d.r, tmp[:]); err != nil {
		return err
	}

	fh, ih := &d.m.FileHeader, &d.m.InfoHeader
	if err := fh.UnmarshalBinary(tmp[:FileHeaderLen]); err != nil {
		return err
	}
	if fh.Type != magic {
		return ErrBadMagic
	}
	if err := ih.UnmarshalBinary(tmp[FileHeaderLen:]); err != nil {
		return err
	}

	// Only BITMAPINFOHEADER; the palette must follow at a fixed offset
	if ih.Size != InfoHeaderLen {
		return fmt.Errorf("%w: info header size %d", ErrUnsupported, ih.Size)
	}

	if ih.Compression != 0 {
		return fmt.Errorf("%w: compression method %d", ErrUnsupported, ih.Compression)
	}

	var err error
	if d.e, err = d.c.encoding(ih.BitCount); err != nil {
		return err
	}

	// A negative height marks a top-down bitmap, negative widths are
	// simply invalid
	if int32(ih.Width) < 0 || int32(ih.Height) < 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrUnsupported, int32(ih.Width), int32(ih.Height))
	}

	if _, ok := d.e.imageSize(ih.Width, ih.Height); !ok {
		return fmt.Errorf("%w: dimensions %dx%d", ErrUnsupported, ih.Width, ih.Height)
	}

	if fh.OffBits < headerLen {
		return fmt.Errorf("%w: pixel data offset %d", ErrUnsupported, fh.OffBits)
	}

	return nil
}

func (d *decoder) readPalette() error {
	ih := &d.m.InfoHeader

	n := uint32(1) << ih.BitCount
	if ih.ColorsUsed > n {
		return fmt.Errorf("%w: %d palette entries for %d bits per pixel", ErrUnsupported, ih.ColorsUsed, ih.BitCount)
	}
	if ih.ColorsUsed > 0 {
		n = ih.ColorsUsed
	}

	if d.m.FileHeader.OffBits < headerLen+n*quadLen {
		return fmt.Errorf("%w: pixel data offset %d overlaps palette", ErrUnsupported, d.m.FileHeader.OffBits)
	}

	d.m.Palette = make(Palette, n)
	tmp := make([]byte, n*quadLen)
	if err := readFull(d.r, tmp); err != nil {
		return err
	}
	for i := range d.m.Palette {
		q := tmp[i*quadLen:]
		d.m.Palette[i] = Quad{q[0], q[1], q[2], q[3]}
	}

	return nil
}

func (d *decoder) readPixels(rs io.ReadSeeker) error {
	width, height := d.m.Width(), d.m.Height()
	stride := d.e.stride(width)

	// Checked against the dimensions by readHeaders
	pixLen, _ := d.e.imageSize(d.m.InfoHeader.Width, d.m.InfoHeader.Height)

	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	offset := int64(d.m.FileHeader.OffBits)
	if offset+int64(pixLen) > size {
		return io.ErrUnexpectedEOF
	}
	if _, err := rs.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	d.m.Pix = make([]Pixel, width*height)
	if len(d.m.Pix) == 0 {
		return nil
	}

	br := bufio.NewReader(rs)
	row := make([]byte, stride)
	for y := 0; y < height; y++ {
		if err := readFull(br, row); err != nil {
			return err
		}
		dst := d.m.Pix[y*width : (y+1)*width]
		if d.e.indexed() {
			if err := decodeIndexedRow(dst, row, d.e, d.m.Palette); err != nil {
				return err
			}
		} else {
			decodeDirectRow(dst, row, d.e)
		}
	}

	return nil
}

// rs is nil when only the headers and palette are wanted
func (d *decoder) decode(r io.Reader, rs io.ReadSeeker) error {
	d.r = r

	if err := d.readHeaders(); err != nil {
		return err
	}

	if d.e.indexed() {
		if err := d.readPalette(); err != nil {
			return err
		}
	}

	if rs == nil {
		return nil
	}

	return d.readPixels(rs)
}

// Decode reads a bitmap from r. r must be positioned at the start of the
// file header; the pixel data offset is relative to that position.
func (c *Codec) Decode(r io.ReadSeeker) (*Image, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	or := &offsetReader{r, start}
	d := decoder{c: c}
	if err := d.decode(or, or); err != nil {
		return nil, err
	}
	return &d.m, nil
}

// DecodeConfig reads and validates the headers and palette of a bitmap
// without reading the pixel data. The returned image has a nil pixel
// buffer.
func (c *Codec) DecodeConfig(r io.Reader) (*Image, error) {
	d := decoder{c: c}
	if err := d.decode(r, nil); err != nil {
		return nil, err
	}
	return &d.m, nil
}

// Load reads the bitmap file at path
func (c *Codec) Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return c.Decode(f)
}

type encoder struct {
	w   *bufio.Writer
	e   encoding
	gap int
}

func (c *Codec) check(m *Image) (encoder, error) {
	if m == nil || m.Empty() {
		return encoder{}, errEmpty
	}

	e, err := c.encoding(m.BitCount())
	if err != nil {
		return encoder{}, err
	}

	if _, ok := e.imageSize(m.InfoHeader.Width, m.InfoHeader.Height); !ok {
		return encoder{}, fmt.Errorf("%w: dimensions %dx%d", ErrUnsupported, m.InfoHeader.Width, m.InfoHeader.Height)
	}

	if len(m.Pix) != m.Width()*m.Height() {
		return encoder{}, errPixelLen
	}

	gap := int(m.FileHeader.OffBits) - headerLen
	if e.indexed() {
		if len(m.Palette) == 0 || len(m.Palette) > 1<<m.BitCount() {
			return encoder{}, fmt.Errorf("%w: %d palette entries for %d bits per pixel", ErrUnsupported, len(m.Palette), m.BitCount())
		}
		gap -= len(m.Palette) * quadLen
	}
	if gap < 0 {
		return encoder{}, fmt.Errorf("%w: pixel data offset %d", ErrUnsupported, m.FileHeader.OffBits)
	}

	return encoder{e: e, gap: gap}, nil
}

func (e *encoder) encode(m *Image) error {
	b, err := m.FileHeader.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := e.w.Write(b); err != nil {
		return err
	}

	if b, err = m.InfoHeader.MarshalBinary(); err != nil {
		return err
	}
	if _, err := e.w.Write(b); err != nil {
		return err
	}

	if e.e.indexed() {
		for _, q := range m.Palette {
			if _, err := e.w.Write([]byte{q.B, q.G, q.R, q.Reserved}); err != nil {
				return err
			}
		}
	}

	// Reproduce whatever gap the header declares before the pixel data
	if _, err := e.w.Write(make([]byte, e.gap)); err != nil {
		return err
	}

	var pi *paletteIndex
	if e.e.indexed() {
		pi = newPaletteIndex(m.Palette)
	}

	width := m.Width()
	row := make([]byte, e.e.stride(width))
	for y := 0; y < m.Height(); y++ {
		for i := range row {
			row[i] = 0
		}
		src := m.Pix[y*width : (y+1)*width]
		if e.e.indexed() {
			encodeIndexedRow(row, src, e.e, pi)
		} else {
			encodeDirectRow(row, src, e.e)
		}
		if _, err := e.w.Write(row); err != nil {
			return err
		}
	}

	return e.w.Flush()
}

// Encode writes m to w in its own bit depth. Headers are written as they
// are, so they should describe the image; New and Decode guarantee that.
func (c *Codec) Encode(w io.Writer, m *Image) error {
	e, err := c.check(m)
	if err != nil {
		return err
	}
	e.w = bufio.NewWriter(w)
	return e.encode(m)
}

// Save writes m to the file at path, replacing any existing file. Images
// the codec cannot encode are rejected before the file is touched.
func (c *Codec) Save(m *Image, path string) (err error) {
	e, err := c.check(m)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	e.w = bufio.NewWriter(f)
	return e.encode(m)
}

// Makes offsets relative to where the bitmap starts within the underlying
// stream
type offsetReader struct {
	r     io.ReadSeeker
	start int64
}

func (o *offsetReader) Read(p []byte) (int, error) {
	return o.r.Read(p)
}

func (o *offsetReader) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekStart {
		offset += o.start
	}
	n, err := o.r.Seek(offset, whence)
	return n - o.start, err
}

// Decode reads a bitmap from r using PaletteCodec
func Decode(r io.ReadSeeker) (*Image, error) {
	return PaletteCodec.Decode(r)
}

// DecodeConfig reads the headers and palette from r using PaletteCodec
func DecodeConfig(r io.Reader) (*Image, error) {
	return PaletteCodec.DecodeConfig(r)
}

// Encode writes m to w using PaletteCodec
func Encode(w io.Writer, m *Image) error {
	return PaletteCodec.Encode(w, m)
}

// Load reads the bitmap file at path using PaletteCodec
func Load(path string) (*Image, error) {
	return PaletteCodec.Load(path)
}

// Save writes m to the file at path using PaletteCodec
func Save(m *Image, path string) error {
	return PaletteCodec.Save(m, path)
}
