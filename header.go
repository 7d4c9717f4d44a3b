package bmp

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	// FileHeaderLen is the size in bytes of the file header
	FileHeaderLen = 14
	// InfoHeaderLen is the size in bytes of the BITMAPINFOHEADER
	InfoHeaderLen = 40

	headerLen = FileHeaderLen + InfoHeaderLen
	quadLen   = 4

	magic = 0x4d42 // "BM"
)

var errShortHeader = errors.New("bmp: short header")

// FileHeader is the 14 byte BITMAPFILEHEADER found at the start of every
// file. It implements the encoding.BinaryMarshaler and
// encoding.BinaryUnmarshaler interfaces.
type FileHeader struct {
	Type      uint16
	Size      uint32
	Reserved1 uint16
	Reserved2 uint16
	OffBits   uint32
}

// MarshalBinary encodes the header into its 14 byte on-disk form
func (h *FileHeader) MarshalBinary() ([]byte, error) {
	b := new(bytes.Buffer)
	if err := binary.Write(b, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// UnmarshalBinary decodes the header from its 14 byte on-disk form
func (h *FileHeader) UnmarshalBinary(b []byte) error {
	if len(b) < FileHeaderLen {
		return errShortHeader
	}
	return binary.Read(bytes.NewReader(b), binary.LittleEndian, h)
}

// InfoHeader is the 40 byte BITMAPINFOHEADER describing the dimensions and
// pixel format. Width and height are treated as unsigned.
type InfoHeader struct {
	Size            uint32
	Width           uint32
	Height          uint32
	Planes          uint16
	BitCount        uint16
	Compression     uint32
	SizeImage       uint32
	XPelsPerMeter   uint32
	YPelsPerMeter   uint32
	ColorsUsed      uint32
	ColorsImportant uint32
}

// MarshalBinary encodes the header into its 40 byte on-disk form
func (h *InfoHeader) MarshalBinary() ([]byte, error) {
	b := new(bytes.Buffer)
	if err := binary.Write(b, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// UnmarshalBinary decodes the header from its 40 byte on-disk form
func (h *InfoHeader) UnmarshalBinary(b []byte) error {
	if len(b) < InfoHeaderLen {
		return errShortHeader
	}
	return binary.Read(bytes.NewReader(b), binary.LittleEndian, h)
}
