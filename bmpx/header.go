// Package bmpx resizes uncompressed BMP images as a stream, holding only as
// many rows as the vertical filter spans.
package bmpx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

// ErrUnsupported is returned for BMP variants the stream resizer cannot
// handle: compressed data, multiple planes or other bit depths than 8, 24
// and 32.
var ErrUnsupported = errors.New("bmp: unsupported")

const (
	fileHeaderLen   = 14
	infoHeaderLen   = 40
	v4InfoHeaderLen = 108
	v5InfoHeaderLen = 124
	paletteLen      = 256 * 4
)

type Header struct {
	Config       image.Config
	BitsPerPixel int
	TopDown      bool
	AllowAlpha   bool
	// HeaderBytes holds the file header, info header and palette, ready to
	// be patched and written to the output.
	HeaderBytes []byte
	ImageOffset uint32
	InfoLen     int
}

// DecodeHeader reads a BMP header the way golang.org/x/image/bmp does, but
// keeps the raw header bytes so they can be rewritten for the output.
//
// Only the BITMAPINFOHEADER, BITMAPV4HEADER and BITMAPV5HEADER layouts are
// supported.
func DecodeHeader(r io.Reader) (Header, error) {
	le := binary.LittleEndian
	var b [fileHeaderLen + v5InfoHeaderLen + paletteLen]byte
	if _, err := io.ReadFull(r, b[:fileHeaderLen+4]); err != nil {
		return Header{}, unexpectedEOF(err)
	}
	if string(b[:2]) != "BM" {
		return Header{}, errors.New("bmp: invalid format")
	}
	res := Header{ImageOffset: le.Uint32(b[10:14])}
	infoLen := le.Uint32(b[14:18])
	if infoLen != infoHeaderLen && infoLen != v4InfoHeaderLen && infoLen != v5InfoHeaderLen {
		return Header{}, fmt.Errorf("%w: info header of %d bytes", ErrUnsupported, infoLen)
	}
	res.InfoLen = int(infoLen)
	if _, err := io.ReadFull(r, b[fileHeaderLen+4:fileHeaderLen+infoLen]); err != nil {
		return Header{}, unexpectedEOF(err)
	}
	width := int(int32(le.Uint32(b[18:22])))
	height := int(int32(le.Uint32(b[22:26])))
	if height < 0 {
		height, res.TopDown = -height, true
	}
	if width < 0 {
		return Header{}, fmt.Errorf("%w: negative width", ErrUnsupported)
	}
	planes, bpp, compression := le.Uint16(b[26:28]), le.Uint16(b[28:30]), le.Uint32(b[30:34])
	// BI_BITFIELDS with the default masks is the same as no compression.
	if compression == 3 && infoLen > infoHeaderLen &&
		le.Uint32(b[54:58]) == 0xff0000 && le.Uint32(b[58:62]) == 0xff00 &&
		le.Uint32(b[62:66]) == 0xff && le.Uint32(b[66:70]) == 0xff000000 {
		compression = 0
	}
	if planes != 1 || compression != 0 {
		return Header{}, fmt.Errorf("%w: %d planes, compression %d", ErrUnsupported, planes, compression)
	}
	pre := fileHeaderLen + int(infoLen)
	res.Config = image.Config{ColorModel: color.RGBAModel, Width: width, Height: height}
	res.BitsPerPixel = int(bpp)
	switch bpp {
	case 8:
		if int(res.ImageOffset) != pre+paletteLen {
			return Header{}, fmt.Errorf("%w: palette with other than 256 entries", ErrUnsupported)
		}
		if _, err := io.ReadFull(r, b[pre:pre+paletteLen]); err != nil {
			return Header{}, unexpectedEOF(err)
		}
		pcm := make(color.Palette, 256)
		for i := range pcm {
			// BGR with one byte of padding.
			pcm[i] = color.RGBA{b[pre+4*i+2], b[pre+4*i+1], b[pre+4*i+0], 0xFF}
		}
		res.Config.ColorModel = pcm
	case 24:
		if int(res.ImageOffset) != pre {
			return Header{}, fmt.Errorf("%w: gap before pixel data", ErrUnsupported)
		}
	case 32:
		if int(res.ImageOffset) != pre {
			return Header{}, fmt.Errorf("%w: gap before pixel data", ErrUnsupported)
		}
		// The fourth byte is alpha only with the V4 and V5 headers, and
		// padding otherwise.
		res.AllowAlpha = infoLen > infoHeaderLen
	default:
		return Header{}, fmt.Errorf("%w: %d bits per pixel", ErrUnsupported, bpp)
	}
	res.HeaderBytes = append([]byte(nil), b[:res.ImageOffset]...)
	return res, nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// outputHeader returns the header for a width x height image with
// bytesPerPixel bytes per pixel. Palette images are written as 24-bit.
func (h Header) outputHeader(width, height, bytesPerPixel int) []byte {
	le := binary.LittleEndian
	out := append([]byte(nil), h.HeaderBytes...)
	if h.BitsPerPixel == 8 {
		out = out[:fileHeaderLen+h.InfoLen]
		le.PutUint32(out[10:14], uint32(len(out)))
		le.PutUint16(out[28:30], 24)
		// Colors used and important colors.
		le.PutUint32(out[46:50], 0)
		le.PutUint32(out[50:54], 0)
	}
	imageSize := (bytesPerPixel*width + getNumPaddingBytes(width, bytesPerPixel)) * height
	le.PutUint32(out[2:6], uint32(len(out)+imageSize))
	le.PutUint32(out[18:22], uint32(width))
	rows := int32(height)
	if h.TopDown {
		rows = -rows
	}
	le.PutUint32(out[22:26], uint32(rows))
	le.PutUint32(out[34:38], uint32(imageSize))
	return out
}

func getNumPaddingBytes(width, bytesPerPixel int) int {
	if n := 4 + -bytesPerPixel*width%4; n != 4 {
		return n
	}
	return 0
}
