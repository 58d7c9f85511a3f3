package pixel

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// FromImage copies a Go image into a new Image.
//
// Paletted images become PseudoClass, Gray and Gray16 images use the Gray
// colorspace and CMYK images the CMYK colorspace. 16-bit sources keep depth
// 16; everything else is converted through imaging.Clone at depth 8.
func FromImage(src image.Image, opts ...Option) (*Image, error) {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var (
		depth = 8
		cs    = RGBColorspace
		alpha bool
		cmap  []Color
		// at returns the channels of the pixel at x,y relative to bounds.Min:
		// red, green, blue, black and alpha.
		at func(x, y int) (r, g, b, k, a Quantum)
		// index returns the colormap index for PseudoClass sources.
		index func(x, y int) Quantum
	)
	switch img := src.(type) {
	case *image.Paletted:
		cmap = make([]Color, len(img.Palette))
		for i, c := range img.Palette {
			n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
			cmap[i] = Color{R: n.R, G: n.G, B: n.B, A: n.A}
			if n.A != 0xffff {
				alpha = true
			}
		}
		index = func(x, y int) Quantum {
			return Quantum(img.ColorIndexAt(bounds.Min.X+x, bounds.Min.Y+y))
		}
		at = func(x, y int) (r, g, b, k, a Quantum) {
			i := int(index(x, y))
			if i >= len(cmap) {
				return 0, 0, 0, 0, QuantumRange
			}
			c := cmap[i]
			return c.R, c.G, c.B, 0, c.A
		}
	case *image.Gray:
		cs = GrayColorspace
		at = func(x, y int) (r, g, b, k, a Quantum) {
			v := scale8(img.GrayAt(img.Rect.Min.X+x, img.Rect.Min.Y+y).Y)
			return v, v, v, 0, QuantumRange
		}
	case *image.Gray16:
		cs = GrayColorspace
		depth = 16
		at = func(x, y int) (r, g, b, k, a Quantum) {
			v := img.Gray16At(img.Rect.Min.X+x, img.Rect.Min.Y+y).Y
			return v, v, v, 0, QuantumRange
		}
	case *image.CMYK:
		cs = CMYKColorspace
		at = func(x, y int) (r, g, b, k, a Quantum) {
			c := img.CMYKAt(img.Rect.Min.X+x, img.Rect.Min.Y+y)
			return scale8(c.C), scale8(c.M), scale8(c.Y), scale8(c.K), QuantumRange
		}
	case *image.NRGBA64, *image.RGBA64:
		depth = 16
		alpha = !img.(interface{ Opaque() bool }).Opaque()
		at = func(x, y int) (r, g, b, k, a Quantum) {
			c := color.NRGBA64Model.Convert(src.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA64)
			return c.R, c.G, c.B, 0, c.A
		}
	default:
		nrgba := imaging.Clone(src)
		alpha = !nrgba.Opaque()
		at = func(x, y int) (r, g, b, k, a Quantum) {
			i := y*nrgba.Stride + x*4
			p := nrgba.Pix[i : i+4 : i+4]
			return scale8(p[0]), scale8(p[1]), scale8(p[2]), 0, scale8(p[3])
		}
	}

	opts = append([]Option{
		WithDepth(depth),
		WithColorspace(cs),
		WithAlpha(alpha),
		WithColormap(cmap),
	}, opts...)
	out, err := New(w, h, opts...)
	if err != nil {
		return nil, err
	}
	l := out.Layout()
	row := make([]Quantum, w*l.Channels)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := row[x*l.Channels : (x+1)*l.Channels]
			r, g, b, k, a := at(x, y)
			p[0], p[1], p[2] = r, g, b
			if l.Black >= 0 {
				p[l.Black] = k
			}
			if l.Alpha >= 0 {
				p[l.Alpha] = a
			}
			if l.Index >= 0 {
				p[l.Index] = index(x, y)
			}
		}
		if err := out.cache.Write(0, y, w, 1, row); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPixelCache, err)
		}
	}
	out.Type = out.classify()
	out.MagickColumns, out.MagickRows = w, h
	return out, nil
}

func scale8(v uint8) Quantum {
	return Quantum(v) * 257
}

func scale16(v Quantum) uint8 {
	return uint8((uint32(v) + 128) / 257)
}

// ToImage copies img into a Go image.
//
// CMYK images become *image.CMYK. PseudoClass images with at most 256
// colors at depth 8 become *image.Paletted, opaque Gray images *image.Gray or
// *image.Gray16, and everything else *image.NRGBA or *image.NRGBA64 by depth.
func (img *Image) ToImage() (image.Image, error) {
	l := img.Layout()
	rect := image.Rect(0, 0, img.columns, img.rows)
	var set func(x, y int, p []Quantum)
	var out image.Image
	switch {
	case img.colorspace == CMYKColorspace:
		dst := image.NewCMYK(rect)
		set = func(x, y int, p []Quantum) {
			dst.SetCMYK(x, y, color.CMYK{C: scale16(p[0]), M: scale16(p[1]), Y: scale16(p[2]), K: scale16(p[l.Black])})
		}
		out = dst
	case img.class == PseudoClass && img.Depth <= 8 && len(img.colormap) <= 256:
		palette := make(color.Palette, len(img.colormap))
		for i, c := range img.colormap {
			palette[i] = color.NRGBA{R: scale16(c.R), G: scale16(c.G), B: scale16(c.B), A: scale16(c.A)}
		}
		dst := image.NewPaletted(rect, palette)
		set = func(x, y int, p []Quantum) {
			dst.SetColorIndex(x, y, uint8(p[l.Index]))
		}
		out = dst
	case img.colorspace == GrayColorspace && !img.alpha && img.Depth <= 8:
		dst := image.NewGray(rect)
		set = func(x, y int, p []Quantum) {
			dst.SetGray(x, y, color.Gray{Y: scale16(p[0])})
		}
		out = dst
	case img.colorspace == GrayColorspace && !img.alpha:
		dst := image.NewGray16(rect)
		set = func(x, y int, p []Quantum) {
			dst.SetGray16(x, y, color.Gray16{Y: p[0]})
		}
		out = dst
	case img.Depth <= 8:
		dst := image.NewNRGBA(rect)
		set = func(x, y int, p []Quantum) {
			a := uint8(0xff)
			if l.Alpha >= 0 {
				a = scale16(p[l.Alpha])
			}
			i := dst.PixOffset(x, y)
			dst.Pix[i+0] = scale16(p[0])
			dst.Pix[i+1] = scale16(p[1])
			dst.Pix[i+2] = scale16(p[2])
			dst.Pix[i+3] = a
		}
		out = dst
	default:
		dst := image.NewNRGBA64(rect)
		set = func(x, y int, p []Quantum) {
			a := Quantum(QuantumRange)
			if l.Alpha >= 0 {
				a = p[l.Alpha]
			}
			dst.SetNRGBA64(x, y, color.NRGBA64{R: p[0], G: p[1], B: p[2], A: a})
		}
		out = dst
	}
	row := make([]Quantum, img.columns*l.Channels)
	for y := 0; y < img.rows; y++ {
		if err := img.cache.Read(0, y, img.columns, 1, row); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPixelCache, err)
		}
		for x := 0; x < img.columns; x++ {
			set(x, y, row[x*l.Channels:(x+1)*l.Channels])
		}
	}
	return out, nil
}
