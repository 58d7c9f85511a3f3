package bmpx

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/adriansahlman/magickresize/filter"
	"github.com/adriansahlman/magickresize/internal/parallel"
	"github.com/adriansahlman/magickresize/pixel"
	"github.com/adriansahlman/magickresize/resize"
)

// Resize a BMP image as a stream. Holds the smallest
// amount of pixels possible in memory. Amount of pixels
// held in memory is equal to the width of the image
// multiplied by the height of the resampling filter.
// Each pixel takes up 4 bytes.
//
// The contribution weights are the ones resize.ResizeImage uses, so both
// produce the same image up to 8-bit rounding of the intermediate rows.
// 8-bit palette input is written as 24-bit.
func Resize(
	src io.Reader,
	dst io.Writer,
	width, height int,
	opts ...ResizeOption,
) error {
	if width <= 0 {
		return fmt.Errorf("%w: resized width must be a positive value", pixel.ErrImageSize)
	}
	if height <= 0 {
		return fmt.Errorf("%w: resized height must be a positive value", pixel.ErrImageSize)
	}
	// Set up default options
	o := resizeOptions{
		filter:   filter.Lanczos,
		blur:     1.0,
		parallel: parallel.DefaultConfig,
	}
	// Apply user option overrides
	for i := range opts {
		opts[i].apply(&o)
	}
	if err := o.validate(); err != nil {
		return err
	}
	f, err := filter.New(
		o.filter,
		o.blur,
		false,
		filter.WithOverrides(o.overrides),
		filter.WithDepth(8),
	)
	if err != nil {
		return err
	}

	// Decode BMP header of input
	hdr, err := DecodeHeader(src)
	if err != nil {
		return err
	}

	// RGBA with straight alpha, one byte per channel
	var decodePixels func(input []byte, pixels []uint8)
	// defaults to 24-bit encoding
	encodePixels := func(pixels []uint8, output []byte) {
		var locIn, locOut int
		pixelCount := len(pixels) / 4
		for i := 0; i < pixelCount; i++ {
			locIn = i * 4
			locOut = i * 3
			output[locOut] = pixels[locIn+2]
			output[locOut+1] = pixels[locIn+1]
			output[locOut+2] = pixels[locIn]
		}
	}

	bytesPerPixelIn := hdr.BitsPerPixel / 8
	bytesPerPixelOut := bytesPerPixelIn
	switch hdr.BitsPerPixel {
	case 8:
		// input is 8-bit pixels output is 24-bit pixels
		bytesPerPixelOut = 24 / 8
		srcPalette := hdr.Config.ColorModel.(color.Palette)
		palette := make([]color.NRGBA, len(srcPalette))
		for i := range srcPalette {
			palette[i] = color.NRGBAModel.Convert(srcPalette[i]).(color.NRGBA)
		}
		decodePixels = func(input []byte, pixels []uint8) {
			var loc int
			var c color.NRGBA
			for i, pI := range input {
				c = palette[pI]
				loc = i * 4
				pixels[loc] = c.R
				pixels[loc+1] = c.G
				pixels[loc+2] = c.B
				pixels[loc+3] = c.A
			}
		}
	case 24:
		decodePixels = func(input []byte, pixels []uint8) {
			var locIn, locOut int
			pixelCount := len(input) / 3
			for i := 0; i < pixelCount; i++ {
				locIn = i * 3
				locOut = i * 4
				pixels[locOut+0] = input[locIn+2]
				pixels[locOut+1] = input[locIn+1]
				pixels[locOut+2] = input[locIn+0]
				pixels[locOut+3] = 0xFF
			}
		}
	case 32:
		allowAlpha := hdr.AllowAlpha
		decodePixels = func(input []byte, pixels []uint8) {
			copy(pixels, input)
			pixelCount := len(input) / 4
			var loc int
			for i := 0; i < pixelCount; i++ {
				loc = i * 4
				pixels[loc+0], pixels[loc+2] = pixels[loc+2], pixels[loc+0]
				if !allowAlpha {
					pixels[loc+3] = 0xFF
				}
			}
		}
		encodePixels = func(pixels []uint8, output []byte) {
			copy(output, pixels)
			pixelCount := len(pixels) / 4
			var loc int
			for i := 0; i < pixelCount; i++ {
				loc = i * 4
				output[loc+0], output[loc+2] = output[loc+2], output[loc+0]
			}
		}
	default:
		return fmt.Errorf(
			"unsupported number of bits per pixel: %d",
			hdr.BitsPerPixel,
		)
	}

	widthIn, heightIn := hdr.Config.Width, hdr.Config.Height
	// Pre-calculate pixel weights. Same size, no blur and no overrides is
	// a plain copy, as in resize.ResizeImage. Otherwise both axes are
	// filtered, even one that keeps its size, unless its weights turn out
	// to copy pixels one to one.
	var weightsX, weightsY [][]resize.Contribution
	kernelSizeY := 1
	identity := width == widthIn && height == heightIn && o.blur == 1.0 && o.overrides.IsZero()
	if !identity {
		weightsX, _ = resize.NewAxis(f, float64(width)/float64(widthIn), widthIn).Weights(width)
		if copiesPixels(weightsX, widthIn) {
			weightsX = nil
		}
		weightsY, kernelSizeY = resize.NewAxis(f, float64(height)/float64(heightIn), heightIn).Weights(height)
		if copiesPixels(weightsY, heightIn) {
			weightsY, kernelSizeY = nil, 1
		}
	}

	// Write BMP header with the new image dimensions
	if _, err = dst.Write(hdr.outputHeader(width, height, bytesPerPixelOut)); err != nil {
		return err
	}
	// Check for no-op
	if weightsX == nil && weightsY == nil && bytesPerPixelIn == bytesPerPixelOut {
		// No resize, copy entire image and return
		_, err = io.Copy(dst, src)
		return err
	}

	floatToByte := func(x float64) uint8 {
		v := int64(x + 0.5)
		if v > 255 {
			return 255
		}
		if v > 0 {
			return uint8(v)
		}
		return 0
	}

	// Holds the input pixels
	inputPixelBuf := make([]uint8, widthIn*4)

	// Ring buffer of the horizontally resized rows, row y in slot
	// y % kernelSizeY
	intermPixelBuf := make([]uint8, kernelSizeY*width*4)

	// Holds the bytes for a row of input pixels
	// plus any additional padding
	rowBytesBufIn := make(
		[]byte,
		bytesPerPixelIn*widthIn+getNumPaddingBytes(
			widthIn,
			bytesPerPixelIn,
		),
	)
	// Holds the bytes for a row of output pixels
	// plus any additional padding
	rowBytesBufOut := make(
		[]byte,
		bytesPerPixelOut*width+getNumPaddingBytes(
			width,
			bytesPerPixelOut,
		),
	)

	y0In, y1In := heightIn-1, -1
	y0Out, y1Out := height-1, -1
	yDelta := -1
	if hdr.TopDown {
		y0In, y1In = 0, heightIn
		y0Out, y1Out = 0, height
		yDelta = 1
	}

	// Tracks the current input row
	yIn := y0In
	// Tracks the next output row to resize and write
	yOut := y0Out

	canWriteCurrentOutputRow := func() bool {
		if hdr.TopDown {
			return weightsY[yOut][len(weightsY[yOut])-1].Pixel <= yIn
		}
		return weightsY[yOut][0].Pixel >= yIn
	}

	// For each input row
	for ; yIn != y1In; yIn += yDelta {
		if _, err = io.ReadFull(src, rowBytesBufIn); err != nil {
			return fmt.Errorf(
				"failed to read %d row bytes for y=%d: %w",
				len(rowBytesBufIn),
				yIn,
				err,
			)
		}
		// Decode pixels of current input row
		o.parallel.Run(0, widthIn, func(chunks <-chan parallel.Chunk) {
			for c := range chunks {
				decodePixels(
					rowBytesBufIn[c.Start*bytesPerPixelIn:c.Stop*bytesPerPixelIn],
					inputPixelBuf[c.Start*4:c.Stop*4],
				)
			}
		})

		// Horizontally resize row and store in buffer
		if weightsX == nil {
			// No horizontal resizing, simply copy input row
			loc := yIn % kernelSizeY * width * 4
			copy(
				intermPixelBuf[loc:loc+width*4],
				inputPixelBuf,
			)
		} else {
			// Resize the row
			o.parallel.Run(0, width, func(chunks <-chan parallel.Chunk) {
				var rgbaWeightedOut [4]float64
				var w resize.Contribution
				var x, loc int
				var aw, aInv float64
				for c := range chunks {
					for x = c.Start; x < c.Stop; x++ {
						rgbaWeightedOut = [4]float64{}
						for _, w = range weightsX[x] {
							loc = w.Pixel * 4
							aw = float64(inputPixelBuf[loc+3]) * w.Weight
							rgbaWeightedOut[0] += float64(inputPixelBuf[loc+0]) * aw
							rgbaWeightedOut[1] += float64(inputPixelBuf[loc+1]) * aw
							rgbaWeightedOut[2] += float64(inputPixelBuf[loc+2]) * aw
							rgbaWeightedOut[3] += aw
						}
						loc = (yIn%kernelSizeY*width + x) * 4
						intermPixelBuf[loc+0] = 0
						intermPixelBuf[loc+1] = 0
						intermPixelBuf[loc+2] = 0
						intermPixelBuf[loc+3] = 0
						if rgbaWeightedOut[3] != 0 {
							aInv = 1 / rgbaWeightedOut[3]
							intermPixelBuf[loc+0] = floatToByte(rgbaWeightedOut[0] * aInv)
							intermPixelBuf[loc+1] = floatToByte(rgbaWeightedOut[1] * aInv)
							intermPixelBuf[loc+2] = floatToByte(rgbaWeightedOut[2] * aInv)
							intermPixelBuf[loc+3] = floatToByte(rgbaWeightedOut[3])
						}
					}
				}
			})
		}
		// No vertical resize, encode and
		// then write the row immediately
		if weightsY == nil {
			o.parallel.Run(0, width, func(chunks <-chan parallel.Chunk) {
				for c := range chunks {
					loc := (yIn%kernelSizeY*width + c.Start) * 4
					encodePixels(
						intermPixelBuf[loc:loc+c.Len()*4],
						rowBytesBufOut[c.Start*bytesPerPixelOut:c.Stop*bytesPerPixelOut],
					)
				}
			})
			if _, err = dst.Write(rowBytesBufOut); err != nil {
				return fmt.Errorf(
					"failed to write %d row bytes for y=%d: %w",
					len(rowBytesBufOut),
					yIn,
					err,
				)
			}
			continue
		}

		// If enough rows have been horizontally resized for the
		// current output row, vertically resize and write it.
		// Continue this action until more input rows are required
		// or all output rows have been written.
		for ; yOut != y1Out && canWriteCurrentOutputRow(); yOut += yDelta {
			o.parallel.Run(0, width, func(chunks <-chan parallel.Chunk) {
				var rgbaWOut [4]float64
				var rgbaOut [4]uint8
				var w resize.Contribution
				var x, loc int
				var aw, aInv float64
				for c := range chunks {
					for x = c.Start; x < c.Stop; x++ {
						rgbaWOut, rgbaOut = [4]float64{}, [4]uint8{}
						for _, w = range weightsY[yOut] {
							loc = (w.Pixel%kernelSizeY*width + x) * 4
							aw = float64(intermPixelBuf[loc+3]) * w.Weight
							rgbaWOut[0] += float64(intermPixelBuf[loc+0]) * aw
							rgbaWOut[1] += float64(intermPixelBuf[loc+1]) * aw
							rgbaWOut[2] += float64(intermPixelBuf[loc+2]) * aw
							rgbaWOut[3] += aw
						}
						if rgbaWOut[3] != 0 {
							aInv = 1 / rgbaWOut[3]
							rgbaOut[0] = floatToByte(rgbaWOut[0] * aInv)
							rgbaOut[1] = floatToByte(rgbaWOut[1] * aInv)
							rgbaOut[2] = floatToByte(rgbaWOut[2] * aInv)
							rgbaOut[3] = floatToByte(rgbaWOut[3])
						}
						encodePixels(
							rgbaOut[:],
							rowBytesBufOut[x*bytesPerPixelOut:(x+1)*bytesPerPixelOut],
						)
					}
				}
			})
			if _, err = dst.Write(rowBytesBufOut); err != nil {
				return fmt.Errorf(
					"failed to write %d row bytes for y=%d: %w",
					len(rowBytesBufOut),
					yOut,
					err,
				)
			}
		}
	}
	return nil
}

// copiesPixels reports whether the weights map a row of extent pixels onto
// itself: every output pixel has a single nonzero weight, 1, on the source
// pixel with the same index.
func copiesPixels(weights [][]resize.Contribution, extent int) bool {
	if len(weights) != extent {
		return false
	}
	for i, ws := range weights {
		n := 0
		for _, w := range ws {
			if w.Weight == 0 {
				continue
			}
			if w.Pixel != i || w.Weight != 1 {
				return false
			}
			n++
		}
		if n != 1 {
			return false
		}
	}
	return true
}

type resizeOptions struct {
	filter    filter.Type
	blur      float64
	overrides filter.Overrides
	parallel  parallel.Config
}

func (o *resizeOptions) validate() error {
	if !o.filter.Valid() {
		return fmt.Errorf("unsupported filter %v", o.filter)
	}
	if o.blur <= 0 {
		return errors.New(
			"invalid value for blur, must be greater than 0",
		)
	}
	return o.parallel.Validate()
}

type ResizeOption interface {
	apply(*resizeOptions)
}

type resizeOptionFunc func(*resizeOptions)

func (f resizeOptionFunc) apply(opts *resizeOptions) {
	f(opts)
}

// Resampling filter used for resizing. Defaults to Lanczos.
func WithResizeFilter(t filter.Type) ResizeOption {
	return resizeOptionFunc(func(opts *resizeOptions) {
		opts.filter = t
	})
}

// Blur factor of the resampling filter. Values above 1 soften the result and
// values below 1 sharpen it.
func WithResizeBlur(blur float64) ResizeOption {
	return resizeOptionFunc(func(opts *resizeOptions) {
		opts.blur = blur
	})
}

// Expert filter settings, as parsed from filter:* defines.
func WithResizeOverrides(overrides filter.Overrides) ResizeOption {
	return resizeOptionFunc(func(opts *resizeOptions) {
		opts.overrides = overrides
	})
}

// Maximum number of parallel workers (go routines).
func WithResizeParallelLimit(limit int) ResizeOption {
	return resizeOptionFunc(func(opts *resizeOptions) {
		opts.parallel.Limit = limit
	})
}

// Number of pixels in each job that the workers
// (go routines) take on.
func WithResizeParallelBatchSize(chunk int) ResizeOption {
	return resizeOptionFunc(func(opts *resizeOptions) {
		opts.parallel.BatchSize = chunk
	})
}
