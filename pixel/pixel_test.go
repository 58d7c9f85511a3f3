package pixel_test

import (
	"image"
	"image/color"
	"math"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"github.com/adriansahlman/magickresize/pixel"
)

func TestLayout(t *testing.T) {
	tests := []struct {
		name  string
		opts  []pixel.Option
		want  pixel.Layout
		class pixel.Class
		typ   pixel.Type
	}{
		{"rgb", nil, pixel.Layout{Channels: 3, Black: -1, Alpha: -1, Index: -1}, pixel.DirectClass, pixel.TrueColorType},
		{"rgba", []pixel.Option{pixel.WithAlpha(true)}, pixel.Layout{Channels: 4, Black: -1, Alpha: 3, Index: -1}, pixel.DirectClass, pixel.TrueColorMatteType},
		{"cmyk", []pixel.Option{pixel.WithColorspace(pixel.CMYKColorspace)}, pixel.Layout{Channels: 4, Black: 3, Alpha: -1, Index: -1}, pixel.DirectClass, pixel.ColorSeparationType},
		{"cmyka", []pixel.Option{pixel.WithColorspace(pixel.CMYKColorspace), pixel.WithAlpha(true)}, pixel.Layout{Channels: 5, Black: 3, Alpha: 4, Index: -1}, pixel.DirectClass, pixel.ColorSeparationMatteType},
		{"palette", []pixel.Option{pixel.WithColormap([]pixel.Color{{R: 1}})}, pixel.Layout{Channels: 4, Black: -1, Alpha: -1, Index: 3}, pixel.PseudoClass, pixel.PaletteType},
		{"palette-alpha", []pixel.Option{pixel.WithColormap([]pixel.Color{{R: 1}}), pixel.WithAlpha(true)}, pixel.Layout{Channels: 5, Black: -1, Alpha: 3, Index: 4}, pixel.PseudoClass, pixel.PaletteMatteType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := pixel.New(3, 2, tt.opts...)
			require.NoError(t, err)
			require.Equal(t, tt.want, img.Layout())
			require.Equal(t, tt.class, img.Class())
			require.Equal(t, tt.typ, img.Type)
			require.Equal(t, 3, img.Columns())
			require.Equal(t, 2, img.Rows())
		})
	}
}

func TestNewErrors(t *testing.T) {
	_, err := pixel.New(0, 3)
	require.ErrorIs(t, err, pixel.ErrImageSize)
	_, err = pixel.New(3, -1)
	require.ErrorIs(t, err, pixel.ErrImageSize)
	_, err = pixel.New(100, 100, pixel.WithAllocator(pixel.MemoryAllocator{MaxPixels: 99}))
	require.ErrorIs(t, err, pixel.ErrResourceLimit)
}

func TestViews(t *testing.T) {
	img, err := pixel.New(4, 3, pixel.WithAlpha(true))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, img.Rows())
	for y := 0; y < img.Rows(); y++ {
		wg.Add(1)
		go func(y int) {
			defer wg.Done()
			v := img.AcquireView()
			defer v.Release()
			q, err := v.QueuePixels(0, y, img.Columns(), 1)
			if err != nil {
				errs[y] = err
				return
			}
			for x := 0; x < img.Columns(); x++ {
				q[x*4+0] = pixel.Quantum(x)
				q[x*4+1] = pixel.Quantum(y)
				q[x*4+2] = pixel.Quantum(x + y)
				q[x*4+3] = pixel.QuantumRange
			}
			errs[y] = v.SyncPixels()
		}(y)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	v := img.AcquireView()
	p, err := v.GetPixels(1, 1, 2, 2)
	require.NoError(t, err)
	require.Equal(t, []pixel.Quantum{
		1, 1, 2, pixel.QuantumRange, 2, 1, 3, pixel.QuantumRange,
		1, 2, 3, pixel.QuantumRange, 2, 2, 4, pixel.QuantumRange,
	}, p)

	_, err = v.GetPixels(3, 0, 2, 1)
	require.ErrorIs(t, err, pixel.ErrPixelCache)
	_, err = v.QueuePixels(0, 3, 1, 1)
	require.ErrorIs(t, err, pixel.ErrPixelCache)
	require.ErrorIs(t, v.SyncPixels(), pixel.ErrPixelCache)
	v.Release()
	_, err = v.GetPixels(0, 0, 1, 1)
	require.ErrorIs(t, err, pixel.ErrPixelCache)
}

func TestCloneIsDeep(t *testing.T) {
	img, err := pixel.New(2, 2)
	require.NoError(t, err)
	require.NoError(t, img.SetPixel(1, 1, []pixel.Quantum{10, 20, 30}))
	img.SetArtifact("filter:blur", "2")
	img.SetProfile("icc", []byte{1, 2})

	c, err := img.Clone()
	require.NoError(t, err)
	require.NoError(t, img.SetPixel(1, 1, []pixel.Quantum{0, 0, 0}))
	img.SetArtifact("filter:blur", "3")

	p, err := c.Pixel(1, 1)
	require.NoError(t, err)
	require.Equal(t, []pixel.Quantum{10, 20, 30}, p)
	v, ok := c.Artifact("filter:blur")
	require.True(t, ok)
	require.Equal(t, "2", v)
	require.Equal(t, []string{"icc"}, c.Profiles())

	s, err := img.CloneSize(5, 1)
	require.NoError(t, err)
	require.Equal(t, 5, s.Columns())
	require.Equal(t, 1, s.Rows())
	require.Equal(t, []string{"filter:blur"}, s.Artifacts())
}

func TestAllocatorPropagates(t *testing.T) {
	var calls int
	alloc := pixel.AllocatorFunc(func(columns, rows, channels int) (pixel.Cache, error) {
		calls++
		return pixel.MemoryAllocator{}.Allocate(columns, rows, channels)
	})
	img, err := pixel.New(2, 2, pixel.WithAllocator(alloc))
	require.NoError(t, err)
	_, err = img.CloneSize(4, 4)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestStorageClass(t *testing.T) {
	cmap := []pixel.Color{
		{R: 100, G: 0, B: 0, A: pixel.QuantumRange},
		{R: 0, G: 200, B: 0, A: pixel.QuantumRange},
	}
	img, err := pixel.New(2, 1, pixel.WithColormap(cmap))
	require.NoError(t, err)
	require.NoError(t, img.SetPixel(1, 0, []pixel.Quantum{0, 200, 0, 1}))

	require.NoError(t, img.SetStorageClass(pixel.DirectClass))
	require.Equal(t, pixel.DirectClass, img.Class())
	p, err := img.Pixel(0, 0)
	require.NoError(t, err)
	require.Equal(t, []pixel.Quantum{100, 0, 0}, p)

	require.NoError(t, img.SetStorageClass(pixel.PseudoClass))
	p, err = img.Pixel(1, 0)
	require.NoError(t, err)
	require.Equal(t, []pixel.Quantum{0, 200, 0, 1}, p)

	require.NoError(t, img.SetColormap([]pixel.Color{cmap[1], cmap[0]}))
	p, err = img.Pixel(1, 0)
	require.NoError(t, err)
	require.Equal(t, []pixel.Quantum{100, 0, 0, 1}, p)

	require.NoError(t, img.SetAlpha(true))
	p, err = img.Pixel(0, 0)
	require.NoError(t, err)
	require.Equal(t, []pixel.Quantum{0, 200, 0, pixel.QuantumRange, 0}, p)

	require.NoError(t, img.SetPixel(0, 0, []pixel.Quantum{1, 2, 3, pixel.QuantumRange, 0}))
	require.NoError(t, img.SetStorageClass(pixel.DirectClass))
	require.Error(t, img.SetStorageClass(pixel.PseudoClass))
}

func TestImageRoundTrip(t *testing.T) {
	rect := image.Rect(0, 0, 3, 2)

	nrgba := image.NewNRGBA(rect)
	for i := range nrgba.Pix {
		nrgba.Pix[i] = uint8(i * 10)
	}
	gray := image.NewGray(rect)
	for i := range gray.Pix {
		gray.Pix[i] = uint8(i * 40)
	}
	gray16 := image.NewGray16(rect)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			gray16.SetGray16(x, y, color.Gray16{Y: uint16(x*1000 + y*7)})
		}
	}
	cmyk := image.NewCMYK(rect)
	for i := range cmyk.Pix {
		cmyk.Pix[i] = uint8(255 - i*9)
	}
	paletted := image.NewPaletted(rect, color.Palette{
		color.NRGBA{R: 255, A: 255},
		color.NRGBA{G: 255, A: 128},
		color.NRGBA{B: 255, A: 255},
	})
	for i := range paletted.Pix {
		paletted.Pix[i] = uint8(i % 3)
	}
	nrgba64 := image.NewNRGBA64(rect)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			nrgba64.SetNRGBA64(x, y, color.NRGBA64{R: uint16(x * 300), G: uint16(y * 20000), B: 7, A: 0xffff})
		}
	}

	tests := []struct {
		name       string
		src        image.Image
		class      pixel.Class
		colorspace pixel.Colorspace
		alpha      bool
		depth      int
	}{
		{"nrgba", nrgba, pixel.DirectClass, pixel.RGBColorspace, true, 8},
		{"gray", gray, pixel.DirectClass, pixel.GrayColorspace, false, 8},
		{"gray16", gray16, pixel.DirectClass, pixel.GrayColorspace, false, 16},
		{"cmyk", cmyk, pixel.DirectClass, pixel.CMYKColorspace, false, 8},
		{"paletted", paletted, pixel.PseudoClass, pixel.RGBColorspace, true, 8},
		{"nrgba64", nrgba64, pixel.DirectClass, pixel.RGBColorspace, false, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := pixel.FromImage(tt.src)
			require.NoError(t, err)
			require.Equal(t, tt.class, img.Class())
			require.Equal(t, tt.colorspace, img.Colorspace())
			require.Equal(t, tt.alpha, img.Alpha())
			require.Equal(t, tt.depth, img.Depth)
			require.Equal(t, 3, img.MagickColumns)
			require.Equal(t, 2, img.MagickRows)

			out, err := img.ToImage()
			require.NoError(t, err)
			require.Equal(t, tt.src, out)
		})
	}
}

func TestFromImageGeneric(t *testing.T) {
	src := imaging.New(4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	img, err := pixel.FromImage(src.SubImage(image.Rect(1, 1, 3, 4)))
	require.NoError(t, err)
	require.Equal(t, 2, img.Columns())
	require.Equal(t, 3, img.Rows())
	require.False(t, img.Alpha())
	p, err := img.Pixel(1, 2)
	require.NoError(t, err)
	require.Equal(t, []pixel.Quantum{10 * 257, 20 * 257, 30 * 257}, p)
}

func TestClampToQuantum(t *testing.T) {
	tests := []struct {
		in   float64
		want pixel.Quantum
	}{
		{-5, 0},
		{0, 0},
		{0.49, 0},
		{0.5, 1},
		{1000.4, 1000},
		{65534.5, 65535},
		{70000, 65535},
		{math.NaN(), 0},
		{math.Inf(1), 65535},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, pixel.ClampToQuantum(tt.in), "%v", tt.in)
	}
}

func TestProgress(t *testing.T) {
	img, err := pixel.New(1, 1)
	require.NoError(t, err)
	require.True(t, img.SetProgress("tag", 0, 1))
	var got []int64
	img.Progress = func(tag string, offset, span int64) bool {
		got = append(got, offset)
		return offset < 1
	}
	require.True(t, img.SetProgress("tag", 0, 2))
	require.False(t, img.SetProgress("tag", 1, 2))
	require.Equal(t, []int64{0, 1}, got)
}
