// Package pixel is an in-memory image with a pluggable pixel cache. Pixels
// are stored as interleaved 16-bit quantums and accessed through views that
// read and write rectangles.
package pixel

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/adriansahlman/magickresize/filter"
)

// Quantum is a single channel sample.
type Quantum = uint16

// QuantumRange is the largest Quantum value. Alpha at QuantumRange is opaque.
const QuantumRange = 65535

var (
	// ErrResourceLimit is returned when pixels cannot be allocated.
	ErrResourceLimit = errors.New("resource limit exceeded")
	// ErrImageSize is returned for zero or negative dimensions.
	ErrImageSize = errors.New("negative or zero image size")
	// ErrPixelCache is returned when pixels cannot be read or written.
	ErrPixelCache = errors.New("pixel cache failure")
)

// Class is the storage class of an image.
type Class int

const (
	UndefinedClass Class = iota
	// DirectClass stores full channel values per pixel.
	DirectClass
	// PseudoClass additionally stores a colormap index per pixel.
	PseudoClass
)

func (c Class) String() string {
	switch c {
	case DirectClass:
		return "DirectClass"
	case PseudoClass:
		return "PseudoClass"
	}
	return "UndefinedClass"
}

// Colorspace tags how the color channels are interpreted.
type Colorspace int

const (
	RGBColorspace Colorspace = iota
	GrayColorspace
	// CMYKColorspace adds a black channel. Cyan, magenta and yellow are
	// held in the red, green and blue channels.
	CMYKColorspace
)

func (c Colorspace) String() string {
	switch c {
	case GrayColorspace:
		return "Gray"
	case CMYKColorspace:
		return "CMYK"
	}
	return "RGB"
}

// Type is the high level classification of an image. It is set on import
// and carried unchanged through resizing.
type Type int

const (
	UndefinedType Type = iota
	BilevelType
	GrayscaleType
	GrayscaleMatteType
	PaletteType
	PaletteMatteType
	TrueColorType
	TrueColorMatteType
	ColorSeparationType
	ColorSeparationMatteType
)

// Color is a colormap entry.
type Color struct {
	R, G, B, A Quantum
}

// ProgressMonitor is called as work progresses. Returning false asks the
// caller to stop.
type ProgressMonitor func(tag string, offset, span int64) bool

// Layout describes where the channels of one pixel are. Optional channels
// have offset -1.
type Layout struct {
	Channels int
	Black    int
	Alpha    int
	Index    int
}

func layoutFor(cs Colorspace, alpha bool, class Class) Layout {
	l := Layout{Channels: 3, Black: -1, Alpha: -1, Index: -1}
	if cs == CMYKColorspace {
		l.Black = l.Channels
		l.Channels++
	}
	if alpha {
		l.Alpha = l.Channels
		l.Channels++
	}
	if class == PseudoClass {
		l.Index = l.Channels
		l.Channels++
	}
	return l
}

// Image is a raster with its attributes.
type Image struct {
	// Depth is the significant bits per channel, 8 or 16 for imported
	// images.
	Depth int
	Type  Type
	// Filter and Blur are the defaults used by entry points that take no
	// filter of their own.
	Filter filter.Type
	Blur   float64

	XResolution float64
	YResolution float64
	Page        image.Rectangle

	Filename      string
	Magick        string
	MagickColumns int
	MagickRows    int
	// Extent is the size in bytes of the file the image was read from.
	Extent int64

	Progress ProgressMonitor
	// Allocator provides pixel caches for this image and every image cloned
	// from it. nil selects DefaultAllocator.
	Allocator Allocator

	columns, rows int
	class         Class
	colorspace    Colorspace
	alpha         bool
	colormap      []Color

	artifacts  map[string]string
	properties map[string]string
	profiles   map[string][]byte

	cache Cache
}

type options struct {
	alpha      bool
	colorspace Colorspace
	colormap   []Color
	depth      int
	allocator  Allocator
}

// Option configures New.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(opts *options) {
	f(opts)
}

// WithAlpha adds an alpha channel.
func WithAlpha(alpha bool) Option {
	return optionFunc(func(opts *options) {
		opts.alpha = alpha
	})
}

// WithColorspace sets the colorspace. Defaults to RGB.
func WithColorspace(cs Colorspace) Option {
	return optionFunc(func(opts *options) {
		opts.colorspace = cs
	})
}

// WithColormap makes the image PseudoClass with the given colormap. Every
// pixel starts as index 0.
func WithColormap(colormap []Color) Option {
	return optionFunc(func(opts *options) {
		opts.colormap = colormap
	})
}

// WithDepth sets the channel depth. Defaults to 16.
func WithDepth(depth int) Option {
	return optionFunc(func(opts *options) {
		opts.depth = depth
	})
}

// WithAllocator sets the pixel cache allocator.
func WithAllocator(a Allocator) Option {
	return optionFunc(func(opts *options) {
		opts.allocator = a
	})
}

// New allocates a blank image. Pixels start at zero in every channel, or at
// colormap entry 0 for PseudoClass images.
func New(columns, rows int, opts ...Option) (*Image, error) {
	o := options{depth: 16}
	for i := range opts {
		opts[i].apply(&o)
	}
	if o.depth <= 0 {
		return nil, errors.New("depth must be a positive value")
	}
	img := &Image{
		Depth:      o.depth,
		Filter:     filter.Undefined,
		Blur:       1.0,
		Allocator:  o.allocator,
		class:      DirectClass,
		colorspace: o.colorspace,
		alpha:      o.alpha,
	}
	if len(o.colormap) > 0 {
		img.class = PseudoClass
		img.colormap = append([]Color(nil), o.colormap...)
	}
	if err := img.allocate(columns, rows); err != nil {
		return nil, err
	}
	if img.class == PseudoClass {
		if err := img.expandColormap(); err != nil {
			return nil, err
		}
	}
	img.Type = img.classify()
	return img, nil
}

func (img *Image) allocate(columns, rows int) error {
	if columns <= 0 || rows <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrImageSize, columns, rows)
	}
	a := img.Allocator
	if a == nil {
		a = DefaultAllocator
	}
	cache, err := a.Allocate(columns, rows, img.Layout().Channels)
	if err != nil {
		return fmt.Errorf("failed to allocate %dx%d pixels for %q: %w", columns, rows, img.Filename, err)
	}
	img.columns, img.rows = columns, rows
	img.cache = cache
	return nil
}

func (img *Image) Columns() int { return img.columns }

func (img *Image) Rows() int { return img.rows }

func (img *Image) Class() Class { return img.class }

func (img *Image) Colorspace() Colorspace { return img.colorspace }

// Alpha reports whether the image has an alpha channel.
func (img *Image) Alpha() bool { return img.alpha }

// Colormap returns the colormap of the image. It must not be modified.
func (img *Image) Colormap() []Color { return img.colormap }

// Layout returns the channel layout of a pixel.
func (img *Image) Layout() Layout {
	return layoutFor(img.colorspace, img.alpha, img.class)
}

// Artifact returns a processing setting attached to the image.
func (img *Image) Artifact(key string) (string, bool) {
	v, ok := img.artifacts[key]
	return v, ok
}

func (img *Image) SetArtifact(key, value string) {
	if img.artifacts == nil {
		img.artifacts = make(map[string]string)
	}
	img.artifacts[key] = value
}

func (img *Image) DeleteArtifact(key string) {
	delete(img.artifacts, key)
}

// Artifacts returns the sorted artifact keys.
func (img *Image) Artifacts() []string {
	return sortedKeys(img.artifacts)
}

// Property returns image metadata, such as a comment or thumbnail tag.
func (img *Image) Property(key string) (string, bool) {
	v, ok := img.properties[key]
	return v, ok
}

func (img *Image) SetProperty(key, value string) {
	if img.properties == nil {
		img.properties = make(map[string]string)
	}
	img.properties[key] = value
}

func (img *Image) DeleteProperty(key string) {
	delete(img.properties, key)
}

// Properties returns the sorted property keys.
func (img *Image) Properties() []string {
	return sortedKeys(img.properties)
}

// Profile returns an embedded profile by name, for example "icc" or "exif".
func (img *Image) Profile(name string) ([]byte, bool) {
	v, ok := img.profiles[name]
	return v, ok
}

func (img *Image) SetProfile(name string, data []byte) {
	if img.profiles == nil {
		img.profiles = make(map[string][]byte)
	}
	img.profiles[name] = data
}

func (img *Image) DeleteProfile(name string) {
	delete(img.profiles, name)
}

// Profiles returns the sorted profile names.
func (img *Image) Profiles() []string {
	return sortedKeys(img.profiles)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CloneSize returns an image with the attributes of img and blank pixels of
// the given size.
func (img *Image) CloneSize(columns, rows int) (*Image, error) {
	return img.CloneSizeClass(columns, rows, img.class)
}

// CloneSizeClass is CloneSize with a different storage class. The pixels of
// a PseudoClass result all start at index 0.
func (img *Image) CloneSizeClass(columns, rows int, class Class) (*Image, error) {
	if class == PseudoClass && len(img.colormap) == 0 {
		return nil, errors.New("PseudoClass requires a colormap")
	}
	out := img.cloneAttributes()
	out.class = class
	if err := out.allocate(columns, rows); err != nil {
		return nil, err
	}
	return out, nil
}

// Clone returns a deep copy of img.
func (img *Image) Clone() (*Image, error) {
	out, err := img.CloneSize(img.columns, img.rows)
	if err != nil {
		return nil, err
	}
	buf := make([]Quantum, img.columns*img.Layout().Channels)
	for y := 0; y < img.rows; y++ {
		if err := img.cache.Read(0, y, img.columns, 1, buf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPixelCache, err)
		}
		if err := out.cache.Write(0, y, img.columns, 1, buf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPixelCache, err)
		}
	}
	return out, nil
}

func (img *Image) cloneAttributes() *Image {
	out := *img
	out.cache = nil
	out.colormap = append([]Color(nil), img.colormap...)
	out.artifacts = cloneMap(img.artifacts)
	out.properties = cloneMap(img.properties)
	out.profiles = cloneMap(img.profiles)
	return &out
}

func cloneMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SetStorageClass converts between DirectClass and PseudoClass. Converting
// to PseudoClass requires a colormap holding every pixel color.
func (img *Image) SetStorageClass(class Class) error {
	if class == img.class {
		return nil
	}
	switch class {
	case DirectClass:
		return img.relayout(img.colorspace, img.alpha, DirectClass, nil)
	case PseudoClass:
		if len(img.colormap) == 0 {
			return errors.New("PseudoClass requires a colormap")
		}
		index := make(map[Color]Quantum, len(img.colormap))
		for i := len(img.colormap) - 1; i >= 0; i-- {
			index[img.colormap[i]] = Quantum(i)
		}
		from := img.Layout()
		to := layoutFor(img.colorspace, img.alpha, PseudoClass)
		return img.relayout(img.colorspace, img.alpha, PseudoClass, func(src, dst []Quantum) error {
			c := Color{R: src[0], G: src[1], B: src[2], A: QuantumRange}
			if from.Alpha >= 0 {
				c.A = src[from.Alpha]
			}
			i, ok := index[c]
			if !ok {
				return fmt.Errorf("color %v is not in the colormap", c)
			}
			dst[to.Index] = i
			return nil
		})
	}
	return fmt.Errorf("unsupported storage class %v", class)
}

// SetAlpha adds an opaque alpha channel or drops the existing one.
func (img *Image) SetAlpha(alpha bool) error {
	if alpha == img.alpha {
		return nil
	}
	to := layoutFor(img.colorspace, alpha, img.class)
	return img.relayout(img.colorspace, alpha, img.class, func(src, dst []Quantum) error {
		if to.Alpha >= 0 {
			dst[to.Alpha] = QuantumRange
		}
		return nil
	})
}

// SetColormap replaces the colormap. PseudoClass pixels take the color of
// their (clamped) index in the new colormap.
func (img *Image) SetColormap(colormap []Color) error {
	img.colormap = append([]Color(nil), colormap...)
	if img.class != PseudoClass {
		return nil
	}
	if len(img.colormap) == 0 {
		return img.SetStorageClass(DirectClass)
	}
	return img.expandColormap()
}

// relayout rewrites every pixel for a new channel layout. Channels present
// in both layouts are copied; fill sets the rest.
func (img *Image) relayout(cs Colorspace, alpha bool, class Class, fill func(src, dst []Quantum) error) error {
	from := img.Layout()
	to := layoutFor(cs, alpha, class)
	a := img.Allocator
	if a == nil {
		a = DefaultAllocator
	}
	cache, err := a.Allocate(img.columns, img.rows, to.Channels)
	if err != nil {
		return fmt.Errorf("failed to allocate %dx%d pixels for %q: %w", img.columns, img.rows, img.Filename, err)
	}
	srcRow := make([]Quantum, img.columns*from.Channels)
	dstRow := make([]Quantum, img.columns*to.Channels)
	for y := 0; y < img.rows; y++ {
		if err := img.cache.Read(0, y, img.columns, 1, srcRow); err != nil {
			return fmt.Errorf("%w: %v", ErrPixelCache, err)
		}
		for x := 0; x < img.columns; x++ {
			src := srcRow[x*from.Channels : (x+1)*from.Channels]
			dst := dstRow[x*to.Channels : (x+1)*to.Channels]
			for i := range dst {
				dst[i] = 0
			}
			copy(dst[:3], src[:3])
			if from.Black >= 0 && to.Black >= 0 {
				dst[to.Black] = src[from.Black]
			}
			if from.Alpha >= 0 && to.Alpha >= 0 {
				dst[to.Alpha] = src[from.Alpha]
			}
			if from.Index >= 0 && to.Index >= 0 {
				dst[to.Index] = src[from.Index]
			}
			if fill != nil {
				if err := fill(src, dst); err != nil {
					return err
				}
			}
		}
		if err := cache.Write(0, y, img.columns, 1, dstRow); err != nil {
			return fmt.Errorf("%w: %v", ErrPixelCache, err)
		}
	}
	img.colorspace, img.alpha, img.class = cs, alpha, class
	img.cache = cache
	return nil
}

// expandColormap sets the color channels of every pixel from its index.
func (img *Image) expandColormap() error {
	l := img.Layout()
	row := make([]Quantum, img.columns*l.Channels)
	for y := 0; y < img.rows; y++ {
		if err := img.cache.Read(0, y, img.columns, 1, row); err != nil {
			return fmt.Errorf("%w: %v", ErrPixelCache, err)
		}
		for x := 0; x < img.columns; x++ {
			p := row[x*l.Channels : (x+1)*l.Channels]
			i := int(p[l.Index])
			if i >= len(img.colormap) {
				i = len(img.colormap) - 1
				p[l.Index] = Quantum(i)
			}
			c := img.colormap[i]
			p[0], p[1], p[2] = c.R, c.G, c.B
			if l.Alpha >= 0 {
				p[l.Alpha] = c.A
			}
		}
		if err := img.cache.Write(0, y, img.columns, 1, row); err != nil {
			return fmt.Errorf("%w: %v", ErrPixelCache, err)
		}
	}
	return nil
}

// Pixel returns a copy of the channels of one pixel.
func (img *Image) Pixel(x, y int) ([]Quantum, error) {
	if x < 0 || y < 0 || x >= img.columns || y >= img.rows {
		return nil, fmt.Errorf("%w: pixel %d,%d outside %dx%d", ErrPixelCache, x, y, img.columns, img.rows)
	}
	p := make([]Quantum, img.Layout().Channels)
	if err := img.cache.Read(x, y, 1, 1, p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPixelCache, err)
	}
	return p, nil
}

// SetPixel overwrites the channels of one pixel.
func (img *Image) SetPixel(x, y int, p []Quantum) error {
	if x < 0 || y < 0 || x >= img.columns || y >= img.rows {
		return fmt.Errorf("%w: pixel %d,%d outside %dx%d", ErrPixelCache, x, y, img.columns, img.rows)
	}
	if len(p) != img.Layout().Channels {
		return fmt.Errorf("pixel has %d channels, want %d", len(p), img.Layout().Channels)
	}
	if err := img.cache.Write(x, y, 1, 1, p); err != nil {
		return fmt.Errorf("%w: %v", ErrPixelCache, err)
	}
	return nil
}

// SetProgress reports progress to the monitor, if any, and returns whether
// work should continue.
func (img *Image) SetProgress(tag string, offset, span int64) bool {
	if img.Progress == nil {
		return true
	}
	return img.Progress(tag, offset, span)
}

func (img *Image) classify() Type {
	matte := img.alpha
	switch {
	case img.colorspace == CMYKColorspace:
		if matte {
			return ColorSeparationMatteType
		}
		return ColorSeparationType
	case img.colorspace == GrayColorspace:
		if matte {
			return GrayscaleMatteType
		}
		return GrayscaleType
	case img.class == PseudoClass:
		if matte {
			return PaletteMatteType
		}
		return PaletteType
	case matte:
		return TrueColorMatteType
	}
	return TrueColorType
}

// ClampToQuantum rounds v to the nearest Quantum, saturating at both ends.
func ClampToQuantum(v float64) Quantum {
	if !(v > 0) {
		return 0
	}
	if v >= QuantumRange {
		return QuantumRange
	}
	return Quantum(v + 0.5)
}
