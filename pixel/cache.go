package pixel

import (
	"fmt"
)

// Cache stores the pixels of one image. Rectangles are given in pixels and
// buffers hold channels*w*h interleaved quantums.
//
// Implementations must allow concurrent calls on disjoint rectangles.
type Cache interface {
	Read(x, y, w, h int, dst []Quantum) error
	Write(x, y, w, h int, src []Quantum) error
}

// Allocator creates pixel caches.
type Allocator interface {
	Allocate(columns, rows, channels int) (Cache, error)
}

// AllocatorFunc adapts a function to the Allocator interface.
type AllocatorFunc func(columns, rows, channels int) (Cache, error)

func (f AllocatorFunc) Allocate(columns, rows, channels int) (Cache, error) {
	return f(columns, rows, channels)
}

// MemoryAllocator keeps pixels in a single slice.
type MemoryAllocator struct {
	// MaxPixels limits columns*rows of a single image. 0 means no limit.
	MaxPixels int64
}

// DefaultAllocator is used by images without an allocator of their own.
var DefaultAllocator Allocator = MemoryAllocator{MaxPixels: 1 << 30}

func (a MemoryAllocator) Allocate(columns, rows, channels int) (Cache, error) {
	if columns <= 0 || rows <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageSize, columns, rows)
	}
	n := int64(columns) * int64(rows)
	if a.MaxPixels > 0 && n > a.MaxPixels {
		return nil, fmt.Errorf("%w: %d pixels exceeds the limit of %d", ErrResourceLimit, n, a.MaxPixels)
	}
	return &memCache{
		pixels:   make([]Quantum, n*int64(channels)),
		columns:  columns,
		rows:     rows,
		channels: channels,
	}, nil
}

type memCache struct {
	pixels        []Quantum
	columns, rows int
	channels      int
}

func (c *memCache) check(x, y, w, h, n int) error {
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > c.columns || y+h > c.rows {
		return fmt.Errorf("region %dx%d+%d+%d outside %dx%d", w, h, x, y, c.columns, c.rows)
	}
	if n < w*h*c.channels {
		return fmt.Errorf("buffer holds %d quantums, need %d", n, w*h*c.channels)
	}
	return nil
}

func (c *memCache) Read(x, y, w, h int, dst []Quantum) error {
	if err := c.check(x, y, w, h, len(dst)); err != nil {
		return err
	}
	span := w * c.channels
	for j := 0; j < h; j++ {
		off := ((y+j)*c.columns + x) * c.channels
		copy(dst[j*span:(j+1)*span], c.pixels[off:off+span])
	}
	return nil
}

func (c *memCache) Write(x, y, w, h int, src []Quantum) error {
	if err := c.check(x, y, w, h, len(src)); err != nil {
		return err
	}
	span := w * c.channels
	for j := 0; j < h; j++ {
		off := ((y+j)*c.columns + x) * c.channels
		copy(c.pixels[off:off+span], src[j*span:(j+1)*span])
	}
	return nil
}
