package pixel

import (
	"errors"
	"fmt"
)

// View reads and writes rectangles of an image. A view belongs to one
// goroutine; several views of the same image may write disjoint rectangles
// concurrently.
type View struct {
	img *Image
	get []Quantum
	put []Quantum

	x, y, w, h int
	queued     bool
}

// AcquireView returns a view of img. Release it when done.
func (img *Image) AcquireView() *View {
	return &View{img: img}
}

func (v *View) region(x, y, w, h int) error {
	if v.img == nil {
		return fmt.Errorf("%w: view released", ErrPixelCache)
	}
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > v.img.columns || y+h > v.img.rows {
		return fmt.Errorf(
			"%w: region %dx%d+%d+%d outside %dx%d image %q",
			ErrPixelCache, w, h, x, y, v.img.columns, v.img.rows, v.img.Filename,
		)
	}
	return nil
}

// GetPixels returns the pixels of a rectangle, row by row. The buffer is
// owned by the view and valid until the next GetPixels call.
func (v *View) GetPixels(x, y, w, h int) ([]Quantum, error) {
	if err := v.region(x, y, w, h); err != nil {
		return nil, err
	}
	n := w * h * v.img.Layout().Channels
	if cap(v.get) < n {
		v.get = make([]Quantum, n)
	}
	v.get = v.get[:n]
	if err := v.img.cache.Read(x, y, w, h, v.get); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPixelCache, err)
	}
	return v.get, nil
}

// QueuePixels returns a buffer for a rectangle to be written by SyncPixels.
// Its previous content is undefined; every quantum must be set.
func (v *View) QueuePixels(x, y, w, h int) ([]Quantum, error) {
	if err := v.region(x, y, w, h); err != nil {
		return nil, err
	}
	n := w * h * v.img.Layout().Channels
	if cap(v.put) < n {
		v.put = make([]Quantum, n)
	}
	v.put = v.put[:n]
	v.x, v.y, v.w, v.h = x, y, w, h
	v.queued = true
	return v.put, nil
}

// SyncPixels commits the rectangle returned by the last QueuePixels.
func (v *View) SyncPixels() error {
	if !v.queued {
		return fmt.Errorf("%w: %v", ErrPixelCache, errors.New("no pixels queued"))
	}
	v.queued = false
	if err := v.img.cache.Write(v.x, v.y, v.w, v.h, v.put); err != nil {
		return fmt.Errorf("%w: %v", ErrPixelCache, err)
	}
	return nil
}

// Release drops the buffers of the view. The view cannot be used afterwards.
func (v *View) Release() {
	v.img = nil
	v.get = nil
	v.put = nil
	v.queued = false
}
