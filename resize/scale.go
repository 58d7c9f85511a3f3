package resize

import (
	"fmt"

	"github.com/adriansahlman/magickresize/pixel"
)

const scaleTag = "Scale/Image"

// ScaleImage resizes img by averaging the source area every output pixel
// covers. Rows are scaled first, then columns, one output row at a time.
// The result is DirectClass; alpha is averaged like any other channel.
func ScaleImage(img *pixel.Image, columns, rows int, opts ...Option) (*pixel.Image, error) {
	if columns <= 0 || rows <= 0 {
		return nil, fmt.Errorf("%w: %dx%d for %q", pixel.ErrImageSize, columns, rows, img.Filename)
	}
	if _, err := newOptions(opts); err != nil {
		return nil, err
	}
	if columns == img.Columns() && rows == img.Rows() {
		return img.Clone()
	}
	scaled, err := img.CloneSizeClass(columns, rows, pixel.DirectClass)
	if err != nil {
		return nil, err
	}
	s := newAreaScaler(img, scaled)
	srcView := img.AcquireView()
	defer srcView.Release()
	dstView := scaled.AcquireView()
	defer dstView.Release()
	prog := newProgress(img, scaleTag, int64(rows))
	for y := 0; y < rows; y++ {
		if err := s.row(y, srcView, dstView); err != nil {
			return nil, fmt.Errorf("failed to scale %q: %w", img.Filename, err)
		}
		prog.step()
		if prog.cancelled() {
			return nil, fmt.Errorf("failed to scale %q: %w", img.Filename, ErrCancelled)
		}
	}
	scaled.Type = img.Type
	return scaled, nil
}

// areaScaler carries the running state of ScaleImage between output rows.
// Vectors hold n accumulated channels per pixel: red, green, blue, then
// black and alpha when present.
type areaScaler struct {
	src, dst *pixel.Image
	srcOff   []int
	dstOff   []int
	n        int

	xVector, yVector []float64
	scanline         []float64
	scaleScanline    []float64
	pixel            []float64

	nextRow       bool
	numberRows    int
	next          int
	scaleY, spanY float64
}

func newAreaScaler(src, dst *pixel.Image) *areaScaler {
	sl, dl := src.Layout(), dst.Layout()
	srcOff, dstOff := []int{0, 1, 2}, []int{0, 1, 2}
	if sl.Black >= 0 {
		srcOff, dstOff = append(srcOff, sl.Black), append(dstOff, dl.Black)
	}
	if sl.Alpha >= 0 {
		srcOff, dstOff = append(srcOff, sl.Alpha), append(dstOff, dl.Alpha)
	}
	n := len(srcOff)
	s := &areaScaler{
		src:     src,
		dst:     dst,
		srcOff:  srcOff,
		dstOff:  dstOff,
		n:       n,
		xVector: make([]float64, src.Columns()*n),
		yVector: make([]float64, src.Columns()*n),
		// One spare pixel absorbs rounding at the right edge.
		scaleScanline: make([]float64, (dst.Columns()+1)*n),
		pixel:         make([]float64, n),
		nextRow:       true,
		spanY:         1.0,
	}
	s.scaleY = s.yFactor()
	s.scanline = s.xVector
	if src.Rows() != dst.Rows() {
		s.scanline = make([]float64, src.Columns()*n)
	}
	return s
}

func (s *areaScaler) yFactor() float64 {
	return float64(s.dst.Rows()) / float64(s.src.Rows())
}

func (s *areaScaler) readRow(view *pixel.View) error {
	p, err := view.GetPixels(0, s.next, s.src.Columns(), 1)
	if err != nil {
		return err
	}
	s.next++
	channels := s.src.Layout().Channels
	for x := 0; x < s.src.Columns(); x++ {
		for k, off := range s.srcOff {
			s.xVector[x*s.n+k] = float64(p[x*channels+off])
		}
	}
	return nil
}

func (s *areaScaler) row(y int, srcView, dstView *pixel.View) error {
	q, err := dstView.QueuePixels(0, y, s.dst.Columns(), 1)
	if err != nil {
		return err
	}
	if s.src.Rows() == s.dst.Rows() {
		if err := s.readRow(srcView); err != nil {
			return err
		}
	} else if err := s.scaleRows(srcView); err != nil {
		return err
	}
	line := s.scanline
	if s.src.Columns() != s.dst.Columns() {
		s.scaleColumns()
		line = s.scaleScanline
	}
	channels := s.dst.Layout().Channels
	for x := 0; x < s.dst.Columns(); x++ {
		for k, off := range s.dstOff {
			q[x*channels+off] = pixel.ClampToQuantum(line[x*s.n+k])
		}
	}
	return dstView.SyncPixels()
}

// scaleRows fills scanline with the weighted sum of the source rows covered
// by the next output row.
func (s *areaScaler) scaleRows(view *pixel.View) error {
	for s.scaleY < s.spanY {
		if s.nextRow && s.numberRows < s.src.Rows() {
			if err := s.readRow(view); err != nil {
				return err
			}
			s.numberRows++
		}
		for i, v := range s.xVector {
			s.yVector[i] += s.scaleY * v
		}
		s.spanY -= s.scaleY
		s.scaleY = s.yFactor()
		s.nextRow = true
	}
	if s.nextRow && s.numberRows < s.src.Rows() {
		if err := s.readRow(view); err != nil {
			return err
		}
		s.numberRows++
		s.nextRow = false
	}
	for i, v := range s.xVector {
		s.scanline[i] = s.yVector[i] + s.spanY*v
		s.yVector[i] = 0
	}
	s.scaleY -= s.spanY
	if s.scaleY <= 0 {
		s.scaleY = s.yFactor()
		s.nextRow = true
	}
	s.spanY = 1.0
	return nil
}

// scaleColumns resamples scanline into scaleScanline.
func (s *areaScaler) scaleColumns() {
	n := s.n
	for k := range s.pixel {
		s.pixel[k] = 0
	}
	nextColumn := false
	spanX := 1.0
	t := 0
	last := len(s.scaleScanline)/n - 1
	xFactor := float64(s.dst.Columns()) / float64(s.src.Columns())
	for x := 0; x < s.src.Columns(); x++ {
		in := s.scanline[x*n : (x+1)*n]
		scaleX := xFactor
		for scaleX >= spanX {
			if nextColumn {
				for k := range s.pixel {
					s.pixel[k] = 0
				}
				t = min(t+1, last)
			}
			for k := range s.pixel {
				s.pixel[k] += spanX * in[k]
			}
			copy(s.scaleScanline[t*n:(t+1)*n], s.pixel)
			scaleX -= spanX
			spanX = 1.0
			nextColumn = true
		}
		if scaleX > 0 {
			if nextColumn {
				for k := range s.pixel {
					s.pixel[k] = 0
				}
				nextColumn = false
				t = min(t+1, last)
			}
			for k := range s.pixel {
				s.pixel[k] += scaleX * in[k]
			}
			spanX -= scaleX
		}
	}
	if spanX > 0 {
		in := s.scanline[(s.src.Columns()-1)*n:]
		for k := range s.pixel {
			s.pixel[k] += spanX * in[k]
		}
	}
	if !nextColumn && t < s.dst.Columns() {
		copy(s.scaleScanline[t*n:(t+1)*n], s.pixel)
	}
}
