package resize

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/adriansahlman/magickresize/pixel"
)

// ErrCancelled is returned when the progress monitor asks to stop.
var ErrCancelled = errors.New("resize cancelled by progress monitor")

// progress counts finished lines across the passes of one operation and
// relays them to the image progress monitor. The first false answer stops
// every worker before its next line.
type progress struct {
	img  *pixel.Image
	tag  string
	span int64

	mu     sync.Mutex
	offset int64

	stopped atomic.Bool
}

func newProgress(img *pixel.Image, tag string, span int64) *progress {
	return &progress{img: img, tag: tag, span: span}
}

// cancelled reports whether a previous step was declined.
func (p *progress) cancelled() bool {
	return p.stopped.Load()
}

// step records one finished line.
func (p *progress) step() {
	if p.img.Progress == nil {
		return
	}
	p.mu.Lock()
	proceed := p.img.SetProgress(p.tag, p.offset, p.span)
	p.offset++
	p.mu.Unlock()
	if !proceed {
		p.stopped.Store(true)
	}
}

// lineErrors collects failures of individual lines.
type lineErrors struct {
	mu   sync.Mutex
	errs []error
}

func (l *lineErrors) add(err error) {
	l.mu.Lock()
	l.errs = append(l.errs, err)
	l.mu.Unlock()
}

func (l *lineErrors) err(p *progress) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	errs := l.errs
	if p != nil && p.cancelled() {
		errs = append([]error{ErrCancelled}, errs...)
	}
	return errors.Join(errs...)
}
