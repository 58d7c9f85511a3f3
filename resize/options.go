package resize

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/adriansahlman/magickresize/internal/parallel"
)

// PassOrder selects which axis ResizeImage filters first.
type PassOrder int

const (
	// PassAuto picks the order with the smaller intermediate image.
	PassAuto PassOrder = iota
	PassHorizontalFirst
	PassVerticalFirst
)

type options struct {
	parallel parallel.Config
	logger   *slog.Logger
	verbose  io.Writer
	order    PassOrder
}

func defaultOptions() options {
	return options{
		parallel: parallel.Config{
			BatchSize: 8,
			Limit:     runtime.GOMAXPROCS(0),
		},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		verbose: os.Stdout,
	}
}

func (o *options) validate() error {
	if err := o.parallel.Validate(); err != nil {
		return err
	}
	if o.logger == nil {
		return errors.New("logger must not be nil")
	}
	if o.order < PassAuto || o.order > PassVerticalFirst {
		return errors.New("invalid pass order")
	}
	return nil
}

func newOptions(opts []Option) (options, error) {
	o := defaultOptions()
	for i := range opts {
		opts[i].apply(&o)
	}
	if err := o.validate(); err != nil {
		return options{}, err
	}
	return o, nil
}

type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(opts *options) {
	f(opts)
}

// Maximum number of parallel workers (go routines). Defaults to GOMAXPROCS.
func WithParallelLimit(limit int) Option {
	return optionFunc(func(opts *options) {
		opts.parallel.Limit = limit
	})
}

// Number of lines in each job that the workers (go routines) take on.
func WithParallelBatchSize(lines int) Option {
	return optionFunc(func(opts *options) {
		opts.parallel.BatchSize = lines
	})
}

// Logger for filter selection and pass timings, logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(opts *options) {
		opts.logger = logger
	})
}

// Destination of the filter:verbose plot. Defaults to standard output.
func WithVerboseWriter(w io.Writer) Option {
	return optionFunc(func(opts *options) {
		opts.verbose = w
	})
}

// Force the order of the two ResizeImage passes. The result only differs by
// rounding.
func WithPassOrder(order PassOrder) Option {
	return optionFunc(func(opts *options) {
		opts.order = order
	})
}
