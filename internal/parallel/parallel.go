// Package parallel splits a range of lines into batches and hands them to a
// bounded number of goroutines.
package parallel

import (
	"errors"
	"sync"
)

// Chunk is a half open range [Start, Stop) of line indices.
type Chunk struct {
	Start int
	Stop  int
}

// Len returns the number of indices in c.
func (c Chunk) Len() int {
	return c.Stop - c.Start
}

// Config holds the batching parameters.
type Config struct {
	// Number of lines in each job that the workers take on.
	BatchSize int
	// Maximum number of workers. 0 and 1 both run on the calling goroutine.
	Limit int
}

// DefaultConfig is used when callers have no preference.
var DefaultConfig = Config{BatchSize: 64, Limit: 4}

func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return errors.New(
			"invalid value for parallel batch size, must be greater than 0",
		)
	}
	if c.Limit < 0 {
		return errors.New(
			"invalid value for parallel limit, must be greater or equal to 0",
		)
	}
	return nil
}

// Run queues every chunk of [start, stop) and calls fn from up to c.Limit
// goroutines. Each call of fn drains the shared channel, so per-worker state
// (scratch buffers, views) can be set up once at the top of fn. Run returns
// once every worker has returned.
func (c Config) Run(start, stop int, fn func(<-chan Chunk)) {
	if stop <= start {
		return
	}
	batch := c.BatchSize
	if batch <= 0 {
		batch = DefaultConfig.BatchSize
	}
	count := (stop-start-1)/batch + 1

	limit := c.Limit
	if limit > count {
		limit = count
	}
	ch := make(chan Chunk, count)
	for i := start; i < stop; i += batch {
		ch <- Chunk{Start: i, Stop: min(i+batch, stop)}
	}
	close(ch)

	if limit <= 1 {
		fn(ch)
		return
	}

	var wg sync.WaitGroup
	for i := 0; i < limit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ch)
		}()
	}
	wg.Wait()
}

// Workers returns the number of goroutines Run would start for n lines.
func (c Config) Workers(n int) int {
	if n <= 0 {
		return 0
	}
	batch := c.BatchSize
	if batch <= 0 {
		batch = DefaultConfig.BatchSize
	}
	count := (n-1)/batch + 1
	if c.Limit > count {
		return count
	}
	if c.Limit <= 1 {
		return 1
	}
	return c.Limit
}
