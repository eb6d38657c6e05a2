// Package parallel splits per-row work of a batch across goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how batch rows are distributed.
type Config struct {
	Enabled bool // Run on multiple goroutines.
	Workers int  // Upper bound on goroutines; <= 0 means runtime.NumCPU().
	MinRows int  // Minimum rows per goroutine; smaller batches run inline.
}

// DefaultConfig enables parallelism on multi-core machines.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled: n > 1,
		Workers: n,
		MinRows: 8,
	}
}

// Sequential returns a config that always runs inline.
func Sequential() Config {
	return Config{}
}

// chunk returns the rows per goroutine for n rows, or n when the work
// should run inline.
func (c Config) chunk(n int) int {
	if !c.Enabled || n < 2*max(c.MinRows, 1) {
		return n
	}
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return max((n+workers-1)/workers, c.MinRows, 1)
}

// ForRange calls f(start, end) over disjoint half-open ranges covering
// [0, n). Ranges may run concurrently; f must only write state owned by its
// own rows.
func ForRange(n int, f func(start, end int), cfg Config) {
	if n <= 0 {
		return
	}
	size := cfg.chunk(n)
	if size >= n {
		f(0, n)
		return
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(start, end)
		}()
	}
	wg.Wait()
}

// For calls f(i) for every i in [0, n).
func For(n int, f func(i int), cfg Config) {
	ForRange(n, func(start, end int) {
		for i := start; i < end; i++ {
			f(i)
		}
	}, cfg)
}
