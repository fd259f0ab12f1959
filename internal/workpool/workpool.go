// Package workpool runs independent units of work on a bounded goroutine
// pool and waits for all of them before returning.
package workpool

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Size resolves a configured worker count. Zero or negative means one
// worker per available processor.
func Size(workers int) int {
	if workers <= 0 {
		return runtime.NumCPU()
	}
	return workers
}

// Run calls fn(i) for every i in [0, n) on at most Size(workers) goroutines
// and returns once every call has finished. fn must be safe for concurrent use.
func Run(workers, n int, fn func(i int)) error {
	if n <= 0 {
		return nil
	}

	size := Size(workers)
	if size > n {
		size = n
	}

	pool, err := ants.NewPool(size)
	if err != nil {
		return fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			fn(i)
		}
		if err := pool.Submit(task); err != nil {
			// The pool only rejects work once released; fall back to the caller.
			task()
		}
	}
	wg.Wait()
	return nil
}
