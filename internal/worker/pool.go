// internal/worker/pool.go
package worker

import (
	"context"
	"sync"
)

// Pool bounds the number of tasks running at once
type Pool struct {
	wg      sync.WaitGroup
	workers chan struct{}
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		workers: make(chan struct{}, size),
	}
}

// Submit blocks until a worker is free, then runs task on it. It returns
// false without running task if ctx is done first.
func (p *Pool) Submit(ctx context.Context, task func()) bool {
	select {
	case p.workers <- struct{}{}:
	case <-ctx.Done():
		return false
	}

	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.workers
			p.wg.Done()
		}()

		task()
	}()
	return true
}

// Wait waits for all submitted tasks to complete
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Size returns the number of workers
func (p *Pool) Size() int {
	return cap(p.workers)
}
