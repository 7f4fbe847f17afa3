package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPool_RunsAllTasks(t *testing.T) {
	pool := NewPool(3)
	var done int32

	for i := 0; i < 20; i++ {
		assert.True(t, pool.Submit(context.Background(), func() {
			atomic.AddInt32(&done, 1)
		}))
	}
	pool.Wait()

	assert.Equal(t, int32(20), atomic.LoadInt32(&done))
}

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := NewPool(2)
	var running, peak int32

	for i := 0; i < 10; i++ {
		pool.Submit(context.Background(), func() {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
		})
	}
	pool.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPool_SubmitCanceled(t *testing.T) {
	pool := NewPool(1)
	release := make(chan struct{})
	pool.Submit(context.Background(), func() { <-release })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, pool.Submit(ctx, func() {}))

	close(release)
	pool.Wait()
}

func TestNewPool_MinimumSize(t *testing.T) {
	assert.Equal(t, 1, NewPool(0).Size())
}
