package engine

import (
	"context"
	"sync"
)

// unitTask pairs a transfer unit with its position in the run.
type unitTask struct {
	index int
	unit  TransferUnit
}

// taskHandler processes one unit; failure handling is the handler's job.
type taskHandler func(context.Context, unitTask)

// workerPool fans unit tasks out across a fixed set of workers. It is used
// by the generic copy kind; the width matches the limiter capacity so the
// fan-out can never strand goroutines waiting on permits it also holds.
type workerPool struct {
	workers int
	handler taskHandler
	wg      sync.WaitGroup
}

func newWorkerPool(workers int, handler taskHandler) *workerPool {
	if workers <= 0 {
		workers = 1
	}
	return &workerPool{workers: workers, handler: handler}
}

// run feeds tasks to the workers and blocks until the channel is drained or
// the context is cancelled.
func (p *workerPool) run(ctx context.Context, tasks <-chan unitTask) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				// Prioritize cancellation over draining more work
				select {
				case <-ctx.Done():
					return
				default:
				}

				select {
				case <-ctx.Done():
					return
				case task, ok := <-tasks:
					if !ok {
						return
					}
					p.handler(ctx, task)
				}
			}
		}()
	}
	p.wg.Wait()
}
