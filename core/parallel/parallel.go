// Package parallel provides the fixed-size worker pool used by the
// hyperparameter grid search.
//
// Tasks are submitted up front and collected with a single Wait barrier.
// A failing task does not cancel its siblings; Wait reports the first
// failure once every submitted task has returned.
package parallel

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/svmgrid/pkg/errors"
)

// Pool runs tasks on at most Workers goroutines at a time.
type Pool struct {
	workers int

	mu     sync.Mutex
	group  *errgroup.Group
	closed bool
}

// NewPool creates a pool with the given number of workers.
// A non-positive count means runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{workers: workers}
	p.group = p.newGroup()
	return p
}

func (p *Pool) newGroup() *errgroup.Group {
	g := &errgroup.Group{}
	g.SetLimit(p.workers)
	return g
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Submit schedules fn. It blocks while all workers are busy and returns
// ErrPoolClosed after Shutdown.
func (p *Pool) Submit(fn func() error) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.WithStack(errors.ErrPoolClosed)
	}
	g := p.group
	p.mu.Unlock()

	g.Go(fn)
	return nil
}

// Wait blocks until every task submitted since the previous Wait has
// returned and reports the first error. The pool stays usable afterwards.
// Callers sharing a pool must not interleave batches: a Wait racing a
// Submit from another batch may leave that task to the next Wait.
func (p *Pool) Wait() error {
	p.mu.Lock()
	g := p.group
	p.group = p.newGroup()
	p.mu.Unlock()

	return g.Wait()
}

// Shutdown rejects further submissions. Calling it more than once is a no-op.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Closed reports whether Shutdown has been called.
func (p *Pool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
