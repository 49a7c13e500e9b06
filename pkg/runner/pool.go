package runner

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/types"
)

// Future is the pending result of a dispatched command.
type Future struct {
	target  types.RunTarget
	done    chan struct{}
	outcome Outcome
}

// Wait blocks until the command finishes.
func (f *Future) Wait() Outcome {
	<-f.done
	return f.outcome
}

// Done is closed when the command finishes.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Pool accepts targets one at a time and starts them in submission order,
// at most Jobs at once. Submit never blocks, so callers can keep producing
// work while earlier commands run.
type Pool struct {
	runner *Runner
	ctx    context.Context
	group  errgroup.Group

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*Future
	futures []*Future
	closed  bool

	dispatched chan struct{}
}

// Start creates a pool bound to ctx and begins dispatching.
func (r *Runner) Start(ctx context.Context) *Pool {
	p := &Pool{
		runner:     r,
		ctx:        ctx,
		dispatched: make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	if r.jobs > 0 {
		p.group.SetLimit(r.jobs)
	}
	go p.dispatch()
	return p
}

// Submit queues target and returns its future. Submitting after Close
// panics.
func (p *Pool) Submit(target types.RunTarget) *Future {
	f := &Future{target: target, done: make(chan struct{})}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		panic("runner: submit on closed pool")
	}
	p.queue = append(p.queue, f)
	p.futures = append(p.futures, f)
	p.cond.Signal()
	return f
}

// Close stops accepting targets. Queued targets still run.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.cond.Signal()
	}
}

// Wait closes the pool and joins every submitted command.
func (p *Pool) Wait() Report {
	p.Close()
	<-p.dispatched
	_ = p.group.Wait()

	p.mu.Lock()
	futures := p.futures
	p.mu.Unlock()

	report := Report{Outcomes: make([]Outcome, len(futures))}
	for i, f := range futures {
		report.Outcomes[i] = f.Wait()
	}
	return report
}

func (p *Pool) dispatch() {
	defer close(p.dispatched)
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		f := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		// Go blocks while the limit is reached, which keeps start order.
		p.group.Go(func() error {
			defer close(f.done)
			f.outcome = p.runner.execute(p.ctx, f.target)
			return nil
		})
	}
}

// Report collects the outcomes of a run in dispatch order.
type Report struct {
	Outcomes []Outcome
}

// Failed returns the outcomes that failed
func (r Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Err joins the errors of every failed command, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, o := range r.Failed() {
		errs = append(errs, o.Err)
	}
	return errors.Join(errs...)
}
