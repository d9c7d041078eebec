// Package reactive implements a small synchronous dependency graph: signals
// hold values, memos derive values from other nodes and effects run side
// effects whenever something they read changes.
//
// Everything runs on the caller goroutine. A Runtime is not safe for
// concurrent use; callers serialize access the same way they serialize access
// to the World and the document.
package reactive

import "github.com/zeusync/docworld/pkg/sequence"

const defaultFlushLimit = 100_000

// Runtime owns the tracking context, the batch depth and the pending queue.
type Runtime struct {
	observer   *computation
	batchDepth int
	queue      *sequence.PriorityQueue[*computation]
	flushing   bool
	flushLimit int
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithFlushLimit bounds the number of computations a single flush may run
// before it is considered a feedback loop.
func WithFlushLimit(n int) Option {
	return func(rt *Runtime) {
		if n > 0 {
			rt.flushLimit = n
		}
	}
}

// NewRuntime creates an empty runtime.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		queue:      sequence.NewPriorityQueue[*computation](),
		flushLimit: defaultFlushLimit,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Batch runs fn and defers every triggered computation until the outermost
// batch returns. Observers never see the intermediate states.
func (rt *Runtime) Batch(fn func()) {
	rt.batchDepth++
	completed := false
	defer func() {
		rt.batchDepth--
		if completed && rt.batchDepth == 0 {
			rt.flush()
		}
	}()
	fn()
	completed = true
}

// InBatch reports whether a batch is open.
func (rt *Runtime) InBatch() bool {
	return rt.batchDepth > 0
}

// Untrack runs fn without registering reads as dependencies of the running
// computation.
func (rt *Runtime) Untrack(fn func()) {
	prev := rt.observer
	rt.observer = nil
	defer func() { rt.observer = prev }()
	fn()
}

// Untracked is Untrack for functions returning a value.
func Untracked[T any](rt *Runtime, fn func() T) T {
	var out T
	rt.Untrack(func() { out = fn() })
	return out
}

// Tracking reports whether reads are currently recorded by a computation.
func (rt *Runtime) Tracking() bool {
	return rt.observer != nil
}

func (rt *Runtime) track(src source) {
	if c := rt.observer; c != nil && !c.disposed {
		c.addSource(src)
	}
}

func (rt *Runtime) checkWrite() {
	if c := rt.observer; c != nil && c.derived {
		panic(ErrWriteInMemo)
	}
}

func (rt *Runtime) notify(observers []*computation) {
	for _, c := range observers {
		rt.schedule(c)
	}
	if rt.batchDepth == 0 && rt.observer == nil {
		rt.flush()
	}
}

func (rt *Runtime) schedule(c *computation) {
	if c.queued || c.disposed {
		return
	}
	c.queued = true
	rt.queue.Enqueue(c, -c.level)
}

// flush runs queued computations lowest level first so that derived values
// settle before the effects reading them.
func (rt *Runtime) flush() {
	if rt.flushing {
		return
	}
	rt.flushing = true
	defer func() { rt.flushing = false }()

	for runs := 0; !rt.queue.IsEmpty(); {
		c, _ := rt.queue.Dequeue()
		if !c.queued || c.disposed {
			continue
		}
		c.queued = false

		runs++
		if runs > rt.flushLimit {
			for _, q := range rt.queue.Drain() {
				q.queued = false
			}
			panic(ErrFlushLimit)
		}
		c.run()
	}
}
