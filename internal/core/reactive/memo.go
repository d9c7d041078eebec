package reactive

var _ source = (*Memo[int])(nil)

// Memo is a derived value. It recomputes when its dependencies change and
// only notifies its own observers when the result differs.
type Memo[T any] struct {
	observerList
	rt    *Runtime
	comp  *computation
	fn    func() T
	value T
	equal func(a, b T) bool
	ready bool
}

// NewMemo creates and evaluates a memo. Writing signals from fn panics.
func NewMemo[T any](rt *Runtime, fn func() T, equal func(a, b T) bool) *Memo[T] {
	m := &Memo[T]{rt: rt, fn: fn, equal: equal}
	m.comp = newComputation(rt, m.recompute, true)
	rt.batchDepth++
	defer func() {
		rt.batchDepth--
		if rt.batchDepth == 0 {
			rt.flush()
		}
	}()
	m.comp.run()
	return m
}

func (m *Memo[T]) recompute() {
	v := m.fn()
	if m.ready && m.equal != nil && m.equal(m.value, v) {
		return
	}
	m.value = v
	m.ready = true
	for _, c := range m.snapshot() {
		m.rt.schedule(c)
	}
}

// Get returns the derived value, recomputing first if a dependency changed
// since the last evaluation.
func (m *Memo[T]) Get() T {
	if m.comp.queued && !m.comp.disposed {
		m.comp.queued = false
		m.comp.run()
	}
	m.rt.track(m)
	return m.value
}

// Peek returns the last computed value without tracking.
func (m *Memo[T]) Peek() T {
	return m.value
}

// Dispose detaches the memo from its dependencies.
func (m *Memo[T]) Dispose() {
	m.comp.dispose()
}

func (m *Memo[T]) depth() int { return m.comp.level }
