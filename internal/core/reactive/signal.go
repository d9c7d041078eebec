package reactive

var _ source = (*Signal[int])(nil)

// Signal is a reactive container: a value plus the computations that read it.
type Signal[T any] struct {
	observerList
	rt    *Runtime
	value T
	equal func(a, b T) bool
}

// NewSignal creates a signal that notifies on every Set.
func NewSignal[T any](rt *Runtime, initial T) *Signal[T] {
	return &Signal[T]{rt: rt, value: initial}
}

// NewValue creates a signal that skips notifications when the new value
// equals the current one.
func NewValue[T comparable](rt *Runtime, initial T) *Signal[T] {
	return NewSignal(rt, initial).WithEquality(func(a, b T) bool { return a == b })
}

// WithEquality sets the comparison used by Set to drop no-op writes.
func (s *Signal[T]) WithEquality(equal func(a, b T) bool) *Signal[T] {
	s.equal = equal
	return s
}

// Get returns the value and records the read in the running computation.
func (s *Signal[T]) Get() T {
	s.rt.track(s)
	return s.value
}

// Peek returns the value without tracking.
func (s *Signal[T]) Peek() T {
	return s.value
}

// Set stores v and schedules observers.
func (s *Signal[T]) Set(v T) {
	s.rt.checkWrite()
	if s.equal != nil && s.equal(s.value, v) {
		return
	}
	s.value = v
	s.rt.notify(s.snapshot())
}

// Update applies fn to the current value.
func (s *Signal[T]) Update(fn func(T) T) {
	s.Set(fn(s.value))
}

// Observers returns the number of computations currently depending on s.
func (s *Signal[T]) Observers() int {
	return len(s.observers)
}

func (s *Signal[T]) depth() int { return 0 }

// Counter is a revision signal used to announce that some external state
// changed without carrying the state itself.
type Counter struct {
	*Signal[uint64]
}

// NewCounter creates a revision counter starting at zero.
func NewCounter(rt *Runtime) Counter {
	return Counter{NewSignal[uint64](rt, 0)}
}

// Bump increments the counter.
func (c Counter) Bump() {
	c.Update(func(v uint64) uint64 { return v + 1 })
}
