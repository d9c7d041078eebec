package reactive

// Effect is a computation run for its side effects.
type Effect struct {
	comp *computation
}

// Dispose stops the effect.
func (e *Effect) Dispose() {
	e.comp.dispose()
}

// Disposed reports whether the effect was stopped.
func (e *Effect) Disposed() bool {
	return e.comp.disposed
}

// Scope owns effects, cleanups and child scopes. Disposing a scope releases
// everything it owns, children first.
type Scope struct {
	rt       *Runtime
	parent   *Scope
	children []*Scope
	effects  []*Effect
	cleanups []func()
	disposed bool
}

// NewScope creates a root scope.
func (rt *Runtime) NewScope() *Scope {
	return &Scope{rt: rt}
}

// Child creates a scope owned by s.
func (s *Scope) Child() *Scope {
	if s.disposed {
		panic(ErrScopeDisposed)
	}
	c := &Scope{rt: s.rt, parent: s}
	s.children = append(s.children, c)
	return c
}

// Effect creates an effect owned by s and runs it once immediately. The
// first run is batched so writes made by fn are flushed after it returns.
func (s *Scope) Effect(fn func()) *Effect {
	if s.disposed {
		panic(ErrScopeDisposed)
	}
	e := &Effect{comp: newComputation(s.rt, fn, false)}
	s.effects = append(s.effects, e)
	s.rt.Batch(e.comp.run)
	return e
}

// OnCleanup registers fn to run when s is disposed.
func (s *Scope) OnCleanup(fn func()) {
	if s.disposed {
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
}

// Disposed reports whether s was released.
func (s *Scope) Disposed() bool {
	return s.disposed
}

// Len returns the number of live child scopes.
func (s *Scope) Len() int {
	return len(s.children)
}

// Dispose releases children, effects and cleanups. It is safe to call more
// than once.
func (s *Scope) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true

	for i := len(s.children) - 1; i >= 0; i-- {
		c := s.children[i]
		c.parent = nil
		c.Dispose()
	}
	s.children = nil

	for _, e := range s.effects {
		e.Dispose()
	}
	s.effects = nil

	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil

	if p := s.parent; p != nil {
		for i, c := range p.children {
			if c == s {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
		s.parent = nil
	}
}
