package reactive

// source is anything a computation can depend on.
type source interface {
	addObserver(c *computation)
	removeObserver(c *computation)
	depth() int
}

type computation struct {
	rt       *Runtime
	fn       func()
	sources  []source
	level    int
	queued   bool
	derived  bool
	disposed bool
}

func newComputation(rt *Runtime, fn func(), derived bool) *computation {
	return &computation{rt: rt, fn: fn, derived: derived}
}

// run re-executes fn, dropping the previous dependency set first so that
// dependencies always reflect the latest run.
func (c *computation) run() {
	if c.disposed {
		return
	}
	c.clearSources()
	c.level = 0

	prev := c.rt.observer
	c.rt.observer = c
	defer func() { c.rt.observer = prev }()
	c.fn()
}

func (c *computation) addSource(src source) {
	for _, s := range c.sources {
		if s == src {
			return
		}
	}
	c.sources = append(c.sources, src)
	src.addObserver(c)
	if l := src.depth() + 1; l > c.level {
		c.level = l
	}
}

func (c *computation) clearSources() {
	for _, s := range c.sources {
		s.removeObserver(c)
	}
	c.sources = c.sources[:0]
}

func (c *computation) dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.queued = false
	c.clearSources()
}

// observerList is embedded by every source.
type observerList struct {
	observers []*computation
}

func (l *observerList) addObserver(c *computation) {
	l.observers = append(l.observers, c)
}

func (l *observerList) removeObserver(c *computation) {
	for i, o := range l.observers {
		if o == c {
			l.observers = append(l.observers[:i], l.observers[i+1:]...)
			return
		}
	}
}

// snapshot copies the list so scheduling is not affected by observers
// re-subscribing while they run.
func (l *observerList) snapshot() []*computation {
	if len(l.observers) == 0 {
		return nil
	}
	out := make([]*computation, len(l.observers))
	copy(out, l.observers)
	return out
}
