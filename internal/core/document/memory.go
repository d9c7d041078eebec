package document

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"

	"github.com/zeusync/docworld/internal/core/reactive"
)

var _ Tree = (*Memory)(nil)

type subscriber struct {
	id uint64
	fn func(Change)
}

// Memory is an in-process Tree. It stands in for a replicated document in
// tests and tools, and backs the local state of every component.
//
// When created with a runtime, reads are tracked through a revision counter
// and every commit is delivered inside one batch.
type Memory struct {
	arena    arena
	root     *node
	subs     []subscriber
	nextSub  uint64
	revision uint64
	inTx     bool

	rt  *reactive.Runtime
	rev reactive.Counter
}

// MemoryOption configures a Memory document.
type MemoryOption func(*Memory)

// WithRuntime makes reads reactive.
func WithRuntime(rt *reactive.Runtime) MemoryOption {
	return func(m *Memory) {
		m.rt = rt
		m.rev = reactive.NewCounter(rt)
	}
}

// NewMemory creates a document holding a copy of initial.
func NewMemory(initial map[string]any, opts ...MemoryOption) (*Memory, error) {
	m := &Memory{}
	for _, opt := range opts {
		opt(m)
	}
	if initial == nil {
		initial = map[string]any{}
	}
	root, err := m.arena.build(initial)
	if err != nil {
		return nil, err
	}
	m.root = root
	return m, nil
}

// Unmarshal creates a document from JSON bytes.
func Unmarshal(data []byte, opts ...MemoryOption) (*Memory, error) {
	var initial map[string]any
	if err := json.Unmarshal(data, &initial); err != nil {
		return nil, eris.Wrap(err, "decode document")
	}
	return NewMemory(initial, opts...)
}

// MarshalJSON encodes the current snapshot.
func (m *Memory) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.root.snapshot())
}

func (m *Memory) track() {
	if m.rt != nil {
		m.rev.Get()
	}
}

// Revision returns the number of committed changes. It is tracked.
func (m *Memory) Revision() uint64 {
	m.track()
	return m.revision
}

// Snapshot returns a deep copy of the document.
func (m *Memory) Snapshot() map[string]any {
	m.track()
	return m.root.snapshot().(map[string]any)
}

// Value returns a deep copy of the subtree at path.
func (m *Memory) Value(path Path) (any, bool) {
	m.track()
	n, ok := m.root.resolve(path)
	if !ok {
		return nil, false
	}
	return n.snapshot(), true
}

// Lookup describes the node at path.
func (m *Memory) Lookup(path Path) (Node, bool) {
	m.track()
	n, ok := m.root.resolve(path)
	if !ok {
		return Node{}, false
	}
	return n.describe(), true
}

// Keys returns the sorted field names of the object at path.
func (m *Memory) Keys(path Path) []string {
	m.track()
	n, ok := m.root.resolve(path)
	if !ok || n.kind != KindObject {
		return nil
	}
	return n.keys()
}

// Subscribe registers fn for committed changes. Subscribers run in
// registration order.
func (m *Memory) Subscribe(fn func(Change)) func() {
	m.nextSub++
	id := m.nextSub
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// Change runs fn as a transaction. Changes started from a subscriber are
// allowed; a Change started inside fn panics.
func (m *Memory) Change(fn func(Tx) error) error {
	return m.change(func(tx *memTx) error { return fn(tx) })
}

func (m *Memory) change(fn func(tx *memTx) error) error {
	if m.inTx {
		panic(ErrNestedChange)
	}
	m.inTx = true
	tx := &memTx{m: m}
	committed := false
	defer func() {
		m.inTx = false
		if !committed {
			tx.rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	committed = true
	m.inTx = false
	if len(tx.patches) == 0 {
		return nil
	}
	m.revision++
	m.publish(Change{Revision: m.revision, Patches: tx.patches})
	return nil
}

func (m *Memory) publish(change Change) {
	deliver := func() {
		if m.rt != nil {
			m.rev.Bump()
		}
		subs := make([]subscriber, len(m.subs))
		copy(subs, m.subs)
		for _, s := range subs {
			s.fn(change)
		}
	}
	if m.rt != nil {
		m.rt.Batch(func() { m.rt.Untrack(deliver) })
		return
	}
	deliver()
}

// Replace moves the document to next, committing the minimal set of
// path-scoped edits between the two states. It is how externally merged
// states enter the document.
func (m *Memory) Replace(next map[string]any) error {
	if next == nil {
		next = map[string]any{}
	}
	patch, err := jsondiff.Compare(m.root.snapshot(), next)
	if err != nil {
		return eris.Wrap(err, "diff document")
	}
	if len(patch) == 0 {
		return nil
	}
	return m.change(func(tx *memTx) error {
		return ApplyPatch(tx, nil, patch)
	})
}

// ApplyPatch commits RFC 6902 operations (add, remove, replace) as one
// transaction.
func (m *Memory) ApplyPatch(patch jsondiff.Patch) error {
	return m.change(func(tx *memTx) error {
		return ApplyPatch(tx, nil, patch)
	})
}
