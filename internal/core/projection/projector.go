// Package projection exposes documents as live Object and Array views shaped
// by a schema descriptor. Reads decode straight from the document; every
// write becomes exactly one path scoped mutation.
package projection

import (
	"fmt"

	"github.com/zeusync/docworld/internal/core/document"
	"github.com/zeusync/docworld/internal/core/schema"
)

// Applier runs a mutation against the projected document.
type Applier func(fn func(document.Tx) error) error

type viewKey struct {
	id document.NodeID
	d  schema.Descriptor
}

// Projector hands out views over a document tree. Views are cached per node
// and descriptor, so projecting the same node twice yields the same view.
type Projector struct {
	src     document.Tree
	apply   Applier
	views   map[viewKey]any
	reading int
}

// New builds a projector over src. A nil apply writes through src.Change.
func New(src document.Tree, apply Applier) *Projector {
	if apply == nil {
		apply = src.Change
	}
	return &Projector{src: src, apply: apply, views: make(map[viewKey]any)}
}

// View projects the node at path as an *Object or *Array, depending on d.
func (p *Projector) View(path document.Path, d schema.Descriptor) any {
	switch t := schema.Unwrap(d).(type) {
	case *schema.ObjectType:
		return p.object(path, t)
	case *schema.ArrayType:
		return p.array(path, t)
	default:
		panic(fmt.Errorf("%w: %s at %s", ErrNotProjectable, d, path))
	}
}

// Object projects the object at path.
func (p *Projector) Object(path document.Path, d schema.Descriptor) *Object {
	t, ok := schema.Unwrap(d).(*schema.ObjectType)
	if !ok {
		panic(fmt.Errorf("%w: %s is not an object", ErrNotProjectable, d))
	}
	return p.object(path, t)
}

// Array projects the array at path.
func (p *Projector) Array(path document.Path, d schema.Descriptor) *Array {
	t, ok := schema.Unwrap(d).(*schema.ArrayType)
	if !ok {
		panic(fmt.Errorf("%w: %s is not an array", ErrNotProjectable, d))
	}
	return p.array(path, t)
}

// Len returns the number of cached views.
func (p *Projector) Len() int {
	return len(p.views)
}

// Prune drops cached views whose node is gone.
func (p *Projector) Prune() {
	for key, v := range p.views {
		node, ok := p.src.Lookup(pathOf(v))
		if !ok || node.ID != key.id {
			delete(p.views, key)
		}
	}
}

func (p *Projector) object(path document.Path, t *schema.ObjectType) *Object {
	node := p.lookup(path, document.KindObject)
	key := viewKey{id: node.ID, d: t}
	if v, ok := p.views[key].(*Object); ok {
		v.path = path.Clone()
		return v
	}
	v := &Object{view: view{p: p, id: node.ID, path: path.Clone()}, t: t}
	p.views[key] = v
	return v
}

func (p *Projector) array(path document.Path, t *schema.ArrayType) *Array {
	node := p.lookup(path, document.KindArray)
	key := viewKey{id: node.ID, d: t}
	if v, ok := p.views[key].(*Array); ok {
		v.path = path.Clone()
		return v
	}
	v := &Array{view: view{p: p, id: node.ID, path: path.Clone()}, t: t}
	p.views[key] = v
	return v
}

func (p *Projector) lookup(path document.Path, kind document.Kind) document.Node {
	node, ok := p.src.Lookup(path)
	if !ok {
		panic(fmt.Errorf("%w %s", ErrMissingNode, path))
	}
	if node.Kind != kind {
		panic(fmt.Errorf("%w: expected %s at %s, found %s", ErrNotProjectable, kind, path, node.Kind))
	}
	return node
}

// decode reads and decodes the value at path. Writes issued while decoding,
// e.g. from an invariant hook, panic.
func (p *Projector) decode(path document.Path, d schema.Descriptor) (any, bool) {
	raw, ok := p.src.Value(path)
	if !ok {
		return nil, false
	}
	p.reading++
	defer func() { p.reading-- }()
	v, err := schema.Decode(d, raw)
	if err != nil {
		panic(fmt.Errorf("%w at %s: %w", ErrDecode, path, err))
	}
	return v, true
}

func (p *Projector) write(fn func(document.Tx) error) error {
	if p.reading > 0 {
		panic(ErrWriteDuringRead)
	}
	return p.apply(fn)
}

// child projects the node at path with d when d describes a container, and
// decodes it otherwise. Absent and null values of optional containers are
// returned as nil and schema.Null{}.
func (p *Projector) child(path document.Path, d schema.Descriptor) any {
	inner := d
	switch t := schema.Unwrap(d).(type) {
	case *schema.OptionalType:
		inner = t.Elem
	case *schema.NullableType:
		inner = t.Elem
	}
	if !schema.IsContainer(inner) {
		v, _ := p.decode(path, d)
		return v
	}

	node, ok := p.src.Lookup(path)
	switch {
	case !ok:
		if inner != d {
			return nil
		}
		panic(fmt.Errorf("%w %s", ErrMissingNode, path))
	case node.Kind == document.KindNull:
		if inner != d {
			v, _ := p.decode(path, d)
			return v
		}
		panic(fmt.Errorf("%w at %s: %w", ErrDecode, path, schema.ErrTypeMismatch))
	}
	return p.View(path, inner)
}

type view struct {
	p    *Projector
	id   document.NodeID
	path document.Path
}

func (v *view) check() {
	node, ok := v.p.src.Lookup(v.path)
	if !ok || node.ID != v.id {
		panic(fmt.Errorf("%w at %s", ErrDetached, v.path))
	}
}

// Path returns the current path of the view.
func (v *view) Path() document.Path { return v.path.Clone() }

// ID returns the node id the view is bound to.
func (v *view) ID() document.NodeID { return v.id }

// Attached reports whether the view still points at its node.
func (v *view) Attached() bool {
	node, ok := v.p.src.Lookup(v.path)
	return ok && node.ID == v.id
}

func pathOf(v any) document.Path {
	switch x := v.(type) {
	case *Object:
		return x.path
	case *Array:
		return x.path
	default:
		return nil
	}
}
