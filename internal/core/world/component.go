package world

import (
	"github.com/rotisserie/eris"

	"github.com/zeusync/docworld/internal/core/document"
	"github.com/zeusync/docworld/internal/core/projection"
	"github.com/zeusync/docworld/internal/core/reactive"
	"github.com/zeusync/docworld/internal/core/schema"
	"github.com/zeusync/docworld/internal/core/schema/registry"
)

const stateKey = "state"

var statePath = document.Path{stateKey}

// Component is a typed state container. Its encoded state lives in a small
// reactive document, so reads are tracked and local edits made through the
// State view are path scoped like any other document edit.
type Component struct {
	typ   registry.ComponentType
	store *document.Memory
	proj  *projection.Projector
	owner EntityID
}

// NewComponent builds a component holding value. A nil value starts from
// the zero value of the type.
func NewComponent(rt *reactive.Runtime, typ registry.ComponentType, value any) (*Component, error) {
	if value == nil {
		zero, err := schema.Zero(typ.Schema)
		if err != nil {
			return nil, eris.Wrapf(err, "zero value of %q", typ.Name)
		}
		value = zero
	}
	raw, err := typ.Encode(value)
	if err != nil {
		return nil, err
	}
	return newComponent(rt, typ, raw)
}

// DecodeComponent builds a component from its document form. The stored
// state is the canonical re-encoding.
func DecodeComponent(rt *reactive.Runtime, typ registry.ComponentType, raw any) (*Component, error) {
	canonical, err := canonicalize(typ, raw)
	if err != nil {
		return nil, err
	}
	return newComponent(rt, typ, canonical)
}

func newComponent(rt *reactive.Runtime, typ registry.ComponentType, raw any) (*Component, error) {
	store, err := document.NewMemory(map[string]any{stateKey: raw}, document.WithRuntime(rt))
	if err != nil {
		return nil, eris.Wrapf(err, "component %q", typ.Name)
	}
	return &Component{
		typ:   typ,
		store: store,
		proj:  projection.New(store, nil),
	}, nil
}

func canonicalize(typ registry.ComponentType, raw any) (any, error) {
	v, err := typ.Decode(raw)
	if err != nil {
		return nil, err
	}
	return typ.Encode(v)
}

func (c *Component) Type() registry.ComponentType { return c.typ }

func (c *Component) TypeName() registry.TypeName { return c.typ.Name }

// Owner returns the entity holding c, or "" when unowned.
func (c *Component) Owner() EntityID { return c.owner }

// State returns the live view of the state: *projection.Object or
// *projection.Array depending on the type.
func (c *Component) State() any {
	return c.proj.View(statePath, c.typ.Schema)
}

// Object returns the state as an object view. It panics for array types.
func (c *Component) Object() *projection.Object {
	return c.proj.Object(statePath, c.typ.Schema)
}

// Array returns the state as an array view. It panics for object types.
func (c *Component) Array() *projection.Array {
	return c.proj.Array(statePath, c.typ.Schema)
}

// Encoded returns a copy of the document form of the state. The read is
// tracked.
func (c *Component) Encoded() any {
	raw, _ := c.store.Value(statePath)
	return raw
}

// Value decodes the state. The read is tracked.
func (c *Component) Value() (any, error) {
	return c.typ.Decode(c.Encoded())
}

// Revision counts committed local changes. The read is tracked.
func (c *Component) Revision() uint64 {
	return c.store.Revision()
}

// Replace overwrites the whole state with value.
func (c *Component) Replace(value any) error {
	raw, err := c.typ.Encode(value)
	if err != nil {
		return err
	}
	return c.store.Replace(map[string]any{stateKey: raw})
}

// ReplaceEncoded overwrites the whole state with a document form value.
// Only the parts that differ are written, so views over unchanged
// containers survive.
func (c *Component) ReplaceEncoded(raw any) error {
	canonical, err := canonicalize(c.typ, raw)
	if err != nil {
		return err
	}
	return c.store.Replace(map[string]any{stateKey: canonical})
}

// Subscribe reports committed changes to the state. Patch paths are relative
// to the state root.
func (c *Component) Subscribe(fn func(document.Change)) func() {
	return c.store.Subscribe(func(change document.Change) {
		patches := make([]document.Patch, len(change.Patches))
		for i, p := range change.Patches {
			p.Path = p.Path[1:]
			patches[i] = p
		}
		fn(document.Change{Revision: change.Revision, Patches: patches})
	})
}
