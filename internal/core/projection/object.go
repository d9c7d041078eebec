package projection

import (
	"fmt"

	"github.com/zeusync/docworld/internal/core/document"
	"github.com/zeusync/docworld/internal/core/schema"
)

// Object is a live view of an object node.
type Object struct {
	view
	t *schema.ObjectType
}

// Schema returns the descriptor of the view.
func (o *Object) Schema() *schema.ObjectType { return o.t }

func (o *Object) field(name string) schema.Descriptor {
	d, ok := o.t.Field(name)
	if !ok {
		panic(fmt.Errorf("%w %q in %s", ErrUnknownField, name, o.t))
	}
	return d
}

// Get returns the field value: a nested view for containers, the decoded
// value for everything else, nil when an optional field is absent.
func (o *Object) Get(name string) any {
	d := o.field(name)
	o.check()
	return o.p.child(o.path.Child(name), d)
}

// Has reports whether the field is present in the document.
func (o *Object) Has(name string) bool {
	o.field(name)
	o.check()
	_, ok := o.p.src.Lookup(o.path.Child(name))
	return ok
}

// Object returns the nested object view of a field.
func (o *Object) Object(name string) *Object {
	v, ok := o.Get(name).(*Object)
	if !ok {
		panic(fmt.Errorf("%w: field %q is not a present object", ErrNotProjectable, name))
	}
	return v
}

// Array returns the nested array view of a field.
func (o *Object) Array(name string) *Array {
	v, ok := o.Get(name).(*Array)
	if !ok {
		panic(fmt.Errorf("%w: field %q is not a present array", ErrNotProjectable, name))
	}
	return v
}

// Set encodes value and writes it to the field with a single put. Setting an
// optional field to nil deletes it.
func (o *Object) Set(name string, value any) error {
	d := o.field(name)
	o.check()
	raw, err := schema.Encode(d, value)
	if err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	path := o.path.Child(name)
	if value == nil {
		return o.p.write(func(tx document.Tx) error {
			if _, ok := tx.Get(path); !ok {
				return nil
			}
			return tx.Delete(path)
		})
	}
	return o.p.write(func(tx document.Tx) error {
		return tx.Put(path, raw)
	})
}

// Keys returns the declared fields present in the document, in declaration
// order.
func (o *Object) Keys() []string {
	o.check()
	keys := make([]string, 0, len(o.t.Fields))
	for _, f := range o.t.Fields {
		if _, ok := o.p.src.Lookup(o.path.Child(f.Name)); ok {
			keys = append(keys, f.Name)
		}
	}
	return keys
}

// Value decodes the whole object.
func (o *Object) Value() schema.Record {
	o.check()
	v, _ := o.p.decode(o.path, o.t)
	return v.(schema.Record)
}
