package projection

import (
	"fmt"

	"github.com/zeusync/docworld/internal/core/document"
	"github.com/zeusync/docworld/internal/core/schema"
	"github.com/zeusync/docworld/pkg/sequence"
)

// Array is a live view of an array node.
type Array struct {
	view
	t *schema.ArrayType
}

// Schema returns the descriptor of the view.
func (a *Array) Schema() *schema.ArrayType { return a.t }

// Len returns the number of items.
func (a *Array) Len() int {
	a.check()
	node, _ := a.p.src.Lookup(a.path)
	return node.Len
}

func (a *Array) bounds(i, limit int) {
	if i < 0 || i >= limit {
		panic(fmt.Errorf("%w: %d of %d at %s", document.ErrIndexOutOfRange, i, limit, a.path))
	}
}

// At returns item i: a nested view for containers, the decoded value
// otherwise.
func (a *Array) At(i int) any {
	a.bounds(i, a.Len())
	return a.p.child(a.path.Index(i), a.t.Elem)
}

// Object returns item i as an object view.
func (a *Array) Object(i int) *Object {
	v, ok := a.At(i).(*Object)
	if !ok {
		panic(fmt.Errorf("%w: item %d is not an object", ErrNotProjectable, i))
	}
	return v
}

// Array returns item i as an array view.
func (a *Array) Array(i int) *Array {
	v, ok := a.At(i).(*Array)
	if !ok {
		panic(fmt.Errorf("%w: item %d is not an array", ErrNotProjectable, i))
	}
	return v
}

// Set replaces item i with a single put.
func (a *Array) Set(i int, value any) error {
	a.bounds(i, a.Len())
	raw, err := schema.Encode(a.t.Elem, value)
	if err != nil {
		return fmt.Errorf("index %d: %w", i, err)
	}
	path := a.path.Index(i)
	return a.p.write(func(tx document.Tx) error {
		return tx.Put(path, raw)
	})
}

// Append adds values at the end with a single insert.
func (a *Array) Append(values ...any) error {
	return a.Insert(a.Len(), values...)
}

// Insert adds values before position i with a single insert.
func (a *Array) Insert(i int, values ...any) error {
	if len(values) == 0 {
		return nil
	}
	a.bounds(i, a.Len()+1)
	raw, err := a.encodeAll(i, values)
	if err != nil {
		return err
	}
	path := a.path.Index(i)
	return a.p.write(func(tx document.Tx) error {
		return tx.Insert(path, raw...)
	})
}

// Delete removes item i.
func (a *Array) Delete(i int) error {
	a.bounds(i, a.Len())
	path := a.path.Index(i)
	return a.p.write(func(tx document.Tx) error {
		return tx.Delete(path)
	})
}

// Splice removes count items at i and inserts values in their place.
func (a *Array) Splice(i, count int, values ...any) error {
	n := a.Len()
	a.bounds(i, n+1)
	if count < 0 || i+count > n {
		panic(fmt.Errorf("%w: splice %d+%d of %d at %s", document.ErrIndexOutOfRange, i, count, n, a.path))
	}
	raw, err := a.encodeAll(i, values)
	if err != nil {
		return err
	}
	path := a.path.Index(i)
	return a.p.write(func(tx document.Tx) error {
		return tx.Splice(path, count, raw...)
	})
}

// Values lazily walks the items the same way At does.
func (a *Array) Values() *sequence.Iterator[any] {
	return sequence.FromSeq(func(yield func(any) bool) {
		for i := 0; i < a.Len(); i++ {
			if !yield(a.At(i)) {
				return
			}
		}
	})
}

// Value decodes the whole array.
func (a *Array) Value() []any {
	a.check()
	v, _ := a.p.decode(a.path, a.t)
	return v.([]any)
}

func (a *Array) encodeAll(at int, values []any) ([]any, error) {
	raw := make([]any, len(values))
	for j, v := range values {
		e, err := schema.Encode(a.t.Elem, v)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", at+j, err)
		}
		raw[j] = e
	}
	return raw, nil
}
