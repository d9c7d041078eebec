package document

import "github.com/rotisserie/eris"

type memTx struct {
	m       *Memory
	patches []Patch
	undo    []func()
}

func (tx *memTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.patches = nil
}

func (tx *memTx) Get(path Path) (any, bool) {
	n, ok := tx.m.root.resolve(path)
	if !ok {
		return nil, false
	}
	return n.snapshot(), true
}

func (tx *memTx) parent(path Path) (*node, error) {
	parent, ok := tx.m.root.resolve(path.Parent())
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "parent of %q", path.String())
	}
	if parent.kind != KindObject && parent.kind != KindArray {
		return nil, eris.Wrapf(ErrNotContainer, "parent of %q", path.String())
	}
	return parent, nil
}

func (tx *memTx) array(path Path) (*node, int, error) {
	parent, err := tx.parent(path)
	if err != nil {
		return nil, 0, err
	}
	if parent.kind != KindArray {
		return nil, 0, eris.Wrapf(ErrNotContainer, "parent of %q is not an array", path.String())
	}
	i, err := parseIndex(path.Last(), len(parent.items), true)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "%q", path.String())
	}
	return parent, i, nil
}

func (tx *memTx) buildAll(values []any) ([]*node, error) {
	out := make([]*node, len(values))
	for i, v := range values {
		n, err := tx.m.arena.build(v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (tx *memTx) saveItems(parent *node) {
	saved := append([]*node(nil), parent.items...)
	tx.undo = append(tx.undo, func() { parent.items = saved })
}

func (tx *memTx) Put(path Path, value any) error {
	n, err := tx.m.arena.build(value)
	if err != nil {
		return err
	}
	if len(path) == 0 {
		if n.kind != KindObject {
			return ErrRootNotObject
		}
		old := tx.m.root
		tx.m.root = n
		tx.undo = append(tx.undo, func() { tx.m.root = old })
		tx.record(Patch{Kind: PatchPut, Path: Path{}, Value: n.snapshot()})
		return nil
	}

	parent, err := tx.parent(path)
	if err != nil {
		return err
	}
	key := path.Last()
	switch parent.kind {
	case KindObject:
		old, existed := parent.fields[key]
		parent.fields[key] = n
		tx.undo = append(tx.undo, func() {
			if existed {
				parent.fields[key] = old
			} else {
				delete(parent.fields, key)
			}
		})
	case KindArray:
		i, err := parseIndex(key, len(parent.items), true)
		if err != nil {
			return eris.Wrapf(err, "%q", path.String())
		}
		tx.saveItems(parent)
		if i == len(parent.items) {
			parent.items = append(parent.items, n)
		} else {
			parent.items[i] = n
		}
	}
	tx.record(Patch{Kind: PatchPut, Path: path.Clone(), Value: n.snapshot()})
	return nil
}

func (tx *memTx) Delete(path Path) error {
	if len(path) == 0 {
		return ErrRootNotObject
	}
	parent, err := tx.parent(path)
	if err != nil {
		return err
	}
	key := path.Last()
	switch parent.kind {
	case KindObject:
		old, ok := parent.fields[key]
		if !ok {
			return eris.Wrapf(ErrNotFound, "%q", path.String())
		}
		delete(parent.fields, key)
		tx.undo = append(tx.undo, func() { parent.fields[key] = old })
	case KindArray:
		i, err := parseIndex(key, len(parent.items), false)
		if err != nil {
			return eris.Wrapf(err, "%q", path.String())
		}
		tx.saveItems(parent)
		parent.items = append(parent.items[:i:i], parent.items[i+1:]...)
	}
	tx.record(Patch{Kind: PatchDelete, Path: path.Clone()})
	return nil
}

func (tx *memTx) Insert(path Path, values ...any) error {
	parent, i, err := tx.array(path)
	if err != nil {
		return err
	}
	nodes, err := tx.buildAll(values)
	if err != nil {
		return err
	}
	tx.saveItems(parent)
	items := make([]*node, 0, len(parent.items)+len(nodes))
	items = append(items, parent.items[:i]...)
	items = append(items, nodes...)
	parent.items = append(items, parent.items[i:]...)
	tx.record(Patch{Kind: PatchInsert, Path: path.Parent().Index(i), Values: snapshots(nodes)})
	return nil
}

func (tx *memTx) Splice(path Path, deleteCount int, values ...any) error {
	parent, i, err := tx.array(path)
	if err != nil {
		return err
	}
	if deleteCount < 0 || i+deleteCount > len(parent.items) {
		return eris.Wrapf(ErrIndexOutOfRange, "splice %d at %q", deleteCount, path.String())
	}
	nodes, err := tx.buildAll(values)
	if err != nil {
		return err
	}
	tx.saveItems(parent)
	items := make([]*node, 0, len(parent.items)-deleteCount+len(nodes))
	items = append(items, parent.items[:i]...)
	items = append(items, nodes...)
	parent.items = append(items, parent.items[i+deleteCount:]...)
	tx.record(Patch{Kind: PatchSplice, Path: path.Parent().Index(i), Count: deleteCount, Values: snapshots(nodes)})
	return nil
}

func (tx *memTx) record(p Patch) {
	tx.patches = append(tx.patches, p)
}

func (tx *memTx) kindOf(path Path) (Kind, bool) {
	n, ok := tx.m.root.resolve(path)
	if !ok {
		return 0, false
	}
	return n.kind, true
}

func snapshots(nodes []*node) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = n.snapshot()
	}
	return out
}
