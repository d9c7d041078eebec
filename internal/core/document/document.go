// Package document defines the contract of the replicated JSON document the
// engine synchronizes with, and an in-memory implementation of it.
//
// The engine never talks to storage or the network. A replicated document is
// anything that can hand out snapshots, report changes as path-scoped patches
// and apply a transactional mutation.
package document

// Kind is the JSON kind of a node.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// NodeID is an opaque, stable handle of a node. A node keeps its id for as
// long as it is not replaced; writes below a container never change the
// container id.
type NodeID uint64

// Node describes the node found at a path.
type Node struct {
	ID   NodeID
	Kind Kind
	// Len is the number of fields or items of a container.
	Len int
}

// PatchKind tags the structural edit a Patch describes.
type PatchKind uint8

const (
	// PatchPut sets an object field or replaces an array item.
	PatchPut PatchKind = iota
	// PatchInsert inserts items before an array position.
	PatchInsert
	// PatchDelete removes an object field or an array item.
	PatchDelete
	// PatchSplice removes Count items at an array position and inserts Values.
	PatchSplice
)

func (k PatchKind) String() string {
	switch k {
	case PatchPut:
		return "put"
	case PatchInsert:
		return "insert"
	case PatchDelete:
		return "delete"
	case PatchSplice:
		return "splice"
	default:
		return "unknown"
	}
}

// Patch is one path-scoped edit.
type Patch struct {
	Kind   PatchKind
	Path   Path
	Value  any
	Values []any
	Count  int
}

// Change is delivered to subscribers once per committed transaction.
type Change struct {
	Revision uint64
	Patches  []Patch
}

// Tx is the mutable view handed to a transaction callback.
type Tx interface {
	Get(path Path) (any, bool)
	Put(path Path, value any) error
	Delete(path Path) error
	Insert(path Path, values ...any) error
	Splice(path Path, deleteCount int, values ...any) error
}

// Document is the replicated document collaborator.
type Document interface {
	// Snapshot returns a deep copy of the whole document.
	Snapshot() map[string]any
	// Value returns a deep copy of the subtree at path.
	Value(path Path) (any, bool)
	// Subscribe registers fn for committed changes.
	Subscribe(fn func(Change)) (unsubscribe func())
	// Change applies fn atomically. Returning an error discards every edit
	// made by fn.
	Change(fn func(Tx) error) error
}

// Tree is a Document whose nodes carry stable ids.
type Tree interface {
	Document
	Lookup(path Path) (Node, bool)
}
