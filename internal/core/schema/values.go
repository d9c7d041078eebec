package schema

// Record is the decoded form of an object descriptor. It holds only the
// fields present on the wire.
type Record map[string]any

// Variant is the decoded form of a tagged union.
type Variant struct {
	Tag   string
	Value any
}

// Null is the decoded form of an explicit null under a Nullable descriptor.
// A nil value means absent.
type Null struct{}
