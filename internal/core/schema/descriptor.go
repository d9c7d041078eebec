package schema

import (
	"fmt"
	"strings"
	"sync"
)

// Kind identifies a descriptor variant.
type Kind uint8

const (
	KindBoolean Kind = iota + 1
	KindNumber
	KindString
	KindOptional
	KindNullable
	KindArray
	KindObject
	KindUnion
	KindRecursive
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindOptional:
		return "optional"
	case KindNullable:
		return "nullable"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindUnion:
		return "union"
	case KindRecursive:
		return "recursive"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Descriptor describes the shape and encoding of a typed value. The set of
// implementations is closed; descriptors are immutable once built.
type Descriptor interface {
	Kind() Kind
	String() string
	descriptor()
}

type (
	BooleanType struct{}
	NumberType  struct{}
	StringType  struct{}

	OptionalType struct{ Elem Descriptor }
	NullableType struct{ Elem Descriptor }
	ArrayType    struct{ Elem Descriptor }
)

var (
	booleanType = &BooleanType{}
	numberType  = &NumberType{}
	stringType  = &StringType{}
)

func Boolean() Descriptor { return booleanType }
func Number() Descriptor  { return numberType }
func String() Descriptor  { return stringType }

// Optional accepts null or a missing field as absent.
func Optional(elem Descriptor) Descriptor { return &OptionalType{Elem: elem} }

// Nullable is Optional that keeps an explicit null apart from absence.
func Nullable(elem Descriptor) Descriptor { return &NullableType{Elem: elem} }

func Array(elem Descriptor) Descriptor { return &ArrayType{Elem: elem} }

func (*BooleanType) Kind() Kind  { return KindBoolean }
func (*NumberType) Kind() Kind   { return KindNumber }
func (*StringType) Kind() Kind   { return KindString }
func (*OptionalType) Kind() Kind { return KindOptional }
func (*NullableType) Kind() Kind { return KindNullable }
func (*ArrayType) Kind() Kind    { return KindArray }

func (*BooleanType) String() string    { return "boolean" }
func (*NumberType) String() string     { return "number" }
func (*StringType) String() string     { return "string" }
func (t *OptionalType) String() string { return "optional<" + t.Elem.String() + ">" }
func (t *NullableType) String() string { return "nullable<" + t.Elem.String() + ">" }
func (t *ArrayType) String() string    { return t.Elem.String() + "[]" }

func (*BooleanType) descriptor()  {}
func (*NumberType) descriptor()   {}
func (*StringType) descriptor()   {}
func (*OptionalType) descriptor() {}
func (*NullableType) descriptor() {}
func (*ArrayType) descriptor()    {}

// Field is a named member of an object descriptor.
type Field struct {
	Name string
	Type Descriptor
}

// Prop builds a Field.
func Prop(name string, t Descriptor) Field {
	return Field{Name: name, Type: t}
}

// ObjectType is a record with a fixed set of named fields.
type ObjectType struct {
	Fields []Field
	index  map[string]int
}

// Object builds an object descriptor. Duplicate names panic.
func Object(fields ...Field) Descriptor {
	t := &ObjectType{Fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		if _, dup := t.index[f.Name]; dup {
			panic(fmt.Sprintf("schema: duplicate field %q", f.Name))
		}
		t.index[f.Name] = i
	}
	return t
}

// Field returns the descriptor of the named field.
func (t *ObjectType) Field(name string) (Descriptor, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.Fields[i].Type, true
}

func (*ObjectType) Kind() Kind  { return KindObject }
func (*ObjectType) descriptor() {}

func (t *ObjectType) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.Name + ": " + f.Type.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Case is one alternative of a tagged union.
type Case struct {
	Tag  string
	Type Descriptor
}

// When builds a Case.
func When(tag string, t Descriptor) Case {
	return Case{Tag: tag, Type: t}
}

// UnionType is a tagged union. Its wire form is
// {"type": <tag>, "value": <payload>}.
type UnionType struct {
	Cases []Case
	index map[string]int
}

// Wire keys of a tagged union value.
const (
	TagKey   = "type"
	ValueKey = "value"
)

// TaggedUnion builds a union descriptor. Duplicate tags panic.
func TaggedUnion(cases ...Case) Descriptor {
	t := &UnionType{Cases: cases, index: make(map[string]int, len(cases))}
	for i, c := range cases {
		if _, dup := t.index[c.Tag]; dup {
			panic(fmt.Sprintf("schema: duplicate variant %q", c.Tag))
		}
		t.index[c.Tag] = i
	}
	return t
}

// Case returns the payload descriptor registered for tag.
func (t *UnionType) Case(tag string) (Descriptor, bool) {
	i, ok := t.index[tag]
	if !ok {
		return nil, false
	}
	return t.Cases[i].Type, true
}

func (*UnionType) Kind() Kind  { return KindUnion }
func (*UnionType) descriptor() {}

func (t *UnionType) String() string {
	parts := make([]string, len(t.Cases))
	for i, c := range t.Cases {
		parts[i] = c.Tag + "(" + c.Type.String() + ")"
	}
	return strings.Join(parts, " | ")
}

// RecursiveType defers building its target until first use so that a
// descriptor can refer to itself.
type RecursiveType struct {
	Name     string
	thunk    func() Descriptor
	once     sync.Once
	resolved Descriptor
}

// Recursive builds a lazy descriptor. thunk runs at most once.
func Recursive(name string, thunk func() Descriptor) *RecursiveType {
	return &RecursiveType{Name: name, thunk: thunk}
}

// Resolve returns the target descriptor.
func (t *RecursiveType) Resolve() Descriptor {
	t.once.Do(func() {
		t.resolved = t.thunk()
		if t.resolved == nil {
			panic(fmt.Sprintf("schema: recursive %q resolved to nil", t.Name))
		}
	})
	return t.resolved
}

func (*RecursiveType) Kind() Kind       { return KindRecursive }
func (t *RecursiveType) String() string { return t.Name }
func (*RecursiveType) descriptor()      {}

// InvariantType maps values of Inner to domain values and back. The two
// functions are expected to be inverses of each other; nothing checks it.
type InvariantType struct {
	Name   string
	Inner  Descriptor
	decode func(raw any) (any, error)
	encode func(value any) (any, error)
}

// Invariant builds a transform over inner. R is the Go type inner decodes
// to, D the domain type.
func Invariant[R, D any](name string, inner Descriptor, decode func(R) (D, error), encode func(D) R) Descriptor {
	return &InvariantType{
		Name:  name,
		Inner: inner,
		decode: func(raw any) (any, error) {
			r, ok := raw.(R)
			if !ok {
				return nil, fmt.Errorf("%w: expected %T, got %T", ErrInvariant, *new(R), raw)
			}
			return decode(r)
		},
		encode: func(value any) (any, error) {
			d, ok := value.(D)
			if !ok {
				return nil, fmt.Errorf("%w: expected %T, got %T", ErrInvariant, *new(D), value)
			}
			return encode(d), nil
		},
	}
}

func (*InvariantType) Kind() Kind       { return KindInvariant }
func (t *InvariantType) String() string { return t.Name }
func (*InvariantType) descriptor()      {}

// Unwrap strips Recursive indirections.
func Unwrap(d Descriptor) Descriptor {
	for {
		r, ok := d.(*RecursiveType)
		if !ok {
			return d
		}
		d = r.Resolve()
	}
}

// IsContainer reports whether d is an object or array once unwrapped.
func IsContainer(d Descriptor) bool {
	switch Unwrap(d).(type) {
	case *ObjectType, *ArrayType:
		return true
	default:
		return false
	}
}

func canBeAbsent(d Descriptor) bool {
	switch Unwrap(d).(type) {
	case *OptionalType, *NullableType:
		return true
	default:
		return false
	}
}
