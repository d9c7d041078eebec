// Package definition builds schema descriptors from declarative YAML or JSON
// definitions. Named types may refer to each other, and to themselves,
// through ref.
package definition

import (
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/docworld/internal/core/schema"
)

var (
	ErrUnknownKind = errors.New("definition: unknown kind")
	ErrDanglingRef = errors.New("definition: unknown type reference")
	ErrAliasCycle  = errors.New("definition: reference cycle without structure")
	ErrMalformed   = errors.New("definition: malformed")
)

const (
	KindBoolean  = "boolean"
	KindNumber   = "number"
	KindString   = "string"
	KindOptional = "optional"
	KindNullable = "nullable"
	KindArray    = "array"
	KindObject   = "object"
	KindUnion    = "union"
	KindRef      = "ref"
)

// Def is the declarative form of a descriptor.
type Def struct {
	Kind     string       `yaml:"kind" json:"kind"`
	Of       *Def         `yaml:"of,omitempty" json:"of,omitempty"`
	Fields   []FieldDef   `yaml:"fields,omitempty" json:"fields,omitempty"`
	Variants []VariantDef `yaml:"variants,omitempty" json:"variants,omitempty"`
	Ref      string       `yaml:"ref,omitempty" json:"ref,omitempty"`
}

type FieldDef struct {
	Name string `yaml:"name" json:"name"`
	Def  `yaml:",inline"`
}

type VariantDef struct {
	Tag string `yaml:"tag" json:"tag"`
	Def `yaml:",inline"`
}

// ParseYAML reads a map of named definitions.
func ParseYAML(data []byte) (map[string]Def, error) {
	var defs map[string]Def
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return defs, nil
}

// ParseJSON reads a map of named definitions.
func ParseJSON(data []byte) (map[string]Def, error) {
	var defs map[string]Def
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return defs, nil
}

// Library holds compiled named types.
type Library struct {
	defs  map[string]Def
	refs  map[string]*schema.RecursiveType
	built map[string]schema.Descriptor
}

// Compile builds every named definition in types.
func Compile(types map[string]Def) (*Library, error) {
	lib := &Library{
		defs:  types,
		refs:  make(map[string]*schema.RecursiveType),
		built: make(map[string]schema.Descriptor, len(types)),
	}

	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		d, err := lib.Build(types[name])
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", name, err)
		}
		lib.built[name] = d
	}
	for _, name := range names {
		if err := lib.checkAlias(name); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// Descriptor returns the compiled descriptor of a named type.
func (l *Library) Descriptor(name string) (schema.Descriptor, bool) {
	d, ok := l.built[name]
	return d, ok
}

// Names returns the named types in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.built))
	for name := range l.built {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build compiles def. Refs resolve against the library's named types.
func (l *Library) Build(def Def) (schema.Descriptor, error) {
	switch def.Kind {
	case KindBoolean:
		return schema.Boolean(), nil
	case KindNumber:
		return schema.Number(), nil
	case KindString:
		return schema.String(), nil

	case KindOptional, KindNullable, KindArray:
		if def.Of == nil {
			return nil, fmt.Errorf("%w: %s requires of", ErrMalformed, def.Kind)
		}
		elem, err := l.Build(*def.Of)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", def.Kind, err)
		}
		switch def.Kind {
		case KindOptional:
			return schema.Optional(elem), nil
		case KindNullable:
			return schema.Nullable(elem), nil
		default:
			return schema.Array(elem), nil
		}

	case KindObject:
		fields := make([]schema.Field, 0, len(def.Fields))
		seen := make(map[string]bool, len(def.Fields))
		for _, f := range def.Fields {
			if f.Name == "" || seen[f.Name] {
				return nil, fmt.Errorf("%w: empty or duplicate field %q", ErrMalformed, f.Name)
			}
			seen[f.Name] = true
			d, err := l.Build(f.Def)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			fields = append(fields, schema.Prop(f.Name, d))
		}
		return schema.Object(fields...), nil

	case KindUnion:
		if len(def.Variants) == 0 {
			return nil, fmt.Errorf("%w: union without variants", ErrMalformed)
		}
		cases := make([]schema.Case, 0, len(def.Variants))
		seen := make(map[string]bool, len(def.Variants))
		for _, v := range def.Variants {
			if v.Tag == "" || seen[v.Tag] {
				return nil, fmt.Errorf("%w: empty or duplicate variant %q", ErrMalformed, v.Tag)
			}
			seen[v.Tag] = true
			d, err := l.Build(v.Def)
			if err != nil {
				return nil, fmt.Errorf("variant %q: %w", v.Tag, err)
			}
			cases = append(cases, schema.When(v.Tag, d))
		}
		return schema.TaggedUnion(cases...), nil

	case KindRef:
		return l.ref(def.Ref)

	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, def.Kind)
	}
}

func (l *Library) ref(name string) (schema.Descriptor, error) {
	if _, ok := l.defs[name]; !ok {
		return nil, fmt.Errorf("%w %q", ErrDanglingRef, name)
	}
	if r, ok := l.refs[name]; ok {
		return r, nil
	}
	r := schema.Recursive(name, func() schema.Descriptor { return l.built[name] })
	l.refs[name] = r
	return r, nil
}

// checkAlias rejects names that only ever refer to other names and come back
// to themselves, since they describe no value.
func (l *Library) checkAlias(name string) error {
	seen := map[string]bool{}
	for cur := name; ; {
		def := l.defs[cur]
		if def.Kind != KindRef {
			return nil
		}
		if seen[cur] {
			return fmt.Errorf("%w: %q", ErrAliasCycle, name)
		}
		seen[cur] = true
		cur = def.Ref
	}
}
