package schema

import "fmt"

// Zero returns the smallest valid typed value for d: false, 0, "", an empty
// array, absent for optional and nullable, an object with every required
// field zeroed, and the first case of a union.
func Zero(d Descriptor) (any, error) {
	return zero(d, map[*RecursiveType]bool{})
}

func zero(d Descriptor, visiting map[*RecursiveType]bool) (any, error) {
	switch t := d.(type) {
	case *BooleanType:
		return false, nil
	case *NumberType:
		return float64(0), nil
	case *StringType:
		return "", nil
	case *OptionalType, *NullableType:
		return nil, nil
	case *ArrayType:
		return []any{}, nil
	case *ObjectType:
		rec := make(Record, len(t.Fields))
		for _, f := range t.Fields {
			if canBeAbsent(f.Type) {
				continue
			}
			v, err := zero(f.Type, visiting)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			rec[f.Name] = v
		}
		return rec, nil
	case *UnionType:
		if len(t.Cases) == 0 {
			return nil, fmt.Errorf("%w: empty union", ErrCyclicDefault)
		}
		c := t.Cases[0]
		v, err := zero(c.Type, visiting)
		if err != nil {
			return nil, fmt.Errorf("variant %q: %w", c.Tag, err)
		}
		return Variant{Tag: c.Tag, Value: v}, nil
	case *RecursiveType:
		if visiting[t] {
			return nil, fmt.Errorf("%w: %s", ErrCyclicDefault, t.Name)
		}
		visiting[t] = true
		defer delete(visiting, t)
		return zero(t.Resolve(), visiting)
	case *InvariantType:
		raw, err := zero(t.Inner, visiting)
		if err != nil {
			return nil, err
		}
		return t.decode(raw)
	default:
		return nil, fmt.Errorf("schema: unsupported descriptor %T", d)
	}
}
