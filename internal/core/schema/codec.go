package schema

import (
	"fmt"
	"reflect"

	"github.com/goccy/go-json"
)

// Decode converts an untyped JSON value into the typed value described by d.
// Only canonical encodings decode: undeclared object keys and explicit nulls
// for fields that are optional but not nullable are rejected.
func Decode(d Descriptor, in any) (any, error) {
	switch t := d.(type) {
	case *BooleanType:
		b, ok := in.(bool)
		if !ok {
			return nil, mismatch(t, in)
		}
		return b, nil

	case *NumberType:
		f, ok := toFloat(in)
		if !ok {
			return nil, mismatch(t, in)
		}
		return f, nil

	case *StringType:
		s, ok := in.(string)
		if !ok {
			return nil, mismatch(t, in)
		}
		return s, nil

	case *OptionalType:
		if in == nil {
			return nil, nil
		}
		return Decode(t.Elem, in)

	case *NullableType:
		if in == nil {
			return Null{}, nil
		}
		return Decode(t.Elem, in)

	case *ArrayType:
		items, ok := in.([]any)
		if !ok {
			return nil, mismatch(t, in)
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := Decode(t.Elem, item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil

	case *ObjectType:
		obj, ok := asObject(in)
		if !ok {
			return nil, mismatch(t, in)
		}
		if key, ok := undeclared(t, obj); ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownField, key)
		}
		out := make(Record, len(t.Fields))
		for _, f := range t.Fields {
			raw, present := obj[f.Name]
			if !present {
				if canBeAbsent(f.Type) {
					continue
				}
				return nil, fmt.Errorf("%w %q", ErrMissingField, f.Name)
			}
			v, err := Decode(presentAs(f.Type), raw)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			if v != nil {
				out[f.Name] = v
			}
		}
		return out, nil

	case *UnionType:
		obj, ok := asObject(in)
		if !ok {
			return nil, mismatch(t, in)
		}
		tag, ok := obj[TagKey].(string)
		if !ok {
			return nil, fmt.Errorf("%w: missing %q discriminant", ErrUnknownVariant, TagKey)
		}
		payload, ok := t.Case(tag)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownVariant, tag)
		}
		for key := range obj {
			if key != TagKey && key != ValueKey {
				return nil, fmt.Errorf("variant %q: %w %q", tag, ErrUnknownField, key)
			}
		}
		raw, present := obj[ValueKey]
		if present {
			payload = presentAs(payload)
		}
		v, err := Decode(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("variant %q: %w", tag, err)
		}
		return Variant{Tag: tag, Value: v}, nil

	case *RecursiveType:
		return Decode(t.Resolve(), in)

	case *InvariantType:
		raw, err := Decode(t.Inner, in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name, err)
		}
		v, err := t.decode(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name, err)
		}
		return v, nil

	default:
		return nil, fmt.Errorf("schema: unsupported descriptor %T", d)
	}
}

// Encode converts a typed value into its untyped JSON form. An absent
// value encodes as nil.
func Encode(d Descriptor, v any) (any, error) {
	out, _, err := encode(d, v)
	return out, err
}

// encode reports present=false when v is absent so object encoding can omit
// the key instead of writing null.
func encode(d Descriptor, v any) (out any, present bool, err error) {
	switch t := d.(type) {
	case *BooleanType:
		b, ok := v.(bool)
		if !ok {
			return nil, false, mismatch(t, v)
		}
		return b, true, nil

	case *NumberType:
		f, ok := toFloat(v)
		if !ok {
			return nil, false, mismatch(t, v)
		}
		return f, true, nil

	case *StringType:
		s, ok := v.(string)
		if !ok {
			return nil, false, mismatch(t, v)
		}
		return s, true, nil

	case *OptionalType:
		if v == nil {
			return nil, false, nil
		}
		return encode(t.Elem, v)

	case *NullableType:
		switch v.(type) {
		case nil:
			return nil, false, nil
		case Null, *Null:
			return nil, true, nil
		}
		return encode(t.Elem, v)

	case *ArrayType:
		items, ok := asSlice(v)
		if !ok {
			return nil, false, mismatch(t, v)
		}
		list := make([]any, len(items))
		for i, item := range items {
			e, _, err := encode(t.Elem, item)
			if err != nil {
				return nil, false, fmt.Errorf("index %d: %w", i, err)
			}
			list[i] = e
		}
		return list, true, nil

	case *ObjectType:
		obj, ok := asObject(v)
		if !ok {
			return nil, false, mismatch(t, v)
		}
		rec := make(map[string]any, len(t.Fields))
		for _, f := range t.Fields {
			fv, ok := obj[f.Name]
			if !ok || fv == nil {
				if canBeAbsent(f.Type) {
					continue
				}
				return nil, false, fmt.Errorf("%w %q", ErrMissingField, f.Name)
			}
			e, ok, err := encode(f.Type, fv)
			if err != nil {
				return nil, false, fmt.Errorf("field %q: %w", f.Name, err)
			}
			if ok {
				rec[f.Name] = e
			}
		}
		return rec, true, nil

	case *UnionType:
		var variant Variant
		switch x := v.(type) {
		case Variant:
			variant = x
		case *Variant:
			if x == nil {
				return nil, false, mismatch(t, v)
			}
			variant = *x
		default:
			return nil, false, mismatch(t, v)
		}
		payload, ok := t.Case(variant.Tag)
		if !ok {
			return nil, false, fmt.Errorf("%w %q", ErrUnknownVariant, variant.Tag)
		}
		e, present, err := encode(payload, variant.Value)
		if err != nil {
			return nil, false, fmt.Errorf("variant %q: %w", variant.Tag, err)
		}
		rec := map[string]any{TagKey: variant.Tag}
		if present {
			rec[ValueKey] = e
		}
		return rec, true, nil

	case *RecursiveType:
		return encode(t.Resolve(), v)

	case *InvariantType:
		raw, err := t.encode(v)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", t.Name, err)
		}
		return encode(t.Inner, raw)

	default:
		return nil, false, fmt.Errorf("schema: unsupported descriptor %T", d)
	}
}

func mismatch(want Descriptor, got any) error {
	return fmt.Errorf("%w: expected %s, got %s", ErrTypeMismatch, want.Kind(), describe(got))
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any, Record:
		return "object"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

func asObject(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	case Record:
		return x, true
	default:
		return nil, false
	}
}

func asSlice(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// undeclared returns an object key that t has no field for.
func undeclared(t *ObjectType, obj map[string]any) (string, bool) {
	for key := range obj {
		if _, ok := t.Field(key); !ok {
			return key, true
		}
	}
	return "", false
}

// presentAs returns the descriptor decoding a value that is present on the
// wire. Presence has already satisfied Optional, so null must be accepted by
// the element itself.
func presentAs(d Descriptor) Descriptor {
	if opt, ok := Unwrap(d).(*OptionalType); ok {
		return opt.Elem
	}
	return d
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
