package schema

import (
	stdjson "encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func position() Descriptor {
	return Object(Prop("x", Number()), Prop("y", Number()))
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	d := Object(
		Prop("name", String()),
		Prop("alive", Boolean()),
		Prop("pos", position()),
		Prop("tags", Array(String())),
		Prop("nick", Optional(String())),
		Prop("owner", Nullable(String())),
	)

	values := []Record{
		{"name": "orc", "alive": true, "pos": Record{"x": 1.0, "y": 2.0}, "tags": []any{"a"}, "owner": Null{}},
		{"name": "elf", "alive": false, "pos": Record{"x": 0.0, "y": -1.5}, "tags": []any{}, "nick": "e", "owner": "p1"},
	}
	for _, v := range values {
		raw, err := Encode(d, v)
		require.NoError(t, err)
		back, err := Decode(d, raw)
		require.NoError(t, err)
		assert.Equal(t, v, back)
	}
}

func TestEncodeNullableVersusAbsent(t *testing.T) {
	d := Object(Prop("owner", Nullable(String())))

	raw, err := Encode(d, Record{"owner": Null{}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"owner": nil}, raw)

	raw, err = Encode(d, Record{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, raw)

	v, err := Decode(d, map[string]any{"owner": nil})
	require.NoError(t, err)
	assert.Equal(t, Record{"owner": Null{}}, v)

	v, err = Decode(d, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, Record{}, v)
}

func TestDecodeOptionalRejectsNull(t *testing.T) {
	d := Object(Prop("nick", Optional(String())))
	_, err := Decode(d, map[string]any{"nick": nil})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
	assert.Contains(t, err.Error(), `field "nick"`)

	v, err := Decode(Object(Prop("nick", Optional(Nullable(String())))), map[string]any{"nick": nil})
	require.NoError(t, err)
	assert.Equal(t, Record{"nick": Null{}}, v)
}

func TestEncodeIsIdempotentOnWireValues(t *testing.T) {
	d := Object(Prop("pos", position()), Prop("list", Array(Number())))
	raw := map[string]any{"pos": map[string]any{"x": 1.0, "y": 2.0}, "list": []any{1.0, 2.0}}

	v, err := Decode(d, raw)
	require.NoError(t, err)
	again, err := Encode(d, v)
	require.NoError(t, err)
	assert.Equal(t, raw, again)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(position(), map[string]any{"x": 1.0, "y": 2.0, "z": 3.0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownField))
	assert.Contains(t, err.Error(), `"z"`)

	shape := TaggedUnion(When("circle", Object(Prop("r", Number()))))
	_, err = Decode(shape, map[string]any{"type": "circle", "value": map[string]any{"r": 1.0}, "extra": true})
	assert.True(t, errors.Is(err, ErrUnknownField))
}

func TestReencodeIsIdempotent(t *testing.T) {
	d := Object(
		Prop("pos", position()),
		Prop("nick", Optional(String())),
		Prop("owner", Optional(Nullable(String()))),
		Prop("shape", TaggedUnion(
			When("circle", Object(Prop("r", Number()))),
			When("point", Optional(Number())),
		)),
	)
	canonical := []map[string]any{
		{"pos": map[string]any{"x": 1.0, "y": 2.0}, "shape": map[string]any{"type": "point"}},
		{"pos": map[string]any{"x": 1.0, "y": 2.0}, "nick": "n", "owner": nil, "shape": map[string]any{"type": "point", "value": 3.0}},
		{"pos": map[string]any{"x": 0.0, "y": 0.0}, "owner": "o", "shape": map[string]any{"type": "circle", "value": map[string]any{"r": 1.0}}},
	}
	for _, in := range canonical {
		v, err := Decode(d, in)
		require.NoError(t, err)
		out, err := Encode(d, v)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}

	// Inputs that would re-encode differently do not decode.
	rejected := []map[string]any{
		{"pos": map[string]any{"x": 1.0, "y": 2.0, "z": 3.0}, "shape": map[string]any{"type": "point"}},
		{"pos": map[string]any{"x": 1.0, "y": 2.0}, "nick": nil, "shape": map[string]any{"type": "point"}},
		{"pos": map[string]any{"x": 1.0, "y": 2.0}, "shape": map[string]any{"type": "point", "value": nil}},
	}
	for _, in := range rejected {
		_, err := Decode(d, in)
		assert.Error(t, err, "%v", in)
	}
}

func TestDecodeNumberAcceptsJSONNumber(t *testing.T) {
	v, err := Decode(Number(), stdjson.Number("3"))
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	_, err = Decode(Number(), stdjson.Number("x"))
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestDecodeErrors(t *testing.T) {
	d := Object(Prop("pos", position()), Prop("codes", Array(Number())))

	_, err := Decode(d, map[string]any{"pos": map[string]any{"x": 1.0}, "codes": []any{}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingField))
	assert.Contains(t, err.Error(), `field "pos"`)
	assert.Contains(t, err.Error(), `"y"`)

	_, err = Decode(d, map[string]any{"pos": map[string]any{"x": 1.0, "y": 1.0}, "codes": []any{1.0, "two"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
	assert.Contains(t, err.Error(), `field "codes": index 1`)
	assert.Contains(t, err.Error(), "expected number")

	_, err = Decode(Number(), "1")
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestTaggedUnion(t *testing.T) {
	shape := TaggedUnion(
		When("circle", Object(Prop("r", Number()))),
		When("point", Optional(Number())),
	)

	raw := map[string]any{"type": "circle", "value": map[string]any{"r": 2.0}}
	v, err := Decode(shape, raw)
	require.NoError(t, err)
	assert.Equal(t, Variant{Tag: "circle", Value: Record{"r": 2.0}}, v)

	back, err := Encode(shape, v)
	require.NoError(t, err)
	assert.Equal(t, raw, back)

	back, err = Encode(shape, Variant{Tag: "point"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "point"}, back)

	_, err = Decode(shape, map[string]any{"type": "square", "value": 1.0})
	assert.True(t, errors.Is(err, ErrUnknownVariant))
	assert.Contains(t, err.Error(), `"square"`)

	_, err = Decode(shape, map[string]any{"value": 1.0})
	assert.True(t, errors.Is(err, ErrUnknownVariant))

	_, err = Encode(shape, Variant{Tag: "square"})
	assert.True(t, errors.Is(err, ErrUnknownVariant))
}

func TestRecursive(t *testing.T) {
	var tree *RecursiveType
	tree = Recursive("tree", func() Descriptor {
		return Object(
			Prop("label", String()),
			Prop("children", Array(tree)),
		)
	})

	raw := map[string]any{
		"label": "root",
		"children": []any{
			map[string]any{"label": "leaf", "children": []any{}},
		},
	}
	v, err := Decode(tree, raw)
	require.NoError(t, err)
	assert.Equal(t, Record{
		"label":    "root",
		"children": []any{Record{"label": "leaf", "children": []any{}}},
	}, v)

	back, err := Encode(tree, v)
	require.NoError(t, err)
	assert.Equal(t, raw, back)
	assert.Equal(t, "tree", tree.String())
	assert.True(t, IsContainer(tree))
}

type celsius float64

func TestInvariant(t *testing.T) {
	temp := Invariant("celsius", Number(),
		func(f float64) (celsius, error) {
			if f < -273.15 {
				return 0, errors.New("below absolute zero")
			}
			return celsius(f), nil
		},
		func(c celsius) float64 { return float64(c) },
	)

	v, err := Decode(temp, 21.5)
	require.NoError(t, err)
	assert.Equal(t, celsius(21.5), v)

	raw, err := Encode(temp, celsius(-3))
	require.NoError(t, err)
	assert.Equal(t, -3.0, raw)

	_, err = Decode(temp, -300.0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "celsius: below absolute zero")

	_, err = Decode(temp, "warm")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
	assert.Contains(t, err.Error(), "celsius: type mismatch")

	_, err = Encode(temp, 1.0)
	assert.True(t, errors.Is(err, ErrInvariant))
}

func TestEncodeAcceptsGoNumbersAndSlices(t *testing.T) {
	raw, err := Encode(Array(Number()), []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, raw)
}

func TestZero(t *testing.T) {
	d := Object(
		Prop("pos", position()),
		Prop("nick", Optional(String())),
		Prop("kind", TaggedUnion(When("a", Boolean()), When("b", String()))),
		Prop("items", Array(Number())),
	)
	v, err := Zero(d)
	require.NoError(t, err)
	assert.Equal(t, Record{
		"pos":   Record{"x": 0.0, "y": 0.0},
		"kind":  Variant{Tag: "a", Value: false},
		"items": []any{},
	}, v)

	var loop *RecursiveType
	loop = Recursive("loop", func() Descriptor { return Object(Prop("next", loop)) })
	_, err = Zero(loop)
	assert.True(t, errors.Is(err, ErrCyclicDefault))
}

func TestMarshalAndFingerprint(t *testing.T) {
	data, err := Marshal(position(), Record{"y": 2.0, "x": 1.0})
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1,"y":2}`, string(data))

	v, err := Unmarshal(position(), data)
	require.NoError(t, err)
	assert.Equal(t, Record{"x": 1.0, "y": 2.0}, v)

	a, err := Fingerprint(map[string]any{"x": 1.0, "y": 2.0})
	require.NoError(t, err)
	b, err := Fingerprint(map[string]any{"y": 2.0, "x": 1.0})
	require.NoError(t, err)
	c, err := Fingerprint(map[string]any{"x": 1.0, "y": 3.0})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
