package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/docworld/internal/core/schema"
)

var position = Define("position", schema.Object(
	schema.Prop("x", schema.Number()),
	schema.Prop("y", schema.Number()),
))

func TestRegistry(t *testing.T) {
	r, err := New(position, Define("codes", schema.Array(schema.Number())))
	require.NoError(t, err)

	got, err := r.GetType("position")
	require.NoError(t, err)
	assert.Equal(t, position.Name, got.Name)
	assert.Equal(t, []TypeName{"codes", "position"}, r.ListTypes())

	_, err = r.GetType("velocity")
	assert.True(t, errors.Is(err, ErrUnknownType))

	err = r.RegisterType(position)
	assert.True(t, errors.Is(err, ErrAlreadyRegistered))

	require.NoError(t, r.UnregisterType("codes"))
	_, ok := r.Lookup("codes")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegisterRejectsScalarTypes(t *testing.T) {
	_, err := New(Define("hp", schema.Number()))
	assert.True(t, errors.Is(err, ErrInvalidType))

	assert.Panics(t, func() { MustNew(Define("", schema.Object())) })
}

func TestComponentTypeCodecPrefixesName(t *testing.T) {
	_, err := position.Decode(map[string]any{"x": 1.0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrMissingField))
	assert.Contains(t, err.Error(), `component "position"`)

	raw, err := position.Encode(schema.Record{"x": 1.0, "y": 2.0})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1.0, "y": 2.0}, raw)
}
