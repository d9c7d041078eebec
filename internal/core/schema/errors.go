package schema

import "errors"

var (
	ErrTypeMismatch   = errors.New("type mismatch")
	ErrMissingField   = errors.New("missing field")
	ErrUnknownVariant = errors.New("unknown variant")
	ErrInvariant      = errors.New("invariant")
	ErrCyclicDefault  = errors.New("no finite default value")
	ErrUnknownField   = errors.New("unknown field")
)
