package projection

import "errors"

var (
	ErrNotProjectable  = errors.New("projection: top level must be an object or array")
	ErrMissingNode     = errors.New("projection: no node at path")
	ErrDetached        = errors.New("projection: view detached from its node")
	ErrUnknownField    = errors.New("projection: unknown field")
	ErrWriteDuringRead = errors.New("projection: write during read")
	ErrDecode          = errors.New("projection: stored value does not match schema")
)
