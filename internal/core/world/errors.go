package world

import "errors"

var (
	ErrEntityExists       = errors.New("world: entity already exists")
	ErrEntityNotFound     = errors.New("world: entity not found")
	ErrComponentOwned     = errors.New("world: component already owned by another entity")
	ErrDuplicateComponent = errors.New("world: entity holds two components of the same type")
	ErrUnknownType        = errors.New("world: unrecognized component type")
	ErrMalformedEntity    = errors.New("world: malformed entity")
)
