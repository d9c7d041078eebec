package document

import "errors"

var (
	ErrNotFound             = errors.New("document: path not found")
	ErrNotContainer         = errors.New("document: parent is not an object or array")
	ErrInvalidIndex         = errors.New("document: invalid array index")
	ErrIndexOutOfRange      = errors.New("document: array index out of range")
	ErrRootNotObject        = errors.New("document: root must be an object")
	ErrInvalidPointer       = errors.New("document: invalid JSON pointer")
	ErrUnsupportedOperation = errors.New("document: unsupported patch operation")
	ErrUnsupportedValue     = errors.New("document: value is not JSON compatible")
	ErrNestedChange         = errors.New("document: change started inside another change")
	ErrNotResolved          = errors.New("document: handle rejected")
)
