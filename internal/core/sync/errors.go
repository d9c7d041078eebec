package sync

import "errors"

var (
	ErrClosed          = errors.New("sync: synchronizer closed")
	ErrUnknownProtocol = errors.New("sync: unknown protocol")
	ErrMalformedPatch  = errors.New("sync: patch does not fit the document shape")
)
