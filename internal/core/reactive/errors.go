package reactive

import "errors"

var (
	// ErrWriteInMemo is raised when a signal is written while a memo is computing.
	ErrWriteInMemo = errors.New("reactive: signal written inside a memo computation")
	// ErrFlushLimit is raised when effects keep rescheduling each other.
	ErrFlushLimit = errors.New("reactive: flush did not settle")
	// ErrScopeDisposed is raised when an effect is created on a disposed scope.
	ErrScopeDisposed = errors.New("reactive: scope is disposed")
)
