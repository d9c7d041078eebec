package document

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
)

// Handle resolves to a document, possibly after the document has been
// fetched or joined elsewhere. Waiting on a handle is the only blocking step
// before synchronization starts.
type Handle interface {
	Document(ctx context.Context) (Document, error)
}

// Ready returns a handle that is already resolved.
func Ready(doc Document) Handle {
	f := NewFuture()
	f.Resolve(doc)
	return f
}

// Future is a Handle resolved exactly once by its producer.
type Future struct {
	once sync.Once
	done chan struct{}
	doc  Document
	err  error
}

// NewFuture creates an unresolved handle.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolve completes the handle with doc. Later calls are ignored.
func (f *Future) Resolve(doc Document) {
	f.once.Do(func() {
		f.doc = doc
		close(f.done)
	})
}

// Reject completes the handle with err. Later calls are ignored.
func (f *Future) Reject(err error) {
	f.once.Do(func() {
		f.err = eris.Wrap(ErrNotResolved, err.Error())
		close(f.done)
	})
}

// Document blocks until the handle is resolved or ctx is done.
func (f *Future) Document(ctx context.Context) (Document, error) {
	select {
	case <-f.done:
		return f.doc, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
