package sync

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/zeusync/docworld/internal/core/document"
	"github.com/zeusync/docworld/internal/core/reactive"
	"github.com/zeusync/docworld/internal/core/schema/registry"
	"github.com/zeusync/docworld/internal/core/world"
)

// Load decodes the whole document into a fresh world. The first unrecognized
// component type or malformed entity fails the load and no world is
// returned.
func Load(rt *reactive.Runtime, doc document.Document, reg registry.SchemaRegistry, opts ...world.Option) (*world.World, error) {
	w := world.New(rt, opts...)
	if err := w.Deserialize(reg, doc.Snapshot()); err != nil {
		return nil, eris.Wrap(err, "initial load")
	}
	return w, nil
}

// Open waits for the document behind handle, loads it strictly and starts
// synchronizing. Waiting on the handle is the only blocking step.
func Open(ctx context.Context, rt *reactive.Runtime, handle document.Handle, reg registry.SchemaRegistry, opts ...Option) (*Synchronizer, error) {
	doc, err := handle.Document(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "open document")
	}
	o := buildOptions(opts)
	worldOpts := append([]world.Option{world.WithLogger(o.log)}, o.world...)
	w, err := Load(rt, doc, reg, worldOpts...)
	if err != nil {
		return nil, err
	}
	return New(w, doc, reg, opts...)
}
