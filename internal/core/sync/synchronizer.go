// Package sync keeps a World and a replicated document aligned in both
// directions.
//
// Each (entity, component type) pair present on both sides is a binding.
// A binding pushes local state changes to the document as minimal path
// scoped edits and pulls document changes into the component by replacing
// its state. Both directions share one fingerprint of the last synchronized
// encoding, which is what stops a write from echoing back.
//
// Structure flows both ways too: entities and components appearing in or
// vanishing from the document are replayed on the world, and lifecycle
// events of the world are written to the document.
package sync

import (
	"github.com/rotisserie/eris"

	"github.com/zeusync/docworld/internal/core/document"
	"github.com/zeusync/docworld/internal/core/events/bus"
	"github.com/zeusync/docworld/internal/core/observability/log"
	"github.com/zeusync/docworld/internal/core/reactive"
	"github.com/zeusync/docworld/internal/core/schema/registry"
	"github.com/zeusync/docworld/internal/core/world"
)

// Stats counts synchronization activity.
type Stats struct {
	Pushes   uint64
	Pulls    uint64
	Echoes   uint64
	Skipped  uint64
	Bindings int
}

// Synchronizer is not safe for concurrent use. It runs on the goroutine of
// the world's runtime, like the world and the document it connects.
type Synchronizer struct {
	rt       *reactive.Runtime
	world    *world.World
	doc      document.Document
	reg      registry.SchemaRegistry
	log      log.Log
	protocol Protocol

	root     *reactive.Scope
	rootRev  reactive.Counter
	entities map[world.EntityID]*entityBinding
	skipped  map[world.EntityID]bool

	// applying is set while document changes are replayed on the world, so
	// the resulting world events are not written back.
	applying int

	unsubscribe func()
	events      bus.Subscription
	stats       Stats
	closed      bool
}

// New starts synchronizing w with doc. Entities and components that only
// exist in the world are written to the document first; the ones that only
// exist in the document are decoded leniently into the world.
func New(w *world.World, doc document.Document, reg registry.SchemaRegistry, opts ...Option) (*Synchronizer, error) {
	o := buildOptions(opts)
	s := &Synchronizer{
		rt:       w.Runtime(),
		world:    w,
		doc:      doc,
		reg:      reg,
		log:      o.log.With(log.String("component", "sync"), log.String("protocol", o.protocol.String())),
		protocol: o.protocol,
		root:     w.Runtime().NewScope(),
		rootRev:  reactive.NewCounter(w.Runtime()),
		entities: make(map[world.EntityID]*entityBinding),
		skipped:  make(map[world.EntityID]bool),
	}

	if err := s.publishLocalOnly(); err != nil {
		s.root.Dispose()
		return nil, err
	}

	sub, err := w.Bus().Subscribe(bus.AnyEvent, s.onWorldEvent)
	if err != nil {
		s.root.Dispose()
		return nil, eris.Wrap(err, "subscribe to world events")
	}
	s.events = sub
	s.unsubscribe = doc.Subscribe(s.onDocChange)

	switch s.protocol {
	case ProtocolPatch:
		s.rt.Batch(func() { s.rt.Untrack(s.reconcileRoot) })
	default:
		s.root.Effect(func() {
			s.rootRev.Get()
			s.rt.Untrack(s.reconcileRoot)
		})
	}
	s.log.Debug("synchronizer started", log.Int("entities", len(s.entities)))
	return s, nil
}

func (s *Synchronizer) World() *world.World { return s.world }

func (s *Synchronizer) Document() document.Document { return s.doc }

// Stats returns a snapshot of the counters.
func (s *Synchronizer) Stats() Stats {
	st := s.stats
	for _, eb := range s.entities {
		st.Bindings += len(eb.bindings)
	}
	return st
}

// Resync reconciles every entity and binding with the current document
// state. Changes are normally picked up as they are committed; Resync is for
// documents whose subscribers may have missed some.
func (s *Synchronizer) Resync() error {
	if s.closed {
		return eris.Wrap(ErrClosed, "resync")
	}
	s.rt.Batch(func() {
		s.rt.Untrack(func() {
			s.reconcileRoot()
			for _, eb := range s.entities {
				s.resyncEntity(eb)
			}
		})
	})
	return nil
}

// Close stops synchronizing and releases every binding. The world and the
// document are left as they are.
func (s *Synchronizer) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.unsubscribe()
	_ = s.events.Cancel()
	s.root.Dispose()
	s.entities = map[world.EntityID]*entityBinding{}
	s.log.Debug("synchronizer closed")
	return nil
}

// apply replays document state on the world without reflecting the
// resulting events back.
func (s *Synchronizer) apply(fn func()) {
	s.applying++
	defer func() { s.applying-- }()
	fn()
}

// publishLocalOnly writes world state the document does not have yet.
func (s *Synchronizer) publishLocalOnly() error {
	snapshot := s.doc.Snapshot()
	err := s.doc.Change(func(tx document.Tx) error {
		for _, id := range s.world.Entities() {
			existing, ok := snapshot[string(id)].(map[string]any)
			if !ok {
				if err := tx.Put(document.Path{string(id)}, s.encodeEntity(id)); err != nil {
					return err
				}
				continue
			}
			for _, c := range s.world.Components(id) {
				if _, ok := existing[string(c.TypeName())]; ok {
					continue
				}
				if err := tx.Put(document.Path{string(id), string(c.TypeName())}, c.Encoded()); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return eris.Wrap(err, "publish local state")
}

func (s *Synchronizer) encodeEntity(id world.EntityID) map[string]any {
	out := make(map[string]any)
	for _, c := range s.world.Components(id) {
		out[string(c.TypeName())] = c.Encoded()
	}
	return out
}

// reconcileRoot replays the difference between the document's entity keys
// and the known entities.
func (s *Synchronizer) reconcileRoot() {
	snapshot := s.doc.Snapshot()

	for id, eb := range s.entities {
		if _, ok := snapshot[string(id)]; ok {
			continue
		}
		s.releaseEntity(eb)
		if s.world.Has(id) {
			s.apply(func() { s.world.DestroyEntity(id) })
		}
		s.log.Debug("entity removed by document", log.String("entity", string(id)))
	}
	for id := range s.skipped {
		if _, ok := snapshot[string(id)]; !ok {
			delete(s.skipped, id)
		}
	}

	for _, key := range sortedKeys(snapshot) {
		id := world.EntityID(key)
		if _, known := s.entities[id]; known {
			continue
		}
		s.addEntity(id, snapshot[key])
	}
}

// addEntity binds a document entity, creating it in the world when needed.
func (s *Synchronizer) addEntity(id world.EntityID, raw any) {
	fields, ok := raw.(map[string]any)
	if !ok {
		if !s.skipped[id] {
			s.skipped[id] = true
			s.stats.Skipped++
			s.log.Warn("skipping malformed entity", log.String("entity", string(id)), log.String("kind", describe(raw)))
		}
		return
	}
	delete(s.skipped, id)

	var failed map[registry.TypeName]uint64
	if !s.world.Has(id) {
		var comps []*world.Component
		for _, key := range sortedKeys(fields) {
			c, err := s.decode(id, registry.TypeName(key), fields[key])
			if err != nil {
				if failed == nil {
					failed = make(map[registry.TypeName]uint64)
				}
				failed[registry.TypeName(key)] = rawFingerprint(fields[key])
				continue
			}
			comps = append(comps, c)
		}
		var err error
		s.apply(func() { err = s.world.CreateEntityWithID(id, comps...) })
		if err != nil {
			s.stats.Skipped++
			s.log.Warn("skipping entity", log.String("entity", string(id)), log.Error(err))
			return
		}
		s.log.Debug("entity added by document", log.String("entity", string(id)), log.Int("components", len(comps)))
	}
	s.bindEntity(id, failed)
}

// decode resolves and decodes one document component, logging and counting
// failures.
func (s *Synchronizer) decode(id world.EntityID, name registry.TypeName, raw any) (*world.Component, error) {
	c, err := s.world.DecodeComponent(s.reg, name, raw)
	if err != nil {
		s.stats.Skipped++
		s.log.Warn("skipping component",
			log.String("entity", string(id)),
			log.String("type", string(name)),
			log.Error(err),
		)
		return nil, err
	}
	return c, nil
}

// onDocChange routes a committed document change to the bindings it
// affects. Everything it triggers settles in one batch.
func (s *Synchronizer) onDocChange(change document.Change) {
	if s.closed {
		return
	}
	s.rt.Batch(func() {
		s.rt.Untrack(func() {
			for _, p := range change.Patches {
				if s.protocol == ProtocolPatch {
					s.dispatch(p)
				} else {
					s.invalidate(p.Path)
				}
			}
		})
	})
}

// invalidate bumps the revisions watched by the effects under path.
func (s *Synchronizer) invalidate(path document.Path) {
	switch len(path) {
	case 0:
		s.rootRev.Bump()
		for _, eb := range s.entities {
			eb.invalidateAll()
		}
	case 1:
		s.rootRev.Bump()
		if eb, ok := s.entities[world.EntityID(path[0])]; ok {
			eb.invalidateAll()
		}
	default:
		eb, ok := s.entities[world.EntityID(path[0])]
		if !ok {
			return
		}
		b, bound := eb.bindings[registry.TypeName(path[1])]
		if bound {
			b.docRev.Bump()
		}
		// An edit below an unbound component may fix one skipped before.
		if len(path) == 2 || !bound {
			eb.keys.Bump()
		}
	}
}
