package sync

import (
	"fmt"
	"maps"
	"slices"

	"github.com/wI2L/jsondiff"

	"github.com/zeusync/docworld/internal/core/document"
	"github.com/zeusync/docworld/internal/core/observability/log"
	"github.com/zeusync/docworld/internal/core/reactive"
	"github.com/zeusync/docworld/internal/core/schema"
	"github.com/zeusync/docworld/internal/core/schema/registry"
	"github.com/zeusync/docworld/internal/core/world"
)

// entityBinding tracks one entity present on both sides.
type entityBinding struct {
	id    world.EntityID
	scope *reactive.Scope
	// keys is bumped when the component key set of the entity may have
	// changed in the document.
	keys     reactive.Counter
	bindings map[registry.TypeName]*binding
	// skipped holds the fingerprints of document components that could not
	// be decoded, so each value is reported once.
	skipped   map[registry.TypeName]uint64
	malformed bool
}

func (eb *entityBinding) invalidateAll() {
	eb.keys.Bump()
	for _, b := range eb.bindings {
		b.docRev.Bump()
	}
}

// binding connects one component to its document subtree.
type binding struct {
	entity world.EntityID
	comp   *world.Component
	scope  *reactive.Scope
	docRev reactive.Counter
	path   document.Path

	// synced is the last encoding both sides agreed on.
	synced      any
	fingerprint uint64
	primed      bool
}

// bindEntity starts tracking id. Values in skipped already failed to decode
// and are not reported again.
func (s *Synchronizer) bindEntity(id world.EntityID, skipped map[registry.TypeName]uint64) *entityBinding {
	if eb, ok := s.entities[id]; ok {
		return eb
	}
	eb := &entityBinding{
		id:       id,
		scope:    s.root.Child(),
		keys:     reactive.NewCounter(s.rt),
		bindings: make(map[registry.TypeName]*binding),
		skipped:  make(map[registry.TypeName]uint64, len(skipped)),
	}
	maps.Copy(eb.skipped, skipped)
	s.entities[id] = eb

	if s.protocol == ProtocolPatch {
		s.reconcileEntity(eb)
		return eb
	}
	eb.scope.Effect(func() {
		eb.keys.Get()
		s.rt.Untrack(func() { s.reconcileEntity(eb) })
	})
	return eb
}

func (s *Synchronizer) releaseEntity(eb *entityBinding) {
	eb.scope.Dispose()
	delete(s.entities, eb.id)
}

// reconcileEntity replays the difference between the component keys of the
// entity in the document and its bindings.
func (s *Synchronizer) reconcileEntity(eb *entityBinding) {
	raw, ok := s.doc.Value(document.Path{string(eb.id)})
	if !ok {
		return
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		if !eb.malformed {
			eb.malformed = true
			s.stats.Skipped++
			s.log.Warn("skipping malformed entity", log.String("entity", string(eb.id)), log.String("kind", describe(raw)))
		}
		return
	}
	eb.malformed = false

	for _, name := range slices.Sorted(maps.Keys(eb.bindings)) {
		if _, ok := fields[string(name)]; ok {
			continue
		}
		s.release(eb, eb.bindings[name])
		s.apply(func() { s.world.UnsetComponent(eb.id, name) })
		s.log.Debug("component removed by document", log.String("entity", string(eb.id)), log.String("type", string(name)))
	}
	for name := range eb.skipped {
		if _, ok := fields[string(name)]; !ok {
			delete(eb.skipped, name)
		}
	}

	for _, key := range sortedKeys(fields) {
		name := registry.TypeName(key)
		if _, bound := eb.bindings[name]; bound {
			continue
		}
		if c, ok := s.world.Component(eb.id, name); ok {
			s.bind(eb, c)
			continue
		}
		fp := rawFingerprint(fields[key])
		if prev, ok := eb.skipped[name]; ok && prev == fp {
			continue
		}
		c, err := s.decode(eb.id, name, fields[key])
		if err != nil {
			eb.skipped[name] = fp
			continue
		}
		s.apply(func() { err = s.world.SetComponent(eb.id, c) })
		if err != nil {
			s.stats.Skipped++
			s.log.Warn("skipping component", log.String("entity", string(eb.id)), log.String("type", key), log.Error(err))
			continue
		}
		s.log.Debug("component added by document", log.String("entity", string(eb.id)), log.String("type", key))
		s.bind(eb, c)
	}
}

// bind creates the two directed channels of c. The last synced state starts
// as the local encoding; the first pull adopts the document state when the
// two differ.
func (s *Synchronizer) bind(eb *entityBinding, c *world.Component) *binding {
	name := c.TypeName()
	if b, ok := eb.bindings[name]; ok {
		if b.comp == c {
			return b
		}
		s.release(eb, b)
	}
	delete(eb.skipped, name)

	encoded := reactive.Untracked(s.rt, c.Encoded)
	fp, _ := schema.Fingerprint(encoded)
	b := &binding{
		entity:      eb.id,
		comp:        c,
		scope:       eb.scope.Child(),
		docRev:      reactive.NewCounter(s.rt),
		path:        document.Path{string(eb.id), string(name)},
		synced:      encoded,
		fingerprint: fp,
	}
	eb.bindings[name] = b
	s.log.Debug("binding created", log.String("entity", string(eb.id)), log.String("type", string(name)))

	b.scope.Effect(func() {
		encoded := b.comp.Encoded()
		s.rt.Untrack(func() { s.push(b, encoded) })
	})
	if s.protocol == ProtocolPatch {
		s.pull(b)
	} else {
		b.scope.Effect(func() {
			b.docRev.Get()
			s.rt.Untrack(func() { s.pull(b) })
		})
	}
	b.primed = true
	return b
}

func (s *Synchronizer) release(eb *entityBinding, b *binding) {
	b.scope.Dispose()
	delete(eb.bindings, b.comp.TypeName())
	s.log.Debug("binding released", log.String("entity", string(eb.id)), log.String("type", string(b.comp.TypeName())))
}

// push writes a local state change to the document as the minimal set of
// edits between the last synced encoding and the current one.
func (s *Synchronizer) push(b *binding, encoded any) {
	fp, err := schema.Fingerprint(encoded)
	if err != nil {
		s.log.Warn("push failed", log.String("path", b.path.String()), log.Error(err))
		return
	}
	if fp == b.fingerprint {
		if b.primed {
			s.stats.Echoes++
		}
		return
	}
	patch, diffErr := jsondiff.Compare(b.synced, encoded)
	b.synced, b.fingerprint = encoded, fp

	err = diffErr
	if err == nil {
		err = s.doc.Change(func(tx document.Tx) error {
			return document.ApplyPatch(tx, b.path, patch)
		})
	}
	if err != nil {
		s.log.Debug("patch rejected, writing whole state", log.String("path", b.path.String()), log.Error(err))
		err = s.doc.Change(func(tx document.Tx) error {
			return tx.Put(b.path, encoded)
		})
	}
	if err != nil {
		s.log.Warn("push failed", log.String("path", b.path.String()), log.Error(err))
		return
	}
	s.stats.Pushes++
}

// pull replaces the local state with the document state unless its
// canonical encoding is the one last synced.
func (s *Synchronizer) pull(b *binding) {
	raw, ok := s.doc.Value(b.path)
	if !ok {
		return
	}
	typ := b.comp.Type()
	value, err := typ.Decode(raw)
	var canonical any
	if err == nil {
		canonical, err = typ.Encode(value)
	}
	if err != nil {
		s.stats.Skipped++
		s.log.Warn("skipping component state", log.String("path", b.path.String()), log.Error(err))
		return
	}

	fp, err := schema.Fingerprint(canonical)
	if err != nil {
		s.stats.Skipped++
		s.log.Warn("skipping component state", log.String("path", b.path.String()), log.Error(err))
		return
	}
	if fp == b.fingerprint {
		if b.primed {
			s.stats.Echoes++
		}
		return
	}
	b.synced, b.fingerprint = canonical, fp
	s.apply(func() { err = b.comp.ReplaceEncoded(canonical) })
	if err != nil {
		s.log.Warn("pull failed", log.String("path", b.path.String()), log.Error(err))
		return
	}
	s.stats.Pulls++
}

// rawFingerprint identifies a document value that failed to decode.
func rawFingerprint(raw any) uint64 {
	fp, _ := schema.Fingerprint(raw)
	return fp
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}

func describe(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}
