package sync

import (
	"github.com/zeusync/docworld/internal/core/document"
	"github.com/zeusync/docworld/internal/core/events"
	"github.com/zeusync/docworld/internal/core/events/bus"
	"github.com/zeusync/docworld/internal/core/observability/log"
	"github.com/zeusync/docworld/internal/core/schema/registry"
	"github.com/zeusync/docworld/internal/core/world"
)

// onWorldEvent writes a local structural change to the document and moves
// the bindings along with it.
func (s *Synchronizer) onWorldEvent(e bus.Event) error {
	if s.closed || s.applying > 0 {
		return nil
	}
	var err error
	s.rt.Batch(func() {
		s.rt.Untrack(func() { err = s.handleWorldEvent(e) })
	})
	return err
}

func (s *Synchronizer) handleWorldEvent(e bus.Event) error {
	switch e.Type() {
	case events.EntityCreated:
		data, ok := e.Data().(events.Entity)
		if !ok {
			return nil
		}
		id := world.EntityID(data.Entity)
		if !s.world.Has(id) {
			return nil
		}
		if err := s.write(func(tx document.Tx) error {
			return tx.Put(document.Path{data.Entity}, s.encodeEntity(id))
		}); err != nil {
			return err
		}
		s.bindEntity(id, nil)

	case events.EntityDestroyed:
		data, ok := e.Data().(events.Entity)
		if !ok {
			return nil
		}
		if eb, ok := s.entities[world.EntityID(data.Entity)]; ok {
			s.releaseEntity(eb)
		}
		return s.write(func(tx document.Tx) error {
			return deleteIfPresent(tx, document.Path{data.Entity})
		})

	case events.ComponentSet:
		data, ok := e.Data().(events.Component)
		if !ok {
			return nil
		}
		id, name := world.EntityID(data.Entity), registry.TypeName(data.Type)
		c, ok := s.world.Component(id, name)
		if !ok {
			return nil
		}
		eb, known := s.entities[id]
		if known {
			if b, ok := eb.bindings[name]; ok && b.comp != c {
				s.release(eb, b)
			}
		}
		if err := s.write(func(tx document.Tx) error {
			if _, ok := tx.Get(document.Path{data.Entity}); !ok {
				return tx.Put(document.Path{data.Entity}, s.encodeEntity(id))
			}
			return tx.Put(document.Path{data.Entity, data.Type}, c.Encoded())
		}); err != nil {
			return err
		}
		if !known {
			s.bindEntity(id, nil)
			return nil
		}
		s.bind(eb, c)

	case events.ComponentUnset:
		data, ok := e.Data().(events.Component)
		if !ok {
			return nil
		}
		if eb, ok := s.entities[world.EntityID(data.Entity)]; ok {
			if b, ok := eb.bindings[registry.TypeName(data.Type)]; ok {
				s.release(eb, b)
			}
		}
		return s.write(func(tx document.Tx) error {
			return deleteIfPresent(tx, document.Path{data.Entity, data.Type})
		})
	}
	return nil
}

func (s *Synchronizer) write(fn func(tx document.Tx) error) error {
	if err := s.doc.Change(fn); err != nil {
		s.log.Warn("document write failed", log.Error(err))
		return err
	}
	return nil
}

func deleteIfPresent(tx document.Tx, path document.Path) error {
	if _, ok := tx.Get(path); !ok {
		return nil
	}
	return tx.Delete(path)
}
