package sync

import (
	"github.com/rotisserie/eris"

	"github.com/zeusync/docworld/internal/core/document"
	"github.com/zeusync/docworld/internal/core/observability/log"
	"github.com/zeusync/docworld/internal/core/schema/registry"
	"github.com/zeusync/docworld/internal/core/world"
)

// dispatch handles one patch of a document change by the depth of its
// path: the whole document, one entity, one component, or a field inside a
// component state.
func (s *Synchronizer) dispatch(p document.Patch) {
	switch {
	case len(p.Path) == 0:
		s.reconcileRoot()
		for _, eb := range s.entities {
			s.resyncEntity(eb)
		}
	case p.Kind == document.PatchSplice && len(p.Path) <= 2:
		s.stats.Skipped++
		s.log.Warn("ignoring patch",
			log.String("kind", p.Kind.String()),
			log.String("path", p.Path.String()),
			log.Error(eris.Wrap(ErrMalformedPatch, "splice outside a component state")),
		)
	case len(p.Path) == 1:
		s.onEntityPatch(world.EntityID(p.Path[0]), p)
	case len(p.Path) == 2:
		s.onComponentPatch(world.EntityID(p.Path[0]), registry.TypeName(p.Path[1]), p)
	default:
		s.onFieldPatch(world.EntityID(p.Path[0]), registry.TypeName(p.Path[1]))
	}
}

func (s *Synchronizer) onEntityPatch(id world.EntityID, p document.Patch) {
	eb, known := s.entities[id]
	if p.Kind == document.PatchDelete {
		if !known {
			delete(s.skipped, id)
			return
		}
		s.releaseEntity(eb)
		s.apply(func() { s.world.DestroyEntity(id) })
		s.log.Debug("entity removed by document", log.String("entity", string(id)))
		return
	}
	if !known {
		raw, ok := s.doc.Value(document.Path{string(id)})
		if ok {
			s.addEntity(id, raw)
		}
		return
	}
	s.resyncEntity(eb)
}

func (s *Synchronizer) onComponentPatch(id world.EntityID, name registry.TypeName, p document.Patch) {
	eb, known := s.entities[id]
	if !known {
		// A component written below an entity that was skipped before.
		if raw, ok := s.doc.Value(document.Path{string(id)}); ok {
			s.addEntity(id, raw)
		}
		return
	}
	if p.Kind == document.PatchDelete {
		delete(eb.skipped, name)
		b, ok := eb.bindings[name]
		if !ok {
			return
		}
		s.release(eb, b)
		s.apply(func() { s.world.UnsetComponent(id, name) })
		s.log.Debug("component removed by document", log.String("entity", string(id)), log.String("type", string(name)))
		return
	}
	if b, ok := eb.bindings[name]; ok {
		s.pull(b)
		return
	}
	s.reconcileEntity(eb)
}

func (s *Synchronizer) onFieldPatch(id world.EntityID, name registry.TypeName) {
	eb, ok := s.entities[id]
	if !ok {
		return
	}
	if b, ok := eb.bindings[name]; ok {
		s.pull(b)
		return
	}
	s.reconcileEntity(eb)
}

// resyncEntity reconciles the component keys of eb and pulls every binding.
func (s *Synchronizer) resyncEntity(eb *entityBinding) {
	s.reconcileEntity(eb)
	for _, b := range eb.bindings {
		s.pull(b)
	}
}
