// Package world holds entities and their components, with a secondary index
// from component type to the entities holding it.
//
// Every operation runs inside one reactive batch, so effects observe the
// world only between operations, never halfway through one. Lifecycle events
// are published on the bus once the outermost operation has committed.
package world

import (
	"slices"
	"sort"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/zeusync/docworld/internal/core/events"
	"github.com/zeusync/docworld/internal/core/events/bus"
	"github.com/zeusync/docworld/internal/core/observability/log"
	"github.com/zeusync/docworld/internal/core/reactive"
	"github.com/zeusync/docworld/internal/core/schema/registry"
)

// EntityID identifies an entity. Generated ids are uuid v4 strings.
type EntityID string

type entity struct {
	id         EntityID
	seq        uint64
	components []*Component
	rev        reactive.Counter
}

func (e *entity) find(typ registry.TypeName) int {
	for i, c := range e.components {
		if c.typ.Name == typ {
			return i
		}
	}
	return -1
}

func (e *entity) types() []string {
	out := make([]string, len(e.components))
	for i, c := range e.components {
		out[i] = string(c.typ.Name)
	}
	return out
}

// World is not safe for concurrent use; it shares the goroutine of its
// runtime.
type World struct {
	rt  *reactive.Runtime
	log log.Log
	bus bus.EventBus

	entities map[EntityID]*entity
	nextSeq  uint64
	members  reactive.Counter
	index    map[registry.TypeName]map[EntityID]struct{}
	indexRev map[registry.TypeName]reactive.Counter

	depth   int
	pending []bus.Event
}

// Option configures a World.
type Option func(*World)

func WithLogger(l log.Log) Option {
	return func(w *World) { w.log = l }
}

// WithBus publishes lifecycle events on b instead of a private bus.
func WithBus(b bus.EventBus) Option {
	return func(w *World) { w.bus = b }
}

// New creates an empty world bound to rt.
func New(rt *reactive.Runtime, opts ...Option) *World {
	w := &World{
		rt:       rt,
		log:      log.NewNop(),
		entities: make(map[EntityID]*entity),
		members:  reactive.NewCounter(rt),
		index:    make(map[registry.TypeName]map[EntityID]struct{}),
		indexRev: make(map[registry.TypeName]reactive.Counter),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.bus == nil {
		w.bus = events.NewBus(w.log)
	}
	return w
}

func (w *World) Runtime() *reactive.Runtime { return w.rt }

// Bus returns the bus lifecycle events are published on.
func (w *World) Bus() bus.EventBus { return w.bus }

// update runs fn in a batch and publishes queued events once the outermost
// update returns.
func (w *World) update(fn func() error) error {
	w.depth++
	var err error
	func() {
		defer func() { w.depth-- }()
		w.rt.Batch(func() { err = fn() })
	}()
	if w.depth == 0 {
		w.publish()
	}
	return err
}

func (w *World) emit(e bus.Event) {
	w.pending = append(w.pending, e)
}

func (w *World) publish() {
	for len(w.pending) > 0 {
		batch := w.pending
		w.pending = nil
		if err := w.bus.PublishBatch(batch...); err != nil {
			w.log.Warn("world event handler failed", log.Error(err))
		}
	}
}

func (w *World) typeRev(typ registry.TypeName) reactive.Counter {
	c, ok := w.indexRev[typ]
	if !ok {
		c = reactive.NewCounter(w.rt)
		w.indexRev[typ] = c
	}
	return c
}

func (w *World) indexAdd(id EntityID, typ registry.TypeName) {
	set, ok := w.index[typ]
	if !ok {
		set = make(map[EntityID]struct{})
		w.index[typ] = set
	}
	set[id] = struct{}{}
	w.typeRev(typ).Bump()
}

func (w *World) indexRemove(id EntityID, typ registry.TypeName) {
	if set, ok := w.index[typ]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(w.index, typ)
		}
	}
	w.typeRev(typ).Bump()
}

func checkBatch(components []*Component) error {
	seen := make(map[registry.TypeName]bool, len(components))
	for _, c := range components {
		if c.owner != "" {
			return eris.Wrapf(ErrComponentOwned, "component %q owned by %q", c.typ.Name, c.owner)
		}
		if seen[c.typ.Name] {
			return eris.Wrapf(ErrDuplicateComponent, "type %q", c.typ.Name)
		}
		seen[c.typ.Name] = true
	}
	return nil
}

// CreateEntity adds an entity with a generated id holding components.
func (w *World) CreateEntity(components ...*Component) (EntityID, error) {
	id := EntityID(uuid.NewString())
	if err := w.CreateEntityWithID(id, components...); err != nil {
		return "", err
	}
	return id, nil
}

// CreateEntityWithID adds an entity under a caller chosen id. The entity and
// its components appear in one step.
func (w *World) CreateEntityWithID(id EntityID, components ...*Component) error {
	if _, exists := w.entities[id]; exists {
		return eris.Wrapf(ErrEntityExists, "entity %q", id)
	}
	if err := checkBatch(components); err != nil {
		return eris.Wrapf(err, "entity %q", id)
	}
	return w.update(func() error {
		w.nextSeq++
		e := &entity{
			id:         id,
			seq:        w.nextSeq,
			components: slices.Clone(components),
			rev:        reactive.NewCounter(w.rt),
		}
		w.entities[id] = e
		for _, c := range components {
			c.owner = id
			w.indexAdd(id, c.typ.Name)
		}
		w.members.Bump()
		w.log.Debug("entity created", log.String("entity", string(id)), log.Strings("types", e.types()))
		w.emit(events.NewEntityCreated(string(id), e.types()))
		return nil
	})
}

// DestroyEntity removes the entity and releases its components. Unknown ids
// are ignored.
func (w *World) DestroyEntity(id EntityID) {
	e, ok := w.entities[id]
	if !ok {
		return
	}
	_ = w.update(func() error {
		types := e.types()
		for _, c := range e.components {
			c.owner = ""
			w.indexRemove(id, c.typ.Name)
		}
		e.components = nil
		delete(w.entities, id)
		e.rev.Bump()
		w.members.Bump()
		w.log.Debug("entity destroyed", log.String("entity", string(id)))
		w.emit(events.NewEntityDestroyed(string(id), types))
		return nil
	})
}

// Has reports whether id exists. The read is tracked.
func (w *World) Has(id EntityID) bool {
	w.members.Get()
	_, ok := w.entities[id]
	return ok
}

// Len returns the number of entities. The read is tracked.
func (w *World) Len() int {
	w.members.Get()
	return len(w.entities)
}

// Entities returns every id in creation order. The read is tracked.
func (w *World) Entities() []EntityID {
	w.members.Get()
	list := make([]*entity, 0, len(w.entities))
	for _, e := range w.entities {
		list = append(list, e)
	}
	return sortedIDs(list)
}

func sortedIDs(list []*entity) []EntityID {
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })
	out := make([]EntityID, len(list))
	for i, e := range list {
		out[i] = e.id
	}
	return out
}

// Component returns the component of type typ held by id. The read is
// tracked.
func (w *World) Component(id EntityID, typ registry.TypeName) (*Component, bool) {
	e, ok := w.entities[id]
	if !ok {
		w.members.Get()
		return nil, false
	}
	e.rev.Get()
	if i := e.find(typ); i >= 0 {
		return e.components[i], true
	}
	return nil, false
}

// Components returns the components of id in the order they were added.
// The read is tracked.
func (w *World) Components(id EntityID) []*Component {
	e, ok := w.entities[id]
	if !ok {
		w.members.Get()
		return nil
	}
	e.rev.Get()
	return slices.Clone(e.components)
}

// EntitiesWith returns, in creation order, the entities holding a component
// of type typ. The read is tracked.
func (w *World) EntitiesWith(typ registry.TypeName) []EntityID {
	w.typeRev(typ).Get()
	set := w.index[typ]
	list := make([]*entity, 0, len(set))
	for id := range set {
		list = append(list, w.entities[id])
	}
	return sortedIDs(list)
}

// Query returns a memo over EntitiesWith that only notifies when the result
// changes.
func (w *World) Query(typ registry.TypeName) *reactive.Memo[[]EntityID] {
	return reactive.NewMemo(w.rt, func() []EntityID {
		return w.EntitiesWith(typ)
	}, slices.Equal[[]EntityID])
}

// SetComponent attaches c to id, replacing a component of the same type.
// Setting a component id already holds is a no-op.
func (w *World) SetComponent(id EntityID, c *Component) error {
	e, ok := w.entities[id]
	if !ok {
		return eris.Wrapf(ErrEntityNotFound, "entity %q", id)
	}
	if c.owner == id {
		return nil
	}
	if c.owner != "" {
		return eris.Wrapf(ErrComponentOwned, "component %q owned by %q", c.typ.Name, c.owner)
	}
	return w.update(func() error {
		if i := e.find(c.typ.Name); i >= 0 {
			e.components[i].owner = ""
			e.components[i] = c
		} else {
			e.components = append(e.components, c)
		}
		c.owner = id
		w.indexAdd(id, c.typ.Name)
		e.rev.Bump()
		w.emit(events.NewComponentSet(string(id), string(c.typ.Name)))
		return nil
	})
}

// UnsetComponent detaches the component of type typ from id. It reports
// whether something was removed.
func (w *World) UnsetComponent(id EntityID, typ registry.TypeName) bool {
	return w.UnsetComponents(id, typ) > 0
}

// UnsetComponents detaches several types in one step and returns how many
// were removed.
func (w *World) UnsetComponents(id EntityID, types ...registry.TypeName) int {
	e, ok := w.entities[id]
	if !ok {
		return 0
	}
	removed := 0
	_ = w.update(func() error {
		for _, typ := range types {
			i := e.find(typ)
			if i < 0 {
				continue
			}
			e.components[i].owner = ""
			e.components = slices.Delete(e.components, i, i+1)
			w.indexRemove(id, typ)
			removed++
			w.emit(events.NewComponentUnset(string(id), string(typ)))
		}
		if removed > 0 {
			e.rev.Bump()
		}
		return nil
	})
	return removed
}
