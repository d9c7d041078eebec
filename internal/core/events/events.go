// Package events defines the lifecycle events a World publishes on its bus.
package events

import (
	"github.com/zeusync/docworld/internal/core/events/bus"
	"github.com/zeusync/docworld/internal/core/observability/log"
)

// Source is the Source() of every world event.
const Source = "world"

const (
	EntityCreated   = "world.entity.created"
	EntityDestroyed = "world.entity.destroyed"
	ComponentSet    = "world.component.set"
	ComponentUnset  = "world.component.unset"
)

// Entity is the payload of EntityCreated and EntityDestroyed. Types lists the
// component types the entity held, in entity order.
type Entity struct {
	Entity string
	Types  []string
}

// Component is the payload of ComponentSet and ComponentUnset.
type Component struct {
	Entity string
	Type   string
}

func NewEntityCreated(id string, types []string) bus.Event {
	return bus.NewEvent(EntityCreated, Source, Entity{Entity: id, Types: types})
}

func NewEntityDestroyed(id string, types []string) bus.Event {
	return bus.NewEvent(EntityDestroyed, Source, Entity{Entity: id, Types: types})
}

func NewComponentSet(id, typ string) bus.Event {
	return bus.NewEvent(ComponentSet, Source, Component{Entity: id, Type: typ})
}

func NewComponentUnset(id, typ string) bus.Event {
	return bus.NewEvent(ComponentUnset, Source, Component{Entity: id, Type: typ})
}

// NewBus builds a bus that logs every delivery at debug level.
func NewBus(l log.Log) bus.EventBus {
	b := bus.New()
	if l != nil {
		b.AddObserver(&logObserver{log: l})
	}
	return b
}

type logObserver struct {
	log log.Log
}

func (o *logObserver) OnPublish(string, bus.Event) {}

func (o *logObserver) OnDelivered(eventType string, handlers int, err error, durationMicros int64) {
	if err != nil {
		o.log.Warn("event handlers failed",
			log.String("event", eventType),
			log.Int("handlers", handlers),
			log.Error(err),
		)
		return
	}
	o.log.Debug("event delivered",
		log.String("event", eventType),
		log.Int("handlers", handlers),
		log.Any("micros", durationMicros),
	)
}
