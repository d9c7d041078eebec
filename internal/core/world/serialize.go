package world

import (
	"sort"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/zeusync/docworld/internal/core/schema/registry"
)

// Serialize renders the world in document form:
// {entityId: {componentType: encodedState}}. Reads are tracked.
func (w *World) Serialize() map[string]any {
	out := make(map[string]any, len(w.entities))
	for _, id := range w.Entities() {
		comps := make(map[string]any)
		for _, c := range w.Components(id) {
			comps[string(c.typ.Name)] = c.Encoded()
		}
		out[string(id)] = comps
	}
	return out
}

// MarshalJSON encodes Serialize.
func (w *World) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Serialize())
}

// Deserialize adds the entities of a document form value. It is all or
// nothing: the first unrecognized type, undecodable state or clashing id
// fails the whole call and leaves the world untouched. Entities are created
// in id order.
func (w *World) Deserialize(reg registry.SchemaRegistry, data map[string]any) error {
	ids := make([]string, 0, len(data))
	for id := range data {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	built := make([][]*Component, len(ids))
	for i, id := range ids {
		if _, exists := w.entities[EntityID(id)]; exists {
			return eris.Wrapf(ErrEntityExists, "entity %q", id)
		}
		comps, err := w.DecodeEntity(reg, data[id])
		if err != nil {
			return eris.Wrapf(err, "entity %q", id)
		}
		built[i] = comps
	}

	return w.update(func() error {
		for i, id := range ids {
			if err := w.CreateEntityWithID(EntityID(id), built[i]...); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeserializeJSON is Deserialize over JSON bytes.
func (w *World) DeserializeJSON(reg registry.SchemaRegistry, data []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return eris.Wrap(err, "decode world")
	}
	return w.Deserialize(reg, doc)
}

// DecodeEntity decodes the component map of one entity in type name order.
func (w *World) DecodeEntity(reg registry.SchemaRegistry, raw any) ([]*Component, error) {
	fields, ok := raw.(map[string]any)
	if !ok {
		return nil, eris.Wrapf(ErrMalformedEntity, "expected object, got %T", raw)
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	comps := make([]*Component, 0, len(names))
	for _, name := range names {
		c, err := w.DecodeComponent(reg, registry.TypeName(name), fields[name])
		if err != nil {
			return nil, err
		}
		comps = append(comps, c)
	}
	return comps, nil
}

// DecodeComponent resolves name in reg and decodes raw into a new component.
func (w *World) DecodeComponent(reg registry.SchemaRegistry, name registry.TypeName, raw any) (*Component, error) {
	typ, err := reg.GetType(name)
	if err != nil {
		return nil, eris.Wrapf(ErrUnknownType, "%q", name)
	}
	return DecodeComponent(w.rt, typ, raw)
}
