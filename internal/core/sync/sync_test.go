package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/docworld/internal/core/document"
	"github.com/zeusync/docworld/internal/core/observability/log"
	"github.com/zeusync/docworld/internal/core/reactive"
	"github.com/zeusync/docworld/internal/core/schema"
	"github.com/zeusync/docworld/internal/core/schema/registry"
	"github.com/zeusync/docworld/internal/core/world"
)

var (
	position = registry.Define("position", schema.Object(
		schema.Prop("x", schema.Number()),
		schema.Prop("y", schema.Number()),
	))
	health = registry.Define("health", schema.Object(schema.Prop("hp", schema.Number())))
	vault  = registry.Define("vault", schema.Object(
		schema.Prop("secretCodes", schema.Array(schema.Array(schema.Number()))),
	))

	types = registry.MustNew(position, health, vault)
)

type fixture struct {
	rt      *reactive.Runtime
	world   *world.World
	doc     *document.Memory
	sync    *Synchronizer
	changes *[]document.Change
	logs    *observer.ObservedLogs
}

type setup struct {
	name     string
	protocol Protocol
	reactive bool
}

var setups = []setup{
	{name: "diff", protocol: ProtocolDiff},
	{name: "diff reactive document", protocol: ProtocolDiff, reactive: true},
	{name: "patch", protocol: ProtocolPatch},
}

func open(t *testing.T, st setup, initial map[string]any) *fixture {
	t.Helper()
	rt := reactive.NewRuntime()
	var docOpts []document.MemoryOption
	if st.reactive {
		docOpts = append(docOpts, document.WithRuntime(rt))
	}
	doc, err := document.NewMemory(initial, docOpts...)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	l := log.NewWithCore(core, log.LevelDebug)

	s, err := Open(context.Background(), rt, document.Ready(doc), types,
		WithLogger(l),
		WithProtocol(st.protocol),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return &fixture{
		rt:      rt,
		world:   s.World(),
		doc:     doc,
		sync:    s,
		changes: record(doc),
		logs:    logs,
	}
}

func record(doc document.Document) *[]document.Change {
	var changes []document.Change
	doc.Subscribe(func(c document.Change) { changes = append(changes, c) })
	return &changes
}

func (f *fixture) component(t *testing.T, id world.EntityID, typ registry.TypeName) *world.Component {
	t.Helper()
	c, ok := f.world.Component(id, typ)
	require.True(t, ok, "%s/%s", id, typ)
	return c
}

func (f *fixture) value(path ...string) any {
	v, _ := f.doc.Value(document.Path(path))
	return v
}

func (f *fixture) change(t *testing.T, fn func(tx document.Tx) error) {
	t.Helper()
	require.NoError(t, f.doc.Change(fn))
}

func (f *fixture) newComponent(t *testing.T, typ registry.ComponentType, v any) *world.Component {
	t.Helper()
	c, err := world.NewComponent(f.rt, typ, v)
	require.NoError(t, err)
	return c
}

func startDoc() map[string]any {
	return map[string]any{
		"e1": map[string]any{"position": map[string]any{"x": 1.0, "y": 2.0}},
	}
}

func TestLocalEditIsPathScoped(t *testing.T) {
	for _, st := range setups {
		t.Run(st.name, func(t *testing.T) {
			f := open(t, st, startDoc())
			c := f.component(t, "e1", "position")

			require.NoError(t, c.Object().Set("x", 5.0))

			require.Len(t, *f.changes, 1)
			patches := (*f.changes)[0].Patches
			require.Len(t, patches, 1)
			assert.Equal(t, document.PatchPut, patches[0].Kind)
			assert.Equal(t, document.Path{"e1", "position", "x"}, patches[0].Path)
			assert.Equal(t, map[string]any{"x": 5.0, "y": 2.0}, f.value("e1", "position"))
			assert.Equal(t, 5.0, c.Object().Get("x"))

			stats := f.sync.Stats()
			assert.Equal(t, uint64(1), stats.Pushes)
			assert.Equal(t, uint64(0), stats.Pulls)
		})
	}
}

func TestRemoteEditDoesNotEcho(t *testing.T) {
	for _, st := range setups {
		t.Run(st.name, func(t *testing.T) {
			f := open(t, st, startDoc())
			c := f.component(t, "e1", "position")
			view := c.Object()

			f.change(t, func(tx document.Tx) error {
				return tx.Put(document.Path{"e1", "position", "y"}, 9.0)
			})

			assert.Equal(t, 9.0, view.Get("y"))
			assert.Same(t, view, c.Object())
			assert.Len(t, *f.changes, 1)

			stats := f.sync.Stats()
			assert.Equal(t, uint64(1), stats.Pulls)
			assert.Equal(t, uint64(0), stats.Pushes)
		})
	}
}

func TestRemoteStructure(t *testing.T) {
	for _, st := range setups {
		t.Run(st.name, func(t *testing.T) {
			f := open(t, st, startDoc())

			f.change(t, func(tx document.Tx) error {
				return tx.Put(document.Path{"e2"}, map[string]any{
					"position": map[string]any{"x": 0.0, "y": 0.0},
				})
			})
			require.True(t, f.world.Has("e2"))
			assert.Equal(t, schema.Record{"x": 0.0, "y": 0.0}, f.component(t, "e2", "position").Object().Value())

			f.change(t, func(tx document.Tx) error {
				return tx.Put(document.Path{"e2", "health"}, map[string]any{"hp": 3.0})
			})
			assert.Equal(t, 3.0, f.component(t, "e2", "health").Object().Get("hp"))

			f.change(t, func(tx document.Tx) error {
				return tx.Delete(document.Path{"e2", "position"})
			})
			_, ok := f.world.Component("e2", "position")
			assert.False(t, ok)
			assert.Equal(t, []world.EntityID{"e2"}, f.world.EntitiesWith("health"))

			f.change(t, func(tx document.Tx) error {
				return tx.Delete(document.Path{"e2"})
			})
			assert.False(t, f.world.Has("e2"))
			assert.Equal(t, []world.EntityID{"e1"}, f.world.Entities())
			assert.Equal(t, 1, f.sync.Stats().Bindings)

			// Entity level writes made by the sync never echo back.
			assert.Len(t, *f.changes, 4)
		})
	}
}

func TestLocalStructure(t *testing.T) {
	for _, st := range setups {
		t.Run(st.name, func(t *testing.T) {
			f := open(t, st, startDoc())

			pos := f.newComponent(t, position, schema.Record{"x": 3.0, "y": 4.0})
			require.NoError(t, f.world.CreateEntityWithID("e2", pos))
			assert.Equal(t, map[string]any{"position": map[string]any{"x": 3.0, "y": 4.0}}, f.value("e2"))

			hp := f.newComponent(t, health, schema.Record{"hp": 10.0})
			require.NoError(t, f.world.SetComponent("e2", hp))
			assert.Equal(t, map[string]any{"hp": 10.0}, f.value("e2", "health"))

			require.NoError(t, hp.Object().Set("hp", 7.0))
			assert.Equal(t, 7.0, f.value("e2", "health", "hp"))

			next := f.newComponent(t, position, schema.Record{"x": 9.0, "y": 9.0})
			require.NoError(t, f.world.SetComponent("e2", next))
			assert.Equal(t, map[string]any{"x": 9.0, "y": 9.0}, f.value("e2", "position"))

			require.NoError(t, pos.Object().Set("x", 100.0))
			assert.Equal(t, 9.0, f.value("e2", "position", "x"), "detached component is unbound")
			require.NoError(t, next.Object().Set("x", 11.0))
			assert.Equal(t, 11.0, f.value("e2", "position", "x"))

			assert.True(t, f.world.UnsetComponent("e2", "health"))
			assert.Nil(t, f.value("e2", "health"))

			f.world.DestroyEntity("e2")
			assert.Nil(t, f.value("e2"))
			assert.Equal(t, 1, f.sync.Stats().Bindings)
			assert.Equal(t, startDoc(), f.doc.Snapshot())
		})
	}
}

func TestIncrementalSkipsUnknownTypes(t *testing.T) {
	for _, st := range setups {
		t.Run(st.name, func(t *testing.T) {
			f := open(t, st, startDoc())

			f.change(t, func(tx document.Tx) error {
				return tx.Put(document.Path{"e3"}, map[string]any{
					"position": map[string]any{"x": 1.0, "y": 1.0},
					"mystery":  map[string]any{"a": 1.0},
				})
			})
			require.True(t, f.world.Has("e3"))
			_, ok := f.world.Component("e3", "mystery")
			assert.False(t, ok)
			assert.Equal(t, 1, f.logs.FilterMessage("skipping component").Len())

			// The rest of the entity stays live and the failure is not
			// reported again.
			f.change(t, func(tx document.Tx) error {
				return tx.Put(document.Path{"e3", "position", "x"}, 4.0)
			})
			assert.Equal(t, 4.0, f.component(t, "e3", "position").Object().Get("x"))
			f.change(t, func(tx document.Tx) error {
				return tx.Put(document.Path{"e3", "health"}, map[string]any{"hp": 1.0})
			})
			assert.Equal(t, 1, f.logs.FilterMessage("skipping component").Len())

			f.change(t, func(tx document.Tx) error {
				return tx.Put(document.Path{"e4"}, "oops")
			})
			assert.False(t, f.world.Has("e4"))
			assert.Equal(t, 1, f.logs.FilterMessage("skipping malformed entity").Len())

			f.change(t, func(tx document.Tx) error {
				return tx.Put(document.Path{"e1", "position", "x"}, "wrong")
			})
			assert.Equal(t, 1.0, f.component(t, "e1", "position").Object().Get("x"))
			assert.Equal(t, 1, f.logs.FilterMessage("skipping component state").Len())

			assert.Equal(t, uint64(3), f.sync.Stats().Skipped)
		})
	}
}

func TestSkippedComponentRecovers(t *testing.T) {
	for _, st := range setups {
		t.Run(st.name, func(t *testing.T) {
			f := open(t, st, startDoc())

			bad := map[string]any{"hp": "bad"}
			f.change(t, func(tx document.Tx) error {
				return tx.Put(document.Path{"e1", "health"}, bad)
			})
			_, ok := f.world.Component("e1", "health")
			require.False(t, ok)
			require.Equal(t, 1, f.logs.FilterMessage("skipping component").Len())

			f.change(t, func(tx document.Tx) error {
				return tx.Put(document.Path{"e1", "health"}, bad)
			})
			assert.Equal(t, 1, f.logs.FilterMessage("skipping component").Len())

			f.change(t, func(tx document.Tx) error {
				return tx.Put(document.Path{"e1", "health"}, map[string]any{"hp": 7.0})
			})
			assert.Equal(t, 7.0, f.component(t, "e1", "health").Object().Get("hp"))

			require.NoError(t, f.component(t, "e1", "health").Object().Set("hp", 8.0))
			assert.Equal(t, 8.0, f.value("e1", "health", "hp"))
		})
	}
}

func TestSkippedComponentFieldFix(t *testing.T) {
	for _, st := range setups {
		t.Run(st.name, func(t *testing.T) {
			f := open(t, st, startDoc())

			f.change(t, func(tx document.Tx) error {
				return tx.Put(document.Path{"e2"}, map[string]any{
					"position": map[string]any{"x": 1.0, "y": 1.0},
					"health":   map[string]any{"hp": "bad"},
				})
			})
			require.True(t, f.world.Has("e2"))
			_, ok := f.world.Component("e2", "health")
			require.False(t, ok)

			f.change(t, func(tx document.Tx) error {
				return tx.Put(document.Path{"e2", "health", "hp"}, 3.0)
			})
			assert.Equal(t, 3.0, f.component(t, "e2", "health").Object().Get("hp"))
			assert.Equal(t, 1, f.logs.FilterMessage("skipping component").Len())
		})
	}
}

func TestLoadIsStrict(t *testing.T) {
	rt := reactive.NewRuntime()

	doc, err := document.NewMemory(map[string]any{
		"e1": map[string]any{"position": map[string]any{"x": 1.0, "y": 2.0}},
		"e2": map[string]any{"mystery": map[string]any{}},
	})
	require.NoError(t, err)
	_, err = Load(rt, doc, types)
	assert.True(t, errors.Is(err, world.ErrUnknownType), err)
	assert.ErrorContains(t, err, "mystery")

	doc, err = document.NewMemory(map[string]any{"e1": 5.0})
	require.NoError(t, err)
	_, err = Load(rt, doc, types)
	assert.True(t, errors.Is(err, world.ErrMalformedEntity), err)

	doc, err = document.NewMemory(map[string]any{
		"e1": map[string]any{"position": map[string]any{"x": 1.0}},
	})
	require.NoError(t, err)
	_, err = Load(rt, doc, types)
	assert.True(t, errors.Is(err, schema.ErrMissingField), err)
}

func TestStartMergesBothSides(t *testing.T) {
	rt := reactive.NewRuntime()
	w := world.New(rt)
	local, err := world.NewComponent(rt, position, schema.Record{"x": 1.0, "y": 2.0})
	require.NoError(t, err)
	require.NoError(t, w.CreateEntityWithID("e1", local))
	only, err := world.NewComponent(rt, health, schema.Record{"hp": 5.0})
	require.NoError(t, err)
	require.NoError(t, w.CreateEntityWithID("e3", only))

	doc, err := document.NewMemory(map[string]any{
		"e1": map[string]any{"position": map[string]any{"x": 7.0, "y": 8.0}},
		"e2": map[string]any{"health": map[string]any{"hp": 1.0}},
	})
	require.NoError(t, err)

	s, err := New(w, doc, types)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, schema.Record{"x": 7.0, "y": 8.0}, local.Object().Value(), "document state wins")
	assert.True(t, w.Has("e2"))
	v, ok := doc.Value(document.Path{"e3", "health", "hp"})
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
	assert.Equal(t, doc.Snapshot(), w.Serialize())
}

func TestSecretCodes(t *testing.T) {
	for _, st := range setups {
		t.Run(st.name, func(t *testing.T) {
			f := open(t, st, map[string]any{
				"v": map[string]any{"vault": map[string]any{
					"secretCodes": []any{[]any{1.0, 2.0}, []any{3.0}},
				}},
			})
			codes := f.component(t, "v", "vault").Object().Array("secretCodes")
			row := codes.Array(1)

			require.NoError(t, row.Append(4.0))
			require.Len(t, *f.changes, 1)
			p := (*f.changes)[0].Patches
			require.Len(t, p, 1)
			assert.Equal(t, document.PatchInsert, p[0].Kind)
			assert.Equal(t, document.Path{"v", "vault", "secretCodes", "1", "1"}, p[0].Path)
			assert.Equal(t, []any{[]any{1.0, 2.0}, []any{3.0, 4.0}}, f.value("v", "vault", "secretCodes"))

			f.change(t, func(tx document.Tx) error {
				return tx.Put(document.Path{"v", "vault", "secretCodes", "0", "0"}, 10.0)
			})
			assert.Equal(t, 10.0, codes.Array(0).At(0))
			assert.Same(t, row, codes.Array(1))
			assert.Equal(t, []any{[]any{10.0, 2.0}, []any{3.0, 4.0}}, codes.Value())
			assert.Len(t, *f.changes, 2)
		})
	}
}

func TestTwoWorldsConverge(t *testing.T) {
	rt := reactive.NewRuntime()
	doc, err := document.NewMemory(startDoc())
	require.NoError(t, err)

	a, err := Open(context.Background(), rt, document.Ready(doc), types)
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(context.Background(), rt, document.Ready(doc), types, WithProtocol(ProtocolPatch))
	require.NoError(t, err)
	defer b.Close()

	pa, ok := a.World().Component("e1", "position")
	require.True(t, ok)
	require.NoError(t, pa.Object().Set("x", 42.0))
	pb, ok := b.World().Component("e1", "position")
	require.True(t, ok)
	assert.Equal(t, 42.0, pb.Object().Get("x"))

	hp, err := world.NewComponent(rt, health, schema.Record{"hp": 2.0})
	require.NoError(t, err)
	require.NoError(t, b.World().CreateEntityWithID("e9", hp))
	require.True(t, a.World().Has("e9"))

	require.NoError(t, hp.Object().Set("hp", 1.0))
	b.World().UnsetComponent("e1", "position")

	assert.Equal(t, doc.Snapshot(), a.World().Serialize())
	assert.Equal(t, doc.Snapshot(), b.World().Serialize())
}

func TestOpenWaitsForDocument(t *testing.T) {
	rt := reactive.NewRuntime()
	doc, err := document.NewMemory(startDoc())
	require.NoError(t, err)

	future := document.NewFuture()
	go future.Resolve(doc)
	s, err := Open(context.Background(), rt, future, types)
	require.NoError(t, err)
	assert.True(t, s.World().Has("e1"))
	require.NoError(t, s.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = Open(ctx, rt, document.NewFuture(), types)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), err)

	rejected := document.NewFuture()
	rejected.Reject(errors.New("peer gone"))
	_, err = Open(context.Background(), rt, rejected, types)
	assert.True(t, errors.Is(err, document.ErrNotResolved), err)
}

func TestClose(t *testing.T) {
	f := open(t, setups[0], startDoc())
	c := f.component(t, "e1", "position")

	require.NoError(t, f.sync.Close())
	require.NoError(t, f.sync.Close())
	assert.Equal(t, 0, f.sync.Stats().Bindings)

	require.NoError(t, c.Object().Set("x", 5.0))
	assert.Equal(t, 1.0, f.value("e1", "position", "x"))

	f.change(t, func(tx document.Tx) error {
		return tx.Put(document.Path{"e1", "position", "y"}, 9.0)
	})
	assert.Equal(t, 2.0, c.Object().Get("y"))

	require.NoError(t, f.world.CreateEntityWithID("e2"))
	assert.Nil(t, f.value("e2"))

	assert.True(t, errors.Is(f.sync.Resync(), ErrClosed))
}

func TestResync(t *testing.T) {
	rt := reactive.NewRuntime()
	doc, err := document.NewMemory(startDoc())
	require.NoError(t, err)
	s, err := Open(context.Background(), rt, document.Ready(doc), types, WithProtocol(ProtocolPatch))
	require.NoError(t, err)
	defer s.Close()

	// Changes the synchronizer never hears about.
	s.unsubscribe()
	require.NoError(t, doc.Change(func(tx document.Tx) error {
		if err := tx.Put(document.Path{"e1", "position", "x"}, 3.0); err != nil {
			return err
		}
		return tx.Put(document.Path{"e2"}, map[string]any{"health": map[string]any{"hp": 1.0}})
	}))
	assert.False(t, s.World().Has("e2"))

	require.NoError(t, s.Resync())
	c, ok := s.World().Component("e1", "position")
	require.True(t, ok)
	assert.Equal(t, 3.0, c.Object().Get("x"))
	assert.True(t, s.World().Has("e2"))
}

func TestParseProtocol(t *testing.T) {
	p, err := ParseProtocol(" Patch ")
	require.NoError(t, err)
	assert.Equal(t, ProtocolPatch, p)

	p, err = ParseProtocol("")
	require.NoError(t, err)
	assert.Equal(t, ProtocolDiff, p)

	_, err = ParseProtocol("crdt")
	assert.True(t, errors.Is(err, ErrUnknownProtocol))
}
