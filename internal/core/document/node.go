package document

import (
	stdjson "encoding/json"
	"sort"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

type node struct {
	id     NodeID
	kind   Kind
	scalar any
	fields map[string]*node
	items  []*node
}

type arena struct {
	next NodeID
}

func (a *arena) build(value any) (*node, error) {
	a.next++
	n := &node{id: a.next}
	switch v := value.(type) {
	case nil:
		n.kind = KindNull
	case bool:
		n.kind, n.scalar = KindBool, v
	case string:
		n.kind, n.scalar = KindString, v
	case float64:
		n.kind, n.scalar = KindNumber, v
	case float32:
		n.kind, n.scalar = KindNumber, float64(v)
	case int:
		n.kind, n.scalar = KindNumber, float64(v)
	case int32:
		n.kind, n.scalar = KindNumber, float64(v)
	case int64:
		n.kind, n.scalar = KindNumber, float64(v)
	case uint32:
		n.kind, n.scalar = KindNumber, float64(v)
	case uint64:
		n.kind, n.scalar = KindNumber, float64(v)
	case stdjson.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, eris.Wrapf(ErrUnsupportedValue, "number %q", v.String())
		}
		n.kind, n.scalar = KindNumber, f
	case map[string]any:
		n.kind = KindObject
		n.fields = make(map[string]*node, len(v))
		for k, child := range v {
			c, err := a.build(child)
			if err != nil {
				return nil, err
			}
			n.fields[k] = c
		}
	case []any:
		n.kind = KindArray
		n.items = make([]*node, len(v))
		for i, child := range v {
			c, err := a.build(child)
			if err != nil {
				return nil, err
			}
			n.items[i] = c
		}
	default:
		// Named map and slice types: go through their JSON form.
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, eris.Wrapf(ErrUnsupportedValue, "%T", value)
		}
		var generic any
		if err = json.Unmarshal(raw, &generic); err != nil {
			return nil, eris.Wrapf(ErrUnsupportedValue, "%T", value)
		}
		a.next--
		return a.build(generic)
	}
	return n, nil
}

func (n *node) snapshot() any {
	switch n.kind {
	case KindObject:
		out := make(map[string]any, len(n.fields))
		for k, c := range n.fields {
			out[k] = c.snapshot()
		}
		return out
	case KindArray:
		out := make([]any, len(n.items))
		for i, c := range n.items {
			out[i] = c.snapshot()
		}
		return out
	default:
		return n.scalar
	}
}

func (n *node) describe() Node {
	d := Node{ID: n.id, Kind: n.kind}
	switch n.kind {
	case KindObject:
		d.Len = len(n.fields)
	case KindArray:
		d.Len = len(n.items)
	}
	return d
}

func (n *node) child(seg string) (*node, bool) {
	switch n.kind {
	case KindObject:
		c, ok := n.fields[seg]
		return c, ok
	case KindArray:
		i, err := parseIndex(seg, len(n.items), false)
		if err != nil {
			return nil, false
		}
		return n.items[i], true
	default:
		return nil, false
	}
}

func (n *node) resolve(path Path) (*node, bool) {
	cur := n
	for _, seg := range path {
		next, ok := cur.child(seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func (n *node) keys() []string {
	out := make([]string, 0, len(n.fields))
	for k := range n.fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
