package graph

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/roach88/graphsync/internal/source"
)

// children is an ordered child collection keyed by domain target. It
// supports lookup by target and insertion behind an existing sibling.
//
// Not safe for concurrent use; guarded by the owning entity's lock.
type children[K comparable] struct {
	m *orderedmap.OrderedMap[source.Target, K]
}

func newChildren[K comparable]() children[K] {
	return children[K]{m: orderedmap.New[source.Target, K]()}
}

func (c children[K]) get(t source.Target) (K, bool) {
	return c.m.Get(t)
}

func (c children[K]) has(t source.Target) bool {
	_, ok := c.m.Get(t)
	return ok
}

// insert adds id under t. A non-empty after that is present places the new
// entry directly behind it; otherwise the entry is appended.
func (c children[K]) insert(t source.Target, id K, after source.Target) {
	c.m.Set(t, id)
	if after == "" || after == t {
		return
	}
	if _, ok := c.m.Get(after); ok {
		_ = c.m.MoveAfter(t, after)
	}
}

func (c children[K]) remove(t source.Target) bool {
	_, ok := c.m.Delete(t)
	return ok
}

func (c children[K]) len() int {
	return c.m.Len()
}

func (c children[K]) values() []K {
	out := make([]K, 0, c.m.Len())
	for p := c.m.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

func (c children[K]) targets() []source.Target {
	out := make([]source.Target, 0, c.m.Len())
	for p := c.m.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// drain empties the collection and returns what it held, in order.
func (c *children[K]) drain() []K {
	out := c.values()
	c.m = orderedmap.New[source.Target, K]()
	return out
}
