package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/graphsync/internal/graph"
	"github.com/roach88/graphsync/internal/source"
)

type segment struct {
	kind source.Kind
	name string
}

func (s segment) String() string {
	return s.kind.String() + ":" + s.name
}

// parsePath splits "kind:name/kind:name". The empty path has no segments.
func parsePath(path string) ([]segment, error) {
	if path == "" {
		return nil, nil
	}
	var out []segment
	for _, part := range strings.Split(path, "/") {
		k, name, ok := strings.Cut(part, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("path %q: segment %q is not kind:name", path, part)
		}
		kind, err := source.ParseKind(k)
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", path, err)
		}
		out = append(out, segment{kind: kind, name: name})
	}
	return out, nil
}

// handle is a resolved graph entity.
type handle struct {
	kind source.Kind
	v    any
}

type named interface {
	Name() string
	SourceID() source.ID
}

func (h handle) name() string {
	return h.v.(named).Name()
}

func (h handle) sourceID() source.ID {
	return h.v.(named).SourceID()
}

// resolve walks path down from p.
func resolve(g *graph.Graph, p *graph.Project, path string) (handle, bool) {
	segs, err := parsePath(path)
	if err != nil {
		return handle{}, false
	}
	cur := handle{kind: source.KindProject, v: p}
	for _, seg := range segs {
		next, ok := find(childrenOf(g, cur, seg.kind), seg.name)
		if !ok {
			return handle{}, false
		}
		cur = next
	}
	return cur, true
}

func find(hs []handle, name string) (handle, bool) {
	for _, h := range hs {
		if h.name() == name {
			return h, true
		}
	}
	return handle{}, false
}

// childrenOf lists the live children of h of the given kind, in order. A
// system lists only its top-level objects; nested objects hang below their
// parent object.
func childrenOf(g *graph.Graph, h handle, kind source.Kind) []handle {
	switch v := h.v.(type) {
	case *graph.Project:
		switch kind {
		case source.KindSystem:
			return collect(kind, v.Systems(), g.System)
		case source.KindValue:
			return collect(kind, v.Values(), g.Value)
		}
	case *graph.System:
		if kind != source.KindObject {
			return nil
		}
		var out []handle
		for _, o := range collect(kind, v.Objects(), g.Object) {
			if _, nested := o.v.(*graph.Object).Parent(); !nested {
				out = append(out, o)
			}
		}
		return out
	case *graph.Object:
		switch kind {
		case source.KindObject:
			return collect(kind, v.Childs(), g.Object)
		case source.KindState:
			return collect(kind, v.States(), g.State)
		case source.KindAction:
			return collect(kind, v.Actions(), g.Action)
		}
	case *graph.State:
		switch kind {
		case source.KindGetter:
			return collect(kind, v.Getters(), g.Getter)
		case source.KindSetter:
			return collect(kind, v.Setters(), g.Setter)
		}
	}
	return nil
}

func collect[K any, E any](kind source.Kind, ids []K, get func(K) (E, bool)) []handle {
	var out []handle
	for _, id := range ids {
		if e, ok := get(id); ok {
			out = append(out, handle{kind: kind, v: e})
		}
	}
	return out
}

// fieldOf returns the confirmed kind-specific field of h.
func fieldOf(h handle, field string) (string, bool) {
	switch v := h.v.(type) {
	case *graph.System:
		if field == source.FieldLocation {
			return v.Location().String(), true
		}
	case *graph.Object:
		if field == source.FieldRole {
			return string(v.Role()), true
		}
	case *graph.State:
		if field == source.FieldAccessLevel {
			return string(v.AccessLevel()), true
		}
	case *graph.Getter:
		if field == source.FieldResult {
			return v.Result(), true
		}
	case *graph.Setter:
		if field == source.FieldParameter {
			return v.Parameter(), true
		}
	case *graph.Value:
		if field == source.FieldDescription {
			return v.Description(), true
		}
	}
	if field == source.FieldName {
		return h.name(), true
	}
	return "", false
}
