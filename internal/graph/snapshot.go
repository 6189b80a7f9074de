package graph

import (
	"github.com/roach88/graphsync/internal/source"
)

// Snapshot is a point-in-time, ID-free view of a subtree. Two graphs that
// mirror the same remote tree produce equal snapshots.
type Snapshot struct {
	Kind     string            `json:"kind"`
	Name     string            `json:"name"`
	Fields   map[string]string `json:"fields,omitempty"`
	Children []Snapshot        `json:"children,omitempty"`
}

// Snapshot returns one snapshot per live project. The result is never nil.
func (g *Graph) Snapshot() []Snapshot {
	out := []Snapshot{}
	for _, p := range g.Projects() {
		out = append(out, p.Snapshot())
	}
	return out
}

// Snapshot returns the project's subtree: systems first, then values.
func (p *Project) Snapshot() Snapshot {
	snap := Snapshot{Kind: source.KindProject.String(), Name: p.Name()}
	for _, id := range p.Systems() {
		if s, ok := p.g.systems.Resolve(id); ok {
			snap.Children = append(snap.Children, s.Snapshot())
		}
	}
	for _, id := range p.Values() {
		if v, ok := p.g.values.Resolve(id); ok {
			snap.Children = append(snap.Children, v.Snapshot())
		}
	}
	return snap
}

// Snapshot returns the system with its top-level objects. Child objects
// appear below their parent.
func (s *System) Snapshot() Snapshot {
	snap := Snapshot{
		Kind:   source.KindSystem.String(),
		Name:   s.Name(),
		Fields: map[string]string{source.FieldLocation: s.Location().String()},
	}
	for _, id := range s.Objects() {
		o, ok := s.g.objects.Resolve(id)
		if !ok {
			continue
		}
		if _, nested := o.Parent(); nested {
			continue
		}
		snap.Children = append(snap.Children, o.Snapshot())
	}
	return snap
}

// Snapshot returns the object with its child objects, states and actions.
func (o *Object) Snapshot() Snapshot {
	snap := Snapshot{
		Kind:   source.KindObject.String(),
		Name:   o.Name(),
		Fields: map[string]string{source.FieldRole: string(o.Role())},
	}
	for _, id := range o.Childs() {
		if c, ok := o.g.objects.Resolve(id); ok {
			snap.Children = append(snap.Children, c.Snapshot())
		}
	}
	for _, id := range o.States() {
		if st, ok := o.g.states.Resolve(id); ok {
			snap.Children = append(snap.Children, st.Snapshot())
		}
	}
	for _, id := range o.Actions() {
		if a, ok := o.g.actions.Resolve(id); ok {
			snap.Children = append(snap.Children, Snapshot{Kind: source.KindAction.String(), Name: a.Name()})
		}
	}
	return snap
}

func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Kind:   source.KindState.String(),
		Name:   s.Name(),
		Fields: map[string]string{source.FieldAccessLevel: string(s.AccessLevel())},
	}
	for _, id := range s.Getters() {
		if x, ok := s.g.getters.Resolve(id); ok {
			snap.Children = append(snap.Children, Snapshot{
				Kind:   source.KindGetter.String(),
				Name:   x.Name(),
				Fields: map[string]string{source.FieldResult: x.Result()},
			})
		}
	}
	for _, id := range s.Setters() {
		if x, ok := s.g.setters.Resolve(id); ok {
			snap.Children = append(snap.Children, Snapshot{
				Kind:   source.KindSetter.String(),
				Name:   x.Name(),
				Fields: map[string]string{source.FieldParameter: x.Parameter()},
			})
		}
	}
	return snap
}

func (v *Value) Snapshot() Snapshot {
	return Snapshot{
		Kind:   source.KindValue.String(),
		Name:   v.Name(),
		Fields: map[string]string{source.FieldDescription: v.Description()},
	}
}

// Count returns the number of entities in the snapshot tree, s included.
func (s Snapshot) Count() int {
	n := 1
	for _, c := range s.Children {
		n += c.Count()
	}
	return n
}
