package graph

import (
	"context"
	"fmt"

	"github.com/roach88/graphsync/internal/protocol"
	"github.com/roach88/graphsync/internal/source"
)

// Location is a system's position on the project board.
type Location struct {
	X int
	Y int
}

func (l Location) String() string {
	return fmt.Sprintf("%d,%d", l.X, l.Y)
}

// ParseLocation parses the "x,y" form produced by Location.String.
func ParseLocation(s string) (Location, error) {
	var l Location
	if _, err := fmt.Sscanf(s, "%d,%d", &l.X, &l.Y); err != nil {
		return Location{}, fmt.Errorf("parse location %q: %w", s, err)
	}
	return l, nil
}

// System owns the objects of one system, at most one of which is the root.
type System struct {
	node
	id       SystemID
	project  ProjectID
	location Location
	objects  children[ObjectID]
	root     ObjectID
}

func (g *Graph) newSystem(project ProjectID, d source.Diff) (*System, error) {
	s := &System{
		id:      SystemID(g.newKey()),
		project: project,
		objects: newChildren[ObjectID](),
	}
	s.location, _ = ParseLocation(d.Field(source.FieldLocation))
	s.setup(g, source.KindSystem, string(s.id), d.Clone(),
		func() bool { return g.systems.Exists(s.id) },
		s.apply,
	)
	if err := g.systems.Register(s.id, s); err != nil {
		return nil, err
	}
	g.metrics.registered(source.KindSystem)
	return s, nil
}

// ID returns the local ID.
func (s *System) ID() SystemID { return s.id }

// Project returns the owning project's ID.
func (s *System) Project() ProjectID { return s.project }

// Location returns the confirmed location.
func (s *System) Location() Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

// Root returns the root object, if any.
func (s *System) Root() (ObjectID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root, s.root != ""
}

// Objects returns every object of the system in collection order.
func (s *System) Objects() []ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects.values()
}

// ObjectFor returns the local ID of the object with the given target.
func (s *System) ObjectFor(t source.Target) (ObjectID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects.get(t)
}

// StartUpdating subscribes the system to its source.
func (s *System) StartUpdating(ctx context.Context, opts ...protocol.Option) error {
	return s.startUpdating(ctx, opts)
}

// StopUpdating drops the subscription.
func (s *System) StopUpdating(ctx context.Context, opts ...protocol.Option) error {
	return s.stopUpdating(ctx, opts)
}

// PushName submits the staged name.
func (s *System) PushName(ctx context.Context, opts ...protocol.Option) error {
	return s.pushName(ctx, opts)
}

// CreateRoot asks the remote side for the system's root object. It fails
// with ROOT_ALREADY_EXISTS when a live root is present.
func (s *System) CreateRoot(ctx context.Context, opts ...protocol.Option) error {
	fields := map[string]string{source.FieldRole: string(RoleRoot)}
	return s.createChild(ctx, "create_root", source.KindObject, fields, func() error {
		if s.root != "" && s.g.objects.Exists(s.root) {
			return newError(CodeRootAlreadyExists, source.KindSystem, s.key)
		}
		return nil
	}, opts)
}

// Remove deletes the system remotely and then locally with its objects.
func (s *System) Remove(ctx context.Context, opts ...protocol.Option) error {
	return s.remove(ctx, s, opts)
}

func (s *System) apply(_ context.Context, e source.Event) error {
	switch e.Type {
	case source.EventModified:
		return s.applyModified(e.Diff, func(d source.Diff) {
			if loc, err := ParseLocation(d.Field(source.FieldLocation)); err == nil {
				s.location = loc
			}
		})
	case source.EventRemoved:
		return s.g.removed(s)
	case source.EventAdded:
		if e.Child == source.KindObject {
			return s.addObject(e)
		}
	}
	return s.unexpected(e)
}

func (s *System) addObject(e source.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := e.Diff
	if s.objects.has(d.Target) {
		return newError(CodeAlreadyAdded, source.KindObject, string(d.Target))
	}
	role := Role(d.Field(source.FieldRole))
	if role == "" {
		role = RoleNode
	}
	if role == RoleRoot && s.root != "" && s.g.objects.Exists(s.root) {
		return newError(CodeRootAlreadyExists, source.KindSystem, s.key)
	}

	var parent ObjectID
	if d.Parent != "" {
		var ok bool
		if parent, ok = s.objects.get(d.Parent); !ok {
			return &Error{
				Code:    CodeUnexpectedEvent,
				Kind:    source.KindObject,
				ID:      string(d.Target),
				Message: fmt.Sprintf("parent object %s is not mirrored", d.Parent),
			}
		}
	}
	o, err := s.g.newObject(s.id, parent, role, d)
	if err != nil {
		return err
	}
	s.objects.insert(d.Target, o.id, e.After)
	if role == RoleRoot {
		s.root = o.id
	}

	if parent != "" {
		if po, ok := s.g.objects.Resolve(parent); ok {
			po.insertChild(d.Target, o.id, e.After)
		}
	}
	return nil
}

func (s *System) unregister() bool {
	return s.g.systems.Unregister(s.id)
}

func (s *System) takeChildren() []entity {
	s.root = ""
	var out []entity
	for _, id := range s.objects.drain() {
		if o, ok := s.g.objects.Resolve(id); ok {
			out = append(out, o)
		}
	}
	return out
}

func (s *System) detach() {
	p, ok := s.g.projects.Resolve(s.project)
	if !ok {
		return
	}
	target := s.Target()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.systems.remove(target)
}
