package graph

import (
	"context"

	"github.com/roach88/graphsync/internal/protocol"
	"github.com/roach88/graphsync/internal/source"
)

// Project is the root of the hierarchy. It owns systems and values.
type Project struct {
	node
	id      ProjectID
	systems children[SystemID]
	values  children[ValueID]
}

// NewProject mirrors an existing remote project document. It is the only
// entity created by a direct local call; everything below it is created
// by updaters.
func (g *Graph) NewProject(d source.Diff) (*Project, error) {
	for _, p := range g.Projects() {
		if p.Target() == d.Target {
			return nil, newError(CodeAlreadyAdded, source.KindProject, string(d.Target))
		}
	}

	p := &Project{
		id:      ProjectID(g.newKey()),
		systems: newChildren[SystemID](),
		values:  newChildren[ValueID](),
	}
	p.setup(g, source.KindProject, string(p.id), d.Clone(),
		func() bool { return g.projects.Exists(p.id) },
		p.apply,
	)
	if err := g.projects.Register(p.id, p); err != nil {
		return nil, err
	}
	g.metrics.registered(source.KindProject)
	return p, nil
}

// ID returns the local ID.
func (p *Project) ID() ProjectID { return p.id }

// Systems returns the system IDs in collection order.
func (p *Project) Systems() []SystemID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.systems.values()
}

// SystemFor returns the local ID of the system with the given target.
func (p *Project) SystemFor(t source.Target) (SystemID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.systems.get(t)
}

// Values returns the value IDs in collection order.
func (p *Project) Values() []ValueID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values.values()
}

// StartUpdating subscribes the project to its source.
func (p *Project) StartUpdating(ctx context.Context, opts ...protocol.Option) error {
	return p.startUpdating(ctx, opts)
}

// StopUpdating drops the subscription.
func (p *Project) StopUpdating(ctx context.Context, opts ...protocol.Option) error {
	return p.stopUpdating(ctx, opts)
}

// PushName submits the staged name.
func (p *Project) PushName(ctx context.Context, opts ...protocol.Option) error {
	return p.pushName(ctx, opts)
}

// CreateSystem asks the remote side for a new system at loc. It fails with
// LOCATION_OCCUPIED when a live system of this project already sits there.
func (p *Project) CreateSystem(ctx context.Context, loc Location, opts ...protocol.Option) error {
	fields := map[string]string{source.FieldLocation: loc.String()}
	return p.createChild(ctx, "create_system", source.KindSystem, fields, func() error {
		for _, id := range p.systems.values() {
			s, ok := p.g.systems.Resolve(id)
			if ok && s.Location() == loc {
				return &Error{Code: CodeLocationOccupied, Kind: source.KindSystem, ID: loc.String()}
			}
		}
		return nil
	}, opts)
}

// CreateValue asks the remote side for a new value.
func (p *Project) CreateValue(ctx context.Context, opts ...protocol.Option) error {
	return p.createChild(ctx, "create_value", source.KindValue, nil, nil, opts)
}

// Remove deletes the project remotely and then locally with its subtree.
func (p *Project) Remove(ctx context.Context, opts ...protocol.Option) error {
	return p.remove(ctx, p, opts)
}

func (p *Project) apply(_ context.Context, e source.Event) error {
	switch e.Type {
	case source.EventModified:
		return p.applyModified(e.Diff, nil)
	case source.EventRemoved:
		return p.g.removed(p)
	case source.EventAdded:
		switch e.Child {
		case source.KindSystem:
			return p.addSystem(e)
		case source.KindValue:
			return p.addValue(e)
		}
	}
	return p.unexpected(e)
}

func (p *Project) addSystem(e source.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	d := e.Diff
	if p.systems.has(d.Target) {
		return newError(CodeAlreadyAdded, source.KindSystem, string(d.Target))
	}
	s, err := p.g.newSystem(p.id, d)
	if err != nil {
		return err
	}
	p.systems.insert(d.Target, s.id, e.After)
	return nil
}

func (p *Project) addValue(e source.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	d := e.Diff
	if p.values.has(d.Target) {
		return newError(CodeAlreadyAdded, source.KindValue, string(d.Target))
	}
	v, err := p.g.newValue(p.id, d)
	if err != nil {
		return err
	}
	p.values.insert(d.Target, v.id, e.After)
	return nil
}

func (p *Project) unregister() bool {
	return p.g.projects.Unregister(p.id)
}

func (p *Project) takeChildren() []entity {
	var out []entity
	for _, id := range p.systems.drain() {
		if s, ok := p.g.systems.Resolve(id); ok {
			out = append(out, s)
		}
	}
	for _, id := range p.values.drain() {
		if v, ok := p.g.values.Resolve(id); ok {
			out = append(out, v)
		}
	}
	return out
}

func (p *Project) detach() {}
