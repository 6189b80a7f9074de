package graph

import (
	"context"

	"github.com/roach88/graphsync/internal/protocol"
	"github.com/roach88/graphsync/internal/source"
)

// Role distinguishes a system's root object from the nodes below it.
type Role string

const (
	RoleRoot Role = "root"
	RoleNode Role = "node"
)

// Object is a node of a system's object tree. Objects are owned by their
// system; parent and childs only describe the tree shape.
type Object struct {
	node
	id      ObjectID
	system  SystemID
	parent  ObjectID
	role    Role
	childs  children[ObjectID]
	states  children[StateID]
	actions children[ActionID]
}

func (g *Graph) newObject(system SystemID, parent ObjectID, role Role, d source.Diff) (*Object, error) {
	o := &Object{
		id:      ObjectID(g.newKey()),
		system:  system,
		parent:  parent,
		role:    role,
		childs:  newChildren[ObjectID](),
		states:  newChildren[StateID](),
		actions: newChildren[ActionID](),
	}
	o.setup(g, source.KindObject, string(o.id), d.Clone(),
		func() bool { return g.objects.Exists(o.id) },
		o.apply,
	)
	if err := g.objects.Register(o.id, o); err != nil {
		return nil, err
	}
	g.metrics.registered(source.KindObject)
	return o, nil
}

// ID returns the local ID.
func (o *Object) ID() ObjectID { return o.id }

// System returns the owning system's ID.
func (o *Object) System() SystemID { return o.system }

// Parent returns the parent object, if any.
func (o *Object) Parent() (ObjectID, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.parent, o.parent != ""
}

// Role returns the object's role.
func (o *Object) Role() Role {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.role
}

// Childs returns the child objects in order.
func (o *Object) Childs() []ObjectID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.childs.values()
}

// States returns the state IDs in collection order.
func (o *Object) States() []StateID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.states.values()
}

// Actions returns the action IDs in collection order.
func (o *Object) Actions() []ActionID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.actions.values()
}

func (o *Object) StartUpdating(ctx context.Context, opts ...protocol.Option) error {
	return o.startUpdating(ctx, opts)
}

func (o *Object) StopUpdating(ctx context.Context, opts ...protocol.Option) error {
	return o.stopUpdating(ctx, opts)
}

func (o *Object) PushName(ctx context.Context, opts ...protocol.Option) error {
	return o.pushName(ctx, opts)
}

// CreateChild asks the remote side for a child object. The new object is
// added to the system and linked below this one.
func (o *Object) CreateChild(ctx context.Context, opts ...protocol.Option) error {
	fields := map[string]string{source.FieldRole: string(RoleNode)}
	return o.createChild(ctx, "create_child", source.KindObject, fields, nil, opts)
}

// AppendNewState asks the remote side for a new state.
func (o *Object) AppendNewState(ctx context.Context, opts ...protocol.Option) error {
	fields := map[string]string{source.FieldAccessLevel: string(AccessReadWrite)}
	return o.createChild(ctx, "append_new_state", source.KindState, fields, nil, opts)
}

// AppendNewAction asks the remote side for a new action.
func (o *Object) AppendNewAction(ctx context.Context, opts ...protocol.Option) error {
	return o.createChild(ctx, "append_new_action", source.KindAction, nil, nil, opts)
}

// Remove deletes the object with its child objects, states and actions.
func (o *Object) Remove(ctx context.Context, opts ...protocol.Option) error {
	return o.remove(ctx, o, opts)
}

func (o *Object) apply(_ context.Context, e source.Event) error {
	switch e.Type {
	case source.EventModified:
		return o.applyModified(e.Diff, nil)
	case source.EventRemoved:
		return o.g.removed(o)
	case source.EventAdded:
		switch e.Child {
		case source.KindState:
			return o.addState(e)
		case source.KindAction:
			return o.addAction(e)
		}
	}
	return o.unexpected(e)
}

func (o *Object) addState(e source.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	d := e.Diff
	if o.states.has(d.Target) {
		return newError(CodeAlreadyAdded, source.KindState, string(d.Target))
	}
	s, err := o.g.newState(o.id, d)
	if err != nil {
		return err
	}
	o.states.insert(d.Target, s.id, e.After)
	return nil
}

func (o *Object) addAction(e source.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	d := e.Diff
	if o.actions.has(d.Target) {
		return newError(CodeAlreadyAdded, source.KindAction, string(d.Target))
	}
	a, err := o.g.newAction(o.id, d)
	if err != nil {
		return err
	}
	o.actions.insert(d.Target, a.id, e.After)
	return nil
}

// insertChild links a child object. Called by the system with its own lock
// held.
func (o *Object) insertChild(t source.Target, id ObjectID, after source.Target) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.alive() {
		return
	}
	o.childs.insert(t, id, after)
}

func (o *Object) unregister() bool {
	return o.g.objects.Unregister(o.id)
}

func (o *Object) takeChildren() []entity {
	var out []entity
	for _, id := range o.childs.drain() {
		if c, ok := o.g.objects.Resolve(id); ok {
			out = append(out, c)
		}
	}
	for _, id := range o.states.drain() {
		if s, ok := o.g.states.Resolve(id); ok {
			out = append(out, s)
		}
	}
	for _, id := range o.actions.drain() {
		if a, ok := o.g.actions.Resolve(id); ok {
			out = append(out, a)
		}
	}
	return out
}

func (o *Object) detach() {
	o.mu.Lock()
	target, parent := o.target, o.parent
	o.mu.Unlock()

	if s, ok := o.g.systems.Resolve(o.system); ok {
		s.mu.Lock()
		s.objects.remove(target)
		if s.root == o.id {
			s.root = ""
		}
		s.mu.Unlock()
	}
	if parent == "" {
		return
	}
	if p, ok := o.g.objects.Resolve(parent); ok {
		p.mu.Lock()
		p.childs.remove(target)
		p.mu.Unlock()
	}
}
