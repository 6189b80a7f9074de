package graph

import (
	"context"

	"github.com/roach88/graphsync/internal/protocol"
	"github.com/roach88/graphsync/internal/source"
)

// AccessLevel controls how a state may be used by the object's actions.
type AccessLevel string

const (
	AccessReadOnly  AccessLevel = "read_only"
	AccessReadWrite AccessLevel = "read_write"
	AccessWriteOnly AccessLevel = "write_only"
)

// Valid reports whether l is one of the known access levels.
func (l AccessLevel) Valid() bool {
	switch l {
	case AccessReadOnly, AccessReadWrite, AccessWriteOnly:
		return true
	}
	return false
}

// State is an object's state slot with its getters and setters.
type State struct {
	node
	id               StateID
	object           ObjectID
	accessLevel      AccessLevel
	accessLevelInput AccessLevel
	getters          children[GetterID]
	setters          children[SetterID]
}

func (g *Graph) newState(object ObjectID, d source.Diff) (*State, error) {
	s := &State{
		id:      StateID(g.newKey()),
		object:  object,
		getters: newChildren[GetterID](),
		setters: newChildren[SetterID](),
	}
	s.accessLevel = AccessLevel(d.Field(source.FieldAccessLevel))
	s.accessLevelInput = s.accessLevel
	s.setup(g, source.KindState, string(s.id), d.Clone(),
		func() bool { return g.states.Exists(s.id) },
		s.apply,
	)
	if err := g.states.Register(s.id, s); err != nil {
		return nil, err
	}
	g.metrics.registered(source.KindState)
	return s, nil
}

// ID returns the local ID.
func (s *State) ID() StateID { return s.id }

// Object returns the owning object's ID.
func (s *State) Object() ObjectID { return s.object }

// AccessLevel returns the confirmed access level.
func (s *State) AccessLevel() AccessLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessLevel
}

// AccessLevelInput returns the staged access level.
func (s *State) AccessLevelInput() AccessLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessLevelInput
}

// SetAccessLevelInput stages an access level for the next PushChanges.
func (s *State) SetAccessLevelInput(l AccessLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessLevelInput = l
}

// Getters returns the getter IDs in collection order.
func (s *State) Getters() []GetterID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getters.values()
}

// Setters returns the setter IDs in collection order.
func (s *State) Setters() []SetterID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setters.values()
}

func (s *State) StartUpdating(ctx context.Context, opts ...protocol.Option) error {
	return s.startUpdating(ctx, opts)
}

func (s *State) StopUpdating(ctx context.Context, opts ...protocol.Option) error {
	return s.stopUpdating(ctx, opts)
}

func (s *State) PushName(ctx context.Context, opts ...protocol.Option) error {
	return s.pushName(ctx, opts)
}

// PushChanges submits the staged name and access level.
func (s *State) PushChanges(ctx context.Context, opts ...protocol.Option) error {
	return s.pushChanges(ctx, func() []fieldChange {
		return []fieldChange{{
			field:     source.FieldAccessLevel,
			confirmed: string(s.accessLevel),
			input:     string(s.accessLevelInput),
		}}
	}, opts)
}

// AppendNewGetter asks the remote side for a new getter.
func (s *State) AppendNewGetter(ctx context.Context, opts ...protocol.Option) error {
	return s.createChild(ctx, "append_new_getter", source.KindGetter, nil, nil, opts)
}

// AppendNewSetter asks the remote side for a new setter.
func (s *State) AppendNewSetter(ctx context.Context, opts ...protocol.Option) error {
	return s.createChild(ctx, "append_new_setter", source.KindSetter, nil, nil, opts)
}

// Duplicate copies the state, getters and setters included. The copy is
// placed right after the original.
func (s *State) Duplicate(ctx context.Context, opts ...protocol.Option) error {
	return s.duplicate(ctx, opts)
}

func (s *State) Remove(ctx context.Context, opts ...protocol.Option) error {
	return s.remove(ctx, s, opts)
}

func (s *State) apply(_ context.Context, e source.Event) error {
	switch e.Type {
	case source.EventModified:
		return s.applyModified(e.Diff, func(d source.Diff) {
			s.accessLevel = AccessLevel(d.Field(source.FieldAccessLevel))
			s.accessLevelInput = s.accessLevel
		})
	case source.EventRemoved:
		return s.g.removed(s)
	case source.EventAdded:
		switch e.Child {
		case source.KindGetter:
			return s.addGetter(e)
		case source.KindSetter:
			return s.addSetter(e)
		}
	}
	return s.unexpected(e)
}

func (s *State) addGetter(e source.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := e.Diff
	if s.getters.has(d.Target) {
		return newError(CodeAlreadyAdded, source.KindGetter, string(d.Target))
	}
	x, err := s.g.newGetter(s.id, d)
	if err != nil {
		return err
	}
	s.getters.insert(d.Target, x.id, e.After)
	return nil
}

func (s *State) addSetter(e source.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := e.Diff
	if s.setters.has(d.Target) {
		return newError(CodeAlreadyAdded, source.KindSetter, string(d.Target))
	}
	x, err := s.g.newSetter(s.id, d)
	if err != nil {
		return err
	}
	s.setters.insert(d.Target, x.id, e.After)
	return nil
}

func (s *State) unregister() bool {
	return s.g.states.Unregister(s.id)
}

func (s *State) takeChildren() []entity {
	var out []entity
	for _, id := range s.getters.drain() {
		if x, ok := s.g.getters.Resolve(id); ok {
			out = append(out, x)
		}
	}
	for _, id := range s.setters.drain() {
		if x, ok := s.g.setters.Resolve(id); ok {
			out = append(out, x)
		}
	}
	return out
}

func (s *State) detach() {
	o, ok := s.g.objects.Resolve(s.object)
	if !ok {
		return
	}
	target := s.Target()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.states.remove(target)
}
