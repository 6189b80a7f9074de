package graph

import (
	"context"

	"github.com/roach88/graphsync/internal/protocol"
	"github.com/roach88/graphsync/internal/source"
)

// Setter writes a state. Its parameter is kept as text.
type Setter struct {
	node
	id             SetterID
	state          StateID
	parameter      string
	parameterInput string
}

func (g *Graph) newSetter(state StateID, d source.Diff) (*Setter, error) {
	x := &Setter{
		id:        SetterID(g.newKey()),
		state:     state,
		parameter: d.Field(source.FieldParameter),
	}
	x.parameterInput = x.parameter
	x.setup(g, source.KindSetter, string(x.id), d.Clone(),
		func() bool { return g.setters.Exists(x.id) },
		x.apply,
	)
	if err := g.setters.Register(x.id, x); err != nil {
		return nil, err
	}
	g.metrics.registered(source.KindSetter)
	return x, nil
}

func (x *Setter) ID() SetterID { return x.id }

func (x *Setter) State() StateID { return x.state }

// Parameter returns the confirmed parameter.
func (x *Setter) Parameter() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.parameter
}

// ParameterInput returns the staged parameter.
func (x *Setter) ParameterInput() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.parameterInput
}

// SetParameterInput stages a parameter for the next PushChanges.
func (x *Setter) SetParameterInput(v string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.parameterInput = v
}

func (x *Setter) StartUpdating(ctx context.Context, opts ...protocol.Option) error {
	return x.startUpdating(ctx, opts)
}

func (x *Setter) StopUpdating(ctx context.Context, opts ...protocol.Option) error {
	return x.stopUpdating(ctx, opts)
}

func (x *Setter) PushName(ctx context.Context, opts ...protocol.Option) error {
	return x.pushName(ctx, opts)
}

// PushChanges submits the staged name and parameter.
func (x *Setter) PushChanges(ctx context.Context, opts ...protocol.Option) error {
	return x.pushChanges(ctx, func() []fieldChange {
		return []fieldChange{{field: source.FieldParameter, confirmed: x.parameter, input: x.parameterInput}}
	}, opts)
}

func (x *Setter) Duplicate(ctx context.Context, opts ...protocol.Option) error {
	return x.duplicate(ctx, opts)
}

func (x *Setter) Remove(ctx context.Context, opts ...protocol.Option) error {
	return x.remove(ctx, x, opts)
}

func (x *Setter) apply(_ context.Context, e source.Event) error {
	return x.applyLeaf(x, e, func(d source.Diff) {
		x.parameter = d.Field(source.FieldParameter)
		x.parameterInput = x.parameter
	})
}

func (x *Setter) unregister() bool {
	return x.g.setters.Unregister(x.id)
}

func (x *Setter) takeChildren() []entity { return nil }

func (x *Setter) detach() {
	s, ok := x.g.states.Resolve(x.state)
	if !ok {
		return
	}
	target := x.Target()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setters.remove(target)
}
