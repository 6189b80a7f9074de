package graph

import (
	"context"

	"github.com/roach88/graphsync/internal/protocol"
	"github.com/roach88/graphsync/internal/source"
)

// Getter reads a state. Its result is an expression kept as text.
type Getter struct {
	node
	id          GetterID
	state       StateID
	result      string
	resultInput string
}

func (g *Graph) newGetter(state StateID, d source.Diff) (*Getter, error) {
	x := &Getter{
		id:     GetterID(g.newKey()),
		state:  state,
		result: d.Field(source.FieldResult),
	}
	x.resultInput = x.result
	x.setup(g, source.KindGetter, string(x.id), d.Clone(),
		func() bool { return g.getters.Exists(x.id) },
		x.apply,
	)
	if err := g.getters.Register(x.id, x); err != nil {
		return nil, err
	}
	g.metrics.registered(source.KindGetter)
	return x, nil
}

func (x *Getter) ID() GetterID { return x.id }

func (x *Getter) State() StateID { return x.state }

// Result returns the confirmed result.
func (x *Getter) Result() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.result
}

// ResultInput returns the staged result.
func (x *Getter) ResultInput() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.resultInput
}

// SetResultInput stages a result for the next PushChanges.
func (x *Getter) SetResultInput(v string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.resultInput = v
}

func (x *Getter) StartUpdating(ctx context.Context, opts ...protocol.Option) error {
	return x.startUpdating(ctx, opts)
}

func (x *Getter) StopUpdating(ctx context.Context, opts ...protocol.Option) error {
	return x.stopUpdating(ctx, opts)
}

func (x *Getter) PushName(ctx context.Context, opts ...protocol.Option) error {
	return x.pushName(ctx, opts)
}

// PushChanges submits the staged name and result.
func (x *Getter) PushChanges(ctx context.Context, opts ...protocol.Option) error {
	return x.pushChanges(ctx, func() []fieldChange {
		return []fieldChange{{field: source.FieldResult, confirmed: x.result, input: x.resultInput}}
	}, opts)
}

func (x *Getter) Duplicate(ctx context.Context, opts ...protocol.Option) error {
	return x.duplicate(ctx, opts)
}

func (x *Getter) Remove(ctx context.Context, opts ...protocol.Option) error {
	return x.remove(ctx, x, opts)
}

func (x *Getter) apply(_ context.Context, e source.Event) error {
	return x.applyLeaf(x, e, func(d source.Diff) {
		x.result = d.Field(source.FieldResult)
		x.resultInput = x.result
	})
}

func (x *Getter) unregister() bool {
	return x.g.getters.Unregister(x.id)
}

func (x *Getter) takeChildren() []entity { return nil }

func (x *Getter) detach() {
	s, ok := x.g.states.Resolve(x.state)
	if !ok {
		return
	}
	target := x.Target()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.getters.remove(target)
}
