package graph

import (
	"context"

	"github.com/roach88/graphsync/internal/protocol"
	"github.com/roach88/graphsync/internal/source"
)

// Action is a leaf below an object.
type Action struct {
	node
	id     ActionID
	object ObjectID
}

func (g *Graph) newAction(object ObjectID, d source.Diff) (*Action, error) {
	a := &Action{
		id:     ActionID(g.newKey()),
		object: object,
	}
	a.setup(g, source.KindAction, string(a.id), d.Clone(),
		func() bool { return g.actions.Exists(a.id) },
		a.apply,
	)
	if err := g.actions.Register(a.id, a); err != nil {
		return nil, err
	}
	g.metrics.registered(source.KindAction)
	return a, nil
}

func (a *Action) ID() ActionID { return a.id }

func (a *Action) Object() ObjectID { return a.object }

func (a *Action) StartUpdating(ctx context.Context, opts ...protocol.Option) error {
	return a.startUpdating(ctx, opts)
}

func (a *Action) StopUpdating(ctx context.Context, opts ...protocol.Option) error {
	return a.stopUpdating(ctx, opts)
}

func (a *Action) PushName(ctx context.Context, opts ...protocol.Option) error {
	return a.pushName(ctx, opts)
}

func (a *Action) Duplicate(ctx context.Context, opts ...protocol.Option) error {
	return a.duplicate(ctx, opts)
}

func (a *Action) Remove(ctx context.Context, opts ...protocol.Option) error {
	return a.remove(ctx, a, opts)
}

func (a *Action) apply(_ context.Context, e source.Event) error {
	return a.applyLeaf(a, e, nil)
}

func (a *Action) unregister() bool {
	return a.g.actions.Unregister(a.id)
}

func (a *Action) takeChildren() []entity { return nil }

func (a *Action) detach() {
	o, ok := a.g.objects.Resolve(a.object)
	if !ok {
		return
	}
	target := a.Target()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.actions.remove(target)
}
