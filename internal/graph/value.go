package graph

import (
	"context"

	"github.com/roach88/graphsync/internal/protocol"
	"github.com/roach88/graphsync/internal/source"
)

// Value is a project-level constant with a free-form description.
type Value struct {
	node
	id               ValueID
	project          ProjectID
	description      string
	descriptionInput string
}

func (g *Graph) newValue(project ProjectID, d source.Diff) (*Value, error) {
	v := &Value{
		id:          ValueID(g.newKey()),
		project:     project,
		description: d.Field(source.FieldDescription),
	}
	v.descriptionInput = v.description
	v.setup(g, source.KindValue, string(v.id), d.Clone(),
		func() bool { return g.values.Exists(v.id) },
		v.apply,
	)
	if err := g.values.Register(v.id, v); err != nil {
		return nil, err
	}
	g.metrics.registered(source.KindValue)
	return v, nil
}

func (v *Value) ID() ValueID { return v.id }

func (v *Value) Project() ProjectID { return v.project }

func (v *Value) Description() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.description
}

func (v *Value) DescriptionInput() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.descriptionInput
}

// SetDescriptionInput stages a description for the next PushChanges.
func (v *Value) SetDescriptionInput(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.descriptionInput = s
}

func (v *Value) StartUpdating(ctx context.Context, opts ...protocol.Option) error {
	return v.startUpdating(ctx, opts)
}

func (v *Value) StopUpdating(ctx context.Context, opts ...protocol.Option) error {
	return v.stopUpdating(ctx, opts)
}

func (v *Value) PushName(ctx context.Context, opts ...protocol.Option) error {
	return v.pushName(ctx, opts)
}

// PushChanges submits the staged name and description.
func (v *Value) PushChanges(ctx context.Context, opts ...protocol.Option) error {
	return v.pushChanges(ctx, func() []fieldChange {
		return []fieldChange{{field: source.FieldDescription, confirmed: v.description, input: v.descriptionInput}}
	}, opts)
}

func (v *Value) Remove(ctx context.Context, opts ...protocol.Option) error {
	return v.remove(ctx, v, opts)
}

func (v *Value) apply(_ context.Context, e source.Event) error {
	return v.applyLeaf(v, e, func(d source.Diff) {
		v.description = d.Field(source.FieldDescription)
		v.descriptionInput = v.description
	})
}

func (v *Value) unregister() bool {
	return v.g.values.Unregister(v.id)
}

func (v *Value) takeChildren() []entity { return nil }

func (v *Value) detach() {
	p, ok := v.g.projects.Resolve(v.project)
	if !ok {
		return
	}
	target := v.Target()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.values.remove(target)
}
