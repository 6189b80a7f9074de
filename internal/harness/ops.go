package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/graphsync/internal/graph"
	"github.com/roach88/graphsync/internal/protocol"
	"github.com/roach88/graphsync/internal/source"
)

type opFunc func(ctx context.Context, x *execution, h handle, args map[string]string) error

type opSpec struct {
	run      opFunc
	required []string
}

// ops maps step names to their implementation. Local ops run through the
// graph's entity operations; remote_* ops mutate the remote store directly,
// as another client would.
var ops = map[string]opSpec{
	"start_all": {run: func(ctx context.Context, x *execution, _ handle, _ map[string]string) error {
		return x.g.StartAll(ctx)
	}},
	"start_updating": {run: local(func(ctx context.Context, e interface {
		StartUpdating(context.Context, ...protocol.Option) error
	}, _ map[string]string) error {
		return e.StartUpdating(ctx)
	})},
	"stop_updating": {run: local(func(ctx context.Context, e interface {
		StopUpdating(context.Context, ...protocol.Option) error
	}, _ map[string]string) error {
		return e.StopUpdating(ctx)
	})},
	"push_name": {required: []string{"name"}, run: local(func(ctx context.Context, e interface {
		SetNameInput(string)
		PushName(context.Context, ...protocol.Option) error
	}, args map[string]string) error {
		e.SetNameInput(args["name"])
		return e.PushName(ctx)
	})},
	"push_changes": {run: pushChanges},
	"create_system": {required: []string{"location"}, run: local(func(ctx context.Context, p *graph.Project, args map[string]string) error {
		loc, err := graph.ParseLocation(args["location"])
		if err != nil {
			return err
		}
		return p.CreateSystem(ctx, loc)
	})},
	"create_value": {run: local(func(ctx context.Context, p *graph.Project, _ map[string]string) error {
		return p.CreateValue(ctx)
	})},
	"create_root": {run: local(func(ctx context.Context, s *graph.System, _ map[string]string) error {
		return s.CreateRoot(ctx)
	})},
	"create_child": {run: local(func(ctx context.Context, o *graph.Object, _ map[string]string) error {
		return o.CreateChild(ctx)
	})},
	"append_new_state": {run: local(func(ctx context.Context, o *graph.Object, _ map[string]string) error {
		return o.AppendNewState(ctx)
	})},
	"append_new_action": {run: local(func(ctx context.Context, o *graph.Object, _ map[string]string) error {
		return o.AppendNewAction(ctx)
	})},
	"append_new_getter": {run: local(func(ctx context.Context, s *graph.State, _ map[string]string) error {
		return s.AppendNewGetter(ctx)
	})},
	"append_new_setter": {run: local(func(ctx context.Context, s *graph.State, _ map[string]string) error {
		return s.AppendNewSetter(ctx)
	})},
	"duplicate": {run: local(func(ctx context.Context, e interface {
		Duplicate(context.Context, ...protocol.Option) error
	}, _ map[string]string) error {
		return e.Duplicate(ctx)
	})},
	"remove": {run: local(func(ctx context.Context, e interface {
		Remove(context.Context, ...protocol.Option) error
	}, _ map[string]string) error {
		return e.Remove(ctx)
	})},

	"remote_set": {required: []string{"field", "value"}, run: remoteOp(func(ctx context.Context, src source.Source, args map[string]string) error {
		return src.SetField(ctx, args["field"], args["value"])
	})},
	"remote_create": {required: []string{"kind"}, run: remoteOp(func(ctx context.Context, src source.Source, args map[string]string) error {
		kind, err := source.ParseKind(args["kind"])
		if err != nil {
			return err
		}
		fields := make(map[string]string, len(args))
		for k, v := range args {
			if k != "kind" {
				fields[k] = v
			}
		}
		return src.CreateChild(ctx, kind, fields)
	})},
	"remote_duplicate": {run: remoteOp(func(ctx context.Context, src source.Source, _ map[string]string) error {
		return src.Duplicate(ctx)
	})},
	"remote_remove": {run: remoteOp(func(ctx context.Context, src source.Source, _ map[string]string) error {
		return src.Remove(ctx)
	})},
	"remote_fail": {required: []string{"message"}, run: func(_ context.Context, x *execution, h handle, args map[string]string) error {
		x.r.FailNext(h.sourceID(), errors.New(args["message"]))
		return nil
	}},
}

// local adapts an operation on entities of type T.
func local[T any](f func(context.Context, T, map[string]string) error) opFunc {
	return func(ctx context.Context, _ *execution, h handle, args map[string]string) error {
		e, ok := h.v.(T)
		if !ok {
			return fmt.Errorf("%s does not support this operation", h.kind)
		}
		return f(ctx, e, args)
	}
}

func remoteOp(f func(context.Context, source.Source, map[string]string) error) opFunc {
	return func(ctx context.Context, x *execution, h handle, args map[string]string) error {
		src, ok := x.r.Lookup(h.sourceID())
		if !ok {
			return fmt.Errorf("%s %s: %w", h.kind, h.sourceID(), source.ErrNotFound)
		}
		return f(ctx, src, args)
	}
}

// pushChanges stages every arg on the entity and pushes them together.
func pushChanges(ctx context.Context, _ *execution, h handle, args map[string]string) error {
	for field, value := range args {
		if err := stage(h, field, value); err != nil {
			return err
		}
	}
	p, ok := h.v.(interface {
		PushChanges(context.Context, ...protocol.Option) error
	})
	if !ok {
		return fmt.Errorf("%s does not support push_changes", h.kind)
	}
	return p.PushChanges(ctx)
}

func stage(h handle, field, value string) error {
	switch v := h.v.(type) {
	case *graph.State:
		if field == source.FieldAccessLevel {
			v.SetAccessLevelInput(graph.AccessLevel(value))
			return nil
		}
	case *graph.Getter:
		if field == source.FieldResult {
			v.SetResultInput(value)
			return nil
		}
	case *graph.Setter:
		if field == source.FieldParameter {
			v.SetParameterInput(value)
			return nil
		}
	case *graph.Value:
		if field == source.FieldDescription {
			v.SetDescriptionInput(value)
			return nil
		}
	}
	if field == source.FieldName {
		h.v.(interface{ SetNameInput(string) }).SetNameInput(value)
		return nil
	}
	return fmt.Errorf("%s has no staged field %q", h.kind, field)
}

// outcome renders err the way steps declare expectations.
func outcome(err error) string {
	if err == nil {
		return ExpectOK
	}
	if code := graph.CodeOf(err); code != "" {
		return string(code)
	}
	return ExpectError
}

func expectationMet(expect, got string) bool {
	switch expect {
	case "", ExpectOK:
		return got == ExpectOK
	case ExpectError:
		return got != ExpectOK && got != ExpectNotFound
	default:
		return expect == got
	}
}
