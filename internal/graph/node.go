package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/graphsync/internal/protocol"
	"github.com/roach88/graphsync/internal/source"
)

// node is the state every entity type shares: identity, the confirmed and
// staged name, the subscription flag, the issue slot, the single-shot
// callback and the owned updater.
//
// All fields, and the fields of the embedding entity, are guarded by mu.
// mu is only held around capture and mutate sections and never across a
// call into a source. A descendant's lock may be taken while holding an
// ancestor's lock, never the other way round.
type node struct {
	mu    sync.Mutex
	g     *Graph
	kind  source.Kind
	key   string
	alive func() bool

	source     source.ID
	target     source.Target
	name       string
	nameInput  string
	isUpdating bool
	issue      error
	callback   func()
	updater    *Updater
}

// entity is implemented by every entity type so the cascade can walk the
// hierarchy generically.
type entity interface {
	base() *node

	// unregister removes the entity from its registry. Called with the
	// entity's lock held; false means it was already gone.
	unregister() bool

	// takeChildren empties every child collection and returns the children
	// that are still live. Called with the entity's lock held.
	takeChildren() []entity

	// detach removes the entity from its parent's collections. Called
	// without the entity's lock.
	detach()
}

func (n *node) setup(g *Graph, kind source.Kind, key string, d source.Diff, alive func() bool, apply func(context.Context, source.Event) error) {
	n.g = g
	n.kind = kind
	n.key = key
	n.alive = alive
	n.source = d.Source
	n.target = d.Target
	n.name = d.Name
	n.nameInput = d.Name
	n.updater = newUpdater(g, kind, key, alive, apply)
}

func (n *node) base() *node { return n }

// Kind returns the entity type.
func (n *node) Kind() source.Kind { return n.kind }

// Target returns the domain identity shared with the remote counterpart.
func (n *node) Target() source.Target {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target
}

// SourceID returns the ID of the remote document this entity mirrors.
func (n *node) SourceID() source.ID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.source
}

// Name returns the confirmed name.
func (n *node) Name() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.name
}

// NameInput returns the staged name.
func (n *node) NameInput() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nameInput
}

// SetNameInput stages a name for the next PushName.
func (n *node) SetNameInput(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nameInput = name
}

// IsUpdating reports whether the entity is subscribed to its source.
func (n *node) IsUpdating() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.isUpdating
}

// Issue returns the error recorded by the last failed operation.
func (n *node) Issue() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.issue
}

// SetCallback installs a callback fired once at the end of the next
// successful operation's mutate phase.
func (n *node) SetCallback(f func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.callback = f
}

// Updater returns the entity's updater.
func (n *node) Updater() *Updater {
	return n.updater
}

// Exists reports whether the entity is still registered.
func (n *node) Exists() bool {
	return n.alive()
}

// subject adapts a node to protocol.Subject without exporting the lock on
// the entity types.
type subject struct{ n *node }

func (s subject) Lock()        { s.n.mu.Lock() }
func (s subject) Unlock()      { s.n.mu.Unlock() }
func (s subject) Alive() bool  { return s.n.alive() }
func (s subject) Deleted() error {
	return newError(CodeIsDeleted, s.n.kind, s.n.key)
}

func (s subject) SetIssue(err error) error {
	err = classify(s.n.kind, s.n.key, err)
	s.n.issue = err
	return err
}

func (s subject) TakeCallback() func() {
	cb := s.n.callback
	s.n.callback = nil
	return cb
}

func run[S any](ctx context.Context, n *node, op string, o protocol.Op[S], opts []protocol.Option) error {
	err := protocol.Run(ctx, subject{n}, o, opts...)
	n.g.metrics.operation(n.kind, op, err)
	if err != nil {
		n.g.logger.Debug("operation failed",
			"kind", n.kind,
			"id", n.key,
			"op", op,
			"error", err,
		)
	}
	return err
}

// lookupSource resolves the entity's source. Called with the lock held.
func (n *node) lookupSource() (source.Source, error) {
	src, ok := n.g.dir.Lookup(n.source)
	if !ok {
		return nil, fmt.Errorf("%s source %s: %w", n.kind, n.source, source.ErrNotFound)
	}
	return src, nil
}

// normalizeName trims and NFC-normalizes a staged name so visually equal
// names compare equal.
func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func (n *node) handler(ctx context.Context) source.Handler {
	base := context.WithoutCancel(ctx)
	return func(e source.Event) {
		n.updater.AppendEvent(e)
		// Rejections are recorded on the updater and logged there.
		_ = n.updater.Update(base)
	}
}

func (n *node) startUpdating(ctx context.Context, opts []protocol.Option) error {
	return run(ctx, n, "start_updating", protocol.Op[source.Source]{
		Capture: func() (source.Source, error) {
			if n.isUpdating {
				return nil, newError(CodeAlreadyUpdating, n.kind, n.key)
			}
			return n.lookupSource()
		},
		Compute: func(ctx context.Context, src source.Source) error {
			err := src.Subscribe(n.handler(ctx))
			if errors.Is(err, source.ErrSubscribed) {
				return newError(CodeAlreadyUpdating, n.kind, n.key)
			}
			return err
		},
		Mutate: func(source.Source) error {
			n.isUpdating = true
			return nil
		},
		Discard: func(_ context.Context, src source.Source) {
			src.Unsubscribe()
		},
	}, opts)
}

func (n *node) stopUpdating(ctx context.Context, opts []protocol.Option) error {
	return run(ctx, n, "stop_updating", protocol.Op[source.Source]{
		Capture: func() (source.Source, error) {
			if !n.isUpdating {
				return nil, newError(CodeNotUpdating, n.kind, n.key)
			}
			return n.lookupSource()
		},
		Compute: func(_ context.Context, src source.Source) error {
			src.Unsubscribe()
			return nil
		},
		Mutate: func(source.Source) error {
			n.isUpdating = false
			return nil
		},
	}, opts)
}

type fieldChange struct {
	field     string
	confirmed string
	input     string
}

type pushSnapshot struct {
	src     source.Source
	changes []fieldChange
}

func (n *node) pushName(ctx context.Context, opts []protocol.Option) error {
	return run(ctx, n, "push_name", protocol.Op[pushSnapshot]{
		Capture: func() (pushSnapshot, error) {
			input := normalizeName(n.nameInput)
			if input == "" {
				return pushSnapshot{}, newError(CodeNameCannotBeEmpty, n.kind, n.key)
			}
			if input == n.name {
				return pushSnapshot{}, newError(CodeNewNameIsSameAsCurrent, n.kind, n.key)
			}
			src, err := n.lookupSource()
			return pushSnapshot{
				src:     src,
				changes: []fieldChange{{field: source.FieldName, confirmed: n.name, input: input}},
			}, err
		},
		Compute: pushCompute,
	}, opts)
}

// pushChanges pushes the staged name together with the staged fields
// returned by staged, which is called with the lock held.
func (n *node) pushChanges(ctx context.Context, staged func() []fieldChange, opts []protocol.Option) error {
	return run(ctx, n, "push_changes", protocol.Op[pushSnapshot]{
		Capture: func() (pushSnapshot, error) {
			input := normalizeName(n.nameInput)
			if input == "" {
				return pushSnapshot{}, newError(CodeNameCannotBeEmpty, n.kind, n.key)
			}
			var changes []fieldChange
			if input != n.name {
				changes = append(changes, fieldChange{field: source.FieldName, confirmed: n.name, input: input})
			}
			for _, c := range staged() {
				if c.input != c.confirmed {
					changes = append(changes, c)
				}
			}
			if len(changes) == 0 {
				return pushSnapshot{}, newError(CodeNoChangesToPush, n.kind, n.key)
			}
			src, err := n.lookupSource()
			return pushSnapshot{src: src, changes: changes}, err
		},
		Compute: pushCompute,
	}, opts)
}

func pushCompute(ctx context.Context, s pushSnapshot) error {
	for _, c := range s.changes {
		if err := s.src.SetField(ctx, c.field, c.input); err != nil {
			return fmt.Errorf("set %s: %w", c.field, err)
		}
	}
	return nil
}

// createChild asks the source to create a child document. check runs with
// the lock held and enforces structural preconditions.
func (n *node) createChild(ctx context.Context, op string, kind source.Kind, fields map[string]string, check func() error, opts []protocol.Option) error {
	return run(ctx, n, op, protocol.Op[source.Source]{
		Capture: func() (source.Source, error) {
			if check != nil {
				if err := check(); err != nil {
					return nil, err
				}
			}
			return n.lookupSource()
		},
		Compute: func(ctx context.Context, src source.Source) error {
			return src.CreateChild(ctx, kind, fields)
		},
	}, opts)
}

func (n *node) duplicate(ctx context.Context, opts []protocol.Option) error {
	return run(ctx, n, "duplicate", protocol.Op[source.Source]{
		Capture: n.lookupSource,
		Compute: func(ctx context.Context, src source.Source) error {
			return src.Duplicate(ctx)
		},
	}, opts)
}

// remove deletes the remote document and then the local subtree. When the
// subscription already delivered the removal, the local part is a no-op.
func (n *node) remove(ctx context.Context, self entity, opts []protocol.Option) error {
	return run(ctx, n, "remove", protocol.Op[source.Source]{
		Capture: n.lookupSource,
		Compute: func(ctx context.Context, src source.Source) error {
			return src.Remove(ctx)
		},
		Mutate: func(source.Source) error {
			n.g.destroy(self)
			return nil
		},
		Terminal: true,
	}, opts)
}

// applyModified overwrites the confirmed and staged fields from d. fields
// handles the kind-specific part and runs with the lock held.
func (n *node) applyModified(d source.Diff, fields func(source.Diff)) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.alive() || d.Target != n.target {
		return newError(CodeAlreadyRemoved, n.kind, string(d.Target))
	}
	n.name = d.Name
	n.nameInput = d.Name
	if fields != nil {
		fields(d)
	}
	return nil
}

func (n *node) unexpected(e source.Event) error {
	return &Error{
		Code:    CodeUnexpectedEvent,
		Kind:    n.kind,
		ID:      n.key,
		Message: fmt.Sprintf("cannot apply %s", e),
	}
}

// applyLeaf handles the events of entities without child collections.
func (n *node) applyLeaf(self entity, e source.Event, fields func(source.Diff)) error {
	switch e.Type {
	case source.EventModified:
		return n.applyModified(e.Diff, fields)
	case source.EventRemoved:
		return n.g.removed(self)
	default:
		return n.unexpected(e)
	}
}
