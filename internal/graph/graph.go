package graph

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/roach88/graphsync/internal/protocol"
	"github.com/roach88/graphsync/internal/registry"
	"github.com/roach88/graphsync/internal/source"
)

// Graph owns the per-type registries and the collaborators every entity
// needs. There is no package-level state: each Graph is an independent
// mirror.
type Graph struct {
	dir     source.Directory
	ids     IDGenerator
	logger  *slog.Logger
	metrics *Metrics

	projects *registry.Registry[ProjectID, *Project]
	systems  *registry.Registry[SystemID, *System]
	objects  *registry.Registry[ObjectID, *Object]
	states   *registry.Registry[StateID, *State]
	actions  *registry.Registry[ActionID, *Action]
	getters  *registry.Registry[GetterID, *Getter]
	setters  *registry.Registry[SetterID, *Setter]
	values   *registry.Registry[ValueID, *Value]
}

// Option configures a Graph.
type Option func(*Graph)

// WithIDGenerator sets the generator for local IDs.
// Default: UUIDv7Generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(g *Graph) {
		g.ids = gen
	}
}

// WithLogger sets the logger used by updaters and operations.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = l
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(g *Graph) {
		g.metrics = m
	}
}

// New creates an empty graph whose entities resolve their sources in dir.
func New(dir source.Directory, opts ...Option) *Graph {
	g := &Graph{
		dir:      dir,
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
		projects: registry.New[ProjectID, *Project]("project"),
		systems:  registry.New[SystemID, *System]("system"),
		objects:  registry.New[ObjectID, *Object]("object"),
		states:   registry.New[StateID, *State]("state"),
		actions:  registry.New[ActionID, *Action]("action"),
		getters:  registry.New[GetterID, *Getter]("getter"),
		setters:  registry.New[SetterID, *Setter]("setter"),
		values:   registry.New[ValueID, *Value]("value"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Graph) newKey() string {
	return g.ids.Generate()
}

// Project resolves a live project.
func (g *Graph) Project(id ProjectID) (*Project, bool) { return g.projects.Resolve(id) }

// System resolves a live system.
func (g *Graph) System(id SystemID) (*System, bool) { return g.systems.Resolve(id) }

// Object resolves a live object.
func (g *Graph) Object(id ObjectID) (*Object, bool) { return g.objects.Resolve(id) }

// State resolves a live state.
func (g *Graph) State(id StateID) (*State, bool) { return g.states.Resolve(id) }

// Action resolves a live action.
func (g *Graph) Action(id ActionID) (*Action, bool) { return g.actions.Resolve(id) }

// Getter resolves a live getter.
func (g *Graph) Getter(id GetterID) (*Getter, bool) { return g.getters.Resolve(id) }

// Setter resolves a live setter.
func (g *Graph) Setter(id SetterID) (*Setter, bool) { return g.setters.Resolve(id) }

// Value resolves a live value.
func (g *Graph) Value(id ValueID) (*Value, bool) { return g.values.Resolve(id) }

// Projects returns the live projects ordered by local ID.
func (g *Graph) Projects() []*Project {
	var out []*Project
	for _, id := range g.projects.Keys(compareIDs[ProjectID]) {
		if p, ok := g.projects.Resolve(id); ok {
			out = append(out, p)
		}
	}
	return out
}

func compareIDs[K ~string](a, b K) int {
	return strings.Compare(string(a), string(b))
}

// Live returns the number of registered entities per kind.
func (g *Graph) Live() map[source.Kind]int {
	return map[source.Kind]int{
		source.KindProject: g.projects.Len(),
		source.KindSystem:  g.systems.Len(),
		source.KindObject:  g.objects.Len(),
		source.KindState:   g.states.Len(),
		source.KindAction:  g.actions.Len(),
		source.KindGetter:  g.getters.Len(),
		source.KindSetter:  g.setters.Len(),
		source.KindValue:   g.values.Len(),
	}
}

// LiveTotal returns the number of registered entities of every kind.
func (g *Graph) LiveTotal() int {
	total := 0
	for _, n := range g.Live() {
		total += n
	}
	return total
}

// destroy unregisters e and its whole subtree. It returns false when e was
// already gone, in which case nothing happens.
func (g *Graph) destroy(e entity) bool {
	n := e.base()

	n.mu.Lock()
	if !e.unregister() {
		n.mu.Unlock()
		return false
	}
	kids := e.takeChildren()
	updating := n.isUpdating
	n.isUpdating = false
	src := n.source
	n.mu.Unlock()

	g.metrics.unregistered(n.kind)
	g.logger.Debug("entity removed",
		"kind", n.kind,
		"id", n.key,
		"children", len(kids),
	)

	if updating {
		if s, ok := g.dir.Lookup(src); ok {
			s.Unsubscribe()
		}
	}
	e.detach()

	// Every collection was drained above, so a failure deeper in one branch
	// cannot leave a sibling collection behind.
	for _, kid := range kids {
		g.destroy(kid)
	}
	return true
}

// removed applies a remote removal of e.
func (g *Graph) removed(e entity) error {
	if !g.destroy(e) {
		n := e.base()
		return newError(CodeAlreadyRemoved, n.kind, n.key)
	}
	return nil
}

// startable is the subscription surface shared by every entity type.
type startable interface {
	IsUpdating() bool
	StartUpdating(ctx context.Context, opts ...protocol.Option) error
}

// idle returns the live entities that are not subscribed yet, parents
// before children.
func (g *Graph) idle() []startable {
	var out []startable
	collect := func(e startable) {
		if !e.IsUpdating() {
			out = append(out, e)
		}
	}
	for _, id := range g.projects.Keys(compareIDs[ProjectID]) {
		if e, ok := g.projects.Resolve(id); ok {
			collect(e)
		}
	}
	for _, id := range g.systems.Keys(compareIDs[SystemID]) {
		if e, ok := g.systems.Resolve(id); ok {
			collect(e)
		}
	}
	for _, id := range g.objects.Keys(compareIDs[ObjectID]) {
		if e, ok := g.objects.Resolve(id); ok {
			collect(e)
		}
	}
	for _, id := range g.states.Keys(compareIDs[StateID]) {
		if e, ok := g.states.Resolve(id); ok {
			collect(e)
		}
	}
	for _, id := range g.actions.Keys(compareIDs[ActionID]) {
		if e, ok := g.actions.Resolve(id); ok {
			collect(e)
		}
	}
	for _, id := range g.getters.Keys(compareIDs[GetterID]) {
		if e, ok := g.getters.Resolve(id); ok {
			collect(e)
		}
	}
	for _, id := range g.setters.Keys(compareIDs[SetterID]) {
		if e, ok := g.setters.Resolve(id); ok {
			collect(e)
		}
	}
	for _, id := range g.values.Keys(compareIDs[ValueID]) {
		if e, ok := g.values.Resolve(id); ok {
			collect(e)
		}
	}
	return out
}

// StartAll subscribes every live entity, including the ones created by
// earlier subscriptions, until the whole graph follows its sources.
// Each entity is attempted at most once.
func (g *Graph) StartAll(ctx context.Context) error {
	attempted := make(map[startable]bool)
	for {
		var pending []startable
		for _, e := range g.idle() {
			if !attempted[e] {
				pending = append(pending, e)
			}
		}
		if len(pending) == 0 {
			return nil
		}
		for _, e := range pending {
			if err := ctx.Err(); err != nil {
				return err
			}
			attempted[e] = true
			err := e.StartUpdating(ctx)
			if err == nil || errors.Is(err, ErrAlreadyUpdating) || errors.Is(err, ErrIsDeleted) {
				continue
			}
			return err
		}
	}
}
