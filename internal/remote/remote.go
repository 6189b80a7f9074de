package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/graphsync/internal/journal"
	"github.com/roach88/graphsync/internal/source"
)

var (
	// ErrInvalidField is returned for writes of unknown or malformed fields.
	ErrInvalidField = errors.New("invalid field")

	// ErrInvalidChild is returned when a document cannot own the requested
	// child kind.
	ErrInvalidChild = errors.New("invalid child kind")

	// ErrOutOfOrder is returned when a replayed record does not advance the
	// clock.
	ErrOutOfOrder = errors.New("record out of order")
)

// Journal receives every committed record before it is applied.
// Implemented by *journal.Journal.
type Journal interface {
	Append(ctx context.Context, r journal.Record) (bool, error)
}

// batchJournal is a Journal that stores several records atomically.
type batchJournal interface {
	AppendAll(ctx context.Context, records []journal.Record) error
}

// IDGenerator mints document IDs and targets.
type IDGenerator interface {
	Generate() string
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string { return uuid.NewString() }

// Option configures a Remote.
type Option func(*Remote)

// WithJournal appends every commit to j. A failed append fails the commit.
func WithJournal(j Journal) Option {
	return func(r *Remote) {
		r.journal = j
	}
}

// WithIDGenerator sets the generator for document IDs and targets.
// Default: random UUIDs.
func WithIDGenerator(gen IDGenerator) Option {
	return func(r *Remote) {
		r.ids = gen
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Remote) {
		r.logger = l
	}
}

type listener struct {
	h     source.Handler
	since int64
	gen   int64
}

type note struct {
	doc    source.ID
	event  source.Event
	seq    int64
	replay int64
}

// Remote is the document store. The zero value is not usable; call New.
type Remote struct {
	mu        sync.Mutex
	docs      map[source.ID]*document
	projects  []source.ID
	listeners map[source.ID]listener
	clock     int64
	gen       int64
	faults    map[source.ID]error
	outbox    []note

	// deliverMu is held by the goroutine currently draining the outbox.
	deliverMu sync.Mutex

	journal Journal
	ids     IDGenerator
	logger  *slog.Logger
}

// New returns an empty store.
func New(opts ...Option) *Remote {
	r := &Remote{
		docs:      make(map[source.ID]*document),
		listeners: make(map[source.ID]listener),
		faults:    make(map[source.ID]error),
		ids:       uuidGenerator{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup implements source.Directory.
func (r *Remote) Lookup(id source.ID) (source.Source, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, false
	}
	return &proxy{r: r, id: id, kind: d.kind}, true
}

// CreateProject commits a new project document and returns its snapshot.
func (r *Remote) CreateProject(ctx context.Context, name string) (source.Diff, error) {
	if err := ctx.Err(); err != nil {
		return source.Diff{}, err
	}
	r.mu.Lock()
	rec := journal.Record{
		Op:     journal.OpCreate,
		Doc:    source.ID(r.ids.Generate()),
		Kind:   source.KindProject,
		Target: source.Target(r.ids.Generate()),
		Name:   name,
	}
	err := r.commit(ctx, &rec)
	var d source.Diff
	if err == nil {
		d = r.docs[rec.Doc].diff()
	}
	r.mu.Unlock()

	r.flush()
	return d, err
}

// Project returns the snapshot of a project document.
func (r *Remote) Project(id source.ID) (source.Diff, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok || d.kind != source.KindProject {
		return source.Diff{}, false
	}
	return d.diff(), true
}

// Projects returns the project documents in creation order.
func (r *Remote) Projects() []source.Diff {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]source.Diff, 0, len(r.projects))
	for _, id := range r.projects {
		if d, ok := r.docs[id]; ok {
			out = append(out, d.diff())
		}
	}
	return out
}

// Len returns the number of live documents.
func (r *Remote) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

// Clock returns the seq of the last commit.
func (r *Remote) Clock() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clock
}

// FailNext makes the next call against document id fail with err without
// committing anything.
func (r *Remote) FailNext(id source.ID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults[id] = err
}

// takeFault returns and clears the injected error for id. Called with mu held.
func (r *Remote) takeFault(id source.ID) error {
	err, ok := r.faults[id]
	if ok {
		delete(r.faults, id)
	}
	return err
}

// commit assigns the next seq when rec has none, journals rec, applies it
// and queues its notifications. Called with mu held.
func (r *Remote) commit(ctx context.Context, rec *journal.Record) error {
	if rec.Seq == 0 {
		rec.Seq = r.clock + 1
	}
	if rec.Seq <= r.clock {
		return fmt.Errorf("%w: %s after #%d", ErrOutOfOrder, rec, r.clock)
	}
	if err := r.validate(*rec); err != nil {
		return err
	}
	if r.journal != nil {
		if _, err := r.journal.Append(ctx, *rec); err != nil {
			return fmt.Errorf("journal %s: %w", rec, err)
		}
	}
	r.clock = rec.Seq
	r.apply(*rec)
	r.logger.Debug("remote commit", "record", rec.String())
	return nil
}

// commitAll commits records as one unit. Every record is validated on a
// scratch copy of the store first, so a rejected record leaves nothing
// committed. Called with mu held.
func (r *Remote) commitAll(ctx context.Context, records []journal.Record) error {
	scratch := r.scratch()
	for i := range records {
		if err := scratch.commit(ctx, &records[i]); err != nil {
			return err
		}
	}

	if bj, ok := r.journal.(batchJournal); ok {
		if err := bj.AppendAll(ctx, records); err != nil {
			return fmt.Errorf("journal %d records: %w", len(records), err)
		}
	} else if r.journal != nil {
		for _, rec := range records {
			if _, err := r.journal.Append(ctx, rec); err != nil {
				return fmt.Errorf("journal %s: %w", rec, err)
			}
		}
	}
	for _, rec := range records {
		r.clock = rec.Seq
		r.apply(rec)
		r.logger.Debug("remote commit", "record", rec.String())
	}
	return nil
}

// scratch returns a journal-less copy of the documents and clock, for
// validating a batch. Called with mu held.
func (r *Remote) scratch() *Remote {
	docs := make(map[source.ID]*document, len(r.docs))
	for id, d := range r.docs {
		c := *d
		c.fields = maps.Clone(d.fields)
		c.children = make(map[source.Kind][]source.ID, len(d.children))
		for k, ids := range d.children {
			c.children[k] = slices.Clone(ids)
		}
		docs[id] = &c
	}
	return &Remote{
		docs:   docs,
		clock:  r.clock,
		ids:    r.ids,
		logger: slog.New(slog.DiscardHandler),
	}
}

// validate checks rec against the current store. Called with mu held.
func (r *Remote) validate(rec journal.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	switch rec.Op {
	case journal.OpCreate:
		if _, ok := r.docs[rec.Doc]; ok {
			return fmt.Errorf("%s: document exists", rec)
		}
		if rec.Kind == source.KindProject {
			return nil
		}
		owner, ok := r.docs[rec.Owner]
		if !ok {
			return fmt.Errorf("%s: owner %s: %w", rec, rec.Owner, source.ErrNotFound)
		}
		if !owner.kind.Owns(rec.Kind) {
			return fmt.Errorf("%w: %s cannot own %s", ErrInvalidChild, owner.kind, rec.Kind)
		}
		if rec.Parent != "" && r.childIndex(owner, source.KindObject, rec.Parent) < 0 {
			return fmt.Errorf("%s: parent object %s: %w", rec, rec.Parent, source.ErrNotFound)
		}
		for k, v := range rec.Fields {
			if _, err := checkField(rec.Kind, k, v, true); err != nil {
				return err
			}
		}
		switch rec.Kind {
		case source.KindObject:
			if rec.Fields[source.FieldRole] == "root" && r.rootOf(owner) != nil {
				return fmt.Errorf("%s: %w", rec, source.ErrRootExists)
			}
		case source.KindSystem:
			loc := defaultFields[source.KindSystem][source.FieldLocation]
			if v, ok := rec.Fields[source.FieldLocation]; ok {
				loc, _ = checkField(rec.Kind, source.FieldLocation, v, true)
			}
			if r.systemAt(owner, loc, "") != nil {
				return fmt.Errorf("%s: %s: %w", rec, loc, source.ErrLocationOccupied)
			}
		}
	case journal.OpSet, journal.OpRemove:
		d, ok := r.docs[rec.Doc]
		if !ok {
			return fmt.Errorf("%s: %w", rec, source.ErrNotFound)
		}
		if d.kind != rec.Kind {
			return fmt.Errorf("%s: document is a %s", rec, d.kind)
		}
		for k, v := range rec.Fields {
			if _, err := checkField(d.kind, k, v, false); err != nil {
				return err
			}
		}
		if v, ok := rec.Fields[source.FieldLocation]; ok && rec.Op == journal.OpSet {
			loc, _ := checkField(d.kind, source.FieldLocation, v, false)
			if r.systemAt(r.docs[d.owner], loc, d.id) != nil {
				return fmt.Errorf("%s: %s: %w", rec, loc, source.ErrLocationOccupied)
			}
		}
	}
	return nil
}

// apply mutates the store. rec has been validated. Called with mu held.
func (r *Remote) apply(rec journal.Record) {
	switch rec.Op {
	case journal.OpCreate:
		d := &document{
			id:     rec.Doc,
			kind:   rec.Kind,
			target: rec.Target,
			owner:  rec.Owner,
			parent: rec.Parent,
			name:   rec.Name,
			fields: maps.Clone(defaultFields[rec.Kind]),
		}
		for k, v := range rec.Fields {
			if k == source.FieldName {
				continue
			}
			d.fields[k], _ = checkField(rec.Kind, k, v, true)
		}
		r.docs[d.id] = d
		if rec.Kind == source.KindProject {
			r.projects = append(r.projects, d.id)
			return
		}
		owner := r.docs[rec.Owner]
		after := rec.After
		if !r.insertChild(owner, rec.Kind, d.id, after) {
			after = ""
		}
		r.notify(owner.id, source.AddedAfter(rec.Kind, d.diff(), after), rec.Seq)

	case journal.OpSet:
		d := r.docs[rec.Doc]
		for k, v := range rec.Fields {
			v, _ = checkField(d.kind, k, v, false)
			if k == source.FieldName {
				d.name = v
				continue
			}
			d.fields[k] = v
		}
		r.notify(d.id, source.Modified(d.diff()), rec.Seq)

	case journal.OpRemove:
		d := r.docs[rec.Doc]
		for _, gone := range r.subtree(d) {
			delete(r.docs, gone.id)
			if owner, ok := r.docs[gone.owner]; ok {
				owner.children[gone.kind] = slices.DeleteFunc(owner.children[gone.kind], func(id source.ID) bool {
					return id == gone.id
				})
			}
			if gone.kind == source.KindProject {
				r.projects = slices.DeleteFunc(r.projects, func(id source.ID) bool { return id == gone.id })
			}
			r.notify(gone.id, source.Removed(), rec.Seq)
		}
	}
}

func (r *Remote) notify(doc source.ID, e source.Event, seq int64) {
	r.outbox = append(r.outbox, note{doc: doc, event: e, seq: seq})
}

// pop takes the next deliverable notification. Called without mu.
func (r *Remote) pop() (source.Handler, source.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.outbox) > 0 {
		n := r.outbox[0]
		r.outbox[0] = note{}
		r.outbox = r.outbox[1:]

		l, ok := r.listeners[n.doc]
		if !ok {
			continue
		}
		if n.replay != 0 && n.replay != l.gen {
			continue
		}
		if n.replay == 0 && n.seq <= l.since {
			continue
		}
		if n.event.Type == source.EventRemoved {
			delete(r.listeners, n.doc)
		}
		return l.h, n.event, true
	}
	return nil, source.Event{}, false
}

// flush delivers queued notifications. Only one goroutine delivers at a
// time; a caller that finds delivery in progress returns immediately and
// the active deliverer picks up its notifications.
func (r *Remote) flush() {
	for {
		if !r.deliverMu.TryLock() {
			return
		}
		for {
			h, e, ok := r.pop()
			if !ok {
				break
			}
			h(e)
		}
		r.deliverMu.Unlock()

		// A commit may have queued after the last pop but before Unlock,
		// while its own flush lost the TryLock race.
		r.mu.Lock()
		pending := len(r.outbox)
		r.mu.Unlock()
		if pending == 0 {
			return
		}
	}
}

// Drain blocks until every queued notification has been delivered. It must
// not be called from a handler.
func (r *Remote) Drain() {
	r.deliverMu.Lock()
	for {
		h, e, ok := r.pop()
		if !ok {
			break
		}
		h(e)
	}
	r.deliverMu.Unlock()
}

// Pending returns the number of queued notifications.
func (r *Remote) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outbox)
}
