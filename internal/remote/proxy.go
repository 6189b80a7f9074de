package remote

import (
	"context"
	"fmt"
	"maps"

	"github.com/roach88/graphsync/internal/journal"
	"github.com/roach88/graphsync/internal/source"
)

// proxy is the source.Source of one document. It holds no state besides
// the ID; every call resolves the document again.
type proxy struct {
	r    *Remote
	id   source.ID
	kind source.Kind
}

func (p *proxy) ID() source.ID { return p.id }

func (p *proxy) Kind() source.Kind { return p.kind }

func (p *proxy) String() string { return fmt.Sprintf("%s %s", p.kind, p.id) }

func (p *proxy) notFound() error { return fmt.Errorf("%s: %w", p, source.ErrNotFound) }

// doc resolves the document. Called with mu held.
func (p *proxy) doc() (*document, bool) {
	d, ok := p.r.docs[p.id]
	return d, ok
}

// Subscribe registers h and replays the document's children as added
// events, collection by collection.
func (p *proxy) Subscribe(h source.Handler) error {
	r := p.r
	r.mu.Lock()
	d, ok := p.doc()
	if !ok {
		r.mu.Unlock()
		return p.notFound()
	}
	if _, ok := r.listeners[p.id]; ok {
		r.mu.Unlock()
		return source.ErrSubscribed
	}
	r.gen++
	r.listeners[p.id] = listener{h: h, since: r.clock, gen: r.gen}
	for _, k := range d.kind.Children() {
		for _, id := range d.children[k] {
			if c, ok := r.docs[id]; ok {
				r.outbox = append(r.outbox, note{doc: p.id, event: source.Added(k, c.diff()), replay: r.gen})
			}
		}
	}
	r.mu.Unlock()

	r.flush()
	return nil
}

func (p *proxy) Unsubscribe() {
	p.r.mu.Lock()
	defer p.r.mu.Unlock()
	delete(p.r.listeners, p.id)
}

// begin locks the store and resolves the document. On success the caller
// owns mu and must call end.
func (p *proxy) begin(ctx context.Context) (*document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.r.mu.Lock()
	if err := p.r.takeFault(p.id); err != nil {
		p.r.mu.Unlock()
		return nil, err
	}
	d, ok := p.doc()
	if !ok {
		p.r.mu.Unlock()
		return nil, p.notFound()
	}
	return d, nil
}

func (p *proxy) end() {
	p.r.mu.Unlock()
	p.r.flush()
}

func (p *proxy) SetField(ctx context.Context, name, value string) error {
	if _, err := p.begin(ctx); err != nil {
		return err
	}
	defer p.end()

	return p.r.commit(ctx, &journal.Record{
		Op:     journal.OpSet,
		Doc:    p.id,
		Kind:   p.kind,
		Fields: map[string]string{name: value},
	})
}

// CreateChild commits a new child. An object asked for an object child
// creates it in its own system with itself as parent.
func (p *proxy) CreateChild(ctx context.Context, kind source.Kind, fields map[string]string) error {
	d, err := p.begin(ctx)
	if err != nil {
		return err
	}
	defer p.end()

	rec := journal.Record{
		Op:     journal.OpCreate,
		Doc:    source.ID(p.r.ids.Generate()),
		Kind:   kind,
		Owner:  d.id,
		Target: source.Target(p.r.ids.Generate()),
		Name:   fmt.Sprintf("New %s", kind),
		Fields: maps.Clone(fields),
	}
	if name, ok := rec.Fields[source.FieldName]; ok {
		rec.Name = name
		delete(rec.Fields, source.FieldName)
	}
	if d.kind == source.KindObject && kind == source.KindObject {
		rec.Owner = d.owner
		rec.Parent = d.target
	}
	return p.r.commit(ctx, &rec)
}

// Duplicate copies the document and its subtree behind the original.
func (p *proxy) Duplicate(ctx context.Context) error {
	d, err := p.begin(ctx)
	if err != nil {
		return err
	}
	defer p.end()

	if d.kind == source.KindProject {
		return fmt.Errorf("%w: projects cannot be duplicated", ErrInvalidChild)
	}
	return p.r.commitAll(ctx, p.r.copyRecords(d))
}

func (p *proxy) Remove(ctx context.Context) error {
	if _, err := p.begin(ctx); err != nil {
		return err
	}
	defer p.end()

	return p.r.commit(ctx, &journal.Record{
		Op:   journal.OpRemove,
		Doc:  p.id,
		Kind: p.kind,
	})
}

// copyRecords builds the create records of a copy of d's subtree, parents
// first. Only the copy of d is placed behind its original; descendants
// keep their relative order. Called with mu held.
func (r *Remote) copyRecords(d *document) []journal.Record {
	ids := make(map[source.ID]source.ID)
	targets := make(map[source.Target]source.Target)

	var out []journal.Record
	var walk func(c *document, after source.Target)
	walk = func(c *document, after source.Target) {
		rec := journal.Record{
			Op:     journal.OpCreate,
			Doc:    source.ID(r.ids.Generate()),
			Kind:   c.kind,
			Owner:  c.owner,
			Target: source.Target(r.ids.Generate()),
			Parent: c.parent,
			After:  after,
			Name:   c.name,
			Fields: maps.Clone(c.fields),
		}
		if o, ok := ids[c.owner]; ok {
			rec.Owner = o
		}
		if t, ok := targets[c.parent]; ok {
			rec.Parent = t
		}
		ids[c.id] = rec.Doc
		targets[c.target] = rec.Target
		out = append(out, rec)

		if c.kind == source.KindObject {
			for _, k := range r.childObjects(c) {
				walk(k, "")
			}
		}
		for _, k := range c.kind.Children() {
			for _, id := range c.children[k] {
				child, ok := r.docs[id]
				if !ok || (c.kind == source.KindSystem && child.parent != "") {
					continue
				}
				walk(child, "")
			}
		}
	}
	walk(d, d.target)
	return out
}
