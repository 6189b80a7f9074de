package remote

import (
	"maps"

	"github.com/roach88/graphsync/internal/canon"
	"github.com/roach88/graphsync/internal/source"
)

// Snapshot is an ID-free view of a document subtree. It encodes to the
// same JSON as the mirror's snapshot of an identical tree.
type Snapshot struct {
	Kind     string            `json:"kind"`
	Name     string            `json:"name"`
	Fields   map[string]string `json:"fields,omitempty"`
	Children []Snapshot        `json:"children,omitempty"`
}

// Snapshot returns one snapshot per project, in creation order. The result
// is never nil.
func (r *Remote) Snapshot() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []Snapshot{}
	for _, id := range r.projects {
		if d, ok := r.docs[id]; ok {
			out = append(out, r.snapshot(d))
		}
	}
	return out
}

// TreeHash fingerprints the current tree.
func (r *Remote) TreeHash() (string, error) {
	return canon.Hash(canon.DomainTree, r.Snapshot())
}

func (r *Remote) snapshot(d *document) Snapshot {
	snap := Snapshot{Kind: d.kind.String(), Name: d.name}
	if len(d.fields) > 0 {
		snap.Fields = maps.Clone(d.fields)
	}
	if d.kind == source.KindObject {
		for _, c := range r.childObjects(d) {
			snap.Children = append(snap.Children, r.snapshot(c))
		}
	}
	for _, k := range d.kind.Children() {
		for _, id := range d.children[k] {
			c, ok := r.docs[id]
			if !ok || (d.kind == source.KindSystem && c.parent != "") {
				continue
			}
			snap.Children = append(snap.Children, r.snapshot(c))
		}
	}
	return snap
}
