package remote

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/graphsync/internal/source"
)

type document struct {
	id     source.ID
	kind   source.Kind
	target source.Target
	owner  source.ID
	// parent is the parent object's target, objects only.
	parent   source.Target
	name     string
	fields   map[string]string
	children map[source.Kind][]source.ID
}

func (d *document) diff() source.Diff {
	return source.Diff{
		Source: d.id,
		Target: d.target,
		Parent: d.parent,
		Name:   d.name,
		Fields: maps.Clone(d.fields),
	}
}

// defaultFields lists the fields each kind carries and their initial value.
var defaultFields = map[source.Kind]map[string]string{
	source.KindSystem: {source.FieldLocation: "0,0"},
	source.KindObject: {source.FieldRole: "node"},
	source.KindState:  {source.FieldAccessLevel: "read_write"},
	source.KindGetter: {source.FieldResult: ""},
	source.KindSetter: {source.FieldParameter: ""},
	source.KindValue:  {source.FieldDescription: ""},
}

var accessLevels = []string{"read_only", "read_write", "write_only"}

// checkField validates one field write. Role is fixed at creation.
func checkField(kind source.Kind, name, value string, creating bool) (string, error) {
	if name == source.FieldName {
		return value, nil
	}
	if _, ok := defaultFields[kind][name]; !ok {
		return "", fmt.Errorf("%w: %s has no field %q", ErrInvalidField, kind, name)
	}
	switch name {
	case source.FieldLocation:
		var x, y int
		if _, err := fmt.Sscanf(value, "%d,%d", &x, &y); err != nil {
			return "", fmt.Errorf("%w: location %q", ErrInvalidField, value)
		}
		return fmt.Sprintf("%d,%d", x, y), nil
	case source.FieldRole:
		if !creating {
			return "", fmt.Errorf("%w: role cannot change", ErrInvalidField)
		}
		if value != "root" && value != "node" {
			return "", fmt.Errorf("%w: role %q", ErrInvalidField, value)
		}
	case source.FieldAccessLevel:
		if !slices.Contains(accessLevels, value) {
			return "", fmt.Errorf("%w: access level %q", ErrInvalidField, value)
		}
	}
	return value, nil
}

func (r *Remote) childIndex(owner *document, kind source.Kind, t source.Target) int {
	return slices.IndexFunc(owner.children[kind], func(id source.ID) bool {
		c, ok := r.docs[id]
		return ok && c.target == t
	})
}

// insertChild places id behind the sibling with target after. It reports
// whether that sibling was found; otherwise id is appended.
func (r *Remote) insertChild(owner *document, kind source.Kind, id source.ID, after source.Target) bool {
	if owner.children == nil {
		owner.children = make(map[source.Kind][]source.ID)
	}
	if after != "" {
		if i := r.childIndex(owner, kind, after); i >= 0 {
			owner.children[kind] = slices.Insert(owner.children[kind], i+1, id)
			return true
		}
	}
	owner.children[kind] = append(owner.children[kind], id)
	return false
}

// childObjects returns the objects of d's system whose parent is d.
func (r *Remote) childObjects(d *document) []*document {
	sys, ok := r.docs[d.owner]
	if !ok {
		return nil
	}
	var out []*document
	for _, id := range sys.children[source.KindObject] {
		if c, ok := r.docs[id]; ok && c.parent == d.target {
			out = append(out, c)
		}
	}
	return out
}

// subtree returns d and everything below it, leaves first.
func (r *Remote) subtree(d *document) []*document {
	var out []*document
	if d.kind == source.KindObject {
		for _, c := range r.childObjects(d) {
			out = append(out, r.subtree(c)...)
		}
	}
	for _, k := range d.kind.Children() {
		for _, id := range d.children[k] {
			c, ok := r.docs[id]
			if !ok {
				continue
			}
			// Nested objects are reached through their parent object.
			if d.kind == source.KindSystem && c.parent != "" {
				continue
			}
			out = append(out, r.subtree(c)...)
		}
	}
	return append(out, d)
}

// rootOf returns the system's root object, or nil.
func (r *Remote) rootOf(system *document) *document {
	for _, id := range system.children[source.KindObject] {
		if c, ok := r.docs[id]; ok && c.fields[source.FieldRole] == "root" {
			return c
		}
	}
	return nil
}

// systemAt returns the project's system at loc other than skip, or nil.
func (r *Remote) systemAt(project *document, loc string, skip source.ID) *document {
	if project == nil {
		return nil
	}
	for _, id := range project.children[source.KindSystem] {
		if c, ok := r.docs[id]; ok && id != skip && c.fields[source.FieldLocation] == loc {
			return c
		}
	}
	return nil
}
