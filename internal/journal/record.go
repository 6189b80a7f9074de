package journal

import (
	"fmt"

	"github.com/roach88/graphsync/internal/canon"
	"github.com/roach88/graphsync/internal/source"
)

// Op is the kind of commit a record describes.
type Op string

const (
	OpCreate Op = "create"
	OpSet    Op = "set"
	OpRemove Op = "remove"
)

// Record is one committed change.
//
// For OpCreate every field is meaningful: Doc is the new document, Owner
// the document whose collection it joins, Parent the parent object's
// target for nested objects, After the sibling it was placed behind.
// For OpSet only Doc, Kind and Fields are used; Fields holds the changed
// field, "name" included. OpRemove only uses Doc and Kind.
type Record struct {
	Seq    int64
	Op     Op
	Doc    source.ID
	Kind   source.Kind
	Owner  source.ID
	Target source.Target
	Parent source.Target
	After  source.Target
	Name   string
	Fields map[string]string
}

func (r Record) String() string {
	return fmt.Sprintf("#%d %s %s %s", r.Seq, r.Op, r.Kind, r.Doc)
}

func (r Record) canonical() map[string]any {
	fields := r.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	return map[string]any{
		"seq":    r.Seq,
		"op":     string(r.Op),
		"doc":    string(r.Doc),
		"kind":   r.Kind.String(),
		"owner":  string(r.Owner),
		"target": string(r.Target),
		"parent": string(r.Parent),
		"after":  string(r.After),
		"name":   r.Name,
		"fields": fields,
	}
}

// Fingerprint returns the record's content address.
func (r Record) Fingerprint() (string, error) {
	return canon.Hash(canon.DomainRecord, r.canonical())
}

// Validate checks the fields the op requires.
func (r Record) Validate() error {
	if r.Seq <= 0 {
		return fmt.Errorf("record %s: seq must be positive", r)
	}
	if r.Doc == "" {
		return fmt.Errorf("record %s: doc is required", r)
	}
	switch r.Op {
	case OpCreate:
		if r.Target == "" {
			return fmt.Errorf("record %s: target is required", r)
		}
		if r.Kind != source.KindProject && r.Owner == "" {
			return fmt.Errorf("record %s: owner is required", r)
		}
	case OpSet:
		if len(r.Fields) == 0 {
			return fmt.Errorf("record %s: no fields", r)
		}
	case OpRemove:
	default:
		return fmt.Errorf("record %s: unknown op", r)
	}
	return nil
}
