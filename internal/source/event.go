package source

import (
	"fmt"
	"maps"
)

// ID identifies a remote document. It is the handle an entity keeps to
// find its Source again through a Directory.
type ID string

// Target is the domain identity shared by a local entity and its remote
// counterpart. It is stable across local recreation of the entity.
type Target string

// Well-known field names carried in Diff.Fields.
const (
	FieldName        = "name"
	FieldRole        = "role"
	FieldLocation    = "location"
	FieldAccessLevel = "access_level"
	FieldResult      = "result"
	FieldParameter   = "parameter"
	FieldDescription = "description"
)

// Diff is an immutable snapshot of a document's confirmed fields.
type Diff struct {
	Source ID
	Target Target
	// Parent is the target of the owning document. For objects it is the
	// parent object's target, empty for a root object.
	Parent Target
	Name   string
	Fields map[string]string
}

// Field returns a kind-specific field, or "" when absent.
func (d Diff) Field(name string) string {
	return d.Fields[name]
}

// Clone returns a deep copy so the receiver can be handed across a
// goroutine or package boundary.
func (d Diff) Clone() Diff {
	cp := d
	cp.Fields = maps.Clone(d.Fields)
	return cp
}

// EventType distinguishes the kinds of change a subscription delivers.
type EventType int

const (
	// EventModified carries a new snapshot of the subscribed document.
	EventModified EventType = iota + 1
	// EventRemoved reports that the subscribed document was deleted.
	EventRemoved
	// EventAdded carries the snapshot of a new child document.
	EventAdded
)

func (t EventType) String() string {
	switch t {
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	case EventAdded:
		return "added"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event is one entry of a document's change feed.
type Event struct {
	Type EventType

	// Child is the kind of the added document (EventAdded only).
	Child Kind

	// Diff is empty for EventRemoved.
	Diff Diff

	// After names the sibling the added document was inserted behind.
	// Empty means append.
	After Target
}

// String renders the event for logs.
func (e Event) String() string {
	switch e.Type {
	case EventAdded:
		if e.After != "" {
			return fmt.Sprintf("%s %s %s after %s", e.Child, e.Type, e.Diff.Target, e.After)
		}
		return fmt.Sprintf("%s %s %s", e.Child, e.Type, e.Diff.Target)
	case EventModified:
		return fmt.Sprintf("%s %s", e.Type, e.Diff.Target)
	default:
		return e.Type.String()
	}
}

// Modified builds an EventModified.
func Modified(d Diff) Event {
	return Event{Type: EventModified, Diff: d}
}

// Removed builds an EventRemoved.
func Removed() Event {
	return Event{Type: EventRemoved}
}

// Added builds an EventAdded appended to the child collection.
func Added(child Kind, d Diff) Event {
	return Event{Type: EventAdded, Child: child, Diff: d}
}

// AddedAfter builds an EventAdded positioned behind another sibling.
func AddedAfter(child Kind, d Diff, after Target) Event {
	return Event{Type: EventAdded, Child: child, Diff: d, After: after}
}
