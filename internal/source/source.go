package source

import (
	"context"
	"errors"
)

// ErrSubscribed is returned by Subscribe when the document already has a
// handler.
var ErrSubscribed = errors.New("source already has a subscriber")

// ErrNotFound is returned by calls against a document that no longer
// exists on the remote side.
var ErrNotFound = errors.New("source document not found")

// ErrRootExists is returned when a root object is created in a system that
// already has one.
var ErrRootExists = errors.New("system already has a root object")

// ErrLocationOccupied is returned when a system is created at, or moved to,
// a location another system of the project already holds.
var ErrLocationOccupied = errors.New("location already occupied")

// Handler receives a document's change feed. It is called from the
// delivering goroutine, one event at a time, in commit order.
type Handler func(Event)

// Source is the remote proxy for one document.
type Source interface {
	ID() ID
	Kind() Kind

	// Subscribe registers h. Existing children are replayed as EventAdded
	// before any later change is delivered.
	Subscribe(h Handler) error

	// Unsubscribe drops the handler. It is safe to call more than once.
	Unsubscribe()

	// SetField commits a new value for one confirmed field.
	SetField(ctx context.Context, name, value string) error

	// CreateChild commits a new child document of the given kind.
	CreateChild(ctx context.Context, kind Kind, fields map[string]string) error

	// Duplicate commits a copy of this document (and its subtree) directly
	// behind it in the parent's collection.
	Duplicate(ctx context.Context) error

	// Remove deletes the document and its subtree.
	Remove(ctx context.Context) error
}

// Directory resolves a document ID to its proxy.
type Directory interface {
	Lookup(id ID) (Source, bool)
}
