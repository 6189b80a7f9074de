package graph

import (
	"github.com/google/uuid"
)

// Local IDs are registry keys. They are minted when an entity is
// constructed and never reused.
type (
	ProjectID string
	SystemID  string
	ObjectID  string
	StateID   string
	ActionID  string
	GetterID  string
	SetterID  string
	ValueID   string
)

// IDGenerator mints local IDs.
// Implemented by UUIDv7Generator (production) and testutil.SequentialIDs (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
