package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/graphsync/internal/source"
)

// ErrorCode categorizes graph errors.
type ErrorCode string

const (
	// CodeIsDeleted indicates the entity vanished before or during an operation.
	CodeIsDeleted ErrorCode = "IS_DELETED"

	// CodeAlreadyUpdating indicates a second subscription attempt.
	CodeAlreadyUpdating ErrorCode = "ALREADY_UPDATING"

	// CodeNotUpdating indicates StopUpdating on an entity with no subscription.
	CodeNotUpdating ErrorCode = "NOT_UPDATING"

	// CodeNameCannotBeEmpty indicates an empty staged name.
	CodeNameCannotBeEmpty ErrorCode = "NAME_CANNOT_BE_EMPTY"

	// CodeNewNameIsSameAsCurrent indicates a push of an unchanged name.
	CodeNewNameIsSameAsCurrent ErrorCode = "NEW_NAME_IS_SAME_AS_CURRENT"

	// CodeNoChangesToPush indicates a push where no staged field differs.
	CodeNoChangesToPush ErrorCode = "NO_CHANGES_TO_PUSH"

	// CodeAlreadyAdded indicates an added diff for a target already present.
	CodeAlreadyAdded ErrorCode = "ALREADY_ADDED"

	// CodeAlreadyRemoved indicates a diff for a target that is no longer live.
	CodeAlreadyRemoved ErrorCode = "ALREADY_REMOVED"

	// CodeEventQueueIsEmpty indicates Update with nothing pending.
	CodeEventQueueIsEmpty ErrorCode = "EVENT_QUEUE_IS_EMPTY"

	// CodeOwnerIsDeleted indicates an updater whose owner is gone.
	CodeOwnerIsDeleted ErrorCode = "OWNER_IS_DELETED"

	// CodeRootAlreadyExists indicates a second root object under a system.
	CodeRootAlreadyExists ErrorCode = "ROOT_ALREADY_EXISTS"

	// CodeLocationOccupied indicates a system location already in use.
	CodeLocationOccupied ErrorCode = "LOCATION_OCCUPIED"

	// CodeUnexpectedEvent indicates an event the owner cannot apply.
	CodeUnexpectedEvent ErrorCode = "UNEXPECTED_EVENT"

	// CodeUnknown wraps any failure that does not map to a known code.
	CodeUnknown ErrorCode = "UNKNOWN"
)

var defaultMessages = map[ErrorCode]string{
	CodeIsDeleted:              "is deleted",
	CodeAlreadyUpdating:        "is already updating",
	CodeNotUpdating:            "is not updating",
	CodeNameCannotBeEmpty:      "name cannot be empty",
	CodeNewNameIsSameAsCurrent: "new name is same as current",
	CodeNoChangesToPush:        "no changes to push",
	CodeAlreadyAdded:           "already added",
	CodeAlreadyRemoved:         "already removed",
	CodeEventQueueIsEmpty:      "event queue is empty",
	CodeOwnerIsDeleted:         "owner is deleted",
	CodeRootAlreadyExists:      "root object already exists",
	CodeLocationOccupied:       "location already occupied",
	CodeUnexpectedEvent:        "unexpected event",
	CodeUnknown:                "unknown error",
}

// Error is the single error type surfaced by graph operations and updaters.
//
// errors.Is matches on Code, and also on Kind when the target sets one, so
// ErrIsDeleted matches every deleted entity while ErrSystemIsDeleted only
// matches systems.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Kind is the entity type the error is about.
	Kind source.Kind

	// ID is the local ID or target the error is about, when known.
	ID string

	// Message overrides the default message for Code.
	Message string

	// Err is the underlying cause: the opaque failure for CodeUnknown, or
	// the remote rejection behind a structural code.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultMessages[e.Code]
	}
	subject := ""
	if e.Kind != 0 {
		subject = e.Kind.String() + " "
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.ID != "" {
		return fmt.Sprintf("%s: %s%s (id=%s)", e.Code, subject, msg, e.ID)
	}
	return fmt.Sprintf("%s: %s%s", e.Code, subject, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code and, when the
// target names a kind, the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Kind == 0 || t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrIsDeleted              = &Error{Code: CodeIsDeleted}
	ErrAlreadyUpdating        = &Error{Code: CodeAlreadyUpdating}
	ErrNotUpdating            = &Error{Code: CodeNotUpdating}
	ErrNameCannotBeEmpty      = &Error{Code: CodeNameCannotBeEmpty}
	ErrNewNameIsSameAsCurrent = &Error{Code: CodeNewNameIsSameAsCurrent}
	ErrNoChangesToPush        = &Error{Code: CodeNoChangesToPush}
	ErrAlreadyAdded           = &Error{Code: CodeAlreadyAdded}
	ErrAlreadyRemoved         = &Error{Code: CodeAlreadyRemoved}
	ErrEventQueueIsEmpty      = &Error{Code: CodeEventQueueIsEmpty}
	ErrOwnerIsDeleted         = &Error{Code: CodeOwnerIsDeleted}
	ErrRootAlreadyExists      = &Error{Code: CodeRootAlreadyExists}
	ErrLocationOccupied       = &Error{Code: CodeLocationOccupied}
	ErrUnexpectedEvent        = &Error{Code: CodeUnexpectedEvent}
	ErrUnknown                = &Error{Code: CodeUnknown}

	ErrProjectIsDeleted = &Error{Code: CodeIsDeleted, Kind: source.KindProject}
	ErrSystemIsDeleted  = &Error{Code: CodeIsDeleted, Kind: source.KindSystem}
	ErrObjectIsDeleted  = &Error{Code: CodeIsDeleted, Kind: source.KindObject}
	ErrStateIsDeleted   = &Error{Code: CodeIsDeleted, Kind: source.KindState}
	ErrActionIsDeleted  = &Error{Code: CodeIsDeleted, Kind: source.KindAction}
	ErrGetterIsDeleted  = &Error{Code: CodeIsDeleted, Kind: source.KindGetter}
	ErrSetterIsDeleted  = &Error{Code: CodeIsDeleted, Kind: source.KindSetter}
	ErrValueIsDeleted   = &Error{Code: CodeIsDeleted, Kind: source.KindValue}
)

func newError(code ErrorCode, kind source.Kind, id string) *Error {
	return &Error{Code: code, Kind: kind, ID: id}
}

// classify returns err unchanged when it is already an *Error, maps the
// remote's structural rejections to their codes and wraps anything else as
// CodeUnknown, so callers always see a stable code.
func classify(kind source.Kind, id string, err error) error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return err
	}
	switch {
	case errors.Is(err, source.ErrRootExists):
		return &Error{Code: CodeRootAlreadyExists, Kind: kind, ID: id, Err: err}
	case errors.Is(err, source.ErrLocationOccupied):
		return &Error{Code: CodeLocationOccupied, Kind: kind, ID: id, Err: err}
	}
	msg := "remote call failed"
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		msg = "operation abandoned"
	}
	return &Error{Code: CodeUnknown, Kind: kind, ID: id, Message: msg, Err: err}
}

// IsKnown reports whether err carries one of the stable codes, as opposed
// to an opaque failure from the remote side.
func IsKnown(err error) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Code != CodeUnknown
}

// CodeOf returns the code of err, or "" when err is not a graph error.
func CodeOf(err error) ErrorCode {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}
