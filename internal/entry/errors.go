package entry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/xid"
)

// Code categorizes store failures.
type Code string

const (
	// CodeInvalidAction indicates an action name the registry cannot resolve.
	CodeInvalidAction Code = "invalid_action"

	// CodeInvalidField indicates an unknown projection or update field.
	CodeInvalidField Code = "invalid_field"

	// CodeNotFound indicates no row exists for the key.
	CodeNotFound Code = "not_found"

	// CodeFrozen indicates an update on an entry in a terminal state.
	CodeFrozen Code = "frozen"

	// CodeValidation indicates malformed input.
	CodeValidation Code = "validation"
)

// Error is a typed store failure with enough detail to reconstruct its cause.
type Error struct {
	Code    Code
	Message string

	// Field names the offending field or action, when there is one.
	Field string

	// Details contains additional context (keys, expected/actual status).
	Details map[string]string
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Details[k])
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, ", "))
}

// CodeOf extracts the code from err. Uses errors.As to handle wrapped errors.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// NewInvalidActionError reports an unresolvable action name.
func NewInvalidActionError(name string) *Error {
	return &Error{
		Code:    CodeInvalidAction,
		Message: fmt.Sprintf("invalid action %q", name),
		Field:   name,
	}
}

// NewInvalidFieldError reports an unknown field name.
func NewInvalidFieldError(name string) *Error {
	return &Error{
		Code:    CodeInvalidField,
		Message: fmt.Sprintf("invalid field %q", name),
		Field:   name,
	}
}

// NewNotFoundError reports a missing row.
func NewNotFoundError(ownerID, id xid.ID) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: "log entry not found",
		Details: map[string]string{
			"owner_id": ownerID.String(),
			"entry_id": id.String(),
		},
	}
}

// NewFrozenError reports an update attempted on a terminal entry.
func NewFrozenError(ownerID, id xid.ID, actual Status) *Error {
	return &Error{
		Code:    CodeFrozen,
		Message: "log entry is frozen",
		Field:   "status",
		Details: map[string]string{
			"owner_id": ownerID.String(),
			"entry_id": id.String(),
			"expected": StatusPending.String(),
			"actual":   actual.String(),
		},
	}
}

// NewValidationError reports malformed input on field.
func NewValidationError(field, message string) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: message,
		Field:   field,
	}
}
