package entry

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the tri-state outcome of an audited action.
type Status int8

const (
	StatusFailure Status = -1
	StatusPending Status = 0
	StatusSuccess Status = 1
)

// Valid reports whether s is one of the three defined states.
func (s Status) Valid() bool {
	return s >= StatusFailure && s <= StatusSuccess
}

// Terminal reports whether s freezes the entry.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return fmt.Sprintf("status(%d)", int8(s))
	}
}

// ParseStatus accepts a state name or its integer form.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "success":
		return StatusSuccess, nil
	case "failure":
		return StatusFailure, nil
	}

	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 8)
	if err != nil || !Status(n).Valid() {
		return 0, NewValidationError("status", fmt.Sprintf("invalid status %q: must be pending, success, failure, 0, 1 or -1", s))
	}
	return Status(n), nil
}
