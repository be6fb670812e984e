package entry

import (
	"slices"
	"strings"
)

// Column names. They double as projection field names.
const (
	FieldOwnerID  = "owner_id"
	FieldID       = "entry_id"
	FieldAction   = "action"
	FieldStatus   = "status"
	FieldGroupID  = "group_id"
	FieldSourceIP = "source_ip"
	FieldPayload  = "payload"
	FieldTokens   = "tokens"
	FieldError    = "error"
)

// fields is the full schema in stable column order.
var fields = [...]string{
	FieldOwnerID,
	FieldID,
	FieldAction,
	FieldStatus,
	FieldGroupID,
	FieldSourceIP,
	FieldPayload,
	FieldTokens,
	FieldError,
}

// mutableFields may appear in a partial update. The primary key never may.
var mutableFields = [...]string{
	FieldStatus,
	FieldGroupID,
	FieldAction,
	FieldSourceIP,
	FieldPayload,
	FieldTokens,
	FieldError,
}

// Fields returns every field name in column order.
func Fields() []string {
	return slices.Clone(fields[:])
}

// IsField reports whether name belongs to the schema.
func IsField(name string) bool {
	return slices.Contains(fields[:], name)
}

// IsMutable reports whether name may be set by a partial update.
func IsMutable(name string) bool {
	return slices.Contains(mutableFields[:], name)
}

// ResolveProjection returns the columns a read must fetch.
//
// An empty request selects every field. Otherwise each requested name must
// exist (CodeInvalidField names the first that does not), and the mandatory
// action and status fields are appended when missing. withPrimaryKey also
// appends owner_id and entry_id, for reads whose caller does not already
// hold the key.
//
// ResolveProjection is a pure function; requested is never modified.
func ResolveProjection(requested []string, withPrimaryKey bool) ([]string, error) {
	if len(requested) == 0 {
		return Fields(), nil
	}

	for _, name := range requested {
		if !IsField(name) {
			return nil, NewInvalidFieldError(name)
		}
	}

	resolved := slices.Clone(requested)
	appendMissing := func(name string) {
		if !slices.Contains(resolved, name) {
			resolved = append(resolved, name)
		}
	}

	appendMissing(FieldAction)
	appendMissing(FieldStatus)
	if withPrimaryKey {
		appendMissing(FieldOwnerID)
		appendMissing(FieldID)
	}

	return resolved, nil
}

// ParseFieldList splits a comma-separated field list. Blank input and blank
// items yield nothing.
func ParseFieldList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
