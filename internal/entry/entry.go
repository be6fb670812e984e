package entry

import (
	"github.com/rs/xid"

	"github.com/roach88/logbase/internal/action"
)

// Entry is one audited action instance.
type Entry struct {
	OwnerID xid.ID
	ID      xid.ID

	// Mandatory: materialized by every read.
	Action int8
	Status Status

	GroupID  Optional[xid.ID]
	SourceIP Optional[string]
	Payload  Optional[[]byte]
	Tokens   Optional[int32]
	Error    Optional[string]
}

// ActionName resolves the stored code through the action registry.
func (e Entry) ActionName() string {
	return action.Name(int(e.Action))
}

// Frozen reports whether the entry accepts no further updates.
func (e Entry) Frozen() bool {
	return e.Status.Terminal()
}

// ErrorMessage returns the diagnostic message. An unprojected error and an
// empty one both report false.
func (e Entry) ErrorMessage() (string, bool) {
	if !e.Error.Valid || e.Error.Value == "" {
		return "", false
	}
	return e.Error.Value, true
}
