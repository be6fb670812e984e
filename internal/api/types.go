package api

import (
	"github.com/rs/xid"

	"github.com/roach88/logbase/internal/entry"
	"github.com/roach88/logbase/internal/logstore"
)

type createRequest struct {
	OwnerID  xid.ID `json:"owner_id"`
	GroupID  xid.ID `json:"group_id"`
	Action   string `json:"action" validate:"required"`
	SourceIP string `json:"source_ip" validate:"max=255"`
	Payload  []byte `json:"payload"`
	Tokens   int32  `json:"tokens" validate:"gte=0"`
}

type updateRequest struct {
	OwnerID xid.ID  `json:"owner_id"`
	ID      xid.ID  `json:"id" validate:"required"`
	Status  *int8   `json:"status" validate:"required,oneof=-1 0 1"`
	Payload *[]byte `json:"payload"`
	Tokens  *int32  `json:"tokens" validate:"omitempty,gte=0"`
	Error   *string `json:"error"`
}

type listRecentRequest struct {
	OwnerID xid.ID   `json:"owner_id"`
	Fields  []string `json:"fields"`
	Actions []string `json:"actions" validate:"max=10"`
}

type indexResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Storage any    `json:"storage,omitempty"`
}

// logOutput is the wire form of an entry. Fields outside the projection
// are omitted.
type logOutput struct {
	OwnerID  xid.ID  `json:"owner_id"`
	ID       xid.ID  `json:"entry_id"`
	Action   string  `json:"action"`
	Status   int8    `json:"status"`
	GroupID  *xid.ID `json:"group_id,omitempty"`
	SourceIP *string `json:"source_ip,omitempty"`
	Payload  *[]byte `json:"payload,omitempty"`
	Tokens   *int32  `json:"tokens,omitempty"`
	Error    string  `json:"error,omitempty"`
}

type pageOutput struct {
	Entries    []logOutput `json:"entries"`
	NextCursor *xid.ID     `json:"next_cursor,omitempty"`
}

func toOutput(e entry.Entry) logOutput {
	out := logOutput{
		OwnerID: e.OwnerID,
		ID:      e.ID,
		Action:  e.ActionName(),
		Status:  int8(e.Status),
	}
	if v, ok := e.GroupID.Get(); ok {
		out.GroupID = &v
	}
	if v, ok := e.SourceIP.Get(); ok {
		out.SourceIP = &v
	}
	if v, ok := e.Payload.Get(); ok {
		out.Payload = &v
	}
	if v, ok := e.Tokens.Get(); ok {
		out.Tokens = &v
	}
	if msg, ok := e.ErrorMessage(); ok {
		out.Error = msg
	}
	return out
}

func toOutputs(entries []entry.Entry) []logOutput {
	out := make([]logOutput, 0, len(entries))
	for _, e := range entries {
		out = append(out, toOutput(e))
	}
	return out
}

func toPage(p logstore.Page) pageOutput {
	return pageOutput{Entries: toOutputs(p.Entries), NextCursor: p.NextCursor}
}
