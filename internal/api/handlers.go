package api

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/roach88/logbase/internal/entry"
	"github.com/roach88/logbase/internal/logstore"
)

func (app *Application) index(w http.ResponseWriter, r *http.Request) {
	writeResult(w, http.StatusOK, indexResponse{Name: serviceName, Version: app.version})
}

func (app *Application) healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Uptime: time.Since(app.started).Round(time.Second).String(),
	}
	if app.metrics != nil {
		resp.Storage = app.metrics.Snapshot()
	}
	writeResult(w, http.StatusOK, resp)
}

func (app *Application) createEntry(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := readJSON(w, r, &req); err != nil {
		app.writeError(w, r, err)
		return
	}
	if err := app.check(req); err != nil {
		app.writeError(w, r, err)
		return
	}

	owner, err := app.ownerID(r, req.OwnerID)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	sourceIP := req.SourceIP
	if sourceIP == "" {
		sourceIP = clientIP(r)
	}

	rc := FromContext(r.Context())
	rc.Tag("owner_id", owner.String())
	rc.Tag("action", req.Action)

	e, err := app.store.Create(r.Context(), logstore.CreateInput{
		OwnerID:  owner,
		GroupID:  req.GroupID,
		Action:   req.Action,
		SourceIP: sourceIP,
		Payload:  req.Payload,
		Tokens:   req.Tokens,
	})
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	rc.Tag("entry_id", e.ID.String())
	writeResult(w, http.StatusCreated, toOutput(e))
}

func (app *Application) getEntry(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	explicit, err := queryID(q.Get("owner_id"), entry.FieldOwnerID)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	owner, err := app.ownerID(r, explicit)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	id, err := queryID(q.Get("id"), "id")
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	if id.IsNil() {
		app.writeError(w, r, entry.NewValidationError("id", "id is required"))
		return
	}

	FromContext(r.Context()).Tag("entry_id", id.String())

	e, err := app.store.GetOne(r.Context(), owner, id, entry.ParseFieldList(q.Get("fields")))
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, toOutput(e))
}

func (app *Application) updateEntry(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := readJSON(w, r, &req); err != nil {
		app.writeError(w, r, err)
		return
	}
	if err := app.check(req); err != nil {
		app.writeError(w, r, err)
		return
	}

	owner, err := app.ownerID(r, req.OwnerID)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	rc := FromContext(r.Context())
	rc.Tag("entry_id", req.ID.String())
	rc.Tag("status", *req.Status)

	e, err := app.store.Update(r.Context(), logstore.UpdateInput{
		OwnerID: owner,
		ID:      req.ID,
		Status:  entry.Status(*req.Status),
		Payload: req.Payload,
		Tokens:  req.Tokens,
		Error:   req.Error,
	})
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, toOutput(e))
}

func (app *Application) listEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	explicit, err := queryID(q.Get("owner_id"), entry.FieldOwnerID)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	owner, err := app.ownerID(r, explicit)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	in := logstore.ListInput{
		OwnerID: owner,
		Fields:  entry.ParseFieldList(q.Get("fields")),
	}

	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			app.writeError(w, r, entry.NewValidationError("page_size", "page_size must be an integer"))
			return
		}
		in.PageSize = n
	}

	if raw := q.Get("cursor"); raw != "" {
		cursor, err := queryID(raw, "cursor")
		if err != nil {
			app.writeError(w, r, err)
			return
		}
		in.Cursor = &cursor
	}

	if name := q.Get("action"); name != "" {
		in.Action = &name
		FromContext(r.Context()).Tag("action", name)
	}

	page, err := app.store.List(r.Context(), in)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, toPage(page))
}

func (app *Application) listRecent(w http.ResponseWriter, r *http.Request) {
	var req listRecentRequest
	if err := readJSON(w, r, &req); err != nil {
		app.writeError(w, r, err)
		return
	}
	if err := app.check(req); err != nil {
		app.writeError(w, r, err)
		return
	}

	owner, err := app.ownerID(r, req.OwnerID)
	if err != nil {
		app.writeError(w, r, err)
		return
	}

	FromContext(r.Context()).Tag("actions", req.Actions)

	entries, err := app.store.ListRecent(r.Context(), owner, req.Fields, req.Actions)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, toOutputs(entries))
}

// ownerID resolves the owner from the request and the authenticated user.
// When both are present they must agree.
func (app *Application) ownerID(r *http.Request, explicit xid.ID) (xid.ID, error) {
	user := FromContext(r.Context()).User
	if user == "" {
		if explicit.IsNil() {
			return xid.NilID(), entry.NewValidationError(entry.FieldOwnerID, "owner_id is required")
		}
		return explicit, nil
	}

	authed, err := xid.FromString(user)
	if err != nil {
		return xid.NilID(), entry.NewValidationError(entry.FieldOwnerID, "authenticated user is not a valid id")
	}
	if !explicit.IsNil() && explicit != authed {
		return xid.NilID(), entry.NewValidationError(entry.FieldOwnerID, "owner_id does not match the authenticated user")
	}
	return authed, nil
}

// queryID parses an optional id parameter. Blank input yields the nil id.
func queryID(raw, name string) (xid.ID, error) {
	if raw == "" {
		return xid.NilID(), nil
	}
	id, err := xid.FromString(raw)
	if err != nil {
		return xid.NilID(), entry.NewValidationError(name, name+" is not a valid id")
	}
	return id, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
