package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/roach88/logbase/internal/entry"
	"github.com/roach88/logbase/internal/logstore"
	"github.com/roach88/logbase/internal/rowstore"
	"github.com/roach88/logbase/internal/rowstore/sqlite"
	"github.com/roach88/logbase/internal/testutil"
)

// Harness executes scenarios against one store and clock.
type Harness struct {
	store  *logstore.Store
	clock  *testutil.FakeClock
	ids    *testutil.SequentialIDGenerator
	logger *zap.Logger
}

// New creates a harness over store. clock must be the clock the store
// reads; advance steps move it.
func New(store *logstore.Store, clock *testutil.FakeClock, logger *zap.Logger) *Harness {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harness{
		store:  store,
		clock:  clock,
		ids:    testutil.NewSequentialIDGenerator(clock),
		logger: logger,
	}
}

// Run executes a scenario in a fresh in-memory store.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	rows, err := sqlite.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer rows.Close()

	start := scenario.Start
	if start.IsZero() {
		start = DefaultStart
	}
	clock := testutil.NewFakeClock(start)

	store := logstore.New(rowstore.Instrument(rows, rowstore.Options{}), logstore.Options{
		Now: clock.Now,
		IDs: testutil.NewSequentialIDGenerator(clock),
	})
	return New(store, clock, nil).Run(ctx, scenario)
}

// run is the per-execution state.
type run struct {
	*Harness
	owners  map[string]xid.ID
	entries map[string]entry.Entry
	names   map[xid.ID]string
	result  *Result
}

// Run executes the scenario's steps in order, then its assertions.
//
// Expectation failures are recorded in the result. The returned error is
// reserved for failures that stop execution: a context cancellation or an
// unexpected error from a create step whose ref later steps depend on.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	r := &run{
		Harness: h,
		owners:  make(map[string]xid.ID),
		entries: make(map[string]entry.Entry),
		names:   make(map[xid.ID]string),
		result:  NewResult(),
	}

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.execute(ctx, i, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}

	for _, msg := range r.evaluateAssertions(ctx, scenario.Assertions) {
		r.result.AddError(msg)
	}
	return r.result, nil
}

func (r *run) owner(alias string) xid.ID {
	if id, ok := r.owners[alias]; ok {
		return id
	}
	id := r.ids.Generate()
	r.owners[alias] = id
	return id
}

// ownerOf resolves the owner for a step that targets ref.
func (r *run) ownerOf(step Step) xid.ID {
	if step.Owner != "" {
		return r.owner(step.Owner)
	}
	return r.entries[step.Ref].OwnerID
}

func (r *run) execute(ctx context.Context, i int, step Step) error {
	ev := TraceEvent{Step: i, Op: step.Op, Ref: step.Ref, Owner: step.Owner}

	var (
		got  entry.Entry
		list []entry.Entry
		err  error
	)

	switch step.Op {
	case OpCreate:
		in := logstore.CreateInput{
			OwnerID:  r.owner(step.Owner),
			GroupID:  r.ids.Generate(),
			Action:   step.Action,
			SourceIP: step.SourceIP,
		}
		if step.Payload != nil {
			in.Payload = []byte(*step.Payload)
		}
		if step.Tokens != nil {
			in.Tokens = *step.Tokens
		}
		got, err = r.store.Create(ctx, in)
		if err == nil {
			r.entries[step.Ref] = got
			r.names[got.ID] = step.Ref
		}

	case OpGet:
		got, err = r.store.GetOne(ctx, r.ownerOf(step), r.entries[step.Ref].ID, step.Fields)

	case OpUpdate:
		in := logstore.UpdateInput{
			OwnerID: r.ownerOf(step),
			ID:      r.entries[step.Ref].ID,
			Status:  entry.Status(*step.Status),
			Tokens:  step.Tokens,
			Error:   step.Error,
		}
		if step.Payload != nil {
			payload := []byte(*step.Payload)
			in.Payload = &payload
		}
		got, err = r.store.Update(ctx, in)

	case OpList:
		in := logstore.ListInput{
			OwnerID:  r.owner(step.Owner),
			Fields:   step.Fields,
			PageSize: step.PageSize,
		}
		if step.Action != "" {
			name := step.Action
			in.Action = &name
		}
		if step.After != "" {
			cursor := r.entries[step.After].ID
			in.Cursor = &cursor
		}
		var page logstore.Page
		page, err = r.store.List(ctx, in)
		list = page.Entries

	case OpListRecent:
		list, err = r.store.ListRecent(ctx, r.owner(step.Owner), step.Fields, step.Actions)

	case OpAdvance:
		r.clock.Advance(step.By)
	}

	ev.Outcome = outcomeOf(err)
	if err == nil {
		switch step.Op {
		case OpCreate, OpGet, OpUpdate:
			ev.Action = got.ActionName()
			status := int8(got.Status)
			ev.Status = &status
			if tokens, ok := got.Tokens.Get(); ok {
				ev.Tokens = &tokens
			}
		case OpList, OpListRecent:
			ev.Refs = r.refsOf(list)
		}
	}
	r.result.addTrace(ev)

	r.logger.Debug("scenario step",
		zap.Int("step", i),
		zap.String("op", step.Op),
		zap.String("ref", step.Ref),
		zap.String("outcome", ev.Outcome),
		zap.Error(err))

	r.check(i, step, ev, got, list, err)

	if err != nil && step.Op == OpCreate && (step.Expect == nil || step.Expect.Error == "") {
		return err
	}
	return nil
}

func (r *run) refsOf(list []entry.Entry) []string {
	refs := make([]string, 0, len(list))
	for _, e := range list {
		name, ok := r.names[e.ID]
		if !ok {
			name = "?"
		}
		refs = append(refs, name)
	}
	return refs
}

// outcomeOf maps a step error onto its trace outcome.
func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code, ok := entry.CodeOf(err); ok {
		return string(code)
	}
	switch {
	case errors.Is(err, rowstore.ErrTimeout):
		return "timeout"
	case errors.Is(err, rowstore.ErrUnavailable):
		return "unavailable"
	}
	return OutcomeError
}

// check compares a step against its expectation.
func (r *run) check(i int, step Step, ev TraceEvent, got entry.Entry, list []entry.Entry, err error) {
	want := step.Expect
	if want == nil {
		if err != nil {
			r.result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, step.Op, err))
		}
		return
	}

	if want.Error != "" || err != nil {
		if ev.Outcome != want.Error {
			r.result.AddError(fmt.Sprintf("steps[%d] %s: expected outcome %q, got %q", i, step.Op, orOK(want.Error), ev.Outcome))
		}
		return
	}

	prefix := fmt.Sprintf("steps[%d] %s", i, step.Op)
	switch step.Op {
	case OpList, OpListRecent:
		for _, msg := range compareList(want, ev.Refs, list) {
			r.result.AddError(prefix + ": " + msg)
		}
	default:
		for _, msg := range compareEntry(want, got) {
			r.result.AddError(prefix + ": " + msg)
		}
	}
}

func orOK(code string) string {
	if code == "" {
		return OutcomeOK
	}
	return code
}
