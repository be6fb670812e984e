package harness

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/logbase/internal/entry"
)

// compareEntry checks an entry against the set fields of want.
func compareEntry(want *Expect, got entry.Entry) []string {
	var errs []string

	if want.Status != nil && int8(got.Status) != *want.Status {
		errs = append(errs, fmt.Sprintf("expected status %d, got %d", *want.Status, int8(got.Status)))
	}
	if want.Action != "" && got.ActionName() != want.Action {
		errs = append(errs, fmt.Sprintf("expected action %q, got %q", want.Action, got.ActionName()))
	}
	if want.Tokens != nil {
		tokens, ok := got.Tokens.Get()
		switch {
		case !ok:
			errs = append(errs, "expected tokens, field not selected")
		case tokens != *want.Tokens:
			errs = append(errs, fmt.Sprintf("expected tokens %d, got %d", *want.Tokens, tokens))
		}
	}
	if want.SourceIP != "" {
		ip, ok := got.SourceIP.Get()
		if !ok || ip != want.SourceIP {
			errs = append(errs, fmt.Sprintf("expected source_ip %q, got %q", want.SourceIP, ip))
		}
	}
	if want.ErrorAbsent {
		if msg, ok := got.ErrorMessage(); ok {
			errs = append(errs, fmt.Sprintf("expected no error message, got %q", msg))
		}
	}
	return errs
}

// compareList checks list results against Count and Refs.
func compareList(want *Expect, refs []string, list []entry.Entry) []string {
	var errs []string

	if want.Count != nil && len(list) != *want.Count {
		errs = append(errs, fmt.Sprintf("expected %d entries, got %d", *want.Count, len(list)))
	}
	if want.Refs != nil && !slices.Equal(refs, want.Refs) {
		errs = append(errs, fmt.Sprintf("expected entries %v, got %v", want.Refs, refs))
	}
	if want.Action != "" {
		for _, e := range list {
			if e.ActionName() != want.Action {
				errs = append(errs, fmt.Sprintf("expected only action %q, got %q", want.Action, e.ActionName()))
				break
			}
		}
	}
	return errs
}

// evaluateAssertions runs every assertion and returns failure messages.
func (r *run) evaluateAssertions(ctx context.Context, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var msgs []string
		switch a.Type {
		case AssertFinalState:
			msgs = r.assertFinalState(ctx, a)
		case AssertTraceCount:
			msgs = assertTraceCount(r.result.Trace, a)
		case AssertTraceOrder:
			msgs = assertTraceOrder(r.result.Trace, a)
		default:
			msgs = []string{fmt.Sprintf("unknown assertion type %q", a.Type)}
		}
		for _, msg := range msgs {
			errs = append(errs, fmt.Sprintf("assertions[%d] %s: %s", i, a.Type, msg))
		}
	}
	return errs
}

// assertFinalState reads the entry with every field selected.
func (r *run) assertFinalState(ctx context.Context, a Assertion) []string {
	target, ok := r.entries[a.Ref]
	if !ok {
		return []string{fmt.Sprintf("ref %q was never created", a.Ref)}
	}

	got, err := r.store.GetOne(ctx, target.OwnerID, target.ID, nil)
	if err != nil {
		return []string{fmt.Sprintf("read %q: %v", a.Ref, err)}
	}
	return compareEntry(a.Expect, got)
}

// assertTraceCount checks the number of steps with the op and outcome.
func assertTraceCount(trace []TraceEvent, a Assertion) []string {
	count := 0
	for _, ev := range trace {
		if ev.Op == a.Op && (a.Outcome == "" || ev.Outcome == a.Outcome) {
			count++
		}
	}
	if count != a.Count {
		return []string{fmt.Sprintf("expected %d %s steps with outcome %q, got %d", a.Count, a.Op, orAny(a.Outcome), count)}
	}
	return nil
}

// assertTraceOrder checks that the labelled events occur in order.
// Intervening events are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) []string {
	next := 0
	for _, ev := range trace {
		if next < len(a.Events) && ev.label() == a.Events[next] {
			next++
		}
	}
	if next < len(a.Events) {
		return []string{fmt.Sprintf("event %q not found in order %v", a.Events[next], a.Events)}
	}
	return nil
}

func orAny(outcome string) string {
	if outcome == "" {
		return "*"
	}
	return outcome
}
