package harness

// Outcome values recorded for steps that did not fail with a coded error.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step    int    `json:"step"`
	Op      string `json:"op"`
	Ref     string `json:"ref,omitempty"`
	Owner   string `json:"owner,omitempty"`
	Outcome string `json:"outcome"`

	// Entry fields observed on success (create, get, update).
	Action string `json:"action,omitempty"`
	Status *int8  `json:"status,omitempty"`
	Tokens *int32 `json:"tokens,omitempty"`

	// Refs lists the entries returned by list and list_recent, in order.
	// Entries created outside the scenario appear as "?".
	Refs []string `json:"refs,omitempty"`
}

// label identifies the event for trace_order assertions.
func (e TraceEvent) label() string {
	if e.Ref == "" {
		return e.Op
	}
	return e.Op + ":" + e.Ref
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per executed step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
