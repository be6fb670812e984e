package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/logbase/internal/action"
	"github.com/roach88/logbase/internal/entry"
)

// Scenario is an ordered list of store operations with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start is the fake clock's initial reading. Zero uses DefaultStart.
	Start time.Time `yaml:"start,omitempty"`

	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after every step has run.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// DefaultStart is the clock reading used when a scenario sets none.
var DefaultStart = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

// Step operations.
const (
	OpCreate     = "create"
	OpGet        = "get"
	OpUpdate     = "update"
	OpList       = "list"
	OpListRecent = "list_recent"
	OpAdvance    = "advance"
)

type Step struct {
	Op string `yaml:"op"`

	// Ref names the entry a create binds or a get/update targets.
	Ref string `yaml:"ref,omitempty"`

	// Owner is an owner alias. get and update default to the ref's owner.
	Owner string `yaml:"owner,omitempty"`

	Action   string   `yaml:"action,omitempty"`
	Actions  []string `yaml:"actions,omitempty"`
	Fields   []string `yaml:"fields,omitempty"`
	SourceIP string   `yaml:"source_ip,omitempty"`
	Payload  *string  `yaml:"payload,omitempty"`
	Tokens   *int32   `yaml:"tokens,omitempty"`
	Status   *int8    `yaml:"status,omitempty"`
	Error    *string  `yaml:"error,omitempty"`
	PageSize int      `yaml:"page_size,omitempty"`

	// After continues a list from the page that ended with this ref.
	After string `yaml:"after,omitempty"`

	// By is the clock advance for the advance op.
	By time.Duration `yaml:"by,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is a subset match against a step's outcome. Unset fields are
// not checked.
type Expect struct {
	// Error is the expected error code. Empty expects success.
	Error string `yaml:"error,omitempty"`

	Status      *int8  `yaml:"status,omitempty"`
	Action      string `yaml:"action,omitempty"`
	Tokens      *int32 `yaml:"tokens,omitempty"`
	SourceIP    string `yaml:"source_ip,omitempty"`
	ErrorAbsent bool   `yaml:"error_absent,omitempty"`

	// Count and Refs apply to list results.
	Count *int     `yaml:"count,omitempty"`
	Refs  []string `yaml:"refs,omitempty"`
}

// Assertion validates the trace or the final store state.
type Assertion struct {
	Type string `yaml:"type"`

	// Ref and Expect are used by final_state.
	Ref    string  `yaml:"ref,omitempty"`
	Expect *Expect `yaml:"expect,omitempty"`

	// Op, Outcome and Count are used by trace_count. An empty outcome
	// counts every step with the op.
	Op      string `yaml:"op,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`
	Count   int    `yaml:"count,omitempty"`

	// Events lists "op:ref" labels for trace_order.
	Events []string `yaml:"events,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState = "final_state"
	AssertTraceCount = "trace_count"
	AssertTraceOrder = "trace_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and that refs
// are bound before use.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	bound := make(map[string]bool)
	for i, step := range s.Steps {
		if err := validateStep(i, step, bound); err != nil {
			return err
		}
		if step.Op == OpCreate {
			bound[step.Ref] = true
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, bound); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step, bound map[string]bool) error {
	switch step.Op {
	case OpCreate:
		if step.Ref == "" {
			return fmt.Errorf("steps[%d]: ref is required for create", i)
		}
		if bound[step.Ref] {
			return fmt.Errorf("steps[%d]: ref %q is already bound", i, step.Ref)
		}
		if step.Owner == "" {
			return fmt.Errorf("steps[%d]: owner is required for create", i)
		}
	case OpGet, OpUpdate:
		if !bound[step.Ref] {
			return fmt.Errorf("steps[%d]: unknown ref %q", i, step.Ref)
		}
		if step.Op == OpUpdate && step.Status == nil {
			return fmt.Errorf("steps[%d]: status is required for update", i)
		}
	case OpList, OpListRecent:
		if step.Owner == "" {
			return fmt.Errorf("steps[%d]: owner is required for %s", i, step.Op)
		}
		if step.After != "" && !bound[step.After] {
			return fmt.Errorf("steps[%d]: unknown ref %q in after", i, step.After)
		}
	case OpAdvance:
		if step.By <= 0 {
			return fmt.Errorf("steps[%d]: advance requires a positive duration", i)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}

	for _, name := range step.Fields {
		if !entry.IsField(name) {
			return fmt.Errorf("steps[%d]: unknown field %q", i, name)
		}
	}
	if step.Expect != nil {
		for _, ref := range step.Expect.Refs {
			if !bound[ref] {
				return fmt.Errorf("steps[%d].expect: unknown ref %q", i, ref)
			}
		}
		if step.Expect.Action != "" {
			if _, ok := action.Code(step.Expect.Action); !ok {
				return fmt.Errorf("steps[%d].expect: unknown action %q", i, step.Expect.Action)
			}
		}
	}
	return nil
}

func validateAssertion(i int, a Assertion, bound map[string]bool) error {
	switch a.Type {
	case AssertFinalState:
		if !bound[a.Ref] {
			return fmt.Errorf("assertions[%d]: unknown ref %q", i, a.Ref)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", i)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", i)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", i)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", i)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	return nil
}
