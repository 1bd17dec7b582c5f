package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios drive the app through a flow of steps against an in-memory queue,
// a fake remote and a manual clock, then assert on the final state and the
// remote call trace.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start is the manual clock's initial time.
	Start time.Time `yaml:"start"`

	// Remote attaches a fake remote store. Without it the app is local-only.
	Remote bool `yaml:"remote,omitempty"`

	// Setup steps establish initial state and are expected to succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the steps under test.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final state and remote trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one action against the app, the clock or the fake remote.
// Which fields apply depends on Action.
type Step struct {
	Action string `yaml:"action"`

	Drink  string `yaml:"drink,omitempty"`
	ML     int    `yaml:"ml,omitempty"`
	Source string `yaml:"source,omitempty"`

	Goal     int    `yaml:"goal,omitempty"`
	EndOfDay string `yaml:"end_of_day,omitempty"`

	User  string `yaml:"user,omitempty"`
	Email string `yaml:"email,omitempty"`

	// At sets the clock; Advance moves it forward.
	At      *time.Time    `yaml:"at,omitempty"`
	Advance time.Duration `yaml:"advance,omitempty"`

	// Op and Error drive fail_remote / recover_remote.
	Op    string `yaml:"op,omitempty"`
	Error string `yaml:"error,omitempty"`

	// Event is the remote event for seed_remote and remote_insert.
	Event *RemoteEvent `yaml:"event,omitempty"`

	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// RemoteEvent describes an event that exists on the remote, as if another
// device had recorded it.
type RemoteEvent struct {
	ID          string    `yaml:"id"`
	User        string    `yaml:"user"`
	At          time.Time `yaml:"at"`
	Drink       string    `yaml:"drink"`
	RawML       int       `yaml:"raw_ml"`
	HydrationML int       `yaml:"hydration_ml"`
	DayKey      string    `yaml:"day_key,omitempty"` // derived with a midnight cutoff when empty
}

// ExpectClause specifies the expected step outcome.
type ExpectClause struct {
	// Outcome is "ok" (default), "failed" for an unsuccessful sync result,
	// or "error" for a rejected operation.
	Outcome string `yaml:"outcome,omitempty"`

	// HydrationML is the recorded event's hydration amount (add, quick_add).
	HydrationML *int `yaml:"hydration_ml,omitempty"`

	// Current is the day total right after the step.
	Current *int `yaml:"current,omitempty"`
}

// Assertion validates the final state or the remote trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Field and Expect are used by final_state. Field names a StateSnapshot
	// JSON field; list fields compare as lists.
	Field  string `yaml:"field,omitempty"`
	Expect any    `yaml:"expect,omitempty"`

	// Call is used by remote_call_contains.
	Call string `yaml:"call,omitempty"`

	// Calls is used by remote_call_order.
	Calls []string `yaml:"calls,omitempty"`

	// Op and Count are used by remote_call_count.
	Op    string `yaml:"op,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// User and Events are used by remote_events.
	User   string   `yaml:"user,omitempty"`
	Events []string `yaml:"events,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState         = "final_state"
	AssertRemoteCallContains = "remote_call_contains"
	AssertRemoteCallOrder    = "remote_call_order"
	AssertRemoteCallCount    = "remote_call_count"
	AssertRemoteEvents       = "remote_events"
)

// Step actions.
const (
	ActionAdd           = "add"
	ActionQuickAdd      = "quick_add"
	ActionSetGoal       = "set_goal"
	ActionSettings      = "settings"
	ActionSignIn        = "sign_in"
	ActionSignOut       = "sign_out"
	ActionClock         = "clock"
	ActionRefresh       = "refresh"
	ActionSync          = "sync"
	ActionFlush         = "flush"
	ActionPull          = "pull"
	ActionReset         = "reset"
	ActionFailRemote    = "fail_remote"
	ActionRecoverRemote = "recover_remote"
	ActionSeedRemote    = "seed_remote"
	ActionRemoteInsert  = "remote_insert"
)

var remoteActions = []string{
	ActionFailRemote, ActionRecoverRemote, ActionSeedRemote, ActionRemoteInsert,
}

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

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
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

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Start.IsZero() {
		return fmt.Errorf("start is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(s, step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is only allowed in flow", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(s, step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(s *Scenario, step Step) error {
	if slices.Contains(remoteActions, step.Action) && !s.Remote {
		return fmt.Errorf("%s needs remote: true", step.Action)
	}

	switch step.Action {
	case ActionAdd:
		if step.Drink == "" {
			return fmt.Errorf("drink is required for add")
		}
	case ActionQuickAdd, ActionSetGoal, ActionSignOut, ActionRefresh,
		ActionSync, ActionFlush, ActionPull, ActionReset:
	case ActionSettings:
		if step.EndOfDay == "" {
			return fmt.Errorf("end_of_day is required for settings")
		}
	case ActionSignIn:
		if step.User == "" {
			return fmt.Errorf("user is required for sign_in")
		}
	case ActionClock:
		if step.At == nil && step.Advance == 0 {
			return fmt.Errorf("at or advance is required for clock")
		}
	case ActionFailRemote:
		if step.Op == "" {
			return fmt.Errorf("op is required for fail_remote")
		}
	case ActionRecoverRemote:
		if step.Op == "" {
			return fmt.Errorf("op is required for recover_remote")
		}
	case ActionSeedRemote, ActionRemoteInsert:
		if step.Event == nil || step.Event.ID == "" || step.Event.User == "" {
			return fmt.Errorf("event with id and user is required for %s", step.Action)
		}
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}

	if step.Expect != nil {
		switch step.Expect.Outcome {
		case "", OutcomeOK, OutcomeFailed, OutcomeError:
		default:
			return fmt.Errorf("expect: unknown outcome %q", step.Expect.Outcome)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalState:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for final_state", index)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertRemoteCallContains:
		if a.Call == "" {
			return fmt.Errorf("assertions[%d]: call is required for remote_call_contains", index)
		}
	case AssertRemoteCallOrder:
		if len(a.Calls) == 0 {
			return fmt.Errorf("assertions[%d]: calls list is required for remote_call_order", index)
		}
	case AssertRemoteCallCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for remote_call_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for remote_call_count", index)
		}
	case AssertRemoteEvents:
		if a.User == "" {
			return fmt.Errorf("assertions[%d]: user is required for remote_events", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
