package harness

import "github.com/roach88/givemewater/internal/model"

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	Step    int    `json:"step"`
	Action  string `json:"action"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// Outcomes recorded in the trace.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	OutcomeError  = "error"
)

// StateSnapshot is the part of AppState scenarios assert and snapshot.
type StateSnapshot struct {
	DayKey             string                 `json:"dayKey"`
	Goal               int                    `json:"goal"`
	Current            int                    `json:"current"`
	History            []string               `json:"history"` // event ids, most recent first
	MonthlySummaries   []model.MonthlySummary `json:"monthlySummaries"`
	LastProcessedMonth string                 `json:"lastProcessedMonth"`
	UserID             string                 `json:"userId"`
	PendingCount       int                    `json:"pendingCount"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds one event per executed step, in order.
	Trace []TraceEvent `json:"trace"`

	// RemoteCalls are the fake remote's recorded "Op:key" calls.
	RemoteCalls []string `json:"remoteCalls"`

	// Remote holds the remote event ids per user after the run.
	Remote map[string][]string `json:"remote,omitempty"`

	// State is the final state.
	State StateSnapshot `json:"state"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Trace:       []TraceEvent{},
		RemoteCalls: []string{},
		Errors:      []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome.
func (r *Result) AddTrace(step int, action, outcome, detail string) {
	r.Trace = append(r.Trace, TraceEvent{Step: step, Action: action, Outcome: outcome, Detail: detail})
}
