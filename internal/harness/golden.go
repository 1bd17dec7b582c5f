package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/givemewater/internal/model"
)

// Snapshot is the golden view of a scenario run: the step outcomes and the
// final state. Remote calls are left out because the pull step queries
// events and summaries concurrently, so their relative order is not stable.
type Snapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	State        StateSnapshot
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization, which only handles primitives, slices and maps.
func (s *Snapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		trace[i] = map[string]any{
			"step":    ev.Step,
			"action":  ev.Action,
			"outcome": ev.Outcome,
		}
	}

	summaries := make([]any, len(s.State.MonthlySummaries))
	for i, ms := range s.State.MonthlySummaries {
		summaries[i] = map[string]any{
			"monthKey":        ms.MonthKey,
			"averageIntakeMl": ms.AverageIntakeML,
			"daysTracked":     ms.DaysTracked,
			"daysMetGoal":     ms.DaysMetGoal,
			"completionRate":  ms.CompletionRate,
		}
	}

	history := make([]any, len(s.State.History))
	for i, id := range s.State.History {
		history[i] = id
	}

	return map[string]any{
		"name":  s.ScenarioName,
		"trace": trace,
		"state": map[string]any{
			"dayKey":             s.State.DayKey,
			"goal":               s.State.Goal,
			"current":            s.State.Current,
			"history":            history,
			"summaries":          summaries,
			"lastProcessedMonth": s.State.LastProcessedMonth,
			"userId":             s.State.UserID,
			"pendingCount":       s.State.PendingCount,
		},
	}
}

// MarshalSnapshot renders the snapshot as canonical JSON plus a newline.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	s := Snapshot{ScenarioName: name, Trace: result.Trace, State: result.State}
	data, err := model.MarshalCanonical(s.toCanonicalMap())
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
