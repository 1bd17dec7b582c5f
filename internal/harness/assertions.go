package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Calls    []string // Remote calls for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Calls) > 0 {
		fmt.Fprintf(&buf, "\nRemote calls:\n")
		for i, call := range e.Calls {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, call)
		}
	}

	return buf.String()
}

// callMatches reports whether a recorded "Op:key" call matches want, which
// is either a full "Op:key" or a bare op name.
func callMatches(call, want string) bool {
	if strings.Contains(want, ":") {
		return call == want
	}
	return strings.HasPrefix(call, want+":")
}

// assertRemoteCallContains checks that a matching call was made.
func assertRemoteCallContains(calls []string, assertion Assertion) error {
	for _, call := range calls {
		if callMatches(call, assertion.Call) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertRemoteCallContains,
		Expected: fmt.Sprintf("call %s", assertion.Call),
		Actual:   "not found in remote calls",
		Calls:    calls,
	}
}

// assertRemoteCallOrder checks that calls appear in the specified order.
// Calls don't need to be consecutive (intervening calls are allowed); each
// expected call matches the first recorded call after the previous match.
func assertRemoteCallOrder(calls []string, assertion Assertion) error {
	pos := 0
	for _, want := range assertion.Calls {
		found := false
		for pos < len(calls) {
			pos++
			if callMatches(calls[pos-1], want) {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertRemoteCallOrder,
				Expected: fmt.Sprintf("calls in order: %v", assertion.Calls),
				Actual:   fmt.Sprintf("%s not found after position %d", want, pos),
				Calls:    calls,
			}
		}
	}
	return nil
}

// assertRemoteCallCount checks that op was called exactly Count times.
func assertRemoteCallCount(calls []string, assertion Assertion) error {
	count := 0
	for _, call := range calls {
		if callMatches(call, assertion.Op) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertRemoteCallCount,
			Expected: fmt.Sprintf("%d calls of %s", assertion.Count, assertion.Op),
			Actual:   fmt.Sprintf("%d calls", count),
			Calls:    calls,
		}
	}
	return nil
}

// assertRemoteEvents checks the user's remote event ids, most recent first.
func assertRemoteEvents(result *Result, assertion Assertion) error {
	got := result.Remote[assertion.User]
	if len(got) == 0 && len(assertion.Events) == 0 {
		return nil
	}
	if !reflect.DeepEqual(got, assertion.Events) {
		return &AssertionError{
			Type:     AssertRemoteEvents,
			Expected: fmt.Sprintf("remote events for %s: %v", assertion.User, assertion.Events),
			Actual:   fmt.Sprintf("%v", got),
			Calls:    result.RemoteCalls,
		}
	}
	return nil
}

// assertFinalState compares one snapshot field with the expected value.
// Both sides are normalized through JSON so YAML ints match JSON numbers.
func assertFinalState(snapshot StateSnapshot, assertion Assertion) error {
	fields, err := normalize(snapshot)
	if err != nil {
		return fmt.Errorf("final_state: %w", err)
	}
	actual, ok := fields.(map[string]any)[assertion.Field]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("field %s", assertion.Field),
			Actual:   "no such field",
		}
	}

	expected, err := normalize(assertion.Expect)
	if err != nil {
		return fmt.Errorf("final_state %s: %w", assertion.Field, err)
	}
	if !stateValuesEqual(expected, actual) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %v", assertion.Field, expected),
			Actual:   fmt.Sprintf("%s = %v", assertion.Field, actual),
		}
	}
	return nil
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// stateValuesEqual compares normalized values. Expected maps use subset
// semantics: only the listed keys are compared, recursively.
func stateValuesEqual(expected, actual any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range exp {
			if !stateValuesEqual(v, act[k]) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !stateValuesEqual(exp[i], act[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(expected, actual)
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFinalState:
			err = assertFinalState(result.State, assertion)
		case AssertRemoteCallContains:
			err = assertRemoteCallContains(result.RemoteCalls, assertion)
		case AssertRemoteCallOrder:
			err = assertRemoteCallOrder(result.RemoteCalls, assertion)
		case AssertRemoteCallCount:
			err = assertRemoteCallCount(result.RemoteCalls, assertion)
		case AssertRemoteEvents:
			err = assertRemoteEvents(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
