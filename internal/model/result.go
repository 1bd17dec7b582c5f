package model

// Result is the user-facing outcome of a core operation. Core operations
// report through Result or observable status fields instead of failing.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OK returns a successful result.
func OK(message string) Result {
	return Result{Success: true, Message: message}
}

// Failed returns an unsuccessful result.
func Failed(message string) Result {
	return Result{Success: false, Message: message}
}
