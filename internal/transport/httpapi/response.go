package httpapi

import (
	"encoding/json"
	"net/http"
)

// Error codes returned in the response envelope.
const (
	codeBadRequest   = "bad_request"
	codeUnknownDrink = "unknown_drink"
	codeInvalidInput = "invalid_input"
	codeUnauthorized = "unauthorized"
	codeNotFound     = "not_found"
	codeRemote       = "remote_failure"
	codeInternal     = "internal"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse describes a failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Status: "ok", Data: data}) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{ //nolint:errcheck
		Status: "error",
		Error:  &ErrorResponse{Code: code, Message: message},
	})
}
