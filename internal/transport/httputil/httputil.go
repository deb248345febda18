// Package httputil holds small helpers shared by every HTTP handler: JSON
// encoding and the error envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "tillgate/pkg/domain-errors"
)

// ErrorResponse is the uniform JSON error envelope. Message is safe for the
// caller; internal detail never travels in it.
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// Headers are already out; nothing useful left to do for the caller.
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// WriteError writes the uniform error envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, &ErrorResponse{Error: code, Message: message})
}

// DecodeJSON decodes a JSON request body into dst. An over-limit body
// surfaces as a payload_too_large domain error so the caller can answer 413
// instead of a generic 400.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if dErrors.HasCode(err, dErrors.CodePayloadTooLarge) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid JSON body")
	}
	return nil
}

// WriteDomainError maps a domain error code to an HTTP status and writes the
// envelope. Unknown codes become 500 with a generic message.
func WriteDomainError(w http.ResponseWriter, err error) {
	var dErr *dErrors.Error
	code := dErrors.CodeInternal
	message := "Internal server error."
	if errors.As(err, &dErr) {
		code = dErr.Code
		message = dErr.Message
	}
	WriteJSON(w, statusForCode(code), &ErrorResponse{Error: string(code), Message: message})
}

func statusForCode(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeValidation:
		return http.StatusUnprocessableEntity
	case dErrors.CodeTimeout:
		return http.StatusRequestTimeout
	case dErrors.CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case dErrors.CodeRateLimited, dErrors.CodeBlocked:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
