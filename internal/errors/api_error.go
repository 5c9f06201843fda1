package errors

import "net/http"

const (
	CodeSessionConflict   = "session_conflict"
	CodeSessionNotFound   = "session_not_found"
	CodeStorage           = "storage_error"
	CodeInvalidDuration   = "invalid_duration"
	CodeInvalidTransition = "invalid_transition"
	CodeTimerBusy         = "timer_busy"
)

type APIError struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Is reports whether the error carries the given code. A nil error never
// matches.
func (e *APIError) Is(code string) bool {
	return e != nil && e.Code == code
}

func New(status int, code, message string) *APIError {
	return &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func Internal(message string) *APIError {
	if message == "" {
		message = "internal server error"
	}
	return New(http.StatusInternalServerError, "internal_error", message)
}

func BadRequest(code, message string) *APIError {
	return New(http.StatusBadRequest, code, message)
}

func Unauthorized(message string) *APIError {
	if message == "" {
		message = "unauthorized"
	}
	return New(http.StatusUnauthorized, "unauthorized", message)
}

func NotFound(code, message string) *APIError {
	return New(http.StatusNotFound, code, message)
}

func Conflict(code, message string, details interface{}) *APIError {
	err := New(http.StatusConflict, code, message)
	err.Details = details
	return err
}

// Storage reports a failed read or write against the session store.
func Storage(message string) *APIError {
	if message == "" {
		message = "session storage failed"
	}
	return New(http.StatusInternalServerError, CodeStorage, message)
}

func SessionConflict(message string, active interface{}) *APIError {
	if message == "" {
		message = "an active session already exists"
	}
	return Conflict(CodeSessionConflict, message, map[string]interface{}{
		"session": active,
	})
}

func SessionNotFound(message string) *APIError {
	if message == "" {
		message = "session not found"
	}
	return NotFound(CodeSessionNotFound, message)
}
