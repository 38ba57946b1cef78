// Package apierrors is the structured error taxonomy shared by every
// component: the Slice Controller, Deployment Controller, and the HTTP
// layer all return *Error instead of raw errors so the API boundary can
// map them to status codes without a type switch on message strings.
package apierrors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Type is one of the eight categories from the error handling design, or
// Internal for failures outside them:
// Auth/Authz/NotFound/Validation surface verbatim as 4xx; Dependency,
// Remote, State and Invariant each carry their own propagation policy.
type Type string

const (
	TypeAuth         Type = "auth"
	TypeAuthz        Type = "authz"
	TypeNotFound     Type = "not_found"
	TypeValidation   Type = "validation"
	TypeDependency   Type = "dependency"
	TypeRemote       Type = "remote"
	TypeState        Type = "state"
	TypeInvariant    Type = "invariant"
	TypeInternal     Type = "internal"
)

type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// StatusCode maps a Type to the HTTP status spec.md §6 names.
func (e *Error) StatusCode() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeAuth:
		return http.StatusUnauthorized
	case TypeAuthz:
		return http.StatusForbidden
	case TypeNotFound:
		return http.StatusNotFound
	case TypeState:
		return http.StatusConflict
	case TypeDependency:
		return http.StatusServiceUnavailable
	case TypeRemote:
		return http.StatusInternalServerError
	case TypeInvariant:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (e *Error) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode())
	json.NewEncoder(w).Encode(e)
}

func NewValidation(message string, details map[string]interface{}) *Error {
	return &Error{Type: TypeValidation, Message: message, Code: "VALIDATION_ERROR", Details: details}
}

func NewAuth(message string) *Error {
	if message == "" {
		message = "authentication required"
	}
	return &Error{Type: TypeAuth, Message: message, Code: "UNAUTHORIZED"}
}

func NewAuthz(message string) *Error {
	if message == "" {
		message = "access denied"
	}
	return &Error{Type: TypeAuthz, Message: message, Code: "FORBIDDEN"}
}

func NewNotFound(resource string) *Error {
	return &Error{
		Type:    TypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Code:    "RESOURCE_NOT_FOUND",
		Details: map[string]interface{}{"resource": resource},
	}
}

// NewDependency wraps a failure in an external collaborator (Placement
// Engine or Monitoring Adapter HTTP call). recovered records whether the
// caller already absorbed the failure locally (round-robin fallback),
// purely for logging/reporting — it never changes StatusCode.
func NewDependency(message string, recovered bool) *Error {
	return &Error{
		Type:    TypeDependency,
		Message: message,
		Code:    "DEPENDENCY_UNAVAILABLE",
		Details: map[string]interface{}{"recovered_locally": recovered},
	}
}

func NewRemote(message string, stdout, stderr string) *Error {
	return &Error{
		Type:    TypeRemote,
		Message: message,
		Code:    "REMOTE_EXECUTION_FAILED",
		Details: map[string]interface{}{"stdout": stdout, "stderr": stderr},
	}
}

func NewState(message string) *Error {
	return &Error{Type: TypeState, Message: message, Code: "ILLEGAL_STATE_TRANSITION"}
}

func NewInvariant(message string) *Error {
	return &Error{Type: TypeInvariant, Message: message, Code: "INVARIANT_VIOLATED"}
}

func NewInternal(message string) *Error {
	if message == "" {
		message = "an internal error occurred"
	}
	return &Error{Type: TypeInternal, Message: message, Code: "INTERNAL_ERROR"}
}

// HandleError writes err as a structured JSON body, wrapping non-*Error
// values as an opaque internal error so handlers never leak raw Go errors.
func HandleError(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(*Error); ok {
		apiErr.WriteJSON(w)
		return
	}
	NewInternal("").WriteJSON(w)
}
