// Package apierrors defines the closed set of error codes the analysis
// and collector services return, their HTTP status mapping, and the
// envelope shape clients receive.
package apierrors

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Code is the closed set of machine-parseable error codes (spec.md §4.9).
type Code string

const (
	ValidationError       Code = "VALIDATION_ERROR"
	InvalidSQL            Code = "INVALID_SQL"
	MissingParameter      Code = "MISSING_PARAMETER"
	InvalidRequest        Code = "INVALID_REQUEST"
	DatabaseError         Code = "DATABASE_ERROR"
	LLMTimeout            Code = "LLM_TIMEOUT"
	LLMError              Code = "LLM_ERROR"
	InternalError         Code = "INTERNAL_ERROR"
	WebSocketError        Code = "WEBSOCKET_ERROR"
	ServiceUnavailable    Code = "SERVICE_UNAVAILABLE"
	ConnectionPoolExhaust Code = "CONNECTION_POOL_EXHAUSTED"
	UnknownError          Code = "UNKNOWN_ERROR"
)

// HTTPStatus maps code to the HTTP status it should produce.
func HTTPStatus(code Code) int {
	switch code {
	case ValidationError, InvalidSQL, MissingParameter, InvalidRequest:
		return http.StatusBadRequest
	case DatabaseError, LLMError, InternalError, WebSocketError, UnknownError:
		return http.StatusInternalServerError
	case ServiceUnavailable, ConnectionPoolExhaust:
		return http.StatusServiceUnavailable
	case LLMTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// FromHTTPStatus maps a bare HTTP status (e.g. from routing middleware)
// back to an error code, mirroring the original's
// _map_http_status_to_error_code.
func FromHTTPStatus(status int) Code {
	switch status {
	case http.StatusBadRequest, http.StatusNotFound:
		return InvalidRequest
	case http.StatusUnprocessableEntity:
		return ValidationError
	case http.StatusInternalServerError:
		return InternalError
	case http.StatusServiceUnavailable:
		return ServiceUnavailable
	case http.StatusGatewayTimeout:
		return LLMTimeout
	default:
		return UnknownError
	}
}

// Response is the JSON envelope returned for every error.
type Response struct {
	ErrorCode  Code           `json:"error_code"`
	Message    string         `json:"message"`
	RequestID  string         `json:"request_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Details    map[string]any `json:"details,omitempty"`
	RetryAfter *int           `json:"retry_after,omitempty"`
}

// New builds a Response, generating a fresh request ID and timestamp.
func New(code Code, message string, details map[string]any) Response {
	return Response{
		ErrorCode: code,
		Message:   message,
		RequestID: uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Details:   details,
	}
}

// Error is the typed error carried through internal call chains; service
// handlers convert it into a Response at the HTTP boundary.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap constructs an *Error, satisfying the pattern used throughout the
// workflow nodes: every external failure is classified into one of the
// closed-set codes before it crosses a package boundary.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Korean user-facing messages, matching the original's middleware text
// verbatim for the two most common failure classes.
const (
	MessageValidationKorean = "요청 파라미터가 올바르지 않습니다"
	MessageInternalKorean   = "서버 내부 오류가 발생했습니다. 잠시 후 다시 시도해주세요."
)
