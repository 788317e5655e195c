// Package errors renders failures as JSON HTTP error envelopes.
//
// Every gateway error body has the shape
//
//	{"error": {"code": "...", "message": "...", "request_id": "...", "details": {...}}}
//
// with codes taken from the output package so CLI records and HTTP
// responses agree.
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/3leaps/nimbusfs/pkg/output"
)

// Gateway-only error codes.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeRouteNotFound    = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeReadOnly         = "READ_ONLY"
	CodeInternal         = "INTERNAL_ERROR"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
)

// HTTPError is the body of an error envelope.
type HTTPError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// HTTPErrorResponse is the error envelope.
type HTTPErrorResponse struct {
	Error HTTPError `json:"error"`
}

// RequestIDFunc extracts the request ID placed by the middleware. It is
// set by the middleware package to avoid an import cycle.
var RequestIDFunc = func(*http.Request) string { return "" }

// StatusFor maps an error code onto an HTTP status.
func StatusFor(code string) int {
	switch code {
	case output.ErrCodeInvalidPath, output.ErrCodeInvalidArgument, CodeBadRequest:
		return http.StatusBadRequest
	case output.ErrCodeNotFound:
		return http.StatusNotFound
	case output.ErrCodeExists, output.ErrCodeNotDirectory, output.ErrCodeIsDirectory, output.ErrCodeNotEmpty:
		return http.StatusConflict
	case output.ErrCodeAccessDenied, CodeReadOnly:
		return http.StatusForbidden
	case output.ErrCodeThrottled:
		return http.StatusTooManyRequests
	case output.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case output.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case output.ErrCodeStoreUnavailable:
		return http.StatusBadGateway
	case output.ErrCodeCanceled, CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithError classifies err and writes the matching envelope.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	rec := output.NewErrorRecord(err)
	var details map[string]any
	if d, ok := rec.Details.(map[string]any); ok {
		details = d
	}
	if rec.Path != "" || rec.Key != "" {
		if details == nil {
			details = make(map[string]any)
		}
		if rec.Path != "" {
			details["path"] = rec.Path
		}
		if rec.Key != "" {
			details["key"] = rec.Key
		}
	}
	Write(w, r, StatusFor(rec.Code), rec.Code, rec.Message, details)
}

// Write sends an envelope with an explicit status and code.
func Write(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	body := HTTPErrorResponse{Error: HTTPError{
		Code:      code,
		Message:   message,
		RequestID: RequestIDFunc(r),
		Details:   details,
	}}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
