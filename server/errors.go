package server

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	vcschema "github.com/credkit/vcschema"
)

// ErrorResponse is the error body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`              // Machine-readable error code (e.g., "already_exists")
	Message string `json:"message"`           // Human-readable error message
	Status  int    `json:"status"`            // HTTP status code
	Field   string `json:"field,omitempty"`   // JSON Pointer of the offending member
	Details string `json:"details,omitempty"` // Remediation hint or extra context
}

// Request-level error codes. Domain errors carry their vcschema issue code.
const (
	ErrInvalidBody = "invalid_request_body"
	ErrNotFound    = "not_found"
	ErrInternal    = "internal_error"
	ErrStorage     = "storage_error"
	ErrUnavailable = "service_unavailable"
)

// statusByCode maps issue codes to HTTP statuses. Codes not listed are 400.
var statusByCode = map[string]int{
	vcschema.CodeNotFound:            http.StatusNotFound,
	vcschema.CodeAlreadyExists:       http.StatusConflict,
	vcschema.CodeTitleRequired:       http.StatusUnprocessableEntity,
	vcschema.CodeNormalizationFailed: http.StatusUnprocessableEntity,
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeErrorResponse(w, ErrorResponse{Code: code, Message: message, Status: status})
}

// writeErr renders err. The first issue of a vcschema.Issues error decides the
// code and status; a bare vcschema.ErrNotFound is a 404; anything else is 500.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	if iss, ok := vcschema.AsIssues(err); ok && len(iss) > 0 {
		first := iss[0]
		status, ok := statusByCode[first.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		writeErrorResponse(w, ErrorResponse{
			Code:    first.Code,
			Message: first.Message,
			Status:  status,
			Field:   first.Path,
			Details: first.Hint,
		})
		return
	}
	if errors.Is(err, vcschema.ErrNotFound) {
		writeError(w, http.StatusNotFound, ErrNotFound, err.Error())
		return
	}
	s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, ErrInternal, "internal error")
}

func writeErrorResponse(w http.ResponseWriter, resp ErrorResponse) {
	writeJSON(w, resp.Status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
