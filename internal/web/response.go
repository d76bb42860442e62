// Package web holds the HTTP plumbing shared by every service handler:
// JSON encoding, the error envelope and request middleware.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"little-lemon/internal/apperror"
	"little-lemon/internal/logger"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// ErrorResponse is the envelope of every failed request
type ErrorResponse struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	Timestamp string            `json:"timestamp"`
	RequestID string            `json:"request_id"`
}

// StatusFor maps an error kind to its HTTP status
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v with the given status code
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(v)
}

// Responder writes responses and logs failures for one service
type Responder struct {
	logger *logger.Logger
}

func NewResponder(log *logger.Logger) *Responder {
	return &Responder{logger: log}
}

// JSON writes a success response
func (rs *Responder) JSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	if err := WriteJSON(w, status, v); err != nil {
		rs.logger.Error("response_encoding_failed", "Failed to encode response", logger.RequestID(r.Context()), err, nil)
	}
}

// Error writes err as an error envelope. Unclassified errors are logged and
// reported as a generic internal error.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.RequestID(r.Context())
	resp := ErrorResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID,
	}

	var appErr *apperror.Error
	status := http.StatusInternalServerError
	if errors.As(err, &appErr) {
		status = StatusFor(appErr.Kind)
		resp.Error = appErr.Message
		resp.Fields = appErr.Fields
	}
	if status == http.StatusInternalServerError {
		rs.logger.Error("request_failed", "Unhandled error", requestID, err, map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		resp.Error = "Internal server error"
		resp.Fields = nil
	}

	if encErr := WriteJSON(w, status, resp); encErr != nil {
		rs.logger.Error("response_encoding_failed", "Failed to encode error response", requestID, encErr, nil)
	}
}

// DecodeJSON reads a single JSON value from the request body into v. Unknown
// fields and trailing data are rejected as validation errors.
func DecodeJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		if errors.Is(err, io.EOF) {
			return apperror.Validation("body", "request body is empty")
		}
		return apperror.Validation("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	if decoder.More() {
		return apperror.Validation("body", "request body must contain a single JSON object")
	}
	return nil
}

// PathID parses the named mux variable as a positive id
func PathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NotFound("Not found.")
	}
	return id, nil
}
