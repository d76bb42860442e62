package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"little-lemon/internal/apperror"
	"little-lemon/internal/logger"
)

func TestResponderError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
		wantFields bool
	}{
		{"unauthorized", apperror.Unauthorized(), http.StatusUnauthorized, "Authentication credentials were not provided.", false},
		{"forbidden", apperror.Forbidden(), http.StatusForbidden, apperror.PermissionDenied, false},
		{"not found", apperror.NotFound("No Order matches the given query."), http.StatusNotFound, "No Order matches the given query.", false},
		{"validation", apperror.Validation("quantity", "must be greater than 0"), http.StatusBadRequest, "invalid input", true},
		{"conflict", apperror.Conflict("busy"), http.StatusConflict, "busy", false},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, "Internal server error", false},
	}

	rs := NewResponder(logger.NewWithWriter("web-test", "error", io.Discard))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			req = req.WithContext(logger.WithRequestID(req.Context(), "req-42"))
			rec := httptest.NewRecorder()

			rs.Error(rec, req, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("body is not JSON: %v", err)
			}
			if body.Error != tt.wantMsg {
				t.Errorf("error = %q, want %q", body.Error, tt.wantMsg)
			}
			if (len(body.Fields) > 0) != tt.wantFields {
				t.Errorf("fields = %v", body.Fields)
			}
			if body.RequestID != "req-42" || body.Timestamp == "" {
				t.Errorf("envelope = %+v", body)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Quantity int `json:"quantity"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"quantity":2}`, false},
		{"empty", ``, true},
		{"unknown field", `{"quantity":2,"price":1}`, true},
		{"wrong type", `{"quantity":"two"}`, true},
		{"trailing data", `{"quantity":2}{"quantity":3}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(req, &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperror.Is(err, apperror.KindValidation) {
				t.Errorf("DecodeJSON() error kind = %s, want validation", apperror.KindOf(err))
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("request id = %q / %q, want caller's id", seen, rec.Header().Get(RequestIDHeader))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || seen == "abc-123" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("generated request id = %q", seen)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	h := Recover(logger.NewWithWriter("web-test", "error", io.Discard))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
