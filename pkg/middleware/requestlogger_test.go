package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/backoffice/pkg/logger"
)

func newTestLogger(w *bytes.Buffer) *slog.Logger {
	return logger.NewWithWriter("backoffice", "info", w)
}

// lastLine decodes the last JSON log line written to buf.
func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestRequestLogger_ContextLoggerCarriesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	base := newTestLogger(&buf)

	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("inside handler")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithCorrelationID(req.Context(), "corr-7"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entry := lastLine(t, &buf)
	assert.Equal(t, "inside handler", entry["msg"])
	assert.Equal(t, "corr-7", entry["correlation_id"])
	assert.NotContains(t, entry, "user_id")
}

func TestRequestLogger_IncludesUserFromClaims(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("x")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithClaims(context.Background(), &Claims{UserID: "u-5"}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "u-5", lastLine(t, &buf)["user_id"])
}

func TestAuth_EnrichesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	validate := staticValidator("tok", &Claims{UserID: "u-3", Roles: []string{"Admin"}})

	chain := RequestLogger(newTestLogger(&buf))(Auth(validate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("authed")
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	chain.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "u-3", lastLine(t, &buf)["user_id"])
}

func TestRequestLogging_SetsCorrelationHeaderAndLogs(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogging(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, logger.CorrelationIDFromContext(r.Context()))
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/roles", nil))

	assert.NotEmpty(t, rr.Header().Get(CorrelationHeader))
	entry := lastLine(t, &buf)
	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.Equal(t, "/api/v1/roles", entry["path"])
}

func TestRequestLogging_ReusesInboundCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogging(newTestLogger(&buf))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "abc-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "abc-123", rr.Header().Get(CorrelationHeader))
	assert.Equal(t, "abc-123", lastLine(t, &buf)["correlation_id"])
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	handler := Recovery(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "INTERNAL_ERROR")
	assert.Equal(t, "panic recovered", lastLine(t, &buf)["msg"])
}

func TestContentTypeJSON(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		status      int
	}{
		{"json post", http.MethodPost, `{}`, "application/json", http.StatusOK},
		{"json with charset", http.MethodPut, `{}`, "application/json; charset=utf-8", http.StatusOK},
		{"form post", http.MethodPost, `a=b`, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"missing header", http.MethodPost, `{}`, "", http.StatusUnsupportedMediaType},
		{"empty body", http.MethodPost, ``, "", http.StatusOK},
		{"get ignored", http.MethodGet, ``, "text/plain", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rr := httptest.NewRecorder()
			ContentTypeJSON(okHandler()).ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}
