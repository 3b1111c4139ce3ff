package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/marketplace/pkg/logger"
)

func newTestLogger(w *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var out map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &out))
	return out
}

func TestRequestLogger_EnrichesFromContext(t *testing.T) {
	var buf bytes.Buffer

	handler := RequestLogging(logger.Discard())(
		RequestLogger(newTestLogger(&buf))(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				logger.FromContext(r.Context()).Info("inside handler")
			}),
		),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("X-Correlation-ID", "corr-9")
	req = req.WithContext(WithClaims(req.Context(), &Claims{SellerID: 31}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	out := lastLine(t, &buf)
	assert.Equal(t, "corr-9", out["correlation_id"])
	assert.Equal(t, "31", out["seller_id"])
	assert.Equal(t, "corr-9", rec.Header().Get("X-Correlation-ID"))
}

func TestRequestLogger_IncludesTraceFields(t *testing.T) {
	var buf bytes.Buffer

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	handler := RequestLogger(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("traced")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(trace.ContextWithSpanContext(context.Background(), sc))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := lastLine(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", out["trace_id"])
	assert.NotContains(t, out, "seller_id")
}

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogging(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/products", nil))

	id := rec.Header().Get("X-Correlation-ID")
	assert.Len(t, id, 36)
	out := lastLine(t, &buf)
	assert.Equal(t, float64(http.StatusCreated), out["status"])
	assert.Equal(t, id, out["correlation_id"])
}

func TestRecovery_Returns500Envelope(t *testing.T) {
	var buf bytes.Buffer
	handler := Recovery(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INTERNAL_ERROR"`)
	assert.NotContains(t, rec.Body.String(), "boom")
	assert.Contains(t, buf.String(), "panic recovered")
}
