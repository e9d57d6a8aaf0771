package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestMiddlewareRecordsSpanAndMetrics(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	obs := NewObservability(ObservabilityConfig{Enabled: true, MetricsPrefix: "mw_test"}, nil)
	var inner trace.SpanContext
	handler := obs.Middleware("/v1/tip")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = trace.SpanContextFromContext(r.Context())
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tip", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	ended := spans.Ended()
	require.Len(t, ended, 1)
	span := ended[0]
	require.Equal(t, "/v1/tip", span.Name())
	require.Equal(t, trace.SpanKindServer, span.SpanKind())
	require.Equal(t, codes.Error, span.Status().Code)
	require.Contains(t, span.Attributes(), attribute.Int("http.status_code", http.StatusServiceUnavailable))
	require.Equal(t, span.SpanContext().TraceID(), inner.TraceID())

	count := testutil.ToFloat64(obs.requests.WithLabelValues("/v1/tip", http.MethodGet, http.StatusText(http.StatusServiceUnavailable)))
	require.Equal(t, float64(1), count)
}

func TestMiddlewareDisabledPassesThrough(t *testing.T) {
	obs := NewObservability(ObservabilityConfig{MetricsPrefix: "mw_off"}, nil)
	called := false
	handler := obs.Middleware("/healthz")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.True(t, called)
	require.Zero(t, testutil.CollectAndCount(obs.requests))
}
