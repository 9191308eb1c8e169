package tracing

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	return rec
}

func attrs(s sdktrace.ReadOnlySpan) map[string]string {
	out := make(map[string]string)
	for _, kv := range s.Attributes() {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	shutdown, err := Init(context.Background())
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	ctx, span := StartRequest(context.Background(), http.MethodGet, "/clubs")
	defer span.End()

	h := http.Header{}
	InjectHeaders(ctx, h)
	require.Empty(t, h.Get("traceparent"))
}

func TestRequestSpanIsClientKindNamedByRoute(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartRequest(context.Background(), http.MethodGet, "/clubs/42/members?limit=5")
	Finish(span, http.StatusNotFound, "client_error", errors.New("not found"))

	ended := rec.Ended()
	require.Len(t, ended, 1)
	got := ended[0]
	require.Equal(t, "GET /clubs/{id}/members", got.Name())
	require.Equal(t, trace.SpanKindClient, got.SpanKind())
	require.Equal(t, codes.Error, got.Status().Code)
	require.Equal(t, "client_error", got.Status().Description)
	require.Equal(t, "clubhub-go/dispatch", got.InstrumentationScope().Name)

	a := attrs(got)
	require.Equal(t, "dispatch", a["clubhub.component"])
	require.Equal(t, "/clubs/42/members?limit=5", a["url.path"])
	require.Equal(t, "404", a["http.response.status_code"])
	require.Equal(t, "client_error", a["clubhub.outcome"])
}

func TestRenewalAndStoreSpans(t *testing.T) {
	rec := recordSpans(t)
	ctx := context.Background()

	rctx, renewal := StartRenewal(ctx, "/auth/refresh")
	_, op := StartStoreOp(rctx, "redis", "set")
	Finish(op, 0, "ok", nil)
	Finish(renewal, 0, "renewed", nil)

	ended := rec.Ended()
	require.Len(t, ended, 2)
	store, renew := ended[0], ended[1]

	require.Equal(t, "credential.set", store.Name())
	require.Equal(t, trace.SpanKindInternal, store.SpanKind())
	require.Equal(t, renew.SpanContext().SpanID(), store.Parent().SpanID())
	require.Equal(t, "redis", attrs(store)["clubhub.store.backend"])
	require.NotContains(t, attrs(store), "http.response.status_code")

	require.Equal(t, "credential.renew", renew.Name())
	require.Equal(t, trace.SpanKindClient, renew.SpanKind())
	require.Equal(t, codes.Ok, renew.Status().Code)
}

func TestInjectHeadersCarriesActiveSpan(t *testing.T) {
	recordSpans(t)

	ctx, span := StartRequest(context.Background(), http.MethodPost, "/auth/login")
	defer span.End()

	h := http.Header{}
	InjectHeaders(ctx, h)
	require.Contains(t, h.Get("traceparent"), span.SpanContext().TraceID().String())
}

func TestRouteOf(t *testing.T) {
	cases := map[string]string{
		"/clubs":                              "/clubs",
		"/clubs/42":                           "/clubs/{id}",
		"/clubs/42/members?role=coach":        "/clubs/{id}/members",
		"/players/65f1c2a9e4b0a1b2c3d4e5f6":   "/players/{id}",
		"/auth/refresh":                       "/auth/refresh",
		"/clubs/under-12/schedule":            "/clubs/under-12/schedule",
		"https://api.example.test/clubs/7?x=": "https://api.example.test/clubs/{id}",
	}
	for in, want := range cases {
		require.Equal(t, want, routeOf(in), in)
	}
}

func TestExporterOptions(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "")
	_, ok := exporterOptions()
	require.False(t, ok)

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	opts, ok := exporterOptions()
	require.True(t, ok)
	require.Len(t, opts, 2)

	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "false")
	opts, ok = exporterOptions()
	require.True(t, ok)
	require.Len(t, opts, 1)
}
