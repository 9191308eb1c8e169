package tracing

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"clubhub-go/internal/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "clubhub-go"
	defaultServiceName  = "clubctl"

	// Component names carried on every span as clubhub.component.
	ComponentDispatch = "dispatch"
	ComponentStore    = "store"
)

var (
	initOnce sync.Once
	provider *sdktrace.TracerProvider
)

// Init exports spans over OTLP/gRPC when an endpoint is configured through
// OTEL_EXPORTER_OTLP_TRACES_ENDPOINT or OTEL_EXPORTER_OTLP_ENDPOINT. Without
// one, spans stay non-recording. The returned func flushes pending spans.
func Init(ctx context.Context) (func(context.Context) error, error) {
	var initErr error
	initOnce.Do(func() {
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{},
		))
		opts, ok := exporterOptions()
		if !ok {
			return
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			initErr = err
			return
		}
		res, err := clientResource(ctx)
		if err != nil {
			initErr = err
			return
		}
		provider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(provider)
	})

	noop := func(context.Context) error { return nil }
	if initErr != nil {
		return noop, initErr
	}
	if provider == nil {
		return noop, nil
	}
	return provider.Shutdown, nil
}

func exporterOptions() ([]otlptracegrpc.Option, bool) {
	endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"))
	if endpoint == "" {
		endpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	}
	if endpoint == "" {
		return nil, false
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	// Plaintext unless OTEL_EXPORTER_OTLP_INSECURE says otherwise.
	insecure := true
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"))); err == nil {
		insecure = v
	}
	if insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return opts, true
}

// clientResource describes this process. OTEL_SERVICE_NAME and
// OTEL_RESOURCE_ATTRIBUTES override the defaults.
func clientResource(ctx context.Context) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", defaultServiceName),
			attribute.String("service.namespace", "clubhub"),
			attribute.String("service.version", version.Version),
			attribute.String("vcs.commit", version.Commit),
			attribute.String("host.name", hostname()),
		),
		resource.WithProcessRuntimeName(),
		resource.WithProcessRuntimeVersion(),
		resource.WithTelemetrySDK(),
		resource.WithFromEnv(),
	)
}

func tracer(component string) trace.Tracer {
	return otel.Tracer(instrumentationName+"/"+component, trace.WithInstrumentationVersion(version.Version))
}

// StartRequest opens a client span for one backend call. Callers report the
// result with Finish.
func StartRequest(ctx context.Context, method, path string) (context.Context, trace.Span) {
	return tracer(ComponentDispatch).Start(ctx, method+" "+routeOf(path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("clubhub.component", ComponentDispatch),
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
}

// StartRenewal opens the span covering one credential refresh.
func StartRenewal(ctx context.Context, refreshPath string) (context.Context, trace.Span) {
	return tracer(ComponentDispatch).Start(ctx, "credential.renew",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("clubhub.component", ComponentDispatch),
			attribute.String("url.path", refreshPath),
		),
	)
}

// StartStoreOp opens an internal span for a credential store operation.
func StartStoreOp(ctx context.Context, backend, op string) (context.Context, trace.Span) {
	return tracer(ComponentStore).Start(ctx, "credential."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("clubhub.component", ComponentStore),
			attribute.String("clubhub.store.backend", backend),
			attribute.String("clubhub.store.operation", op),
		),
	)
}

// Finish records the outcome on span and ends it. status is the HTTP status
// or zero; kind, when set, becomes clubhub.outcome.
func Finish(span trace.Span, status int, kind string, err error) {
	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if kind != "" {
		span.SetAttributes(attribute.String("clubhub.outcome", kind))
	}
	if err != nil {
		span.RecordError(err)
		msg := kind
		if msg == "" {
			msg = err.Error()
		}
		span.SetStatus(codes.Error, msg)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHeaders writes the span context of ctx into outbound headers.
func InjectHeaders(ctx context.Context, h http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(h))
}

// routeOf drops the query string and collapses id-like segments so span
// names stay low-cardinality: /clubs/42/members?x=1 -> /clubs/{id}/members.
func routeOf(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if looksLikeID(p) {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

func looksLikeID(seg string) bool {
	if seg == "" {
		return false
	}
	digits := 0
	for _, r := range seg {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits == len(seg) || (len(seg) >= 16 && digits > 0)
}

func hostname() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown"
}
