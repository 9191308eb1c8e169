package credential

import (
	"context"
	"errors"
	"io"

	"clubhub-go/internal/monitoring"
	"clubhub-go/internal/monitoring/tracing"
)

// Instrumented decorates a Store with spans and operation counters.
type Instrumented struct {
	inner Store
	label string
}

func WithInstrumentation(inner Store, label string) *Instrumented {
	if label == "" {
		label = "unknown"
	}
	return &Instrumented{inner: inner, label: label}
}

// Backend names the wrapped implementation.
func (i *Instrumented) Backend() string { return i.label }

// Unwrap returns the wrapped store.
func (i *Instrumented) Unwrap() Store { return i.inner }

func (i *Instrumented) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := i.instrument(ctx, "get", func(ctx context.Context) error {
		var innerErr error
		v, innerErr = i.inner.Get(ctx, key)
		return innerErr
	})
	return v, err
}

func (i *Instrumented) Set(ctx context.Context, key, value string) error {
	return i.instrument(ctx, "set", func(ctx context.Context) error {
		return i.inner.Set(ctx, key, value)
	})
}

func (i *Instrumented) Delete(ctx context.Context, keys ...string) error {
	return i.instrument(ctx, "delete", func(ctx context.Context) error {
		return i.inner.Delete(ctx, keys...)
	})
}

// Close closes the wrapped store when it holds a connection.
func (i *Instrumented) Close() error {
	if c, ok := i.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (i *Instrumented) instrument(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := tracing.StartStoreOp(ctx, i.label, op)
	err := fn(ctx)

	result := "ok"
	spanErr := err
	switch {
	case errors.Is(err, ErrNotFound):
		result = "miss"
		spanErr = nil
	case err != nil:
		result = "error"
	}
	tracing.Finish(span, 0, result, spanErr)

	monitoring.StoreOperationsTotal.WithLabelValues(i.label, op, result).Inc()
	return err
}
