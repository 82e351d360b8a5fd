package production

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/comalice/storex/internal/extensibility"
	"github.com/comalice/storex/internal/primitives"
)

const (
	defaultTracerName = "storex"
	dispatchSpanName  = "storex.dispatch"
)

// Span attribute keys.
const (
	AttrActionType = attribute.Key("storex.action.type")
	AttrStoreID    = attribute.Key("storex.store.id")
	AttrQueued     = attribute.Key("storex.action.queued")
)

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	// TracerProvider supplies the tracer (default: otel.GetTracerProvider()).
	TracerProvider trace.TracerProvider

	// StoreID is recorded on every span when set.
	StoreID string

	// Parent returns the context spans are started from.
	// Default: context.Background.
	Parent func() context.Context
}

// TracingOption configures the tracing middleware.
type TracingOption func(*TracingConfig)

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(c *TracingConfig) {
		c.TracerProvider = tp
	}
}

// WithStoreID records the store ID on spans.
func WithStoreID(id string) TracingOption {
	return func(c *TracingConfig) {
		c.StoreID = id
	}
}

// WithParentContext sets the parent context source for spans.
func WithParentContext(parent func() context.Context) TracingOption {
	return func(c *TracingConfig) {
		c.Parent = parent
	}
}

// Tracing returns middleware that wraps each dispatch in a span. Errors are
// recorded and set the span status.
func Tracing(opts ...TracingOption) extensibility.Middleware {
	config := TracingConfig{Parent: context.Background}
	for _, opt := range opts {
		opt(&config)
	}
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	tracer := config.TracerProvider.Tracer(defaultTracerName)

	return func(api extensibility.MiddlewareAPI) func(next extensibility.DispatchFunc) extensibility.DispatchFunc {
		return func(next extensibility.DispatchFunc) extensibility.DispatchFunc {
			return func(v any) (any, error) {
				_, isThunk := v.(extensibility.Thunk)
				attrs := []attribute.KeyValue{AttrActionType.String(actionTypeOf(v))}
				if config.StoreID != "" {
					attrs = append(attrs, AttrStoreID.String(config.StoreID))
				}
				_, span := tracer.Start(config.Parent(), dispatchSpanName,
					trace.WithSpanKind(trace.SpanKindInternal),
					trace.WithAttributes(attrs...),
				)
				defer span.End()

				result, err := next(v)
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
					return result, err
				}
				if result == nil && !isThunk {
					span.SetAttributes(AttrQueued.Bool(true))
				}
				span.SetStatus(codes.Ok, "")
				return result, nil
			}
		}
	}
}

func actionTypeOf(v any) string {
	if _, ok := v.(extensibility.Thunk); ok {
		return "<thunk>"
	}
	action, err := primitives.AsAction(v)
	if err != nil {
		return "<invalid>"
	}
	return action.TypeString()
}
