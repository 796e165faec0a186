package workerpresentation

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"
)

// WithEventContext injects an event-scoped logger for background executions.
// Fields: event_id (generated if attrs has none), event, trace_id/span_id when
// the context carries a valid span, plus the caller's low-cardinality attrs.
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	e domoutbox.Event,
	attrs map[string]string,
) (context.Context, observability.Logger) {
	if base == nil {
		base = observability.NopLogger()
	}

	fields := make([]observability.Field, 0, 4+len(attrs))

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields = append(fields,
		observability.F("event_id", evtID),
		observability.F("event", e.EventName()),
	)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}

	for k, v := range attrs {
		if k == "event_id" || k == "event" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}

	logger := base.With(fields...)
	return logctx.With(ctx, logger), logger
}

// Middleware wraps h so it runs with an event-scoped logger in its context,
// derived from base or, when base is nil, from the logger already in ctx.
func Middleware(base observability.Logger, tel observability.Observability, h domoutbox.Handler) domoutbox.Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return func(ctx context.Context, e domoutbox.Event) error {
		ctx, span := tel.Tracer().Start(ctx, "Event."+e.EventName())
		defer span.End()
		logger := base
		if logger == nil {
			logger = logctx.FromOr(ctx, nil)
		}
		ctx, _ = WithEventContext(ctx, logger, e, nil)
		err := h(ctx, e)
		if err != nil {
			span.RecordError(err)
		}
		return err
	}
}

// Mount subscribes every handler behind Middleware.
func Mount(sub domoutbox.Subscriber, base observability.Logger, tel observability.Observability, handlers map[string]domoutbox.Handler) {
	for name, h := range handlers {
		sub.Subscribe(name, Middleware(base, tel, h))
	}
}
