package workerpresentation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"
)

type evt struct{}

func (evt) EventName() string { return "order.failed" }

type subs map[string][]domoutbox.Handler

func (s subs) Subscribe(name string, h domoutbox.Handler) { s[name] = append(s[name], h) }

func TestWithEventContextAddsEventFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zaplogger.Wrap(zap.New(core))

	ctx, logger := WithEventContext(context.Background(), base, evt{}, map[string]string{"tenant": "eu", "empty": ""})
	logger.Info("hello")
	logctx.From(ctx).Info("again")

	entries := logs.All()
	require.Len(t, entries, 2)
	for _, e := range entries {
		fields := e.ContextMap()
		assert.Equal(t, "order.failed", fields["event"])
		assert.Equal(t, "eu", fields["tenant"])
		assert.NotEmpty(t, fields["event_id"])
		assert.NotContains(t, fields, "empty")
		assert.NotContains(t, fields, "trace_id")
	}
}

func TestWithEventContextKeepsGivenEventID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	_, logger := WithEventContext(context.Background(), zaplogger.Wrap(zap.New(core)), evt{}, map[string]string{"event_id": "e-1"})
	logger.Info("x")
	assert.Equal(t, "e-1", logs.All()[0].ContextMap()["event_id"])
}

func TestMountWrapsHandlers(t *testing.T) {
	s := subs{}
	var got observability.Logger
	Mount(s, nil, nil, map[string]domoutbox.Handler{
		"order.failed": func(ctx context.Context, _ domoutbox.Event) error {
			got = logctx.From(ctx)
			return nil
		},
	})
	require.Len(t, s["order.failed"], 1)
	require.NoError(t, s["order.failed"][0](context.Background(), evt{}))
	assert.NotNil(t, got)
}
