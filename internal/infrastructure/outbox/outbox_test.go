package outbox

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/zaplogger"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func TestBusFansOutToEverySubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)
	bus := NewBus(nil, Options{})
	var a, b atomic.Int32
	bus.Subscribe("order.failed", func(context.Context, domoutbox.Event) error { a.Add(1); return nil })
	bus.Subscribe("order.failed", func(context.Context, domoutbox.Event) error { b.Add(1); return nil })
	bus.Subscribe("order.completed", func(context.Context, domoutbox.Event) error {
		t.Error("unexpected delivery")
		return nil
	})
	bus.Start(context.Background())

	require.NoError(t, bus.Publish(context.Background(), testEvent{"order.failed"}))
	require.NoError(t, bus.Publish(context.Background(), testEvent{"order.failed"}))
	require.NoError(t, bus.Stop(context.Background()))

	assert.Equal(t, int32(2), a.Load())
	assert.Equal(t, int32(2), b.Load())
}

func TestBusRecoversFromHandlerPanic(t *testing.T) {
	defer goleak.VerifyNone(t)
	core, logs := observer.New(zapcore.DebugLevel)
	bus := NewBus(zaplogger.Wrap(zap.New(core)), Options{Concurrency: 1})
	var delivered atomic.Bool
	bus.Subscribe("x", func(context.Context, domoutbox.Event) error { panic("boom") })
	bus.Subscribe("x", func(context.Context, domoutbox.Event) error { return errors.New("nope") })
	bus.Subscribe("x", func(context.Context, domoutbox.Event) error { delivered.Store(true); return nil })
	bus.Start(context.Background())

	require.NoError(t, bus.Publish(context.Background(), testEvent{"x"}))
	require.NoError(t, bus.Stop(context.Background()))

	assert.True(t, delivered.Load())
	assert.Equal(t, 1, logs.FilterMessage("event_handler_panic").Len())
	assert.Equal(t, 1, logs.FilterMessage("event_handler_error").Len())
}

func TestBusRejectsPublishAfterStop(t *testing.T) {
	bus := NewBus(nil, Options{})
	bus.Start(context.Background())
	require.NoError(t, bus.Stop(context.Background()))

	assert.ErrorIs(t, bus.Publish(context.Background(), testEvent{"x"}), ErrClosed)
	assert.NoError(t, bus.Stop(context.Background()))
}

func TestBusStopWithoutStart(t *testing.T) {
	bus := NewBus(nil, Options{})
	assert.NoError(t, bus.Stop(context.Background()))
}

func TestBusPublishHonoursContextWhenFull(t *testing.T) {
	bus := NewBus(nil, Options{QueueSize: 1})
	require.NoError(t, bus.Publish(context.Background(), testEvent{"x"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Publish(ctx, testEvent{"x"}), context.DeadlineExceeded)
}

func TestBusHandlersSeeEventScopedDeadline(t *testing.T) {
	bus := NewBus(nil, Options{HandlerTimeout: time.Second})
	got := make(chan bool, 1)
	bus.Subscribe("x", func(ctx context.Context, _ domoutbox.Event) error {
		_, ok := ctx.Deadline()
		got <- ok
		return nil
	})
	bus.Start(context.Background())
	require.NoError(t, bus.Publish(context.Background(), testEvent{"x"}))

	require.Eventually(t, func() bool { return len(got) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, <-got)
	require.NoError(t, bus.Stop(context.Background()))
}
