package order

import (
	"context"

	domcatalog "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/notification"
	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"
)

const workerService = "order-worker"

// Worker reports the side channels of order processing: compensations,
// failed orders and undelivered confirmations. It never changes an order.
type Worker struct {
	log    observability.Logger
	events observability.Counter // order_events_total{event}
}

func NewWorker(tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		log:    tel.Logger().With(observability.F("service", workerService)),
		events: tel.Metrics().Counter(observability.MOrderEvents),
	}
}

// Handlers maps each reported event name to its handler.
func (w *Worker) Handlers() map[string]domoutbox.Handler {
	return map[string]domoutbox.Handler{
		domcatalog.InventoryReleasedEvent{}.EventName(): w.handleInventoryReleased,
		domain.FailedEvent{}.EventName():               w.handleOrderFailed,
		notification.FailedEvent{}.EventName():         w.handleNotificationFailed,
	}
}

// Logger is the worker's base logger, for mounting its handlers.
func (w *Worker) Logger() observability.Logger { return w.log }

func (w *Worker) handleInventoryReleased(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domcatalog.InventoryReleasedEvent)
	if !ok {
		return nil
	}
	w.events.Add(1, observability.L("event", evt.EventName()))
	logctx.FromOr(ctx, w.log).Info("inventory_released",
		observability.F("order_id", evt.OrderID),
		observability.F("sku", evt.SKU),
		observability.F("quantity", evt.Quantity),
		observability.F("stage", evt.Stage),
	)
	return nil
}

func (w *Worker) handleOrderFailed(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domain.FailedEvent)
	if !ok {
		return nil
	}
	w.events.Add(1, observability.L("event", evt.EventName()))
	logctx.FromOr(ctx, w.log).Info("order_failed",
		observability.F("order_id", evt.OrderID),
		observability.F("stage", string(evt.Stage)),
		observability.F("reason", evt.Reason),
		observability.F("compensated", evt.Compensated),
	)
	return nil
}

func (w *Worker) handleNotificationFailed(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(notification.FailedEvent)
	if !ok {
		return nil
	}
	w.events.Add(1, observability.L("event", evt.EventName()))
	logctx.FromOr(ctx, w.log).Warn("confirmation_undelivered",
		observability.F("order_id", evt.OrderID),
		observability.F("to", evt.To),
		observability.F("reason", evt.Reason),
	)
	return nil
}
