package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apppay "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/payment"
	domcatalog "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/notification"
	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService      = "order-service"
	useCasePlaceOrder = "order.place"
	spanPrefix        = "UC."
	publishPeer       = "outbox"
	publishTimeout    = 300 * time.Millisecond
	notifierPeer      = "notifier"
	notifierEndpoint  = "send"

	ConfirmationSubject = "Order confirmation"
)

// PlaceOrderInput is an order as submitted, before normalization.
type PlaceOrderInput struct {
	CustomerAddress   string
	Items             []domain.RawLine
	PaymentCredential string
}

// Deps are the collaborators of PlaceOrderUseCase. Publisher and Tel are optional.
type Deps struct {
	Catalog     domcatalog.Catalog
	Orders      domain.Repository
	Charger     Charger
	Notifier    notification.Notifier
	Publisher   domoutbox.Publisher
	OrderIDs    IDGenerator
	InvoiceIDs  IDGenerator
	ShipmentIDs IDGenerator
	Tel         observability.Observability
}

// PlaceOrderUseCase drives one order through normalize, validate, price,
// reserve, charge and complete. Reserved stock is released before any error
// past the reserve stage is returned.
type PlaceOrderUseCase struct {
	catalog     domcatalog.Catalog
	orders      domain.Repository
	charger     Charger
	notifier    notification.Notifier
	publisher   domoutbox.Publisher
	orderIDs    IDGenerator
	invoiceIDs  IDGenerator
	shipmentIDs IDGenerator
	tel         observability.Observability

	// serializes multi-line reservations across orders
	reserveMu sync.Mutex

	log           observability.Logger
	reqCounter    observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram  observability.Histogram // usecase_duration_seconds{use_case}
	extCounter    observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram  observability.Histogram // external_request_duration_seconds{peer,endpoint}
	compensations observability.Counter   // order_compensations_total{stage}
}

func NewPlaceOrderUseCase(d Deps) *PlaceOrderUseCase {
	tel := d.Tel
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &PlaceOrderUseCase{
		catalog:       d.Catalog,
		orders:        d.Orders,
		charger:       d.Charger,
		notifier:      d.Notifier,
		publisher:     d.Publisher,
		orderIDs:      d.OrderIDs,
		invoiceIDs:    d.InvoiceIDs,
		shipmentIDs:   d.ShipmentIDs,
		tel:           tel,
		log:           tel.Logger().With(observability.F("service", orderService)),
		reqCounter:    m.Counter(observability.MUsecaseRequests),
		durHistogram:  m.Histogram(observability.MUsecaseDuration),
		extCounter:    m.Counter(observability.MExternalRequests),
		extHistogram:  m.Histogram(observability.MExternalRequestDuration),
		compensations: m.Counter(observability.MOrderCompensations),
	}
}

// Execute processes one order. Every error is a *domain.StageError; errors.As
// reaches MalformedLineError, ValidationError and PaymentError, errors.Is reaches
// catalog.ErrNotFound and catalog.ErrInsufficientStock.
func (uc *PlaceOrderUseCase) Execute(ctx context.Context, cmd PlaceOrderInput) (_ *domain.Result, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCasePlaceOrder))

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"PlaceOrder",
		attribute.String("use_case", useCasePlaceOrder),
		attribute.Int("order.lines", len(cmd.Items)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var ord *domain.Order

	defer func() {
		lat := time.Since(start).Seconds()

		if ord != nil {
			span.SetAttributes(
				attribute.String("order.id", ord.ID),
				attribute.String("order.status", string(ord.Status)),
			)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		uc.reqCounter.Add(1,
			observability.L("use_case", useCasePlaceOrder),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat, observability.L("use_case", useCasePlaceOrder))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if ord != nil {
			fields = append(fields,
				observability.F("order_id", ord.ID),
				observability.F("order_status", string(ord.Status)),
			)
			if ord.Status == domain.StatusCompleted {
				fields = append(fields, observability.F("total", ord.Total.StringFixed(2)))
			}
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if cerr := ctx.Err(); cerr != nil {
		outcome, statusText = "canceled", "CONTEXT_CANCELED"
		return nil, &domain.StageError{Stage: domain.StageRecord, Err: cerr}
	}

	ord = domain.New(uc.orderIDs.NewID(), cmd.CustomerAddress)
	if ierr := uc.orders.Insert(ctx, ord); ierr != nil {
		outcome, statusText = "error", "REPO_INSERT_FAILED"
		id := ord.ID
		ord = nil
		return nil, &domain.StageError{OrderID: id, Stage: domain.StageRecord, Err: fmt.Errorf("order: record: %w", ierr)}
	}
	ctx, _ = logctx.Enrich(ctx, uc.log, observability.F("order_id", ord.ID))

	// normalize
	lines, nerr := domain.Normalize(cmd.Items)
	if nerr != nil {
		outcome, statusText = "error", "NORMALIZE_FAILED"
		return nil, uc.fail(ctx, ord, domain.StageNormalize, nerr, false)
	}
	if err := ord.Normalized(lines); err != nil {
		outcome, statusText = "error", "STATE_TRANSITION_FAILED"
		return nil, uc.fail(ctx, ord, domain.StageNormalize, err, false)
	}

	// validate
	products, verr := uc.validate(ctx, ord.CustomerAddress, lines)
	if verr != nil {
		outcome, statusText = "error", "VALIDATION_FAILED"
		if errors.Is(verr, domcatalog.ErrNotFound) {
			statusText = "UNKNOWN_SKU"
		}
		return nil, uc.fail(ctx, ord, domain.StageValidate, verr, false)
	}
	if err := ord.Validated(); err != nil {
		outcome, statusText = "error", "STATE_TRANSITION_FAILED"
		return nil, uc.fail(ctx, ord, domain.StageValidate, err, false)
	}

	// price
	if err := ord.Priced(price(lines, products)); err != nil {
		outcome, statusText = "error", "STATE_TRANSITION_FAILED"
		return nil, uc.fail(ctx, ord, domain.StageValidate, err, false)
	}
	span.SetAttributes(attribute.String("order.total", ord.Total.StringFixed(2)))

	// reserve
	if taken, rerr := uc.reserve(ctx, ord.ID, lines); rerr != nil {
		outcome, statusText = "error", "RESERVE_FAILED"
		return nil, uc.fail(ctx, ord, domain.StageReserve, rerr, taken > 0)
	}
	if err := ord.Reserved(); err != nil {
		outcome, statusText = "error", "STATE_TRANSITION_FAILED"
		uc.release(ctx, ord.ID, domain.StageReserve, lines)
		return nil, uc.fail(ctx, ord, domain.StageReserve, err, true)
	}
	span.AddEvent("order.reserved")

	// charge
	charge, cerr := uc.charger.Execute(ctx, apppay.ChargeInput{
		OrderID:    ord.ID,
		Amount:     ord.Total,
		Credential: cmd.PaymentCredential,
	})
	if cerr != nil {
		outcome, statusText = "error", "PAYMENT_FAILED"
		uc.release(ctx, ord.ID, domain.StageCharge, lines)
		return nil, uc.fail(ctx, ord, domain.StageCharge, &domain.PaymentError{Err: cerr}, true)
	}
	if err := ord.Charged(charge.ChargeID); err != nil {
		outcome, statusText = "error", "STATE_TRANSITION_FAILED"
		logger.Error("charged_order_transition_failed",
			observability.F("order_id", ord.ID),
			observability.F("charge_id", charge.ChargeID),
			observability.F("error", err.Error()),
		)
		return nil, &domain.StageError{OrderID: ord.ID, Stage: domain.StageCharge, Err: err}
	}
	span.AddEvent("order.charged", trace.WithAttributes(attribute.String("payment.charge_id", charge.ChargeID)))

	// complete
	if err := ord.Completed(uc.invoiceIDs.NewID(), uc.shipmentIDs.NewID()); err != nil {
		outcome, statusText = "error", "STATE_TRANSITION_FAILED"
		return nil, &domain.StageError{OrderID: ord.ID, Stage: domain.StageCharge, Err: err}
	}
	if uerr := uc.orders.Update(ctx, ord); uerr != nil {
		statusText = "REPO_UPDATE_FAILED"
		logctx.FromOr(ctx, logger).Warn("order_update_failed", observability.F("error", uerr.Error()))
	}
	if perr := uc.publish(ctx, domain.NewCompletedEvent(ord)); perr != nil {
		statusText = "EVENT_PUBLISH_FAILED"
		span.RecordError(perr)
	}

	if nerr := uc.notify(ctx, ord, cmd.CustomerAddress); nerr != nil {
		statusText = "NOTIFY_FAILED"
		span.RecordError(nerr)
	}

	return ord.Result(), nil
}

// validate applies the rules in order and stops at the first violation. It
// returns the product snapshot used for pricing.
func (uc *PlaceOrderUseCase) validate(ctx context.Context, address string, lines []domain.Line) (map[string]domcatalog.Product, error) {
	if address == "" {
		return nil, &domain.ValidationError{Rule: domain.RuleMissingAddress, Line: -1}
	}
	if len(lines) == 0 {
		return nil, &domain.ValidationError{Rule: domain.RuleEmptyOrder, Line: -1}
	}
	products := make(map[string]domcatalog.Product, len(lines))
	for i, l := range lines {
		if l.Quantity <= 0 {
			return nil, &domain.ValidationError{Rule: domain.RuleNonPositiveQuantity, Line: i, SKU: l.SKU}
		}
		ok, err := uc.catalog.HasStock(ctx, l.SKU, l.Quantity)
		if err != nil {
			return nil, fmt.Errorf("order: validate line %d: %w", i, err)
		}
		if !ok {
			return nil, &domain.ValidationError{Rule: domain.RuleNoStock, Line: i, SKU: l.SKU}
		}
		if _, seen := products[l.SKU]; seen {
			continue
		}
		p, err := uc.catalog.Get(ctx, l.SKU)
		if err != nil {
			return nil, fmt.Errorf("order: validate line %d: %w", i, err)
		}
		products[l.SKU] = p
	}
	return products, nil
}

// price sums unit price × quantity and rounds half away from zero to cents.
func price(lines []domain.Line, products map[string]domcatalog.Product) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		p := products[l.SKU]
		total = total.Add(p.LineTotal(l.Quantity))
	}
	return total.Round(2)
}

// reserve takes stock for each line in order. On the first failure it hands
// back what it already took, in reverse, and reports how many lines that was.
// Release events are published after the reserve lock is dropped.
func (uc *PlaceOrderUseCase) reserve(ctx context.Context, orderID string, lines []domain.Line) (int, error) {
	taken, released, err := uc.reserveLocked(ctx, lines)
	uc.announceReleased(ctx, orderID, domain.StageReserve, released)
	return taken, err
}

func (uc *PlaceOrderUseCase) reserveLocked(ctx context.Context, lines []domain.Line) (int, []domain.Line, error) {
	uc.reserveMu.Lock()
	defer uc.reserveMu.Unlock()

	for i, l := range lines {
		if err := uc.catalog.Reserve(ctx, l.SKU, l.Quantity); err != nil {
			released := uc.restock(ctx, domain.StageReserve, lines[:i])
			return i, released, fmt.Errorf("order: reserve line %d: %w", i, err)
		}
	}
	return len(lines), nil, nil
}

// release hands reserved lines back in reverse order and announces each one.
func (uc *PlaceOrderUseCase) release(ctx context.Context, orderID string, stage domain.Stage, lines []domain.Line) {
	uc.announceReleased(ctx, orderID, stage, uc.restock(ctx, stage, lines))
}

// restock returns lines to the catalog in reverse order and reports the ones
// that went back. Failures are logged, never returned.
func (uc *PlaceOrderUseCase) restock(ctx context.Context, stage domain.Stage, lines []domain.Line) []domain.Line {
	if len(lines) == 0 {
		return nil
	}
	logger := logctx.FromOr(ctx, uc.log)
	uc.compensations.Add(1, observability.L("stage", string(stage)))

	released := make([]domain.Line, 0, len(lines))
	for i := len(lines) - 1; i >= 0; i-- {
		l := lines[i]
		if err := uc.catalog.Release(ctx, l.SKU, l.Quantity); err != nil {
			logger.Error("inventory_release_failed",
				observability.F("sku", l.SKU),
				observability.F("quantity", l.Quantity),
				observability.F("stage", string(stage)),
				observability.F("error", err.Error()),
			)
			continue
		}
		released = append(released, l)
	}
	return released
}

func (uc *PlaceOrderUseCase) announceReleased(ctx context.Context, orderID string, stage domain.Stage, released []domain.Line) {
	for _, l := range released {
		_ = uc.publish(ctx, domcatalog.NewInventoryReleasedEvent(orderID, l.SKU, l.Quantity, string(stage)))
	}
}

// fail moves ord to failed (through compensating when stock was reserved),
// records it and returns the caller-facing error.
func (uc *PlaceOrderUseCase) fail(ctx context.Context, ord *domain.Order, stage domain.Stage, cause error, compensated bool) error {
	logger := logctx.FromOr(ctx, uc.log)
	if ord.Status.Terminal() {
		// the outcome is already recorded and announced
		logger.Warn("order_already_terminal",
			observability.F("order_status", string(ord.Status)),
			observability.F("stage", string(stage)),
		)
		return &domain.StageError{OrderID: ord.ID, Stage: stage, Err: cause}
	}
	if compensated && ord.Status != domain.StatusCompensating {
		if err := ord.Compensating(); err != nil {
			logger.Warn("order_transition_failed", observability.F("to", string(domain.StatusCompensating)), observability.F("error", err.Error()))
		}
	}
	if err := ord.Fail(stage, cause.Error()); err != nil {
		logger.Warn("order_transition_failed", observability.F("to", string(domain.StatusFailed)), observability.F("error", err.Error()))
	}
	if err := uc.orders.Update(ctx, ord); err != nil {
		logger.Warn("order_update_failed", observability.F("error", err.Error()))
	}
	_ = uc.publish(ctx, domain.NewFailedEvent(ord, compensated))
	return &domain.StageError{OrderID: ord.ID, Stage: stage, Err: cause}
}

type confirmation struct {
	OrderID    string        `json:"order_id"`
	Total      string        `json:"total"`
	ChargeID   string        `json:"charge_id"`
	InvoiceID  string        `json:"invoice_id"`
	ShipmentID string        `json:"shipment_id"`
	Items      []domain.Line `json:"items"`
}

// ConfirmationBody renders the confirmation mail body for a completed order.
func ConfirmationBody(o *domain.Order) (string, error) {
	b, err := json.MarshalIndent(confirmation{
		OrderID:    o.ID,
		Total:      o.Total.StringFixed(2),
		ChargeID:   o.ChargeID,
		InvoiceID:  o.InvoiceID,
		ShipmentID: o.ShipmentID,
		Items:      o.Lines,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("order: render confirmation: %w", err)
	}
	return string(b), nil
}

// notify sends the confirmation best-effort. A failure is logged, counted and
// published, and returned only so the caller can annotate its span.
func (uc *PlaceOrderUseCase) notify(ctx context.Context, ord *domain.Order, to string) error {
	logger := logctx.FromOr(ctx, uc.log)

	body, err := ConfirmationBody(ord)
	if err == nil {
		start := time.Now()
		err = uc.notifier.Send(ctx, notification.Message{To: to, Subject: ConfirmationSubject, Body: body})
		out := "success"
		if err != nil {
			out = "error"
		}
		uc.extCounter.Add(1,
			observability.L("peer", notifierPeer),
			observability.L("endpoint", notifierEndpoint),
			observability.L("outcome", out),
		)
		uc.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", notifierPeer),
			observability.L("endpoint", notifierEndpoint),
		)
	}
	if err == nil {
		return nil
	}

	logger.Warn("notification_failed",
		observability.F("to", to),
		observability.F("error", err.Error()),
	)
	_ = uc.publish(ctx, notification.NewFailedEvent(ord.ID, to, err))
	return err
}

// publish is best-effort with a short deadline; failures are logged and returned.
func (uc *PlaceOrderUseCase) publish(ctx context.Context, e domoutbox.Event) error {
	if uc.publisher == nil {
		return nil
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	out := "success"
	err := uc.publisher.Publish(pubCtx, e)
	if err != nil {
		out = "error"
		if errors.Is(err, context.DeadlineExceeded) {
			out = "canceled"
		}
		logctx.FromOr(ctx, uc.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
	uc.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
		observability.L("outcome", out),
	)
	uc.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
	)
	return err
}
