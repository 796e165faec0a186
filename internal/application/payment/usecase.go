package payment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	paymentService  = "payment-service"
	useCaseCharge   = "payment.charge"
	spanPrefix      = "UC."
	gatewayPeer     = "payment-gateway"
	gatewayEndpoint = "charge"
	DefaultTimeout  = 2 * time.Second
	statusOK        = "OK"
	statusTimeout   = "CHARGE_TIMEOUT"
	statusRejected  = "CHARGE_REJECTED"
	statusCanceled  = "CONTEXT_CANCELED"
	outcomeSuccess  = "success"
	outcomeError    = "error"
	outcomeCanceled = "canceled"
	outcomeTimedOut = "timeout"
)

type ChargeInput struct {
	OrderID    string
	Amount     decimal.Decimal
	Credential string
}

type ChargeResult struct {
	ChargeID string
}

// ChargeUseCase makes exactly one gateway call, bounded by a timeout.
type ChargeUseCase struct {
	gateway dompay.Gateway
	timeout time.Duration
	tel     observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

// NewChargeUseCase wires the gateway. A non-positive timeout selects DefaultTimeout.
func NewChargeUseCase(gateway dompay.Gateway, timeout time.Duration, tel observability.Observability) *ChargeUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	m := tel.Metrics()
	return &ChargeUseCase{
		gateway:      gateway,
		timeout:      timeout,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", paymentService)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

// Execute returns the gateway error unchanged (or the context error on timeout)
// so callers can match it with errors.Is.
func (uc *ChargeUseCase) Execute(ctx context.Context, cmd ChargeInput) (_ *ChargeResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseCharge),
		observability.F("order_id", cmd.OrderID),
	)

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"Charge",
		attribute.String("use_case", useCaseCharge),
		attribute.String("order.id", cmd.OrderID),
		attribute.String("payment.amount", cmd.Amount.StringFixed(2)),
	)
	start := time.Now()
	outcome, statusText := outcomeSuccess, statusOK
	var chargeID string

	defer func() {
		lat := time.Since(start).Seconds()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetAttributes(attribute.String("payment.charge_id", chargeID))
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseCharge),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat, observability.L("use_case", useCaseCharge))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
			observability.F("amount", cmd.Amount.StringFixed(2)),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if chargeID != "" {
			fields = append(fields, observability.F("charge_id", chargeID))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if err := ctx.Err(); err != nil {
		outcome, statusText = outcomeCanceled, statusCanceled
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	callStart := time.Now()
	chargeID, err = uc.gateway.Charge(callCtx, cmd.Amount, cmd.Credential)
	extOutcome := outcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		extOutcome = outcomeTimedOut
		outcome, statusText = outcomeError, statusTimeout
	case errors.Is(err, context.Canceled):
		extOutcome = outcomeCanceled
		outcome, statusText = outcomeCanceled, statusCanceled
	default:
		extOutcome = outcomeError
		outcome, statusText = outcomeError, statusRejected
	}
	uc.extCounter.Add(1,
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", gatewayEndpoint),
		observability.L("outcome", extOutcome),
	)
	uc.extHistogram.Observe(time.Since(callStart).Seconds(),
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", gatewayEndpoint),
	)
	if err != nil {
		chargeID = ""
		return nil, err
	}
	return &ChargeResult{ChargeID: chargeID}, nil
}
