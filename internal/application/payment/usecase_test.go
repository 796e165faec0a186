package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/obstest"
	infrapay "github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/payment"
)

type gatewayFunc func(ctx context.Context, amount decimal.Decimal, credential string) (string, error)

func (f gatewayFunc) Charge(ctx context.Context, amount decimal.Decimal, credential string) (string, error) {
	return f(ctx, amount, credential)
}

func TestChargeUseCaseSuccess(t *testing.T) {
	h := obstest.New(t)
	uc := NewChargeUseCase(infrapay.NewTokenGateway(), time.Second, h.Obs)

	res, err := uc.Execute(context.Background(), ChargeInput{
		OrderID:    "o-1",
		Amount:     decimal.RequireFromString("1200.00"),
		Credential: "tok_visa",
	})
	require.NoError(t, err)
	assert.Equal(t, "ch_visa", res.ChargeID)

	assert.Equal(t, 1.0, h.Counter(t, "usecase_requests_total", map[string]string{"use_case": useCaseCharge, "outcome": "success"}))
	assert.Equal(t, 1.0, h.Counter(t, "external_requests_total", map[string]string{"peer": gatewayPeer, "outcome": "success"}))
	assert.Equal(t, uint64(1), h.HistogramCount(t, "usecase_duration_seconds", map[string]string{"use_case": useCaseCharge}))

	done := h.Logs.FilterMessage("use_case_done").All()
	require.Len(t, done, 1)
	assert.Equal(t, "ch_visa", done[0].ContextMap()["charge_id"])
	assert.Equal(t, "o-1", done[0].ContextMap()["order_id"])
}

func TestChargeUseCasePassesGatewayErrorsThrough(t *testing.T) {
	h := obstest.New(t)
	uc := NewChargeUseCase(infrapay.NewTokenGateway(), time.Second, h.Obs)

	_, err := uc.Execute(context.Background(), ChargeInput{Amount: decimal.NewFromInt(5), Credential: "visa"})
	require.ErrorIs(t, err, dompay.ErrInvalidCredential)

	_, err = uc.Execute(context.Background(), ChargeInput{Amount: decimal.Zero, Credential: "tok_visa"})
	require.ErrorIs(t, err, dompay.ErrInvalidAmount)

	assert.Equal(t, 2.0, h.Counter(t, "usecase_requests_total", map[string]string{"use_case": useCaseCharge, "outcome": "error"}))
	assert.Equal(t, 2.0, h.Counter(t, "external_requests_total", map[string]string{"outcome": "error"}))
	for _, e := range h.Logs.FilterMessage("use_case_done").All() {
		assert.Equal(t, statusRejected, e.ContextMap()["status"])
	}
}

func TestChargeUseCaseTimesOut(t *testing.T) {
	h := obstest.New(t)
	slow := infrapay.NewTokenGateway(infrapay.WithLatency(time.Second))
	uc := NewChargeUseCase(slow, 20*time.Millisecond, h.Obs)

	start := time.Now()
	_, err := uc.Execute(context.Background(), ChargeInput{Amount: decimal.NewFromInt(1), Credential: "tok_slow"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 1.0, h.Counter(t, "external_requests_total", map[string]string{"outcome": "timeout"}))
}

func TestChargeUseCaseMakesOneCall(t *testing.T) {
	calls := 0
	gw := gatewayFunc(func(context.Context, decimal.Decimal, string) (string, error) {
		calls++
		return "", errors.New("gateway unavailable")
	})
	uc := NewChargeUseCase(gw, 0, nil)

	_, err := uc.Execute(context.Background(), ChargeInput{Amount: decimal.NewFromInt(1), Credential: "tok_x"})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestChargeUseCaseSkipsGatewayOnCanceledContext(t *testing.T) {
	gw := gatewayFunc(func(context.Context, decimal.Decimal, string) (string, error) {
		t.Fatal("gateway must not be called")
		return "", nil
	})
	uc := NewChargeUseCase(gw, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uc.Execute(ctx, ChargeInput{Amount: decimal.NewFromInt(1), Credential: "tok_x"})
	assert.ErrorIs(t, err, context.Canceled)
}
