package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount     = errors.New("payment: amount must be greater than zero")
	ErrInvalidCredential = errors.New("payment: invalid payment credential")
	ErrDeclined          = errors.New("payment: charge declined")
)

// Gateway charges an amount against an opaque payment credential. A single
// call either succeeds with a charge identifier or fails; it is never retried.
type Gateway interface {
	Charge(ctx context.Context, amount decimal.Decimal, credential string) (string, error)
}
