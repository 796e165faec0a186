package order

import (
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	apppay "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/payment"
)

type IDGenerator interface {
	NewID() string
}

// Charger runs a single payment attempt.
type Charger = application.UseCase[apppay.ChargeInput, *apppay.ChargeResult]
