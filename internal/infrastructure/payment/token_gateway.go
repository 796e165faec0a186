package payment

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
)

const (
	DefaultCredentialPrefix = "tok_"
	DefaultChargePrefix     = "ch_"
)

// TokenGateway simulates a card processor: credentials are tokens with a fixed
// prefix and the charge id is derived from the token, so a given credential
// always yields the same charge id.
type TokenGateway struct {
	credentialPrefix string
	chargePrefix     string
	latency          time.Duration
	declined         map[string]struct{}
}

var _ dompay.Gateway = (*TokenGateway)(nil)

type Option func(*TokenGateway)

// WithLatency makes every charge block for d (or until the context ends).
func WithLatency(d time.Duration) Option {
	return func(g *TokenGateway) { g.latency = d }
}

// WithDeclined makes the gateway decline the listed credentials.
func WithDeclined(credentials ...string) Option {
	return func(g *TokenGateway) {
		for _, c := range credentials {
			g.declined[c] = struct{}{}
		}
	}
}

func WithPrefixes(credential, charge string) Option {
	return func(g *TokenGateway) {
		if credential != "" {
			g.credentialPrefix = credential
		}
		if charge != "" {
			g.chargePrefix = charge
		}
	}
}

func NewTokenGateway(opts ...Option) *TokenGateway {
	g := &TokenGateway{
		credentialPrefix: DefaultCredentialPrefix,
		chargePrefix:     DefaultChargePrefix,
		declined:         make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *TokenGateway) Charge(ctx context.Context, amount decimal.Decimal, credential string) (string, error) {
	if !amount.IsPositive() {
		return "", dompay.ErrInvalidAmount
	}
	suffix, ok := strings.CutPrefix(credential, g.credentialPrefix)
	if !ok || suffix == "" {
		return "", dompay.ErrInvalidCredential
	}

	if g.latency > 0 {
		timer := time.NewTimer(g.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return "", err
	}

	if _, declined := g.declined[credential]; declined {
		return "", dompay.ErrDeclined
	}
	return g.chargePrefix + suffix, nil
}
