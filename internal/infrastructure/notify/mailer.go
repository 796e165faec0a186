package notify

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/notification"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"
)

var ErrNoRecipient = errors.New("notify: recipient is required")

// Mailer stands in for a mail relay: each message becomes one structured log entry.
type Mailer struct {
	sender string
	log    observability.Logger
}

var _ notification.Notifier = (*Mailer)(nil)

func NewMailer(sender string, logger observability.Logger) *Mailer {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Mailer{
		sender: sender,
		log:    logger.With(observability.F("component", "mailer")),
	}
}

func (m *Mailer) Send(ctx context.Context, msg notification.Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	logctx.FromOr(ctx, m.log).Info("mail_sent",
		observability.F("from", m.sender),
		observability.F("to", msg.To),
		observability.F("subject", msg.Subject),
		observability.F("body", msg.Body),
	)
	return nil
}

// Func adapts a function to notification.Notifier.
type Func func(ctx context.Context, msg notification.Message) error

func (f Func) Send(ctx context.Context, msg notification.Message) error { return f(ctx, msg) }
