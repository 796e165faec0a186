package notification

import (
	"context"
	"time"
)

// Message is a single outbound notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers messages best-effort. Callers report errors, they never undo work because of them.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// FailedEvent is emitted when a confirmation could not be delivered.
type FailedEvent struct {
	OrderID    string
	To         string
	Reason     string
	OccurredAt time.Time
}

func (FailedEvent) EventName() string { return "notification.failed" }

func NewFailedEvent(orderID, to string, err error) FailedEvent {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return FailedEvent{
		OrderID:    orderID,
		To:         to,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}
