package order

import "time"

// CompletedEvent is emitted once an order has been charged and shipped.
type CompletedEvent struct {
	OrderID    string
	Total      string
	ChargeID   string
	OccurredAt time.Time
}

func (CompletedEvent) EventName() string { return "order.completed" }

func NewCompletedEvent(o *Order) CompletedEvent {
	return CompletedEvent{
		OrderID:    o.ID,
		Total:      o.Total.StringFixed(2),
		ChargeID:   o.ChargeID,
		OccurredAt: time.Now().UTC(),
	}
}

// FailedEvent is emitted when an order reaches the failed state.
type FailedEvent struct {
	OrderID     string
	Stage       Stage
	Reason      string
	Compensated bool
	OccurredAt  time.Time
}

func (FailedEvent) EventName() string { return "order.failed" }

func NewFailedEvent(o *Order, compensated bool) FailedEvent {
	return FailedEvent{
		OrderID:     o.ID,
		Stage:       o.FailedStage,
		Reason:      o.FailureReason,
		Compensated: compensated,
		OccurredAt:  time.Now().UTC(),
	}
}
