package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Result is what a successful order returns to the caller.
type Result struct {
	OrderID     string
	TotalAmount decimal.Decimal
	ChargeID    string
	InvoiceID   string
	ShipmentID  string
	Status      Status
}

// Order is the pipeline's record of one order as it moves through its states.
type Order struct {
	ID              string
	CustomerAddress string
	Lines           []Line
	Status          Status
	FailedStage     Stage
	FailureReason   string
	Total           decimal.Decimal
	ChargeID        string
	InvoiceID       string
	ShipmentID      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func New(id, customerAddress string) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:              id,
		CustomerAddress: customerAddress,
		Status:          StatusReceived,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (o *Order) transition(to Status) error {
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, o.Status, to)
	}
	o.Status = to
	o.touch()
	return nil
}

func (o *Order) Normalized(lines []Line) error {
	if err := o.transition(StatusNormalized); err != nil {
		return err
	}
	o.Lines = append([]Line(nil), lines...)
	return nil
}

func (o *Order) Validated() error { return o.transition(StatusValidated) }

func (o *Order) Priced(total decimal.Decimal) error {
	if err := o.transition(StatusPriced); err != nil {
		return err
	}
	o.Total = total
	return nil
}

func (o *Order) Reserved() error { return o.transition(StatusReserved) }

func (o *Order) Charged(chargeID string) error {
	if err := o.transition(StatusCharged); err != nil {
		return err
	}
	o.ChargeID = chargeID
	return nil
}

func (o *Order) Completed(invoiceID, shipmentID string) error {
	if err := o.transition(StatusCompleted); err != nil {
		return err
	}
	o.InvoiceID = invoiceID
	o.ShipmentID = shipmentID
	return nil
}

func (o *Order) Compensating() error { return o.transition(StatusCompensating) }

func (o *Order) Fail(stage Stage, reason string) error {
	if err := o.transition(StatusFailed); err != nil {
		return err
	}
	o.FailedStage = stage
	o.FailureReason = reason
	return nil
}

// Result projects a completed order onto the caller-facing result.
func (o *Order) Result() *Result {
	return &Result{
		OrderID:     o.ID,
		TotalAmount: o.Total,
		ChargeID:    o.ChargeID,
		InvoiceID:   o.InvoiceID,
		ShipmentID:  o.ShipmentID,
		Status:      o.Status,
	}
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Lines = append([]Line(nil), o.Lines...)
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
