package order

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("order: not found")
	ErrConflict               = errors.New("order: already exists")
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
)

// Rule names the validation rule an order violated.
type Rule string

const (
	RuleMissingAddress      Rule = "missing_address"
	RuleEmptyOrder          Rule = "empty_order"
	RuleNonPositiveQuantity Rule = "non_positive_quantity"
	RuleNoStock             Rule = "no_stock"
)

// MalformedLineError reports a line item that could not be normalized.
type MalformedLineError struct {
	Line   int
	SKU    string
	Reason string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("order: malformed line %d: %s", e.Line, e.Reason)
}

// ValidationError reports the first validation rule an order violated.
// Line is -1 for order-level rules.
type ValidationError struct {
	Rule Rule
	Line int
	SKU  string
}

func (e *ValidationError) Error() string {
	switch e.Rule {
	case RuleMissingAddress:
		return "order: validation: customer address is required"
	case RuleEmptyOrder:
		return "order: validation: order must contain at least one item"
	case RuleNonPositiveQuantity:
		return fmt.Sprintf("order: validation: line %d: quantity must be a positive integer", e.Line)
	case RuleNoStock:
		return fmt.Sprintf("order: validation: line %d: no stock for %s", e.Line, e.SKU)
	default:
		return fmt.Sprintf("order: validation: %s", e.Rule)
	}
}

// PaymentError wraps the gateway's rejection of a charge.
type PaymentError struct {
	Err error
}

func (e *PaymentError) Error() string { return "order: payment failed: " + e.Err.Error() }

func (e *PaymentError) Unwrap() error { return e.Err }

// Stage names a pipeline step.
type Stage string

const (
	StageRecord    Stage = "record"
	StageNormalize Stage = "normalize"
	StageValidate  Stage = "validate"
	StageReserve   Stage = "reserve"
	StageCharge    Stage = "charge"
)

// StageError records the pipeline stage an order failed in.
type StageError struct {
	OrderID string
	Stage   Stage
	Err     error
}

func (e *StageError) Error() string {
	if e.OrderID == "" {
		return fmt.Sprintf("order: %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("order %s: %s: %v", e.OrderID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
