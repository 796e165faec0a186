package order

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderHappyPathTransitions(t *testing.T) {
	o := New("o-1", "ada@example.com")
	require.Equal(t, StatusReceived, o.Status)

	require.NoError(t, o.Normalized([]Line{{SKU: "laptop", Quantity: 1}}))
	require.NoError(t, o.Validated())
	require.NoError(t, o.Priced(decimal.NewFromInt(1200)))
	require.NoError(t, o.Reserved())
	require.NoError(t, o.Charged("ch_visa"))
	require.NoError(t, o.Completed("INV-1", "SHP-1"))

	res := o.Result()
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "ch_visa", res.ChargeID)
	assert.True(t, res.TotalAmount.Equal(decimal.NewFromInt(1200)))
	assert.True(t, o.Status.Terminal())
}

func TestOrderCompensationPath(t *testing.T) {
	o := New("o-2", "ada@example.com")
	require.NoError(t, o.Normalized(nil))
	require.NoError(t, o.Validated())
	require.NoError(t, o.Priced(decimal.Zero))
	require.NoError(t, o.Reserved())
	require.NoError(t, o.Compensating())
	require.NoError(t, o.Fail(StageCharge, "declined"))

	assert.Equal(t, StatusFailed, o.Status)
	assert.Equal(t, StageCharge, o.FailedStage)
}

func TestOrderRejectsIllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		run  func(o *Order) error
	}{
		{"skip validation", func(o *Order) error { return o.Priced(decimal.Zero) }},
		{"charge before reserve", func(o *Order) error { return o.Charged("ch_x") }},
		{"compensate from received", func(o *Order) error { return o.Compensating() }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run(New("o", "a"))
			assert.True(t, errors.Is(err, ErrInvalidStateTransition))
		})
	}

	done := New("o", "a")
	require.NoError(t, done.Fail(StageNormalize, "bad line"))
	assert.ErrorIs(t, done.Fail(StageNormalize, "again"), ErrInvalidStateTransition)
}

func TestCloneCopiesLines(t *testing.T) {
	o := New("o-3", "a")
	require.NoError(t, o.Normalized([]Line{{SKU: "x", Quantity: 1}}))
	c := o.Clone()
	c.Lines[0].Quantity = 9
	assert.Equal(t, 1, o.Lines[0].Quantity)
}

func TestStageErrorUnwraps(t *testing.T) {
	cause := &ValidationError{Rule: RuleNoStock, Line: 0, SKU: "laptop"}
	err := error(&StageError{OrderID: "o-4", Stage: StageValidate, Err: cause})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, RuleNoStock, ve.Rule)
	assert.Contains(t, err.Error(), "no stock for laptop")

	perr := &PaymentError{Err: errors.New("declined")}
	assert.ErrorIs(t, &StageError{Stage: StageCharge, Err: perr}, perr.Err)
}
