package order

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	lines, err := Normalize([]RawLine{
		{SKU: " BK-001 ", Quantity: "2"},
		{SKU: "BK-001", Quantity: "1"},
		{SKU: "BK-002", Quantity: "0"},
		{SKU: "BK-003", Quantity: "-3"},
		{SKU: "BK-003", Quantity: "4.0"},
	})
	require.NoError(t, err)
	// duplicates stay separate and non-positive quantities are left to validation
	assert.Equal(t, []Line{
		{SKU: "BK-001", Quantity: 2},
		{SKU: "BK-001", Quantity: 1},
		{SKU: "BK-002", Quantity: 0},
		{SKU: "BK-003", Quantity: -3},
		{SKU: "BK-003", Quantity: 4},
	}, lines)
}

func TestNormalizeRejectsMalformedLines(t *testing.T) {
	tests := []struct {
		name   string
		line   RawLine
		reason string
	}{
		{"missing sku", RawLine{Quantity: "1"}, "sku is required"},
		{"blank sku", RawLine{SKU: "   ", Quantity: "1"}, "sku is required"},
		{"missing quantity", RawLine{SKU: "BK-001"}, "quantity is required"},
		{"not a number", RawLine{SKU: "BK-001", Quantity: "two"}, "quantity must be a number"},
		{"fractional", RawLine{SKU: "BK-001", Quantity: "1.5"}, "quantity must be a whole number"},
		{"too large", RawLine{SKU: "BK-001", Quantity: "1e12"}, "quantity out of range"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize([]RawLine{{SKU: "OK", Quantity: "1"}, tc.line})
			var malformed *MalformedLineError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, 1, malformed.Line)
			assert.Equal(t, tc.reason, malformed.Reason)
		})
	}
}

func TestRawLineDecodesJSONQuantity(t *testing.T) {
	var raw []RawLine
	require.NoError(t, json.Unmarshal([]byte(`[{"sku":"laptop","qty":1},{"sku":"mouse","qty":2.5},{"sku":"pad"}]`), &raw))

	_, err := Normalize(raw[:1])
	require.NoError(t, err)

	_, err = Normalize(raw[1:2])
	var malformed *MalformedLineError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "quantity must be a whole number", malformed.Reason)

	_, err = Normalize(raw[2:])
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "quantity is required", malformed.Reason)
}

func TestQuantityFromJSON(t *testing.T) {
	tests := []struct {
		raw    string
		qty    int
		reason string
	}{
		{raw: `3`, qty: 3},
		{raw: `"3"`, qty: 3},
		{raw: ``, reason: "quantity is required"},
		{raw: `"abc"`, reason: "quantity must be a number"},
		{raw: `true`, reason: "quantity must be a number"},
		{raw: `null`, reason: "quantity must be a number"},
		{raw: `[1]`, reason: "quantity must be a number"},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			lines, err := Normalize([]RawLine{{SKU: "BK-001", Quantity: QuantityFromJSON(json.RawMessage(tc.raw))}})
			if tc.reason == "" {
				require.NoError(t, err)
				assert.Equal(t, tc.qty, lines[0].Quantity)
				return
			}
			var malformed *MalformedLineError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tc.reason, malformed.Reason)
		})
	}
}
