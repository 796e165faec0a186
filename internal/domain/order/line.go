package order

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// RawLine is a line item as received at the boundary, before normalization.
type RawLine struct {
	SKU      string      `json:"sku"`
	Quantity json.Number `json:"qty"`
}

// Line is a normalized order line. Quantity positivity is a validation rule,
// not a normalization one.
type Line struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"qty"`
}

// QuantityFromJSON passes any well-formed qty value through to Normalize, so
// strings, booleans and nulls become malformed lines instead of decode errors.
// A quoted number is unquoted the way json.Number decoding does it.
func QuantityFromJSON(raw json.RawMessage) json.Number {
	raw = bytes.TrimSpace(raw)
	var s string
	if len(raw) > 0 && raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return json.Number(s)
	}
	return json.Number(raw)
}

var maxQuantity = decimal.NewFromInt(math.MaxInt32)

// Normalize converts raw line items into Lines, rejecting the first line that
// lacks a SKU or a whole-number quantity.
func Normalize(raw []RawLine) ([]Line, error) {
	lines := make([]Line, 0, len(raw))
	for i, r := range raw {
		sku := strings.TrimSpace(r.SKU)
		if sku == "" {
			return nil, &MalformedLineError{Line: i, Reason: "sku is required"}
		}
		qty, reason := parseQuantity(r.Quantity)
		if reason != "" {
			return nil, &MalformedLineError{Line: i, SKU: sku, Reason: reason}
		}
		lines = append(lines, Line{SKU: sku, Quantity: qty})
	}
	return lines, nil
}

func parseQuantity(n json.Number) (int, string) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 0, "quantity is required"
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, "quantity must be a number"
	}
	if !d.IsInteger() {
		return 0, "quantity must be a whole number"
	}
	if d.Abs().GreaterThan(maxQuantity) {
		return 0, "quantity out of range"
	}
	return int(d.IntPart()), ""
}
