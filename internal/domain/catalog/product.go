package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("catalog: product not found")
	ErrInvalidQuantity   = errors.New("catalog: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
	ErrInvalidProduct    = errors.New("catalog: invalid product")
)

// Product is a sellable item and its on-hand stock.
type Product struct {
	SKU       string
	Title     string
	UnitPrice decimal.Decimal
	Stock     int
	UpdatedAt time.Time
}

// NewProduct validates the record an administrative load provides.
func NewProduct(sku, title string, unitPrice decimal.Decimal, stock int) (*Product, error) {
	p := &Product{
		SKU:       sku,
		Title:     title,
		UnitPrice: unitPrice,
		Stock:     stock,
		UpdatedAt: time.Now().UTC(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Product) Validate() error {
	switch {
	case p.SKU == "":
		return errors.Join(ErrInvalidProduct, errors.New("sku is required"))
	case p.UnitPrice.IsNegative():
		return errors.Join(ErrInvalidProduct, errors.New("unit price must not be negative"))
	case p.Stock < 0:
		return errors.Join(ErrInvalidProduct, errors.New("stock must not be negative"))
	}
	return nil
}

func (p *Product) HasStock(quantity int) bool {
	return p.Stock >= quantity
}

// Deduct reserves quantity units. Stock never goes negative.
func (p *Product) Deduct(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > p.Stock {
		return ErrInsufficientStock
	}
	p.Stock -= quantity
	p.touch()
	return nil
}

// Restock returns quantity units, undoing a Deduct.
func (p *Product) Restock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	p.Stock += quantity
	p.touch()
	return nil
}

// LineTotal is the unrounded price of quantity units.
func (p *Product) LineTotal(quantity int) decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}
