package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	domcatalog "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"
)

const catalogService = "catalog-service"

// ProductInput is a product as supplied by configuration or an operator.
type ProductInput struct {
	SKU   string
	Title string
	Price string
	Stock int
}

// Service is the read and administrative side of the catalog.
type Service struct {
	store domcatalog.Store
	log   observability.Logger
}

func NewService(store domcatalog.Store, logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		store: store,
		log:   logger.With(observability.F("service", catalogService)),
	}
}

func (s *Service) List(ctx context.Context) ([]domcatalog.Product, error) {
	products, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return products, nil
}

func (s *Service) Get(ctx context.Context, sku string) (domcatalog.Product, error) {
	p, err := s.store.Get(ctx, sku)
	if err != nil {
		return domcatalog.Product{}, fmt.Errorf("catalog: get: %w", err)
	}
	return p, nil
}

// Load validates every input first and only then upserts them, so a bad
// entry leaves the catalog unchanged.
func (s *Service) Load(ctx context.Context, inputs ...ProductInput) ([]domcatalog.Product, error) {
	products := make([]domcatalog.Product, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for i, in := range inputs {
		p, err := ParseProduct(in)
		if err != nil {
			return nil, fmt.Errorf("catalog: load entry %d: %w", i, err)
		}
		if _, dup := seen[p.SKU]; dup {
			return nil, fmt.Errorf("catalog: load entry %d: %w", i,
				errors.Join(domcatalog.ErrInvalidProduct, fmt.Errorf("duplicate sku %s", p.SKU)))
		}
		seen[p.SKU] = struct{}{}
		products = append(products, p)
	}

	logger := logctx.FromOr(ctx, s.log)
	for _, p := range products {
		if err := s.store.Upsert(ctx, p); err != nil {
			return nil, fmt.Errorf("catalog: upsert %s: %w", p.SKU, err)
		}
		logger.Info("product_loaded",
			observability.F("sku", p.SKU),
			observability.F("price", p.UnitPrice.StringFixed(2)),
			observability.F("stock", p.Stock),
		)
	}
	return products, nil
}

// ParseProduct builds a validated product from its textual form.
func ParseProduct(in ProductInput) (domcatalog.Product, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil {
		return domcatalog.Product{}, errors.Join(domcatalog.ErrInvalidProduct, fmt.Errorf("price %q: %w", in.Price, err))
	}
	p, err := domcatalog.NewProduct(strings.TrimSpace(in.SKU), in.Title, price, in.Stock)
	if err != nil {
		return domcatalog.Product{}, err
	}
	return *p, nil
}
