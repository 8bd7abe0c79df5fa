// Package domainservice holds order rules that span more than one aggregate:
// reserving stock while adding a line, choosing a customer discount, and
// re-checking the catalog before payment.
//
// The service owns no state. It reaches products only through ProductStore,
// and every mutation it makes must be committed by the caller's transaction.
package domainservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	catalog "ecommerce/internal/catalog/models"
	customer "ecommerce/internal/customer/models"
	"ecommerce/internal/ordering/models"
	id "ecommerce/pkg/domain"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/platform/sentinel"
)

//go:generate mockgen -source=domainservice.go -destination=mocks/mocks.go -package=mocks ProductStore

// ProductStore is the product port the service needs.
type ProductStore interface {
	FindByID(ctx context.Context, productID id.ProductID) (*catalog.Product, error)
	Save(ctx context.Context, product *catalog.Product) error
}

var (
	rateNone       = decimal.Zero
	rateVIP        = decimal.RequireFromString("0.05")
	rateEnterprise = decimal.RequireFromString("0.10")
)

type Service struct {
	products ProductStore
}

// New constructs the order domain service.
func New(products ProductStore) (*Service, error) {
	if products == nil {
		return nil, errors.New("product store is required")
	}
	return &Service{products: products}, nil
}

// AddProductToOrder adds quantity units of a product to order and reserves
// them from stock, then saves the product. Every check runs before either
// aggregate changes; if the final save fails both in-memory aggregates are
// already mutated and the caller must discard them with its transaction.
func (s *Service) AddProductToOrder(ctx context.Context, order *models.Order, productID id.ProductID, quantity int, now time.Time) error {
	if quantity <= 0 {
		return dErrors.New(dErrors.CodeValidation, "quantity must be greater than 0")
	}
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return err
	}
	if !product.IsAvailable() {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("product %q is not available", product.Name()))
	}
	if !product.HasEnoughStock(quantity) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("insufficient stock for product %q: current stock %d, requested %d",
				product.Name(), product.StockQuantity(), quantity))
	}
	if err := order.CanAddItem(product.ID(), product.Name(), product.Price(), quantity); err != nil {
		return err
	}

	if err := product.ReduceStock(quantity, now); err != nil {
		return err
	}
	if err := order.AddItem(product.ID(), product.Name(), product.Price(), quantity, now); err != nil {
		return err
	}
	if err := s.products.Save(ctx, product); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save product")
	}
	return nil
}

// CalculateCustomerDiscount returns the discount rate for customer. The order
// is accepted for order-value tiers but does not affect the rate today.
func (s *Service) CalculateCustomerDiscount(c *customer.Customer, _ *models.Order) decimal.Decimal {
	if !c.CanReceiveDiscount() {
		return rateNone
	}
	switch c.Type() {
	case customer.CustomerTypeVIP:
		return rateVIP
	case customer.CustomerTypeEnterprise:
		return rateEnterprise
	default:
		return rateNone
	}
}

// ValidateOrderForPayment re-checks the order against the live catalog:
// it must have lines, a non-zero total, and every product must still exist
// and be on the shelf.
func (s *Service) ValidateOrderForPayment(ctx context.Context, order *models.Order) error {
	if order.IsEmpty() {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot pay for an empty order")
	}
	if order.TotalAmount().IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot pay for an order with a zero total")
	}
	for _, item := range order.Items() {
		product, err := s.products.FindByID(ctx, item.ProductID())
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeInvariantViolation,
					fmt.Sprintf("product %q no longer exists", item.ProductName()))
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load product")
		}
		if !product.IsAvailable() {
			return dErrors.New(dErrors.CodeInvariantViolation,
				fmt.Sprintf("product %q is no longer available", product.Name()))
		}
	}
	return nil
}

func (s *Service) loadProduct(ctx context.Context, productID id.ProductID) (*catalog.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "product not found: "+productID.String())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load product")
	}
	return product, nil
}
