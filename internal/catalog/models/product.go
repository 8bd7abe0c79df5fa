package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	id "ecommerce/pkg/domain"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/money"
)

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
)

// Product is the aggregate root for a sellable item and its stock.
//
// Invariants:
//   - Name is non-blank after trimming and at most 100 characters
//   - Description is at most 500 characters, trimmed, "" when absent
//   - Price is a valid Money value
//   - StockQuantity never drops below zero
//   - Stock can only be reserved while the product is on the shelf
//   - A product with no stock cannot be put on the shelf
//   - Name, description and price are frozen while off the shelf
type Product struct {
	id             id.ProductID
	name           string
	description    string
	price          money.Money
	stockQuantity  int
	available      bool
	createdAt      time.Time
	lastModifiedAt time.Time
}

// NewProduct lists a new product. It starts on the shelf.
func NewProduct(name, description string, price money.Money, stock int, now time.Time) (*Product, error) {
	n, err := validateName(name)
	if err != nil {
		return nil, err
	}
	d, err := validateDescription(description)
	if err != nil {
		return nil, err
	}
	if err := validatePrice(price); err != nil {
		return nil, err
	}
	if stock < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "stock quantity cannot be negative")
	}
	return &Product{
		id:             id.NewProductID(),
		name:           n,
		description:    d,
		price:          price,
		stockQuantity:  stock,
		available:      true,
		createdAt:      now,
		lastModifiedAt: now,
	}, nil
}

// RestoreProduct rehydrates persisted state. No business rules are checked.
func RestoreProduct(
	productID id.ProductID,
	name, description string,
	price money.Money,
	stock int,
	available bool,
	createdAt, lastModifiedAt time.Time,
) *Product {
	return &Product{
		id:             productID,
		name:           name,
		description:    description,
		price:          price,
		stockQuantity:  stock,
		available:      available,
		createdAt:      createdAt,
		lastModifiedAt: lastModifiedAt,
	}
}

func (p *Product) ID() id.ProductID          { return p.id }
func (p *Product) Name() string              { return p.name }
func (p *Product) Description() string       { return p.description }
func (p *Product) Price() money.Money        { return p.price }
func (p *Product) StockQuantity() int        { return p.stockQuantity }
func (p *Product) IsAvailable() bool         { return p.available }
func (p *Product) CreatedAt() time.Time      { return p.createdAt }
func (p *Product) LastModifiedAt() time.Time { return p.lastModifiedAt }

// Clone returns an independent copy.
func (p *Product) Clone() *Product {
	cp := *p
	return &cp
}

// UpdateInfo replaces name, description and price of an on-shelf product.
func (p *Product) UpdateInfo(name, description string, price money.Money, now time.Time) error {
	if !p.available {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot update a product that is off the shelf")
	}
	n, err := validateName(name)
	if err != nil {
		return err
	}
	d, err := validateDescription(description)
	if err != nil {
		return err
	}
	if err := validatePrice(price); err != nil {
		return err
	}
	p.name = n
	p.description = d
	p.price = price
	p.lastModifiedAt = now
	return nil
}

// ReduceStock reserves quantity units.
func (p *Product) ReduceStock(quantity int, now time.Time) error {
	if !p.available {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("product %q is off the shelf", p.name))
	}
	if quantity <= 0 {
		return dErrors.New(dErrors.CodeValidation, "quantity to reduce must be greater than 0")
	}
	if p.stockQuantity < quantity {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("insufficient stock for %q: current stock %d, requested %d", p.name, p.stockQuantity, quantity))
	}
	p.stockQuantity -= quantity
	p.lastModifiedAt = now
	return nil
}

// IncreaseStock restocks. Allowed while off the shelf.
func (p *Product) IncreaseStock(quantity int, now time.Time) error {
	if quantity <= 0 {
		return dErrors.New(dErrors.CodeValidation, "quantity to add must be greater than 0")
	}
	p.stockQuantity += quantity
	p.lastModifiedAt = now
	return nil
}

// TakeOffShelf fails if the product is already off the shelf.
func (p *Product) TakeOffShelf(now time.Time) error {
	if !p.available {
		return dErrors.New(dErrors.CodeInvariantViolation, "product is already off the shelf")
	}
	p.available = false
	p.lastModifiedAt = now
	return nil
}

// PutOnShelf fails if the product is already listed or has no stock.
func (p *Product) PutOnShelf(now time.Time) error {
	if p.available {
		return dErrors.New(dErrors.CodeInvariantViolation, "product is already on the shelf")
	}
	if p.stockQuantity <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot put a product with no stock on the shelf")
	}
	p.available = true
	p.lastModifiedAt = now
	return nil
}

// HasEnoughStock is true when the product is listed and can cover quantity.
func (p *Product) HasEnoughStock(quantity int) bool {
	return p.available && p.stockQuantity >= quantity
}

func (p *Product) IsOutOfStock() bool {
	return p.stockQuantity <= 0
}

// IsLowStock is true for listed products at or below threshold units.
func (p *Product) IsLowStock(threshold int) bool {
	return p.available && p.stockQuantity <= threshold
}

func validateName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", dErrors.New(dErrors.CodeValidation, "product name cannot be blank")
	}
	if utf8.RuneCountInString(n) > MaxNameLength {
		return "", dErrors.New(dErrors.CodeValidation, "product name must be 100 characters or less")
	}
	return n, nil
}

func validateDescription(description string) (string, error) {
	d := strings.TrimSpace(description)
	if utf8.RuneCountInString(d) > MaxDescriptionLength {
		return "", dErrors.New(dErrors.CodeValidation, "product description must be 500 characters or less")
	}
	return d, nil
}

func validatePrice(price money.Money) error {
	if price.Currency() == "" {
		return dErrors.New(dErrors.CodeValidation, "product price is required")
	}
	return nil
}
