package models

import (
	"strings"

	"github.com/shopspring/decimal"

	dErrors "ecommerce/pkg/domain-errors"
)

// CreateProductCommand lists a new product. Price accepts a JSON string or
// number; Currency defaults to the service currency when blank.
type CreateProductCommand struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Currency    string           `json:"currency"`
	Stock       int              `json:"stock_quantity"`
}

func (c *CreateProductCommand) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
}

func (c *CreateProductCommand) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if err := validatePriceInput(c.Price); err != nil {
		return err
	}
	if c.Stock < 0 {
		return dErrors.New(dErrors.CodeValidation, "stock_quantity cannot be negative")
	}
	return nil
}

// UpdateProductCommand replaces name, description and price.
type UpdateProductCommand struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Currency    string           `json:"currency"`
}

func (c *UpdateProductCommand) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
}

func (c *UpdateProductCommand) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return validatePriceInput(c.Price)
}

// IncreaseStockCommand restocks a product.
type IncreaseStockCommand struct {
	Quantity int `json:"quantity"`
}

func (c *IncreaseStockCommand) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if c.Quantity <= 0 {
		return dErrors.New(dErrors.CodeValidation, "quantity must be positive")
	}
	return nil
}

func validatePriceInput(price *decimal.Decimal) error {
	if price == nil {
		return dErrors.New(dErrors.CodeValidation, "price is required")
	}
	if price.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "price cannot be negative")
	}
	return nil
}
