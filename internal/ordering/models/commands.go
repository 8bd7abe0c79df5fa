package models

import (
	"strings"

	id "ecommerce/pkg/domain"
	dErrors "ecommerce/pkg/domain-errors"
)

// CreateOrderCommand opens an order for a customer. Currency defaults to the
// service currency when blank.
type CreateOrderCommand struct {
	CustomerID string `json:"customer_id"`
	Currency   string `json:"currency"`

	parsedCustomerID id.CustomerID
}

func (c *CreateOrderCommand) Normalize() {
	c.CustomerID = strings.TrimSpace(c.CustomerID)
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
}

func (c *CreateOrderCommand) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	customerID, err := id.ParseCustomerID(c.CustomerID)
	if err != nil {
		return err
	}
	c.parsedCustomerID = customerID
	return nil
}

// ParsedCustomerID returns the id checked by Validate.
func (c *CreateOrderCommand) ParsedCustomerID() id.CustomerID {
	return c.parsedCustomerID
}

// AddItemCommand adds quantity units of a product to an order.
type AddItemCommand struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`

	parsedProductID id.ProductID
}

func (c *AddItemCommand) Normalize() {
	c.ProductID = strings.TrimSpace(c.ProductID)
}

func (c *AddItemCommand) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	productID, err := id.ParseProductID(c.ProductID)
	if err != nil {
		return err
	}
	if c.Quantity <= 0 {
		return dErrors.New(dErrors.CodeValidation, "quantity must be greater than 0")
	}
	c.parsedProductID = productID
	return nil
}

// ParsedProductID returns the id checked by Validate.
func (c *AddItemCommand) ParsedProductID() id.ProductID {
	return c.parsedProductID
}
