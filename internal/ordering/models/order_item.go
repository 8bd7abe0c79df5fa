package models

import (
	"strings"

	id "ecommerce/pkg/domain"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/money"
)

// OrderItem is one order line. It snapshots the product name and unit price
// at the time the line was last added, so later catalog edits do not reach
// into placed orders. Lines are merged by ProductID.
type OrderItem struct {
	productID   id.ProductID
	productName string
	unitPrice   money.Money
	quantity    int
	subtotal    money.Money
}

// NewOrderItem validates a line.
func NewOrderItem(productID id.ProductID, productName string, unitPrice money.Money, quantity int) (OrderItem, error) {
	if productID.IsZero() {
		return OrderItem{}, dErrors.New(dErrors.CodeValidation, "product id is required")
	}
	name := strings.TrimSpace(productName)
	if name == "" {
		return OrderItem{}, dErrors.New(dErrors.CodeValidation, "product name cannot be blank")
	}
	if unitPrice.Currency() == "" {
		return OrderItem{}, dErrors.New(dErrors.CodeValidation, "unit price is required")
	}
	if quantity <= 0 {
		return OrderItem{}, dErrors.New(dErrors.CodeValidation, "quantity must be greater than 0")
	}
	subtotal, err := unitPrice.Times(quantity)
	if err != nil {
		return OrderItem{}, err
	}
	return OrderItem{
		productID:   productID,
		productName: name,
		unitPrice:   unitPrice,
		quantity:    quantity,
		subtotal:    subtotal,
	}, nil
}

// RestoreOrderItem rehydrates a persisted line without validation.
func RestoreOrderItem(productID id.ProductID, productName string, unitPrice money.Money, quantity int) OrderItem {
	subtotal, err := unitPrice.Times(quantity)
	if err != nil {
		subtotal = money.Zero(unitPrice.Currency())
	}
	return OrderItem{
		productID:   productID,
		productName: productName,
		unitPrice:   unitPrice,
		quantity:    quantity,
		subtotal:    subtotal,
	}
}

func (i OrderItem) ProductID() id.ProductID { return i.productID }
func (i OrderItem) ProductName() string     { return i.productName }
func (i OrderItem) UnitPrice() money.Money  { return i.unitPrice }
func (i OrderItem) Quantity() int           { return i.quantity }

// Subtotal is unit price × quantity.
func (i OrderItem) Subtotal() money.Money { return i.subtotal }

func (i OrderItem) IsSameProduct(productID id.ProductID) bool {
	return i.productID == productID
}
