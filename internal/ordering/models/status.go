package models

import (
	"strings"

	dErrors "ecommerce/pkg/domain-errors"
)

// OrderStatus is the order lifecycle state.
//
//	PENDING ──pay──▶ PAID ──ship──▶ SHIPPED ──deliver──▶ DELIVERED
//	   │               │               │                    │
//	   └──cancel──▶ CANCELLED ◀──cancel┘               refund (PAID, SHIPPED, DELIVERED) ──▶ REFUNDED
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRefunded  OrderStatus = "REFUNDED"
)

var validStatuses = map[OrderStatus]bool{
	OrderStatusPending:   true,
	OrderStatusPaid:      true,
	OrderStatusShipped:   true,
	OrderStatusDelivered: true,
	OrderStatusCancelled: true,
	OrderStatusRefunded:  true,
}

// ParseOrderStatus accepts a status name case-insensitively.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if st == "" {
		return "", dErrors.New(dErrors.CodeValidation, "order status is required")
	}
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "invalid order status: "+s)
	}
	return st, nil
}

func (s OrderStatus) IsValid() bool {
	return validStatuses[s]
}

func (s OrderStatus) String() string {
	return string(s)
}

// IsModifiable reports whether lines may still be added or removed.
func (s OrderStatus) IsModifiable() bool {
	return s == OrderStatusPending
}

func (s OrderStatus) CanBePaid() bool {
	return s == OrderStatusPending
}

func (s OrderStatus) CanBeCancelled() bool {
	return s == OrderStatusPending || s == OrderStatusPaid
}

func (s OrderStatus) CanBeShipped() bool {
	return s == OrderStatusPaid
}

func (s OrderStatus) CanBeDelivered() bool {
	return s == OrderStatusShipped
}

func (s OrderStatus) CanBeRefunded() bool {
	return s == OrderStatusPaid || s == OrderStatusShipped || s == OrderStatusDelivered
}

// IsTerminal is true when no further transition exists.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}
