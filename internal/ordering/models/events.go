package models

import (
	"ecommerce/pkg/money"
)

// Event types published after an order use case commits.
const (
	EventOrderCreated   = "order.created"
	EventItemAdded      = "order.item_added"
	EventItemRemoved    = "order.item_removed"
	EventOrderPaid      = "order.paid"
	EventOrderShipped   = "order.shipped"
	EventOrderDelivered = "order.delivered"
	EventOrderCancelled = "order.cancelled"
	EventOrderRefunded  = "order.refunded"
)

// EventPayload is the body of every order event. Line fields are set only for
// item events.
type EventPayload struct {
	OrderID    string      `json:"order_id"`
	CustomerID string      `json:"customer_id"`
	Status     OrderStatus `json:"status"`
	Total      money.Money `json:"total"`
	ItemCount  int         `json:"item_count"`
	ProductID  string      `json:"product_id,omitempty"`
	Quantity   int         `json:"quantity,omitempty"`
	Discount   string      `json:"discount_rate,omitempty"`
}

// NewEventPayload snapshots the order for an event.
func NewEventPayload(o *Order) EventPayload {
	return EventPayload{
		OrderID:    o.ID().String(),
		CustomerID: o.CustomerID().String(),
		Status:     o.Status(),
		Total:      o.TotalAmount(),
		ItemCount:  o.ItemCount(),
	}
}
