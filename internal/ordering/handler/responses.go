package handler

import (
	"time"

	"ecommerce/internal/ordering/models"
	"ecommerce/pkg/money"
)

// OrderItemDTO is the JSON shape of an order line.
type OrderItemDTO struct {
	ProductID   string      `json:"product_id"`
	ProductName string      `json:"product_name"`
	UnitPrice   money.Money `json:"unit_price"`
	Quantity    int         `json:"quantity"`
	Subtotal    money.Money `json:"subtotal"`
}

// OrderDTO is the JSON shape of an order.
type OrderDTO struct {
	ID             string         `json:"id"`
	CustomerID     string         `json:"customer_id"`
	Status         string         `json:"status"`
	TotalAmount    money.Money    `json:"total_amount"`
	Items          []OrderItemDTO `json:"items"`
	TotalQuantity  int            `json:"total_quantity"`
	CreatedAt      time.Time      `json:"created_at"`
	LastModifiedAt time.Time      `json:"last_modified_at"`
}

// OrderListResponse wraps order listings.
type OrderListResponse struct {
	Orders []*OrderDTO `json:"orders"`
	Count  int         `json:"count"`
}

func FromOrder(o *models.Order) *OrderDTO {
	items := make([]OrderItemDTO, 0, o.ItemCount())
	for _, item := range o.Items() {
		items = append(items, OrderItemDTO{
			ProductID:   item.ProductID().String(),
			ProductName: item.ProductName(),
			UnitPrice:   item.UnitPrice(),
			Quantity:    item.Quantity(),
			Subtotal:    item.Subtotal(),
		})
	}
	return &OrderDTO{
		ID:             o.ID().String(),
		CustomerID:     o.CustomerID().String(),
		Status:         string(o.Status()),
		TotalAmount:    o.TotalAmount(),
		Items:          items,
		TotalQuantity:  o.TotalQuantity(),
		CreatedAt:      o.CreatedAt(),
		LastModifiedAt: o.LastModifiedAt(),
	}
}

func FromOrders(orders []*models.Order) *OrderListResponse {
	out := make([]*OrderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, FromOrder(o))
	}
	return &OrderListResponse{Orders: out, Count: len(out)}
}
