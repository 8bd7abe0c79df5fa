package handler

import (
	"time"

	"ecommerce/internal/catalog/models"
	"ecommerce/pkg/money"
)

// ProductDTO is the JSON shape of a product.
type ProductDTO struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	Price          money.Money `json:"price"`
	StockQuantity  int         `json:"stock_quantity"`
	Available      bool        `json:"available"`
	CreatedAt      time.Time   `json:"created_at"`
	LastModifiedAt time.Time   `json:"last_modified_at"`
}

// ProductListResponse wraps product listings.
type ProductListResponse struct {
	Products []*ProductDTO `json:"products"`
	Count    int           `json:"count"`
}

func FromProduct(p *models.Product) *ProductDTO {
	return &ProductDTO{
		ID:             p.ID().String(),
		Name:           p.Name(),
		Description:    p.Description(),
		Price:          p.Price(),
		StockQuantity:  p.StockQuantity(),
		Available:      p.IsAvailable(),
		CreatedAt:      p.CreatedAt(),
		LastModifiedAt: p.LastModifiedAt(),
	}
}

func FromProducts(products []*models.Product) *ProductListResponse {
	out := make([]*ProductDTO, 0, len(products))
	for _, p := range products {
		out = append(out, FromProduct(p))
	}
	return &ProductListResponse{Products: out, Count: len(out)}
}
