package handler

import (
	"time"

	"ecommerce/internal/customer/models"
)

// CustomerDTO is the JSON shape of a customer.
type CustomerDTO struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	CustomerType   string    `json:"customer_type"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	LastModifiedAt time.Time `json:"last_modified_at"`
}

func FromCustomer(c *models.Customer) *CustomerDTO {
	return &CustomerDTO{
		ID:             c.ID().String(),
		Name:           c.Name(),
		Email:          c.Email().String(),
		CustomerType:   string(c.Type()),
		Active:         c.IsActive(),
		CreatedAt:      c.CreatedAt(),
		LastModifiedAt: c.LastModifiedAt(),
	}
}
