package models

import (
	"strings"

	dErrors "ecommerce/pkg/domain-errors"
)

// CreateCustomerCommand registers a customer. Type defaults to REGULAR.
type CreateCustomerCommand struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Type  string `json:"customer_type"`
}

func (c *CreateCustomerCommand) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Type = strings.ToUpper(strings.TrimSpace(c.Type))
	if c.Type == "" {
		c.Type = string(CustomerTypeRegular)
	}
}

func (c *CreateCustomerCommand) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(c.Email) == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if c.Type != "" {
		if _, err := ParseCustomerType(c.Type); err != nil {
			return err
		}
	}
	return nil
}

// UpdateCustomerCommand replaces a customer's name and email.
type UpdateCustomerCommand struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (c *UpdateCustomerCommand) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
}

func (c *UpdateCustomerCommand) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(c.Email) == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	return nil
}
