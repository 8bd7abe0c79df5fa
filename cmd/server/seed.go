package main

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	catalogModels "ecommerce/internal/catalog/models"
	catalogService "ecommerce/internal/catalog/service"
	customerModels "ecommerce/internal/customer/models"
	customerService "ecommerce/internal/customer/service"
	dErrors "ecommerce/pkg/domain-errors"
)

const (
	demoEmail   = "demo@example.com"
	demoProduct = "Widget"
)

// seedDemo creates the demo customer and product unless they already exist.
func seedDemo(ctx context.Context, customers *customerService.Service, catalog *catalogService.Service, log *slog.Logger) error {
	c, err := customers.FindCustomerByEmail(ctx, demoEmail)
	switch {
	case err == nil:
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		c, err = customers.CreateCustomer(ctx, customerModels.CreateCustomerCommand{
			Name:  "Demo",
			Email: demoEmail,
			Type:  "REGULAR",
		})
		if err != nil {
			return err
		}
	default:
		return err
	}

	existing, err := catalog.SearchProducts(ctx, demoProduct)
	if err != nil {
		return err
	}
	for _, p := range existing {
		if p.Name() == demoProduct {
			log.InfoContext(ctx, "demo data present", "customer_id", c.ID().String(), "product_id", p.ID().String())
			return nil
		}
	}

	price := decimal.RequireFromString("299.99")
	p, err := catalog.CreateProduct(ctx, catalogModels.CreateProductCommand{
		Name:        demoProduct,
		Description: "Demo widget",
		Price:       &price,
		Currency:    "CNY",
		Stock:       50,
	})
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "demo data seeded", "customer_id", c.ID().String(), "product_id", p.ID().String())
	return nil
}
