package e2e

import (
	"github.com/cucumber/godog"

	"ecommerce/e2e/steps/common"
	"ecommerce/e2e/steps/orders"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (health, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register customer, catalog and order steps
	orders.RegisterSteps(ctx, tc)
}
