package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestFeatures needs a running server. E2E_BASE_URL points at it and
// E2E_ADMIN_TOKEN is a token minted with cmd/admintoken for the same key.
func TestFeatures(t *testing.T) {
	baseURL := os.Getenv("E2E_BASE_URL")
	adminToken := os.Getenv("E2E_ADMIN_TOKEN")
	if baseURL == "" || adminToken == "" {
		t.Skip("E2E_BASE_URL and E2E_ADMIN_TOKEN are required")
	}

	suite := godog.TestSuite{
		Name: "orders",
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			tc := NewTestContext(baseURL, adminToken)
			ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				tc.Reset()
				return ctx, nil
			})
			RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("feature run failed")
	}
}
