package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	POST(path string, body interface{}) error
	POSTAsAdmin(path string, body interface{}) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetResponseField(field string) (interface{}, error)
	Save(name, value string)
	Saved(name string) string
}

// RegisterSteps registers customer, catalog and ordering step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &orderSteps{tc: tc}

	ctx.Step(`^a registered "([^"]*)" customer saved as "([^"]*)"$`, steps.registerCustomer)
	ctx.Step(`^a product "([^"]*)" priced "([^"]*)" "([^"]*)" with stock (\d+) saved as "([^"]*)"$`, steps.createProduct)
	ctx.Step(`^I create an order for "([^"]*)"$`, steps.createOrder)
	ctx.Step(`^I add (\d+) of "([^"]*)" to order "([^"]*)"$`, steps.addItem)
	ctx.Step(`^product "([^"]*)" should have stock (\d+)$`, steps.productStockShouldBe)
}

type orderSteps struct {
	tc TestContext
}

func (s *orderSteps) registerCustomer(ctx context.Context, customerType, name string) error {
	email := fmt.Sprintf("%s-%d@example.com", strings.ToLower(customerType), time.Now().UnixNano())
	err := s.tc.POST("/api/customers", map[string]interface{}{
		"name":          "E2E " + customerType,
		"email":         email,
		"customer_type": customerType,
	})
	if err != nil {
		return err
	}
	return s.saveCreatedID(201, name)
}

func (s *orderSteps) createProduct(ctx context.Context, productName, price, currency string, stock int, name string) error {
	err := s.tc.POSTAsAdmin("/api/products", map[string]interface{}{
		"name":           productName,
		"price":          price,
		"currency":       currency,
		"stock_quantity": stock,
	})
	if err != nil {
		return err
	}
	return s.saveCreatedID(201, name)
}

func (s *orderSteps) createOrder(ctx context.Context, customer string) error {
	return s.tc.POST("/api/orders", map[string]interface{}{
		"customer_id": s.tc.Saved(customer),
	})
}

func (s *orderSteps) addItem(ctx context.Context, quantity int, product, order string) error {
	return s.tc.POST("/api/orders/"+s.tc.Saved(order)+"/items", map[string]interface{}{
		"product_id": s.tc.Saved(product),
		"quantity":   quantity,
	})
}

func (s *orderSteps) productStockShouldBe(ctx context.Context, product string, expected int) error {
	if err := s.tc.GET("/api/products/" + s.tc.Saved(product)); err != nil {
		return err
	}
	value, err := s.tc.GetResponseField("stock_quantity")
	if err != nil {
		return err
	}
	// JSON numbers decode as float64
	if got, ok := value.(float64); !ok || int(got) != expected {
		return fmt.Errorf("expected stock %d, got %v", expected, value)
	}
	return nil
}

func (s *orderSteps) saveCreatedID(status int, name string) error {
	if got := s.tc.GetLastResponseStatus(); got != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, got, s.tc.GetLastResponseBody())
	}
	id, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.Save(name, fmt.Sprint(id))
	return nil
}
