// Package test drives the assembled HTTP API in process, from customer
// registration through order fulfilment.
package test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogHandler "ecommerce/internal/catalog/handler"
	catalogService "ecommerce/internal/catalog/service"
	catalogStore "ecommerce/internal/catalog/store"
	customerHandler "ecommerce/internal/customer/handler"
	customerService "ecommerce/internal/customer/service"
	customerStore "ecommerce/internal/customer/store"
	orderHandler "ecommerce/internal/ordering/handler"
	"ecommerce/internal/ordering/models"
	orderService "ecommerce/internal/ordering/service"
	orderStore "ecommerce/internal/ordering/store"
	"ecommerce/internal/platform/idempotency"
	httptransport "ecommerce/internal/transport/http"
	"ecommerce/pkg/platform/events"
	"ecommerce/pkg/platform/middleware/admin"
	"ecommerce/pkg/platform/tx"
	"ecommerce/pkg/testutil"
)

type recordedEvents struct {
	mu    sync.Mutex
	types []string
}

func (r *recordedEvents) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, e.Type)
	return nil
}

func (r *recordedEvents) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

func newAPI(t *testing.T) (http.Handler, *recordedEvents) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	customers := customerStore.NewInMemory()
	products := catalogStore.NewInMemory()
	orders := orderStore.NewInMemory()
	runner := tx.NewMemoryRunner([]tx.Snapshotter{customers, products, orders})
	published := &recordedEvents{}

	customerSvc, err := customerService.New(customers, runner)
	require.NoError(t, err)
	catalogSvc, err := catalogService.New(products, runner)
	require.NoError(t, err)
	orderSvc, err := orderService.New(orders, customers, products, runner, orderService.WithPublisher(published))
	require.NoError(t, err)

	idem := idempotency.NewMiddleware(idempotency.NewInMemory(), time.Hour)
	backOffice := admin.RequireAdmin(logger)

	return httptransport.NewRouter(httptransport.Deps{
		Logger: logger,
		Modules: []httptransport.Registrar{
			customerHandler.New(customerSvc, logger),
			catalogHandler.New(catalogSvc, logger, backOffice),
			orderHandler.New(orderSvc, logger, backOffice, idem.Handler),
		},
	}), published
}

func TestOrderJourney(t *testing.T) {
	api, published := newAPI(t)
	var customer *customerHandler.CustomerDTO
	var widget *catalogHandler.ProductDTO

	testutil.Given(t, "a registered customer and a stocked product", func(t *testing.T) {
		rr := testutil.DoRequest(api, testutil.NewJSONRequest(t, http.MethodPost, "/api/customers", map[string]any{
			"name":          "Demo",
			"email":         "demo@example.com",
			"customer_type": "REGULAR",
		}))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		customer = testutil.UnmarshalResponse[customerHandler.CustomerDTO](t, rr)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/products", map[string]any{
			"name":           "Widget",
			"price":          "299.99",
			"currency":       "CNY",
			"stock_quantity": 50,
		})
		rr = testutil.DoRequest(api, testutil.WithAdmin(req, "ops"))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		widget = testutil.UnmarshalResponse[catalogHandler.ProductDTO](t, rr)
	})
	require.NotNil(t, customer)
	require.NotNil(t, widget)

	testutil.When(t, "the customer orders two widgets and pays", func(t *testing.T) {
		rr := testutil.DoRequest(api, testutil.NewJSONRequest(t, http.MethodPost, "/api/orders", map[string]any{
			"customer_id": customer.ID,
		}))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		order := testutil.UnmarshalResponse[orderHandler.OrderDTO](t, rr)

		rr = testutil.DoRequest(api, testutil.NewJSONRequest(t, http.MethodPost, "/api/orders/"+order.ID+"/items", map[string]any{
			"product_id": widget.ID,
			"quantity":   2,
		}))
		testutil.AssertStatusOK(t, rr)

		rr = testutil.DoRequest(api, testutil.NewRequest(t, http.MethodPost, "/api/orders/"+order.ID+"/pay"))
		testutil.AssertStatusOK(t, rr)
		paid := testutil.UnmarshalResponse[orderHandler.OrderDTO](t, rr)

		testutil.Then(t, "the order is paid at full price and stock is reserved", func(t *testing.T) {
			assert.Equal(t, "PAID", paid.Status)
			assert.Equal(t, "599.98", paid.TotalAmount.StringAmount())
			assert.Equal(t, "CNY", paid.TotalAmount.Currency())

			rr := testutil.DoRequest(api, testutil.NewRequest(t, http.MethodGet, "/api/products/"+widget.ID))
			testutil.AssertStatusOK(t, rr)
			assert.Equal(t, 48, testutil.UnmarshalResponse[catalogHandler.ProductDTO](t, rr).StockQuantity)
		})

		testutil.Then(t, "shipping requires a back-office operator", func(t *testing.T) {
			rr := testutil.DoRequest(api, testutil.NewRequest(t, http.MethodPost, "/api/orders/"+order.ID+"/ship"))
			testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")

			req := testutil.WithAdmin(testutil.NewRequest(t, http.MethodPost, "/api/orders/"+order.ID+"/ship"), "ops")
			rr = testutil.DoRequest(api, req)
			testutil.AssertStatusOK(t, rr)
			testutil.AssertJSONContains(t, rr, "status", "SHIPPED")
		})

		testutil.Then(t, "a shipped order cannot be cancelled", func(t *testing.T) {
			rr := testutil.DoRequest(api, testutil.NewRequest(t, http.MethodPost, "/api/orders/"+order.ID+"/cancel"))
			testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "business_rule_violation")
		})
	})

	testutil.Then(t, "every transition was published in order", func(t *testing.T) {
		assert.Equal(t, []string{
			models.EventOrderCreated,
			models.EventItemAdded,
			models.EventOrderPaid,
			models.EventOrderShipped,
		}, published.Types())
	})
}

func TestVipPaysDiscountedTotal(t *testing.T) {
	api, _ := newAPI(t)

	rr := testutil.DoRequest(api, testutil.NewJSONRequest(t, http.MethodPost, "/api/customers", map[string]any{
		"name":  "Vera",
		"email": "vera@example.com",
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	customer := testutil.UnmarshalResponse[customerHandler.CustomerDTO](t, rr)
	assert.Equal(t, "REGULAR", customer.CustomerType)

	rr = testutil.DoRequest(api, testutil.NewRequest(t, http.MethodPost, "/api/customers/"+customer.ID+"/upgrade-to-vip"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "customer_type", "VIP")

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/products", map[string]any{
		"name":           "Widget",
		"price":          "299.99",
		"currency":       "CNY",
		"stock_quantity": 5,
	})
	rr = testutil.DoRequest(api, testutil.WithAdmin(req, "ops"))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	widget := testutil.UnmarshalResponse[catalogHandler.ProductDTO](t, rr)

	rr = testutil.DoRequest(api, testutil.NewJSONRequest(t, http.MethodPost, "/api/orders", map[string]any{"customer_id": customer.ID}))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	order := testutil.UnmarshalResponse[orderHandler.OrderDTO](t, rr)

	rr = testutil.DoRequest(api, testutil.NewJSONRequest(t, http.MethodPost, "/api/orders/"+order.ID+"/items", map[string]any{
		"product_id": widget.ID,
		"quantity":   6,
	}))
	testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "business_rule_violation")

	rr = testutil.DoRequest(api, testutil.NewJSONRequest(t, http.MethodPost, "/api/orders/"+order.ID+"/items", map[string]any{
		"product_id": widget.ID,
		"quantity":   2,
	}))
	testutil.AssertStatusOK(t, rr)

	rr = testutil.DoRequest(api, testutil.NewRequest(t, http.MethodPost, "/api/orders/"+order.ID+"/pay"))
	testutil.AssertStatusOK(t, rr)
	paid := testutil.UnmarshalResponse[orderHandler.OrderDTO](t, rr)
	assert.Equal(t, "569.98", paid.TotalAmount.StringAmount())
}
