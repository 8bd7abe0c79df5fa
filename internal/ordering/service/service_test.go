package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	catalog "ecommerce/internal/catalog/models"
	catalogstore "ecommerce/internal/catalog/store"
	customer "ecommerce/internal/customer/models"
	customerstore "ecommerce/internal/customer/store"
	"ecommerce/internal/ordering/models"
	"ecommerce/internal/ordering/service/mocks"
	orderstore "ecommerce/internal/ordering/store"
	id "ecommerce/pkg/domain"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/email"
	"ecommerce/pkg/money"
	"ecommerce/pkg/platform/events"
	"ecommerce/pkg/platform/tx"
	"ecommerce/pkg/requestcontext"
)

// =============================================================================
// Ordering Service Test Suite
// =============================================================================
// Runs the use cases against the in-memory stores joined by one MemoryRunner,
// so rollbacks and stock restitution are observed end to end. The publisher
// is a mock to pin which events leave the service and when.

type OrderingServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	publisher *mocks.MockPublisher
	customers *customerstore.InMemory
	products  *catalogstore.InMemory
	orders    *orderstore.InMemory
	service   *Service
	ctx       context.Context
	now       time.Time
}

func TestOrderingServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderingServiceSuite))
}

func (s *OrderingServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.customers = customerstore.NewInMemory()
	s.products = catalogstore.NewInMemory()
	s.orders = orderstore.NewInMemory()
	runner := tx.NewMemoryRunner([]tx.Snapshotter{s.customers, s.products, s.orders})

	var err error
	s.service, err = New(s.orders, s.customers, s.products, runner, WithPublisher(s.publisher))
	s.Require().NoError(err)
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithRequestID(requestcontext.WithTime(context.Background(), s.now), "req-1")
}

func (s *OrderingServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *OrderingServiceSuite) givenCustomer(customerType customer.CustomerType) *customer.Customer {
	c, err := customer.NewCustomer("Demo", email.MustParse(string(customerType)+"@example.com"), customerType, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.customers.Save(s.ctx, c))
	return c
}

func (s *OrderingServiceSuite) givenWidget(stock int) *catalog.Product {
	p, err := catalog.NewProduct("Widget", "", money.MustParse("299.99", "CNY"), stock, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.products.Save(s.ctx, p))
	return p
}

func (s *OrderingServiceSuite) expectEvents(types ...string) {
	for _, eventType := range types {
		s.publisher.EXPECT().
			Publish(gomock.Any(), gomock.Cond(func(e events.Event) bool { return e.Type == eventType })).
			Return(nil)
	}
}

func (s *OrderingServiceSuite) stockOf(productID id.ProductID) int {
	p, err := s.products.FindByID(s.ctx, productID)
	s.Require().NoError(err)
	return p.StockQuantity()
}

func (s *OrderingServiceSuite) openOrderWith(c *customer.Customer, p *catalog.Product, quantity int) *models.Order {
	s.expectEvents(models.EventOrderCreated, models.EventItemAdded)
	o, err := s.service.CreateOrder(s.ctx, models.CreateOrderCommand{CustomerID: c.ID().String()})
	s.Require().NoError(err)
	o, err = s.service.AddProductToOrder(s.ctx, o.ID(), models.AddItemCommand{ProductID: p.ID().String(), Quantity: quantity})
	s.Require().NoError(err)
	return o
}

func (s *OrderingServiceSuite) TestNew() {
	runner := tx.NewMemoryRunner(nil)
	_, err := New(nil, s.customers, s.products, runner)
	s.ErrorContains(err, "order store is required")
	_, err = New(s.orders, nil, s.products, runner)
	s.ErrorContains(err, "customer store is required")
	_, err = New(s.orders, s.customers, nil, runner)
	s.ErrorContains(err, "product store is required")
	_, err = New(s.orders, s.customers, s.products, nil)
	s.ErrorContains(err, "transaction runner is required")
}

func (s *OrderingServiceSuite) TestDemoScenario() {
	c := s.givenCustomer(customer.CustomerTypeRegular)
	p := s.givenWidget(50)

	o := s.openOrderWith(c, p, 2)
	s.Equal("599.98", o.TotalAmount().StringAmount())
	s.Equal(48, s.stockOf(p.ID()))

	s.publisher.EXPECT().
		Publish(gomock.Any(), gomock.Cond(func(e events.Event) bool {
			payload, ok := e.Payload.(models.EventPayload)
			return e.Type == models.EventOrderPaid &&
				e.Key == o.ID().String() &&
				e.RequestID == "req-1" &&
				ok && payload.Discount == ""
		})).
		Return(nil)

	paid, err := s.service.PayOrder(s.ctx, o.ID())
	s.Require().NoError(err)
	s.Equal(models.OrderStatusPaid, paid.Status())
	s.Equal("CNY 599.98", paid.TotalAmount().String())
}

func (s *OrderingServiceSuite) TestVipDiscountAppliedOnce() {
	c := s.givenCustomer(customer.CustomerTypeVIP)
	p := s.givenWidget(50)
	o := s.openOrderWith(c, p, 2)

	s.publisher.EXPECT().
		Publish(gomock.Any(), gomock.Cond(func(e events.Event) bool {
			payload, ok := e.Payload.(models.EventPayload)
			return ok && e.Type == models.EventOrderPaid && payload.Discount == "0.05"
		})).
		Return(nil)

	paid, err := s.service.PayOrder(s.ctx, o.ID())
	s.Require().NoError(err)
	s.Equal("569.98", paid.TotalAmount().StringAmount())

	_, err = s.service.PayOrder(s.ctx, o.ID())
	s.True(dErrors.IsBusinessRule(err))

	stored, err := s.service.GetOrder(s.ctx, o.ID())
	s.Require().NoError(err)
	s.Equal("569.98", stored.TotalAmount().StringAmount(), "second payment attempt must not discount again")
}

func (s *OrderingServiceSuite) TestAddProductRollsBackOnRuleViolation() {
	c := s.givenCustomer(customer.CustomerTypeRegular)
	p := s.givenWidget(5)
	o := s.openOrderWith(c, p, 2)

	s.Run("insufficient stock", func() {
		_, err := s.service.AddProductToOrder(s.ctx, o.ID(), models.AddItemCommand{ProductID: p.ID().String(), Quantity: 4})
		s.True(dErrors.IsBusinessRule(err))
		s.Contains(err.Error(), "current stock 3, requested 4")
	})

	s.Run("unavailable product", func() {
		shelved, err := s.products.FindByID(s.ctx, p.ID())
		s.Require().NoError(err)
		s.Require().NoError(shelved.TakeOffShelf(s.now))
		s.Require().NoError(s.products.Save(s.ctx, shelved))

		_, err = s.service.AddProductToOrder(s.ctx, o.ID(), models.AddItemCommand{ProductID: p.ID().String(), Quantity: 1})
		s.True(dErrors.IsBusinessRule(err))
	})

	s.Run("unknown product", func() {
		_, err := s.service.AddProductToOrder(s.ctx, o.ID(), models.AddItemCommand{ProductID: id.NewProductID().String(), Quantity: 1})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Equal(3, s.stockOf(p.ID()))
	stored, err := s.service.GetOrder(s.ctx, o.ID())
	s.Require().NoError(err)
	s.Equal(2, stored.TotalQuantity())
}

func (s *OrderingServiceSuite) TestRemoveItemRestocks() {
	c := s.givenCustomer(customer.CustomerTypeRegular)
	p := s.givenWidget(50)
	o := s.openOrderWith(c, p, 3)
	s.Equal(47, s.stockOf(p.ID()))

	s.expectEvents(models.EventItemRemoved)
	updated, err := s.service.RemoveItem(s.ctx, o.ID(), p.ID())
	s.Require().NoError(err)
	s.True(updated.IsEmpty())
	s.True(updated.TotalAmount().IsZero())
	s.Equal(50, s.stockOf(p.ID()))

	_, err = s.service.RemoveItem(s.ctx, o.ID(), p.ID())
	s.True(dErrors.IsBusinessRule(err))
}

func (s *OrderingServiceSuite) TestLifecycle() {
	c := s.givenCustomer(customer.CustomerTypeRegular)
	p := s.givenWidget(50)

	s.Run("refund on pending fails", func() {
		o := s.openOrderWith(c, p, 1)
		_, err := s.service.RefundOrder(s.ctx, o.ID())
		s.True(dErrors.IsBusinessRule(err))
	})

	s.Run("cancel on delivered fails", func() {
		o := s.openOrderWith(c, p, 1)
		s.expectEvents(models.EventOrderPaid, models.EventOrderShipped, models.EventOrderDelivered, models.EventOrderRefunded)

		_, err := s.service.PayOrder(s.ctx, o.ID())
		s.Require().NoError(err)
		_, err = s.service.ShipOrder(s.ctx, o.ID())
		s.Require().NoError(err)
		delivered, err := s.service.DeliverOrder(s.ctx, o.ID())
		s.Require().NoError(err)
		s.Equal(models.OrderStatusDelivered, delivered.Status())

		_, err = s.service.CancelOrder(s.ctx, o.ID())
		s.True(dErrors.IsBusinessRule(err))

		refunded, err := s.service.RefundOrder(s.ctx, o.ID())
		s.Require().NoError(err)
		s.Equal(models.OrderStatusRefunded, refunded.Status())
	})

	s.Run("cancel returns stock", func() {
		before := s.stockOf(p.ID())
		o := s.openOrderWith(c, p, 4)
		s.Equal(before-4, s.stockOf(p.ID()))

		s.expectEvents(models.EventOrderCancelled)
		cancelled, err := s.service.CancelOrder(s.ctx, o.ID())
		s.Require().NoError(err)
		s.Equal(models.OrderStatusCancelled, cancelled.Status())
		s.Equal(before, s.stockOf(p.ID()))
	})
}

func (s *OrderingServiceSuite) TestPayRejectsEmptyOrder() {
	c := s.givenCustomer(customer.CustomerTypeRegular)
	s.expectEvents(models.EventOrderCreated)
	o, err := s.service.CreateOrder(s.ctx, models.CreateOrderCommand{CustomerID: c.ID().String()})
	s.Require().NoError(err)

	_, err = s.service.PayOrder(s.ctx, o.ID())
	s.True(dErrors.IsBusinessRule(err))
}

func (s *OrderingServiceSuite) TestCreateOrder() {
	s.Run("unknown customer", func() {
		_, err := s.service.CreateOrder(s.ctx, models.CreateOrderCommand{CustomerID: id.NewCustomerID().String()})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("inactive customer", func() {
		c := s.givenCustomer(customer.CustomerTypeEnterprise)
		s.Require().NoError(c.Deactivate(s.now))
		s.Require().NoError(s.customers.Save(s.ctx, c))

		_, err := s.service.CreateOrder(s.ctx, models.CreateOrderCommand{CustomerID: c.ID().String()})
		s.True(dErrors.IsBusinessRule(err))
	})

	s.Run("publish failure does not fail the use case", func() {
		c := s.givenCustomer(customer.CustomerTypeRegular)
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

		o, err := s.service.CreateOrder(s.ctx, models.CreateOrderCommand{CustomerID: c.ID().String(), Currency: "usd"})
		s.Require().NoError(err)
		s.Equal("USD", o.Currency())
	})
}

func (s *OrderingServiceSuite) TestQueries() {
	c := s.givenCustomer(customer.CustomerTypeRegular)
	p := s.givenWidget(50)
	first := s.openOrderWith(c, p, 1)
	s.openOrderWith(c, p, 1)

	s.expectEvents(models.EventOrderPaid)
	_, err := s.service.PayOrder(s.ctx, first.ID())
	s.Require().NoError(err)

	all, err := s.service.ListCustomerOrders(s.ctx, c.ID(), "")
	s.Require().NoError(err)
	s.Len(all, 2)

	paid, err := s.service.ListCustomerOrders(s.ctx, c.ID(), models.OrderStatusPaid)
	s.Require().NoError(err)
	s.Require().Len(paid, 1)
	s.Equal(first.ID(), paid[0].ID())

	pending, err := s.service.ListOrdersByStatus(s.ctx, models.OrderStatusPending)
	s.Require().NoError(err)
	s.Len(pending, 1)

	_, err = s.service.ListOrdersByStatus(s.ctx, "LOST")
	s.True(dErrors.IsValidation(err))

	_, err = s.service.ListCustomerOrders(s.ctx, id.NewCustomerID(), "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// =============================================================================
// Store failures
// =============================================================================

func TestSaveFailureRollsBackStockReservation(t *testing.T) {
	ctrl := gomock.NewController(t)
	orders := mocks.NewMockOrderStore(ctrl)
	products := catalogstore.NewInMemory()
	customers := customerstore.NewInMemory()
	runner := tx.NewMemoryRunner([]tx.Snapshotter{products})
	svc, err := New(orders, customers, products, runner)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	widget, err := catalog.NewProduct("Widget", "", money.MustParse("299.99", "CNY"), 10, now)
	if err != nil {
		t.Fatal(err)
	}
	if err := products.Save(ctx, widget); err != nil {
		t.Fatal(err)
	}
	order, err := models.NewOrder(id.NewCustomerID(), "CNY", now)
	if err != nil {
		t.Fatal(err)
	}

	orders.EXPECT().FindByID(gomock.Any(), order.ID()).Return(order, nil)
	orders.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	_, err = svc.AddProductToOrder(ctx, order.ID(), models.AddItemCommand{ProductID: widget.ID().String(), Quantity: 2})
	if !dErrors.HasCode(err, dErrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	stored, err := products.FindByID(ctx, widget.ID())
	if err != nil {
		t.Fatal(err)
	}
	if stored.StockQuantity() != 10 {
		t.Fatalf("expected stock reservation rolled back, got %d", stored.StockQuantity())
	}
}
