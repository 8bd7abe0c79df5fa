package domainservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	catalog "ecommerce/internal/catalog/models"
	customer "ecommerce/internal/customer/models"
	"ecommerce/internal/ordering/domainservice/mocks"
	"ecommerce/internal/ordering/models"
	id "ecommerce/pkg/domain"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/email"
	"ecommerce/pkg/money"
	"ecommerce/pkg/platform/sentinel"
)

// =============================================================================
// Order Domain Service Test Suite
// =============================================================================
// The service coordinates Order and Product. Tests pin the all-or-nothing
// behavior of stock reservation and the payment re-validation against the
// catalog port.

type DomainServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	products *mocks.MockProductStore
	service  *Service
	ctx      context.Context
	now      time.Time
}

func TestDomainServiceSuite(t *testing.T) {
	suite.Run(t, new(DomainServiceSuite))
}

func (s *DomainServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.products = mocks.NewMockProductStore(s.ctrl)
	var err error
	s.service, err = New(s.products)
	s.Require().NoError(err)
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *DomainServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *DomainServiceSuite) widget(stock int) *catalog.Product {
	p, err := catalog.NewProduct("Widget", "", money.MustParse("299.99", "CNY"), stock, s.now)
	s.Require().NoError(err)
	return p
}

func (s *DomainServiceSuite) pendingOrder() *models.Order {
	o, err := models.NewOrder(id.NewCustomerID(), "CNY", s.now)
	s.Require().NoError(err)
	return o
}

func (s *DomainServiceSuite) TestNew() {
	_, err := New(nil)
	s.Require().Error(err)
	s.Contains(err.Error(), "product store is required")
}

func (s *DomainServiceSuite) TestAddProductToOrder() {
	s.Run("adds line, reserves stock and saves product", func() {
		product := s.widget(50)
		order := s.pendingOrder()
		s.products.EXPECT().FindByID(s.ctx, product.ID()).Return(product, nil)
		s.products.EXPECT().Save(s.ctx, product).Return(nil)

		err := s.service.AddProductToOrder(s.ctx, order, product.ID(), 2, s.now)
		s.Require().NoError(err)
		s.Equal(1, order.ItemCount())
		s.Equal(2, order.TotalQuantity())
		s.Equal("599.98", order.TotalAmount().StringAmount())
		s.Equal("CNY", order.TotalAmount().Currency())
		s.Equal(48, product.StockQuantity())
	})

	s.Run("unavailable product leaves both aggregates unchanged", func() {
		product := s.widget(50)
		s.Require().NoError(product.TakeOffShelf(s.now))
		order := s.pendingOrder()
		s.products.EXPECT().FindByID(s.ctx, product.ID()).Return(product, nil)

		err := s.service.AddProductToOrder(s.ctx, order, product.ID(), 2, s.now)
		s.True(dErrors.IsBusinessRule(err))
		s.Contains(err.Error(), "Widget")
		s.True(order.IsEmpty())
		s.Equal(50, product.StockQuantity())
	})

	s.Run("insufficient stock reports name, stock and request", func() {
		product := s.widget(1)
		order := s.pendingOrder()
		s.products.EXPECT().FindByID(s.ctx, product.ID()).Return(product, nil)

		err := s.service.AddProductToOrder(s.ctx, order, product.ID(), 3, s.now)
		s.True(dErrors.IsBusinessRule(err))
		s.Contains(err.Error(), `"Widget"`)
		s.Contains(err.Error(), "current stock 1")
		s.Contains(err.Error(), "requested 3")
		s.True(order.IsEmpty())
		s.Equal(1, product.StockQuantity())
	})

	s.Run("order that cannot accept lines does not reserve stock", func() {
		product := s.widget(5)
		order := s.pendingOrder()
		s.Require().NoError(order.Cancel(s.now))
		s.products.EXPECT().FindByID(s.ctx, product.ID()).Return(product, nil)

		err := s.service.AddProductToOrder(s.ctx, order, product.ID(), 1, s.now)
		s.True(dErrors.IsBusinessRule(err))
		s.Equal(5, product.StockQuantity())
	})

	s.Run("currency mismatch does not reserve stock", func() {
		product := s.widget(5)
		order := s.pendingOrder()
		s.Require().NoError(order.AddItem(id.NewProductID(), "Import", money.MustParse("5", "USD"), 1, s.now))
		s.products.EXPECT().FindByID(s.ctx, product.ID()).Return(product, nil)

		err := s.service.AddProductToOrder(s.ctx, order, product.ID(), 1, s.now)
		s.True(dErrors.IsValidation(err))
		s.Equal(5, product.StockQuantity())
		s.Equal(1, order.ItemCount())
	})

	s.Run("missing product is not found", func() {
		order := s.pendingOrder()
		missing := id.NewProductID()
		s.products.EXPECT().FindByID(s.ctx, missing).Return(nil, sentinel.ErrNotFound)

		err := s.service.AddProductToOrder(s.ctx, order, missing, 1, s.now)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("non-positive quantity never reaches the store", func() {
		err := s.service.AddProductToOrder(s.ctx, s.pendingOrder(), id.NewProductID(), 0, s.now)
		s.True(dErrors.IsValidation(err))
	})

	s.Run("save failure surfaces as internal", func() {
		product := s.widget(5)
		s.products.EXPECT().FindByID(s.ctx, product.ID()).Return(product, nil)
		s.products.EXPECT().Save(s.ctx, product).Return(errors.New("db down"))

		err := s.service.AddProductToOrder(s.ctx, s.pendingOrder(), product.ID(), 1, s.now)
		s.True(dErrors.Is(err, dErrors.CodeInternal))
	})
}

func (s *DomainServiceSuite) TestCalculateCustomerDiscount() {
	addr := email.MustParse("demo@example.com")
	cases := []struct {
		name     string
		tier     customer.CustomerType
		inactive bool
		want     string
	}{
		{"regular", customer.CustomerTypeRegular, false, "0"},
		{"vip", customer.CustomerTypeVIP, false, "0.05"},
		{"enterprise", customer.CustomerTypeEnterprise, false, "0.1"},
		{"inactive vip", customer.CustomerTypeVIP, true, "0"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			c, err := customer.NewCustomer("Demo", addr, tc.tier, s.now)
			s.Require().NoError(err)
			if tc.inactive {
				s.Require().NoError(c.Deactivate(s.now))
			}
			got := s.service.CalculateCustomerDiscount(c, s.pendingOrder())
			s.True(got.Equal(decimal.RequireFromString(tc.want)), "got %s", got)
		})
	}
}

func (s *DomainServiceSuite) TestValidateOrderForPayment() {
	s.Run("empty order", func() {
		s.True(dErrors.IsBusinessRule(s.service.ValidateOrderForPayment(s.ctx, s.pendingOrder())))
	})

	s.Run("zero total", func() {
		order := s.pendingOrder()
		s.Require().NoError(order.AddItem(id.NewProductID(), "Sample", money.Zero("CNY"), 1, s.now))
		s.True(dErrors.IsBusinessRule(s.service.ValidateOrderForPayment(s.ctx, order)))
	})

	s.Run("every product still listed", func() {
		product := s.widget(5)
		order := s.pendingOrder()
		s.Require().NoError(order.AddItem(product.ID(), product.Name(), product.Price(), 1, s.now))
		s.products.EXPECT().FindByID(s.ctx, product.ID()).Return(product, nil)
		s.NoError(s.service.ValidateOrderForPayment(s.ctx, order))
	})

	s.Run("product taken off the shelf since adding", func() {
		product := s.widget(5)
		order := s.pendingOrder()
		s.Require().NoError(order.AddItem(product.ID(), product.Name(), product.Price(), 1, s.now))
		s.Require().NoError(product.TakeOffShelf(s.now))
		s.products.EXPECT().FindByID(s.ctx, product.ID()).Return(product, nil)

		err := s.service.ValidateOrderForPayment(s.ctx, order)
		s.True(dErrors.IsBusinessRule(err))
		s.Contains(err.Error(), "no longer available")
	})

	s.Run("product deleted since adding", func() {
		order := s.pendingOrder()
		gone := id.NewProductID()
		s.Require().NoError(order.AddItem(gone, "Gone", money.MustParse("1", "CNY"), 1, s.now))
		s.products.EXPECT().FindByID(s.ctx, gone).Return(nil, sentinel.ErrNotFound)

		err := s.service.ValidateOrderForPayment(s.ctx, order)
		s.True(dErrors.IsBusinessRule(err))
		s.Contains(err.Error(), "no longer exists")
	})
}
