package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ecommerce/internal/catalog/models"
	"ecommerce/internal/catalog/service/mocks"
	"ecommerce/internal/catalog/store"
	id "ecommerce/pkg/domain"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/money"
	"ecommerce/pkg/platform/sentinel"
	"ecommerce/pkg/platform/tx"
	"ecommerce/pkg/requestcontext"
)

// =============================================================================
// Catalog Service Test Suite
// =============================================================================

type CatalogServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	service *Service
	ctx     context.Context
	now     time.Time
}

func TestCatalogServiceSuite(t *testing.T) {
	suite.Run(t, new(CatalogServiceSuite))
}

func (s *CatalogServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	var err error
	s.service, err = New(s.store, tx.NewMemoryRunner(nil), WithLowStockThreshold(5))
	s.Require().NoError(err)
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *CatalogServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func price(raw string) *decimal.Decimal {
	d := decimal.RequireFromString(raw)
	return &d
}

func (s *CatalogServiceSuite) widget(stock int) *models.Product {
	p, err := models.NewProduct("Widget", "", money.MustParse("299.99", "CNY"), stock, s.now.Add(-time.Hour))
	s.Require().NoError(err)
	return p
}

func (s *CatalogServiceSuite) TestCreateProduct() {
	s.Run("defaults currency", func() {
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

		p, err := s.service.CreateProduct(s.ctx, models.CreateProductCommand{Name: "Widget", Price: price("299.99"), Stock: 50})
		s.Require().NoError(err)
		s.Equal("CNY 299.99", p.Price().String())
		s.Equal(50, p.StockQuantity())
		s.True(p.IsAvailable())
	})

	s.Run("explicit currency", func() {
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

		p, err := s.service.CreateProduct(s.ctx, models.CreateProductCommand{Name: "Widget", Price: price("10"), Currency: "usd"})
		s.Require().NoError(err)
		s.Equal("USD", p.Price().Currency())
	})

	s.Run("invalid command", func() {
		_, err := s.service.CreateProduct(s.ctx, models.CreateProductCommand{Name: "Widget"})
		s.True(dErrors.IsValidation(err))
	})

	s.Run("save failure is internal", func() {
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

		_, err := s.service.CreateProduct(s.ctx, models.CreateProductCommand{Name: "Widget", Price: price("1")})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *CatalogServiceSuite) TestQueries() {
	s.Run("low stock uses configured threshold for zero", func() {
		s.store.EXPECT().FindLowStockProducts(gomock.Any(), 5).Return([]*models.Product{s.widget(3)}, nil)

		products, err := s.service.ListLowStock(s.ctx, 0)
		s.Require().NoError(err)
		s.Len(products, 1)
	})

	s.Run("negative threshold is rejected", func() {
		_, err := s.service.ListLowStock(s.ctx, -1)
		s.True(dErrors.IsValidation(err))
	})

	s.Run("blank search is rejected", func() {
		_, err := s.service.SearchProducts(s.ctx, "  ")
		s.True(dErrors.IsValidation(err))
	})

	s.Run("missing product", func() {
		missing := id.NewProductID()
		s.store.EXPECT().FindByID(gomock.Any(), missing).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.GetProduct(s.ctx, missing)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *CatalogServiceSuite) TestShelfLifecycle() {
	memory := store.NewInMemory()
	svc, err := New(memory, tx.NewMemoryRunner([]tx.Snapshotter{memory}))
	s.Require().NoError(err)

	p, err := svc.CreateProduct(s.ctx, models.CreateProductCommand{Name: "Widget", Price: price("299.99"), Stock: 0})
	s.Require().NoError(err)

	_, err = svc.TakeOffShelf(s.ctx, p.ID())
	s.Require().NoError(err)

	_, err = svc.UpdateProduct(s.ctx, p.ID(), models.UpdateProductCommand{Name: "Renamed", Price: price("1")})
	s.True(dErrors.IsBusinessRule(err), "off-shelf products cannot be edited")

	_, err = svc.PutOnShelf(s.ctx, p.ID())
	s.True(dErrors.IsBusinessRule(err), "no stock, cannot be listed")

	restocked, err := svc.IncreaseStock(s.ctx, p.ID(), models.IncreaseStockCommand{Quantity: 20})
	s.Require().NoError(err)
	s.Equal(20, restocked.StockQuantity())

	listed, err := svc.PutOnShelf(s.ctx, p.ID())
	s.Require().NoError(err)
	s.True(listed.IsAvailable())

	updated, err := svc.UpdateProduct(s.ctx, p.ID(), models.UpdateProductCommand{Name: "Renamed", Price: price("249.5")})
	s.Require().NoError(err)
	s.Equal("249.50", updated.Price().StringAmount())

	found, err := svc.SearchProducts(s.ctx, "renamed")
	s.Require().NoError(err)
	s.Len(found, 1)

	available, err := svc.ListAvailable(s.ctx)
	s.Require().NoError(err)
	s.Len(available, 1)
}
