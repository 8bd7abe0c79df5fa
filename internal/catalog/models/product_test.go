package models_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ecommerce/internal/catalog/models"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/money"
)

type ProductSuite struct {
	suite.Suite
	now   time.Time
	later time.Time
	price money.Money
}

func TestProductSuite(t *testing.T) {
	suite.Run(t, new(ProductSuite))
}

func (s *ProductSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.later = s.now.Add(time.Minute)
	s.price = money.MustParse("299.99", "CNY")
}

func (s *ProductSuite) widget(stock int) *models.Product {
	p, err := models.NewProduct("Widget", "A demo widget", s.price, stock, s.now)
	s.Require().NoError(err)
	return p
}

func (s *ProductSuite) TestConstruction() {
	s.Run("trims fields and starts on the shelf", func() {
		p, err := models.NewProduct("  Widget ", "  blue  ", s.price, 50, s.now)
		s.Require().NoError(err)
		s.NotEmpty(p.ID())
		s.Equal("Widget", p.Name())
		s.Equal("blue", p.Description())
		s.True(p.IsAvailable())
		s.Equal(50, p.StockQuantity())
		s.True(p.Price().Equal(s.price))
	})

	s.Run("missing description defaults to empty", func() {
		p, err := models.NewProduct("Widget", "", s.price, 0, s.now)
		s.Require().NoError(err)
		s.Equal("", p.Description())
		s.True(p.IsOutOfStock())
	})

	s.Run("rejects malformed input", func() {
		cases := map[string]func() error{
			"blank name": func() error {
				_, err := models.NewProduct(" ", "", s.price, 1, s.now)
				return err
			},
			"long name": func() error {
				_, err := models.NewProduct(strings.Repeat("n", 101), "", s.price, 1, s.now)
				return err
			},
			"long description": func() error {
				_, err := models.NewProduct("Widget", strings.Repeat("d", 501), s.price, 1, s.now)
				return err
			},
			"negative stock": func() error {
				_, err := models.NewProduct("Widget", "", s.price, -1, s.now)
				return err
			},
			"missing price": func() error {
				_, err := models.NewProduct("Widget", "", money.Money{}, 1, s.now)
				return err
			},
		}
		for name, fn := range cases {
			s.True(dErrors.IsValidation(fn()), name)
		}
	})
}

func (s *ProductSuite) TestReduceStock() {
	s.Run("reserves units", func() {
		p := s.widget(50)
		s.Require().NoError(p.ReduceStock(2, s.later))
		s.Equal(48, p.StockQuantity())
		s.Equal(s.later, p.LastModifiedAt())
	})

	s.Run("more than stock fails without change", func() {
		p := s.widget(5)
		err := p.ReduceStock(6, s.later)
		s.Require().Error(err)
		s.True(dErrors.IsBusinessRule(err))
		s.Contains(err.Error(), "current stock 5")
		s.Contains(err.Error(), "requested 6")
		s.Equal(5, p.StockQuantity())
		s.Equal(s.now, p.LastModifiedAt())
	})

	s.Run("non-positive quantity is malformed", func() {
		p := s.widget(5)
		s.True(dErrors.IsValidation(p.ReduceStock(0, s.later)))
		s.True(dErrors.IsValidation(p.ReduceStock(-1, s.later)))
	})

	s.Run("off-shelf product cannot be reserved", func() {
		p := s.widget(5)
		s.Require().NoError(p.TakeOffShelf(s.later))
		s.True(dErrors.IsBusinessRule(p.ReduceStock(1, s.later)))
		s.Equal(5, p.StockQuantity())
	})
}

func (s *ProductSuite) TestIncreaseStock() {
	p := s.widget(0)
	s.Require().NoError(p.TakeOffShelf(s.later))
	s.Require().NoError(p.IncreaseStock(3, s.later))
	s.Equal(3, p.StockQuantity())
	s.True(dErrors.IsValidation(p.IncreaseStock(0, s.later)))
}

func (s *ProductSuite) TestShelfTransitions() {
	p := s.widget(0)
	s.True(dErrors.IsBusinessRule(p.PutOnShelf(s.later)))

	s.Require().NoError(p.TakeOffShelf(s.later))
	s.True(dErrors.IsBusinessRule(p.TakeOffShelf(s.later)))

	s.True(dErrors.IsBusinessRule(p.PutOnShelf(s.later)), "no stock")
	s.Require().NoError(p.IncreaseStock(1, s.later))
	s.Require().NoError(p.PutOnShelf(s.later))
	s.True(p.IsAvailable())
}

func (s *ProductSuite) TestUpdateInfo() {
	p := s.widget(10)
	usd := money.MustParse("10", "USD")
	s.Require().NoError(p.UpdateInfo("Gadget", "new", usd, s.later))
	s.Equal("Gadget", p.Name())
	s.True(p.Price().Equal(usd))

	s.Require().NoError(p.TakeOffShelf(s.later))
	err := p.UpdateInfo("Other", "", s.price, s.later)
	s.True(dErrors.IsBusinessRule(err))
	s.Equal("Gadget", p.Name())
}

func (s *ProductSuite) TestStockQueries() {
	p := s.widget(10)
	s.True(p.HasEnoughStock(10))
	s.False(p.HasEnoughStock(11))
	s.True(p.IsLowStock(10))
	s.False(p.IsLowStock(9))

	s.Require().NoError(p.TakeOffShelf(s.later))
	s.False(p.HasEnoughStock(1))
	s.False(p.IsLowStock(10))
}
