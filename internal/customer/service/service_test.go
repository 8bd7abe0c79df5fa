package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ecommerce/internal/customer/models"
	"ecommerce/internal/customer/service/mocks"
	"ecommerce/internal/customer/store"
	id "ecommerce/pkg/domain"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/email"
	"ecommerce/pkg/platform/sentinel"
	"ecommerce/pkg/platform/tx"
	"ecommerce/pkg/requestcontext"
)

// =============================================================================
// Customer Service Test Suite
// =============================================================================
// Mock-backed tests pin error translation; the memory-backed tests exercise
// the full use case against a real store.

type CustomerServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	service *Service
	ctx     context.Context
	now     time.Time
}

func TestCustomerServiceSuite(t *testing.T) {
	suite.Run(t, new(CustomerServiceSuite))
}

func (s *CustomerServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	var err error
	s.service, err = New(s.store, tx.NewMemoryRunner(nil))
	s.Require().NoError(err)
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *CustomerServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CustomerServiceSuite) existing(customerType models.CustomerType) *models.Customer {
	c, err := models.NewCustomer("Demo", email.MustParse("demo@example.com"), customerType, s.now.Add(-time.Hour))
	s.Require().NoError(err)
	return c
}

func (s *CustomerServiceSuite) TestNew() {
	_, err := New(nil, tx.NewMemoryRunner(nil))
	s.Require().ErrorContains(err, "customer store is required")

	_, err = New(s.store, nil)
	s.Require().ErrorContains(err, "transaction runner is required")
}

func (s *CustomerServiceSuite) TestCreateCustomer() {
	s.Run("registers a regular customer", func() {
		s.store.EXPECT().ExistsByEmail(gomock.Any(), "demo@example.com").Return(false, nil)
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

		c, err := s.service.CreateCustomer(s.ctx, models.CreateCustomerCommand{Name: "Demo", Email: "demo@example.com"})
		s.Require().NoError(err)
		s.Equal(models.CustomerTypeRegular, c.Type())
		s.True(c.IsActive())
		s.Equal(s.now, c.CreatedAt())
	})

	s.Run("duplicate email is a conflict", func() {
		s.store.EXPECT().ExistsByEmail(gomock.Any(), "demo@example.com").Return(true, nil)

		_, err := s.service.CreateCustomer(s.ctx, models.CreateCustomerCommand{Name: "Demo", Email: "demo@example.com"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("domain case does not bypass the duplicate check", func() {
		s.store.EXPECT().ExistsByEmail(gomock.Any(), "demo@example.com").Return(true, nil)

		_, err := s.service.CreateCustomer(s.ctx, models.CreateCustomerCommand{Name: "Demo", Email: "demo@EXAMPLE.com"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("save race on email is a conflict", func() {
		s.store.EXPECT().ExistsByEmail(gomock.Any(), "demo@example.com").Return(false, nil)
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(sentinel.ErrAlreadyUsed)

		_, err := s.service.CreateCustomer(s.ctx, models.CreateCustomerCommand{Name: "Demo", Email: "demo@example.com"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("invalid email never reaches the store", func() {
		_, err := s.service.CreateCustomer(s.ctx, models.CreateCustomerCommand{Name: "Demo", Email: "not-an-email"})
		s.True(dErrors.IsValidation(err))
	})

	s.Run("store failure is internal", func() {
		s.store.EXPECT().ExistsByEmail(gomock.Any(), gomock.Any()).Return(false, errors.New("connection reset"))

		_, err := s.service.CreateCustomer(s.ctx, models.CreateCustomerCommand{Name: "Demo", Email: "demo@example.com"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *CustomerServiceSuite) TestGetCustomer() {
	s.Run("not found", func() {
		missing := id.NewCustomerID()
		s.store.EXPECT().FindByID(gomock.Any(), missing).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.GetCustomer(s.ctx, missing)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("by email", func() {
		c := s.existing(models.CustomerTypeRegular)
		s.store.EXPECT().FindByEmail(gomock.Any(), "demo@example.com").Return(c, nil)

		found, err := s.service.FindCustomerByEmail(s.ctx, " demo@example.com ")
		s.Require().NoError(err)
		s.Equal(c.ID(), found.ID())
	})
}

func (s *CustomerServiceSuite) TestUpgradeToVip() {
	s.Run("regular becomes vip", func() {
		c := s.existing(models.CustomerTypeRegular)
		s.store.EXPECT().FindByID(gomock.Any(), c.ID()).Return(c, nil)
		s.store.EXPECT().Save(gomock.Any(), c).Return(nil)

		upgraded, err := s.service.UpgradeToVip(s.ctx, c.ID())
		s.Require().NoError(err)
		s.Equal(models.CustomerTypeVIP, upgraded.Type())
		s.Equal(s.now, upgraded.LastModifiedAt())
	})

	s.Run("enterprise is not downgraded", func() {
		c := s.existing(models.CustomerTypeEnterprise)
		s.store.EXPECT().FindByID(gomock.Any(), c.ID()).Return(c, nil)

		_, err := s.service.UpgradeToVip(s.ctx, c.ID())
		s.True(dErrors.IsBusinessRule(err))
	})
}

func (s *CustomerServiceSuite) TestUpdateCustomer() {
	s.Run("email owned by another customer is a conflict", func() {
		c := s.existing(models.CustomerTypeRegular)
		other, err := models.NewCustomer("Other", email.MustParse("other@example.com"), models.CustomerTypeRegular, s.now)
		s.Require().NoError(err)
		s.store.EXPECT().FindByID(gomock.Any(), c.ID()).Return(c, nil)
		s.store.EXPECT().FindByEmail(gomock.Any(), "other@example.com").Return(other, nil)

		_, err = s.service.UpdateCustomer(s.ctx, c.ID(), models.UpdateCustomerCommand{Name: "Demo", Email: "other@example.com"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("keeping the own email is allowed", func() {
		c := s.existing(models.CustomerTypeRegular)
		s.store.EXPECT().FindByID(gomock.Any(), c.ID()).Return(c, nil)
		s.store.EXPECT().FindByEmail(gomock.Any(), "demo@example.com").Return(c, nil)
		s.store.EXPECT().Save(gomock.Any(), c).Return(nil)

		updated, err := s.service.UpdateCustomer(s.ctx, c.ID(), models.UpdateCustomerCommand{Name: "Renamed", Email: "demo@example.com"})
		s.Require().NoError(err)
		s.Equal("Renamed", updated.Name())
	})
}

func (s *CustomerServiceSuite) TestActivation() {
	memory := store.NewInMemory()
	svc, err := New(memory, tx.NewMemoryRunner([]tx.Snapshotter{memory}))
	s.Require().NoError(err)

	c, err := svc.CreateCustomer(s.ctx, models.CreateCustomerCommand{Name: "Demo", Email: "demo@example.com"})
	s.Require().NoError(err)

	_, err = svc.ActivateCustomer(s.ctx, c.ID())
	s.True(dErrors.IsBusinessRule(err), "already active")

	deactivated, err := svc.DeactivateCustomer(s.ctx, c.ID())
	s.Require().NoError(err)
	s.False(deactivated.IsActive())

	_, err = svc.UpdateCustomer(s.ctx, c.ID(), models.UpdateCustomerCommand{Name: "New", Email: "demo@example.com"})
	s.True(dErrors.IsBusinessRule(err), "inactive customers cannot be edited")

	stored, err := svc.GetCustomer(s.ctx, c.ID())
	s.Require().NoError(err)
	s.Equal("Demo", stored.Name())

	activated, err := svc.ActivateCustomer(s.ctx, c.ID())
	s.Require().NoError(err)
	s.True(activated.IsActive())
}
