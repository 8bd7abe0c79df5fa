package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/customer/metrics"
	"ecommerce/internal/customer/models"
	id "ecommerce/pkg/domain"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/email"
	"ecommerce/pkg/platform/sentinel"
	"ecommerce/pkg/platform/tracing"
	"ecommerce/pkg/platform/tx"
	"ecommerce/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

type Store interface {
	Save(ctx context.Context, c *models.Customer) error
	FindByID(ctx context.Context, customerID id.CustomerID) (*models.Customer, error)
	FindByEmail(ctx context.Context, addr string) (*models.Customer, error)
	ExistsByEmail(ctx context.Context, addr string) (bool, error)
}

// Service runs customer use cases, one transaction each.
type Service struct {
	customers Store
	tx        tx.Runner
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(customers Store, runner tx.Runner, opts ...Option) (*Service, error) {
	if customers == nil {
		return nil, errors.New("customer store is required")
	}
	if runner == nil {
		return nil, errors.New("transaction runner is required")
	}
	s := &Service{
		customers: customers,
		tx:        runner,
		tracer:    tracing.Tracer("ecommerce/customer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateCustomer registers a customer. A taken email is a conflict.
func (s *Service) CreateCustomer(ctx context.Context, cmd models.CreateCustomerCommand) (_ *models.Customer, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "customer.CreateCustomer")
	defer func() { tracing.End(span, err) }()
	defer s.observe("create_customer", time.Now())

	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	addr, err := email.Parse(cmd.Email)
	if err != nil {
		return nil, err
	}
	customerType, err := models.ParseCustomerType(cmd.Type)
	if err != nil {
		return nil, err
	}

	var created *models.Customer
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exists, err := s.customers.ExistsByEmail(ctx, addr.String())
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email")
		}
		if exists {
			return dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		c, err := models.NewCustomer(cmd.Name, addr, customerType, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		if err := s.save(ctx, c); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, "customer_created",
		"customer_id", created.ID(),
		"customer_type", created.Type(),
	)
	if s.metrics != nil {
		s.metrics.CustomersCreated.Inc()
	}
	return created, nil
}

func (s *Service) GetCustomer(ctx context.Context, customerID id.CustomerID) (_ *models.Customer, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "customer.GetCustomer",
		attribute.String("customer_id", customerID.String()))
	defer func() { tracing.End(span, err) }()
	return s.load(ctx, customerID)
}

func (s *Service) FindCustomerByEmail(ctx context.Context, raw string) (_ *models.Customer, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "customer.FindCustomerByEmail")
	defer func() { tracing.End(span, err) }()

	addr, err := email.Parse(raw)
	if err != nil {
		return nil, err
	}
	c, err := s.customers.FindByEmail(ctx, addr.String())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "customer not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load customer")
	}
	return c, nil
}

// UpdateCustomer changes name and email. The email must not belong to another
// customer.
func (s *Service) UpdateCustomer(ctx context.Context, customerID id.CustomerID, cmd models.UpdateCustomerCommand) (_ *models.Customer, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "customer.UpdateCustomer",
		attribute.String("customer_id", customerID.String()))
	defer func() { tracing.End(span, err) }()
	defer s.observe("update_customer", time.Now())

	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	addr, err := email.Parse(cmd.Email)
	if err != nil {
		return nil, err
	}

	updated, err := s.mutate(ctx, customerID, func(ctx context.Context, c *models.Customer) error {
		owner, err := s.customers.FindByEmail(ctx, addr.String())
		switch {
		case err == nil && owner.ID() != c.ID():
			return dErrors.New(dErrors.CodeConflict, "email already registered")
		case err != nil && !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email")
		}
		return c.UpdateInfo(cmd.Name, addr, requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, "customer_updated", "customer_id", customerID)
	return updated, nil
}

// UpgradeToVip promotes a REGULAR customer.
func (s *Service) UpgradeToVip(ctx context.Context, customerID id.CustomerID) (_ *models.Customer, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "customer.UpgradeToVip",
		attribute.String("customer_id", customerID.String()))
	defer func() { tracing.End(span, err) }()

	c, err := s.mutate(ctx, customerID, func(ctx context.Context, c *models.Customer) error {
		return c.UpgradeToVip(requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, "customer_upgraded_to_vip", "customer_id", customerID)
	if s.metrics != nil {
		s.metrics.VipUpgrades.Inc()
	}
	return c, nil
}

func (s *Service) ActivateCustomer(ctx context.Context, customerID id.CustomerID) (_ *models.Customer, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "customer.ActivateCustomer",
		attribute.String("customer_id", customerID.String()))
	defer func() { tracing.End(span, err) }()

	c, err := s.mutate(ctx, customerID, func(ctx context.Context, c *models.Customer) error {
		return c.Activate(requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, "customer_activated", "customer_id", customerID)
	return c, nil
}

func (s *Service) DeactivateCustomer(ctx context.Context, customerID id.CustomerID) (_ *models.Customer, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "customer.DeactivateCustomer",
		attribute.String("customer_id", customerID.String()))
	defer func() { tracing.End(span, err) }()

	c, err := s.mutate(ctx, customerID, func(ctx context.Context, c *models.Customer) error {
		return c.Deactivate(requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, "customer_deactivated", "customer_id", customerID)
	return c, nil
}

// mutate loads, applies fn and saves inside one transaction.
func (s *Service) mutate(ctx context.Context, customerID id.CustomerID, fn func(ctx context.Context, c *models.Customer) error) (*models.Customer, error) {
	var out *models.Customer
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.load(ctx, customerID)
		if err != nil {
			return err
		}
		if err := fn(ctx, c); err != nil {
			return err
		}
		if err := s.save(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func (s *Service) load(ctx context.Context, customerID id.CustomerID) (*models.Customer, error) {
	c, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "customer not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load customer")
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, c *models.Customer) error {
	if err := s.customers.Save(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save customer")
	}
	return nil
}

func (s *Service) logEvent(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, event, attributes...)
}

func (s *Service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, start)
	}
}
