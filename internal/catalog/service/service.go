package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/catalog/metrics"
	"ecommerce/internal/catalog/models"
	id "ecommerce/pkg/domain"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/money"
	"ecommerce/pkg/platform/sentinel"
	"ecommerce/pkg/platform/tracing"
	"ecommerce/pkg/platform/tx"
	"ecommerce/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

type Store interface {
	Save(ctx context.Context, p *models.Product) error
	FindByID(ctx context.Context, productID id.ProductID) (*models.Product, error)
	FindAllAvailable(ctx context.Context) ([]*models.Product, error)
	FindByNameContaining(ctx context.Context, fragment string) ([]*models.Product, error)
	FindLowStockProducts(ctx context.Context, threshold int) ([]*models.Product, error)
}

const defaultLowStockThreshold = 10

// Service runs catalog use cases.
type Service struct {
	products          Store
	tx                tx.Runner
	currency          string
	lowStockThreshold int
	logger            *slog.Logger
	metrics           *metrics.Metrics
	tracer            trace.Tracer
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

// WithDefaultCurrency sets the currency used when a command leaves it blank.
func WithDefaultCurrency(currency string) Option {
	return func(s *Service) {
		if currency != "" {
			s.currency = currency
		}
	}
}

// WithLowStockThreshold sets the threshold ListLowStock uses for zero input.
func WithLowStockThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.lowStockThreshold = threshold
		}
	}
}

func New(products Store, runner tx.Runner, opts ...Option) (*Service, error) {
	if products == nil {
		return nil, errors.New("product store is required")
	}
	if runner == nil {
		return nil, errors.New("transaction runner is required")
	}
	s := &Service{
		products:          products,
		tx:                runner,
		currency:          money.DefaultCurrency,
		lowStockThreshold: defaultLowStockThreshold,
		tracer:            tracing.Tracer("ecommerce/catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) CreateProduct(ctx context.Context, cmd models.CreateProductCommand) (_ *models.Product, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "catalog.CreateProduct")
	defer func() { tracing.End(span, err) }()
	defer s.observe("create_product", time.Now())

	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	price, err := s.price(*cmd.Price, cmd.Currency)
	if err != nil {
		return nil, err
	}

	var created *models.Product
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := models.NewProduct(cmd.Name, cmd.Description, price, cmd.Stock, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		if err := s.save(ctx, p); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, "product_created",
		"product_id", created.ID(),
		"price", created.Price().String(),
		"stock_quantity", created.StockQuantity(),
	)
	if s.metrics != nil {
		s.metrics.ProductsCreated.Inc()
	}
	return created, nil
}

func (s *Service) GetProduct(ctx context.Context, productID id.ProductID) (_ *models.Product, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "catalog.GetProduct",
		attribute.String("product_id", productID.String()))
	defer func() { tracing.End(span, err) }()
	return s.load(ctx, productID)
}

// ListAvailable returns the products currently on the shelf.
func (s *Service) ListAvailable(ctx context.Context) (_ []*models.Product, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "catalog.ListAvailable")
	defer func() { tracing.End(span, err) }()

	products, err := s.products.FindAllAvailable(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list products")
	}
	return products, nil
}

// SearchProducts matches name fragments case-insensitively.
func (s *Service) SearchProducts(ctx context.Context, name string) (_ []*models.Product, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "catalog.SearchProducts")
	defer func() { tracing.End(span, err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "search term is required")
	}
	products, err := s.products.FindByNameContaining(ctx, name)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search products")
	}
	return products, nil
}

// ListLowStock returns listed products at or below threshold units. Zero uses
// the configured threshold.
func (s *Service) ListLowStock(ctx context.Context, threshold int) (_ []*models.Product, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "catalog.ListLowStock")
	defer func() { tracing.End(span, err) }()

	if threshold < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "threshold cannot be negative")
	}
	if threshold == 0 {
		threshold = s.lowStockThreshold
	}
	products, err := s.products.FindLowStockProducts(ctx, threshold)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list low stock products")
	}
	return products, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID id.ProductID, cmd models.UpdateProductCommand) (_ *models.Product, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "catalog.UpdateProduct",
		attribute.String("product_id", productID.String()))
	defer func() { tracing.End(span, err) }()
	defer s.observe("update_product", time.Now())

	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	price, err := s.price(*cmd.Price, cmd.Currency)
	if err != nil {
		return nil, err
	}
	p, err := s.mutate(ctx, productID, func(ctx context.Context, p *models.Product) error {
		return p.UpdateInfo(cmd.Name, cmd.Description, price, requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, "product_updated", "product_id", productID, "price", p.Price().String())
	return p, nil
}

func (s *Service) IncreaseStock(ctx context.Context, productID id.ProductID, cmd models.IncreaseStockCommand) (_ *models.Product, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "catalog.IncreaseStock",
		attribute.String("product_id", productID.String()),
		attribute.Int("quantity", cmd.Quantity))
	defer func() { tracing.End(span, err) }()

	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	p, err := s.mutate(ctx, productID, func(ctx context.Context, p *models.Product) error {
		return p.IncreaseStock(cmd.Quantity, requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, "product_restocked",
		"product_id", productID,
		"quantity", cmd.Quantity,
		"stock_quantity", p.StockQuantity(),
	)
	if s.metrics != nil {
		s.metrics.UnitsRestocked.Add(float64(cmd.Quantity))
	}
	return p, nil
}

func (s *Service) PutOnShelf(ctx context.Context, productID id.ProductID) (_ *models.Product, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "catalog.PutOnShelf",
		attribute.String("product_id", productID.String()))
	defer func() { tracing.End(span, err) }()

	p, err := s.mutate(ctx, productID, func(ctx context.Context, p *models.Product) error {
		return p.PutOnShelf(requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, "product_on_shelf", "product_id", productID)
	return p, nil
}

func (s *Service) TakeOffShelf(ctx context.Context, productID id.ProductID) (_ *models.Product, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "catalog.TakeOffShelf",
		attribute.String("product_id", productID.String()))
	defer func() { tracing.End(span, err) }()

	p, err := s.mutate(ctx, productID, func(ctx context.Context, p *models.Product) error {
		return p.TakeOffShelf(requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, "product_off_shelf", "product_id", productID)
	return p, nil
}

func (s *Service) price(amount decimal.Decimal, currency string) (money.Money, error) {
	if currency == "" {
		currency = s.currency
	}
	return money.New(amount, currency)
}

func (s *Service) mutate(ctx context.Context, productID id.ProductID, fn func(ctx context.Context, p *models.Product) error) (*models.Product, error) {
	var out *models.Product
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.load(ctx, productID)
		if err != nil {
			return err
		}
		if err := fn(ctx, p); err != nil {
			return err
		}
		if err := s.save(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

func (s *Service) load(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "product not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load product")
	}
	return p, nil
}

func (s *Service) save(ctx context.Context, p *models.Product) error {
	if err := s.products.Save(ctx, p); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save product")
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
