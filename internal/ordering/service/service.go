// Package service runs the ordering use cases. Each use case is one
// transaction spanning orders and products; events are published only after
// the transaction commits.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	catalog "ecommerce/internal/catalog/models"
	customer "ecommerce/internal/customer/models"
	"ecommerce/internal/ordering/domainservice"
	"ecommerce/internal/ordering/metrics"
	"ecommerce/internal/ordering/models"
	id "ecommerce/pkg/domain"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/money"
	"ecommerce/pkg/platform/events"
	"ecommerce/pkg/platform/sentinel"
	"ecommerce/pkg/platform/tracing"
	"ecommerce/pkg/platform/tx"
	"ecommerce/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks OrderStore,CustomerStore,ProductStore,Publisher

type OrderStore interface {
	Save(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, orderID id.OrderID) (*models.Order, error)
	FindByCustomerID(ctx context.Context, customerID id.CustomerID) ([]*models.Order, error)
	FindByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error)
	FindByCustomerIDAndStatus(ctx context.Context, customerID id.CustomerID, status models.OrderStatus) ([]*models.Order, error)
}

type CustomerStore interface {
	FindByID(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error)
}

type ProductStore interface {
	FindByID(ctx context.Context, productID id.ProductID) (*catalog.Product, error)
	Save(ctx context.Context, product *catalog.Product) error
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service orchestrates orders, customers and products.
type Service struct {
	orders    OrderStore
	customers CustomerStore
	products  ProductStore
	domain    *domainservice.Service
	tx        tx.Runner
	publisher Publisher
	currency  string
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

// WithPublisher sets the sink for order events. Without one events are dropped.
func WithPublisher(publisher Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithDefaultCurrency sets the currency of orders created without one.
func WithDefaultCurrency(currency string) Option {
	return func(s *Service) {
		if currency != "" {
			s.currency = currency
		}
	}
}

func New(orders OrderStore, customers CustomerStore, products ProductStore, runner tx.Runner, opts ...Option) (*Service, error) {
	if orders == nil {
		return nil, errors.New("order store is required")
	}
	if customers == nil {
		return nil, errors.New("customer store is required")
	}
	if products == nil {
		return nil, errors.New("product store is required")
	}
	if runner == nil {
		return nil, errors.New("transaction runner is required")
	}
	domain, err := domainservice.New(products)
	if err != nil {
		return nil, err
	}
	s := &Service{
		orders:    orders,
		customers: customers,
		products:  products,
		domain:    domain,
		tx:        runner,
		currency:  money.DefaultCurrency,
		tracer:    tracing.Tracer("ecommerce/ordering"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateOrder opens an empty order for an existing, active customer.
func (s *Service) CreateOrder(ctx context.Context, cmd models.CreateOrderCommand) (_ *models.Order, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "ordering.CreateOrder")
	defer func() { tracing.End(span, err) }()
	defer s.observe("create_order", time.Now())

	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	currency := cmd.Currency
	if currency == "" {
		currency = s.currency
	}

	var created *models.Order
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.loadCustomer(ctx, cmd.ParsedCustomerID())
		if err != nil {
			return err
		}
		if !c.IsActive() {
			return dErrors.New(dErrors.CodeInvariantViolation, "inactive customers cannot place orders")
		}
		o, err := models.NewOrder(c.ID(), currency, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		if err := s.saveOrder(ctx, o); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned(models.OrderStatusPending)
	s.logEvent(ctx, "order_created", "order_id", created.ID(), "customer_id", created.CustomerID())
	s.publish(ctx, models.EventOrderCreated, created, nil)
	return created, nil
}

// AddProductToOrder reserves stock and adds a line in one transaction.
func (s *Service) AddProductToOrder(ctx context.Context, orderID id.OrderID, cmd models.AddItemCommand) (_ *models.Order, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "ordering.AddProductToOrder",
		attribute.String("order_id", orderID.String()))
	defer func() { tracing.End(span, err) }()
	defer s.observe("add_product", time.Now())

	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	o, err := s.mutate(ctx, orderID, func(ctx context.Context, o *models.Order) error {
		return s.domain.AddProductToOrder(ctx, o, cmd.ParsedProductID(), cmd.Quantity, requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, "order_item_added",
		"order_id", orderID,
		"product_id", cmd.ParsedProductID(),
		"quantity", cmd.Quantity,
		"total", o.TotalAmount().String(),
	)
	s.publish(ctx, models.EventItemAdded, o, func(p *models.EventPayload) {
		p.ProductID = cmd.ParsedProductID().String()
		p.Quantity = cmd.Quantity
	})
	return o, nil
}

// RemoveItem drops a line and returns its units to the product's stock.
func (s *Service) RemoveItem(ctx context.Context, orderID id.OrderID, productID id.ProductID) (_ *models.Order, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "ordering.RemoveItem",
		attribute.String("order_id", orderID.String()),
		attribute.String("product_id", productID.String()))
	defer func() { tracing.End(span, err) }()

	var removed models.OrderItem
	o, err := s.mutate(ctx, orderID, func(ctx context.Context, o *models.Order) error {
		var err error
		removed, err = o.RemoveItem(productID, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		return s.restock(ctx, removed)
	})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, "order_item_removed",
		"order_id", orderID,
		"product_id", productID,
		"quantity", removed.Quantity(),
	)
	s.publish(ctx, models.EventItemRemoved, o, func(p *models.EventPayload) {
		p.ProductID = productID.String()
		p.Quantity = removed.Quantity()
	})
	return o, nil
}

// PayOrder re-checks the order against the catalog, applies the customer's
// discount and marks it PAID. The discount is applied once, in the same
// transaction as the transition.
func (s *Service) PayOrder(ctx context.Context, orderID id.OrderID) (_ *models.Order, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "ordering.PayOrder",
		attribute.String("order_id", orderID.String()))
	defer func() { tracing.End(span, err) }()
	defer s.observe("pay_order", time.Now())

	var rate string
	o, err := s.mutate(ctx, orderID, func(ctx context.Context, o *models.Order) error {
		if err := o.CanPay(); err != nil {
			return err
		}
		if err := s.domain.ValidateOrderForPayment(ctx, o); err != nil {
			return err
		}
		c, err := s.loadCustomer(ctx, o.CustomerID())
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		discount := s.domain.CalculateCustomerDiscount(c, o)
		if discount.IsPositive() {
			if err := o.ApplyDiscount(discount, now); err != nil {
				return err
			}
			rate = discount.String()
		}
		return o.Pay(now)
	})
	if err != nil {
		return nil, err
	}

	s.transitioned(models.OrderStatusPaid)
	if s.metrics != nil {
		amount, _ := o.TotalAmount().Amount().Float64()
		s.metrics.PaidAmount.WithLabelValues(o.Currency()).Add(amount)
		if rate != "" {
			s.metrics.DiscountsApplied.Inc()
		}
	}
	s.logEvent(ctx, "order_paid",
		"order_id", orderID,
		"total", o.TotalAmount().String(),
		"discount_rate", rate,
	)
	s.publish(ctx, models.EventOrderPaid, o, func(p *models.EventPayload) {
		p.Discount = rate
	})
	return o, nil
}

func (s *Service) ShipOrder(ctx context.Context, orderID id.OrderID) (*models.Order, error) {
	return s.transition(ctx, orderID, "ship", models.EventOrderShipped, func(o *models.Order, now time.Time) error {
		return o.Ship(now)
	})
}

func (s *Service) DeliverOrder(ctx context.Context, orderID id.OrderID) (*models.Order, error) {
	return s.transition(ctx, orderID, "deliver", models.EventOrderDelivered, func(o *models.Order, now time.Time) error {
		return o.Deliver(now)
	})
}

func (s *Service) RefundOrder(ctx context.Context, orderID id.OrderID) (*models.Order, error) {
	return s.transition(ctx, orderID, "refund", models.EventOrderRefunded, func(o *models.Order, now time.Time) error {
		return o.Refund(now)
	})
}

// CancelOrder cancels a PENDING or PAID order and returns every line's units
// to stock.
func (s *Service) CancelOrder(ctx context.Context, orderID id.OrderID) (*models.Order, error) {
	return s.transition(ctx, orderID, "cancel", models.EventOrderCancelled, func(o *models.Order, now time.Time) error {
		return o.Cancel(now)
	}, s.restockAll)
}

func (s *Service) GetOrder(ctx context.Context, orderID id.OrderID) (_ *models.Order, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "ordering.GetOrder",
		attribute.String("order_id", orderID.String()))
	defer func() { tracing.End(span, err) }()
	return s.loadOrder(ctx, orderID)
}

// ListCustomerOrders returns a customer's orders, newest first. A zero status
// lists all of them.
func (s *Service) ListCustomerOrders(ctx context.Context, customerID id.CustomerID, status models.OrderStatus) (_ []*models.Order, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "ordering.ListCustomerOrders",
		attribute.String("customer_id", customerID.String()))
	defer func() { tracing.End(span, err) }()

	if _, err := s.loadCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	var orders []*models.Order
	if status == "" {
		orders, err = s.orders.FindByCustomerID(ctx, customerID)
	} else {
		if !status.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid order status: "+string(status))
		}
		orders, err = s.orders.FindByCustomerIDAndStatus(ctx, customerID, status)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list orders")
	}
	return orders, nil
}

func (s *Service) ListOrdersByStatus(ctx context.Context, status models.OrderStatus) (_ []*models.Order, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "ordering.ListOrdersByStatus",
		attribute.String("status", string(status)))
	defer func() { tracing.End(span, err) }()

	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid order status: "+string(status))
	}
	orders, err := s.orders.FindByStatus(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list orders")
	}
	return orders, nil
}

// transition applies a lifecycle step plus optional side effects inside the
// order's transaction.
func (s *Service) transition(
	ctx context.Context,
	orderID id.OrderID,
	action, eventType string,
	step func(o *models.Order, now time.Time) error,
	effects ...func(ctx context.Context, o *models.Order) error,
) (_ *models.Order, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "ordering."+action,
		attribute.String("order_id", orderID.String()))
	defer func() { tracing.End(span, err) }()
	defer s.observe(action+"_order", time.Now())

	o, err := s.mutate(ctx, orderID, func(ctx context.Context, o *models.Order) error {
		if err := step(o, requestcontext.Now(ctx)); err != nil {
			return err
		}
		for _, effect := range effects {
			if err := effect(ctx, o); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned(o.Status())
	s.logEvent(ctx, "order_"+strings.ToLower(string(o.Status())),
		"order_id", orderID,
		"status", o.Status(),
	)
	s.publish(ctx, eventType, o, nil)
	return o, nil
}

func (s *Service) mutate(ctx context.Context, orderID id.OrderID, fn func(ctx context.Context, o *models.Order) error) (*models.Order, error) {
	var out *models.Order
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		o, err := s.loadOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := fn(ctx, o); err != nil {
			return err
		}
		if err := s.saveOrder(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	return out, err
}

func (s *Service) restockAll(ctx context.Context, o *models.Order) error {
	for _, item := range o.Items() {
		if err := s.restock(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// restock returns a line's units to its product. Products deleted since the
// line was added are skipped.
func (s *Service) restock(ctx context.Context, item models.OrderItem) error {
	product, err := s.products.FindByID(ctx, item.ProductID())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logEvent(ctx, "restock_skipped", "product_id", item.ProductID(), "quantity", item.Quantity())
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load product")
	}
	if err := product.IncreaseStock(item.Quantity(), requestcontext.Now(ctx)); err != nil {
		return err
	}
	if err := s.products.Save(ctx, product); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save product")
	}
	return nil
}

func (s *Service) loadOrder(ctx context.Context, orderID id.OrderID) (*models.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "order not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load order")
	}
	return o, nil
}

func (s *Service) loadCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	c, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "customer not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load customer")
	}
	return c, nil
}

func (s *Service) saveOrder(ctx context.Context, o *models.Order) error {
	if err := s.orders.Save(ctx, o); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save order")
	}
	return nil
}

// publish hands a committed change to the publisher. Failures are logged and
// never surface to the caller.
func (s *Service) publish(ctx context.Context, eventType string, o *models.Order, enrich func(*models.EventPayload)) {
	if s.publisher == nil {
		return
	}
	payload := models.NewEventPayload(o)
	if enrich != nil {
		enrich(&payload)
	}
	event := events.New(eventType, o.ID().String(), o.LastModifiedAt(), payload)
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.publisher.Publish(ctx, event); err != nil {
		if s.metrics != nil {
			s.metrics.EventsDropped.Inc()
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "order event not published",
				"event_type", eventType,
				"order_id", o.ID(),
				"request_id", event.RequestID,
				"error", err,
			)
		}
	}
}

func (s *Service) transitioned(status models.OrderStatus) {
	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(string(status)).Inc()
	}
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
