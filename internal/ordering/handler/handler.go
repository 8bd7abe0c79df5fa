package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ecommerce/internal/ordering/models"
	id "ecommerce/pkg/domain"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/platform/httputil"
	"ecommerce/pkg/requestcontext"
)

// Service defines the interface for order operations.
type Service interface {
	CreateOrder(ctx context.Context, cmd models.CreateOrderCommand) (*models.Order, error)
	AddProductToOrder(ctx context.Context, orderID id.OrderID, cmd models.AddItemCommand) (*models.Order, error)
	RemoveItem(ctx context.Context, orderID id.OrderID, productID id.ProductID) (*models.Order, error)
	PayOrder(ctx context.Context, orderID id.OrderID) (*models.Order, error)
	ShipOrder(ctx context.Context, orderID id.OrderID) (*models.Order, error)
	DeliverOrder(ctx context.Context, orderID id.OrderID) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID id.OrderID) (*models.Order, error)
	RefundOrder(ctx context.Context, orderID id.OrderID) (*models.Order, error)
	GetOrder(ctx context.Context, orderID id.OrderID) (*models.Order, error)
	ListCustomerOrders(ctx context.Context, customerID id.CustomerID, status models.OrderStatus) ([]*models.Order, error)
	ListOrdersByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error)
}

type Middleware = func(http.Handler) http.Handler

// Handler wires order endpoints to the ordering service. Every unsafe route
// runs behind the idempotency middleware; fulfilment routes also require
// back-office access.
type Handler struct {
	service    Service
	logger     *slog.Logger
	backOffice Middleware
	idempotent Middleware
}

func New(service Service, logger *slog.Logger, backOffice, idempotent Middleware) *Handler {
	return &Handler{
		service:    service,
		logger:     logger,
		backOffice: backOffice,
		idempotent: idempotent,
	}
}

// Register mounts order endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/", h.HandleListByStatus)
		r.Get("/customer/{customerId}", h.HandleListForCustomer)
		r.Get("/{id}", h.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(h.idempotent)
			r.Post("/", h.HandleCreate)
			r.Post("/{id}/items", h.HandleAddItem)
			r.Delete("/{id}/items/{productId}", h.HandleRemoveItem)
			r.Post("/{id}/pay", h.transition("pay order", h.service.PayOrder))
			r.Post("/{id}/cancel", h.transition("cancel order", h.service.CancelOrder))
		})

		// credentials are checked before a key is reserved
		r.Group(func(r chi.Router) {
			r.Use(h.backOffice)
			r.Use(h.idempotent)
			r.Post("/{id}/ship", h.transition("ship order", h.service.ShipOrder))
			r.Post("/{id}/deliver", h.transition("deliver order", h.service.DeliverOrder))
			r.Post("/{id}/refund", h.transition("refund order", h.service.RefundOrder))
		})
	})
}

// HandleCreate handles POST /api/orders.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	cmd, ok := httputil.DecodeAndPrepare[models.CreateOrderCommand](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	o, err := h.service.CreateOrder(ctx, *cmd)
	if err != nil {
		h.fail(ctx, w, "create order", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromOrder(o))
}

// HandleGet handles GET /api/orders/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, err := id.ParseOrderID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	o, err := h.service.GetOrder(ctx, orderID)
	if err != nil {
		h.fail(ctx, w, "get order", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromOrder(o))
}

// HandleListForCustomer handles GET /api/orders/customer/{customerId}?status=.
func (h *Handler) HandleListForCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID, err := id.ParseCustomerID(chi.URLParam(r, "customerId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var status models.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		if status, err = models.ParseOrderStatus(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	orders, err := h.service.ListCustomerOrders(ctx, customerID, status)
	if err != nil {
		h.fail(ctx, w, "list customer orders", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromOrders(orders))
}

// HandleListByStatus handles GET /api/orders?status=.
func (h *Handler) HandleListByStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := models.ParseOrderStatus(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	orders, err := h.service.ListOrdersByStatus(ctx, status)
	if err != nil {
		h.fail(ctx, w, "list orders by status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromOrders(orders))
}

// HandleAddItem handles POST /api/orders/{id}/items.
func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	orderID, err := id.ParseOrderID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cmd, ok := httputil.DecodeAndPrepare[models.AddItemCommand](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	o, err := h.service.AddProductToOrder(ctx, orderID, *cmd)
	if err != nil {
		h.fail(ctx, w, "add product to order", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromOrder(o))
}

// HandleRemoveItem handles DELETE /api/orders/{id}/items/{productId}.
func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, err := id.ParseOrderID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	productID, err := id.ParseProductID(chi.URLParam(r, "productId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	o, err := h.service.RemoveItem(ctx, orderID, productID)
	if err != nil {
		h.fail(ctx, w, "remove order item", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromOrder(o))
}

func (h *Handler) transition(name string, fn func(context.Context, id.OrderID) (*models.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderID, err := id.ParseOrderID(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		o, err := fn(ctx, orderID)
		if err != nil {
			h.fail(ctx, w, name, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, FromOrder(o))
	}
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, op+" failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
