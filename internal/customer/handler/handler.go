package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ecommerce/internal/customer/models"
	id "ecommerce/pkg/domain"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/platform/httputil"
	"ecommerce/pkg/requestcontext"
)

// Service defines the interface for customer operations.
type Service interface {
	CreateCustomer(ctx context.Context, cmd models.CreateCustomerCommand) (*models.Customer, error)
	GetCustomer(ctx context.Context, customerID id.CustomerID) (*models.Customer, error)
	FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, customerID id.CustomerID, cmd models.UpdateCustomerCommand) (*models.Customer, error)
	UpgradeToVip(ctx context.Context, customerID id.CustomerID) (*models.Customer, error)
	ActivateCustomer(ctx context.Context, customerID id.CustomerID) (*models.Customer, error)
	DeactivateCustomer(ctx context.Context, customerID id.CustomerID) (*models.Customer, error)
}

// Handler wires customer endpoints to the customer service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts customer endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/customers", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleFindByEmail)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Post("/{id}/upgrade-to-vip", h.action("upgrade_to_vip", h.service.UpgradeToVip))
		r.Post("/{id}/activate", h.action("activate", h.service.ActivateCustomer))
		r.Post("/{id}/deactivate", h.action("deactivate", h.service.DeactivateCustomer))
	})
}

// HandleCreate handles POST /api/customers.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	cmd, ok := httputil.DecodeAndPrepare[models.CreateCustomerCommand](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.service.CreateCustomer(ctx, *cmd)
	if err != nil {
		h.fail(ctx, w, "create customer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromCustomer(c))
}

// HandleGet handles GET /api/customers/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID, err := id.ParseCustomerID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.GetCustomer(ctx, customerID)
	if err != nil {
		h.fail(ctx, w, "get customer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCustomer(c))
}

// HandleFindByEmail handles GET /api/customers?email=.
func (h *Handler) HandleFindByEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := r.URL.Query().Get("email")
	if email == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "email query parameter is required"))
		return
	}
	c, err := h.service.FindCustomerByEmail(ctx, email)
	if err != nil {
		h.fail(ctx, w, "find customer by email", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCustomer(c))
}

// HandleUpdate handles PUT /api/customers/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	customerID, err := id.ParseCustomerID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cmd, ok := httputil.DecodeAndPrepare[models.UpdateCustomerCommand](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.service.UpdateCustomer(ctx, customerID, *cmd)
	if err != nil {
		h.fail(ctx, w, "update customer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCustomer(c))
}

func (h *Handler) action(name string, fn func(context.Context, id.CustomerID) (*models.Customer, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := id.ParseCustomerID(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		c, err := fn(ctx, customerID)
		if err != nil {
			h.fail(ctx, w, name, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, FromCustomer(c))
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
