package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ecommerce/internal/catalog/models"
	id "ecommerce/pkg/domain"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/platform/httputil"
	"ecommerce/pkg/requestcontext"
)

// Service defines the interface for catalog operations.
type Service interface {
	CreateProduct(ctx context.Context, cmd models.CreateProductCommand) (*models.Product, error)
	GetProduct(ctx context.Context, productID id.ProductID) (*models.Product, error)
	ListAvailable(ctx context.Context) ([]*models.Product, error)
	SearchProducts(ctx context.Context, name string) ([]*models.Product, error)
	ListLowStock(ctx context.Context, threshold int) ([]*models.Product, error)
	UpdateProduct(ctx context.Context, productID id.ProductID, cmd models.UpdateProductCommand) (*models.Product, error)
	IncreaseStock(ctx context.Context, productID id.ProductID, cmd models.IncreaseStockCommand) (*models.Product, error)
	PutOnShelf(ctx context.Context, productID id.ProductID) (*models.Product, error)
	TakeOffShelf(ctx context.Context, productID id.ProductID) (*models.Product, error)
}

// Handler wires catalog endpoints to the catalog service. Writes go through
// the back-office guard.
type Handler struct {
	service    Service
	logger     *slog.Logger
	backOffice func(http.Handler) http.Handler
}

func New(service Service, logger *slog.Logger, backOffice func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, logger: logger, backOffice: backOffice}
}

// Register mounts catalog endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/low-stock", h.HandleLowStock)
		r.Get("/{id}", h.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(h.backOffice)
			r.Post("/", h.HandleCreate)
			r.Put("/{id}", h.HandleUpdate)
			r.Post("/{id}/stock", h.HandleIncreaseStock)
			r.Post("/{id}/on-shelf", h.action("put_on_shelf", h.service.PutOnShelf))
			r.Post("/{id}/off-shelf", h.action("take_off_shelf", h.service.TakeOffShelf))
		})
	})
}

// HandleCreate handles POST /api/products.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	cmd, ok := httputil.DecodeAndPrepare[models.CreateProductCommand](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.service.CreateProduct(ctx, *cmd)
	if err != nil {
		h.fail(ctx, w, "create product", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromProduct(p))
}

// HandleGet handles GET /api/products/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID, err := id.ParseProductID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.GetProduct(ctx, productID)
	if err != nil {
		h.fail(ctx, w, "get product", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProduct(p))
}

// HandleList handles GET /api/products. With ?name= it searches by name,
// otherwise it lists the products on the shelf.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		products []*models.Product
		err      error
	)
	if r.URL.Query().Has("name") {
		products, err = h.service.SearchProducts(ctx, r.URL.Query().Get("name"))
	} else {
		products, err = h.service.ListAvailable(ctx)
	}
	if err != nil {
		h.fail(ctx, w, "list products", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProducts(products))
}

// HandleLowStock handles GET /api/products/low-stock?threshold=.
func (h *Handler) HandleLowStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	threshold := 0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "threshold must be an integer"))
			return
		}
		threshold = parsed
	}
	products, err := h.service.ListLowStock(ctx, threshold)
	if err != nil {
		h.fail(ctx, w, "list low stock", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProducts(products))
}

// HandleUpdate handles PUT /api/products/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	productID, err := id.ParseProductID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cmd, ok := httputil.DecodeAndPrepare[models.UpdateProductCommand](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.service.UpdateProduct(ctx, productID, *cmd)
	if err != nil {
		h.fail(ctx, w, "update product", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProduct(p))
}

// HandleIncreaseStock handles POST /api/products/{id}/stock.
func (h *Handler) HandleIncreaseStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	productID, err := id.ParseProductID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cmd, ok := httputil.DecodeAndPrepare[models.IncreaseStockCommand](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.service.IncreaseStock(ctx, productID, *cmd)
	if err != nil {
		h.fail(ctx, w, "increase stock", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProduct(p))
}

func (h *Handler) action(name string, fn func(context.Context, id.ProductID) (*models.Product, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		productID, err := id.ParseProductID(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		p, err := fn(ctx, productID)
		if err != nil {
			h.fail(ctx, w, name, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, FromProduct(p))
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
