package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/labstock/labstock-backend/internal/inventory/service"
	"github.com/labstock/labstock-backend/pkg/httputil"
	"github.com/labstock/labstock-backend/pkg/logger"
)

// OrderHandler exposes the reorder worklist
type OrderHandler struct {
	inventory *service.InventoryService
	logger    *logger.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(inventory *service.InventoryService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		inventory: inventory,
		logger:    log.WithComponent("order-handler"),
	}
}

// RegisterRoutes registers the order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Put("/{productNumber}", h.Mark)
	})
}

// List returns the reagents whose reorder policy currently fires
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	needed, err := h.inventory.OrderList(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, needed)
}

type markOrderRequest struct {
	// OrderDate is the day the order was placed; null clears the marker
	OrderDate *time.Time `json:"order_date"`
}

// Mark records or clears a reagent's order date
func (h *OrderHandler) Mark(w http.ResponseWriter, r *http.Request) {
	productNumber := chi.URLParam(r, "productNumber")

	var req markOrderRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.inventory.MarkOrdered(r.Context(), productNumber, req.OrderDate); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
