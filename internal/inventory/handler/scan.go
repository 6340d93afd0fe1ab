package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/labstock/labstock-backend/internal/barcode"
	"github.com/labstock/labstock-backend/internal/inventory/service"
	"github.com/labstock/labstock-backend/pkg/httputil"
	"github.com/labstock/labstock-backend/pkg/logger"
)

// ScanHandler resolves scanned reagent codes
type ScanHandler struct {
	inventory *service.InventoryService
	logger    *logger.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(inventory *service.InventoryService, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		inventory: inventory,
		logger:    log.WithComponent("scan-handler"),
	}
}

// RegisterRoutes registers the scan routes
func (h *ScanHandler) RegisterRoutes(r chi.Router) {
	r.Post("/scan", h.Resolve)
}

type scanRequest struct {
	Code   string `json:"code" validate:"required"`
	Format string `json:"format" validate:"omitempty,oneof=standard vendor"`
}

// Resolve decodes a scanned code and looks it up in the catalog
func (h *ScanHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	format := barcode.FormatStandard
	if req.Format == string(barcode.FormatVendor) {
		format = barcode.FormatVendor
	}

	result, err := h.inventory.ResolveCode(r.Context(), req.Code, format)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}
