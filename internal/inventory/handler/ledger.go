package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/labstock/labstock-backend/internal/inventory/service"
	"github.com/labstock/labstock-backend/pkg/httputil"
	"github.com/labstock/labstock-backend/pkg/logger"
)

// LedgerHandler exposes lot-level stock movements
type LedgerHandler struct {
	ledger *service.LedgerService
	logger *logger.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(ledger *service.LedgerService, log *logger.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger: ledger,
		logger: log.WithComponent("ledger-handler"),
	}
}

// RegisterRoutes registers the ledger routes
func (h *LedgerHandler) RegisterRoutes(r chi.Router) {
	r.Route("/lots", func(r chi.Router) {
		r.Post("/inbound", h.Inbound)
		r.Post("/outbound", h.Outbound)
	})
}

// Inbound receives stock into a lot
func (h *LedgerHandler) Inbound(w http.ResponseWriter, r *http.Request) {
	var input service.InboundInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(input); err != nil {
		httputil.Error(w, err)
		return
	}

	state, err := h.ledger.Inbound(r.Context(), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, state)
}

// Outbound removes stock from a lot. A 409 EXPIRY_ORDER_VIOLATION response
// names the lot to use first; callers retry with force to override.
func (h *LedgerHandler) Outbound(w http.ResponseWriter, r *http.Request) {
	var input service.OutboundInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(input); err != nil {
		httputil.Error(w, err)
		return
	}

	state, err := h.ledger.Outbound(r.Context(), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, state)
}
