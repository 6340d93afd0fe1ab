package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/labstock/labstock-backend/internal/inventory/service"
	"github.com/labstock/labstock-backend/pkg/httputil"
	"github.com/labstock/labstock-backend/pkg/logger"
)

// ReagentHandler manages the reagent catalog
type ReagentHandler struct {
	inventory *service.InventoryService
	ledger    *service.LedgerService
	logger    *logger.Logger
}

// NewReagentHandler creates a new reagent handler
func NewReagentHandler(inventory *service.InventoryService, ledger *service.LedgerService, log *logger.Logger) *ReagentHandler {
	return &ReagentHandler{
		inventory: inventory,
		ledger:    ledger,
		logger:    log.WithComponent("reagent-handler"),
	}
}

// RegisterRoutes registers the reagent routes
func (h *ReagentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/reagents", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Register)

		r.Route("/{productNumber}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/adjust", h.Adjust)
			r.Get("/histories", h.Histories)
			r.Delete("/lots/{lotNumber}", h.DeleteLot)
		})
	})
}

// List lists the catalog. Hidden reagents are included with ?include_hidden=true.
func (h *ReagentHandler) List(w http.ResponseWriter, r *http.Request) {
	includeHidden := r.URL.Query().Get("include_hidden") == "true"

	reagents, err := h.inventory.ListReagents(r.Context(), includeHidden)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, reagents)
}

// Register registers a new reagent
func (h *ReagentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterReagentInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(input); err != nil {
		httputil.Error(w, err)
		return
	}

	reagent, err := h.inventory.RegisterReagent(r.Context(), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, reagent)
}

// Get returns a reagent with its lots and reorder verdict
func (h *ReagentHandler) Get(w http.ResponseWriter, r *http.Request) {
	productNumber := chi.URLParam(r, "productNumber")

	detail, err := h.inventory.GetReagent(r.Context(), productNumber)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, detail)
}

// Update edits a reagent's configuration
func (h *ReagentHandler) Update(w http.ResponseWriter, r *http.Request) {
	productNumber := chi.URLParam(r, "productNumber")

	var input service.UpdateReagentInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(input); err != nil {
		httputil.Error(w, err)
		return
	}

	reagent, err := h.inventory.UpdateReagent(r.Context(), productNumber, input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, reagent)
}

// Delete removes a reagent and its lots
func (h *ReagentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	productNumber := chi.URLParam(r, "productNumber")

	if err := h.inventory.DeleteReagent(r.Context(), productNumber); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// Adjust overwrites a reagent's stock figures after a physical recount
func (h *ReagentHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	productNumber := chi.URLParam(r, "productNumber")

	var input service.AdjustInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	input.ProductNumber = productNumber
	if err := httputil.Validate(input); err != nil {
		httputil.Error(w, err)
		return
	}

	reagent, err := h.ledger.Adjust(r.Context(), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, reagent)
}

// Histories lists a reagent's movement trail
func (h *ReagentHandler) Histories(w http.ResponseWriter, r *http.Request) {
	productNumber := chi.URLParam(r, "productNumber")

	histories, err := h.inventory.ListReagentHistory(r.Context(), productNumber)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, histories)
}

// DeleteLot removes a single lot from a reagent
func (h *ReagentHandler) DeleteLot(w http.ResponseWriter, r *http.Request) {
	productNumber := chi.URLParam(r, "productNumber")
	lotNumber := chi.URLParam(r, "lotNumber")

	if err := h.inventory.DeleteLot(r.Context(), productNumber, lotNumber); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
