package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/labstock/labstock-backend/internal/inventory/service"
	"github.com/labstock/labstock-backend/pkg/errors"
	"github.com/labstock/labstock-backend/pkg/httputil"
	"github.com/labstock/labstock-backend/pkg/logger"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// HistoryHandler exposes the movement trail and the stocktake schedule
type HistoryHandler struct {
	inventory *service.InventoryService
	logger    *logger.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(inventory *service.InventoryService, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		inventory: inventory,
		logger:    log.WithComponent("history-handler"),
	}
}

// RegisterRoutes registers the history and stocktake routes
func (h *HistoryHandler) RegisterRoutes(r chi.Router) {
	r.Route("/histories", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Append)
		r.Get("/range", h.ListRange)
		r.Delete("/{id}", h.Delete)
	})

	r.Route("/stocktake", func(r chi.Router) {
		r.Get("/", h.Schedule)
		r.Post("/", h.Record)
	})
}

// List lists the movement trail, paginated
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	histories, total, err := h.inventory.ListHistories(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := (total + perPage - 1) / perPage
	httputil.JSONWithMeta(w, http.StatusOK, histories, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int64(total),
		TotalPages: totalPages,
	})
}

// Append records a manual trail entry to correct the record after the fact
func (h *HistoryHandler) Append(w http.ResponseWriter, r *http.Request) {
	var input service.AppendHistoryInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(input); err != nil {
		httputil.Error(w, err)
		return
	}

	record, err := h.inventory.AppendHistory(r.Context(), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, record)
}

// ListRange lists the trail within a [from, to) window, both RFC 3339
func (h *HistoryHandler) ListRange(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid from parameter"))
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid to parameter"))
		return
	}

	histories, err := h.inventory.ListHistoryRange(r.Context(), from, to)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, histories)
}

// Delete removes a mistaken trail entry
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.inventory.DeleteHistory(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// Schedule reports the last stocktake and when the next one is due
func (h *HistoryHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.inventory.GetStocktakeSchedule(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, schedule)
}

// Record appends a stocktake marker, resetting the schedule
func (h *HistoryHandler) Record(w http.ResponseWriter, r *http.Request) {
	record, err := h.inventory.RecordStocktake(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, record)
}
