package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/labstock/labstock-backend/internal/barcode"
	"github.com/labstock/labstock-backend/internal/inventory/events"
	"github.com/labstock/labstock-backend/internal/inventory/reorder"
	"github.com/labstock/labstock-backend/internal/inventory/repository"
	"github.com/labstock/labstock-backend/pkg/actor"
	"github.com/labstock/labstock-backend/pkg/errors"
	"github.com/labstock/labstock-backend/pkg/logger"
	"github.com/labstock/labstock-backend/pkg/messaging"
)

// Stocktakes are due every three months.
const stocktakeInterval = 3

// InventoryService manages the reagent catalog: registration, reorder
// evaluation, scanned-code resolution, the movement trail and the
// stocktake schedule. Stock movements themselves go through LedgerService.
type InventoryService struct {
	reagentRepo *repository.ReagentRepository
	lotRepo     *repository.LotRepository
	historyRepo *repository.HistoryRepository
	events      *events.InventoryEventPublisher
	logger      *logger.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	reagentRepo *repository.ReagentRepository,
	lotRepo *repository.LotRepository,
	historyRepo *repository.HistoryRepository,
	eventPublisher *events.InventoryEventPublisher,
	log *logger.Logger,
) *InventoryService {
	return &InventoryService{
		reagentRepo: reagentRepo,
		lotRepo:     lotRepo,
		historyRepo: historyRepo,
		events:      eventPublisher,
		logger:      log.WithComponent("inventory"),
	}
}

// RegisterReagentInput registers a new reagent with its reorder configuration.
type RegisterReagentInput struct {
	ProductNumber          string              `json:"product_number" validate:"required"`
	Name                   string              `json:"name" validate:"required"`
	OrderTriggerStock      int                 `json:"order_trigger_stock" validate:"gte=0"`
	OrderTriggerExpiry     bool                `json:"order_trigger_expiry"`
	NoOrderOnZeroStock     bool                `json:"no_order_on_zero_stock"`
	OrderTriggerValueStock decimal.NullDecimal `json:"order_trigger_value_stock"`
	OrderValue             string              `json:"order_value"`
	OrderQuantity          int                 `json:"order_quantity" validate:"gte=0"`
	Location               string              `json:"location"`
}

// UpdateReagentInput edits a reagent's name, location, visibility and
// reorder configuration.
type UpdateReagentInput struct {
	Name                   string              `json:"name" validate:"required"`
	OrderTriggerStock      int                 `json:"order_trigger_stock" validate:"gte=0"`
	OrderTriggerExpiry     bool                `json:"order_trigger_expiry"`
	NoOrderOnZeroStock     bool                `json:"no_order_on_zero_stock"`
	OrderTriggerValueStock decimal.NullDecimal `json:"order_trigger_value_stock"`
	OrderValue             string              `json:"order_value"`
	OrderQuantity          int                 `json:"order_quantity" validate:"gte=0"`
	Location               string              `json:"location"`
	Hide                   bool                `json:"hide"`
}

// ReagentDetail is a reagent with its lot breakdown and reorder verdict.
// NextLot is the lot FEFO says to consume first.
type ReagentDetail struct {
	*repository.Reagent
	Lots       []*repository.Lot `json:"lots,omitempty"`
	NextLot    *repository.Lot   `json:"next_lot,omitempty"`
	NeedsOrder bool              `json:"needs_order"`
}

// ScanResult resolves a scanned code against the catalog. Registered is
// false when the code decodes cleanly but no reagent carries its product
// number.
type ScanResult struct {
	Parsed     *barcode.ParsedCode `json:"parsed"`
	Registered bool                `json:"registered"`
	Reagent    *repository.Reagent `json:"reagent,omitempty"`
	Lot        *repository.Lot     `json:"lot,omitempty"`
}

// AppendHistoryInput appends a manual trail entry, used to correct the
// record after the fact. The figures are recorded as given; stock itself
// is not touched.
type AppendHistoryInput struct {
	ProductNumber string              `json:"product_number" validate:"required"`
	LotNumber     string              `json:"lot_number"`
	ActionType    string              `json:"action_type" validate:"required,oneof=inbound outbound update inventory"`
	Date          *time.Time          `json:"date,omitempty"`
	OldStock      *int                `json:"old_stock,omitempty"`
	NewStock      *int                `json:"new_stock,omitempty"`
	OldValueStock decimal.NullDecimal `json:"old_value_stock"`
	NewValueStock decimal.NullDecimal `json:"new_value_stock"`
}

// StocktakeSchedule reports when the inventory was last counted and when
// the next count is due.
type StocktakeSchedule struct {
	LastInventoryDate *time.Time `json:"last_inventory_date,omitempty"`
	NextInventoryDate *time.Time `json:"next_inventory_date,omitempty"`
}

// RegisterReagent registers a new reagent. Product numbers are unique;
// re-registering an existing one is rejected.
func (s *InventoryService) RegisterReagent(ctx context.Context, input RegisterReagentInput) (*repository.Reagent, error) {
	if _, err := s.reagentRepo.GetByProductNumber(ctx, input.ProductNumber); err == nil {
		return nil, errors.Duplicate("reagent")
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	reagent := &repository.Reagent{
		ProductNumber:          input.ProductNumber,
		Name:                   input.Name,
		OrderTriggerStock:      input.OrderTriggerStock,
		OrderTriggerExpiry:     input.OrderTriggerExpiry,
		NoOrderOnZeroStock:     input.NoOrderOnZeroStock,
		OrderTriggerValueStock: input.OrderTriggerValueStock,
		OrderValue:             input.OrderValue,
		OrderQuantity:          input.OrderQuantity,
		Location:               input.Location,
	}

	if err := s.reagentRepo.Create(ctx, reagent); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("product_number", reagent.ProductNumber).
		Str("name", reagent.Name).
		Msg("reagent registered")

	return reagent, nil
}

// GetReagent returns a reagent with its lots and reorder verdict
func (s *InventoryService) GetReagent(ctx context.Context, productNumber string) (*ReagentDetail, error) {
	reagent, err := s.reagentRepo.GetByProductNumber(ctx, productNumber)
	if err != nil {
		return nil, err
	}

	lots, err := s.lotRepo.ListByReagent(ctx, reagent.ID)
	if err != nil {
		return nil, err
	}

	return &ReagentDetail{
		Reagent:    reagent,
		Lots:       lots,
		NextLot:    nextLot(lots),
		NeedsOrder: s.needsOrder(reagent),
	}, nil
}

// nextLot picks the lot to consume first: lots arrive expiry-ordered, so
// the first one still holding stock wins.
func nextLot(lots []*repository.Lot) *repository.Lot {
	for _, lot := range lots {
		if lot.Stock > 0 {
			return lot
		}
	}
	return nil
}

// ListReagents lists the catalog with each reagent's reorder verdict.
// Hidden reagents are skipped unless includeHidden is set.
func (s *InventoryService) ListReagents(ctx context.Context, includeHidden bool) ([]*ReagentDetail, error) {
	reagents, err := s.reagentRepo.List(ctx, includeHidden)
	if err != nil {
		return nil, err
	}

	details := make([]*ReagentDetail, 0, len(reagents))
	for _, r := range reagents {
		details = append(details, &ReagentDetail{
			Reagent:    r,
			NeedsOrder: s.needsOrder(r),
		})
	}
	return details, nil
}

// UpdateReagent edits a reagent's configuration
func (s *InventoryService) UpdateReagent(ctx context.Context, productNumber string, input UpdateReagentInput) (*repository.Reagent, error) {
	reagent, err := s.reagentRepo.GetByProductNumber(ctx, productNumber)
	if err != nil {
		return nil, err
	}

	reagent.Name = input.Name
	reagent.OrderTriggerStock = input.OrderTriggerStock
	reagent.OrderTriggerExpiry = input.OrderTriggerExpiry
	reagent.NoOrderOnZeroStock = input.NoOrderOnZeroStock
	reagent.OrderTriggerValueStock = input.OrderTriggerValueStock
	reagent.OrderValue = input.OrderValue
	reagent.OrderQuantity = input.OrderQuantity
	reagent.Location = input.Location
	reagent.Hide = input.Hide

	if err := s.reagentRepo.Update(ctx, reagent); err != nil {
		return nil, err
	}

	return reagent, nil
}

// DeleteReagent removes a reagent and its lots
func (s *InventoryService) DeleteReagent(ctx context.Context, productNumber string) error {
	return s.reagentRepo.Delete(ctx, productNumber)
}

// DeleteLot removes a single lot from a reagent
func (s *InventoryService) DeleteLot(ctx context.Context, productNumber, lotNumber string) error {
	reagent, err := s.reagentRepo.GetByProductNumber(ctx, productNumber)
	if err != nil {
		return err
	}
	return s.lotRepo.Delete(ctx, reagent.ID, lotNumber)
}

// OrderList returns the visible reagents whose reorder policy currently
// fires, with any already-placed order dates so callers can tell pending
// from unordered.
func (s *InventoryService) OrderList(ctx context.Context) ([]*ReagentDetail, error) {
	reagents, err := s.reagentRepo.List(ctx, false)
	if err != nil {
		return nil, err
	}

	needed := make([]*ReagentDetail, 0)
	for _, r := range reagents {
		if s.needsOrder(r) {
			needed = append(needed, &ReagentDetail{Reagent: r, NeedsOrder: true})
		}
	}
	return needed, nil
}

// MarkOrdered records the date an order was placed for a reagent. A nil
// date clears the marker; the next inbound clears it too.
func (s *InventoryService) MarkOrdered(ctx context.Context, productNumber string, orderDate *time.Time) error {
	return s.reagentRepo.SetOrderDate(ctx, productNumber, orderDate)
}

// ResolveCode decodes a scanned code and looks its product up in the
// catalog. Decoding failures surface as-is; an unregistered product is not
// an error, the result just carries Registered false.
func (s *InventoryService) ResolveCode(ctx context.Context, raw string, format barcode.Format) (*ScanResult, error) {
	parsed, err := barcode.Decode(raw, format)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{Parsed: parsed}

	reagent, err := s.reagentRepo.GetByProductNumber(ctx, parsed.ProductNumber)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return result, nil
		}
		return nil, err
	}
	result.Registered = true
	result.Reagent = reagent

	lot, err := s.lotRepo.GetByLotNumber(ctx, reagent.ID, parsed.LotNumber)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	result.Lot = lot

	return result, nil
}

// RecordStocktake appends a stocktake marker to the trail, resetting the
// schedule.
func (s *InventoryService) RecordStocktake(ctx context.Context) (*repository.History, error) {
	h := &repository.History{
		ActionType: repository.ActionInventory,
		Actor:      actorPtr(ctx),
	}
	if err := s.historyRepo.Create(ctx, h); err != nil {
		return nil, err
	}

	s.events.StocktakeRecorded(ctx, &messaging.StocktakeEvent{
		TakenAt: h.Date,
		Actor:   actor.FromContext(ctx).String(),
	})
	s.logger.Info().Time("taken_at", h.Date).Msg("stocktake recorded")

	return h, nil
}

// GetStocktakeSchedule reports the last stocktake and when the next one is
// due. Both dates are empty before the first stocktake.
func (s *InventoryService) GetStocktakeSchedule(ctx context.Context) (*StocktakeSchedule, error) {
	last, err := s.historyRepo.LatestByAction(ctx, repository.ActionInventory)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return &StocktakeSchedule{}, nil
		}
		return nil, err
	}

	next := last.Date.AddDate(0, stocktakeInterval, 0)
	return &StocktakeSchedule{
		LastInventoryDate: &last.Date,
		NextInventoryDate: &next,
	}, nil
}

// AppendHistory appends a manual trail entry for a registered reagent
func (s *InventoryService) AppendHistory(ctx context.Context, input AppendHistoryInput) (*repository.History, error) {
	if _, err := s.reagentRepo.GetByProductNumber(ctx, input.ProductNumber); err != nil {
		return nil, err
	}

	h := &repository.History{
		ProductNumber: input.ProductNumber,
		LotNumber:     input.LotNumber,
		ActionType:    input.ActionType,
		Actor:         actorPtr(ctx),
		OldStock:      input.OldStock,
		NewStock:      input.NewStock,
		OldValueStock: input.OldValueStock,
		NewValueStock: input.NewValueStock,
	}
	if input.Date != nil {
		h.Date = *input.Date
	}

	if err := s.historyRepo.Create(ctx, h); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("product_number", h.ProductNumber).
		Str("action_type", h.ActionType).
		Msg("history entry appended")

	return h, nil
}

// ListHistories lists the movement trail newest first, with the total row
// count for pagination
func (s *InventoryService) ListHistories(ctx context.Context, limit, offset int) ([]*repository.History, int, error) {
	histories, err := s.historyRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.historyRepo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return histories, total, nil
}

// ListReagentHistory lists a single reagent's movement trail
func (s *InventoryService) ListReagentHistory(ctx context.Context, productNumber string) ([]*repository.History, error) {
	if _, err := s.reagentRepo.GetByProductNumber(ctx, productNumber); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByProductNumber(ctx, productNumber)
}

// ListHistoryRange lists the movement trail within [from, to)
func (s *InventoryService) ListHistoryRange(ctx context.Context, from, to time.Time) ([]*repository.History, error) {
	if !to.After(from) {
		return nil, errors.BadRequest("range end must be after range start")
	}
	return s.historyRepo.ListByDateRange(ctx, from, to)
}

// DeleteHistory removes a mistaken trail entry
func (s *InventoryService) DeleteHistory(ctx context.Context, id string) error {
	return s.historyRepo.Delete(ctx, id)
}

// needsOrder evaluates the reagent's reorder policy against its current
// derived state
func (s *InventoryService) needsOrder(r *repository.Reagent) bool {
	return reorder.Evaluate(reorder.Input{
		Stock:      r.Stock,
		ValueStock: r.ValueStock,
		MaxExpiry:  r.MaxExpiry,
		Now:        time.Now().UTC(),
		Config: reorder.Config{
			TriggerStock:        r.OrderTriggerStock,
			TriggerOnExpiry:     r.OrderTriggerExpiry,
			SuppressOnZeroStock: r.NoOrderOnZeroStock,
			TriggerValueStock:   r.OrderTriggerValueStock,
		},
	})
}
