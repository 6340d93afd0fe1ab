package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/labstock/labstock-backend/internal/inventory/events"
	"github.com/labstock/labstock-backend/internal/inventory/repository"
	"github.com/labstock/labstock-backend/pkg/actor"
	"github.com/labstock/labstock-backend/pkg/database"
	"github.com/labstock/labstock-backend/pkg/errors"
	"github.com/labstock/labstock-backend/pkg/logger"
	"github.com/labstock/labstock-backend/pkg/messaging"
)

// LedgerService applies stock movements at lot granularity. Every mutation
// runs in a single transaction: the reagent row is locked first, then the
// target lot, and the reagent's derived aggregate is recomputed from the
// full lot set before commit. Events are published only after the commit.
type LedgerService struct {
	db          *database.DB
	reagentRepo *repository.ReagentRepository
	lotRepo     *repository.LotRepository
	historyRepo *repository.HistoryRepository
	events      *events.InventoryEventPublisher
	logger      *logger.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	db *database.DB,
	reagentRepo *repository.ReagentRepository,
	lotRepo *repository.LotRepository,
	historyRepo *repository.HistoryRepository,
	eventPublisher *events.InventoryEventPublisher,
	log *logger.Logger,
) *LedgerService {
	return &LedgerService{
		db:          db,
		reagentRepo: reagentRepo,
		lotRepo:     lotRepo,
		historyRepo: historyRepo,
		events:      eventPublisher,
		logger:      log.WithComponent("ledger"),
	}
}

// InboundInput receives stock into a lot. ExpiryDate is optional; when the
// lot already exists the stored expiry only ever moves forward.
type InboundInput struct {
	ProductNumber string     `json:"product_number" validate:"required"`
	LotNumber     string     `json:"lot_number" validate:"required"`
	Quantity      int        `json:"quantity" validate:"required,gt=0"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
}

// OutboundInput removes stock from a lot. Force overrides the
// expiry-order guard.
type OutboundInput struct {
	ProductNumber string `json:"product_number" validate:"required"`
	LotNumber     string `json:"lot_number" validate:"required"`
	Quantity      int    `json:"quantity" validate:"required,gt=0"`
	Force         bool   `json:"force"`
}

// AdjustInput overwrites a reagent's stock figures after a physical count.
type AdjustInput struct {
	ProductNumber string          `json:"product_number" validate:"required"`
	NewStock      int             `json:"new_stock" validate:"gte=0"`
	NewValueStock decimal.Decimal `json:"new_value_stock"`
}

// LotState is the post-mutation state returned to the caller: the lot that
// was touched plus the reagent-level aggregate committed alongside it.
type LotState struct {
	Lot        *repository.Lot `json:"lot"`
	TotalStock int             `json:"total_stock"`
	MaxExpiry  *time.Time      `json:"max_expiry,omitempty"`
}

// Inbound receives stock into a lot, creating the lot on first receipt.
// The stored expiry only moves forward: receiving an earlier-dated box into
// an existing lot keeps the later date.
func (s *LedgerService) Inbound(ctx context.Context, input InboundInput) (*LotState, error) {
	var (
		state LotState
		event messaging.StockMovedEvent
	)

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		reagent, err := s.reagentRepo.GetForUpdateTx(tx, input.ProductNumber)
		if err != nil {
			return err
		}

		var oldStock int
		lot, err := s.lotRepo.GetForUpdateTx(tx, reagent.ID, input.LotNumber)
		switch {
		case err == nil:
			oldStock = lot.Stock
			lot.Stock += input.Quantity
			lot.ExpiryDate = laterExpiry(lot.ExpiryDate, input.ExpiryDate)
			if err := s.lotRepo.UpdateTx(tx, lot.ID, lot.Stock, lot.ExpiryDate); err != nil {
				return err
			}
		case errors.Is(err, errors.ErrNotFound):
			lot = &repository.Lot{
				ReagentID:  reagent.ID,
				LotNumber:  input.LotNumber,
				Stock:      input.Quantity,
				ExpiryDate: input.ExpiryDate,
			}
			if err := s.lotRepo.CreateTx(tx, lot); err != nil {
				return err
			}
		default:
			return err
		}

		lots, err := s.lotRepo.ListByReagentTx(tx, reagent.ID)
		if err != nil {
			return err
		}
		total, maxExpiry := aggregate(lots)

		// An inbound fulfils any pending order, so the order marker is cleared.
		if err := s.reagentRepo.UpdateAggregateTx(tx, reagent.ID, total, maxExpiry, nil, true); err != nil {
			return err
		}

		newStock := lot.Stock
		if err := s.historyRepo.CreateTx(tx, &repository.History{
			ProductNumber: input.ProductNumber,
			LotNumber:     input.LotNumber,
			ActionType:    repository.ActionInbound,
			Actor:         actorPtr(ctx),
			OldStock:      &oldStock,
			NewStock:      &newStock,
		}); err != nil {
			return err
		}

		state = LotState{Lot: lot, TotalStock: total, MaxExpiry: maxExpiry}
		event = messaging.StockMovedEvent{
			ProductNumber: input.ProductNumber,
			LotNumber:     input.LotNumber,
			Quantity:      input.Quantity,
			LotStock:      lot.Stock,
			TotalStock:    total,
			MaxExpiry:     maxExpiry,
			Actor:         actor.FromContext(ctx).String(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.StockInbound(ctx, &event)
	s.logger.Info().
		Str("product_number", input.ProductNumber).
		Str("lot_number", input.LotNumber).
		Int("quantity", input.Quantity).
		Int("total_stock", state.TotalStock).
		Msg("stock received")

	return &state, nil
}

// Outbound removes stock from a lot. The request is rejected outright when
// the lot cannot cover the quantity, and rejected with the nearest lot's
// number when another lot expires sooner, unless Force is set. The touched
// lot is recorded on the reagent as its current lot.
func (s *LedgerService) Outbound(ctx context.Context, input OutboundInput) (*LotState, error) {
	var (
		state LotState
		event messaging.StockMovedEvent
	)

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		reagent, err := s.reagentRepo.GetForUpdateTx(tx, input.ProductNumber)
		if err != nil {
			return err
		}

		lot, err := s.lotRepo.GetForUpdateTx(tx, reagent.ID, input.LotNumber)
		if err != nil {
			return err
		}

		if input.Quantity > lot.Stock {
			return errors.InsufficientStock(lot.LotNumber, lot.Stock, input.Quantity)
		}

		lots, err := s.lotRepo.ListByReagentTx(tx, reagent.ID)
		if err != nil {
			return err
		}

		if !input.Force {
			if nearest := nearestExpiryLot(lots, lot); nearest != nil {
				return errors.ExpiryOrderViolation(lot.LotNumber, nearest.LotNumber)
			}
		}

		oldStock := lot.Stock
		lot.Stock -= input.Quantity
		if err := s.lotRepo.UpdateTx(tx, lot.ID, lot.Stock, lot.ExpiryDate); err != nil {
			return err
		}

		// The list was read before the decrement; patch the target in place
		// so the aggregate reflects the committed state.
		for _, l := range lots {
			if l.ID == lot.ID {
				l.Stock = lot.Stock
			}
		}
		total, maxExpiry := aggregate(lots)

		currentLot := lot.LotNumber
		if err := s.reagentRepo.UpdateAggregateTx(tx, reagent.ID, total, maxExpiry, &currentLot, false); err != nil {
			return err
		}

		newStock := lot.Stock
		if err := s.historyRepo.CreateTx(tx, &repository.History{
			ProductNumber: input.ProductNumber,
			LotNumber:     input.LotNumber,
			ActionType:    repository.ActionOutbound,
			Actor:         actorPtr(ctx),
			OldStock:      &oldStock,
			NewStock:      &newStock,
		}); err != nil {
			return err
		}

		state = LotState{Lot: lot, TotalStock: total, MaxExpiry: maxExpiry}
		event = messaging.StockMovedEvent{
			ProductNumber: input.ProductNumber,
			LotNumber:     input.LotNumber,
			Quantity:      input.Quantity,
			LotStock:      lot.Stock,
			TotalStock:    total,
			MaxExpiry:     maxExpiry,
			Actor:         actor.FromContext(ctx).String(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.StockOutbound(ctx, &event)
	s.logger.Info().
		Str("product_number", input.ProductNumber).
		Str("lot_number", input.LotNumber).
		Int("quantity", input.Quantity).
		Int("total_stock", state.TotalStock).
		Bool("force", input.Force).
		Msg("stock dispensed")

	return &state, nil
}

// Adjust overwrites a reagent's stock count and volume gauge after a
// physical recount. Lots are left untouched, so the reagent's stock may
// deliberately disagree with the lot sum until the next movement rewrites
// it. The correction is recorded with both old and new figures.
func (s *LedgerService) Adjust(ctx context.Context, input AdjustInput) (*repository.Reagent, error) {
	var (
		reagent *repository.Reagent
		event   messaging.StockAdjustedEvent
	)

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		reagent, err = s.reagentRepo.GetForUpdateTx(tx, input.ProductNumber)
		if err != nil {
			return err
		}

		oldStock := reagent.Stock
		oldValueStock := reagent.ValueStock

		if err := s.reagentRepo.OverrideStockTx(tx, reagent.ID, input.NewStock, input.NewValueStock); err != nil {
			return err
		}
		reagent.Stock = input.NewStock
		reagent.ValueStock = input.NewValueStock

		newStock := input.NewStock
		if err := s.historyRepo.CreateTx(tx, &repository.History{
			ProductNumber: input.ProductNumber,
			ActionType:    repository.ActionUpdate,
			Actor:         actorPtr(ctx),
			OldStock:      &oldStock,
			NewStock:      &newStock,
			OldValueStock: decimal.NewNullDecimal(oldValueStock),
			NewValueStock: decimal.NewNullDecimal(input.NewValueStock),
		}); err != nil {
			return err
		}

		event = messaging.StockAdjustedEvent{
			ProductNumber: input.ProductNumber,
			OldStock:      oldStock,
			NewStock:      input.NewStock,
			OldValueStock: oldValueStock.String(),
			NewValueStock: input.NewValueStock.String(),
			Actor:         actor.FromContext(ctx).String(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.StockAdjusted(ctx, &event)
	s.logger.Info().
		Str("product_number", input.ProductNumber).
		Int("new_stock", input.NewStock).
		Msg("stock adjusted")

	return reagent, nil
}

// aggregate derives the reagent-level figures from the full lot set:
// total stock sums every lot, while the expiry horizon only considers lots
// that still hold stock. No dated stock leaves the horizon null.
func aggregate(lots []*repository.Lot) (int, *time.Time) {
	total := 0
	var maxExpiry *time.Time
	for _, lot := range lots {
		total += lot.Stock
		if lot.Stock > 0 && lot.ExpiryDate != nil {
			if maxExpiry == nil || lot.ExpiryDate.After(*maxExpiry) {
				e := *lot.ExpiryDate
				maxExpiry = &e
			}
		}
	}
	return total, maxExpiry
}

// nearestExpiryLot returns the lot that should be consumed before the
// target, or nil when the target is already the soonest-expiring choice.
// A target without an expiry date yields to any dated lot with stock.
func nearestExpiryLot(lots []*repository.Lot, target *repository.Lot) *repository.Lot {
	var nearest *repository.Lot
	for _, lot := range lots {
		if lot.ID == target.ID || lot.Stock <= 0 || lot.ExpiryDate == nil {
			continue
		}
		if target.ExpiryDate != nil && !lot.ExpiryDate.Before(*target.ExpiryDate) {
			continue
		}
		if nearest == nil || lot.ExpiryDate.Before(*nearest.ExpiryDate) {
			nearest = lot
		}
	}
	return nearest
}

// laterExpiry keeps the further-out of two expiry dates
func laterExpiry(current, incoming *time.Time) *time.Time {
	if incoming == nil {
		return current
	}
	if current == nil || incoming.After(*current) {
		return incoming
	}
	return current
}

func actorPtr(ctx context.Context) *string {
	name := actor.NameFromContext(ctx)
	if name == "" {
		return nil
	}
	return &name
}
