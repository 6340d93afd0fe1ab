package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/labstock/labstock-backend/pkg/database"
	"github.com/labstock/labstock-backend/pkg/errors"
)

// History action types
const (
	ActionInbound   = "inbound"
	ActionOutbound  = "outbound"
	ActionUpdate    = "update"
	ActionInventory = "inventory"
)

// History is one row of the append-only movement trail. Inbound and
// outbound rows carry the lot-level stock before and after the movement;
// update rows carry the reagent-level figures an administrative correction
// overwrote.
type History struct {
	ID            string              `db:"id" json:"id"`
	ProductNumber string              `db:"product_number" json:"product_number"`
	LotNumber     string              `db:"lot_number" json:"lot_number"`
	ActionType    string              `db:"action_type" json:"action_type"`
	Date          time.Time           `db:"date" json:"date"`
	Actor         *string             `db:"actor" json:"actor,omitempty"`
	OldStock      *int                `db:"old_stock" json:"old_stock,omitempty"`
	NewStock      *int                `db:"new_stock" json:"new_stock,omitempty"`
	OldValueStock decimal.NullDecimal `db:"old_value_stock" json:"old_value_stock,omitempty"`
	NewValueStock decimal.NullDecimal `db:"new_value_stock" json:"new_value_stock,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
}

// HistoryRepository handles the movement trail
type HistoryRepository struct {
	db *database.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *database.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// CreateTx appends a history row within the same transaction as the stock
// mutation it records, so a committed movement always has its trail row.
func (r *HistoryRepository) CreateTx(tx *sqlx.Tx, h *History) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.Date.IsZero() {
		h.Date = time.Now().UTC()
	}

	query := `
		INSERT INTO histories (
			id, product_number, lot_number, action_type, date, actor,
			old_stock, new_stock, old_value_stock, new_value_stock
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err := tx.QueryRowx(query,
		h.ID, h.ProductNumber, h.LotNumber, h.ActionType, h.Date, h.Actor,
		h.OldStock, h.NewStock, h.OldValueStock, h.NewValueStock,
	).Scan(&h.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// Create appends a standalone history row, for records that do not
// accompany a lot mutation such as stocktake markers.
func (r *HistoryRepository) Create(ctx context.Context, h *History) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return r.CreateTx(tx, h)
	})
}

// List lists history rows newest first
func (r *HistoryRepository) List(ctx context.Context, limit, offset int) ([]*History, error) {
	var histories []*History
	query := `SELECT * FROM histories ORDER BY date DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &histories, query, limit, offset); err != nil {
		return nil, err
	}
	return histories, nil
}

// Count returns the total number of history rows
func (r *HistoryRepository) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM histories`
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, err
	}
	return count, nil
}

// ListByProductNumber lists a reagent's history newest first
func (r *HistoryRepository) ListByProductNumber(ctx context.Context, productNumber string) ([]*History, error) {
	var histories []*History
	query := `SELECT * FROM histories WHERE product_number = $1 ORDER BY date DESC`
	if err := r.db.SelectContext(ctx, &histories, query, productNumber); err != nil {
		return nil, err
	}
	return histories, nil
}

// ListByDateRange lists history rows within [from, to), oldest first
func (r *HistoryRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*History, error) {
	var histories []*History
	query := `SELECT * FROM histories WHERE date >= $1 AND date < $2 ORDER BY date ASC`
	if err := r.db.SelectContext(ctx, &histories, query, from, to); err != nil {
		return nil, err
	}
	return histories, nil
}

// LatestByAction returns the most recent row of the given action type
func (r *HistoryRepository) LatestByAction(ctx context.Context, actionType string) (*History, error) {
	var h History
	query := `SELECT * FROM histories WHERE action_type = $1 ORDER BY date DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &h, query, actionType); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("history")
		}
		return nil, err
	}
	return &h, nil
}

// Delete removes a history row. Administrative correction of a mistaken
// entry only; the trail is otherwise append-only.
func (r *HistoryRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM histories WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("history")
	}

	return nil
}
