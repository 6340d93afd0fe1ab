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

// Reagent represents a registered reagent. Stock and MaxExpiry are derived
// from the reagent's lots and rewritten by the ledger after every mutation;
// CurrentLot is an advisory display field recording the last lot an
// outbound touched.
type Reagent struct {
	ID                     string              `db:"id" json:"id"`
	ProductNumber          string              `db:"product_number" json:"product_number"`
	Name                   string              `db:"name" json:"name"`
	Stock                  int                 `db:"stock" json:"stock"`
	MaxExpiry              *time.Time          `db:"max_expiry" json:"max_expiry,omitempty"`
	CurrentLot             *string             `db:"current_lot" json:"current_lot,omitempty"`
	ValueStock             decimal.Decimal     `db:"value_stock" json:"value_stock"`
	OrderTriggerStock      int                 `db:"order_trigger_stock" json:"order_trigger_stock"`
	OrderTriggerExpiry     bool                `db:"order_trigger_expiry" json:"order_trigger_expiry"`
	NoOrderOnZeroStock     bool                `db:"no_order_on_zero_stock" json:"no_order_on_zero_stock"`
	OrderTriggerValueStock decimal.NullDecimal `db:"order_trigger_value_stock" json:"order_trigger_value_stock,omitempty"`
	OrderValue             string              `db:"order_value" json:"order_value"`
	OrderQuantity          int                 `db:"order_quantity" json:"order_quantity"`
	Location               string              `db:"location" json:"location"`
	OrderDate              *time.Time          `db:"order_date" json:"order_date,omitempty"`
	Hide                   bool                `db:"hide" json:"hide"`
	CreatedAt              time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time           `db:"updated_at" json:"updated_at"`
}

// ReagentRepository handles reagent persistence
type ReagentRepository struct {
	db *database.DB
}

// NewReagentRepository creates a new reagent repository
func NewReagentRepository(db *database.DB) *ReagentRepository {
	return &ReagentRepository{db: db}
}

// Create registers a new reagent. The product number must not already be
// registered.
func (r *ReagentRepository) Create(ctx context.Context, reagent *Reagent) error {
	if reagent.ID == "" {
		reagent.ID = uuid.New().String()
	}

	query := `
		INSERT INTO reagents (
			id, product_number, name, stock, max_expiry, current_lot, value_stock,
			order_trigger_stock, order_trigger_expiry, no_order_on_zero_stock,
			order_trigger_value_stock, order_value, order_quantity, location,
			order_date, hide
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		reagent.ID, reagent.ProductNumber, reagent.Name, reagent.Stock,
		reagent.MaxExpiry, reagent.CurrentLot, reagent.ValueStock,
		reagent.OrderTriggerStock, reagent.OrderTriggerExpiry, reagent.NoOrderOnZeroStock,
		reagent.OrderTriggerValueStock, reagent.OrderValue, reagent.OrderQuantity,
		reagent.Location, reagent.OrderDate, reagent.Hide,
	).Scan(&reagent.CreatedAt, &reagent.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// GetByProductNumber gets a reagent by product number
func (r *ReagentRepository) GetByProductNumber(ctx context.Context, productNumber string) (*Reagent, error) {
	var reagent Reagent
	query := `SELECT * FROM reagents WHERE product_number = $1`
	if err := r.db.GetContext(ctx, &reagent, query, productNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("reagent")
		}
		return nil, err
	}
	return &reagent, nil
}

// GetForUpdateTx locks and returns the reagent row within a ledger
// transaction. The reagent lock is always taken before any lot lock so
// that concurrent mutations of one product serialize in a fixed order.
func (r *ReagentRepository) GetForUpdateTx(tx *sqlx.Tx, productNumber string) (*Reagent, error) {
	var reagent Reagent
	query := `SELECT * FROM reagents WHERE product_number = $1 FOR UPDATE`
	if err := tx.Get(&reagent, query, productNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("reagent")
		}
		return nil, err
	}
	return &reagent, nil
}

// List lists reagents ordered by product number
func (r *ReagentRepository) List(ctx context.Context, includeHidden bool) ([]*Reagent, error) {
	var reagents []*Reagent
	query := `SELECT * FROM reagents ORDER BY product_number`
	if !includeHidden {
		query = `SELECT * FROM reagents WHERE hide = false ORDER BY product_number`
	}
	if err := r.db.SelectContext(ctx, &reagents, query); err != nil {
		return nil, err
	}
	return reagents, nil
}

// Update updates a reagent's name, location and reorder configuration.
// Derived stock fields are owned by the ledger and not touched here.
func (r *ReagentRepository) Update(ctx context.Context, reagent *Reagent) error {
	query := `
		UPDATE reagents SET
			name = $2, order_trigger_stock = $3, order_trigger_expiry = $4,
			no_order_on_zero_stock = $5, order_trigger_value_stock = $6,
			order_value = $7, order_quantity = $8, location = $9, hide = $10,
			updated_at = NOW()
		WHERE product_number = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		reagent.ProductNumber, reagent.Name, reagent.OrderTriggerStock,
		reagent.OrderTriggerExpiry, reagent.NoOrderOnZeroStock,
		reagent.OrderTriggerValueStock, reagent.OrderValue, reagent.OrderQuantity,
		reagent.Location, reagent.Hide,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("reagent")
	}

	return nil
}

// SetOrderDate records or clears the date a reagent was ordered on
func (r *ReagentRepository) SetOrderDate(ctx context.Context, productNumber string, orderDate *time.Time) error {
	query := `UPDATE reagents SET order_date = $2, updated_at = NOW() WHERE product_number = $1`
	result, err := r.db.ExecContext(ctx, query, productNumber, orderDate)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("reagent")
	}

	return nil
}

// Delete removes a reagent; its lots cascade at the storage level
func (r *ReagentRepository) Delete(ctx context.Context, productNumber string) error {
	query := `DELETE FROM reagents WHERE product_number = $1`
	result, err := r.db.ExecContext(ctx, query, productNumber)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("reagent")
	}

	return nil
}

// UpdateAggregateTx rewrites the derived aggregate fields within a ledger
// transaction. currentLot is only written when non-nil so inbounds leave
// the advisory field untouched. clearOrderDate resets the pending order
// marker, used when an inbound fulfils an order.
func (r *ReagentRepository) UpdateAggregateTx(tx *sqlx.Tx, id string, totalStock int, maxExpiry *time.Time, currentLot *string, clearOrderDate bool) error {
	query := `
		UPDATE reagents SET
			stock = $2,
			max_expiry = $3,
			current_lot = COALESCE($4, current_lot),
			order_date = CASE WHEN $5 THEN NULL ELSE order_date END,
			updated_at = NOW()
		WHERE id = $1
	`
	_, err := tx.Exec(query, id, totalStock, maxExpiry, currentLot, clearOrderDate)
	return err
}

// OverrideStockTx sets the reagent's stock and volume gauge directly within
// a ledger transaction. Administrative stock-count correction only: this
// deliberately bypasses the lot-sum invariant.
func (r *ReagentRepository) OverrideStockTx(tx *sqlx.Tx, id string, stock int, valueStock decimal.Decimal) error {
	query := `UPDATE reagents SET stock = $2, value_stock = $3, updated_at = NOW() WHERE id = $1`
	_, err := tx.Exec(query, id, stock, valueStock)
	return err
}
