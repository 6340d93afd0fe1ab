package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/labstock/labstock-backend/pkg/database"
	"github.com/labstock/labstock-backend/pkg/errors"
)

// Lot is a single lot of a reagent. A lot is identified by the pair
// (reagent, lot number); stock never goes below zero.
type Lot struct {
	ID         string     `db:"id" json:"id"`
	ReagentID  string     `db:"reagent_id" json:"reagent_id"`
	LotNumber  string     `db:"lot_number" json:"lot_number"`
	Stock      int        `db:"stock" json:"stock"`
	ExpiryDate *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// LotRepository handles lot persistence
type LotRepository struct {
	db *database.DB
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *database.DB) *LotRepository {
	return &LotRepository{db: db}
}

// ListByReagent lists a reagent's lots ordered by expiry, soonest first.
// Lots without an expiry date sort last.
func (r *LotRepository) ListByReagent(ctx context.Context, reagentID string) ([]*Lot, error) {
	var lots []*Lot
	query := `
		SELECT * FROM lots
		WHERE reagent_id = $1
		ORDER BY expiry_date ASC NULLS LAST, lot_number ASC
	`
	if err := r.db.SelectContext(ctx, &lots, query, reagentID); err != nil {
		return nil, err
	}
	return lots, nil
}

// GetByLotNumber gets a lot by reagent and lot number
func (r *LotRepository) GetByLotNumber(ctx context.Context, reagentID, lotNumber string) (*Lot, error) {
	var lot Lot
	query := `SELECT * FROM lots WHERE reagent_id = $1 AND lot_number = $2`
	if err := r.db.GetContext(ctx, &lot, query, reagentID, lotNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("lot")
		}
		return nil, err
	}
	return &lot, nil
}

// GetForUpdateTx locks and returns a lot row within a ledger transaction
func (r *LotRepository) GetForUpdateTx(tx *sqlx.Tx, reagentID, lotNumber string) (*Lot, error) {
	var lot Lot
	query := `SELECT * FROM lots WHERE reagent_id = $1 AND lot_number = $2 FOR UPDATE`
	if err := tx.Get(&lot, query, reagentID, lotNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("lot")
		}
		return nil, err
	}
	return &lot, nil
}

// CreateTx inserts a new lot within a ledger transaction
func (r *LotRepository) CreateTx(tx *sqlx.Tx, lot *Lot) error {
	if lot.ID == "" {
		lot.ID = uuid.New().String()
	}

	query := `
		INSERT INTO lots (id, reagent_id, lot_number, stock, expiry_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRowx(query, lot.ID, lot.ReagentID, lot.LotNumber, lot.Stock, lot.ExpiryDate).
		Scan(&lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// UpdateTx rewrites a lot's stock and expiry within a ledger transaction
func (r *LotRepository) UpdateTx(tx *sqlx.Tx, id string, stock int, expiryDate *time.Time) error {
	query := `UPDATE lots SET stock = $2, expiry_date = $3, updated_at = NOW() WHERE id = $1`
	result, err := tx.Exec(query, id, stock, expiryDate)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("lot")
	}

	return nil
}

// ListByReagentTx re-reads the full lot set within a ledger transaction.
// Called after the row locks are held so the aggregate is computed from
// the state the transaction will commit.
func (r *LotRepository) ListByReagentTx(tx *sqlx.Tx, reagentID string) ([]*Lot, error) {
	var lots []*Lot
	query := `
		SELECT * FROM lots
		WHERE reagent_id = $1
		ORDER BY expiry_date ASC NULLS LAST, lot_number ASC
	`
	if err := tx.Select(&lots, query, reagentID); err != nil {
		return nil, err
	}
	return lots, nil
}

// Delete removes an exhausted or obsolete lot
func (r *LotRepository) Delete(ctx context.Context, reagentID, lotNumber string) error {
	query := `DELETE FROM lots WHERE reagent_id = $1 AND lot_number = $2`
	result, err := r.db.ExecContext(ctx, query, reagentID, lotNumber)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("lot")
	}

	return nil
}
