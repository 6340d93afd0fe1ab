// Package reorder decides whether a reagent needs to be reordered based on
// its current stock, latest expiry and trigger configuration. The decision
// is recomputed on every read; only its inputs are persisted.
package reorder

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config holds a reagent's reorder trigger configuration.
type Config struct {
	// TriggerStock is the stock level at or below which a reorder is due.
	TriggerStock int
	// TriggerOnExpiry enables the expiry clause: reorder when the latest
	// expiry falls within one month of now.
	TriggerOnExpiry bool
	// SuppressOnZeroStock disables the stock clause entirely. Used for
	// reagents consumed by volume rather than by unit, where unit stock
	// sitting at zero is normal.
	SuppressOnZeroStock bool
	// TriggerValueStock is the volume gauge threshold used in place of the
	// stock clause when SuppressOnZeroStock is set. Invalid means no
	// threshold is configured.
	TriggerValueStock decimal.NullDecimal
}

// Input carries the current state a reorder decision is made from.
type Input struct {
	// Stock is the reagent's aggregate unit stock.
	Stock int
	// ValueStock is the remaining-volume gauge.
	ValueStock decimal.Decimal
	// MaxExpiry is the latest expiry among lots with stock, nil if none.
	MaxExpiry *time.Time
	// Now is the evaluation time.
	Now time.Time

	Config Config
}

// Evaluate reports whether a reorder is due. Two clauses are OR'd:
//
//  1. Stock clause: stock at or below TriggerStock. When
//     SuppressOnZeroStock is set, this is replaced by the volume gauge
//     falling to TriggerValueStock (no threshold configured means the
//     clause never fires).
//  2. Expiry clause: TriggerOnExpiry is set and the latest expiry is
//     earlier than one month from now.
func Evaluate(in Input) bool {
	if stockClause(in) {
		return true
	}
	return expiryClause(in)
}

func stockClause(in Input) bool {
	cfg := in.Config

	if cfg.SuppressOnZeroStock {
		return cfg.TriggerValueStock.Valid &&
			in.ValueStock.LessThanOrEqual(cfg.TriggerValueStock.Decimal)
	}

	return in.Stock <= cfg.TriggerStock
}

func expiryClause(in Input) bool {
	if !in.Config.TriggerOnExpiry || in.MaxExpiry == nil {
		return false
	}

	oneMonthLater := in.Now.AddDate(0, 1, 0)
	return in.MaxExpiry.Before(oneMonthLater)
}
