package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labstock/labstock-backend/pkg/errors"
	"github.com/labstock/labstock-backend/pkg/testutil"
)

func TestHistoryRepository_CreateTx(t *testing.T) {
	db, mockDB := newTestDB(t)
	repo := NewHistoryRepository(db)

	actor := "tanaka"
	oldStock, newStock := 3, 5
	mockDB.ExpectBegin()
	mockDB.ExpectQuery("INSERT INTO histories").
		WithArgs(
			testutil.AnyUUID{}, "10778", "A12345", ActionInbound, testutil.AnyTime{},
			"tanaka", 3, 5, sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	mockDB.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	h := &History{
		ProductNumber: "10778",
		LotNumber:     "A12345",
		ActionType:    ActionInbound,
		Actor:         &actor,
		OldStock:      &oldStock,
		NewStock:      &newStock,
	}
	require.NoError(t, repo.CreateTx(tx, h))
	assert.NotEmpty(t, h.ID)
	assert.False(t, h.Date.IsZero())

	require.NoError(t, tx.Commit())
	mockDB.ExpectationsWereMet(t)
}

func TestHistoryRepository_List(t *testing.T) {
	db, mockDB := newTestDB(t)
	repo := NewHistoryRepository(db)

	mockDB.ExpectQuery("SELECT * FROM histories ORDER BY date DESC LIMIT $1 OFFSET $2").
		WithArgs(20, 0).
		WillReturnRows(testutil.MockRows("id", "product_number", "lot_number", "action_type", "date").
			AddRow("h-2", "10778", "A12345", ActionOutbound, time.Now()).
			AddRow("h-1", "10778", "A12345", ActionInbound, time.Now().Add(-time.Hour)))

	histories, err := repo.List(context.Background(), 20, 0)
	require.NoError(t, err)
	require.Len(t, histories, 2)
	assert.Equal(t, ActionOutbound, histories[0].ActionType)

	mockDB.ExpectationsWereMet(t)
}

func TestHistoryRepository_ListByDateRange(t *testing.T) {
	db, mockDB := newTestDB(t)
	repo := NewHistoryRepository(db)

	from := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("SELECT * FROM histories WHERE date >= $1 AND date < $2 ORDER BY date ASC").
		WithArgs(from, to).
		WillReturnRows(testutil.MockRows("id", "product_number", "lot_number", "action_type", "date").
			AddRow("h-1", "10778", "A12345", ActionInbound, from.Add(24*time.Hour)))

	histories, err := repo.ListByDateRange(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, histories, 1)

	mockDB.ExpectationsWereMet(t)
}

func TestHistoryRepository_LatestByAction(t *testing.T) {
	db, mockDB := newTestDB(t)
	repo := NewHistoryRepository(db)

	taken := time.Date(2026, time.June, 30, 9, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("SELECT * FROM histories WHERE action_type = $1 ORDER BY date DESC LIMIT 1").
		WithArgs(ActionInventory).
		WillReturnRows(testutil.MockRows("id", "product_number", "lot_number", "action_type", "date").
			AddRow("h-9", "", "", ActionInventory, taken))

	h, err := repo.LatestByAction(context.Background(), ActionInventory)
	require.NoError(t, err)
	assert.True(t, h.Date.Equal(taken))

	mockDB.ExpectationsWereMet(t)
}

func TestHistoryRepository_LatestByAction_NotFound(t *testing.T) {
	db, mockDB := newTestDB(t)
	repo := NewHistoryRepository(db)

	mockDB.ExpectQuery("SELECT * FROM histories WHERE action_type = $1 ORDER BY date DESC LIMIT 1").
		WithArgs(ActionInventory).
		WillReturnRows(testutil.MockRows("id"))

	_, err := repo.LatestByAction(context.Background(), ActionInventory)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}

func TestHistoryRepository_Delete_NotFound(t *testing.T) {
	db, mockDB := newTestDB(t)
	repo := NewHistoryRepository(db)

	mockDB.ExpectExec("DELETE FROM histories WHERE id = $1").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}
