package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labstock/labstock-backend/pkg/database"
	"github.com/labstock/labstock-backend/pkg/errors"
	"github.com/labstock/labstock-backend/pkg/logger"
	"github.com/labstock/labstock-backend/pkg/testutil"
)

func newTestDB(t *testing.T) (*database.DB, *testutil.MockDB) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })
	log := logger.New("repository-test", "test")
	return database.NewFromSqlx(mockDB.DB, log), mockDB
}

func TestReagentRepository_Create(t *testing.T) {
	db, mockDB := newTestDB(t)
	repo := NewReagentRepository(db)

	mockDB.ExpectQuery("INSERT INTO reagents").
		WithArgs(
			testutil.AnyUUID{}, "10778", "Anti-CCP Reagent", 0,
			nil, nil, sqlmock.AnyArg(),
			2, true, false, sqlmock.AnyArg(),
			"box of 2", 2, "fridge B-2", nil, false,
		).
		WillReturnRows(testutil.MockRows("created_at", "updated_at").
			AddRow(time.Now(), time.Now()))

	reagent := &Reagent{
		ProductNumber:      "10778",
		Name:               "Anti-CCP Reagent",
		OrderTriggerStock:  2,
		OrderTriggerExpiry: true,
		OrderValue:         "box of 2",
		OrderQuantity:      2,
		Location:           "fridge B-2",
	}

	err := repo.Create(context.Background(), reagent)
	require.NoError(t, err)
	assert.NotEmpty(t, reagent.ID)
	assert.False(t, reagent.CreatedAt.IsZero())

	mockDB.ExpectationsWereMet(t)
}

func TestReagentRepository_GetByProductNumber(t *testing.T) {
	db, mockDB := newTestDB(t)
	repo := NewReagentRepository(db)

	maxExpiry := time.Date(2027, time.March, 31, 0, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("SELECT * FROM reagents WHERE product_number = $1").
		WithArgs("10778").
		WillReturnRows(testutil.MockRows(
			"id", "product_number", "name", "stock", "max_expiry", "value_stock",
			"order_trigger_stock", "order_trigger_expiry", "hide",
		).AddRow(
			"6e1a2f9c-8a44-4a0e-9f7d-3f1f6d2b9c01", "10778", "Anti-CCP Reagent", 5,
			maxExpiry, "2.500", 2, true, false,
		))

	reagent, err := repo.GetByProductNumber(context.Background(), "10778")
	require.NoError(t, err)
	assert.Equal(t, "10778", reagent.ProductNumber)
	assert.Equal(t, 5, reagent.Stock)
	require.NotNil(t, reagent.MaxExpiry)
	assert.True(t, reagent.MaxExpiry.Equal(maxExpiry))
	assert.True(t, reagent.ValueStock.Equal(decimal.RequireFromString("2.5")))

	mockDB.ExpectationsWereMet(t)
}

func TestReagentRepository_GetByProductNumber_NotFound(t *testing.T) {
	db, mockDB := newTestDB(t)
	repo := NewReagentRepository(db)

	mockDB.ExpectQuery("SELECT * FROM reagents WHERE product_number = $1").
		WithArgs("00000").
		WillReturnRows(testutil.MockRows("id"))

	_, err := repo.GetByProductNumber(context.Background(), "00000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}

func TestReagentRepository_List_ExcludesHidden(t *testing.T) {
	db, mockDB := newTestDB(t)
	repo := NewReagentRepository(db)

	mockDB.ExpectQuery("SELECT * FROM reagents WHERE hide = false ORDER BY product_number").
		WillReturnRows(testutil.MockRows("id", "product_number", "name", "stock", "value_stock").
			AddRow("id-1", "10778", "Anti-CCP Reagent", 5, "0").
			AddRow("id-2", "20991", "HbA1c Calibrator", 0, "0"))

	reagents, err := repo.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, reagents, 2)
	assert.Equal(t, "10778", reagents[0].ProductNumber)

	mockDB.ExpectationsWereMet(t)
}

func TestReagentRepository_Update_NotFound(t *testing.T) {
	db, mockDB := newTestDB(t)
	repo := NewReagentRepository(db)

	mockDB.ExpectExec("UPDATE reagents SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &Reagent{ProductNumber: "00000"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}

func TestReagentRepository_SetOrderDate(t *testing.T) {
	db, mockDB := newTestDB(t)
	repo := NewReagentRepository(db)

	orderDate := time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC)
	mockDB.ExpectExec("UPDATE reagents SET order_date = $2, updated_at = NOW() WHERE product_number = $1").
		WithArgs("10778", orderDate).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetOrderDate(context.Background(), "10778", &orderDate)
	require.NoError(t, err)

	mockDB.ExpectationsWereMet(t)
}

func TestReagentRepository_Delete(t *testing.T) {
	db, mockDB := newTestDB(t)
	repo := NewReagentRepository(db)

	mockDB.ExpectExec("DELETE FROM reagents WHERE product_number = $1").
		WithArgs("10778").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "10778"))

	mockDB.ExpectationsWereMet(t)
}
