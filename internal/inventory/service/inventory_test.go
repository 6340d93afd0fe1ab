package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labstock/labstock-backend/internal/barcode"
	"github.com/labstock/labstock-backend/internal/inventory/events"
	"github.com/labstock/labstock-backend/internal/inventory/repository"
	"github.com/labstock/labstock-backend/pkg/database"
	"github.com/labstock/labstock-backend/pkg/errors"
	"github.com/labstock/labstock-backend/pkg/logger"
	"github.com/labstock/labstock-backend/pkg/messaging"
	"github.com/labstock/labstock-backend/pkg/testutil"
)

func newInventoryService(t *testing.T) (*InventoryService, *testutil.MockDB, *testutil.MockPublisher) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	log := logger.New("inventory-test", "test")
	db := database.NewFromSqlx(mockDB.DB, log)
	pub := testutil.NewMockPublisher()

	svc := NewInventoryService(
		repository.NewReagentRepository(db),
		repository.NewLotRepository(db),
		repository.NewHistoryRepository(db),
		events.NewInventoryEventPublisher(pub, log),
		log,
	)
	return svc, mockDB, pub
}

func TestInventory_RegisterReagent_Duplicate(t *testing.T) {
	svc, mockDB, _ := newInventoryService(t)

	mockDB.ExpectQuery("SELECT * FROM reagents WHERE product_number = $1").
		WithArgs("10778").
		WillReturnRows(testutil.MockRows("id", "product_number", "name", "stock", "value_stock").
			AddRow("reagent-1", "10778", "Anti-CCP Reagent", 0, "0"))

	_, err := svc.RegisterReagent(context.Background(), RegisterReagentInput{
		ProductNumber: "10778",
		Name:          "Anti-CCP Reagent",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "DUPLICATE", appErr.Code)

	mockDB.ExpectationsWereMet(t)
}

func TestInventory_RegisterReagent(t *testing.T) {
	svc, mockDB, _ := newInventoryService(t)

	mockDB.ExpectQuery("SELECT * FROM reagents WHERE product_number = $1").
		WithArgs("20991").
		WillReturnRows(testutil.MockRows("id"))
	mockDB.ExpectQuery("INSERT INTO reagents").
		WillReturnRows(testutil.MockRows("created_at", "updated_at").
			AddRow(time.Now(), time.Now()))

	reagent, err := svc.RegisterReagent(context.Background(), RegisterReagentInput{
		ProductNumber:     "20991",
		Name:              "HbA1c Calibrator",
		OrderTriggerStock: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "20991", reagent.ProductNumber)
	assert.NotEmpty(t, reagent.ID)

	mockDB.ExpectationsWereMet(t)
}

func TestInventory_ListReagents_EvaluatesReorder(t *testing.T) {
	svc, mockDB, _ := newInventoryService(t)

	mockDB.ExpectQuery("SELECT * FROM reagents WHERE hide = false ORDER BY product_number").
		WillReturnRows(testutil.MockRows(
			"id", "product_number", "name", "stock", "value_stock",
			"order_trigger_stock", "order_trigger_expiry", "no_order_on_zero_stock",
		).
			AddRow("id-1", "10778", "Anti-CCP Reagent", 1, "0", 2, false, false).
			AddRow("id-2", "20991", "HbA1c Calibrator", 9, "0", 2, false, false))

	details, err := svc.ListReagents(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.True(t, details[0].NeedsOrder)
	assert.False(t, details[1].NeedsOrder)

	mockDB.ExpectationsWereMet(t)
}

func TestInventory_OrderList_OnlyTriggered(t *testing.T) {
	svc, mockDB, _ := newInventoryService(t)

	mockDB.ExpectQuery("SELECT * FROM reagents WHERE hide = false ORDER BY product_number").
		WillReturnRows(testutil.MockRows(
			"id", "product_number", "name", "stock", "value_stock",
			"order_trigger_stock", "order_trigger_expiry", "no_order_on_zero_stock",
		).
			AddRow("id-1", "10778", "Anti-CCP Reagent", 0, "0", 2, false, false).
			AddRow("id-2", "20991", "HbA1c Calibrator", 9, "0", 2, false, false))

	needed, err := svc.OrderList(context.Background())
	require.NoError(t, err)
	require.Len(t, needed, 1)
	assert.Equal(t, "10778", needed[0].ProductNumber)

	mockDB.ExpectationsWereMet(t)
}

func TestInventory_ResolveCode(t *testing.T) {
	svc, mockDB, _ := newInventoryService(t)

	mockDB.ExpectQuery("SELECT * FROM reagents WHERE product_number = $1").
		WithArgs("04987270107782").
		WillReturnRows(testutil.MockRows("id", "product_number", "name", "stock", "value_stock").
			AddRow("reagent-1", "04987270107782", "Anti-CCP Reagent", 5, "0"))
	mockDB.ExpectQuery("SELECT * FROM lots WHERE reagent_id = $1 AND lot_number = $2").
		WithArgs("reagent-1", "LOT42").
		WillReturnRows(testutil.MockRows("id", "reagent_id", "lot_number", "stock").
			AddRow("lot-1", "reagent-1", "LOT42", 5))

	result, err := svc.ResolveCode(context.Background(), "01049872701077821727033110LOT42", barcode.FormatStandard)
	require.NoError(t, err)
	assert.True(t, result.Registered)
	assert.Equal(t, "04987270107782", result.Parsed.ProductNumber)
	assert.Equal(t, "LOT42", result.Parsed.LotNumber)
	require.NotNil(t, result.Lot)
	assert.Equal(t, 5, result.Lot.Stock)

	mockDB.ExpectationsWereMet(t)
}

func TestInventory_ResolveCode_Unregistered(t *testing.T) {
	svc, mockDB, _ := newInventoryService(t)

	mockDB.ExpectQuery("SELECT * FROM reagents WHERE product_number = $1").
		WithArgs("04987270107782").
		WillReturnRows(testutil.MockRows("id"))

	result, err := svc.ResolveCode(context.Background(), "01049872701077821727033110LOT42", barcode.FormatStandard)
	require.NoError(t, err)
	assert.False(t, result.Registered)
	assert.Nil(t, result.Reagent)

	mockDB.ExpectationsWereMet(t)
}

func TestInventory_ResolveCode_Invalid(t *testing.T) {
	svc, _, _ := newInventoryService(t)

	_, err := svc.ResolveCode(context.Background(), "garbage", barcode.FormatStandard)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidCode))
}

func TestInventory_GetStocktakeSchedule(t *testing.T) {
	svc, mockDB, _ := newInventoryService(t)

	taken := time.Date(2026, time.June, 30, 9, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("SELECT * FROM histories WHERE action_type = $1 ORDER BY date DESC LIMIT 1").
		WithArgs(repository.ActionInventory).
		WillReturnRows(testutil.MockRows("id", "product_number", "lot_number", "action_type", "date").
			AddRow("h-1", "", "", repository.ActionInventory, taken))

	schedule, err := svc.GetStocktakeSchedule(context.Background())
	require.NoError(t, err)
	require.NotNil(t, schedule.NextInventoryDate)
	assert.True(t, schedule.NextInventoryDate.Equal(taken.AddDate(0, 3, 0)))

	mockDB.ExpectationsWereMet(t)
}

func TestInventory_GetStocktakeSchedule_NeverTaken(t *testing.T) {
	svc, mockDB, _ := newInventoryService(t)

	mockDB.ExpectQuery("SELECT * FROM histories WHERE action_type = $1 ORDER BY date DESC LIMIT 1").
		WithArgs(repository.ActionInventory).
		WillReturnRows(testutil.MockRows("id"))

	schedule, err := svc.GetStocktakeSchedule(context.Background())
	require.NoError(t, err)
	assert.Nil(t, schedule.LastInventoryDate)
	assert.Nil(t, schedule.NextInventoryDate)

	mockDB.ExpectationsWereMet(t)
}

func TestInventory_RecordStocktake(t *testing.T) {
	svc, mockDB, pub := newInventoryService(t)

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("INSERT INTO histories").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	mockDB.ExpectCommit()

	h, err := svc.RecordStocktake(context.Background())
	require.NoError(t, err)
	assert.Equal(t, repository.ActionInventory, h.ActionType)

	pub.AssertEventPublished(t, messaging.EventStocktake)
	mockDB.ExpectationsWereMet(t)
}
