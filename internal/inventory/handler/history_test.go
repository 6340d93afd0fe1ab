package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labstock/labstock-backend/pkg/testutil"
)

func TestHistoryHandler_Append(t *testing.T) {
	env := newTestEnv(t)

	env.mockDB.ExpectQuery("SELECT * FROM reagents WHERE product_number = $1").
		WithArgs("10778").
		WillReturnRows(testutil.MockRows("id", "product_number", "name", "stock", "value_stock").
			AddRow("reagent-1", "10778", "Anti-CCP Reagent", 5, "0"))
	env.mockDB.ExpectBegin()
	env.mockDB.ExpectQuery("INSERT INTO histories").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	env.mockDB.ExpectCommit()

	rec := doJSON(t, env.router, http.MethodPost, "/histories", map[string]interface{}{
		"product_number": "10778",
		"lot_number":     "A12345",
		"action_type":    "update",
		"old_stock":      5,
		"new_stock":      4,
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	env.mockDB.ExpectationsWereMet(t)
}

func TestHistoryHandler_Append_RejectsUnknownActionType(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodPost, "/histories", map[string]interface{}{
		"product_number": "10778",
		"action_type":    "teleport",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestHistoryHandler_Append_UnknownReagent(t *testing.T) {
	env := newTestEnv(t)

	env.mockDB.ExpectQuery("SELECT * FROM reagents WHERE product_number = $1").
		WithArgs("00000").
		WillReturnRows(testutil.MockRows("id"))

	rec := doJSON(t, env.router, http.MethodPost, "/histories", map[string]interface{}{
		"product_number": "00000",
		"action_type":    "update",
	})

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)

	env.mockDB.ExpectationsWereMet(t)
}
