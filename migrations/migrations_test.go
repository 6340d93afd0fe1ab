package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The repository layer reads and returns these columns; a migration that
// drops one fails every mutation at runtime, so pin them here.
func TestMigrations_DefineRepositoryColumns(t *testing.T) {
	tests := []struct {
		file    string
		columns []string
	}{
		{
			file: "000001_create_reagents.up.sql",
			columns: []string{
				"id", "product_number", "name", "stock", "max_expiry",
				"current_lot", "value_stock", "order_trigger_stock",
				"order_trigger_expiry", "no_order_on_zero_stock",
				"order_trigger_value_stock", "order_value", "order_quantity",
				"location", "order_date", "hide", "created_at", "updated_at",
			},
		},
		{
			file: "000002_create_lots.up.sql",
			columns: []string{
				"id", "reagent_id", "lot_number", "stock", "expiry_date",
				"created_at", "updated_at",
			},
		},
		{
			file: "000003_create_histories.up.sql",
			columns: []string{
				"id", "product_number", "lot_number", "action_type", "date",
				"actor", "old_stock", "new_stock", "old_value_stock",
				"new_value_stock", "created_at",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			content, err := FS.ReadFile(tt.file)
			require.NoError(t, err)

			sql := string(content)
			for _, col := range tt.columns {
				assert.True(t, strings.Contains(sql, col),
					"column %q missing from %s", col, tt.file)
			}
		})
	}
}

func TestMigrations_EveryUpHasDown(t *testing.T) {
	entries, err := FS.ReadDir(".")
	require.NoError(t, err)

	files := make(map[string]bool, len(entries))
	for _, e := range entries {
		files[e.Name()] = true
	}

	for name := range files {
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		down := strings.TrimSuffix(name, ".up.sql") + ".down.sql"
		assert.True(t, files[down], "missing %s", down)
	}
}
