package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julienbonastre/scantosold/internal/inventory"
)

func TestWriteCSV(t *testing.T) {
	profitable, err := inventory.NewItem(inventory.NewItemParams{SKU: "A-1", Title: "Lamp, brass", StorageUnitID: "U-1", SoldPrice: 100, ItemCost: 5, ShippingCost: 10})
	require.NoError(t, err)
	loss, err := inventory.NewItem(inventory.NewItemParams{SKU: "A-2", StorageUnitID: "U-1", SoldPrice: 10, ItemCost: 8, ShippingCost: 5})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []*inventory.InventoryItem{profitable, loss}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{"A-1", "Lamp, brass", "U-1", "C5", "100.00", "10.00", "5.00", "13.55", "71.45", "true"}, records[1][1:11])
	assert.Equal(t, []string{"10.00", "5.00", "8.00", "1.63", "-4.63", "false"}, records[2][5:11])
}

func TestRowKeepsSignOfSmallLoss(t *testing.T) {
	// 1 - (0.1325 + 0.30) - 0.57 = -0.0025
	item, err := inventory.NewItem(inventory.NewItemParams{SKU: "B-1", StorageUnitID: "U-1", SoldPrice: 1, ShippingCost: 0.57})
	require.NoError(t, err)

	row := Row(item)
	assert.Equal(t, "-0.00", row[9])
	assert.Equal(t, "false", row[10])
}

func TestWriteCSV_EmptyLedger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	assert.Equal(t, "id,sku,title,storage_unit_id,cost_code,sold_price,shipping_cost,item_cost,platform_fees,net_profit,is_profitable,created_at\n", buf.String())
}
