// Package export renders the inventory ledger as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/julienbonastre/scantosold/internal/calculator"
	"github.com/julienbonastre/scantosold/internal/inventory"
)

// Header is the fixed column order of the ledger
var Header = []string{
	"id", "sku", "title", "storage_unit_id", "cost_code",
	"sold_price", "shipping_cost", "item_cost", "platform_fees", "net_profit", "is_profitable",
	"created_at",
}

// WriteCSV writes one row per item after the header
func WriteCSV(w io.Writer, items []*inventory.InventoryItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, item := range items {
		if err := cw.Write(Row(item)); err != nil {
			return fmt.Errorf("write item %s: %w", item.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Row formats a single item; money columns carry two decimals
func Row(item *inventory.InventoryItem) []string {
	calc := item.Calculation()
	return []string{
		item.ID,
		item.SKU,
		item.Title,
		item.StorageUnitID,
		item.CostCode(),
		calculator.FormatMoney(calc.SoldPrice),
		calculator.FormatMoney(calc.ShippingCost),
		calculator.FormatMoney(calc.ItemCost),
		calculator.FormatMoney(calc.PlatformFees),
		calculator.FormatMoney(calc.NetProfit),
		strconv.FormatBool(calc.IsProfitable),
		item.CreatedAt.UTC().Format(time.RFC3339),
	}
}
