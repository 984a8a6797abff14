package calculator

import "github.com/shopspring/decimal"

// Rollup computes the break-even snapshot for a storage unit from the
// calculations of the items currently assigned to it.
//
// Break-even is measured on gross sold value, not net profit: a sold item's
// price counts toward paying off the unit before fees and shipping.
func Rollup(unitCost float64, items []ProfitCalculation) UnitStats {
	cost := decimal.NewFromFloat(finiteOrZero(unitCost))

	sold := decimal.Zero
	profit := decimal.Zero
	for _, item := range items {
		sold = sold.Add(decimal.NewFromFloat(finiteOrZero(item.SoldPrice)))
		profit = profit.Add(decimal.NewFromFloat(finiteOrZero(item.NetProfit)))
	}

	denom := decimal.Max(cost, decimal.NewFromInt(1))
	progress := decimal.Min(hundred, sold.Div(denom).Mul(hundred))

	return UnitStats{
		TotalSoldValue:  sold.InexactFloat64(),
		TotalProfit:     profit.InexactFloat64(),
		ProgressPercent: progress.InexactFloat64(),
		IsBreakEven:     sold.GreaterThanOrEqual(cost),
	}
}

// Summarize totals an arbitrary set of calculations
func Summarize(items []ProfitCalculation) Totals {
	sold := decimal.Zero
	fees := decimal.Zero
	profit := decimal.Zero
	profitable := 0
	for _, item := range items {
		sold = sold.Add(decimal.NewFromFloat(finiteOrZero(item.SoldPrice)))
		fees = fees.Add(decimal.NewFromFloat(finiteOrZero(item.PlatformFees)))
		profit = profit.Add(decimal.NewFromFloat(finiteOrZero(item.NetProfit)))
		if item.IsProfitable {
			profitable++
		}
	}
	return Totals{
		ItemCount:       len(items),
		ProfitableCount: profitable,
		TotalSoldValue:  sold.InexactFloat64(),
		TotalFees:       fees.InexactFloat64(),
		TotalProfit:     profit.InexactFloat64(),
	}
}
