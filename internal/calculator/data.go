package calculator

import "github.com/shopspring/decimal"

// Marketplace fee schedule and profitability threshold. These values are part
// of the ledger format: rows exported by earlier versions were computed with
// exactly these numbers.
const (
	FeeRate         = 0.1325
	FixedFee        = 0.30
	ProfitThreshold = 20.00
)

var (
	feeRate         = decimal.RequireFromString("0.1325")
	fixedFee        = decimal.RequireFromString("0.30")
	profitThreshold = decimal.RequireFromString("20.00")
	hundred         = decimal.NewFromInt(100)
)

// ProfitCalculation is the fee and profit breakdown for a single item.
// All three derived fields are produced together by Compute.
type ProfitCalculation struct {
	SoldPrice    float64 `json:"sold_price"`
	ShippingCost float64 `json:"shipping_cost"`
	ItemCost     float64 `json:"item_cost"`
	PlatformFees float64 `json:"platform_fees"`
	NetProfit    float64 `json:"net_profit"`
	IsProfitable bool    `json:"is_profitable"`
}

// UnitStats is the break-even snapshot for one storage unit
type UnitStats struct {
	TotalSoldValue  float64 `json:"total_sold_value"`
	TotalProfit     float64 `json:"total_profit"`
	ProgressPercent float64 `json:"progress_percent"`
	IsBreakEven     bool    `json:"is_break_even"`
}

// Totals summarizes a set of calculations for the dashboard
type Totals struct {
	ItemCount       int     `json:"item_count"`
	ProfitableCount int     `json:"profitable_count"`
	TotalSoldValue  float64 `json:"total_sold_value"`
	TotalFees       float64 `json:"total_fees"`
	TotalProfit     float64 `json:"total_profit"`
}
