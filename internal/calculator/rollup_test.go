package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRollup_EmptyZeroCostUnit(t *testing.T) {
	stats := Rollup(0, nil)

	assert.Equal(t, 0.0, stats.TotalSoldValue)
	assert.Equal(t, 0.0, stats.TotalProfit)
	assert.Equal(t, 0.0, stats.ProgressPercent)
	assert.True(t, stats.IsBreakEven)
}

func TestRollup_EmptyPaidUnit(t *testing.T) {
	stats := Rollup(145, []ProfitCalculation{})

	assert.Equal(t, 0.0, stats.ProgressPercent)
	assert.False(t, stats.IsBreakEven)
}

func TestRollup_ClampsProgress(t *testing.T) {
	stats := Rollup(100, []ProfitCalculation{{SoldPrice: 80}, {SoldPrice: 80}})

	assert.Equal(t, 160.0, stats.TotalSoldValue)
	assert.Equal(t, 100.0, stats.ProgressPercent)
	assert.True(t, stats.IsBreakEven)
}

func TestRollup_PartialProgress(t *testing.T) {
	stats := Rollup(200, []ProfitCalculation{Compute(50, 5, 5)})

	assert.InDelta(t, 25.0, stats.ProgressPercent, tolerance)
	assert.False(t, stats.IsBreakEven)
}

func TestRollup_ZeroCostUsesUnitDenominator(t *testing.T) {
	stats := Rollup(0, []ProfitCalculation{{SoldPrice: 0.5}})

	assert.InDelta(t, 50.0, stats.ProgressPercent, tolerance)
	assert.True(t, stats.IsBreakEven)
}

func TestRollup_BreakEvenScenario(t *testing.T) {
	first := Compute(80, 10, 8)
	second := Compute(90, 12, 9)

	stats := Rollup(145, []ProfitCalculation{first, second})

	assert.Equal(t, 170.0, stats.TotalSoldValue)
	assert.Equal(t, 100.0, stats.ProgressPercent)
	assert.True(t, stats.IsBreakEven)
	assert.InDelta(t, first.NetProfit+second.NetProfit, stats.TotalProfit, tolerance)
}

func TestRollup_UsesSoldValueNotProfit(t *testing.T) {
	// both items lose money, yet their sold value still pays off the unit
	items := []ProfitCalculation{Compute(60, 70, 5), Compute(60, 70, 5)}

	stats := Rollup(100, items)

	assert.True(t, stats.IsBreakEven)
	assert.Less(t, stats.TotalProfit, 0.0)
}

func TestSummarize(t *testing.T) {
	items := []ProfitCalculation{Compute(45, 5, 10), Compute(10, 8, 5)}

	totals := Summarize(items)

	assert.Equal(t, 2, totals.ItemCount)
	assert.Equal(t, 1, totals.ProfitableCount)
	assert.Equal(t, 55.0, totals.TotalSoldValue)
	assert.InDelta(t, 6.2625+1.625, totals.TotalFees, tolerance)
	assert.InDelta(t, 23.7375-4.625, totals.TotalProfit, tolerance)
}
