package calculator

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is matched by every *InvalidInputError
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError names the offending field of a rejected calculation
type InvalidInputError struct {
	Field string
	Value float64
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s must be a non-negative number, got %v", e.Field, e.Value)
}

// Is reports whether target is ErrInvalidInput
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Compute calculates fees, net profit and the profitability verdict.
//
// Fees depend only on soldPrice, net profit depends on the fees, and the
// verdict depends only on net profit. A zero soldPrice means the price is not
// known yet; the result is still well defined (fees equal FixedFee).
// Compute does not validate: callers are expected to sanitize their inputs.
// Values that cannot be represented (NaN, ±Inf) count as 0.
func Compute(soldPrice, itemCost, shippingCost float64) ProfitCalculation {
	soldPrice = finiteOrZero(soldPrice)
	itemCost = finiteOrZero(itemCost)
	shippingCost = finiteOrZero(shippingCost)

	sold := decimal.NewFromFloat(soldPrice)
	fees := sold.Mul(feeRate).Add(fixedFee)
	net := sold.
		Sub(fees).
		Sub(decimal.NewFromFloat(shippingCost)).
		Sub(decimal.NewFromFloat(itemCost))

	return ProfitCalculation{
		SoldPrice:    soldPrice,
		ShippingCost: shippingCost,
		ItemCost:     itemCost,
		PlatformFees: fees.InexactFloat64(),
		NetProfit:    net.InexactFloat64(),
		IsProfitable: net.GreaterThanOrEqual(profitThreshold),
	}
}

// ComputeStrict is Compute with input validation. Negative or non-finite
// values are rejected with an *InvalidInputError instead of being computed.
func ComputeStrict(soldPrice, itemCost, shippingCost float64) (ProfitCalculation, error) {
	if err := Validate(soldPrice, itemCost, shippingCost); err != nil {
		return ProfitCalculation{}, err
	}
	return Compute(soldPrice, itemCost, shippingCost), nil
}

// Validate checks the three raw inputs in computation order
func Validate(soldPrice, itemCost, shippingCost float64) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"sold_price", soldPrice},
		{"item_cost", itemCost},
		{"shipping_cost", shippingCost},
	}
	for _, f := range fields {
		if !isAmount(f.value) {
			return &InvalidInputError{Field: f.name, Value: f.value}
		}
	}
	return nil
}

// CostCode returns the display label for an item cost: "C" + floor(itemCost)
func CostCode(itemCost float64) string {
	return "C" + strconv.FormatFloat(math.Floor(Sanitize(itemCost)), 'f', 0, 64)
}

// Sanitize coerces anything that is not a non-negative finite number to 0
func Sanitize(v float64) float64 {
	if !isAmount(v) {
		return 0
	}
	return v
}

// ParseAmount parses user-entered money text ("$1,234.50", " 12 ").
// Unparseable or negative input yields 0.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return Sanitize(v)
}

// FormatMoney renders v with two decimals, matching JavaScript's toFixed(2):
// the exact binary value is rounded, ties away from zero, and negative values
// that round to zero print as "-0.00".
func FormatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}
	exact, err := decimal.NewFromString(new(big.Float).SetFloat64(v).Text('f', 1074))
	if err != nil {
		exact = decimal.NewFromFloat(v)
	}
	out := exact.StringFixed(2)
	// decimal has no negative zero; toFixed keeps the sign of small losses.
	if v < 0 && out == "0.00" {
		return "-0.00"
	}
	return out
}

func isAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
