package npv

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrDiscountRate = errors.New("discount rate should be greater than -1")

var (
	one      = decimal.NewFromInt(1)
	minusOne = decimal.NewFromInt(-1)
)

// Calculate returns the net present value of the cost reduction the buyer
// keeps over contractDuration years. Each year the buyer retains
// annualCostsReduction*(1-yearlyPayments), discounted by (1+discountRate)^t.
//
// yearlyPayments and contractDuration are expected to be range-checked by the caller.
func Calculate(discountRate, annualCostsReduction, yearlyPayments decimal.Decimal, contractDuration int) (decimal.Decimal, error) {
	const op = "lib.npv.Calculate"

	if discountRate.LessThanOrEqual(minusOne) {
		return decimal.Zero, fmt.Errorf("%s: %w: got %s", op, ErrDiscountRate, discountRate)
	}

	retained := annualCostsReduction.Mul(one.Sub(yearlyPayments))
	base := one.Add(discountRate)

	total := decimal.Zero
	factor := one
	for year := 1; year <= contractDuration; year++ {
		factor = factor.Mul(base)
		total = total.Add(retained.Div(factor))
	}

	return total, nil
}
