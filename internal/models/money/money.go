package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNegativeAmount = errors.New("amount should be greater than or equal to 0")

func init() {
	// amounts travel as JSON numbers, matching the rest of the procurement API
	decimal.MarshalJSONWithoutQuotes = true
}

// Value is an amount of money together with its currency and VAT flag.
// It is passed by value; holders never mutate a Value in place.
type Value struct {
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency" validate:"required,iso4217"`
	ValueAddedTaxIncluded bool            `json:"valueAddedTaxIncluded"`
}

func New(amount decimal.Decimal, currency string, vatIncluded bool) (Value, error) {
	if amount.IsNegative() {
		return Value{}, ErrNegativeAmount
	}

	return Value{
		Amount:                amount,
		Currency:              currency,
		ValueAddedTaxIncluded: vatIncluded,
	}, nil
}

// Less reports whether v is strictly smaller than other. Currencies are not compared.
func (v Value) Less(other Value) bool {
	return v.Amount.LessThan(other.Amount)
}
