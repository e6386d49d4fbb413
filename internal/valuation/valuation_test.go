package valuation

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"esco_tender/internal/models/bids"
	"esco_tender/internal/models/money"
	"esco_tender/internal/models/tender"
	"esco_tender/internal/storage"
	"esco_tender/internal/variant"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func escoTender(t *testing.T, method, currency string, vat bool) tender.Bidding {
	t.Helper()
	ten, err := tender.Load(tender.Record{
		Id:     "t1",
		Method: method,
		Value:  money.Value{Amount: decimal.NewFromInt(1000), Currency: currency, ValueAddedTaxIncluded: vat},
	}, nil)
	assert.NoError(t, err)
	return ten.(tender.Bidding)
}

func escoBid(reduction string, share float64, years int) *bids.Bid {
	return &bids.Bid{
		TenderId:             "t1",
		YearlyPayments:       &share,
		AnnualCostsReduction: &money.Value{Amount: decimal.RequireFromString(reduction), Currency: "UAH"},
		ContractDuration:     &years,
	}
}

func TestDeriveValue_Scenario(t *testing.T) {
	v, err := DeriveValue(escoBid("10000", 0.3, 3), escoTender(t, variant.ESCOUA, "UAH", true))
	check.NoError(t, err)

	want := 7000/1.22 + 7000/math.Pow(1.22, 2) + 7000/math.Pow(1.22, 3)
	got, _ := v.Amount.Float64()
	check.True(t, math.Abs(got-want)/want < 1e-6)
}

func TestDeriveValue_FollowsTenderCurrency(t *testing.T) {
	tests := []struct {
		currency string
		vat      bool
	}{
		{"UAH", true},
		{"EUR", false},
		{"USD", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%t", tt.currency, tt.vat), func(t *testing.T) {
			// the bid's own currency never leaks into the value
			bid := escoBid("5000", 0.5, 4)
			bid.AnnualCostsReduction.Currency = "GBP"
			bid.AnnualCostsReduction.ValueAddedTaxIncluded = !tt.vat

			v, err := DeriveValue(bid, escoTender(t, variant.ESCOEU, tt.currency, tt.vat))
			check.NoError(t, err)
			check.Equal(t, tt.currency, v.Currency)
			check.Equal(t, tt.vat, v.ValueAddedTaxIncluded)
		})
	}
}

func TestDeriveValue_Deterministic(t *testing.T) {
	bid := escoBid("98765.43", 0.17, 10)
	ten := escoTender(t, variant.ESCOUA, "UAH", true)

	first, err := DeriveValue(bid, ten)
	check.NoError(t, err)
	second, err := DeriveValue(bid, ten)
	check.NoError(t, err)

	check.Equal(t, first.Amount.String(), second.Amount.String())
	check.Equal(t, first.Currency, second.Currency)
	check.Equal(t, first.ValueAddedTaxIncluded, second.ValueAddedTaxIncluded)
}

func TestDeriveValue_TracksCurrentFields(t *testing.T) {
	bid := escoBid("10000", 0.3, 3)
	ten := escoTender(t, variant.ESCOUA, "UAH", true)

	before, err := DeriveValue(bid, ten)
	check.NoError(t, err)

	years := 0
	bid.ContractDuration = &years
	after, err := DeriveValue(bid, ten)
	check.NoError(t, err)

	check.False(t, before.Amount.IsZero())
	check.True(t, after.Amount.IsZero())
}

func TestDeriveValue_Detached(t *testing.T) {
	ten := escoTender(t, variant.ESCOUA, "UAH", true)

	unattached := escoBid("100", 0.1, 1)
	unattached.TenderId = ""

	foreign := escoBid("100", 0.1, 1)
	foreign.TenderId = "t2"

	tests := []struct {
		name string
		bid  *bids.Bid
		ten  tender.Bidding
	}{
		{"no tender id", unattached, ten},
		{"nil tender", escoBid("100", 0.1, 1), nil},
		{"other tender", foreign, ten},
		{"nil bid", nil, ten},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveValue(tt.bid, tt.ten)
			check.True(t, errors.Is(err, ErrDetachedEntity))
		})
	}
}

func TestDeriveValue_Incomplete(t *testing.T) {
	bid := escoBid("100", 0.1, 1)
	bid.AnnualCostsReduction = nil

	_, err := DeriveValue(bid, escoTender(t, variant.ESCOUA, "UAH", true))
	check.True(t, errors.Is(err, ErrIncompleteBid))
}

type resolverFunc func(bid *bids.Bid) (tender.Tender, error)

func (f resolverFunc) OwningTender(bid *bids.Bid) (tender.Tender, error) { return f(bid) }

func TestResolve_OwnerValuesBid(t *testing.T) {
	ten := escoTender(t, variant.ESCOUA, "UAH", false)
	r := resolverFunc(func(bid *bids.Bid) (tender.Tender, error) {
		if bid.TenderId != "t1" {
			return nil, storage.ErrNotFound
		}
		return ten, nil
	})

	bid := escoBid("10000", 0.3, 3)
	owner, err := Resolve(r, bid)
	assert.NoError(t, err)
	check.Equal(t, "t1", owner.ID())

	v, err := DeriveValue(bid, owner)
	check.NoError(t, err)
	check.Equal(t, "UAH", v.Currency)

	lost := escoBid("10000", 0.3, 3)
	lost.TenderId = "t9"
	_, err = Resolve(r, lost)
	check.True(t, errors.Is(err, ErrDetachedEntity))
}

func TestResolve_ReportingTender(t *testing.T) {
	rep, err := tender.Load(tender.Record{Id: "t1", Method: variant.ESCOReporting}, nil)
	assert.NoError(t, err)
	r := resolverFunc(func(*bids.Bid) (tender.Tender, error) { return rep, nil })

	_, err = Resolve(r, escoBid("10000", 0.3, 3))
	check.True(t, errors.Is(err, variant.ErrNoBids))
}

func TestResolve_PropagatesLookupFailure(t *testing.T) {
	boom := errors.New("connection reset")
	r := resolverFunc(func(*bids.Bid) (tender.Tender, error) { return nil, boom })

	_, err := Resolve(r, escoBid("10000", 0.3, 3))
	check.True(t, errors.Is(err, boom))
	check.False(t, errors.Is(err, ErrDetachedEntity))
}
