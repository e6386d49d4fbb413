package valuation

import (
	"errors"
	"fmt"

	"esco_tender/internal/lib/npv"
	"esco_tender/internal/models/bids"
	"esco_tender/internal/models/money"
	"esco_tender/internal/models/tender"
	"esco_tender/internal/storage"
	"esco_tender/internal/variant"

	"github.com/shopspring/decimal"
)

var (
	ErrDetachedEntity = errors.New("bid is not attached to a tender")
	ErrIncompleteBid  = errors.New("bid is missing valuation terms")
)

// DeriveValue computes the bid value from its ESCO terms and the owning
// tender's discount rate. The result carries the tender's currency and VAT flag.
// Nothing is cached: every call recomputes from the current fields.
func DeriveValue(bid *bids.Bid, t tender.Bidding) (money.Value, error) {
	const op = "valuation.DeriveValue"

	if bid == nil || t == nil || bid.TenderId == "" || bid.TenderId != t.ID() {
		return money.Value{}, fmt.Errorf("%s: %w", op, ErrDetachedEntity)
	}
	if bid.YearlyPayments == nil || bid.AnnualCostsReduction == nil || bid.ContractDuration == nil {
		return money.Value{}, fmt.Errorf("%s: %w", op, ErrIncompleteBid)
	}

	amount, err := npv.Calculate(
		t.DiscountRate(),
		bid.AnnualCostsReduction.Amount,
		decimal.NewFromFloat(*bid.YearlyPayments),
		*bid.ContractDuration,
	)
	if err != nil {
		return money.Value{}, fmt.Errorf("%s: %w", op, err)
	}

	baseline := t.BaselineValue()
	value, err := money.New(amount, baseline.Currency, baseline.ValueAddedTaxIncluded)
	if err != nil {
		return money.Value{}, fmt.Errorf("%s: %w", op, err)
	}

	return value, nil
}

// TenderResolver finds the tender a bid belongs to.
type TenderResolver interface {
	OwningTender(bid *bids.Bid) (tender.Tender, error)
}

// Resolve looks up the owning tender of bid and narrows it to a bidding tender.
func Resolve(r TenderResolver, bid *bids.Bid) (tender.Bidding, error) {
	const op = "valuation.Resolve"

	if bid == nil || bid.TenderId == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrDetachedEntity)
	}

	t, err := r.OwningTender(bid)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrDetachedEntity, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	b, ok := t.(tender.Bidding)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, variant.ErrNoBids)
	}
	return b, nil
}
