package tender

import (
	"errors"
	"testing"

	"esco_tender/internal/models/bids"
	"esco_tender/internal/models/money"
	"esco_tender/internal/variant"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func record(method string) Record {
	return Record{
		Id:     "tender-1",
		Title:  "Street lighting retrofit",
		Status: StatusActiveTendering,
		Method: method,
		Value:  money.Value{Amount: decimal.NewFromInt(1000), Currency: "UAH", ValueAddedTaxIncluded: true},
	}
}

func TestLoad_Variants(t *testing.T) {
	tests := []struct {
		method  string
		bidding bool
	}{
		{variant.ESCOUA, true},
		{variant.ESCOEU, true},
		{variant.ESCOReporting, false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			ten, err := Load(record(tt.method), nil)
			check.NoError(t, err)
			check.Equal(t, tt.method, ten.ProcurementMethodType())
			check.Equal(t, "tender-1", ten.ID())
			check.True(t, ten.BaselineValue().Amount.Equal(decimal.NewFromInt(1000)))

			b, ok := ten.(Bidding)
			check.Equal(t, tt.bidding, ok)
			if ok {
				check.Equal(t, "0.22", b.DiscountRate().String())
			}
		})
	}
}

func TestLoad_UnknownVariant(t *testing.T) {
	_, err := Load(record("aboveThresholdUA"), nil)
	check.True(t, errors.Is(err, variant.ErrUnknownVariant))
}

func TestLoad_ReportingRejectsBids(t *testing.T) {
	_, err := Load(record(variant.ESCOReporting), []*bids.Bid{{Id: "b1"}})
	check.True(t, errors.Is(err, variant.ErrNoBids))
}

func TestActiveBids(t *testing.T) {
	stored := []*bids.Bid{
		{Id: "b1", Status: bids.StatusActive},
		{Id: "b2", Status: bids.StatusInvalid},
		{Id: "b3", Status: bids.StatusPending},
		{Id: "b4", Status: bids.StatusDeleted},
		{Id: "b5", Status: bids.StatusDraft},
	}

	ten, err := Load(record(variant.ESCOEU), stored)
	check.NoError(t, err)
	b := ten.(Bidding)

	active := b.ActiveBids()
	check.Equal(t, 3, len(active))
	check.Equal(t, "b1", active[0].Id)
	check.Equal(t, "b3", active[1].Id)
	check.Equal(t, "b5", active[2].Id)

	// the stored collection is left untouched
	check.Equal(t, 5, len(b.Bids()))
	check.Equal(t, "b2", b.Bids()[1].Id)
}

func TestHasLots(t *testing.T) {
	rec := record(variant.ESCOUA)
	ten, _ := Load(rec, nil)
	check.False(t, ten.(Bidding).HasLots())

	rec.Lots = []Lot{{Id: "lot-1", Title: "Boiler house"}}
	ten, _ = Load(rec, nil)
	check.True(t, ten.(Bidding).HasLots())
	check.Equal(t, "lot-1", ten.(Bidding).Lots()[0].Id)
}

func TestNewTenderResponse(t *testing.T) {
	ua, _ := Load(record(variant.ESCOUA), nil)
	resp := NewTenderResponse(ua)
	check.NotNil(t, resp.NBUdiscountRate)
	check.Equal(t, "0.22", resp.NBUdiscountRate.String())

	rep, _ := Load(record(variant.ESCOReporting), nil)
	check.Nil(t, NewTenderResponse(rep).NBUdiscountRate)
}
