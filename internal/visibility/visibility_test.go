package visibility

import (
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"esco_tender/internal/models/bids"
	"esco_tender/internal/models/money"
	"esco_tender/internal/models/tender"
	"esco_tender/internal/valuation"
	"esco_tender/internal/variant"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

var operations = []variant.Operation{variant.OpCreate, variant.OpEdit, variant.OpAuctionView, variant.OpAuctionPost, variant.OpView}

func escoTender(t *testing.T, method string) tender.Bidding {
	t.Helper()
	ten, err := tender.Load(tender.Record{
		Id:     "t1",
		Method: method,
		Value:  money.Value{Amount: decimal.NewFromInt(1000), Currency: "UAH", ValueAddedTaxIncluded: true},
	}, nil)
	assert.NoError(t, err)
	return ten.(tender.Bidding)
}

func fullBid() *bids.Bid {
	share := 0.3
	years := 3
	yes := true
	date := time.Date(2017, 3, 1, 10, 0, 0, 0, time.UTC)
	return &bids.Bid{
		Id:                     "b1",
		Date:                   &date,
		Status:                 bids.StatusActive,
		Tenderers:              []bids.Organization{{Name: "ESCO Ukraine", Identifier: bids.Identifier{Scheme: "UA-EDR", Id: "123"}}},
		Parameters:             []bids.Parameter{{Code: "warranty", Value: 0.05}},
		LotValues:              []bids.LotValue{{RelatedLot: "lot-1"}},
		SelfQualified:          &yes,
		SelfEligible:           &yes,
		SubcontractingDetails:  "local installer",
		Documents:              []bids.Document{{Title: "tech.pdf", Url: "http://ds/1"}},
		FinancialDocuments:     []bids.Document{{Title: "price.pdf", Url: "http://ds/2"}},
		EligibilityDocuments:   []bids.Document{{Title: "license.pdf", Url: "http://ds/3"}},
		QualificationDocuments: []bids.Document{{Title: "cv.pdf", Url: "http://ds/4"}},
		ParticipationUrl:       "http://auction/b1",
		YearlyPayments:         &share,
		AnnualCostsReduction:   &money.Value{Amount: decimal.NewFromInt(10000), Currency: "UAH"},
		ContractDuration:       &years,
		TenderId:               "t1",
	}
}

func keys(doc map[string]json.RawMessage) []string {
	out := make([]string, 0, len(doc))
	for k := range doc {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sorted(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}

// bidFields lists every serialized field of bids.Bid.
func bidFields() []string {
	var out []string
	typ := reflect.TypeOf(bids.Bid{})
	for i := 0; i < typ.NumField(); i++ {
		name, _, _ := strings.Cut(typ.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		out = append(out, name)
	}
	return out
}

func TestPolicyCoversEveryBidField(t *testing.T) {
	folded := map[string]bool{"financialDocuments": true, "eligibilityDocuments": true, "qualificationDocuments": true}
	declared := make(map[string]bool)
	for _, name := range bidFields() {
		declared[name] = true
	}

	for _, pmt := range []string{variant.ESCOUA, variant.ESCOEU} {
		t.Run(pmt, func(t *testing.T) {
			cfg, err := variant.Lookup(pmt)
			assert.NoError(t, err)

			union := make(map[string]bool)
			for _, o := range operations {
				names, err := cfg.Fields(o)
				assert.NoError(t, err)
				for _, n := range names {
					union[n] = true
					// nothing in the policy may name a field the bid does not have
					check.True(t, n == "value" || declared[n])
				}
			}

			for name := range declared {
				covered := union[name] || (!cfg.SplitDocuments && folded[name])
				if !covered {
					t.Errorf("bid field %q is not governed by the %s policy", name, pmt)
				}
			}
		})
	}
}

func TestEncode_ExactlyWhitelisted(t *testing.T) {
	for _, pmt := range []string{variant.ESCOUA, variant.ESCOEU} {
		for _, o := range operations {
			t.Run(pmt+"/"+string(o), func(t *testing.T) {
				ten := escoTender(t, pmt)
				doc, err := Encode(fullBid(), ten, o)
				check.NoError(t, err)

				want, _ := FieldsFor(o, pmt)
				check.Equal(t, sorted(want), keys(doc))
			})
		}
	}
}

func TestEncode_AuctionPostHidesTenderer(t *testing.T) {
	doc, err := Encode(fullBid(), escoTender(t, variant.ESCOUA), variant.OpAuctionPost)
	check.NoError(t, err)

	for _, hidden := range []string{"tenderers", "selfQualified", "selfEligible", "subcontractingDetails",
		"documents", "financialDocuments", "eligibilityDocuments", "qualificationDocuments", "participationUrl"} {
		_, ok := doc[hidden]
		check.False(t, ok)
	}
}

func TestEncode_CreateIncludesDocuments(t *testing.T) {
	doc, err := Encode(fullBid(), escoTender(t, variant.ESCOUA), variant.OpCreate)
	check.NoError(t, err)

	var docs []bids.Document
	check.NoError(t, json.Unmarshal(doc["documents"], &docs))
	check.Equal(t, 4, len(docs))
	check.Equal(t, "tech.pdf", docs[0].Title)
	check.Equal(t, "cv.pdf", docs[3].Title)
	_, ok := doc["financialDocuments"]
	check.False(t, ok)
}

func TestEncode_EUKeepsDocumentsSplit(t *testing.T) {
	doc, err := Encode(fullBid(), escoTender(t, variant.ESCOEU), variant.OpCreate)
	check.NoError(t, err)

	var docs []bids.Document
	check.NoError(t, json.Unmarshal(doc["documents"], &docs))
	check.Equal(t, 1, len(docs))
	for _, name := range []string{"financialDocuments", "eligibilityDocuments", "qualificationDocuments"} {
		_, ok := doc[name]
		check.True(t, ok)
	}
}

func TestEncode_AbsentFieldsStayAbsent(t *testing.T) {
	bid := fullBid()
	bid.Tenderers = nil
	bid.Documents, bid.FinancialDocuments, bid.EligibilityDocuments, bid.QualificationDocuments = nil, nil, nil, nil

	doc, err := Encode(bid, escoTender(t, variant.ESCOUA), variant.OpCreate)
	check.NoError(t, err)
	_, ok := doc["tenderers"]
	check.False(t, ok)
	_, ok = doc["documents"]
	check.False(t, ok)
}

func TestEncode_ValueIsFresh(t *testing.T) {
	ten := escoTender(t, variant.ESCOEU)
	bid := fullBid()

	first, err := Encode(bid, ten, variant.OpAuctionView)
	check.NoError(t, err)

	want, err := valuation.DeriveValue(bid, ten)
	assert.NoError(t, err)
	var got money.Value
	check.NoError(t, json.Unmarshal(first["value"], &got))
	check.True(t, got.Amount.Equal(want.Amount))
	check.Equal(t, "UAH", got.Currency)
	check.True(t, got.ValueAddedTaxIncluded)

	years := 0
	bid.ContractDuration = &years
	second, err := Encode(bid, ten, variant.OpAuctionView)
	check.NoError(t, err)
	check.NoError(t, json.Unmarshal(second["value"], &got))
	check.True(t, got.Amount.IsZero())
}

func TestEncode_Detached(t *testing.T) {
	bid := fullBid()
	bid.TenderId = ""

	_, err := Encode(bid, escoTender(t, variant.ESCOUA), variant.OpEdit)
	check.True(t, errors.Is(err, valuation.ErrDetachedEntity))
}

func TestFieldsFor_Reporting(t *testing.T) {
	_, err := FieldsFor(variant.OpCreate, variant.ESCOReporting)
	check.True(t, errors.Is(err, variant.ErrNoBids))

	_, err = FieldsFor(variant.OpCreate, "esco.XX")
	check.True(t, errors.Is(err, variant.ErrUnknownVariant))
}

func TestDecode_DropsUnlisted(t *testing.T) {
	cfg, _ := variant.Lookup(variant.ESCOUA)
	body := []byte(`{
		"id": "forged",
		"value": {"amount": 99999999, "currency": "UAH"},
		"participationUrl": "http://evil",
		"financialDocuments": [{"title": "x.pdf", "url": "http://ds/x"}],
		"documents": [{"title": "tech.pdf", "url": "http://ds/1"}],
		"yearlyPayments": 0.4,
		"annualCostsReduction": {"amount": 5000, "currency": "UAH", "valueAddedTaxIncluded": true},
		"contractDuration": 6,
		"unknown": true
	}`)

	bid, err := Decode(body, cfg, variant.OpCreate, nil)
	check.NoError(t, err)
	check.Equal(t, "", bid.Id)
	check.Equal(t, "", bid.ParticipationUrl)
	check.Equal(t, 0, len(bid.FinancialDocuments))
	check.Equal(t, 1, len(bid.Documents))
	check.Equal(t, 0.4, *bid.YearlyPayments)
	check.Equal(t, 6, *bid.ContractDuration)
	check.Equal(t, "5000", bid.AnnualCostsReduction.Amount.String())
}

func TestDecode_EditPatchesCopy(t *testing.T) {
	cfg, _ := variant.Lookup(variant.ESCOEU)
	base := fullBid()
	base.Version = 2

	bid, err := Decode([]byte(`{"contractDuration": 8, "selfQualified": false, "id": "other"}`), cfg, variant.OpEdit, base)
	check.NoError(t, err)

	check.Equal(t, 8, *bid.ContractDuration)
	check.Equal(t, "b1", bid.Id)
	check.Equal(t, "t1", bid.TenderId)
	check.Equal(t, 2, bid.Version)
	// selfQualified is not editable
	check.True(t, *bid.SelfQualified)
	// base is left alone
	check.Equal(t, 3, *base.ContractDuration)
}

func TestDecode_Malformed(t *testing.T) {
	cfg, _ := variant.Lookup(variant.ESCOUA)

	for _, body := range []string{`{"contractDuration": "ten"}`, `[1,2]`, `{`} {
		_, err := Decode([]byte(body), cfg, variant.OpCreate, nil)
		check.True(t, errors.Is(err, ErrMalformed))
	}
}

func TestDecode_Reporting(t *testing.T) {
	cfg, _ := variant.Lookup(variant.ESCOReporting)
	_, err := Decode([]byte(`{}`), cfg, variant.OpCreate, nil)
	check.True(t, errors.Is(err, variant.ErrNoBids))
}
