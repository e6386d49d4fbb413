package tender

import (
	"fmt"
	"time"

	"esco_tender/internal/models/bids"
	"esco_tender/internal/models/money"
	"esco_tender/internal/variant"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActiveTendering Status = "active.tendering"
	StatusActiveAuction   Status = "active.auction"
	StatusComplete        Status = "complete"
)

type Lot struct {
	Id     string      `json:"id"`
	Title  string      `json:"title" validate:"required"`
	Value  money.Value `json:"value"`
	Status string      `json:"status,omitempty"`
}

// Record is the persisted shape of a tender. The discount rate is not part
// of it: it is fixed per procurement method type.
type Record struct {
	Id        string      `json:"id"`
	Title     string      `json:"title"`
	Status    Status      `json:"status"`
	Method    string      `json:"procurementMethodType"`
	Value     money.Value `json:"value"`
	Lots      []Lot       `json:"lots,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Tender is implemented by every ESCO tender flavour.
type Tender interface {
	ID() string
	ProcurementMethodType() string
	BaselineValue() money.Value
	Record() Record
}

// Bidding is a tender that takes bids and can value them.
type Bidding interface {
	Tender
	DiscountRate() decimal.Decimal
	Variant() variant.Config
	HasLots() bool
	Lots() []Lot
	Bids() []*bids.Bid
	ActiveBids() []*bids.Bid
}

// Load builds the tender flavour that matches rec.Method.
func Load(rec Record, bs []*bids.Bid) (Tender, error) {
	const op = "models.tender.Load"

	cfg, err := variant.Lookup(rec.Method)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !cfg.TakesBids {
		if len(bs) > 0 {
			return nil, fmt.Errorf("%s: %w", op, variant.ErrNoBids)
		}
		return &Reporting{rec: rec}, nil
	}

	return &ESCO{rec: rec, bids: bs, cfg: cfg}, nil
}

// ESCO is an esco.UA or esco.EU tender.
type ESCO struct {
	rec  Record
	bids []*bids.Bid
	cfg  variant.Config
}

func (t *ESCO) ID() string                    { return t.rec.Id }
func (t *ESCO) ProcurementMethodType() string { return t.rec.Method }
func (t *ESCO) BaselineValue() money.Value    { return t.rec.Value }
func (t *ESCO) Record() Record                { return t.rec }
func (t *ESCO) DiscountRate() decimal.Decimal { return t.cfg.DiscountRate }
func (t *ESCO) Variant() variant.Config       { return t.cfg }
func (t *ESCO) HasLots() bool                 { return len(t.rec.Lots) > 0 }
func (t *ESCO) Lots() []Lot                   { return t.rec.Lots }

// Bids returns the stored collection, including invalid and deleted bids.
func (t *ESCO) Bids() []*bids.Bid { return t.bids }

// ActiveBids returns the bids whose status is neither invalid nor deleted,
// in submission order.
func (t *ESCO) ActiveBids() []*bids.Bid {
	out := make([]*bids.Bid, 0, len(t.bids))
	for _, b := range t.bids {
		if b.Status.Active() {
			out = append(out, b)
		}
	}
	return out
}

// Reporting is an esco.reporting tender. It takes no bids.
type Reporting struct {
	rec Record
}

func (t *Reporting) ID() string                    { return t.rec.Id }
func (t *Reporting) ProcurementMethodType() string { return t.rec.Method }
func (t *Reporting) BaselineValue() money.Value    { return t.rec.Value }
func (t *Reporting) Record() Record                { return t.rec }

type LotRequest struct {
	Title string      `json:"title" validate:"required"`
	Value money.Value `json:"value"`
}

type TenderRequest struct {
	Title                 string       `json:"title" validate:"required"`
	ProcurementMethodType string       `json:"procurementMethodType" validate:"required,oneof=esco.UA esco.EU esco.reporting"`
	Value                 money.Value  `json:"value"`
	Lots                  []LotRequest `json:"lots,omitempty" validate:"dive"`
}

type TenderResponse struct {
	Record
	NBUdiscountRate *decimal.Decimal `json:"NBUdiscountRate,omitempty"`
}

func NewTenderResponse(t Tender) TenderResponse {
	resp := TenderResponse{Record: t.Record()}
	if b, ok := t.(Bidding); ok {
		rate := b.DiscountRate()
		resp.NBUdiscountRate = &rate
	}
	return resp
}
