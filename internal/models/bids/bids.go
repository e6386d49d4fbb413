package bids

import (
	"encoding/json"
	"fmt"
	"time"

	"esco_tender/internal/models/money"
)

type Status string

const (
	StatusDraft        Status = "draft"
	StatusPending      Status = "pending"
	StatusActive       Status = "active"
	StatusInvalid      Status = "invalid"
	StatusDeleted      Status = "deleted"
	StatusUnsuccessful Status = "unsuccessful"
)

// Active reports whether a bid with this status belongs to a tender's bid collection.
func (s Status) Active() bool {
	return s != StatusInvalid && s != StatusDeleted
}

type Identifier struct {
	Scheme    string `json:"scheme" validate:"required"`
	Id        string `json:"id" validate:"required"`
	LegalName string `json:"legalName,omitempty"`
}

type Organization struct {
	Name       string     `json:"name" validate:"required"`
	Identifier Identifier `json:"identifier"`
}

type Parameter struct {
	Code  string  `json:"code" validate:"required"`
	Value float64 `json:"value"`
}

type LotValue struct {
	RelatedLot string       `json:"relatedLot" validate:"required"`
	Value      *money.Value `json:"value,omitempty"`
	Date       *time.Time   `json:"date,omitempty"`
}

type Document struct {
	Id            string    `json:"id,omitempty"`
	Title         string    `json:"title" validate:"required"`
	Url           string    `json:"url" validate:"required,url"`
	Format        string    `json:"format,omitempty"`
	DatePublished *time.Time `json:"datePublished,omitempty"`
}

// Bid is the stored shape of an ESCO bid. Its value is not part of it:
// see valuation.DeriveValue.
type Bid struct {
	Id                    string         `json:"id,omitempty"`
	Date                  *time.Time     `json:"date,omitempty"`
	Status                Status         `json:"status,omitempty" validate:"omitempty,oneof=draft pending active invalid deleted unsuccessful"`
	Tenderers             []Organization `json:"tenderers,omitempty" validate:"dive"`
	Parameters            []Parameter    `json:"parameters,omitempty" validate:"dive"`
	LotValues             []LotValue     `json:"lotValues,omitempty" validate:"dive"`
	SelfQualified         *bool          `json:"selfQualified,omitempty"`
	SelfEligible          *bool          `json:"selfEligible,omitempty"`
	SubcontractingDetails string         `json:"subcontractingDetails,omitempty"`

	Documents              []Document `json:"documents,omitempty" validate:"dive"`
	FinancialDocuments     []Document `json:"financialDocuments,omitempty" validate:"dive"`
	EligibilityDocuments   []Document `json:"eligibilityDocuments,omitempty" validate:"dive"`
	QualificationDocuments []Document `json:"qualificationDocuments,omitempty" validate:"dive"`

	ParticipationUrl string `json:"participationUrl,omitempty"`

	// Share of the annual costs reduction paid to the bidder.
	YearlyPayments       *float64     `json:"yearlyPayments,omitempty" validate:"required,min=0,max=1"`
	AnnualCostsReduction *money.Value `json:"annualCostsReduction,omitempty" validate:"required"`
	ContractDuration     *int         `json:"contractDuration,omitempty" validate:"required,min=0,max=10"`

	// TenderId points at the owning tender for lookups only.
	TenderId string `json:"-"`
	Version  int    `json:"-"`
}

// AllDocuments returns every document list of the bid concatenated in taxonomy order.
func (b *Bid) AllDocuments() []Document {
	out := make([]Document, 0, len(b.Documents)+len(b.FinancialDocuments)+len(b.EligibilityDocuments)+len(b.QualificationDocuments))
	out = append(out, b.Documents...)
	out = append(out, b.FinancialDocuments...)
	out = append(out, b.EligibilityDocuments...)
	out = append(out, b.QualificationDocuments...)
	return out
}

// Clone returns a deep copy of the bid, internal fields included.
func (b *Bid) Clone() (*Bid, error) {
	const op = "models.bids.Clone"

	raw, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out Bid
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out.TenderId = b.TenderId
	out.Version = b.Version

	return &out, nil
}
