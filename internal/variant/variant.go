package variant

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	ESCOUA        = "esco.UA"
	ESCOEU        = "esco.EU"
	ESCOReporting = "esco.reporting"
)

type Operation string

const (
	OpCreate      Operation = "create"
	OpEdit        Operation = "edit"
	OpAuctionView Operation = "auction_view"
	OpAuctionPost Operation = "auction_post"
	// OpView is what a bid's own create and edit responses show.
	OpView Operation = "view"
)

var (
	ErrUnknownVariant   = errors.New("unknown procurementMethodType")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrNoBids           = errors.New("tender does not accept bids")
)

// NBUDiscountRate is the National Bank of Ukraine discount rate applied to ESCO bids.
var NBUDiscountRate = decimal.RequireFromString("0.22")

// Config describes everything that differs between the ESCO procurement flavours.
type Config struct {
	ProcurementMethodType string
	TakesBids             bool
	DiscountRate          decimal.Decimal
	// SplitDocuments keeps the financial, eligibility and qualification
	// document lists apart. Without it every list is folded into "documents".
	SplitDocuments   bool
	DefaultBidStatus string
	Roles            map[Operation][]string
}

var escoTerms = []string{"value", "yearlyPayments", "annualCostsReduction", "contractDuration"}

func fields(names ...[]string) []string {
	var out []string
	for _, n := range names {
		out = append(out, n...)
	}
	return out
}

var ua = Config{
	ProcurementMethodType: ESCOUA,
	TakesBids:             true,
	DiscountRate:          NBUDiscountRate,
	SplitDocuments:        false,
	DefaultBidStatus:      "active",
	Roles: map[Operation][]string{
		OpCreate: fields(escoTerms, []string{
			"tenderers", "parameters", "lotValues", "status",
			"selfQualified", "selfEligible", "subcontractingDetails", "documents",
		}),
		OpEdit: fields(escoTerms, []string{
			"tenderers", "parameters", "lotValues", "status", "subcontractingDetails",
		}),
		OpAuctionView: fields(escoTerms, []string{
			"lotValues", "id", "date", "parameters", "participationUrl", "status",
		}),
		OpAuctionPost: fields(escoTerms, []string{"lotValues", "id", "date"}),
		OpView: fields(escoTerms, []string{
			"id", "date", "status", "tenderers", "parameters", "lotValues",
			"selfQualified", "selfEligible", "subcontractingDetails", "documents", "participationUrl",
		}),
	},
}

var eu = Config{
	ProcurementMethodType: ESCOEU,
	TakesBids:             true,
	DiscountRate:          NBUDiscountRate,
	SplitDocuments:        true,
	DefaultBidStatus:      "pending",
	Roles: map[Operation][]string{
		OpCreate: fields(escoTerms, []string{
			"tenderers", "parameters", "lotValues", "status",
			"selfQualified", "selfEligible", "subcontractingDetails",
			"documents", "financialDocuments", "eligibilityDocuments", "qualificationDocuments",
		}),
		OpEdit: fields(escoTerms, []string{
			"tenderers", "parameters", "lotValues", "status", "subcontractingDetails",
		}),
		OpAuctionView: fields(escoTerms, []string{
			"lotValues", "id", "date", "parameters", "participationUrl", "status",
		}),
		OpAuctionPost: fields(escoTerms, []string{"lotValues", "id", "date"}),
		OpView: fields(escoTerms, []string{
			"id", "date", "status", "tenderers", "parameters", "lotValues",
			"selfQualified", "selfEligible", "subcontractingDetails",
			"documents", "financialDocuments", "eligibilityDocuments", "qualificationDocuments",
			"participationUrl",
		}),
	},
}

var reporting = Config{
	ProcurementMethodType: ESCOReporting,
}

var registry = map[string]Config{
	ESCOUA:        ua,
	ESCOEU:        eu,
	ESCOReporting: reporting,
}

func Lookup(procurementMethodType string) (Config, error) {
	const op = "variant.Lookup"

	cfg, ok := registry[procurementMethodType]
	if !ok {
		return Config{}, fmt.Errorf("%s: %w: %q", op, ErrUnknownVariant, procurementMethodType)
	}
	return cfg, nil
}

// Known returns the procurement method types in a stable order.
func Known() []string {
	return []string{ESCOUA, ESCOEU, ESCOReporting}
}

func ValidOperation(o Operation) bool {
	switch o {
	case OpCreate, OpEdit, OpAuctionView, OpAuctionPost, OpView:
		return true
	default:
		return false
	}
}

// Fields returns the ordered whitelist of bid fields for the operation.
// The slice is a copy and may be modified by the caller.
func (c Config) Fields(o Operation) ([]string, error) {
	const op = "variant.Config.Fields"

	if !c.TakesBids {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrNoBids, c.ProcurementMethodType)
	}
	if !ValidOperation(o) {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnknownOperation, o)
	}

	return append([]string(nil), c.Roles[o]...), nil
}

// Allowed returns the whitelist as a set.
func (c Config) Allowed(o Operation) (map[string]struct{}, error) {
	names, err := c.Fields(o)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set, nil
}
