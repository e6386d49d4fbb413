package validation

import (
	serrors "errors"
	"fmt"
	"reflect"
	"strings"

	"esco_tender/internal/lib/errors"
	"esco_tender/internal/models/bids"
	"esco_tender/internal/models/money"
	"esco_tender/internal/models/tender"
	"esco_tender/internal/valuation"

	"github.com/go-playground/validator/v10"
)

const MsgValueBelowTender = "value of bid should be greater than value of tender"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(moneyValue, money.Value{})

	return v
}

func moneyValue(sl validator.StructLevel) {
	v := sl.Current().Interface().(money.Value)
	if v.Amount.IsNegative() {
		sl.ReportError(v.Amount, "amount", "Amount", "gte", "0")
	}
}

// Errors is a list of field-scoped complaints about a submitted document.
type Errors []errors.FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Name, strings.Join(fe.Description, " ")))
	}
	return strings.Join(parts, "; ")
}

func fieldError(name string, msgs ...string) errors.FieldError {
	return errors.FieldError{Location: "body", Name: name, Description: msgs}
}

// Struct runs the declared range and presence checks of v.
func Struct(v any) Errors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !serrors.As(err, &verrs) {
		return Errors{fieldError("data", err.Error())}
	}

	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldError(fieldName(fe), message(fe)))
	}
	return out
}

// fieldName drops the root struct name from the namespace: Bid.annualCostsReduction.amount -> annualCostsReduction.amount.
func fieldName(fe validator.FieldError) string {
	_, name, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return name
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min", "gte":
		return fmt.Sprintf("Value should be greater than or equal to %s.", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("Value should be less than or equal to %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Value must be one of [%s].", strings.Join(strings.Fields(fe.Param()), ", "))
	case "iso4217":
		return "Currency must be a three-letter ISO 4217 code."
	case "url":
		return "Not a well formed URL."
	default:
		return fmt.Sprintf("Failed %s validation.", fe.Tag())
	}
}

// BidValue rejects a bid whose derived value is below the tender value.
// Tenders with lots are valued per lot and are skipped here.
func BidValue(bid *bids.Bid, t tender.Bidding) error {
	const op = "validation.BidValue"

	if t == nil {
		return fmt.Errorf("%s: %w", op, valuation.ErrDetachedEntity)
	}
	if t.HasLots() {
		return nil
	}

	value, err := valuation.DeriveValue(bid, t)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if value.Less(t.BaselineValue()) {
		return Errors{fieldError("value", MsgValueBelowTender)}
	}
	return nil
}

// LotRule validates a bid against a tender that is divided into lots.
type LotRule func(bid *bids.Bid, t tender.Bidding) Errors

// RelatedLots checks that every lot value points at a lot of the tender.
func RelatedLots(bid *bids.Bid, t tender.Bidding) Errors {
	known := make(map[string]struct{}, len(t.Lots()))
	for _, l := range t.Lots() {
		known[l.Id] = struct{}{}
	}

	var out Errors
	for i, lv := range bid.LotValues {
		if _, ok := known[lv.RelatedLot]; !ok {
			out = append(out, fieldError(fmt.Sprintf("lotValues[%d].relatedLot", i), "relatedLot should be one of lots"))
		}
	}
	return out
}

type Rules struct {
	Lots LotRule
}

func Default() Rules {
	return Rules{Lots: RelatedLots}
}

// Validate runs the structural checks and then the value or lot rules.
// Client mistakes come back as Errors; anything else is a failure of the operation.
func (r Rules) Validate(bid *bids.Bid, t tender.Bidding) error {
	if errs := Struct(bid); len(errs) > 0 {
		return errs
	}

	if t != nil && t.HasLots() {
		if r.Lots == nil {
			return nil
		}
		if errs := r.Lots(bid, t); len(errs) > 0 {
			return errs
		}
		return nil
	}

	return BidValue(bid, t)
}
