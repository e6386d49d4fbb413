package visibility

import (
	"encoding/json"
	"errors"
	"fmt"

	"esco_tender/internal/models/bids"
	"esco_tender/internal/models/tender"
	"esco_tender/internal/valuation"
	"esco_tender/internal/variant"
)

var ErrMalformed = errors.New("malformed bid document")

// FieldsFor returns the bid fields exposed by op for the procurement method type.
func FieldsFor(op variant.Operation, procurementMethodType string) ([]string, error) {
	cfg, err := variant.Lookup(procurementMethodType)
	if err != nil {
		return nil, err
	}
	return cfg.Fields(op)
}

// Encode renders exactly the fields op exposes. The value is derived
// from the current bid and tender on every call.
func Encode(bid *bids.Bid, t tender.Bidding, o variant.Operation) (map[string]json.RawMessage, error) {
	const op = "visibility.Encode"

	cfg := t.Variant()
	allowed, err := cfg.Allowed(o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	view := *bid
	if !cfg.SplitDocuments {
		view.Documents = bid.AllDocuments()
		if len(view.Documents) == 0 {
			view.Documents = nil
		}
		view.FinancialDocuments = nil
		view.EligibilityDocuments = nil
		view.QualificationDocuments = nil
	}

	raw, err := json.Marshal(&view)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	all := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, ok := allowed["value"]; ok {
		value, err := valuation.DeriveValue(bid, t)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if all["value"], err = json.Marshal(value); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	out := make(map[string]json.RawMessage, len(allowed))
	for name, v := range all {
		if _, ok := allowed[name]; ok {
			out[name] = v
		}
	}
	return out, nil
}

// EncodeAll encodes bids in order.
func EncodeAll(bs []*bids.Bid, t tender.Bidding, o variant.Operation) ([]map[string]json.RawMessage, error) {
	out := make([]map[string]json.RawMessage, 0, len(bs))
	for _, b := range bs {
		doc, err := Encode(b, t, o)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Decode applies the fields op lets a client write onto a copy of base,
// or onto a new bid when base is nil. Other keys, the derived value
// included, are dropped without complaint.
func Decode(data []byte, cfg variant.Config, o variant.Operation, base *bids.Bid) (*bids.Bid, error) {
	const op = "visibility.Decode"

	allowed, err := cfg.Allowed(o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var in map[string]json.RawMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformed, err)
	}
	return decodeFields(in, allowed, base)
}

func decodeFields(in map[string]json.RawMessage, allowed map[string]struct{}, base *bids.Bid) (*bids.Bid, error) {
	const op = "visibility.Decode"

	for name := range in {
		if _, ok := allowed[name]; !ok || name == "value" {
			delete(in, name)
		}
	}

	out := &bids.Bid{}
	if base != nil {
		var err error
		if out, err = base.Clone(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	filtered, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(filtered, out); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformed, err)
	}

	// identity is never taken from the client
	if base != nil {
		out.Id = base.Id
	} else {
		out.Id = ""
	}
	return out, nil
}

// DecodeRaw is Decode for a document that was already split into fields.
func DecodeRaw(in map[string]json.RawMessage, cfg variant.Config, o variant.Operation, base *bids.Bid) (*bids.Bid, error) {
	const op = "visibility.DecodeRaw"

	allowed, err := cfg.Allowed(o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cp := make(map[string]json.RawMessage, len(in))
	for k, v := range in {
		cp[k] = v
	}
	return decodeFields(cp, allowed, base)
}
