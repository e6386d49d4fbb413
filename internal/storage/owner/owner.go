package owner

import (
	"fmt"

	"esco_tender/internal/models/bids"
	"esco_tender/internal/models/tender"
	"esco_tender/internal/variant"
)

type TenderReader interface {
	ReadTender(tenderId string) (tender.Record, error)
}

type TenderBidsReader interface {
	ReadTenderBids(tenderId string) ([]*bids.Bid, error)
}

// Resolver loads the tender owning a bid together with its bid collection.
type Resolver struct {
	tenders TenderReader
	bids    TenderBidsReader
}

func New(tenders TenderReader, bids TenderBidsReader) *Resolver {
	return &Resolver{tenders: tenders, bids: bids}
}

func (r *Resolver) OwningTender(bid *bids.Bid) (tender.Tender, error) {
	const op = "storage.owner.OwningTender"

	t, err := r.Tender(bid.TenderId)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// Tender loads a tender of any flavour. Bids are loaded only for flavours that take them.
func (r *Resolver) Tender(tenderId string) (tender.Tender, error) {
	const op = "storage.owner.Tender"

	rec, err := r.tenders.ReadTender(tenderId)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg, err := variant.Lookup(rec.Method)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var bs []*bids.Bid
	if cfg.TakesBids {
		bs, err = r.bids.ReadTenderBids(tenderId)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	t, err := tender.Load(rec, bs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}
