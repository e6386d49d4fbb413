package storage

import (
	"errors"

	"esco_tender/internal/models/bids"
	"esco_tender/internal/models/tender"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("bid was modified concurrently")
)

type TenderStorage interface {
	SaveTender(rec tender.Record) (tender.Record, error)
	ReadTender(tenderId string) (tender.Record, error)
}

type BidStorage interface {
	SaveBid(bid *bids.Bid) (*bids.Bid, error)
	ReadBid(tenderId, bidId string) (*bids.Bid, error)
	// ReadTenderBids returns every stored bid of the tender in submission order.
	ReadTenderBids(tenderId string) ([]*bids.Bid, error)
	// UpdateBid stores bid if its Version still matches the stored one and
	// returns it with the next version.
	UpdateBid(bid *bids.Bid) (*bids.Bid, error)
	// UpdateBids applies UpdateBid to every bid or to none of them.
	UpdateBids(bs []*bids.Bid) ([]*bids.Bid, error)
}

type Storage interface {
	TenderStorage
	BidStorage
}
