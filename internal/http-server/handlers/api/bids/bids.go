package bids

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"esco_tender/internal/http-server/handlers/api/respond"
	"esco_tender/internal/lib/errors"
	"esco_tender/internal/models/bids"
	"esco_tender/internal/models/money"
	"esco_tender/internal/models/tender"
	"esco_tender/internal/storage"
	"esco_tender/internal/validation"
	"esco_tender/internal/valuation"
	"esco_tender/internal/variant"
	"esco_tender/internal/visibility"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MsgAuctionCount     = "Number of auction results did not match the number of tender bids"
	MsgAuctionIdentical = "Auction bids should be identical to the tender bids"
)

type TenderLoader interface {
	Tender(tenderId string) (tender.Tender, error)
}

// OwnerLoader also finds the tender that owns a stored bid.
type OwnerLoader interface {
	TenderLoader
	valuation.TenderResolver
}

type BidSaver interface {
	SaveBid(bid *bids.Bid) (*bids.Bid, error)
}

type BidEditor interface {
	ReadBid(tenderId, bidId string) (*bids.Bid, error)
	UpdateBid(bid *bids.Bid) (*bids.Bid, error)
}

type BidsUpdater interface {
	UpdateBids(bs []*bids.Bid) ([]*bids.Bid, error)
}

type AuctionResponse struct {
	TenderId        string                       `json:"tenderId"`
	Value           money.Value                  `json:"value"`
	NBUdiscountRate decimal.Decimal              `json:"NBUdiscountRate"`
	Bids            []map[string]json.RawMessage `json:"bids"`
}

type AuctionRequest struct {
	Bids []map[string]json.RawMessage `json:"bids"`
}

func loadBidding(w http.ResponseWriter, r *http.Request, log *slog.Logger, loader TenderLoader) (tender.Bidding, bool) {
	tenderId := chi.URLParam(r, "tenderId")
	if _, err := uuid.Parse(tenderId); err != nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errors.NewHttpError("The tender id is invalid"))
		return nil, false
	}

	t, err := loader.Tender(tenderId)
	if err != nil {
		respond.Error(w, r, log, err)
		return nil, false
	}

	b, ok := t.(tender.Bidding)
	if !ok {
		respond.Error(w, r, log, fmt.Errorf("%s: %w", t.ProcurementMethodType(), variant.ErrNoBids))
		return nil, false
	}
	return b, true
}

// owningTender resolves the tender that owns bid and checks it is the addressed one.
func owningTender(r valuation.TenderResolver, bid *bids.Bid, addressed tender.Bidding) (tender.Bidding, error) {
	const op = "handlers.api.bids.owningTender"

	owner, err := valuation.Resolve(r, bid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if owner.ID() != addressed.ID() {
		return nil, fmt.Errorf("%s: bid %s: %w", op, bid.Id, storage.ErrNotFound)
	}
	return owner, nil
}

func readBody(w http.ResponseWriter, r *http.Request, log *slog.Logger) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("Error reading request body", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errors.NewHttpError("Error reading request body"))
		return nil, false
	}
	return body, true
}

func NewPostBid(log *slog.Logger, tenderLoader TenderLoader, bidSaver BidSaver, rules validation.Rules) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.api.bids.NewPostBid"
		log := log.With(slog.String("op", op))

		t, ok := loadBidding(w, r, log, tenderLoader)
		if !ok {
			return
		}
		body, ok := readBody(w, r, log)
		if !ok {
			return
		}

		bid, err := visibility.Decode(body, t.Variant(), variant.OpCreate, nil)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}
		bid.TenderId = t.ID()
		if bid.Status == "" {
			bid.Status = bids.Status(t.Variant().DefaultBidStatus)
		}
		now := time.Now().UTC()
		bid.Date = &now

		if err := rules.Validate(bid, t); err != nil {
			respond.Error(w, r, log, err)
			return
		}

		saved, err := bidSaver.SaveBid(bid)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		doc, err := visibility.Encode(saved, t, variant.OpView)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		log.Info("bid created", slog.String("tender_id", t.ID()), slog.String("bid_id", saved.Id))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, doc)
	}
}

func NewPatchBid(log *slog.Logger, tenderLoader OwnerLoader, bidEditor BidEditor, rules validation.Rules) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.api.bids.NewPatchBid"
		log := log.With(slog.String("op", op))

		t, ok := loadBidding(w, r, log, tenderLoader)
		if !ok {
			return
		}

		bidId := chi.URLParam(r, "bidId")
		if _, err := uuid.Parse(bidId); err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, errors.NewHttpError("The bid id is invalid"))
			return
		}

		base, err := bidEditor.ReadBid(t.ID(), bidId)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}
		if t, err = owningTender(tenderLoader, base, t); err != nil {
			respond.Error(w, r, log, err)
			return
		}

		body, ok := readBody(w, r, log)
		if !ok {
			return
		}

		bid, err := visibility.Decode(body, t.Variant(), variant.OpEdit, base)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		if err := rules.Validate(bid, t); err != nil {
			respond.Error(w, r, log, err)
			return
		}

		updated, err := bidEditor.UpdateBid(bid)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		doc, err := visibility.Encode(updated, t, variant.OpView)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		log.Info("bid updated", slog.String("bid_id", updated.Id), slog.Int("version", updated.Version))
		render.JSON(w, r, doc)
	}
}

func NewGetAuction(log *slog.Logger, tenderLoader TenderLoader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.api.bids.NewGetAuction"
		log := log.With(slog.String("op", op))

		t, ok := loadBidding(w, r, log, tenderLoader)
		if !ok {
			return
		}

		docs, err := visibility.EncodeAll(t.ActiveBids(), t, variant.OpAuctionView)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		render.JSON(w, r, AuctionResponse{
			TenderId:        t.ID(),
			Value:           t.BaselineValue(),
			NBUdiscountRate: t.DiscountRate(),
			Bids:            docs,
		})
	}
}

func NewPostAuction(log *slog.Logger, tenderLoader OwnerLoader, bidsUpdater BidsUpdater, rules validation.Rules) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.api.bids.NewPostAuction"
		log := log.With(slog.String("op", op))

		t, ok := loadBidding(w, r, log, tenderLoader)
		if !ok {
			return
		}

		var req AuctionRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Error decoding request body", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errors.NewHttpError(err.Error()))
			return
		}

		active := t.ActiveBids()
		if len(req.Bids) != len(active) {
			respond.Invalid(w, r, "bids", MsgAuctionCount)
			return
		}

		byId := make(map[string]*bids.Bid, len(active))
		for _, b := range active {
			byId[b.Id] = b
		}

		results := make([]*bids.Bid, 0, len(req.Bids))
		for i, posted := range req.Bids {
			var id string
			if raw, ok := posted["id"]; !ok || json.Unmarshal(raw, &id) != nil {
				respond.Invalid(w, r, "bids", MsgAuctionIdentical)
				return
			}
			base, ok := byId[id]
			if !ok {
				respond.Invalid(w, r, "bids", MsgAuctionIdentical)
				return
			}
			delete(byId, id)

			owner, err := owningTender(tenderLoader, base, t)
			if err != nil {
				respond.Error(w, r, log, err)
				return
			}

			bid, err := visibility.DecodeRaw(posted, owner.Variant(), variant.OpAuctionPost, base)
			if err != nil {
				respond.Error(w, r, log, err)
				return
			}
			if err := rules.Validate(bid, owner); err != nil {
				respond.Error(w, r, log, prefixed(err, i))
				return
			}
			results = append(results, bid)
		}

		// every result is stored or none is
		updated, err := bidsUpdater.UpdateBids(results)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		docs, err := visibility.EncodeAll(updated, t, variant.OpAuctionPost)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		log.Info("auction results applied", slog.String("tender_id", t.ID()), slog.Int("bids", len(docs)))
		render.JSON(w, r, AuctionRequest{Bids: docs})
	}
}

// prefixed scopes field errors of the i-th posted bid.
func prefixed(err error, i int) error {
	verrs, ok := err.(validation.Errors)
	if !ok {
		return err
	}

	out := make(validation.Errors, len(verrs))
	for j, fe := range verrs {
		fe.Name = fmt.Sprintf("bids[%d].%s", i, fe.Name)
		out[j] = fe
	}
	return out
}
