package tender

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"esco_tender/internal/http-server/handlers/api/respond"
	"esco_tender/internal/lib/errors"
	"esco_tender/internal/models/tender"
	"esco_tender/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type TenderSaver interface {
	SaveTender(rec tender.Record) (tender.Record, error)
}

type TenderGetter interface {
	Tender(tenderId string) (tender.Tender, error)
}

func NewPostTender(log *slog.Logger, tenderSaver TenderSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.api.tender.NewPostTender"
		log := log.With(slog.String("op", op))

		var req tender.TenderRequest

		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()

		err := decoder.Decode(&req)
		if err != nil {
			log.Error("Error decoding request body", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errors.NewHttpError(err.Error()))
			return
		}

		if errs := validation.Struct(&req); len(errs) > 0 {
			respond.Error(w, r, log, errs)
			return
		}

		rec := tender.Record{
			Title:  req.Title,
			Status: tender.StatusActiveTendering,
			Method: req.ProcurementMethodType,
			Value:  req.Value,
		}
		for _, l := range req.Lots {
			rec.Lots = append(rec.Lots, tender.Lot{Title: l.Title, Value: l.Value, Status: "active"})
		}

		saved, err := tenderSaver.SaveTender(rec)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		t, err := tender.Load(saved, nil)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		log.Info("tender created", slog.String("tender_id", saved.Id), slog.String("procurementMethodType", saved.Method))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, tender.NewTenderResponse(t))
	}
}

func NewGetTender(log *slog.Logger, tenderGetter TenderGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.api.tender.NewGetTender"
		log := log.With(slog.String("op", op))

		tenderId := chi.URLParam(r, "tenderId")
		if _, err := uuid.Parse(tenderId); err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, errors.NewHttpError("The tender id is invalid"))
			return
		}

		t, err := tenderGetter.Tender(tenderId)
		if err != nil {
			respond.Error(w, r, log, err)
			return
		}

		render.JSON(w, r, tender.NewTenderResponse(t))
	}
}
