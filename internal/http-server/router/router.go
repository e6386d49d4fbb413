package router

import (
	"log/slog"

	"esco_tender/internal/http-server/handlers/api/bids"
	"esco_tender/internal/http-server/handlers/api/ping"
	"esco_tender/internal/http-server/handlers/api/tender"
	"esco_tender/internal/storage"
	"esco_tender/internal/storage/owner"
	"esco_tender/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// New mounts the API on a chi router backed by store.
func New(log *slog.Logger, store storage.Storage, pinger ping.Pinger) *chi.Mux {
	resolver := owner.New(store, store)
	rules := validation.Default()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Route("/api", func(r chi.Router) {
		r.Get("/ping", ping.New(log, pinger))
		r.Route("/tenders", func(r chi.Router) {
			r.Post("/", tender.NewPostTender(log, store))
			r.Get("/{tenderId}", tender.NewGetTender(log, resolver))
			r.Post("/{tenderId}/bids", bids.NewPostBid(log, resolver, store, rules))
			r.Patch("/{tenderId}/bids/{bidId}", bids.NewPatchBid(log, resolver, store, rules))
			r.Get("/{tenderId}/auction", bids.NewGetAuction(log, resolver))
			r.Post("/{tenderId}/auction", bids.NewPostAuction(log, resolver, store, rules))
		})
	})

	return router
}
