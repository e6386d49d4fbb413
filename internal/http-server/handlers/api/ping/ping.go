package ping

import (
	"log/slog"
	"net/http"

	"esco_tender/internal/lib/errors"

	"github.com/go-chi/render"
)

type Pinger interface {
	Ping() error
}

func New(log *slog.Logger, pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.api.ping.New"

		log := log.With(slog.String("op", op))
		log.Info("ping request")

		if err := pinger.Ping(); err != nil {
			log.Error("storage is unreachable", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, errors.NewHttpError("storage is unreachable"))
			return
		}

		render.PlainText(w, r, "ok")
	}
}
