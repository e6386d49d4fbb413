package respond

import (
	serrors "errors"
	"log/slog"
	"net/http"

	"esco_tender/internal/lib/errors"
	"esco_tender/internal/storage"
	"esco_tender/internal/validation"
	"esco_tender/internal/variant"
	"esco_tender/internal/visibility"

	"github.com/go-chi/render"
)

// Error writes err as a JSON error body with the matching status code.
// Validation problems are reported per field; anything unexpected is logged and hidden.
func Error(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var verrs validation.Errors
	if serrors.As(err, &verrs) {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, errors.NewValidationResponse(verrs))
		return
	}

	switch {
	case serrors.Is(err, visibility.ErrMalformed), serrors.Is(err, storage.ErrBadRequest),
		serrors.Is(err, variant.ErrUnknownVariant):
		render.Status(r, http.StatusBadRequest)
	case serrors.Is(err, storage.ErrNotFound):
		render.Status(r, http.StatusNotFound)
	case serrors.Is(err, variant.ErrNoBids):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, errors.NewHttpError("Tender does not accept bids"))
		return
	case serrors.Is(err, storage.ErrConflict):
		render.Status(r, http.StatusConflict)
	default:
		log.Error("request failed", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errors.NewHttpError("Internal server error"))
		return
	}

	log.Debug("request rejected", slog.String("error", err.Error()))
	render.JSON(w, r, errors.NewHttpError(err.Error()))
}

// Invalid reports a single field-scoped complaint.
func Invalid(w http.ResponseWriter, r *http.Request, name, msg string) {
	render.Status(r, http.StatusUnprocessableEntity)
	render.JSON(w, r, errors.NewValidationResponse([]errors.FieldError{
		{Location: "body", Name: name, Description: []string{msg}},
	}))
}
