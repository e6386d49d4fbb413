package errors

type HttpError struct {
	Reason string `json:"reason"`
}

func NewHttpError(reason string) HttpError {
	return HttpError{Reason: reason}
}

// FieldError is a single field-scoped complaint about a request body.
type FieldError struct {
	Location    string   `json:"location"`
	Name        string   `json:"name"`
	Description []string `json:"description"`
}

type ValidationResponse struct {
	Status string       `json:"status"`
	Errors []FieldError `json:"errors"`
}

func NewValidationResponse(errs []FieldError) ValidationResponse {
	return ValidationResponse{Status: "error", Errors: errs}
}
