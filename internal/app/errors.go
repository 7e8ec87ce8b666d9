package app

import (
	"net/http"
	"time"

	"github.com/cinetex/booking-engine/internal/api"
	"github.com/cinetex/booking-engine/internal/validator"
	"github.com/go-chi/chi/v5/middleware"
	playgroundvalidator "github.com/go-playground/validator/v10"
)

const (
	ErrInternalServer = "The server encountered a problem and could not process your request"
	ErrNotFound       = "The requested resource not found"
	ErrForbidden      = "You do not have permission to access this resource"
)

func (app *Application) logError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.Error(err.Error(), "method", method, "uri", uri)
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code.
func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := api.ErrorResponse{
		Message:   message,
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	app.errorResponse(w, r, http.StatusInternalServerError, ErrInternalServer)
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, ErrNotFound)
}

func (app *Application) forbiddenResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusForbidden, ErrForbidden)
}

func (app *Application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *Application) editConflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	app.errorResponse(w, r, http.StatusConflict, message)
}

func (app *Application) paymentRequiredResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusPaymentRequired, "The payment was declined")
}

// seatsUnavailableResponse reports an expected claim conflict, naming the
// seats so the client can re-prompt seat selection.
func (app *Application) seatsUnavailableResponse(w http.ResponseWriter, r *http.Request, seatNumbers []string) {
	resp := api.SeatConflictResponse{
		Message:          "Some of the selected seats are no longer available",
		ConflictingSeats: seatNumbers,
	}

	err := app.writeJSON(w, http.StatusConflict, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// failedValidationResponse maps validator errors to field-level messages.
func (app *Application) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	validationErrors, ok := err.(playgroundvalidator.ValidationErrors)
	if !ok {
		app.serverErrorResponse(w, r, err)
		return
	}

	errs := make([]api.ValidationError, 0, len(validationErrors))

	for _, vErr := range validationErrors {
		errs = append(errs, api.ValidationError{
			Field: vErr.Field(),
			Issue: validator.ValidationMessage(vErr),
		})
	}

	app.validationErrorsResponse(w, r, errs)
}

func (app *Application) validationErrorsResponse(w http.ResponseWriter, r *http.Request, errs []api.ValidationError) {
	resp := api.ValidationErrorResponse{
		Message:          "The request contains invalid fields",
		ValidationErrors: errs,
		RequestId:        middleware.GetReqID(r.Context()),
		Timestamp:        time.Now(),
	}

	err := app.writeJSON(w, http.StatusUnprocessableEntity, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}
