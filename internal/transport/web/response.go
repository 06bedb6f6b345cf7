package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avstrong/hotelbooking/internal/auth"
	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/payment"
)

type errorResponse struct {
	Error  string `json:"error"`
	Fields any    `json:"fields,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.LogErrorf("Could not encode response: %v", err.Error())
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg, Fields: nil})
}

// writeError maps domain errors to HTTP statuses. Unknown errors are logged
// and reported as 500 without details.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if inputErr := booking.IsInputError(err); inputErr != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid input", Fields: inputErr.Fields()})

		return
	}

	if availabilityErr := booking.IsAvailabilityError(err); availabilityErr != nil {
		s.writeJSON(w, http.StatusPreconditionFailed, errorResponse{
			Error:  "room unavailable",
			Fields: availabilityErr.Fields(),
		})

		return
	}

	if extErr := booking.IsExternalServiceError(err); extErr != nil {
		s.l.LogErrorf("External service failed: %v", err.Error())
		s.writeJSONError(w, http.StatusBadGateway, extErr.Service+" service is unavailable")

		return
	}

	switch {
	case errors.Is(err, booking.ErrInvalidInterval):
		s.writeJSONError(w, http.StatusUnprocessableEntity, booking.ErrInvalidInterval.Error())
	case errors.Is(err, booking.ErrNotFound):
		s.writeJSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, booking.ErrInvalidState):
		s.writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrIdempotencyKeyInUse):
		s.writeJSONError(w, http.StatusConflict, booking.ErrIdempotencyKeyInUse.Error())
	case errors.Is(err, booking.ErrForbidden):
		s.writeJSONError(w, http.StatusForbidden, booking.ErrForbidden.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.writeJSONError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
	case errors.Is(err, payment.ErrInvalidWebhook):
		s.writeJSONError(w, http.StatusBadRequest, payment.ErrInvalidWebhook.Error())
	default:
		s.l.LogErrorf("Could not process request: %v", err.Error())
		s.writeJSONError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}
