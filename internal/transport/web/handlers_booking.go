package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/avstrong/hotelbooking/internal/auth"
	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/payment"
)

type createBookingRequest struct {
	RoomID          uint   `json:"room_id"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	Adults          int    `json:"adults"`
	Children        int    `json:"children"`
	GuestName       string `json:"guest_name"`
	SpecialRequests string `json:"special_requests"`
}

func (req *createBookingRequest) toInput(userID uint) (*booking.InitiateInput, error) {
	checkIn, err := parseDate("check_in", req.CheckIn)
	if err != nil {
		return nil, err
	}

	checkOut, err := parseDate("check_out", req.CheckOut)
	if err != nil {
		return nil, err
	}

	return &booking.InitiateInput{
		UserID:          userID,
		RoomID:          req.RoomID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Adults:          req.Adults,
		Children:        req.Children,
		GuestName:       req.GuestName,
		SpecialRequests: req.SpecialRequests,
	}, nil
}

func (s *Server) createBookingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := claimsFromContext(ctx)

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Idempotency-Key header is missing")

		return
	}

	var req createBookingRequest

	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)

		return
	}

	input, err := req.toInput(claims.UserID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	ctx = booking.NewContextWithIdempotencyKey(ctx, idempotencyKey)

	out, err := s.bManager.Initiate(ctx, input)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, out)
}

func (s *Server) listBookingsHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())

	bookings, err := s.bManager.ListUserBookings(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	if bookings == nil {
		bookings = []*booking.Booking{}
	}

	s.writeJSON(w, http.StatusOK, bookings)
}

func (s *Server) getBookingHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)

		return
	}

	b, err := s.bManager.GetBooking(r.Context(), id, claims.UserID, claims.Role == auth.RoleAdmin)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, b)
}

func (s *Server) cancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)

		return
	}

	b, err := s.bManager.Cancel(r.Context(), id, claims.UserID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, b)
}

func (s *Server) confirmBookingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)

		return
	}

	b, err := s.bManager.Confirm(r.Context(), id)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, b)
}

func (s *Server) regeneratePdfHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)

		return
	}

	b, err := s.bManager.RegenerateConfirmationPdf(r.Context(), id, claims.UserID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, b)
}

type availabilityResponse struct {
	RoomID    uint               `json:"room_id"`
	Available bool               `json:"available"`
	Conflicts []*booking.Booking `json:"conflicts"`
}

func (s *Server) roomAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	roomID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)

		return
	}

	checkIn, checkOut, err := queryInterval(r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	available, err := s.bManager.IsRoomAvailable(ctx, roomID, checkIn, checkOut, nil)
	if err != nil {
		s.writeError(w, err)

		return
	}

	resp := availabilityResponse{RoomID: roomID, Available: available, Conflicts: []*booking.Booking{}}

	if !available {
		conflicts, err := s.bManager.GetOverlappingBookings(ctx, roomID, checkIn, checkOut, nil)
		if err != nil {
			s.writeError(w, err)

			return
		}

		for _, c := range conflicts {
			resp.Conflicts = append(resp.Conflicts, &booking.Booking{ //nolint:exhaustruct
				ID:       c.ID,
				RoomID:   c.RoomID,
				CheckIn:  c.CheckIn,
				CheckOut: c.CheckOut,
				Status:   c.Status,
			})
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) availableRoomsHandler(w http.ResponseWriter, r *http.Request) {
	checkIn, checkOut, err := queryInterval(r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	search := booking.RoomSearch{CheckIn: checkIn, CheckOut: checkOut} //nolint:exhaustruct

	if search.HotelID, err = queryUint(r, "hotel_id"); err != nil {
		s.writeError(w, err)

		return
	}

	if search.RoomTypeID, err = queryUint(r, "room_type_id"); err != nil {
		s.writeError(w, err)

		return
	}

	if search.Adults, err = queryInt(r, "adults", 1); err != nil {
		s.writeError(w, err)

		return
	}

	if search.Children, err = queryInt(r, "children", 0); err != nil {
		s.writeError(w, err)

		return
	}

	rooms, err := s.bManager.FindAvailableRooms(r.Context(), search)
	if err != nil {
		s.writeError(w, err)

		return
	}

	if rooms == nil {
		rooms = []*booking.Room{}
	}

	s.writeJSON(w, http.StatusOK, rooms)
}

// paymentWebhookHandler confirms the booking behind a succeeded payment
// intent. Unknown intents, cancelled bookings and other event types are
// acknowledged so the provider stops retrying.
func (s *Server) paymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "could not read body")

		return
	}

	event, err := s.webhooks.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		s.l.LogErrorf("Rejected payment webhook: %v", err)
		s.writeError(w, err)

		return
	}

	l := s.l.WithFields(map[string]any{"event_id": event.ID, "payment_intent": event.IntentID})

	if event.Type != payment.EventPaymentSucceeded {
		l.LogDebug("Ignoring payment event %s", event.Type)
		w.WriteHeader(http.StatusNoContent)

		return
	}

	_, err = s.bManager.ConfirmByPaymentIntent(r.Context(), event.IntentID)
	if errors.Is(err, booking.ErrNotFound) {
		l.LogErrorf("No booking for succeeded payment intent")
		w.WriteHeader(http.StatusNoContent)

		return
	}

	if errors.Is(err, booking.ErrInvalidState) {
		l.LogErrorf("Payment succeeded for a booking that can no longer be confirmed: %v", err)
		w.WriteHeader(http.StatusNoContent)

		return
	}

	if err != nil {
		s.writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fileHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	content, err := s.files.Open(name)
	if err != nil {
		s.l.LogDebug("Could not open file %s: %v", name, err)
		s.writeJSONError(w, http.StatusNotFound, "not found")

		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(content); err != nil {
		s.l.LogErrorf("Could not write file %s: %v", name, err)
	}
}
