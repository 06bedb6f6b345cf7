package web

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) livenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addRoutes(r *mux.Router) {
	public := func(h http.HandlerFunc) http.Handler {
		return s.applyMiddlewares(h, s.loggerMiddleware(), s.recoverMiddleware())
	}

	authenticated := func(h http.HandlerFunc) http.Handler {
		return s.applyMiddlewares(h, s.authMiddleware(), s.loggerMiddleware(), s.recoverMiddleware())
	}

	admin := func(h http.HandlerFunc) http.Handler {
		return s.applyMiddlewares(h, s.adminMiddleware(), s.authMiddleware(), s.loggerMiddleware(), s.recoverMiddleware())
	}

	r.Handle(s.conf.LivenessEndpoint, public(s.livenessHandler)).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.Handle("/auth/register", public(s.registerHandler)).Methods(http.MethodPost)
	api.Handle("/auth/login", public(s.loginHandler)).Methods(http.MethodPost)
	api.Handle("/me", authenticated(s.meHandler)).Methods(http.MethodGet)

	api.Handle("/cities", public(s.listCitiesHandler)).Methods(http.MethodGet)
	api.Handle("/cities", admin(s.createCityHandler)).Methods(http.MethodPost)

	api.Handle("/hotels", public(s.listHotelsHandler)).Methods(http.MethodGet)
	api.Handle("/hotels", admin(s.createHotelHandler)).Methods(http.MethodPost)
	api.Handle("/hotels/{id:[0-9]+}", public(s.getHotelHandler)).Methods(http.MethodGet)
	api.Handle("/hotels/{id:[0-9]+}/room-types", public(s.listRoomTypesHandler)).Methods(http.MethodGet)
	api.Handle("/hotels/{id:[0-9]+}/room-types", admin(s.createRoomTypeHandler)).Methods(http.MethodPost)
	api.Handle("/hotels/{id:[0-9]+}/rooms", public(s.listRoomsHandler)).Methods(http.MethodGet)
	api.Handle("/hotels/{id:[0-9]+}/rooms", admin(s.createRoomHandler)).Methods(http.MethodPost)
	api.Handle("/hotels/{id:[0-9]+}/reviews", public(s.listReviewsHandler)).Methods(http.MethodGet)
	api.Handle("/hotels/{id:[0-9]+}/reviews", authenticated(s.addReviewHandler)).Methods(http.MethodPost)

	api.Handle("/rooms/available", public(s.availableRoomsHandler)).Methods(http.MethodGet)
	api.Handle("/rooms/{id:[0-9]+}/availability", public(s.roomAvailabilityHandler)).Methods(http.MethodGet)

	api.Handle("/deals", public(s.listDealsHandler)).Methods(http.MethodGet)
	api.Handle("/deals", admin(s.createDealHandler)).Methods(http.MethodPost)

	api.Handle("/bookings", authenticated(s.listBookingsHandler)).Methods(http.MethodGet)
	api.Handle("/bookings", authenticated(s.createBookingHandler)).Methods(http.MethodPost)
	api.Handle("/bookings/{id:[0-9]+}", authenticated(s.getBookingHandler)).Methods(http.MethodGet)
	api.Handle("/bookings/{id:[0-9]+}/cancel", authenticated(s.cancelBookingHandler)).Methods(http.MethodPost)
	api.Handle("/bookings/{id:[0-9]+}/confirm", admin(s.confirmBookingHandler)).Methods(http.MethodPost)
	api.Handle("/bookings/{id:[0-9]+}/confirmation-pdf", authenticated(s.regeneratePdfHandler)).
		Methods(http.MethodPost)

	if s.webhooks != nil {
		api.Handle("/payments/webhook", public(s.paymentWebhookHandler)).Methods(http.MethodPost)
	}

	if s.files != nil {
		r.Handle("/files/{name}", public(s.fileHandler)).Methods(http.MethodGet)
	}
}
