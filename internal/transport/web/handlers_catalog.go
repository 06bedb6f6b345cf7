package web

import (
	"net/http"

	"github.com/avstrong/hotelbooking/internal/catalog"
	"github.com/avstrong/hotelbooking/internal/deals"
)

func (s *Server) createCityHandler(w http.ResponseWriter, r *http.Request) {
	var c catalog.City

	if err := decodeJSON(r, &c); err != nil {
		s.writeError(w, err)

		return
	}

	out, err := s.catalog.CreateCity(r.Context(), &c)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, out)
}

func (s *Server) listCitiesHandler(w http.ResponseWriter, r *http.Request) {
	cities, err := s.catalog.ListCities(r.Context())
	if err != nil {
		s.writeError(w, err)

		return
	}

	if cities == nil {
		cities = []*catalog.City{}
	}

	s.writeJSON(w, http.StatusOK, cities)
}

func (s *Server) createHotelHandler(w http.ResponseWriter, r *http.Request) {
	var h catalog.Hotel

	if err := decodeJSON(r, &h); err != nil {
		s.writeError(w, err)

		return
	}

	out, err := s.catalog.CreateHotel(r.Context(), &h)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, out)
}

func (s *Server) listHotelsHandler(w http.ResponseWriter, r *http.Request) {
	cityID, err := queryUint(r, "city_id")
	if err != nil {
		s.writeError(w, err)

		return
	}

	hotels, err := s.catalog.ListHotels(r.Context(), cityID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	if hotels == nil {
		hotels = []*catalog.Hotel{}
	}

	s.writeJSON(w, http.StatusOK, hotels)
}

func (s *Server) getHotelHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)

		return
	}

	h, err := s.catalog.GetHotel(r.Context(), id)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, h)
}

func (s *Server) createRoomTypeHandler(w http.ResponseWriter, r *http.Request) {
	hotelID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)

		return
	}

	var input catalog.RoomTypeInput

	if err := decodeJSON(r, &input); err != nil {
		s.writeError(w, err)

		return
	}

	out, err := s.catalog.CreateRoomType(r.Context(), hotelID, &input)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, out)
}

func (s *Server) listRoomTypesHandler(w http.ResponseWriter, r *http.Request) {
	hotelID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)

		return
	}

	out, err := s.catalog.ListRoomTypes(r.Context(), hotelID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) createRoomHandler(w http.ResponseWriter, r *http.Request) {
	hotelID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)

		return
	}

	var input catalog.RoomInput

	if err := decodeJSON(r, &input); err != nil {
		s.writeError(w, err)

		return
	}

	out, err := s.catalog.CreateRoom(r.Context(), hotelID, &input)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, out)
}

func (s *Server) listRoomsHandler(w http.ResponseWriter, r *http.Request) {
	hotelID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)

		return
	}

	out, err := s.catalog.ListRooms(r.Context(), hotelID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, out)
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *Server) addReviewHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())

	hotelID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)

		return
	}

	var req reviewRequest

	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)

		return
	}

	//nolint:exhaustruct
	out, err := s.catalog.AddReview(r.Context(), &catalog.Review{
		HotelID: hotelID,
		UserID:  claims.UserID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, out)
}

func (s *Server) listReviewsHandler(w http.ResponseWriter, r *http.Request) {
	hotelID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)

		return
	}

	out, err := s.catalog.ListReviews(r.Context(), hotelID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	if out == nil {
		out = []*catalog.Review{}
	}

	s.writeJSON(w, http.StatusOK, out)
}

type dealRequest struct {
	HotelID            *uint   `json:"hotel_id"`
	RoomTypeID         *uint   `json:"room_type_id"`
	Title              string  `json:"title"`
	DiscountPercentage float64 `json:"discount_percentage"`
	ValidFrom          string  `json:"valid_from"`
	ValidTo            string  `json:"valid_to"`
	MaxBookings        int     `json:"max_bookings"`
}

func (s *Server) createDealHandler(w http.ResponseWriter, r *http.Request) {
	var req dealRequest

	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)

		return
	}

	validFrom, err := parseDate("valid_from", req.ValidFrom)
	if err != nil {
		s.writeError(w, err)

		return
	}

	validTo, err := parseDate("valid_to", req.ValidTo)
	if err != nil {
		s.writeError(w, err)

		return
	}

	//nolint:exhaustruct
	out, err := s.deals.Create(r.Context(), &deals.Deal{
		HotelID:            req.HotelID,
		RoomTypeID:         req.RoomTypeID,
		Title:              req.Title,
		DiscountPercentage: req.DiscountPercentage,
		ValidFrom:          validFrom,
		ValidTo:            validTo,
		MaxBookings:        req.MaxBookings,
		IsActive:           true,
	})
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, out)
}

func (s *Server) listDealsHandler(w http.ResponseWriter, r *http.Request) {
	hotelID, err := queryUint(r, "hotel_id")
	if err != nil {
		s.writeError(w, err)

		return
	}

	out, err := s.deals.List(r.Context(), hotelID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	if out == nil {
		out = []*deals.Deal{}
	}

	s.writeJSON(w, http.StatusOK, out)
}
