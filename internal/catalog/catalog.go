package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
)

const citiesKey = "catalog:cities"

type Storage interface {
	SaveCity(ctx context.Context, c *City) error
	GetCity(ctx context.Context, id uint) (*City, error)
	ListCities(ctx context.Context) ([]*City, error)
	SaveHotel(ctx context.Context, h *Hotel) error
	GetHotel(ctx context.Context, id uint) (*Hotel, error)
	ListHotels(ctx context.Context, cityID *uint) ([]*Hotel, error)
	SaveRoomType(ctx context.Context, rt *booking.RoomType) error
	GetRoomType(ctx context.Context, id uint) (*booking.RoomType, error)
	ListRoomTypes(ctx context.Context, hotelID uint) ([]*booking.RoomType, error)
	SaveRoom(ctx context.Context, r *booking.Room) error
	ListRooms(ctx context.Context, hotelID uint) ([]*booking.Room, error)
	RoomNumberTaken(ctx context.Context, hotelID uint, number string) (bool, error)
	SaveReview(ctx context.Context, r *Review) error
	ListReviews(ctx context.Context, hotelID uint) ([]*Review, error)
	HasConfirmedBookingAtHotel(ctx context.Context, userID, hotelID uint) (bool, error)
}

type cache interface {
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, value any)
	Delete(ctx context.Context, keys ...string)
}

type Manager struct {
	l        *logger.Logger
	storage  Storage
	cache    cache
	validate *validator.Validate
}

func New(l *logger.Logger, storage Storage, cache cache) *Manager {
	return &Manager{
		l:        l,
		storage:  storage,
		cache:    cache,
		validate: booking.NewValidator(),
	}
}

func hotelKey(id uint) string {
	return fmt.Sprintf("catalog:hotel:%d", id)
}

func (m *Manager) CreateCity(ctx context.Context, c *City) (*City, error) {
	if err := booking.Validate(m.validate, c); err != nil {
		return nil, err
	}

	c.ID = 0

	if err := m.storage.SaveCity(ctx, c); err != nil {
		return nil, fmt.Errorf("save city: %w", err)
	}

	m.cache.Delete(ctx, citiesKey)

	return c, nil
}

func (m *Manager) ListCities(ctx context.Context) ([]*City, error) {
	var cities []*City
	if m.cache.Get(ctx, citiesKey, &cities) {
		return cities, nil
	}

	cities, err := m.storage.ListCities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}

	m.cache.Set(ctx, citiesKey, cities)

	return cities, nil
}

func (m *Manager) CreateHotel(ctx context.Context, h *Hotel) (*Hotel, error) {
	if err := booking.Validate(m.validate, h); err != nil {
		return nil, err
	}

	if _, err := m.storage.GetCity(ctx, h.CityID); err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			return nil, booking.NewFieldError("city_id", "city does not exist")
		}

		return nil, fmt.Errorf("get city %d: %w", h.CityID, err)
	}

	h.ID = 0

	if err := m.storage.SaveHotel(ctx, h); err != nil {
		return nil, fmt.Errorf("save hotel: %w", err)
	}

	return h, nil
}

func (m *Manager) GetHotel(ctx context.Context, id uint) (*Hotel, error) {
	var h Hotel
	if m.cache.Get(ctx, hotelKey(id), &h) {
		return &h, nil
	}

	hotel, err := m.storage.GetHotel(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get hotel %d: %w", id, err)
	}

	m.cache.Set(ctx, hotelKey(id), hotel)

	return hotel, nil
}

func (m *Manager) ListHotels(ctx context.Context, cityID *uint) ([]*Hotel, error) {
	hotels, err := m.storage.ListHotels(ctx, cityID)
	if err != nil {
		return nil, fmt.Errorf("list hotels: %w", err)
	}

	return hotels, nil
}

func (m *Manager) CreateRoomType(ctx context.Context, hotelID uint, input *RoomTypeInput) (*booking.RoomType, error) {
	if err := booking.Validate(m.validate, input); err != nil {
		return nil, err
	}

	if _, err := m.GetHotel(ctx, hotelID); err != nil {
		return nil, err
	}

	//nolint:exhaustruct
	rt := &booking.RoomType{
		HotelID:     hotelID,
		Name:        input.Name,
		Price:       input.Price,
		MaxAdults:   input.MaxAdults,
		MaxChildren: input.MaxChildren,
	}

	if err := m.storage.SaveRoomType(ctx, rt); err != nil {
		return nil, fmt.Errorf("save room type: %w", err)
	}

	return rt, nil
}

func (m *Manager) ListRoomTypes(ctx context.Context, hotelID uint) ([]*booking.RoomType, error) {
	roomTypes, err := m.storage.ListRoomTypes(ctx, hotelID)
	if err != nil {
		return nil, fmt.Errorf("list room types of hotel %d: %w", hotelID, err)
	}

	return roomTypes, nil
}

func (m *Manager) CreateRoom(ctx context.Context, hotelID uint, input *RoomInput) (*booking.Room, error) {
	if err := booking.Validate(m.validate, input); err != nil {
		return nil, err
	}

	if _, err := m.GetHotel(ctx, hotelID); err != nil {
		return nil, err
	}

	rt, err := m.storage.GetRoomType(ctx, input.RoomTypeID)
	if errors.Is(err, booking.ErrNotFound) || (err == nil && rt.HotelID != hotelID) {
		return nil, booking.NewFieldError("room_type_id", "room type does not belong to this hotel")
	}

	if err != nil {
		return nil, fmt.Errorf("get room type %d: %w", input.RoomTypeID, err)
	}

	taken, err := m.storage.RoomNumberTaken(ctx, hotelID, input.Number)
	if err != nil {
		return nil, fmt.Errorf("check room number: %w", err)
	}

	if taken {
		return nil, booking.NewFieldError("number", "room number already exists in this hotel")
	}

	//nolint:exhaustruct
	room := &booking.Room{
		HotelID:    hotelID,
		RoomTypeID: rt.ID,
		Number:     input.Number,
	}

	if err := m.storage.SaveRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("save room: %w", err)
	}

	room.RoomType = rt

	return room, nil
}

func (m *Manager) ListRooms(ctx context.Context, hotelID uint) ([]*booking.Room, error) {
	rooms, err := m.storage.ListRooms(ctx, hotelID)
	if err != nil {
		return nil, fmt.Errorf("list rooms of hotel %d: %w", hotelID, err)
	}

	return rooms, nil
}

// AddReview stores a review from a guest who holds a confirmed booking at
// the hotel.
func (m *Manager) AddReview(ctx context.Context, r *Review) (*Review, error) {
	if err := booking.Validate(m.validate, r); err != nil {
		return nil, err
	}

	if _, err := m.GetHotel(ctx, r.HotelID); err != nil {
		return nil, err
	}

	stayed, err := m.storage.HasConfirmedBookingAtHotel(ctx, r.UserID, r.HotelID)
	if err != nil {
		return nil, fmt.Errorf("check bookings of user %d: %w", r.UserID, err)
	}

	if !stayed {
		return nil, booking.ErrForbidden
	}

	r.ID = 0

	if err := m.storage.SaveReview(ctx, r); err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}

	m.l.WithFields(map[string]any{"hotel_id": r.HotelID, "user_id": r.UserID}).LogInfo("Review has been added")

	return r, nil
}

func (m *Manager) ListReviews(ctx context.Context, hotelID uint) ([]*Review, error) {
	reviews, err := m.storage.ListReviews(ctx, hotelID)
	if err != nil {
		return nil, fmt.Errorf("list reviews of hotel %d: %w", hotelID, err)
	}

	return reviews, nil
}
