package sql

import (
	"context"
	"fmt"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/catalog"
)

func (db *DB) SaveCity(ctx context.Context, c *catalog.City) error {
	if err := db.save(ctx, c, c.ID == 0); err != nil {
		return fmt.Errorf("save city: %w", err)
	}

	return nil
}

func (db *DB) GetCity(ctx context.Context, id uint) (*catalog.City, error) {
	var c catalog.City

	if err := db.conn(ctx).First(&c, id).Error; err != nil {
		return nil, fmt.Errorf("city %d: %w", id, mapError(err))
	}

	return &c, nil
}

func (db *DB) ListCities(ctx context.Context) ([]*catalog.City, error) {
	var cities []*catalog.City

	if err := db.conn(ctx).Order("id").Find(&cities).Error; err != nil {
		return nil, fmt.Errorf("list cities: %w", mapError(err))
	}

	return cities, nil
}

func (db *DB) SaveHotel(ctx context.Context, h *catalog.Hotel) error {
	if err := db.save(ctx, h, h.ID == 0); err != nil {
		return fmt.Errorf("save hotel: %w", err)
	}

	return nil
}

func (db *DB) GetHotel(ctx context.Context, id uint) (*catalog.Hotel, error) {
	var h catalog.Hotel

	if err := db.conn(ctx).First(&h, id).Error; err != nil {
		return nil, fmt.Errorf("hotel %d: %w", id, mapError(err))
	}

	return &h, nil
}

func (db *DB) ListHotels(ctx context.Context, cityID *uint) ([]*catalog.Hotel, error) {
	q := db.conn(ctx)
	if cityID != nil {
		q = q.Where("city_id = ?", *cityID)
	}

	var hotels []*catalog.Hotel

	if err := q.Order("id").Find(&hotels).Error; err != nil {
		return nil, fmt.Errorf("list hotels: %w", mapError(err))
	}

	return hotels, nil
}

func (db *DB) SaveRoomType(ctx context.Context, rt *booking.RoomType) error {
	if err := db.save(ctx, rt, rt.ID == 0); err != nil {
		return fmt.Errorf("save room type: %w", err)
	}

	return nil
}

func (db *DB) GetRoomType(ctx context.Context, id uint) (*booking.RoomType, error) {
	var rt booking.RoomType

	if err := db.conn(ctx).First(&rt, id).Error; err != nil {
		return nil, fmt.Errorf("room type %d: %w", id, mapError(err))
	}

	return &rt, nil
}

func (db *DB) ListRoomTypes(ctx context.Context, hotelID uint) ([]*booking.RoomType, error) {
	var roomTypes []*booking.RoomType

	if err := db.conn(ctx).Where("hotel_id = ?", hotelID).Order("id").Find(&roomTypes).Error; err != nil {
		return nil, fmt.Errorf("list room types of hotel %d: %w", hotelID, mapError(err))
	}

	return roomTypes, nil
}

func (db *DB) SaveRoom(ctx context.Context, r *booking.Room) error {
	if err := db.save(ctx, r, r.ID == 0); err != nil {
		return fmt.Errorf("save room: %w", err)
	}

	return nil
}

func (db *DB) ListRooms(ctx context.Context, hotelID uint) ([]*booking.Room, error) {
	var rooms []*booking.Room

	err := db.conn(ctx).Preload("RoomType").Where("hotel_id = ?", hotelID).Order("id").Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("list rooms of hotel %d: %w", hotelID, mapError(err))
	}

	return rooms, nil
}

func (db *DB) RoomNumberTaken(ctx context.Context, hotelID uint, number string) (bool, error) {
	var count int64

	//nolint:exhaustruct
	err := db.conn(ctx).Model(&booking.Room{}).
		Where("hotel_id = ? AND number = ?", hotelID, number).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count rooms numbered %s: %w", number, mapError(err))
	}

	return count > 0, nil
}

func (db *DB) SaveReview(ctx context.Context, r *catalog.Review) error {
	if err := db.save(ctx, r, r.ID == 0); err != nil {
		return fmt.Errorf("save review: %w", err)
	}

	return nil
}

func (db *DB) ListReviews(ctx context.Context, hotelID uint) ([]*catalog.Review, error) {
	var reviews []*catalog.Review

	if err := db.conn(ctx).Where("hotel_id = ?", hotelID).Order("id DESC").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list reviews of hotel %d: %w", hotelID, mapError(err))
	}

	return reviews, nil
}

func (db *DB) HasConfirmedBookingAtHotel(ctx context.Context, userID, hotelID uint) (bool, error) {
	var count int64

	//nolint:exhaustruct
	err := db.conn(ctx).Model(&booking.Booking{}).
		Where("user_id = ? AND hotel_id = ? AND status = ?", userID, hotelID, booking.StatusConfirmed).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count confirmed bookings: %w", mapError(err))
	}

	return count > 0, nil
}
