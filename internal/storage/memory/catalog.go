package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/catalog"
)

func (db *DB) SaveCity(ctx context.Context, c *catalog.City) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transactionFromContext(ctx)
	if err != nil {
		return err
	}

	if c.ID == 0 {
		id, err := db.nextID(ctx, "cities")
		if err != nil {
			return err
		}

		c.ID = id
	}

	c.Touch(db.now())

	cityCopy := *c
	put(db, trx, db.cities, c.ID, &cityCopy)

	return nil
}

func (db *DB) GetCity(_ context.Context, id uint) (*catalog.City, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	c, ok := db.cities[id]
	if !ok {
		return nil, fmt.Errorf("city %d: %w", id, booking.ErrNotFound)
	}

	cityCopy := *c

	return &cityCopy, nil
}

func (db *DB) ListCities(_ context.Context) ([]*catalog.City, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]*catalog.City, 0, len(db.cities))

	for _, c := range db.cities {
		cityCopy := *c
		result = append(result, &cityCopy)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (db *DB) SaveHotel(ctx context.Context, h *catalog.Hotel) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transactionFromContext(ctx)
	if err != nil {
		return err
	}

	if h.ID == 0 {
		id, err := db.nextID(ctx, "hotels")
		if err != nil {
			return err
		}

		h.ID = id
	}

	h.Touch(db.now())

	hotelCopy := *h
	put(db, trx, db.hotels, h.ID, &hotelCopy)

	return nil
}

func (db *DB) GetHotel(_ context.Context, id uint) (*catalog.Hotel, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	h, ok := db.hotels[id]
	if !ok {
		return nil, fmt.Errorf("hotel %d: %w", id, booking.ErrNotFound)
	}

	hotelCopy := *h

	return &hotelCopy, nil
}

func (db *DB) ListHotels(_ context.Context, cityID *uint) ([]*catalog.Hotel, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var result []*catalog.Hotel

	for _, h := range db.hotels {
		if cityID != nil && h.CityID != *cityID {
			continue
		}

		hotelCopy := *h
		result = append(result, &hotelCopy)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (db *DB) SaveRoomType(ctx context.Context, rt *booking.RoomType) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transactionFromContext(ctx)
	if err != nil {
		return err
	}

	if rt.ID == 0 {
		id, err := db.nextID(ctx, "room_types")
		if err != nil {
			return err
		}

		rt.ID = id
	}

	rt.Touch(db.now())

	rtCopy := *rt
	put(db, trx, db.roomTypes, rt.ID, &rtCopy)

	return nil
}

func (db *DB) GetRoomType(_ context.Context, id uint) (*booking.RoomType, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rt, ok := db.roomTypes[id]
	if !ok {
		return nil, fmt.Errorf("room type %d: %w", id, booking.ErrNotFound)
	}

	rtCopy := *rt

	return &rtCopy, nil
}

func (db *DB) ListRoomTypes(_ context.Context, hotelID uint) ([]*booking.RoomType, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var result []*booking.RoomType

	for _, rt := range db.roomTypes {
		if rt.HotelID != hotelID {
			continue
		}

		rtCopy := *rt
		result = append(result, &rtCopy)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (db *DB) SaveRoom(ctx context.Context, r *booking.Room) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transactionFromContext(ctx)
	if err != nil {
		return err
	}

	if r.ID == 0 {
		id, err := db.nextID(ctx, "rooms")
		if err != nil {
			return err
		}

		r.ID = id
	}

	r.Touch(db.now())

	roomCopy := *r
	roomCopy.RoomType = nil
	put(db, trx, db.rooms, r.ID, &roomCopy)

	return nil
}

func (db *DB) ListRooms(_ context.Context, hotelID uint) ([]*booking.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var result []*booking.Room

	for id, r := range db.rooms {
		if r.HotelID != hotelID {
			continue
		}

		room, err := db.getRoom(id)
		if err != nil {
			return nil, err
		}

		result = append(result, room)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (db *DB) RoomNumberTaken(_ context.Context, hotelID uint, number string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, r := range db.rooms {
		if r.HotelID == hotelID && r.Number == number {
			return true, nil
		}
	}

	return false, nil
}

func (db *DB) SaveReview(ctx context.Context, r *catalog.Review) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transactionFromContext(ctx)
	if err != nil {
		return err
	}

	if r.ID == 0 {
		id, err := db.nextID(ctx, "reviews")
		if err != nil {
			return err
		}

		r.ID = id
	}

	r.Touch(db.now())

	reviewCopy := *r
	put(db, trx, db.reviews, r.ID, &reviewCopy)

	return nil
}

func (db *DB) ListReviews(_ context.Context, hotelID uint) ([]*catalog.Review, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var result []*catalog.Review

	for _, r := range db.reviews {
		if r.HotelID != hotelID {
			continue
		}

		reviewCopy := *r
		result = append(result, &reviewCopy)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })

	return result, nil
}

func (db *DB) HasConfirmedBookingAtHotel(_ context.Context, userID, hotelID uint) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, b := range db.bookings {
		if b.UserID == userID && b.HotelID == hotelID && b.Status == booking.StatusConfirmed {
			return true, nil
		}
	}

	return false, nil
}
