package sql

import (
	"context"
	"fmt"
	"time"

	"github.com/avstrong/hotelbooking/internal/booking"
)

const overlapCondition = "status <> ? AND check_in < ? AND ? < check_out"

func (db *DB) GetRoom(ctx context.Context, roomID uint) (*booking.Room, error) {
	var room booking.Room

	if err := db.conn(ctx).Preload("RoomType").First(&room, roomID).Error; err != nil {
		return nil, fmt.Errorf("room %d: %w", roomID, mapError(err))
	}

	return &room, nil
}

func (db *DB) LockRoom(ctx context.Context, roomID uint) error {
	if _, ok := transactionFromContext(ctx); !ok {
		return ErrTransactionNotFoundInCtx
	}

	var room booking.Room

	if err := db.forUpdate(db.conn(ctx).Select("id")).First(&room, roomID).Error; err != nil {
		return fmt.Errorf("lock room %d: %w", roomID, mapError(err))
	}

	return nil
}

func (db *DB) GetBooking(ctx context.Context, bookingID uint) (*booking.Booking, error) {
	var b booking.Booking

	if err := db.conn(ctx).First(&b, bookingID).Error; err != nil {
		return nil, fmt.Errorf("booking %d: %w", bookingID, mapError(err))
	}

	return &b, nil
}

func (db *DB) GetBookingForUpdate(ctx context.Context, bookingID uint) (*booking.Booking, error) {
	if _, ok := transactionFromContext(ctx); !ok {
		return nil, ErrTransactionNotFoundInCtx
	}

	var b booking.Booking

	if err := db.forUpdate(db.conn(ctx)).First(&b, bookingID).Error; err != nil {
		return nil, fmt.Errorf("booking %d: %w", bookingID, mapError(err))
	}

	return &b, nil
}

func (db *DB) GetBookingByPaymentIntent(ctx context.Context, intentID string) (*booking.Booking, error) {
	var b booking.Booking

	err := db.conn(ctx).Where("payment_intent_id = ? AND payment_intent_id <> ''", intentID).First(&b).Error
	if err != nil {
		return nil, fmt.Errorf("booking with payment intent %s: %w", intentID, mapError(err))
	}

	return &b, nil
}

type detailsRow struct {
	HotelName    string
	HotelAddress string
	CityName     string
	RoomNumber   string
	RoomTypeName string
	UserEmail    string
	FirstName    string
	LastName     string
}

func (db *DB) GetBookingDetails(ctx context.Context, bookingID uint) (*booking.Details, error) {
	b, err := db.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var row detailsRow

	err = db.conn(ctx).Table("bookings").
		Select(`hotels.name AS hotel_name, hotels.address AS hotel_address, cities.name AS city_name,
			rooms.number AS room_number, room_types.name AS room_type_name,
			users.email AS user_email, users.first_name, users.last_name`).
		Joins("LEFT JOIN hotels ON hotels.id = bookings.hotel_id").
		Joins("LEFT JOIN cities ON cities.id = hotels.city_id").
		Joins("LEFT JOIN rooms ON rooms.id = bookings.room_id").
		Joins("LEFT JOIN room_types ON room_types.id = rooms.room_type_id").
		Joins("LEFT JOIN users ON users.id = bookings.user_id").
		Where("bookings.id = ?", bookingID).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("booking details %d: %w", bookingID, mapError(err))
	}

	userName := row.FirstName
	if row.LastName != "" {
		userName += " " + row.LastName
	}

	return &booking.Details{
		Booking:      *b,
		HotelName:    row.HotelName,
		HotelAddress: row.HotelAddress,
		CityName:     row.CityName,
		RoomNumber:   row.RoomNumber,
		RoomTypeName: row.RoomTypeName,
		UserEmail:    row.UserEmail,
		UserName:     userName,
	}, nil
}

func (db *DB) ListBookingsByUser(ctx context.Context, userID uint) ([]*booking.Booking, error) {
	var bookings []*booking.Booking

	err := db.conn(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("bookings of user %d: %w", userID, mapError(err))
	}

	return bookings, nil
}

func (db *DB) GetOverlappingBookings(
	ctx context.Context,
	roomID uint,
	checkIn, checkOut time.Time,
	excludeID *uint,
) ([]*booking.Booking, error) {
	q := db.conn(ctx).
		Where("room_id = ?", roomID).
		Where(overlapCondition, booking.StatusCancelled, checkOut, checkIn)

	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}

	var bookings []*booking.Booking

	if err := q.Order("check_in").Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("overlapping bookings of room %d: %w", roomID, mapError(err))
	}

	return bookings, nil
}

func (db *DB) HasOverlappingBooking(
	ctx context.Context,
	roomID uint,
	checkIn, checkOut time.Time,
	excludeID *uint,
) (bool, error) {
	//nolint:exhaustruct
	q := db.conn(ctx).Model(&booking.Booking{}).
		Where("room_id = ?", roomID).
		Where(overlapCondition, booking.StatusCancelled, checkOut, checkIn)

	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}

	var count int64

	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("count overlapping bookings of room %d: %w", roomID, mapError(err))
	}

	return count > 0, nil
}

func (db *DB) GetAvailableRooms(ctx context.Context, search booking.RoomSearch) ([]*booking.Room, error) {
	q := db.conn(ctx).
		Select("rooms.*").
		Joins("JOIN room_types ON room_types.id = rooms.room_type_id").
		Where("room_types.max_adults >= ? AND room_types.max_children >= ?", search.Adults, search.Children).
		Where(`NOT EXISTS (SELECT 1 FROM bookings WHERE bookings.room_id = rooms.id
			AND bookings.status <> ? AND bookings.check_in < ? AND ? < bookings.check_out)`,
			booking.StatusCancelled, search.CheckOut, search.CheckIn)

	if search.HotelID != nil {
		q = q.Where("rooms.hotel_id = ?", *search.HotelID)
	}

	if search.RoomTypeID != nil {
		q = q.Where("rooms.room_type_id = ?", *search.RoomTypeID)
	}

	var rooms []*booking.Room

	if err := q.Preload("RoomType").Order("rooms.id").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("available rooms: %w", mapError(err))
	}

	return rooms, nil
}

func (db *DB) SaveBooking(ctx context.Context, b *booking.Booking) error {
	if err := db.save(ctx, b, b.ID == 0); err != nil {
		return fmt.Errorf("save booking: %w", err)
	}

	return nil
}

func (db *DB) UpdateBooking(ctx context.Context, b *booking.Booking) error {
	if err := db.save(ctx, b, false); err != nil {
		return fmt.Errorf("update booking %d: %w", b.ID, err)
	}

	return nil
}

func (db *DB) UpdateBookingPdf(ctx context.Context, b *booking.Booking) error {
	b.Touch(db.now())

	res := db.conn(ctx).Model(b).
		Select("pdf_status", "confirmation_pdf_url", "pdf_error", "updated_at").
		Updates(b)
	if err := db.track(ctx, res); err != nil {
		return fmt.Errorf("update pdf of booking %d: %w", b.ID, err)
	}

	return nil
}
