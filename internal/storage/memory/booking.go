package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/avstrong/hotelbooking/internal/booking"
)

func copyBooking(b *booking.Booking) *booking.Booking {
	c := *b

	return &c
}

// bookingsView must be called with db.mu held. Staged rows of trx shadow the
// committed ones.
func (db *DB) bookingsView(trx *transaction) map[uint]*booking.Booking {
	if trx == nil || len(trx.bookingModifications) == 0 {
		return db.bookings
	}

	view := make(map[uint]*booking.Booking, len(db.bookings)+len(trx.bookingModifications))
	for id, b := range db.bookings {
		view[id] = b
	}

	for id, b := range trx.bookingModifications {
		view[id] = b
	}

	return view
}

// getRoom must be called with db.mu held.
func (db *DB) getRoom(roomID uint) (*booking.Room, error) {
	r, ok := db.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %d: %w", roomID, booking.ErrNotFound)
	}

	c := *r

	if rt, ok := db.roomTypes[r.RoomTypeID]; ok {
		rtCopy := *rt
		c.RoomType = &rtCopy
	}

	return &c, nil
}

func (db *DB) GetRoom(_ context.Context, roomID uint) (*booking.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.getRoom(roomID)
}

func (db *DB) GetBooking(ctx context.Context, bookingID uint) (*booking.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transactionFromContext(ctx)
	if err != nil {
		return nil, err
	}

	b, ok := db.bookingsView(trx)[bookingID]
	if !ok {
		return nil, fmt.Errorf("booking %d: %w", bookingID, booking.ErrNotFound)
	}

	return copyBooking(b), nil
}

func (db *DB) GetBookingForUpdate(ctx context.Context, bookingID uint) (*booking.Booking, error) {
	if err := db.lockRow(ctx, fmt.Sprintf("booking:%d", bookingID)); err != nil {
		return nil, err
	}

	return db.GetBooking(ctx, bookingID)
}

func (db *DB) GetBookingByPaymentIntent(_ context.Context, intentID string) (*booking.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, b := range db.bookings {
		if intentID != "" && b.PaymentIntentID == intentID {
			return copyBooking(b), nil
		}
	}

	return nil, fmt.Errorf("booking with payment intent %s: %w", intentID, booking.ErrNotFound)
}

func (db *DB) GetBookingDetails(_ context.Context, bookingID uint) (*booking.Details, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	b, ok := db.bookings[bookingID]
	if !ok {
		return nil, fmt.Errorf("booking %d: %w", bookingID, booking.ErrNotFound)
	}

	//nolint:exhaustruct
	details := &booking.Details{Booking: *b}

	if h, ok := db.hotels[b.HotelID]; ok {
		details.HotelName = h.Name
		details.HotelAddress = h.Address

		if c, ok := db.cities[h.CityID]; ok {
			details.CityName = c.Name
		}
	}

	if r, ok := db.rooms[b.RoomID]; ok {
		details.RoomNumber = r.Number

		if rt, ok := db.roomTypes[r.RoomTypeID]; ok {
			details.RoomTypeName = rt.Name
		}
	}

	if u, ok := db.users[b.UserID]; ok {
		details.UserEmail = u.Email
		details.UserName = u.FullName()
	}

	return details, nil
}

func (db *DB) ListBookingsByUser(_ context.Context, userID uint) ([]*booking.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var result []*booking.Booking

	for _, b := range db.bookings {
		if b.UserID == userID {
			result = append(result, copyBooking(b))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt) ||
			(result[i].CreatedAt.Equal(result[j].CreatedAt) && result[i].ID > result[j].ID)
	})

	return result, nil
}

// overlapping must be called with db.mu held.
func (db *DB) overlapping(
	view map[uint]*booking.Booking,
	roomID uint,
	checkIn, checkOut time.Time,
	excludeID *uint,
) []*booking.Booking {
	var result []*booking.Booking

	for _, b := range view {
		if b.RoomID != roomID || !b.Active() {
			continue
		}

		if excludeID != nil && b.ID == *excludeID {
			continue
		}

		if b.OverlapsWith(checkIn, checkOut) {
			result = append(result, copyBooking(b))
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].CheckIn.Before(result[j].CheckIn) })

	return result
}

func (db *DB) GetOverlappingBookings(
	ctx context.Context,
	roomID uint,
	checkIn, checkOut time.Time,
	excludeID *uint,
) ([]*booking.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transactionFromContext(ctx)
	if err != nil {
		return nil, err
	}

	return db.overlapping(db.bookingsView(trx), roomID, checkIn, checkOut, excludeID), nil
}

func (db *DB) HasOverlappingBooking(
	ctx context.Context,
	roomID uint,
	checkIn, checkOut time.Time,
	excludeID *uint,
) (bool, error) {
	bookings, err := db.GetOverlappingBookings(ctx, roomID, checkIn, checkOut, excludeID)
	if err != nil {
		return false, err
	}

	return len(bookings) > 0, nil
}

func (db *DB) GetAvailableRooms(ctx context.Context, search booking.RoomSearch) ([]*booking.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transactionFromContext(ctx)
	if err != nil {
		return nil, err
	}

	view := db.bookingsView(trx)

	var result []*booking.Room

	for id, r := range db.rooms {
		if search.HotelID != nil && r.HotelID != *search.HotelID {
			continue
		}

		if search.RoomTypeID != nil && r.RoomTypeID != *search.RoomTypeID {
			continue
		}

		rt, ok := db.roomTypes[r.RoomTypeID]
		if !ok || !rt.Fits(search.Adults, search.Children) {
			continue
		}

		if len(db.overlapping(view, id, search.CheckIn, search.CheckOut, nil)) > 0 {
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

func (db *DB) SaveBooking(ctx context.Context, b *booking.Booking) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transactionFromContext(ctx)
	if err != nil {
		return err
	}

	if b.ID == 0 {
		id, err := db.nextID(ctx, "bookings")
		if err != nil {
			return err
		}

		b.ID = id
	}

	b.Touch(db.now())

	if trx == nil {
		db.bookings[b.ID] = copyBooking(b)

		return nil
	}

	trx.bookingModifications[b.ID] = copyBooking(b)

	return nil
}

func (db *DB) UpdateBooking(ctx context.Context, b *booking.Booking) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transactionFromContext(ctx)
	if err != nil {
		return err
	}

	if _, ok := db.bookingsView(trx)[b.ID]; !ok {
		return fmt.Errorf("booking %d: %w", b.ID, booking.ErrNotFound)
	}

	b.Touch(db.now())

	if trx == nil {
		db.bookings[b.ID] = copyBooking(b)

		return nil
	}

	trx.bookingModifications[b.ID] = copyBooking(b)

	return nil
}

func (db *DB) UpdateBookingPdf(ctx context.Context, b *booking.Booking) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transactionFromContext(ctx)
	if err != nil {
		return err
	}

	stored, ok := db.bookingsView(trx)[b.ID]
	if !ok {
		return fmt.Errorf("booking %d: %w", b.ID, booking.ErrNotFound)
	}

	b.Touch(db.now())

	updated := copyBooking(stored)
	updated.PdfStatus = b.PdfStatus
	updated.ConfirmationPdfURL = b.ConfirmationPdfURL
	updated.PdfError = b.PdfError
	updated.UpdatedAt = b.UpdatedAt

	if trx == nil {
		db.bookings[b.ID] = updated

		return nil
	}

	trx.bookingModifications[b.ID] = updated

	return nil
}
