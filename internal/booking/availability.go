package booking

import (
	"context"
	"fmt"
	"time"
)

// Overlaps reports whether the half-open intervals [a1, a2) and [b1, b2)
// intersect. Touching intervals do not overlap.
func Overlaps(a1, a2, b1, b2 time.Time) bool {
	return a1.Before(b2) && b1.Before(a2)
}

func day(t time.Time) time.Time {
	t = t.UTC()

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeInterval(checkIn, checkOut time.Time) (time.Time, time.Time, error) {
	checkIn, checkOut = day(checkIn), day(checkOut)
	if !checkIn.Before(checkOut) {
		return time.Time{}, time.Time{}, ErrInvalidInterval
	}

	return checkIn, checkOut, nil
}

func (m *Manager) IsRoomAvailable(
	ctx context.Context,
	roomID uint,
	checkIn, checkOut time.Time,
	excludeBookingID *uint,
) (bool, error) {
	checkIn, checkOut, err := normalizeInterval(checkIn, checkOut)
	if err != nil {
		return false, err
	}

	if _, err := m.storage.GetRoom(ctx, roomID); err != nil {
		return false, fmt.Errorf("get room %d: %w", roomID, err)
	}

	taken, err := m.storage.HasOverlappingBooking(ctx, roomID, checkIn, checkOut, excludeBookingID)
	if err != nil {
		return false, fmt.Errorf("check overlapping bookings of room %d: %w", roomID, err)
	}

	return !taken, nil
}

func (m *Manager) GetOverlappingBookings(
	ctx context.Context,
	roomID uint,
	checkIn, checkOut time.Time,
	excludeBookingID *uint,
) ([]*Booking, error) {
	checkIn, checkOut, err := normalizeInterval(checkIn, checkOut)
	if err != nil {
		return nil, err
	}

	bookings, err := m.storage.GetOverlappingBookings(ctx, roomID, checkIn, checkOut, excludeBookingID)
	if err != nil {
		return nil, fmt.Errorf("get overlapping bookings of room %d: %w", roomID, err)
	}

	return bookings, nil
}

// FindAvailableRooms returns a point-in-time snapshot of the rooms matching
// the search. Nothing is reserved; Initiate re-checks at commit time.
func (m *Manager) FindAvailableRooms(ctx context.Context, search RoomSearch) ([]*Room, error) {
	checkIn, checkOut, err := normalizeInterval(search.CheckIn, search.CheckOut)
	if err != nil {
		return nil, err
	}

	search.CheckIn, search.CheckOut = checkIn, checkOut

	inputErr := newInputError()

	if search.Adults < 1 {
		inputErr.addError("adults", "provide at least one adult")
	}

	if search.Children < 0 {
		inputErr.addError("children", "children must not be negative")
	}

	if inputErr.fieldsCount() > 0 {
		return nil, inputErr
	}

	rooms, err := m.storage.GetAvailableRooms(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("get available rooms from storage: %w", err)
	}

	return rooms, nil
}
