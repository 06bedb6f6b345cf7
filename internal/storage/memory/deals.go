package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/deals"
)

func (db *DB) SaveDeal(ctx context.Context, d *deals.Deal) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transactionFromContext(ctx)
	if err != nil {
		return err
	}

	if d.ID == 0 {
		id, err := db.nextID(ctx, "deals")
		if err != nil {
			return err
		}

		d.ID = id
	}

	d.Touch(db.now())

	dealCopy := *d
	put(db, trx, db.deals, d.ID, &dealCopy)

	return nil
}

func (db *DB) ListApplicableDeals(_ context.Context, hotelID, roomTypeID uint, at time.Time) ([]*deals.Deal, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var result []*deals.Deal

	for _, d := range db.deals {
		if !d.AppliesTo(hotelID, roomTypeID, at) {
			continue
		}

		dealCopy := *d
		result = append(result, &dealCopy)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (db *DB) ListDeals(_ context.Context, hotelID *uint, at time.Time) ([]*deals.Deal, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var result []*deals.Deal

	for _, d := range db.deals {
		if !d.IsActive || at.Before(d.ValidFrom) || !at.Before(d.ValidTo) {
			continue
		}

		if hotelID != nil && !db.dealTargetsHotel(d, *hotelID) {
			continue
		}

		dealCopy := *d
		result = append(result, &dealCopy)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

// dealTargetsHotel must be called with db.mu held.
func (db *DB) dealTargetsHotel(d *deals.Deal, hotelID uint) bool {
	if d.HotelID != nil {
		return *d.HotelID == hotelID
	}

	if d.RoomTypeID != nil {
		rt, ok := db.roomTypes[*d.RoomTypeID]

		return ok && rt.HotelID == hotelID
	}

	return false
}

// IncrementDealUsage claims one use of the deal. Inside a transaction the
// claim is undone on rollback.
func (db *DB) IncrementDealUsage(ctx context.Context, dealID uint) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transactionFromContext(ctx)
	if err != nil {
		return err
	}

	d, ok := db.deals[dealID]
	if !ok {
		return fmt.Errorf("deal %d: %w", dealID, booking.ErrNotFound)
	}

	if !d.HasCapacity() {
		return fmt.Errorf("deal %d: %w", dealID, deals.ErrDealExhausted)
	}

	d.CurrentBookings++

	db.trackWrite(trx, func() { d.CurrentBookings-- })

	return nil
}

func (db *DB) DecrementDealUsage(ctx context.Context, dealID uint) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transactionFromContext(ctx)
	if err != nil {
		return err
	}

	d, ok := db.deals[dealID]
	if !ok {
		return fmt.Errorf("deal %d: %w", dealID, booking.ErrNotFound)
	}

	if d.CurrentBookings == 0 {
		return nil
	}

	d.CurrentBookings--

	db.trackWrite(trx, func() { d.CurrentBookings++ })

	return nil
}

// GetDeal is used by tests and the admin surface.
func (db *DB) GetDeal(_ context.Context, dealID uint) (*deals.Deal, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	d, ok := db.deals[dealID]
	if !ok {
		return nil, fmt.Errorf("deal %d: %w", dealID, booking.ErrNotFound)
	}

	dealCopy := *d

	return &dealCopy, nil
}
