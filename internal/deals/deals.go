package deals

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/avstrong/hotelbooking/internal/booking"
)

type Storage interface {
	ListApplicableDeals(ctx context.Context, hotelID, roomTypeID uint, at time.Time) ([]*Deal, error)
	ListDeals(ctx context.Context, hotelID *uint, at time.Time) ([]*Deal, error)
	IncrementDealUsage(ctx context.Context, dealID uint) error
	DecrementDealUsage(ctx context.Context, dealID uint) error
	SaveDeal(ctx context.Context, d *Deal) error
}

type Manager struct {
	storage  Storage
	validate *validator.Validate
	now      func() time.Time
}

func New(storage Storage) *Manager {
	return &Manager{
		storage:  storage,
		validate: booking.NewValidator(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source. Used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now

	return m
}

// Apply picks the highest applicable discount for the booking and claims one
// use of the deal. It must run inside the booking's unit of work so the claim
// is rolled back together with the booking.
func (m *Manager) Apply(ctx context.Context, b *booking.Booking, room *booking.Room) error {
	candidates, err := m.storage.ListApplicableDeals(ctx, room.HotelID, room.RoomTypeID, m.now())
	if err != nil {
		return fmt.Errorf("list applicable deals for room %d: %w", room.ID, err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DiscountPercentage > candidates[j].DiscountPercentage
	})

	for _, deal := range candidates {
		err := m.storage.IncrementDealUsage(ctx, deal.ID)
		if errors.Is(err, ErrDealExhausted) {
			continue
		}

		if err != nil {
			return fmt.Errorf("claim deal %d: %w", deal.ID, err)
		}

		discount := math.Round(deal.Discount(b.TotalPrice)*100) / 100 //nolint:gomnd
		dealID := deal.ID

		b.DealID = &dealID
		b.DiscountAmount = discount
		b.TotalPrice = math.Round((b.TotalPrice-discount)*100) / 100 //nolint:gomnd

		return nil
	}

	return nil
}

func (m *Manager) Release(ctx context.Context, b *booking.Booking) error {
	if b.DealID == nil {
		return nil
	}

	if err := m.storage.DecrementDealUsage(ctx, *b.DealID); err != nil {
		return fmt.Errorf("release deal %d: %w", *b.DealID, err)
	}

	return nil
}

func (m *Manager) Create(ctx context.Context, d *Deal) (*Deal, error) {
	if err := booking.Validate(m.validate, d); err != nil {
		return nil, err
	}

	d.ID = 0
	d.CurrentBookings = 0
	d.ValidFrom = d.ValidFrom.UTC()
	d.ValidTo = d.ValidTo.UTC()

	if err := m.storage.SaveDeal(ctx, d); err != nil {
		return nil, fmt.Errorf("save deal: %w", err)
	}

	return d, nil
}

// List returns the deals currently usable, optionally scoped to a hotel.
func (m *Manager) List(ctx context.Context, hotelID *uint) ([]*Deal, error) {
	deals, err := m.storage.ListDeals(ctx, hotelID, m.now())
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}

	return deals, nil
}
