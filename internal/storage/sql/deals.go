package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/deals"
)

const dealCapacityCondition = "(max_bookings = 0 OR current_bookings < max_bookings)"

func (db *DB) SaveDeal(ctx context.Context, d *deals.Deal) error {
	if err := db.save(ctx, d, d.ID == 0); err != nil {
		return fmt.Errorf("save deal: %w", err)
	}

	return nil
}

func (db *DB) GetDeal(ctx context.Context, dealID uint) (*deals.Deal, error) {
	var d deals.Deal

	if err := db.conn(ctx).First(&d, dealID).Error; err != nil {
		return nil, fmt.Errorf("deal %d: %w", dealID, mapError(err))
	}

	return &d, nil
}

func (db *DB) ListApplicableDeals(ctx context.Context, hotelID, roomTypeID uint, at time.Time) ([]*deals.Deal, error) {
	var result []*deals.Deal

	err := db.conn(ctx).
		Where("is_active = ? AND valid_from <= ? AND ? < valid_to", true, at, at).
		Where(dealCapacityCondition).
		Where("(hotel_id IS NULL OR hotel_id = ?)", hotelID).
		Where("(room_type_id IS NULL OR room_type_id = ?)", roomTypeID).
		Order("id").
		Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("list applicable deals: %w", mapError(err))
	}

	return result, nil
}

func (db *DB) ListDeals(ctx context.Context, hotelID *uint, at time.Time) ([]*deals.Deal, error) {
	q := db.conn(ctx).Where("is_active = ? AND valid_from <= ? AND ? < valid_to", true, at, at)

	if hotelID != nil {
		q = q.Where("(hotel_id = ? OR room_type_id IN (SELECT id FROM room_types WHERE hotel_id = ?))", *hotelID, *hotelID)
	}

	var result []*deals.Deal

	if err := q.Order("id").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("list deals: %w", mapError(err))
	}

	return result, nil
}

// IncrementDealUsage claims one use with a conditional update so concurrent
// bookings can never push the counter past the cap.
func (db *DB) IncrementDealUsage(ctx context.Context, dealID uint) error {
	//nolint:exhaustruct
	res := db.conn(ctx).Model(&deals.Deal{}).
		Where("id = ?", dealID).
		Where(dealCapacityCondition).
		UpdateColumn("current_bookings", gorm.Expr("current_bookings + 1"))
	if err := db.track(ctx, res); err != nil {
		return fmt.Errorf("increment usage of deal %d: %w", dealID, err)
	}

	if res.RowsAffected > 0 {
		return nil
	}

	if _, err := db.GetDeal(ctx, dealID); err != nil {
		return err
	}

	return fmt.Errorf("deal %d: %w", dealID, deals.ErrDealExhausted)
}

func (db *DB) DecrementDealUsage(ctx context.Context, dealID uint) error {
	//nolint:exhaustruct
	res := db.conn(ctx).Model(&deals.Deal{}).
		Where("id = ? AND current_bookings > 0", dealID).
		UpdateColumn("current_bookings", gorm.Expr("current_bookings - 1"))
	if err := db.track(ctx, res); err != nil {
		return fmt.Errorf("decrement usage of deal %d: %w", dealID, err)
	}

	if res.RowsAffected == 0 {
		if _, err := db.GetDeal(ctx, dealID); errors.Is(err, booking.ErrNotFound) {
			return err
		}
	}

	return nil
}
