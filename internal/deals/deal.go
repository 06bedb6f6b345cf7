package deals

import (
	"errors"
	"time"
)

var ErrDealExhausted = errors.New("deal has reached its booking cap")

type Deal struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	HotelID            *uint     `gorm:"index" json:"hotel_id,omitempty" validate:"required_without=RoomTypeID"`
	RoomTypeID         *uint     `gorm:"index" json:"room_type_id,omitempty" validate:"required_without=HotelID"`
	Title              string    `gorm:"size:200;not null" json:"title" validate:"required,max=200"`
	DiscountPercentage float64   `gorm:"not null" json:"discount_percentage" validate:"gt=0,lt=100"`
	ValidFrom          time.Time `gorm:"not null" json:"valid_from" validate:"required"`
	ValidTo            time.Time `gorm:"not null" json:"valid_to" validate:"required,gtfield=ValidFrom"`
	MaxBookings        int       `gorm:"not null" json:"max_bookings" validate:"min=0"`
	CurrentBookings    int       `gorm:"not null" json:"current_bookings"`
	IsActive           bool      `gorm:"not null" json:"is_active"`
	CreatedAt          time.Time `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (d *Deal) Touch(now time.Time) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}

	d.UpdatedAt = now
}

// Capped deals with MaxBookings == 0 are unlimited.
func (d *Deal) HasCapacity() bool {
	return d.MaxBookings == 0 || d.CurrentBookings < d.MaxBookings
}

// AppliesTo reports whether the deal can be used for a stay in the given
// hotel and room type at the given instant.
func (d *Deal) AppliesTo(hotelID, roomTypeID uint, at time.Time) bool {
	if !d.IsActive || !d.HasCapacity() {
		return false
	}

	if at.Before(d.ValidFrom) || !at.Before(d.ValidTo) {
		return false
	}

	if d.HotelID != nil && *d.HotelID != hotelID {
		return false
	}

	if d.RoomTypeID != nil && *d.RoomTypeID != roomTypeID {
		return false
	}

	return true
}

func (d *Deal) Discount(total float64) float64 {
	return total * d.DiscountPercentage / 100 //nolint:gomnd
}
