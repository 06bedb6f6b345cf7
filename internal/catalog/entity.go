package catalog

import "time"

type City struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex:idx_city_country_name" json:"name" validate:"required,max=100"`
	Country   string    `gorm:"size:100;not null;uniqueIndex:idx_city_country_name" json:"country" validate:"required,max=100"`
	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (c *City) Touch(now time.Time) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}

	c.UpdatedAt = now
}

type Hotel struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CityID      uint      `gorm:"index;not null" json:"city_id" validate:"required"`
	Name        string    `gorm:"size:200;not null" json:"name" validate:"required,max=200"`
	Address     string    `gorm:"size:300;not null" json:"address" validate:"required,max=300"`
	Stars       int       `gorm:"not null" json:"stars" validate:"min=1,max=5"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (h *Hotel) Touch(now time.Time) {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}

	h.UpdatedAt = now
}

type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	HotelID   uint      `gorm:"index;not null" json:"hotel_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Rating    int       `gorm:"not null" json:"rating" validate:"min=1,max=5"`
	Comment   string    `gorm:"size:2000" json:"comment" validate:"max=2000"`
	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (r *Review) Touch(now time.Time) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}

	r.UpdatedAt = now
}

type RoomTypeInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Price       float64 `json:"price" validate:"gt=0"`
	MaxAdults   int     `json:"max_adults" validate:"min=1,max=20"`
	MaxChildren int     `json:"max_children" validate:"min=0,max=20"`
}

type RoomInput struct {
	RoomTypeID uint   `json:"room_type_id" validate:"required"`
	Number     string `json:"number" validate:"required,max=20"`
}
