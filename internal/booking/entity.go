package booking

import "time"

type Status string

const (
	StatusInitiated Status = "initiated"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type PdfStatus string

const (
	PdfStatusNone      PdfStatus = "none"
	PdfStatusPending   PdfStatus = "pending"
	PdfStatusGenerated PdfStatus = "generated"
	PdfStatusFailed    PdfStatus = "failed"
)

// Auditable is implemented by every entity the storages write. The commit
// boundary calls Touch on each of them.
type Auditable interface {
	Touch(now time.Time)
}

type RoomType struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	HotelID     uint      `gorm:"index;not null" json:"hotel_id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Price       float64   `gorm:"not null" json:"price"`
	MaxAdults   int       `gorm:"not null" json:"max_adults"`
	MaxChildren int       `gorm:"not null" json:"max_children"`
	CreatedAt   time.Time `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (rt *RoomType) Touch(now time.Time) {
	if rt.CreatedAt.IsZero() {
		rt.CreatedAt = now
	}

	rt.UpdatedAt = now
}

// Fits reports whether the room type can host the requested guests.
func (rt *RoomType) Fits(adults, children int) bool {
	return rt.MaxAdults >= adults && rt.MaxChildren >= children
}

type Room struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	HotelID    uint      `gorm:"uniqueIndex:idx_room_hotel_number;not null" json:"hotel_id"`
	RoomTypeID uint      `gorm:"index;not null" json:"room_type_id"`
	Number     string    `gorm:"uniqueIndex:idx_room_hotel_number;size:20;not null" json:"number"`
	RoomType   *RoomType `gorm:"foreignKey:RoomTypeID" json:"room_type,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (r *Room) Touch(now time.Time) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}

	r.UpdatedAt = now
}

type Booking struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Reference          string     `gorm:"uniqueIndex;size:36;not null" json:"reference"`
	UserID             uint       `gorm:"index;not null" json:"user_id"`
	RoomID             uint       `gorm:"index:idx_booking_room_interval;not null" json:"room_id"`
	HotelID            uint       `gorm:"index;not null" json:"hotel_id"`
	CheckIn            time.Time  `gorm:"index:idx_booking_room_interval;not null" json:"check_in"`
	CheckOut           time.Time  `gorm:"index:idx_booking_room_interval;not null" json:"check_out"`
	Adults             int        `gorm:"not null" json:"adults"`
	Children           int        `gorm:"not null" json:"children"`
	GuestName          string     `gorm:"size:200;not null" json:"guest_name"`
	SpecialRequests    string     `gorm:"size:1000" json:"special_requests,omitempty"`
	Nights             int        `gorm:"not null" json:"nights"`
	TotalPrice         float64    `gorm:"not null" json:"total_price"`
	DiscountAmount     float64    `json:"discount_amount"`
	DealID             *uint      `gorm:"index" json:"deal_id,omitempty"`
	Currency           string     `gorm:"size:3;not null" json:"currency"`
	Status             Status     `gorm:"type:varchar(20);index;not null" json:"status"`
	PaymentIntentID    string     `gorm:"size:255;index" json:"payment_intent_id,omitempty"`
	PdfStatus          PdfStatus  `gorm:"type:varchar(20);not null" json:"pdf_status"`
	ConfirmationPdfURL string     `gorm:"size:1000" json:"confirmation_pdf_url,omitempty"`
	PdfError           string     `gorm:"size:1000" json:"pdf_error,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (b *Booking) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}

	b.UpdatedAt = now
}

// Active bookings count toward overlap checks.
func (b *Booking) Active() bool {
	return b.Status != StatusCancelled
}

func (b *Booking) OverlapsWith(checkIn, checkOut time.Time) bool {
	return Overlaps(b.CheckIn, b.CheckOut, checkIn, checkOut)
}

func (b *Booking) ResetPdfGenerationStatus() {
	b.PdfStatus = PdfStatusPending
	b.ConfirmationPdfURL = ""
	b.PdfError = ""
}

func (b *Booking) SetConfirmationPdfURL(url string) {
	b.PdfStatus = PdfStatusGenerated
	b.ConfirmationPdfURL = url
	b.PdfError = ""
}

func (b *Booking) MarkPdfGenerationAsFailed(msg string) {
	b.PdfStatus = PdfStatusFailed
	b.PdfError = msg
}

func (b *Booking) confirm(now time.Time) {
	b.Status = StatusConfirmed
	b.ConfirmedAt = &now
}

func (b *Booking) cancel(now time.Time) {
	b.Status = StatusCancelled
	b.CancelledAt = &now
}

// Details is the denormalised view the confirmation document and e-mail are
// built from.
type Details struct {
	Booking      Booking
	HotelName    string
	HotelAddress string
	CityName     string
	RoomNumber   string
	RoomTypeName string
	UserEmail    string
	UserName     string
}

type InitiateInput struct {
	UserID          uint      `json:"-" validate:"required"`
	RoomID          uint      `json:"room_id" validate:"required"`
	CheckIn         time.Time `json:"check_in" validate:"required"`
	CheckOut        time.Time `json:"check_out" validate:"required"`
	Adults          int       `json:"adults" validate:"min=1,max=20"`
	Children        int       `json:"children" validate:"min=0,max=20"`
	GuestName       string    `json:"guest_name" validate:"required,max=200"`
	SpecialRequests string    `json:"special_requests" validate:"max=1000"`
}

type RoomSearch struct {
	HotelID    *uint
	RoomTypeID *uint
	CheckIn    time.Time
	CheckOut   time.Time
	Adults     int
	Children   int
}

type PaymentIntent struct {
	ID           string  `json:"id"`
	ClientSecret string  `json:"client_secret,omitempty"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}

type InitiateResult struct {
	Booking       *Booking       `json:"booking"`
	PaymentIntent *PaymentIntent `json:"payment_intent"`
}
