package booking_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avstrong/hotelbooking/internal/auth"
	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/catalog"
	"github.com/avstrong/hotelbooking/internal/deals"
	"github.com/avstrong/hotelbooking/internal/logger"
	"github.com/avstrong/hotelbooking/internal/storage/memory"
)

var (
	errRender  = errors.New("renderer exploded")
	errPayment = errors.New("card network down")
	errSMTP    = errors.New("smtp unavailable")
)

var now = time.Date(2030, time.January, 10, 9, 30, 0, 0, time.UTC)

func date(month time.Month, day int) time.Time {
	return time.Date(2030, month, day, 0, 0, 0, 0, time.UTC)
}

type fakePayments struct {
	calls atomic.Int32
	err   error
	// started and release, when set, hold the call until the test lets it go.
	started chan struct{}
	release chan struct{}
}

func (p *fakePayments) CreatePaymentIntent(
	_ context.Context,
	amount float64,
	currency, bookingRef string,
) (*booking.PaymentIntent, error) {
	n := p.calls.Add(1)

	if p.started != nil {
		p.started <- struct{}{}
		<-p.release
	}

	if p.err != nil {
		return nil, p.err
	}

	return &booking.PaymentIntent{
		ID:           fmt.Sprintf("pi_%d_%s", n, bookingRef[:8]),
		ClientSecret: "secret",
		Amount:       amount,
		Currency:     currency,
	}, nil
}

type fakeRenderer struct {
	calls atomic.Int32
	err   error
	panic bool
	// started and release, when set, hold the render until the test lets it go.
	started chan struct{}
	release chan struct{}
}

func (r *fakeRenderer) RenderBookingConfirmation(_ *booking.Details) ([]byte, error) {
	r.calls.Add(1)

	if r.started != nil {
		r.started <- struct{}{}
		<-r.release
	}

	if r.panic {
		panic("renderer bug")
	}

	if r.err != nil {
		return nil, r.err
	}

	return []byte("%PDF-1.3"), nil
}

type fakeUploader struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (u *fakeUploader) Upload(_ context.Context, fileName string, content []byte, _ string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.files == nil {
		u.files = make(map[string][]byte)
	}

	u.files[fileName] = content

	return "https://files.example.com/" + fileName, nil
}

type fakeMailer struct {
	mu     sync.Mutex
	sentTo []string
	err    error
}

func (m *fakeMailer) SendBookingConfirmation(_ context.Context, _ *booking.Details, email, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.sentTo = append(m.sentTo, email)

	return nil
}

func (m *fakeMailer) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.sentTo...)
}

type panickingHandler struct{}

func (panickingHandler) Name() string { return "panicking" }

func (panickingHandler) HandleConfirmed(context.Context, *booking.Booking) error {
	panic("handler bug")
}

type env struct {
	db       *memory.DB
	manager  *booking.Manager
	payments *fakePayments
	renderer *fakeRenderer
	uploader *fakeUploader
	mailer   *fakeMailer
	guest    *auth.User
	other    *auth.User
	hotel    *catalog.Hotel
	double   *booking.Room
	family   *booking.Room
}

type envOption func(e *env, opts *[]booking.Option)

func withDeal(d *deals.Deal) envOption {
	return func(e *env, opts *[]booking.Option) {
		if d.HotelID == nil {
			d.HotelID = &e.hotel.ID
		}

		if err := e.db.SaveDeal(context.Background(), d); err != nil {
			panic(err)
		}

		*opts = append(*opts, booking.WithDeals(deals.New(e.db).WithClock(func() time.Time { return now })))
	}
}

func withIdempotency() envOption {
	return func(_ *env, opts *[]booking.Option) {
		*opts = append(*opts, booking.WithIdempotencyStore(memory.NewIdempotencyStore(time.Hour)))
	}
}

func withHandlers(handlers ...booking.ConfirmationHandler) envOption {
	return func(_ *env, opts *[]booking.Option) {
		*opts = append(*opts, booking.WithConfirmationHandlers(handlers...))
	}
}

//nolint:funlen
func newEnv(t *testing.T, options ...envOption) *env {
	t.Helper()

	ctx := context.Background()
	l := logger.Discard()
	db := memory.New(memory.Config{L: l, Now: func() time.Time { return now }})

	e := &env{
		db:       db,
		payments: &fakePayments{},
		renderer: &fakeRenderer{},
		uploader: &fakeUploader{},
		mailer:   &fakeMailer{},
	}

	//nolint:exhaustruct
	e.guest = &auth.User{Email: "guest@example.com", FirstName: "Ann", LastName: "Lee", Role: auth.RoleGuest}
	require.NoError(t, db.SaveUser(ctx, e.guest))

	//nolint:exhaustruct
	e.other = &auth.User{Email: "other@example.com", FirstName: "Bob", LastName: "Ray", Role: auth.RoleGuest}
	require.NoError(t, db.SaveUser(ctx, e.other))

	//nolint:exhaustruct
	city := &catalog.City{Name: "Lisbon", Country: "Portugal"}
	require.NoError(t, db.SaveCity(ctx, city))

	//nolint:exhaustruct
	e.hotel = &catalog.Hotel{CityID: city.ID, Name: "Tagus", Address: "Rua 1", Stars: 4}
	require.NoError(t, db.SaveHotel(ctx, e.hotel))

	//nolint:exhaustruct
	double := &booking.RoomType{HotelID: e.hotel.ID, Name: "Double", Price: 100, MaxAdults: 2, MaxChildren: 0}
	require.NoError(t, db.SaveRoomType(ctx, double))

	//nolint:exhaustruct
	family := &booking.RoomType{HotelID: e.hotel.ID, Name: "Family", Price: 150, MaxAdults: 4, MaxChildren: 2}
	require.NoError(t, db.SaveRoomType(ctx, family))

	//nolint:exhaustruct
	e.double = &booking.Room{HotelID: e.hotel.ID, RoomTypeID: double.ID, Number: "101"}
	require.NoError(t, db.SaveRoom(ctx, e.double))

	//nolint:exhaustruct
	e.family = &booking.Room{HotelID: e.hotel.ID, RoomTypeID: family.ID, Number: "201"}
	require.NoError(t, db.SaveRoom(ctx, e.family))

	opts := []booking.Option{
		booking.WithClock(func() time.Time { return now }),
		booking.WithPdfHandler(booking.NewPdfHandler(l, db, e.renderer, e.uploader)),
		booking.WithConfirmationHandlers(booking.NewEmailHandler(l, db, e.mailer)),
	}

	for _, o := range options {
		o(e, &opts)
	}

	e.manager = booking.New(l, db, e.payments, booking.Conf{
		Currency:            "usd",
		ExternalCallTimeout: time.Second,
		HandlerTimeout:      time.Second,
	}, opts...)

	return e
}

func (e *env) input(userID, roomID uint, in, out time.Time) *booking.InitiateInput {
	return &booking.InitiateInput{
		UserID:          userID,
		RoomID:          roomID,
		CheckIn:         in,
		CheckOut:        out,
		Adults:          2,
		Children:        0,
		GuestName:       "Ann Lee",
		SpecialRequests: "",
	}
}

func (e *env) initiate(t *testing.T, roomID uint, in, out time.Time) *booking.Booking {
	t.Helper()

	res, err := e.manager.Initiate(context.Background(), e.input(e.guest.ID, roomID, in, out))
	require.NoError(t, err)

	return res.Booking
}
