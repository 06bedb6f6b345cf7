package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/avstrong/hotelbooking/internal/logger"
)

const isolationLevel = "READ COMMITTED"

type storageReader interface {
	GetRoom(ctx context.Context, roomID uint) (*Room, error)
	GetBooking(ctx context.Context, bookingID uint) (*Booking, error)
	GetBookingByPaymentIntent(ctx context.Context, intentID string) (*Booking, error)
	GetBookingDetails(ctx context.Context, bookingID uint) (*Details, error)
	ListBookingsByUser(ctx context.Context, userID uint) ([]*Booking, error)
	GetOverlappingBookings(ctx context.Context, roomID uint, checkIn, checkOut time.Time, excludeID *uint) ([]*Booking, error)
	HasOverlappingBooking(ctx context.Context, roomID uint, checkIn, checkOut time.Time, excludeID *uint) (bool, error)
	GetAvailableRooms(ctx context.Context, search RoomSearch) ([]*Room, error)
}

type storageWriter interface {
	BeginTransaction(ctx context.Context, level string) (context.Context, error)
	CommitTransaction(ctx context.Context) (int, error)
	RollbackTransaction(ctx context.Context) error
	LockRoom(ctx context.Context, roomID uint) error
	GetBookingForUpdate(ctx context.Context, bookingID uint) (*Booking, error)
	SaveBooking(ctx context.Context, b *Booking) error
	UpdateBooking(ctx context.Context, b *Booking) error
}

type Storage interface {
	storageReader
	storageWriter
}

type paymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amount float64, currency, bookingRef string) (*PaymentIntent, error)
}

// DealApplier adjusts the price of a booking being initiated and keeps deal
// usage counters in step with the booking lifecycle. Both calls run inside
// the booking's unit of work.
type DealApplier interface {
	Apply(ctx context.Context, b *Booking, room *Room) error
	Release(ctx context.Context, b *Booking) error
}

// IdempotencyStore reserves client idempotency keys for the duration of an
// initiation and then binds them to the booking it created.
type IdempotencyStore interface {
	// Claim reserves key. When the key is already taken it reports the bound
	// booking id, or zero while the request holding it is still running.
	Claim(ctx context.Context, key string) (claimed bool, bookingID uint, err error)
	Bind(ctx context.Context, key string, bookingID uint) error
	Release(ctx context.Context, key string) error
}

type Conf struct {
	Currency            string
	ExternalCallTimeout time.Duration
	HandlerTimeout      time.Duration
}

type Manager struct {
	l           *logger.Logger
	storage     Storage
	payments    paymentGateway
	deals       DealApplier
	idempotency IdempotencyStore
	handlers    []ConfirmationHandler
	pdf         ConfirmationHandler
	tracer      trace.Tracer
	validate    *validator.Validate
	now         func() time.Time
	conf        Conf
}

type Option func(m *Manager)

func WithDeals(d DealApplier) Option {
	return func(m *Manager) { m.deals = d }
}

func WithIdempotencyStore(s IdempotencyStore) Option {
	return func(m *Manager) { m.idempotency = s }
}

func WithConfirmationHandlers(handlers ...ConfirmationHandler) Option {
	return func(m *Manager) { m.handlers = append(m.handlers, handlers...) }
}

// WithPdfHandler registers the PDF handler both as a confirmation handler
// and as the target of RegenerateConfirmationPdf.
func WithPdfHandler(h ConfirmationHandler) Option {
	return func(m *Manager) {
		m.pdf = h
		m.handlers = append(m.handlers, h)
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func New(l *logger.Logger, storage Storage, payments paymentGateway, conf Conf, opts ...Option) *Manager {
	if conf.ExternalCallTimeout == 0 {
		conf.ExternalCallTimeout = 10 * time.Second //nolint:gomnd
	}

	if conf.HandlerTimeout == 0 {
		conf.HandlerTimeout = 30 * time.Second //nolint:gomnd
	}

	//nolint:exhaustruct
	m := &Manager{
		l:        l,
		storage:  storage,
		payments: payments,
		tracer:   noop.NewTracerProvider().Tracer("booking"),
		validate: NewValidator(),
		now:      func() time.Time { return time.Now().UTC() },
		conf:     conf,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Manager) validateInitiate(input *InitiateInput) error {
	inputErr := validationToInputError(m.validate.Struct(input))
	if inputErr == nil {
		inputErr = newInputError()
	}

	if input.CheckIn.Before(day(m.now())) {
		inputErr.addError("check_in", "check_in must not be in the past")
	}

	if inputErr.fieldsCount() > 0 {
		return inputErr
	}

	return nil
}

func (m *Manager) inTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ctx, err = m.storage.BeginTransaction(ctx, isolationLevel)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := m.storage.RollbackTransaction(ctx); rbErr != nil {
				m.l.LogErrorf("Could not rollback booking transaction after panic %v", p)
			}

			m.l.LogInfo("Transaction has been roll backed after panic")

			panic(p)
		}

		if err != nil {
			if rbErr := m.storage.RollbackTransaction(ctx); rbErr != nil {
				m.l.LogErrorf("Could not rollback booking transaction after error %v", rbErr.Error())
			}

			m.l.LogDebug("Transaction has been roll backed after error: %v", err)

			return
		}

		affected, cErr := m.storage.CommitTransaction(ctx)
		if cErr != nil {
			err = fmt.Errorf("commit transaction: %w", cErr)

			return
		}

		m.l.LogDebug("Transaction has been committed, %d rows affected", affected)
	}()

	return fn(ctx)
}

func (m *Manager) buildBooking(input *InitiateInput, room *Room) *Booking {
	nights := int(input.CheckOut.Sub(input.CheckIn).Hours() / 24) //nolint:gomnd

	//nolint:exhaustruct
	return &Booking{
		Reference:       uuid.NewString(),
		UserID:          input.UserID,
		RoomID:          room.ID,
		HotelID:         room.HotelID,
		CheckIn:         input.CheckIn,
		CheckOut:        input.CheckOut,
		Adults:          input.Adults,
		Children:        input.Children,
		GuestName:       input.GuestName,
		SpecialRequests: input.SpecialRequests,
		Nights:          nights,
		TotalPrice:      roundPrice(float64(nights) * room.RoomType.Price),
		Currency:        m.conf.Currency,
		Status:          StatusInitiated,
		PdfStatus:       PdfStatusNone,
	}
}

func (m *Manager) createPaymentIntent(ctx context.Context, b *Booking) (*PaymentIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, m.conf.ExternalCallTimeout)
	defer cancel()

	intent, err := m.payments.CreatePaymentIntent(ctx, b.TotalPrice, b.Currency, b.Reference)
	if inputErr := IsInputError(err); inputErr != nil {
		return nil, inputErr
	}

	if err != nil {
		return nil, &ExternalServiceError{Service: "payment", Err: err}
	}

	return intent, nil
}

// claimIdempotencyKey returns the booking to replay when key was used by a
// finished request. Otherwise the key is reserved for the caller, which must
// bind or release it.
func (m *Manager) claimIdempotencyKey(ctx context.Context, key string, userID uint) (*Booking, error) {
	claimed, id, err := m.idempotency.Claim(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", err)
	}

	if claimed {
		return nil, nil //nolint:nilnil
	}

	if id == 0 {
		return nil, ErrIdempotencyKeyInUse
	}

	b, err := m.storage.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking %d for idempotency key: %w", id, err)
	}

	if b.UserID != userID {
		return nil, ErrForbidden
	}

	return b, nil
}

// settleIdempotencyKey binds a claimed key to the created booking, or frees
// it when the initiation failed so the client can retry.
func (m *Manager) settleIdempotencyKey(ctx context.Context, key string, res *InitiateResult, initErr error) {
	ctx = context.WithoutCancel(ctx)

	if initErr != nil {
		if err := m.idempotency.Release(ctx, key); err != nil {
			m.l.LogErrorf("Could not release idempotency key %s: %v", key, err)
		}

		return
	}

	if err := m.idempotency.Bind(ctx, key, res.Booking.ID); err != nil {
		m.l.LogErrorf("Could not bind idempotency key to booking %d: %v", res.Booking.ID, err)
	}
}

func (m *Manager) Initiate(ctx context.Context, input *InitiateInput) (_ *InitiateResult, err error) {
	ctx, span := m.tracer.Start(ctx, "booking.Manager.Initiate")
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()
	}()

	checkIn, checkOut, err := normalizeInterval(input.CheckIn, input.CheckOut)
	if err != nil {
		return nil, err
	}

	input.CheckIn, input.CheckOut = checkIn, checkOut

	if err = m.validateInitiate(input); err != nil {
		return nil, err
	}

	idempotencyKey, hasKey := IdempotencyKeyFromContext(ctx)
	if !hasKey || m.idempotency == nil {
		return m.initiate(ctx, input)
	}

	existing, err := m.claimIdempotencyKey(ctx, idempotencyKey, input.UserID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return &InitiateResult{
			Booking: existing,
			PaymentIntent: &PaymentIntent{
				ID:       existing.PaymentIntentID,
				Amount:   existing.TotalPrice,
				Currency: existing.Currency,
			},
		}, nil
	}

	res, err := m.initiate(ctx, input)
	m.settleIdempotencyKey(ctx, idempotencyKey, res, err)

	return res, err
}

//nolint:funlen,cyclop // it's linear simple code
func (m *Manager) initiate(ctx context.Context, input *InitiateInput) (*InitiateResult, error) {
	room, err := m.storage.GetRoom(ctx, input.RoomID)
	if err != nil {
		return nil, fmt.Errorf("get room %d: %w", input.RoomID, err)
	}

	if room.RoomType == nil {
		return nil, fmt.Errorf("room %d has no room type loaded: %w", room.ID, ErrNotFound)
	}

	if !room.RoomType.Fits(input.Adults, input.Children) {
		inputErr := newInputError()
		if input.Adults > room.RoomType.MaxAdults {
			inputErr.addError("adults", fmt.Sprintf("room accepts at most %d adults", room.RoomType.MaxAdults))
		}

		if input.Children > room.RoomType.MaxChildren {
			inputErr.addError("children", fmt.Sprintf("room accepts at most %d children", room.RoomType.MaxChildren))
		}

		return nil, inputErr
	}

	b := m.buildBooking(input, room)

	var intent *PaymentIntent

	err = m.inTransaction(ctx, func(ctx context.Context) error {
		if err := m.storage.LockRoom(ctx, room.ID); err != nil {
			return fmt.Errorf("lock room %d: %w", room.ID, err)
		}

		taken, err := m.storage.HasOverlappingBooking(ctx, room.ID, b.CheckIn, b.CheckOut, nil)
		if err != nil {
			return fmt.Errorf("check overlapping bookings: %w", err)
		}

		if taken {
			availabilityErr := NewAvailabilityError()
			availabilityErr.AddUnavailableRoom(room.ID, b.CheckIn, b.CheckOut)

			return availabilityErr
		}

		if m.deals != nil {
			if err := m.deals.Apply(ctx, b, room); err != nil {
				return fmt.Errorf("apply deals: %w", err)
			}
		}

		if err := m.storage.SaveBooking(ctx, b); err != nil {
			return fmt.Errorf("save booking: %w", err)
		}

		intent, err = m.createPaymentIntent(ctx, b)
		if err != nil {
			return err
		}

		b.PaymentIntentID = intent.ID

		if err := m.storage.UpdateBooking(ctx, b); err != nil {
			return fmt.Errorf("store payment intent on booking: %w", err)
		}

		return nil
	})
	if errors.Is(err, ErrConstraint) {
		availabilityErr := NewAvailabilityError()
		availabilityErr.AddUnavailableRoom(room.ID, b.CheckIn, b.CheckOut)

		return nil, availabilityErr
	}

	if err != nil {
		return nil, err
	}

	loggerFor(ctx, m.l, map[string]any{"booking_id": b.ID, "room_id": b.RoomID}).
		LogInfo("Booking %s has been initiated", b.Reference)

	return &InitiateResult{Booking: b, PaymentIntent: intent}, nil
}

// Confirm moves an initiated booking to confirmed and fans the confirmation
// out to the registered handlers. Confirming an already confirmed booking is
// a no-op so webhook retries do not repeat side effects.
func (m *Manager) Confirm(ctx context.Context, bookingID uint) (_ *Booking, err error) {
	ctx, span := m.tracer.Start(ctx, "booking.Manager.Confirm")
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()
	}()

	var (
		b       *Booking
		changed bool
	)

	err = m.inTransaction(ctx, func(ctx context.Context) error {
		var err error

		b, err = m.storage.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("get booking %d: %w", bookingID, err)
		}

		switch b.Status {
		case StatusConfirmed:
			return nil
		case StatusCancelled:
			return fmt.Errorf("confirm cancelled booking %d: %w", bookingID, ErrInvalidState)
		case StatusInitiated:
		}

		b.confirm(m.now())
		changed = true

		if err := m.storage.UpdateBooking(ctx, b); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		loggerFor(ctx, m.l, map[string]any{"booking_id": b.ID}).LogInfo("Booking %s has been confirmed", b.Reference)
		m.runConfirmationHandlers(ctx, b)
	}

	return b, nil
}

func (m *Manager) ConfirmByPaymentIntent(ctx context.Context, intentID string) (*Booking, error) {
	b, err := m.storage.GetBookingByPaymentIntent(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("get booking by payment intent %s: %w", intentID, err)
	}

	return m.Confirm(ctx, b.ID)
}

func (m *Manager) runConfirmationHandlers(ctx context.Context, b *Booking) {
	var wg sync.WaitGroup

	base := context.WithoutCancel(ctx)

	for _, h := range m.handlers {
		wg.Add(1)

		go func(h ConfirmationHandler, snapshot Booking) {
			defer wg.Done()

			m.runHandler(base, h, &snapshot)
		}(h, *b)
	}

	wg.Wait()
}

func (m *Manager) runHandler(ctx context.Context, h ConfirmationHandler, b *Booking) {
	ctx, cancel := context.WithTimeout(ctx, m.conf.HandlerTimeout)
	defer cancel()

	l := loggerFor(ctx, m.l, map[string]any{"booking_id": b.ID, "handler": h.Name()})

	defer func() {
		if p := recover(); p != nil {
			l.LogErrorf("Confirmation handler panicked: %v", p)
		}
	}()

	if err := h.HandleConfirmed(ctx, b); err != nil {
		l.LogErrorf("Confirmation handler failed: %v", err)

		return
	}

	l.LogDebug("Confirmation handler finished")
}

func (m *Manager) Cancel(ctx context.Context, bookingID, actorUserID uint) (_ *Booking, err error) {
	ctx, span := m.tracer.Start(ctx, "booking.Manager.Cancel")
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()
	}()

	var b *Booking

	err = m.inTransaction(ctx, func(ctx context.Context) error {
		var err error

		b, err = m.storage.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("get booking %d: %w", bookingID, err)
		}

		if b.UserID != actorUserID {
			return ErrForbidden
		}

		if b.Status == StatusCancelled {
			return fmt.Errorf("cancel booking %d: %w", bookingID, ErrInvalidState)
		}

		b.cancel(m.now())

		if err := m.storage.UpdateBooking(ctx, b); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}

		if m.deals != nil && b.DealID != nil {
			if err := m.deals.Release(ctx, b); err != nil {
				return fmt.Errorf("release deal %d: %w", *b.DealID, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	loggerFor(ctx, m.l, map[string]any{"booking_id": b.ID}).LogInfo("Booking %s has been cancelled", b.Reference)

	return b, nil
}

// RegenerateConfirmationPdf re-runs document generation for a confirmed
// booking, typically after a failed attempt.
func (m *Manager) RegenerateConfirmationPdf(ctx context.Context, bookingID, actorUserID uint) (*Booking, error) {
	b, err := m.storage.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", bookingID, err)
	}

	if b.UserID != actorUserID {
		return nil, ErrForbidden
	}

	if b.Status != StatusConfirmed {
		return nil, fmt.Errorf("regenerate pdf for %s booking: %w", b.Status, ErrInvalidState)
	}

	if m.pdf == nil {
		return nil, fmt.Errorf("pdf generation is not configured: %w", ErrInvalidState)
	}

	m.runHandler(context.WithoutCancel(ctx), m.pdf, b)

	b, err = m.storage.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("reload booking %d: %w", bookingID, err)
	}

	return b, nil
}

func (m *Manager) GetBooking(ctx context.Context, bookingID, actorUserID uint, isAdmin bool) (*Booking, error) {
	b, err := m.storage.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", bookingID, err)
	}

	if !isAdmin && b.UserID != actorUserID {
		return nil, ErrForbidden
	}

	return b, nil
}

func (m *Manager) ListUserBookings(ctx context.Context, userID uint) ([]*Booking, error) {
	bookings, err := m.storage.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings of user %d: %w", userID, err)
	}

	return bookings, nil
}

func roundPrice(v float64) float64 {
	return math.Round(v*100) / 100 //nolint:gomnd
}
