package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/deals"
	"github.com/avstrong/hotelbooking/internal/logger"
)

func TestInitiateRejectsInvalidInterval(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	_, err := e.manager.Initiate(context.Background(), e.input(e.guest.ID, e.double.ID, date(3, 5), date(3, 5)))
	require.ErrorIs(t, err, booking.ErrInvalidInterval)

	_, err = e.manager.Initiate(context.Background(), e.input(e.guest.ID, e.double.ID, date(3, 6), date(3, 5)))
	require.ErrorIs(t, err, booking.ErrInvalidInterval)

	assert.Zero(t, e.payments.calls.Load())
}

func TestInitiateRejectsPastCheckIn(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	past := now.AddDate(0, 0, -3)

	_, err := e.manager.Initiate(context.Background(), e.input(e.guest.ID, e.double.ID, past, past.AddDate(0, 0, 2)))

	inputErr := booking.IsInputError(err)
	require.NotNil(t, inputErr)
	assert.Contains(t, inputErr.Fields(), "check_in")
}

func TestInitiateRejectsTooManyGuests(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	in := e.input(e.guest.ID, e.double.ID, date(3, 1), date(3, 4))
	in.Adults = 3

	_, err := e.manager.Initiate(context.Background(), in)

	inputErr := booking.IsInputError(err)
	require.NotNil(t, inputErr)
	assert.Contains(t, inputErr.Fields(), "adults")
}

func TestInitiateCreatesBookingWithPaymentIntent(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	res, err := e.manager.Initiate(context.Background(), e.input(e.guest.ID, e.double.ID, date(3, 1), date(3, 4)))
	require.NoError(t, err)

	b := res.Booking
	assert.Equal(t, booking.StatusInitiated, b.Status)
	assert.Equal(t, booking.PdfStatusNone, b.PdfStatus)
	assert.Equal(t, 3, b.Nights)
	assert.InDelta(t, 300.0, b.TotalPrice, 0.001)
	assert.Equal(t, "usd", b.Currency)
	assert.Equal(t, e.hotel.ID, b.HotelID)
	assert.Equal(t, res.PaymentIntent.ID, b.PaymentIntentID)

	stored, err := e.db.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, res.PaymentIntent.ID, stored.PaymentIntentID)
}

func TestInitiateRejectsOverlap(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	e.initiate(t, e.double.ID, date(3, 1), date(3, 5))

	_, err := e.manager.Initiate(context.Background(), e.input(e.other.ID, e.double.ID, date(3, 4), date(3, 8)))
	require.NotNil(t, booking.IsAvailabilityError(err))

	_, err = e.manager.Initiate(context.Background(), e.input(e.other.ID, e.double.ID, date(2, 20), date(3, 2)))
	require.NotNil(t, booking.IsAvailabilityError(err))

	assert.Equal(t, int32(1), e.payments.calls.Load())
}

func TestTouchingIntervalsAreBookable(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	e.initiate(t, e.double.ID, date(3, 1), date(3, 5))

	available, err := e.manager.IsRoomAvailable(context.Background(), e.double.ID, date(3, 5), date(3, 8), nil)
	require.NoError(t, err)
	assert.True(t, available)

	available, err = e.manager.IsRoomAvailable(context.Background(), e.double.ID, date(2, 25), date(3, 1), nil)
	require.NoError(t, err)
	assert.True(t, available)

	e.initiate(t, e.double.ID, date(3, 5), date(3, 8))
	e.initiate(t, e.double.ID, date(2, 25), date(3, 1))
}

func TestIsRoomAvailableExcludesBooking(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	b := e.initiate(t, e.double.ID, date(3, 1), date(3, 5))

	available, err := e.manager.IsRoomAvailable(context.Background(), e.double.ID, date(3, 2), date(3, 3), nil)
	require.NoError(t, err)
	assert.False(t, available)

	available, err = e.manager.IsRoomAvailable(context.Background(), e.double.ID, date(3, 2), date(3, 3), &b.ID)
	require.NoError(t, err)
	assert.True(t, available)

	overlapping, err := e.manager.GetOverlappingBookings(context.Background(), e.double.ID, date(3, 4), date(3, 9), nil)
	require.NoError(t, err)
	require.Len(t, overlapping, 1)
	assert.Equal(t, b.ID, overlapping[0].ID)

	_, err = e.manager.IsRoomAvailable(context.Background(), e.double.ID, date(3, 9), date(3, 4), nil)
	require.ErrorIs(t, err, booking.ErrInvalidInterval)
}

func TestIsRoomAvailableUnknownRoom(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	_, err := e.manager.IsRoomAvailable(context.Background(), 999, date(3, 1), date(3, 2), nil)
	require.ErrorIs(t, err, booking.ErrNotFound)
}

func TestConcurrentInitiateHasSingleWinner(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	const attempts = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)

		go func(shift int) {
			defer wg.Done()

			in := e.input(e.guest.ID, e.double.ID, date(4, 1+shift%3), date(4, 6))

			_, err := e.manager.Initiate(context.Background(), in)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				succeeded++
			case booking.IsAvailabilityError(err) != nil:
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}

	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, rejected)

	overlapping, err := e.manager.GetOverlappingBookings(context.Background(), e.double.ID, date(4, 1), date(4, 6), nil)
	require.NoError(t, err)
	assert.Len(t, overlapping, 1)
}

func TestInitiatePaymentFailureRollsBack(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.payments.err = errPayment

	_, err := e.manager.Initiate(context.Background(), e.input(e.guest.ID, e.double.ID, date(3, 1), date(3, 4)))

	extErr := booking.IsExternalServiceError(err)
	require.NotNil(t, extErr)
	assert.Equal(t, "payment", extErr.Service)
	require.ErrorIs(t, err, errPayment)

	bookings, err := e.manager.ListUserBookings(context.Background(), e.guest.ID)
	require.NoError(t, err)
	assert.Empty(t, bookings)

	available, err := e.manager.IsRoomAvailable(context.Background(), e.double.ID, date(3, 1), date(3, 4), nil)
	require.NoError(t, err)
	assert.True(t, available)
}

func TestInitiateKeepsPaymentInputErrors(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.payments.err = booking.NewFieldError("total_price", "below the minimum charge")

	_, err := e.manager.Initiate(context.Background(), e.input(e.guest.ID, e.double.ID, date(3, 1), date(3, 4)))

	require.Nil(t, booking.IsExternalServiceError(err))

	inputErr := booking.IsInputError(err)
	require.NotNil(t, inputErr)
	assert.Contains(t, inputErr.Fields(), "total_price")

	bookings, err := e.manager.ListUserBookings(context.Background(), e.guest.ID)
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestInitiateReplaysIdempotencyKey(t *testing.T) {
	t.Parallel()

	e := newEnv(t, withIdempotency())

	ctx := booking.NewContextWithIdempotencyKey(context.Background(), "key-1")

	first, err := e.manager.Initiate(ctx, e.input(e.guest.ID, e.double.ID, date(3, 1), date(3, 4)))
	require.NoError(t, err)

	second, err := e.manager.Initiate(ctx, e.input(e.guest.ID, e.double.ID, date(3, 1), date(3, 4)))
	require.NoError(t, err)

	assert.Equal(t, first.Booking.ID, second.Booking.ID)
	assert.Equal(t, first.PaymentIntent.ID, second.PaymentIntent.ID)
	assert.Equal(t, int32(1), e.payments.calls.Load())

	_, err = e.manager.Initiate(ctx, e.input(e.other.ID, e.double.ID, date(3, 1), date(3, 4)))
	require.ErrorIs(t, err, booking.ErrForbidden)
}

func TestInitiateRejectsKeyInUse(t *testing.T) {
	t.Parallel()

	e := newEnv(t, withIdempotency())
	e.payments.started = make(chan struct{})
	e.payments.release = make(chan struct{})

	ctx := booking.NewContextWithIdempotencyKey(context.Background(), "key-1")

	type outcome struct {
		res *booking.InitiateResult
		err error
	}

	first := make(chan outcome, 1)

	go func() {
		res, err := e.manager.Initiate(ctx, e.input(e.guest.ID, e.double.ID, date(3, 1), date(3, 4)))
		first <- outcome{res: res, err: err}
	}()

	<-e.payments.started

	_, err := e.manager.Initiate(ctx, e.input(e.guest.ID, e.double.ID, date(3, 1), date(3, 4)))
	require.ErrorIs(t, err, booking.ErrIdempotencyKeyInUse)

	_, err = e.manager.Initiate(ctx, e.input(e.guest.ID, e.family.ID, date(5, 1), date(5, 4)))
	require.ErrorIs(t, err, booking.ErrIdempotencyKeyInUse)

	close(e.payments.release)

	done := <-first
	require.NoError(t, done.err)

	e.payments.started = nil

	replay, err := e.manager.Initiate(ctx, e.input(e.guest.ID, e.double.ID, date(3, 1), date(3, 4)))
	require.NoError(t, err)
	assert.Equal(t, done.res.Booking.ID, replay.Booking.ID)
	assert.Equal(t, int32(1), e.payments.calls.Load())

	bookings, err := e.manager.ListUserBookings(context.Background(), e.guest.ID)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestFailedInitiateReleasesIdempotencyKey(t *testing.T) {
	t.Parallel()

	e := newEnv(t, withIdempotency())
	e.payments.err = errPayment

	ctx := booking.NewContextWithIdempotencyKey(context.Background(), "key-1")

	_, err := e.manager.Initiate(ctx, e.input(e.guest.ID, e.double.ID, date(3, 1), date(3, 4)))
	require.NotNil(t, booking.IsExternalServiceError(err))

	e.payments.err = nil

	res, err := e.manager.Initiate(ctx, e.input(e.guest.ID, e.double.ID, date(3, 1), date(3, 4)))
	require.NoError(t, err)
	assert.Equal(t, booking.StatusInitiated, res.Booking.Status)
	assert.Equal(t, int32(2), e.payments.calls.Load())
}

func TestConfirmRunsHandlersOnce(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	b := e.initiate(t, e.double.ID, date(3, 1), date(3, 4))

	confirmed, err := e.manager.Confirm(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	again, err := e.manager.Confirm(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, again.Status)

	assert.Equal(t, int32(1), e.renderer.calls.Load())
	assert.Equal(t, []string{e.guest.Email}, e.mailer.sent())

	stored, err := e.db.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.PdfStatusGenerated, stored.PdfStatus)
	assert.Contains(t, stored.ConfirmationPdfURL, b.Reference)
	assert.Contains(t, e.uploader.files, "booking-"+b.Reference+".pdf")
}

func TestConfirmByPaymentIntent(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	b := e.initiate(t, e.double.ID, date(3, 1), date(3, 4))

	confirmed, err := e.manager.ConfirmByPaymentIntent(context.Background(), b.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, confirmed.ID)
	assert.Equal(t, booking.StatusConfirmed, confirmed.Status)

	_, err = e.manager.ConfirmByPaymentIntent(context.Background(), "pi_unknown")
	require.ErrorIs(t, err, booking.ErrNotFound)
}

func TestConfirmCancelledBookingFails(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	b := e.initiate(t, e.double.ID, date(3, 1), date(3, 4))

	_, err := e.manager.Cancel(context.Background(), b.ID, e.guest.ID)
	require.NoError(t, err)

	_, err = e.manager.Confirm(context.Background(), b.ID)
	require.ErrorIs(t, err, booking.ErrInvalidState)
	assert.Zero(t, e.renderer.calls.Load())
}

func TestConfirmUnknownBooking(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	_, err := e.manager.Confirm(context.Background(), 404)
	require.ErrorIs(t, err, booking.ErrNotFound)
}

func TestPdfFailureDoesNotAffectConfirmation(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.renderer.err = errRender

	b := e.initiate(t, e.double.ID, date(3, 1), date(3, 4))

	confirmed, err := e.manager.Confirm(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, confirmed.Status)

	stored, err := e.db.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, stored.Status)
	assert.Equal(t, booking.PdfStatusFailed, stored.PdfStatus)
	assert.Contains(t, stored.PdfError, errRender.Error())
	assert.Empty(t, stored.ConfirmationPdfURL)

	assert.Equal(t, []string{e.guest.Email}, e.mailer.sent())
}

func TestPdfPanicIsRecordedAsFailure(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.renderer.panic = true

	b := e.initiate(t, e.double.ID, date(3, 1), date(3, 4))

	_, err := e.manager.Confirm(context.Background(), b.ID)
	require.NoError(t, err)

	stored, err := e.db.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, stored.Status)
	assert.Equal(t, booking.PdfStatusFailed, stored.PdfStatus)
	assert.Contains(t, stored.PdfError, "panicked")
}

func TestEmailFailureDoesNotAffectPdf(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.mailer.err = errSMTP

	b := e.initiate(t, e.double.ID, date(3, 1), date(3, 4))

	_, err := e.manager.Confirm(context.Background(), b.ID)
	require.NoError(t, err)

	stored, err := e.db.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, stored.Status)
	assert.Equal(t, booking.PdfStatusGenerated, stored.PdfStatus)
}

func TestPanickingHandlerIsIsolated(t *testing.T) {
	t.Parallel()

	e := newEnv(t, withHandlers(panickingHandler{}))

	b := e.initiate(t, e.double.ID, date(3, 1), date(3, 4))

	confirmed, err := e.manager.Confirm(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, confirmed.Status)
	assert.Equal(t, []string{e.guest.Email}, e.mailer.sent())
}

func TestRegenerateConfirmationPdf(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.renderer.err = errRender

	b := e.initiate(t, e.double.ID, date(3, 1), date(3, 4))

	_, err := e.manager.RegenerateConfirmationPdf(context.Background(), b.ID, e.guest.ID)
	require.ErrorIs(t, err, booking.ErrInvalidState)

	_, err = e.manager.Confirm(context.Background(), b.ID)
	require.NoError(t, err)

	_, err = e.manager.RegenerateConfirmationPdf(context.Background(), b.ID, e.other.ID)
	require.ErrorIs(t, err, booking.ErrForbidden)

	e.renderer.err = nil

	regenerated, err := e.manager.RegenerateConfirmationPdf(context.Background(), b.ID, e.guest.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.PdfStatusGenerated, regenerated.PdfStatus)
	assert.Empty(t, regenerated.PdfError)
	assert.NotEmpty(t, regenerated.ConfirmationPdfURL)
	assert.Len(t, e.mailer.sent(), 1)
}

func TestCancelFreesRoom(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	b := e.initiate(t, e.double.ID, date(3, 1), date(3, 4))

	_, err := e.manager.Cancel(context.Background(), b.ID, e.other.ID)
	require.ErrorIs(t, err, booking.ErrForbidden)

	cancelled, err := e.manager.Cancel(context.Background(), b.ID, e.guest.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = e.manager.Cancel(context.Background(), b.ID, e.guest.ID)
	require.ErrorIs(t, err, booking.ErrInvalidState)

	available, err := e.manager.IsRoomAvailable(context.Background(), e.double.ID, date(3, 1), date(3, 4), nil)
	require.NoError(t, err)
	assert.True(t, available)

	e.initiate(t, e.double.ID, date(3, 2), date(3, 3))
}

func TestCancelConfirmedBooking(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	b := e.initiate(t, e.double.ID, date(3, 1), date(3, 4))

	_, err := e.manager.Confirm(context.Background(), b.ID)
	require.NoError(t, err)

	cancelled, err := e.manager.Cancel(context.Background(), b.ID, e.guest.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, cancelled.Status)
}

func TestCancelDuringPdfGenerationStaysCancelled(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.renderer.started = make(chan struct{})
	e.renderer.release = make(chan struct{})

	b := e.initiate(t, e.double.ID, date(3, 1), date(3, 4))

	confirmed := make(chan error, 1)

	go func() {
		_, err := e.manager.Confirm(context.Background(), b.ID)
		confirmed <- err
	}()

	<-e.renderer.started

	cancelled, err := e.manager.Cancel(context.Background(), b.ID, e.guest.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, cancelled.Status)

	close(e.renderer.release)
	require.NoError(t, <-confirmed)

	stored, err := e.manager.GetBooking(context.Background(), b.ID, e.guest.ID, false)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, stored.Status)
	assert.Equal(t, booking.PdfStatusGenerated, stored.PdfStatus)

	available, err := e.manager.IsRoomAvailable(context.Background(), e.double.ID, date(3, 1), date(3, 4), nil)
	require.NoError(t, err)
	assert.True(t, available)
}

func TestPdfIsSkippedForCancelledBooking(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	b := e.initiate(t, e.double.ID, date(3, 1), date(3, 4))

	_, err := e.manager.Cancel(context.Background(), b.ID, e.guest.ID)
	require.NoError(t, err)

	stale := *b
	stale.Status = booking.StatusConfirmed

	h := booking.NewPdfHandler(logger.Discard(), e.db, e.renderer, e.uploader)
	require.NoError(t, h.HandleConfirmed(context.Background(), &stale))

	assert.Zero(t, e.renderer.calls.Load())

	stored, err := e.db.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, stored.Status)
	assert.Equal(t, booking.PdfStatusNone, stored.PdfStatus)
}

func TestGetBookingChecksOwnership(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	b := e.initiate(t, e.double.ID, date(3, 1), date(3, 4))

	got, err := e.manager.GetBooking(context.Background(), b.ID, e.guest.ID, false)
	require.NoError(t, err)
	assert.Equal(t, b.Reference, got.Reference)

	_, err = e.manager.GetBooking(context.Background(), b.ID, e.other.ID, false)
	require.ErrorIs(t, err, booking.ErrForbidden)

	_, err = e.manager.GetBooking(context.Background(), b.ID, e.other.ID, true)
	require.NoError(t, err)

	_, err = e.manager.GetBooking(context.Background(), 999, e.guest.ID, true)
	require.ErrorIs(t, err, booking.ErrNotFound)
}

func TestFindAvailableRoomsFiltersCapacityAndOverlap(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	rooms, err := e.manager.FindAvailableRooms(context.Background(), booking.RoomSearch{
		CheckIn:  date(3, 1),
		CheckOut: date(3, 4),
		Adults:   3,
	})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, e.family.ID, rooms[0].ID)

	e.initiate(t, e.double.ID, date(3, 2), date(3, 3))

	rooms, err = e.manager.FindAvailableRooms(context.Background(), booking.RoomSearch{
		HotelID:  &e.hotel.ID,
		CheckIn:  date(3, 1),
		CheckOut: date(3, 4),
		Adults:   1,
	})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, e.family.ID, rooms[0].ID)

	_, err = e.manager.FindAvailableRooms(context.Background(), booking.RoomSearch{
		CheckIn:  date(3, 1),
		CheckOut: date(3, 4),
	})
	require.NotNil(t, booking.IsInputError(err))

	_, err = e.manager.FindAvailableRooms(context.Background(), booking.RoomSearch{
		CheckIn:  date(3, 4),
		CheckOut: date(3, 1),
		Adults:   1,
	})
	require.ErrorIs(t, err, booking.ErrInvalidInterval)
}

func TestDealIsAppliedAndReleased(t *testing.T) {
	t.Parallel()

	//nolint:exhaustruct
	deal := &deals.Deal{
		Title:              "Winter",
		DiscountPercentage: 10,
		ValidFrom:          now.AddDate(0, 0, -1),
		ValidTo:            now.AddDate(0, 1, 0),
		MaxBookings:        1,
		IsActive:           true,
	}

	e := newEnv(t, withDeal(deal))

	first := e.initiate(t, e.double.ID, date(3, 1), date(3, 4))
	require.NotNil(t, first.DealID)
	assert.Equal(t, deal.ID, *first.DealID)
	assert.InDelta(t, 30.0, first.DiscountAmount, 0.001)
	assert.InDelta(t, 270.0, first.TotalPrice, 0.001)

	second := e.initiate(t, e.family.ID, date(3, 1), date(3, 4))
	assert.Nil(t, second.DealID)
	assert.InDelta(t, 450.0, second.TotalPrice, 0.001)

	_, err := e.manager.Cancel(context.Background(), first.ID, e.guest.ID)
	require.NoError(t, err)

	stored, err := e.db.GetDeal(context.Background(), deal.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.CurrentBookings)
}

func TestDealClaimIsRolledBackOnPaymentFailure(t *testing.T) {
	t.Parallel()

	//nolint:exhaustruct
	deal := &deals.Deal{
		Title:              "Spring",
		DiscountPercentage: 20,
		ValidFrom:          now.AddDate(0, 0, -1),
		ValidTo:            now.AddDate(0, 1, 0),
		IsActive:           true,
	}

	e := newEnv(t, withDeal(deal))
	e.payments.err = errPayment

	_, err := e.manager.Initiate(context.Background(), e.input(e.guest.ID, e.double.ID, date(3, 1), date(3, 4)))
	require.NotNil(t, booking.IsExternalServiceError(err))

	stored, err := e.db.GetDeal(context.Background(), deal.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.CurrentBookings)
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	d := func(n int) time.Time { return base.AddDate(0, 0, n) }

	cases := []struct {
		name   string
		a1, a2 time.Time
		b1, b2 time.Time
		want   bool
	}{
		{"disjoint", d(0), d(2), d(3), d(5), false},
		{"touching end", d(0), d(2), d(2), d(4), false},
		{"touching start", d(2), d(4), d(0), d(2), false},
		{"partial", d(0), d(3), d(2), d(5), true},
		{"contained", d(0), d(10), d(2), d(3), true},
		{"identical", d(1), d(2), d(1), d(2), true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, booking.Overlaps(tc.a1, tc.a2, tc.b1, tc.b2))
			assert.Equal(t, tc.want, booking.Overlaps(tc.b1, tc.b2, tc.a1, tc.a2))
		})
	}
}

func TestContextValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, ok := booking.IdempotencyKeyFromContext(booking.NewContextWithIdempotencyKey(ctx, ""))
	assert.False(t, ok)

	id, ok := booking.RequestIDFromContext(booking.NewContextWithRequestID(ctx, "req-1"))
	require.True(t, ok)
	assert.Equal(t, "req-1", id)
}
