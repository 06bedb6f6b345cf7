package sql_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/hotelbooking/internal/auth"
	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/catalog"
	"github.com/avstrong/hotelbooking/internal/deals"
	"github.com/avstrong/hotelbooking/internal/logger"
	storagesql "github.com/avstrong/hotelbooking/internal/storage/sql"
)

func date(day int) time.Time {
	return time.Date(2030, time.March, day, 0, 0, 0, 0, time.UTC)
}

func newDB(t *testing.T) *storagesql.DB {
	t.Helper()

	db, err := storagesql.New(storagesql.Config{ //nolint:exhaustruct
		L:         logger.Discard(),
		Dialector: sqlite.Open(filepath.Join(t.TempDir(), "booking.db")),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))

	t.Cleanup(func() { _ = db.Close() })

	return db
}

type fixture struct {
	user  *auth.User
	hotel *catalog.Hotel
	rt    *booking.RoomType
	room  *booking.Room
}

func seed(t *testing.T, db *storagesql.DB) fixture {
	t.Helper()

	ctx := context.Background()

	//nolint:exhaustruct
	user := &auth.User{Email: "guest@example.com", PasswordHash: "x", FirstName: "Ann", LastName: "Lee", Role: auth.RoleGuest}
	require.NoError(t, db.SaveUser(ctx, user))

	//nolint:exhaustruct
	city := &catalog.City{Name: "Lisbon", Country: "Portugal"}
	require.NoError(t, db.SaveCity(ctx, city))

	//nolint:exhaustruct
	hotel := &catalog.Hotel{CityID: city.ID, Name: "Tagus", Address: "Rua 1", Stars: 4}
	require.NoError(t, db.SaveHotel(ctx, hotel))

	//nolint:exhaustruct
	rt := &booking.RoomType{HotelID: hotel.ID, Name: "Double", Price: 120, MaxAdults: 2, MaxChildren: 1}
	require.NoError(t, db.SaveRoomType(ctx, rt))

	//nolint:exhaustruct
	room := &booking.Room{HotelID: hotel.ID, RoomTypeID: rt.ID, Number: "101"}
	require.NoError(t, db.SaveRoom(ctx, room))

	return fixture{user: user, hotel: hotel, rt: rt, room: room}
}

func newBooking(f fixture, ref string, in, out time.Time, status booking.Status) *booking.Booking {
	//nolint:exhaustruct
	return &booking.Booking{
		Reference: ref,
		UserID:    f.user.ID,
		RoomID:    f.room.ID,
		HotelID:   f.hotel.ID,
		CheckIn:   in,
		CheckOut:  out,
		Adults:    1,
		GuestName: "Ann Lee",
		Currency:  "usd",
		Status:    status,
		PdfStatus: booking.PdfStatusNone,
	}
}

func TestOverlapQueryUsesHalfOpenIntervals(t *testing.T) {
	t.Parallel()

	db := newDB(t)
	f := seed(t, db)
	ctx := context.Background()

	existing := newBooking(f, "a", date(10), date(15), booking.StatusConfirmed)
	require.NoError(t, db.SaveBooking(ctx, existing))
	require.NoError(t, db.SaveBooking(ctx, newBooking(f, "b", date(1), date(20), booking.StatusCancelled)))

	cases := []struct {
		name     string
		in, out  time.Time
		expected bool
	}{
		{"touching before", date(5), date(10), false},
		{"touching after", date(15), date(18), false},
		{"inside", date(11), date(12), true},
		{"covering", date(9), date(16), true},
		{"tail overlap", date(14), date(16), true},
	}

	for _, tc := range cases {
		taken, err := db.HasOverlappingBooking(ctx, f.room.ID, tc.in, tc.out, nil)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.expected, taken, tc.name)
	}

	taken, err := db.HasOverlappingBooking(ctx, f.room.ID, date(11), date(12), &existing.ID)
	require.NoError(t, err)
	assert.False(t, taken, "the excluded booking is ignored")
}

func TestRollbackDiscardsWrites(t *testing.T) {
	t.Parallel()

	db := newDB(t)
	f := seed(t, db)

	ctx, err := db.BeginTransaction(context.Background(), "READ COMMITTED")
	require.NoError(t, err)
	require.NoError(t, db.LockRoom(ctx, f.room.ID))

	b := newBooking(f, "rolled-back", date(1), date(3), booking.StatusInitiated)
	require.NoError(t, db.SaveBooking(ctx, b))
	require.NoError(t, db.RollbackTransaction(ctx))

	_, err = db.GetBooking(context.Background(), b.ID)
	require.ErrorIs(t, err, booking.ErrNotFound)
}

func TestCommitReportsAffectedRows(t *testing.T) {
	t.Parallel()

	db := newDB(t)
	f := seed(t, db)

	ctx, err := db.BeginTransaction(context.Background(), "READ COMMITTED")
	require.NoError(t, err)

	b := newBooking(f, "committed", date(1), date(3), booking.StatusInitiated)
	require.NoError(t, db.SaveBooking(ctx, b))

	b.PaymentIntentID = "pi_1"
	require.NoError(t, db.UpdateBooking(ctx, b))

	affected, err := db.CommitTransaction(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, affected)

	stored, err := db.GetBookingByPaymentIntent(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, stored.ID)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestUpdateBookingPdfKeepsStatus(t *testing.T) {
	t.Parallel()

	db := newDB(t)
	f := seed(t, db)
	ctx := context.Background()

	b := newBooking(f, "pdf", date(1), date(3), booking.StatusConfirmed)
	require.NoError(t, db.SaveBooking(ctx, b))

	stale := *b

	b.Status = booking.StatusCancelled
	require.NoError(t, db.UpdateBooking(ctx, b))

	stale.SetConfirmationPdfURL("https://files.example.com/booking-pdf.pdf")
	require.NoError(t, db.UpdateBookingPdf(ctx, &stale))

	stored, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, stored.Status)
	assert.Equal(t, booking.PdfStatusGenerated, stored.PdfStatus)
	assert.Equal(t, "https://files.example.com/booking-pdf.pdf", stored.ConfirmationPdfURL)
}

func TestAvailableRoomsFilterCapacityAndBookings(t *testing.T) {
	t.Parallel()

	db := newDB(t)
	f := seed(t, db)
	ctx := context.Background()

	//nolint:exhaustruct
	second := &booking.Room{HotelID: f.hotel.ID, RoomTypeID: f.rt.ID, Number: "102"}
	require.NoError(t, db.SaveRoom(ctx, second))
	require.NoError(t, db.SaveBooking(ctx, newBooking(f, "a", date(1), date(5), booking.StatusInitiated)))

	//nolint:exhaustruct
	rooms, err := db.GetAvailableRooms(ctx, booking.RoomSearch{HotelID: &f.hotel.ID, CheckIn: date(2), CheckOut: date(4), Adults: 2})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, second.ID, rooms[0].ID)
	require.NotNil(t, rooms[0].RoomType)
	assert.Equal(t, "Double", rooms[0].RoomType.Name)

	//nolint:exhaustruct
	rooms, err = db.GetAvailableRooms(ctx, booking.RoomSearch{CheckIn: date(2), CheckOut: date(4), Adults: 3})
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestBookingDetailsJoinCatalog(t *testing.T) {
	t.Parallel()

	db := newDB(t)
	f := seed(t, db)
	ctx := context.Background()

	b := newBooking(f, "details", date(1), date(3), booking.StatusConfirmed)
	require.NoError(t, db.SaveBooking(ctx, b))

	details, err := db.GetBookingDetails(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tagus", details.HotelName)
	assert.Equal(t, "Lisbon", details.CityName)
	assert.Equal(t, "101", details.RoomNumber)
	assert.Equal(t, "Double", details.RoomTypeName)
	assert.Equal(t, "guest@example.com", details.UserEmail)
	assert.Equal(t, "Ann Lee", details.UserName)

	confirmed, err := db.HasConfirmedBookingAtHotel(ctx, f.user.ID, f.hotel.ID)
	require.NoError(t, err)
	assert.True(t, confirmed)
}

func TestDealUsageRespectsCap(t *testing.T) {
	t.Parallel()

	db := newDB(t)
	f := seed(t, db)
	ctx := context.Background()

	//nolint:exhaustruct
	d := &deals.Deal{
		HotelID:            &f.hotel.ID,
		Title:              "Early bird",
		DiscountPercentage: 15,
		ValidFrom:          date(1),
		ValidTo:            date(30),
		MaxBookings:        1,
		IsActive:           true,
	}
	require.NoError(t, db.SaveDeal(ctx, d))

	applicable, err := db.ListApplicableDeals(ctx, f.hotel.ID, f.rt.ID, date(5))
	require.NoError(t, err)
	require.Len(t, applicable, 1)

	require.NoError(t, db.IncrementDealUsage(ctx, d.ID))
	require.ErrorIs(t, db.IncrementDealUsage(ctx, d.ID), deals.ErrDealExhausted)

	applicable, err = db.ListApplicableDeals(ctx, f.hotel.ID, f.rt.ID, date(5))
	require.NoError(t, err)
	assert.Empty(t, applicable)

	require.NoError(t, db.DecrementDealUsage(ctx, d.ID))

	stored, err := db.GetDeal(ctx, d.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.CurrentBookings)

	listed, err := db.ListDeals(ctx, &f.hotel.ID, date(5))
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.ErrorIs(t, db.IncrementDealUsage(ctx, 999), booking.ErrNotFound)
}

func TestUserEmailIsUnique(t *testing.T) {
	t.Parallel()

	db := newDB(t)
	f := seed(t, db)
	ctx := context.Background()

	found, err := db.GetUserByEmail(ctx, f.user.Email)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, found.ID)

	//nolint:exhaustruct
	dup := &auth.User{Email: f.user.Email, PasswordHash: "y", FirstName: "B", LastName: "C", Role: auth.RoleGuest}
	require.Error(t, db.SaveUser(ctx, dup))
}
