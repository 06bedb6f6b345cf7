package memory

import (
	"context"
	"errors"

	"github.com/avstrong/hotelbooking/internal/booking"
)

var (
	ErrTransactionIDNotFoundInCtx = errors.New("no transaction id found in ctx")
	ErrTransactionNotFound        = errors.New("transaction not found")
	ErrNestedTransaction          = errors.New("ctx already carries an open transaction")
)

type trxKey struct{}

// transaction stages booking rows until commit. Other tables are written in
// place, counted in writes and undone by rollbackActions.
type transaction struct {
	id                   string
	bookingModifications map[uint]*booking.Booking
	rollbackActions      []func()
	writes               int
	locks                map[string]chan struct{}
}

func newTransaction(id string) *transaction {
	return &transaction{
		id:                   id,
		bookingModifications: make(map[uint]*booking.Booking),
		rollbackActions:      []func(){},
		writes:               0,
		locks:                make(map[string]chan struct{}),
	}
}

func withTransactionID(ctx context.Context, trxID string) context.Context {
	return context.WithValue(ctx, trxKey{}, trxID)
}

func transactionIDFromContext(ctx context.Context) (string, bool) {
	trxID, ok := ctx.Value(trxKey{}).(string)

	return trxID, ok && trxID != ""
}
