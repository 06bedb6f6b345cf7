package payment

import (
	"errors"
	"fmt"

	"github.com/avstrong/hotelbooking/internal/booking"
)

var ErrInvalidWebhook = errors.New("invalid payment webhook")

// MinimumChargeMinorUnits is the smallest amount card networks accept for the
// supported currencies.
const MinimumChargeMinorUnits = 50

type EventType string

const (
	EventPaymentSucceeded EventType = "payment_intent.succeeded"
	EventPaymentFailed    EventType = "payment_intent.payment_failed"
)

// Event is the provider-neutral view of a payment webhook.
type Event struct {
	ID       string
	Type     EventType
	IntentID string
}

// ToMinorUnits converts an amount in major currency units to cents.
func ToMinorUnits(amount float64) int64 {
	return int64(amount*100 + 0.5) //nolint:gomnd
}

// CheckAmount rejects totals that can not be charged. The error is an input
// error so it never reaches the provider.
func CheckAmount(amount float64, currency string) error {
	if ToMinorUnits(amount) < MinimumChargeMinorUnits {
		return booking.NewFieldError("total_price", fmt.Sprintf(
			"total %.2f %s is below the minimum charge of %.2f",
			amount, currency, float64(MinimumChargeMinorUnits)/100, //nolint:gomnd
		))
	}

	return nil
}
