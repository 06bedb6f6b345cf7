package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/breaker"
	"github.com/avstrong/hotelbooking/internal/logger"
	"github.com/avstrong/hotelbooking/internal/payment"
)

type Config struct {
	L             *logger.Logger
	SecretKey     string
	WebhookSecret string
}

type Gateway struct {
	l             *logger.Logger
	api           *client.API
	cb            *gobreaker.CircuitBreaker
	webhookSecret string
}

func New(conf Config) *Gateway {
	api := &client.API{} //nolint:exhaustruct
	api.Init(conf.SecretKey, nil)

	return &Gateway{
		l:             conf.L,
		api:           api,
		cb:            breaker.New(conf.L, "stripe", breaker.WithClientErrors(IsClientError)),
		webhookSecret: conf.WebhookSecret,
	}
}

// IsClientError reports errors Stripe blames on the request rather than on
// itself. Rate limiting is not one of them.
func IsClientError(err error) bool {
	var stripeErr *stripego.Error
	if !errors.As(err, &stripeErr) {
		return false
	}

	if stripeErr.Type == stripego.ErrorTypeInvalidRequest || stripeErr.Type == stripego.ErrorTypeCard {
		return true
	}

	return stripeErr.HTTPStatusCode >= http.StatusBadRequest &&
		stripeErr.HTTPStatusCode < http.StatusInternalServerError &&
		stripeErr.HTTPStatusCode != http.StatusTooManyRequests
}

func (g *Gateway) CreatePaymentIntent(
	ctx context.Context,
	amount float64,
	currency, bookingRef string,
) (*booking.PaymentIntent, error) {
	if err := payment.CheckAmount(amount, currency); err != nil {
		return nil, err
	}

	//nolint:exhaustruct
	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(payment.ToMinorUnits(amount)),
		Currency: stripego.String(currency),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("booking_reference", bookingRef)
	params.SetIdempotencyKey("booking-" + bookingRef)

	pi, err := breaker.Execute(g.cb, func() (*stripego.PaymentIntent, error) {
		return g.api.PaymentIntents.New(params) //nolint:wrapcheck
	})
	if err != nil {
		return nil, fmt.Errorf("create stripe payment intent: %w", err)
	}

	g.l.WithFields(map[string]any{"payment_intent": pi.ID}).
		LogDebug("Payment intent has been created for booking %s", bookingRef)

	return &booking.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       amount,
		Currency:     currency,
	}, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the payment
// intent the event refers to.
func (g *Gateway) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", payment.ErrInvalidWebhook, err)
	}

	out := &payment.Event{ID: event.ID, Type: payment.EventType(event.Type), IntentID: ""}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return out, nil
	}

	var pi stripego.PaymentIntent

	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: decode payment intent: %w", payment.ErrInvalidWebhook, err)
	}

	out.IntentID = pi.ID

	return out, nil
}
