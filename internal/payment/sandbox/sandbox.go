package sandbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
	"github.com/avstrong/hotelbooking/internal/payment"
)

// Gateway issues fake payment intents for local runs. Webhooks are accepted
// unsigned in the same JSON shape Stripe sends.
type Gateway struct {
	l *logger.Logger
}

func New(l *logger.Logger) *Gateway {
	return &Gateway{l: l}
}

func (g *Gateway) CreatePaymentIntent(
	_ context.Context,
	amount float64,
	currency, bookingRef string,
) (*booking.PaymentIntent, error) {
	if err := payment.CheckAmount(amount, currency); err != nil {
		return nil, err
	}

	id := "pi_sandbox_" + uuid.NewString()

	g.l.LogDebug("Sandbox payment intent %s for booking %s", id, bookingRef)

	return &booking.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Amount:       amount,
		Currency:     currency,
	}, nil
}

type webhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

func (g *Gateway) ParseWebhook(payload []byte, _ string) (*payment.Event, error) {
	var p webhookPayload

	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", payment.ErrInvalidWebhook, err)
	}

	if p.Type == "" || p.Data.Object.ID == "" {
		return nil, fmt.Errorf("%w: type and data.object.id are required", payment.ErrInvalidWebhook)
	}

	return &payment.Event{ID: p.ID, Type: payment.EventType(p.Type), IntentID: p.Data.Object.ID}, nil
}
