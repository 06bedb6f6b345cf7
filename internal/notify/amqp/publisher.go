package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
)

const routingKeyConfirmed = "booking.confirmed"

type Config struct {
	L        *logger.Logger
	URL      string
	Exchange string
}

type BookingEvent struct {
	Event      string    `json:"event"`
	BookingID  uint      `json:"booking_id"`
	Reference  string    `json:"reference"`
	UserID     uint      `json:"user_id"`
	HotelID    uint      `json:"hotel_id"`
	RoomID     uint      `json:"room_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	TotalPrice float64   `json:"total_price"`
	Currency   string    `json:"currency"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher announces confirmed bookings on a topic exchange. It is
// registered as a confirmation handler.
type Publisher struct {
	mu       sync.Mutex
	l        *logger.Logger
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func New(conf Config) (*Publisher, error) {
	conn, err := amqp.Dial(conf.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(conf.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("declare exchange %s: %w", conf.Exchange, err)
	}

	conf.L.LogInfo("Booking events are published to exchange %s", conf.Exchange)

	return &Publisher{
		mu:       sync.Mutex{},
		l:        conf.L,
		conn:     conn,
		ch:       ch,
		exchange: conf.Exchange,
	}, nil
}

func (p *Publisher) Name() string {
	return "confirmation-event"
}

func NewConfirmedEvent(b *booking.Booking, now time.Time) BookingEvent {
	return BookingEvent{
		Event:      routingKeyConfirmed,
		BookingID:  b.ID,
		Reference:  b.Reference,
		UserID:     b.UserID,
		HotelID:    b.HotelID,
		RoomID:     b.RoomID,
		CheckIn:    b.CheckIn,
		CheckOut:   b.CheckOut,
		TotalPrice: b.TotalPrice,
		Currency:   b.Currency,
		OccurredAt: now,
	}
}

func (p *Publisher) HandleConfirmed(ctx context.Context, b *booking.Booking) error {
	now := time.Now().UTC()

	body, err := json.Marshal(NewConfirmedEvent(b, now))
	if err != nil {
		return fmt.Errorf("encode booking event: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish booking event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	//nolint:exhaustruct
	err = p.ch.Publish(p.exchange, routingKeyConfirmed, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    b.Reference,
		Timestamp:    now,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish booking event: %w", err)
	}

	p.l.WithFields(map[string]any{"booking_id": b.ID}).LogDebug("Booking confirmed event has been published")

	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		p.l.LogErrorf("Could not close amqp channel: %v", err)
	}

	if err := p.conn.Close(); err != nil {
		return fmt.Errorf("close amqp connection: %w", err)
	}

	return nil
}
