package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/sony/gobreaker"
	"gopkg.in/gomail.v2"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/breaker"
	"github.com/avstrong/hotelbooking/internal/logger"
)

type Config struct {
	L        *logger.Logger
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<p>Dear {{.Name}},</p>
<p>Your booking <b>{{.D.Booking.Reference}}</b> at {{.D.HotelName}}{{if .D.CityName}}, {{.D.CityName}}{{end}} is confirmed.</p>
<ul>
<li>Room: {{.D.RoomNumber}} ({{.D.RoomTypeName}})</li>
<li>Check-in: {{.CheckIn}}</li>
<li>Check-out: {{.CheckOut}}</li>
<li>Nights: {{.D.Booking.Nights}}</li>
<li>Total: {{printf "%.2f" .D.Booking.TotalPrice}} {{.D.Booking.Currency}}</li>
</ul>
{{if .D.Booking.ConfirmationPdfURL}}<p>Your confirmation document: <a href="{{.D.Booking.ConfirmationPdfURL}}">download</a></p>{{end}}
<p>We look forward to your stay.</p>`))

type templateData struct {
	Name     string
	D        *booking.Details
	CheckIn  string
	CheckOut string
}

// Sender delivers booking e-mails over SMTP.
type Sender struct {
	l      *logger.Logger
	dialer *gomail.Dialer
	from   string
	cb     *gobreaker.CircuitBreaker
}

func New(conf Config) *Sender {
	return &Sender{
		l:      conf.L,
		dialer: gomail.NewDialer(conf.Host, conf.Port, conf.Username, conf.Password),
		from:   conf.From,
		cb:     breaker.New(conf.L, "smtp"),
	}
}

func renderConfirmation(details *booking.Details, recipientName string) (string, string, error) {
	var body bytes.Buffer

	err := confirmationTemplate.Execute(&body, templateData{
		Name:     recipientName,
		D:        details,
		CheckIn:  details.Booking.CheckIn.Format(time.DateOnly),
		CheckOut: details.Booking.CheckOut.Format(time.DateOnly),
	})
	if err != nil {
		return "", "", fmt.Errorf("render confirmation email: %w", err)
	}

	subject := fmt.Sprintf("Booking confirmed: %s", details.Booking.Reference)

	return subject, body.String(), nil
}

func (s *Sender) SendBookingConfirmation(
	ctx context.Context,
	details *booking.Details,
	recipientEmail, recipientName string,
) error {
	subject, body, err := renderConfirmation(details, recipientName)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetAddressHeader("To", recipientEmail, recipientName)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}

	_, err = breaker.Execute(s.cb, func() (struct{}, error) {
		return struct{}{}, s.dialer.DialAndSend(m) //nolint:wrapcheck
	})
	if err != nil {
		return fmt.Errorf("send confirmation email to %s: %w", recipientEmail, err)
	}

	return nil
}

// LogSender writes e-mails to the log instead of sending them. Used when SMTP
// is not configured.
type LogSender struct {
	l *logger.Logger
}

func NewLogSender(l *logger.Logger) *LogSender {
	return &LogSender{l: l}
}

func (s *LogSender) SendBookingConfirmation(
	_ context.Context,
	details *booking.Details,
	recipientEmail, recipientName string,
) error {
	subject, body, err := renderConfirmation(details, recipientName)
	if err != nil {
		return err
	}

	s.l.WithFields(map[string]any{"to": recipientEmail, "subject": subject}).
		LogInfo("Email delivery is disabled, message body: %s", body)

	return nil
}
