package booking

import (
	"context"
	"fmt"

	"github.com/avstrong/hotelbooking/internal/logger"
)

type ConfirmationHandler interface {
	Name() string
	HandleConfirmed(ctx context.Context, b *Booking) error
}

type detailsReader interface {
	GetBookingDetails(ctx context.Context, bookingID uint) (*Details, error)
}

type pdfStorage interface {
	detailsReader
	GetBooking(ctx context.Context, bookingID uint) (*Booking, error)
	// UpdateBookingPdf writes only the document fields of b so a concurrent
	// lifecycle change is never overwritten.
	UpdateBookingPdf(ctx context.Context, b *Booking) error
}

type Renderer interface {
	RenderBookingConfirmation(details *Details) ([]byte, error)
}

type Uploader interface {
	Upload(ctx context.Context, fileName string, content []byte, contentType string) (string, error)
}

type Mailer interface {
	SendBookingConfirmation(ctx context.Context, details *Details, recipientEmail, recipientName string) error
}

// PdfHandler renders the confirmation document, uploads it and records the
// outcome on the booking. It never returns the render or upload error: the
// failure is stored as the booking's PDF status instead. Only the document
// fields are written back, the lifecycle status is left alone.
type PdfHandler struct {
	l        *logger.Logger
	storage  pdfStorage
	renderer Renderer
	uploader Uploader
}

func NewPdfHandler(l *logger.Logger, storage pdfStorage, renderer Renderer, uploader Uploader) *PdfHandler {
	return &PdfHandler{
		l:        l,
		storage:  storage,
		renderer: renderer,
		uploader: uploader,
	}
}

func (h *PdfHandler) Name() string {
	return "confirmation-pdf"
}

func (h *PdfHandler) HandleConfirmed(ctx context.Context, b *Booking) error {
	current, err := h.storage.GetBooking(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("load booking %d: %w", b.ID, err)
	}

	if current.Status != StatusConfirmed {
		h.l.WithFields(map[string]any{"booking_id": b.ID}).
			LogInfo("Skipping confirmation pdf for %s booking", current.Status)

		return nil
	}

	current.ResetPdfGenerationStatus()

	if err := h.storage.UpdateBookingPdf(ctx, current); err != nil {
		return fmt.Errorf("reset pdf status of booking %d: %w", b.ID, err)
	}

	url, genErr := h.generate(ctx, current)
	if genErr != nil {
		h.l.WithFields(map[string]any{"booking_id": b.ID}).
			LogErrorf("Could not generate confirmation pdf: %v", genErr)
		current.MarkPdfGenerationAsFailed(genErr.Error())
	} else {
		current.SetConfirmationPdfURL(url)
	}

	if err := h.storage.UpdateBookingPdf(ctx, current); err != nil {
		return fmt.Errorf("record pdf outcome of booking %d: %w", b.ID, err)
	}

	return nil
}

func (h *PdfHandler) generate(ctx context.Context, b *Booking) (_ string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pdf generation panicked: %v", p) //nolint:goerr113
		}
	}()

	details, err := h.storage.GetBookingDetails(ctx, b.ID)
	if err != nil {
		return "", fmt.Errorf("load booking details: %w", err)
	}

	content, err := h.renderer.RenderBookingConfirmation(details)
	if err != nil {
		return "", &ExternalServiceError{Service: "pdf", Err: err}
	}

	fileName := fmt.Sprintf("booking-%s.pdf", b.Reference)

	url, err := h.uploader.Upload(ctx, fileName, content, "application/pdf")
	if err != nil {
		return "", &ExternalServiceError{Service: "file-storage", Err: err}
	}

	return url, nil
}

// EmailHandler sends the confirmation e-mail. Failures are logged and never
// change the booking.
type EmailHandler struct {
	l       *logger.Logger
	storage detailsReader
	mailer  Mailer
}

func NewEmailHandler(l *logger.Logger, storage detailsReader, mailer Mailer) *EmailHandler {
	return &EmailHandler{
		l:       l,
		storage: storage,
		mailer:  mailer,
	}
}

func (h *EmailHandler) Name() string {
	return "confirmation-email"
}

func (h *EmailHandler) HandleConfirmed(ctx context.Context, b *Booking) error {
	l := h.l.WithFields(map[string]any{"booking_id": b.ID})

	details, err := h.storage.GetBookingDetails(ctx, b.ID)
	if err != nil {
		l.LogErrorf("Could not load booking details for confirmation email: %v", err)

		return nil
	}

	if err := h.mailer.SendBookingConfirmation(ctx, details, details.UserEmail, details.UserName); err != nil {
		l.LogErrorf("Could not send confirmation email to %s: %v", details.UserEmail, err)

		return nil
	}

	l.LogInfo("Confirmation email has been sent to %s", details.UserEmail)

	return nil
}
