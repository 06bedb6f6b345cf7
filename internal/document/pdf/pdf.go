package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/avstrong/hotelbooking/internal/booking"
)

const (
	labelWidth = 50
	lineHeight = 8
)

// Renderer lays out the booking confirmation as a single A4 page.
type Renderer struct {
	now func() time.Time
}

func New() *Renderer {
	return &Renderer{now: func() time.Time { return time.Now().UTC() }}
}

func (r *Renderer) RenderBookingConfirmation(details *booking.Details) ([]byte, error) {
	b := details.Booking

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Booking confirmation "+b.Reference, true)
	doc.AddPage()

	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetFont("Helvetica", "B", 18) //nolint:gomnd
	doc.Cell(0, 12, "Booking confirmation") //nolint:gomnd
	doc.Ln(16) //nolint:gomnd

	doc.SetFont("Helvetica", "", 12) //nolint:gomnd

	rows := [][2]string{
		{"Reference", b.Reference},
		{"Guest", b.GuestName},
		{"Hotel", details.HotelName},
		{"Address", details.HotelAddress},
		{"City", details.CityName},
		{"Room", fmt.Sprintf("%s (%s)", details.RoomNumber, details.RoomTypeName)},
		{"Check-in", b.CheckIn.Format(time.DateOnly)},
		{"Check-out", b.CheckOut.Format(time.DateOnly)},
		{"Nights", fmt.Sprint(b.Nights)},
		{"Guests", fmt.Sprintf("%d adults, %d children", b.Adults, b.Children)},
	}

	if b.DiscountAmount > 0 {
		rows = append(rows, [2]string{"Discount", fmt.Sprintf("%.2f %s", b.DiscountAmount, b.Currency)})
	}

	rows = append(rows, [2]string{"Total", fmt.Sprintf("%.2f %s", b.TotalPrice, b.Currency)})

	if b.SpecialRequests != "" {
		rows = append(rows, [2]string{"Requests", b.SpecialRequests})
	}

	for _, row := range rows {
		doc.SetFont("Helvetica", "B", 12) //nolint:gomnd
		doc.CellFormat(labelWidth, lineHeight, tr(row[0]), "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 12) //nolint:gomnd
		doc.MultiCell(0, lineHeight, tr(row[1]), "", "L", false)
	}

	doc.Ln(lineHeight)
	doc.SetFont("Helvetica", "I", 9) //nolint:gomnd
	doc.Cell(0, lineHeight, "Issued "+r.now().Format(time.RFC1123))

	var buf bytes.Buffer

	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	return buf.Bytes(), nil
}
