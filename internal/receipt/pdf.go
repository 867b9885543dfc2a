// Package receipt renders a printable payment receipt.
package receipt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf/v2"

	"rental-backend/internal/models"
	"rental-backend/internal/timeutil"
)

type Data struct {
	Payment  *models.Payment
	Booking  *models.Booking
	Property *models.Property
}

// Render builds the receipt PDF for a single payment
func Render(d Data) ([]byte, error) {
	if d.Payment == nil || d.Booking == nil || d.Property == nil {
		return nil, fmt.Errorf("receipt: payment, booking and property are required")
	}
	p, b, prop := d.Payment, d.Booking, d.Property

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Payment Receipt", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Receipt No: %s", p.ReceiptNumber), "", 1, "C", false, 0, "")
	pdf.CellFormat(190, 6, fmt.Sprintf("Issued: %s", timeutil.FormatManila(p.CreatedAt, timeutil.DisplayLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Property
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Property", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(190, 7, prop.Name, "LR", 1, "L", false, 0, "")
	pdf.CellFormat(190, 7, prop.Address, "LRB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Booking
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Booking", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Booking #%d", b.ID), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Status: %s", strings.ToUpper(string(b.Status))), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Check-in: %s", b.StartDate.Format(timeutil.DateLayout)), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Check-out: %s", b.EndDate.Format(timeutil.DateLayout)), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Months billed: %d", b.Months), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Monthly rate: %s", prop.PricePerMonth.Display()), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Payment
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Payment", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Method: %s", strings.ToUpper(string(p.Method))), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Status: %s", statusLabel(p.Status)), "RB", 1, "L", false, 0, "")
	if p.IntentID != "" {
		pdf.CellFormat(190, 7, fmt.Sprintf("Reference: %s", p.IntentID), "LRB", 1, "L", false, 0, "")
	}
	if p.RefundID != "" {
		pdf.CellFormat(190, 7, fmt.Sprintf("Refund: %s", p.RefundID), "LRB", 1, "L", false, 0, "")
	}

	switch p.Status {
	case models.PaymentApproved, models.PaymentNotRequired:
		pdf.SetFillColor(200, 255, 200)
	case models.PaymentRejected, models.PaymentRefunded:
		pdf.SetFillColor(255, 200, 200)
	default:
		pdf.SetFillColor(255, 245, 200)
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(190, 10, fmt.Sprintf("Amount: %s", p.Amount.Display()), "1", 1, "C", true, 0, "")

	if p.Method == models.MethodCash {
		pdf.Ln(3)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(190, 5, "Cash is collected on site. This receipt confirms the booking, not the collection.", "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("receipt: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func statusLabel(s models.PaymentStatus) string {
	switch s {
	case models.PaymentPendingReview:
		return "PENDING REVIEW"
	case models.PaymentNotRequired:
		return "PAY ON SITE"
	default:
		return strings.ToUpper(string(s))
	}
}
