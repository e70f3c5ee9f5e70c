// Package report renders a monthly expense report as a PDF document.
package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"expensify/internal/core"
)

// RenderPDF renders the aggregated monthly report. One summary block per
// currency, followed by the detail table of eligible expenses.
func RenderPDF(r core.Report) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Expense report %s", r.Month), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Expense report %s", r.Month), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Statuses included: %s", joinOr(r.StatusesIncluded, "none")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Expenses counted: %d", r.Total.Count), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if r.Total.Count == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(0, 8, "No matching expenses were recorded this month.", "", 1, "L", false, 0, "")
		return output(pdf)
	}

	for _, currency := range r.CurrencyLabels() {
		bucket := r.ByCurrency[currency]

		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, fmt.Sprintf("%s - gross %s (%d expenses)", currency, bucket.Sum, bucket.Count), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("Net %s, VAT %s", bucket.Net, bucket.VAT), "", 1, "L", false, 0, "")
		if bucket.CompanyCard.Cents != 0 {
			pdf.CellFormat(0, 6, fmt.Sprintf("Company card charged: %s", bucket.CompanyCard), "", 1, "L", false, 0, "")
		}
		if bucket.PendingProgress.Count > 0 {
			pdf.CellFormat(0, 6, fmt.Sprintf("Pending in progress: %s (%d)", bucket.PendingProgress.Gross, bucket.PendingProgress.Count), "", 1, "L", false, 0, "")
		}
		if bucket.PendingReview.Count > 0 {
			pdf.CellFormat(0, 6, fmt.Sprintf("Pending review: %s (%d)", bucket.PendingReview.Gross, bucket.PendingReview.Count), "", 1, "L", false, 0, "")
		}
		pdf.Ln(2)
	}

	renderRows(pdf, r.Rows)

	if r.FXPolicy != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.MultiCell(0, 4, r.FXPolicy, "", "L", false)
	}

	return output(pdf)
}

// RenderErrorPDF renders a one-page document carrying an error message,
// so report downloads degrade to something readable instead of a broken
// attachment.
func RenderErrorPDF(message string) []byte {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Expense report unavailable", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 6, message, "", "L", false)

	out, err := output(pdf)
	if err != nil {
		return nil
	}
	return out
}

func renderRows(pdf *fpdf.Fpdf, rows []core.ReportRow) {
	pdf.SetFont("Helvetica", "B", 9)
	widths := []float64{22, 50, 30, 28, 25, 20, 15}
	headers := []string{"Date", "Category", "Payment", "Gross", "Net", "VAT", "Cur"}
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "B", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		cells := []string{
			row.Date.String(),
			row.Category,
			row.Payment,
			row.Gross.String(),
			row.Net.String(),
			row.VAT.String(),
			row.Currency,
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 5, c, "", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func joinOr(parts []string, fallback string) string {
	if len(parts) == 0 {
		return fallback
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}
