// Package pdf renders invoices as downloadable PDF documents.
package pdf

import (
	"bytes"
	"fmt"
	"os"

	"invoicely/internal/model"

	"github.com/jung-kurt/gofpdf"
)

// Filename is the download name convention: invoice-<first 8 of id>.pdf.
func Filename(inv model.Invoice) string {
	return fmt.Sprintf("invoice-%s.pdf", inv.ID.String()[:8])
}

// RenderInvoice lays out one invoice on an A4 page: business header with
// optional logo, customer block, item table, totals, notes. All amounts
// are shown with the currency code and two decimal places; the underlying
// values are the stored ones, unrounded.
func RenderInvoice(inv model.Invoice, owner model.User, logoPath string) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(true, 20)
	doc.AddPage()

	if logoPath != "" {
		if _, err := os.Stat(logoPath); err == nil {
			doc.ImageOptions(logoPath, 160, 12, 30, 0, false, gofpdf.ImageOptions{ReadDpi: true}, 0, "")
		}
	}

	doc.SetFont("Helvetica", "B", 18)
	doc.Cell(0, 10, "INVOICE")
	doc.Ln(12)

	doc.SetFont("Helvetica", "B", 11)
	doc.Cell(0, 6, owner.BusinessName)
	doc.Ln(6)
	doc.SetFont("Helvetica", "", 10)
	doc.Cell(0, 5, owner.Email)
	doc.Ln(5)
	doc.Cell(0, 5, owner.Phone)
	doc.Ln(10)

	doc.SetFont("Helvetica", "B", 10)
	doc.Cell(0, 5, "Bill To:")
	doc.Ln(5)
	doc.SetFont("Helvetica", "", 10)
	doc.Cell(0, 5, inv.CustomerName)
	doc.Ln(5)
	doc.Cell(0, 5, inv.CustomerPhone)
	doc.Ln(5)
	doc.Cell(0, 5, fmt.Sprintf("Invoice #: %s", inv.ID.String()[:8]))
	doc.Ln(5)
	doc.Cell(0, 5, fmt.Sprintf("Date: %s", inv.CreatedAt.Format("02 Jan 2006")))
	doc.Ln(5)
	doc.Cell(0, 5, fmt.Sprintf("Status: %s", inv.Status))
	doc.Ln(10)

	// Item table
	colWidths := []float64{90, 25, 35, 40}
	headers := []string{"Description", "Qty", "Rate", "Amount"}
	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(240, 240, 240)
	for i, h := range headers {
		doc.CellFormat(colWidths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 10)
	for _, item := range inv.Items {
		doc.CellFormat(colWidths[0], 7, item.Description, "1", 0, "L", false, 0, "")
		doc.CellFormat(colWidths[1], 7, item.Quantity.String(), "1", 0, "R", false, 0, "")
		doc.CellFormat(colWidths[2], 7, money(inv.Currency, item.Rate.StringFixed(2)), "1", 0, "R", false, 0, "")
		doc.CellFormat(colWidths[3], 7, money(inv.Currency, item.Amount().StringFixed(2)), "1", 0, "R", false, 0, "")
		doc.Ln(-1)
	}
	doc.Ln(4)

	totalsX := colWidths[0] + colWidths[1]
	writeTotal := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		doc.SetFont("Helvetica", style, 10)
		doc.SetX(doc.GetX() + totalsX)
		doc.CellFormat(colWidths[2], 6, label, "", 0, "L", false, 0, "")
		doc.CellFormat(colWidths[3], 6, value, "", 0, "R", false, 0, "")
		doc.Ln(-1)
	}

	writeTotal("Subtotal:", money(inv.Currency, inv.Subtotal.StringFixed(2)), false)
	if inv.Tax.IsPositive() {
		writeTotal("Tax:", money(inv.Currency, inv.Tax.StringFixed(2)), false)
	}
	if inv.Discount.IsPositive() {
		writeTotal("Discount:", "-"+money(inv.Currency, inv.Discount.StringFixed(2)), false)
	}
	writeTotal("Total:", money(inv.Currency, inv.TotalAmount.StringFixed(2)), true)

	if inv.Notes != "" {
		doc.Ln(8)
		doc.SetFont("Helvetica", "B", 10)
		doc.Cell(0, 5, "Notes")
		doc.Ln(5)
		doc.SetFont("Helvetica", "", 10)
		doc.MultiCell(0, 5, inv.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func money(currency, amount string) string {
	return currency + " " + amount
}
