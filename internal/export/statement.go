// Package export renders a user's ledger statement as a PDF document.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/mmynk/finduo/internal/analyzer"
	"github.com/mmynk/finduo/internal/models"
)

// MaxRows is the number of ledger rows printed before the table is truncated.
const MaxRows = 500

// ContentType is the MIME type of the rendered statement.
const ContentType = "application/pdf"

var columnWidths = []float64{24, 30, 40, 58, 30}

// Filename returns the attachment name for a statement.
func Filename(st *analyzer.Statement) string {
	return "finduo-statement-" + st.GeneratedAt.Format("2006-01-02") + ".pdf"
}

// StatementPDF renders st. currency labels the amount columns.
func StatementPDF(st *analyzer.Statement, currency string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "finduo statement")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, tr("User: "+st.UserName))
	pdf.Ln(5)
	pdf.Cell(0, 6, "Generated: "+st.GeneratedAt.Format(models.TimestampLayout))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Records: %d", st.Totals.Count))
	pdf.Ln(10)

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 10)

	sumW := []float64{45.5, 45.5, 45.5, 45.5}
	pdf.CellFormat(sumW[0], 10, "Income ("+currency+")", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[1], 10, "Expenses ("+currency+")", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[2], 10, "Debts ("+currency+")", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[3], 10, "Balance ("+currency+")", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(sumW[0], 10, FormatMoney(st.Totals.Income), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[1], 10, FormatMoney(st.Totals.Expenses), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[2], 10, FormatMoney(st.Totals.Debts), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[3], 10, FormatMoney(st.Totals.Balance()), "1", 1, "C", false, 0, "")
	pdf.Ln(6)

	tableHeader(pdf)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(30, 30, 30)

	for i, r := range st.Records {
		if i >= MaxRows {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(0, 8, "truncated, too many rows", "1", 1, "C", false, 0, "")
			break
		}
		if pdf.GetY() > 270 {
			pdf.AddPage()
			tableHeader(pdf)
			pdf.SetFont("Helvetica", "", 9)
		}

		date := "-"
		if !r.Timestamp.IsZero() {
			date = r.Timestamp.Format(models.DateLayout)
		}
		category := r.Category
		if category == "" {
			category = models.UncategorizedLabel
		}

		pdf.CellFormat(columnWidths[0], 8, strings.ToUpper(string(r.Type)), "1", 0, "C", false, 0, "")
		pdf.CellFormat(columnWidths[1], 8, date, "1", 0, "C", false, 0, "")
		pdf.CellFormat(columnWidths[2], 8, tr(trimTo(category, 24)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(columnWidths[3], 8, tr(trimTo(r.Description, 34)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(columnWidths[4], 8, formatSigned(r), "1", 1, "R", false, 0, "")
	}

	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Generated by finduo "+st.GeneratedAt.Format(time.RFC3339), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to build statement pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func tableHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.SetTextColor(20, 20, 20)
	pdf.CellFormat(columnWidths[0], 8, "TYPE", "1", 0, "C", true, 0, "")
	pdf.CellFormat(columnWidths[1], 8, "DATE", "1", 0, "C", true, 0, "")
	pdf.CellFormat(columnWidths[2], 8, "CATEGORY", "1", 0, "L", true, 0, "")
	pdf.CellFormat(columnWidths[3], 8, "DESCRIPTION", "1", 0, "L", true, 0, "")
	pdf.CellFormat(columnWidths[4], 8, "AMOUNT", "1", 1, "R", true, 0, "")
}

func trimTo(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

// FormatMoney rounds v to a whole amount and groups thousands with commas.
func FormatMoney(v float64) string {
	d := decimal.NewFromFloat(v).Round(0)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	return sign + withCommas(d.String())
}

func formatSigned(r models.Record) string {
	if r.Type != models.RecordIncome && r.Amount > 0 {
		return "-" + FormatMoney(r.Amount)
	}
	return FormatMoney(r.Amount)
}

func withCommas(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
