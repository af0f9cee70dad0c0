package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"restopos/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GenerateDayEndPDF renders a Z-Report on an 80mm roll so it can be printed on
// the outlet's receipt printer. The file is written to
// storagePath/zreport_{report number}.pdf and its path returned.
func GenerateDayEndPDF(rep *model.DayEndReport, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("zreport_%s.pdf", rep.ReportNumber))

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: 220},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(true, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8
	labelW := contentW * 0.62
	valueW := contentW - labelW

	separator := func() {
		pdf.Ln(1)
		pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
		pdf.Ln(1)
	}
	row := func(label string, value string) {
		pdf.CellFormat(labelW, 4.5, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 4.5, value, "", 1, "R", false, 0, "")
	}
	money := func(label string, d decimal.Decimal) { row(label, d.StringFixed(2)) }
	section := func(title string) {
		pdf.Ln(1)
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(contentW, 5, title, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 7)
	}

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, "Z-REPORT", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, rep.ReportNumber, "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 4, "Business date "+rep.BusinessDate.Format("02/01/2006"), "", 1, "C", false, 0, "")
	separator()

	row("Opened", rep.SessionOpenedAt.Format("02/01/2006 15:04"))
	row("Closed", rep.SessionClosedAt.Format("02/01/2006 15:04"))
	row("Closed by", rep.GeneratedBy)

	// ── Sales ────────────────────────────────────────────────────────────────
	section("Sales")
	row("Orders", fmt.Sprintf("%d", rep.TotalOrders))
	money("Total sales", rep.TotalSales)
	money("Tax", rep.TotalTax)
	money("Discount", rep.TotalDiscount)

	// ── Payments ─────────────────────────────────────────────────────────────
	section("Payments")
	money("Cash", rep.Payments.Cash)
	money("Card", rep.Payments.Card)
	money("UPI", rep.Payments.UPI)
	money("Wallet", rep.Payments.Wallet)
	money("Bank transfer", rep.Payments.BankTransfer)
	money("Credit (settled)", rep.Payments.Credit)
	money("Other", rep.Payments.Other)

	// ── Memo ─────────────────────────────────────────────────────────────────
	section("Memo")
	row("Voided bills", fmt.Sprintf("%d / %s", rep.VoidedBillsCount, rep.TotalVoidedAmount.StringFixed(2)))
	row("Complimentary items", fmt.Sprintf("%d / %s", rep.ComplimentaryItemsCount, rep.TotalComplimentaryItemsValue.StringFixed(2)))
	row("Credit bills", fmt.Sprintf("%d", rep.CreditBillsCount))
	money("Credit outstanding", rep.CreditOutstanding)
	money("Credit settled", rep.CreditSettled)

	// ── Cash drawer ──────────────────────────────────────────────────────────
	section("Cash drawer")
	money("Opening cash", rep.OpeningCash)
	money("Cash collected", rep.CashCollected)
	money("Cash refunds", rep.CashRefunds)
	money("Expected cash", rep.ExpectedCash)
	money("Closing cash", rep.ClosingCash)
	pdf.SetFont("Helvetica", "B", 8)
	row("Difference ("+string(rep.CashStatus)+")", rep.CashDifference.StringFixed(2))
	pdf.SetFont("Helvetica", "", 7)
	if rep.ClosingCashAssumed {
		pdf.SetFont("Helvetica", "I", 6)
		pdf.MultiCell(contentW, 3.5, "No drawer count entered: closing cash assumed equal to expected.", "", "L", false)
		pdf.SetFont("Helvetica", "", 7)
	}

	// ── Staff ────────────────────────────────────────────────────────────────
	if len(rep.StaffSummary) > 0 {
		section("Staff")
		for _, s := range rep.StaffSummary {
			row(s.StaffName, fmt.Sprintf("%d / %s", s.TotalOrders, s.TotalSales.StringFixed(2)))
		}
	}

	if rep.Notes != nil && *rep.Notes != "" {
		section("Notes")
		pdf.MultiCell(contentW, 3.5, *rep.Notes, "", "L", false)
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
