package infra

import (
	"fmt"
	"io"

	"restopos/internal/model"

	"github.com/xuri/excelize/v2"
)

const dayEndSheet = "Day-end reports"

var dayEndColumns = []string{
	"Report", "Session", "Business date", "Orders", "Total sales", "Tax", "Discount",
	"Cash", "Card", "UPI", "Wallet", "Bank transfer", "Credit settled", "Other",
	"Credit outstanding", "Voided bills", "Voided amount", "Complimentary items",
	"Complimentary value", "Opening cash", "Expected cash", "Closing cash",
	"Cash difference", "Cash status", "Closed by",
}

// WriteDayEndReportsXLSX writes one row per report to w as an .xlsx workbook.
func WriteDayEndReportsXLSX(w io.Writer, reports []model.DayEndReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dayEndSheet); err != nil {
		return err
	}

	for i, h := range dayEndColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(dayEndSheet, cell, h); err != nil {
			return err
		}
	}

	for r, rep := range reports {
		values := []any{
			rep.ReportNumber,
			rep.SessionNumber,
			rep.BusinessDate.Format("2006-01-02"),
			rep.TotalOrders,
			rep.TotalSales.InexactFloat64(),
			rep.TotalTax.InexactFloat64(),
			rep.TotalDiscount.InexactFloat64(),
			rep.Payments.Cash.InexactFloat64(),
			rep.Payments.Card.InexactFloat64(),
			rep.Payments.UPI.InexactFloat64(),
			rep.Payments.Wallet.InexactFloat64(),
			rep.Payments.BankTransfer.InexactFloat64(),
			rep.Payments.Credit.InexactFloat64(),
			rep.Payments.Other.InexactFloat64(),
			rep.CreditOutstanding.InexactFloat64(),
			rep.VoidedBillsCount,
			rep.TotalVoidedAmount.InexactFloat64(),
			rep.ComplimentaryItemsCount,
			rep.TotalComplimentaryItemsValue.InexactFloat64(),
			rep.OpeningCash.InexactFloat64(),
			rep.ExpectedCash.InexactFloat64(),
			rep.ClosingCash.InexactFloat64(),
			rep.CashDifference.InexactFloat64(),
			string(rep.CashStatus),
			rep.GeneratedBy,
		}
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(dayEndSheet, cell, v); err != nil {
				return fmt.Errorf("excel: row %d: %w", r+2, err)
			}
		}
	}

	return f.Write(w)
}
