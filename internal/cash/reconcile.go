package cash

import (
	"restopos/internal/model"

	"github.com/shopspring/decimal"
)

// ExpectedCash is the cash that should be in the drawer.
func ExpectedCash(opening, collected, refunds decimal.Decimal) decimal.Decimal {
	return opening.Add(collected).Sub(refunds)
}

// Classify maps a variance (actual - expected) to a cash status.
func Classify(variance decimal.Decimal) model.CashStatus {
	switch {
	case variance.Abs().LessThan(Tolerance):
		return model.CashExact
	case variance.IsNegative():
		return model.CashShort
	default:
		return model.CashExcess
	}
}

// Reconciliation is the outcome of comparing a drawer count with expectations.
type Reconciliation struct {
	Expected decimal.Decimal
	Actual   decimal.Decimal
	Variance decimal.Decimal
	Status   model.CashStatus
}

// Reconcile compares the actual cash with the expected cash.
func Reconcile(actual, expected decimal.Decimal) Reconciliation {
	variance := actual.Sub(expected)
	return Reconciliation{
		Expected: expected,
		Actual:   actual,
		Variance: variance,
		Status:   Classify(variance),
	}
}
