// Package cash holds the pure drawer arithmetic shared by the session close,
// the X-Report and the Z-Report: denomination counts and cash reconciliation.
package cash

import (
	"fmt"

	"restopos/internal/apierror"
	"restopos/internal/model"

	"github.com/shopspring/decimal"
)

// Tolerance is the largest difference treated as equal when comparing cash
// amounts (one paisa).
var Tolerance = decimal.NewFromFloat(0.01)

// SupportedDenominations is the legal-tender set accepted in a drawer count,
// highest first.
var SupportedDenominations = []decimal.Decimal{
	decimal.NewFromInt(2000),
	decimal.NewFromInt(500),
	decimal.NewFromInt(200),
	decimal.NewFromInt(100),
	decimal.NewFromInt(50),
	decimal.NewFromInt(20),
	decimal.NewFromInt(10),
	decimal.NewFromInt(5),
	decimal.NewFromInt(2),
	decimal.NewFromInt(1),
}

func isSupported(v decimal.Decimal) bool {
	for _, d := range SupportedDenominations {
		if d.Equal(v) {
			return true
		}
	}
	return false
}

// ValidateDenominations checks a drawer count and returns a copy annotated
// with Amount = Value * Count, together with the grand total.
func ValidateDenominations(in []model.Denomination) ([]model.Denomination, decimal.Decimal, error) {
	if len(in) == 0 {
		return nil, decimal.Zero, apierror.Precondition("denomination list is empty")
	}

	out := make([]model.Denomination, 0, len(in))
	seen := make(map[string]bool, len(in))
	total := decimal.Zero
	for _, d := range in {
		if !isSupported(d.Value) {
			return nil, decimal.Zero, apierror.Precondition(fmt.Sprintf("unsupported denomination %s", d.Value)).
				With("value", d.Value.String())
		}
		if d.Count < 0 {
			return nil, decimal.Zero, apierror.Precondition(fmt.Sprintf("negative count for denomination %s", d.Value)).
				With("value", d.Value.String())
		}
		key := d.Value.String()
		if seen[key] {
			return nil, decimal.Zero, apierror.Precondition(fmt.Sprintf("duplicate denomination %s", d.Value)).
				With("value", key)
		}
		seen[key] = true

		amount := d.Value.Mul(decimal.NewFromInt(int64(d.Count)))
		total = total.Add(amount)
		out = append(out, model.Denomination{Value: d.Value, Count: d.Count, Amount: amount})
	}
	return out, total, nil
}

// ResolveAmount reconciles an optional lump sum with an optional denomination
// breakdown. When both are given they must agree within Tolerance; when only
// the breakdown is given its total becomes the amount. ok is false when
// neither was supplied.
func ResolveAmount(lump *decimal.Decimal, denoms []model.Denomination) (amount decimal.Decimal, validated []model.Denomination, ok bool, err error) {
	if len(denoms) == 0 {
		if lump == nil {
			return decimal.Zero, nil, false, nil
		}
		if lump.IsNegative() {
			return decimal.Zero, nil, false, apierror.Precondition("cash amount cannot be negative")
		}
		return *lump, nil, true, nil
	}

	validated, total, err := ValidateDenominations(denoms)
	if err != nil {
		return decimal.Zero, nil, false, err
	}
	if lump != nil {
		if lump.Sub(total).Abs().GreaterThan(Tolerance) {
			return decimal.Zero, nil, false, apierror.Precondition(
				fmt.Sprintf("denomination total %s does not match declared amount %s", total.StringFixed(2), lump.StringFixed(2))).
				With("denomination_total", total.StringFixed(2)).
				With("declared_amount", lump.StringFixed(2))
		}
		return *lump, validated, true, nil
	}
	return total, validated, true, nil
}
