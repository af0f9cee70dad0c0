package model

import "github.com/shopspring/decimal"

// PaymentMethod values as written by the order subsystem.
// Anything outside this list is folded into PaymentMethodSummary.Other.
const (
	MethodCash         = "CASH"
	MethodCard         = "CARD"
	MethodUPI          = "UPI"
	MethodWallet       = "WALLET"
	MethodBankTransfer = "BANK_TRANSFER"
	MethodCredit       = "CREDIT"
	MethodOther        = "OTHER"
)

// PaymentMethodSummary is the fixed set of payment buckets stored on sessions,
// shifts and day-end reports (embedded, column prefix set by the owner).
type PaymentMethodSummary struct {
	Cash         decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Card         decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	UPI          decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0;column:upi"`
	Wallet       decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	BankTransfer decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Credit       decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Other        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
}

// Add folds amount into the bucket for method.
func (p *PaymentMethodSummary) Add(method string, amount decimal.Decimal) {
	switch method {
	case MethodCash:
		p.Cash = p.Cash.Add(amount)
	case MethodCard:
		p.Card = p.Card.Add(amount)
	case MethodUPI:
		p.UPI = p.UPI.Add(amount)
	case MethodWallet:
		p.Wallet = p.Wallet.Add(amount)
	case MethodBankTransfer:
		p.BankTransfer = p.BankTransfer.Add(amount)
	case MethodCredit:
		p.Credit = p.Credit.Add(amount)
	default:
		p.Other = p.Other.Add(amount)
	}
}

func (p PaymentMethodSummary) Total() decimal.Decimal {
	return p.Cash.Add(p.Card).Add(p.UPI).Add(p.Wallet).Add(p.BankTransfer).Add(p.Credit).Add(p.Other)
}
