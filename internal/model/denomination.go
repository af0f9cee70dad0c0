package model

import "github.com/shopspring/decimal"

// Denomination is one line of a cash drawer count.
type Denomination struct {
	Value  decimal.Decimal `json:"value"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// CashStatus classifies a drawer count against the expected cash.
type CashStatus string

const (
	CashShort  CashStatus = "SHORT"
	CashExact  CashStatus = "EXACT"
	CashExcess CashStatus = "EXCESS"
)
