package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the normalized transaction category of a Record.
type Kind string

const (
	KindDeposit    Kind = "Deposit"
	KindWithdrawal Kind = "Withdrawal"
	KindTrade      Kind = "Trade"
	KindIncome     Kind = "Income"
	KindStaking    Kind = "Staking"
	KindReferral   Kind = "Referral"
	KindFeeRebate  Kind = "FeeRebate"
	KindUnmapped   Kind = "Unmapped"
)

// UnmappedDuplicate marks a row whose value is already reported by another
// export of the same exchange.
const UnmappedDuplicate = "Duplicate"

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindTrade, KindIncome, KindStaking,
		KindReferral, KindFeeRebate, KindUnmapped:
		return true
	}
	return false
}

// Leg is one side (buy or sell) of a transaction.
//
// Fields:
//   - Quantity: unsigned magnitude in units of Asset.
//   - Asset:    asset or currency code (e.g. "BTC", "GBP").
//   - Value:    optional advisory value in the reporting currency.
type Leg struct {
	Quantity decimal.Decimal     `json:"quantity"`
	Asset    string              `json:"asset"`
	Value    decimal.NullDecimal `json:"value"`
}

// Fee is the fee charged on a transaction, always paired with its asset.
type Fee struct {
	Quantity decimal.Decimal `json:"quantity"`
	Asset    string          `json:"asset"`
}

// Record is the canonical transaction produced from exactly one source row.
//
// Records are immutable once returned by the record builder. Unmapped records
// are kept for audit trails and carry the reason in UnmappedReason.
type Record struct {
	Kind           Kind      `json:"kind"`
	UnmappedReason string    `json:"unmapped_reason,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Wallet         string    `json:"wallet"`
	Line           int       `json:"line"`
	Buy            *Leg      `json:"buy,omitempty"`
	Sell           *Leg      `json:"sell,omitempty"`
	Fee            *Fee      `json:"fee,omitempty"`
}

// Label returns the kind, qualified with the reason for unmapped records
// (e.g. "Unmapped(Duplicate)").
func (r Record) Label() string {
	if r.Kind == KindUnmapped && r.UnmappedReason != "" {
		return string(r.Kind) + "(" + r.UnmappedReason + ")"
	}
	return string(r.Kind)
}
