package normalize

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guttosm/cryptonorm/internal/domain/models"
)

// RecordBuilder assembles a canonical record and checks its invariants in
// Build. Setters never fail; all validation happens once at the end.
//
// Usage:
//
//	rec, err := normalize.NewRecord(models.KindDeposit, row.Timestamp, "Coinbase").
//		Buy(qty, "BTC").
//		Fee(fee, "BTC").
//		Build()
type RecordBuilder struct {
	rec models.Record
}

// NewRecord starts a record of kind at ts for wallet.
func NewRecord(kind models.Kind, ts time.Time, wallet string) *RecordBuilder {
	return &RecordBuilder{rec: models.Record{Kind: kind, Timestamp: ts, Wallet: wallet}}
}

// NewUnmapped starts an Unmapped record carrying reason.
func NewUnmapped(reason string, ts time.Time, wallet string) *RecordBuilder {
	b := NewRecord(models.KindUnmapped, ts, wallet)
	b.rec.UnmappedReason = reason
	return b
}

// Buy sets the buy leg.
func (b *RecordBuilder) Buy(qty decimal.Decimal, asset string) *RecordBuilder {
	b.rec.Buy = &models.Leg{Quantity: qty, Asset: asset}
	return b
}

// BuyValue attaches an advisory value to the buy leg. An invalid value is
// ignored, so callers can pass an optional result straight through.
func (b *RecordBuilder) BuyValue(v decimal.NullDecimal) *RecordBuilder {
	if b.rec.Buy != nil {
		b.rec.Buy.Value = v
	}
	return b
}

// Sell sets the sell leg.
func (b *RecordBuilder) Sell(qty decimal.Decimal, asset string) *RecordBuilder {
	b.rec.Sell = &models.Leg{Quantity: qty, Asset: asset}
	return b
}

// SellValue attaches an advisory value to the sell leg.
func (b *RecordBuilder) SellValue(v decimal.NullDecimal) *RecordBuilder {
	if b.rec.Sell != nil {
		b.rec.Sell.Value = v
	}
	return b
}

// Fee sets the fee.
func (b *RecordBuilder) Fee(qty decimal.Decimal, asset string) *RecordBuilder {
	b.rec.Fee = &models.Fee{Quantity: qty, Asset: asset}
	return b
}

// OptionalFee sets the fee only when qty is valid.
func (b *RecordBuilder) OptionalFee(qty decimal.NullDecimal, asset string) *RecordBuilder {
	if qty.Valid {
		b.Fee(qty.Decimal, asset)
	}
	return b
}

// Build validates the record and returns it, or fails with
// *InvalidRecordError naming the violated invariant.
func (b *RecordBuilder) Build() (models.Record, error) {
	r := b.rec
	if err := validate(r); err != nil {
		return models.Record{}, err
	}
	return r, nil
}

func validate(r models.Record) error {
	invalid := func(format string, args ...any) error {
		return &InvalidRecordError{Invariant: fmt.Sprintf(format, args...)}
	}

	if !r.Kind.Valid() {
		return invalid("unknown kind %q", r.Kind)
	}
	if r.Timestamp.IsZero() {
		return invalid("timestamp not set")
	}
	if r.Kind == models.KindUnmapped && r.UnmappedReason == "" {
		return invalid("unmapped record without reason")
	}

	switch r.Kind {
	case models.KindTrade:
		if r.Buy == nil || r.Sell == nil {
			return invalid("trade requires both buy and sell legs")
		}
	case models.KindDeposit, models.KindIncome, models.KindStaking, models.KindReferral, models.KindFeeRebate:
		if r.Buy == nil || r.Sell != nil {
			return invalid("%s requires a buy leg only", r.Kind)
		}
	case models.KindWithdrawal:
		if r.Sell == nil || r.Buy != nil {
			return invalid("withdrawal requires a sell leg only")
		}
	case models.KindUnmapped:
		if r.Buy == nil && r.Sell == nil {
			return invalid("unmapped record without any leg")
		}
	}

	legs := []struct {
		name string
		leg  *models.Leg
	}{{"buy", r.Buy}, {"sell", r.Sell}}
	for _, l := range legs {
		if l.leg == nil {
			continue
		}
		if l.leg.Quantity.IsNegative() {
			return invalid("negative %s quantity %s", l.name, l.leg.Quantity)
		}
		if l.leg.Asset == "" {
			return invalid("%s leg without asset", l.name)
		}
	}

	if r.Fee != nil {
		if r.Fee.Quantity.IsNegative() {
			return invalid("negative fee quantity %s", r.Fee.Quantity)
		}
		if r.Fee.Asset == "" {
			return invalid("fee without asset")
		}
	}
	return nil
}
