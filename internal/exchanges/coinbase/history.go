package coinbase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/guttosm/cryptonorm/internal/domain/models"
	"github.com/guttosm/cryptonorm/internal/normalize"
)

// valueColumns names the money columns of one report generation. Currency is
// the nominal currency the values are expressed in.
type valueColumns struct {
	Currency string
	Spot     string
	Subtotal string
	Total    string
	Fees     string
	// v4 fees may carry arbitrary currency decoration
	digitsOnlyFee bool
}

type columnsFunc func(rc *normalize.RowContext, row *normalize.RawRow) valueColumns

func columnsV4(_ *normalize.RowContext, row *normalize.RawRow) valueColumns {
	return valueColumns{
		Currency:      row.Get("Price Currency"),
		Spot:          "Price at Transaction",
		Subtotal:      "Subtotal",
		Total:         "Total (inclusive of fees and/or spread)",
		Fees:          "Fees and/or Spread",
		digitsOnlyFee: true,
	}
}

func columnsV3(_ *normalize.RowContext, row *normalize.RawRow) valueColumns {
	return valueColumns{
		Currency: row.Get("Spot Price Currency"),
		Spot:     "Spot Price at Transaction",
		Subtotal: "Subtotal",
		Total:    "Total (inclusive of fees and/or spread)",
		Fees:     "Fees and/or Spread",
	}
}

func columnsV2(_ *normalize.RowContext, row *normalize.RawRow) valueColumns {
	return valueColumns{
		Currency: row.Get("Spot Price Currency"),
		Spot:     "Spot Price at Transaction",
		Subtotal: "Subtotal",
		Total:    "Total (inclusive of fees)",
		Fees:     "Fees",
	}
}

func columnsV1(rc *normalize.RowContext, _ *normalize.RawRow) valueColumns {
	ccy := rc.Captures[4]
	return valueColumns{
		Currency: ccy,
		Spot:     ccy + " Spot Price at Transaction",
		Subtotal: ccy + " Subtotal",
		Total:    ccy + " Total (inclusive of fees)",
		Fees:     ccy + " Fees",
	}
}

var feeNoise = regexp.MustCompile(`[^-\d.]+`)

// values reads the money columns of a history row.
type values struct {
	rc   *normalize.RowContext
	row  *normalize.RawRow
	cols valueColumns
}

// native parses label in the nominal currency; an empty cell is invalid.
func (v values) native(label string) (decimal.NullDecimal, error) {
	return v.row.OptionalDecimal(label)
}

// nativeFee parses the fee column in the nominal currency.
func (v values) nativeFee() (decimal.NullDecimal, error) {
	if !v.cols.digitsOnlyFee {
		return v.native(v.cols.Fees)
	}
	cell := v.row.Get(v.cols.Fees)
	if normalize.HasDecimalComma(cell) {
		return decimal.NullDecimal{}, v.row.UnexpectedContent(v.cols.Fees, "not a number")
	}
	raw := feeNoise.ReplaceAllString(cell, "")
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, v.row.UnexpectedContent(v.cols.Fees, "not a number")
	}
	return decimal.NewNullDecimal(d), nil
}

// advisory converts a native value for display. A missing value or a failed
// conversion leaves it unset; only malformed cells are errors.
func (v values) advisory(amount decimal.NullDecimal) decimal.NullDecimal {
	if !amount.Valid {
		return decimal.NullDecimal{}
	}
	conv, err := v.rc.Convert(amount.Decimal, v.cols.Currency, v.row.Timestamp)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(conv)
}

// required converts a native value that the record cannot be built without.
func (v values) required(label string, amount decimal.NullDecimal) (decimal.Decimal, error) {
	if !amount.Valid {
		return decimal.Zero, v.row.UnexpectedContent(label, "value required")
	}
	conv, err := v.rc.Convert(amount.Decimal, v.cols.Currency, v.row.Timestamp)
	if err != nil {
		return decimal.Zero, &normalize.ConversionUnavailableError{
			Column:   label,
			Value:    amount.Decimal.String(),
			Currency: v.cols.Currency,
			At:       v.row.Timestamp,
			Err:      err,
		}
	}
	return conv, nil
}

// total is the advisory value of the total column.
func (v values) total() (decimal.NullDecimal, error) {
	t, err := v.native(v.cols.Total)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return v.advisory(abs(t)), nil
}

func parseHistory(cols columnsFunc) normalize.RowHandler {
	return func(rc *normalize.RowContext, row *normalize.RawRow) (models.Record, error) {
		if err := row.SetTimestamp("Timestamp"); err != nil {
			return models.Record{}, err
		}
		v := values{rc: rc, row: row, cols: cols(rc, row)}

		qty, err := row.Decimal("Quantity Transacted")
		if err != nil {
			return models.Record{}, err
		}
		qty = qty.Abs()
		asset := row.Get("Asset")

		switch txType := row.Get("Transaction Type"); txType {
		case "Deposit":
			return deposit(v, qty, asset)
		case "Withdrawal":
			return withdrawal(v, qty, asset)
		case "Exchange Deposit", "Pro Deposit":
			// moved out to the exchange wallet
			return normalize.NewRecord(models.KindWithdrawal, row.Timestamp, Wallet).Sell(qty, asset).Build()
		case "Exchange Withdrawal", "Pro Withdrawal":
			return normalize.NewRecord(models.KindDeposit, row.Timestamp, Wallet).Buy(qty, asset).Build()
		case "Receive":
			return receive(v, qty, asset)
		case "Send":
			return normalize.NewRecord(models.KindWithdrawal, row.Timestamp, Wallet).Sell(qty, asset).Build()
		case "Coinbase Earn", "Learning Reward":
			return valued(v, models.KindIncome, qty, asset)
		case "Rewards Income", "Reward Income", "Inflation Reward", "Staking Income":
			return valued(v, models.KindStaking, qty, asset)
		case "Subscription Rebates (24 Hours)":
			return valued(v, models.KindFeeRebate, qty, asset)
		case "Buy", "Advanced Trade Buy", "Advance Trade Buy":
			return buy(v, txType, qty, asset)
		case "Sell", "Advanced Trade Sell", "Advance Trade Sell":
			return sell(v, qty, asset)
		case "Convert":
			return convert(v, qty, asset)
		default:
			return models.Record{}, row.UnexpectedType("Transaction Type")
		}
	}
}

// deposit grosses the credited quantity up by the fee so the fee leg
// balances against the amount that arrived.
func deposit(v values, qty decimal.Decimal, asset string) (models.Record, error) {
	fee, err := v.nativeFee()
	if err != nil {
		return models.Record{}, err
	}
	fee = nonZero(abs(fee))
	if fee.Valid {
		qty = qty.Add(fee.Decimal)
	}
	return normalize.NewRecord(models.KindDeposit, v.row.Timestamp, Wallet).
		Buy(qty, asset).
		OptionalFee(fee, asset).
		Build()
}

func withdrawal(v values, qty decimal.Decimal, asset string) (models.Record, error) {
	fee, err := v.nativeFee()
	if err != nil {
		return models.Record{}, err
	}
	fee = nonZero(abs(fee))
	if fee.Valid {
		if fee.Decimal.GreaterThan(qty) {
			return models.Record{}, v.row.UnexpectedContent(v.cols.Fees, "fee exceeds quantity")
		}
		qty = qty.Sub(fee.Decimal)
	}
	return normalize.NewRecord(models.KindWithdrawal, v.row.Timestamp, Wallet).
		Sell(qty, asset).
		OptionalFee(fee, asset).
		Build()
}

func receive(v values, qty decimal.Decimal, asset string) (models.Record, error) {
	spot, err := v.native(v.cols.Spot)
	if err != nil {
		return models.Record{}, err
	}
	var value decimal.NullDecimal
	if spot.Valid {
		value = v.advisory(decimal.NewNullDecimal(spot.Decimal.Abs().Mul(qty)))
	}

	kind := models.KindDeposit
	notes := v.row.Get("Notes")
	switch {
	case strings.Contains(notes, "Coinbase Referral"):
		kind = models.KindReferral
	case strings.Contains(notes, "Coinbase Earn"), strings.Contains(notes, "Coinbase Rewards"):
		kind = models.KindIncome
	}
	return normalize.NewRecord(kind, v.row.Timestamp, Wallet).
		Buy(qty, asset).
		BuyValue(value).
		Build()
}

// valued builds a single buy-leg record valued at the row total.
func valued(v values, kind models.Kind, qty decimal.Decimal, asset string) (models.Record, error) {
	total, err := v.total()
	if err != nil {
		return models.Record{}, err
	}
	return normalize.NewRecord(kind, v.row.Timestamp, Wallet).
		Buy(qty, asset).
		BuyValue(total).
		Build()
}

// quoted checks the note of a buy or sell for the currency it was quoted in,
// flagging values that come from a different currency.
func quoted(v values) error {
	nc, ok := normalize.ExtractNoteCurrency(v.row.Get("Notes"))
	if !ok {
		return v.row.UnexpectedContent("Notes", "no quoted currency")
	}
	if nc.Quote != v.cols.Currency {
		v.rc.Warn(v.row, normalize.AdvisoryCurrencyMismatch, "Notes",
			fmt.Sprintf("%s amount/fee is not available so will not balance, using %s instead", nc.Quote, v.cols.Currency))
	}
	return nil
}

// tradeValues returns the subtotal and fee of a buy or sell in the
// reporting currency.
func tradeValues(v values) (decimal.Decimal, decimal.NullDecimal, error) {
	sub, err := v.native(v.cols.Subtotal)
	if err != nil {
		return decimal.Zero, decimal.NullDecimal{}, err
	}
	subtotal, err := v.required(v.cols.Subtotal, abs(sub))
	if err != nil {
		return decimal.Zero, decimal.NullDecimal{}, err
	}

	fee, err := v.nativeFee()
	if err != nil || !fee.Valid {
		return subtotal, decimal.NullDecimal{}, err
	}
	converted, err := v.required(v.cols.Fees, abs(fee))
	if err != nil {
		return decimal.Zero, decimal.NullDecimal{}, err
	}
	return subtotal, decimal.NewNullDecimal(converted), nil
}

func buy(v values, txType string, qty decimal.Decimal, asset string) (models.Record, error) {
	if err := quoted(v); err != nil {
		return models.Record{}, err
	}

	if v.rc.Policy.ZeroFeeBuyAsReferral && txType == "Buy" {
		fee, err := v.nativeFee()
		if err != nil {
			return models.Record{}, err
		}
		if fee.Valid && fee.Decimal.IsZero() {
			total, err := v.total()
			if err != nil {
				return models.Record{}, err
			}
			if total.Valid && !total.Decimal.IsPositive() {
				total = decimal.NullDecimal{}
			}
			return normalize.NewRecord(models.KindReferral, v.row.Timestamp, Wallet).
				Buy(qty, asset).
				BuyValue(total).
				Build()
		}
	}

	subtotal, fee, err := tradeValues(v)
	if err != nil {
		return models.Record{}, err
	}
	ccy := v.rc.Policy.ReportingCurrency
	return normalize.NewRecord(models.KindTrade, v.row.Timestamp, Wallet).
		Buy(qty, asset).
		Sell(subtotal, ccy).
		OptionalFee(fee, ccy).
		Build()
}

func sell(v values, qty decimal.Decimal, asset string) (models.Record, error) {
	if err := quoted(v); err != nil {
		return models.Record{}, err
	}
	subtotal, fee, err := tradeValues(v)
	if err != nil {
		return models.Record{}, err
	}
	ccy := v.rc.Policy.ReportingCurrency
	return normalize.NewRecord(models.KindTrade, v.row.Timestamp, Wallet).
		Buy(subtotal, ccy).
		Sell(qty, asset).
		OptionalFee(fee, ccy).
		Build()
}

func convert(v values, qty decimal.Decimal, asset string) (models.Record, error) {
	info, ok := normalize.ExtractConvertInfo(v.row.Get("Notes"))
	if !ok {
		return models.Record{}, v.row.UnexpectedContent("Notes", "not a conversion note")
	}
	to, err := info.ToQuantity()
	if err != nil {
		return models.Record{}, v.row.UnexpectedContent("Notes", "bad conversion amount")
	}
	total, err := v.total()
	if err != nil {
		return models.Record{}, err
	}
	return normalize.NewRecord(models.KindTrade, v.row.Timestamp, Wallet).
		Buy(to, info.ToAsset).
		BuyValue(total).
		Sell(qty, asset).
		SellValue(total).
		Build()
}

func abs(d decimal.NullDecimal) decimal.NullDecimal {
	if d.Valid {
		d.Decimal = d.Decimal.Abs()
	}
	return d
}

func nonZero(d decimal.NullDecimal) decimal.NullDecimal {
	if d.Valid && d.Decimal.IsZero() {
		return decimal.NullDecimal{}
	}
	return d
}
