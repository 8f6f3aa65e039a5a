package coinbase

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/guttosm/cryptonorm/internal/domain/models"
	"github.com/guttosm/cryptonorm/internal/normalize"
)

// hashColumn is the blockchain hash of an on-chain movement. The report has
// several unlabelled columns, so it is addressed by position.
const hashColumn = 21

func headerTransactions() []normalize.ColumnMatcher {
	return []normalize.ColumnMatcher{
		normalize.Literal("Timestamp"),
		normalize.Literal("Balance"),
		normalize.Literal("Amount"),
		normalize.Literal("Currency"),
		normalize.Literal("To"),
		normalize.Literal("Notes"),
		normalize.Literal("Instantly Exchanged"),
		normalize.Literal("Transfer Total"),
		normalize.Literal("Transfer Total Currency"),
		normalize.Literal("Transfer Fee"),
		normalize.Literal("Transfer Fee Currency"),
		normalize.Literal("Transfer Payment Method"),
		normalize.Literal("Transfer ID"),
		normalize.Literal("Order Price"),
		normalize.Literal("Order Currency"),
		normalize.Wildcard,
		normalize.Literal("Order Tracking Code"),
		normalize.Literal("Order Custom Parameter"),
		normalize.Literal("Order Paid Out"),
		normalize.Literal("Recurring Payment ID"),
		normalize.Wildcard,
		normalize.Wildcard,
	}
}

// parseTransactions handles the per-wallet transactions report. Rows that
// carry neither a hash nor a transfer id are internal movements; when they
// have notes they are already covered by the history report.
func parseTransactions(_ *normalize.RowContext, row *normalize.RawRow) (models.Record, error) {
	if err := row.SetTimestamp("Timestamp"); err != nil {
		return models.Record{}, err
	}
	amount, err := row.Decimal("Amount")
	if err != nil {
		return models.Record{}, err
	}
	ccy := row.Get("Currency")
	ts := row.Timestamp

	switch {
	case row.Field(hashColumn) != "":
		return bySign(models.KindDeposit, models.KindWithdrawal, amount, ccy, ts)
	case row.Get("Transfer ID") != "":
		return transfer(row, amount, ccy)
	case row.Get("Notes") != "" && ccy == "BTC":
		if amount.IsNegative() {
			return models.Record{}, row.UnexpectedContent("Amount", "referral cannot be an outflow")
		}
		return normalize.NewRecord(models.KindReferral, ts, Wallet).Buy(amount, ccy).Build()
	case row.Get("Notes") != "":
		b := normalize.NewUnmapped(models.UnmappedDuplicate, ts, Wallet)
		if amount.IsNegative() {
			b.Sell(amount.Abs(), ccy)
		} else {
			b.Buy(amount, ccy)
		}
		return b.Build()
	default:
		return bySign(models.KindDeposit, models.KindWithdrawal, amount, ccy, ts)
	}
}

func transfer(row *normalize.RawRow, amount decimal.Decimal, ccy string) (models.Record, error) {
	total, err := row.Decimal("Transfer Total")
	if err != nil {
		return models.Record{}, err
	}
	total = total.Abs()
	fee, err := row.OptionalDecimal("Transfer Fee")
	if err != nil {
		return models.Record{}, err
	}
	fee = abs(fee)
	totalCcy := row.Get("Transfer Total Currency")
	feeCcy := row.Get("Transfer Fee Currency")
	if feeCcy == "" {
		feeCcy = totalCcy
	}
	ts := row.Timestamp

	if ccy == totalCcy {
		if amount.IsNegative() {
			return normalize.NewRecord(models.KindWithdrawal, ts, Wallet).
				Sell(total, totalCcy).
				OptionalFee(fee, feeCcy).
				Build()
		}
		return normalize.NewRecord(models.KindDeposit, ts, Wallet).
			Buy(total, totalCcy).
			OptionalFee(fee, feeCcy).
			Build()
	}

	feeQty := fee.Decimal // zero when absent
	b := normalize.NewRecord(models.KindTrade, ts, Wallet)
	if amount.IsNegative() {
		b.Buy(total.Add(feeQty), totalCcy).Sell(amount.Abs(), ccy)
	} else {
		sold := total.Sub(feeQty)
		if sold.IsNegative() {
			return models.Record{}, row.UnexpectedContent("Transfer Fee", "fee exceeds transfer total")
		}
		b.Buy(amount, ccy).Sell(sold, totalCcy)
	}
	return b.OptionalFee(fee, feeCcy).Build()
}

func bySign(in, out models.Kind, amount decimal.Decimal, asset string, ts time.Time) (models.Record, error) {
	if amount.IsNegative() {
		return normalize.NewRecord(out, ts, Wallet).Sell(amount.Abs(), asset).Build()
	}
	return normalize.NewRecord(in, ts, Wallet).Buy(amount, asset).Build()
}
