package coinbase

import (
	"github.com/guttosm/cryptonorm/internal/domain/models"
	"github.com/guttosm/cryptonorm/internal/normalize"
)

// transferAssetColumn holds the crypto quantity; its label is the asset code.
const transferAssetColumn = 2

func headerTransfers() []normalize.ColumnMatcher {
	return []normalize.ColumnMatcher{
		normalize.Literal("Timestamp"),
		normalize.Literal("Type"),
		normalize.MustPattern(`^(\w+)$`, 1),
		normalize.Literal("Subtotal"),
		normalize.Literal("Fees"),
		normalize.Literal("Total"),
		normalize.Literal("Currency"),
		normalize.Literal("Price Per Coin"),
		normalize.Literal("Payment Method"),
		normalize.Literal("ID"),
		normalize.Literal("Share"),
	}
}

// parseTransfers handles the legacy transfers report, where fiat values are
// given in the Currency column and the crypto amount sits under a column
// named after the asset.
func parseTransfers(rc *normalize.RowContext, row *normalize.RawRow) (models.Record, error) {
	if err := row.SetTimestamp("Timestamp"); err != nil {
		return models.Record{}, err
	}
	ccy := row.Get("Currency")
	fee, err := row.OptionalDecimal("Fees")
	if err != nil {
		return models.Record{}, err
	}
	fee = abs(fee)

	switch row.Get("Type") {
	case "Deposit":
		total, err := row.Decimal("Total")
		if err != nil {
			return models.Record{}, err
		}
		return normalize.NewRecord(models.KindDeposit, row.Timestamp, Wallet).
			Buy(total.Abs(), ccy).
			OptionalFee(fee, ccy).
			Build()
	case "Withdrawal":
		total, err := row.Decimal("Total")
		if err != nil {
			return models.Record{}, err
		}
		return normalize.NewRecord(models.KindWithdrawal, row.Timestamp, Wallet).
			Sell(total.Abs(), ccy).
			OptionalFee(fee, ccy).
			Build()
	case "Buy", "Sell":
		asset := rc.Captures[transferAssetColumn]
		qty, err := row.Decimal(row.Label(transferAssetColumn))
		if err != nil {
			return models.Record{}, err
		}
		subtotal, err := row.Decimal("Subtotal")
		if err != nil {
			return models.Record{}, err
		}
		b := normalize.NewRecord(models.KindTrade, row.Timestamp, Wallet)
		if row.Get("Type") == "Buy" {
			b.Buy(qty.Abs(), asset).Sell(subtotal.Abs(), ccy)
		} else {
			b.Buy(subtotal.Abs(), ccy).Sell(qty.Abs(), asset)
		}
		return b.OptionalFee(fee, ccy).Build()
	default:
		return models.Record{}, row.UnexpectedType("Type")
	}
}
