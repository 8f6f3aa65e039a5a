// Package coinbase classifies the transaction exports of the Coinbase
// exchange: four generations of the transaction history report, the legacy
// transfers report and the per-wallet transactions report.
package coinbase

import (
	"github.com/guttosm/cryptonorm/internal/normalize"
)

const (
	// Wallet is the wallet label given to every Coinbase record.
	Wallet = "Coinbase"

	grouping = "Coinbase"
	category = "exchange"
)

var (
	headerV4 = []string{
		"Timestamp",
		"Transaction Type",
		"Asset",
		"Quantity Transacted",
		"Price Currency",
		"Price at Transaction",
		"Subtotal",
		"Total (inclusive of fees and/or spread)",
		"Fees and/or Spread",
		"Notes",
	}

	headerV3 = []string{
		"Timestamp",
		"Transaction Type",
		"Asset",
		"Quantity Transacted",
		"Spot Price Currency",
		"Spot Price at Transaction",
		"Subtotal",
		"Total (inclusive of fees and/or spread)",
		"Fees and/or Spread",
		"Notes",
	}

	headerV2 = []string{
		"Timestamp",
		"Transaction Type",
		"Asset",
		"Quantity Transacted",
		"Spot Price Currency",
		"Spot Price at Transaction",
		"Subtotal",
		"Total (inclusive of fees)",
		"Fees",
		"Notes",
	}
)

// Register adds every Coinbase layout to reg. Newer layouts come first;
// the v4 report with a leading ID column must precede the one without.
func Register(reg *normalize.Registry) {
	reg.MustRegister(format("Coinbase", append([]normalize.ColumnMatcher{normalize.Literal("ID")}, literals(headerV4)...), parseHistory(columnsV4)))
	reg.MustRegister(format("Coinbase", literals(headerV4), parseHistory(columnsV4)))
	reg.MustRegister(format("Coinbase", literals(headerV3), parseHistory(columnsV3)))
	reg.MustRegister(format("Coinbase", literals(headerV2), parseHistory(columnsV2)))
	reg.MustRegister(format("Coinbase", headerV1(), parseHistory(columnsV1)))
	reg.MustRegister(format("Coinbase Transfers", headerTransfers(), parseTransfers))
	reg.MustRegister(format("Coinbase Transactions", headerTransactions(), parseTransactions))
}

func format(source string, cols []normalize.ColumnMatcher, h normalize.RowHandler) normalize.Format {
	return normalize.Format{
		SourceName: source,
		Grouping:   grouping,
		Category:   category,
		Columns:    cols,
		Handler:    h,
	}
}

// headerV1 is the oldest report: value columns are prefixed with the
// account currency, captured at positions 4 to 7.
func headerV1() []normalize.ColumnMatcher {
	return []normalize.ColumnMatcher{
		normalize.Literal("Timestamp"),
		normalize.Literal("Transaction Type"),
		normalize.Literal("Asset"),
		normalize.Literal("Quantity Transacted"),
		normalize.MustPattern(`^(\w{3}) Spot Price at Transaction$`, 1),
		normalize.MustPattern(`^(\w{3}) Subtotal$`, 1),
		normalize.MustPattern(`^(\w{3}) Total \(inclusive of fees\)$`, 1),
		normalize.MustPattern(`^(\w{3}) Fees$`, 1),
		normalize.Literal("Notes"),
	}
}

func literals(labels []string) []normalize.ColumnMatcher {
	out := make([]normalize.ColumnMatcher, len(labels))
	for i, l := range labels {
		out[i] = normalize.Literal(l)
	}
	return out
}
