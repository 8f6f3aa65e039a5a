package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// amountExpr matches an amount with optional grouping commas, e.g. "2,000",
// "1.25" or ".5". Currency symbols are matched outside the capture.
const amountExpr = `(?:[\d,]*\.\d+|[\d,]+)`

var (
	convertNote  = regexp.MustCompile(`^Converted [£€$]?(` + amountExpr + `) (\w+) to [£€$]?(` + amountExpr + `) (\w+) *$`)
	currencyNote = regexp.MustCompile(`^.+for [£€$]?` + amountExpr + ` (\w+)(?: on )?(\w+-\w+)?.*$`)
)

// ConvertInfo is the content of a "Converted <amount> <asset> to <amount>
// <asset>" note. Amounts are kept exactly as written.
type ConvertInfo struct {
	FromAmount string
	FromAsset  string
	ToAmount   string
	ToAsset    string
}

// ToQuantity parses the destination amount, dropping grouping separators.
func (c ConvertInfo) ToQuantity() (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(c.ToAmount, ",", ""))
}

// FromQuantity parses the source amount, dropping grouping separators.
func (c ConvertInfo) FromQuantity() (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(c.FromAmount, ",", ""))
}

// ExtractConvertInfo parses a conversion note. It never fails; ok is false
// when notes is not a complete conversion phrase.
func ExtractConvertInfo(notes string) (info ConvertInfo, ok bool) {
	m := convertNote.FindStringSubmatch(notes)
	if m == nil {
		return ConvertInfo{}, false
	}
	return ConvertInfo{FromAmount: m[1], FromAsset: m[2], ToAmount: m[3], ToAsset: m[4]}, true
}

// NoteCurrency is the currency a buy or sell was quoted in.
//
// Fields:
//   - Currency: code following the amount ("... for 500.00 USD").
//   - Quote:    effective quote currency: the quote half of a trailing
//     "on BASE-QUOTE" pair when present, otherwise Currency.
type NoteCurrency struct {
	Currency string
	Quote    string
}

// ExtractNoteCurrency parses a buy/sell note of the shape
// "... for <symbol?><amount> <CCY>( on BASE-QUOTE)?". It never fails; ok is
// false when the phrase is absent.
func ExtractNoteCurrency(notes string) (nc NoteCurrency, ok bool) {
	m := currencyNote.FindStringSubmatch(notes)
	if m == nil {
		return NoteCurrency{}, false
	}
	nc = NoteCurrency{Currency: m[1], Quote: m[1]}
	if pair := m[2]; pair != "" {
		nc.Quote = pair[strings.Index(pair, "-")+1:]
	}
	return nc, true
}
