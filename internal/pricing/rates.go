// Package pricing values fiat amounts in the reporting currency.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guttosm/cryptonorm/internal/logger"
)

// ErrRateNotFound is returned when no rate is known for a currency on or
// before the requested day.
var ErrRateNotFound = errors.New("exchange rate not found")

// RateSource returns the value of one unit of currency in the reporting
// currency at a point in time.
type RateSource interface {
	Rate(ctx context.Context, currency string, at time.Time) (decimal.Decimal, error)
}

type dailyRate struct {
	day  time.Time
	rate decimal.Decimal
}

// Table is an in-memory daily rate table. A lookup returns the most recent
// rate on or before the requested day.
type Table struct {
	Base  string
	rates map[string][]dailyRate
}

type tableFile struct {
	Base  string `json:"base"`
	Rates []struct {
		Date     string          `json:"date"`
		Currency string          `json:"currency"`
		Rate     decimal.Decimal `json:"rate"`
	} `json:"rates"`
}

// LoadTable reads a JSON rate table from path.
func LoadTable(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate table %s: %w", path, err)
	}
	t, err := ParseTable(raw)
	if err != nil {
		return nil, fmt.Errorf("parse rate table %s: %w", path, err)
	}
	logger.L().Info().Str("path", path).Str("base", t.Base).Int("currencies", len(t.rates)).Msg("rate table loaded")
	return t, nil
}

// ParseTable decodes a table of the shape
// {"base":"GBP","rates":[{"date":"2024-01-02","currency":"USD","rate":"0.79"}]}.
func ParseTable(raw []byte) (*Table, error) {
	var f tableFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if f.Base == "" {
		return nil, errors.New("base currency is required")
	}

	t := &Table{Base: strings.ToUpper(f.Base), rates: map[string][]dailyRate{}}
	for i, r := range f.Rates {
		day, err := time.Parse(time.DateOnly, r.Date)
		if err != nil {
			return nil, fmt.Errorf("rate %d: bad date %q", i, r.Date)
		}
		if !r.Rate.IsPositive() {
			return nil, fmt.Errorf("rate %d: rate must be positive", i)
		}
		ccy := strings.ToUpper(r.Currency)
		t.rates[ccy] = append(t.rates[ccy], dailyRate{day: day, rate: r.Rate})
	}
	for _, rs := range t.rates {
		sort.Slice(rs, func(i, j int) bool { return rs[i].day.Before(rs[j].day) })
	}
	return t, nil
}

// Rate implements RateSource.
func (t *Table) Rate(_ context.Context, currency string, at time.Time) (decimal.Decimal, error) {
	ccy := strings.ToUpper(currency)
	if ccy == t.Base {
		return decimal.NewFromInt(1), nil
	}
	rs := t.rates[ccy]
	day := at.UTC().Truncate(24 * time.Hour)
	// first entry after day; the one before it is the answer
	i := sort.Search(len(rs), func(i int) bool { return rs[i].day.After(day) })
	if i == 0 {
		return decimal.Zero, fmt.Errorf("%w: %s on %s", ErrRateNotFound, ccy, day.Format(time.DateOnly))
	}
	return rs[i-1].rate, nil
}
