package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/guttosm/cryptonorm/internal/normalize"
)

type lookup struct {
	rate decimal.Decimal
	err  error
}

// CachedConverter converts amounts through a RateSource and remembers every
// lookup, including misses. It lives for the processing of one file.
type CachedConverter struct {
	source    RateSource
	reporting string
	cache     *cache.Cache
}

// NewCachedConverter returns a converter into reporting backed by source.
func NewCachedConverter(source RateSource, reporting string) *CachedConverter {
	return &CachedConverter{
		source:    source,
		reporting: strings.ToUpper(reporting),
		// entries never expire, so no janitor
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// Convert implements normalize.Converter.
func (c *CachedConverter) Convert(ctx context.Context, amount decimal.Decimal, currency string, at time.Time) (decimal.Decimal, error) {
	ccy := strings.ToUpper(currency)
	if ccy == c.reporting {
		return amount, nil
	}

	key := ccy + "|" + at.UTC().Format(time.RFC3339Nano)
	if v, ok := c.cache.Get(key); ok {
		l := v.(lookup)
		if l.err != nil {
			return decimal.Zero, l.err
		}
		return amount.Mul(l.rate), nil
	}

	rate, err := c.source.Rate(ctx, ccy, at)
	if err != nil {
		err = fmt.Errorf("rate %s->%s: %w", ccy, c.reporting, err)
		// cancellation says nothing about the rate itself
		if ctx.Err() == nil {
			c.cache.Set(key, lookup{err: err}, cache.NoExpiration)
		}
		return decimal.Zero, err
	}
	c.cache.Set(key, lookup{rate: rate}, cache.NoExpiration)
	return amount.Mul(rate), nil
}

// Factory returns a constructor of fresh per-file converters, suitable for
// normalize.WithConverterFactory.
func Factory(source RateSource, reporting string) func() normalize.Converter {
	return func() normalize.Converter {
		return NewCachedConverter(source, reporting)
	}
}
