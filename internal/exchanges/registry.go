// Package exchanges assembles the format registry of every supported source.
package exchanges

import (
	"github.com/guttosm/cryptonorm/internal/exchanges/coinbase"
	"github.com/guttosm/cryptonorm/internal/normalize"
)

// NewRegistry returns a registry with all known export layouts registered.
// Sources must not shadow each other's headers; within a source the
// registration order decides.
func NewRegistry() *normalize.Registry {
	reg := normalize.NewRegistry()
	coinbase.Register(reg)
	return reg
}
