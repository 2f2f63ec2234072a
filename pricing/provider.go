package pricing

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Layer-V/otc-rfq/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// REFERENCE PRICE PROVIDERS
// ═══════════════════════════════════════════════════════════════════════════════
//
// Ordered fallback chain over reference price sources:
//
//   CLOB mid → Theoretical → Chainlink index
//
// A provider that has no price for the instrument returns nil without error;
// a transient failure is logged and the chain moves on. Only a fully
// exhausted chain yields no price.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Reference is a reference price and where it came from.
type Reference struct {
	Price  types.Price
	Source types.ReferencePriceSource
}

// Provider fetches a reference price for an instrument. A nil Reference with
// nil error means the provider has no price for the instrument; errors are
// reserved for infrastructure failures.
type Provider interface {
	GetReference(ctx context.Context, instrument types.Instrument) (*Reference, error)
}

// FallbackProvider tries an ordered list of providers and returns the first
// price found.
type FallbackProvider struct {
	providers []Provider
}

// NewFallbackProvider builds a chain; providers are tried in the order given.
func NewFallbackProvider(providers ...Provider) *FallbackProvider {
	return &FallbackProvider{providers: providers}
}

// GetReference implements Provider.
func (f *FallbackProvider) GetReference(ctx context.Context, instrument types.Instrument) (*Reference, error) {
	for _, p := range f.providers {
		ref, err := p.GetReference(ctx, instrument)
		if err != nil {
			log.Warn().
				Err(err).
				Str("symbol", instrument.Symbol.String()).
				Msg("Reference price provider failed, trying next")
			continue
		}
		if ref != nil {
			return ref, nil
		}
	}
	return nil, nil
}

// StaticProvider serves prices from a fixed table under one source label.
// Used for theoretical model outputs pushed in by an upstream pricer, and in
// tests.
type StaticProvider struct {
	Source types.ReferencePriceSource
	Prices map[types.Symbol]types.Price
}

// NewTheoreticalProvider returns a static provider labeled as the
// theoretical source.
func NewTheoreticalProvider(prices map[types.Symbol]types.Price) *StaticProvider {
	return &StaticProvider{Source: types.Theoretical, Prices: prices}
}

// GetReference implements Provider.
func (s *StaticProvider) GetReference(_ context.Context, instrument types.Instrument) (*Reference, error) {
	price, ok := s.Prices[instrument.Symbol]
	if !ok {
		return nil, nil
	}
	return &Reference{Price: price, Source: s.Source}, nil
}

// SetPrice updates the table entry for a symbol.
func (s *StaticProvider) SetPrice(symbol types.Symbol, price types.Price) {
	if s.Prices == nil {
		s.Prices = make(map[types.Symbol]types.Price)
	}
	s.Prices[symbol] = price
}
