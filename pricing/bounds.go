package pricing

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/types"
)

// BoundsResult is a passing price-bounds validation: the reference used, its
// source, and the observed fractional deviation.
type BoundsResult struct {
	Reference types.Price
	Source    types.ReferencePriceSource
	Deviation decimal.Decimal
}

// BoundsValidator checks proposed block-trade prices against a reference
// under the liquidity-tiered tolerance bands.
type BoundsValidator struct {
	config   types.PriceBoundsConfig
	provider Provider
}

// NewBoundsValidator builds a validator over a (usually chained) provider.
func NewBoundsValidator(config types.PriceBoundsConfig, provider Provider) *BoundsValidator {
	return &BoundsValidator{config: config, provider: provider}
}

// Config returns the tolerance configuration.
func (v *BoundsValidator) Config() types.PriceBoundsConfig { return v.config }

// Validate checks the proposed price for the instrument under the tier's
// tolerance. deviation = |proposed − reference| / reference; a deviation
// exactly equal to the tolerance passes.
func (v *BoundsValidator) Validate(ctx context.Context, instrument types.Instrument, proposed types.Price, tier types.LiquidityClassification) (*BoundsResult, error) {
	ref, err := v.provider.GetReference(ctx, instrument)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, domain.ErrNoReferencePrice
	}

	deviation, err := computeDeviation(proposed, ref.Price)
	if err != nil {
		return nil, err
	}

	tolerance := v.config.ToleranceFor(tier)
	if deviation.GreaterThan(tolerance) {
		log.Warn().
			Str("symbol", instrument.Symbol.String()).
			Str("proposed", proposed.String()).
			Str("reference", ref.Price.String()).
			Str("deviation", deviation.String()).
			Str("tolerance", tolerance.String()).
			Msg("Price out of bounds")
		return nil, &domain.PriceOutOfBoundsError{
			Proposed:  proposed,
			Reference: ref.Price,
			Deviation: deviation,
			Tolerance: tolerance,
		}
	}

	return &BoundsResult{Reference: ref.Price, Source: ref.Source, Deviation: deviation}, nil
}

// computeDeviation returns |proposed − reference| / reference, checked.
func computeDeviation(proposed, reference types.Price) (decimal.Decimal, error) {
	if reference.IsZero() {
		return decimal.Zero, types.ErrDivisionByZero
	}
	diff, err := types.SafeSub(proposed.Decimal(), reference.Decimal())
	if err != nil {
		return decimal.Zero, err
	}
	return types.SafeDiv(diff.Abs(), reference.Decimal())
}
