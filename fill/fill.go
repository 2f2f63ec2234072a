package fill

import (
	"github.com/shopspring/decimal"

	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/ranking"
	"github.com/Layer-V/otc-rfq/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// MULTI-MM FILL ALLOCATION
// ═══════════════════════════════════════════════════════════════════════════════
//
// Distributes a target quantity across ranked quotes under the fill-mode
// semantics. The scaffolding (validation, availability, mode enforcement,
// exact-sum post-check) is shared; strategies differ only in how they
// distribute the effective fill.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Strategy allocates a target quantity across ranked quotes.
type Strategy interface {
	// Allocate distributes targetQty over the ranked quotes (best first) under
	// the given mode. The sum of returned allocation quantities equals the
	// effective fill exactly.
	Allocate(quotes []ranking.RankedQuote, targetQty types.Quantity, mode types.SizeNegotiationMode, side types.OrderSide) ([]domain.Allocation, error)

	// Name returns the strategy identifier.
	Name() string
}

func validatePreconditions(quotes []ranking.RankedQuote, targetQty types.Quantity) error {
	if !targetQty.IsPositive() {
		return &domain.InvalidQuantityError{Reason: "target quantity must be positive"}
	}
	if len(quotes) == 0 {
		return &domain.InvalidQuantityError{Reason: "no quotes available for allocation"}
	}
	return nil
}

func totalQuotedQuantity(quotes []ranking.RankedQuote) (types.Quantity, error) {
	total := types.ZeroQuantity()
	for _, rq := range quotes {
		var err error
		total, err = total.SafeAdd(rq.Quote.Quantity)
		if err != nil {
			return types.Quantity{}, err
		}
	}
	return total, nil
}

// enforceMode applies the fill-mode constraints and returns the effective
// quantity to distribute.
func enforceMode(mode types.SizeNegotiationMode, targetQty, availableQty types.Quantity) (types.Quantity, error) {
	switch mode.Kind {
	case types.AllOrNothing, types.FillOrKill:
		if availableQty.LessThan(targetQty) {
			return types.Quantity{}, &domain.InsufficientLiquidityError{Available: availableQty, Requested: targetQty}
		}
		return targetQty, nil
	case types.MinQuantity:
		fillable := targetQty.Min(availableQty)
		if fillable.LessThan(mode.Min) {
			return types.Quantity{}, &domain.MinQuantityNotMetError{Filled: fillable, Minimum: mode.Min}
		}
		return fillable, nil
	default: // BestEffort
		if availableQty.IsZero() {
			return types.Quantity{}, &domain.InsufficientLiquidityError{Available: availableQty, Requested: targetQty}
		}
		return targetQty.Min(availableQty), nil
	}
}

func validateAllocationSum(allocations []domain.Allocation, expected types.Quantity) error {
	total := types.ZeroQuantity()
	for _, a := range allocations {
		var err error
		total, err = total.SafeAdd(a.Quantity)
		if err != nil {
			return err
		}
	}
	if !total.Equal(expected) {
		return &domain.AllocationMismatchError{Allocated: total, Target: expected}
	}
	return nil
}

// BestPriceCascade walks the ranked list best-first, taking as much as each
// quote offers until the effective fill is reached.
type BestPriceCascade struct{}

// NewBestPriceCascade returns the cascade strategy.
func NewBestPriceCascade() BestPriceCascade { return BestPriceCascade{} }

// Allocate implements Strategy.
func (BestPriceCascade) Allocate(quotes []ranking.RankedQuote, targetQty types.Quantity, mode types.SizeNegotiationMode, side types.OrderSide) ([]domain.Allocation, error) {
	if err := validatePreconditions(quotes, targetQty); err != nil {
		return nil, err
	}
	available, err := totalQuotedQuantity(quotes)
	if err != nil {
		return nil, err
	}
	effective, err := enforceMode(mode, targetQty, available)
	if err != nil {
		return nil, err
	}

	remaining := effective
	allocations := make([]domain.Allocation, 0, len(quotes))
	for _, rq := range quotes {
		if remaining.IsZero() {
			break
		}
		take := remaining.Min(rq.Quote.Quantity)
		if take.IsZero() {
			continue
		}
		alloc, err := domain.NewAllocation(rq.Quote.VenueID, rq.Quote.ID, take, rq.Quote.Price)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, alloc)
		remaining, err = remaining.SafeSub(take)
		if err != nil {
			return nil, err
		}
	}

	if err := validateAllocationSum(allocations, effective); err != nil {
		return nil, err
	}
	return allocations, nil
}

// Name implements Strategy.
func (BestPriceCascade) Name() string { return "BestPriceCascade" }

// ProRata distributes the effective fill proportionally to each quote's
// quantity. Shares round down; the rounding residue is folded into the last
// nonzero allocation so the sum is exact.
type ProRata struct {
	// SharePrecision is the decimal precision shares are truncated to before
	// residue correction.
	SharePrecision int32
}

// NewProRata returns the pro-rata strategy with 8-decimal share precision.
func NewProRata() ProRata { return ProRata{SharePrecision: 8} }

// Allocate implements Strategy.
func (p ProRata) Allocate(quotes []ranking.RankedQuote, targetQty types.Quantity, mode types.SizeNegotiationMode, side types.OrderSide) ([]domain.Allocation, error) {
	if err := validatePreconditions(quotes, targetQty); err != nil {
		return nil, err
	}
	available, err := totalQuotedQuantity(quotes)
	if err != nil {
		return nil, err
	}
	effective, err := enforceMode(mode, targetQty, available)
	if err != nil {
		return nil, err
	}

	type share struct {
		rq  ranking.RankedQuote
		qty decimal.Decimal
	}

	shares := make([]share, 0, len(quotes))
	distributed := decimal.Zero
	for _, rq := range quotes {
		numerator, err := types.SafeMul(effective.Decimal(), rq.Quote.Quantity.Decimal())
		if err != nil {
			return nil, err
		}
		raw, err := types.SafeDiv(numerator, available.Decimal())
		if err != nil {
			return nil, err
		}
		qty := raw.Truncate(p.SharePrecision)
		// Never allocate more than the quote offers.
		if qty.GreaterThan(rq.Quote.Quantity.Decimal()) {
			qty = rq.Quote.Quantity.Decimal()
		}
		shares = append(shares, share{rq: rq, qty: qty})
		distributed, err = types.SafeAdd(distributed, qty)
		if err != nil {
			return nil, err
		}
	}

	// Fold the rounding residue into the last nonzero share.
	residue, err := types.SafeSub(effective.Decimal(), distributed)
	if err != nil {
		return nil, err
	}
	if !residue.IsZero() {
		for i := len(shares) - 1; i >= 0; i-- {
			if shares[i].qty.IsZero() {
				continue
			}
			corrected, err := types.SafeAdd(shares[i].qty, residue)
			if err != nil {
				return nil, err
			}
			shares[i].qty = corrected
			break
		}
	}

	allocations := make([]domain.Allocation, 0, len(shares))
	for _, s := range shares {
		if s.qty.IsZero() || s.qty.IsNegative() {
			continue
		}
		qty, err := types.NewQuantity(s.qty)
		if err != nil {
			return nil, err
		}
		alloc, err := domain.NewAllocation(s.rq.Quote.VenueID, s.rq.Quote.ID, qty, s.rq.Quote.Price)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, alloc)
	}

	if err := validateAllocationSum(allocations, effective); err != nil {
		return nil, err
	}
	return allocations, nil
}

// Name implements Strategy.
func (ProRata) Name() string { return "ProRata" }
