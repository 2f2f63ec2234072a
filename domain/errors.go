package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Layer-V/otc-rfq/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ═══════════════════════════════════════════════════════════════════════════════
//
// Invariant violations reported synchronously by aggregate and service
// operations. Structured variants carry their context as fields so callers
// can match with errors.As; simple variants are sentinels for errors.Is.
//
// ═══════════════════════════════════════════════════════════════════════════════

var (
	ErrNoReferencePrice = errors.New("no reference price available")
	ErrQuoteNotFound    = errors.New("quote not found")
)

// InvalidQuantityError reports a zero, negative or otherwise unusable quantity.
type InvalidQuantityError struct {
	Reason string
}

func (e *InvalidQuantityError) Error() string {
	return "invalid quantity: " + e.Reason
}

// InvalidPriceError reports a non-positive or otherwise unusable price.
type InvalidPriceError struct {
	Reason string
}

func (e *InvalidPriceError) Error() string {
	return "invalid price: " + e.Reason
}

// QuoteExpiredError reports an operation against an expired quote or counter.
type QuoteExpiredError struct {
	Reason string
}

func (e *QuoteExpiredError) Error() string {
	return "quote expired: " + e.Reason
}

// InvalidStateTransitionError reports a forbidden RFQ state transition.
type InvalidStateTransitionError struct {
	From RfqState
	To   RfqState
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}

// InvalidNegotiationStateTransitionError reports a forbidden negotiation transition.
type InvalidNegotiationStateTransitionError struct {
	From NegotiationState
	To   NegotiationState
}

func (e *InvalidNegotiationStateTransitionError) Error() string {
	return fmt.Sprintf("invalid negotiation state transition: %s -> %s", e.From, e.To)
}

// MaxNegotiationRoundsReachedError reports a counter beyond the round budget.
type MaxNegotiationRoundsReachedError struct {
	MaxRounds uint8
}

func (e *MaxNegotiationRoundsReachedError) Error() string {
	return fmt.Sprintf("maximum negotiation rounds reached: %d", e.MaxRounds)
}

// NoPriceImprovementError reports a counter that does not improve the price.
type NoPriceImprovementError struct {
	Previous types.Price
	Proposed types.Price
}

func (e *NoPriceImprovementError) Error() string {
	return fmt.Sprintf("no price improvement: previous=%s proposed=%s", e.Previous, e.Proposed)
}

// PriceOutOfBoundsError reports a proposed price outside the tolerance band.
type PriceOutOfBoundsError struct {
	Proposed  types.Price
	Reference types.Price
	Deviation decimal.Decimal
	Tolerance decimal.Decimal
}

func (e *PriceOutOfBoundsError) Error() string {
	return fmt.Sprintf("price out of bounds: proposed=%s reference=%s deviation=%s tolerance=%s",
		e.Proposed, e.Reference, e.Deviation, e.Tolerance)
}

// InsufficientLiquidityError reports quoted liquidity below the requested size.
type InsufficientLiquidityError struct {
	Available types.Quantity
	Requested types.Quantity
}

func (e *InsufficientLiquidityError) Error() string {
	return fmt.Sprintf("insufficient liquidity: available=%s requested=%s", e.Available, e.Requested)
}

// MinQuantityNotMetError reports a fillable size below the MinQuantity floor.
type MinQuantityNotMetError struct {
	Filled  types.Quantity
	Minimum types.Quantity
}

func (e *MinQuantityNotMetError) Error() string {
	return fmt.Sprintf("minimum quantity not met: fillable=%s minimum=%s", e.Filled, e.Minimum)
}

// AllocationMismatchError reports an allocation sum that does not equal the fill.
type AllocationMismatchError struct {
	Allocated types.Quantity
	Target    types.Quantity
}

func (e *AllocationMismatchError) Error() string {
	return fmt.Sprintf("allocation mismatch: allocated=%s target=%s", e.Allocated, e.Target)
}

// ValidationError reports a generic domain rule violation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Reason
}
