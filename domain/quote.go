package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Layer-V/otc-rfq/types"
)

// Quote is a firm price/quantity offer from a venue, immutable after creation.
type Quote struct {
	ID         types.QuoteID   `json:"id"`
	RfqID      types.RfqID     `json:"rfq_id"`
	VenueID    types.VenueID   `json:"venue_id"`
	Price      types.Price     `json:"price"`
	Quantity   types.Quantity  `json:"quantity"`
	Commission decimal.Decimal `json:"commission"`
	CreatedAt  types.Timestamp `json:"created_at"`
	ValidUntil types.Timestamp `json:"valid_until"`
}

// NewQuote validates and builds a quote: price and quantity must be positive,
// commission non-negative, and the validity window must extend past creation.
func NewQuote(rfqID types.RfqID, venueID types.VenueID, price types.Price, quantity types.Quantity, validUntil types.Timestamp) (*Quote, error) {
	return NewQuoteWithCommission(rfqID, venueID, price, quantity, decimal.Zero, validUntil)
}

// NewQuoteWithCommission builds a quote carrying an explicit commission.
func NewQuoteWithCommission(rfqID types.RfqID, venueID types.VenueID, price types.Price, quantity types.Quantity, commission decimal.Decimal, validUntil types.Timestamp) (*Quote, error) {
	if !price.IsPositive() {
		return nil, &InvalidPriceError{Reason: "quote price must be positive"}
	}
	if !quantity.IsPositive() {
		return nil, &InvalidQuantityError{Reason: "quote quantity must be positive"}
	}
	if commission.IsNegative() {
		return nil, &ValidationError{Reason: "commission must not be negative"}
	}
	now := types.Now()
	if !validUntil.After(now) {
		return nil, &QuoteExpiredError{Reason: "valid_until must be in the future"}
	}

	return &Quote{
		ID:         types.NewQuoteID(),
		RfqID:      rfqID,
		VenueID:    venueID,
		Price:      price,
		Quantity:   quantity,
		Commission: commission,
		CreatedAt:  now,
		ValidUntil: validUntil,
	}, nil
}

// IsExpired reports whether the quote's validity window has passed.
func (q *Quote) IsExpired() bool {
	return !q.ValidUntil.After(types.Now())
}

// IsExpiredAt reports expiry relative to an explicit instant.
func (q *Quote) IsExpiredAt(now types.Timestamp) bool {
	return !q.ValidUntil.After(now)
}

// TimeToExpiry returns how long the quote remains valid, zero if already expired.
func (q *Quote) TimeToExpiry() time.Duration {
	return types.Now().DurationUntil(q.ValidUntil)
}

// TotalCost returns price·quantity + commission under checked arithmetic.
func (q *Quote) TotalCost() (decimal.Decimal, error) {
	notional, err := q.Price.SafeMulQty(q.Quantity)
	if err != nil {
		return decimal.Zero, err
	}
	return types.SafeAdd(notional, q.Commission)
}

func (q *Quote) String() string {
	return fmt.Sprintf("Quote[%s] venue=%s price=%s qty=%s", q.ID, q.VenueID, q.Price, q.Quantity)
}
