package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Layer-V/otc-rfq/types"
)

// Allocation is one leg of a multi-MM fill: a slice of the target quantity
// assigned to a specific quote.
type Allocation struct {
	VenueID  types.VenueID  `json:"venue_id"`
	QuoteID  types.QuoteID  `json:"quote_id"`
	Quantity types.Quantity `json:"quantity"`
	Price    types.Price    `json:"price"`
}

// NewAllocation validates and builds an allocation leg.
func NewAllocation(venueID types.VenueID, quoteID types.QuoteID, quantity types.Quantity, price types.Price) (Allocation, error) {
	if !quantity.IsPositive() {
		return Allocation{}, &InvalidQuantityError{Reason: "allocation quantity must be positive"}
	}
	if !price.IsPositive() {
		return Allocation{}, &InvalidPriceError{Reason: "allocation price must be positive"}
	}
	return Allocation{VenueID: venueID, QuoteID: quoteID, Quantity: quantity, Price: price}, nil
}

// Notional returns price·quantity under checked multiplication.
func (a Allocation) Notional() (decimal.Decimal, error) {
	return a.Price.SafeMulQty(a.Quantity)
}

func (a Allocation) String() string {
	return fmt.Sprintf("Allocation[venue=%s qty=%s price=%s]", a.VenueID, a.Quantity, a.Price)
}
