package types

import (
	"errors"

	"github.com/google/uuid"
)

// ═══════════════════════════════════════════════════════════════════════════════
// IDENTIFIERS
// ═══════════════════════════════════════════════════════════════════════════════
//
// Entity identifiers are UUID v4. Venue and counterparty identifiers are
// opaque case-sensitive strings assigned by configuration.
//
// ═══════════════════════════════════════════════════════════════════════════════

// RfqID identifies an RFQ aggregate.
type RfqID struct{ uuid.UUID }

// QuoteID identifies a quote.
type QuoteID struct{ uuid.UUID }

// TradeID identifies an executed trade.
type TradeID struct{ uuid.UUID }

// EventID identifies a stored domain event.
type EventID struct{ uuid.UUID }

// NegotiationID identifies a negotiation aggregate.
type NegotiationID struct{ uuid.UUID }

// NewRfqID returns a random RFQ identifier.
func NewRfqID() RfqID { return RfqID{uuid.New()} }

// NewQuoteID returns a random quote identifier.
func NewQuoteID() QuoteID { return QuoteID{uuid.New()} }

// NewTradeID returns a random trade identifier.
func NewTradeID() TradeID { return TradeID{uuid.New()} }

// NewEventID returns a random event identifier.
func NewEventID() EventID { return EventID{uuid.New()} }

// NewNegotiationID returns a random negotiation identifier.
func NewNegotiationID() NegotiationID { return NegotiationID{uuid.New()} }

// ParseRfqID parses a UUID string into an RfqID.
func ParseRfqID(s string) (RfqID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return RfqID{}, err
	}
	return RfqID{u}, nil
}

// ParseQuoteID parses a UUID string into a QuoteID.
func ParseQuoteID(s string) (QuoteID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return QuoteID{}, err
	}
	return QuoteID{u}, nil
}

// ParseEventID parses a UUID string into an EventID.
func ParseEventID(s string) (EventID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return EventID{}, err
	}
	return EventID{u}, nil
}

// VenueID is an opaque, case-sensitive venue identifier.
type VenueID string

// CounterpartyID is an opaque, case-sensitive counterparty identifier.
type CounterpartyID string

var errEmptyID = errors.New("identifier must not be empty")

// NewVenueID validates and returns a venue identifier.
func NewVenueID(s string) (VenueID, error) {
	if s == "" {
		return "", errEmptyID
	}
	return VenueID(s), nil
}

// NewCounterpartyID validates and returns a counterparty identifier.
func NewCounterpartyID(s string) (CounterpartyID, error) {
	if s == "" {
		return "", errEmptyID
	}
	return CounterpartyID(s), nil
}

func (v VenueID) String() string        { return string(v) }
func (c CounterpartyID) String() string { return string(c) }
