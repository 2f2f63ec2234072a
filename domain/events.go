package domain

import (
	"github.com/shopspring/decimal"

	"github.com/Layer-V/otc-rfq/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DOMAIN EVENTS
// ═══════════════════════════════════════════════════════════════════════════════
//
// One event per state-changing operation, carrying every field needed to
// rebuild the aggregate from a blank slate. Events are immutable once
// emitted and JSON-encodable for the audit store.
//
// ═══════════════════════════════════════════════════════════════════════════════

// EventType groups event names into store categories.
type EventType string

const (
	EventTypeRfq        EventType = "RFQ"
	EventTypeQuote      EventType = "QUOTE"
	EventTypeTrade      EventType = "TRADE"
	EventTypeSettlement EventType = "SETTLEMENT"
	EventTypeCompliance EventType = "COMPLIANCE"
)

// Event is the contract every domain event satisfies.
type Event interface {
	EventID() types.EventID
	EventName() string
	EventType() EventType
	EventRfqID() (types.RfqID, bool)
	OccurredAt() types.Timestamp
}

// EventMeta carries the identity and instant shared by all events.
type EventMeta struct {
	ID types.EventID   `json:"event_id"`
	At types.Timestamp `json:"occurred_at"`
}

// NewEventMeta stamps a fresh event identity.
func NewEventMeta() EventMeta {
	return EventMeta{ID: types.NewEventID(), At: types.Now()}
}

func (m EventMeta) EventID() types.EventID      { return m.ID }
func (m EventMeta) OccurredAt() types.Timestamp { return m.At }

// ─────────────────────────────────────────────────────────────────────────────
// RFQ lifecycle events
// ─────────────────────────────────────────────────────────────────────────────

// RfqCreated records the birth of an RFQ.
type RfqCreated struct {
	EventMeta
	RfqID      types.RfqID          `json:"rfq_id"`
	ClientID   types.CounterpartyID `json:"client_id"`
	Instrument types.Instrument     `json:"instrument"`
	Side       types.OrderSide      `json:"side"`
	Quantity   types.Quantity       `json:"quantity"`
	ExpiresAt  types.Timestamp      `json:"expires_at"`
}

func (e RfqCreated) EventName() string               { return "RfqCreated" }
func (e RfqCreated) EventType() EventType            { return EventTypeRfq }
func (e RfqCreated) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// QuoteCollectionStarted records the start of venue fan-out.
type QuoteCollectionStarted struct {
	EventMeta
	RfqID         types.RfqID `json:"rfq_id"`
	VenuesQueried int         `json:"venues_queried"`
}

func (e QuoteCollectionStarted) EventName() string               { return "QuoteCollectionStarted" }
func (e QuoteCollectionStarted) EventType() EventType            { return EventTypeRfq }
func (e QuoteCollectionStarted) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// QuoteRequested records a request dispatched to one venue.
type QuoteRequested struct {
	EventMeta
	RfqID   types.RfqID   `json:"rfq_id"`
	VenueID types.VenueID `json:"venue_id"`
}

func (e QuoteRequested) EventName() string               { return "QuoteRequested" }
func (e QuoteRequested) EventType() EventType            { return EventTypeQuote }
func (e QuoteRequested) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// QuoteReceived records a quote returned by a venue.
type QuoteReceived struct {
	EventMeta
	RfqID          types.RfqID    `json:"rfq_id"`
	QuoteID        types.QuoteID  `json:"quote_id"`
	VenueID        types.VenueID  `json:"venue_id"`
	Price          types.Price    `json:"price"`
	Quantity       types.Quantity `json:"quantity"`
	ValidUntil     types.Timestamp `json:"valid_until"`
	ResponseTimeMs uint64         `json:"response_time_ms"`
}

func (e QuoteReceived) EventName() string               { return "QuoteReceived" }
func (e QuoteReceived) EventType() EventType            { return EventTypeQuote }
func (e QuoteReceived) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// QuoteRequestFailed records a venue failure during fan-out.
type QuoteRequestFailed struct {
	EventMeta
	RfqID   types.RfqID   `json:"rfq_id"`
	VenueID types.VenueID `json:"venue_id"`
	Reason  string        `json:"reason"`
}

func (e QuoteRequestFailed) EventName() string               { return "QuoteRequestFailed" }
func (e QuoteRequestFailed) EventType() EventType            { return EventTypeQuote }
func (e QuoteRequestFailed) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// QuoteCollectionCompleted summarizes an aggregation batch.
type QuoteCollectionCompleted struct {
	EventMeta
	RfqID           types.RfqID `json:"rfq_id"`
	TotalCollected  int         `json:"total_collected"`
	VenuesQueried   int         `json:"venues_queried"`
	VenuesResponded int         `json:"venues_responded"`
	FilteredCount   int         `json:"filtered_count"`
}

func (e QuoteCollectionCompleted) EventName() string               { return "QuoteCollectionCompleted" }
func (e QuoteCollectionCompleted) EventType() EventType            { return EventTypeQuote }
func (e QuoteCollectionCompleted) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// QuoteSelected records the client's quote choice.
type QuoteSelected struct {
	EventMeta
	RfqID   types.RfqID   `json:"rfq_id"`
	QuoteID types.QuoteID `json:"quote_id"`
	VenueID types.VenueID `json:"venue_id"`
	Price   types.Price   `json:"price"`
}

func (e QuoteSelected) EventName() string               { return "QuoteSelected" }
func (e QuoteSelected) EventType() EventType            { return EventTypeRfq }
func (e QuoteSelected) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// ExecutionStarted records the transition into execution.
type ExecutionStarted struct {
	EventMeta
	RfqID   types.RfqID   `json:"rfq_id"`
	QuoteID types.QuoteID `json:"quote_id"`
}

func (e ExecutionStarted) EventName() string               { return "ExecutionStarted" }
func (e ExecutionStarted) EventType() EventType            { return EventTypeRfq }
func (e ExecutionStarted) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// ExecutionFailed records a terminal execution failure.
type ExecutionFailed struct {
	EventMeta
	RfqID  types.RfqID `json:"rfq_id"`
	Reason string      `json:"reason"`
}

func (e ExecutionFailed) EventName() string               { return "ExecutionFailed" }
func (e ExecutionFailed) EventType() EventType            { return EventTypeRfq }
func (e ExecutionFailed) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// RfqCancelled records a client cancellation.
type RfqCancelled struct {
	EventMeta
	RfqID  types.RfqID `json:"rfq_id"`
	Reason string      `json:"reason,omitempty"`
}

func (e RfqCancelled) EventName() string               { return "RfqCancelled" }
func (e RfqCancelled) EventType() EventType            { return EventTypeRfq }
func (e RfqCancelled) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// RfqExpired records a deadline expiry.
type RfqExpired struct {
	EventMeta
	RfqID     types.RfqID     `json:"rfq_id"`
	ExpiredAt types.Timestamp `json:"expired_at"`
}

func (e RfqExpired) EventName() string               { return "RfqExpired" }
func (e RfqExpired) EventType() EventType            { return EventTypeRfq }
func (e RfqExpired) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// ─────────────────────────────────────────────────────────────────────────────
// Allocation events
// ─────────────────────────────────────────────────────────────────────────────

// MultiMmFillAllocated records the allocator's output for an RFQ.
type MultiMmFillAllocated struct {
	EventMeta
	RfqID         types.RfqID    `json:"rfq_id"`
	Allocations   []Allocation   `json:"allocations"`
	EffectiveFill types.Quantity `json:"effective_fill"`
	Mode          string         `json:"mode"`
	Strategy      string         `json:"strategy"`
}

func (e MultiMmFillAllocated) EventName() string               { return "MultiMmFillAllocated" }
func (e MultiMmFillAllocated) EventType() EventType            { return EventTypeTrade }
func (e MultiMmFillAllocated) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// AllocationExecuted records one leg completing at a venue.
type AllocationExecuted struct {
	EventMeta
	RfqID    types.RfqID    `json:"rfq_id"`
	TradeID  types.TradeID  `json:"trade_id"`
	VenueID  types.VenueID  `json:"venue_id"`
	QuoteID  types.QuoteID  `json:"quote_id"`
	Quantity types.Quantity `json:"quantity"`
	Price    types.Price    `json:"price"`
}

func (e AllocationExecuted) EventName() string               { return "AllocationExecuted" }
func (e AllocationExecuted) EventType() EventType            { return EventTypeTrade }
func (e AllocationExecuted) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// AllocationRolledBack records a previously executed leg being unwound after
// a sibling leg failed.
type AllocationRolledBack struct {
	EventMeta
	RfqID   types.RfqID   `json:"rfq_id"`
	VenueID types.VenueID `json:"venue_id"`
	QuoteID types.QuoteID `json:"quote_id"`
	Reason  string        `json:"reason"`
}

func (e AllocationRolledBack) EventName() string               { return "AllocationRolledBack" }
func (e AllocationRolledBack) EventType() EventType            { return EventTypeTrade }
func (e AllocationRolledBack) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// ─────────────────────────────────────────────────────────────────────────────
// Negotiation events
// ─────────────────────────────────────────────────────────────────────────────

// CounterQuoteSent records a counter submitted by the requester.
type CounterQuoteSent struct {
	EventMeta
	NegotiationID types.NegotiationID  `json:"negotiation_id"`
	RfqID         types.RfqID          `json:"rfq_id"`
	From          types.CounterpartyID `json:"from"`
	Price         types.Price          `json:"price"`
	Quantity      types.Quantity       `json:"quantity"`
	Round         uint8                `json:"round"`
}

func (e CounterQuoteSent) EventName() string               { return "CounterQuoteSent" }
func (e CounterQuoteSent) EventType() EventType            { return EventTypeQuote }
func (e CounterQuoteSent) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// CounterQuoteReceived records a counter submitted by the market maker.
type CounterQuoteReceived struct {
	EventMeta
	NegotiationID types.NegotiationID  `json:"negotiation_id"`
	RfqID         types.RfqID          `json:"rfq_id"`
	From          types.CounterpartyID `json:"from"`
	Price         types.Price          `json:"price"`
	Quantity      types.Quantity       `json:"quantity"`
	Round         uint8                `json:"round"`
}

func (e CounterQuoteReceived) EventName() string               { return "CounterQuoteReceived" }
func (e CounterQuoteReceived) EventType() EventType            { return EventTypeQuote }
func (e CounterQuoteReceived) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// NegotiationOutcome labels how a negotiation closed.
type NegotiationOutcome string

const (
	NegotiationOutcomeAccepted NegotiationOutcome = "ACCEPTED"
	NegotiationOutcomeRejected NegotiationOutcome = "REJECTED"
	NegotiationOutcomeExpired  NegotiationOutcome = "EXPIRED"
)

// NegotiationCompleted records the close of a negotiation.
type NegotiationCompleted struct {
	EventMeta
	NegotiationID types.NegotiationID `json:"negotiation_id"`
	RfqID         types.RfqID         `json:"rfq_id"`
	Outcome       NegotiationOutcome  `json:"outcome"`
	TotalRounds   int                 `json:"total_rounds"`
	FinalPrice    *types.Price        `json:"final_price,omitempty"`
}

func (e NegotiationCompleted) EventName() string               { return "NegotiationCompleted" }
func (e NegotiationCompleted) EventType() EventType            { return EventTypeQuote }
func (e NegotiationCompleted) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// ─────────────────────────────────────────────────────────────────────────────
// Trade / settlement events
// ─────────────────────────────────────────────────────────────────────────────

// TradeExecuted records a completed trade.
type TradeExecuted struct {
	EventMeta
	RfqID      types.RfqID    `json:"rfq_id"`
	TradeID    types.TradeID  `json:"trade_id"`
	VenueID    types.VenueID  `json:"venue_id"`
	Price      types.Price    `json:"price"`
	Quantity   types.Quantity `json:"quantity"`
	Notional   decimal.Decimal `json:"notional"`
}

func (e TradeExecuted) EventName() string               { return "TradeExecuted" }
func (e TradeExecuted) EventType() EventType            { return EventTypeTrade }
func (e TradeExecuted) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// SettlementInitiated records the start of settlement for a trade.
type SettlementInitiated struct {
	EventMeta
	RfqID      types.RfqID            `json:"rfq_id"`
	TradeID    types.TradeID          `json:"trade_id"`
	Settlement types.SettlementMethod `json:"settlement"`
}

func (e SettlementInitiated) EventName() string               { return "SettlementInitiated" }
func (e SettlementInitiated) EventType() EventType            { return EventTypeSettlement }
func (e SettlementInitiated) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// SettlementConfirmed records settlement completion.
type SettlementConfirmed struct {
	EventMeta
	RfqID   types.RfqID   `json:"rfq_id"`
	TradeID types.TradeID `json:"trade_id"`
	TxHash  string        `json:"tx_hash,omitempty"`
}

func (e SettlementConfirmed) EventName() string               { return "SettlementConfirmed" }
func (e SettlementConfirmed) EventType() EventType            { return EventTypeSettlement }
func (e SettlementConfirmed) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// SettlementFailed records a settlement failure.
type SettlementFailed struct {
	EventMeta
	RfqID   types.RfqID   `json:"rfq_id"`
	TradeID types.TradeID `json:"trade_id"`
	Reason  string        `json:"reason"`
}

func (e SettlementFailed) EventName() string               { return "SettlementFailed" }
func (e SettlementFailed) EventType() EventType            { return EventTypeSettlement }
func (e SettlementFailed) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// ─────────────────────────────────────────────────────────────────────────────
// Compliance events
// ─────────────────────────────────────────────────────────────────────────────

// ComplianceCheckPassed records a passing pre-trade check.
type ComplianceCheckPassed struct {
	EventMeta
	RfqID     types.RfqID          `json:"rfq_id"`
	Reference types.Price          `json:"reference"`
	Source    string               `json:"source"`
	Deviation decimal.Decimal      `json:"deviation"`
}

func (e ComplianceCheckPassed) EventName() string               { return "ComplianceCheckPassed" }
func (e ComplianceCheckPassed) EventType() EventType            { return EventTypeCompliance }
func (e ComplianceCheckPassed) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }

// ComplianceCheckFailed records a failing pre-trade check.
type ComplianceCheckFailed struct {
	EventMeta
	RfqID  types.RfqID `json:"rfq_id"`
	Reason string      `json:"reason"`
}

func (e ComplianceCheckFailed) EventName() string               { return "ComplianceCheckFailed" }
func (e ComplianceCheckFailed) EventType() EventType            { return EventTypeCompliance }
func (e ComplianceCheckFailed) EventRfqID() (types.RfqID, bool) { return e.RfqID, true }
