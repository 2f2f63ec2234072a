package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layer-V/otc-rfq/types"
)

// roundTrip encodes the event, decodes into a fresh value and compares the
// re-encoded form field-for-field.
func roundTrip[E Event](t *testing.T, event E) {
	t.Helper()

	encoded, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded E
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	reencoded, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(encoded), string(reencoded))

	assert.Equal(t, event.EventID(), decoded.EventID())
	assert.Equal(t, event.EventName(), decoded.EventName())
	assert.Equal(t, event.EventType(), decoded.EventType())
}

func TestEventRoundTrips(t *testing.T) {
	rfqID := types.NewRfqID()
	quoteID := types.NewQuoteID()
	tradeID := types.NewTradeID()
	negotiationID := types.NewNegotiationID()
	price := types.MustPrice("50000")
	qty := types.MustQuantity("1.5")
	instrument := types.NewInstrument(types.MustSymbol("BTC/USD"), types.CryptoSpot, types.DefaultSettlement())

	roundTrip(t, RfqCreated{EventMeta: NewEventMeta(), RfqID: rfqID, ClientID: "client-1", Instrument: instrument, Side: types.Buy, Quantity: qty, ExpiresAt: types.Now().AddSecs(300)})
	roundTrip(t, QuoteCollectionStarted{EventMeta: NewEventMeta(), RfqID: rfqID, VenuesQueried: 3})
	roundTrip(t, QuoteRequested{EventMeta: NewEventMeta(), RfqID: rfqID, VenueID: "venue-1"})
	roundTrip(t, QuoteReceived{EventMeta: NewEventMeta(), RfqID: rfqID, QuoteID: quoteID, VenueID: "venue-1", Price: price, Quantity: qty, ValidUntil: types.Now().AddSecs(60), ResponseTimeMs: 42})
	roundTrip(t, QuoteRequestFailed{EventMeta: NewEventMeta(), RfqID: rfqID, VenueID: "venue-2", Reason: "no liquidity"})
	roundTrip(t, QuoteCollectionCompleted{EventMeta: NewEventMeta(), RfqID: rfqID, TotalCollected: 3, VenuesQueried: 4, VenuesResponded: 3, FilteredCount: 1})
	roundTrip(t, QuoteSelected{EventMeta: NewEventMeta(), RfqID: rfqID, QuoteID: quoteID, VenueID: "venue-1", Price: price})
	roundTrip(t, ExecutionStarted{EventMeta: NewEventMeta(), RfqID: rfqID, QuoteID: quoteID})
	roundTrip(t, ExecutionFailed{EventMeta: NewEventMeta(), RfqID: rfqID, Reason: "venue down"})
	roundTrip(t, RfqCancelled{EventMeta: NewEventMeta(), RfqID: rfqID, Reason: "client request"})
	roundTrip(t, RfqExpired{EventMeta: NewEventMeta(), RfqID: rfqID, ExpiredAt: types.Now()})

	allocation := Allocation{VenueID: "venue-1", QuoteID: quoteID, Quantity: qty, Price: price}
	roundTrip(t, MultiMmFillAllocated{EventMeta: NewEventMeta(), RfqID: rfqID, Allocations: []Allocation{allocation}, EffectiveFill: qty, Mode: "BEST_EFFORT", Strategy: "BestPriceCascade"})
	roundTrip(t, AllocationExecuted{EventMeta: NewEventMeta(), RfqID: rfqID, TradeID: tradeID, VenueID: "venue-1", QuoteID: quoteID, Quantity: qty, Price: price})
	roundTrip(t, AllocationRolledBack{EventMeta: NewEventMeta(), RfqID: rfqID, VenueID: "venue-1", QuoteID: quoteID, Reason: "sibling leg failed"})

	roundTrip(t, CounterQuoteSent{EventMeta: NewEventMeta(), NegotiationID: negotiationID, RfqID: rfqID, From: "client-1", Price: price, Quantity: qty, Round: 1})
	roundTrip(t, CounterQuoteReceived{EventMeta: NewEventMeta(), NegotiationID: negotiationID, RfqID: rfqID, From: "mm-1", Price: price, Quantity: qty, Round: 2})

	final := types.MustPrice("48500")
	roundTrip(t, NegotiationCompleted{EventMeta: NewEventMeta(), NegotiationID: negotiationID, RfqID: rfqID, Outcome: NegotiationOutcomeAccepted, TotalRounds: 3, FinalPrice: &final})

	roundTrip(t, TradeExecuted{EventMeta: NewEventMeta(), RfqID: rfqID, TradeID: tradeID, VenueID: "venue-1", Price: price, Quantity: qty, Notional: decimal.RequireFromString("75000")})
	roundTrip(t, SettlementInitiated{EventMeta: NewEventMeta(), RfqID: rfqID, TradeID: tradeID, Settlement: types.SettleOnChain(types.Arbitrum)})
	roundTrip(t, SettlementConfirmed{EventMeta: NewEventMeta(), RfqID: rfqID, TradeID: tradeID, TxHash: "0xabc"})
	roundTrip(t, SettlementFailed{EventMeta: NewEventMeta(), RfqID: rfqID, TradeID: tradeID, Reason: "gas spike"})

	roundTrip(t, ComplianceCheckPassed{EventMeta: NewEventMeta(), RfqID: rfqID, Reference: price, Source: "CLOB_MID", Deviation: decimal.RequireFromString("0.01")})
	roundTrip(t, ComplianceCheckFailed{EventMeta: NewEventMeta(), RfqID: rfqID, Reason: "price out of bounds"})
}

func TestEventNamesAndTypes(t *testing.T) {
	rfqID := types.NewRfqID()

	cases := []struct {
		event Event
		name  string
		typ   EventType
	}{
		{RfqCreated{EventMeta: NewEventMeta(), RfqID: rfqID}, "RfqCreated", EventTypeRfq},
		{QuoteCollectionStarted{EventMeta: NewEventMeta(), RfqID: rfqID}, "QuoteCollectionStarted", EventTypeRfq},
		{QuoteRequested{EventMeta: NewEventMeta(), RfqID: rfqID}, "QuoteRequested", EventTypeQuote},
		{QuoteReceived{EventMeta: NewEventMeta(), RfqID: rfqID}, "QuoteReceived", EventTypeQuote},
		{QuoteRequestFailed{EventMeta: NewEventMeta(), RfqID: rfqID}, "QuoteRequestFailed", EventTypeQuote},
		{QuoteCollectionCompleted{EventMeta: NewEventMeta(), RfqID: rfqID}, "QuoteCollectionCompleted", EventTypeQuote},
		{QuoteSelected{EventMeta: NewEventMeta(), RfqID: rfqID}, "QuoteSelected", EventTypeRfq},
		{ExecutionStarted{EventMeta: NewEventMeta(), RfqID: rfqID}, "ExecutionStarted", EventTypeRfq},
		{ExecutionFailed{EventMeta: NewEventMeta(), RfqID: rfqID}, "ExecutionFailed", EventTypeRfq},
		{RfqCancelled{EventMeta: NewEventMeta(), RfqID: rfqID}, "RfqCancelled", EventTypeRfq},
		{RfqExpired{EventMeta: NewEventMeta(), RfqID: rfqID}, "RfqExpired", EventTypeRfq},
		{MultiMmFillAllocated{EventMeta: NewEventMeta(), RfqID: rfqID}, "MultiMmFillAllocated", EventTypeTrade},
		{AllocationExecuted{EventMeta: NewEventMeta(), RfqID: rfqID}, "AllocationExecuted", EventTypeTrade},
		{AllocationRolledBack{EventMeta: NewEventMeta(), RfqID: rfqID}, "AllocationRolledBack", EventTypeTrade},
		{CounterQuoteSent{EventMeta: NewEventMeta(), RfqID: rfqID}, "CounterQuoteSent", EventTypeQuote},
		{CounterQuoteReceived{EventMeta: NewEventMeta(), RfqID: rfqID}, "CounterQuoteReceived", EventTypeQuote},
		{NegotiationCompleted{EventMeta: NewEventMeta(), RfqID: rfqID}, "NegotiationCompleted", EventTypeQuote},
		{TradeExecuted{EventMeta: NewEventMeta(), RfqID: rfqID}, "TradeExecuted", EventTypeTrade},
		{SettlementInitiated{EventMeta: NewEventMeta(), RfqID: rfqID}, "SettlementInitiated", EventTypeSettlement},
		{SettlementConfirmed{EventMeta: NewEventMeta(), RfqID: rfqID}, "SettlementConfirmed", EventTypeSettlement},
		{SettlementFailed{EventMeta: NewEventMeta(), RfqID: rfqID}, "SettlementFailed", EventTypeSettlement},
		{ComplianceCheckPassed{EventMeta: NewEventMeta(), RfqID: rfqID}, "ComplianceCheckPassed", EventTypeCompliance},
		{ComplianceCheckFailed{EventMeta: NewEventMeta(), RfqID: rfqID}, "ComplianceCheckFailed", EventTypeCompliance},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.name, tc.event.EventName())
		assert.Equal(t, tc.typ, tc.event.EventType())

		id, ok := tc.event.EventRfqID()
		assert.True(t, ok)
		assert.Equal(t, rfqID, id)
	}
}
