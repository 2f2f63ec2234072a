package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/types"
)

func storedEvent(t *testing.T, rfqID types.RfqID, name string, eventType domain.EventType, atMs int64) StoredEvent {
	t.Helper()
	return StoredEvent{
		EventID:     types.NewEventID(),
		RfqID:       &rfqID,
		EventType:   eventType,
		EventName:   name,
		TimestampMs: atMs,
		Payload:     []byte(`{}`),
	}
}

func TestAppendAssignsPerRfqSequence(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()

	rfqA := types.NewRfqID()
	rfqB := types.NewRfqID()

	first, err := store.Append(ctx, storedEvent(t, rfqA, "RfqCreated", domain.EventTypeRfq, 1))
	require.NoError(t, err)
	second, err := store.Append(ctx, storedEvent(t, rfqA, "QuoteCollectionStarted", domain.EventTypeRfq, 2))
	require.NoError(t, err)
	other, err := store.Append(ctx, storedEvent(t, rfqB, "RfqCreated", domain.EventTypeRfq, 3))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.Sequence)
	assert.Equal(t, uint64(2), second.Sequence)
	assert.Equal(t, uint64(1), other.Sequence)

	next, err := store.NextSequence(ctx, rfqA)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), next)
}

func TestGetEventsFiltersByRfq(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()

	rfqA := types.NewRfqID()
	rfqB := types.NewRfqID()
	_, _ = store.Append(ctx, storedEvent(t, rfqA, "RfqCreated", domain.EventTypeRfq, 1))
	_, _ = store.Append(ctx, storedEvent(t, rfqB, "RfqCreated", domain.EventTypeRfq, 2))
	_, _ = store.Append(ctx, storedEvent(t, rfqA, "RfqCancelled", domain.EventTypeRfq, 3))

	events, err := store.GetEvents(ctx, rfqA)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "RfqCreated", events[0].EventName)
	assert.Equal(t, "RfqCancelled", events[1].EventName)
	assert.Equal(t, uint64(1), events[0].Sequence)
	assert.Equal(t, uint64(2), events[1].Sequence)
}

func TestGetEventsSince(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()
	rfqID := types.NewRfqID()

	_, _ = store.Append(ctx, storedEvent(t, rfqID, "old", domain.EventTypeRfq, 1000))
	_, _ = store.Append(ctx, storedEvent(t, rfqID, "boundary", domain.EventTypeRfq, 2000))
	_, _ = store.Append(ctx, storedEvent(t, rfqID, "new", domain.EventTypeRfq, 3000))

	events, err := store.GetEventsSince(ctx, types.FromUnixMillis(2000))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "boundary", events[0].EventName)
}

func TestGetEventsByType(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()
	rfqID := types.NewRfqID()

	_, _ = store.Append(ctx, storedEvent(t, rfqID, "RfqCreated", domain.EventTypeRfq, 1))
	_, _ = store.Append(ctx, storedEvent(t, rfqID, "QuoteReceived", domain.EventTypeQuote, 2))
	_, _ = store.Append(ctx, storedEvent(t, rfqID, "TradeExecuted", domain.EventTypeTrade, 3))

	events, err := store.GetEventsByType(ctx, domain.EventTypeQuote)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "QuoteReceived", events[0].EventName)
}

func TestToStoredEventCarriesPayload(t *testing.T) {
	rfqID := types.NewRfqID()
	event := domain.RfqCancelled{EventMeta: domain.NewEventMeta(), RfqID: rfqID, Reason: "client request"}

	stored, err := ToStoredEvent(event)
	require.NoError(t, err)

	assert.Equal(t, "RfqCancelled", stored.EventName)
	assert.Equal(t, domain.EventTypeRfq, stored.EventType)
	require.NotNil(t, stored.RfqID)
	assert.Equal(t, rfqID, *stored.RfqID)
	assert.Contains(t, string(stored.Payload), "client request")
}

func TestSinkAppendsToStore(t *testing.T) {
	store := NewMemoryEventStore()
	sink := NewSink(store)
	rfqID := types.NewRfqID()

	sink.Emit(domain.RfqCreated{EventMeta: domain.NewEventMeta(), RfqID: rfqID})
	sink.Emit(domain.RfqExpired{EventMeta: domain.NewEventMeta(), RfqID: rfqID, ExpiredAt: types.Now()})

	events, err := store.GetEvents(context.Background(), rfqID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(2), events[1].Sequence)
}
