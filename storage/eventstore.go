package storage

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// EVENT STORE
// ═══════════════════════════════════════════════════════════════════════════════
//
// Append-only audit log of domain events. Each RFQ gets its own
// monotonically increasing sequence, allocated atomically; no ordering is
// claimed across RFQs.
//
// ═══════════════════════════════════════════════════════════════════════════════

// StoredEvent is the persisted form of a domain event.
type StoredEvent struct {
	EventID     types.EventID    `json:"event_id"`
	RfqID       *types.RfqID     `json:"rfq_id,omitempty"`
	EventType   domain.EventType `json:"event_type"`
	EventName   string           `json:"event_name"`
	TimestampMs int64            `json:"timestamp_ms"`
	Payload     json.RawMessage  `json:"payload"`
	Sequence    uint64           `json:"sequence"`
}

// EventStore is the append-only event log contract.
type EventStore interface {
	// Append stores one event; Sequence is assigned by the store.
	Append(ctx context.Context, event StoredEvent) (StoredEvent, error)

	// GetEvents returns an RFQ's events in sequence order.
	GetEvents(ctx context.Context, rfqID types.RfqID) ([]StoredEvent, error)

	// GetEventsSince returns events at or after the timestamp, any RFQ.
	GetEventsSince(ctx context.Context, since types.Timestamp) ([]StoredEvent, error)

	// GetEventsByType returns events of one type, any RFQ.
	GetEventsByType(ctx context.Context, eventType domain.EventType) ([]StoredEvent, error)

	// NextSequence returns the sequence the next append for the RFQ will get.
	NextSequence(ctx context.Context, rfqID types.RfqID) (uint64, error)
}

// ToStoredEvent flattens a domain event into its persisted form.
func ToStoredEvent(event domain.Event) (StoredEvent, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return StoredEvent{}, err
	}

	stored := StoredEvent{
		EventID:     event.EventID(),
		EventType:   event.EventType(),
		EventName:   event.EventName(),
		TimestampMs: event.OccurredAt().UnixMillis(),
		Payload:     payload,
	}
	if rfqID, ok := event.EventRfqID(); ok {
		stored.RfqID = &rfqID
	}
	return stored, nil
}

// MemoryEventStore is the in-memory EventStore used by default and in tests.
type MemoryEventStore struct {
	mu        sync.RWMutex
	events    []StoredEvent
	sequences map[types.RfqID]uint64
}

// NewMemoryEventStore returns an empty in-memory store.
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{sequences: make(map[types.RfqID]uint64)}
}

// Append implements EventStore.
func (s *MemoryEventStore) Append(_ context.Context, event StoredEvent) (StoredEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.RfqID != nil {
		s.sequences[*event.RfqID]++
		event.Sequence = s.sequences[*event.RfqID]
	}
	s.events = append(s.events, event)
	return event, nil
}

// GetEvents implements EventStore.
func (s *MemoryEventStore) GetEvents(_ context.Context, rfqID types.RfqID) ([]StoredEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []StoredEvent
	for _, e := range s.events {
		if e.RfqID != nil && *e.RfqID == rfqID {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetEventsSince implements EventStore.
func (s *MemoryEventStore) GetEventsSince(_ context.Context, since types.Timestamp) ([]StoredEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sinceMs := since.UnixMillis()
	var out []StoredEvent
	for _, e := range s.events {
		if e.TimestampMs >= sinceMs {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetEventsByType implements EventStore.
func (s *MemoryEventStore) GetEventsByType(_ context.Context, eventType domain.EventType) ([]StoredEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []StoredEvent
	for _, e := range s.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out, nil
}

// NextSequence implements EventStore.
func (s *MemoryEventStore) NextSequence(_ context.Context, rfqID types.RfqID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sequences[rfqID] + 1, nil
}

// Sink adapts an EventStore into the fire-and-forget sink consumed by the
// aggregation engine and orchestrator. Store failures are logged, never
// propagated: audit writes must not fail trading.
type Sink struct {
	store EventStore
}

// NewSink wraps a store.
func NewSink(store EventStore) *Sink { return &Sink{store: store} }

// Emit implements the event sink contract.
func (s *Sink) Emit(event domain.Event) {
	stored, err := ToStoredEvent(event)
	if err != nil {
		log.Error().Err(err).Str("event", event.EventName()).Msg("Failed to encode event")
		return
	}
	if _, err := s.store.Append(context.Background(), stored); err != nil {
		log.Error().Err(err).Str("event", event.EventName()).Msg("Failed to append event")
	}
}
