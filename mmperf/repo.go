package mmperf

import (
	"context"
	"sync"

	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/types"
)

// Repository is the append-only MM performance event store contract.
// Implementations must allow concurrent RecordEvent/GetEvents; TrimBefore
// may run concurrently with reads.
type Repository interface {
	// RecordEvent appends one event.
	RecordEvent(ctx context.Context, event domain.MmPerformanceEvent) error

	// GetEvents returns the MM's events with timestamps in [from, to].
	GetEvents(ctx context.Context, mmID types.CounterpartyID, from, to types.Timestamp) ([]domain.MmPerformanceEvent, error)

	// GetAllMmIDs returns every MM with recorded events.
	GetAllMmIDs(ctx context.Context) ([]types.CounterpartyID, error)

	// TrimBefore removes events strictly older than the cutoff and returns
	// how many were removed.
	TrimBefore(ctx context.Context, cutoff types.Timestamp) (uint64, error)
}

// MemoryRepository is the in-memory Repository used by default and in tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	events map[types.CounterpartyID][]domain.MmPerformanceEvent
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{events: make(map[types.CounterpartyID][]domain.MmPerformanceEvent)}
}

// RecordEvent implements Repository.
func (r *MemoryRepository) RecordEvent(_ context.Context, event domain.MmPerformanceEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.MmID] = append(r.events[event.MmID], event)
	return nil
}

// GetEvents implements Repository.
func (r *MemoryRepository) GetEvents(_ context.Context, mmID types.CounterpartyID, from, to types.Timestamp) ([]domain.MmPerformanceEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.MmPerformanceEvent
	for _, e := range r.events[mmID] {
		if e.InWindow(from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetAllMmIDs implements Repository.
func (r *MemoryRepository) GetAllMmIDs(_ context.Context) ([]types.CounterpartyID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.CounterpartyID, 0, len(r.events))
	for id := range r.events {
		out = append(out, id)
	}
	return out, nil
}

// TrimBefore implements Repository.
func (r *MemoryRepository) TrimBefore(_ context.Context, cutoff types.Timestamp) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed uint64
	for id, events := range r.events {
		kept := events[:0]
		for _, e := range events {
			if e.Timestamp.Before(cutoff) {
				removed++
			} else {
				kept = append(kept, e)
			}
		}
		r.events[id] = kept
	}
	return removed, nil
}
