package venue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Layer-V/otc-rfq/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// VENUE REGISTRY
// ═══════════════════════════════════════════════════════════════════════════════
//
// Process-wide, read-mostly set of venue adapters. Enable/disable and health
// updates are linearizable per venue under one lock; the aggregation engine
// only ever takes snapshots.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Config carries per-venue operational settings.
type Config struct {
	TimeoutMs             uint64
	MaxConcurrentRequests uint32
	UseTLS                bool
	Properties            map[string]string
}

// DefaultConfig returns conservative venue defaults.
func DefaultConfig() Config {
	return Config{
		TimeoutMs:             5000,
		MaxConcurrentRequests: 10,
		UseTLS:                true,
		Properties:            map[string]string{},
	}
}

// Metrics tracks request outcomes per venue.
type Metrics struct {
	TotalRequests      uint64
	SuccessfulRequests uint64
	FailedRequests     uint64
	totalLatencyMs     uint64
	LastRequestAt      *types.Timestamp
	LastSuccessAt      *types.Timestamp
	LastFailureAt      *types.Timestamp
}

// RecordRequest folds one request outcome into the metrics.
func (m *Metrics) RecordRequest(latencyMs uint64, success bool) {
	now := types.Now()
	m.TotalRequests++
	m.totalLatencyMs += latencyMs
	m.LastRequestAt = &now
	if success {
		m.SuccessfulRequests++
		m.LastSuccessAt = &now
	} else {
		m.FailedRequests++
		m.LastFailureAt = &now
	}
}

// AverageLatencyMs returns the mean request latency, if any requests exist.
func (m *Metrics) AverageLatencyMs() (uint64, bool) {
	if m.TotalRequests == 0 {
		return 0, false
	}
	return m.totalLatencyMs / m.TotalRequests, true
}

// SuccessRate returns the fraction of successful requests, if any exist.
func (m *Metrics) SuccessRate() (float64, bool) {
	if m.TotalRequests == 0 {
		return 0, false
	}
	return float64(m.SuccessfulRequests) / float64(m.TotalRequests), true
}

type registration struct {
	adapter   Adapter
	venueType types.VenueType
	config    Config
	enabled   bool
	health    Health
	metrics   Metrics
}

// Registry holds the process-wide venue set.
type Registry struct {
	mu     sync.RWMutex
	venues map[types.VenueID]*registration
	order  []types.VenueID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{venues: make(map[types.VenueID]*registration)}
}

// Register adds an adapter. Venues start enabled and healthy; the health
// poller downgrades them from there.
func (r *Registry) Register(adapter Adapter, venueType types.VenueType, config Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := adapter.VenueID()
	if _, exists := r.venues[id]; !exists {
		r.order = append(r.order, id)
	}
	r.venues[id] = &registration{
		adapter:   adapter,
		venueType: venueType,
		config:    config,
		enabled:   true,
		health:    HealthyVenue(id),
	}

	log.Info().
		Str("venue", id.String()).
		Str("type", venueType.String()).
		Uint64("timeout_ms", config.TimeoutMs).
		Msg("Venue registered")
}

// Enable marks the venue available for fan-out.
func (r *Registry) Enable(id types.VenueID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.venues[id]
	if !ok {
		return false
	}
	reg.enabled = true
	return true
}

// Disable removes the venue from fan-out without unregistering it.
func (r *Registry) Disable(id types.VenueID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.venues[id]
	if !ok {
		return false
	}
	reg.enabled = false
	log.Warn().Str("venue", id.String()).Msg("Venue disabled")
	return true
}

// UpdateHealth stores the latest health-check result for the venue.
func (r *Registry) UpdateHealth(health Health) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg, ok := r.venues[health.VenueID]; ok {
		reg.health = health
	}
}

// RecordRequest folds a request outcome into the venue's metrics.
func (r *Registry) RecordRequest(id types.VenueID, latency time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg, ok := r.venues[id]; ok {
		reg.metrics.RecordRequest(uint64(latency.Milliseconds()), success)
	}
}

// Get returns the adapter for a venue, if registered.
func (r *Registry) Get(id types.VenueID) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.venues[id]
	if !ok {
		return nil, false
	}
	return reg.adapter, true
}

// Available snapshots the adapters currently eligible for fan-out:
// enabled and operationally healthy, in registration order.
func (r *Registry) Available() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Adapter, 0, len(r.order))
	for _, id := range r.order {
		reg := r.venues[id]
		if reg.enabled && reg.health.IsOperational() {
			out = append(out, reg.adapter)
		}
	}
	return out
}

// HealthOf returns the stored health for a venue.
func (r *Registry) HealthOf(id types.VenueID) (Health, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.venues[id]
	if !ok {
		return Health{}, false
	}
	return reg.health, true
}

// MetricsOf returns a copy of the venue's request metrics.
func (r *Registry) MetricsOf(id types.VenueID) (Metrics, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.venues[id]
	if !ok {
		return Metrics{}, false
	}
	return reg.metrics, true
}

// Size returns the number of registered venues.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.venues)
}

// PollHealth runs one health-check sweep over all registered venues,
// updating stored health. Venues whose probe errors go Unhealthy.
func (r *Registry) PollHealth(ctx context.Context) {
	r.mu.RLock()
	adapters := make([]Adapter, 0, len(r.order))
	for _, id := range r.order {
		adapters = append(adapters, r.venues[id].adapter)
	}
	r.mu.RUnlock()

	for _, adapter := range adapters {
		health, err := adapter.HealthCheck(ctx)
		if err != nil {
			health = UnhealthyVenue(adapter.VenueID(), err.Error())
		}
		r.UpdateHealth(health)

		if !health.IsOperational() {
			log.Warn().
				Str("venue", adapter.VenueID().String()).
				Str("status", health.Status.String()).
				Str("message", health.Message).
				Msg("Venue not operational")
		}
	}
}
