package core

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// EXPIRY SWEEPER
// ═══════════════════════════════════════════════════════════════════════════════
//
// Time drives expiry: RFQs whose deadline has passed are expired unless they
// are executing (an executing RFQ must reach Executed or Failed on its own),
// and negotiations expire when their latest counter's validity lapses.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Sweeper periodically expires overdue RFQs and negotiations.
type Sweeper struct {
	service  *Service
	interval time.Duration
	stopCh   chan struct{}
}

// NewSweeper builds a sweeper over the service.
func NewSweeper(service *Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sweeper{
		service:  service,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop.
func (w *Sweeper) Start() {
	go w.loop()
	log.Info().Dur("interval", w.interval).Msg("Expiry sweeper started")
}

// Stop halts the sweep loop.
func (w *Sweeper) Stop() {
	close(w.stopCh)
}

func (w *Sweeper) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.SweepOnce()
		}
	}
}

// SweepOnce runs a single expiry pass.
func (w *Sweeper) SweepOnce() (expiredRfqs, expiredNegotiations int) {
	s := w.service

	s.mu.RLock()
	var rfqIDs []types.RfqID
	for id, rfq := range s.rfqs {
		if rfq.IsActive() && rfq.State() != domain.RfqExecuting && rfq.IsExpired() {
			rfqIDs = append(rfqIDs, id)
		}
	}
	var negotiationIDs []types.NegotiationID
	for id, n := range s.negotiations {
		if n.IsActive() && n.LatestCounterExpired() {
			negotiationIDs = append(negotiationIDs, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range rfqIDs {
		if err := s.ExpireRfq(id); err == nil {
			expiredRfqs++
			log.Info().Str("rfq", id.String()).Msg("RFQ expired")
		}
	}
	for _, id := range negotiationIDs {
		if err := s.ExpireNegotiation(id); err == nil {
			expiredNegotiations++
		}
	}

	return expiredRfqs, expiredNegotiations
}
