package mmperf

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// MM PERFORMANCE TRACKER
// ═══════════════════════════════════════════════════════════════════════════════
//
// Records per-MM lifecycle events and folds them into rolling-window
// metrics. The window slides with the clock: window_start = now − days·24h.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Tracker computes rolling-window MM performance and eligibility.
type Tracker struct {
	repo       Repository
	windowDays uint32
}

// NewTracker builds a tracker with an explicit window; zero days falls back
// to the 7-day default.
func NewTracker(repo Repository, windowDays uint32) *Tracker {
	if windowDays == 0 {
		windowDays = domain.DefaultWindowDays
	}
	return &Tracker{repo: repo, windowDays: windowDays}
}

// WindowDays returns the configured rolling window length.
func (t *Tracker) WindowDays() uint32 { return t.windowDays }

func (t *Tracker) record(ctx context.Context, event domain.MmPerformanceEvent) error {
	if err := t.repo.RecordEvent(ctx, event); err != nil {
		log.Error().
			Err(err).
			Str("mm", event.MmID.String()).
			Str("kind", event.Kind.String()).
			Msg("Failed to record MM performance event")
		return err
	}
	return nil
}

// RecordRfqSent notes an RFQ dispatched to the MM.
func (t *Tracker) RecordRfqSent(ctx context.Context, mmID types.CounterpartyID) error {
	return t.record(ctx, domain.MmPerformanceEvent{
		MmID: mmID, Kind: domain.MmRfqSent, Timestamp: types.Now(),
	})
}

// RecordQuoteReceived notes a quote with its response time and rank.
func (t *Tracker) RecordQuoteReceived(ctx context.Context, mmID types.CounterpartyID, responseTimeMs, rank uint64) error {
	return t.record(ctx, domain.MmPerformanceEvent{
		MmID: mmID, Kind: domain.MmQuoteReceived,
		ResponseTimeMs: responseTimeMs, Rank: rank, Timestamp: types.Now(),
	})
}

// RecordTradeExecuted notes a completed trade with the MM.
func (t *Tracker) RecordTradeExecuted(ctx context.Context, mmID types.CounterpartyID) error {
	return t.record(ctx, domain.MmPerformanceEvent{
		MmID: mmID, Kind: domain.MmTradeExecuted, Timestamp: types.Now(),
	})
}

// RecordLastLookReject notes a last-look rejection by the MM.
func (t *Tracker) RecordLastLookReject(ctx context.Context, mmID types.CounterpartyID) error {
	return t.record(ctx, domain.MmPerformanceEvent{
		MmID: mmID, Kind: domain.MmLastLookReject, Timestamp: types.Now(),
	})
}

// RecordAcceptRequested notes an acceptance sent to the MM.
func (t *Tracker) RecordAcceptRequested(ctx context.Context, mmID types.CounterpartyID) error {
	return t.record(ctx, domain.MmPerformanceEvent{
		MmID: mmID, Kind: domain.MmAcceptRequested, Timestamp: types.Now(),
	})
}

func (t *Tracker) window() (types.Timestamp, types.Timestamp) {
	now := types.Now()
	return now.SubSecs(int64(t.windowDays) * 86400), now
}

// GetMetrics folds the MM's events over the current window.
func (t *Tracker) GetMetrics(ctx context.Context, mmID types.CounterpartyID) (domain.MmPerformanceMetrics, error) {
	from, to := t.window()
	events, err := t.repo.GetEvents(ctx, mmID, from, to)
	if err != nil {
		return domain.MmPerformanceMetrics{}, err
	}
	return domain.ComputeMmMetrics(mmID, events, from, to), nil
}

// GetAllMetrics computes metrics for every MM with history.
func (t *Tracker) GetAllMetrics(ctx context.Context) ([]domain.MmPerformanceMetrics, error) {
	ids, err := t.repo.GetAllMmIDs(ctx)
	if err != nil {
		return nil, err
	}

	from, to := t.window()
	out := make([]domain.MmPerformanceMetrics, 0, len(ids))
	for _, id := range ids {
		events, err := t.repo.GetEvents(ctx, id, from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.ComputeMmMetrics(id, events, from, to))
	}
	return out, nil
}

// GetEligibleMMs returns the MMs whose response rate meets the threshold.
// MMs with no RFQs in the window count as eligible.
func (t *Tracker) GetEligibleMMs(ctx context.Context, minResponseRatePct float64) ([]types.CounterpartyID, error) {
	metrics, err := t.GetAllMetrics(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]types.CounterpartyID, 0, len(metrics))
	for _, m := range metrics {
		if m.IsEligible(minResponseRatePct) {
			out = append(out, m.MmID)
		}
	}
	return out, nil
}

// TrimOldEvents drops events older than the rolling window.
func (t *Tracker) TrimOldEvents(ctx context.Context) (uint64, error) {
	cutoff := types.Now().SubSecs(int64(t.windowDays) * 86400)
	removed, err := t.repo.TrimBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Info().Uint64("removed", removed).Msg("Trimmed MM performance history")
	}
	return removed, nil
}
