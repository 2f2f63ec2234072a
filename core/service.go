package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Layer-V/otc-rfq/aggregation"
	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/fill"
	"github.com/Layer-V/otc-rfq/mmperf"
	"github.com/Layer-V/otc-rfq/pricing"
	"github.com/Layer-V/otc-rfq/ranking"
	"github.com/Layer-V/otc-rfq/types"
	"github.com/Layer-V/otc-rfq/venue"
)

// ═══════════════════════════════════════════════════════════════════════════════
// RFQ SERVICE - Central orchestrator
// ═══════════════════════════════════════════════════════════════════════════════
//
// Flow:
//   Create → Collect (fan-out) → Select (bounds check) → Execute (allocate,
//   per-leg venue execution, rollback on partial failure) → Executed
//
// Every state change goes through the aggregate FSM and lands in the event
// store; MM performance events are recorded along the way. Aggregates are
// operated under one service lock: no intra-aggregate concurrency.
//
// ═══════════════════════════════════════════════════════════════════════════════

// EventSink receives domain events for audit.
type EventSink interface {
	Emit(event domain.Event)
}

// Config carries orchestrator settings.
type Config struct {
	// ExecutionTimeout caps each execute-trade venue call.
	ExecutionTimeout time.Duration
	// MaxExecutionRetries bounds retries of retryable venue failures per leg.
	MaxExecutionRetries int
	// LiquidityTier classifies instruments for the price-bounds check.
	LiquidityTier func(types.Instrument) types.LiquidityClassification
}

// DefaultConfig returns orchestrator defaults: 10s execution timeout, two
// retries, everything treated as liquid.
func DefaultConfig() Config {
	return Config{
		ExecutionTimeout:    10 * time.Second,
		MaxExecutionRetries: 2,
		LiquidityTier: func(types.Instrument) types.LiquidityClassification {
			return types.Liquid
		},
	}
}

// Service drives RFQs through their lifecycle.
type Service struct {
	mu sync.RWMutex

	rfqs         map[types.RfqID]*domain.Rfq
	negotiations map[types.NegotiationID]*domain.Negotiation

	registry     *venue.Registry
	aggregator   *aggregation.Engine
	bounds       *pricing.BoundsValidator
	rankStrategy ranking.Strategy
	fillStrategy fill.Strategy
	tracker      *mmperf.Tracker
	events       EventSink
	config       Config
}

// NewService wires the orchestrator.
func NewService(
	registry *venue.Registry,
	aggregator *aggregation.Engine,
	bounds *pricing.BoundsValidator,
	rankStrategy ranking.Strategy,
	fillStrategy fill.Strategy,
	tracker *mmperf.Tracker,
	events EventSink,
	config Config,
) *Service {
	if config.LiquidityTier == nil {
		config.LiquidityTier = DefaultConfig().LiquidityTier
	}
	return &Service{
		rfqs:         make(map[types.RfqID]*domain.Rfq),
		negotiations: make(map[types.NegotiationID]*domain.Negotiation),
		registry:     registry,
		aggregator:   aggregator,
		bounds:       bounds,
		rankStrategy: rankStrategy,
		fillStrategy: fillStrategy,
		tracker:      tracker,
		events:       events,
		config:       config,
	}
}

func (s *Service) emit(event domain.Event) {
	if s.events != nil {
		s.events.Emit(event)
	}
}

// GetRfq returns the aggregate for an id.
func (s *Service) GetRfq(id types.RfqID) (*domain.Rfq, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rfq, ok := s.rfqs[id]
	return rfq, ok
}

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle operations
// ─────────────────────────────────────────────────────────────────────────────

// CreateRfq opens a new RFQ.
func (s *Service) CreateRfq(clientID types.CounterpartyID, instrument types.Instrument, side types.OrderSide, quantity types.Quantity, expiresAt types.Timestamp) (*domain.Rfq, error) {
	rfq, err := domain.NewRfq(clientID, instrument, side, quantity, expiresAt)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.rfqs[rfq.ID()] = rfq
	s.mu.Unlock()

	s.emit(domain.RfqCreated{
		EventMeta:  domain.NewEventMeta(),
		RfqID:      rfq.ID(),
		ClientID:   clientID,
		Instrument: instrument,
		Side:       side,
		Quantity:   quantity,
		ExpiresAt:  expiresAt,
	})

	log.Info().
		Str("rfq", rfq.ID().String()).
		Str("client", clientID.String()).
		Str("side", side.String()).
		Str("qty", quantity.String()).
		Str("symbol", instrument.Symbol.String()).
		Msg("RFQ created")

	return rfq, nil
}

// CollectQuotes fans the RFQ out to every available venue and attaches the
// ranked survivors. Aggregation failures drive the RFQ to Failed.
func (s *Service) CollectQuotes(ctx context.Context, rfqID types.RfqID) (*aggregation.Result, error) {
	s.mu.Lock()
	rfq, ok := s.rfqs[rfqID]
	if !ok {
		s.mu.Unlock()
		return nil, domain.ErrQuoteNotFound
	}
	if err := rfq.StartQuoteCollection(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	venues := s.registry.Available()
	s.emit(domain.QuoteCollectionStarted{
		EventMeta:     domain.NewEventMeta(),
		RfqID:         rfqID,
		VenuesQueried: len(venues),
	})
	for _, adapter := range venues {
		_ = s.tracker.RecordRfqSent(ctx, types.CounterpartyID(adapter.VenueID()))
	}

	// No aggregate lock is held while venue I/O is outstanding.
	result, err := s.aggregator.CollectAndRank(ctx, rfq)
	if err != nil {
		s.failRfq(rfqID, fmt.Sprintf("quote collection failed: %v", err))
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rq := range result.RankedQuotes {
		if err := rfq.ReceiveQuote(rq.Quote); err != nil {
			log.Warn().
				Err(err).
				Str("rfq", rfqID.String()).
				Str("quote", rq.Quote.ID.String()).
				Msg("Dropping quote the aggregate refused")
			continue
		}
		_ = s.tracker.RecordQuoteReceived(context.Background(),
			types.CounterpartyID(rq.Quote.VenueID), 0, uint64(rq.Rank))
	}

	if rfq.QuoteCount() == 0 {
		// Every ranked quote was refused (expired in the gap, wrong RFQ).
		reason := "no acceptable quotes after aggregation"
		if err := rfq.MarkFailed(reason); err == nil {
			s.emit(domain.ExecutionFailed{EventMeta: domain.NewEventMeta(), RfqID: rfqID, Reason: reason})
		}
		return nil, &aggregation.InsufficientQuotesError{Collected: 0, Required: 1}
	}

	return result, nil
}

// SelectQuote validates the chosen quote's price against the reference band
// and records the selection. A failed bounds check leaves the RFQ in
// QuotesReceived so the client can pick another quote.
func (s *Service) SelectQuote(ctx context.Context, rfqID types.RfqID, quoteID types.QuoteID) error {
	s.mu.RLock()
	rfq, ok := s.rfqs[rfqID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrQuoteNotFound
	}

	var quote *domain.Quote
	for _, q := range rfq.Quotes() {
		if q.ID == quoteID {
			quote = q
			break
		}
	}
	if quote == nil {
		return domain.ErrQuoteNotFound
	}

	tier := s.config.LiquidityTier(rfq.Instrument())
	result, err := s.bounds.Validate(ctx, rfq.Instrument(), quote.Price, tier)
	if err != nil {
		var oob *domain.PriceOutOfBoundsError
		if errors.As(err, &oob) || errors.Is(err, domain.ErrNoReferencePrice) {
			s.mu.Lock()
			rfq.SetComplianceResult(domain.ComplianceFailed(err.Error()))
			s.mu.Unlock()
			s.emit(domain.ComplianceCheckFailed{
				EventMeta: domain.NewEventMeta(),
				RfqID:     rfqID,
				Reason:    err.Error(),
			})
		}
		return err
	}

	s.mu.Lock()
	if err := rfq.SelectQuote(quoteID); err != nil {
		s.mu.Unlock()
		return err
	}
	rfq.SetComplianceResult(domain.CompliancePassed())
	s.mu.Unlock()

	s.emit(domain.ComplianceCheckPassed{
		EventMeta: domain.NewEventMeta(),
		RfqID:     rfqID,
		Reference: result.Reference,
		Source:    result.Source.String(),
		Deviation: result.Deviation,
	})
	s.emit(domain.QuoteSelected{
		EventMeta: domain.NewEventMeta(),
		RfqID:     rfqID,
		QuoteID:   quoteID,
		VenueID:   quote.VenueID,
		Price:     quote.Price,
	})

	log.Info().
		Str("rfq", rfqID.String()).
		Str("quote", quoteID.String()).
		Str("venue", quote.VenueID.String()).
		Str("price", quote.Price.String()).
		Msg("Quote selected")

	return nil
}

// Execute allocates the fill across the RFQ's quotes under the mode and
// drives each leg through its venue. A leg failing after another leg has
// executed rolls the executed legs back (event-wise) and fails the RFQ.
func (s *Service) Execute(ctx context.Context, rfqID types.RfqID, mode types.SizeNegotiationMode) ([]venue.ExecutionResult, error) {
	s.mu.Lock()
	rfq, ok := s.rfqs[rfqID]
	if !ok {
		s.mu.Unlock()
		return nil, domain.ErrQuoteNotFound
	}
	if err := rfq.StartExecution(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	selected := rfq.SelectedQuote()
	quotes := make([]*domain.Quote, 0, rfq.QuoteCount())
	for _, q := range rfq.Quotes() {
		if !q.IsExpired() {
			quotes = append(quotes, q)
		}
	}
	side := rfq.Side()
	target := rfq.Quantity()
	s.mu.Unlock()

	s.emit(domain.ExecutionStarted{
		EventMeta: domain.NewEventMeta(),
		RfqID:     rfqID,
		QuoteID:   selected.ID,
	})

	ranked := s.rankStrategy.Rank(quotes, side)
	allocations, err := s.fillStrategy.Allocate(ranked, target, mode, side)
	if err != nil {
		s.failRfq(rfqID, fmt.Sprintf("allocation failed: %v", err))
		return nil, err
	}

	effective := types.ZeroQuantity()
	for _, a := range allocations {
		effective, _ = effective.SafeAdd(a.Quantity)
	}
	s.emit(domain.MultiMmFillAllocated{
		EventMeta:     domain.NewEventMeta(),
		RfqID:         rfqID,
		Allocations:   allocations,
		EffectiveFill: effective,
		Mode:          mode.String(),
		Strategy:      s.fillStrategy.Name(),
	})

	results, err := s.executeLegs(ctx, rfq, allocations)
	if err != nil {
		s.failRfq(rfqID, err.Error())
		return nil, err
	}

	s.mu.Lock()
	markErr := rfq.MarkExecuted()
	s.mu.Unlock()
	if markErr != nil {
		return results, markErr
	}

	log.Info().
		Str("rfq", rfqID.String()).
		Int("legs", len(results)).
		Str("filled", effective.String()).
		Msg("RFQ executed")

	return results, nil
}

// executeLegs runs each allocation against its venue, with a retry budget
// for retryable venue errors. On a leg failure it emits rollback events for
// the already executed legs.
func (s *Service) executeLegs(ctx context.Context, rfq *domain.Rfq, allocations []domain.Allocation) ([]venue.ExecutionResult, error) {
	executed := make([]domain.Allocation, 0, len(allocations))
	results := make([]venue.ExecutionResult, 0, len(allocations))

	for _, alloc := range allocations {
		adapter, ok := s.registry.Get(alloc.VenueID)
		if !ok {
			s.rollback(rfq.ID(), executed, fmt.Sprintf("venue %s not registered", alloc.VenueID))
			return nil, fmt.Errorf("venue %s not registered", alloc.VenueID)
		}

		quote := s.allocationQuote(rfq, alloc)
		if quote == nil {
			s.rollback(rfq.ID(), executed, "allocation references unknown quote")
			return nil, domain.ErrQuoteNotFound
		}

		_ = s.tracker.RecordAcceptRequested(ctx, types.CounterpartyID(alloc.VenueID))

		result, err := s.executeLeg(ctx, adapter, quote)
		if err != nil {
			var ve *venue.Error
			if errors.As(err, &ve) && (ve.Kind == venue.ErrQuoteExpired || ve.Kind == venue.ErrExecutionFailed) {
				_ = s.tracker.RecordLastLookReject(ctx, types.CounterpartyID(alloc.VenueID))
			}
			s.rollback(rfq.ID(), executed, fmt.Sprintf("leg on %s failed: %v", alloc.VenueID, err))
			return nil, fmt.Errorf("execution leg on %s: %w", alloc.VenueID, err)
		}

		executed = append(executed, alloc)
		results = append(results, *result)
		_ = s.tracker.RecordTradeExecuted(ctx, types.CounterpartyID(alloc.VenueID))

		notional, _ := result.NotionalValue()
		s.emit(domain.AllocationExecuted{
			EventMeta: domain.NewEventMeta(),
			RfqID:     rfq.ID(),
			TradeID:   result.TradeID,
			VenueID:   alloc.VenueID,
			QuoteID:   alloc.QuoteID,
			Quantity:  result.ExecutedQuantity,
			Price:     result.ExecutionPrice,
		})
		s.emit(domain.TradeExecuted{
			EventMeta: domain.NewEventMeta(),
			RfqID:     rfq.ID(),
			TradeID:   result.TradeID,
			VenueID:   alloc.VenueID,
			Price:     result.ExecutionPrice,
			Quantity:  result.ExecutedQuantity,
			Notional:  notional,
		})
		s.emit(domain.SettlementInitiated{
			EventMeta:  domain.NewEventMeta(),
			RfqID:      rfq.ID(),
			TradeID:    result.TradeID,
			Settlement: result.Settlement,
		})
	}

	return results, nil
}

func (s *Service) executeLeg(ctx context.Context, adapter venue.Adapter, quote *domain.Quote) (*venue.ExecutionResult, error) {
	var lastErr error
	for attempt := 0; attempt <= s.config.MaxExecutionRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(100*attempt) * time.Millisecond):
			}
			log.Warn().
				Str("venue", adapter.VenueID().String()).
				Int("attempt", attempt+1).
				Msg("Retrying execution leg")
		}

		legCtx, cancel := context.WithTimeout(ctx, s.config.ExecutionTimeout)
		result, err := adapter.ExecuteTrade(legCtx, quote)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		var ve *venue.Error
		if !errors.As(err, &ve) || !ve.IsRetryable() {
			return nil, err
		}
	}
	return nil, lastErr
}

func (s *Service) allocationQuote(rfq *domain.Rfq, alloc domain.Allocation) *domain.Quote {
	for _, q := range rfq.Quotes() {
		if q.ID == alloc.QuoteID {
			return q
		}
	}
	return nil
}

// rollback emits AllocationRolledBack for every already executed leg. The
// engine only unwinds its own state; reversing settlement is the settlement
// layer's problem.
func (s *Service) rollback(rfqID types.RfqID, executed []domain.Allocation, reason string) {
	for _, alloc := range executed {
		s.emit(domain.AllocationRolledBack{
			EventMeta: domain.NewEventMeta(),
			RfqID:     rfqID,
			VenueID:   alloc.VenueID,
			QuoteID:   alloc.QuoteID,
			Reason:    reason,
		})
		log.Warn().
			Str("rfq", rfqID.String()).
			Str("venue", alloc.VenueID.String()).
			Str("reason", reason).
			Msg("Allocation rolled back")
	}
}

// Cancel cancels an RFQ on behalf of the client.
func (s *Service) Cancel(rfqID types.RfqID, reason string) error {
	s.mu.Lock()
	rfq, ok := s.rfqs[rfqID]
	if !ok {
		s.mu.Unlock()
		return domain.ErrQuoteNotFound
	}
	err := rfq.Cancel()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.emit(domain.RfqCancelled{EventMeta: domain.NewEventMeta(), RfqID: rfqID, Reason: reason})
	log.Info().Str("rfq", rfqID.String()).Str("reason", reason).Msg("RFQ cancelled")
	return nil
}

// ExpireRfq expires an RFQ whose deadline has passed. Used by the sweeper.
func (s *Service) ExpireRfq(rfqID types.RfqID) error {
	s.mu.Lock()
	rfq, ok := s.rfqs[rfqID]
	if !ok {
		s.mu.Unlock()
		return domain.ErrQuoteNotFound
	}
	err := rfq.Expire()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.emit(domain.RfqExpired{EventMeta: domain.NewEventMeta(), RfqID: rfqID, ExpiredAt: types.Now()})
	return nil
}

func (s *Service) failRfq(rfqID types.RfqID, reason string) {
	s.mu.Lock()
	rfq, ok := s.rfqs[rfqID]
	var err error
	if ok {
		err = rfq.MarkFailed(reason)
	}
	s.mu.Unlock()
	if !ok || err != nil {
		return
	}

	s.emit(domain.ExecutionFailed{EventMeta: domain.NewEventMeta(), RfqID: rfqID, Reason: reason})
	log.Error().Str("rfq", rfqID.String()).Str("reason", reason).Msg("RFQ failed")
}
