package aggregation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/ranking"
	"github.com/Layer-V/otc-rfq/types"
	"github.com/Layer-V/otc-rfq/venue"
)

// ═══════════════════════════════════════════════════════════════════════════════
// QUOTE AGGREGATION ENGINE
// ═══════════════════════════════════════════════════════════════════════════════
//
// Fans one RFQ out to every available venue in parallel, collects outcomes
// under two timers (per-venue and overall), filters stale quotes, and ranks
// the survivors. Venue failures never abort sibling requests; when the
// overall deadline fires, outstanding requests are abandoned and their late
// results ignored.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Config bounds one aggregation batch.
type Config struct {
	// OverallTimeout caps the whole batch.
	OverallTimeout time.Duration
	// PerVenueTimeout caps each individual venue request.
	PerVenueTimeout time.Duration
	// MinQuotes is the minimum number of valid quotes for success.
	MinQuotes int
	// MaxQuotes truncates the ranked output when > 0.
	MaxQuotes int
}

// DefaultConfig returns the default aggregation bounds.
func DefaultConfig() Config {
	return Config{
		OverallTimeout:  10 * time.Second,
		PerVenueTimeout: 5 * time.Second,
		MinQuotes:       1,
	}
}

// Result is the outcome of a successful aggregation batch.
type Result struct {
	RankedQuotes    []ranking.RankedQuote
	TotalCollected  int
	VenuesQueried   int
	VenuesResponded int
	FilteredCount   int
}

// HasSufficientQuotes reports whether at least min quotes survived.
func (r *Result) HasSufficientQuotes(min int) bool {
	return len(r.RankedQuotes) >= min
}

// BestQuote returns the top-ranked quote, if any.
func (r *Result) BestQuote() *ranking.RankedQuote {
	if len(r.RankedQuotes) == 0 {
		return nil
	}
	return &r.RankedQuotes[0]
}

// Aggregation error set.
var ErrNoVenuesAvailable = fmt.Errorf("no venues available")
var ErrTimeout = fmt.Errorf("quote collection timed out")

// InsufficientQuotesError reports fewer valid quotes than required.
type InsufficientQuotesError struct {
	Collected int
	Required  int
}

func (e *InsufficientQuotesError) Error() string {
	return fmt.Sprintf("insufficient quotes: got %d, need %d", e.Collected, e.Required)
}

// AllVenuesFailedError reports that every venue erred and nothing survived.
type AllVenuesFailedError struct {
	Errors []string
}

func (e *AllVenuesFailedError) Error() string {
	return "all venues failed: " + strings.Join(e.Errors, ", ")
}

// EventSink receives audit events emitted during aggregation. The engine
// never blocks on the sink.
type EventSink interface {
	Emit(event domain.Event)
}

// VenueSource supplies the venue snapshot for a batch.
type VenueSource interface {
	Available() []venue.Adapter
}

// Engine collects and ranks quotes from multiple venues.
type Engine struct {
	venues   VenueSource
	strategy ranking.Strategy
	config   Config
	sink     EventSink
}

// NewEngine builds an aggregation engine.
func NewEngine(venues VenueSource, strategy ranking.Strategy, config Config) *Engine {
	return &Engine{venues: venues, strategy: strategy, config: config}
}

// SetEventSink attaches an audit event sink.
func (e *Engine) SetEventSink(sink EventSink) { e.sink = sink }

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.config }

// StrategyName returns the configured ranking strategy's name.
func (e *Engine) StrategyName() string { return e.strategy.Name() }

func (e *Engine) emit(event domain.Event) {
	if e.sink != nil {
		e.sink.Emit(event)
	}
}

// venueOutcome is one venue's result: a quote, or a failure string.
type venueOutcome struct {
	venueID types.VenueID
	quote   *domain.Quote
	failure string
	elapsed time.Duration
}

// CollectAndRank runs one aggregation batch for the RFQ.
func (e *Engine) CollectAndRank(ctx context.Context, rfq *domain.Rfq) (*Result, error) {
	venues := e.venues.Available()
	queried := len(venues)
	if queried == 0 {
		return nil, ErrNoVenuesAvailable
	}

	log.Info().
		Str("rfq", rfq.ID().String()).
		Int("venues", queried).
		Dur("overall_timeout", e.config.OverallTimeout).
		Msg("Quote collection started")

	batchCtx, cancel := context.WithTimeout(ctx, e.config.OverallTimeout)
	defer cancel()

	// Buffered so abandoned goroutines can still deposit their outcome and
	// exit after the overall deadline fires.
	outcomes := make(chan venueOutcome, queried)
	for _, adapter := range venues {
		e.emit(domain.QuoteRequested{
			EventMeta: domain.NewEventMeta(),
			RfqID:     rfq.ID(),
			VenueID:   adapter.VenueID(),
		})
		go e.requestOne(batchCtx, adapter, rfq, outcomes)
	}

	var (
		quotes   []*domain.Quote
		failures []string
	)

	received := 0
	for received < queried {
		select {
		case <-batchCtx.Done():
			// Overall deadline: abandon outstanding venue tasks.
			log.Warn().
				Str("rfq", rfq.ID().String()).
				Int("received", received).
				Int("queried", queried).
				Msg("Quote collection timed out")
			return nil, ErrTimeout
		case outcome := <-outcomes:
			received++
			if outcome.quote != nil {
				quotes = append(quotes, outcome.quote)
				e.emit(domain.QuoteReceived{
					EventMeta:      domain.NewEventMeta(),
					RfqID:          rfq.ID(),
					QuoteID:        outcome.quote.ID,
					VenueID:        outcome.venueID,
					Price:          outcome.quote.Price,
					Quantity:       outcome.quote.Quantity,
					ValidUntil:     outcome.quote.ValidUntil,
					ResponseTimeMs: uint64(outcome.elapsed.Milliseconds()),
				})
			} else {
				failures = append(failures, outcome.failure)
				e.emit(domain.QuoteRequestFailed{
					EventMeta: domain.NewEventMeta(),
					RfqID:     rfq.ID(),
					VenueID:   outcome.venueID,
					Reason:    outcome.failure,
				})
			}
		}
	}

	totalCollected := len(quotes)
	responded := queried - len(failures)

	// Drop quotes that expired in flight.
	valid := quotes[:0]
	for _, q := range quotes {
		if !q.IsExpired() {
			valid = append(valid, q)
		}
	}
	filtered := totalCollected - len(valid)

	e.emit(domain.QuoteCollectionCompleted{
		EventMeta:       domain.NewEventMeta(),
		RfqID:           rfq.ID(),
		TotalCollected:  totalCollected,
		VenuesQueried:   queried,
		VenuesResponded: responded,
		FilteredCount:   filtered,
	})

	if len(valid) == 0 && len(failures) > 0 {
		return nil, &AllVenuesFailedError{Errors: failures}
	}
	if len(valid) < e.config.MinQuotes {
		return nil, &InsufficientQuotesError{Collected: len(valid), Required: e.config.MinQuotes}
	}

	ranked := e.strategy.Rank(valid, rfq.Side())
	if e.config.MaxQuotes > 0 && len(ranked) > e.config.MaxQuotes {
		ranked = ranked[:e.config.MaxQuotes]
	}

	log.Info().
		Str("rfq", rfq.ID().String()).
		Int("collected", totalCollected).
		Int("ranked", len(ranked)).
		Int("filtered", filtered).
		Int("failures", len(failures)).
		Msg("Quote collection completed")

	return &Result{
		RankedQuotes:    ranked,
		TotalCollected:  totalCollected,
		VenuesQueried:   queried,
		VenuesResponded: responded,
		FilteredCount:   filtered,
	}, nil
}

// requestOne runs a single venue request under the per-venue deadline.
// Panics are demoted to failure strings so one venue can never take down a
// batch.
func (e *Engine) requestOne(ctx context.Context, adapter venue.Adapter, rfq *domain.Rfq, outcomes chan<- venueOutcome) {
	started := time.Now()
	venueID := adapter.VenueID()

	defer func() {
		if r := recover(); r != nil {
			outcomes <- venueOutcome{
				venueID: venueID,
				failure: fmt.Sprintf("venue %s panicked: %v", venueID, r),
				elapsed: time.Since(started),
			}
		}
	}()

	venueCtx, cancel := context.WithTimeout(ctx, e.config.PerVenueTimeout)
	defer cancel()

	quote, err := adapter.RequestQuote(venueCtx, rfq)
	elapsed := time.Since(started)

	switch {
	case err != nil:
		reason := err.Error()
		if venueCtx.Err() == context.DeadlineExceeded {
			reason = fmt.Sprintf("venue %s request timed out", venueID)
		}
		outcomes <- venueOutcome{venueID: venueID, failure: reason, elapsed: elapsed}
	case quote == nil:
		outcomes <- venueOutcome{venueID: venueID, failure: fmt.Sprintf("venue %s returned no quote", venueID), elapsed: elapsed}
	default:
		outcomes <- venueOutcome{venueID: venueID, quote: quote, elapsed: elapsed}
	}
}
