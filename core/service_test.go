package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layer-V/otc-rfq/aggregation"
	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/fill"
	"github.com/Layer-V/otc-rfq/mmperf"
	"github.com/Layer-V/otc-rfq/pricing"
	"github.com/Layer-V/otc-rfq/ranking"
	"github.com/Layer-V/otc-rfq/storage"
	"github.com/Layer-V/otc-rfq/types"
	"github.com/Layer-V/otc-rfq/venue"
)

// scriptedAdapter quotes and executes deterministically.
type scriptedAdapter struct {
	id         types.VenueID
	price      string
	quantity   string
	quoteErr   error
	executeErr error
}

func (a *scriptedAdapter) VenueID() types.VenueID { return a.id }
func (a *scriptedAdapter) TimeoutMs() uint64      { return 1000 }

func (a *scriptedAdapter) RequestQuote(_ context.Context, rfq *domain.Rfq) (*domain.Quote, error) {
	if a.quoteErr != nil {
		return nil, a.quoteErr
	}
	return domain.NewQuote(rfq.ID(), a.id, types.MustPrice(a.price), types.MustQuantity(a.quantity), types.Now().AddSecs(60))
}

func (a *scriptedAdapter) ExecuteTrade(_ context.Context, quote *domain.Quote) (*venue.ExecutionResult, error) {
	if a.executeErr != nil {
		return nil, a.executeErr
	}
	return &venue.ExecutionResult{
		TradeID:          types.NewTradeID(),
		QuoteID:          quote.ID,
		VenueID:          a.id,
		ExecutionPrice:   quote.Price,
		ExecutedQuantity: quote.Quantity,
		Settlement:       types.DefaultSettlement(),
		ExecutedAt:       types.Now(),
	}, nil
}

func (a *scriptedAdapter) HealthCheck(context.Context) (venue.Health, error) {
	return venue.HealthyVenue(a.id), nil
}

type staticReference struct {
	price string
}

func (s staticReference) GetReference(context.Context, types.Instrument) (*pricing.Reference, error) {
	return &pricing.Reference{Price: types.MustPrice(s.price), Source: types.ClobMid}, nil
}

type fixture struct {
	service *Service
	store   *storage.MemoryEventStore
	repo    *mmperf.MemoryRepository
}

func newFixture(t *testing.T, adapters ...venue.Adapter) *fixture {
	t.Helper()

	registry := venue.NewRegistry()
	for _, adapter := range adapters {
		registry.Register(adapter, types.ExternalMM, venue.DefaultConfig())
	}

	store := storage.NewMemoryEventStore()
	sink := storage.NewSink(store)

	aggregator := aggregation.NewEngine(registry, ranking.NewBestPrice(), aggregation.Config{
		OverallTimeout:  5 * time.Second,
		PerVenueTimeout: time.Second,
		MinQuotes:       1,
	})
	aggregator.SetEventSink(sink)

	bounds := pricing.NewBoundsValidator(types.DefaultPriceBounds(), staticReference{price: "100"})
	repo := mmperf.NewMemoryRepository()
	tracker := mmperf.NewTracker(repo, 7)

	service := NewService(
		registry, aggregator, bounds,
		ranking.NewBestPrice(), fill.NewBestPriceCascade(),
		tracker, sink, DefaultConfig(),
	)

	return &fixture{service: service, store: store, repo: repo}
}

func (f *fixture) eventNames(t *testing.T, rfqID types.RfqID) []string {
	t.Helper()
	events, err := f.store.GetEvents(context.Background(), rfqID)
	require.NoError(t, err)
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.EventName
	}
	return names
}

func createRfq(t *testing.T, f *fixture) *domain.Rfq {
	t.Helper()
	instrument := types.NewInstrument(types.MustSymbol("BTC/USD"), types.CryptoSpot, types.DefaultSettlement())
	rfq, err := f.service.CreateRfq("client-1", instrument, types.Buy, types.MustQuantity("1"), types.Now().AddSecs(300))
	require.NoError(t, err)
	return rfq
}

func TestHappyPathBestPriceWins(t *testing.T) {
	f := newFixture(t,
		&scriptedAdapter{id: "v1", price: "100", quantity: "1"},
		&scriptedAdapter{id: "v2", price: "95", quantity: "1"},
		&scriptedAdapter{id: "v3", price: "105", quantity: "1"},
	)
	ctx := context.Background()

	rfq := createRfq(t, f)

	result, err := f.service.CollectQuotes(ctx, rfq.ID())
	require.NoError(t, err)
	require.Len(t, result.RankedQuotes, 3)
	assert.Equal(t, domain.RfqQuotesReceived, rfq.State())

	best := result.BestQuote()
	assert.Equal(t, types.VenueID("v2"), best.Quote.VenueID)

	require.NoError(t, f.service.SelectQuote(ctx, rfq.ID(), best.Quote.ID))
	assert.Equal(t, domain.RfqClientSelecting, rfq.State())
	require.NotNil(t, rfq.Compliance())
	assert.True(t, rfq.Compliance().Passed)

	results, err := f.service.Execute(ctx, rfq.ID(), types.ModeBestEffort())
	require.NoError(t, err)
	assert.Equal(t, domain.RfqExecuted, rfq.State())

	require.Len(t, results, 1)
	assert.Equal(t, types.VenueID("v2"), results[0].VenueID)
	assert.True(t, results[0].ExecutionPrice.Equal(types.MustPrice("95")))
	assert.True(t, results[0].ExecutedQuantity.Equal(types.MustQuantity("1")))

	names := f.eventNames(t, rfq.ID())
	for _, expected := range []string{
		"RfqCreated", "QuoteCollectionStarted", "QuoteRequested", "QuoteReceived",
		"QuoteCollectionCompleted", "ComplianceCheckPassed", "QuoteSelected",
		"ExecutionStarted", "MultiMmFillAllocated", "AllocationExecuted",
		"TradeExecuted", "SettlementInitiated",
	} {
		assert.Contains(t, names, expected)
	}
}

func TestCollectQuotesFailsRfqWhenAllVenuesFail(t *testing.T) {
	f := newFixture(t,
		&scriptedAdapter{id: "v1", quoteErr: venue.NewQuoteUnavailable("no liquidity")},
		&scriptedAdapter{id: "v2", quoteErr: venue.NewConnection("refused")},
	)

	rfq := createRfq(t, f)
	_, err := f.service.CollectQuotes(context.Background(), rfq.ID())

	var allFailed *aggregation.AllVenuesFailedError
	require.ErrorAs(t, err, &allFailed)
	assert.Equal(t, domain.RfqFailed, rfq.State())
	assert.Contains(t, f.eventNames(t, rfq.ID()), "ExecutionFailed")
}

func TestSelectQuoteOutOfBoundsLeavesRfqSelectable(t *testing.T) {
	// Venue quotes 120 against a reference of 100: 20% deviation.
	f := newFixture(t,
		&scriptedAdapter{id: "rich", price: "120", quantity: "1"},
		&scriptedAdapter{id: "fair", price: "101", quantity: "1"},
	)
	ctx := context.Background()

	rfq := createRfq(t, f)
	result, err := f.service.CollectQuotes(ctx, rfq.ID())
	require.NoError(t, err)

	var expensive *domain.Quote
	for _, rq := range result.RankedQuotes {
		if rq.Quote.VenueID == "rich" {
			expensive = rq.Quote
		}
	}
	require.NotNil(t, expensive)

	var oob *domain.PriceOutOfBoundsError
	err = f.service.SelectQuote(ctx, rfq.ID(), expensive.ID)
	require.ErrorAs(t, err, &oob)

	// Still selectable: the client can pick the fair quote.
	assert.Equal(t, domain.RfqQuotesReceived, rfq.State())
	assert.Contains(t, f.eventNames(t, rfq.ID()), "ComplianceCheckFailed")

	fair := result.BestQuote()
	require.NoError(t, f.service.SelectQuote(ctx, rfq.ID(), fair.Quote.ID))
}

func TestExecuteAllOrNothingShortfall(t *testing.T) {
	f := newFixture(t, &scriptedAdapter{id: "v1", price: "100", quantity: "0.5"})
	ctx := context.Background()

	instrument := types.NewInstrument(types.MustSymbol("BTC/USD"), types.CryptoSpot, types.DefaultSettlement())
	rfq, err := f.service.CreateRfq("client-1", instrument, types.Buy, types.MustQuantity("10"), types.Now().AddSecs(300))
	require.NoError(t, err)

	result, err := f.service.CollectQuotes(ctx, rfq.ID())
	require.NoError(t, err)
	require.NoError(t, f.service.SelectQuote(ctx, rfq.ID(), result.BestQuote().Quote.ID))

	_, err = f.service.Execute(ctx, rfq.ID(), types.ModeAllOrNothing())

	var insufficient *domain.InsufficientLiquidityError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, domain.RfqFailed, rfq.State())
}

func TestExecuteLegFailureRollsBackExecutedLegs(t *testing.T) {
	f := newFixture(t,
		&scriptedAdapter{id: "good", price: "95", quantity: "1"},
		&scriptedAdapter{id: "bad", price: "100", quantity: "1", executeErr: venue.NewExecutionFailed("last look reject", "LL")},
	)
	ctx := context.Background()

	instrument := types.NewInstrument(types.MustSymbol("BTC/USD"), types.CryptoSpot, types.DefaultSettlement())
	rfq, err := f.service.CreateRfq("client-1", instrument, types.Buy, types.MustQuantity("2"), types.Now().AddSecs(300))
	require.NoError(t, err)

	result, err := f.service.CollectQuotes(ctx, rfq.ID())
	require.NoError(t, err)
	require.NoError(t, f.service.SelectQuote(ctx, rfq.ID(), result.BestQuote().Quote.ID))

	_, err = f.service.Execute(ctx, rfq.ID(), types.ModeAllOrNothing())
	require.Error(t, err)
	assert.Equal(t, domain.RfqFailed, rfq.State())

	names := f.eventNames(t, rfq.ID())
	assert.Contains(t, names, "AllocationExecuted")
	assert.Contains(t, names, "AllocationRolledBack")
	assert.Contains(t, names, "ExecutionFailed")
}

func TestCancelEmitsEvent(t *testing.T) {
	f := newFixture(t, &scriptedAdapter{id: "v1", price: "100", quantity: "1"})

	rfq := createRfq(t, f)
	require.NoError(t, f.service.Cancel(rfq.ID(), "client changed mind"))
	assert.Equal(t, domain.RfqStateCancelled, rfq.State())
	assert.Contains(t, f.eventNames(t, rfq.ID()), "RfqCancelled")

	// Terminal: a second cancel is rejected.
	assert.Error(t, f.service.Cancel(rfq.ID(), "again"))
}

func TestSweeperExpiresOverdueRfqs(t *testing.T) {
	f := newFixture(t, &scriptedAdapter{id: "v1", price: "100", quantity: "1"})

	instrument := types.NewInstrument(types.MustSymbol("BTC/USD"), types.CryptoSpot, types.DefaultSettlement())
	rfq, err := f.service.CreateRfq("client-1", instrument, types.Buy, types.MustQuantity("1"), types.Now().AddMillis(30))
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	sweeper := NewSweeper(f.service, time.Second)
	expired, _ := sweeper.SweepOnce()

	assert.Equal(t, 1, expired)
	assert.Equal(t, domain.RfqStateExpired, rfq.State())
	assert.Contains(t, f.eventNames(t, rfq.ID()), "RfqExpired")
}

func TestSweeperExpiresStaleNegotiations(t *testing.T) {
	f := newFixture(t)

	negotiation, err := f.service.OpenNegotiation(types.NewRfqID(), "client-1", "mm-1", types.Buy, 3)
	require.NoError(t, err)

	counter, err := domain.NewCounterQuote(types.NewQuoteID(), negotiation.RfqID(), "mm-1",
		types.MustPrice("50000"), types.MustQuantity("1"), types.Now().AddMillis(30), 1)
	require.NoError(t, err)
	require.NoError(t, f.service.SubmitCounter(negotiation.ID(), counter))

	time.Sleep(50 * time.Millisecond)

	sweeper := NewSweeper(f.service, time.Second)
	_, expiredNegotiations := sweeper.SweepOnce()

	assert.Equal(t, 1, expiredNegotiations)
	assert.Equal(t, domain.NegotiationExpired, negotiation.State())
}

func TestNegotiationServiceFlow(t *testing.T) {
	f := newFixture(t)

	rfqID := types.NewRfqID()
	negotiation, err := f.service.OpenNegotiation(rfqID, "client-1", "mm-1", types.Buy, 3)
	require.NoError(t, err)

	mmCounter, err := domain.NewCounterQuote(types.NewQuoteID(), rfqID, "mm-1",
		types.MustPrice("50000"), types.MustQuantity("1"), types.Now().AddSecs(60), 1)
	require.NoError(t, err)
	require.NoError(t, f.service.SubmitCounter(negotiation.ID(), mmCounter))

	clientCounter, err := domain.NewCounterQuote(types.NewQuoteID(), rfqID, "client-1",
		types.MustPrice("49000"), types.MustQuantity("1"), types.Now().AddSecs(60), 2)
	require.NoError(t, err)
	require.NoError(t, f.service.SubmitCounter(negotiation.ID(), clientCounter))

	require.NoError(t, f.service.AcceptNegotiation(negotiation.ID()))
	assert.Equal(t, domain.NegotiationAccepted, negotiation.State())

	names := f.eventNames(t, rfqID)
	assert.Contains(t, names, "CounterQuoteReceived") // mm's counter
	assert.Contains(t, names, "CounterQuoteSent")     // client's counter
	assert.Contains(t, names, "NegotiationCompleted")
}

func TestMmPerformanceRecordedDuringLifecycle(t *testing.T) {
	f := newFixture(t, &scriptedAdapter{id: "v1", price: "100", quantity: "1"})
	ctx := context.Background()

	rfq := createRfq(t, f)
	result, err := f.service.CollectQuotes(ctx, rfq.ID())
	require.NoError(t, err)
	require.NoError(t, f.service.SelectQuote(ctx, rfq.ID(), result.BestQuote().Quote.ID))
	_, err = f.service.Execute(ctx, rfq.ID(), types.ModeBestEffort())
	require.NoError(t, err)

	events, err := f.repo.GetEvents(ctx, "v1", types.FromUnixSecs(0), types.Now())
	require.NoError(t, err)

	kinds := make(map[domain.MmEventKind]int)
	for _, e := range events {
		kinds[e.Kind]++
	}
	assert.Equal(t, 1, kinds[domain.MmRfqSent])
	assert.Equal(t, 1, kinds[domain.MmQuoteReceived])
	assert.Equal(t, 1, kinds[domain.MmAcceptRequested])
	assert.Equal(t, 1, kinds[domain.MmTradeExecuted])
}
