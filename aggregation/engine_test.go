package aggregation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/ranking"
	"github.com/Layer-V/otc-rfq/types"
	"github.com/Layer-V/otc-rfq/venue"
)

// mockAdapter is a scriptable venue adapter.
type mockAdapter struct {
	id       types.VenueID
	price    string
	quantity string
	err      error
	delay    time.Duration
	expired  bool
	panics   bool
}

func (m *mockAdapter) VenueID() types.VenueID { return m.id }
func (m *mockAdapter) TimeoutMs() uint64      { return 1000 }

func (m *mockAdapter) RequestQuote(ctx context.Context, rfq *domain.Rfq) (*domain.Quote, error) {
	if m.panics {
		panic("venue exploded")
	}
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, venue.NewTimeout("cancelled", m.TimeoutMs())
		case <-time.After(m.delay):
		}
	}
	if m.err != nil {
		return nil, m.err
	}

	quote, err := domain.NewQuote(rfq.ID(), m.id, types.MustPrice(m.price), types.MustQuantity(m.quantity), types.Now().AddSecs(60))
	if err != nil {
		return nil, err
	}
	if m.expired {
		quote.ValidUntil = types.Now().SubSecs(1)
	}
	return quote, nil
}

func (m *mockAdapter) ExecuteTrade(context.Context, *domain.Quote) (*venue.ExecutionResult, error) {
	return nil, venue.NewInternalError("not scripted")
}

func (m *mockAdapter) HealthCheck(context.Context) (venue.Health, error) {
	return venue.HealthyVenue(m.id), nil
}

type staticVenues struct {
	adapters []venue.Adapter
}

func (s staticVenues) Available() []venue.Adapter { return s.adapters }

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingSink) Emit(event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventName()
	}
	return out
}

func testRfq(t *testing.T) *domain.Rfq {
	t.Helper()
	instrument := types.NewInstrument(types.MustSymbol("BTC/USD"), types.CryptoSpot, types.DefaultSettlement())
	rfq, err := domain.NewRfq("client-1", instrument, types.Buy, types.MustQuantity("1"), types.Now().AddSecs(300))
	require.NoError(t, err)
	return rfq
}

func testConfig() Config {
	return Config{
		OverallTimeout:  5 * time.Second,
		PerVenueTimeout: time.Second,
		MinQuotes:       1,
	}
}

func TestCollectAndRankBestPriceWins(t *testing.T) {
	venues := staticVenues{adapters: []venue.Adapter{
		&mockAdapter{id: "v1", price: "100", quantity: "1"},
		&mockAdapter{id: "v2", price: "95", quantity: "1"},
		&mockAdapter{id: "v3", price: "105", quantity: "1"},
	}}

	engine := NewEngine(venues, ranking.NewBestPrice(), testConfig())
	result, err := engine.CollectAndRank(context.Background(), testRfq(t))
	require.NoError(t, err)

	require.Len(t, result.RankedQuotes, 3)
	assert.Equal(t, 3, result.VenuesQueried)
	assert.Equal(t, 3, result.VenuesResponded)
	assert.Equal(t, 0, result.FilteredCount)

	best := result.BestQuote()
	require.NotNil(t, best)
	assert.Equal(t, types.VenueID("v2"), best.Quote.VenueID)
	assert.True(t, best.Quote.Price.Equal(types.MustPrice("95")))
}

func TestCollectAndRankNoVenues(t *testing.T) {
	engine := NewEngine(staticVenues{}, ranking.NewBestPrice(), testConfig())
	_, err := engine.CollectAndRank(context.Background(), testRfq(t))
	assert.ErrorIs(t, err, ErrNoVenuesAvailable)
}

func TestCollectAndRankPartialFailureTolerated(t *testing.T) {
	venues := staticVenues{adapters: []venue.Adapter{
		&mockAdapter{id: "v1", price: "100", quantity: "1"},
		&mockAdapter{id: "v2", err: venue.NewQuoteUnavailable("no liquidity")},
	}}

	sink := &recordingSink{}
	engine := NewEngine(venues, ranking.NewBestPrice(), testConfig())
	engine.SetEventSink(sink)

	result, err := engine.CollectAndRank(context.Background(), testRfq(t))
	require.NoError(t, err)

	assert.Len(t, result.RankedQuotes, 1)
	assert.Equal(t, 1, result.VenuesResponded)
	assert.Contains(t, sink.names(), "QuoteRequestFailed")
	assert.Contains(t, sink.names(), "QuoteCollectionCompleted")
}

func TestCollectAndRankAllVenuesFailed(t *testing.T) {
	venues := staticVenues{adapters: []venue.Adapter{
		&mockAdapter{id: "v1", err: venue.NewQuoteUnavailable("no liquidity")},
		&mockAdapter{id: "v2", err: venue.NewConnection("refused")},
	}}

	engine := NewEngine(venues, ranking.NewBestPrice(), testConfig())
	_, err := engine.CollectAndRank(context.Background(), testRfq(t))

	var allFailed *AllVenuesFailedError
	require.ErrorAs(t, err, &allFailed)
	assert.Len(t, allFailed.Errors, 2)
}

func TestCollectAndRankAllFailedEvenWithZeroMinQuotes(t *testing.T) {
	venues := staticVenues{adapters: []venue.Adapter{
		&mockAdapter{id: "v1", err: venue.NewQuoteUnavailable("no liquidity")},
	}}

	config := testConfig()
	config.MinQuotes = 0
	engine := NewEngine(venues, ranking.NewBestPrice(), config)

	_, err := engine.CollectAndRank(context.Background(), testRfq(t))

	var allFailed *AllVenuesFailedError
	assert.ErrorAs(t, err, &allFailed)
}

func TestCollectAndRankZeroMinQuotesNoFailuresSucceedsEmpty(t *testing.T) {
	venues := staticVenues{adapters: []venue.Adapter{
		&mockAdapter{id: "v1", price: "100", quantity: "1", expired: true},
	}}

	config := testConfig()
	config.MinQuotes = 0
	engine := NewEngine(venues, ranking.NewBestPrice(), config)

	result, err := engine.CollectAndRank(context.Background(), testRfq(t))
	require.NoError(t, err)
	assert.Empty(t, result.RankedQuotes)
	assert.Equal(t, 1, result.FilteredCount)
}

func TestCollectAndRankInsufficientQuotes(t *testing.T) {
	venues := staticVenues{adapters: []venue.Adapter{
		&mockAdapter{id: "v1", price: "100", quantity: "1"},
	}}

	config := testConfig()
	config.MinQuotes = 3
	engine := NewEngine(venues, ranking.NewBestPrice(), config)

	_, err := engine.CollectAndRank(context.Background(), testRfq(t))

	var insufficient *InsufficientQuotesError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Collected)
	assert.Equal(t, 3, insufficient.Required)
}

func TestCollectAndRankOverallTimeout(t *testing.T) {
	venues := staticVenues{adapters: []venue.Adapter{
		&mockAdapter{id: "slow", price: "100", quantity: "1", delay: 500 * time.Millisecond},
	}}

	config := Config{
		OverallTimeout:  50 * time.Millisecond,
		PerVenueTimeout: time.Second,
		MinQuotes:       1,
	}
	engine := NewEngine(venues, ranking.NewBestPrice(), config)

	started := time.Now()
	_, err := engine.CollectAndRank(context.Background(), testRfq(t))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(started), 400*time.Millisecond)
}

func TestCollectAndRankPerVenueTimeoutIsAFailure(t *testing.T) {
	venues := staticVenues{adapters: []venue.Adapter{
		&mockAdapter{id: "fast", price: "100", quantity: "1"},
		&mockAdapter{id: "slow", price: "95", quantity: "1", delay: 500 * time.Millisecond},
	}}

	config := Config{
		OverallTimeout:  5 * time.Second,
		PerVenueTimeout: 50 * time.Millisecond,
		MinQuotes:       1,
	}
	engine := NewEngine(venues, ranking.NewBestPrice(), config)

	result, err := engine.CollectAndRank(context.Background(), testRfq(t))
	require.NoError(t, err)
	require.Len(t, result.RankedQuotes, 1)
	assert.Equal(t, types.VenueID("fast"), result.RankedQuotes[0].Quote.VenueID)
}

func TestCollectAndRankPanicDemotedToFailure(t *testing.T) {
	venues := staticVenues{adapters: []venue.Adapter{
		&mockAdapter{id: "ok", price: "100", quantity: "1"},
		&mockAdapter{id: "boom", panics: true},
	}}

	engine := NewEngine(venues, ranking.NewBestPrice(), testConfig())
	result, err := engine.CollectAndRank(context.Background(), testRfq(t))
	require.NoError(t, err)
	assert.Len(t, result.RankedQuotes, 1)
}

func TestCollectAndRankMaxQuotesTruncates(t *testing.T) {
	venues := staticVenues{adapters: []venue.Adapter{
		&mockAdapter{id: "v1", price: "100", quantity: "1"},
		&mockAdapter{id: "v2", price: "95", quantity: "1"},
		&mockAdapter{id: "v3", price: "105", quantity: "1"},
	}}

	config := testConfig()
	config.MaxQuotes = 2
	engine := NewEngine(venues, ranking.NewBestPrice(), config)

	result, err := engine.CollectAndRank(context.Background(), testRfq(t))
	require.NoError(t, err)
	require.Len(t, result.RankedQuotes, 2)
	assert.Equal(t, types.VenueID("v2"), result.RankedQuotes[0].Quote.VenueID)
	assert.Equal(t, 3, result.TotalCollected)
}

func TestCollectAndRankExpiredQuotesFiltered(t *testing.T) {
	venues := staticVenues{adapters: []venue.Adapter{
		&mockAdapter{id: "live", price: "100", quantity: "1"},
		&mockAdapter{id: "stale", price: "90", quantity: "1", expired: true},
	}}

	engine := NewEngine(venues, ranking.NewBestPrice(), testConfig())
	result, err := engine.CollectAndRank(context.Background(), testRfq(t))
	require.NoError(t, err)

	require.Len(t, result.RankedQuotes, 1)
	assert.Equal(t, types.VenueID("live"), result.RankedQuotes[0].Quote.VenueID)
	assert.Equal(t, 1, result.FilteredCount)
	assert.Equal(t, 2, result.TotalCollected)
}
