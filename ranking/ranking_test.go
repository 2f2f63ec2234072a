package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/types"
)

func quote(t *testing.T, venueID string, price, qty string) *domain.Quote {
	t.Helper()
	q, err := domain.NewQuote(
		types.NewRfqID(), types.VenueID(venueID),
		types.MustPrice(price), types.MustQuantity(qty),
		types.Now().AddSecs(60),
	)
	require.NoError(t, err)
	return q
}

func TestBestPriceBuySide(t *testing.T) {
	quotes := []*domain.Quote{
		quote(t, "v1", "100", "1"),
		quote(t, "v2", "95", "1"),
		quote(t, "v3", "105", "1"),
	}

	ranked := NewBestPrice().Rank(quotes, types.Buy)

	require.Len(t, ranked, 3)
	assert.Equal(t, types.VenueID("v2"), ranked[0].Quote.VenueID)
	assert.Equal(t, types.VenueID("v1"), ranked[1].Quote.VenueID)
	assert.Equal(t, types.VenueID("v3"), ranked[2].Quote.VenueID)
	for i, rq := range ranked {
		assert.Equal(t, i+1, rq.Rank)
	}
	assert.True(t, ranked[0].IsBest())
	assert.False(t, ranked[1].IsBest())
}

func TestBestPriceSellSide(t *testing.T) {
	quotes := []*domain.Quote{
		quote(t, "v1", "100", "1"),
		quote(t, "v2", "95", "1"),
		quote(t, "v3", "105", "1"),
	}

	ranked := NewBestPrice().Rank(quotes, types.Sell)

	require.Len(t, ranked, 3)
	assert.Equal(t, types.VenueID("v3"), ranked[0].Quote.VenueID)
	assert.Equal(t, types.VenueID("v1"), ranked[1].Quote.VenueID)
	assert.Equal(t, types.VenueID("v2"), ranked[2].Quote.VenueID)
}

func TestBestPriceTiesKeepArrivalOrder(t *testing.T) {
	quotes := []*domain.Quote{
		quote(t, "first", "100", "1"),
		quote(t, "second", "100", "1"),
		quote(t, "third", "100", "1"),
	}

	ranked := NewBestPrice().Rank(quotes, types.Buy)

	require.Len(t, ranked, 3)
	assert.Equal(t, types.VenueID("first"), ranked[0].Quote.VenueID)
	assert.Equal(t, types.VenueID("second"), ranked[1].Quote.VenueID)
	assert.Equal(t, types.VenueID("third"), ranked[2].Quote.VenueID)
}

func TestBestPriceEmptyInput(t *testing.T) {
	assert.Empty(t, NewBestPrice().Rank(nil, types.Buy))
}

func TestWeightedScoreDefaults(t *testing.T) {
	w := NewWeightedScore()
	assert.InDelta(t, 0.7, w.PriceWeight, 1e-9)
	assert.InDelta(t, 0.3, w.QuantityWeight, 1e-9)
}

func TestWeightedScoreBuySidePriceDominates(t *testing.T) {
	quotes := []*domain.Quote{
		quote(t, "v1", "100", "10"),
		quote(t, "v2", "95", "5"),
		quote(t, "v3", "105", "15"),
	}

	ranked := NewWeightedScore().Rank(quotes, types.Buy)

	require.Len(t, ranked, 3)
	// Cheapest wins despite the smallest quantity.
	assert.Equal(t, types.VenueID("v2"), ranked[0].Quote.VenueID)
}

func TestWeightedScoreQuantityBreaksEqualPrices(t *testing.T) {
	quotes := []*domain.Quote{
		quote(t, "small", "100", "1"),
		quote(t, "large", "100", "10"),
	}

	ranked := NewWeightedScore().Rank(quotes, types.Buy)

	require.Len(t, ranked, 2)
	assert.Equal(t, types.VenueID("large"), ranked[0].Quote.VenueID)
}

func TestWeightedScoreDegenerateSetNeutralized(t *testing.T) {
	// Identical price and quantity: every score collapses to the same value
	// and arrival order decides.
	quotes := []*domain.Quote{
		quote(t, "a", "100", "2"),
		quote(t, "b", "100", "2"),
	}

	ranked := NewWeightedScore().Rank(quotes, types.Sell)

	require.Len(t, ranked, 2)
	assert.Equal(t, types.VenueID("a"), ranked[0].Quote.VenueID)
	assert.InDelta(t, ranked[0].Score, ranked[1].Score, 1e-9)
}

func TestStrategyNames(t *testing.T) {
	assert.Equal(t, "BestPrice", NewBestPrice().Name())
	assert.Equal(t, "WeightedScore", NewWeightedScore().Name())
}
