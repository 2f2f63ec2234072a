package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layer-V/otc-rfq/types"
)

func TestNewQuoteValidation(t *testing.T) {
	rfqID := types.NewRfqID()
	future := types.Now().AddSecs(60)

	_, err := NewQuote(rfqID, "venue-1", types.ZeroPrice(), types.MustQuantity("1"), future)
	assert.Error(t, err)

	_, err = NewQuote(rfqID, "venue-1", types.MustPrice("100"), types.ZeroQuantity(), future)
	assert.Error(t, err)

	_, err = NewQuote(rfqID, "venue-1", types.MustPrice("100"), types.MustQuantity("1"), types.Now().SubSecs(1))
	assert.Error(t, err)

	_, err = NewQuoteWithCommission(rfqID, "venue-1", types.MustPrice("100"), types.MustQuantity("1"), decimal.NewFromInt(-1), future)
	assert.Error(t, err)
}

func TestQuoteTotalCost(t *testing.T) {
	quote, err := NewQuoteWithCommission(
		types.NewRfqID(), "venue-1",
		types.MustPrice("100"), types.MustQuantity("2"),
		decimal.RequireFromString("0.5"),
		types.Now().AddSecs(60),
	)
	require.NoError(t, err)

	total, err := quote.TotalCost()
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("200.5")))
}

func TestQuoteExpiry(t *testing.T) {
	quote, err := NewQuote(types.NewRfqID(), "venue-1", types.MustPrice("100"), types.MustQuantity("1"), types.Now().AddSecs(60))
	require.NoError(t, err)

	assert.False(t, quote.IsExpired())
	assert.Greater(t, quote.TimeToExpiry(), time.Duration(0))

	quote.ValidUntil = types.Now().SubSecs(1)
	assert.True(t, quote.IsExpired())
	assert.Equal(t, int64(0), int64(quote.TimeToExpiry()))
}

func TestQuoteIsExpiredAt(t *testing.T) {
	quote, err := NewQuote(types.NewRfqID(), "venue-1", types.MustPrice("100"), types.MustQuantity("1"), types.Now().AddSecs(60))
	require.NoError(t, err)

	assert.False(t, quote.IsExpiredAt(types.Now()))
	assert.True(t, quote.IsExpiredAt(quote.ValidUntil))
	assert.True(t, quote.IsExpiredAt(quote.ValidUntil.AddSecs(1)))
}
