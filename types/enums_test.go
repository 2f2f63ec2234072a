package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderSide(t *testing.T) {
	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
	assert.Equal(t, "BUY", Buy.String())
	assert.Equal(t, "SELL", Sell.String())

	side, err := ParseOrderSide("buy")
	require.NoError(t, err)
	assert.Equal(t, Buy, side)

	_, err = ParseOrderSide("HOLD")
	assert.Error(t, err)
}

func TestOrderSideJSON(t *testing.T) {
	data, err := json.Marshal(Sell)
	require.NoError(t, err)
	assert.Equal(t, `"SELL"`, string(data))

	var side OrderSide
	require.NoError(t, json.Unmarshal([]byte(`"BUY"`), &side))
	assert.Equal(t, Buy, side)
}

func TestAssetClass(t *testing.T) {
	assert.True(t, CryptoSpot.IsCrypto())
	assert.True(t, CryptoDerivs.IsCrypto())
	assert.False(t, Stock.IsCrypto())
	assert.True(t, Forex.IsTradFi())
	assert.Equal(t, "CRYPTO_SPOT", CryptoSpot.String())

	class, err := ParseAssetClass("crypto-spot")
	require.NoError(t, err)
	assert.Equal(t, CryptoSpot, class)
}

func TestBlockchainChainIDs(t *testing.T) {
	assert.Equal(t, uint64(1), Ethereum.ChainID())
	assert.Equal(t, uint64(137), Polygon.ChainID())
	assert.Equal(t, uint64(42161), Arbitrum.ChainID())
	assert.Equal(t, uint64(10), Optimism.ChainID())
	assert.Equal(t, uint64(8453), Base.ChainID())

	chain, ok := BlockchainFromChainID(8453)
	assert.True(t, ok)
	assert.Equal(t, Base, chain)

	_, ok = BlockchainFromChainID(999)
	assert.False(t, ok)
}

func TestBlockchainAliases(t *testing.T) {
	for alias, expected := range map[string]Blockchain{
		"ETH": Ethereum, "MATIC": Polygon, "ARB": Arbitrum, "OP": Optimism, "base": Base,
	} {
		chain, err := ParseBlockchain(alias)
		require.NoError(t, err)
		assert.Equal(t, expected, chain)
	}

	assert.False(t, Ethereum.IsLayer2())
	assert.True(t, Polygon.IsLayer2())
}

func TestVenueType(t *testing.T) {
	assert.True(t, InternalMM.IsMarketMaker())
	assert.True(t, ExternalMM.IsMarketMaker())
	assert.False(t, DexAggregator.IsMarketMaker())
	assert.True(t, RfqProtocol.IsDeFi())
	assert.Equal(t, "DEX_AGGREGATOR", DexAggregator.String())

	vt, err := ParseVenueType("rfq_protocol")
	require.NoError(t, err)
	assert.Equal(t, RfqProtocol, vt)
}

func TestSettlementMethod(t *testing.T) {
	onchain := SettleOnChain(Polygon)
	chain, ok := onchain.Blockchain()
	assert.True(t, ok)
	assert.Equal(t, Polygon, chain)
	assert.Equal(t, "ON_CHAIN(POLYGON)", onchain.String())

	offchain := SettleOffChain()
	_, ok = offchain.Blockchain()
	assert.False(t, ok)
	assert.Equal(t, "OFF_CHAIN", offchain.String())

	assert.Equal(t, SettleOnChain(Ethereum), DefaultSettlement())
}

func TestInstrumentEquality(t *testing.T) {
	a := NewInstrument(MustSymbol("BTC/USD"), CryptoSpot, DefaultSettlement())
	b := NewInstrument(MustSymbol("btc/usd "), CryptoSpot, DefaultSettlement())
	c := NewInstrument(MustSymbol("ETH/USD"), CryptoSpot, DefaultSettlement())

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestSymbolValidation(t *testing.T) {
	_, err := NewSymbol("   ")
	assert.Error(t, err)

	sym, err := NewSymbol(" btc/usd ")
	require.NoError(t, err)
	assert.Equal(t, "BTC/USD", sym.String())
}

func TestSizeNegotiationMode(t *testing.T) {
	assert.True(t, ModeAllOrNothing().RequiresFullFill())
	assert.True(t, ModeFillOrKill().RequiresFullFill())
	assert.False(t, ModeBestEffort().RequiresFullFill())
	assert.False(t, ModeMinQuantity(MustQuantity("5")).RequiresFullFill())
	assert.Equal(t, "MIN_QUANTITY(5)", ModeMinQuantity(MustQuantity("5")).String())
}

func TestPriceBoundsDefaults(t *testing.T) {
	cfg := DefaultPriceBounds()
	assert.True(t, cfg.ToleranceFor(Liquid).Equal(d("0.05")))
	assert.True(t, cfg.ToleranceFor(SemiLiquid).Equal(d("0.075")))
	assert.True(t, cfg.ToleranceFor(Illiquid).Equal(d("0.10")))
}

func TestReferencePriceSourceOrdering(t *testing.T) {
	assert.Equal(t, uint8(0), ClobMid.Priority())
	assert.Equal(t, uint8(1), Theoretical.Priority())
	assert.Equal(t, uint8(2), ChainlinkIndex.Priority())
	assert.Equal(t, "CLOB_MID", ClobMid.String())
}

func TestIDConstructors(t *testing.T) {
	_, err := NewVenueID("")
	assert.Error(t, err)

	id, err := NewCounterpartyID("mm-1")
	require.NoError(t, err)
	assert.Equal(t, "mm-1", id.String())

	rfqID := NewRfqID()
	parsed, err := ParseRfqID(rfqID.String())
	require.NoError(t, err)
	assert.Equal(t, rfqID, parsed)
}
