package pricing

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Layer-V/otc-rfq/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CHAINLINK INDEX PROVIDER
// ═══════════════════════════════════════════════════════════════════════════════
//
// Last-resort reference source: reads latestRoundData() straight off the
// Chainlink aggregator contract for the instrument's symbol. Feeds carry
// their own decimals (usually 8); the answer is scaled accordingly.
//
// ═══════════════════════════════════════════════════════════════════════════════

var (
	latestRoundDataSelector = mustSelector("feaf968c") // latestRoundData()
	decimalsSelector        = mustSelector("313ce567") // decimals()
)

func mustSelector(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// ChainClient is the slice of ethclient the provider needs.
type ChainClient interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainlinkProvider resolves reference prices from on-chain aggregator feeds.
type ChainlinkProvider struct {
	client ChainClient
	feeds  map[types.Symbol]common.Address

	mu       sync.Mutex
	decimals map[common.Address]int32
}

// NewChainlinkProvider builds a provider over a dialed client and a
// symbol → aggregator address table.
func NewChainlinkProvider(client ChainClient, feeds map[types.Symbol]common.Address) *ChainlinkProvider {
	return &ChainlinkProvider{
		client:   client,
		feeds:    feeds,
		decimals: make(map[common.Address]int32),
	}
}

// DialChainlinkProvider dials an RPC endpoint and builds a provider.
func DialChainlinkProvider(rpcURL string, feeds map[types.Symbol]common.Address) (*ChainlinkProvider, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return NewChainlinkProvider(client, feeds), nil
}

// GetReference implements Provider. Symbols without a configured feed yield
// no price; RPC failures surface as errors for the chain to skip past.
func (p *ChainlinkProvider) GetReference(ctx context.Context, instrument types.Instrument) (*Reference, error) {
	feed, ok := p.feeds[instrument.Symbol]
	if !ok {
		return nil, nil
	}

	answer, err := p.latestAnswer(ctx, feed)
	if err != nil {
		return nil, fmt.Errorf("chainlink feed %s: %w", feed.Hex(), err)
	}
	if answer.Sign() <= 0 {
		return nil, nil
	}

	dec, err := p.feedDecimals(ctx, feed)
	if err != nil {
		return nil, fmt.Errorf("chainlink feed %s decimals: %w", feed.Hex(), err)
	}

	scaled := decimal.NewFromBigInt(answer, -dec)
	price, err := types.NewPrice(scaled)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("symbol", instrument.Symbol.String()).
		Str("price", price.String()).
		Msg("Chainlink reference read")

	return &Reference{Price: price, Source: types.ChainlinkIndex}, nil
}

func (p *ChainlinkProvider) latestAnswer(ctx context.Context, feed common.Address) (*big.Int, error) {
	out, err := p.client.CallContract(ctx, ethereum.CallMsg{To: &feed, Data: latestRoundDataSelector}, nil)
	if err != nil {
		return nil, err
	}
	// latestRoundData returns (roundId, answer, startedAt, updatedAt,
	// answeredInRound); answer is the second 32-byte word.
	if len(out) < 64 {
		return nil, fmt.Errorf("short return data (%d bytes)", len(out))
	}
	answer := new(big.Int).SetBytes(out[32:64])
	// Two's complement for negative answers.
	if out[32]&0x80 != 0 {
		max := new(big.Int).Lsh(big.NewInt(1), 256)
		answer.Sub(answer, max)
	}
	return answer, nil
}

func (p *ChainlinkProvider) feedDecimals(ctx context.Context, feed common.Address) (int32, error) {
	p.mu.Lock()
	if dec, ok := p.decimals[feed]; ok {
		p.mu.Unlock()
		return dec, nil
	}
	p.mu.Unlock()

	out, err := p.client.CallContract(ctx, ethereum.CallMsg{To: &feed, Data: decimalsSelector}, nil)
	if err != nil {
		return 0, err
	}
	if len(out) < 32 {
		return 0, fmt.Errorf("short return data (%d bytes)", len(out))
	}
	dec := int32(new(big.Int).SetBytes(out[:32]).Int64())

	p.mu.Lock()
	p.decimals[feed] = dec
	p.mu.Unlock()
	return dec, nil
}
