package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/Layer-V/otc-rfq/types"
)

// ClobMidProvider derives a reference from a central limit order book's top
// of book: mid = (best bid + best ask) / 2. The book snapshot comes from an
// exchange REST endpoint.
type ClobMidProvider struct {
	client *resty.Client
}

type bookSnapshot struct {
	Symbol  string `json:"symbol"`
	BestBid string `json:"best_bid"`
	BestAsk string `json:"best_ask"`
}

// NewClobMidProvider builds a provider against the given order-book API.
func NewClobMidProvider(baseURL string, timeout time.Duration) *ClobMidProvider {
	return &ClobMidProvider{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
	}
}

// GetReference implements Provider. A missing book (404) means no price; a
// one-sided or crossed book also yields no price rather than a bad mid.
func (p *ClobMidProvider) GetReference(ctx context.Context, instrument types.Instrument) (*Reference, error) {
	var book bookSnapshot
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", instrument.Symbol.String()).
		SetResult(&book).
		ForceContentType("application/json").
		Get("/book/top")
	if err != nil {
		return nil, fmt.Errorf("clob book fetch: %w", err)
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("clob book fetch: status %d", resp.StatusCode())
	}

	if book.BestBid == "" || book.BestAsk == "" {
		return nil, nil
	}
	bid, err := decimal.NewFromString(book.BestBid)
	if err != nil {
		return nil, fmt.Errorf("clob book bid: %w", err)
	}
	ask, err := decimal.NewFromString(book.BestAsk)
	if err != nil {
		return nil, fmt.Errorf("clob book ask: %w", err)
	}
	if !bid.IsPositive() || !ask.IsPositive() || ask.LessThan(bid) {
		return nil, nil
	}

	sum, err := types.SafeAdd(bid, ask)
	if err != nil {
		return nil, err
	}
	mid, err := types.SafeDiv(sum, decimal.New(2, 0))
	if err != nil {
		return nil, err
	}
	price, err := types.NewPrice(mid)
	if err != nil {
		return nil, err
	}
	return &Reference{Price: price, Source: types.ClobMid}, nil
}
