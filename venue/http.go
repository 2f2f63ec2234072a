package venue

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// HTTP VENUE ADAPTER
// ═══════════════════════════════════════════════════════════════════════════════
//
// JSON-over-HTTP adapter for market makers and DEX aggregators exposing a
// quote/execute REST surface:
//
//   POST {base}/rfq/quote    → quote response
//   POST {base}/rfq/execute  → execution response
//   GET  {base}/health       → health response
//
// Quote requests get a small in-adapter retry budget for retryable transport
// failures and 429 responses; other status codes, executions and health
// checks are not retried. Everything maps onto the venue error taxonomy.
//
// ═══════════════════════════════════════════════════════════════════════════════

type quoteRequest struct {
	RfqID      string `json:"rfq_id"`
	Symbol     string `json:"symbol"`
	AssetClass string `json:"asset_class"`
	Side       string `json:"side"`
	Quantity   string `json:"quantity"`
	ExpiresAt  string `json:"expires_at"`
}

type quoteResponse struct {
	Price      string `json:"price"`
	Quantity   string `json:"quantity"`
	Commission string `json:"commission,omitempty"`
	ValidUntil string `json:"valid_until"`
}

type executeRequest struct {
	QuoteID  string `json:"quote_id"`
	RfqID    string `json:"rfq_id"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

type executeResponse struct {
	ExecutionID string `json:"execution_id"`
	Price       string `json:"price"`
	Quantity    string `json:"quantity"`
	TxHash      string `json:"tx_hash,omitempty"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HTTPAdapter talks to a REST quote venue.
type HTTPAdapter struct {
	venueID    types.VenueID
	client     *resty.Client
	timeoutMs  uint64
	maxRetries int
	settlement types.SettlementMethod
}

// NewHTTPAdapter builds an adapter for the given base URL.
func NewHTTPAdapter(venueID types.VenueID, baseURL, apiKey string, timeoutMs uint64, settlement types.SettlementMethod) *HTTPAdapter {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(time.Duration(timeoutMs) * time.Millisecond).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetHeader("X-API-Key", apiKey)
	}

	return &HTTPAdapter{
		venueID:    venueID,
		client:     client,
		timeoutMs:  timeoutMs,
		maxRetries: 2,
		settlement: settlement,
	}
}

// VenueID returns the adapter's venue identifier.
func (a *HTTPAdapter) VenueID() types.VenueID { return a.venueID }

// TimeoutMs returns the venue's request timeout budget.
func (a *HTTPAdapter) TimeoutMs() uint64 { return a.timeoutMs }

// RequestQuote solicits a firm quote over HTTP.
func (a *HTTPAdapter) RequestQuote(ctx context.Context, rfq *domain.Rfq) (*domain.Quote, error) {
	req := quoteRequest{
		RfqID:      rfq.ID().String(),
		Symbol:     rfq.Instrument().Symbol.String(),
		AssetClass: rfq.Instrument().AssetClass.String(),
		Side:       rfq.Side().String(),
		Quantity:   rfq.Quantity().String(),
		ExpiresAt:  rfq.ExpiresAt().ISO8601(),
	}

	var body quoteResponse
	resp, err := a.doWithRetry(ctx, func() (*resty.Response, error) {
		return a.client.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&body).
			SetError(&errorResponse{}).
			ForceContentType("application/json").
			Post("/rfq/quote")
	})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, a.mapStatus(resp)
	}

	price, err := types.NewPriceFromString(body.Price)
	if err != nil {
		return nil, NewProtocolError(fmt.Sprintf("bad price in quote response: %v", err))
	}
	quantity, err := types.NewQuantityFromString(body.Quantity)
	if err != nil {
		return nil, NewProtocolError(fmt.Sprintf("bad quantity in quote response: %v", err))
	}
	validUntil, err := types.ParseISO8601(body.ValidUntil)
	if err != nil {
		return nil, NewProtocolError(fmt.Sprintf("bad valid_until in quote response: %v", err))
	}

	quote, err := domain.NewQuote(rfq.ID(), a.venueID, price, quantity, validUntil)
	if err != nil {
		return nil, NewProtocolError(fmt.Sprintf("venue returned unusable quote: %v", err))
	}

	log.Debug().
		Str("venue", a.venueID.String()).
		Str("rfq", rfq.ID().String()).
		Str("price", price.String()).
		Msg("Quote received")

	return quote, nil
}

// ExecuteTrade executes against a quote over HTTP.
func (a *HTTPAdapter) ExecuteTrade(ctx context.Context, quote *domain.Quote) (*ExecutionResult, error) {
	req := executeRequest{
		QuoteID:  quote.ID.String(),
		RfqID:    quote.RfqID.String(),
		Price:    quote.Price.String(),
		Quantity: quote.Quantity.String(),
	}

	var body executeResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&body).
		SetError(&errorResponse{}).
		ForceContentType("application/json").
		Post("/rfq/execute")
	if err != nil {
		return nil, a.mapTransportError(err)
	}
	if resp.IsError() {
		return nil, a.mapStatus(resp)
	}

	price, err := types.NewPriceFromString(body.Price)
	if err != nil {
		return nil, NewProtocolError(fmt.Sprintf("bad price in execution response: %v", err))
	}
	quantity, err := types.NewQuantityFromString(body.Quantity)
	if err != nil {
		return nil, NewProtocolError(fmt.Sprintf("bad quantity in execution response: %v", err))
	}

	return &ExecutionResult{
		TradeID:          types.NewTradeID(),
		QuoteID:          quote.ID,
		VenueID:          a.venueID,
		ExecutionPrice:   price,
		ExecutedQuantity: quantity,
		Settlement:       a.settlement,
		VenueExecutionID: body.ExecutionID,
		TxHash:           body.TxHash,
		ExecutedAt:       types.Now(),
	}, nil
}

// HealthCheck probes the venue's health endpoint.
func (a *HTTPAdapter) HealthCheck(ctx context.Context) (Health, error) {
	started := time.Now()

	var body healthResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&body).
		ForceContentType("application/json").
		Get("/health")
	if err != nil {
		return UnhealthyVenue(a.venueID, err.Error()), nil
	}

	latencyMs := uint64(time.Since(started).Milliseconds())
	if resp.IsError() {
		return UnhealthyVenue(a.venueID, fmt.Sprintf("status %d", resp.StatusCode())), nil
	}

	switch body.Status {
	case "DEGRADED":
		return DegradedVenue(a.venueID, body.Message), nil
	case "UNHEALTHY":
		return UnhealthyVenue(a.venueID, body.Message), nil
	default:
		return HealthyVenueWithLatency(a.venueID, latencyMs), nil
	}
}

func (a *HTTPAdapter) doWithRetry(ctx context.Context, call func() (*resty.Response, error)) (*resty.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, NewTimeout("request cancelled", a.timeoutMs)
			case <-time.After(time.Duration(100*attempt) * time.Millisecond):
			}
		}

		resp, err := call()
		if err != nil {
			lastErr = a.mapTransportError(err)
			if ve, ok := lastErr.(*Error); ok && ve.IsRetryable() {
				continue
			}
			return nil, lastErr
		}
		if resp.StatusCode() == http.StatusTooManyRequests && attempt < a.maxRetries {
			lastErr = a.mapStatus(resp)
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

func (a *HTTPAdapter) mapTransportError(err error) error {
	if isTimeout(err) {
		return NewTimeout(err.Error(), a.timeoutMs)
	}
	return NewConnection(err.Error())
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	for e := err; e != nil; {
		if t, ok := e.(timeouter); ok && t.Timeout() {
			return true
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := e.(unwrapper)
		if !ok {
			return false
		}
		e = u.Unwrap()
	}
	return false
}

func (a *HTTPAdapter) mapStatus(resp *resty.Response) error {
	message := resp.Status()
	if body, ok := resp.Error().(*errorResponse); ok && body != nil && body.Message != "" {
		message = body.Message
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewAuthentication(message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return NewInvalidRequest(message)
	case http.StatusNotFound:
		return NewQuoteUnavailable(message)
	case http.StatusConflict:
		return NewQuoteExpired(message)
	case http.StatusTooManyRequests:
		retryAfter := uint64(0)
		if h := resp.Header().Get("Retry-After"); h != "" {
			if d, err := time.ParseDuration(h + "s"); err == nil {
				retryAfter = uint64(d.Milliseconds())
			}
		}
		return NewRateLimited(message, retryAfter)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return NewVenueUnavailable(a.venueID, message)
	case http.StatusGatewayTimeout:
		return NewTimeout(message, a.timeoutMs)
	default:
		if resp.StatusCode() >= 500 {
			return NewInternalError(message)
		}
		return NewUnknown(message)
	}
}
