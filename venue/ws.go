package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// WEBSOCKET VENUE ADAPTER
// ═══════════════════════════════════════════════════════════════════════════════
//
// Streaming adapter for RFQ-protocol venues speaking a JSON request/response
// protocol over a persistent socket. Responses correlate to requests by
// request id; one reader goroutine dispatches to per-request channels.
//
// ═══════════════════════════════════════════════════════════════════════════════

type wsMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`

	// rfq_quote request fields
	RfqID    string `json:"rfq_id,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Side     string `json:"side,omitempty"`
	Quantity string `json:"quantity,omitempty"`

	// quote / execution response fields
	Price       string `json:"price,omitempty"`
	RespQty     string `json:"resp_quantity,omitempty"`
	ValidUntil  string `json:"valid_until,omitempty"`
	ExecutionID string `json:"execution_id,omitempty"`
	TxHash      string `json:"tx_hash,omitempty"`

	// error fields
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// WSAdapter talks to a streaming RFQ-protocol venue.
type WSAdapter struct {
	venueID    types.VenueID
	url        string
	timeoutMs  uint64
	settlement types.SettlementMethod

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan wsMessage
	nextID  uint64
	closed  bool
}

// NewWSAdapter builds a WebSocket adapter for the given endpoint. The socket
// is dialed lazily on first use.
func NewWSAdapter(venueID types.VenueID, url string, timeoutMs uint64, settlement types.SettlementMethod) *WSAdapter {
	return &WSAdapter{
		venueID:    venueID,
		url:        url,
		timeoutMs:  timeoutMs,
		settlement: settlement,
		pending:    make(map[string]chan wsMessage),
	}
}

// VenueID returns the adapter's venue identifier.
func (a *WSAdapter) VenueID() types.VenueID { return a.venueID }

// TimeoutMs returns the venue's request timeout budget.
func (a *WSAdapter) TimeoutMs() uint64 { return a.timeoutMs }

// Close shuts the socket down.
func (a *WSAdapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}
}

func (a *WSAdapter) ensureConnected(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return NewVenueUnavailable(a.venueID, "adapter closed")
	}
	if a.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: time.Duration(a.timeoutMs) * time.Millisecond}
	conn, _, err := dialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return NewConnection(fmt.Sprintf("dial %s: %v", a.url, err))
	}
	a.conn = conn
	go a.readLoop(conn)

	log.Info().Str("venue", a.venueID.String()).Str("url", a.url).Msg("Venue socket connected")
	return nil
}

func (a *WSAdapter) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			a.mu.Lock()
			if a.conn == conn {
				a.conn = nil
			}
			for id, ch := range a.pending {
				close(ch)
				delete(a.pending, id)
			}
			a.mu.Unlock()
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Str("venue", a.venueID.String()).Err(err).Msg("Bad frame from venue")
			continue
		}

		a.mu.Lock()
		ch, ok := a.pending[msg.RequestID]
		if ok {
			delete(a.pending, msg.RequestID)
		}
		a.mu.Unlock()

		if ok {
			ch <- msg
			close(ch)
		}
	}
}

func (a *WSAdapter) roundTrip(ctx context.Context, msg wsMessage) (wsMessage, error) {
	if err := a.ensureConnected(ctx); err != nil {
		return wsMessage{}, err
	}

	a.mu.Lock()
	a.nextID++
	msg.RequestID = fmt.Sprintf("%s-%d", a.venueID, a.nextID)
	ch := make(chan wsMessage, 1)
	a.pending[msg.RequestID] = ch
	conn := a.conn
	a.mu.Unlock()

	if conn == nil {
		return wsMessage{}, NewConnection("socket lost before write")
	}
	// One writer at a time on the socket.
	a.writeMu.Lock()
	err := conn.WriteJSON(msg)
	a.writeMu.Unlock()
	if err != nil {
		a.mu.Lock()
		delete(a.pending, msg.RequestID)
		a.mu.Unlock()
		return wsMessage{}, NewConnection(fmt.Sprintf("write: %v", err))
	}

	select {
	case <-ctx.Done():
		a.mu.Lock()
		delete(a.pending, msg.RequestID)
		a.mu.Unlock()
		return wsMessage{}, NewTimeout("venue response deadline exceeded", a.timeoutMs)
	case resp, ok := <-ch:
		if !ok {
			return wsMessage{}, NewConnection("socket closed while awaiting response")
		}
		return resp, nil
	}
}

func (a *WSAdapter) mapError(msg wsMessage) error {
	switch msg.Code {
	case "QUOTE_UNAVAILABLE":
		return NewQuoteUnavailable(msg.Message)
	case "QUOTE_EXPIRED":
		return NewQuoteExpired(msg.Message)
	case "INSUFFICIENT_LIQUIDITY":
		return NewInsufficientLiquidity(msg.Message)
	case "RATE_LIMITED":
		return NewRateLimited(msg.Message, 0)
	case "INVALID_REQUEST":
		return NewInvalidRequest(msg.Message)
	case "EXECUTION_FAILED":
		return NewExecutionFailed(msg.Message, msg.Code)
	default:
		return NewProtocolError(fmt.Sprintf("venue error %s: %s", msg.Code, msg.Message))
	}
}

// RequestQuote solicits a firm quote over the socket.
func (a *WSAdapter) RequestQuote(ctx context.Context, rfq *domain.Rfq) (*domain.Quote, error) {
	resp, err := a.roundTrip(ctx, wsMessage{
		Type:     "rfq_quote",
		RfqID:    rfq.ID().String(),
		Symbol:   rfq.Instrument().Symbol.String(),
		Side:     rfq.Side().String(),
		Quantity: rfq.Quantity().String(),
	})
	if err != nil {
		return nil, err
	}
	if resp.Type == "error" {
		return nil, a.mapError(resp)
	}

	price, err := types.NewPriceFromString(resp.Price)
	if err != nil {
		return nil, NewProtocolError(fmt.Sprintf("bad price in frame: %v", err))
	}
	quantity, err := types.NewQuantityFromString(resp.RespQty)
	if err != nil {
		return nil, NewProtocolError(fmt.Sprintf("bad quantity in frame: %v", err))
	}
	validUntil, err := types.ParseISO8601(resp.ValidUntil)
	if err != nil {
		return nil, NewProtocolError(fmt.Sprintf("bad valid_until in frame: %v", err))
	}

	quote, err := domain.NewQuote(rfq.ID(), a.venueID, price, quantity, validUntil)
	if err != nil {
		return nil, NewProtocolError(fmt.Sprintf("venue returned unusable quote: %v", err))
	}
	return quote, nil
}

// ExecuteTrade executes against a quote over the socket.
func (a *WSAdapter) ExecuteTrade(ctx context.Context, quote *domain.Quote) (*ExecutionResult, error) {
	resp, err := a.roundTrip(ctx, wsMessage{
		Type:     "rfq_execute",
		RfqID:    quote.RfqID.String(),
		Price:    quote.Price.String(),
		Quantity: quote.Quantity.String(),
	})
	if err != nil {
		return nil, err
	}
	if resp.Type == "error" {
		return nil, a.mapError(resp)
	}

	price, err := types.NewPriceFromString(resp.Price)
	if err != nil {
		return nil, NewProtocolError(fmt.Sprintf("bad price in frame: %v", err))
	}
	quantity, err := types.NewQuantityFromString(resp.RespQty)
	if err != nil {
		return nil, NewProtocolError(fmt.Sprintf("bad quantity in frame: %v", err))
	}

	return &ExecutionResult{
		TradeID:          types.NewTradeID(),
		QuoteID:          quote.ID,
		VenueID:          a.venueID,
		ExecutionPrice:   price,
		ExecutedQuantity: quantity,
		Settlement:       a.settlement,
		VenueExecutionID: resp.ExecutionID,
		TxHash:           resp.TxHash,
		ExecutedAt:       types.Now(),
	}, nil
}

// HealthCheck pings the socket endpoint.
func (a *WSAdapter) HealthCheck(ctx context.Context) (Health, error) {
	started := time.Now()
	resp, err := a.roundTrip(ctx, wsMessage{Type: "ping"})
	if err != nil {
		return UnhealthyVenue(a.venueID, err.Error()), nil
	}
	if resp.Type == "error" {
		return DegradedVenue(a.venueID, resp.Message), nil
	}
	return HealthyVenueWithLatency(a.venueID, uint64(time.Since(started).Milliseconds())), nil
}
