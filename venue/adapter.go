package venue

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// VENUE ADAPTER CONTRACT
// ═══════════════════════════════════════════════════════════════════════════════
//
// The capability surface the engine consumes from every liquidity source:
// request a quote, execute against a quote, report health. Implementations
// own their transport; the engine owns deadlines and retries.
//
// ═══════════════════════════════════════════════════════════════════════════════

// HealthStatus is a venue's reported operational state.
type HealthStatus uint8

const (
	Healthy HealthStatus = iota
	Degraded
	Unhealthy
	UnknownHealth
)

func (s HealthStatus) String() string {
	switch s {
	case Healthy:
		return "HEALTHY"
	case Degraded:
		return "DEGRADED"
	case Unhealthy:
		return "UNHEALTHY"
	default:
		return "UNKNOWN"
	}
}

// Health is the result of a venue health check.
type Health struct {
	VenueID   types.VenueID   `json:"venue_id"`
	Status    HealthStatus    `json:"status"`
	LatencyMs *uint64         `json:"latency_ms,omitempty"`
	Message   string          `json:"message,omitempty"`
	CheckedAt types.Timestamp `json:"checked_at"`
}

// HealthyVenue returns a healthy check result.
func HealthyVenue(id types.VenueID) Health {
	return Health{VenueID: id, Status: Healthy, CheckedAt: types.Now()}
}

// HealthyVenueWithLatency returns a healthy check result carrying latency.
func HealthyVenueWithLatency(id types.VenueID, latencyMs uint64) Health {
	h := HealthyVenue(id)
	h.LatencyMs = &latencyMs
	return h
}

// DegradedVenue returns a degraded check result.
func DegradedVenue(id types.VenueID, message string) Health {
	return Health{VenueID: id, Status: Degraded, Message: message, CheckedAt: types.Now()}
}

// UnhealthyVenue returns an unhealthy check result.
func UnhealthyVenue(id types.VenueID, message string) Health {
	return Health{VenueID: id, Status: Unhealthy, Message: message, CheckedAt: types.Now()}
}

// UnknownVenue returns an unknown check result.
func UnknownVenue(id types.VenueID) Health {
	return Health{VenueID: id, Status: UnknownHealth, CheckedAt: types.Now()}
}

// IsOperational reports whether the venue can take requests.
func (h Health) IsOperational() bool {
	return h.Status == Healthy || h.Status == Degraded
}

// ExecutionResult is a venue's confirmation of an executed trade.
type ExecutionResult struct {
	TradeID          types.TradeID          `json:"trade_id"`
	QuoteID          types.QuoteID          `json:"quote_id"`
	VenueID          types.VenueID          `json:"venue_id"`
	ExecutionPrice   types.Price            `json:"execution_price"`
	ExecutedQuantity types.Quantity         `json:"executed_quantity"`
	Settlement       types.SettlementMethod `json:"settlement"`
	VenueExecutionID string                 `json:"venue_execution_id,omitempty"`
	TxHash           string                 `json:"tx_hash,omitempty"`
	ExecutedAt       types.Timestamp        `json:"executed_at"`
}

// NotionalValue returns execution price × executed quantity, checked.
func (r ExecutionResult) NotionalValue() (decimal.Decimal, error) {
	return r.ExecutionPrice.SafeMulQty(r.ExecutedQuantity)
}

func (r ExecutionResult) String() string {
	return fmt.Sprintf("Execution[%s] venue=%s price=%s qty=%s",
		r.TradeID, r.VenueID, r.ExecutionPrice, r.ExecutedQuantity)
}

// Adapter is the venue capability set consumed by the aggregation engine and
// the execution orchestrator.
type Adapter interface {
	// VenueID returns the adapter's venue identifier.
	VenueID() types.VenueID

	// TimeoutMs returns the venue's own request timeout budget.
	TimeoutMs() uint64

	// RequestQuote solicits a firm quote for the RFQ.
	RequestQuote(ctx context.Context, rfq *domain.Rfq) (*domain.Quote, error)

	// ExecuteTrade executes against a previously received quote.
	ExecuteTrade(ctx context.Context, quote *domain.Quote) (*ExecutionResult, error)

	// HealthCheck probes the venue.
	HealthCheck(ctx context.Context) (Health, error)
}
