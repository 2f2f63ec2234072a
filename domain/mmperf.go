package domain

import (
	"github.com/Layer-V/otc-rfq/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// MARKET MAKER PERFORMANCE
// ═══════════════════════════════════════════════════════════════════════════════
//
// Append-only per-MM event history folded into rolling-window metrics.
// Counters saturate; ratios over an empty denominator are nil.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultWindowDays is the default rolling metrics window.
	DefaultWindowDays = 7
	// DefaultMinResponseRatePct is the default eligibility threshold.
	DefaultMinResponseRatePct = 80.0
)

// MmEventKind tags a performance event.
type MmEventKind uint8

const (
	// MmRfqSent records an RFQ dispatched to the MM.
	MmRfqSent MmEventKind = iota
	// MmQuoteReceived records a quote, its response time and its rank.
	MmQuoteReceived
	// MmTradeExecuted records a completed trade with the MM.
	MmTradeExecuted
	// MmLastLookReject records a last-look rejection by the MM.
	MmLastLookReject
	// MmAcceptRequested records an acceptance sent to the MM (reject-rate denominator).
	MmAcceptRequested
)

func (k MmEventKind) String() string {
	switch k {
	case MmRfqSent:
		return "RFQ_SENT"
	case MmQuoteReceived:
		return "QUOTE_RECEIVED"
	case MmTradeExecuted:
		return "TRADE_EXECUTED"
	case MmLastLookReject:
		return "LAST_LOOK_REJECT"
	case MmAcceptRequested:
		return "ACCEPT_REQUESTED"
	default:
		return "RFQ_SENT"
	}
}

// MmPerformanceEvent is one append-only entry in an MM's history.
// ResponseTimeMs and Rank are meaningful only for MmQuoteReceived.
type MmPerformanceEvent struct {
	MmID           types.CounterpartyID `json:"mm_id"`
	Kind           MmEventKind          `json:"kind"`
	ResponseTimeMs uint64               `json:"response_time_ms,omitempty"`
	Rank           uint64               `json:"rank,omitempty"`
	Timestamp      types.Timestamp      `json:"timestamp"`
}

// InWindow reports whether the event falls inside [from, to].
func (e MmPerformanceEvent) InWindow(from, to types.Timestamp) bool {
	return !e.Timestamp.Before(from) && !e.Timestamp.After(to)
}

func satAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return ^uint64(0)
	}
	return sum
}

// MmPerformanceMetrics is the fold of an MM's events over a window.
// Ratio fields are nil when their denominator is zero.
type MmPerformanceMetrics struct {
	MmID        types.CounterpartyID `json:"mm_id"`
	WindowStart types.Timestamp      `json:"window_start"`
	WindowEnd   types.Timestamp      `json:"window_end"`

	RfqsSent         uint64 `json:"rfqs_sent"`
	QuotesProvided   uint64 `json:"quotes_provided"`
	TradesExecuted   uint64 `json:"trades_executed"`
	LastLookRejects  uint64 `json:"last_look_rejects"`
	AcceptsRequested uint64 `json:"accepts_requested"`

	ResponseRatePct      *float64 `json:"response_rate_pct,omitempty"`
	AvgResponseTimeMs    *float64 `json:"avg_response_time_ms,omitempty"`
	QuoteToTradePct      *float64 `json:"quote_to_trade_pct,omitempty"`
	CompetitivenessScore *float64 `json:"competitiveness_score,omitempty"`
	RejectRatePct        *float64 `json:"reject_rate_pct,omitempty"`
}

// ComputeMmMetrics folds the events whose timestamps lie in [windowStart,
// windowEnd] into the metric set. Counters use saturating addition.
func ComputeMmMetrics(mmID types.CounterpartyID, events []MmPerformanceEvent, windowStart, windowEnd types.Timestamp) MmPerformanceMetrics {
	var (
		rfqsSent         uint64
		quotesProvided   uint64
		tradesExecuted   uint64
		lastLookRejects  uint64
		acceptsRequested uint64
		totalResponseMs  uint64
		totalRank        uint64
	)

	for _, e := range events {
		if !e.InWindow(windowStart, windowEnd) {
			continue
		}
		switch e.Kind {
		case MmRfqSent:
			rfqsSent = satAdd(rfqsSent, 1)
		case MmQuoteReceived:
			quotesProvided = satAdd(quotesProvided, 1)
			totalResponseMs = satAdd(totalResponseMs, e.ResponseTimeMs)
			totalRank = satAdd(totalRank, e.Rank)
		case MmTradeExecuted:
			tradesExecuted = satAdd(tradesExecuted, 1)
		case MmLastLookReject:
			lastLookRejects = satAdd(lastLookRejects, 1)
		case MmAcceptRequested:
			acceptsRequested = satAdd(acceptsRequested, 1)
		}
	}

	m := MmPerformanceMetrics{
		MmID:             mmID,
		WindowStart:      windowStart,
		WindowEnd:        windowEnd,
		RfqsSent:         rfqsSent,
		QuotesProvided:   quotesProvided,
		TradesExecuted:   tradesExecuted,
		LastLookRejects:  lastLookRejects,
		AcceptsRequested: acceptsRequested,
	}

	if rfqsSent > 0 {
		v := 100 * float64(quotesProvided) / float64(rfqsSent)
		m.ResponseRatePct = &v
	}
	if quotesProvided > 0 {
		avg := float64(totalResponseMs) / float64(quotesProvided)
		m.AvgResponseTimeMs = &avg
		trade := 100 * float64(tradesExecuted) / float64(quotesProvided)
		m.QuoteToTradePct = &trade
		comp := float64(totalRank) / float64(quotesProvided)
		m.CompetitivenessScore = &comp
	}
	if acceptsRequested > 0 {
		v := 100 * float64(lastLookRejects) / float64(acceptsRequested)
		m.RejectRatePct = &v
	}
	return m
}

// IsEligible reports whether the MM meets the response-rate threshold. An MM
// with no RFQs in the window is eligible (nothing held against a new MM).
func (m MmPerformanceMetrics) IsEligible(minResponseRatePct float64) bool {
	if m.ResponseRatePct == nil {
		return true
	}
	return *m.ResponseRatePct >= minResponseRatePct
}
