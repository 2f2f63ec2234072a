package domain

import "strings"

// ─────────────────────────────────────────────────────────────────────────────
// RfqState
// ─────────────────────────────────────────────────────────────────────────────

// RfqState is a state in the RFQ lifecycle machine.
type RfqState uint8

const (
	RfqStateCreated RfqState = iota
	RfqQuoteRequesting
	RfqQuotesReceived
	RfqClientSelecting
	RfqExecuting
	RfqExecuted
	RfqFailed
	RfqStateCancelled
	RfqStateExpired
)

// IsTerminal reports whether no further transitions are permitted.
func (s RfqState) IsTerminal() bool {
	switch s {
	case RfqExecuted, RfqFailed, RfqStateCancelled, RfqStateExpired:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the FSM permits the edge s → target.
func (s RfqState) CanTransitionTo(target RfqState) bool {
	switch s {
	case RfqStateCreated:
		switch target {
		case RfqQuoteRequesting, RfqStateCancelled, RfqStateExpired:
			return true
		}
	case RfqQuoteRequesting:
		switch target {
		case RfqQuotesReceived, RfqFailed, RfqStateCancelled, RfqStateExpired:
			return true
		}
	case RfqQuotesReceived:
		switch target {
		case RfqQuotesReceived, RfqClientSelecting, RfqFailed, RfqStateCancelled, RfqStateExpired:
			return true
		}
	case RfqClientSelecting:
		switch target {
		case RfqExecuting, RfqFailed, RfqStateCancelled, RfqStateExpired:
			return true
		}
	case RfqExecuting:
		switch target {
		case RfqExecuted, RfqFailed:
			return true
		}
	}
	return false
}

func (s RfqState) String() string {
	switch s {
	case RfqStateCreated:
		return "CREATED"
	case RfqQuoteRequesting:
		return "QUOTE_REQUESTING"
	case RfqQuotesReceived:
		return "QUOTES_RECEIVED"
	case RfqClientSelecting:
		return "CLIENT_SELECTING"
	case RfqExecuting:
		return "EXECUTING"
	case RfqExecuted:
		return "EXECUTED"
	case RfqFailed:
		return "FAILED"
	case RfqStateCancelled:
		return "CANCELLED"
	case RfqStateExpired:
		return "EXPIRED"
	default:
		return "CREATED"
	}
}

// MarshalText encodes the wire tag.
func (s RfqState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes the wire tag.
func (s *RfqState) UnmarshalText(data []byte) error {
	switch strings.ToUpper(string(data)) {
	case "CREATED":
		*s = RfqStateCreated
	case "QUOTE_REQUESTING":
		*s = RfqQuoteRequesting
	case "QUOTES_RECEIVED":
		*s = RfqQuotesReceived
	case "CLIENT_SELECTING":
		*s = RfqClientSelecting
	case "EXECUTING":
		*s = RfqExecuting
	case "EXECUTED":
		*s = RfqExecuted
	case "FAILED":
		*s = RfqFailed
	case "CANCELLED":
		*s = RfqStateCancelled
	case "EXPIRED":
		*s = RfqStateExpired
	default:
		return &ValidationError{Reason: "unknown RFQ state " + string(data)}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// NegotiationState
// ─────────────────────────────────────────────────────────────────────────────

// NegotiationState is a state in the negotiation lifecycle machine.
type NegotiationState uint8

const (
	NegotiationOpen NegotiationState = iota
	NegotiationCounterPending
	NegotiationAccepted
	NegotiationRejected
	NegotiationExpired
)

// IsTerminal reports whether no further transitions are permitted.
func (s NegotiationState) IsTerminal() bool {
	switch s {
	case NegotiationAccepted, NegotiationRejected, NegotiationExpired:
		return true
	default:
		return false
	}
}

// IsActive reports whether the negotiation can still advance.
func (s NegotiationState) IsActive() bool { return !s.IsTerminal() }

// CanTransitionTo reports whether the FSM permits the edge s → target.
func (s NegotiationState) CanTransitionTo(target NegotiationState) bool {
	switch s {
	case NegotiationOpen:
		switch target {
		case NegotiationCounterPending, NegotiationAccepted, NegotiationRejected, NegotiationExpired:
			return true
		}
	case NegotiationCounterPending:
		switch target {
		case NegotiationOpen, NegotiationAccepted, NegotiationRejected, NegotiationExpired:
			return true
		}
	}
	return false
}

func (s NegotiationState) String() string {
	switch s {
	case NegotiationOpen:
		return "OPEN"
	case NegotiationCounterPending:
		return "COUNTER_PENDING"
	case NegotiationAccepted:
		return "ACCEPTED"
	case NegotiationRejected:
		return "REJECTED"
	case NegotiationExpired:
		return "EXPIRED"
	default:
		return "OPEN"
	}
}

// MarshalText encodes the wire tag.
func (s NegotiationState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes the wire tag.
func (s *NegotiationState) UnmarshalText(data []byte) error {
	switch strings.ToUpper(string(data)) {
	case "OPEN":
		*s = NegotiationOpen
	case "COUNTER_PENDING":
		*s = NegotiationCounterPending
	case "ACCEPTED":
		*s = NegotiationAccepted
	case "REJECTED":
		*s = NegotiationRejected
	case "EXPIRED":
		*s = NegotiationExpired
	default:
		return &ValidationError{Reason: "unknown negotiation state " + string(data)}
	}
	return nil
}
