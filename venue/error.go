package venue

import (
	"fmt"

	"github.com/Layer-V/otc-rfq/types"
)

// ErrorKind tags the venue error taxonomy.
type ErrorKind uint8

const (
	ErrTimeout ErrorKind = iota
	ErrConnection
	ErrAuthentication
	ErrRateLimited
	ErrInvalidRequest
	ErrQuoteUnavailable
	ErrInsufficientLiquidity
	ErrExecutionFailed
	ErrQuoteExpired
	ErrVenueUnavailable
	ErrProtocol
	ErrInternal
	ErrUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case ErrTimeout:
		return "TIMEOUT"
	case ErrConnection:
		return "CONNECTION"
	case ErrAuthentication:
		return "AUTHENTICATION"
	case ErrRateLimited:
		return "RATE_LIMITED"
	case ErrInvalidRequest:
		return "INVALID_REQUEST"
	case ErrQuoteUnavailable:
		return "QUOTE_UNAVAILABLE"
	case ErrInsufficientLiquidity:
		return "INSUFFICIENT_LIQUIDITY"
	case ErrExecutionFailed:
		return "EXECUTION_FAILED"
	case ErrQuoteExpired:
		return "QUOTE_EXPIRED"
	case ErrVenueUnavailable:
		return "VENUE_UNAVAILABLE"
	case ErrProtocol:
		return "PROTOCOL_ERROR"
	case ErrInternal:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Error is a typed venue failure. TimeoutMs, RetryAfterMs, ErrorCode and
// VenueID are populated only for the kinds that carry them.
type Error struct {
	Kind         ErrorKind
	Message      string
	TimeoutMs    uint64
	RetryAfterMs uint64
	ErrorCode    string
	VenueID      types.VenueID
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrVenueUnavailable:
		return fmt.Sprintf("%s: venue %s: %s", e.Kind, e.VenueID, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// IsRetryable reports whether the caller may retry the operation.
func (e *Error) IsRetryable() bool {
	switch e.Kind {
	case ErrTimeout, ErrConnection, ErrRateLimited, ErrVenueUnavailable:
		return true
	default:
		return false
	}
}

// IsClientError reports failures caused by the request itself.
func (e *Error) IsClientError() bool {
	switch e.Kind {
	case ErrInvalidRequest, ErrAuthentication:
		return true
	default:
		return false
	}
}

// NewTimeout builds a timeout error.
func NewTimeout(message string, timeoutMs uint64) *Error {
	return &Error{Kind: ErrTimeout, Message: message, TimeoutMs: timeoutMs}
}

// NewConnection builds a connection error.
func NewConnection(message string) *Error {
	return &Error{Kind: ErrConnection, Message: message}
}

// NewAuthentication builds an authentication error.
func NewAuthentication(message string) *Error {
	return &Error{Kind: ErrAuthentication, Message: message}
}

// NewRateLimited builds a rate-limit error with an optional retry hint.
func NewRateLimited(message string, retryAfterMs uint64) *Error {
	return &Error{Kind: ErrRateLimited, Message: message, RetryAfterMs: retryAfterMs}
}

// NewInvalidRequest builds an invalid-request error.
func NewInvalidRequest(message string) *Error {
	return &Error{Kind: ErrInvalidRequest, Message: message}
}

// NewQuoteUnavailable builds a quote-unavailable error.
func NewQuoteUnavailable(message string) *Error {
	return &Error{Kind: ErrQuoteUnavailable, Message: message}
}

// NewInsufficientLiquidity builds an insufficient-liquidity error.
func NewInsufficientLiquidity(message string) *Error {
	return &Error{Kind: ErrInsufficientLiquidity, Message: message}
}

// NewExecutionFailed builds an execution-failure error with an optional code.
func NewExecutionFailed(message, code string) *Error {
	return &Error{Kind: ErrExecutionFailed, Message: message, ErrorCode: code}
}

// NewQuoteExpired builds a quote-expired error.
func NewQuoteExpired(message string) *Error {
	return &Error{Kind: ErrQuoteExpired, Message: message}
}

// NewVenueUnavailable builds a venue-unavailable error.
func NewVenueUnavailable(venueID types.VenueID, message string) *Error {
	return &Error{Kind: ErrVenueUnavailable, Message: message, VenueID: venueID}
}

// NewProtocolError builds a protocol error.
func NewProtocolError(message string) *Error {
	return &Error{Kind: ErrProtocol, Message: message}
}

// NewInternalError builds an internal error.
func NewInternalError(message string) *Error {
	return &Error{Kind: ErrInternal, Message: message}
}

// NewUnknown builds an unknown error.
func NewUnknown(message string) *Error {
	return &Error{Kind: ErrUnknown, Message: message}
}
