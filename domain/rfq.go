package domain

import (
	"fmt"

	"github.com/Layer-V/otc-rfq/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// RFQ AGGREGATE
// ═══════════════════════════════════════════════════════════════════════════════
//
// Lifecycle:
//   Created → QuoteRequesting → QuotesReceived → ClientSelecting → Executing
//                                                                  → Executed
//   any non-terminal state except Created → Failed;
//   pre-execution states → Cancelled | Expired
//
// All operations are serialized by the aggregate owner; the version counter
// increments on every mutating transition and backs optimistic locking.
//
// ═══════════════════════════════════════════════════════════════════════════════

// ComplianceResult records the outcome of a pre-trade compliance check.
type ComplianceResult struct {
	Passed    bool            `json:"passed"`
	Reason    string          `json:"reason,omitempty"`
	CheckedAt types.Timestamp `json:"checked_at"`
}

// CompliancePassed returns a passing compliance result.
func CompliancePassed() ComplianceResult {
	return ComplianceResult{Passed: true, CheckedAt: types.Now()}
}

// ComplianceFailed returns a failing compliance result with a reason.
func ComplianceFailed(reason string) ComplianceResult {
	return ComplianceResult{Passed: false, Reason: reason, CheckedAt: types.Now()}
}

// Rfq is the request-for-quote aggregate root. It exclusively owns its quotes.
type Rfq struct {
	id            types.RfqID
	clientID      types.CounterpartyID
	instrument    types.Instrument
	side          types.OrderSide
	quantity      types.Quantity
	expiresAt     types.Timestamp
	quotes        []*Quote
	selectedQuote *types.QuoteID
	compliance    *ComplianceResult
	failureReason string
	state         RfqState
	version       uint64
	createdAt     types.Timestamp
	updatedAt     types.Timestamp
}

// NewRfq validates inputs and creates an RFQ in the Created state at version 1.
func NewRfq(clientID types.CounterpartyID, instrument types.Instrument, side types.OrderSide, quantity types.Quantity, expiresAt types.Timestamp) (*Rfq, error) {
	if clientID == "" {
		return nil, &ValidationError{Reason: "client id must not be empty"}
	}
	if !quantity.IsPositive() {
		return nil, &InvalidQuantityError{Reason: "requested quantity must be positive"}
	}
	now := types.Now()
	if !expiresAt.After(now) {
		return nil, &ValidationError{Reason: "expires_at must be in the future"}
	}

	return &Rfq{
		id:         types.NewRfqID(),
		clientID:   clientID,
		instrument: instrument,
		side:       side,
		quantity:   quantity,
		expiresAt:  expiresAt,
		state:      RfqStateCreated,
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// RestoreRfq rebuilds an aggregate from persisted parts, bypassing creation
// validation. Used by repositories and event replay.
func RestoreRfq(
	id types.RfqID,
	clientID types.CounterpartyID,
	instrument types.Instrument,
	side types.OrderSide,
	quantity types.Quantity,
	expiresAt types.Timestamp,
	quotes []*Quote,
	selectedQuote *types.QuoteID,
	compliance *ComplianceResult,
	failureReason string,
	state RfqState,
	version uint64,
	createdAt, updatedAt types.Timestamp,
) *Rfq {
	return &Rfq{
		id:            id,
		clientID:      clientID,
		instrument:    instrument,
		side:          side,
		quantity:      quantity,
		expiresAt:     expiresAt,
		quotes:        quotes,
		selectedQuote: selectedQuote,
		compliance:    compliance,
		failureReason: failureReason,
		state:         state,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

func (r *Rfq) transitionTo(target RfqState) error {
	if !r.state.CanTransitionTo(target) {
		return &InvalidStateTransitionError{From: r.state, To: target}
	}
	r.state = target
	r.version++
	r.updatedAt = types.Now()
	return nil
}

// ID returns the aggregate identifier.
func (r *Rfq) ID() types.RfqID { return r.id }

// ClientID returns the requesting counterparty.
func (r *Rfq) ClientID() types.CounterpartyID { return r.clientID }

// Instrument returns the instrument under quote.
func (r *Rfq) Instrument() types.Instrument { return r.instrument }

// Side returns the order side.
func (r *Rfq) Side() types.OrderSide { return r.side }

// Quantity returns the requested quantity.
func (r *Rfq) Quantity() types.Quantity { return r.quantity }

// ExpiresAt returns the request deadline.
func (r *Rfq) ExpiresAt() types.Timestamp { return r.expiresAt }

// State returns the current lifecycle state.
func (r *Rfq) State() RfqState { return r.state }

// Version returns the optimistic-locking version counter.
func (r *Rfq) Version() uint64 { return r.version }

// CreatedAt returns the creation instant.
func (r *Rfq) CreatedAt() types.Timestamp { return r.createdAt }

// UpdatedAt returns the last mutation instant.
func (r *Rfq) UpdatedAt() types.Timestamp { return r.updatedAt }

// Quotes returns the attached quotes in arrival order.
func (r *Rfq) Quotes() []*Quote { return r.quotes }

// QuoteCount returns the number of attached quotes.
func (r *Rfq) QuoteCount() int { return len(r.quotes) }

// FailureReason returns the recorded failure reason, if any.
func (r *Rfq) FailureReason() string { return r.failureReason }

// Compliance returns the attached compliance result, if any.
func (r *Rfq) Compliance() *ComplianceResult { return r.compliance }

// SelectedQuoteID returns the selected quote id, if a selection was made.
func (r *Rfq) SelectedQuoteID() *types.QuoteID { return r.selectedQuote }

// SelectedQuote returns the selected quote, if a selection was made.
func (r *Rfq) SelectedQuote() *Quote {
	if r.selectedQuote == nil {
		return nil
	}
	return r.findQuote(*r.selectedQuote)
}

func (r *Rfq) findQuote(id types.QuoteID) *Quote {
	for _, q := range r.quotes {
		if q.ID == id {
			return q
		}
	}
	return nil
}

// IsActive reports whether the RFQ is in a non-terminal state.
func (r *Rfq) IsActive() bool { return !r.state.IsTerminal() }

// IsExpired reports whether the request deadline has passed.
func (r *Rfq) IsExpired() bool { return !r.expiresAt.After(types.Now()) }

// StartQuoteCollection moves Created → QuoteRequesting.
func (r *Rfq) StartQuoteCollection() error {
	return r.transitionTo(RfqQuoteRequesting)
}

// ReceiveQuote attaches a quote. The first quote moves QuoteRequesting →
// QuotesReceived; further quotes append in QuotesReceived.
func (r *Rfq) ReceiveQuote(q *Quote) error {
	if q.RfqID != r.id {
		return &ValidationError{Reason: "quote does not belong to this RFQ"}
	}
	if q.IsExpired() {
		return &QuoteExpiredError{Reason: fmt.Sprintf("quote %s expired before receipt", q.ID)}
	}

	switch r.state {
	case RfqQuoteRequesting:
		if err := r.transitionTo(RfqQuotesReceived); err != nil {
			return err
		}
		r.quotes = append(r.quotes, q)
		return nil
	case RfqQuotesReceived:
		r.quotes = append(r.quotes, q)
		r.version++
		r.updatedAt = types.Now()
		return nil
	default:
		return &InvalidStateTransitionError{From: r.state, To: RfqQuotesReceived}
	}
}

// SelectQuote records the client's selection and moves to ClientSelecting.
// The referenced quote must exist and must not be expired at selection time.
func (r *Rfq) SelectQuote(id types.QuoteID) error {
	if r.state != RfqQuotesReceived {
		return &InvalidStateTransitionError{From: r.state, To: RfqClientSelecting}
	}
	quote := r.findQuote(id)
	if quote == nil {
		return ErrQuoteNotFound
	}
	if quote.IsExpired() {
		return &QuoteExpiredError{Reason: fmt.Sprintf("quote %s expired before selection", id)}
	}
	if err := r.transitionTo(RfqClientSelecting); err != nil {
		return err
	}
	selected := id
	r.selectedQuote = &selected
	return nil
}

// StartExecution moves ClientSelecting → Executing, re-checking that the
// selected quote is still live.
func (r *Rfq) StartExecution() error {
	if r.state != RfqClientSelecting {
		return &InvalidStateTransitionError{From: r.state, To: RfqExecuting}
	}
	selected := r.SelectedQuote()
	if selected == nil {
		return ErrQuoteNotFound
	}
	if selected.IsExpired() {
		return &QuoteExpiredError{Reason: "selected quote expired before execution"}
	}
	return r.transitionTo(RfqExecuting)
}

// MarkExecuted moves Executing → Executed.
func (r *Rfq) MarkExecuted() error {
	return r.transitionTo(RfqExecuted)
}

// MarkFailed moves any non-terminal state except Created → Failed, recording
// the reason. Created has no edge to Failed, so the call is rejected there.
func (r *Rfq) MarkFailed(reason string) error {
	if r.state.IsTerminal() {
		return &InvalidStateTransitionError{From: r.state, To: RfqFailed}
	}
	if err := r.transitionTo(RfqFailed); err != nil {
		return err
	}
	r.failureReason = reason
	return nil
}

// Cancel moves a pre-execution state → Cancelled.
func (r *Rfq) Cancel() error {
	return r.transitionTo(RfqStateCancelled)
}

// Expire moves a pre-execution state → Expired.
func (r *Rfq) Expire() error {
	return r.transitionTo(RfqStateExpired)
}

// SetComplianceResult attaches a compliance result. Not a state transition,
// but still a version-bumping mutation.
func (r *Rfq) SetComplianceResult(result ComplianceResult) {
	r.compliance = &result
	r.version++
	r.updatedAt = types.Now()
}

func (r *Rfq) String() string {
	return fmt.Sprintf("Rfq[%s] %s %s %s state=%s v%d",
		r.id, r.side, r.quantity, r.instrument.Symbol, r.state, r.version)
}
