package domain

import (
	"fmt"

	"github.com/Layer-V/otc-rfq/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// COUNTER-QUOTE NEGOTIATION
// ═══════════════════════════════════════════════════════════════════════════════
//
// Bounded-round bilateral negotiation with monotone price improvement:
// each counter must strictly improve on the previous round's price from the
// requester's point of view (Buy: lower, Sell: higher). A new counter both
// answers the pending round and re-opens the table.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultMaxRounds is the default negotiation round budget.
	DefaultMaxRounds uint8 = 3
	// AbsoluteMaxRounds caps any configured round budget.
	AbsoluteMaxRounds uint8 = 10
)

// CounterQuote is a revised offer submitted inside a negotiation round.
// Immutable after creation.
type CounterQuote struct {
	ID              types.QuoteID        `json:"id"`
	OriginalQuoteID types.QuoteID        `json:"original_quote_id"`
	RfqID           types.RfqID          `json:"rfq_id"`
	FromAccount     types.CounterpartyID `json:"from_account"`
	Price           types.Price          `json:"price"`
	Quantity        types.Quantity       `json:"quantity"`
	ValidUntil      types.Timestamp      `json:"valid_until"`
	Round           uint8                `json:"round"`
	CreatedAt       types.Timestamp      `json:"created_at"`
}

// NewCounterQuote validates and builds a counter-quote.
func NewCounterQuote(originalQuoteID types.QuoteID, rfqID types.RfqID, from types.CounterpartyID, price types.Price, quantity types.Quantity, validUntil types.Timestamp, round uint8) (*CounterQuote, error) {
	if !price.IsPositive() {
		return nil, &InvalidPriceError{Reason: "counter-quote price must be positive"}
	}
	if !quantity.IsPositive() {
		return nil, &InvalidQuantityError{Reason: "counter-quote quantity must be positive"}
	}
	if round < 1 {
		return nil, &ValidationError{Reason: "round must be at least 1"}
	}
	now := types.Now()
	if !validUntil.After(now) {
		return nil, &QuoteExpiredError{Reason: "counter-quote valid_until must be in the future"}
	}
	return &CounterQuote{
		ID:              types.NewQuoteID(),
		OriginalQuoteID: originalQuoteID,
		RfqID:           rfqID,
		FromAccount:     from,
		Price:           price,
		Quantity:        quantity,
		ValidUntil:      validUntil,
		Round:           round,
		CreatedAt:       now,
	}, nil
}

// IsExpired reports whether the counter's validity window has passed.
func (c *CounterQuote) IsExpired() bool {
	return !c.ValidUntil.After(types.Now())
}

// NegotiationRound pairs a counter-quote with its response state.
type NegotiationRound struct {
	RoundNumber  uint8            `json:"round_number"`
	CounterQuote *CounterQuote    `json:"counter_quote"`
	RespondedAt  *types.Timestamp `json:"responded_at,omitempty"`
	Accepted     *bool            `json:"accepted,omitempty"`
}

// IsResponded reports whether the round has been answered.
func (r *NegotiationRound) IsResponded() bool { return r.RespondedAt != nil }

// Respond records the answer to this round.
func (r *NegotiationRound) Respond(accepted bool) {
	now := types.Now()
	r.RespondedAt = &now
	r.Accepted = &accepted
}

// Negotiation is the counter-quote negotiation aggregate root. It exclusively
// owns its rounds.
type Negotiation struct {
	id        types.NegotiationID
	rfqID     types.RfqID
	requester types.CounterpartyID
	mmAccount types.CounterpartyID
	side      types.OrderSide
	rounds    []*NegotiationRound
	maxRounds uint8
	state     NegotiationState
	createdAt types.Timestamp
	updatedAt types.Timestamp
}

// NewNegotiation opens a negotiation between requester and market maker.
// maxRounds of zero falls back to the default; the absolute cap always applies.
func NewNegotiation(rfqID types.RfqID, requester, mmAccount types.CounterpartyID, side types.OrderSide, maxRounds uint8) (*Negotiation, error) {
	if requester == "" || mmAccount == "" {
		return nil, &ValidationError{Reason: "negotiation participants must not be empty"}
	}
	if requester == mmAccount {
		return nil, &ValidationError{Reason: "requester and market maker must differ"}
	}
	if maxRounds == 0 {
		maxRounds = DefaultMaxRounds
	}
	if maxRounds > AbsoluteMaxRounds {
		maxRounds = AbsoluteMaxRounds
	}
	now := types.Now()
	return &Negotiation{
		id:        types.NewNegotiationID(),
		rfqID:     rfqID,
		requester: requester,
		mmAccount: mmAccount,
		side:      side,
		maxRounds: maxRounds,
		state:     NegotiationOpen,
		createdAt: now,
		updatedAt: now,
	}, nil
}

func (n *Negotiation) transitionTo(target NegotiationState) error {
	if !n.state.CanTransitionTo(target) {
		return &InvalidNegotiationStateTransitionError{From: n.state, To: target}
	}
	n.state = target
	n.updatedAt = types.Now()
	return nil
}

// ID returns the aggregate identifier.
func (n *Negotiation) ID() types.NegotiationID { return n.id }

// RfqID returns the RFQ this negotiation belongs to.
func (n *Negotiation) RfqID() types.RfqID { return n.rfqID }

// Requester returns the client side of the negotiation.
func (n *Negotiation) Requester() types.CounterpartyID { return n.requester }

// MmAccount returns the market-maker side of the negotiation.
func (n *Negotiation) MmAccount() types.CounterpartyID { return n.mmAccount }

// Side returns the order side.
func (n *Negotiation) Side() types.OrderSide { return n.side }

// Rounds returns the negotiation rounds in order.
func (n *Negotiation) Rounds() []*NegotiationRound { return n.rounds }

// RoundCount returns the number of submitted rounds.
func (n *Negotiation) RoundCount() int { return len(n.rounds) }

// MaxRounds returns the round budget.
func (n *Negotiation) MaxRounds() uint8 { return n.maxRounds }

// State returns the current state.
func (n *Negotiation) State() NegotiationState { return n.state }

// CreatedAt returns the creation instant.
func (n *Negotiation) CreatedAt() types.Timestamp { return n.createdAt }

// UpdatedAt returns the last mutation instant.
func (n *Negotiation) UpdatedAt() types.Timestamp { return n.updatedAt }

// IsActive reports whether the negotiation can still advance.
func (n *Negotiation) IsActive() bool { return n.state.IsActive() }

// LatestRound returns the most recent round, if any.
func (n *Negotiation) LatestRound() *NegotiationRound {
	if len(n.rounds) == 0 {
		return nil
	}
	return n.rounds[len(n.rounds)-1]
}

// LatestPrice returns the most recent counter price, if any round exists.
func (n *Negotiation) LatestPrice() (types.Price, bool) {
	last := n.LatestRound()
	if last == nil {
		return types.Price{}, false
	}
	return last.CounterQuote.Price, true
}

// FinalPrice returns the agreed price of an accepted negotiation.
func (n *Negotiation) FinalPrice() (types.Price, bool) {
	if n.state != NegotiationAccepted {
		return types.Price{}, false
	}
	return n.LatestPrice()
}

// SubmitCounter appends a counter-quote round. The counter must come from a
// participant, be live, fit the round budget, and strictly improve on the
// previous price (Buy: lower, Sell: higher). A still-pending previous round
// is implicitly rejected.
func (n *Negotiation) SubmitCounter(counter *CounterQuote) error {
	if n.state.IsTerminal() {
		return &InvalidNegotiationStateTransitionError{From: n.state, To: NegotiationCounterPending}
	}
	if counter.IsExpired() {
		return &QuoteExpiredError{Reason: "counter-quote has expired"}
	}
	if counter.FromAccount != n.requester && counter.FromAccount != n.mmAccount {
		return &ValidationError{Reason: "submitter is not a participant in this negotiation"}
	}
	if len(n.rounds) >= int(n.maxRounds) {
		return &MaxNegotiationRoundsReachedError{MaxRounds: n.maxRounds}
	}
	if previous, ok := n.LatestPrice(); ok {
		if err := n.validatePriceImprovement(previous, counter.Price); err != nil {
			return err
		}
	}

	if last := n.LatestRound(); last != nil && !last.IsResponded() {
		last.Respond(false)
	}

	round := &NegotiationRound{
		RoundNumber:  uint8(len(n.rounds) + 1),
		CounterQuote: counter,
	}
	n.rounds = append(n.rounds, round)

	switch n.state {
	case NegotiationOpen:
		return n.transitionTo(NegotiationCounterPending)
	case NegotiationCounterPending:
		// A counter both answers the pending round and re-opens the table.
		n.state = NegotiationOpen
		return n.transitionTo(NegotiationCounterPending)
	default:
		return &InvalidNegotiationStateTransitionError{From: n.state, To: NegotiationCounterPending}
	}
}

// Accept marks the latest round accepted and closes the negotiation.
func (n *Negotiation) Accept() error {
	if len(n.rounds) == 0 {
		return &ValidationError{Reason: "cannot accept with no counter-quotes"}
	}
	n.LatestRound().Respond(true)
	return n.transitionTo(NegotiationAccepted)
}

// Reject closes the negotiation, answering the latest round if still pending.
func (n *Negotiation) Reject() error {
	if last := n.LatestRound(); last != nil && !last.IsResponded() {
		last.Respond(false)
	}
	return n.transitionTo(NegotiationRejected)
}

// Expire closes the negotiation as expired.
func (n *Negotiation) Expire() error {
	return n.transitionTo(NegotiationExpired)
}

// LatestCounterExpired reports whether the most recent counter's validity has
// lapsed; used by the sweeper.
func (n *Negotiation) LatestCounterExpired() bool {
	last := n.LatestRound()
	return last != nil && last.CounterQuote.IsExpired()
}

func (n *Negotiation) validatePriceImprovement(previous, proposed types.Price) error {
	improved := false
	switch n.side {
	case types.Buy:
		improved = proposed.LessThan(previous)
	case types.Sell:
		improved = proposed.GreaterThan(previous)
	}
	if !improved {
		return &NoPriceImprovementError{Previous: previous, Proposed: proposed}
	}
	return nil
}

func (n *Negotiation) String() string {
	return fmt.Sprintf("Negotiation[%s] rfq=%s state=%s rounds=%d/%d",
		n.id, n.rfqID, n.state, len(n.rounds), n.maxRounds)
}
