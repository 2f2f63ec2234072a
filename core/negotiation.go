package core

import (
	"github.com/rs/zerolog/log"

	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/types"
)

// ─────────────────────────────────────────────────────────────────────────────
// Negotiation operations
// ─────────────────────────────────────────────────────────────────────────────

var errNegotiationNotFound = &domain.ValidationError{Reason: "negotiation not found"}

// OpenNegotiation starts a counter-quote negotiation on an RFQ.
func (s *Service) OpenNegotiation(rfqID types.RfqID, requester, mmAccount types.CounterpartyID, side types.OrderSide, maxRounds uint8) (*domain.Negotiation, error) {
	negotiation, err := domain.NewNegotiation(rfqID, requester, mmAccount, side, maxRounds)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.negotiations[negotiation.ID()] = negotiation
	s.mu.Unlock()

	log.Info().
		Str("negotiation", negotiation.ID().String()).
		Str("rfq", rfqID.String()).
		Str("mm", mmAccount.String()).
		Uint8("max_rounds", negotiation.MaxRounds()).
		Msg("Negotiation opened")

	return negotiation, nil
}

// GetNegotiation returns the aggregate for an id.
func (s *Service) GetNegotiation(id types.NegotiationID) (*domain.Negotiation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.negotiations[id]
	return n, ok
}

// SubmitCounter appends a counter-quote to the negotiation, emitting
// CounterQuoteSent for requester counters and CounterQuoteReceived for
// market-maker counters.
func (s *Service) SubmitCounter(negotiationID types.NegotiationID, counter *domain.CounterQuote) error {
	s.mu.Lock()
	negotiation, ok := s.negotiations[negotiationID]
	if !ok {
		s.mu.Unlock()
		return errNegotiationNotFound
	}
	err := negotiation.SubmitCounter(counter)
	requester := negotiation.Requester()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	meta := domain.NewEventMeta()
	if counter.FromAccount == requester {
		s.emit(domain.CounterQuoteSent{
			EventMeta:     meta,
			NegotiationID: negotiationID,
			RfqID:         counter.RfqID,
			From:          counter.FromAccount,
			Price:         counter.Price,
			Quantity:      counter.Quantity,
			Round:         counter.Round,
		})
	} else {
		s.emit(domain.CounterQuoteReceived{
			EventMeta:     meta,
			NegotiationID: negotiationID,
			RfqID:         counter.RfqID,
			From:          counter.FromAccount,
			Price:         counter.Price,
			Quantity:      counter.Quantity,
			Round:         counter.Round,
		})
	}

	log.Info().
		Str("negotiation", negotiationID.String()).
		Str("from", counter.FromAccount.String()).
		Str("price", counter.Price.String()).
		Uint8("round", counter.Round).
		Msg("Counter-quote submitted")

	return nil
}

func (s *Service) completeNegotiation(negotiation *domain.Negotiation, outcome domain.NegotiationOutcome) {
	event := domain.NegotiationCompleted{
		EventMeta:     domain.NewEventMeta(),
		NegotiationID: negotiation.ID(),
		RfqID:         negotiation.RfqID(),
		Outcome:       outcome,
		TotalRounds:   negotiation.RoundCount(),
	}
	if price, ok := negotiation.FinalPrice(); ok {
		event.FinalPrice = &price
	}
	s.emit(event)

	log.Info().
		Str("negotiation", negotiation.ID().String()).
		Str("outcome", string(outcome)).
		Int("rounds", negotiation.RoundCount()).
		Msg("Negotiation completed")
}

// AcceptNegotiation accepts the latest counter and closes the negotiation.
func (s *Service) AcceptNegotiation(negotiationID types.NegotiationID) error {
	s.mu.Lock()
	negotiation, ok := s.negotiations[negotiationID]
	if !ok {
		s.mu.Unlock()
		return errNegotiationNotFound
	}
	err := negotiation.Accept()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.completeNegotiation(negotiation, domain.NegotiationOutcomeAccepted)
	return nil
}

// RejectNegotiation closes the negotiation as rejected.
func (s *Service) RejectNegotiation(negotiationID types.NegotiationID) error {
	s.mu.Lock()
	negotiation, ok := s.negotiations[negotiationID]
	if !ok {
		s.mu.Unlock()
		return errNegotiationNotFound
	}
	err := negotiation.Reject()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.completeNegotiation(negotiation, domain.NegotiationOutcomeRejected)
	return nil
}

// ExpireNegotiation closes the negotiation as expired. Used by the sweeper.
func (s *Service) ExpireNegotiation(negotiationID types.NegotiationID) error {
	s.mu.Lock()
	negotiation, ok := s.negotiations[negotiationID]
	if !ok {
		s.mu.Unlock()
		return errNegotiationNotFound
	}
	err := negotiation.Expire()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.completeNegotiation(negotiation, domain.NegotiationOutcomeExpired)
	return nil
}
