package triage

import (
	"context"
	"errors"

	"faulttriage/internal/domain/fault"
	"faulttriage/internal/errs"
	"faulttriage/internal/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (s *Service) GetTicket(ctx context.Context, ticketID uint64) (fault.Ticket, error) {
	if ctx == nil {
		return fault.Ticket{}, errors.New("context is required")
	}
	if s.repo == nil {
		return fault.Ticket{}, errors.New("fault repository is required")
	}
	if ticketID == 0 {
		return fault.Ticket{}, &fault.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return s.repo.GetTicket(ctx, ticketID)
}

// ListTickets returns tickets newest first. Limit defaults to 50 and is
// capped at 500.
func (s *Service) ListTickets(ctx context.Context, filter ports.TicketFilter) ([]fault.Ticket, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return nil, errors.New("fault repository is required")
	}
	if !filter.Urgency.Valid() {
		return nil, &fault.ValidationError{Field: "urgency", Reason: "is not included in the list"}
	}

	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}
	return s.repo.ListTickets(ctx, filter)
}
