package triage

import (
	"errors"

	"faulttriage/internal/domain/fault"
)

// Result is what one Process call reports back to its caller.
type Result struct {
	Success           bool               `json:"success"`
	Error             string             `json:"error,omitempty"`
	ErrorKind         string             `json:"error_kind,omitempty"`
	Field             string             `json:"field,omitempty"`
	Urgency           fault.UrgencyLevel `json:"urgency,omitempty"`
	Actions           []fault.Action     `json:"actions"`
	ResponseTimeHours *int               `json:"response_time_hours"`
	Priority          fault.Priority     `json:"priority,omitempty"`
	StationWide       bool               `json:"station_wide"`
	TicketAction      fault.TicketAction `json:"ticket_action,omitempty"`
	Ticket            *fault.Ticket      `json:"fault_event,omitempty"`
}

func successResult(c fault.Classification, actions []fault.Action, action fault.TicketAction, ticket *fault.Ticket) Result {
	if actions == nil {
		actions = []fault.Action{}
	}
	return Result{
		Success:           true,
		Urgency:           c.Urgency,
		Actions:           actions,
		ResponseTimeHours: c.ResponseTimeHours,
		Priority:          c.Priority(),
		StationWide:       c.StationWide,
		TicketAction:      action,
		Ticket:            ticket,
	}
}

// FailureResult reports err as an unsuccessful result with its error kind.
func FailureResult(err error) Result {
	r := Result{
		Success:   false,
		Error:     err.Error(),
		ErrorKind: fault.KindOf(err),
		Actions:   []fault.Action{},
	}
	var verr *fault.ValidationError
	if errors.As(err, &verr) {
		r.Field = verr.Field
	}
	var rerr *fault.InvalidReferenceError
	if errors.As(err, &rerr) {
		r.Field = rerr.Field
	}
	return r
}
