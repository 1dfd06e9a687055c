package triage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"faulttriage/internal/bootstrap/logging"
	"faulttriage/internal/domain/fault"
	"faulttriage/internal/errs"
	"faulttriage/internal/ports"
)

// maxConflictRetries is how many times a lost insert race is retried with
// fresh state before the failure is reported as transient.
const maxConflictRetries = 1

type persisted struct {
	ticket  fault.Ticket
	action  fault.TicketAction
	actions []fault.Action
}

// Process normalizes, classifies and stores one event. Expected failures
// come back as Result{Success: false} together with the error so transports
// can choose a status code; nothing is written when an error is returned.
func (s *Service) Process(ctx context.Context, raw fault.RawEvent) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return Result{}, errors.New("fault repository is required")
	}
	if s.uow == nil {
		return Result{}, errors.New("unit of work is required")
	}
	if s.locker == nil {
		return Result{}, errors.New("key locker is required")
	}

	start := s.now()
	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.triage"))

	n, err := s.normalize(logCtx, raw)
	if err != nil {
		return s.fail(logCtx, err, start)
	}

	if key, ok := n.event.DedupKey(); ok {
		logCtx = logging.WithAttrs(logCtx, slog.String("dedup_key", key.String()))
	}

	classification := fault.NewRuleEngine(s.currentTaxonomy()).Classify(n.event, n.customer, n.asset)

	var out persisted
	for attempt := 0; ; attempt++ {
		out, err = s.persistLocked(logCtx, n.event, classification)
		if err == nil || !errors.Is(err, fault.ErrStorageConflict) {
			break
		}
		if attempt >= maxConflictRetries {
			err = errs.Transient(err)
			break
		}
		logging.Warn(logCtx, "dedup key conflict, retrying with fresh state", slog.Int("attempt", attempt+1))
	}
	if err != nil {
		return s.fail(logCtx, err, start)
	}

	result := successResult(classification, out.actions, out.action, &out.ticket)
	s.publish(logCtx, result)
	if s.recorder != nil {
		s.recorder.ObserveProcessed(result.Urgency, result.TicketAction, s.now().Sub(start))
	}

	logging.Info(
		logCtx,
		"fault event processed",
		slog.Uint64("fault_event_id", out.ticket.ID),
		slog.String("ticket_action", string(out.action)),
		slog.String("urgency_level", string(result.Urgency)),
		slog.Any("actions", fault.ActionStrings(result.Actions)),
		slog.Any("rules", classification.FiredRules),
	)
	return result, nil
}

// Classify runs normalization and the rules without touching the ticket
// store.
func (s *Service) Classify(ctx context.Context, raw fault.RawEvent) (Result, error) {
	if s.repo == nil {
		return Result{}, errors.New("fault repository is required")
	}
	n, err := s.normalize(ctx, raw)
	if err != nil {
		return FailureResult(err), err
	}
	c := fault.NewRuleEngine(s.currentTaxonomy()).Classify(n.event, n.customer, n.asset)
	return successResult(c, c.Actions, "", nil), nil
}

func (s *Service) persistLocked(ctx context.Context, event fault.NormalizedEvent, c fault.Classification) (persisted, error) {
	if key, ok := event.DedupKey(); ok {
		unlock, err := s.locker.Lock(ctx, key.String())
		if err != nil {
			return persisted{}, errs.Wrap(err, "lock dedup key")
		}
		defer unlock()
	}

	var out persisted
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		out, err = s.persist(txCtx, event, c)
		return err
	})
	return out, err
}

// persist is the find-or-create-or-update step. It must run inside a
// transaction and under the key lock.
func (s *Service) persist(ctx context.Context, event fault.NormalizedEvent, c fault.Classification) (persisted, error) {
	processedAt := s.now()

	if key, ok := event.DedupKey(); ok {
		existing, found, err := s.repo.FindByDedupKey(ctx, key)
		if err != nil {
			return persisted{}, errs.Wrap(err, "find ticket by dedup key")
		}
		if found {
			prior := existing.ActionsTaken
			existing.Apply(event, c, processedAt)
			actions := fault.AppendAction(fault.SuppressDispatch(c.Actions), fault.ActionUpdateExistingTicket)
			existing.ActionsTaken = fault.WithDispatchHistory(prior, actions)

			updated, err := s.repo.UpdateTicket(ctx, existing)
			if err != nil {
				return persisted{}, errs.Wrap(err, "update ticket")
			}
			return persisted{ticket: updated, action: fault.TicketActionUpdateExisting, actions: actions}, nil
		}
	}

	created, err := s.repo.CreateTicket(ctx, fault.NewTicket(event, c, processedAt))
	if err != nil {
		if errors.Is(err, fault.ErrStorageConflict) {
			return persisted{}, err
		}
		return persisted{}, errs.Wrap(err, "create ticket")
	}
	return persisted{ticket: created, action: fault.TicketActionCreateNew, actions: created.ActionsTaken}, nil
}

func (s *Service) fail(ctx context.Context, err error, start time.Time) (Result, error) {
	result := FailureResult(err)
	if s.recorder != nil {
		s.recorder.ObserveFailed(result.ErrorKind, s.now().Sub(start))
	}

	attrs := []slog.Attr{
		slog.String("error_kind", result.ErrorKind),
		slog.Any("err", errs.Loggable(err)),
	}
	if result.ErrorKind == fault.KindInternal || errs.IsTransient(err) {
		logging.Error(ctx, "fault event failed", attrs...)
	} else {
		logging.Warn(ctx, "fault event rejected", attrs...)
	}
	return result, err
}

// publish hands the committed decision to downstream executors. The ticket
// is already stored, so a publish failure is only logged.
func (s *Service) publish(ctx context.Context, r Result) {
	if s.publisher == nil || r.Ticket == nil {
		return
	}
	t := r.Ticket
	msg := ports.DecisionMessage{
		TicketID:          t.ID,
		Source:            t.Source,
		IDFromSource:      t.IDFromSource,
		CustomerID:        t.CustomerID,
		LocationAssetID:   t.LocationAssetID,
		TicketAction:      r.TicketAction,
		Urgency:           r.Urgency,
		Priority:          r.Priority,
		Actions:           r.Actions,
		ResponseTimeHours: r.ResponseTimeHours,
		StationWide:       r.StationWide,
		ProcessedAt:       s.now(),
	}
	if t.ProcessedAt != nil {
		msg.ProcessedAt = *t.ProcessedAt
	}
	if err := s.publisher.PublishDecision(ctx, msg); err != nil {
		logging.Warn(ctx, "publish decision failed", slog.Uint64("fault_event_id", t.ID), slog.Any("err", errs.Loggable(err)))
	}
}
