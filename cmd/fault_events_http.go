package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/invopop/jsonschema"

	"faulttriage/internal/bootstrap/logging"
	"faulttriage/internal/domain/fault"
	"faulttriage/internal/errs"
	"faulttriage/internal/ports"
	"faulttriage/internal/usecase/triage"
)

const maxRequestBody = 1 << 20

type faultEventService interface {
	Process(ctx context.Context, raw fault.RawEvent) (triage.Result, error)
	GetTicket(ctx context.Context, ticketID uint64) (fault.Ticket, error)
	ListTickets(ctx context.Context, filter ports.TicketFilter) ([]fault.Ticket, error)
}

type faultEventsHTTPHandler struct {
	svc    faultEventService
	schema []byte
}

type faultEventsRouterOptions struct {
	Metrics   http.Handler
	Health    func(ctx context.Context) error
	Decisions decisionStream
}

type faultEventsErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type faultEventsListResponse struct {
	FaultEvents []fault.Ticket `json:"fault_events"`
	Count       int            `json:"count"`
}

func newFaultEventsRouter(svc faultEventService, opts faultEventsRouterOptions) http.Handler {
	h := &faultEventsHTTPHandler{
		svc:    svc,
		schema: rawEventSchema(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestAttrs)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Health != nil {
			if err := opts.Health(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	if opts.Decisions != nil {
		r.Get("/api/v1/decisions/stream", serveDecisionStream(opts.Decisions))
	}

	r.Route("/api/v1/fault_events", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/schema", h.getSchema)
		r.Get("/{id}", h.get)
	})
	return r
}

// requestAttrs tags the request context with the chi request id.
func requestAttrs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithAttrs(
			r.Context(),
			slog.String("component", "http"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *faultEventsHTTPHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := decodeRawEvent(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		logging.Warn(ctx, "reject fault event payload", slog.Any("err", errs.Loggable(err)))
		writeJSON(w, http.StatusUnprocessableEntity, triage.FailureResult(err))
		return
	}

	result, err := h.svc.Process(ctx, raw)
	writeJSON(w, processStatus(result, err), result)
}

func (h *faultEventsHTTPHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeJSON(w, http.StatusBadRequest, faultEventsErrorResponse{Error: "id must be a positive integer", Field: "id"})
		return
	}

	ticket, err := h.svc.GetTicket(r.Context(), id)
	if err != nil {
		h.writeReadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *faultEventsHTTPHandler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTicketFilter(r)
	if err != nil {
		h.writeReadError(w, r, err)
		return
	}

	tickets, err := h.svc.ListTickets(r.Context(), filter)
	if err != nil {
		h.writeReadError(w, r, err)
		return
	}
	if tickets == nil {
		tickets = []fault.Ticket{}
	}
	writeJSON(w, http.StatusOK, faultEventsListResponse{FaultEvents: tickets, Count: len(tickets)})
}

func (h *faultEventsHTTPHandler) getSchema(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.schema)
}

func (h *faultEventsHTTPHandler) writeReadError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *fault.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, faultEventsErrorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, ports.ErrTicketNotFound):
		writeJSON(w, http.StatusNotFound, faultEventsErrorResponse{Error: "fault event not found"})
	default:
		logging.Error(r.Context(), "read fault events failed", slog.Any("err", errs.Loggable(err)))
		writeJSON(w, http.StatusInternalServerError, faultEventsErrorResponse{Error: "internal error"})
	}
}

// processStatus maps a processing outcome to its HTTP status.
func processStatus(result triage.Result, err error) int {
	switch {
	case err == nil && result.TicketAction == fault.TicketActionUpdateExisting:
		return http.StatusOK
	case err == nil:
		return http.StatusCreated
	case errors.Is(err, fault.ErrValidation), errors.Is(err, fault.ErrInvalidReference):
		return http.StatusUnprocessableEntity
	case errs.IsTransient(err), errors.Is(err, fault.ErrStorageConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func parseTicketFilter(r *http.Request) (ports.TicketFilter, error) {
	q := r.URL.Query()
	filter := ports.TicketFilter{
		Source:  strings.TrimSpace(q.Get("source")),
		Urgency: fault.UrgencyLevel(strings.ToLower(strings.TrimSpace(q.Get("urgency")))),
	}

	if v := strings.TrimSpace(q.Get("customer_id")); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return ports.TicketFilter{}, &fault.ValidationError{Field: "customer_id", Reason: "must be a positive integer"}
		}
		filter.CustomerID = id
	}
	if v := strings.TrimSpace(q.Get("id_from_source")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return ports.TicketFilter{}, &fault.ValidationError{Field: "id_from_source", Reason: "must be an integer"}
		}
		filter.IDFromSource = &id
	}
	if v := strings.TrimSpace(q.Get("open")); v != "" {
		open, err := strconv.ParseBool(v)
		if err != nil {
			return ports.TicketFilter{}, &fault.ValidationError{Field: "open", Reason: "must be a boolean"}
		}
		filter.OpenOnly = open
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return ports.TicketFilter{}, &fault.ValidationError{Field: "limit", Reason: "must be a non-negative integer"}
		}
		filter.Limit = limit
	}
	return filter, nil
}

func rawEventSchema() []byte {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(&fault.RawEvent{})
	schema.Title = "fault_event"
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return []byte(`{}`)
	}
	return data
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
