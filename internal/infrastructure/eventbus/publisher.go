package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"faulttriage/internal/bootstrap/logging"
	"faulttriage/internal/errs"
	"faulttriage/internal/ports"
)

// natsConn is the part of *nats.Conn the publisher needs.
type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
	IsConnected() bool
}

// NATSPublisher sends every committed decision to
// "<prefix>.<ticket_action>" as JSON.
type NATSPublisher struct {
	conn   natsConn
	prefix string
}

var _ ports.DecisionPublisher = (*NATSPublisher)(nil)

func NewNATSPublisher(ctx context.Context, natsURL string, prefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.Name("faulttriage"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second))
	if err != nil {
		return nil, errs.Wrapf(err, "connect nats %s", natsURL)
	}

	logging.Info(ctx, "connected to nats", slog.String("url", natsURL), slog.String("subject_prefix", prefix))
	return newNATSPublisher(conn, prefix), nil
}

func newNATSPublisher(conn natsConn, prefix string) *NATSPublisher {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "faulttriage.decisions"
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

func (p *NATSPublisher) Subject(action string) string {
	return fmt.Sprintf("%s.%s", p.prefix, action)
}

func (p *NATSPublisher) PublishDecision(ctx context.Context, msg ports.DecisionMessage) error {
	if msg.DecisionID == "" {
		msg.DecisionID = uuid.NewString()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return errs.Wrap(err, "marshal decision")
	}

	subject := p.Subject(string(msg.TicketAction))
	if err := p.conn.Publish(subject, data); err != nil {
		return errs.Wrapf(err, "publish decision to %s", subject)
	}

	logging.Debug(
		ctx,
		"decision published",
		slog.String("subject", subject),
		slog.String("decision_id", msg.DecisionID),
		slog.Uint64("fault_event_id", msg.TicketID),
	)
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Drain()
	p.conn = nil
	return err
}

func (p *NATSPublisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// LogPublisher records decisions in the structured log when no broker is
// configured.
type LogPublisher struct{}

var _ ports.DecisionPublisher = LogPublisher{}

func (LogPublisher) PublishDecision(ctx context.Context, msg ports.DecisionMessage) error {
	logging.Info(
		ctx,
		"decision",
		slog.Uint64("fault_event_id", msg.TicketID),
		slog.String("ticket_action", string(msg.TicketAction)),
		slog.String("urgency_level", string(msg.Urgency)),
		slog.String("priority", string(msg.Priority)),
		slog.Any("actions_taken", msg.Actions),
		slog.Bool("station_wide", msg.StationWide),
	)
	return nil
}
