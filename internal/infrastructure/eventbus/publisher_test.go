package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"faulttriage/internal/domain/fault"
	"faulttriage/internal/ports"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func (f *fakeConn) IsConnected() bool { return !f.drained }

func TestNATSPublisherPublishesDecision(t *testing.T) {
	conn := &fakeConn{}
	pub := newNATSPublisher(conn, "ops.decisions.")

	hours := 2
	msg := ports.DecisionMessage{
		TicketID:          12,
		Source:            "chargepoint",
		CustomerID:        1,
		LocationAssetID:   10,
		TicketAction:      fault.TicketActionCreateNew,
		Urgency:           fault.UrgencyHigh,
		Priority:          fault.PriorityUrgent,
		Actions:           []fault.Action{fault.ActionDispatchTechnicianUrgent},
		ResponseTimeHours: &hours,
		ProcessedAt:       time.Date(2025, 6, 4, 15, 31, 0, 0, time.UTC),
	}
	if err := pub.PublishDecision(context.Background(), msg); err != nil {
		t.Fatalf("PublishDecision() error = %v", err)
	}

	if len(conn.subjects) != 1 || conn.subjects[0] != "ops.decisions.create_new" {
		t.Fatalf("subjects = %v", conn.subjects)
	}

	var decoded map[string]any
	if err := json.Unmarshal(conn.payloads[0], &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded["decision_id"] == "" || decoded["decision_id"] == nil {
		t.Fatalf("decision_id not assigned: %v", decoded)
	}
	if decoded["urgency_level"] != "high" || decoded["fault_event_id"] != float64(12) {
		t.Fatalf("payload = %v", decoded)
	}
}

func TestNATSPublisherWrapsPublishError(t *testing.T) {
	boom := errors.New("nats down")
	pub := newNATSPublisher(&fakeConn{err: boom}, "")

	err := pub.PublishDecision(context.Background(), ports.DecisionMessage{TicketAction: fault.TicketActionUpdateExisting})
	if !errors.Is(err, boom) {
		t.Fatalf("PublishDecision() error = %v", err)
	}
	if got := pub.Subject("update_existing"); got != "faulttriage.decisions.update_existing" {
		t.Fatalf("Subject() = %q", got)
	}
}

func TestNATSPublisherClose(t *testing.T) {
	conn := &fakeConn{}
	pub := newNATSPublisher(conn, "x")

	if !pub.IsConnected() {
		t.Fatalf("IsConnected() = false before close")
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !conn.drained || pub.IsConnected() {
		t.Fatalf("Close() did not drain the connection")
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestHubFansOutAndDropsForSlowSubscribers(t *testing.T) {
	hub := NewHub()
	fast, cancelFast := hub.Subscribe(4)
	defer cancelFast()
	slow, cancelSlow := hub.Subscribe(1)

	if hub.Subscribers() != 2 {
		t.Fatalf("Subscribers() = %d, want 2", hub.Subscribers())
	}

	for i := uint64(1); i <= 2; i++ {
		if err := hub.PublishDecision(context.Background(), ports.DecisionMessage{TicketID: i}); err != nil {
			t.Fatalf("PublishDecision() error = %v", err)
		}
	}

	if got := (<-fast).TicketID; got != 1 {
		t.Fatalf("fast first = %d, want 1", got)
	}
	if got := (<-fast).TicketID; got != 2 {
		t.Fatalf("fast second = %d, want 2", got)
	}
	if got := (<-slow).TicketID; got != 1 {
		t.Fatalf("slow first = %d, want 1", got)
	}
	select {
	case msg := <-slow:
		t.Fatalf("slow subscriber got %d, want dropped", msg.TicketID)
	default:
	}

	cancelSlow()
	cancelSlow()
	if _, ok := <-slow; ok {
		t.Fatal("slow channel still open after cancel")
	}
	if hub.Subscribers() != 1 {
		t.Fatalf("Subscribers() after cancel = %d, want 1", hub.Subscribers())
	}
}

type capturePublisher struct {
	got []ports.DecisionMessage
	err error
}

func (c *capturePublisher) PublishDecision(_ context.Context, msg ports.DecisionMessage) error {
	c.got = append(c.got, msg)
	return c.err
}

func TestFanoutSharesDecisionIDAndJoinsErrors(t *testing.T) {
	first := &capturePublisher{err: errors.New("broker down")}
	second := &capturePublisher{}

	err := Fanout{first, nil, second}.PublishDecision(context.Background(), ports.DecisionMessage{TicketID: 5})
	if err == nil || !strings.Contains(err.Error(), "broker down") {
		t.Fatalf("PublishDecision() error = %v, want broker down", err)
	}
	if len(first.got) != 1 || len(second.got) != 1 {
		t.Fatalf("deliveries = %d/%d, want 1/1", len(first.got), len(second.got))
	}
	if first.got[0].DecisionID == "" || first.got[0].DecisionID != second.got[0].DecisionID {
		t.Fatalf("decision ids = %q/%q, want shared non-empty", first.got[0].DecisionID, second.got[0].DecisionID)
	}
}
