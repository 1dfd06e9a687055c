package cmd

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"faulttriage/internal/domain/fault"
	"faulttriage/internal/infrastructure/eventbus"
	"faulttriage/internal/ports"
)

func TestDecisionStreamDeliversPublishedDecisions(t *testing.T) {
	hub := eventbus.NewHub()
	server := httptest.NewServer(newFaultEventsRouter(&stubFaultEventService{}, faultEventsRouterOptions{Decisions: hub}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/decisions/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial decision stream: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed to the hub")
		}
		time.Sleep(10 * time.Millisecond)
	}

	err = hub.PublishDecision(context.Background(), ports.DecisionMessage{
		DecisionID:   "d-1",
		TicketID:     42,
		TicketAction: fault.TicketActionCreateNew,
		Urgency:      fault.UrgencyCritical,
	})
	if err != nil {
		t.Fatalf("PublishDecision() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got ports.DecisionMessage
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read decision: %v", err)
	}
	if got.DecisionID != "d-1" || got.TicketID != 42 || got.Urgency != fault.UrgencyCritical {
		t.Fatalf("decision = %+v", got)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("close client: %v", err)
	}
	deadline = time.Now().Add(2 * time.Second)
	for hub.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not released after client close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
