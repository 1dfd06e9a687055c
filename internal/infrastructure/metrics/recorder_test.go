package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"faulttriage/internal/domain/fault"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()

	r.ObserveProcessed(fault.UrgencyHigh, fault.TicketActionCreateNew, 10*time.Millisecond)
	r.ObserveProcessed(fault.UrgencyHigh, fault.TicketActionCreateNew, 20*time.Millisecond)
	r.ObserveFailed(fault.KindValidation, time.Millisecond)

	if got := testutil.ToFloat64(r.processed.WithLabelValues("high", "create_new")); got != 2 {
		t.Fatalf("processed counter = %v", got)
	}
	if got := testutil.ToFloat64(r.failed.WithLabelValues("validation_error")); got != 1 {
		t.Fatalf("failed counter = %v", got)
	}
}

func TestRecorderHandlerServesMetrics(t *testing.T) {
	r := NewRecorder()
	r.ObserveProcessed(fault.UrgencyCritical, fault.TicketActionUpdateExisting, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `faulttriage_events_processed_total{ticket_action="update_existing",urgency="critical"} 1`) {
		t.Fatalf("metrics body missing processed counter:\n%s", body)
	}
}
