package ports

import (
	"context"
	"time"

	"faulttriage/internal/domain/fault"
)

// KeyLocker serializes work on one dedup key across goroutines or processes.
// The returned unlock must be called exactly once.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// TaxonomyProvider returns the taxonomy in effect right now. Implementations
// may swap it at runtime; callers take one snapshot per event.
type TaxonomyProvider interface {
	Current() fault.Taxonomy
}

// DecisionMessage is the notification emitted after a ticket is committed.
type DecisionMessage struct {
	DecisionID        string             `json:"decision_id"`
	TicketID          uint64             `json:"fault_event_id"`
	Source            string             `json:"source"`
	IDFromSource      *int64             `json:"id_from_source,omitempty"`
	CustomerID        uint64             `json:"customer_id"`
	LocationAssetID   uint64             `json:"location_asset_id"`
	TicketAction      fault.TicketAction `json:"ticket_action"`
	Urgency           fault.UrgencyLevel `json:"urgency_level"`
	Priority          fault.Priority     `json:"priority"`
	Actions           []fault.Action     `json:"actions_taken"`
	ResponseTimeHours *int               `json:"response_time_hours,omitempty"`
	StationWide       bool               `json:"station_wide"`
	ProcessedAt       time.Time          `json:"processed_at"`
}

// DecisionPublisher hands committed decisions to downstream executors.
type DecisionPublisher interface {
	PublishDecision(ctx context.Context, msg DecisionMessage) error
}

// ProcessingRecorder observes processing outcomes.
type ProcessingRecorder interface {
	ObserveProcessed(urgency fault.UrgencyLevel, action fault.TicketAction, elapsed time.Duration)
	ObserveFailed(kind string, elapsed time.Duration)
}
