package fault

import (
	"fmt"
	"strings"
	"time"
)

// Ticket is the persisted lifecycle record of one physical fault.
type Ticket struct {
	ID                uint64       `json:"id"`
	Source            string       `json:"source"`
	IDFromSource      *int64       `json:"id_from_source"`
	CustomerID        uint64       `json:"customer_id"`
	LocationAssetID   uint64       `json:"location_asset_id"`
	ConnectorID       *int64       `json:"connector_id"`
	FaultTime         time.Time    `json:"fault_time"`
	ResolvedAt        *time.Time   `json:"resolved_at"`
	Status            string       `json:"status"`
	DowntimeType      string       `json:"downtime_type"`
	FaultType         string       `json:"fault_type"`
	IsAlarm           bool         `json:"is_alarm"`
	UrgencyLevel      UrgencyLevel `json:"urgency_level"`
	ResponseTimeHours *int         `json:"response_time_hours"`
	StationWide       bool         `json:"station_wide"`
	ActionsTaken      []Action     `json:"actions_taken"`
	ProcessedAt       *time.Time   `json:"processed_at"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

func (t Ticket) Resolved() bool {
	return t.ResolvedAt != nil
}

func (t Ticket) DedupKey() (DedupKey, bool) {
	if t.IDFromSource == nil {
		return DedupKey{}, false
	}
	return DedupKey{Source: t.Source, IDFromSource: *t.IDFromSource}, true
}

// Validate enforces the record-level invariants checked before every write.
func (t Ticket) Validate() error {
	switch {
	case t.FaultTime.IsZero():
		return &ValidationError{Field: "fault_time", Reason: "can't be blank"}
	case strings.TrimSpace(t.Status) == "":
		return &ValidationError{Field: "status", Reason: "can't be blank"}
	case strings.TrimSpace(t.FaultType) == "":
		return &ValidationError{Field: "fault_type", Reason: "can't be blank"}
	case strings.TrimSpace(t.Source) == "":
		return &ValidationError{Field: "source", Reason: "can't be blank"}
	case t.CustomerID == 0:
		return &ValidationError{Field: "customer_id", Reason: "can't be blank"}
	case t.LocationAssetID == 0:
		return &ValidationError{Field: "location_asset_id", Reason: "can't be blank"}
	case !t.UrgencyLevel.Valid():
		return &ValidationError{Field: "urgency_level", Reason: fmt.Sprintf("%q is not included in the list", t.UrgencyLevel)}
	}
	return nil
}

// NewTicket builds a ticket from a normalized event and its classification.
func NewTicket(event NormalizedEvent, c Classification, processedAt time.Time) Ticket {
	t := Ticket{
		Source:          event.Source,
		IDFromSource:    event.IDFromSource,
		CustomerID:      event.CustomerID,
		LocationAssetID: event.LocationAssetID,
		ConnectorID:     event.ConnectorID,
		FaultTime:       event.FaultTime,
	}
	t.Apply(event, c, processedAt)
	return t
}

// Apply overwrites the fields a later sighting of the same fault may change.
// Identity, creation time and the original fault time are left alone.
func (t *Ticket) Apply(event NormalizedEvent, c Classification, processedAt time.Time) {
	t.Status = event.Status
	t.DowntimeType = event.DowntimeType
	t.FaultType = event.FaultType
	t.ResolvedAt = event.ResolvedAt
	t.ConnectorID = event.ConnectorID
	t.IsAlarm = event.IsAlarm
	t.UrgencyLevel = c.Urgency
	t.ResponseTimeHours = c.ResponseTimeHours
	t.StationWide = c.StationWide
	t.ActionsTaken = append([]Action(nil), c.Actions...)
	processed := processedAt.UTC()
	t.ProcessedAt = &processed
}
