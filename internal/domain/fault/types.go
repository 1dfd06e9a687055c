package fault

import (
	"fmt"
	"time"
)

type UrgencyLevel string

const (
	UrgencyUnset    UrgencyLevel = ""
	UrgencyCritical UrgencyLevel = "critical"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyLow      UrgencyLevel = "low"
	UrgencyInfo     UrgencyLevel = "info"
	UrgencyResolved UrgencyLevel = "resolved"
)

var allowedUrgencies = map[UrgencyLevel]struct{}{
	UrgencyCritical: {},
	UrgencyHigh:     {},
	UrgencyMedium:   {},
	UrgencyLow:      {},
	UrgencyInfo:     {},
	UrgencyResolved: {},
}

// Valid reports whether u is an allowed stored value. Blank is allowed.
func (u UrgencyLevel) Valid() bool {
	if u == UrgencyUnset {
		return true
	}
	_, ok := allowedUrgencies[u]
	return ok
}

// severity orders the active urgency levels. resolved and unset rank zero.
func (u UrgencyLevel) severity() int {
	switch u {
	case UrgencyCritical:
		return 5
	case UrgencyHigh:
		return 4
	case UrgencyMedium:
		return 3
	case UrgencyLow:
		return 2
	case UrgencyInfo:
		return 1
	default:
		return 0
	}
}

type Priority string

const (
	PriorityImmediate Priority = "immediate"
	PriorityUrgent    Priority = "urgent"
	PriorityStandard  Priority = "standard"
	PriorityLow       Priority = "low"
	PriorityNone      Priority = "none"
)

// PriorityFor maps an urgency to the response priority reported to callers.
func PriorityFor(u UrgencyLevel) Priority {
	switch u {
	case UrgencyCritical:
		return PriorityImmediate
	case UrgencyHigh:
		return PriorityUrgent
	case UrgencyMedium:
		return PriorityStandard
	case UrgencyLow:
		return PriorityLow
	default:
		return PriorityNone
	}
}

type Action string

const (
	ActionCloseTicket                Action = "close_ticket"
	ActionLogResolution              Action = "log_resolution"
	ActionDispatchTechnician         Action = "dispatch_technician"
	ActionDispatchTechnicianUrgent   Action = "dispatch_technician_urgent"
	ActionDispatchTechnicianStandard Action = "dispatch_technician_standard"
	ActionNotifyCustomer             Action = "notify_customer"
	ActionEscalateToOps              Action = "escalate_to_ops"
	ActionLogAndMonitor              Action = "log_and_monitor"
	ActionLogOnly                    Action = "log_only"
	ActionCheckNetworkStatus         Action = "check_network_status"
	ActionLogUnknownError            Action = "log_unknown_error"
	ActionUpdateExistingTicket       Action = "update_existing_ticket"
)

// IsDispatch reports whether a sends a technician on site.
func (a Action) IsDispatch() bool {
	switch a {
	case ActionDispatchTechnician, ActionDispatchTechnicianUrgent, ActionDispatchTechnicianStandard:
		return true
	default:
		return false
	}
}

// SuppressDispatch returns actions without any dispatch entries.
func SuppressDispatch(actions []Action) []Action {
	out := make([]Action, 0, len(actions))
	for _, a := range actions {
		if a.IsDispatch() {
			continue
		}
		out = append(out, a)
	}
	return out
}

// WithDispatchHistory returns the dispatch entries of prior followed by
// actions. A ticket keeps its record of a dispatch after later reports of
// the same fault suppress it from the outgoing list.
func WithDispatchHistory(prior, actions []Action) []Action {
	out := make([]Action, 0, len(prior)+len(actions))
	for _, a := range prior {
		if a.IsDispatch() {
			out = AppendAction(out, a)
		}
	}
	for _, a := range actions {
		out = AppendAction(out, a)
	}
	return out
}

// AppendAction appends a unless it is already present.
func AppendAction(actions []Action, a Action) []Action {
	for _, existing := range actions {
		if existing == a {
			return actions
		}
	}
	return append(actions, a)
}

func ActionStrings(actions []Action) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, string(a))
	}
	return out
}

type TicketAction string

const (
	TicketActionCreateNew      TicketAction = "create_new"
	TicketActionUpdateExisting TicketAction = "update_existing"
)

type Customer struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	SLAHours int    `json:"sla_hours"`
}

type Location struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	CustomerID uint64 `json:"customer_id"`
}

type LocationAsset struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	LocationID uint64 `json:"location_id"`
	CustomerID uint64 `json:"customer_id"`
}

// DedupKey identifies one physical fault across repeated upstream reports.
type DedupKey struct {
	Source       string
	IDFromSource int64
}

func (k DedupKey) String() string {
	return fmt.Sprintf("%s#%d", k.Source, k.IDFromSource)
}

// NormalizedEvent is a validated, typed fault event.
type NormalizedEvent struct {
	Source          string
	IDFromSource    *int64
	CustomerID      uint64
	LocationAssetID uint64
	ConnectorID     *int64
	FaultTime       time.Time
	ResolvedAt      *time.Time
	Status          string
	DowntimeType    string
	FaultType       string
	IsAlarm         bool
	UrgencyOverride UrgencyLevel
}

// DedupKey returns the event's natural key; ok is false when the upstream
// feed did not assign an identifier.
func (e NormalizedEvent) DedupKey() (DedupKey, bool) {
	if e.IDFromSource == nil {
		return DedupKey{}, false
	}
	return DedupKey{Source: e.Source, IDFromSource: *e.IDFromSource}, true
}

func (e NormalizedEvent) Resolved() bool {
	return e.ResolvedAt != nil
}
