package fault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fastCustomer     = Customer{ID: 1, Name: "Fast Response Corp", SLAHours: 2}
	standardCustomer = Customer{ID: 2, Name: "Standard Service LLC", SLAHours: 4}
	relaxedCustomer  = Customer{ID: 3, Name: "Relaxed Ltd", SLAHours: 8}
	anyAsset         = LocationAsset{ID: 10, Name: "Station A", LocationID: 5, CustomerID: 1}
)

func int64Ptr(v int64) *int64 { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func baseEvent() NormalizedEvent {
	return NormalizedEvent{
		Source:          "chargepoint",
		IDFromSource:    int64Ptr(19824590),
		CustomerID:      1,
		LocationAssetID: 10,
		ConnectorID:     int64Ptr(1),
		FaultTime:       time.Date(2025, 6, 4, 15, 30, 12, 0, time.UTC),
		Status:          "NEEDS SERVICE",
		DowntimeType:    "NEEDS SERVICE",
		FaultType:       "Payment Terminal Error",
		IsAlarm:         true,
	}
}

func classify(event NormalizedEvent, customer Customer) Classification {
	return NewRuleEngine(DefaultTaxonomy()).Classify(event, customer, anyAsset)
}

func TestClassifyGroundFaultIsCriticalForEverySLA(t *testing.T) {
	for _, customer := range []Customer{fastCustomer, standardCustomer, relaxedCustomer} {
		event := baseEvent()
		event.FaultType = "Ground Fault Circuit Interrupter"

		got := classify(event, customer)

		assert.Equal(t, UrgencyCritical, got.Urgency, "sla=%d", customer.SLAHours)
		assert.Contains(t, got.Actions, ActionDispatchTechnician)
		assert.Contains(t, got.Actions, ActionNotifyCustomer)
		assert.NotContains(t, got.Actions, ActionDispatchTechnicianUrgent)
		assert.NotContains(t, got.Actions, ActionDispatchTechnicianStandard)
		require.NotNil(t, got.ResponseTimeHours)
		assert.LessOrEqual(t, *got.ResponseTimeHours, 1)
		assert.True(t, got.SafetyOverride)
		assert.Equal(t, PriorityImmediate, got.Priority())
	}
}

func TestClassifyCriticalOverrideFromInput(t *testing.T) {
	event := baseEvent()
	event.FaultType = "Regular Fault"
	event.UrgencyOverride = UrgencyCritical

	got := classify(event, standardCustomer)

	assert.Equal(t, UrgencyCritical, got.Urgency)
	assert.Equal(t, []Action{ActionDispatchTechnician, ActionNotifyCustomer}, got.Actions)
}

func TestClassifyGroundFaultPatternIsCaseSensitive(t *testing.T) {
	event := baseEvent()
	event.FaultType = "ground fault"

	got := classify(event, standardCustomer)

	assert.Equal(t, UrgencyMedium, got.Urgency)
	assert.NotContains(t, got.Actions, ActionDispatchTechnician)
}

func TestClassifyNeedsServiceUsesCustomerSLA(t *testing.T) {
	tests := []struct {
		name     string
		customer Customer
		urgency  UrgencyLevel
		hours    int
		action   Action
	}{
		{name: "two hours", customer: fastCustomer, urgency: UrgencyHigh, hours: 2, action: ActionDispatchTechnicianUrgent},
		{name: "four hours", customer: standardCustomer, urgency: UrgencyMedium, hours: 4, action: ActionDispatchTechnicianStandard},
		{name: "eight hours", customer: relaxedCustomer, urgency: UrgencyLow, hours: 8, action: ActionDispatchTechnicianStandard},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(baseEvent(), tc.customer)

			assert.Equal(t, tc.urgency, got.Urgency)
			require.NotNil(t, got.ResponseTimeHours)
			assert.Equal(t, tc.hours, *got.ResponseTimeHours)
			assert.Equal(t, []Action{tc.action}, got.Actions)
			assert.False(t, got.StationWide)
		})
	}
}

func TestClassifyNoServiceNeeded(t *testing.T) {
	event := baseEvent()
	event.Status = "NO SERVICE NEEDED"
	event.DowntimeType = "NONE"
	event.FaultType = "Session Started"
	event.IsAlarm = false

	got := classify(event, standardCustomer)
	assert.Equal(t, UrgencyInfo, got.Urgency)
	assert.Equal(t, []Action{ActionLogOnly}, got.Actions)
	assert.Nil(t, got.ResponseTimeHours)

	event.IsAlarm = true
	event.FaultType = "Circuit Sharing Load Decreased"
	got = classify(event, fastCustomer)
	assert.Equal(t, UrgencyLow, got.Urgency)
	assert.Equal(t, []Action{ActionLogAndMonitor}, got.Actions)
	assert.Nil(t, got.ResponseTimeHours)
}

func TestClassifyUnreachableEscalatesAndFlagsNetwork(t *testing.T) {
	event := baseEvent()
	event.Source = "synop"
	event.Status = "UNREACHABLE_Unreachable"
	event.DowntimeType = "network error"
	event.FaultType = "Unreachable"

	got := classify(event, standardCustomer)

	assert.Equal(t, UrgencyHigh, got.Urgency)
	assert.Equal(t, []Action{ActionEscalateToOps, ActionNotifyCustomer, ActionCheckNetworkStatus}, got.Actions)
	assert.True(t, got.StationWide)
	assert.Nil(t, got.ResponseTimeHours)
}

func TestClassifyCriticalAndUnreachableKeepCriticalWithoutDuplicateNotify(t *testing.T) {
	event := baseEvent()
	event.Status = "UNREACHABLE"
	event.FaultType = "Ground Fault"

	got := classify(event, standardCustomer)

	assert.Equal(t, UrgencyCritical, got.Urgency)
	assert.Equal(t, []Action{ActionDispatchTechnician, ActionNotifyCustomer, ActionEscalateToOps}, got.Actions)
}

func TestClassifyStationWideWhenConnectorMissing(t *testing.T) {
	event := baseEvent()
	event.Source = "synop"
	event.ConnectorID = nil
	event.DowntimeType = "network error"
	event.FaultType = "network error"

	got := classify(event, fastCustomer)

	assert.Equal(t, UrgencyHigh, got.Urgency)
	assert.True(t, got.StationWide)
	assert.Equal(t, []Action{ActionDispatchTechnicianUrgent, ActionCheckNetworkStatus}, got.Actions)
}

func TestClassifyNetworkErrorLeavesUrgencyAlone(t *testing.T) {
	event := baseEvent()
	event.DowntimeType = "network error"

	got := classify(event, relaxedCustomer)

	assert.Equal(t, UrgencyLow, got.Urgency)
	assert.True(t, got.StationWide)
	assert.Equal(t, []Action{ActionDispatchTechnicianStandard, ActionCheckNetworkStatus}, got.Actions)
}

func TestClassifyUnknownSynopErrorAddsLogging(t *testing.T) {
	event := baseEvent()
	event.Source = "synop"
	event.ConnectorID = int64Ptr(2)
	event.FaultType = "OtherError_023983"

	got := classify(event, standardCustomer)
	assert.Equal(t, UrgencyMedium, got.Urgency)
	assert.Equal(t, []Action{ActionDispatchTechnicianStandard, ActionLogUnknownError}, got.Actions)

	// A higher urgency is left alone.
	got = classify(event, fastCustomer)
	assert.Equal(t, UrgencyHigh, got.Urgency)
	assert.Contains(t, got.Actions, ActionLogUnknownError)
}

func TestClassifyUnknownSynopErrorRaisesLowToMedium(t *testing.T) {
	event := baseEvent()
	event.Source = "synop"
	event.Status = "NO SERVICE NEEDED"
	event.FaultType = "OtherError_1"
	event.IsAlarm = false

	got := classify(event, standardCustomer)

	assert.Equal(t, UrgencyMedium, got.Urgency)
	assert.Equal(t, []Action{ActionLogOnly, ActionLogUnknownError}, got.Actions)
}

func TestClassifyUnknownErrorIgnoredForOtherSources(t *testing.T) {
	event := baseEvent()
	event.FaultType = "OtherError_023983"

	got := classify(event, standardCustomer)

	assert.NotContains(t, got.Actions, ActionLogUnknownError)
}

func TestClassifyResolvedWinsOverEverything(t *testing.T) {
	event := baseEvent()
	event.Source = "synop"
	event.ConnectorID = nil
	event.FaultType = "Ground Fault"
	event.ResolvedAt = timePtr(time.Date(2025, 6, 4, 13, 25, 30, 0, time.UTC))
	event.UrgencyOverride = UrgencyCritical

	got := classify(event, fastCustomer)

	assert.Equal(t, UrgencyResolved, got.Urgency)
	assert.Equal(t, []Action{ActionCloseTicket, ActionLogResolution, ActionCheckNetworkStatus}, got.Actions)
	assert.Nil(t, got.ResponseTimeHours)
	assert.Equal(t, PriorityNone, got.Priority())
}

func TestClassifyResolvedKeepsResolvedForUnknownSynopError(t *testing.T) {
	event := baseEvent()
	event.Source = "synop"
	event.FaultType = "OtherError_7"
	event.ResolvedAt = timePtr(time.Date(2025, 6, 4, 13, 25, 30, 0, time.UTC))

	got := classify(event, standardCustomer)

	assert.Equal(t, UrgencyResolved, got.Urgency)
	assert.Equal(t, []Action{ActionCloseTicket, ActionLogResolution, ActionLogUnknownError}, got.Actions)
}

func TestClassifyAutoResolvedEvent(t *testing.T) {
	event := baseEvent()
	event.Status = "NO SERVICE NEEDED"
	event.DowntimeType = "NONE"
	event.FaultType = "Temporary Communication Error"
	event.IsAlarm = false
	event.ResolvedAt = timePtr(time.Date(2025, 6, 4, 13, 25, 30, 0, time.UTC))

	got := classify(event, fastCustomer)

	assert.Equal(t, UrgencyResolved, got.Urgency)
	assert.Equal(t, []Action{ActionCloseTicket, ActionLogResolution}, got.Actions)
	assert.Equal(t, []string{RuleResolution}, got.FiredRules)
}

func TestClassifyDefaultRuleWhenNothingElseMatches(t *testing.T) {
	rules := DefaultRules()
	// Without the status rules nothing sets urgency for a plain event.
	kept := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Name == RuleNeedsServiceSLA || r.Name == RuleNoServiceNeeded {
			continue
		}
		kept = append(kept, r)
	}

	got := NewRuleEngine(DefaultTaxonomy(), kept...).Classify(baseEvent(), standardCustomer, anyAsset)

	assert.Equal(t, UrgencyLow, got.Urgency)
	assert.Equal(t, []Action{ActionLogAndMonitor}, got.Actions)
	assert.Equal(t, []string{RuleDefault}, got.FiredRules)
}

func TestClassifyIsDeterministic(t *testing.T) {
	event := baseEvent()
	event.Source = "synop"
	event.ConnectorID = nil
	event.FaultType = "OtherError_023983"

	engine := NewRuleEngine(DefaultTaxonomy())
	first := engine.Classify(event, standardCustomer, anyAsset)
	for i := 0; i < 5; i++ {
		again := engine.Classify(event, standardCustomer, anyAsset)
		assert.Equal(t, first, again)
	}
}

func TestClassifyUsesConfiguredTaxonomy(t *testing.T) {
	tax := DefaultTaxonomy()
	tax.CriticalFaultPatterns = append(tax.CriticalFaultPatterns, "Arc Flash")

	event := baseEvent()
	event.FaultType = "Arc Flash Detected"

	got := NewRuleEngine(tax).Classify(event, relaxedCustomer, anyAsset)

	assert.Equal(t, UrgencyCritical, got.Urgency)
	require.NotNil(t, got.ResponseTimeHours)
	assert.Equal(t, 1, *got.ResponseTimeHours)
}

func TestResolveSLABoundaries(t *testing.T) {
	assert.Equal(t, SLACommitment{Urgency: UrgencyHigh, ResponseTimeHours: 1, Action: ActionDispatchTechnicianUrgent}, ResolveSLA(1))
	assert.Equal(t, SLACommitment{Urgency: UrgencyHigh, ResponseTimeHours: 2, Action: ActionDispatchTechnicianUrgent}, ResolveSLA(2))
	assert.Equal(t, SLACommitment{Urgency: UrgencyMedium, ResponseTimeHours: 3, Action: ActionDispatchTechnicianStandard}, ResolveSLA(3))
	assert.Equal(t, SLACommitment{Urgency: UrgencyMedium, ResponseTimeHours: 4, Action: ActionDispatchTechnicianStandard}, ResolveSLA(4))
	assert.Equal(t, SLACommitment{Urgency: UrgencyLow, ResponseTimeHours: 5, Action: ActionDispatchTechnicianStandard}, ResolveSLA(5))
}

func TestSuppressDispatch(t *testing.T) {
	in := []Action{ActionDispatchTechnician, ActionNotifyCustomer, ActionDispatchTechnicianUrgent, ActionCheckNetworkStatus, ActionDispatchTechnicianStandard}
	assert.Equal(t, []Action{ActionNotifyCustomer, ActionCheckNetworkStatus}, SuppressDispatch(in))
}

func TestWithDispatchHistory(t *testing.T) {
	prior := []Action{ActionDispatchTechnicianUrgent, ActionCheckNetworkStatus}
	next := []Action{ActionCheckNetworkStatus, ActionUpdateExistingTicket}

	assert.Equal(t,
		[]Action{ActionDispatchTechnicianUrgent, ActionCheckNetworkStatus, ActionUpdateExistingTicket},
		WithDispatchHistory(prior, next))
	assert.Equal(t, next, WithDispatchHistory(nil, next))
}
