package fault

// RuleInput is everything a classification rule may look at.
type RuleInput struct {
	Event    NormalizedEvent
	Customer Customer
	Asset    LocationAsset
	Taxonomy Taxonomy
}

// Accumulator carries classification state from one rule to the next.
// Actions accumulate across rules; urgency is owned by the first
// urgency-setting rule that fires.
type Accumulator struct {
	Urgency           UrgencyLevel
	Actions           []Action
	StationWide       bool
	ResponseTimeHours *int
	SafetyOverride    bool
	Fired             []string
}

func (a *Accumulator) add(actions ...Action) {
	for _, action := range actions {
		a.Actions = AppendAction(a.Actions, action)
	}
}

func (a *Accumulator) setUrgencyIfUnset(u UrgencyLevel) {
	if a.Urgency == UrgencyUnset {
		a.Urgency = u
	}
}

func (a *Accumulator) setResponseTime(hours int) {
	a.ResponseTimeHours = &hours
}

// Rule is one predicate→effect step of the classification pipeline.
type Rule struct {
	Name   string
	Match  func(in RuleInput, acc *Accumulator) bool
	Effect func(in RuleInput, acc *Accumulator)
}

// Rule names, in evaluation order.
const (
	RuleResolution       = "resolution"
	RuleCriticalSafety   = "critical_safety"
	RuleUnreachable      = "unreachable_escalation"
	RuleNeedsServiceSLA  = "needs_service_sla"
	RuleNoServiceNeeded  = "no_service_needed"
	RuleStationWide      = "station_wide"
	RuleUnknownSourceErr = "unknown_source_error"
	RuleDefault          = "default"
)

// DefaultRules returns the classification rules in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: RuleResolution,
			Match: func(in RuleInput, _ *Accumulator) bool {
				return in.Event.Resolved()
			},
			Effect: func(_ RuleInput, acc *Accumulator) {
				acc.setUrgencyIfUnset(UrgencyResolved)
				acc.add(ActionCloseTicket, ActionLogResolution)
			},
		},
		{
			Name: RuleCriticalSafety,
			Match: func(in RuleInput, acc *Accumulator) bool {
				return acc.Urgency != UrgencyResolved &&
					IsCriticalSafetyIssue(in.Taxonomy, in.Event.FaultType, in.Event.UrgencyOverride)
			},
			Effect: func(_ RuleInput, acc *Accumulator) {
				acc.setUrgencyIfUnset(UrgencyCritical)
				acc.add(ActionDispatchTechnician, ActionNotifyCustomer)
				acc.SafetyOverride = true
				acc.setResponseTime(SafetyResponseHours)
			},
		},
		{
			Name: RuleUnreachable,
			Match: func(in RuleInput, acc *Accumulator) bool {
				return acc.Urgency != UrgencyResolved &&
					in.Taxonomy.IsUnreachable(in.Event.Status, in.Event.FaultType)
			},
			Effect: func(_ RuleInput, acc *Accumulator) {
				acc.setUrgencyIfUnset(UrgencyHigh)
				acc.add(ActionEscalateToOps, ActionNotifyCustomer)
			},
		},
		{
			Name: RuleNeedsServiceSLA,
			Match: func(in RuleInput, acc *Accumulator) bool {
				return acc.Urgency == UrgencyUnset && in.Taxonomy.IsNeedsService(in.Event.Status)
			},
			Effect: func(in RuleInput, acc *Accumulator) {
				sla := ResolveSLA(in.Customer.SLAHours)
				acc.Urgency = sla.Urgency
				acc.add(sla.Action)
				acc.setResponseTime(sla.ResponseTimeHours)
			},
		},
		{
			Name: RuleNoServiceNeeded,
			Match: func(in RuleInput, acc *Accumulator) bool {
				return acc.Urgency == UrgencyUnset &&
					!in.Taxonomy.IsNeedsService(in.Event.Status) &&
					!in.Event.Resolved()
			},
			Effect: func(in RuleInput, acc *Accumulator) {
				if in.Event.IsAlarm {
					acc.Urgency = UrgencyLow
					acc.add(ActionLogAndMonitor)
					return
				}
				acc.Urgency = UrgencyInfo
				acc.add(ActionLogOnly)
			},
		},
		{
			Name: RuleStationWide,
			Match: func(in RuleInput, _ *Accumulator) bool {
				return in.Event.ConnectorID == nil ||
					in.Taxonomy.IsNetworkError(in.Event.DowntimeType) ||
					in.Taxonomy.IsNetworkError(in.Event.FaultType)
			},
			Effect: func(_ RuleInput, acc *Accumulator) {
				acc.StationWide = true
				acc.add(ActionCheckNetworkStatus)
			},
		},
		{
			Name: RuleUnknownSourceErr,
			Match: func(in RuleInput, _ *Accumulator) bool {
				return in.Taxonomy.IsDiagnosticSource(in.Event.Source) &&
					!in.Taxonomy.IsRecognized(in.Event.FaultType)
			},
			Effect: func(_ RuleInput, acc *Accumulator) {
				acc.add(ActionLogUnknownError)
				if acc.Urgency != UrgencyResolved && acc.Urgency.severity() < UrgencyMedium.severity() {
					acc.Urgency = UrgencyMedium
				}
			},
		},
		{
			Name: RuleDefault,
			Match: func(_ RuleInput, acc *Accumulator) bool {
				return acc.Urgency == UrgencyUnset
			},
			Effect: func(_ RuleInput, acc *Accumulator) {
				acc.Urgency = UrgencyLow
				acc.add(ActionLogAndMonitor)
			},
		},
	}
}

// Classification is the outcome of running the rules over one event.
type Classification struct {
	Urgency           UrgencyLevel
	Actions           []Action
	StationWide       bool
	ResponseTimeHours *int
	SafetyOverride    bool
	FiredRules        []string
}

func (c Classification) Priority() Priority {
	return PriorityFor(c.Urgency)
}

// RuleEngine applies an ordered rule list with a fixed taxonomy.
type RuleEngine struct {
	taxonomy Taxonomy
	rules    []Rule
}

func NewRuleEngine(taxonomy Taxonomy, rules ...Rule) *RuleEngine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &RuleEngine{taxonomy: taxonomy, rules: rules}
}

// Classify is a pure function of its inputs: the same event, customer and
// asset always yield the same classification.
func (e *RuleEngine) Classify(event NormalizedEvent, customer Customer, asset LocationAsset) Classification {
	in := RuleInput{
		Event:    event,
		Customer: customer,
		Asset:    asset,
		Taxonomy: e.taxonomy,
	}

	acc := &Accumulator{Actions: make([]Action, 0, 4)}
	for _, rule := range e.rules {
		if !rule.Match(in, acc) {
			continue
		}
		rule.Effect(in, acc)
		acc.Fired = append(acc.Fired, rule.Name)
	}

	if acc.SafetyOverride {
		capped := SafetyResponseHours
		if acc.ResponseTimeHours != nil && *acc.ResponseTimeHours < capped {
			capped = *acc.ResponseTimeHours
		}
		acc.setResponseTime(capped)
	}

	return Classification{
		Urgency:           acc.Urgency,
		Actions:           acc.Actions,
		StationWide:       acc.StationWide,
		ResponseTimeHours: acc.ResponseTimeHours,
		SafetyOverride:    acc.SafetyOverride,
		FiredRules:        acc.Fired,
	}
}
