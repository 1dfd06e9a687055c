package fault

// SafetyResponseHours caps the response window of critical safety faults,
// whatever the customer's contract says.
const SafetyResponseHours = 1

// SLACommitment is the response promised for a needs-service fault.
type SLACommitment struct {
	Urgency           UrgencyLevel
	ResponseTimeHours int
	Action            Action
}

// ResolveSLA maps a customer's contracted hours onto urgency and dispatch:
// up to 2h is urgent, up to 4h is standard at medium urgency, anything longer
// is standard at low urgency. The response window is the contract itself.
func ResolveSLA(slaHours int) SLACommitment {
	switch {
	case slaHours <= 2:
		return SLACommitment{Urgency: UrgencyHigh, ResponseTimeHours: slaHours, Action: ActionDispatchTechnicianUrgent}
	case slaHours <= 4:
		return SLACommitment{Urgency: UrgencyMedium, ResponseTimeHours: slaHours, Action: ActionDispatchTechnicianStandard}
	default:
		return SLACommitment{Urgency: UrgencyLow, ResponseTimeHours: slaHours, Action: ActionDispatchTechnicianStandard}
	}
}
