package fault

import (
	"fmt"
	"strings"
)

// Taxonomy holds the vocabulary the classification rules match upstream
// free text against. It is configuration data: new fault types are added here,
// not in the rules.
type Taxonomy struct {
	Version string `yaml:"version" toml:"version" json:"version"`

	// NeedsServiceStatus is the status value that asks for an on-site visit.
	NeedsServiceStatus string `yaml:"needs_service_status" toml:"needs_service_status" json:"needs_service_status"`

	// CriticalFaultPatterns are case-sensitive substrings of fault_type that
	// indicate a safety hazard.
	CriticalFaultPatterns []string `yaml:"critical_fault_patterns" toml:"critical_fault_patterns" json:"critical_fault_patterns"`

	UnreachableStatusPrefixes []string `yaml:"unreachable_status_prefixes" toml:"unreachable_status_prefixes" json:"unreachable_status_prefixes"`
	UnreachableFaultTypes     []string `yaml:"unreachable_fault_types" toml:"unreachable_fault_types" json:"unreachable_fault_types"`

	// NetworkErrorMarkers match downtime_type or fault_type case-insensitively.
	NetworkErrorMarkers []string `yaml:"network_error_markers" toml:"network_error_markers" json:"network_error_markers"`

	// DiagnosticSources are feeds whose unrecognised fault types need manual
	// diagnosis.
	DiagnosticSources []string `yaml:"diagnostic_sources" toml:"diagnostic_sources" json:"diagnostic_sources"`

	// RecognizedFaultTypes extends the recognised set beyond the critical,
	// unreachable and network vocabularies.
	RecognizedFaultTypes []string `yaml:"recognized_fault_types" toml:"recognized_fault_types" json:"recognized_fault_types"`
}

func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Version:                   "builtin-1",
		NeedsServiceStatus:        "NEEDS SERVICE",
		CriticalFaultPatterns:     []string{"Ground Fault"},
		UnreachableStatusPrefixes: []string{"UNREACHABLE"},
		UnreachableFaultTypes:     []string{"Unreachable"},
		NetworkErrorMarkers:       []string{"network error"},
		DiagnosticSources:         []string{"synop"},
		RecognizedFaultTypes:      nil,
	}
}

func (t Taxonomy) Validate() error {
	if strings.TrimSpace(t.NeedsServiceStatus) == "" {
		return fmt.Errorf("%w: needs_service_status is required", ErrInvalidTaxonomy)
	}
	if len(nonBlank(t.CriticalFaultPatterns)) == 0 {
		return fmt.Errorf("%w: at least one critical_fault_patterns entry is required", ErrInvalidTaxonomy)
	}
	return nil
}

func (t Taxonomy) IsNeedsService(status string) bool {
	return status == t.NeedsServiceStatus
}

func (t Taxonomy) IsCritical(faultType string) bool {
	for _, pattern := range nonBlank(t.CriticalFaultPatterns) {
		if strings.Contains(faultType, pattern) {
			return true
		}
	}
	return false
}

func (t Taxonomy) IsUnreachable(status string, faultType string) bool {
	for _, prefix := range nonBlank(t.UnreachableStatusPrefixes) {
		if strings.HasPrefix(status, prefix) {
			return true
		}
	}
	return t.isUnreachableFaultType(faultType)
}

func (t Taxonomy) isUnreachableFaultType(faultType string) bool {
	for _, ft := range nonBlank(t.UnreachableFaultTypes) {
		if faultType == ft {
			return true
		}
	}
	return false
}

func (t Taxonomy) IsNetworkError(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	for _, marker := range nonBlank(t.NetworkErrorMarkers) {
		if strings.EqualFold(value, marker) {
			return true
		}
	}
	return false
}

func (t Taxonomy) IsDiagnosticSource(source string) bool {
	for _, s := range nonBlank(t.DiagnosticSources) {
		if strings.EqualFold(source, s) {
			return true
		}
	}
	return false
}

// IsRecognized reports whether faultType belongs to any vocabulary the rules
// know how to handle.
func (t Taxonomy) IsRecognized(faultType string) bool {
	if t.IsCritical(faultType) || t.isUnreachableFaultType(faultType) || t.IsNetworkError(faultType) {
		return true
	}
	for _, ft := range nonBlank(t.RecognizedFaultTypes) {
		if faultType == ft {
			return true
		}
	}
	return false
}

// IsCriticalSafetyIssue reports whether a fault must be treated as a safety
// hazard: its type matches a critical pattern or it already carries critical
// urgency.
func IsCriticalSafetyIssue(t Taxonomy, faultType string, urgency UrgencyLevel) bool {
	return t.IsCritical(faultType) || urgency == UrgencyCritical
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
