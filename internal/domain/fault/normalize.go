package fault

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// FlexInt decodes a JSON number or a numeric string.
type FlexInt int64

func (v *FlexInt) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}
	kind := "number"
	if strings.HasPrefix(raw, `"`) {
		kind = "string"
	}
	raw = strings.TrimSpace(strings.Trim(raw, `"`))
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Accept integral floats such as 12.0 from loosely typed feeds.
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int64(f)) {
			// encoding/json fills in Field when the error surfaces from a struct.
			return &json.UnmarshalTypeError{Value: kind + " " + raw, Type: reflect.TypeOf(int64(0))}
		}
		n = int64(f)
	}
	*v = FlexInt(n)
	return nil
}

// RawEvent is an upstream payload as decoded from JSON, before validation.
type RawEvent struct {
	IDFromSource    *FlexInt `json:"id_from_source,omitempty"`
	CustomerID      *FlexInt `json:"customer_id" validate:"required,gt=0" jsonschema:"required"`
	LocationAssetID *FlexInt `json:"location_asset_id" validate:"required,gt=0" jsonschema:"required"`
	ConnectorID     *FlexInt `json:"connector_id,omitempty"`
	FaultTime       string   `json:"fault_time" validate:"required" jsonschema:"required,format=date-time"`
	ResolvedAt      *string  `json:"resolved_at,omitempty" jsonschema:"format=date-time"`
	Status          string   `json:"status" validate:"required" jsonschema:"required"`
	DowntimeType    string   `json:"downtime_type,omitempty"`
	FaultType       string   `json:"fault_type" validate:"required" jsonschema:"required"`
	Source          string   `json:"source" validate:"required" jsonschema:"required"`
	IsAlarm         *bool    `json:"is_alarm,omitempty"`
	UrgencyLevel    string   `json:"urgency_level,omitempty" jsonschema:"enum=critical,enum=high,enum=medium,enum=low,enum=info,enum=resolved"`
}

// CanonicalSource is the stored form of a source name. Sources compare
// case-insensitively, so "ChargePoint" and "chargepoint" share dedup keys.
func CanonicalSource(source string) string {
	return strings.ToLower(strings.TrimSpace(source))
}

// DedupKey returns the key the event will deduplicate under once normalized.
func (r RawEvent) DedupKey() (DedupKey, bool) {
	if r.IDFromSource == nil {
		return DedupKey{}, false
	}
	return DedupKey{Source: CanonicalSource(r.Source), IDFromSource: int64(*r.IDFromSource)}, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// NewValidator returns a validator reporting JSON field names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize validates raw and coerces it into a NormalizedEvent. It checks
// presence and shape only; references are resolved by the caller.
func Normalize(v *validator.Validate, raw RawEvent) (NormalizedEvent, error) {
	if v == nil {
		v = NewValidator()
	}

	raw.FaultTime = strings.TrimSpace(raw.FaultTime)
	raw.Status = strings.TrimSpace(raw.Status)
	raw.FaultType = strings.TrimSpace(raw.FaultType)
	raw.Source = CanonicalSource(raw.Source)
	raw.DowntimeType = strings.TrimSpace(raw.DowntimeType)

	if err := v.Struct(raw); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			reason := "is required"
			if fe.Tag() != "required" {
				reason = fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
			}
			return NormalizedEvent{}, &ValidationError{Field: fe.Field(), Reason: reason}
		}
		return NormalizedEvent{}, &ValidationError{Field: "payload", Reason: err.Error()}
	}

	faultTime, err := ParseTimestamp(raw.FaultTime)
	if err != nil {
		return NormalizedEvent{}, &ValidationError{Field: "fault_time", Reason: err.Error()}
	}

	var resolvedAt *time.Time
	if raw.ResolvedAt != nil && strings.TrimSpace(*raw.ResolvedAt) != "" {
		ts, err := ParseTimestamp(*raw.ResolvedAt)
		if err != nil {
			return NormalizedEvent{}, &ValidationError{Field: "resolved_at", Reason: err.Error()}
		}
		resolvedAt = &ts
	}

	override := UrgencyLevel(strings.ToLower(strings.TrimSpace(raw.UrgencyLevel)))
	if !override.Valid() {
		return NormalizedEvent{}, &ValidationError{Field: "urgency_level", Reason: fmt.Sprintf("%q is not included in the list", raw.UrgencyLevel)}
	}

	out := NormalizedEvent{
		Source:          raw.Source,
		IDFromSource:    optionalInt(raw.IDFromSource),
		CustomerID:      uint64(*raw.CustomerID),
		LocationAssetID: uint64(*raw.LocationAssetID),
		ConnectorID:     optionalInt(raw.ConnectorID),
		FaultTime:       faultTime,
		ResolvedAt:      resolvedAt,
		Status:          raw.Status,
		DowntimeType:    raw.DowntimeType,
		FaultType:       raw.FaultType,
		IsAlarm:         raw.IsAlarm != nil && *raw.IsAlarm,
		UrgencyOverride: override,
	}
	return out, nil
}

// ParseTimestamp parses an ISO-8601 timestamp into UTC. Timestamps without a
// zone are read as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a valid ISO-8601 timestamp", value)
}

func optionalInt(v *FlexInt) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}
