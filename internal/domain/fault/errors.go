package fault

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrInvalidReference = errors.New("invalid reference")
	ErrStorageConflict  = errors.New("storage conflict on dedup key")
	ErrInvalidTaxonomy  = errors.New("invalid taxonomy")
)

// ValidationError names the payload field that is missing or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// InvalidReferenceError reports a customer or asset id that does not resolve,
// or an asset owned by a different customer than the event claims.
type InvalidReferenceError struct {
	Field  string
	ID     uint64
	Reason string
}

func (e *InvalidReferenceError) Error() string {
	subject := "reference"
	switch e.Field {
	case "customer_id":
		subject = "customer"
	case "location_asset_id":
		subject = "location asset"
	}
	return fmt.Sprintf("Invalid %s: %s %d %s", subject, e.Field, e.ID, e.Reason)
}

func (e *InvalidReferenceError) Is(target error) bool { return target == ErrInvalidReference }

// Error kinds reported in processing results.
const (
	KindValidation      = "validation_error"
	KindInvalidRef      = "invalid_reference"
	KindStorageConflict = "storage_conflict"
	KindInternal        = "internal_error"
)

// KindOf classifies err into one of the result error kinds.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInvalidReference):
		return KindInvalidRef
	case errors.Is(err, ErrStorageConflict):
		return KindStorageConflict
	default:
		return KindInternal
	}
}
