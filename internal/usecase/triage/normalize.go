package triage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"faulttriage/internal/bootstrap/logging"
	"faulttriage/internal/domain/fault"
	"faulttriage/internal/errs"
	"faulttriage/internal/ports"
)

// normalized is an event with its references resolved.
type normalized struct {
	event    fault.NormalizedEvent
	customer fault.Customer
	asset    fault.LocationAsset
}

// Normalize validates raw and resolves the customer and asset it points at.
// It never writes.
func (s *Service) Normalize(ctx context.Context, raw fault.RawEvent) (fault.NormalizedEvent, error) {
	n, err := s.normalize(ctx, raw)
	if err != nil {
		return fault.NormalizedEvent{}, err
	}
	return n.event, nil
}

func (s *Service) normalize(ctx context.Context, raw fault.RawEvent) (normalized, error) {
	event, err := fault.Normalize(s.validate, raw)
	if err != nil {
		return normalized{}, err
	}

	customer, err := s.lookupCustomer(ctx, event.CustomerID)
	if err != nil {
		return normalized{}, err
	}

	asset, err := s.repo.GetLocationAsset(ctx, event.LocationAssetID)
	if err != nil {
		if errors.Is(err, ports.ErrLocationAssetNotFound) {
			return normalized{}, &fault.InvalidReferenceError{Field: "location_asset_id", ID: event.LocationAssetID, Reason: "not found"}
		}
		return normalized{}, errs.Wrap(err, "load location asset")
	}
	if asset.CustomerID != customer.ID {
		return normalized{}, &fault.InvalidReferenceError{
			Field:  "location_asset_id",
			ID:     asset.ID,
			Reason: fmt.Sprintf("does not belong to customer %d", customer.ID),
		}
	}

	return normalized{event: event, customer: customer, asset: asset}, nil
}

func customerCacheKey(id uint64) string {
	return fmt.Sprintf("customer:%d", id)
}

// lookupCustomer reads through the cache. Cache failures are logged and fall
// back to the repository.
func (s *Service) lookupCustomer(ctx context.Context, customerID uint64) (fault.Customer, error) {
	key := customerCacheKey(customerID)
	if s.cache != nil {
		value, found, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			logging.Warn(ctx, "customer cache read failed", slog.String("key", key), slog.Any("err", errs.Loggable(err)))
		case found:
			var customer fault.Customer
			if err := json.Unmarshal([]byte(value), &customer); err == nil && customer.ID == customerID {
				return customer, nil
			}
			logging.Warn(ctx, "discarding malformed customer cache entry", slog.String("key", key))
		}
	}

	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, ports.ErrCustomerNotFound) {
			return fault.Customer{}, &fault.InvalidReferenceError{Field: "customer_id", ID: customerID, Reason: "not found"}
		}
		return fault.Customer{}, errs.Wrap(err, "load customer")
	}

	if s.cache != nil {
		if raw, err := json.Marshal(customer); err == nil {
			if err := s.cache.Set(ctx, key, string(raw), s.customerTTL); err != nil {
				logging.Warn(ctx, "customer cache write failed", slog.String("key", key), slog.Any("err", errs.Loggable(err)))
			}
		}
	}
	return customer, nil
}
