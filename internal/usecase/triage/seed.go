package triage

import (
	"context"
	"errors"
	"log/slog"

	"faulttriage/internal/bootstrap/logging"
	"faulttriage/internal/domain/fault"
	"faulttriage/internal/errs"
)

type SeedResult struct {
	Skipped   bool                  `json:"skipped"`
	Customers []fault.Customer      `json:"customers"`
	Locations []fault.Location      `json:"locations"`
	Assets    []fault.LocationAsset `json:"location_assets"`
}

type seedSite struct {
	customer fault.Customer
	location string
	asset    string
}

var demoSites = []seedSite{
	{customer: fault.Customer{Name: "Fast Response Corp", SLAHours: 2}, location: "Downtown Station", asset: "Station A"},
	{customer: fault.Customer{Name: "Standard Service LLC", SLAHours: 4}, location: "Mall Charging Hub", asset: "Station B"},
}

// Seed inserts the demo customers, locations and assets in one transaction.
// It does nothing when any customer already exists.
func (s *Service) Seed(ctx context.Context) (SeedResult, error) {
	if ctx == nil {
		return SeedResult{}, errors.New("context is required")
	}
	if s.repo == nil || s.uow == nil {
		return SeedResult{}, errors.New("fault repository and unit of work are required")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.seed"))

	var out SeedResult
	err := s.uow.WithTx(logCtx, func(txCtx context.Context) error {
		count, err := s.repo.CountCustomers(txCtx)
		if err != nil {
			return err
		}
		if count > 0 {
			out.Skipped = true
			return nil
		}

		for _, site := range demoSites {
			customer, err := s.repo.CreateCustomer(txCtx, site.customer)
			if err != nil {
				return err
			}
			location, err := s.repo.CreateLocation(txCtx, fault.Location{Name: site.location, CustomerID: customer.ID})
			if err != nil {
				return err
			}
			asset, err := s.repo.CreateLocationAsset(txCtx, fault.LocationAsset{
				Name:       site.asset,
				LocationID: location.ID,
				CustomerID: customer.ID,
			})
			if err != nil {
				return err
			}
			out.Customers = append(out.Customers, customer)
			out.Locations = append(out.Locations, location)
			out.Assets = append(out.Assets, asset)
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, errs.Wrap(err, "seed reference data")
	}

	if out.Skipped {
		logging.Info(logCtx, "seed skipped, customers already present")
	} else {
		logging.Info(logCtx, "seed data created", slog.Int("customers", len(out.Customers)), slog.Int("assets", len(out.Assets)))
	}
	return out, nil
}
