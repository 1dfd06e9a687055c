package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"faulttriage/internal/bootstrap/config"
	"faulttriage/internal/bootstrap/database"
	"faulttriage/internal/domain/fault"
	"faulttriage/internal/infrastructure/persistence/relational/model"
	"faulttriage/internal/infrastructure/persistence/relational/uow"
	"faulttriage/internal/ports"
)

func setupFaultRepository(t *testing.T) (*FaultRepository, *gorm.DB) {
	t.Helper()

	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "faults.sqlite"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return NewFaultRepository(db), db
}

func seedReferences(t *testing.T, repo *FaultRepository) (fault.Customer, fault.LocationAsset) {
	t.Helper()
	ctx := context.Background()

	customer, err := repo.CreateCustomer(ctx, fault.Customer{Name: "Fast Response Corp", SLAHours: 2})
	if err != nil {
		t.Fatalf("CreateCustomer() error = %v", err)
	}
	location, err := repo.CreateLocation(ctx, fault.Location{Name: "Downtown Station", CustomerID: customer.ID})
	if err != nil {
		t.Fatalf("CreateLocation() error = %v", err)
	}
	asset, err := repo.CreateLocationAsset(ctx, fault.LocationAsset{
		Name:       "Station A",
		LocationID: location.ID,
		CustomerID: customer.ID,
	})
	if err != nil {
		t.Fatalf("CreateLocationAsset() error = %v", err)
	}
	return customer, asset
}

func newTicket(customer fault.Customer, asset fault.LocationAsset, idFromSource int64) fault.Ticket {
	id := idFromSource
	connector := int64(1)
	hours := 2
	processed := time.Date(2025, 6, 4, 15, 31, 0, 0, time.UTC)
	return fault.Ticket{
		Source:            "chargepoint",
		IDFromSource:      &id,
		CustomerID:        customer.ID,
		LocationAssetID:   asset.ID,
		ConnectorID:       &connector,
		FaultTime:         time.Date(2025, 6, 4, 15, 30, 12, 0, time.UTC),
		Status:            "NEEDS SERVICE",
		DowntimeType:      "NEEDS SERVICE",
		FaultType:         "Payment Terminal Error",
		IsAlarm:           true,
		UrgencyLevel:      fault.UrgencyHigh,
		ResponseTimeHours: &hours,
		ActionsTaken:      []fault.Action{fault.ActionDispatchTechnicianUrgent},
		ProcessedAt:       &processed,
	}
}

func TestReferenceLookups(t *testing.T) {
	repo, _ := setupFaultRepository(t)
	ctx := context.Background()
	customer, asset := seedReferences(t, repo)

	got, err := repo.GetCustomer(ctx, customer.ID)
	if err != nil {
		t.Fatalf("GetCustomer() error = %v", err)
	}
	if got.SLAHours != 2 || got.Name != "Fast Response Corp" {
		t.Fatalf("GetCustomer() = %+v", got)
	}

	gotAsset, err := repo.GetLocationAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetLocationAsset() error = %v", err)
	}
	if gotAsset.CustomerID != customer.ID {
		t.Fatalf("GetLocationAsset() customer_id = %d", gotAsset.CustomerID)
	}

	if _, err := repo.GetCustomer(ctx, 999); !errors.Is(err, ports.ErrCustomerNotFound) {
		t.Fatalf("GetCustomer(999) error = %v", err)
	}
	if _, err := repo.GetLocationAsset(ctx, 999); !errors.Is(err, ports.ErrLocationAssetNotFound) {
		t.Fatalf("GetLocationAsset(999) error = %v", err)
	}

	count, err := repo.CountCustomers(ctx)
	if err != nil {
		t.Fatalf("CountCustomers() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("CountCustomers() = %d", count)
	}
}

func TestCreateAndFindTicketByDedupKey(t *testing.T) {
	repo, _ := setupFaultRepository(t)
	ctx := context.Background()
	customer, asset := seedReferences(t, repo)

	created, err := repo.CreateTicket(ctx, newTicket(customer, asset, 19824590))
	if err != nil {
		t.Fatalf("CreateTicket() error = %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("CreateTicket() id = 0")
	}
	if created.CreatedAt.IsZero() {
		t.Fatalf("CreateTicket() created_at not set")
	}

	found, ok, err := repo.FindByDedupKey(ctx, fault.DedupKey{Source: "chargepoint", IDFromSource: 19824590})
	if err != nil {
		t.Fatalf("FindByDedupKey() error = %v", err)
	}
	if !ok {
		t.Fatalf("FindByDedupKey() expected found=true")
	}
	if found.ID != created.ID {
		t.Fatalf("FindByDedupKey() id = %d, want %d", found.ID, created.ID)
	}
	if len(found.ActionsTaken) != 1 || found.ActionsTaken[0] != fault.ActionDispatchTechnicianUrgent {
		t.Fatalf("FindByDedupKey() actions = %v", found.ActionsTaken)
	}
	if !found.FaultTime.Equal(created.FaultTime) {
		t.Fatalf("FindByDedupKey() fault_time = %s", found.FaultTime)
	}

	_, ok, err = repo.FindByDedupKey(ctx, fault.DedupKey{Source: "synop", IDFromSource: 19824590})
	if err != nil {
		t.Fatalf("FindByDedupKey(other source) error = %v", err)
	}
	if ok {
		t.Fatalf("FindByDedupKey(other source) expected found=false")
	}
}

func TestCreateTicketDuplicateKeyIsStorageConflict(t *testing.T) {
	repo, _ := setupFaultRepository(t)
	ctx := context.Background()
	customer, asset := seedReferences(t, repo)

	if _, err := repo.CreateTicket(ctx, newTicket(customer, asset, 42)); err != nil {
		t.Fatalf("CreateTicket() error = %v", err)
	}
	_, err := repo.CreateTicket(ctx, newTicket(customer, asset, 42))
	if !errors.Is(err, fault.ErrStorageConflict) {
		t.Fatalf("CreateTicket(duplicate) error = %v, want ErrStorageConflict", err)
	}
}

func TestCreateTicketWithoutUpstreamIDNeverCollides(t *testing.T) {
	repo, _ := setupFaultRepository(t)
	ctx := context.Background()
	customer, asset := seedReferences(t, repo)

	for i := 0; i < 2; i++ {
		ticket := newTicket(customer, asset, 0)
		ticket.IDFromSource = nil
		if _, err := repo.CreateTicket(ctx, ticket); err != nil {
			t.Fatalf("CreateTicket(#%d) error = %v", i, err)
		}
	}

	items, err := repo.ListTickets(ctx, ports.TicketFilter{})
	if err != nil {
		t.Fatalf("ListTickets() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("ListTickets() len = %d", len(items))
	}
}

func TestCreateTicketRejectsUnknownCustomer(t *testing.T) {
	repo, _ := setupFaultRepository(t)
	ctx := context.Background()
	customer, asset := seedReferences(t, repo)

	ticket := newTicket(customer, asset, 7)
	ticket.CustomerID = 999
	if _, err := repo.CreateTicket(ctx, ticket); err == nil {
		t.Fatalf("CreateTicket() expected foreign key error")
	}
}

func TestUpdateTicketOverwritesMutableFields(t *testing.T) {
	repo, _ := setupFaultRepository(t)
	ctx := context.Background()
	customer, asset := seedReferences(t, repo)

	created, err := repo.CreateTicket(ctx, newTicket(customer, asset, 77))
	if err != nil {
		t.Fatalf("CreateTicket() error = %v", err)
	}

	resolved := time.Date(2025, 6, 4, 18, 0, 0, 0, time.UTC)
	created.ResolvedAt = &resolved
	created.Status = "NO SERVICE NEEDED"
	created.UrgencyLevel = fault.UrgencyResolved
	created.ResponseTimeHours = nil
	created.ActionsTaken = []fault.Action{fault.ActionCloseTicket, fault.ActionLogResolution, fault.ActionUpdateExistingTicket}
	created.FaultTime = created.FaultTime.Add(time.Hour)

	updated, err := repo.UpdateTicket(ctx, created)
	if err != nil {
		t.Fatalf("UpdateTicket() error = %v", err)
	}
	if updated.UrgencyLevel != fault.UrgencyResolved {
		t.Fatalf("UpdateTicket() urgency = %q", updated.UrgencyLevel)
	}
	if updated.ResolvedAt == nil || !updated.ResolvedAt.Equal(resolved) {
		t.Fatalf("UpdateTicket() resolved_at = %v", updated.ResolvedAt)
	}
	if updated.ResponseTimeHours != nil {
		t.Fatalf("UpdateTicket() response_time_hours = %v", *updated.ResponseTimeHours)
	}
	if len(updated.ActionsTaken) != 3 {
		t.Fatalf("UpdateTicket() actions = %v", updated.ActionsTaken)
	}
	if updated.FaultTime.Equal(created.FaultTime) {
		t.Fatalf("UpdateTicket() must not change fault_time")
	}

	missing := created
	missing.ID = 9999
	if _, err := repo.UpdateTicket(ctx, missing); !errors.Is(err, ports.ErrTicketNotFound) {
		t.Fatalf("UpdateTicket(missing) error = %v", err)
	}
}

func TestListTicketsFilters(t *testing.T) {
	repo, _ := setupFaultRepository(t)
	ctx := context.Background()
	customer, asset := seedReferences(t, repo)

	open := newTicket(customer, asset, 1)
	if _, err := repo.CreateTicket(ctx, open); err != nil {
		t.Fatalf("CreateTicket(open) error = %v", err)
	}

	closed := newTicket(customer, asset, 2)
	resolved := time.Date(2025, 6, 4, 18, 0, 0, 0, time.UTC)
	closed.ResolvedAt = &resolved
	closed.UrgencyLevel = fault.UrgencyResolved
	if _, err := repo.CreateTicket(ctx, closed); err != nil {
		t.Fatalf("CreateTicket(closed) error = %v", err)
	}

	other := newTicket(customer, asset, 3)
	other.Source = "synop"
	if _, err := repo.CreateTicket(ctx, other); err != nil {
		t.Fatalf("CreateTicket(other) error = %v", err)
	}

	items, err := repo.ListTickets(ctx, ports.TicketFilter{OpenOnly: true})
	if err != nil {
		t.Fatalf("ListTickets(open) error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("ListTickets(open) len = %d", len(items))
	}

	items, err = repo.ListTickets(ctx, ports.TicketFilter{Source: "ChargePoint", Urgency: fault.UrgencyResolved})
	if err != nil {
		t.Fatalf("ListTickets(source, urgency) error = %v", err)
	}
	if len(items) != 1 || *items[0].IDFromSource != 2 {
		t.Fatalf("ListTickets(source, urgency) = %+v", items)
	}

	items, err = repo.ListTickets(ctx, ports.TicketFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListTickets(limit) error = %v", err)
	}
	if len(items) != 1 || items[0].Source != "synop" {
		t.Fatalf("ListTickets(limit) = %+v", items)
	}
}

func TestUnitOfWorkRollsBackOnError(t *testing.T) {
	repo, db := setupFaultRepository(t)
	ctx := context.Background()
	customer, asset := seedReferences(t, repo)

	boom := errors.New("boom")
	err := uow.NewUnitOfWork(db).WithTx(ctx, func(txCtx context.Context) error {
		if _, err := repo.CreateTicket(txCtx, newTicket(customer, asset, 5)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v", err)
	}

	_, ok, err := repo.FindByDedupKey(ctx, fault.DedupKey{Source: "chargepoint", IDFromSource: 5})
	if err != nil {
		t.Fatalf("FindByDedupKey() error = %v", err)
	}
	if ok {
		t.Fatalf("FindByDedupKey() found a rolled back ticket")
	}
}
