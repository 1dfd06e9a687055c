package ports

import (
	"context"
	"errors"

	"faulttriage/internal/domain/fault"
)

var (
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrLocationAssetNotFound = errors.New("location asset not found")
	ErrTicketNotFound        = errors.New("fault event not found")
)

// ReferenceRepository reads the customer and asset records events point at.
type ReferenceRepository interface {
	GetCustomer(ctx context.Context, customerID uint64) (fault.Customer, error)
	GetLocationAsset(ctx context.Context, assetID uint64) (fault.LocationAsset, error)
}

// ReferenceWriter creates reference rows. Used by seeding and tests.
type ReferenceWriter interface {
	CountCustomers(ctx context.Context) (int64, error)
	CreateCustomer(ctx context.Context, customer fault.Customer) (fault.Customer, error)
	CreateLocation(ctx context.Context, location fault.Location) (fault.Location, error)
	CreateLocationAsset(ctx context.Context, asset fault.LocationAsset) (fault.LocationAsset, error)
}

type TicketFilter struct {
	Source       string
	IDFromSource *int64
	CustomerID   uint64
	Urgency      fault.UrgencyLevel
	OpenOnly     bool
	Limit        int
}

type TicketRepository interface {
	// FindByDedupKey returns found=false when no ticket carries key.
	FindByDedupKey(ctx context.Context, key fault.DedupKey) (fault.Ticket, bool, error)
	// CreateTicket returns fault.ErrStorageConflict when another writer
	// already inserted a ticket with the same dedup key.
	CreateTicket(ctx context.Context, ticket fault.Ticket) (fault.Ticket, error)
	UpdateTicket(ctx context.Context, ticket fault.Ticket) (fault.Ticket, error)
	GetTicket(ctx context.Context, ticketID uint64) (fault.Ticket, error)
	ListTickets(ctx context.Context, filter TicketFilter) ([]fault.Ticket, error)
}

type FaultRepository interface {
	ReferenceRepository
	ReferenceWriter
	TicketRepository
}
