package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"faulttriage/internal/domain/fault"
	"faulttriage/internal/errs"
	"faulttriage/internal/infrastructure/persistence/relational/model"
	"faulttriage/internal/ports"
)

type FaultRepository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.FaultRepository = (*FaultRepository)(nil)

func NewFaultRepository(db *gorm.DB) *FaultRepository {
	return &FaultRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *FaultRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *FaultRepository) GetCustomer(ctx context.Context, customerID uint64) (fault.Customer, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return fault.Customer{}, err
	}

	var row model.Customer
	if err := db.Where("id = ?", customerID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fault.Customer{}, ports.ErrCustomerNotFound
		}
		return fault.Customer{}, errs.Wrap(err, "query customer")
	}
	return mapCustomer(row), nil
}

func (r *FaultRepository) GetLocationAsset(ctx context.Context, assetID uint64) (fault.LocationAsset, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return fault.LocationAsset{}, err
	}

	var row model.LocationAsset
	if err := db.Where("id = ?", assetID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fault.LocationAsset{}, ports.ErrLocationAssetNotFound
		}
		return fault.LocationAsset{}, errs.Wrap(err, "query location asset")
	}
	return fault.LocationAsset{
		ID:         row.ID,
		Name:       row.Name,
		LocationID: row.LocationID,
		CustomerID: row.CustomerID,
	}, nil
}

func (r *FaultRepository) CountCustomers(ctx context.Context) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.Customer{}).Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count customers")
	}
	return count, nil
}

func (r *FaultRepository) CreateCustomer(ctx context.Context, customer fault.Customer) (fault.Customer, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return fault.Customer{}, err
	}
	if strings.TrimSpace(customer.Name) == "" {
		return fault.Customer{}, &fault.ValidationError{Field: "name", Reason: "can't be blank"}
	}
	if customer.SLAHours <= 0 {
		return fault.Customer{}, &fault.ValidationError{Field: "sla_hours", Reason: "must be greater than 0"}
	}

	now := r.now()
	row := model.Customer{
		ID:        customer.ID,
		Name:      customer.Name,
		SLAHours:  customer.SLAHours,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Omit(clause.Associations).Create(&row).Error; err != nil {
		return fault.Customer{}, errs.Wrap(err, "insert customer")
	}
	return mapCustomer(row), nil
}

func (r *FaultRepository) CreateLocation(ctx context.Context, location fault.Location) (fault.Location, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return fault.Location{}, err
	}
	if strings.TrimSpace(location.Name) == "" {
		return fault.Location{}, &fault.ValidationError{Field: "name", Reason: "can't be blank"}
	}

	now := r.now()
	row := model.Location{
		ID:         location.ID,
		Name:       location.Name,
		CustomerID: location.CustomerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.Omit(clause.Associations).Create(&row).Error; err != nil {
		return fault.Location{}, errs.Wrap(err, "insert location")
	}
	return fault.Location{ID: row.ID, Name: row.Name, CustomerID: row.CustomerID}, nil
}

func (r *FaultRepository) CreateLocationAsset(ctx context.Context, asset fault.LocationAsset) (fault.LocationAsset, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return fault.LocationAsset{}, err
	}
	if strings.TrimSpace(asset.Name) == "" {
		return fault.LocationAsset{}, &fault.ValidationError{Field: "name", Reason: "can't be blank"}
	}

	now := r.now()
	row := model.LocationAsset{
		ID:         asset.ID,
		Name:       asset.Name,
		LocationID: asset.LocationID,
		CustomerID: asset.CustomerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.Omit(clause.Associations).Create(&row).Error; err != nil {
		return fault.LocationAsset{}, errs.Wrap(err, "insert location asset")
	}
	return fault.LocationAsset{
		ID:         row.ID,
		Name:       row.Name,
		LocationID: row.LocationID,
		CustomerID: row.CustomerID,
	}, nil
}

func (r *FaultRepository) FindByDedupKey(ctx context.Context, key fault.DedupKey) (fault.Ticket, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return fault.Ticket{}, false, err
	}

	var row model.FaultEvent
	if err := db.
		Where("source = ? AND id_from_source = ?", key.Source, key.IDFromSource).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fault.Ticket{}, false, nil
		}
		return fault.Ticket{}, false, errs.Wrapf(err, "query fault event %s", key)
	}

	ticket, err := mapTicket(row)
	if err != nil {
		return fault.Ticket{}, false, err
	}
	return ticket, true, nil
}

func (r *FaultRepository) CreateTicket(ctx context.Context, ticket fault.Ticket) (fault.Ticket, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return fault.Ticket{}, err
	}
	if err := ticket.Validate(); err != nil {
		return fault.Ticket{}, err
	}

	now := r.now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	row, err := toFaultEventRow(ticket)
	if err != nil {
		return fault.Ticket{}, err
	}
	row.ID = 0

	if err := db.Omit(clause.Associations).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fault.Ticket{}, fmt.Errorf("%w: %v", fault.ErrStorageConflict, err)
		}
		return fault.Ticket{}, errs.Wrap(err, "insert fault event")
	}
	return mapTicket(row)
}

func (r *FaultRepository) UpdateTicket(ctx context.Context, ticket fault.Ticket) (fault.Ticket, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return fault.Ticket{}, err
	}
	if ticket.ID == 0 {
		return fault.Ticket{}, errors.New("ticket id is required")
	}
	if err := ticket.Validate(); err != nil {
		return fault.Ticket{}, err
	}

	actions, err := encodeActions(ticket.ActionsTaken)
	if err != nil {
		return fault.Ticket{}, err
	}

	result := db.Model(&model.FaultEvent{}).
		Where("id = ?", ticket.ID).
		Updates(map[string]any{
			"connector_id":        ticket.ConnectorID,
			"resolved_at":         ticket.ResolvedAt,
			"status":              ticket.Status,
			"downtime_type":       ticket.DowntimeType,
			"fault_type":          ticket.FaultType,
			"is_alarm":            ticket.IsAlarm,
			"urgency_level":       string(ticket.UrgencyLevel),
			"response_time_hours": ticket.ResponseTimeHours,
			"station_wide":        ticket.StationWide,
			"actions_taken":       actions,
			"processed_at":        ticket.ProcessedAt,
			"updated_at":          r.now(),
		})
	if result.Error != nil {
		return fault.Ticket{}, errs.Wrapf(result.Error, "update fault event %d", ticket.ID)
	}
	if result.RowsAffected == 0 {
		return fault.Ticket{}, ports.ErrTicketNotFound
	}
	return getTicketByID(db, ticket.ID)
}

func (r *FaultRepository) GetTicket(ctx context.Context, ticketID uint64) (fault.Ticket, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return fault.Ticket{}, err
	}
	return getTicketByID(db, ticketID)
}

func (r *FaultRepository) ListTickets(ctx context.Context, filter ports.TicketFilter) ([]fault.Ticket, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.FaultEvent{})
	if source := fault.CanonicalSource(filter.Source); source != "" {
		query = query.Where("source = ?", source)
	}
	if filter.IDFromSource != nil {
		query = query.Where("id_from_source = ?", *filter.IDFromSource)
	}
	if filter.CustomerID > 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Urgency != fault.UrgencyUnset {
		query = query.Where("urgency_level = ?", string(filter.Urgency))
	}
	if filter.OpenOnly {
		query = query.Where("resolved_at IS NULL")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.FaultEvent
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query fault events")
	}

	items := make([]fault.Ticket, 0, len(rows))
	for _, row := range rows {
		ticket, err := mapTicket(row)
		if err != nil {
			return nil, err
		}
		items = append(items, ticket)
	}
	return items, nil
}

func getTicketByID(db *gorm.DB, ticketID uint64) (fault.Ticket, error) {
	var row model.FaultEvent
	if err := db.Where("id = ?", ticketID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fault.Ticket{}, ports.ErrTicketNotFound
		}
		return fault.Ticket{}, errs.Wrapf(err, "query fault event %d", ticketID)
	}
	return mapTicket(row)
}

// isUniqueViolation recognises duplicate-key errors from drivers that do not
// translate them into gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "sqlstate 23505")
}

func encodeActions(actions []fault.Action) (string, error) {
	if actions == nil {
		actions = []fault.Action{}
	}
	raw, err := json.Marshal(actions)
	if err != nil {
		return "", errs.Wrap(err, "encode actions_taken")
	}
	return string(raw), nil
}

func toFaultEventRow(t fault.Ticket) (model.FaultEvent, error) {
	actions, err := encodeActions(t.ActionsTaken)
	if err != nil {
		return model.FaultEvent{}, err
	}
	return model.FaultEvent{
		ID:                t.ID,
		Source:            t.Source,
		IDFromSource:      t.IDFromSource,
		CustomerID:        t.CustomerID,
		LocationAssetID:   t.LocationAssetID,
		ConnectorID:       t.ConnectorID,
		FaultTime:         t.FaultTime.UTC(),
		ResolvedAt:        t.ResolvedAt,
		Status:            t.Status,
		DowntimeType:      t.DowntimeType,
		FaultType:         t.FaultType,
		IsAlarm:           t.IsAlarm,
		UrgencyLevel:      string(t.UrgencyLevel),
		ResponseTimeHours: t.ResponseTimeHours,
		StationWide:       t.StationWide,
		ActionsTaken:      actions,
		ProcessedAt:       t.ProcessedAt,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}, nil
}

func mapTicket(row model.FaultEvent) (fault.Ticket, error) {
	var actions []fault.Action
	if strings.TrimSpace(row.ActionsTaken) != "" {
		if err := json.Unmarshal([]byte(row.ActionsTaken), &actions); err != nil {
			return fault.Ticket{}, errs.Wrapf(err, "decode actions_taken of fault event %d", row.ID)
		}
	}
	if actions == nil {
		actions = []fault.Action{}
	}
	return fault.Ticket{
		ID:                row.ID,
		Source:            row.Source,
		IDFromSource:      row.IDFromSource,
		CustomerID:        row.CustomerID,
		LocationAssetID:   row.LocationAssetID,
		ConnectorID:       row.ConnectorID,
		FaultTime:         row.FaultTime.UTC(),
		ResolvedAt:        utcPtr(row.ResolvedAt),
		Status:            row.Status,
		DowntimeType:      row.DowntimeType,
		FaultType:         row.FaultType,
		IsAlarm:           row.IsAlarm,
		UrgencyLevel:      fault.UrgencyLevel(row.UrgencyLevel),
		ResponseTimeHours: row.ResponseTimeHours,
		StationWide:       row.StationWide,
		ActionsTaken:      actions,
		ProcessedAt:       utcPtr(row.ProcessedAt),
		CreatedAt:         row.CreatedAt.UTC(),
		UpdatedAt:         row.UpdatedAt.UTC(),
	}, nil
}

func mapCustomer(row model.Customer) fault.Customer {
	return fault.Customer{ID: row.ID, Name: row.Name, SLAHours: row.SLAHours}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
