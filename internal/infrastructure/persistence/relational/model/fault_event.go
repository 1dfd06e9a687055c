package model

import "time"

// FaultEvent is one ticket row. (source, id_from_source) is unique; rows
// without an upstream id never collide because NULLs are distinct.
type FaultEvent struct {
	ID                uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	Source            string         `gorm:"column:source;type:varchar(64);not null;uniqueIndex:idx_fault_events_source_key,priority:1"`
	IDFromSource      *int64         `gorm:"column:id_from_source;uniqueIndex:idx_fault_events_source_key,priority:2"`
	CustomerID        uint64         `gorm:"column:customer_id;not null;index"`
	Customer          *Customer      `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
	LocationAssetID   uint64         `gorm:"column:location_asset_id;not null;index"`
	LocationAsset     *LocationAsset `gorm:"foreignKey:LocationAssetID;constraint:OnDelete:RESTRICT"`
	ConnectorID       *int64         `gorm:"column:connector_id"`
	FaultTime         time.Time      `gorm:"column:fault_time;not null;index"`
	ResolvedAt        *time.Time     `gorm:"column:resolved_at;index"`
	Status            string         `gorm:"column:status;type:text;not null"`
	DowntimeType      string         `gorm:"column:downtime_type;type:text;not null;default:''"`
	FaultType         string         `gorm:"column:fault_type;type:text;not null"`
	IsAlarm           bool           `gorm:"column:is_alarm;not null;default:false"`
	UrgencyLevel      string         `gorm:"column:urgency_level;type:varchar(16);not null;default:'';index"`
	ResponseTimeHours *int           `gorm:"column:response_time_hours"`
	StationWide       bool           `gorm:"column:station_wide;not null;default:false"`
	ActionsTaken      string         `gorm:"column:actions_taken;type:text;not null;default:'[]'"`
	ProcessedAt       *time.Time     `gorm:"column:processed_at"`
	CreatedAt         time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;not null"`
}

func (FaultEvent) TableName() string {
	return "fault_events"
}
