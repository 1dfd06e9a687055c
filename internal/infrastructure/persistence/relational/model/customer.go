package model

import "time"

type Customer struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;type:text;not null"`
	SLAHours  int       `gorm:"column:sla_hours;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (Customer) TableName() string {
	return "customers"
}

type Location struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string    `gorm:"column:name;type:text;not null"`
	CustomerID uint64    `gorm:"column:customer_id;not null;index"`
	Customer   *Customer `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (Location) TableName() string {
	return "locations"
}

type LocationAsset struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string    `gorm:"column:name;type:text;not null"`
	LocationID uint64    `gorm:"column:location_id;not null;index"`
	Location   *Location `gorm:"foreignKey:LocationID;constraint:OnDelete:RESTRICT"`
	CustomerID uint64    `gorm:"column:customer_id;not null;index"`
	Customer   *Customer `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (LocationAsset) TableName() string {
	return "location_assets"
}
