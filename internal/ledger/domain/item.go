package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PartitionKey identifies one calendar day's items and orders, or the
// legacy partition. Format: YYYY-MM-DD or LegacyPartition.
type PartitionKey string

// LegacyPartition holds every record from before per-day partitioning.
const LegacyPartition PartitionKey = "legacy"

func (p PartitionKey) String() string { return string(p) }

// UnitType is how an item is sold.
type UnitType string

const (
	UnitWeight UnitType = "WEIGHT"
	UnitCount  UnitType = "COUNT"
)

// Valid reports whether u is a known unit type.
func (u UnitType) Valid() bool {
	return u == UnitWeight || u == UnitCount
}

// Item is one stock record of a partition.
type Item struct {
	PartitionKey   PartitionKey    `json:"partition" gorm:"primaryKey;size:16"`
	ID             string          `json:"id" gorm:"primaryKey;size:64"`
	Name           string          `json:"name" gorm:"not null"`
	UnitType       UnitType        `json:"unit_type" gorm:"size:8;not null;default:'WEIGHT'"`
	PricePerUnit   decimal.Decimal `json:"price_per_unit" gorm:"type:numeric(20,4);not null"`
	TotalStock     decimal.Decimal `json:"total_stock" gorm:"type:numeric(20,4);not null"`
	AvailableStock decimal.Decimal `json:"available_stock" gorm:"type:numeric(20,4);not null"`
	Category       string          `json:"category" gorm:"index"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName specifies the table name
func (Item) TableName() string {
	return "items"
}

// Validate checks the invariants an item must satisfy when it is created.
func (i *Item) Validate() error {
	if i.ID == "" {
		return ErrInvalidItemID
	}
	if !i.UnitType.Valid() {
		return ErrInvalidUnitType
	}
	if i.PricePerUnit.IsNegative() {
		return ErrInvalidPrice
	}
	if i.TotalStock.IsNegative() || i.AvailableStock.IsNegative() {
		return ErrInvalidStock
	}
	if i.AvailableStock.GreaterThan(i.TotalStock) {
		return ErrInvalidStock
	}
	return nil
}

// MirrorEntry is the denormalized "what can still be sold" projection of an
// Item. It is written in the same unit of work as the Item it shadows.
type MirrorEntry struct {
	PartitionKey   PartitionKey    `json:"partition" gorm:"primaryKey;size:16"`
	ItemID         string          `json:"item_id" gorm:"primaryKey;size:64"`
	Name           string          `json:"name"`
	UnitType       UnitType        `json:"unit_type" gorm:"size:8"`
	PricePerUnit   decimal.Decimal `json:"price_per_unit" gorm:"type:numeric(20,4);not null"`
	TotalStock     decimal.Decimal `json:"total_stock" gorm:"type:numeric(20,4);not null"`
	AvailableStock decimal.Decimal `json:"available_stock" gorm:"type:numeric(20,4);not null"`
	Category       string          `json:"category"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName specifies the table name
func (MirrorEntry) TableName() string {
	return "available_stock"
}

// MirrorOf seeds a mirror entry from the item's current values.
func MirrorOf(item *Item) *MirrorEntry {
	return &MirrorEntry{
		PartitionKey:   item.PartitionKey,
		ItemID:         item.ID,
		Name:           item.Name,
		UnitType:       item.UnitType,
		PricePerUnit:   item.PricePerUnit,
		TotalStock:     item.TotalStock,
		AvailableStock: item.AvailableStock,
		Category:       item.Category,
	}
}
