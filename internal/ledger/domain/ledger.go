package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Movement reasons
const (
	ReasonOrderPlaced     = "order_placed"
	ReasonOrderEdited     = "order_edited"
	ReasonStockCorrection = "stock_correction"
	ReasonPriceCorrection = "price_correction"
)

// StockMovement is an append-only record of one applied stock delta.
// Positive Delta means stock left the shelf.
type StockMovement struct {
	ID           string          `json:"id" gorm:"primaryKey;size:36"`
	PartitionKey PartitionKey    `json:"partition" gorm:"size:16;not null;index:idx_movement_item,priority:1"`
	ItemID       string          `json:"item_id" gorm:"size:64;not null;index:idx_movement_item,priority:2"`
	Delta        decimal.Decimal `json:"delta" gorm:"type:numeric(20,4);not null"`
	Before       decimal.Decimal `json:"before" gorm:"type:numeric(20,4);not null"`
	After        decimal.Decimal `json:"after" gorm:"type:numeric(20,4);not null"`
	Clamped      bool            `json:"clamped"`
	Reason       string          `json:"reason" gorm:"size:32;not null"`
	Reference    string          `json:"reference" gorm:"size:64;index"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TableName specifies the table name
func (StockMovement) TableName() string {
	return "stock_movements"
}

// BillAdjustment records why an already-issued order total was rewritten.
type BillAdjustment struct {
	ID           string          `json:"id" gorm:"primaryKey;size:36"`
	PartitionKey PartitionKey    `json:"partition" gorm:"size:16;not null;index"`
	OrderID      string          `json:"order_id" gorm:"size:36;not null;index"`
	OldTotal     decimal.Decimal `json:"old_total" gorm:"type:numeric(20,2);not null"`
	NewTotal     decimal.Decimal `json:"new_total" gorm:"type:numeric(20,2);not null"`
	Reason       string          `json:"reason" gorm:"size:32;not null"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TableName specifies the table name
func (BillAdjustment) TableName() string {
	return "bill_adjustments"
}

// InventoryFailure is one line whose stock could not be moved because its
// item is missing from the partition. It is reported, never returned as an
// error: the bill write that caused it still commits.
type InventoryFailure struct {
	ItemID string          `json:"item_id"`
	Delta  decimal.Decimal `json:"delta"`
	Reason string          `json:"reason"`
}

// InventoryStore holds one stock record per item per partition.
type InventoryStore interface {
	Get(ctx context.Context, p PartitionKey, itemID string) (*Item, error)
	List(ctx context.Context, p PartitionKey) ([]Item, error)
	Count(ctx context.Context, p PartitionKey) (int64, error)
	Create(ctx context.Context, item *Item) error
	// ApplyDelta moves availableStock by -delta, clamped at zero, and
	// returns the stored item plus the value before the change.
	ApplyDelta(ctx context.Context, p PartitionKey, itemID string, delta decimal.Decimal) (*Item, decimal.Decimal, error)
	SetTotalStock(ctx context.Context, p PartitionKey, itemID string, total decimal.Decimal) (*Item, error)
	SetPrice(ctx context.Context, p PartitionKey, itemID string, price decimal.Decimal) (*Item, error)
	Delete(ctx context.Context, p PartitionKey, itemID string) error
}

// StockMirror is the read-optimized projection of InventoryStore.
type StockMirror interface {
	Get(ctx context.Context, p PartitionKey, itemID string) (*MirrorEntry, error)
	List(ctx context.Context, p PartitionKey) ([]MirrorEntry, error)
	// Sync upserts the entry for item so it matches the item's current values.
	Sync(ctx context.Context, item *Item) error
	Delete(ctx context.Context, p PartitionKey, itemID string) error
}

// OrderLedger holds the orders of each partition.
type OrderLedger interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, p PartitionKey, orderID string) (*Order, error)
	// GetForUpdate reads the order and locks its row for the rest of the unit of work.
	GetForUpdate(ctx context.Context, p PartitionKey, orderID string) (*Order, error)
	// Update writes line items, total and status if Version still matches,
	// then increments Version. A stale Version yields ErrConflict.
	Update(ctx context.Context, order *Order) error
	UpdateStatus(ctx context.Context, p PartitionKey, orderID string, status Status) error
	// List returns up to limit orders with id > after, ordered by id.
	List(ctx context.Context, p PartitionKey, after string, limit int) ([]Order, error)
	Count(ctx context.Context, p PartitionKey) (int64, error)
}

// MovementLog is the append-only stock movement journal.
type MovementLog interface {
	Append(ctx context.Context, m *StockMovement) error
	ListByItem(ctx context.Context, p PartitionKey, itemID string) ([]StockMovement, error)
}

// AdjustmentLog is the append-only journal of rewritten bill totals.
type AdjustmentLog interface {
	Append(ctx context.Context, a *BillAdjustment) error
	ListByOrder(ctx context.Context, p PartitionKey, orderID string) ([]BillAdjustment, error)
}

// Stores groups the per-record stores that share one database handle.
type Stores interface {
	Items() InventoryStore
	Mirror() StockMirror
	Orders() OrderLedger
	Movements() MovementLog
	Adjustments() AdjustmentLog
}

// Ledger is Stores plus an all-or-nothing unit of work. Stores handed to fn
// commit together when fn returns nil and roll back otherwise.
type Ledger interface {
	Stores
	InTx(ctx context.Context, fn func(tx Stores) error) error
}
