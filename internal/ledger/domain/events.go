package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced       = "order.placed"
	EventTypeOrderEdited       = "order.edited"
	EventTypeBillsRecalculated = "bills.recalculated"
	EventTypeStockCorrected    = "stock.corrected"
	EventTypeRecalcRequested   = "bills.recalculate.requested"
)

// LedgerEvent is published after a ledger mutation commits.
type LedgerEvent struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Partition PartitionKey    `json:"partition"`
	OrderID   string          `json:"order_id,omitempty"`
	ItemID    string          `json:"item_id,omitempty"`
	Total     decimal.Decimal `json:"total,omitempty"`
	Updated   int             `json:"updated,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// EventPublisher hands committed ledger changes to downstream consumers
// (document rendering, messaging). Failures never undo the change.
type EventPublisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
}

// CacheGeneration is the invalidation epoch of a partition's cache entry.
// Every Invalidate starts a new generation.
type CacheGeneration int64

// NoGeneration marks an unknown generation; fills carrying it are dropped.
const NoGeneration CacheGeneration = -1

// StockCache caches the mirror read model per partition.
//
// GetAvailable reports the generation it looked at, even on a miss. The
// caller reads the mirror and passes that generation back to SetAvailable,
// so a listing read before an Invalidate is never served after it.
type StockCache interface {
	GetAvailable(ctx context.Context, p PartitionKey) ([]MirrorEntry, CacheGeneration, bool)
	SetAvailable(ctx context.Context, p PartitionKey, gen CacheGeneration, entries []MirrorEntry)
	Invalidate(ctx context.Context, p PartitionKey)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, LedgerEvent) error { return nil }

// NopCache never caches.
type NopCache struct{}

func (NopCache) GetAvailable(context.Context, PartitionKey) ([]MirrorEntry, CacheGeneration, bool) {
	return nil, NoGeneration, false
}
func (NopCache) SetAvailable(context.Context, PartitionKey, CacheGeneration, []MirrorEntry) {}
func (NopCache) Invalidate(context.Context, PartitionKey) {}
