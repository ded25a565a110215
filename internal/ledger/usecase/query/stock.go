package query

import (
	"context"
	"fmt"

	"github.com/tair/produce-ledger/internal/ledger/domain"
)

// GetItemQuery represents the query to get one item of a partition
type GetItemQuery struct {
	Partition domain.PartitionKey
	ItemID    string
}

// GetItemHandler handles get item query
type GetItemHandler struct {
	ledger domain.Ledger
}

// NewGetItemHandler creates a new get item handler
func NewGetItemHandler(ledger domain.Ledger) *GetItemHandler {
	return &GetItemHandler{ledger: ledger}
}

// Handle executes the get item query
func (h *GetItemHandler) Handle(ctx context.Context, query GetItemQuery) (*domain.Item, error) {
	if query.ItemID == "" {
		return nil, domain.ErrInvalidItemID
	}
	return h.ledger.Items().Get(ctx, query.Partition, query.ItemID)
}

// ListStockQuery represents the query to list the stock records of a partition
type ListStockQuery struct {
	Partition domain.PartitionKey
	Category  string
}

// ListStockHandler reads current or historical stock straight from the
// inventory store.
type ListStockHandler struct {
	ledger domain.Ledger
}

// NewListStockHandler creates a new list stock handler
func NewListStockHandler(ledger domain.Ledger) *ListStockHandler {
	return &ListStockHandler{ledger: ledger}
}

// Handle executes the list stock query
func (h *ListStockHandler) Handle(ctx context.Context, query ListStockQuery) ([]domain.Item, error) {
	items, err := h.ledger.Items().List(ctx, query.Partition)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock: %w", err)
	}
	if query.Category == "" {
		return items, nil
	}

	filtered := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if item.Category == query.Category {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

// ListAvailableQuery represents the query to list what can still be sold
type ListAvailableQuery struct {
	Partition domain.PartitionKey
}

// ListAvailableHandler serves the mirror read model through the stock cache.
type ListAvailableHandler struct {
	ledger domain.Ledger
	cache  domain.StockCache
}

// NewListAvailableHandler creates a new list available handler
func NewListAvailableHandler(ledger domain.Ledger, cache domain.StockCache) *ListAvailableHandler {
	if cache == nil {
		cache = domain.NopCache{}
	}
	return &ListAvailableHandler{ledger: ledger, cache: cache}
}

// Handle executes the list available query
func (h *ListAvailableHandler) Handle(ctx context.Context, query ListAvailableQuery) ([]domain.MirrorEntry, error) {
	entries, gen, ok := h.cache.GetAvailable(ctx, query.Partition)
	if ok {
		return entries, nil
	}

	entries, err := h.ledger.Mirror().List(ctx, query.Partition)
	if err != nil {
		return nil, fmt.Errorf("failed to list available stock: %w", err)
	}
	h.cache.SetAvailable(ctx, query.Partition, gen, entries)
	return entries, nil
}

// ListMovementsQuery represents the query to read an item's stock journal
type ListMovementsQuery struct {
	Partition domain.PartitionKey
	ItemID    string
}

// ListMovementsHandler handles list movements query
type ListMovementsHandler struct {
	ledger domain.Ledger
}

// NewListMovementsHandler creates a new list movements handler
func NewListMovementsHandler(ledger domain.Ledger) *ListMovementsHandler {
	return &ListMovementsHandler{ledger: ledger}
}

// Handle executes the list movements query
func (h *ListMovementsHandler) Handle(ctx context.Context, query ListMovementsQuery) ([]domain.StockMovement, error) {
	movements, err := h.ledger.Movements().ListByItem(ctx, query.Partition, query.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	return movements, nil
}
