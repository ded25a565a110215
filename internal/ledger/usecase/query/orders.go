package query

import (
	"context"
	"fmt"

	"github.com/tair/produce-ledger/internal/ledger/domain"
)

// GetOrderQuery represents the query to get an order by id
type GetOrderQuery struct {
	Partition domain.PartitionKey
	OrderID   string
}

// GetOrderHandler handles get order query
type GetOrderHandler struct {
	ledger domain.Ledger
}

// NewGetOrderHandler creates a new get order handler
func NewGetOrderHandler(ledger domain.Ledger) *GetOrderHandler {
	return &GetOrderHandler{ledger: ledger}
}

// Handle executes the get order query
func (h *GetOrderHandler) Handle(ctx context.Context, query GetOrderQuery) (*domain.Order, error) {
	return h.ledger.Orders().Get(ctx, query.Partition, query.OrderID)
}

// ListOrdersQuery represents the query to page through a partition's orders.
// After is the last order id of the previous page.
type ListOrdersQuery struct {
	Partition domain.PartitionKey
	After     string
	Limit     int
}

// OrderPage is one page of orders; Next is empty on the last page.
type OrderPage struct {
	Orders []domain.Order `json:"orders"`
	Next   string         `json:"next,omitempty"`
}

// ListOrdersHandler handles list orders query
type ListOrdersHandler struct {
	ledger domain.Ledger
}

// NewListOrdersHandler creates a new list orders handler
func NewListOrdersHandler(ledger domain.Ledger) *ListOrdersHandler {
	return &ListOrdersHandler{ledger: ledger}
}

// Handle executes the list orders query
func (h *ListOrdersHandler) Handle(ctx context.Context, query ListOrdersQuery) (*OrderPage, error) {
	if query.Limit <= 0 {
		query.Limit = 50
	}

	if query.Limit > 100 {
		query.Limit = 100
	}

	orders, err := h.ledger.Orders().List(ctx, query.Partition, query.After, query.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	page := &OrderPage{Orders: orders}
	if len(orders) == query.Limit {
		page.Next = orders[len(orders)-1].ID
	}
	return page, nil
}

// ListAdjustmentsQuery represents the query to read an order's bill adjustments
type ListAdjustmentsQuery struct {
	Partition domain.PartitionKey
	OrderID   string
}

// ListAdjustmentsHandler handles list adjustments query
type ListAdjustmentsHandler struct {
	ledger domain.Ledger
}

// NewListAdjustmentsHandler creates a new list adjustments handler
func NewListAdjustmentsHandler(ledger domain.Ledger) *ListAdjustmentsHandler {
	return &ListAdjustmentsHandler{ledger: ledger}
}

// Handle returns ErrOrderNotFound for an unknown order rather than an empty list.
func (h *ListAdjustmentsHandler) Handle(ctx context.Context, query ListAdjustmentsQuery) ([]domain.BillAdjustment, error) {
	if _, err := h.ledger.Orders().Get(ctx, query.Partition, query.OrderID); err != nil {
		return nil, err
	}
	adjustments, err := h.ledger.Adjustments().ListByOrder(ctx, query.Partition, query.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list adjustments: %w", err)
	}
	return adjustments, nil
}
