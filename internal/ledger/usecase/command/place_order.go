package command

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tair/produce-ledger/internal/ledger/domain"
	"github.com/tair/produce-ledger/pkg/logger"
)

// OrderLine is one requested line: an item and how much of it.
type OrderLine struct {
	ItemID   string
	Quantity decimal.Decimal
}

// PlaceOrderCommand represents the command to place a new order
type PlaceOrderCommand struct {
	Partition   domain.PartitionKey
	CustomerRef string
	Lines       []OrderLine
}

// PlaceOrderHandler creates an order and takes its stock in one unit of work.
type PlaceOrderHandler struct {
	deps Dependencies
}

// NewPlaceOrderHandler creates a new place order handler
func NewPlaceOrderHandler(deps Dependencies) *PlaceOrderHandler {
	return &PlaceOrderHandler{deps: deps.withDefaults()}
}

// Handle executes the place order command
func (h *PlaceOrderHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*domain.Order, error) {
	if err := requirePartition(cmd.Partition); err != nil {
		return nil, err
	}
	ids, requested, err := mergeLines(cmd.Lines)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	orderID := uuid.NewString()
	var (
		order   *domain.Order
		clamped int
	)
	err = h.deps.retry(ctx, "place_order", func() error {
		clamped = 0
		return h.deps.Ledger.InTx(ctx, func(tx domain.Stores) error {
			lines := make([]domain.LineItem, 0, len(ids))
			taken := make(map[string]decimal.Decimal, len(ids))
			for _, id := range ids {
				item, err := tx.Items().Get(ctx, cmd.Partition, id)
				if err != nil {
					return fmt.Errorf("item %q: %w", id, err)
				}
				q := domain.NormalizeQuantity(item.UnitType, requested[id])
				if q.IsZero() {
					continue
				}
				lines = append(lines, domain.LineItem{
					ItemID:    id,
					Name:      item.Name,
					Quantity:  q,
					UnitPrice: item.PricePerUnit,
					Subtotal:  domain.Subtotal(q, item.PricePerUnit),
				})
				taken[id] = q
			}
			if len(lines) == 0 {
				return domain.ErrEmptyOrder
			}

			order = &domain.Order{
				ID:           orderID,
				PartitionKey: cmd.Partition,
				CustomerRef:  cmd.CustomerRef,
				LineItems:    lines,
				Status:       domain.StatusPending,
			}
			order.RecomputeTotal()
			if err := tx.Orders().Create(ctx, order); err != nil {
				return fmt.Errorf("failed to create order: %w", err)
			}

			for _, id := range sortedKeys(taken) {
				move, err := moveStock(ctx, tx, cmd.Partition, id, taken[id], domain.ReasonOrderPlaced, orderID)
				if err != nil {
					return fmt.Errorf("failed to take stock for %q: %w", id, err)
				}
				if move.clamped {
					clamped++
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	h.deps.Metrics.OrdersPlaced.Inc()
	h.deps.Metrics.StockClamped.Add(float64(clamped))
	logger.Info(ctx).
		Str("partition", cmd.Partition.String()).
		Str("order_id", order.ID).
		Str("total", order.Total.StringFixed(2)).
		Int("lines", len(order.LineItems)).
		Msg("Order placed")

	h.deps.committed(ctx, cmd.Partition, &domain.LedgerEvent{
		EventType: domain.EventTypeOrderPlaced,
		OrderID:   order.ID,
		Total:     order.Total,
	})
	return order, nil
}

// mergeLines sums quantities per item id, keeping first-seen order.
func mergeLines(lines []OrderLine) ([]string, map[string]decimal.Decimal, error) {
	ids := make([]string, 0, len(lines))
	qty := make(map[string]decimal.Decimal, len(lines))
	for _, l := range lines {
		if l.ItemID == "" {
			return nil, nil, domain.ErrInvalidItemID
		}
		if _, seen := qty[l.ItemID]; !seen {
			ids = append(ids, l.ItemID)
		}
		qty[l.ItemID] = qty[l.ItemID].Add(l.Quantity)
	}
	return ids, qty, nil
}
