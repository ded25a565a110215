package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tair/produce-ledger/internal/ledger/domain"
	"github.com/tair/produce-ledger/pkg/logger"
)

// EditLine is one line of a replacement line-item set. UnitPrice is only
// consulted for a new line whose item no longer exists in the partition.
type EditLine struct {
	ItemID    string
	Quantity  decimal.Decimal
	UnitPrice *decimal.Decimal
}

// EditOrderCommand replaces the full line-item set of an order.
type EditOrderCommand struct {
	Partition domain.PartitionKey
	OrderID   string
	Lines     []EditLine
}

// ReconcileResult is the rewritten order plus the stock side of the edit.
type ReconcileResult struct {
	Order             *domain.Order              `json:"order"`
	Deltas            map[string]decimal.Decimal `json:"deltas"`
	InventoryFailures []domain.InventoryFailure  `json:"inventory_failures,omitempty"`
	Clamped           []string                   `json:"clamped,omitempty"`
}

// EditOrderHandler is the stock reconciler: it diffs an order's old and new
// quantities and commits the order rewrite together with the stock deltas.
type EditOrderHandler struct {
	deps Dependencies
}

// NewEditOrderHandler creates a new edit order handler
func NewEditOrderHandler(deps Dependencies) *EditOrderHandler {
	return &EditOrderHandler{deps: deps.withDefaults()}
}

// Handle executes the edit order command
func (h *EditOrderHandler) Handle(ctx context.Context, cmd EditOrderCommand) (*ReconcileResult, error) {
	if err := requirePartition(cmd.Partition); err != nil {
		return nil, err
	}
	if cmd.OrderID == "" {
		return nil, domain.ErrOrderNotFound
	}
	for _, l := range cmd.Lines {
		if l.ItemID == "" {
			return nil, domain.ErrInvalidItemID
		}
		if l.UnitPrice != nil && l.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidPrice
		}
	}

	var result *ReconcileResult
	err := h.deps.retry(ctx, "edit_order", func() error {
		return h.deps.Ledger.InTx(ctx, func(tx domain.Stores) error {
			var err error
			result, err = h.reconcile(ctx, tx, cmd)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	h.deps.Metrics.OrdersReconciled.Inc()
	h.deps.Metrics.InventoryFailures.Add(float64(len(result.InventoryFailures)))
	h.deps.Metrics.StockClamped.Add(float64(len(result.Clamped)))
	logger.Info(ctx).
		Str("partition", cmd.Partition.String()).
		Str("order_id", cmd.OrderID).
		Str("total", result.Order.Total.StringFixed(2)).
		Int("deltas", len(result.Deltas)).
		Int("inventory_failures", len(result.InventoryFailures)).
		Msg("Order reconciled")

	h.deps.committed(ctx, cmd.Partition, &domain.LedgerEvent{
		EventType: domain.EventTypeOrderEdited,
		OrderID:   cmd.OrderID,
		Total:     result.Order.Total,
	})
	return result, nil
}

func (h *EditOrderHandler) reconcile(ctx context.Context, tx domain.Stores, cmd EditOrderCommand) (*ReconcileResult, error) {
	p := cmd.Partition
	order, err := tx.Orders().GetForUpdate(ctx, p, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	// live items for every id on either side; nil marks a missing item
	items := make(map[string]*domain.Item)
	lookup := func(id string) (*domain.Item, error) {
		if item, ok := items[id]; ok {
			return item, nil
		}
		item, err := tx.Items().Get(ctx, p, id)
		if err != nil && !errors.Is(err, domain.ErrItemNotFound) {
			return nil, err
		}
		items[id] = item
		return item, nil
	}

	oldQty := order.Quantities()
	newQty := make(map[string]decimal.Decimal)
	var ids []string
	prices := make(map[string]*decimal.Decimal)
	for _, l := range cmd.Lines {
		item, err := lookup(l.ItemID)
		if err != nil {
			return nil, err
		}
		unit := domain.UnitWeight
		if item != nil {
			unit = item.UnitType
		}
		if _, seen := newQty[l.ItemID]; !seen {
			ids = append(ids, l.ItemID)
		}
		newQty[l.ItemID] = newQty[l.ItemID].Add(domain.NormalizeQuantity(unit, l.Quantity))
		if l.UnitPrice != nil {
			prices[l.ItemID] = l.UnitPrice
		}
	}

	deltas := make(map[string]decimal.Decimal)
	for id, q := range newQty {
		if d := q.Sub(oldQty[id]); !d.IsZero() {
			deltas[id] = d
		}
	}
	for id, q := range oldQty {
		if _, kept := newQty[id]; !kept && !q.IsZero() {
			deltas[id] = q.Neg()
		}
	}

	for id := range deltas {
		if _, err := lookup(id); err != nil {
			return nil, err
		}
	}

	lines := make([]domain.LineItem, 0, len(ids))
	for _, id := range ids {
		q := newQty[id]
		if q.IsZero() {
			continue
		}
		old, hadLine := order.Line(id)
		if _, changed := deltas[id]; !changed && hadLine {
			lines = append(lines, old)
			continue
		}

		line := domain.LineItem{ItemID: id, Quantity: q, Name: old.Name}
		switch item := items[id]; {
		case item != nil:
			line.Name = item.Name
			line.UnitPrice = item.PricePerUnit
		case hadLine:
			line.UnitPrice = old.InferredUnitPrice()
		case prices[id] != nil:
			line.UnitPrice = *prices[id]
		default:
			return nil, fmt.Errorf("item %q: %w", id, domain.ErrItemNotFound)
		}
		line.Subtotal = domain.Subtotal(q, line.UnitPrice)
		lines = append(lines, line)
	}

	order.LineItems = lines
	order.RecomputeTotal()
	if err := tx.Orders().Update(ctx, order); err != nil {
		return nil, err
	}

	result := &ReconcileResult{Order: order, Deltas: deltas}
	for _, id := range sortedKeys(deltas) {
		if items[id] == nil {
			result.InventoryFailures = append(result.InventoryFailures, h.skipped(ctx, p, order.ID, id, deltas[id]))
			continue
		}
		move, err := moveStock(ctx, tx, p, id, deltas[id], domain.ReasonOrderEdited, order.ID)
		if errors.Is(err, domain.ErrItemNotFound) {
			result.InventoryFailures = append(result.InventoryFailures, h.skipped(ctx, p, order.ID, id, deltas[id]))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to move stock for %q: %w", id, err)
		}
		if move.clamped {
			result.Clamped = append(result.Clamped, id)
		}
	}
	return result, nil
}

func (h *EditOrderHandler) skipped(ctx context.Context, p domain.PartitionKey, orderID, itemID string, delta decimal.Decimal) domain.InventoryFailure {
	logger.Warn(ctx).
		Str("partition", p.String()).
		Str("order_id", orderID).
		Str("item_id", itemID).
		Str("delta", delta.String()).
		Msg("Item missing from partition, stock update skipped")
	return domain.InventoryFailure{
		ItemID: itemID,
		Delta:  delta,
		Reason: domain.ErrItemNotFound.Error(),
	}
}
