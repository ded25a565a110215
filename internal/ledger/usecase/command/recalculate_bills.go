package command

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tair/produce-ledger/internal/ledger/domain"
	"github.com/tair/produce-ledger/pkg/logger"
)

// RecalculateBillsCommand represents the command to reprice a partition's orders
type RecalculateBillsCommand struct {
	Partition domain.PartitionKey
}

// RecalcEntry is the outcome for one order.
type RecalcEntry struct {
	OrderID  string          `json:"order_id"`
	OldTotal decimal.Decimal `json:"old_total"`
	NewTotal decimal.Decimal `json:"new_total"`
	Updated  bool            `json:"updated"`
}

// RecalcTotals summarizes a run.
type RecalcTotals struct {
	Orders   int             `json:"orders"`
	Updated  int             `json:"updated"`
	OldTotal decimal.Decimal `json:"old_total"`
	NewTotal decimal.Decimal `json:"new_total"`
}

// RecalcReport lists every order visited by a run, in order id order.
type RecalcReport struct {
	Partition domain.PartitionKey `json:"partition"`
	PerOrder  []RecalcEntry       `json:"per_order"`
	Totals    RecalcTotals        `json:"totals"`
}

func (r *RecalcReport) add(e RecalcEntry) {
	r.PerOrder = append(r.PerOrder, e)
	r.Totals.Orders++
	if e.Updated {
		r.Totals.Updated++
	}
	r.Totals.OldTotal = r.Totals.OldTotal.Add(e.OldTotal)
	r.Totals.NewTotal = r.Totals.NewTotal.Add(e.NewTotal)
}

// RecalculateBillsHandler is the bill recalculator. Each order is repriced in
// its own unit of work, so a failed run can simply be run again.
type RecalculateBillsHandler struct {
	deps Dependencies
}

// NewRecalculateBillsHandler creates a new recalculate bills handler
func NewRecalculateBillsHandler(deps Dependencies) *RecalculateBillsHandler {
	return &RecalculateBillsHandler{deps: deps.withDefaults()}
}

// Handle executes the recalculation. On a storage error it returns the
// report of the orders processed so far together with the error.
func (h *RecalculateBillsHandler) Handle(ctx context.Context, cmd RecalculateBillsCommand) (*RecalcReport, error) {
	p := cmd.Partition
	if err := requirePartition(p); err != nil {
		return nil, err
	}
	start := time.Now()

	items, err := h.deps.Ledger.Items().List(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}
	if len(items) == 0 {
		orders, err := h.deps.Ledger.Orders().Count(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to count orders: %w", err)
		}
		if orders == 0 {
			return nil, domain.ErrPartitionNotFound
		}
	}

	prices := make(map[string]decimal.Decimal, len(items))
	for _, item := range items {
		prices[item.ID] = item.PricePerUnit
	}

	report := &RecalcReport{Partition: p}
	after := ""
	for {
		page, err := h.deps.Ledger.Orders().List(ctx, p, after, h.deps.Config.RecalcChunkSize)
		if err != nil {
			return report, fmt.Errorf("failed to list orders after %q: %w", after, err)
		}
		for _, o := range page {
			entry, err := h.recalculate(ctx, p, o.ID, prices)
			if err != nil {
				return report, fmt.Errorf("failed to recalculate order %s: %w", o.ID, err)
			}
			report.add(entry)
			h.deps.Metrics.RecordRecalc(entry.Updated)
		}
		if len(page) < h.deps.Config.RecalcChunkSize {
			break
		}
		after = page[len(page)-1].ID
	}

	logger.Info(ctx).
		Str("partition", p.String()).
		Int("orders", report.Totals.Orders).
		Int("updated", report.Totals.Updated).
		Str("old_total", report.Totals.OldTotal.StringFixed(2)).
		Str("new_total", report.Totals.NewTotal.StringFixed(2)).
		Dur("elapsed", time.Since(start)).
		Msg("Bills recalculated")

	if report.Totals.Updated > 0 {
		h.deps.committed(ctx, p, &domain.LedgerEvent{
			EventType: domain.EventTypeBillsRecalculated,
			Total:     report.Totals.NewTotal,
			Updated:   report.Totals.Updated,
		})
	}
	return report, nil
}

// recalculate reprices one order and rewrites it only if its total moved by
// more than RecalcEpsilon.
func (h *RecalculateBillsHandler) recalculate(ctx context.Context, p domain.PartitionKey, orderID string, prices map[string]decimal.Decimal) (RecalcEntry, error) {
	var entry RecalcEntry
	err := h.deps.retry(ctx, "recalculate_bill", func() error {
		return h.deps.Ledger.InTx(ctx, func(tx domain.Stores) error {
			order, err := tx.Orders().GetForUpdate(ctx, p, orderID)
			if err != nil {
				return err
			}

			lines := make([]domain.LineItem, len(order.LineItems))
			for i, l := range order.LineItems {
				if price, ok := prices[l.ItemID]; ok {
					l.UnitPrice = price
					l.Subtotal = domain.Subtotal(l.Quantity, price)
				}
				lines[i] = l
			}
			newTotal := domain.SumLines(lines)
			entry = RecalcEntry{OrderID: orderID, OldTotal: order.Total, NewTotal: newTotal}

			if !domain.DiffersBeyondEpsilon(newTotal, order.Total) {
				entry.NewTotal = order.Total
				logger.Debug(ctx).Str("order_id", orderID).Msg("Bill unchanged")
				return nil
			}

			order.LineItems = lines
			order.Total = newTotal
			if err := tx.Orders().Update(ctx, order); err != nil {
				return err
			}
			err = tx.Adjustments().Append(ctx, &domain.BillAdjustment{
				PartitionKey: p,
				OrderID:      orderID,
				OldTotal:     entry.OldTotal,
				NewTotal:     newTotal,
				Reason:       domain.ReasonPriceCorrection,
			})
			if err != nil {
				return err
			}
			entry.Updated = true
			logger.Debug(ctx).
				Str("order_id", orderID).
				Str("old_total", entry.OldTotal.StringFixed(2)).
				Str("new_total", newTotal.StringFixed(2)).
				Msg("Bill rewritten")
			return nil
		})
	})
	return entry, err
}
