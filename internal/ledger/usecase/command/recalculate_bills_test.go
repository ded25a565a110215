package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/produce-ledger/internal/ledger/domain"
	"github.com/tair/produce-ledger/internal/ledger/ledgertest"
)

func (f *fixture) recalc(t testing.TB, p domain.PartitionKey) (*RecalcReport, error) {
	t.Helper()
	return NewRecalculateBillsHandler(f.deps).Handle(context.Background(), RecalculateBillsCommand{Partition: p})
}

func (f *fixture) setPrice(t testing.TB, p domain.PartitionKey, id, price string) {
	t.Helper()
	_, err := NewSetPriceHandler(f.deps).Handle(context.Background(), SetPriceCommand{
		Partition:    p,
		ItemID:       id,
		PricePerUnit: dec(price),
	})
	require.NoError(t, err)
}

func TestRecalculateAfterPriceCorrection(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedItem(t, f.store, day, "tomato", "10", "40")

	first, err := f.place(t, day, line("tomato", "1"))
	require.NoError(t, err)
	second, err := f.place(t, day, line("tomato", "1"))
	require.NoError(t, err)

	f.setPrice(t, day, "tomato", "45")

	// a price change alone never touches issued bills
	stored, err := f.store.Orders().Get(context.Background(), day, first.ID)
	require.NoError(t, err)
	assert.True(t, dec("40").Equal(stored.Total))

	report, err := f.recalc(t, day)
	require.NoError(t, err)
	require.Len(t, report.PerOrder, 2)
	for _, e := range report.PerOrder {
		assert.True(t, e.Updated, e.OrderID)
		assert.True(t, dec("40").Equal(e.OldTotal))
		assert.True(t, dec("45").Equal(e.NewTotal))
	}
	assert.Equal(t, 2, report.Totals.Updated)
	assert.True(t, dec("90").Equal(report.Totals.NewTotal))

	for _, id := range []string{first.ID, second.ID} {
		o, err := f.store.Orders().Get(context.Background(), day, id)
		require.NoError(t, err)
		assert.True(t, dec("45").Equal(o.Total))
		assert.NoError(t, o.CheckTotal())

		adjustments, err := f.store.Adjustments().ListByOrder(context.Background(), day, id)
		require.NoError(t, err)
		require.Len(t, adjustments, 1)
		assert.Equal(t, domain.ReasonPriceCorrection, adjustments[0].Reason)
		assert.True(t, dec("40").Equal(adjustments[0].OldTotal))
		assert.True(t, dec("45").Equal(adjustments[0].NewTotal))
	}

	// recalculation does not move stock
	assert.True(t, dec("8").Equal(ledgertest.Available(t, f.store, day, "tomato")))
	assert.Contains(t, f.publisher.types(), domain.EventTypeBillsRecalculated)
}

func TestRecalculateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedItem(t, f.store, day, "tomato", "10", "40")
	ledgertest.SeedItem(t, f.store, day, "onion", "10", "33.33")

	for i := 0; i < 3; i++ {
		_, err := f.place(t, day, line("tomato", "1.25"), line("onion", "0.75"))
		require.NoError(t, err)
	}
	f.setPrice(t, day, "onion", "31.10")

	first, err := f.recalc(t, day)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Totals.Updated)

	second, err := f.recalc(t, day)
	require.NoError(t, err)
	require.Len(t, second.PerOrder, 3)
	for _, e := range second.PerOrder {
		assert.False(t, e.Updated, e.OrderID)
		assert.True(t, e.OldTotal.Equal(e.NewTotal))
	}

	for _, e := range second.PerOrder {
		adjustments, err := f.store.Adjustments().ListByOrder(context.Background(), day, e.OrderID)
		require.NoError(t, err)
		assert.Len(t, adjustments, 1)
	}
}

func TestRecalculateLeavesLinesOfMissingItems(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedItem(t, f.store, day, "tomato", "10", "40")
	ledgertest.SeedItem(t, f.store, day, "onion", "10", "30")

	order, err := f.place(t, day, line("tomato", "1"), line("onion", "1"))
	require.NoError(t, err)

	require.NoError(t, NewDeleteItemHandler(f.deps).Handle(context.Background(), DeleteItemCommand{Partition: day, ItemID: "onion"}))
	f.setPrice(t, day, "tomato", "50")

	report, err := f.recalc(t, day)
	require.NoError(t, err)
	require.Len(t, report.PerOrder, 1)
	assert.True(t, dec("80").Equal(report.PerOrder[0].NewTotal))

	stored, err := f.store.Orders().Get(context.Background(), day, order.ID)
	require.NoError(t, err)
	l, ok := stored.Line("onion")
	require.True(t, ok)
	assert.True(t, dec("30").Equal(l.Subtotal))
}

func TestRecalculatePagesThroughLargePartitions(t *testing.T) {
	f := newFixture(t)
	f.deps.Config.RecalcChunkSize = 2
	ledgertest.SeedItem(t, f.store, day, "tomato", "100", "40")

	for i := 0; i < 5; i++ {
		_, err := f.place(t, day, line("tomato", "1"))
		require.NoError(t, err)
	}
	f.setPrice(t, day, "tomato", "41")

	report, err := f.recalc(t, day)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Totals.Orders)
	assert.Equal(t, 5, report.Totals.Updated)

	seen := map[string]bool{}
	for i, e := range report.PerOrder {
		assert.False(t, seen[e.OrderID], "order %s visited twice", e.OrderID)
		seen[e.OrderID] = true
		if i > 0 {
			assert.Less(t, report.PerOrder[i-1].OrderID, e.OrderID)
		}
	}
}

func TestRecalculateUnknownPartition(t *testing.T) {
	f := newFixture(t)

	_, err := f.recalc(t, "2030-01-01")
	assert.ErrorIs(t, err, domain.ErrPartitionNotFound)
}

func TestPartitionsAreIsolated(t *testing.T) {
	f := newFixture(t)
	next := domain.PartitionKey("2025-03-15")
	ledgertest.SeedItem(t, f.store, day, "tomato", "10", "40")

	old, err := f.place(t, day, line("tomato", "3"))
	require.NoError(t, err)

	_, err = NewImportCatalogHandler(f.deps).Handle(context.Background(), ImportCatalogCommand{From: day, To: next})
	require.NoError(t, err)
	_, err = f.place(t, next, line("tomato", "4"))
	require.NoError(t, err)
	f.setPrice(t, next, "tomato", "60")
	_, err = NewCorrectStockHandler(f.deps).Handle(context.Background(), CorrectStockCommand{
		Partition:  next,
		ItemID:     "tomato",
		TotalStock: dec("25"),
	})
	require.NoError(t, err)
	_, err = f.recalc(t, next)
	require.NoError(t, err)

	item, err := f.store.Items().Get(context.Background(), day, "tomato")
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(item.TotalStock))
	assert.True(t, dec("7").Equal(item.AvailableStock))
	assert.True(t, dec("40").Equal(item.PricePerUnit))

	stored, err := f.store.Orders().Get(context.Background(), day, old.ID)
	require.NoError(t, err)
	assert.True(t, dec("120").Equal(stored.Total))
	assert.Equal(t, 1, stored.Version)
}
