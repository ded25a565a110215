package command

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/produce-ledger/internal/ledger/domain"
	"github.com/tair/produce-ledger/internal/ledger/ledgertest"
)

func TestCreateItem(t *testing.T) {
	f := newFixture(t)
	h := NewCreateItemHandler(f.deps)
	ctx := context.Background()

	item, err := h.Handle(ctx, CreateItemCommand{
		Partition:    day,
		ItemID:       "banana",
		UnitType:     domain.UnitCount,
		PricePerUnit: dec("6"),
		TotalStock:   dec("120"),
		Category:     "fruit",
	})
	require.NoError(t, err)
	assert.Equal(t, "banana", item.Name)
	assert.True(t, dec("120").Equal(item.AvailableStock))

	entry, err := f.store.Mirror().Get(ctx, day, "banana")
	require.NoError(t, err)
	assert.True(t, dec("120").Equal(entry.TotalStock))
	assert.Equal(t, "fruit", entry.Category)
	assert.Equal(t, domain.UnitCount, entry.UnitType)

	_, err = h.Handle(ctx, CreateItemCommand{Partition: day, ItemID: "banana", TotalStock: dec("1")})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	over := dec("200")
	_, err = h.Handle(ctx, CreateItemCommand{Partition: day, ItemID: "kiwi", TotalStock: dec("100"), AvailableStock: &over})
	assert.ErrorIs(t, err, domain.ErrInvalidStock)

	_, err = h.Handle(ctx, CreateItemCommand{Partition: day, ItemID: "kiwi", PricePerUnit: dec("-1")})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestCountItemsRoundToWholeUnits(t *testing.T) {
	f := newFixture(t)
	_, err := NewCreateItemHandler(f.deps).Handle(context.Background(), CreateItemCommand{
		Partition:    day,
		ItemID:       "banana",
		UnitType:     domain.UnitCount,
		PricePerUnit: dec("6"),
		TotalStock:   dec("12"),
	})
	require.NoError(t, err)

	order, err := f.place(t, day, line("banana", "2.6"))
	require.NoError(t, err)
	assert.True(t, dec("3").Equal(order.LineItems[0].Quantity))
	assert.True(t, dec("18").Equal(order.Total))
	assert.True(t, dec("9").Equal(ledgertest.Available(t, f.store, day, "banana")))
}

func TestImportCatalog(t *testing.T) {
	f := newFixture(t)
	next := domain.PartitionKey("2025-03-15")
	ledgertest.SeedItem(t, f.store, day, "tomato", "10", "40")
	ledgertest.SeedItem(t, f.store, day, "onion", "20", "30")
	ledgertest.SeedItem(t, f.store, next, "onion", "5", "35")
	_, err := f.place(t, day, line("tomato", "4"))
	require.NoError(t, err)

	report, err := NewImportCatalogHandler(f.deps).Handle(context.Background(), ImportCatalogCommand{
		From:  day,
		To:    next,
		Stock: map[string]decimal.Decimal{"tomato": dec("15")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"tomato"}, report.Imported)
	assert.Equal(t, []string{"onion"}, report.Skipped)

	tomato, err := f.store.Items().Get(context.Background(), next, "tomato")
	require.NoError(t, err)
	assert.True(t, dec("15").Equal(tomato.TotalStock))
	assert.True(t, dec("15").Equal(tomato.AvailableStock))
	assert.True(t, dec("40").Equal(tomato.PricePerUnit))
	assert.True(t, dec("15").Equal(ledgertest.MirrorAvailable(t, f.store, next, "tomato")))

	onion, err := f.store.Items().Get(context.Background(), next, "onion")
	require.NoError(t, err)
	assert.True(t, dec("5").Equal(onion.TotalStock))
	assert.True(t, dec("35").Equal(onion.PricePerUnit))

	_, err = NewImportCatalogHandler(f.deps).Handle(context.Background(), ImportCatalogCommand{From: day, To: day})
	assert.ErrorIs(t, err, domain.ErrInvalidPartition)
	_, err = NewImportCatalogHandler(f.deps).Handle(context.Background(), ImportCatalogCommand{From: "2020-01-01", To: next})
	assert.ErrorIs(t, err, domain.ErrPartitionNotFound)
}

func TestCorrectStockLeavesAvailableAlone(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedItem(t, f.store, day, "tomato", "10", "40")
	_, err := f.place(t, day, line("tomato", "4"))
	require.NoError(t, err)

	item, err := NewCorrectStockHandler(f.deps).Handle(context.Background(), CorrectStockCommand{
		Partition:  day,
		ItemID:     "tomato",
		TotalStock: dec("30"),
	})
	require.NoError(t, err)

	// a restock must not reset what was already sold
	assert.True(t, dec("30").Equal(item.TotalStock))
	assert.True(t, dec("6").Equal(item.AvailableStock))
	entry, err := f.store.Mirror().Get(context.Background(), day, "tomato")
	require.NoError(t, err)
	assert.True(t, dec("30").Equal(entry.TotalStock))
	assert.True(t, dec("6").Equal(entry.AvailableStock))
	assert.Contains(t, f.publisher.types(), domain.EventTypeStockCorrected)
}

func TestCorrectStockWithAvailableDelta(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedItem(t, f.store, day, "tomato", "10", "40")
	_, err := f.place(t, day, line("tomato", "4"))
	require.NoError(t, err)

	restock := dec("20")
	item, err := NewCorrectStockHandler(f.deps).Handle(context.Background(), CorrectStockCommand{
		Partition:      day,
		ItemID:         "tomato",
		TotalStock:     dec("30"),
		AvailableDelta: &restock,
	})
	require.NoError(t, err)
	assert.True(t, dec("26").Equal(item.AvailableStock))
	assert.True(t, dec("26").Equal(ledgertest.MirrorAvailable(t, f.store, day, "tomato")))

	movements, err := f.store.Movements().ListByItem(context.Background(), day, "tomato")
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, domain.ReasonStockCorrection, movements[1].Reason)

	// available may not end above total; the whole correction rolls back
	tooMuch := dec("10")
	_, err = NewCorrectStockHandler(f.deps).Handle(context.Background(), CorrectStockCommand{
		Partition:      day,
		ItemID:         "tomato",
		TotalStock:     dec("30"),
		AvailableDelta: &tooMuch,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStock)
	assert.True(t, dec("26").Equal(ledgertest.Available(t, f.store, day, "tomato")))

	_, err = NewCorrectStockHandler(f.deps).Handle(context.Background(), CorrectStockCommand{
		Partition:  day,
		ItemID:     "mango",
		TotalStock: dec("1"),
	})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestDeleteItemRemovesMirrorEntry(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedItem(t, f.store, day, "tomato", "10", "40")
	ctx := context.Background()

	h := NewDeleteItemHandler(f.deps)
	require.NoError(t, h.Handle(ctx, DeleteItemCommand{Partition: day, ItemID: "tomato"}))

	_, err := f.store.Items().Get(ctx, day, "tomato")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	_, err = f.store.Mirror().Get(ctx, day, "tomato")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	assert.ErrorIs(t, h.Handle(ctx, DeleteItemCommand{Partition: day, ItemID: "tomato"}), domain.ErrItemNotFound)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedItem(t, f.store, day, "tomato", "10", "40")
	order, err := f.place(t, day, line("tomato", "1"))
	require.NoError(t, err)

	h := NewUpdateStatusHandler(f.deps)
	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, UpdateStatusCommand{Partition: day, OrderID: order.ID, Status: domain.StatusBillSent}))

	stored, err := f.store.Orders().Get(ctx, day, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBillSent, stored.Status)
	assert.True(t, dec("40").Equal(stored.Total))
	assert.True(t, dec("9").Equal(ledgertest.Available(t, f.store, day, "tomato")))

	assert.ErrorIs(t, h.Handle(ctx, UpdateStatusCommand{Partition: day, OrderID: order.ID, Status: "shipped"}), domain.ErrInvalidStatus)
	assert.ErrorIs(t, h.Handle(ctx, UpdateStatusCommand{Partition: day, OrderID: "nope", Status: domain.StatusPacked}), domain.ErrOrderNotFound)
}
