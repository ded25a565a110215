package command

import (
	"context"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/produce-ledger/internal/ledger/domain"
	"github.com/tair/produce-ledger/internal/ledger/ledgertest"
)

func TestEditOrderWorkedScenario(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedItem(t, f.store, day, "tomato", "10", "40")
	ledgertest.SeedItem(t, f.store, day, "onion", "20", "30")

	order, err := f.place(t, day, line("tomato", "3"))
	require.NoError(t, err)
	assert.True(t, dec("7").Equal(ledgertest.Available(t, f.store, day, "tomato")))
	assert.True(t, dec("120").Equal(order.Total))

	res, err := f.edit(t, day, order.ID, editLine("tomato", "1"))
	require.NoError(t, err)
	assert.True(t, dec("9").Equal(ledgertest.Available(t, f.store, day, "tomato")))
	assert.True(t, dec("40").Equal(res.Order.Total))
	assert.True(t, dec("-2").Equal(res.Deltas["tomato"]))

	res, err = f.edit(t, day, order.ID, editLine("tomato", "1"), editLine("onion", "2"))
	require.NoError(t, err)
	assert.True(t, dec("18").Equal(ledgertest.Available(t, f.store, day, "onion")))
	assert.True(t, dec("9").Equal(ledgertest.Available(t, f.store, day, "tomato")))
	assert.True(t, dec("100").Equal(res.Order.Total), res.Order.Total.String())
	assert.NotContains(t, res.Deltas, "tomato")
	assert.Empty(t, res.InventoryFailures)

	stored, err := f.store.Orders().Get(context.Background(), day, order.ID)
	require.NoError(t, err)
	assert.NoError(t, stored.CheckTotal())
	assert.Equal(t, 3, stored.Version)
	assert.True(t, dec("18").Equal(ledgertest.MirrorAvailable(t, f.store, day, "onion")))
	assert.True(t, dec("9").Equal(ledgertest.MirrorAvailable(t, f.store, day, "tomato")))
}

func TestEditOrderTouchesOnlyChangedItems(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedItem(t, f.store, day, "tomato", "10", "40")
	ledgertest.SeedItem(t, f.store, day, "onion", "20", "30")
	ledgertest.SeedItem(t, f.store, day, "potato", "50", "20")

	order, err := f.place(t, day, line("tomato", "2"), line("onion", "4"))
	require.NoError(t, err)

	_, err = f.edit(t, day, order.ID, editLine("tomato", "5"), editLine("onion", "4"))
	require.NoError(t, err)

	// q1 - q2 = 2 - 5 = -3 on tomato only
	assert.True(t, dec("5").Equal(ledgertest.Available(t, f.store, day, "tomato")))
	assert.True(t, dec("16").Equal(ledgertest.Available(t, f.store, day, "onion")))
	assert.True(t, dec("50").Equal(ledgertest.Available(t, f.store, day, "potato")))

	movements, err := f.store.Movements().ListByItem(context.Background(), day, "onion")
	require.NoError(t, err)
	assert.Len(t, movements, 1)
}

func TestEditOrderRemovingLineReturnsStock(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedItem(t, f.store, day, "tomato", "10", "40")
	ledgertest.SeedItem(t, f.store, day, "onion", "20", "30")

	order, err := f.place(t, day, line("tomato", "2"), line("onion", "4"))
	require.NoError(t, err)

	res, err := f.edit(t, day, order.ID, editLine("tomato", "2"))
	require.NoError(t, err)

	assert.True(t, dec("20").Equal(ledgertest.Available(t, f.store, day, "onion")))
	assert.True(t, dec("80").Equal(res.Order.Total))
	require.Len(t, res.Order.LineItems, 1)
	assert.Equal(t, "tomato", res.Order.LineItems[0].ItemID)

	res, err = f.edit(t, day, order.ID)
	require.NoError(t, err)
	assert.True(t, res.Order.Total.IsZero())
	assert.True(t, dec("10").Equal(ledgertest.Available(t, f.store, day, "tomato")))
}

func TestEditOrderMissingItemIsPartialFailure(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedItem(t, f.store, day, "tomato", "10", "40")
	ledgertest.SeedItem(t, f.store, day, "onion", "20", "30")

	order, err := f.place(t, day, line("tomato", "2"), line("onion", "2"))
	require.NoError(t, err)

	require.NoError(t, NewDeleteItemHandler(f.deps).Handle(context.Background(), DeleteItemCommand{
		Partition: day,
		ItemID:    "tomato",
	}))

	res, err := f.edit(t, day, order.ID, editLine("tomato", "3"), editLine("onion", "1"))
	require.NoError(t, err)

	require.Len(t, res.InventoryFailures, 1)
	assert.Equal(t, "tomato", res.InventoryFailures[0].ItemID)
	assert.True(t, dec("1").Equal(res.InventoryFailures[0].Delta))

	// tomato is repriced from the stored line: 80 / 2 = 40
	assert.True(t, dec("150").Equal(res.Order.Total), res.Order.Total.String())
	assert.True(t, dec("19").Equal(ledgertest.Available(t, f.store, day, "onion")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.deps.Metrics.InventoryFailures))
}

func TestEditOrderNewLineForMissingItem(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedItem(t, f.store, day, "tomato", "10", "40")

	order, err := f.place(t, day, line("tomato", "1"))
	require.NoError(t, err)

	_, err = f.edit(t, day, order.ID, editLine("tomato", "1"), editLine("okra", "2"))
	require.ErrorIs(t, err, domain.ErrItemNotFound)

	price := dec("25")
	res, err := f.edit(t, day, order.ID, editLine("tomato", "1"), EditLine{ItemID: "okra", Quantity: dec("2"), UnitPrice: &price})
	require.NoError(t, err)
	assert.True(t, dec("90").Equal(res.Order.Total))
	require.Len(t, res.InventoryFailures, 1)
	assert.Equal(t, "okra", res.InventoryFailures[0].ItemID)
}

func TestEditOrderUnknownOrder(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedItem(t, f.store, day, "tomato", "10", "40")

	_, err := f.edit(t, day, "does-not-exist", editLine("tomato", "1"))
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.True(t, dec("10").Equal(ledgertest.Available(t, f.store, day, "tomato")))
}

func TestEditOrderIsScopedToItsPartition(t *testing.T) {
	f := newFixture(t)
	next := domain.PartitionKey("2025-03-15")
	ledgertest.SeedItem(t, f.store, day, "tomato", "10", "40")
	ledgertest.SeedItem(t, f.store, next, "tomato", "10", "40")

	order, err := f.place(t, day, line("tomato", "1"))
	require.NoError(t, err)

	_, err = f.edit(t, next, order.ID, editLine("tomato", "4"))
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.edit(t, day, order.ID, editLine("tomato", "4"))
	require.NoError(t, err)
	assert.True(t, dec("6").Equal(ledgertest.Available(t, f.store, day, "tomato")))
	assert.True(t, dec("10").Equal(ledgertest.Available(t, f.store, next, "tomato")))
}

func TestRandomEditsNeverDriveStockNegative(t *testing.T) {
	f := newFixture(t)
	ids := []string{"tomato", "onion", "okra"}
	for _, id := range ids {
		ledgertest.SeedItem(t, f.store, day, id, "5", "10")
	}

	rng := rand.New(rand.NewSource(42))
	quantity := func() decimal.Decimal {
		return decimal.NewFromInt(int64(rng.Intn(16))).Div(decimal.NewFromInt(4))
	}

	var orders []string
	for step := 0; step < 60; step++ {
		if len(orders) == 0 || rng.Intn(3) == 0 {
			order, err := f.place(t, day, OrderLine{ItemID: ids[rng.Intn(len(ids))], Quantity: quantity().Add(dec("0.25"))})
			require.NoError(t, err)
			orders = append(orders, order.ID)
		} else {
			var lines []EditLine
			for _, id := range ids {
				if rng.Intn(2) == 0 {
					lines = append(lines, EditLine{ItemID: id, Quantity: quantity()})
				}
			}
			res, err := f.edit(t, day, orders[rng.Intn(len(orders))], lines...)
			require.NoError(t, err)
			require.NoError(t, res.Order.CheckTotal())
		}

		for _, id := range ids {
			avail := ledgertest.Available(t, f.store, day, id)
			require.False(t, avail.IsNegative(), "step %d: %s available %s", step, id, avail)
			require.True(t, avail.Equal(ledgertest.MirrorAvailable(t, f.store, day, id)), "step %d: mirror drifted for %s", step, id)
		}
	}

	// every order still bills exactly its own lines
	all, err := f.store.Orders().List(context.Background(), day, "", 0)
	require.NoError(t, err)
	for _, o := range all {
		assert.NoError(t, o.CheckTotal(), o.ID)
	}
}
