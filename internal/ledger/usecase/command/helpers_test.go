package command

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/tair/produce-ledger/internal/ledger/domain"
	"github.com/tair/produce-ledger/internal/ledger/ledgertest"
	"github.com/tair/produce-ledger/internal/ledger/metrics"
	"github.com/tair/produce-ledger/internal/ledger/repository"
)

const day = ledgertest.Partition

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LedgerEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType
	}
	return out
}

type recordingCache struct {
	mu          sync.Mutex
	invalidated []domain.PartitionKey
}

func (c *recordingCache) GetAvailable(context.Context, domain.PartitionKey) ([]domain.MirrorEntry, domain.CacheGeneration, bool) {
	return nil, domain.NoGeneration, false
}

func (c *recordingCache) SetAvailable(context.Context, domain.PartitionKey, domain.CacheGeneration, []domain.MirrorEntry) {
}

func (c *recordingCache) Invalidate(_ context.Context, p domain.PartitionKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, p)
}

type fixture struct {
	store     *repository.Store
	deps      Dependencies
	publisher *recordingPublisher
	cache     *recordingCache
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	f := &fixture{
		store:     ledgertest.NewStore(t),
		publisher: &recordingPublisher{},
		cache:     &recordingCache{},
	}
	f.deps = Dependencies{
		Ledger:    f.store,
		Publisher: f.publisher,
		Cache:     f.cache,
		Metrics:   metrics.New(prometheus.NewRegistry()),
		Config:    Config{ConflictRetries: DefaultConflictRetries, RecalcChunkSize: DefaultRecalcChunkSize},
	}
	return f
}

func (f *fixture) place(t testing.TB, p domain.PartitionKey, lines ...OrderLine) (*domain.Order, error) {
	t.Helper()
	return NewPlaceOrderHandler(f.deps).Handle(context.Background(), PlaceOrderCommand{
		Partition:   p,
		CustomerRef: "cust-1",
		Lines:       lines,
	})
}

func (f *fixture) edit(t testing.TB, p domain.PartitionKey, orderID string, lines ...EditLine) (*ReconcileResult, error) {
	t.Helper()
	return NewEditOrderHandler(f.deps).Handle(context.Background(), EditOrderCommand{
		Partition: p,
		OrderID:   orderID,
		Lines:     lines,
	})
}

func line(id, qty string) OrderLine {
	return OrderLine{ItemID: id, Quantity: decimal.RequireFromString(qty)}
}

func editLine(id, qty string) EditLine {
	return EditLine{ItemID: id, Quantity: decimal.RequireFromString(qty)}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
