package command

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/tair/produce-ledger/internal/ledger/domain"
	"github.com/tair/produce-ledger/internal/ledger/metrics"
	"github.com/tair/produce-ledger/pkg/logger"
)

// Defaults for Config
const (
	DefaultConflictRetries = 3
	DefaultRecalcChunkSize = 100
)

// Config tunes the command handlers.
type Config struct {
	// ConflictRetries is how many times a unit of work is re-run after
	// losing a write race before ErrConflict is returned.
	ConflictRetries int
	// RecalcChunkSize is the number of orders read per page by RecalculateBills.
	RecalcChunkSize int
}

// Dependencies are the collaborators shared by every command handler.
type Dependencies struct {
	Ledger    domain.Ledger
	Publisher domain.EventPublisher
	Cache     domain.StockCache
	Metrics   *metrics.Metrics
	Config    Config
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Publisher == nil {
		d.Publisher = domain.NopPublisher{}
	}
	if d.Cache == nil {
		d.Cache = domain.NopCache{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(prometheus.NewRegistry())
	}
	if d.Config.ConflictRetries < 0 {
		d.Config.ConflictRetries = 0
	}
	if d.Config.RecalcChunkSize <= 0 {
		d.Config.RecalcChunkSize = DefaultRecalcChunkSize
	}
	return d
}

// retry re-runs fn while it fails with ErrConflict. fn must re-read
// everything it depends on, because the previous attempt was rolled back.
func (d Dependencies) retry(ctx context.Context, operation string, fn func() error) (err error) {
	start := time.Now()
	defer func() { d.Metrics.ObserveOperation(operation, start, err) }()

	for attempt := 0; ; attempt++ {
		err = fn()
		if !errors.Is(err, domain.ErrConflict) || attempt >= d.Config.ConflictRetries {
			return err
		}
		d.Metrics.ConflictRetries.WithLabelValues(operation).Inc()
		logger.Debug(ctx).
			Err(err).
			Str("operation", operation).
			Int("attempt", attempt+1).
			Msg("Retrying after write conflict")
	}
}

// committed runs the post-commit side effects of a partition mutation.
// Neither can undo the commit, so failures are only logged.
func (d Dependencies) committed(ctx context.Context, p domain.PartitionKey, event *domain.LedgerEvent) {
	d.Cache.Invalidate(ctx, p)
	if event == nil {
		return
	}

	event.EventID = uuid.NewString()
	event.Partition = p
	event.Timestamp = time.Now().UTC()
	if err := d.Publisher.Publish(ctx, *event); err != nil {
		logger.Warn(ctx).
			Err(err).
			Str("event_type", event.EventType).
			Str("partition", p.String()).
			Msg("Failed to publish ledger event")
	}
}

// stockMove is the outcome of one applied delta.
type stockMove struct {
	item    *domain.Item
	clamped bool
}

// moveStock applies delta to one item, brings its mirror entry in line and
// journals the movement. All three writes go through tx.
func moveStock(ctx context.Context, tx domain.Stores, p domain.PartitionKey, itemID string, delta decimal.Decimal, reason, ref string) (*stockMove, error) {
	item, before, err := tx.Items().ApplyDelta(ctx, p, itemID, delta)
	if err != nil {
		return nil, err
	}
	if err := tx.Mirror().Sync(ctx, item); err != nil {
		return nil, err
	}

	clamped := delta.IsPositive() && delta.GreaterThan(before)
	err = tx.Movements().Append(ctx, &domain.StockMovement{
		PartitionKey: p,
		ItemID:       itemID,
		Delta:        delta,
		Before:       before,
		After:        item.AvailableStock,
		Clamped:      clamped,
		Reason:       reason,
		Reference:    ref,
	})
	if err != nil {
		return nil, err
	}

	if clamped {
		logger.Warn(ctx).
			Str("partition", p.String()).
			Str("item_id", itemID).
			Str("requested", delta.String()).
			Str("available", before.String()).
			Str("reference", ref).
			Msg("Stock delta clamped at zero")
	}
	return &stockMove{item: item, clamped: clamped}, nil
}

// sortedKeys returns the keys of m in ascending order. Stock rows are always
// locked in this order so concurrent units of work cannot deadlock.
func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func requirePartition(p domain.PartitionKey) error {
	if p == "" {
		return domain.ErrInvalidPartition
	}
	return nil
}
